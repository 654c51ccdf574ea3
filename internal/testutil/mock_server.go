// Package testutil provides testing utilities for the tubepanel packages.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/surge-downloader/tubepanel/internal/engine/types"
)

// MockDaemon is a scripted stand-in for the tubepanel daemon HTTP API.
type MockDaemon struct {
	Server *httptest.Server

	// Configuration
	Token            string                 // Required bearer token ("" = no auth)
	Latency          time.Duration          // Artificial latency per request
	StatusScript     []types.DownloadStatus // Status returned by successive polls; the last one repeats
	FailOnNthRequest int                    // Fail on Nth request (0 = don't fail)
	Title            string                 // Title reported by /info and completed entries

	// Tracking
	RequestCount   atomic.Int64
	StatusRequests atomic.Int64
	ActiveRequests atomic.Int64
	MaxActive      atomic.Int64
	FailedRequests atomic.Int64

	mu       sync.Mutex
	reqNum   int
	nextID   int
	polls    map[string]int
	requests map[string]types.DownloadRequest

	CustomHandler http.HandlerFunc
}

// MockDaemonOption is a function that configures a MockDaemon.
type MockDaemonOption func(*MockDaemon)

// WithHandler sets a custom request handler.
func WithHandler(h http.HandlerFunc) MockDaemonOption {
	return func(m *MockDaemon) {
		m.CustomHandler = h
	}
}

// WithToken requires a bearer token on every route except /health.
func WithToken(token string) MockDaemonOption {
	return func(m *MockDaemon) {
		m.Token = token
	}
}

// WithLatency adds artificial latency per request.
func WithLatency(d time.Duration) MockDaemonOption {
	return func(m *MockDaemon) {
		m.Latency = d
	}
}

// WithStatusScript sets the statuses returned by successive polls.
func WithStatusScript(statuses ...types.DownloadStatus) MockDaemonOption {
	return func(m *MockDaemon) {
		m.StatusScript = statuses
	}
}

// WithFailOnNthRequest causes the Nth request to fail.
func WithFailOnNthRequest(n int) MockDaemonOption {
	return func(m *MockDaemon) {
		m.FailOnNthRequest = n
	}
}

func newMockDaemon(opts []MockDaemonOption) *MockDaemon {
	m := &MockDaemon{
		StatusScript: []types.DownloadStatus{types.StatusDownloading, types.StatusCompleted},
		Title:        "Mock Video",
		polls:        make(map[string]int),
		requests:     make(map[string]types.DownloadRequest),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// NewMockDaemon creates a new mock daemon with the given options.
func NewMockDaemon(opts ...MockDaemonOption) *MockDaemon {
	m := newMockDaemon(opts)
	m.Server = NewHTTPServer(http.HandlerFunc(m.handleRequest))
	return m
}

// NewMockDaemonT creates a new mock daemon and skips the test if binding fails.
func NewMockDaemonT(t *testing.T, opts ...MockDaemonOption) *MockDaemon {
	t.Helper()
	m := newMockDaemon(opts)
	m.Server = NewHTTPServerT(t, http.HandlerFunc(m.handleRequest))
	return m
}

// URL returns the server's URL.
func (m *MockDaemon) URL() string {
	return m.Server.URL
}

// Close shuts down the mock server.
func (m *MockDaemon) Close() {
	if m.Server != nil {
		m.Server.Close()
	}
}

// Started returns the request submitted for id.
func (m *MockDaemon) Started(id string) (types.DownloadRequest, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requests[id]
	return req, ok
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (m *MockDaemon) handleRequest(w http.ResponseWriter, r *http.Request) {
	if m.CustomHandler != nil {
		m.CustomHandler(w, r)
		return
	}

	m.RequestCount.Add(1)
	active := m.ActiveRequests.Add(1)
	defer m.ActiveRequests.Add(-1)
	for {
		peak := m.MaxActive.Load()
		if active <= peak || m.MaxActive.CompareAndSwap(peak, active) {
			break
		}
	}

	m.mu.Lock()
	m.reqNum++
	reqNum := m.reqNum
	m.mu.Unlock()

	if m.FailOnNthRequest > 0 && reqNum == m.FailOnNthRequest {
		m.FailedRequests.Add(1)
		http.Error(w, "Simulated failure", http.StatusInternalServerError)
		return
	}

	if m.Latency > 0 {
		time.Sleep(m.Latency)
	}

	if r.URL.Path == "/health" {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}

	if m.Token != "" && r.Header.Get("Authorization") != "Bearer "+m.Token {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	switch {
	case r.URL.Path == "/validate":
		u := r.URL.Query().Get("url")
		writeJSON(w, http.StatusOK, map[string]bool{"valid": strings.Contains(u, "youtube.com") || strings.Contains(u, "youtu.be")})

	case r.URL.Path == "/info":
		writeJSON(w, http.StatusOK, types.VideoInfo{ID: "mock", Title: m.Title, URL: r.URL.Query().Get("url"), AvailableFormats: []string{}})

	case r.URL.Path == "/download" && r.Method == http.MethodPost:
		var req types.DownloadRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		m.mu.Lock()
		m.nextID++
		id := fmt.Sprintf("mock-%d", m.nextID)
		m.requests[id] = req
		m.mu.Unlock()
		writeJSON(w, http.StatusAccepted, map[string]string{"id": id})

	case r.URL.Path == "/download":
		m.StatusRequests.Add(1)
		m.handleStatus(w, r.URL.Query().Get("id"))

	case r.URL.Path == "/history":
		writeJSON(w, http.StatusOK, []types.HistoryEntry{})

	case r.URL.Path == "/dependencies":
		writeJSON(w, http.StatusOK, types.DependencyStatus{OK: true, YtDlpPath: "/usr/bin/yt-dlp", YtDlpVersion: "2024.01.01"})

	default:
		http.NotFound(w, r)
	}
}

func (m *MockDaemon) handleStatus(w http.ResponseWriter, id string) {
	m.mu.Lock()
	req, ok := m.requests[id]
	if !ok {
		m.mu.Unlock()
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "download not found"})
		return
	}
	n := m.polls[id]
	m.polls[id] = n + 1
	m.mu.Unlock()

	status := types.StatusPending
	if len(m.StatusScript) > 0 {
		if n >= len(m.StatusScript) {
			n = len(m.StatusScript) - 1
		}
		status = m.StatusScript[n]
	}

	title := "Downloading..."
	switch status {
	case types.StatusCompleted:
		title = m.Title
	case types.StatusFailed:
		title = "Download failed"
	}
	writeJSON(w, http.StatusOK, types.HistoryEntry{
		ID:           id,
		Title:        title,
		URL:          req.URL,
		Status:       status,
		DownloadedAt: time.Now().UTC(),
		Format:       req.Format,
		Quality:      req.Quality,
	})
}
