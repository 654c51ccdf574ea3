package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/surge-downloader/tubepanel/internal/core"
	"github.com/surge-downloader/tubepanel/internal/engine/types"
	"github.com/surge-downloader/tubepanel/internal/testutil"
)

type fakeService struct {
	entries    map[string]types.HistoryEntry
	started    []types.DownloadRequest
	settings   types.AppSettings
	failAll    error
	cleared    bool
	exportName string
}

func newFakeService() *fakeService {
	return &fakeService{
		entries: map[string]types.HistoryEntry{},
		settings: types.AppSettings{
			DownloadPath:   "/downloads",
			DefaultFormat:  types.FormatMP3,
			DefaultQuality: types.QualityHigh,
		},
	}
}

func (f *fakeService) ValidateURL(_ context.Context, url string) (bool, error) {
	return strings.Contains(url, "youtu"), f.failAll
}

func (f *fakeService) GetVideoInfo(_ context.Context, url string) (*types.VideoInfo, error) {
	if f.failAll != nil {
		return nil, f.failAll
	}
	return &types.VideoInfo{ID: "abc", Title: "A Song", URL: url, AvailableFormats: []string{"mp4"}}, nil
}

func (f *fakeService) StartDownload(_ context.Context, req types.DownloadRequest) (string, error) {
	if f.failAll != nil {
		return "", f.failAll
	}
	f.started = append(f.started, req)
	id := "job-1"
	f.entries[id] = types.HistoryEntry{ID: id, URL: req.URL, Status: types.StatusDownloading, Title: "Downloading...",
		Format: req.Format, Quality: req.Quality, DownloadedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	return id, nil
}

func (f *fakeService) GetStatus(_ context.Context, id string) (*types.HistoryEntry, error) {
	if f.failAll != nil {
		return nil, f.failAll
	}
	e, ok := f.entries[id]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (f *fakeService) History(context.Context) ([]types.HistoryEntry, error) {
	if f.failAll != nil {
		return nil, f.failAll
	}
	var out []types.HistoryEntry
	for _, e := range f.entries {
		out = append(out, e)
	}
	return out, nil
}

func (f *fakeService) ClearHistory(context.Context) error {
	f.cleared = true
	f.entries = map[string]types.HistoryEntry{}
	return f.failAll
}

func (f *fakeService) ExportHistory(_ context.Context, w io.Writer) (string, error) {
	_, _ = w.Write([]byte(`[]`))
	if f.exportName != "" {
		return f.exportName, f.failAll
	}
	return "tubepanel-history-20240101-000000.json", f.failAll
}

func (f *fakeService) Statistics(context.Context) (*types.DownloadStats, error) {
	s := types.ComputeStats(nil)
	return &s, f.failAll
}

func (f *fakeService) DefaultDownloadPath(context.Context) (string, error) {
	return "/home/u/Downloads", f.failAll
}

func (f *fakeService) SupportedFormats(context.Context) ([]types.Format, error) {
	return types.SupportedFormats(), f.failAll
}

func (f *fakeService) SupportedQualities(context.Context) ([]types.Quality, error) {
	return types.SupportedQualities(), f.failAll
}

func (f *fakeService) CheckDependencies(context.Context) (*types.DependencyStatus, error) {
	return &types.DependencyStatus{OK: true, YtDlpPath: "/usr/bin/yt-dlp"}, f.failAll
}

func (f *fakeService) LoadSettings(context.Context) (*types.AppSettings, error) {
	s := f.settings
	return &s, f.failAll
}

func (f *fakeService) SaveSettings(_ context.Context, s types.AppSettings) error {
	f.settings = s
	return f.failAll
}

func (f *fakeService) Shutdown() error { return nil }

func setupRouter(svc core.DownloadService, token string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return NewRouter(NewAPI(svc, nil, token))
}

func do(t *testing.T, r http.Handler, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealthSkipsAuth(t *testing.T) {
	r := setupRouter(newFakeService(), "secret")
	w := do(t, r, http.MethodGet, "/health", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestBearerAuth(t *testing.T) {
	r := setupRouter(newFakeService(), "secret")

	if w := do(t, r, http.MethodGet, "/formats", "", ""); w.Code != http.StatusUnauthorized {
		t.Errorf("missing token: expected 401, got %d", w.Code)
	}
	if w := do(t, r, http.MethodGet, "/formats", "", "wrong"); w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token: expected 401, got %d", w.Code)
	}
	if w := do(t, r, http.MethodGet, "/formats", "", "secret"); w.Code != http.StatusOK {
		t.Errorf("valid token: expected 200, got %d", w.Code)
	}
}

func TestValidate(t *testing.T) {
	r := setupRouter(newFakeService(), "")

	w := do(t, r, http.MethodGet, "/validate?url=https://youtu.be/x", "", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"valid":true`) {
		t.Errorf("got %d %s", w.Code, w.Body.String())
	}
	w = do(t, r, http.MethodGet, "/validate?url=https://example.com", "", "")
	if !strings.Contains(w.Body.String(), `"valid":false`) {
		t.Errorf("got %s", w.Body.String())
	}
	if w := do(t, r, http.MethodGet, "/validate", "", ""); w.Code != http.StatusBadRequest {
		t.Errorf("missing url: expected 400, got %d", w.Code)
	}
}

func TestStartDownloadAndStatus(t *testing.T) {
	svc := newFakeService()
	r := setupRouter(svc, "")

	body := `{"url":" https://youtu.be/x ","format":"mp3","quality":"high","output_path":"/tmp"}`
	w := do(t, r, http.MethodPost, "/download", body, "")
	if w.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", w.Code, w.Body.String())
	}
	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp["id"] != "job-1" {
		t.Errorf("id = %q", resp["id"])
	}
	if len(svc.started) != 1 || svc.started[0].URL != "https://youtu.be/x" {
		t.Errorf("started = %+v", svc.started)
	}

	w = do(t, r, http.MethodGet, "/download?id=job-1", "", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"status":"Downloading"`) {
		t.Errorf("status: %d %s", w.Code, w.Body.String())
	}
	if w := do(t, r, http.MethodGet, "/download?id=nope", "", ""); w.Code != http.StatusNotFound {
		t.Errorf("unknown id: expected 404, got %d", w.Code)
	}
	if w := do(t, r, http.MethodGet, "/download", "", ""); w.Code != http.StatusBadRequest {
		t.Errorf("missing id: expected 400, got %d", w.Code)
	}
}

func TestStartDownloadRejectsBadRequests(t *testing.T) {
	svc := newFakeService()
	r := setupRouter(svc, "")

	cases := []string{
		`not json`,
		`{"url":"","format":"mp3","quality":"high"}`,
		`{"url":"https://youtu.be/x","format":"flac","quality":"high"}`,
		`{"url":"https://youtu.be/x","format":"mp3","quality":"ultra"}`,
	}
	for _, body := range cases {
		if w := do(t, r, http.MethodPost, "/download", body, ""); w.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", body, w.Code)
		}
	}
	if len(svc.started) != 0 {
		t.Errorf("service should not be called, got %d starts", len(svc.started))
	}
}

func TestExportSetsAttachment(t *testing.T) {
	r := setupRouter(newFakeService(), "")
	w := do(t, r, http.MethodGet, "/history/export", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	cd := w.Header().Get("Content-Disposition")
	if !strings.HasPrefix(cd, "attachment") || !strings.Contains(cd, "tubepanel-history-20240101-000000.json") {
		t.Errorf("Content-Disposition = %q", cd)
	}
}

func TestExportFilenameSurvivesRemoteClient(t *testing.T) {
	svc := newFakeService()
	svc.exportName = "my history (1).json"
	srv := testutil.NewHTTPServerT(t, setupRouter(svc, ""))
	defer srv.Close()

	var buf bytes.Buffer
	name, err := core.NewRemoteDownloadService(srv.URL, "").ExportHistory(context.Background(), &buf)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if name != "my history (1).json" {
		t.Errorf("name = %q, want the daemon's file name", name)
	}
	if buf.String() != "[]" {
		t.Errorf("body = %q", buf.String())
	}
}

func TestSettingsEndpoints(t *testing.T) {
	svc := newFakeService()
	r := setupRouter(svc, "")

	w := do(t, r, http.MethodPut, "/settings", `{"download_path":"/x","default_format":"wav","default_quality":"best"}`, "")
	if w.Code != http.StatusOK {
		t.Fatalf("save: %d %s", w.Code, w.Body.String())
	}
	if svc.settings.DefaultFormat != types.FormatWAV || svc.settings.DownloadPath != "/x" {
		t.Errorf("settings not saved: %+v", svc.settings)
	}
	if w := do(t, r, http.MethodPut, "/settings", `{"default_format":"flac","default_quality":"best"}`, ""); w.Code != http.StatusBadRequest {
		t.Errorf("invalid settings: expected 400, got %d", w.Code)
	}
	w = do(t, r, http.MethodGet, "/settings/default-path", "", "")
	if !strings.Contains(w.Body.String(), `"path":"/home/u/Downloads"`) {
		t.Errorf("default path: %s", w.Body.String())
	}
}

func TestServiceErrors(t *testing.T) {
	svc := newFakeService()
	svc.failAll = errors.New("engine offline")
	r := setupRouter(svc, "")

	for _, path := range []string{"/history", "/stats", "/formats", "/dependencies", "/download?id=x"} {
		w := do(t, r, http.MethodGet, path, "", "")
		if w.Code != http.StatusInternalServerError {
			t.Errorf("%s: expected 500, got %d", path, w.Code)
		}
		if !strings.Contains(w.Body.String(), "engine offline") {
			t.Errorf("%s: body %s", path, w.Body.String())
		}
	}
	if w := do(t, r, http.MethodGet, "/info?url=https://youtu.be/x", "", ""); w.Code != http.StatusBadGateway {
		t.Errorf("info: expected 502, got %d", w.Code)
	}
}

func TestZerologLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	gin.SetMode(gin.TestMode)
	r := NewRouter(NewAPI(newFakeService(), &logger, "secret"))

	do(t, r, http.MethodGet, "/health", "", "")
	do(t, r, http.MethodGet, "/formats", "", "")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 log lines, got %d: %s", len(lines), buf.String())
	}
	if !strings.Contains(lines[0], `"level":"info"`) || !strings.Contains(lines[0], `"path":"/health"`) {
		t.Errorf("health line: %s", lines[0])
	}
	if !strings.Contains(lines[1], `"level":"warn"`) || !strings.Contains(lines[1], `"status":401`) {
		t.Errorf("unauthorized line: %s", lines[1])
	}
}

func TestCORSPreflight(t *testing.T) {
	r := setupRouter(newFakeService(), "secret")
	w := do(t, r, http.MethodOptions, "/download", "", "")
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing CORS header")
	}
}

// The remote client and the daemon must agree on the wire format.
func TestRemoteClientAgainstRouter(t *testing.T) {
	svc := newFakeService()
	srv := testutil.NewHTTPServerT(t, setupRouter(svc, "tok"))
	defer srv.Close()
	remote := core.NewRemoteDownloadService(srv.URL, "tok")
	ctx := context.Background()

	valid, err := remote.ValidateURL(ctx, "https://youtu.be/x")
	if err != nil || !valid {
		t.Fatalf("validate: %v %v", valid, err)
	}
	info, err := remote.GetVideoInfo(ctx, "https://youtu.be/x")
	if err != nil || info.Title != "A Song" {
		t.Fatalf("info: %+v %v", info, err)
	}
	id, err := remote.StartDownload(ctx, types.DownloadRequest{URL: "https://youtu.be/x", Format: types.FormatMP4, Quality: types.QualityBest})
	if err != nil || id != "job-1" {
		t.Fatalf("start: %q %v", id, err)
	}
	entry, err := remote.GetStatus(ctx, id)
	if err != nil || entry == nil || entry.Status != types.StatusDownloading {
		t.Fatalf("status: %+v %v", entry, err)
	}
	missing, err := remote.GetStatus(ctx, "nope")
	if err != nil || missing != nil {
		t.Fatalf("missing status: %+v %v", missing, err)
	}

	var buf bytes.Buffer
	name, err := remote.ExportHistory(ctx, &buf)
	if err != nil || name != "tubepanel-history-20240101-000000.json" {
		t.Fatalf("export: %q %v", name, err)
	}

	if err := remote.ClearHistory(ctx); err != nil || !svc.cleared {
		t.Fatalf("clear: %v", err)
	}
	formats, err := remote.SupportedFormats(ctx)
	if err != nil || len(formats) != 4 {
		t.Fatalf("formats: %v %v", formats, err)
	}
}
