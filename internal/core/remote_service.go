package core

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/vfaronov/httpheader"

	"github.com/surge-downloader/tubepanel/internal/engine/types"
)

// APIError is returned for non-2xx daemon responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error %d: %s", e.StatusCode, e.Body)
}

// RemoteDownloadService implements DownloadService for a remote daemon.
type RemoteDownloadService struct {
	BaseURL string
	Token   string
	Client  *http.Client
}

// NewRemoteDownloadService creates a new remote service instance.
func NewRemoteDownloadService(baseURL string, token string) *RemoteDownloadService {
	return &RemoteDownloadService{
		BaseURL: baseURL,
		Token:   token,
		Client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *RemoteDownloadService) doRequest(ctx context.Context, method, path string, body interface{}) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.BaseURL+path, bodyReader)
	if err != nil {
		return nil, err
	}

	if s.Token != "" {
		req.Header.Set("Authorization", "Bearer "+s.Token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		defer func() { _ = resp.Body.Close() }()
		// Limit error body read to 1KB to prevent DoS
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(bodyBytes)}
	}

	return resp, nil
}

// getJSON issues a request and decodes the response body into out.
func (s *RemoteDownloadService) getJSON(ctx context.Context, method, path string, body, out interface{}) error {
	resp, err := s.doRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (s *RemoteDownloadService) ValidateURL(ctx context.Context, rawURL string) (bool, error) {
	var result struct {
		Valid bool `json:"valid"`
	}
	if err := s.getJSON(ctx, http.MethodGet, "/validate?url="+url.QueryEscape(rawURL), nil, &result); err != nil {
		return false, err
	}
	return result.Valid, nil
}

func (s *RemoteDownloadService) GetVideoInfo(ctx context.Context, rawURL string) (*types.VideoInfo, error) {
	var info types.VideoInfo
	if err := s.getJSON(ctx, http.MethodGet, "/info?url="+url.QueryEscape(rawURL), nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (s *RemoteDownloadService) StartDownload(ctx context.Context, req types.DownloadRequest) (string, error) {
	var result map[string]string
	if err := s.getJSON(ctx, http.MethodPost, "/download", req, &result); err != nil {
		return "", err
	}
	return result["id"], nil
}

// GetStatus returns nil without error when the daemon has no entry for id.
func (s *RemoteDownloadService) GetStatus(ctx context.Context, id string) (*types.HistoryEntry, error) {
	var entry types.HistoryEntry
	err := s.getJSON(ctx, http.MethodGet, "/download?id="+url.QueryEscape(id), nil, &entry)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (s *RemoteDownloadService) History(ctx context.Context) ([]types.HistoryEntry, error) {
	var history []types.HistoryEntry
	if err := s.getJSON(ctx, http.MethodGet, "/history", nil, &history); err != nil {
		return nil, err
	}
	return history, nil
}

func (s *RemoteDownloadService) ClearHistory(ctx context.Context) error {
	return s.getJSON(ctx, http.MethodDelete, "/history", nil, nil)
}

// ExportHistory streams the export into w and returns the file name the
// daemon suggested in Content-Disposition.
func (s *RemoteDownloadService) ExportHistory(ctx context.Context, w io.Writer) (string, error) {
	resp, err := s.doRequest(ctx, http.MethodGet, "/history/export", nil)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	_, name, _ := httpheader.ContentDisposition(resp.Header)
	if name == "" {
		name = exportFilename(time.Now())
	}

	if _, err := io.Copy(w, resp.Body); err != nil {
		return "", err
	}
	return name, nil
}

func (s *RemoteDownloadService) Statistics(ctx context.Context) (*types.DownloadStats, error) {
	var stats types.DownloadStats
	if err := s.getJSON(ctx, http.MethodGet, "/stats", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

func (s *RemoteDownloadService) DefaultDownloadPath(ctx context.Context) (string, error) {
	var result struct {
		Path string `json:"path"`
	}
	if err := s.getJSON(ctx, http.MethodGet, "/settings/default-path", nil, &result); err != nil {
		return "", err
	}
	return result.Path, nil
}

func (s *RemoteDownloadService) SupportedFormats(ctx context.Context) ([]types.Format, error) {
	var formats []types.Format
	if err := s.getJSON(ctx, http.MethodGet, "/formats", nil, &formats); err != nil {
		return nil, err
	}
	return formats, nil
}

func (s *RemoteDownloadService) SupportedQualities(ctx context.Context) ([]types.Quality, error) {
	var qualities []types.Quality
	if err := s.getJSON(ctx, http.MethodGet, "/qualities", nil, &qualities); err != nil {
		return nil, err
	}
	return qualities, nil
}

func (s *RemoteDownloadService) CheckDependencies(ctx context.Context) (*types.DependencyStatus, error) {
	var st types.DependencyStatus
	if err := s.getJSON(ctx, http.MethodGet, "/dependencies", nil, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

func (s *RemoteDownloadService) LoadSettings(ctx context.Context) (*types.AppSettings, error) {
	var settings types.AppSettings
	if err := s.getJSON(ctx, http.MethodGet, "/settings", nil, &settings); err != nil {
		return nil, err
	}
	return &settings, nil
}

func (s *RemoteDownloadService) SaveSettings(ctx context.Context, settings types.AppSettings) error {
	return s.getJSON(ctx, http.MethodPut, "/settings", settings, nil)
}

// Shutdown releases idle connections.
func (s *RemoteDownloadService) Shutdown() error {
	s.Client.CloseIdleConnections()
	return nil
}
