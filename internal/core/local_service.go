package core

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/surge-downloader/tubepanel/internal/config"
	"github.com/surge-downloader/tubepanel/internal/engine/state"
	"github.com/surge-downloader/tubepanel/internal/engine/types"
	"github.com/surge-downloader/tubepanel/internal/utils"
)

const (
	titlePending = "Downloading..."
	titleFailed  = "Download failed"
)

// Engine is the part of the yt-dlp engine the local service drives.
type Engine interface {
	ValidateURL(url string) bool
	VideoInfo(ctx context.Context, url string) (*types.VideoInfo, error)
	Download(ctx context.Context, req types.DownloadRequest, title string) (string, error)
	Dependencies(ctx context.Context) types.DependencyStatus
}

// LocalDownloadService implements DownloadService in-process. History lives
// in the state database; settings in the config directory.
type LocalDownloadService struct {
	engine       Engine
	historyLimit int
	now          func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// NewLocalDownloadService creates a service around engine. historyLimit <= 0
// keeps types.MaxHistoryEntries entries.
func NewLocalDownloadService(engine Engine, historyLimit int) *LocalDownloadService {
	ctx, cancel := context.WithCancel(context.Background())
	return &LocalDownloadService{
		engine:       engine,
		historyLimit: historyLimit,
		now:          time.Now,
		ctx:          ctx,
		cancel:       cancel,
	}
}

func (s *LocalDownloadService) ValidateURL(_ context.Context, url string) (bool, error) {
	return s.engine.ValidateURL(url), nil
}

func (s *LocalDownloadService) GetVideoInfo(ctx context.Context, url string) (*types.VideoInfo, error) {
	return s.engine.VideoInfo(ctx, url)
}

// StartDownload records a Downloading entry and runs the engine in the
// background. The final entry replaces it when the engine returns.
func (s *LocalDownloadService) StartDownload(_ context.Context, req types.DownloadRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return "", fmt.Errorf("service is shut down")
	}
	s.wg.Add(1)
	s.mu.Unlock()

	id := uuid.New().String()
	initial := types.HistoryEntry{
		ID:           id,
		Title:        titlePending,
		URL:          req.URL,
		Status:       types.StatusDownloading,
		DownloadedAt: s.now().UTC(),
		Format:       req.Format,
		Quality:      req.Quality,
	}
	if err := state.SaveDownload(initial, s.historyLimit); err != nil {
		utils.Debug("Failed to save initial download status: %v", err)
	}

	go s.run(id, req)
	return id, nil
}

func (s *LocalDownloadService) run(id string, req types.DownloadRequest) {
	defer s.wg.Done()
	utils.Debug("Starting download for ID: %s", id)

	final := types.HistoryEntry{
		ID:      id,
		URL:     req.URL,
		Format:  req.Format,
		Quality: req.Quality,
	}

	path, title, err := s.download(req)
	final.DownloadedAt = s.now().UTC()
	if err != nil {
		utils.Debug("Download failed for ID %s: %v", id, err)
		final.Title = titleFailed
		final.Status = types.StatusFailed
	} else {
		final.Title = title
		final.Status = types.StatusCompleted
		final.FilePath = path
	}

	if err := state.SaveDownload(final, s.historyLimit); err != nil {
		utils.Debug("Failed to save download result for %s: %v", id, err)
	}
}

func (s *LocalDownloadService) download(req types.DownloadRequest) (string, string, error) {
	info, err := s.engine.VideoInfo(s.ctx, req.URL)
	if err != nil {
		return "", "", err
	}
	path, err := s.engine.Download(s.ctx, req, info.Title)
	if err != nil {
		return "", "", err
	}
	return path, info.Title, nil
}

func (s *LocalDownloadService) GetStatus(_ context.Context, id string) (*types.HistoryEntry, error) {
	return state.GetDownload(id)
}

func (s *LocalDownloadService) History(_ context.Context) ([]types.HistoryEntry, error) {
	return state.ListHistory()
}

func (s *LocalDownloadService) ClearHistory(_ context.Context) error {
	return state.ClearHistory()
}

func (s *LocalDownloadService) ExportHistory(ctx context.Context, w io.Writer) (string, error) {
	entries, err := s.History(ctx)
	if err != nil {
		return "", err
	}
	return exportFilename(s.now()), writeExport(w, entries)
}

func (s *LocalDownloadService) Statistics(ctx context.Context) (*types.DownloadStats, error) {
	entries, err := s.History(ctx)
	if err != nil {
		return nil, err
	}
	stats := types.ComputeStats(entries)
	return &stats, nil
}

func (s *LocalDownloadService) DefaultDownloadPath(_ context.Context) (string, error) {
	return config.DefaultDownloadDir(), nil
}

func (s *LocalDownloadService) SupportedFormats(_ context.Context) ([]types.Format, error) {
	return types.SupportedFormats(), nil
}

func (s *LocalDownloadService) SupportedQualities(_ context.Context) ([]types.Quality, error) {
	return types.SupportedQualities(), nil
}

func (s *LocalDownloadService) CheckDependencies(ctx context.Context) (*types.DependencyStatus, error) {
	st := s.engine.Dependencies(ctx)
	if !st.OK {
		utils.Debug("Dependencies check failed: %s", st.Error)
	}
	return &st, nil
}

func (s *LocalDownloadService) LoadSettings(_ context.Context) (*types.AppSettings, error) {
	cfg, err := config.LoadSettings()
	if err != nil {
		return nil, err
	}
	out := ToAppSettings(cfg)
	return &out, nil
}

func (s *LocalDownloadService) SaveSettings(_ context.Context, in types.AppSettings) error {
	if !in.DefaultFormat.Valid() || !in.DefaultQuality.Valid() {
		return fmt.Errorf("invalid settings: format %q quality %q", in.DefaultFormat, in.DefaultQuality)
	}
	cfg, err := config.LoadSettings()
	if err != nil {
		// A corrupt file is overwritten rather than blocking every save.
		utils.Debug("Replacing unreadable settings file: %v", err)
		cfg = config.DefaultSettings()
	}
	ApplyAppSettings(cfg, in)
	return config.SaveSettings(cfg)
}

// Shutdown cancels running downloads and waits for their final history writes.
func (s *LocalDownloadService) Shutdown() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
	return nil
}

// Wait blocks until all background downloads have finished.
func (s *LocalDownloadService) Wait() {
	s.wg.Wait()
}

func exportFilename(now time.Time) string {
	return "tubepanel-history-" + now.UTC().Format("20060102-150405") + ".json"
}

func writeExport(w io.Writer, entries []types.HistoryEntry) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(entries)
}
