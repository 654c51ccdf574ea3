package core

import (
	"context"
	"io"

	"github.com/surge-downloader/tubepanel/internal/engine/types"
)

// DownloadService defines the backend contract consumed by the panel.
// This abstraction allows the TUI to switch between a local embedded backend
// and a remote daemon connection.
type DownloadService interface {
	// ValidateURL reports whether the engine accepts the URL.
	ValidateURL(ctx context.Context, url string) (bool, error)

	// GetVideoInfo fetches metadata for a URL.
	GetVideoInfo(ctx context.Context, url string) (*types.VideoInfo, error)

	// StartDownload begins a download and returns its id immediately.
	StartDownload(ctx context.Context, req types.DownloadRequest) (string, error)

	// GetStatus returns the history entry for id, or nil when none exists yet.
	GetStatus(ctx context.Context, id string) (*types.HistoryEntry, error)

	// History returns persisted downloads, newest first.
	History(ctx context.Context) ([]types.HistoryEntry, error)

	// ClearHistory removes every history entry.
	ClearHistory(ctx context.Context) error

	// ExportHistory writes the history as JSON and returns a suggested file name.
	ExportHistory(ctx context.Context, w io.Writer) (string, error)

	// Statistics summarizes the history.
	Statistics(ctx context.Context) (*types.DownloadStats, error)

	// DefaultDownloadPath returns the backend's default output directory.
	DefaultDownloadPath(ctx context.Context) (string, error)

	SupportedFormats(ctx context.Context) ([]types.Format, error)
	SupportedQualities(ctx context.Context) ([]types.Quality, error)

	// CheckDependencies reports whether yt-dlp and ffmpeg are available.
	CheckDependencies(ctx context.Context) (*types.DependencyStatus, error)

	LoadSettings(ctx context.Context) (*types.AppSettings, error)
	SaveSettings(ctx context.Context, s types.AppSettings) error

	// Shutdown handles graceful shutdown of the service
	Shutdown() error
}
