package types

import (
	"fmt"
	"strings"
	"time"
)

// Format is the container/codec requested from the engine.
type Format string

const (
	FormatMP4  Format = "mp4"
	FormatMP3  Format = "mp3"
	FormatWAV  Format = "wav"
	FormatWEBM Format = "webm"
)

// Quality is the quality preset requested from the engine.
type Quality string

const (
	QualityBest   Quality = "best"
	QualityHigh   Quality = "high"
	QualityMedium Quality = "medium"
	QualityLow    Quality = "low"
	QualityWorst  Quality = "worst"
)

// SupportedFormats returns every format the engine understands, in display order.
func SupportedFormats() []Format {
	return []Format{FormatMP4, FormatMP3, FormatWAV, FormatWEBM}
}

// SupportedQualities returns every quality preset, best first.
func SupportedQualities() []Quality {
	return []Quality{QualityBest, QualityHigh, QualityMedium, QualityLow, QualityWorst}
}

// Valid reports whether f is one of the supported formats.
func (f Format) Valid() bool {
	for _, s := range SupportedFormats() {
		if f == s {
			return true
		}
	}
	return false
}

// IsAudio reports whether the format is audio-only (extracted with ffmpeg).
func (f Format) IsAudio() bool {
	return f == FormatMP3 || f == FormatWAV
}

func (f Format) String() string { return string(f) }

// Valid reports whether q is one of the supported quality presets.
func (q Quality) Valid() bool {
	for _, s := range SupportedQualities() {
		if q == s {
			return true
		}
	}
	return false
}

func (q Quality) String() string { return string(q) }

// ParseFormat normalizes user input into a Format.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	if !f.Valid() {
		return "", fmt.Errorf("unsupported format %q", s)
	}
	return f, nil
}

// ParseQuality normalizes user input into a Quality.
func ParseQuality(s string) (Quality, error) {
	q := Quality(strings.ToLower(strings.TrimSpace(s)))
	if !q.Valid() {
		return "", fmt.Errorf("unsupported quality %q", s)
	}
	return q, nil
}

// DownloadStatus is the backend-side state of a download.
type DownloadStatus string

const (
	StatusPending     DownloadStatus = "Pending"
	StatusDownloading DownloadStatus = "Downloading"
	StatusCompleted   DownloadStatus = "Completed"
	StatusFailed      DownloadStatus = "Failed"
	StatusCancelled   DownloadStatus = "Cancelled"
)

// IsFinished returns true once the backend will not change the status again.
func (s DownloadStatus) IsFinished() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// VideoInfo is the metadata the engine extracts for a URL.
type VideoInfo struct {
	ID               string   `json:"id"`
	Title            string   `json:"title"`
	URL              string   `json:"url"`
	Duration         *int64   `json:"duration,omitempty"` // seconds
	Thumbnail        string   `json:"thumbnail,omitempty"`
	Uploader         string   `json:"uploader,omitempty"`
	UploadDate       string   `json:"upload_date,omitempty"` // YYYYMMDD as reported by yt-dlp
	ViewCount        *int64   `json:"view_count,omitempty"`
	AvailableFormats []string `json:"available_formats"`
}

// DownloadRequest is one download attempt as submitted by the panel.
type DownloadRequest struct {
	URL        string  `json:"url"`
	Format     Format  `json:"format"`
	Quality    Quality `json:"quality"`
	OutputPath string  `json:"output_path"`
	Filename   string  `json:"filename,omitempty"`
}

// Validate checks the enum fields. URL checks are the engine's job.
func (r DownloadRequest) Validate() error {
	if !r.Format.Valid() {
		return fmt.Errorf("unsupported format %q", r.Format)
	}
	if !r.Quality.Valid() {
		return fmt.Errorf("unsupported quality %q", r.Quality)
	}
	return nil
}

// HistoryEntry is a persisted download attempt.
type HistoryEntry struct {
	ID           string         `json:"id"`
	Title        string         `json:"title"`
	URL          string         `json:"url"`
	Status       DownloadStatus `json:"status"`
	DownloadedAt time.Time      `json:"downloaded_at"`
	FilePath     string         `json:"file_path,omitempty"`
	Format       Format         `json:"format"`
	Quality      Quality        `json:"quality"`
}

// AppSettings is the user-editable preference set shared with the backend.
type AppSettings struct {
	DownloadPath   string  `json:"download_path"`
	DefaultFormat  Format  `json:"default_format"`
	DefaultQuality Quality `json:"default_quality"`
}

// DownloadStats summarizes the history store.
type DownloadStats struct {
	Total            int            `json:"total"`
	Completed        int            `json:"completed"`
	Failed           int            `json:"failed"`
	Downloading      int            `json:"downloading"`
	MostUsedFormat   string         `json:"most_used_format,omitempty"`
	FormatsBreakdown map[string]int `json:"formats_breakdown"`
}

// ComputeStats builds DownloadStats from a history slice.
func ComputeStats(entries []HistoryEntry) DownloadStats {
	stats := DownloadStats{
		Total:            len(entries),
		FormatsBreakdown: make(map[string]int),
	}
	for _, e := range entries {
		switch e.Status {
		case StatusCompleted:
			stats.Completed++
		case StatusFailed:
			stats.Failed++
		case StatusDownloading:
			stats.Downloading++
		}
		stats.FormatsBreakdown[string(e.Format)]++
	}

	best := 0
	for format, count := range stats.FormatsBreakdown {
		// Ties resolve alphabetically so the result is stable.
		if count > best || (count == best && format < stats.MostUsedFormat) {
			best = count
			stats.MostUsedFormat = format
		}
	}
	return stats
}

// DependencyStatus reports whether the engine's helper binaries were found.
type DependencyStatus struct {
	OK           bool   `json:"ok"`
	YtDlpPath    string `json:"yt_dlp_path,omitempty"`
	YtDlpVersion string `json:"yt_dlp_version,omitempty"`
	FFmpegPath   string `json:"ffmpeg_path,omitempty"`
	Error        string `json:"error,omitempty"`
}
