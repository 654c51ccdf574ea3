package types

import (
	"time"
)

// Lifecycle defaults. The poll step is a display heuristic: the status
// channel does not carry real percentages.
const (
	DefaultPollInterval  = 2 * time.Second
	DefaultJobTimeout    = 5 * time.Minute
	DefaultProgressStep  = 10
	SimulatedProgressCap = 90
	ProgressComplete     = 100

	DefaultSettingsDebounce = 500 * time.Millisecond
)

// History store limits
const (
	MaxHistoryEntries = 100
)

// Engine tuning
const (
	DefaultExtractorRetries = 3
	DefaultFragmentRetries  = 3
	DefaultUserAgent        = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
	DefaultReferer          = "https://www.youtube.com/"
	MaxTitleLength          = 100
)

// Channel buffer sizes
const (
	EventChannelBuffer = 100
)

// RuntimeConfig holds engine settings that can be overridden by the daemon config
type RuntimeConfig struct {
	YtDlpPath        string
	FFmpegPath       string
	UserAgent        string
	ExtractorRetries int
	FragmentRetries  int
	CacheDir         string
}

// GetUserAgent returns the configured user agent or the default
func (r *RuntimeConfig) GetUserAgent() string {
	if r == nil || r.UserAgent == "" {
		return DefaultUserAgent
	}
	return r.UserAgent
}

// GetExtractorRetries returns the configured retry count or the default
func (r *RuntimeConfig) GetExtractorRetries() int {
	if r == nil || r.ExtractorRetries <= 0 {
		return DefaultExtractorRetries
	}
	return r.ExtractorRetries
}

// GetFragmentRetries returns the configured retry count or the default
func (r *RuntimeConfig) GetFragmentRetries() int {
	if r == nil || r.FragmentRetries <= 0 {
		return DefaultFragmentRetries
	}
	return r.FragmentRetries
}
