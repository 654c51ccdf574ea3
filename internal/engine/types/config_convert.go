package types

import "github.com/surge-downloader/tubepanel/internal/config"

// ConvertRuntimeConfig maps the daemon's file config onto engine settings.
func ConvertRuntimeConfig(rc *config.ServerConfig) *RuntimeConfig {
	if rc == nil {
		return &RuntimeConfig{}
	}
	return &RuntimeConfig{
		YtDlpPath:        rc.Engine.YtDlpPath,
		FFmpegPath:       rc.Engine.FFmpegPath,
		UserAgent:        rc.Engine.UserAgent,
		ExtractorRetries: rc.Engine.ExtractorRetries,
		FragmentRetries:  rc.Engine.FragmentRetries,
		CacheDir:         rc.Engine.CacheDir,
	}
}
