package core

import (
	"github.com/surge-downloader/tubepanel/internal/config"
	"github.com/surge-downloader/tubepanel/internal/engine/types"
)

// ToAppSettings converts the on-disk settings into the shared model.
// Unknown format or quality values fall back to the defaults.
func ToAppSettings(s *config.Settings) types.AppSettings {
	if s == nil {
		s = config.DefaultSettings()
	}
	format, err := types.ParseFormat(s.DefaultFormat)
	if err != nil {
		format = types.Format(config.DefaultFormat)
	}
	quality, err := types.ParseQuality(s.DefaultQuality)
	if err != nil {
		quality = types.Quality(config.DefaultQuality)
	}
	path := s.DownloadPath
	if path == "" {
		path = config.DefaultDownloadDir()
	}
	return types.AppSettings{
		DownloadPath:   path,
		DefaultFormat:  format,
		DefaultQuality: quality,
	}
}

// ApplyAppSettings copies the shared fields onto dst, leaving UI-only
// fields such as Theme untouched.
func ApplyAppSettings(dst *config.Settings, s types.AppSettings) {
	dst.DownloadPath = s.DownloadPath
	dst.DefaultFormat = string(s.DefaultFormat)
	dst.DefaultQuality = string(s.DefaultQuality)
}
