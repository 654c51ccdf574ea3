package config

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Built-in panel defaults, used when the store cannot be read.
const (
	DefaultFormat  = "mp3"
	DefaultQuality = "high"
)

// Settings is the on-disk shape of settings.json.
type Settings struct {
	DownloadPath   string `json:"download_path"`
	DefaultFormat  string `json:"default_format"`
	DefaultQuality string `json:"default_quality"`
	Theme          int    `json:"theme"`
}

const (
	ThemeAdaptive = 0
	ThemeLight    = 1
	ThemeDark     = 2
)

// SettingMeta provides metadata for a single setting (for UI rendering).
type SettingMeta struct {
	Key         string // JSON key name
	Label       string // Human-readable label
	Description string // Help text
	Type        string // "string", "choice", "dir"
}

// GetSettingsMetadata returns metadata for the user-facing settings, in display order.
func GetSettingsMetadata() []SettingMeta {
	return []SettingMeta{
		{Key: "download_path", Label: "Download Folder", Description: "Where finished files are written. [Tab] opens the folder picker.", Type: "dir"},
		{Key: "default_format", Label: "Default Format", Description: "Container used for new downloads (mp4, mp3, wav, webm).", Type: "choice"},
		{Key: "default_quality", Label: "Default Quality", Description: "Quality preset for new downloads (best .. worst).", Type: "choice"},
	}
}

// DefaultSettings returns the built-in defaults.
func DefaultSettings() *Settings {
	return &Settings{
		DownloadPath:   DefaultDownloadDir(),
		DefaultFormat:  DefaultFormat,
		DefaultQuality: DefaultQuality,
		Theme:          ThemeAdaptive,
	}
}

// GetSettingsPath returns the path to the settings JSON file.
func GetSettingsPath() string {
	return filepath.Join(GetAppDir(), "settings.json")
}

// LoadSettings loads settings from disk. Returns defaults if the file doesn't exist.
func LoadSettings() (*Settings, error) {
	data, err := os.ReadFile(GetSettingsPath())
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultSettings(), nil
		}
		return nil, err
	}

	settings := DefaultSettings() // Start with defaults to fill any missing fields
	if err := json.Unmarshal(data, settings); err != nil {
		return nil, err
	}

	return settings, nil
}

// SaveSettings saves settings to disk atomically.
func SaveSettings(s *Settings) error {
	path := GetSettingsPath()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}

	// Atomic write: write to temp file, then rename
	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0o644); err != nil {
		return err
	}

	return os.Rename(tempPath, path)
}
