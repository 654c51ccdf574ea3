package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	defaultServerPort   = 1717
	defaultHistoryLimit = 100
)

// ServerConfig describes the daemon started by `tubepanel server start`.
type ServerConfig struct {
	Port         int          `yaml:"port"`
	HistoryLimit int          `yaml:"history_limit"`
	Engine       EngineConfig `yaml:"engine"`
}

// EngineConfig overrides yt-dlp discovery and tuning.
type EngineConfig struct {
	YtDlpPath        string `yaml:"yt_dlp_path"`
	FFmpegPath       string `yaml:"ffmpeg_path"`
	UserAgent        string `yaml:"user_agent"`
	ExtractorRetries int    `yaml:"extractor_retries"`
	FragmentRetries  int    `yaml:"fragment_retries"`
	CacheDir         string `yaml:"cache_dir"`
}

// DefaultServerConfig returns the daemon defaults.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Port:         defaultServerPort,
		HistoryLimit: defaultHistoryLimit,
	}
}

// GetServerConfigPath returns the default location of server.yml.
func GetServerConfigPath() string {
	return filepath.Join(GetAppDir(), "server.yml")
}

// LoadServerConfig reads YAML config from path. A missing or empty file
// yields the defaults with no error.
func LoadServerConfig(path string) (ServerConfig, error) {
	cfg := DefaultServerConfig()
	if path == "" {
		return cfg, errors.New("empty config path")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if len(data) == 0 {
		return cfg, nil
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse yaml: %w", err)
	}
	if cfg.Port == 0 {
		cfg.Port = defaultServerPort
	}
	if cfg.Port < 0 || cfg.Port > 65535 {
		return cfg, fmt.Errorf("invalid port: %d", cfg.Port)
	}
	if cfg.HistoryLimit == 0 {
		cfg.HistoryLimit = defaultHistoryLimit
	}
	if cfg.HistoryLimit < 1 {
		return cfg, fmt.Errorf("invalid history_limit: %d (must be >= 1)", cfg.HistoryLimit)
	}
	return cfg, nil
}
