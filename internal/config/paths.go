package config

import (
	"os"
	"path/filepath"
	"runtime"
)

const appName = "tubepanel"

// GetAppDir returns the directory holding settings, tokens and the daemon config.
// XDG_CONFIG_HOME wins on every platform so tests can sandbox it.
func GetAppDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, appName)
	}
	if dir, err := os.UserConfigDir(); err == nil && dir != "" {
		return filepath.Join(dir, appName)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, "."+appName)
}

// GetStateDir returns the directory for the history database.
func GetStateDir() string {
	return filepath.Join(GetAppDir(), "state")
}

// GetLogsDir returns the directory for debug logs.
func GetLogsDir() string {
	return filepath.Join(GetAppDir(), "logs")
}

// GetRuntimeDir returns the directory for pid, port and lock files.
func GetRuntimeDir() string {
	if runtime.GOOS == "linux" {
		if xdg := os.Getenv("XDG_RUNTIME_DIR"); xdg != "" {
			return filepath.Join(xdg, appName)
		}
	}
	return filepath.Join(GetAppDir(), "run")
}

// GetCacheDir returns the yt-dlp cache directory.
func GetCacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil && dir != "" && os.Getenv("XDG_CONFIG_HOME") == "" {
		return filepath.Join(dir, appName)
	}
	return filepath.Join(GetAppDir(), "cache")
}

// GetHistoryDBPath returns the SQLite history database path.
func GetHistoryDBPath() string {
	return filepath.Join(GetStateDir(), "history.db")
}

// DefaultDownloadDir is ~/Downloads, or the working directory if home is unknown.
func DefaultDownloadDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}
	return filepath.Join(home, "Downloads")
}

// EnsureDirs creates every directory the app writes to.
func EnsureDirs() error {
	for _, dir := range []string{GetAppDir(), GetStateDir(), GetLogsDir(), GetRuntimeDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return nil
}
