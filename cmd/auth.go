package cmd

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/surge-downloader/tubepanel/internal/config"
	"github.com/surge-downloader/tubepanel/internal/utils"
)

func tokenPath() string {
	return filepath.Join(config.GetAppDir(), "token")
}

// ensureAuthToken returns the local daemon token, creating it on first use.
func ensureAuthToken() string {
	path := tokenPath()
	if data, err := os.ReadFile(path); err == nil {
		if token := strings.TrimSpace(string(data)); token != "" {
			return token
		}
	}

	token := uuid.New().String()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		utils.Debug("Error creating token dir: %v", err)
		return token
	}
	if err := os.WriteFile(path, []byte(token), 0o600); err != nil {
		utils.Debug("Error writing token file: %v", err)
	}
	return token
}
