package state

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/surge-downloader/tubepanel/internal/utils"

	_ "modernc.org/sqlite"
)

var (
	dbMu   sync.Mutex
	db     *sql.DB
	dbPath string
)

const schema = `
CREATE TABLE IF NOT EXISTS history (
	id            TEXT PRIMARY KEY,
	title         TEXT NOT NULL,
	url           TEXT NOT NULL,
	status        TEXT NOT NULL,
	downloaded_at INTEGER NOT NULL,
	file_path     TEXT NOT NULL DEFAULT '',
	format        TEXT NOT NULL,
	quality       TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_history_downloaded_at ON history(downloaded_at DESC);
`

// Configure sets the database location. An already open handle to a
// different file is closed.
func Configure(path string) {
	dbMu.Lock()
	defer dbMu.Unlock()
	if db != nil && path != dbPath {
		_ = db.Close()
		db = nil
	}
	dbPath = path
}

// GetDB returns the shared handle, opening and migrating it on first use.
func GetDB() (*sql.DB, error) {
	dbMu.Lock()
	defer dbMu.Unlock()

	if db != nil {
		return db, nil
	}
	if dbPath == "" {
		return nil, fmt.Errorf("state database not configured")
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	handle, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open state db: %w", err)
	}
	// One writer keeps sqlite from returning SQLITE_BUSY under concurrent saves.
	handle.SetMaxOpenConns(1)

	if _, err := handle.Exec(schema); err != nil {
		_ = handle.Close()
		return nil, fmt.Errorf("failed to migrate state db: %w", err)
	}

	utils.Debug("state db opened at %s", dbPath)
	db = handle
	return db, nil
}

// CloseDB closes the shared handle if open.
func CloseDB() {
	dbMu.Lock()
	defer dbMu.Unlock()
	if db != nil {
		_ = db.Close()
		db = nil
	}
}
