package state

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/surge-downloader/tubepanel/internal/engine/types"
)

const selectColumns = `id, title, url, status, downloaded_at, file_path, format, quality`

// SaveDownload inserts or replaces a history entry by id, then truncates the
// table to the newest limit entries (types.MaxHistoryEntries when limit <= 0).
func SaveDownload(entry types.HistoryEntry, limit int) error {
	if entry.ID == "" {
		return fmt.Errorf("history entry has no id")
	}
	if limit <= 0 {
		limit = types.MaxHistoryEntries
	}

	handle, err := GetDB()
	if err != nil {
		return err
	}

	tx, err := handle.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin history tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.Exec(`
INSERT INTO history (id, title, url, status, downloaded_at, file_path, format, quality)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	title = excluded.title,
	url = excluded.url,
	status = excluded.status,
	downloaded_at = excluded.downloaded_at,
	file_path = excluded.file_path,
	format = excluded.format,
	quality = excluded.quality`,
		entry.ID, entry.Title, entry.URL, string(entry.Status),
		entry.DownloadedAt.UTC().UnixNano(), entry.FilePath,
		string(entry.Format), string(entry.Quality))
	if err != nil {
		return fmt.Errorf("failed to save history entry: %w", err)
	}

	_, err = tx.Exec(`
DELETE FROM history WHERE id NOT IN (
	SELECT id FROM history ORDER BY downloaded_at DESC, rowid DESC LIMIT ?
)`, limit)
	if err != nil {
		return fmt.Errorf("failed to truncate history: %w", err)
	}

	return tx.Commit()
}

// ListHistory returns all entries, newest first.
// Entries with equal timestamps are ordered by insertion, latest first.
func ListHistory() ([]types.HistoryEntry, error) {
	handle, err := GetDB()
	if err != nil {
		return nil, err
	}

	rows, err := handle.Query(`SELECT ` + selectColumns + ` FROM history ORDER BY downloaded_at DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	entries := make([]types.HistoryEntry, 0)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// GetDownload returns the entry with the given id, or nil when absent.
func GetDownload(id string) (*types.HistoryEntry, error) {
	handle, err := GetDB()
	if err != nil {
		return nil, err
	}

	row := handle.QueryRow(`SELECT `+selectColumns+` FROM history WHERE id = ?`, id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// ClearHistory removes every entry.
func ClearHistory() error {
	handle, err := GetDB()
	if err != nil {
		return err
	}
	if _, err := handle.Exec(`DELETE FROM history`); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (types.HistoryEntry, error) {
	var (
		e            types.HistoryEntry
		status       string
		format       string
		quality      string
		downloadedAt int64
	)
	if err := s.Scan(&e.ID, &e.Title, &e.URL, &status, &downloadedAt, &e.FilePath, &format, &quality); err != nil {
		return e, err
	}
	e.Status = types.DownloadStatus(status)
	e.Format = types.Format(format)
	e.Quality = types.Quality(quality)
	e.DownloadedAt = time.Unix(0, downloadedAt).UTC()
	return e, nil
}
