package history

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/surge-downloader/tubepanel/internal/engine/events"
	"github.com/surge-downloader/tubepanel/internal/engine/types"
	"github.com/surge-downloader/tubepanel/internal/utils"
)

// ErrClearInProgress is returned when Clear is called while a clear is
// already running.
var ErrClearInProgress = errors.New("history clear already in progress")

// Display statuses. Anything other than a completed download shows as failed.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

const dateLayout = "2006-01-02"

// Store is the read/clear side of the history backend.
type Store interface {
	History(ctx context.Context) ([]types.HistoryEntry, error)
	ClearHistory(ctx context.Context) error
}

// Confirmer asks the user a yes/no question.
type Confirmer interface {
	Confirm(title, message string) (bool, error)
}

// Opener opens URLs in the browser and copies text to the clipboard.
type Opener interface {
	OpenURL(url string) error
	CopyText(text string) error
}

// DisplayEntry is a history row as shown in the panel.
type DisplayEntry struct {
	ID       string
	Title    string
	URL      string
	Status   string
	Date     string
	FilePath string
	Format   types.Format
	Quality  types.Quality
}

// Completed reports whether the row is a successful download.
func (d DisplayEntry) Completed() bool { return d.Status == StatusCompleted }

// ToDisplay collapses a stored entry into its display form.
func ToDisplay(e types.HistoryEntry) DisplayEntry {
	status := StatusFailed
	if e.Status == types.StatusCompleted {
		status = StatusCompleted
	}
	return DisplayEntry{
		ID:       e.ID,
		Title:    e.Title,
		URL:      e.URL,
		Status:   status,
		Date:     e.DownloadedAt.UTC().Format(dateLayout),
		FilePath: e.FilePath,
		Format:   e.Format,
		Quality:  e.Quality,
	}
}

// Refresher keeps the last good history list for the panel.
type Refresher struct {
	store  Store
	notify func(any)

	mu       sync.Mutex
	entries  []DisplayEntry
	clearing bool
}

// NewRefresher creates a refresher. notify may be nil.
func NewRefresher(store Store, notify func(any)) *Refresher {
	return &Refresher{store: store, notify: notify}
}

// Refresh reloads the list. On a store error the previous list is kept and
// returned along with the error.
func (r *Refresher) Refresh(ctx context.Context) ([]DisplayEntry, error) {
	raw, err := r.store.History(ctx)
	if err != nil {
		utils.Debug("history: refresh failed: %v", err)
		return r.Entries(), fmt.Errorf("load history: %w", err)
	}

	list := make([]DisplayEntry, 0, len(raw))
	for _, e := range raw {
		list = append(list, ToDisplay(e))
	}

	r.mu.Lock()
	r.entries = list
	r.mu.Unlock()

	r.send(events.HistoryChangedMsg{Entries: len(list)})
	return copyEntries(list), nil
}

// Entries returns the last loaded list.
func (r *Refresher) Entries() []DisplayEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return copyEntries(r.entries)
}

// Clear asks for confirmation and wipes the store. It reports whether the
// history was cleared.
func (r *Refresher) Clear(ctx context.Context, confirmer Confirmer) (bool, error) {
	r.mu.Lock()
	if r.clearing {
		r.mu.Unlock()
		return false, ErrClearInProgress
	}
	r.clearing = true
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.clearing = false
		r.mu.Unlock()
	}()

	ok, err := confirmer.Confirm("Clear History", "Are you sure you want to clear all download history?")
	if err != nil {
		return false, fmt.Errorf("confirm clear: %w", err)
	}
	if !ok {
		return false, nil
	}

	if err := r.store.ClearHistory(ctx); err != nil {
		utils.Debug("history: clear failed: %v", err)
		r.send(events.NoticeMsg{Level: events.NoticeError, Text: "Failed to clear history"})
		return false, fmt.Errorf("clear history: %w", err)
	}

	r.mu.Lock()
	r.entries = nil
	r.mu.Unlock()

	r.send(events.HistoryChangedMsg{Entries: 0})
	return true, nil
}

// Clearing reports whether a clear is in progress.
func (r *Refresher) Clearing() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.clearing
}

// OpenEntry opens the entry URL, falling back to the clipboard.
func (r *Refresher) OpenEntry(_ context.Context, entry DisplayEntry, opener Opener) error {
	openErr := opener.OpenURL(entry.URL)
	if openErr == nil {
		return nil
	}
	utils.Debug("history: open %s failed: %v", entry.URL, openErr)

	if err := opener.CopyText(entry.URL); err != nil {
		utils.Debug("history: clipboard fallback failed: %v", err)
		r.send(events.NoticeMsg{Level: events.NoticeError, Text: "Failed to open URL"})
		return errors.Join(openErr, err)
	}

	r.send(events.NoticeMsg{Level: events.NoticeInfo, Text: "URL copied to clipboard: " + entry.URL})
	return nil
}

func (r *Refresher) send(msg any) {
	if r.notify != nil {
		r.notify(msg)
	}
}

func copyEntries(in []DisplayEntry) []DisplayEntry {
	if in == nil {
		return nil
	}
	out := make([]DisplayEntry, len(in))
	copy(out, in)
	return out
}
