package settings

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/surge-downloader/tubepanel/internal/config"
	"github.com/surge-downloader/tubepanel/internal/engine/types"
	"github.com/surge-downloader/tubepanel/internal/lifecycle"
	"github.com/surge-downloader/tubepanel/internal/utils"
)

// Store is the persisted settings backend.
type Store interface {
	LoadSettings(ctx context.Context) (*types.AppSettings, error)
	SaveSettings(ctx context.Context, s types.AppSettings) error
	DefaultDownloadPath(ctx context.Context) (string, error)
}

// FolderPicker asks the user for a directory. An empty path with a nil
// error means the user cancelled.
type FolderPicker interface {
	PickFolder(title, start string) (string, error)
}

// Options configures a Synchronizer.
type Options struct {
	Debounce time.Duration
	Clock    lifecycle.Clock
	// OnError is called when a save fails.
	OnError func(error)
	// OnSaved is called after every successful save.
	OnSaved func(types.AppSettings)
}

// Synchronizer keeps a cached copy of the settings and writes edits back
// to the store, coalescing bursts of edits into a single save.
type Synchronizer struct {
	store Store
	opts  Options
	clock lifecycle.Clock

	mu      sync.Mutex
	current types.AppSettings
	timer   lifecycle.Timer
	pending bool
	gen     uint64
	// edits made since the last save, replayed over a concurrent Load.
	edits []func(*types.AppSettings)
}

// New creates a synchronizer holding the built-in defaults until Load.
func New(store Store, opts Options) *Synchronizer {
	if opts.Debounce <= 0 {
		opts.Debounce = types.DefaultSettingsDebounce
	}
	clock := opts.Clock
	if clock == nil {
		clock = lifecycle.RealClock()
	}
	return &Synchronizer{
		store:   store,
		opts:    opts,
		clock:   clock,
		current: fallback(config.DefaultDownloadDir()),
	}
}

func fallback(path string) types.AppSettings {
	return types.AppSettings{
		DownloadPath:   path,
		DefaultFormat:  types.FormatMP3,
		DefaultQuality: types.QualityHigh,
	}
}

// Load reads the store. On failure it falls back to the store's default
// path, then to the local default, with mp3 / high. Edits still waiting for
// their debounced save are applied on top of what was read.
func (s *Synchronizer) Load(ctx context.Context) types.AppSettings {
	loaded, err := s.store.LoadSettings(ctx)

	var next types.AppSettings
	if err == nil && loaded != nil {
		next = *loaded
	} else {
		utils.Debug("settings: load failed, using defaults: %v", err)
		path, perr := s.store.DefaultDownloadPath(ctx)
		if perr != nil || path == "" {
			path = config.DefaultDownloadDir()
		}
		next = fallback(path)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending {
		for _, fn := range s.edits {
			fn(&next)
		}
	}
	s.current = next
	return next
}

// Current returns the cached settings.
func (s *Synchronizer) Current() types.AppSettings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// SetFormat updates the default format and schedules a save.
func (s *Synchronizer) SetFormat(f types.Format) error {
	if !f.Valid() {
		return fmt.Errorf("unsupported format %q", f)
	}
	s.edit(func(a *types.AppSettings) { a.DefaultFormat = f })
	return nil
}

// SetQuality updates the default quality and schedules a save.
func (s *Synchronizer) SetQuality(q types.Quality) error {
	if !q.Valid() {
		return fmt.Errorf("unsupported quality %q", q)
	}
	s.edit(func(a *types.AppSettings) { a.DefaultQuality = q })
	return nil
}

// SetDownloadPath updates the output folder and schedules a save.
func (s *Synchronizer) SetDownloadPath(path string) {
	s.edit(func(a *types.AppSettings) { a.DownloadPath = path })
}

// edit applies fn and (re)arms the debounce timer.
func (s *Synchronizer) edit(fn func(*types.AppSettings)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fn(&s.current)
	s.edits = append(s.edits, fn)
	if s.timer != nil {
		s.timer.Stop()
	}
	s.gen++
	gen := s.gen
	s.pending = true
	s.timer = s.clock.AfterFunc(s.opts.Debounce, func() { s.onDebounce(gen) })
}

func (s *Synchronizer) onDebounce(gen uint64) {
	s.mu.Lock()
	if gen != s.gen || !s.pending {
		s.mu.Unlock()
		return
	}
	s.pending = false
	s.timer = nil
	s.edits = nil
	snapshot := s.current
	s.mu.Unlock()

	_ = s.save(context.Background(), snapshot)
}

// takePendingLocked cancels a scheduled save and reports whether one existed.
func (s *Synchronizer) takePendingLocked() bool {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.gen++
	had := s.pending
	s.pending = false
	s.edits = nil
	return had
}

// SelectFolder opens the picker and, on a selection, saves immediately.
// It reports whether a folder was chosen.
func (s *Synchronizer) SelectFolder(ctx context.Context, picker FolderPicker) (bool, error) {
	start := s.Current().DownloadPath
	path, err := picker.PickFolder("Select download folder", start)
	if err != nil {
		utils.Debug("settings: folder picker failed: %v", err)
		return false, err
	}
	if path == "" {
		return false, nil
	}

	s.mu.Lock()
	s.current.DownloadPath = path
	s.takePendingLocked()
	snapshot := s.current
	s.mu.Unlock()

	return true, s.save(ctx, snapshot)
}

// Flush writes a pending debounced save now.
func (s *Synchronizer) Flush(ctx context.Context) error {
	s.mu.Lock()
	had := s.takePendingLocked()
	snapshot := s.current
	s.mu.Unlock()

	if !had {
		return nil
	}
	return s.save(ctx, snapshot)
}

// Pending reports whether a debounced save is scheduled.
func (s *Synchronizer) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

func (s *Synchronizer) save(ctx context.Context, snapshot types.AppSettings) error {
	if err := s.store.SaveSettings(ctx, snapshot); err != nil {
		utils.Debug("settings: save failed: %v", err)
		if s.opts.OnError != nil {
			s.opts.OnError(err)
		}
		return err
	}
	if s.opts.OnSaved != nil {
		s.opts.OnSaved(snapshot)
	}
	return nil
}
