package settings

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/surge-downloader/tubepanel/internal/config"
	"github.com/surge-downloader/tubepanel/internal/engine/types"
	"github.com/surge-downloader/tubepanel/internal/testutil"
)

type fakeStore struct {
	mu          sync.Mutex
	loaded      *types.AppSettings
	loadErr     error
	defaultPath string
	pathErr     error
	saveErr     error
	saves       []types.AppSettings
}

func (f *fakeStore) LoadSettings(context.Context) (*types.AppSettings, error) {
	return f.loaded, f.loadErr
}

func (f *fakeStore) SaveSettings(_ context.Context, s types.AppSettings) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves = append(f.saves, s)
	return f.saveErr
}

func (f *fakeStore) DefaultDownloadPath(context.Context) (string, error) {
	return f.defaultPath, f.pathErr
}

func (f *fakeStore) saveCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.saves)
}

type fakePicker struct {
	path  string
	err   error
	start string
}

func (p *fakePicker) PickFolder(_ string, start string) (string, error) {
	p.start = start
	return p.path, p.err
}

func newSync(store *fakeStore, clock *testutil.FakeClock, onErr func(error)) *Synchronizer {
	return New(store, Options{Clock: clock, OnError: onErr})
}

func stored() *types.AppSettings {
	return &types.AppSettings{DownloadPath: "/music", DefaultFormat: types.FormatWAV, DefaultQuality: types.QualityBest}
}

func TestLoad_UsesStore(t *testing.T) {
	s := newSync(&fakeStore{loaded: stored()}, testutil.NewFakeClock(), nil)
	got := s.Load(context.Background())
	assert.Equal(t, *stored(), got)
	assert.Equal(t, got, s.Current())
}

func TestLoad_FallsBackToStoreDefaultPath(t *testing.T) {
	s := newSync(&fakeStore{loadErr: errors.New("corrupt"), defaultPath: "/home/u/Downloads"}, testutil.NewFakeClock(), nil)
	got := s.Load(context.Background())
	assert.Equal(t, types.AppSettings{
		DownloadPath:   "/home/u/Downloads",
		DefaultFormat:  types.FormatMP3,
		DefaultQuality: types.QualityHigh,
	}, got)
}

func TestLoad_FallsBackToLocalDefault(t *testing.T) {
	s := newSync(&fakeStore{loadErr: errors.New("corrupt"), pathErr: errors.New("down")}, testutil.NewFakeClock(), nil)
	got := s.Load(context.Background())
	assert.Equal(t, config.DefaultDownloadDir(), got.DownloadPath)
	assert.Equal(t, types.FormatMP3, got.DefaultFormat)
	assert.Equal(t, types.QualityHigh, got.DefaultQuality)
}

func TestLoad_KeepsEditsMadeBeforeItReturns(t *testing.T) {
	store := &fakeStore{loaded: stored()}
	clock := testutil.NewFakeClock()
	s := newSync(store, clock, nil)

	require.NoError(t, s.SetQuality(types.QualityLow))
	got := s.Load(context.Background())

	assert.Equal(t, types.QualityLow, got.DefaultQuality)
	assert.Equal(t, types.FormatWAV, got.DefaultFormat)
	assert.Equal(t, "/music", got.DownloadPath)

	clock.Advance(types.DefaultSettingsDebounce)
	require.Equal(t, 1, store.saveCount())
	assert.Equal(t, types.AppSettings{
		DownloadPath:   "/music",
		DefaultFormat:  types.FormatWAV,
		DefaultQuality: types.QualityLow,
	}, store.saves[0])

	// once saved, a later load is authoritative again
	assert.Equal(t, *stored(), s.Load(context.Background()))
}

func TestEdits_CoalesceIntoOneSave(t *testing.T) {
	store := &fakeStore{loaded: stored()}
	clock := testutil.NewFakeClock()
	s := newSync(store, clock, nil)
	s.Load(context.Background())

	require.NoError(t, s.SetFormat(types.FormatMP4))
	clock.Advance(300 * time.Millisecond)
	require.NoError(t, s.SetQuality(types.QualityLow))
	clock.Advance(300 * time.Millisecond)
	s.SetDownloadPath("/videos")

	assert.Equal(t, 0, store.saveCount(), "no save inside the debounce window")
	assert.True(t, s.Pending())

	clock.Advance(types.DefaultSettingsDebounce)

	require.Equal(t, 1, store.saveCount())
	assert.Equal(t, types.AppSettings{
		DownloadPath:   "/videos",
		DefaultFormat:  types.FormatMP4,
		DefaultQuality: types.QualityLow,
	}, store.saves[0])
	assert.False(t, s.Pending())
}

func TestEdits_SeparateWindowsSaveTwice(t *testing.T) {
	store := &fakeStore{loaded: stored()}
	clock := testutil.NewFakeClock()
	s := newSync(store, clock, nil)

	require.NoError(t, s.SetFormat(types.FormatMP4))
	clock.Advance(time.Second)
	require.NoError(t, s.SetFormat(types.FormatWEBM))
	clock.Advance(time.Second)

	assert.Equal(t, 2, store.saveCount())
}

func TestSetters_RejectInvalid(t *testing.T) {
	store := &fakeStore{}
	clock := testutil.NewFakeClock()
	s := newSync(store, clock, nil)

	assert.Error(t, s.SetFormat("flac"))
	assert.Error(t, s.SetQuality("ultra"))
	assert.False(t, s.Pending())
}

func TestSelectFolder_SavesImmediately(t *testing.T) {
	store := &fakeStore{loaded: stored()}
	clock := testutil.NewFakeClock()
	s := newSync(store, clock, nil)
	s.Load(context.Background())

	require.NoError(t, s.SetFormat(types.FormatMP4))
	picker := &fakePicker{path: "/new/folder"}

	chosen, err := s.SelectFolder(context.Background(), picker)
	require.NoError(t, err)
	assert.True(t, chosen)
	assert.Equal(t, "/music", picker.start)

	require.Equal(t, 1, store.saveCount())
	assert.Equal(t, "/new/folder", store.saves[0].DownloadPath)
	assert.Equal(t, types.FormatMP4, store.saves[0].DefaultFormat)

	clock.Advance(time.Second)
	assert.Equal(t, 1, store.saveCount(), "pending debounce should be cancelled")
}

func TestSelectFolder_Cancelled(t *testing.T) {
	store := &fakeStore{loaded: stored()}
	s := newSync(store, testutil.NewFakeClock(), nil)
	s.Load(context.Background())

	chosen, err := s.SelectFolder(context.Background(), &fakePicker{})
	require.NoError(t, err)
	assert.False(t, chosen)
	assert.Equal(t, 0, store.saveCount())
	assert.Equal(t, "/music", s.Current().DownloadPath)
}

func TestSelectFolder_PickerError(t *testing.T) {
	store := &fakeStore{}
	s := newSync(store, testutil.NewFakeClock(), nil)

	_, err := s.SelectFolder(context.Background(), &fakePicker{err: errors.New("no display")})
	assert.Error(t, err)
	assert.Equal(t, 0, store.saveCount())
}

func TestSaveFailure_ReportedThroughCallback(t *testing.T) {
	store := &fakeStore{saveErr: errors.New("disk full")}
	clock := testutil.NewFakeClock()
	var reported []error
	s := newSync(store, clock, func(err error) { reported = append(reported, err) })

	s.SetDownloadPath("/x")
	clock.Advance(time.Second)

	require.Len(t, reported, 1)
	assert.EqualError(t, reported[0], "disk full")
}

func TestFlush(t *testing.T) {
	store := &fakeStore{}
	clock := testutil.NewFakeClock()
	s := newSync(store, clock, nil)

	require.NoError(t, s.Flush(context.Background()))
	assert.Equal(t, 0, store.saveCount(), "nothing pending")

	s.SetDownloadPath("/flushed")
	require.NoError(t, s.Flush(context.Background()))
	require.Equal(t, 1, store.saveCount())
	assert.Equal(t, "/flushed", store.saves[0].DownloadPath)

	clock.Advance(time.Second)
	assert.Equal(t, 1, store.saveCount(), "flushed save must not repeat")
}

func TestOnSaved(t *testing.T) {
	store := &fakeStore{}
	clock := testutil.NewFakeClock()
	var saved []types.AppSettings
	s := New(store, Options{Clock: clock, OnSaved: func(a types.AppSettings) { saved = append(saved, a) }})

	s.SetDownloadPath("/a")
	clock.Advance(time.Second)

	require.Len(t, saved, 1)
	assert.Equal(t, "/a", saved[0].DownloadPath)
}
