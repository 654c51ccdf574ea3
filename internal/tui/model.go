package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/surge-downloader/tubepanel/internal/core"
	"github.com/surge-downloader/tubepanel/internal/engine/events"
	"github.com/surge-downloader/tubepanel/internal/engine/types"
	"github.com/surge-downloader/tubepanel/internal/history"
	"github.com/surge-downloader/tubepanel/internal/lifecycle"
	"github.com/surge-downloader/tubepanel/internal/settings"
	"github.com/surge-downloader/tubepanel/internal/utils"
)

type UIState int

const (
	DashboardState   UIState = iota // tabs are visible
	InputState                      // Add Download popup
	EditSettingState                // editing the download folder as text
)

// Tab is one of the three main panels.
type Tab int

const (
	DownloadTab Tab = iota
	HistoryTab
	SettingsTab
)

func (t Tab) String() string {
	switch t {
	case DownloadTab:
		return "Download"
	case HistoryTab:
		return "History"
	case SettingsTab:
		return "Settings"
	}
	return "?"
}

// Popup fields
const (
	fieldURL = iota
	fieldFormat
	fieldQuality
	fieldCount
)

// Settings rows
const (
	rowFolder = iota
	rowFormat
	rowQuality
	rowCount
)

// Options wires the model to its collaborators.
type Options struct {
	Service   core.DownloadService
	Picker    settings.FolderPicker
	Confirmer history.Confirmer
	Opener    history.Opener
	// Clock drives the lifecycle timers and the settings debounce.
	Clock lifecycle.Clock
}

type RootModel struct {
	width  int
	height int
	state  UIState
	tab    Tab

	service   core.DownloadService
	client    *lifecycle.Client
	settings  *settings.Synchronizer
	history   *history.Refresher
	picker    settings.FolderPicker
	confirmer history.Confirmer
	opener    history.Opener

	activity chan tea.Msg // lifecycle, history and settings events

	// Download tab
	inputs      []textinput.Model
	focused     int
	formatIdx   int
	qualityIdx  int
	job         lifecycle.Job
	submitting  bool
	lastElapsed time.Duration
	progress    progress.Model
	spinner     spinner.Model
	deps        *types.DependencyStatus

	// History tab
	entries []history.DisplayEntry
	cursor  int
	stats   *types.DownloadStats

	// Settings tab
	current     types.AppSettings
	settingsRow int
	pathInput   textinput.Model

	notification string
	noticeLevel  events.NoticeLevel
	noticeSeq    int

	help help.Model
}

// InitialRootModel builds the model and its lifecycle client.
func InitialRootModel(opts Options) RootModel {
	activity := make(chan tea.Msg, ProgressChannelBuffer)
	notify := func(msg any) {
		select {
		case activity <- msg:
		default:
			utils.Debug("tui: activity channel full, dropping %T", msg)
		}
	}

	refresher := history.NewRefresher(opts.Service, notify)
	client := lifecycle.NewClient(opts.Service, lifecycle.Options{
		Clock:  opts.Clock,
		Notify: notify,
		RefreshHistory: func(ctx context.Context) {
			_, _ = refresher.Refresh(ctx)
		},
	})
	synchronizer := settings.New(opts.Service, settings.Options{
		Clock:   opts.Clock,
		OnError: func(err error) { notify(events.SettingsSavedMsg{Err: err}) },
		OnSaved: func(s types.AppSettings) { notify(events.SettingsSavedMsg{Settings: s}) },
	})

	urlInput := textinput.New()
	urlInput.Placeholder = "https://www.youtube.com/watch?v=..."
	urlInput.Width = InputWidth
	urlInput.Prompt = ""

	pathInput := textinput.New()
	pathInput.Width = InputWidth
	pathInput.Prompt = ""

	return RootModel{
		service:   opts.Service,
		client:    client,
		settings:  synchronizer,
		history:   refresher,
		picker:    opts.Picker,
		confirmer: opts.Confirmer,
		opener:    opts.Opener,
		activity:  activity,
		inputs:    []textinput.Model{urlInput},
		current:   synchronizer.Current(),
		pathInput: pathInput,
		progress:  progress.New(progress.WithDefaultGradient()),
		spinner:   spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(NotificationStyle)),
		help:      help.New(),
		state:     DashboardState,
		tab:       DownloadTab,
	}
}

func (m RootModel) Init() tea.Cmd {
	return tea.Batch(
		listenForActivity(m.activity),
		m.loadSettingsCmd(),
		m.refreshHistoryCmd(),
		m.checkDependenciesCmd(),
		m.spinner.Tick,
	)
}

func listenForActivity(sub chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		return <-sub
	}
}

// Shutdown writes pending settings and stops the lifecycle timers.
func (m RootModel) Shutdown(ctx context.Context) {
	if err := m.settings.Flush(ctx); err != nil {
		utils.Debug("tui: flush settings on exit: %v", err)
	}
	m.client.Close()
}

// SelectedEntry returns the history row under the cursor.
func (m RootModel) SelectedEntry() *history.DisplayEntry {
	if m.cursor < 0 || m.cursor >= len(m.entries) {
		return nil
	}
	e := m.entries[m.cursor]
	return &e
}

func (m RootModel) selectedFormat() types.Format {
	return types.SupportedFormats()[m.formatIdx]
}

func (m RootModel) selectedQuality() types.Quality {
	return types.SupportedQualities()[m.qualityIdx]
}

func indexOfFormat(f types.Format) int {
	for i, s := range types.SupportedFormats() {
		if s == f {
			return i
		}
	}
	return 0
}

func indexOfQuality(q types.Quality) int {
	for i, s := range types.SupportedQualities() {
		if s == q {
			return i
		}
	}
	return 0
}

func cycle(i, delta, n int) int {
	return ((i+delta)%n + n) % n
}
