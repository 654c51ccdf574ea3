package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/surge-downloader/tubepanel/internal/engine/events"
	"github.com/surge-downloader/tubepanel/internal/engine/types"
	"github.com/surge-downloader/tubepanel/internal/history"
	"github.com/surge-downloader/tubepanel/internal/lifecycle"
	"github.com/surge-downloader/tubepanel/internal/utils"
)

// Update handles messages and updates the model
func (m RootModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case events.JobStartedMsg:
		m.job = m.client.Snapshot()
		m.lastElapsed = 0
		cmds = append(cmds, listenForActivity(m.activity))

	case events.ProgressMsg:
		m.job = m.client.Snapshot()
		cmds = append(cmds, m.progress.SetPercent(float64(msg.Progress)/100))
		cmds = append(cmds, listenForActivity(m.activity))

	case events.JobCompleteMsg:
		m.job = m.client.Snapshot()
		m.lastElapsed = msg.Elapsed
		cmds = append(cmds, m.notify(events.NoticeInfo, "Download completed: "+msg.Title))
		cmds = append(cmds, listenForActivity(m.activity))

	case events.JobErrorMsg:
		m.job = m.client.Snapshot()
		text := "Download failed"
		if msg.Err != nil {
			text = fmt.Sprintf("Download failed: %v", msg.Err)
		}
		cmds = append(cmds, m.notify(events.NoticeError, text))
		cmds = append(cmds, listenForActivity(m.activity))

	case events.JobTimedOutMsg:
		m.job = m.client.Snapshot()
		m.lastElapsed = msg.Elapsed
		text := "Download is taking long; check History later"
		if msg.Abandoned {
			text = "Stopped watching download; it may still finish"
		}
		cmds = append(cmds, m.notify(events.NoticeInfo, text))
		cmds = append(cmds, listenForActivity(m.activity))

	case events.HistoryChangedMsg:
		m.setEntries(m.history.Entries())
		cmds = append(cmds, m.statsCmd())
		cmds = append(cmds, listenForActivity(m.activity))

	case events.NoticeMsg:
		cmds = append(cmds, m.notify(msg.Level, msg.Text))
		cmds = append(cmds, listenForActivity(m.activity))

	case events.SettingsSavedMsg:
		if msg.Err != nil {
			cmds = append(cmds, m.notify(events.NoticeError, "Failed to save settings: "+msg.Err.Error()))
		} else {
			m.current = msg.Settings
		}
		cmds = append(cmds, listenForActivity(m.activity))

	case settingsLoadedMsg:
		m.current = msg.settings
		m.formatIdx = indexOfFormat(msg.settings.DefaultFormat)
		m.qualityIdx = indexOfQuality(msg.settings.DefaultQuality)

	case historyLoadedMsg:
		if msg.err != nil {
			utils.Debug("tui: history refresh: %v", msg.err)
		}
		m.setEntries(msg.entries)

	case statsLoadedMsg:
		if msg.err == nil {
			m.stats = msg.stats
		}

	case dependenciesMsg:
		if msg.err != nil {
			m.deps = &types.DependencyStatus{Error: msg.err.Error()}
		} else {
			m.deps = msg.status
		}

	case submitResultMsg:
		m.submitting = false
		m.job = m.client.Snapshot()
		if msg.err != nil {
			var engineErr *lifecycle.EngineError
			// Engine failures were already notified by the client.
			if !errors.As(msg.err, &engineErr) {
				cmds = append(cmds, m.notify(events.NoticeError, submitErrorText(msg.err)))
			}
		}

	case clearResultMsg:
		if msg.err != nil && !errors.Is(msg.err, history.ErrClearInProgress) {
			utils.Debug("tui: clear history: %v", msg.err)
		}
		if msg.cleared {
			m.setEntries(nil)
			m.stats = nil
			cmds = append(cmds, m.notify(events.NoticeInfo, "History cleared"))
		}

	case folderSelectedMsg:
		if msg.err != nil {
			cmds = append(cmds, m.notify(events.NoticeError, "Folder selection failed: "+msg.err.Error()))
		}
		m.current = m.settings.Current()

	case exportDoneMsg:
		if msg.err != nil {
			cmds = append(cmds, m.notify(events.NoticeError, "Export failed: "+msg.err.Error()))
		} else {
			cmds = append(cmds, m.notify(events.NoticeInfo, "History exported to "+msg.path))
		}

	case openResultMsg:
		// Notices come from the refresher.

	case clearNoticeMsg:
		if msg.seq == m.noticeSeq {
			m.notification = ""
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case progress.FrameMsg:
		newModel, cmd := m.progress.Update(msg)
		if p, ok := newModel.(progress.Model); ok {
			m.progress = p
		}
		return m, cmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progress.Width = progressWidth(msg.Width)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, tea.Batch(cmds...)
}

func (m RootModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.state {
	case InputState:
		return m.updateInput(msg)
	case EditSettingState:
		return m.updateEditSetting(msg)
	}

	if key.Matches(msg, dashboardKeys.Quit) {
		return m, tea.Quit
	}
	switch msg.String() {
	case "q":
		m.tab = DownloadTab
		return m, nil
	case "w":
		m.tab = HistoryTab
		return m, nil
	case "e":
		m.tab = SettingsTab
		return m, nil
	}

	switch m.tab {
	case DownloadTab:
		return m.updateDownloadTab(msg)
	case HistoryTab:
		return m.updateHistoryTab(msg)
	case SettingsTab:
		return m.updateSettingsTab(msg)
	}
	return m, nil
}

func (m RootModel) updateDownloadTab(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, DownloadKeys.Add):
		if m.submitting || m.client.Busy() {
			return m, m.notify(events.NoticeError, "A download is already in progress")
		}
		m.client.Acknowledge()
		m.job = m.client.Snapshot()
		m.state = InputState
		m.focused = fieldURL
		m.formatIdx = indexOfFormat(m.current.DefaultFormat)
		m.qualityIdx = indexOfQuality(m.current.DefaultQuality)
		m.inputs[0].SetValue("")
		return m, m.inputs[0].Focus()

	case key.Matches(msg, DownloadKeys.Abandon):
		if m.client.Abandon() {
			m.job = m.client.Snapshot()
		}
		return m, nil

	case key.Matches(msg, DownloadKeys.Dismiss):
		if m.client.Acknowledge() {
			m.job = m.client.Snapshot()
			return m, m.progress.SetPercent(0)
		}
	}
	return m, nil
}

func (m RootModel) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, InputKeys.Cancel):
		m.inputs[0].Blur()
		m.state = DashboardState
		return m, nil

	case key.Matches(msg, InputKeys.Next):
		m.focusField(cycle(m.focused, 1, fieldCount))
		return m, nil

	case key.Matches(msg, InputKeys.Prev):
		m.focusField(cycle(m.focused, -1, fieldCount))
		return m, nil

	case key.Matches(msg, InputKeys.Cycle) && m.focused != fieldURL:
		delta := 1
		if msg.String() == "left" {
			delta = -1
		}
		if m.focused == fieldFormat {
			m.formatIdx = cycle(m.formatIdx, delta, len(types.SupportedFormats()))
		} else {
			m.qualityIdx = cycle(m.qualityIdx, delta, len(types.SupportedQualities()))
		}
		return m, nil

	case key.Matches(msg, InputKeys.Submit):
		url := strings.TrimSpace(m.inputs[0].Value())
		if url == "" {
			m.focusField(fieldURL)
			return m, m.notify(events.NoticeError, "Please enter a YouTube URL")
		}
		req := types.DownloadRequest{
			URL:        url,
			Format:     m.selectedFormat(),
			Quality:    m.selectedQuality(),
			OutputPath: m.current.DownloadPath,
		}
		m.inputs[0].Blur()
		m.state = DashboardState
		m.tab = DownloadTab
		m.submitting = true
		utils.Debug("tui: submitting %s (%s/%s)", req.URL, req.Format, req.Quality)
		return m, tea.Batch(m.submitCmd(req), m.progress.SetPercent(0))
	}

	if m.focused != fieldURL {
		return m, nil
	}
	var cmd tea.Cmd
	m.inputs[0], cmd = m.inputs[0].Update(msg)
	return m, cmd
}

func (m *RootModel) focusField(field int) {
	m.focused = field
	if field == fieldURL {
		m.inputs[0].Focus()
	} else {
		m.inputs[0].Blur()
	}
}

func (m RootModel) updateHistoryTab(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, HistoryKeys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, HistoryKeys.Down):
		if m.cursor < len(m.entries)-1 {
			m.cursor++
		}
	case key.Matches(msg, HistoryKeys.Open):
		if e := m.SelectedEntry(); e != nil {
			return m, m.openEntryCmd(*e)
		}
	case key.Matches(msg, HistoryKeys.Refresh):
		return m, tea.Batch(m.refreshHistoryCmd(), m.statsCmd())
	case key.Matches(msg, HistoryKeys.Export):
		return m, m.exportCmd(m.current.DownloadPath)
	case key.Matches(msg, HistoryKeys.Clear):
		if m.history.Clearing() {
			return m, nil
		}
		return m, m.clearHistoryCmd()
	}
	return m, nil
}

func (m RootModel) updateSettingsTab(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, SettingsKeys.Up):
		if m.settingsRow > 0 {
			m.settingsRow--
		}
	case key.Matches(msg, SettingsKeys.Down):
		if m.settingsRow < rowCount-1 {
			m.settingsRow++
		}
	case key.Matches(msg, SettingsKeys.Cycle):
		delta := 1
		if s := msg.String(); s == "left" || s == "h" {
			delta = -1
		}
		m.cycleSetting(delta)
	case key.Matches(msg, SettingsKeys.Browse):
		if m.settingsRow == rowFolder && m.picker != nil {
			return m, m.selectFolderCmd()
		}
	case key.Matches(msg, SettingsKeys.Edit):
		switch m.settingsRow {
		case rowFolder:
			m.state = EditSettingState
			m.pathInput.SetValue(m.current.DownloadPath)
			m.pathInput.CursorEnd()
			return m, m.pathInput.Focus()
		default:
			m.cycleSetting(1)
		}
	}
	return m, nil
}

// cycleSetting steps the selected format or quality and schedules a save.
func (m *RootModel) cycleSetting(delta int) {
	switch m.settingsRow {
	case rowFormat:
		all := types.SupportedFormats()
		next := all[cycle(indexOfFormat(m.current.DefaultFormat), delta, len(all))]
		if err := m.settings.SetFormat(next); err == nil {
			m.current = m.settings.Current()
		}
	case rowQuality:
		all := types.SupportedQualities()
		next := all[cycle(indexOfQuality(m.current.DefaultQuality), delta, len(all))]
		if err := m.settings.SetQuality(next); err == nil {
			m.current = m.settings.Current()
		}
	}
}

func (m RootModel) updateEditSetting(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, EditKeys.Cancel):
		m.pathInput.Blur()
		m.state = DashboardState
		return m, nil
	case key.Matches(msg, EditKeys.Save):
		path := strings.TrimSpace(m.pathInput.Value())
		m.pathInput.Blur()
		m.state = DashboardState
		if path != "" && path != m.current.DownloadPath {
			m.settings.SetDownloadPath(path)
			m.current = m.settings.Current()
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.pathInput, cmd = m.pathInput.Update(msg)
	return m, cmd
}

func (m *RootModel) setEntries(entries []history.DisplayEntry) {
	m.entries = entries
	if m.cursor >= len(entries) {
		m.cursor = len(entries) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

// notify shows a transient message in the footer.
func (m *RootModel) notify(level events.NoticeLevel, text string) tea.Cmd {
	m.noticeSeq++
	m.notification = text
	m.noticeLevel = level
	return clearNoticeAfter(m.noticeSeq)
}

func submitErrorText(err error) string {
	switch {
	case errors.Is(err, lifecycle.ErrEmptyURL):
		return "Please enter a YouTube URL"
	case errors.Is(err, lifecycle.ErrInvalidURL):
		return "Invalid YouTube URL"
	case errors.Is(err, lifecycle.ErrAlreadyRunning):
		return "A download is already in progress"
	default:
		return err.Error()
	}
}

func progressWidth(width int) int {
	w := width/2 - ProgressBarWidthOffset
	if w < 20 {
		w = 20
	}
	if w > 80 {
		w = 80
	}
	return w
}
