package tui

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/surge-downloader/tubepanel/internal/engine/types"
	"github.com/surge-downloader/tubepanel/internal/history"
	"github.com/surge-downloader/tubepanel/internal/lifecycle"
)

const commandTimeout = 30 * time.Second

type settingsLoadedMsg struct {
	settings types.AppSettings
}

type historyLoadedMsg struct {
	entries []history.DisplayEntry
	err     error
}

type statsLoadedMsg struct {
	stats *types.DownloadStats
	err   error
}

type dependenciesMsg struct {
	status *types.DependencyStatus
	err    error
}

type submitResultMsg struct {
	handle *lifecycle.JobHandle
	err    error
}

type clearResultMsg struct {
	cleared bool
	err     error
}

type folderSelectedMsg struct {
	chosen bool
	err    error
}

type exportDoneMsg struct {
	path string
	err  error
}

type openResultMsg struct {
	err error
}

type clearNoticeMsg struct {
	seq int
}

func (m RootModel) loadSettingsCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		return settingsLoadedMsg{settings: m.settings.Load(ctx)}
	}
}

func (m RootModel) refreshHistoryCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		entries, err := m.history.Refresh(ctx)
		return historyLoadedMsg{entries: entries, err: err}
	}
}

func (m RootModel) statsCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		stats, err := m.service.Statistics(ctx)
		return statsLoadedMsg{stats: stats, err: err}
	}
}

func (m RootModel) checkDependenciesCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		status, err := m.service.CheckDependencies(ctx)
		return dependenciesMsg{status: status, err: err}
	}
}

func (m RootModel) submitCmd(req types.DownloadRequest) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		handle, err := m.client.Submit(ctx, req)
		return submitResultMsg{handle: handle, err: err}
	}
}

func (m RootModel) clearHistoryCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		cleared, err := m.history.Clear(ctx, m.confirmer)
		return clearResultMsg{cleared: cleared, err: err}
	}
}

func (m RootModel) openEntryCmd(entry history.DisplayEntry) tea.Cmd {
	return func() tea.Msg {
		return openResultMsg{err: m.history.OpenEntry(context.Background(), entry, m.opener)}
	}
}

func (m RootModel) selectFolderCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		chosen, err := m.settings.SelectFolder(ctx, m.picker)
		return folderSelectedMsg{chosen: chosen, err: err}
	}
}

// exportCmd writes the history export into the download folder.
func (m RootModel) exportCmd(dir string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()

		var buf bytes.Buffer
		name, err := m.service.ExportHistory(ctx, &buf)
		if err != nil {
			return exportDoneMsg{err: err}
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return exportDoneMsg{err: fmt.Errorf("create export dir: %w", err)}
		}
		path := filepath.Join(dir, filepath.Base(name))
		if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
			return exportDoneMsg{err: fmt.Errorf("write export: %w", err)}
		}
		return exportDoneMsg{path: path}
	}
}

func clearNoticeAfter(seq int) tea.Cmd {
	return tea.Tick(NoticeDuration, func(time.Time) tea.Msg {
		return clearNoticeMsg{seq: seq}
	})
}
