package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/surge-downloader/tubepanel/internal/engine/events"
	"github.com/surge-downloader/tubepanel/internal/engine/types"
	"github.com/surge-downloader/tubepanel/internal/lifecycle"
)

const logoText = `▀█▀ █ █ █▄▄ █▀▀ █▀█ ▄▀█ █▄ █ █▀▀ █
 █  █▄█ █▄█ ██▄ █▀▀ █▀█ █ ▀█ ██▄ █▄▄`

func (m RootModel) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	// === Handle Modal States First ===
	switch m.state {
	case InputState:
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, m.viewAddDownload())
	case EditSettingState:
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, m.viewEditFolder())
	}

	availableWidth := m.width - HeaderWidthOffset*2
	bodyHeight := m.height - 8
	if bodyHeight < 10 {
		bodyHeight = 10
	}

	header := lipgloss.JoinHorizontal(lipgloss.Bottom,
		LogoStyle.Render(logoText),
		"   ",
		renderTabs(m.tab),
	)

	var body string
	switch m.tab {
	case DownloadTab:
		body = m.viewDownloadTab(availableWidth, bodyHeight)
	case HistoryTab:
		body = m.viewHistoryTab(availableWidth, bodyHeight)
	case SettingsTab:
		body = m.viewSettingsTab(availableWidth, bodyHeight)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().Padding(DefaultPaddingY, DefaultPaddingX).Render(header),
		body,
		m.viewFooter(),
	)
}

// viewFooter shows the active notification, or the tab's key help.
func (m RootModel) viewFooter() string {
	if m.notification != "" {
		style := NotificationStyle
		if m.noticeLevel == events.NoticeError {
			style = ErrorNotificationStyle
		}
		return lipgloss.Place(m.width, 1, lipgloss.Center, lipgloss.Center, style.Render(m.notification))
	}

	var help string
	switch m.tab {
	case DownloadTab:
		help = m.help.View(DownloadKeys)
	case HistoryTab:
		help = m.help.View(HistoryKeys)
	case SettingsTab:
		help = m.help.View(SettingsKeys)
	}
	return lipgloss.NewStyle().Padding(DefaultPaddingY, DefaultPaddingX).Render(help)
}

func renderTabs(active Tab) string {
	var items []string
	for i, t := range []Tab{DownloadTab, HistoryTab, SettingsTab} {
		label := fmt.Sprintf("[%s] %s", "QWE"[i:i+1], t)
		if t == active {
			items = append(items, ActiveTabStyle.Render(label))
		} else {
			items = append(items, TabStyle.Render(label))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Left, items...)
}

// renderBtopBox draws a rounded box with the title set into the top border.
func renderBtopBox(title, content string, width, height int, borderColor lipgloss.TerminalColor) string {
	border := lipgloss.RoundedBorder()
	inner := width - 2
	if inner < 4 {
		inner = 4
	}

	label := ""
	if title != "" {
		label = " " + title + " "
	}
	fill := inner - 1 - lipgloss.Width(label)
	if fill < 0 {
		fill = 0
	}
	borderStyle := lipgloss.NewStyle().Foreground(borderColor)
	top := borderStyle.Render(border.TopLeft+border.Top) +
		lipgloss.NewStyle().Foreground(borderColor).Bold(true).Render(label) +
		borderStyle.Render(strings.Repeat(border.Top, fill)+border.TopRight)

	boxHeight := height - 2
	if boxHeight < 1 {
		boxHeight = 1
	}
	box := lipgloss.NewStyle().
		Border(border, false, true, true, true).
		BorderForeground(borderColor).
		Width(inner).
		Height(boxHeight).
		Render(content)

	return lipgloss.JoinVertical(lipgloss.Left, top, box)
}

func (m RootModel) viewAddDownload() string {
	labelFor := func(field int, text string) string {
		if m.focused == field {
			return LabelStyle.Foreground(ColorNeonPink).Render(text)
		}
		return LabelStyle.Render(text)
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		"",
		lipgloss.JoinHorizontal(lipgloss.Left, labelFor(fieldURL, "URL:"), m.inputs[0].View()),
		"",
		lipgloss.JoinHorizontal(lipgloss.Left, labelFor(fieldFormat, "Format:"), renderChoice(formatNames(), m.formatIdx, m.focused == fieldFormat)),
		"",
		lipgloss.JoinHorizontal(lipgloss.Left, labelFor(fieldQuality, "Quality:"), renderChoice(qualityNames(), m.qualityIdx, m.focused == fieldQuality)),
		"",
		lipgloss.JoinHorizontal(lipgloss.Left, LabelStyle.Render("Save to:"), HintStyle.Render(truncateString(m.current.DownloadPath, InputWidth))),
		"",
		m.help.View(InputKeys),
	)

	padded := lipgloss.NewStyle().Padding(0, PopupPaddingX).Render(content)
	return renderBtopBox("Add Download", padded, PopupWidth, PopupHeight+2, ColorNeonPink)
}

func renderChoice(options []string, selected int, focused bool) string {
	var parts []string
	for i, o := range options {
		switch {
		case i == selected && focused:
			parts = append(parts, SelectedItemStyle.Render("["+o+"]"))
		case i == selected:
			parts = append(parts, ValueStyle.Render("["+o+"]"))
		default:
			parts = append(parts, HintStyle.Render(" "+o+" "))
		}
	}
	return strings.Join(parts, " ")
}

func formatNames() []string {
	var out []string
	for _, f := range types.SupportedFormats() {
		out = append(out, strings.ToUpper(string(f)))
	}
	return out
}

func qualityNames() []string {
	var out []string
	for _, q := range types.SupportedQualities() {
		out = append(out, string(q))
	}
	return out
}

func (m RootModel) viewDownloadTab(width, height int) string {
	var lines []string

	if m.deps != nil && !m.deps.OK {
		msg := "yt-dlp or ffmpeg not found"
		if m.deps.Error != "" {
			msg = m.deps.Error
		}
		lines = append(lines, WarningStyle.Render("⚠ "+msg), "")
	}

	job := m.job
	switch {
	case m.submitting || job.State == lifecycle.StateValidating:
		lines = append(lines, m.spinner.View()+" Checking URL...")

	case job.State == lifecycle.StateIdle:
		lines = append(lines,
			lipgloss.Place(width-8, 5, lipgloss.Center, lipgloss.Center,
				NotificationStyle.Render("No active download. Press [A] to add one.")))

	default:
		title := job.Title
		if title == "" {
			title = job.Request.URL
		}
		lines = append(lines,
			CardTitleStyle.Render(truncateString(title, width-10)),
			CardStatsStyle.Render(fmt.Sprintf("%s · %s · %s",
				strings.ToUpper(string(job.Request.Format)), job.Request.Quality, truncateString(job.Request.OutputPath, width/2))),
			"",
			m.progress.View()+fmt.Sprintf(" %3d%%", job.Progress),
			"",
			m.renderJobState(job),
		)
		if job.Simulated && job.State == lifecycle.StateRunning {
			lines = append(lines, HintStyle.Render("Progress is estimated from status polls."))
		}
	}

	content := lipgloss.NewStyle().Padding(1, 2).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
	return renderBtopBox("Download", content, width, height, ColorNeonPink)
}

func (m RootModel) renderJobState(job lifecycle.Job) string {
	switch job.State {
	case lifecycle.StateRunning:
		return m.spinner.View() + " Downloading..."
	case lifecycle.StateCompleted:
		text := "✔ Completed"
		if m.lastElapsed > 0 {
			text += " in " + humanizeDuration(m.lastElapsed)
		}
		return SuccessStyle.Render(text)
	case lifecycle.StateFailed:
		return ErrorStyle.Render("✘ Failed")
	case lifecycle.StateTimedOut:
		if job.Abandoned {
			return WarningStyle.Render("■ No longer watching")
		}
		return WarningStyle.Render("◷ Timed out")
	}
	return ""
}

func humanizeDuration(d time.Duration) string {
	now := time.Now()
	return strings.TrimSpace(humanize.RelTime(now.Add(-d), now, "", ""))
}

func (m RootModel) viewEditFolder() string {
	content := lipgloss.JoinVertical(lipgloss.Left,
		"",
		lipgloss.JoinHorizontal(lipgloss.Left, LabelStyle.Render("Folder:"), m.pathInput.View()),
		"",
		m.help.View(EditKeys),
	)
	padded := lipgloss.NewStyle().Padding(0, PopupPaddingX).Render(content)
	return renderBtopBox("Download Folder", padded, PopupWidth, 7, ColorNeonPink)
}

func truncateString(s string, max int) string {
	if max <= 3 {
		return s
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
