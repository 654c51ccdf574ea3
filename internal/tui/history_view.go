package tui

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/surge-downloader/tubepanel/internal/history"
)

// Define the Layout Ratios
const (
	ListWidthRatio = 0.6 // List takes 60% width
)

func (m RootModel) viewHistoryTab(width, height int) string {
	leftWidth := int(float64(width) * ListWidthRatio)
	rightWidth := width - leftWidth

	// --- LIST ---
	var listContent string
	if len(m.entries) == 0 {
		listContent = lipgloss.Place(leftWidth-6, height-4, lipgloss.Center, lipgloss.Center,
			NotificationStyle.Render("No downloads yet"))
	} else {
		visible := height - 4
		if visible < 1 {
			visible = 1
		}
		start := 0
		if m.cursor >= visible {
			start = m.cursor - visible + 1
		}
		var rows []string
		for i := start; i < len(m.entries) && i < start+visible; i++ {
			rows = append(rows, renderHistoryRow(m.entries[i], i == m.cursor, leftWidth-6))
		}
		listContent = strings.Join(rows, "\n")
	}
	listBox := renderBtopBox(fmt.Sprintf("History (%d)", len(m.entries)),
		lipgloss.NewStyle().Padding(DefaultPaddingY, DefaultPaddingX).Render(listContent), leftWidth, height, ColorNeonPink)

	// --- DETAILS ---
	var details []string
	if e := m.SelectedEntry(); e != nil {
		details = append(details, renderEntryDetails(*e, rightWidth-6)...)
	} else {
		details = append(details, HintStyle.Render("No entry selected"))
	}
	if m.stats != nil {
		details = append(details, "", CardTitleStyle.Render("Statistics"))
		details = append(details, renderStats(m.stats.Total, m.stats.Completed, m.stats.Failed, m.stats.MostUsedFormat)...)
	}
	detailBox := renderBtopBox("Details",
		lipgloss.NewStyle().Padding(DefaultPaddingY, DefaultPaddingX).Render(lipgloss.JoinVertical(lipgloss.Left, details...)),
		rightWidth, height, ColorGray)

	return lipgloss.JoinHorizontal(lipgloss.Top, listBox, detailBox)
}

func renderHistoryRow(e history.DisplayEntry, selected bool, width int) string {
	icon := SuccessStyle.Render("✔")
	if !e.Completed() {
		icon = ErrorStyle.Render("✘")
	}
	title := truncateString(e.Title, width-20)
	line := fmt.Sprintf("%s %s", e.Date, title)
	if selected {
		return icon + " " + SelectedItemStyle.Render("> "+line)
	}
	return icon + " " + ItemStyle.Render("  "+line)
}

func renderEntryDetails(e history.DisplayEntry, width int) []string {
	lines := []string{
		CardTitleStyle.Render(truncateString(e.Title, width)),
		CardStatsStyle.Render(fmt.Sprintf("%s · %s · %s", e.Status, strings.ToUpper(string(e.Format)), e.Quality)),
		"",
		LabelStyle.Render("URL:") + truncateString(e.URL, width-10),
		LabelStyle.Render("Date:") + e.Date,
	}
	if e.FilePath != "" {
		lines = append(lines, LabelStyle.Render("File:")+truncateString(e.FilePath, width-10))
		if info, err := os.Stat(e.FilePath); err == nil {
			lines = append(lines, LabelStyle.Render("Size:")+humanize.Bytes(uint64(info.Size())))
		}
	}
	return lines
}

func renderStats(total, completed, failed int, mostUsed string) []string {
	lines := []string{
		LabelStyle.Render("Total:") + humanize.Comma(int64(total)),
		LabelStyle.Render("Done:") + SuccessStyle.Render(humanize.Comma(int64(completed))),
		LabelStyle.Render("Failed:") + ErrorStyle.Render(humanize.Comma(int64(failed))),
	}
	if mostUsed != "" {
		lines = append(lines, LabelStyle.Render("Top:")+strings.ToUpper(mostUsed))
	}
	return lines
}
