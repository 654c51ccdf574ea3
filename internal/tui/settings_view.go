package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/surge-downloader/tubepanel/internal/config"
)

// viewSettingsTab renders the settings list and the selected value.
func (m RootModel) viewSettingsTab(width, height int) string {
	metadata := config.GetSettingsMetadata()

	leftWidth := 24
	rightWidth := width - leftWidth - 8

	// === LEFT COLUMN: Settings List (names only) ===
	var listLines []string
	for i, meta := range metadata {
		if i == m.settingsRow {
			listLines = append(listLines, SelectedItemStyle.Render("> "+meta.Label))
		} else {
			listLines = append(listLines, lipgloss.NewStyle().Foreground(ColorLightGray).Render("  "+meta.Label))
		}
	}
	listBox := lipgloss.NewStyle().Width(leftWidth).Render(lipgloss.JoinVertical(lipgloss.Left, listLines...))

	// === VERTICAL SEPARATOR ===
	separator := lipgloss.NewStyle().
		Foreground(ColorGray).
		Render(strings.TrimSuffix(strings.Repeat("│\n", len(metadata)), "\n"))

	// === RIGHT COLUMN: Value + Description ===
	var rightContent string
	if m.settingsRow < len(metadata) {
		meta := metadata[m.settingsRow]

		valueLabel := "Value: "
		var valueStr string
		switch m.settingsRow {
		case rowFolder:
			valueStr = truncateString(m.current.DownloadPath, rightWidth-16)
			if m.picker != nil {
				valueLabel = "[Tab] Browse: "
			}
		case rowFormat:
			valueStr = renderChoice(formatNames(), indexOfFormat(m.current.DefaultFormat), true)
		case rowQuality:
			valueStr = renderChoice(qualityNames(), indexOfQuality(m.current.DefaultQuality), true)
		}

		descDisplay := lipgloss.NewStyle().
			Foreground(ColorGray).
			Width(rightWidth - 2).
			Render(meta.Description)

		rightContent = ValueStyle.Render(valueLabel) + valueStr + "\n\n" + descDisplay
	}
	rightBox := lipgloss.NewStyle().Width(rightWidth).PaddingLeft(1).Render(rightContent)

	content := lipgloss.JoinHorizontal(lipgloss.Top, listBox, separator, rightBox)

	saveState := HintStyle.Render("Changes are saved automatically.")
	if m.settings.Pending() {
		saveState = WarningStyle.Render("Saving...")
	}

	full := lipgloss.NewStyle().Padding(1, 2).Render(lipgloss.JoinVertical(lipgloss.Left, content, "", saveState))
	return renderBtopBox("Settings", full, width, height, ColorNeonPink)
}
