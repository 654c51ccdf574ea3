package tui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/surge-downloader/tubepanel/internal/config"
)

var (
	// Colors
	ColorNeonPurple = lipgloss.AdaptiveColor{Light: "#6f42c1", Dark: "#bd93f9"} // Dracula Purple
	ColorNeonPink   = lipgloss.AdaptiveColor{Light: "#d63384", Dark: "#ff79c6"} // Dracula Pink
	ColorNeonCyan   = lipgloss.AdaptiveColor{Light: "#0f7b8a", Dark: "#8be9fd"} // Dracula Cyan
	ColorSuccess    = lipgloss.AdaptiveColor{Light: "#198754", Dark: "#50fa7b"} // Dracula Green
	ColorError      = lipgloss.AdaptiveColor{Light: "#dc3545", Dark: "#ff5555"} // Dracula Red
	ColorWarning    = lipgloss.AdaptiveColor{Light: "#b35c00", Dark: "#ffb86c"} // Dracula Orange
	ColorText       = lipgloss.AdaptiveColor{Light: "#212529", Dark: "#f8f8f2"} // Dracula Foreground
	ColorLightGray  = lipgloss.AdaptiveColor{Light: "#495057", Dark: "#bfbfbf"}
	ColorGray       = lipgloss.AdaptiveColor{Light: "#6c757d", Dark: "#6272a4"} // Dracula Comment

	LogoStyle = lipgloss.NewStyle().
			Foreground(ColorNeonPurple).
			Bold(true)

	// Tab Styles
	TabStyle = lipgloss.NewStyle().
			Foreground(ColorLightGray).
			Padding(0, 1)

	ActiveTabStyle = lipgloss.NewStyle().
			Foreground(ColorNeonPink).
			Bold(true).
			Underline(true).
			Padding(0, 1)

	// List Styles
	SelectedItemStyle = lipgloss.NewStyle().
				Foreground(ColorNeonPink).
				Bold(true)

	ItemStyle = lipgloss.NewStyle().
			Foreground(ColorText)

	LabelStyle = lipgloss.NewStyle().
			Width(10).
			Foreground(ColorLightGray)

	ValueStyle = lipgloss.NewStyle().
			Foreground(ColorNeonCyan).
			Bold(true)

	HintStyle = lipgloss.NewStyle().
			Foreground(ColorGray)

	CardTitleStyle = lipgloss.NewStyle().
			Foreground(ColorNeonPurple).
			Bold(true)

	CardStatsStyle = lipgloss.NewStyle().
			Foreground(ColorGray).
			Italic(true)

	// Notification Styles
	NotificationStyle = lipgloss.NewStyle().
				Foreground(ColorNeonCyan).
				Bold(true)

	ErrorNotificationStyle = lipgloss.NewStyle().
				Foreground(ColorError).
				Bold(true)

	SuccessStyle = lipgloss.NewStyle().Foreground(ColorSuccess)
	ErrorStyle   = lipgloss.NewStyle().Foreground(ColorError)
	WarningStyle = lipgloss.NewStyle().Foreground(ColorWarning)
)

// ApplyTheme selects the light or dark palette. The adaptive theme asks
// the terminal for its background color.
func ApplyTheme(theme int) {
	switch theme {
	case config.ThemeLight:
		lipgloss.SetHasDarkBackground(false)
	case config.ThemeDark:
		lipgloss.SetHasDarkBackground(true)
	default:
		lipgloss.SetHasDarkBackground(termenv.HasDarkBackground())
	}
}
