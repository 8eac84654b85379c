package cli

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/JonMunkholm/sweeper/internal/core"
)

var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#4F6BED")).
			MarginTop(1)

	SubtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280"))

	SuccessStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#17A34A")).
			Bold(true)

	InfoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#3B82F6"))

	WarningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#D97706"))

	ErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF4757")).
			Bold(true)

	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1)

	CellStyle = lipgloss.NewStyle().
			Padding(0, 1)

	BarStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#4F6BED"))
)

// levelStyle picks the style and marker for a report message.
func levelStyle(l core.Level) (lipgloss.Style, string) {
	switch l {
	case core.LevelSuccess:
		return SuccessStyle, "✓"
	case core.LevelWarning:
		return WarningStyle, "!"
	case core.LevelError:
		return ErrorStyle, "✗"
	default:
		return InfoStyle, "•"
	}
}
