// Package cli renders training reports, predictions and forecasts for the
// terminal using lipgloss.
package cli

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	accent  = lipgloss.Color("#4ECDC4")
	caution = lipgloss.Color("#FFE66D")
	danger  = lipgloss.Color("#FF6B6B")
	muted   = lipgloss.Color("#666666")
	border  = lipgloss.Color("#333")

	boxTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(accent)
	boxStyle      = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(border).
			Padding(1, 2)
)

// Styles shared by the report renderers.
var (
	SuccessStyle = lipgloss.NewStyle().Foreground(accent)
	WarningStyle = lipgloss.NewStyle().Foreground(caution)
	ErrorStyle   = lipgloss.NewStyle().Foreground(danger)
	SubtleStyle  = lipgloss.NewStyle().Foreground(muted)
	BoldStyle    = lipgloss.NewStyle().Bold(true)

	TableHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				BorderStyle(lipgloss.NormalBorder()).
				BorderBottom(true).
				BorderForeground(border)
	TableCellStyle = lipgloss.NewStyle().PaddingRight(2)
)

// FormatSuccess marks a finished training run or saved model.
func FormatSuccess(message string) string {
	return SuccessStyle.Render("✓ " + message)
}

// FormatError formats a failure shown to the user.
func FormatError(message string) string {
	return ErrorStyle.Render("✗ " + message)
}

// FormatWarning flags skipped categories and volatile forecasts.
func FormatWarning(message string) string {
	return WarningStyle.Render("⚠ " + message)
}

// FormatInfo formats a forecast insight line.
func FormatInfo(message string) string {
	return SubtleStyle.Render("• ") + message
}

// RenderBox renders content under a title in a rounded box.
func RenderBox(title, content string) string {
	return boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, boxTitleStyle.Render(title), content))
}
