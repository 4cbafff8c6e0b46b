// Package ui holds the terminal styles shared by ddmatrix commands.
package ui

import "github.com/charmbracelet/lipgloss"

// ANSI palette, so output follows the user's terminal theme.
const (
	ColorSuccess lipgloss.Color = "2" // green
	ColorError   lipgloss.Color = "1" // red
	ColorWarning lipgloss.Color = "3" // yellow
	ColorInfo    lipgloss.Color = "6" // cyan
	ColorPrimary lipgloss.Color = "7"
	ColorMuted   lipgloss.Color = "8"
)

// Status symbols.
const (
	SymbolSuccess = "✓"
	SymbolFail    = "✗"
	SymbolWarn    = "!"
	SymbolPending = "○"
)

var (
	SuccessStyle = lipgloss.NewStyle().Foreground(ColorSuccess)
	ErrorStyle   = lipgloss.NewStyle().Foreground(ColorError)
	WarnStyle    = lipgloss.NewStyle().Foreground(ColorWarning)
	InfoStyle    = lipgloss.NewStyle().Foreground(ColorInfo)
	MutedStyle   = lipgloss.NewStyle().Foreground(ColorMuted)
	HeaderStyle  = lipgloss.NewStyle().Bold(true).Foreground(ColorPrimary)
)

// Success renders "✓ msg" in green.
func Success(msg string) string {
	return SuccessStyle.Render(SymbolSuccess) + " " + msg
}

// Fail renders "✗ msg" in red.
func Fail(msg string) string {
	return ErrorStyle.Render(SymbolFail) + " " + msg
}

// Warn renders "! msg" in yellow.
func Warn(msg string) string {
	return WarnStyle.Render(SymbolWarn) + " " + msg
}
