// Package styles provides shared lipgloss styles for UI components.
//
// Colors are ANSI 256 codes; lipgloss downsamples them for the detected
// terminal profile when output goes through a colorprofile writer.
package styles

import (
	"image/color"

	"charm.land/lipgloss/v2"
)

// Palette
var (
	Primary color.Color = lipgloss.Color("62")  // cyan/teal
	Success color.Color = lipgloss.Color("82")  // green
	Error   color.Color = lipgloss.Color("196") // red
	Warning color.Color = lipgloss.Color("214") // orange
	Muted   color.Color = lipgloss.Color("240") // dark gray
)

var (
	Bold = lipgloss.NewStyle().Bold(true)

	PrimaryStyle = lipgloss.NewStyle().Foreground(Primary)
	SuccessStyle = lipgloss.NewStyle().Foreground(Success)
	ErrorStyle   = lipgloss.NewStyle().Foreground(Error)
	WarningStyle = lipgloss.NewStyle().Foreground(Warning)
	MutedStyle   = lipgloss.NewStyle().Foreground(Muted)
)

// Status symbols used in tables and doctor output.
const (
	SymbolOK      = "✓"
	SymbolMissing = "✗"
	SymbolWarn    = "!"
)

// OK renders a success marker followed by text.
func OK(text string) string {
	return SuccessStyle.Render(SymbolOK) + " " + text
}

// Fail renders a failure marker followed by text.
func Fail(text string) string {
	return ErrorStyle.Render(SymbolMissing) + " " + text
}

// Warn renders a warning marker followed by text.
func Warn(text string) string {
	return WarningStyle.Render(SymbolWarn) + " " + text
}
