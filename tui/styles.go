package tui

import (
	"github.com/charmbracelet/lipgloss"
)

// Simple Palette inspired by standard terminal dark themes
var (
	ColorPrimary   = lipgloss.Color("255") // White
	ColorSecondary = lipgloss.Color("240") // Dark Gray
	ColorAccent    = lipgloss.Color("39")  // Blue / Cyan
	ColorSuccess   = lipgloss.Color("42")  // Green
	ColorWarning   = lipgloss.Color("214") // Orange
	ColorDim       = lipgloss.Color("240") // Dimmed text
)

// fadeRamp runs from a fresh float to one about to disappear.
var fadeRamp = []lipgloss.Color{"255", "253", "251", "249", "247", "245", "243", "241", "239", "237"}

// Shared styles - minimal and clean
var (
	StyleNormal  = lipgloss.NewStyle().Foreground(ColorPrimary)
	StyleDimmed  = lipgloss.NewStyle().Foreground(ColorDim)
	StyleBold    = lipgloss.NewStyle().Bold(true).Foreground(ColorPrimary)
	StyleSuccess = lipgloss.NewStyle().Foreground(ColorSuccess)
	StyleWarning = lipgloss.NewStyle().Foreground(ColorWarning)

	StyleTitle = lipgloss.NewStyle().Bold(true).Foreground(ColorAccent).MarginBottom(1)

	// Bottom Bar
	StyleStatusBar = lipgloss.NewStyle().
			Foreground(ColorSecondary)

	// Help Keys
	StyleHelpKey = lipgloss.NewStyle().
			Foreground(ColorAccent).
			Bold(true)

	StyleHelpDesc = lipgloss.NewStyle().
			Foreground(ColorDim)

	// Spinner shown while AI texts are being generated
	StyleSpinner = lipgloss.NewStyle().Foreground(ColorAccent)
)

// floatStyle picks a ramp colour for a float that has lived frac of its
// lifetime.
func floatStyle(frac float64) lipgloss.Style {
	i := int(frac * float64(len(fadeRamp)))
	if i < 0 {
		i = 0
	}
	if i >= len(fadeRamp) {
		i = len(fadeRamp) - 1
	}
	return lipgloss.NewStyle().Foreground(fadeRamp[i])
}
