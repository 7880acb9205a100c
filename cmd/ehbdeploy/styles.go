package main

import "github.com/charmbracelet/lipgloss"

// Color palette for console output.
const (
	ColorPrimary = lipgloss.Color("#7C3AED")
	ColorMuted   = lipgloss.Color("#6B7280")
	ColorSuccess = lipgloss.Color("#10B981")
	ColorError   = lipgloss.Color("#EF4444")
	ColorWarning = lipgloss.Color("#F59E0B")
	ColorLink    = lipgloss.Color("#3B82F6")
)

var (
	// TitleStyle is for headers such as operation names.
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary)

	// SubtitleStyle is for secondary details.
	SubtitleStyle = lipgloss.NewStyle().
			Foreground(ColorMuted)

	// SuccessStyle marks completed operations.
	SuccessStyle = lipgloss.NewStyle().
			Foreground(ColorSuccess)

	// ErrorStyle is for failures.
	ErrorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorError)

	// WarningStyle is for the settings file usage text.
	WarningStyle = lipgloss.NewStyle().
			Foreground(ColorWarning)

	// URLStyle highlights the address of a started service.
	URLStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorLink)
)
