package tui

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	// Colors (k9s-inspired)
	primaryColor   = lipgloss.Color("#7D56F4") // Purple
	successColor   = lipgloss.Color("#00FF00") // Green
	errorColor     = lipgloss.Color("#FF0000") // Red
	warnColor      = lipgloss.Color("#FFA500") // Orange
	dimColor       = lipgloss.Color("#666666") // Gray
	highlightColor = lipgloss.Color("#00FFFF") // Cyan

	// Text styles
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor)

	successStyle = lipgloss.NewStyle().
			Foreground(successColor)

	errorStyle = lipgloss.NewStyle().
			Foreground(errorColor)

	warnStyle = lipgloss.NewStyle().
			Foreground(warnColor)

	dimStyle = lipgloss.NewStyle().
			Foreground(dimColor)

	highlightStyle = lipgloss.NewStyle().
			Foreground(highlightColor).
			Bold(true)

	// Table styles
	tableHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("#FFFFFF"))

	tableSelectedStyle = lipgloss.NewStyle().
				Background(primaryColor).
				Foreground(lipgloss.Color("#FFFFFF"))
)

// formatProgramState renders a ProgramState with its status glyph.
func formatProgramState(state string) string {
	switch state {
	case "pending":
		return dimStyle.Render("○ Pending")
	case "active":
		return successStyle.Render("✓ Active")
	case "stopping":
		return highlightStyle.Render("● Stopping")
	case "stopped":
		return dimStyle.Render("○ Stopped")
	case "launch-failed":
		return errorStyle.Render("✗ Launch Failed")
	default:
		return state
	}
}

// formatRunlevelState renders a RunlevelState with its status glyph.
func formatRunlevelState(state string) string {
	switch state {
	case "starting":
		return highlightStyle.Render("● Starting")
	case "progressing":
		return highlightStyle.Render("● Progressing")
	case "stable":
		return successStyle.Render("✓ Stable")
	case "aborting-shutdown":
		return warnStyle.Render("● Aborting (shutdown)")
	case "aborting-flapping":
		return errorStyle.Render("✗ Aborting (flapping)")
	default:
		return state
	}
}
