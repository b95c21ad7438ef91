package tui

import (
	"fmt"
	"strings"
)

// View renders the dashboard.
func (m *Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	header := titleStyle.Render("procmond")
	status := fmt.Sprintf("runlevel: %s | programs: %d | q to quit", m.runlevel, len(m.snapshots))
	b.WriteString(header + "  " + dimStyle.Render(status) + "\n")
	b.WriteString(strings.Repeat("─", max(m.width, 1)) + "\n")

	b.WriteString(formatRunlevelState(string(m.runlevel)) + "\n\n")

	b.WriteString(m.programTable.View())
	b.WriteString("\n")

	if m.err != nil {
		b.WriteString(errorStyle.Render("error: "+m.err.Error()) + "\n")
	}

	return b.String()
}
