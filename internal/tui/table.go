package tui

import (
	"strconv"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
)

// setupProgramTable builds the roster table columns and styling.
func (m *Model) setupProgramTable() {
	columns := []table.Column{
		{Title: "NAME", Width: 20},
		{Title: "STATE", Width: 18},
		{Title: "PID", Width: 8},
		{Title: "POLICY", Width: 16},
		{Title: "RESTARTS", Width: 10},
		{Title: "QUICK", Width: 8},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(15),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(dimColor).
		BorderBottom(true).
		Bold(true)
	s.Selected = tableSelectedStyle
	t.SetStyles(s)

	m.programTable = t
}

// populateProgramTable rebuilds the table rows from the latest snapshot
// in roster order, which stays the same across refreshes; the rows are
// not re-sorted here.
func (m *Model) populateProgramTable() {
	rows := make([]table.Row, 0, len(m.snapshots))
	for _, snap := range m.snapshots {
		pid := "-"
		if snap.ChildID != 0 {
			pid = strconv.Itoa(snap.ChildID)
		}
		rows = append(rows, table.Row{
			snap.Name,
			formatProgramState(string(snap.State)),
			pid,
			string(snap.Policy),
			strconv.Itoa(snap.RestartCount),
			strconv.Itoa(snap.QuickRestartCount),
		})
	}

	cursor := m.programTable.Cursor()
	m.programTable.SetRows(rows)
	if cursor >= len(rows) {
		cursor = len(rows) - 1
	}
	if cursor < 0 {
		cursor = 0
	}
	m.programTable.SetCursor(cursor)
}
