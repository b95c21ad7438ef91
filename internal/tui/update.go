package tui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// Update handles all events (Elm architecture).
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			return m, tea.Quit
		}
		var cmd tea.Cmd
		m.programTable, cmd = m.programTable.Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		height := m.height - 8
		if height < 3 {
			height = 3
		}
		m.programTable.SetHeight(height)
		return m, nil

	case tickMsg:
		m.refresh()
		return m, tick()

	default:
		return m, nil
	}
}
