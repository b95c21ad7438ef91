package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/shobhitka/procmond/internal/supervisor"
)

// Run starts the status dashboard in full-screen mode, polling ctrl for
// roster snapshots. It returns when the user quits.
func Run(ctrl *supervisor.Controller) error {
	model := NewModel(ctrl)

	p := tea.NewProgram(model, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
