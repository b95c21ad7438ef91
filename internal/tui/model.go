// Package tui renders a live-refreshing dashboard of the supervisor's
// roster (spec.md §6.6): an in-process alternate front-end over the
// same *supervisor.Controller the daemon runs, not a separate process
// talking to a control-plane API — procmond has no such API in scope.
package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/shobhitka/procmond/internal/supervisor"
)

// refreshInterval is how often the model polls Controller.Snapshot.
const refreshInterval = 500 * time.Millisecond

// Model is the Bubbletea model for the status dashboard.
type Model struct {
	ctrl *supervisor.Controller

	programTable table.Model
	runlevel     supervisor.RunlevelState
	snapshots    []supervisor.Snapshot

	width, height int
	err           error
	quitting      bool
}

// NewModel builds a Model that reads from ctrl.
func NewModel(ctrl *supervisor.Controller) *Model {
	m := &Model{ctrl: ctrl, width: 100, height: 30}
	m.setupProgramTable()
	m.refresh()
	return m
}

// refresh pulls a fresh snapshot from the controller. Safe to call from
// Init/Update since Controller.Snapshot takes its own read lock.
func (m *Model) refresh() {
	snapshots, runlevel := m.ctrl.Snapshot()
	m.snapshots = snapshots
	m.runlevel = runlevel
	m.populateProgramTable()
}

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Init satisfies tea.Model.
func (m *Model) Init() tea.Cmd {
	return tick()
}
