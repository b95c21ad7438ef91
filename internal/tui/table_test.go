package tui

import (
	"testing"
	"time"

	"github.com/shobhitka/procmond/internal/supervisor"
)

func TestPopulateProgramTable_RendersChildIDAndCounts(t *testing.T) {
	m := &Model{}
	m.setupProgramTable()
	m.snapshots = []supervisor.Snapshot{
		{
			Name:              "web",
			Policy:            supervisor.PolicyRestartOnExit,
			State:             supervisor.StateActive,
			ChildID:           1234,
			RestartCount:      3,
			QuickRestartCount: 1,
			LastLaunchTime:    time.Now(),
		},
		{
			Name:   "worker",
			Policy: supervisor.PolicyOneShot,
			State:  supervisor.StatePending,
		},
	}

	m.populateProgramTable()
	rows := m.programTable.Rows()
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0][0] != "web" || rows[0][2] != "1234" {
		t.Errorf("unexpected row for web: %v", rows[0])
	}
	if rows[1][2] != "-" {
		t.Errorf("expected pending program to show '-' for pid, got %q", rows[1][2])
	}
}

func TestPopulateProgramTable_ClampsCursorWhenRosterShrinks(t *testing.T) {
	m := &Model{}
	m.setupProgramTable()
	m.snapshots = []supervisor.Snapshot{
		{Name: "a", State: supervisor.StateActive},
		{Name: "b", State: supervisor.StateActive},
		{Name: "c", State: supervisor.StateActive},
	}
	m.populateProgramTable()
	m.programTable.SetCursor(2)

	m.snapshots = []supervisor.Snapshot{{Name: "a", State: supervisor.StateActive}}
	m.populateProgramTable()

	if cursor := m.programTable.Cursor(); cursor != 0 {
		t.Errorf("expected cursor clamped to 0, got %d", cursor)
	}
}
