// Package supervisor implements the runlevel state machine: program
// lifecycle, restart policy, launching, reaping, and the single-writer
// runlevel controller that ties them together.
package supervisor

import "time"

// ProgramState is the lifecycle state of a single supervised program.
// It is a closed set on purpose — see ProgramRecord's invariants — so
// "child present" and "state" can never drift apart the way the original
// C source's pid=-1/status=-3 sentinels could.
type ProgramState string

const (
	StatePending      ProgramState = "pending"
	StateActive       ProgramState = "active"
	StateStopping     ProgramState = "stopping"
	StateStopped      ProgramState = "stopped"
	StateLaunchFailed ProgramState = "launch-failed"
)

// hasChild reports whether a record in this state is required to carry a
// live child_id, per the P1 invariant: child_id present iff state is
// Active or Stopping.
func (s ProgramState) hasChild() bool {
	return s == StateActive || s == StateStopping
}

// Policy governs whether a program is relaunched after it exits.
type Policy string

const (
	PolicyOneShot        Policy = "one-shot"
	PolicyRestartOnExit  Policy = "restart-on-exit"
)

// RunlevelState is the process-wide lifecycle of the whole roster.
type RunlevelState string

const (
	RunlevelStarting          RunlevelState = "starting"
	RunlevelProgressing       RunlevelState = "progressing"
	RunlevelStable            RunlevelState = "stable"
	RunlevelAbortingShutdown  RunlevelState = "aborting-shutdown"
	RunlevelAbortingFlapping  RunlevelState = "aborting-flapping"
)

// IsAborting reports whether the runlevel has entered either terminal
// abort path. Once true, it must never go back to false (P4).
func (r RunlevelState) IsAborting() bool {
	return r == RunlevelAbortingShutdown || r == RunlevelAbortingFlapping
}

// ProgramSpec is the caller-supplied, static description of a program to
// supervise (spec.md §3's Program Record, minus the mutable lifecycle
// fields). Loading the roster is out of scope for this package — see
// internal/config — this type is just the shape the controller consumes.
type ProgramSpec struct {
	Name             string
	Command          string
	Argv             []string
	Env              map[string]string
	Policy           Policy
	ShutdownDeadline time.Duration
	// TerminateSignal is sent on TerminateAll/terminate-request. Defaults
	// to SIGTERM when zero.
	TerminateSignal int
}

// ProgramRecord is one roster entry: identity, launch parameters, and the
// mutable bookkeeping the controller maintains across its lifetime. The
// roster's cardinality is fixed at boot; records are never created or
// destroyed after BringUp, only transitioned in place.
type ProgramRecord struct {
	Spec ProgramSpec

	State           ProgramState
	ChildID         int // 0 means no live child; see hasChild()
	RestartCount    int
	QuickRestartCount int
	LastLaunchTime  time.Time
}

// NewProgramRecord creates a record in its initial Pending state.
func NewProgramRecord(spec ProgramSpec) *ProgramRecord {
	return &ProgramRecord{
		Spec:  spec,
		State: StatePending,
	}
}

// HasChild reports whether the record currently owns a live child,
// consistent with its state (P1). Exported so callers (reaper, status
// dump) don't need to re-derive the invariant themselves.
func (r *ProgramRecord) HasChild() bool {
	return r.State.hasChild() && r.ChildID != 0
}

// Snapshot is a read-only, race-free copy of a record for status dumps,
// metrics, and the TUI — taken under the controller's roster lock.
type Snapshot struct {
	Name              string
	Command           string
	Policy            Policy
	State             ProgramState
	ChildID           int
	RestartCount      int
	QuickRestartCount int
	LastLaunchTime    time.Time
}

func (r *ProgramRecord) snapshot() Snapshot {
	return Snapshot{
		Name:              r.Spec.Name,
		Command:           r.Spec.Command,
		Policy:            r.Spec.Policy,
		State:             r.State,
		ChildID:           r.ChildID,
		RestartCount:      r.RestartCount,
		QuickRestartCount: r.QuickRestartCount,
		LastLaunchTime:    r.LastLaunchTime,
	}
}
