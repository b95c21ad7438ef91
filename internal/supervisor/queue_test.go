package supervisor

import "testing"

func TestCommandKind_String(t *testing.T) {
	tests := []struct {
		kind commandKind
		want string
	}{
		{cmdBringUp, "bring_up"},
		{cmdChildExited, "child_exited"},
		{cmdTerminateAll, "terminate_all"},
		{cmdDumpStatus, "dump_status"},
		{cmdForceAbort, "force_abort"},
		{commandKind(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("commandKind(%d).String() = %q, want %q", tt.kind, got, tt.want)
		}
	}
}
