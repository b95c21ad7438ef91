package supervisor

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"syscall"
)

// Launcher starts a ProgramSpec as a child process and reports back its
// pid. It exists as an interface so controller tests can substitute a
// fake that never actually forks.
type Launcher interface {
	Launch(spec ProgramSpec) (pid int, err error)
}

// execLauncher is the real Launcher, grounded on the teacher's
// startInstance (internal/process/supervisor.go): same cmd.Env layering
// and the same Setpgid rationale — a supervised child must not be in the
// controller's process group, or a Ctrl+C delivered to the foreground
// group would reach the children directly and race the controller's own
// shutdown sequence.
type execLauncher struct {
	logger *slog.Logger
}

// NewExecLauncher returns the Launcher used in production.
func NewExecLauncher(logger *slog.Logger) Launcher {
	return &execLauncher{logger: logger}
}

func (l *execLauncher) Launch(spec ProgramSpec) (int, error) {
	cmd := exec.Command(spec.Command, spec.Argv...)

	cmd.Env = os.Environ()
	for k, v := range spec.Env {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
	}

	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	// New process group, child as leader: lets the reaper's Wait4(-1, ...)
	// stay scoped to direct children while letting the controller signal
	// a whole subtree at once via syscall.Kill(-pgid, sig).
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
	}

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("launch %s: %w", spec.Name, err)
	}

	pid := cmd.Process.Pid

	// The controller reaps via syscall.Wait4 directly (see reaper.go), not
	// cmd.Wait — two waiters on the same pid would race. Release the
	// os.Process handle's internal bookkeeping to avoid keeping the pid's
	// exec.Cmd machinery believing it still owns the wait.
	if err := cmd.Process.Release(); err != nil {
		l.logger.Warn("failed to release process handle", "program", spec.Name, "pid", pid, "error", err)
	}

	return pid, nil
}

// SignalProgram delivers sig to the process group rooted at pid, per
// spec.md §4.3 (terminate-request) and §4.7 (deadline escalation). A
// negative pid targets the whole group (kornnellio-gosv/process.go's
// Signal method uses the same convention).
func SignalProgram(pid int, sig syscall.Signal) error {
	if pid <= 0 {
		return fmt.Errorf("signal program: invalid pid %d", pid)
	}
	return syscall.Kill(-pid, sig)
}
