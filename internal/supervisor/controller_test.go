package supervisor

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"syscall"
	"testing"
	"time"
)

// fakeLauncher hands out incrementing fake pids without spawning
// anything real, so the controller's state machine can be tested
// without forking.
type fakeLauncher struct {
	mu      sync.Mutex
	nextPID int
	fail    map[string]bool
	started []string
}

func newFakeLauncher() *fakeLauncher {
	return &fakeLauncher{nextPID: 1000, fail: map[string]bool{}}
}

func (f *fakeLauncher) Launch(spec ProgramSpec) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail[spec.Name] {
		return 0, io.ErrUnexpectedEOF
	}
	f.nextPID++
	f.started = append(f.started, spec.Name)
	return f.nextPID, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestController(t *testing.T, specs []ProgramSpec, launcher Launcher) *Controller {
	t.Helper()
	c := NewController(specs, launcher, testLogger(), Config{
		QuickRestartWindow:    50 * time.Millisecond,
		QuickRestartThreshold: 2,
		QueueDepth:            16,
	})
	// Replace the real syscall-backed reaper with one driven entirely by
	// the test, since nothing here forks a real child to reap.
	c.reaper = NewReaperWithWaitFunc(func(pid int, flags int) (int, syscall.WaitStatus, error) {
		return 0, 0, nil // "nothing exited yet" until the test injects otherwise
	})
	// fakeLauncher hands out pids with nothing real behind them, so a
	// real SignalProgram call would just fail with ESRCH. Fake it out
	// the same way the reaper is faked.
	c.signal = func(pid int, sig syscall.Signal) error { return nil }
	return c
}

func TestController_BringUpLaunchesAllPendingPrograms(t *testing.T) {
	launcher := newFakeLauncher()
	specs := []ProgramSpec{
		{Name: "a", Command: "/bin/a", Policy: PolicyRestartOnExit},
		{Name: "b", Command: "/bin/b", Policy: PolicyRestartOnExit},
	}
	c := newTestController(t, specs, launcher)

	c.bringUp()

	snaps, runlevel := c.Snapshot()
	if runlevel != RunlevelStable {
		t.Errorf("runlevel = %v, want Stable", runlevel)
	}
	for _, s := range snaps {
		if s.State != StateActive {
			t.Errorf("program %s state = %v, want Active", s.Name, s.State)
		}
		if s.ChildID == 0 {
			t.Errorf("program %s has no ChildID after launch", s.Name)
		}
	}
}

func TestController_LaunchFailureDoesNotBlockOthers(t *testing.T) {
	launcher := newFakeLauncher()
	launcher.fail["broken"] = true
	specs := []ProgramSpec{
		{Name: "broken", Command: "/bin/broken", Policy: PolicyRestartOnExit},
		{Name: "fine", Command: "/bin/fine", Policy: PolicyRestartOnExit},
	}
	c := newTestController(t, specs, launcher)

	c.bringUp()

	snaps, _ := c.Snapshot()
	byName := map[string]Snapshot{}
	for _, s := range snaps {
		byName[s.Name] = s
	}
	if byName["broken"].State != StateLaunchFailed {
		t.Errorf("broken.State = %v, want LaunchFailed", byName["broken"].State)
	}
	if byName["fine"].State != StateActive {
		t.Errorf("fine.State = %v, want Active", byName["fine"].State)
	}
}

func TestController_ExitTriggersRestartOnExitPolicy(t *testing.T) {
	launcher := newFakeLauncher()
	specs := []ProgramSpec{{Name: "web", Command: "/bin/web", Policy: PolicyRestartOnExit}}
	c := newTestController(t, specs, launcher)
	c.bringUp()

	snaps, _ := c.Snapshot()
	pid := snaps[0].ChildID

	exited := false
	c.reaper = NewReaperWithWaitFunc(func(p int, flags int) (int, syscall.WaitStatus, error) {
		if exited {
			return 0, 0, nil
		}
		exited = true
		return pid, 0, nil
	})

	c.reapAndEvaluate()

	snaps, _ = c.Snapshot()
	if snaps[0].State != StateActive {
		t.Errorf("State after restart = %v, want Active", snaps[0].State)
	}
	if snaps[0].RestartCount != 2 {
		t.Errorf("RestartCount = %d, want 2 (initial bring-up launch + one restart)", snaps[0].RestartCount)
	}
	if snaps[0].ChildID == pid {
		t.Error("ChildID unchanged after restart, expected a new pid")
	}
}

func TestController_OneShotExitLeavesStoppedWithoutRelaunch(t *testing.T) {
	launcher := newFakeLauncher()
	specs := []ProgramSpec{{Name: "migrate", Command: "/bin/migrate", Policy: PolicyOneShot}}
	c := newTestController(t, specs, launcher)
	c.bringUp()

	snaps, _ := c.Snapshot()
	pid := snaps[0].ChildID

	exited := false
	c.reaper = NewReaperWithWaitFunc(func(p int, flags int) (int, syscall.WaitStatus, error) {
		if exited {
			return 0, 0, nil
		}
		exited = true
		return pid, 0, nil
	})
	c.reapAndEvaluate()

	snaps, runlevel := c.Snapshot()
	if snaps[0].State != StateStopped {
		t.Errorf("State = %v, want Stopped", snaps[0].State)
	}
	if runlevel != RunlevelStable {
		t.Errorf("runlevel = %v, want Stable (one-shot exit doesn't block stability)", runlevel)
	}
}

func TestController_FlappingAbortsRunlevel(t *testing.T) {
	launcher := newFakeLauncher()
	specs := []ProgramSpec{{Name: "crashy", Command: "/bin/crashy", Policy: PolicyRestartOnExit}}
	c := newTestController(t, specs, launcher)
	c.bringUp()

	// Simulate three rapid exits in a row, each well within the quick
	// restart window, exceeding the threshold of 2.
	for i := 0; i < 3; i++ {
		snaps, _ := c.Snapshot()
		if snaps[0].State != StateActive {
			break // already aborted; the record stays Stopped
		}
		pid := snaps[0].ChildID
		exited := false
		c.reaper = NewReaperWithWaitFunc(func(p int, flags int) (int, syscall.WaitStatus, error) {
			if exited {
				return 0, 0, nil
			}
			exited = true
			return pid, 0, nil
		})
		c.reapAndEvaluate()
	}

	_, runlevel := c.Snapshot()
	if runlevel != RunlevelAbortingFlapping {
		t.Errorf("runlevel = %v, want AbortingFlapping", runlevel)
	}
}

// recordingObserver records every callback, in order, so tests can assert
// on the exact event-stream shape spec.md §6 and §8 require.
type recordingObserver struct {
	mu    sync.Mutex
	calls []string
}

func (o *recordingObserver) record(s string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls = append(o.calls, s)
}

func (o *recordingObserver) snapshot() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.calls...)
}

func (o *recordingObserver) OnLaunch(name string, pid int)         { o.record("launched:" + name) }
func (o *recordingObserver) OnLaunchFailed(name string, err error) { o.record("launch_failed:" + name) }
func (o *recordingObserver) OnExit(name string, exit ExitReport)   { o.record("exited:" + name) }
func (o *recordingObserver) OnTerminate(name string)               { o.record("terminating:" + name) }
func (o *recordingObserver) OnRestart(name string, n int)          { o.record("restarted:" + name) }
func (o *recordingObserver) OnRunlevelRestart()                    { o.record("restarting-runlevel") }
func (o *recordingObserver) OnAbort(reason AbortReason)            { o.record("abort:" + string(reason)) }
func (o *recordingObserver) OnRunlevelChange(s RunlevelState)      { o.record("runlevel:" + string(s)) }

// TestController_PartialExitTerminatesSiblingsThenRestartsWholeRunlevel is
// spec.md §8 scenario 2: one program exiting while a sibling is still
// Active must tear the sibling down too (never relaunch the exited
// record in isolation), and only relaunch the whole runlevel once every
// record has stopped together.
func TestController_PartialExitTerminatesSiblingsThenRestartsWholeRunlevel(t *testing.T) {
	launcher := newFakeLauncher()
	specs := []ProgramSpec{
		{Name: "a", Command: "/bin/a", Policy: PolicyRestartOnExit},
		{Name: "b", Command: "/bin/b", Policy: PolicyRestartOnExit},
	}
	obs := &recordingObserver{}
	c := NewController(specs, launcher, testLogger(), Config{
		QuickRestartWindow:    50 * time.Millisecond,
		QuickRestartThreshold: 2,
		QueueDepth:            16,
		Observer:              obs,
	})
	c.reaper = NewReaperWithWaitFunc(func(pid int, flags int) (int, syscall.WaitStatus, error) {
		return 0, 0, nil
	})
	c.signal = func(pid int, sig syscall.Signal) error { return nil }

	c.bringUp()

	byName := func() map[string]Snapshot {
		snaps, _ := c.Snapshot()
		m := map[string]Snapshot{}
		for _, s := range snaps {
			m[s.Name] = s
		}
		return m
	}

	before := byName()
	pidA, pidB := before["a"].ChildID, before["b"].ChildID

	// A exits while B is still Active: a partial exit.
	aExited := false
	c.reaper = NewReaperWithWaitFunc(func(p int, flags int) (int, syscall.WaitStatus, error) {
		if aExited {
			return 0, 0, nil
		}
		aExited = true
		return pidA, 0, nil
	})
	c.reapAndEvaluate()

	mid := byName()
	if mid["a"].State != StateStopped {
		t.Errorf("a.State = %v, want Stopped", mid["a"].State)
	}
	if mid["b"].State != StateStopping {
		t.Errorf("b.State = %v, want Stopping — a partial exit must tear down surviving siblings", mid["b"].State)
	}
	if _, runlevel := c.Snapshot(); runlevel.IsAborting() {
		t.Errorf("runlevel = %v, want non-aborting while tearing down for a whole-runlevel restart", runlevel)
	}

	// B now reports in as exited too: still_running reaches zero, so the
	// whole runlevel relaunches together.
	bExited := false
	c.reaper = NewReaperWithWaitFunc(func(p int, flags int) (int, syscall.WaitStatus, error) {
		if bExited {
			return 0, 0, nil
		}
		bExited = true
		return pidB, 0, nil
	})
	c.reapAndEvaluate()

	after := byName()
	if after["a"].State != StateActive {
		t.Errorf("a.State = %v, want Active after whole-runlevel restart", after["a"].State)
	}
	if after["b"].State != StateActive {
		t.Errorf("b.State = %v, want Active after whole-runlevel restart", after["b"].State)
	}
	if _, runlevel := c.Snapshot(); runlevel != RunlevelStable {
		t.Errorf("runlevel = %v, want Stable after whole-runlevel restart", runlevel)
	}

	want := []string{
		"runlevel:progressing",
		"launched:a",
		"launched:b",
		"runlevel:stable",
		"exited:a",
		"terminating:b",
		"exited:b",
		"restarting-runlevel",
		"restarted:a",
		"launched:a",
		"restarted:b",
		"launched:b",
		"runlevel:stable",
	}
	got := obs.snapshot()
	if len(got) != len(want) {
		t.Fatalf("event order = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event[%d] = %q, want %q (full sequence: %v)", i, got[i], want[i], got)
		}
	}
}

// TestController_EnqueueForcesAbortWhenQueueFull covers spec.md §7's
// Queue-full disposition: fatal, ForceAbort — never a silent drop.
func TestController_EnqueueForcesAbortWhenQueueFull(t *testing.T) {
	launcher := newFakeLauncher()
	specs := []ProgramSpec{{Name: "a", Command: "/bin/a", Policy: PolicyRestartOnExit}}
	obs := &recordingObserver{}
	c := NewController(specs, launcher, testLogger(), Config{
		QuickRestartWindow:    50 * time.Millisecond,
		QuickRestartThreshold: 2,
		QueueDepth:            1,
		Observer:              obs,
	})
	c.reaper = NewReaperWithWaitFunc(func(pid int, flags int) (int, syscall.WaitStatus, error) {
		return 0, 0, nil
	})
	c.signal = func(pid int, sig syscall.Signal) error { return nil }

	// Fill the one-deep queue with nothing draining it (Run is never
	// started), then push one more: the second enqueue must observe a
	// full channel and force an abort rather than silently drop.
	if ok := c.enqueue(command{Kind: cmdDumpStatus}); !ok {
		t.Fatal("first enqueue unexpectedly failed against an empty queue")
	}
	if ok := c.enqueue(command{Kind: cmdDumpStatus}); ok {
		t.Fatal("second enqueue should have failed: queue depth is 1")
	}

	if _, runlevel := c.Snapshot(); runlevel != RunlevelAbortingShutdown {
		t.Errorf("runlevel = %v, want AbortingShutdown after queue-full forces an abort", runlevel)
	}

	found := false
	for _, call := range obs.snapshot() {
		if call == "abort:queue-full" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected an abort:queue-full observer call, got %v", obs.snapshot())
	}
}

// TestController_RunStopsOnContextCancel is an integration test against
// a real "sleep" child (same style as the teacher's manager_integration_
// test.go), so the terminate signal actually has a live process to land
// on and the real Reaper observes a real exit.
func TestController_RunStopsOnContextCancel(t *testing.T) {
	specs := []ProgramSpec{{
		Name:             "sleeper",
		Command:          "sleep",
		Argv:             []string{"300"},
		Policy:           PolicyRestartOnExit,
		ShutdownDeadline: 2 * time.Second,
	}}
	c := NewController(specs, NewExecLauncher(testLogger()), testLogger(), Config{
		QuickRestartWindow:    50 * time.Millisecond,
		QuickRestartThreshold: 2,
		QueueDepth:            16,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-c.Stopped():
	case <-time.After(5 * time.Second):
		t.Fatal("controller did not stop within 5s of context cancellation")
	}
	<-done
}
