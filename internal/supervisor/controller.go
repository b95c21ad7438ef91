package supervisor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"syscall"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/shobhitka/procmond/internal/eventlog"
	"github.com/shobhitka/procmond/internal/tracing"
)

// Observer receives lifecycle events as the controller processes them.
// It is the seam internal/audit and internal/metrics hang off of; the
// supervisor package itself has no opinion on where events end up.
type Observer interface {
	OnLaunch(name string, pid int)
	OnLaunchFailed(name string, err error)
	OnExit(name string, exit ExitReport)
	OnTerminate(name string)
	OnRestart(name string, quickRestartCount int)
	OnRunlevelRestart()
	OnAbort(reason AbortReason)
	OnRunlevelChange(state RunlevelState)
}

// nullObserver discards everything; used when no Observer is supplied.
type nullObserver struct{}

func (nullObserver) OnLaunch(string, int)          {}
func (nullObserver) OnLaunchFailed(string, error)  {}
func (nullObserver) OnExit(string, ExitReport)     {}
func (nullObserver) OnTerminate(string)            {}
func (nullObserver) OnRestart(string, int)         {}
func (nullObserver) OnRunlevelRestart()            {}
func (nullObserver) OnAbort(AbortReason)           {}
func (nullObserver) OnRunlevelChange(RunlevelState) {}

// Controller is the single-writer runlevel state machine described in
// spec.md §4 and §5. Every mutation of the roster happens on the
// goroutine running Run, with one exception: when the queue is full,
// enqueue performs the force-abort on the calling goroutine. Every other
// goroutine (signal router, metrics scraper, TUI) only ever pushes a
// command onto queue or takes a read lock via Snapshot.
type Controller struct {
	logger   *slog.Logger
	launcher Launcher
	reaper   *Reaper
	observer Observer
	tracer   trace.Tracer
	// signal sends sig to pid. Defaults to SignalProgram; tests swap it
	// out for a fake so sibling-termination paths can be exercised
	// without a real OS process to signal, the same way reaper is swapped
	// for NewReaperWithWaitFunc.
	signal func(pid int, sig syscall.Signal) error

	quickRestartWindow    time.Duration
	quickRestartThreshold int
	defaultShutdownSignal syscall.Signal

	queue chan command

	mu       sync.RWMutex // guards roster, pidIndex, runlevel below
	roster   []*ProgramRecord
	pidIndex map[int]*ProgramRecord
	runlevel RunlevelState

	stopped chan struct{}
}

// Config collects the tunables Run needs beyond the roster itself.
type Config struct {
	QuickRestartWindow    time.Duration
	QuickRestartThreshold int
	QueueDepth            int
	Observer              Observer
	// Tracer wraps every controller operation in an OpenTelemetry span
	// (spec.md §6.5). Defaults to a no-op tracer when unset.
	Tracer trace.Tracer
}

// NewController builds a Controller over the given specs. Records start
// in StatePending; nothing is launched until Run starts, which brings the
// roster up before it processes any queued command.
func NewController(specs []ProgramSpec, launcher Launcher, logger *slog.Logger, cfg Config) *Controller {
	if cfg.QuickRestartWindow <= 0 {
		cfg.QuickRestartWindow = DefaultQuickRestartWindow
	}
	if cfg.QuickRestartThreshold <= 0 {
		cfg.QuickRestartThreshold = DefaultQuickRestartThreshold
	}
	if cfg.QueueDepth <= 0 {
		cfg.QueueDepth = DefaultQueueDepth
	}
	observer := cfg.Observer
	if observer == nil {
		observer = nullObserver{}
	}
	tracer := cfg.Tracer
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("supervisor")
	}

	roster := make([]*ProgramRecord, 0, len(specs))
	for _, spec := range specs {
		roster = append(roster, NewProgramRecord(spec))
	}

	return &Controller{
		logger:                logger,
		launcher:              launcher,
		reaper:                NewReaper(),
		observer:              observer,
		tracer:                tracer,
		signal:                SignalProgram,
		quickRestartWindow:    cfg.QuickRestartWindow,
		quickRestartThreshold: cfg.QuickRestartThreshold,
		defaultShutdownSignal: syscall.SIGTERM,
		queue:                 make(chan command, cfg.QueueDepth),
		roster:                roster,
		pidIndex:              make(map[int]*ProgramRecord),
		runlevel:              RunlevelStarting,
		stopped:               make(chan struct{}),
	}
}

// --- public, any-goroutine-safe API ---------------------------------

// Snapshot returns a race-free copy of the whole roster plus the current
// runlevel state, for the TUI and metrics collector to read without
// going through the command queue.
func (c *Controller) Snapshot() ([]Snapshot, RunlevelState) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Snapshot, len(c.roster))
	for i, r := range c.roster {
		out[i] = r.snapshot()
	}
	return out, c.runlevel
}

// Enqueue pushes a command onto the controller's queue. spec.md §7 treats
// a full queue as fatal, not backpressure: it should be unreachable with
// sane sizing, so a failed non-blocking send means the controller is
// already badly behind and the only safe response is the same ForceAbort
// path a fatal-fault signal would take — performed directly here, since
// enqueueing onto the very queue that just overflowed would only repeat
// the failure.
func (c *Controller) enqueue(cmd command) bool {
	select {
	case c.queue <- cmd:
		return true
	default:
		c.logger.Error("command queue full, forcing abort", "kind", cmd.Kind)
		c.forceAbortNow(QueueFull)
		return false
	}
}

// NotifyChildExited is called by the signal router when SIGCHLD arrives.
// It does no reaping itself — reaping happens on the controller
// goroutine — it just wakes the controller up to go reap.
func (c *Controller) NotifyChildExited() {
	c.enqueue(command{Kind: cmdChildExited})
}

// RequestTerminateAll asks the controller to begin graceful shutdown of
// every active program (spec.md §4.3's terminate-request, triggered by
// SIGINT/SIGTERM).
func (c *Controller) RequestTerminateAll() {
	c.enqueue(command{Kind: cmdTerminateAll})
}

// RequestDumpStatus asks the controller to emit a status dump to the
// event stream (SIGUSR1/SIGUSR2 in spec.md §4.6), and blocks until the
// controller goroutine has actually processed it — useful to operators
// scripting a `kill -USR1` followed immediately by reading the log, and
// to tests asserting on the dump without racing the controller loop.
func (c *Controller) RequestDumpStatus() {
	done := make(chan struct{})
	if !c.enqueue(command{Kind: cmdDumpStatus, done: done}) {
		return
	}
	<-done
}

// RequestForceAbort short-circuits straight to RunlevelAbortingShutdown,
// used for SIGSEGV-class "something is badly wrong" signals.
func (c *Controller) RequestForceAbort(reason AbortReason) {
	c.enqueue(command{Kind: cmdForceAbort, Reason: reason})
}

// Stopped is closed once Run has finished terminating every program and
// returned.
func (c *Controller) Stopped() <-chan struct{} {
	return c.stopped
}

// --- the controller goroutine ---------------------------------------

// Run is the single-writer loop: it launches the initial roster, then
// processes commands until the runlevel reaches a terminal abort state
// and every program has stopped. It must run on exactly one goroutine
// for the lifetime of the process.
func (c *Controller) Run(ctx context.Context) error {
	c.bringUp()

	for {
		select {
		case <-ctx.Done():
			c.terminateAll()
			c.drainUntilStopped()
			close(c.stopped)
			return ctx.Err()
		case cmd := <-c.queue:
			c.handle(cmd)
			if cmd.done != nil {
				close(cmd.done)
			}
			if c.runlevelIsAborting() && c.allStopped() {
				close(c.stopped)
				return nil
			}
		}
	}
}

func (c *Controller) handle(cmd command) {
	_, span := c.tracer.Start(context.Background(), "controller."+cmd.Kind.String())
	defer span.End()

	switch cmd.Kind {
	case cmdBringUp:
		c.bringUp()
		tracing.RecordSuccess(span)
	case cmdChildExited:
		c.reapAndEvaluate()
		tracing.RecordSuccess(span)
	case cmdTerminateAll:
		c.terminateAll()
		tracing.RecordSuccess(span)
	case cmdDumpStatus:
		c.dumpStatus()
		tracing.RecordSuccess(span)
	case cmdForceAbort:
		tracing.SetAttributes(span, attribute.String("abort.reason", string(cmd.Reason)))
		c.forceAbortNow(cmd.Reason)
		tracing.RecordError(span, fmt.Errorf("runlevel force-abort: %s", cmd.Reason), "forced abort")
	}
}

// forceAbortNow performs the ForceAbort effect (spec.md §4.5's ForceAbort
// row): set the runlevel to Aborting-Shutdown, notify the observer, and
// terminate every active program. It is called both from the
// cmdForceAbort command handler and directly from enqueue's queue-full
// path, where nothing can safely be pushed onto the queue that just
// overflowed.
func (c *Controller) forceAbortNow(reason AbortReason) {
	c.setRunlevel(RunlevelAbortingShutdown)
	c.observer.OnAbort(reason)
	c.logger.Error("aborting", "reason", reason)
	c.terminateAll()
}

// bringUp launches every Pending record in roster order (spec.md §4.1).
// A launch failure marks that one record LaunchFailed and continues —
// one bad program must not prevent the rest of the runlevel from
// coming up.
func (c *Controller) bringUp() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.runlevel = RunlevelProgressing
	c.observer.OnRunlevelChange(c.runlevel)

	for _, r := range c.roster {
		if r.State != StatePending {
			continue
		}
		c.launchLocked(r)
	}

	if c.allStableLocked() {
		c.runlevel = RunlevelStable
		c.observer.OnRunlevelChange(c.runlevel)
	}
}

// launchLocked starts r and records the outcome. Caller must hold mu.
func (c *Controller) launchLocked(r *ProgramRecord) {
	// spec.md §4.2: both success and failure increment restart_count — it
	// measures attempts, not successes, and that includes the very first
	// launch out of Pending, not just later relaunches.
	r.RestartCount++
	r.LastLaunchTime = time.Now()

	pid, err := c.launcher.Launch(r.Spec)
	if err != nil {
		r.State = StateLaunchFailed
		r.ChildID = 0
		c.observer.OnLaunchFailed(r.Spec.Name, err)
		c.logger.Error("launch failed", "program", r.Spec.Name, "error", err)
		return
	}
	r.State = StateActive
	r.ChildID = pid
	c.pidIndex[pid] = r
	c.observer.OnLaunch(r.Spec.Name, pid)
	c.logger.Info("launched", "program", r.Spec.Name, "pid", pid)
}

// reapAndEvaluate drains every exited child (a single SIGCHLD can
// coalesce several) and applies spec.md §4.5's OnChildExited algorithm.
// The runlevel is treated as a unit: a partial exit (some Active/Stopping
// records remain) tears down every surviving sibling rather than
// relaunching the exited record in isolation, and the restart
// policy/relaunch step only fires once the whole runlevel has stopped
// together — see restartWholeRunlevelLocked.
func (c *Controller) reapAndEvaluate() {
	reports := c.reaper.ReapAll()
	if len(reports) == 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, exit := range reports {
		r, ok := c.pidIndex[exit.PID]
		if !ok {
			c.logger.Warn("reaped unrecognized pid, discarding", "pid", exit.PID,
				"exit_code", exit.ExitCode, "signaled", exit.Signaled)
			continue // not one of ours (e.g. a grandchild reparented to us)
		}
		delete(c.pidIndex, exit.PID)

		r.State = StateStopped
		r.ChildID = 0
		c.observer.OnExit(r.Spec.Name, exit)
		c.logger.Info("exited", "program", r.Spec.Name, "pid", exit.PID,
			"exit_code", exit.ExitCode, "signaled", exit.Signaled)
	}

	if c.runlevel.IsAborting() {
		// Final flush: Run's main loop checks allStopped() once handle
		// returns and exits once every record has stopped together.
		return
	}

	if c.stillRunningLocked() {
		// Partial exit (spec.md §4.5 step 4): the runlevel is a unit, so
		// a sibling still being Active is propagated as a terminate-
		// request to every survivor. The restart/relaunch step below
		// only runs once they too report in as stopped.
		c.terminateActiveRecordsLocked()
		return
	}

	// Every record has stopped together: step 3, "whole-runlevel crash".
	c.restartWholeRunlevelLocked()
}

// stillRunningLocked reports whether any record still owns, or is
// expected to still own, a live child. Caller must hold mu.
func (c *Controller) stillRunningLocked() bool {
	for _, r := range c.roster {
		if r.State == StateActive || r.State == StateStopping {
			return true
		}
	}
	return false
}

// restartWholeRunlevelLocked is reached only once every record has
// stopped together. It consults the restart policy for every non-
// one-shot record and either aborts the runlevel on a flap verdict or
// relaunches every non-one-shot record as a single batch — spec.md §9
// resolves the one-shot/"all exited" interaction: one-shot records are
// never relaunched, but their earlier exit still counted toward
// still_running reaching zero. Caller must hold mu.
func (c *Controller) restartWholeRunlevelLocked() {
	var abort bool
	var abortReason AbortReason

	for _, r := range c.roster {
		if r.Spec.Policy == PolicyOneShot {
			continue
		}
		decision, newCount := EvaluateRestart(r.Spec.Policy, r.LastLaunchTime, r.QuickRestartCount,
			time.Now(), c.quickRestartWindow, c.quickRestartThreshold)
		r.QuickRestartCount = newCount
		if decision.Kind == AbortRunlevel {
			abort = true
			abortReason = decision.Reason
		}
	}

	if abort {
		c.runlevel = RunlevelAbortingFlapping
		c.observer.OnRunlevelChange(c.runlevel)
		c.observer.OnAbort(abortReason)
		c.logger.Error("program flapping, aborting runlevel", "reason", abortReason)
		c.terminateActiveRecordsLocked() // best-effort; everything should already be stopped
		return
	}

	c.observer.OnRunlevelRestart()
	c.logger.Info("restarting-runlevel")
	for _, r := range c.roster {
		if r.Spec.Policy == PolicyOneShot {
			continue
		}
		c.observer.OnRestart(r.Spec.Name, r.QuickRestartCount)
		c.launchLocked(r)
	}

	if c.allStableLocked() {
		c.runlevel = RunlevelStable
		c.observer.OnRunlevelChange(c.runlevel)
	}
}

// terminateAll sends each active program its configured terminate
// signal (spec.md §4.3). For every program it signals, it also starts a
// scheduleKillEscalation timer that sends SIGKILL after ShutdownDeadline.
func (c *Controller) terminateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.terminateAllLocked()
}

func (c *Controller) terminateAllLocked() {
	if !c.runlevel.IsAborting() {
		c.runlevel = RunlevelAbortingShutdown
		c.observer.OnRunlevelChange(c.runlevel)
		c.logger.Error("aborting", "reason", "shutdown")
	}
	c.terminateActiveRecordsLocked()
}

// terminateActiveRecordsLocked sends every Active record its configured
// terminate signal and moves it to Stopping, without touching the
// runlevel itself. Used by terminateAllLocked (operator shutdown and
// force-abort, which set the runlevel first) and by reapAndEvaluate's
// partial-exit branch, where tearing down surviving siblings so the
// whole runlevel can be relaunched together is deliberately NOT an abort
// (spec.md §4.5 step 4) and must not move the runlevel to Aborting-*.
// Caller must hold mu.
func (c *Controller) terminateActiveRecordsLocked() {
	for _, r := range c.roster {
		if r.State != StateActive {
			continue
		}
		sig := syscall.Signal(r.Spec.TerminateSignal)
		if sig == 0 {
			sig = c.defaultShutdownSignal
		}
		if err := c.signal(r.ChildID, sig); err != nil {
			c.logger.Warn("terminate signal failed", "program", r.Spec.Name, "pid", r.ChildID, "error", err)
			continue
		}
		r.State = StateStopping
		c.observer.OnTerminate(r.Spec.Name)
		c.logger.Info("terminating", "program", r.Spec.Name, "pid", r.ChildID)
		deadline := r.Spec.ShutdownDeadline
		if deadline <= 0 {
			deadline = 10 * time.Second
		}
		go c.scheduleKillEscalation(r.Spec.Name, r.ChildID, deadline)
	}
}

// scheduleKillEscalation sends SIGKILL to pid after deadline unless the
// program has already exited. It does not go through the command queue:
// it only reads roster state, under the read lock, and never writes it,
// so the controller goroutine stays the single writer (spec.md §4.7).
func (c *Controller) scheduleKillEscalation(name string, pid int, deadline time.Duration) {
	defer eventlog.RecoverPanic(c.logger, "schedule-kill-escalation")

	timer := time.NewTimer(deadline)
	defer timer.Stop()
	<-timer.C

	c.mu.RLock()
	r, stillStopping := c.pidIndex[pid]
	stillOurs := stillStopping && r.State == StateStopping
	c.mu.RUnlock()

	if !stillOurs {
		return
	}
	c.logger.Warn("shutdown deadline exceeded, sending SIGKILL", "program", name, "pid", pid)
	if err := c.signal(pid, syscall.SIGKILL); err != nil {
		c.logger.Error("SIGKILL failed", "program", name, "pid", pid, "error", err)
	}
}

// dumpStatus writes one line per record to the event stream, used by
// SIGUSR1/SIGUSR2 (spec.md §4.6, §6.2).
func (c *Controller) dumpStatus() {
	c.mu.RLock()
	defer c.mu.RUnlock()
	c.logger.Info("status dump", "runlevel", c.runlevel, "program_count", len(c.roster))
	for _, r := range c.roster {
		c.logger.Info("status",
			"program", r.Spec.Name,
			"state", r.State,
			"pid", r.ChildID,
			"restart_count", r.RestartCount,
			"quick_restart_count", r.QuickRestartCount,
		)
	}
}

func (c *Controller) setRunlevel(s RunlevelState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.runlevel = s
	c.observer.OnRunlevelChange(s)
}

func (c *Controller) runlevelIsAborting() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.runlevel.IsAborting()
}

// allStopped reports whether no record still owns a live child. Caller
// must not hold mu.
func (c *Controller) allStopped() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, r := range c.roster {
		if r.HasChild() {
			return false
		}
	}
	return true
}

// allStableLocked reports whether every record has left Pending/Stopping
// transit — i.e. the runlevel can be called Stable. Caller must hold mu.
func (c *Controller) allStableLocked() bool {
	for _, r := range c.roster {
		if r.State == StatePending || r.State == StateStopping {
			return false
		}
	}
	return true
}

// drainUntilStopped blocks processing remaining queued commands (mostly
// child-exit notifications from the programs we just signaled) until
// every child has been reaped, bounded by a short grace period so a
// misbehaving child can't hang process shutdown forever.
func (c *Controller) drainUntilStopped() {
	deadline := time.After(30 * time.Second)
	// The signal router delivers SIGCHLD as a command, but poll the
	// reaper directly too: during shutdown a terminated controller may
	// have already torn down the goroutine feeding the queue.
	poll := time.NewTicker(50 * time.Millisecond)
	defer poll.Stop()
	for !c.allStopped() {
		select {
		case cmd := <-c.queue:
			c.handle(cmd)
			if cmd.done != nil {
				close(cmd.done)
			}
		case <-poll.C:
			c.reapAndEvaluate()
		case <-deadline:
			c.logger.Warn("shutdown grace period exceeded, giving up on remaining children")
			return
		}
	}
}
