// Package signals translates OS signals into controller commands. In Go,
// os/signal.Notify already moves the actual work off the true
// asynchronous-signal-handler context and onto an ordinary goroutine
// receiving off a channel — the async-signal-safety constraint spec.md
// §5/§9 worries about (the original C source did real work, including
// malloc-adjacent printf calls, directly inside its signal() handlers)
// is satisfied by construction here: every handler in this package is
// just a channel send performed by the runtime's signal-forwarding
// goroutine, and everything below it runs as regular Go code.
package signals

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/shobhitka/procmond/internal/supervisor"
)

// controller is the subset of *supervisor.Controller the router needs.
// Kept as an interface, grounded on the teacher's preference for small
// seams at package boundaries, so router tests don't need a real
// Controller.
type controller interface {
	NotifyChildExited()
	RequestTerminateAll()
	RequestDumpStatus()
	RequestForceAbort(reason supervisor.AbortReason)
}

// Router listens for the signals spec.md §4.6 assigns meaning to and
// forwards each one to the controller as a command.
type Router struct {
	ctrl       controller
	logger     *slog.Logger
	sigCh      chan os.Signal
	fatalFault chan struct{}
}

// NewRouter returns a Router bound to ctrl. Call Start to begin
// listening.
func NewRouter(ctrl *supervisor.Controller, logger *slog.Logger) *Router {
	return &Router{
		ctrl:       ctrl,
		logger:     logger,
		sigCh:      make(chan os.Signal, 16),
		fatalFault: make(chan struct{}),
	}
}

// FatalFault is closed the moment a fatal-fault signal (SIGSEGV) is
// dispatched, so the daemon entrypoint can distinguish a fatal-fault
// shutdown from an operator-requested one once Controller.Run returns
// (spec.md §6.7's distinguished exit codes).
func (r *Router) FatalFault() <-chan struct{} {
	return r.fatalFault
}

// Start registers for SIGCHLD, SIGINT, SIGTERM, SIGUSR1, SIGUSR2, and
// SIGSEGV, and runs the dispatch loop until ctx is cancelled. Stop only
// unregisters the signals; it does not end the loop.
func (r *Router) Start(ctx context.Context) {
	signal.Notify(r.sigCh,
		syscall.SIGCHLD,
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGUSR1,
		syscall.SIGUSR2,
		syscall.SIGSEGV,
	)
	go r.loop(ctx)
}

// Stop unregisters the signal channel. Safe to call more than once.
func (r *Router) Stop() {
	signal.Stop(r.sigCh)
}

// Reraise restores sig's OS default disposition and sends it to this
// process again. Callers use it once Controller.Stopped() has fired
// after a fatal-fault ForceAbort (spec.md §4.5/§7): every child has
// already been torn down by then, so there is nothing left for our own
// handling to protect, and re-raising with the default disposition
// produces the same crash/core dump an unsupervised process would have
// left behind instead of a synthetic exit code. Reraise only returns if
// signal delivery itself failed.
func (r *Router) Reraise(sig syscall.Signal) {
	signal.Stop(r.sigCh)
	signal.Reset(sig)
	if err := syscall.Kill(os.Getpid(), sig); err != nil {
		r.logger.Error("failed to re-raise fatal signal", "signal", sig, "error", err)
	}
}

func (r *Router) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case sig := <-r.sigCh:
			r.dispatch(sig)
		}
	}
}

func (r *Router) dispatch(sig os.Signal) {
	switch sig {
	case syscall.SIGCHLD:
		// SIGCHLD can coalesce: one delivery may represent several
		// children exiting. NotifyChildExited only wakes the
		// controller; it reaps everything outstanding, not just one.
		r.ctrl.NotifyChildExited()
	case syscall.SIGINT, syscall.SIGTERM:
		r.logger.Info("received shutdown signal", "signal", sig)
		r.ctrl.RequestTerminateAll()
	case syscall.SIGUSR1, syscall.SIGUSR2:
		r.ctrl.RequestDumpStatus()
	case syscall.SIGSEGV:
		// A supervisor that received SIGSEGV is itself corrupted; don't
		// try to run more of its own logic than tearing everything down
		// as fast as possible.
		r.logger.Error("supervisor received SIGSEGV, forcing abort")
		if r.fatalFault != nil {
			select {
			case <-r.fatalFault:
			default:
				close(r.fatalFault)
			}
		}
		r.ctrl.RequestForceAbort(supervisor.AbortReason("supervisor-fault"))
	default:
		r.logger.Debug("ignoring unhandled signal", "signal", sig)
	}
}
