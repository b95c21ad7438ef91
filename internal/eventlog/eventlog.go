// Package eventlog builds the root structured logger every line in
// spec.md §6.2's event stream is emitted through — launched,
// launch-failed, exited, terminating, status-dump, restarting-runlevel,
// aborting, final-exit — and gives local-recovery paths (launch
// failure, reap inconsistency, invalid transition) a single place to
// log at Warn/Error without propagating, per spec.md §7.
//
// The teacher has no single logger.New: cmd/phpeek-pm/main.go builds a
// slog.HandlerOptions ad hoc at startup. That idiom is generalized here
// into a real package since procmond's roster picks the format (text or
// JSON) per-deployment rather than hardcoding it.
package eventlog

import (
	"io"
	"log/slog"
	"os"
)

// New builds the root logger, writing to stdout in the format and at
// the level the roster's global config names.
func New(level, format string) *slog.Logger {
	return NewWithWriter(os.Stdout, level, format)
}

// NewWithWriter is New with an explicit destination, used by tests.
func NewWithWriter(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}

	var handler slog.Handler
	if format == "text" {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	return slog.New(handler)
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Fault logs a local-recovery condition — launch-failure,
// reap-inconsistency, invalid-transition — at Warn. These are not
// propagated as Go errors; the caller has already decided to continue.
func Fault(logger *slog.Logger, class, detail string, err error) {
	logger.Warn("local-recovery", "class", class, "detail", detail, "error", err)
}

// RecoverPanic recovers a panic in a goroutine detached from the
// Controller (the shutdown-deadline timer, the resource sampler) and reports
// it as a reap-inconsistency-class fault instead of crashing the whole
// process, grounded on the teacher's monitorInstance/handleHealthStatus
// defer recover() pattern. Call as `defer eventlog.RecoverPanic(logger,
// "component-name")` at the top of the detached goroutine.
func RecoverPanic(logger *slog.Logger, component string) {
	if r := recover(); r != nil {
		logger.Error("recovered from panic in detached goroutine",
			"component", component, "class", "reap-inconsistency", "panic", r)
	}
}
