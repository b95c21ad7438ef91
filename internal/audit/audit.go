// Package audit provides a structured, append-only audit trail of
// runlevel events, each stamped with a correlation ID (spec.md §6.3).
// Every event gets its own fresh ID unless the caller of Log sets one;
// the events produced by one queued command do not share an ID.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/shobhitka/procmond/internal/supervisor"
	"github.com/shobhitka/procmond/internal/tracing"
)

// EventType categorizes an audit entry.
type EventType string

const (
	EventProgramLaunch       EventType = "program.launch"
	EventProgramLaunchFailed EventType = "program.launch_failed"
	EventProgramExit         EventType = "program.exit"
	EventProgramTerminate    EventType = "program.terminate"
	EventProgramRestart      EventType = "program.restart"
	EventRunlevelRestart     EventType = "runlevel.restart"
	EventRunlevelAbort       EventType = "runlevel.abort"
	EventRunlevelChange      EventType = "runlevel.change"
)

// Status is the outcome of the audited action.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
)

// Event is a single audit log entry.
type Event struct {
	Timestamp     time.Time              `json:"timestamp"`
	CorrelationID string                 `json:"correlation_id"`
	EventType     EventType              `json:"event_type"`
	Program       string                 `json:"program,omitempty"`
	Status        Status                 `json:"status"`
	Message       string                 `json:"message"`
	Context       map[string]interface{} `json:"context,omitempty"`
}

// Logger writes Events to a slog.Logger. It also implements
// supervisor.Observer, so it can be handed straight to
// supervisor.NewController.
type Logger struct {
	logger  *slog.Logger
	enabled bool
}

// NewLogger returns an audit Logger. When enabled is false, Log writes
// nothing, so no Observer method emits an audit line; the Observer
// methods still open and end their tracing spans.
func NewLogger(log *slog.Logger, enabled bool) *Logger {
	return &Logger{logger: log.With("subsystem", "audit"), enabled: enabled}
}

// Log emits one audit event, with a fresh correlation ID if none was
// set by the caller.
func (l *Logger) Log(event Event) {
	if !l.enabled {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.CorrelationID == "" {
		event.CorrelationID = uuid.NewString()
	}

	eventJSON, _ := json.Marshal(event)

	level := slog.LevelInfo
	if event.Status == StatusFailure {
		level = slog.LevelError
	}
	l.logger.Log(context.Background(), level, "audit_event",
		"correlation_id", event.CorrelationID,
		"event_type", event.EventType,
		"program", event.Program,
		"status", event.Status,
		"message", event.Message,
		"event_json", string(eventJSON),
	)
}

// --- supervisor.Observer ---------------------------------------------

func (l *Logger) OnLaunch(name string, pid int) {
	_, span := tracing.StartProgramSpan(context.Background(), name, "launch")
	tracing.RecordSuccess(span)
	span.End()

	l.Log(Event{
		EventType: EventProgramLaunch,
		Program:   name,
		Status:    StatusSuccess,
		Message:   "program launched",
		Context:   map[string]interface{}{"pid": pid},
	})
}

func (l *Logger) OnLaunchFailed(name string, err error) {
	_, span := tracing.StartProgramSpan(context.Background(), name, "launch")
	tracing.RecordError(span, err, "launch failed")
	span.End()

	l.Log(Event{
		EventType: EventProgramLaunchFailed,
		Program:   name,
		Status:    StatusFailure,
		Message:   err.Error(),
	})
}

func (l *Logger) OnExit(name string, exit supervisor.ExitReport) {
	_, span := tracing.StartProgramSpan(context.Background(), name, "exit")
	tracing.RecordSuccess(span)
	span.End()

	l.Log(Event{
		EventType: EventProgramExit,
		Program:   name,
		Status:    StatusSuccess,
		Message:   "program exited",
		Context: map[string]interface{}{
			"pid":       exit.PID,
			"exit_code": exit.ExitCode,
			"signaled":  exit.Signaled,
			"signal":    exit.Signal.String(),
		},
	})
}

func (l *Logger) OnTerminate(name string) {
	_, span := tracing.StartProgramSpan(context.Background(), name, "terminate")
	tracing.RecordSuccess(span)
	span.End()

	l.Log(Event{
		EventType: EventProgramTerminate,
		Program:   name,
		Status:    StatusSuccess,
		Message:   "terminate-request sent",
	})
}

func (l *Logger) OnRunlevelRestart() {
	_, span := tracing.StartRunlevelSpan(context.Background(), "restart")
	tracing.RecordSuccess(span)
	span.End()

	l.Log(Event{
		EventType: EventRunlevelRestart,
		Status:    StatusSuccess,
		Message:   "restarting runlevel",
	})
}

func (l *Logger) OnRestart(name string, quickRestartCount int) {
	_, span := tracing.StartProgramSpan(context.Background(), name, "restart")
	tracing.AddEvent(span, "quick_restart")
	tracing.RecordSuccess(span)
	span.End()

	l.Log(Event{
		EventType: EventProgramRestart,
		Program:   name,
		Status:    StatusSuccess,
		Message:   "program restarted",
		Context:   map[string]interface{}{"quick_restart_count": quickRestartCount},
	})
}

func (l *Logger) OnAbort(reason supervisor.AbortReason) {
	_, span := tracing.StartRunlevelSpan(context.Background(), "abort")
	tracing.RecordError(span, fmt.Errorf("%s", string(reason)), "runlevel abort")
	span.End()

	l.Log(Event{
		EventType: EventRunlevelAbort,
		Status:    StatusFailure,
		Message:   "runlevel aborted",
		Context:   map[string]interface{}{"reason": string(reason)},
	})
}

func (l *Logger) OnRunlevelChange(state supervisor.RunlevelState) {
	_, span := tracing.StartRunlevelSpan(context.Background(), string(state))
	tracing.RecordSuccess(span)
	span.End()

	l.Log(Event{
		EventType: EventRunlevelChange,
		Status:    StatusSuccess,
		Message:   "runlevel changed",
		Context:   map[string]interface{}{"state": string(state)},
	})
}
