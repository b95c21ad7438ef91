package config

import (
	"fmt"
	"strings"
	"syscall"
)

// ValidationSeverity represents the severity level of a validation issue.
type ValidationSeverity string

const (
	SeverityError      ValidationSeverity = "error"      // Blocking, must be fixed
	SeverityWarning    ValidationSeverity = "warning"    // Non-blocking, should review
	SeveritySuggestion ValidationSeverity = "suggestion" // Best practice recommendation
)

// ValidationIssue is a single validation problem.
type ValidationIssue struct {
	Severity    ValidationSeverity
	Field       string // e.g. "global.log_level", "programs.web.command"
	Message     string
	Suggestion  string
	ProgramName string
}

// ValidationResult collects every issue found across one validation pass.
type ValidationResult struct {
	Errors      []ValidationIssue
	Warnings    []ValidationIssue
	Suggestions []ValidationIssue
}

// NewValidationResult creates an empty validation result.
func NewValidationResult() *ValidationResult {
	return &ValidationResult{
		Errors:      []ValidationIssue{},
		Warnings:    []ValidationIssue{},
		Suggestions: []ValidationIssue{},
	}
}

func (vr *ValidationResult) AddError(field, message, suggestion string) {
	vr.Errors = append(vr.Errors, ValidationIssue{Severity: SeverityError, Field: field, Message: message, Suggestion: suggestion})
}

func (vr *ValidationResult) AddWarning(field, message, suggestion string) {
	vr.Warnings = append(vr.Warnings, ValidationIssue{Severity: SeverityWarning, Field: field, Message: message, Suggestion: suggestion})
}

func (vr *ValidationResult) AddSuggestion(field, message, suggestion string) {
	vr.Suggestions = append(vr.Suggestions, ValidationIssue{Severity: SeveritySuggestion, Field: field, Message: message, Suggestion: suggestion})
}

func (vr *ValidationResult) AddProgramError(name, field, message, suggestion string) {
	vr.Errors = append(vr.Errors, ValidationIssue{Severity: SeverityError, Field: field, Message: message, Suggestion: suggestion, ProgramName: name})
}

func (vr *ValidationResult) AddProgramWarning(name, field, message, suggestion string) {
	vr.Warnings = append(vr.Warnings, ValidationIssue{Severity: SeverityWarning, Field: field, Message: message, Suggestion: suggestion, ProgramName: name})
}

func (vr *ValidationResult) HasErrors() bool      { return len(vr.Errors) > 0 }
func (vr *ValidationResult) HasWarnings() bool    { return len(vr.Warnings) > 0 }
func (vr *ValidationResult) HasSuggestions() bool { return len(vr.Suggestions) > 0 }
func (vr *ValidationResult) TotalIssues() int {
	return len(vr.Errors) + len(vr.Warnings) + len(vr.Suggestions)
}

// ToError renders the accumulated errors as a single error, or nil if
// there were none.
func (vr *ValidationResult) ToError() error {
	if !vr.HasErrors() {
		return nil
	}
	var lines []string
	lines = append(lines, fmt.Sprintf("configuration validation failed with %d error(s):", len(vr.Errors)))
	for _, e := range vr.Errors {
		lines = append(lines, fmt.Sprintf("  - [%s] %s", e.Field, e.Message))
		if e.Suggestion != "" {
			lines = append(lines, fmt.Sprintf("    -> %s", e.Suggestion))
		}
	}
	return fmt.Errorf("%s", strings.Join(lines, "\n"))
}

// ValidateComprehensive runs every check and also surfaces warnings and
// suggestions a plain Validate call would swallow — used by the
// check-config CLI subcommand.
func (c *Config) ValidateComprehensive() (*ValidationResult, error) {
	result := NewValidationResult()

	c.validateGlobalSettings(result)
	c.validatePrograms(result)
	c.lintConfiguration(result)

	if result.HasErrors() {
		return result, result.ToError()
	}
	return result, nil
}

func (c *Config) validateGlobalSettings(result *ValidationResult) {
	if c.Global.QuickRestartWindow <= 0 {
		result.AddError("global.quick_restart_window", "must be positive", "set a value in seconds, e.g. 10")
	} else if c.Global.QuickRestartWindow < 2 {
		result.AddWarning("global.quick_restart_window", "a window under 2s rarely distinguishes a crash loop from a slow startup", "consider 10s or more")
	}

	if c.Global.QuickRestartThreshold <= 0 {
		result.AddError("global.quick_restart_threshold", "must be positive", "set a value, e.g. 5")
	}

	switch c.Global.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		result.AddError("global.log_level", fmt.Sprintf("invalid value %q", c.Global.LogLevel), "use debug, info, warn, or error")
	}

	switch c.Global.LogFormat {
	case "json", "text":
	default:
		result.AddError("global.log_format", fmt.Sprintf("invalid value %q", c.Global.LogFormat), "use json or text")
	}

	if c.Global.TracingEnabled {
		switch c.Global.TracingExporter {
		case "stdout", "otlp-grpc":
		default:
			result.AddError("global.tracing_exporter", fmt.Sprintf("invalid value %q", c.Global.TracingExporter), "use stdout or otlp-grpc")
		}
		if c.Global.TracingExporter == "otlp-grpc" && c.Global.TracingEndpoint == "" {
			result.AddError("global.tracing_endpoint", "required when tracing_exporter is otlp-grpc", "set tracing_endpoint to your collector's address")
		}
	}
}

func (c *Config) validatePrograms(result *ValidationResult) {
	if len(c.Programs) == 0 {
		result.AddError("programs", "no programs defined", "add at least one program to supervise")
		return
	}

	for name, prog := range c.Programs {
		if len(prog.Command) == 0 {
			result.AddProgramError(name, "command", "has no command", "set command to an absolute path plus arguments")
			continue
		}
		if prog.Policy != "one-shot" && prog.Policy != "restart-on-exit" {
			result.AddProgramError(name, "policy", fmt.Sprintf("invalid value %q", prog.Policy), "use one-shot or restart-on-exit")
		}
		if _, err := resolveSignal(prog.TerminateSignal); err != nil {
			result.AddProgramError(name, "terminate_signal", err.Error(), "use a name like SIGTERM or SIGQUIT")
		}
		if prog.ShutdownDeadline < 0 {
			result.AddProgramError(name, "shutdown_deadline", "must not be negative", "remove it to use the global default")
		}
	}
}

// lintConfiguration surfaces non-blocking suggestions the teacher's
// scaffold command used to bake into generated configs by default.
func (c *Config) lintConfiguration(result *ValidationResult) {
	if !c.Global.MetricsEnabled {
		result.AddSuggestion("global.metrics_enabled", "metrics are disabled", "enable metrics_enabled to get procmond_* gauges for dashboards and alerting")
	}
	for name, prog := range c.Programs {
		if len(prog.Env) == 0 {
			continue
		}
		for k := range prog.Env {
			if strings.Contains(strings.ToUpper(k), "PASSWORD") || strings.Contains(strings.ToUpper(k), "SECRET") {
				result.AddProgramWarning(name, "env", fmt.Sprintf("env var %q looks like a credential set in plaintext", k), "use ${VAR} expansion from the process's own environment instead of hardcoding secrets in the roster file")
			}
		}
	}
}

// resolveSignal maps a roster's textual signal name to a syscall.Signal.
var signalNames = map[string]syscall.Signal{
	"SIGTERM": syscall.SIGTERM,
	"SIGQUIT": syscall.SIGQUIT,
	"SIGKILL": syscall.SIGKILL,
	"SIGINT":  syscall.SIGINT,
	"SIGHUP":  syscall.SIGHUP,
	"SIGUSR1": syscall.SIGUSR1,
	"SIGUSR2": syscall.SIGUSR2,
}

func resolveSignal(name string) (syscall.Signal, error) {
	if name == "" {
		return syscall.SIGTERM, nil
	}
	sig, ok := signalNames[strings.ToUpper(name)]
	if !ok {
		return 0, fmt.Errorf("unknown signal %q", name)
	}
	return sig, nil
}
