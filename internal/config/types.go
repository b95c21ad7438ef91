// Package config loads and validates the YAML roster that describes
// which programs procmond supervises (spec.md §3, §6.1).
package config

import "time"

// Config is the top-level roster document.
type Config struct {
	Version  string             `yaml:"version" json:"version"`
	Global   GlobalConfig       `yaml:"global" json:"global"`
	Programs map[string]*Program `yaml:"programs" json:"programs"`
}

// GlobalConfig holds the runlevel-wide tunables: the flap detector's
// window/threshold, the event stream and metrics/tracing surfaces.
type GlobalConfig struct {
	QuickRestartWindow    int    `yaml:"quick_restart_window" json:"quick_restart_window"`       // seconds
	QuickRestartThreshold int    `yaml:"quick_restart_threshold" json:"quick_restart_threshold"` //
	ShutdownDeadline      int    `yaml:"shutdown_deadline" json:"shutdown_deadline"`             // seconds, per-program default

	LogFormat string `yaml:"log_format" json:"log_format"` // json | text
	LogLevel  string `yaml:"log_level" json:"log_level"`   // debug | info | warn | error

	MetricsEnabled bool   `yaml:"metrics_enabled" json:"metrics_enabled"`
	MetricsAddr    string `yaml:"metrics_addr" json:"metrics_addr"`
	MetricsPath    string `yaml:"metrics_path" json:"metrics_path"`

	TracingEnabled  bool   `yaml:"tracing_enabled" json:"tracing_enabled"`
	TracingExporter string `yaml:"tracing_exporter" json:"tracing_exporter"` // stdout | otlp-grpc
	TracingEndpoint string `yaml:"tracing_endpoint" json:"tracing_endpoint"` // for otlp-grpc

	AuditLogPath string `yaml:"audit_log_path" json:"audit_log_path"`
}

// Program is one roster entry: spec.md §3's Program Record minus the
// lifecycle bookkeeping, which internal/supervisor owns at runtime.
type Program struct {
	Command          []string          `yaml:"command" json:"command"`
	Env              map[string]string `yaml:"env" json:"env"`
	Policy           string            `yaml:"policy" json:"policy"` // one-shot | restart-on-exit
	TerminateSignal  string            `yaml:"terminate_signal" json:"terminate_signal"`
	ShutdownDeadline int               `yaml:"shutdown_deadline" json:"shutdown_deadline"` // seconds; 0 uses global default
}

// SetDefaults fills in every field left unset in the YAML with the
// values spec.md §4/§6.1 specifies as defaults.
func (c *Config) SetDefaults() {
	if c.Version == "" {
		c.Version = "1.0"
	}
	if c.Global.QuickRestartWindow == 0 {
		c.Global.QuickRestartWindow = 10
	}
	if c.Global.QuickRestartThreshold == 0 {
		c.Global.QuickRestartThreshold = 5
	}
	if c.Global.ShutdownDeadline == 0 {
		c.Global.ShutdownDeadline = 10
	}
	if c.Global.LogFormat == "" {
		c.Global.LogFormat = "json"
	}
	if c.Global.LogLevel == "" {
		c.Global.LogLevel = "info"
	}
	if c.Global.MetricsAddr == "" {
		c.Global.MetricsAddr = ":9090"
	}
	if c.Global.MetricsPath == "" {
		c.Global.MetricsPath = "/metrics"
	}
	if c.Global.TracingExporter == "" {
		c.Global.TracingExporter = "stdout"
	}

	for _, p := range c.Programs {
		if p.Policy == "" {
			p.Policy = "restart-on-exit"
		}
		if p.TerminateSignal == "" {
			p.TerminateSignal = "SIGTERM"
		}
		if p.ShutdownDeadline == 0 {
			p.ShutdownDeadline = c.Global.ShutdownDeadline
		}
	}
}

// QuickRestartWindowDuration returns the global flap-detector window as
// a time.Duration for handing straight to supervisor.Config.
func (c *Config) QuickRestartWindowDuration() time.Duration {
	return time.Duration(c.Global.QuickRestartWindow) * time.Second
}
