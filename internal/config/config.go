package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load loads the roster from YAML plus environment overrides.
// Priority: environment variables > YAML file > defaults.
func Load() (*Config, error) {
	configPath := os.Getenv("PROCMOND_CONFIG")
	if configPath == "" {
		configPath = "/etc/procmond/procmond.yaml"
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = "procmond.yaml"
		}
	}

	cfg := &Config{
		Programs: make(map[string]*Program),
	}

	if _, err := os.Stat(configPath); err == nil {
		if err := loadYAML(configPath, cfg); err != nil {
			return nil, fmt.Errorf("failed to load YAML config: %w", err)
		}
	} else {
		fmt.Fprintln(os.Stderr, "no config file found, using environment variables only")
	}

	cfg.SetDefaults()
	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// loadYAML reads path, expands ${VAR}/${VAR:-default} references, and
// unmarshals the result into cfg.
func loadYAML(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	expanded := ExpandEnv(string(data))

	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return err
	}

	return nil
}

// applyEnvOverrides applies PROCMOND_<SECTION>_<KEY> overrides, which
// take priority over whatever the YAML file or ${VAR} expansion set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PROCMOND_GLOBAL_LOG_LEVEL"); v != "" {
		cfg.Global.LogLevel = v
	}
	if v := os.Getenv("PROCMOND_GLOBAL_LOG_FORMAT"); v != "" {
		cfg.Global.LogFormat = v
	}
	if v := os.Getenv("PROCMOND_GLOBAL_METRICS_ADDR"); v != "" {
		cfg.Global.MetricsAddr = v
	}
	if v := os.Getenv("PROCMOND_GLOBAL_METRICS_ENABLED"); v != "" {
		cfg.Global.MetricsEnabled = v == "true"
	}
	if v := os.Getenv("PROCMOND_GLOBAL_TRACING_ENABLED"); v != "" {
		cfg.Global.TracingEnabled = v == "true"
	}
	if v := os.Getenv("PROCMOND_GLOBAL_TRACING_EXPORTER"); v != "" {
		cfg.Global.TracingExporter = v
	}

	for name, prog := range cfg.Programs {
		prefix := fmt.Sprintf("PROCMOND_PROGRAM_%s_", strings.ToUpper(strings.ReplaceAll(name, "-", "_")))
		if v := os.Getenv(prefix + "POLICY"); v != "" {
			prog.Policy = v
		}
	}
}

// Validate checks the roster for the invariants spec.md §3/§6.1 require.
func (c *Config) Validate() error {
	switch c.Global.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log_level: %s", c.Global.LogLevel)
	}
	switch c.Global.LogFormat {
	case "json", "text":
	default:
		return fmt.Errorf("invalid log_format: %s", c.Global.LogFormat)
	}
	if c.Global.QuickRestartWindow <= 0 {
		return fmt.Errorf("quick_restart_window must be positive")
	}
	if c.Global.QuickRestartThreshold <= 0 {
		return fmt.Errorf("quick_restart_threshold must be positive")
	}

	if len(c.Programs) == 0 {
		return fmt.Errorf("no programs defined")
	}

	for name, prog := range c.Programs {
		if len(prog.Command) == 0 {
			return fmt.Errorf("program %s has no command", name)
		}
		if prog.Policy != "one-shot" && prog.Policy != "restart-on-exit" {
			return fmt.Errorf("program %s has invalid policy: %s", name, prog.Policy)
		}
		if _, err := resolveSignal(prog.TerminateSignal); err != nil {
			return fmt.Errorf("program %s: %w", name, err)
		}
		if prog.ShutdownDeadline < 0 {
			return fmt.Errorf("program %s has negative shutdown_deadline", name)
		}
	}

	return nil
}
