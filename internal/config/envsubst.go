package config

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// ExpandEnv expands environment variables in config content.
// Supports ${VAR:-default} and ${VAR} syntax.
func ExpandEnv(content string) string {
	// Pattern: ${VAR:-default} or ${VAR}
	pattern := regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

	return pattern.ReplaceAllStringFunc(content, func(match string) string {
		parts := pattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		varName := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		// Get from environment or use default
		if value := os.Getenv(varName); value != "" {
			return value
		}

		return defaultValue
	})
}

// LoadWithEnvExpansion loads the roster from an explicit path (the
// --config flag's path, per cmd/procmond/root.go), expanding
// ${VAR}/${VAR:-default} references before applying the same
// PROCMOND_GLOBAL_*/PROCMOND_PROGRAM_<NAME>_POLICY overrides Load()
// applies for its default search path — one override surface
// (applyEnvOverrides, in config.go) regardless of which path chose the
// file.
func LoadWithEnvExpansion(path string) (*Config, error) {
	cfg := &Config{Programs: make(map[string]*Program)}

	content, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		fmt.Fprintf(os.Stderr, "ℹ️  No config file found at %s, using environment variables only\n", path)
	} else {
		expanded := ExpandEnv(string(content))
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if cfg.Programs == nil {
		cfg.Programs = make(map[string]*Program)
	}

	cfg.SetDefaults()
	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}
