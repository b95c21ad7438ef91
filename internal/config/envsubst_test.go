package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestExpandEnv(t *testing.T) {
	os.Setenv("TEST_VAR", "test_value")
	os.Setenv("TEST_PORT", "8080")
	defer func() {
		os.Unsetenv("TEST_VAR")
		os.Unsetenv("TEST_PORT")
	}()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"simple variable", "${TEST_VAR}", "test_value"},
		{"variable with default (var exists)", "${TEST_VAR:-default}", "test_value"},
		{"variable with default (var missing)", "${MISSING_VAR:-default_value}", "default_value"},
		{"variable in string", "port: ${TEST_PORT}", "port: 8080"},
		{"multiple variables", "${TEST_VAR} and ${TEST_PORT}", "test_value and 8080"},
		{"missing variable no default", "${MISSING_VAR}", ""},
		{"no variables", "plain text", "plain text"},
		{"empty default", "${MISSING_VAR:-}", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExpandEnv(tt.input)
			if got != tt.want {
				t.Errorf("ExpandEnv() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLoadWithEnvExpansion(t *testing.T) {
	tmpDir := t.TempDir()

	configContent := `version: "1.0"
global:
  log_level: ${LOG_LEVEL:-info}

programs:
  test-program:
    command: ["${TEST_COMMAND:-sleep}", "1"]
    policy: restart-on-exit
`

	configPath := filepath.Join(tmpDir, "test-config.yaml")
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	os.Setenv("LOG_LEVEL", "debug")
	os.Setenv("TEST_COMMAND", "echo")
	defer func() {
		os.Unsetenv("LOG_LEVEL")
		os.Unsetenv("TEST_COMMAND")
	}()

	cfg, err := LoadWithEnvExpansion(configPath)
	if err != nil {
		t.Fatalf("LoadWithEnvExpansion() error = %v", err)
	}

	if cfg.Global.LogLevel != "debug" {
		t.Errorf("LogLevel = %v, want debug", cfg.Global.LogLevel)
	}

	if prog, ok := cfg.Programs["test-program"]; ok {
		if len(prog.Command) == 0 || prog.Command[0] != "echo" {
			t.Errorf("Command[0] = %v, want echo", prog.Command[0])
		}
	} else {
		t.Error("test-program not found in config")
	}
}

func TestLoadWithEnvExpansion_WithDefaults(t *testing.T) {
	tmpDir := t.TempDir()

	configContent := `version: "1.0"
global:
  log_level: ${LOG_LEVEL:-warn}

programs:
  test-program:
    command: ["sleep", "1"]
    policy: restart-on-exit
`

	configPath := filepath.Join(tmpDir, "test-config.yaml")
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := LoadWithEnvExpansion(configPath)
	if err != nil {
		t.Fatalf("LoadWithEnvExpansion() error = %v", err)
	}

	if cfg.Global.LogLevel != "warn" {
		t.Errorf("LogLevel = %v, want warn", cfg.Global.LogLevel)
	}
}

func TestLoadWithEnvExpansion_InvalidFile(t *testing.T) {
	_, err := LoadWithEnvExpansion("/nonexistent/config.yaml")
	if err == nil {
		t.Error("LoadWithEnvExpansion() expected error for nonexistent file")
	}
}

func TestLoadWithEnvExpansion_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()

	configContent := `invalid: yaml: content: [[[`
	configPath := filepath.Join(tmpDir, "invalid.yaml")
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	if _, err := LoadWithEnvExpansion(configPath); err == nil {
		t.Error("LoadWithEnvExpansion() expected error for invalid YAML")
	}
}
