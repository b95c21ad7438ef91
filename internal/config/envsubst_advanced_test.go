package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadWithEnvExpansion_NoFile(t *testing.T) {
	tmpDir := t.TempDir()
	nonexistentPath := filepath.Join(tmpDir, "nonexistent.yaml")

	os.Setenv("PROCMOND_GLOBAL_LOG_LEVEL", "debug")
	defer os.Unsetenv("PROCMOND_GLOBAL_LOG_LEVEL")

	// No file and no programs defined: Validate() rejects the empty
	// roster, same as Load() would for a missing default-path file.
	if _, err := LoadWithEnvExpansion(nonexistentPath); err == nil {
		t.Fatal("expected error for empty roster, got nil")
	}
}

func TestLoadWithEnvExpansion_GlobalOverrides(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "procmond.yaml")
	content := `
global:
  log_level: info
programs:
  web:
    command: ["/bin/web"]
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	os.Setenv("PROCMOND_GLOBAL_LOG_LEVEL", "debug")
	os.Setenv("PROCMOND_GLOBAL_METRICS_ADDR", ":9999")
	defer func() {
		os.Unsetenv("PROCMOND_GLOBAL_LOG_LEVEL")
		os.Unsetenv("PROCMOND_GLOBAL_METRICS_ADDR")
	}()

	cfg, err := LoadWithEnvExpansion(path)
	if err != nil {
		t.Fatalf("LoadWithEnvExpansion() error = %v", err)
	}

	if cfg.Global.LogLevel != "debug" {
		t.Errorf("LogLevel = %v, want debug (env override)", cfg.Global.LogLevel)
	}
	if cfg.Global.MetricsAddr != ":9999" {
		t.Errorf("MetricsAddr = %v, want :9999 (env override)", cfg.Global.MetricsAddr)
	}
}

func TestLoadWithEnvExpansion_ProgramPolicyOverride(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "procmond.yaml")
	content := `
programs:
  web:
    command: ["/bin/web"]
    policy: restart-on-exit
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	os.Setenv("PROCMOND_PROGRAM_WEB_POLICY", "one-shot")
	defer os.Unsetenv("PROCMOND_PROGRAM_WEB_POLICY")

	cfg, err := LoadWithEnvExpansion(path)
	if err != nil {
		t.Fatalf("LoadWithEnvExpansion() error = %v", err)
	}

	if cfg.Programs["web"].Policy != "one-shot" {
		t.Errorf("policy = %v, want one-shot (env override)", cfg.Programs["web"].Policy)
	}
}
