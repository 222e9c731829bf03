package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadWithoutConfigFileUsesDefaults(t *testing.T) {
	cfg := Load(t.TempDir())
	def := Default()
	if cfg.Project != "" {
		t.Fatalf("project = %q, want empty", cfg.Project)
	}
	if len(cfg.Lint.TestDirs) != len(def.Lint.TestDirs) {
		t.Fatalf("test dirs altered without overrides")
	}
	if cfg.Report.Output != "test-report.html" {
		t.Fatalf("output = %q", cfg.Report.Output)
	}
}

func TestLoadAppliesOverrides(t *testing.T) {
	tmp := t.TempDir()
	content := `
project: Checkout Revamp
test_dirs:
  - integration
skip_dirs:
  - generated
output: reports/latest.html
`
	if err := os.WriteFile(filepath.Join(tmp, ConfigFileName), []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg := Load(tmp)
	if cfg.Project != "Checkout Revamp" {
		t.Fatalf("project = %q", cfg.Project)
	}
	if len(cfg.Lint.TestDirs) != 1 || cfg.Lint.TestDirs[0] != "integration" {
		t.Fatalf("test dirs = %v", cfg.Lint.TestDirs)
	}
	// skip_dirs extends the built-in set rather than replacing it.
	found := map[string]bool{}
	for _, d := range cfg.Lint.SkipDirs {
		found[d] = true
	}
	if !found["generated"] || !found["node_modules"] {
		t.Fatalf("skip dirs = %v", cfg.Lint.SkipDirs)
	}
	if cfg.Report.Output != "reports/latest.html" {
		t.Fatalf("output = %q", cfg.Report.Output)
	}
}

func TestLoadMalformedConfigFallsBackToDefaults(t *testing.T) {
	tmp := t.TempDir()
	if err := os.WriteFile(filepath.Join(tmp, ConfigFileName), []byte("project: [broken"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg := Load(tmp)
	if cfg.Report.Output != "test-report.html" {
		t.Fatalf("malformed config changed defaults: %q", cfg.Report.Output)
	}
}
