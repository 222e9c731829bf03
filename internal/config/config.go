// Package config carries the compiled-in conventions for discovery,
// evidence lookup, and report output, with optional overrides read from
// the project config file (teamwerk.yml).
package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/mgerety/teamwerk/internal/support"
)

// ConfigFileName is the conventional project-config file at the
// workspace root.
const ConfigFileName = "teamwerk.yml"

// OutputDirName is the dot-directory where machine outputs land.
const OutputDirName = ".teamwerk"

// Config is the resolved tool configuration.
type Config struct {
	Project string
	Lint    LintConfig
	Report  ReportConfig
}

// LintConfig controls test-file discovery.
type LintConfig struct {
	// TestDirs are the conventional directory names tried when neither
	// --dir nor --file is given. All that exist are scanned.
	TestDirs []string
	// SkipDirs are directory names never recursed into.
	SkipDirs []string
}

// ReportConfig controls report input resolution and output.
type ReportConfig struct {
	// ResultsCandidates are tried in order when --results is omitted.
	ResultsCandidates []string
	// TemplateCandidate is tried when --template is omitted, before the
	// embedded default template.
	TemplateCandidate string
	// EvidenceDirs are tried in order; the first that exists is scanned.
	EvidenceDirs []string
	// Output is the default report destination.
	Output string
}

// Default returns the compiled-in configuration.
func Default() Config {
	return Config{
		Lint: LintConfig{
			TestDirs: []string{"tests", "test", "e2e", "spec", "__tests__", "cypress", "playwright"},
			SkipDirs: []string{
				"node_modules", ".git", "bin", "obj", "dist", "build",
				"__pycache__", ".venv", "venv", "vendor", OutputDirName,
			},
		},
		Report: ReportConfig{
			ResultsCandidates: []string{
				filepath.Join("test-results", "results.json"),
				"results.json",
				filepath.Join(OutputDirName, "results.json"),
			},
			TemplateCandidate: "report-template.html",
			EvidenceDirs:      []string{"evidence", "screenshots", "test-evidence"},
			Output:            "test-report.html",
		},
	}
}

// overrides mirrors the keys honored from teamwerk.yml. Unknown keys are
// ignored; the acceptance-criteria keys are read elsewhere.
type overrides struct {
	Project  string   `yaml:"project"`
	TestDirs []string `yaml:"test_dirs"`
	SkipDirs []string `yaml:"skip_dirs"`
	Evidence []string `yaml:"evidence_dirs"`
	Results  []string `yaml:"results_candidates"`
	Template string   `yaml:"template"`
	Output   string   `yaml:"output"`
}

// Load returns the defaults with any teamwerk.yml overrides applied.
// A missing or malformed override file leaves the defaults untouched.
func Load(workspace string) Config {
	cfg := Default()
	data, err := os.ReadFile(filepath.Join(workspace, ConfigFileName))
	if err != nil {
		return cfg
	}
	var ov overrides
	if err := yaml.Unmarshal(support.StripBOM(data), &ov); err != nil {
		return cfg
	}
	if ov.Project != "" {
		cfg.Project = ov.Project
	}
	if len(ov.TestDirs) > 0 {
		cfg.Lint.TestDirs = ov.TestDirs
	}
	if len(ov.SkipDirs) > 0 {
		cfg.Lint.SkipDirs = append(cfg.Lint.SkipDirs, ov.SkipDirs...)
	}
	if len(ov.Evidence) > 0 {
		cfg.Report.EvidenceDirs = ov.Evidence
	}
	if len(ov.Results) > 0 {
		cfg.Report.ResultsCandidates = ov.Results
	}
	if ov.Template != "" {
		cfg.Report.TemplateCandidate = ov.Template
	}
	if ov.Output != "" {
		cfg.Report.Output = ov.Output
	}
	return cfg
}
