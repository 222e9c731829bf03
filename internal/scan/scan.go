// Package scan locates candidate test files and applies the Rule Zero
// catalog to them, yielding positioned, deduplicated violations.
package scan

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/mgerety/teamwerk/internal/config"
	"github.com/mgerety/teamwerk/internal/model"
	"github.com/mgerety/teamwerk/internal/rules"
)

// Options selects what to scan. File wins over Dir; with neither set,
// conventional test directories under the workspace are auto-detected.
type Options struct {
	Dir  string
	File string
}

// contextRadius is how many lines around a match are captured for
// diagnostics.
const contextRadius = 2

var scriptSuffixes = []string{".js", ".jsx", ".ts", ".tsx", ".mjs"}

// IsTestFile reports whether a file name follows one of the per-language
// test naming conventions.
func IsTestFile(name string) bool {
	for _, ext := range scriptSuffixes {
		if strings.HasSuffix(name, ".spec"+ext) || strings.HasSuffix(name, ".test"+ext) {
			return true
		}
	}
	if strings.HasSuffix(name, "Tests.cs") || strings.HasSuffix(name, "Test.cs") {
		return true
	}
	if strings.HasSuffix(name, "_test.py") || (strings.HasPrefix(name, "test_") && strings.HasSuffix(name, ".py")) {
		return true
	}
	return strings.HasSuffix(name, "_test.go")
}

// Discover resolves the set of files to lint. An explicitly named file
// or directory that does not exist is an error; finding no conventional
// test directories is not (there is simply nothing to check).
func Discover(workspace string, opts Options, cfg config.LintConfig) ([]string, error) {
	if opts.File != "" {
		path := opts.File
		if !filepath.IsAbs(path) {
			path = filepath.Join(workspace, path)
		}
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("file not found: %s", opts.File)
		}
		return []string{path}, nil
	}
	if opts.Dir != "" {
		path := opts.Dir
		if !filepath.IsAbs(path) {
			path = filepath.Join(workspace, path)
		}
		info, err := os.Stat(path)
		if err != nil || !info.IsDir() {
			return nil, fmt.Errorf("directory not found: %s", opts.Dir)
		}
		return collectTestFiles(path, cfg.SkipDirs), nil
	}
	var files []string
	for _, name := range cfg.TestDirs {
		dir := filepath.Join(workspace, name)
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			files = append(files, collectTestFiles(dir, cfg.SkipDirs)...)
		}
	}
	return files, nil
}

func collectTestFiles(root string, skipDirs []string) []string {
	skip := map[string]struct{}{}
	for _, d := range skipDirs {
		skip[d] = struct{}{}
	}
	var files []string
	_ = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() {
			if _, ok := skip[info.Name()]; ok && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		if IsTestFile(info.Name()) {
			files = append(files, path)
		}
		return nil
	})
	return files
}

// Scanner applies the rule catalog to files.
type Scanner struct {
	log *zap.SugaredLogger
}

func New(log *zap.SugaredLogger) *Scanner {
	return &Scanner{log: log}
}

// ScanFile runs every rule scoped to the file's language over its full
// content. Matches are deduplicated by (file, line, rule id); warning
// matches on a line already carrying a critical violation are dropped,
// since the mutation there is proven rather than merely unconfirmed.
func (s *Scanner) ScanFile(path string) ([]model.Violation, error) {
	lang := rules.ForFile(path)
	if lang == rules.LangNone {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	content := string(data)
	lines := strings.Split(content, "\n")

	seen := map[model.Key]struct{}{}
	criticalLines := map[int]struct{}{}
	var out []model.Violation
	for _, rule := range rules.ForLanguage(lang) {
		for _, off := range rule.Matches(content) {
			line := 1 + strings.Count(content[:off], "\n")
			v := model.Violation{
				File:        path,
				Line:        line,
				RuleID:      rule.ID,
				Severity:    rule.Severity,
				Description: rule.Description,
				Rule:        rule.Remediation,
				Context:     contextAround(lines, line),
			}
			if _, dup := seen[v.Key()]; dup {
				continue
			}
			seen[v.Key()] = struct{}{}
			if v.Severity == model.SevCritical {
				criticalLines[line] = struct{}{}
			}
			out = append(out, v)
		}
	}
	filtered := out[:0]
	for _, v := range out {
		if v.Severity == model.SevWarning {
			if _, hot := criticalLines[v.Line]; hot {
				continue
			}
		}
		filtered = append(filtered, v)
	}
	return filtered, nil
}

// ScanAll scans each file, skipping unreadable ones with a logged
// diagnostic instead of aborting the batch. The skipped count is
// surfaced in the summary so read failures stay visible.
func (s *Scanner) ScanAll(paths []string) ([]model.Violation, int) {
	var all []model.Violation
	skipped := 0
	for _, p := range paths {
		vs, err := s.ScanFile(p)
		if err != nil {
			skipped++
			s.log.Warnw("skipping unreadable test file", "file", p, "error", err)
			continue
		}
		all = append(all, vs...)
	}
	Sort(all)
	return all, skipped
}

// Sort orders violations by file, line, then rule id for stable output.
func Sort(vs []model.Violation) {
	sort.Slice(vs, func(i, j int) bool {
		if vs[i].File != vs[j].File {
			return vs[i].File < vs[j].File
		}
		if vs[i].Line != vs[j].Line {
			return vs[i].Line < vs[j].Line
		}
		return vs[i].RuleID < vs[j].RuleID
	})
}

// Summarize classifies violations by severity and derives the batch
// status: blocked on any critical, warnings when only warnings exist,
// clean otherwise.
func Summarize(files, skipped int, vs []model.Violation) model.Summary {
	sum := model.Summary{
		Files:      files,
		Violations: vs,
		Skipped:    skipped,
		Status:     model.StatusClean,
	}
	if sum.Violations == nil {
		sum.Violations = []model.Violation{}
	}
	for _, v := range vs {
		switch v.Severity {
		case model.SevCritical:
			sum.Critical++
		case model.SevWarning:
			sum.Warnings++
		}
	}
	if sum.Critical > 0 {
		sum.Status = model.StatusBlocked
	} else if sum.Warnings > 0 {
		sum.Status = model.StatusWarnings
	}
	return sum
}

func contextAround(lines []string, line int) string {
	start := line - 1 - contextRadius
	if start < 0 {
		start = 0
	}
	end := line + contextRadius
	if end > len(lines) {
		end = len(lines)
	}
	return strings.Join(lines[start:end], "\n")
}
