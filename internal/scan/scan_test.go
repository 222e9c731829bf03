package scan

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/mgerety/teamwerk/internal/config"
	"github.com/mgerety/teamwerk/internal/model"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func newScanner() *Scanner {
	return New(zap.NewNop().Sugar())
}

func TestIsTestFile(t *testing.T) {
	cases := []struct {
		name string
		want bool
	}{
		{"login.spec.ts", true},
		{"cart.test.jsx", true},
		{"checkout.spec.mjs", true},
		{"LoginTests.cs", true},
		{"CartTest.cs", true},
		{"test_login.py", true},
		{"login_test.py", true},
		{"scan_test.go", true},
		{"login.ts", false},
		{"helpers.py", false},
		{"Login.cs", false},
	}
	for _, tc := range cases {
		if got := IsTestFile(tc.name); got != tc.want {
			t.Fatalf("IsTestFile(%q) = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestScanFileReadOnlyTestIsClean(t *testing.T) {
	tmp := t.TempDir()
	path := writeFile(t, tmp, "clean.spec.ts", `
import { test, expect } from '@playwright/test';

test('dashboard renders the welcome banner', async ({ page }) => {
  await page.goto('/dashboard');
  const text = await page.evaluate(() => document.title);
  expect(text).toContain('Dashboard');
  await expect(page.locator('#welcome')).toBeVisible();
});
`)
	vs, err := newScanner().ScanFile(path)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(vs) != 0 {
		t.Fatalf("read-only test produced %d violation(s): %+v", len(vs), vs)
	}
}

func TestScanFileEvaluateStyleMutation(t *testing.T) {
	tmp := t.TempDir()
	path := writeFile(t, tmp, "hide.spec.ts", `
test('overlay does not block the form', async ({ page }) => {
  await page.evaluate(() => { document.querySelector('.overlay').style.display = 'none'; });
  await page.fill('#email', 'a@b.c');
});
`)
	vs, err := newScanner().ScanFile(path)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(vs) != 1 {
		t.Fatalf("expected exactly 1 violation, got %d: %+v", len(vs), vs)
	}
	v := vs[0]
	if v.RuleID != "script-exec-style-mutation" {
		t.Fatalf("rule id = %q", v.RuleID)
	}
	if v.Severity != model.SevCritical {
		t.Fatalf("severity = %q, want critical", v.Severity)
	}
	if v.Line != 3 {
		t.Fatalf("line = %d, want 3", v.Line)
	}
	if v.Context == "" {
		t.Fatalf("missing context excerpt")
	}
}

func TestScanFileDedupesSameRuleSameLine(t *testing.T) {
	tmp := t.TempDir()
	// Two style assignments inside one evaluate on one line: one finding.
	path := writeFile(t, tmp, "double.spec.ts", `await page.evaluate(() => { a.style.color = 'red'; b.style.color = 'red'; });`)
	vs, err := newScanner().ScanFile(path)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(vs) != 1 {
		t.Fatalf("expected 1 deduplicated violation, got %d", len(vs))
	}
}

func TestScanFileDistinctRulesSameLineBothReported(t *testing.T) {
	tmp := t.TempDir()
	path := writeFile(t, tmp, "multi.spec.ts", `await page.evaluate(() => { el.style.color = 'red'; el.innerHTML = ''; });`)
	vs, err := newScanner().ScanFile(path)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	ids := map[string]bool{}
	for _, v := range vs {
		ids[v.RuleID] = true
	}
	if !ids["script-exec-style-mutation"] || !ids["script-exec-dom-prop-mutation"] {
		t.Fatalf("expected both rules on the line, got %+v", vs)
	}
}

func TestScanFileWarningSuppressedOnCriticalLine(t *testing.T) {
	tmp := t.TempDir()
	path := writeFile(t, tmp, "mixed.spec.ts", `page.evaluate(() => { document.getElementById('x').style.width = '0'; });`)
	vs, err := newScanner().ScanFile(path)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	for _, v := range vs {
		if v.Severity == model.SevWarning {
			t.Fatalf("warning reported on a line already carrying a critical: %+v", v)
		}
	}
	if len(vs) == 0 {
		t.Fatalf("expected the critical violation to survive")
	}
}

func TestDiscoverAutoDetectsConventionalDirs(t *testing.T) {
	tmp := t.TempDir()
	writeFile(t, tmp, filepath.Join("tests", "a.spec.ts"), "x")
	writeFile(t, tmp, filepath.Join("e2e", "b.test.js"), "x")
	writeFile(t, tmp, filepath.Join("e2e", "node_modules", "dep", "c.spec.ts"), "x")
	writeFile(t, tmp, filepath.Join("src", "d.spec.ts"), "x")

	files, err := Discover(tmp, Options{}, config.Default().Lint)
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("discovered %d file(s), want 2: %v", len(files), files)
	}
}

func TestDiscoverNoTestDirsIsNotAnError(t *testing.T) {
	tmp := t.TempDir()
	files, err := Discover(tmp, Options{}, config.Default().Lint)
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if len(files) != 0 {
		t.Fatalf("discovered %d file(s) in an empty workspace", len(files))
	}
}

func TestDiscoverMissingExplicitTargets(t *testing.T) {
	tmp := t.TempDir()
	if _, err := Discover(tmp, Options{File: "nope.spec.ts"}, config.Default().Lint); err == nil {
		t.Fatalf("missing explicit file did not error")
	}
	if _, err := Discover(tmp, Options{Dir: "nope"}, config.Default().Lint); err == nil {
		t.Fatalf("missing explicit directory did not error")
	}
}

func TestScanAllSkipsUnreadableFiles(t *testing.T) {
	tmp := t.TempDir()
	good := writeFile(t, tmp, "good.spec.ts", `await page.evaluate(() => { el.style.width = '0'; });`)
	missing := filepath.Join(tmp, "gone.spec.ts")

	vs, skipped := newScanner().ScanAll([]string{good, missing})
	if skipped != 1 {
		t.Fatalf("skipped = %d, want 1", skipped)
	}
	if len(vs) != 1 {
		t.Fatalf("violations = %d, want 1", len(vs))
	}
}

func TestSummarize(t *testing.T) {
	cases := []struct {
		name   string
		vs     []model.Violation
		status string
	}{
		{"clean", nil, model.StatusClean},
		{"warnings only", []model.Violation{{Severity: model.SevWarning}}, model.StatusWarnings},
		{"critical blocks", []model.Violation{{Severity: model.SevWarning}, {Severity: model.SevCritical}}, model.StatusBlocked},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			sum := Summarize(3, 0, tc.vs)
			if sum.Status != tc.status {
				t.Fatalf("status = %q, want %q", sum.Status, tc.status)
			}
			if sum.Violations == nil {
				t.Fatalf("violations slice must never be nil")
			}
		})
	}
}
