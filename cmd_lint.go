package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mgerety/teamwerk/internal/config"
	"github.com/mgerety/teamwerk/internal/logging"
	"github.com/mgerety/teamwerk/internal/model"
	"github.com/mgerety/teamwerk/internal/scan"
	"github.com/mgerety/teamwerk/internal/support"
)

type lintOptions struct {
	dir      string
	file     string
	jsonOut  bool
	fixHints bool
}

func newLintCmd() *cobra.Command {
	var opts lintOptions
	cmd := &cobra.Command{
		Use:   "lint",
		Short: "Scan test files for code that mutates the system under test",
		Long:  "lint applies the Rule Zero catalog to test sources: a test may observe\nthe application but never change it. Critical violations (DOM mutation\nthrough script execution) block with exit code 1; warnings (property\nassignment on located elements) are reported for manual confirmation.",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace, err := os.Getwd()
			if err != nil {
				return err
			}
			code, err := runLint(workspace, opts, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			if code != 0 {
				os.Exit(code)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.dir, "dir", "", "directory to scan (default: auto-detected test directories)")
	cmd.Flags().StringVar(&opts.file, "file", "", "single file to scan")
	cmd.Flags().BoolVar(&opts.jsonOut, "json", false, "emit the summary as JSON on stdout")
	cmd.Flags().BoolVar(&opts.fixHints, "fix-suggestions", false, "include remediation hints per violation")
	return cmd
}

// runLint is the lint entry point, factored so tests can drive it with a
// fixture workspace and capture the exit code without a process exit.
func runLint(workspace string, opts lintOptions, out io.Writer) (int, error) {
	log := logging.New(debugFlag)
	defer log.Sync()

	cfg := config.Load(workspace)
	files, err := scan.Discover(workspace, scan.Options{Dir: opts.dir, File: opts.file}, cfg.Lint)
	if err != nil {
		return 1, err
	}
	violations, skipped := scan.New(log).ScanAll(files)
	sum := scan.Summarize(len(files), skipped, violations)

	if err := support.WriteJSONAtomic(filepath.Join(workspace, config.OutputDirName, "lint.json"), sum); err != nil {
		log.Warnw("could not persist lint summary", "error", err)
	}
	if err := support.AppendAudit(workspace, support.AuditEntry{
		Mode:     "lint",
		Files:    sum.Files,
		Critical: sum.Critical,
		Warnings: sum.Warnings,
		Status:   sum.Status,
	}); err != nil {
		log.Warnw("could not append audit entry", "error", err)
	}

	if opts.jsonOut {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(sum); err != nil {
			return 1, err
		}
	} else {
		printLint(out, workspace, sum, opts.fixHints)
	}
	if sum.Status == model.StatusBlocked {
		return 1, nil
	}
	return 0, nil
}

func printLint(out io.Writer, workspace string, sum model.Summary, fixHints bool) {
	for _, v := range sum.Violations {
		file := v.File
		if rel, err := filepath.Rel(workspace, v.File); err == nil {
			file = rel
		}
		marker := "WARN"
		if v.Severity == model.SevCritical {
			marker = "CRITICAL"
		}
		fmt.Fprintf(out, "%s:%d [%s] %s: %s\n", file, v.Line, marker, v.RuleID, v.Description)
		for _, line := range strings.Split(v.Context, "\n") {
			fmt.Fprintf(out, "  | %s\n", line)
		}
		if fixHints && v.Rule != "" {
			fmt.Fprintf(out, "  fix: %s\n", v.Rule)
		}
	}
	if len(sum.Violations) > 0 {
		fmt.Fprintln(out)
	}
	fmt.Fprintf(out, "%d file(s) scanned", sum.Files)
	if sum.Skipped > 0 {
		fmt.Fprintf(out, " (%d unreadable, skipped)", sum.Skipped)
	}
	fmt.Fprintf(out, ": %d critical, %d warning(s) -> %s\n", sum.Critical, sum.Warnings, sum.Status)
}
