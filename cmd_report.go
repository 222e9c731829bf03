package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mgerety/teamwerk/internal/acdef"
	"github.com/mgerety/teamwerk/internal/config"
	"github.com/mgerety/teamwerk/internal/evidence"
	"github.com/mgerety/teamwerk/internal/logging"
	"github.com/mgerety/teamwerk/internal/model"
	"github.com/mgerety/teamwerk/internal/report"
	"github.com/mgerety/teamwerk/internal/results"
	"github.com/mgerety/teamwerk/internal/support"
)

type reportOptions struct {
	results    string
	template   string
	output     string
	configPath string
}

func newReportCmd() *cobra.Command {
	var opts reportOptions
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Compile test results and evidence into an HTML report",
		Long:  "report reads a test-runner results file, resolves the acceptance-criteria\ncatalog, binds screenshot evidence by filename, and writes one\nself-contained HTML traceability document.",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace, err := os.Getwd()
			if err != nil {
				return err
			}
			return runReport(workspace, opts, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&opts.results, "results", "", "path to the test-runner results JSON")
	cmd.Flags().StringVar(&opts.template, "template", "", "path to a custom HTML template")
	cmd.Flags().StringVar(&opts.output, "output", "", "where to write the report (default: test-report.html)")
	cmd.Flags().StringVar(&opts.configPath, "config", "", "path to an acceptance-criteria config file")
	return cmd
}

func runReport(workspace string, opts reportOptions, out io.Writer) error {
	log := logging.New(debugFlag)
	defer log.Sync()

	cfg := config.Load(workspace)
	resultsPath, err := resolveResults(workspace, opts.results, cfg.Report.ResultsCandidates)
	if err != nil {
		return err
	}
	records, err := results.Load(resultsPath)
	if err != nil {
		return err
	}

	defs, project := acdef.NewResolver(workspace, log).Resolve(opts.configPath, records)
	if project == "" {
		project = cfg.Project
	}
	images := evidence.Collect(workspace, cfg.Report.EvidenceDirs, log)

	tmpl, err := loadTemplate(workspace, opts.template, cfg.Report.TemplateCandidate)
	if err != nil {
		return err
	}

	doc := report.Compile(report.Input{
		Project:     project,
		GeneratedAt: time.Now(),
		Records:     records,
		Defs:        defs,
		Images:      images,
	}, tmpl)

	outPath := opts.output
	if outPath == "" {
		outPath = cfg.Report.Output
	}
	if !filepath.IsAbs(outPath) {
		outPath = filepath.Join(workspace, outPath)
	}
	if err := support.WriteFileAtomic(outPath, []byte(doc)); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}

	passed, failed := 0, 0
	for _, rec := range records {
		switch rec.Status {
		case model.TestPassed:
			passed++
		case model.TestFailed:
			failed++
		}
	}
	if err := support.AppendAudit(workspace, support.AuditEntry{
		Mode:   "report",
		Total:  len(records),
		Passed: passed,
		Failed: failed,
		Output: outPath,
	}); err != nil {
		log.Warnw("could not append audit entry", "error", err)
	}

	fmt.Fprintf(out, "report written to %s (%d test(s), %d criteria, %d image(s))\n",
		outPath, len(records), len(defs), len(images))
	return nil
}

// resolveResults picks the results file. An explicitly named file must
// exist; with none named, candidates are tried in order and exhausting
// them is a hard error listing every path tried.
func resolveResults(workspace, explicit string, candidates []string) (string, error) {
	if explicit != "" {
		path := explicit
		if !filepath.IsAbs(path) {
			path = filepath.Join(workspace, path)
		}
		if _, err := os.Stat(path); err != nil {
			return "", fmt.Errorf("results file not found: %s", explicit)
		}
		return path, nil
	}
	tried := make([]string, 0, len(candidates))
	for _, rel := range candidates {
		path := filepath.Join(workspace, rel)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
		tried = append(tried, rel)
	}
	return "", fmt.Errorf("no results file found; tried: %s", strings.Join(tried, ", "))
}

// loadTemplate resolves the HTML template: an explicit path must exist,
// the conventional workspace template is used when present, and the
// embedded default covers everything else.
func loadTemplate(workspace, explicit, conventional string) (string, error) {
	if explicit != "" {
		path := explicit
		if !filepath.IsAbs(path) {
			path = filepath.Join(workspace, path)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("template not found: %s", explicit)
		}
		return string(support.StripBOM(data)), nil
	}
	if conventional != "" {
		if data, err := os.ReadFile(filepath.Join(workspace, conventional)); err == nil {
			return string(support.StripBOM(data)), nil
		}
	}
	return report.DefaultTemplate(), nil
}
