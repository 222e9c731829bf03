// Package results normalizes a structured test-run result tree
// (suite -> spec -> test -> result) into flat records tagged with
// acceptance-criteria ids.
package results

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/mgerety/teamwerk/internal/model"
	"github.com/mgerety/teamwerk/internal/support"
)

// Mirror of the runner's JSON shape. Only the fields consumed here are
// declared; everything else passes through unmarshalling untouched.
type runReport struct {
	Suites []runSuite `json:"suites"`
}

type runSuite struct {
	Title  string     `json:"title"`
	File   string     `json:"file"`
	Suites []runSuite `json:"suites"`
	Specs  []runSpec  `json:"specs"`
}

type runSpec struct {
	Title string    `json:"title"`
	File  string    `json:"file"`
	Line  int       `json:"line"`
	Tests []runTest `json:"tests"`
}

type runTest struct {
	ProjectName string      `json:"projectName"`
	Results     []runResult `json:"results"`
}

type runResult struct {
	Status   string     `json:"status"`
	Duration int64      `json:"duration"`
	Errors   []runError `json:"errors"`
	Stdout   []runChunk `json:"stdout"`
	Stderr   []runChunk `json:"stderr"`
}

type runError struct {
	Message string `json:"message"`
}

type runChunk struct {
	Text string `json:"text"`
}

var (
	acTitle = regexp.MustCompile(`^(AC-\d+)\b`)
	ansiSeq = regexp.MustCompile("\x1b\\[[0-9;]*[A-Za-z]")
)

// Load reads and normalizes a results file. Unparseable JSON is an
// error for the caller to treat as fatal; the report must never be
// built from a tree that failed to decode.
func Load(path string) ([]model.TestRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read results %s: %w", path, err)
	}
	var rep runReport
	if err := json.Unmarshal(support.StripBOM(data), &rep); err != nil {
		return nil, fmt.Errorf("parse results %s: %w", path, err)
	}
	var records []model.TestRecord
	for _, s := range rep.Suites {
		walkSuite(s, &records)
	}
	return records, nil
}

func walkSuite(s runSuite, out *[]model.TestRecord) {
	for _, spec := range s.Specs {
		if rec, ok := normalizeSpec(spec); ok {
			*out = append(*out, rec)
		}
	}
	for _, child := range s.Suites {
		walkSuite(child, out)
	}
}

// normalizeSpec flattens one leaf spec: its first test entry, with the
// final result entry determining status so that a retried-then-passed
// test reports its settled outcome. The attempt count keeps flakiness
// visible.
func normalizeSpec(spec runSpec) (model.TestRecord, bool) {
	if len(spec.Tests) == 0 {
		return model.TestRecord{}, false
	}
	test := spec.Tests[0]
	if len(test.Results) == 0 {
		return model.TestRecord{}, false
	}
	final := test.Results[len(test.Results)-1]

	rec := model.TestRecord{
		Title:      spec.Title,
		File:       spec.File,
		Line:       spec.Line,
		Status:     normalizeStatus(final.Status),
		DurationMs: final.Duration,
		Lane:       test.ProjectName,
		Attempts:   len(test.Results),
	}
	if m := acTitle.FindStringSubmatch(spec.Title); m != nil {
		rec.ACID = m[1]
	}
	var logs strings.Builder
	for _, c := range final.Stdout {
		logs.WriteString(c.Text)
	}
	for _, c := range final.Stderr {
		logs.WriteString(c.Text)
	}
	rec.Logs = StripANSI(logs.String())
	for _, e := range final.Errors {
		if msg := strings.TrimSpace(StripANSI(e.Message)); msg != "" {
			rec.Errors = append(rec.Errors, msg)
		}
	}
	return rec, true
}

func normalizeStatus(s string) model.TestStatus {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "passed", "expected":
		return model.TestPassed
	case "skipped", "pending":
		return model.TestSkipped
	default:
		// failed, timedOut, interrupted, unexpected
		return model.TestFailed
	}
}

// StripANSI removes terminal color-escape sequences from captured logs.
func StripANSI(s string) string {
	return ansiSeq.ReplaceAllString(s, "")
}
