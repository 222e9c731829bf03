// Package model holds the shared data types flowing between the Rule Zero
// linter and the evidence report compiler.
package model

import "regexp"

// Severity classifies how a violation is enforced. Critical violations
// block (nonzero exit); warnings require manual confirmation only.
type Severity string

const (
	SevCritical Severity = "critical"
	SevWarning  Severity = "warning"
)

// Violation is a single positioned rule match in a test source file.
type Violation struct {
	File        string   `json:"file"`
	Line        int      `json:"line"` // 1-based
	RuleID      string   `json:"id"`
	Severity    Severity `json:"severity"`
	Description string   `json:"description"`
	Rule        string   `json:"rule"`
	Context     string   `json:"context"`
}

// Key identifies a violation for deduplication. Two distinct rules
// matching overlapping text at the same line are separate violations.
type Key struct {
	File   string
	Line   int
	RuleID string
}

// Key returns the deduplication key (file, line, rule id).
func (v Violation) Key() Key {
	return Key{File: v.File, Line: v.Line, RuleID: v.RuleID}
}

// Summary is the batch result of a lint run.
type Summary struct {
	Files      int         `json:"files"`
	Violations []Violation `json:"violations"`
	Critical   int         `json:"critical"`
	Warnings   int         `json:"warnings"`
	Skipped    int         `json:"skipped,omitempty"` // unreadable files, surfaced rather than dropped
	Status     string      `json:"status"`            // clean | warnings | blocked
}

const (
	StatusClean    = "clean"
	StatusWarnings = "warnings"
	StatusBlocked  = "blocked"
)

// TestStatus is the normalized outcome of one test record.
type TestStatus string

const (
	TestPassed  TestStatus = "passed"
	TestFailed  TestStatus = "failed"
	TestSkipped TestStatus = "skipped"
)

// TestRecord is one flattened test result tagged with its acceptance
// criterion, when the test title carries an AC-<n> prefix.
type TestRecord struct {
	Title      string     `json:"title"`
	ACID       string     `json:"acId,omitempty"`
	File       string     `json:"file,omitempty"`
	Line       int        `json:"line,omitempty"`
	Status     TestStatus `json:"status"`
	DurationMs int64      `json:"durationMs"`
	Logs       string     `json:"logs,omitempty"`
	Errors     []string   `json:"errors,omitempty"`
	Lane       string     `json:"lane,omitempty"` // e.g. "api" vs "e2e"
	Attempts   int        `json:"attempts,omitempty"`
}

// ACDefinition is one acceptance criterion from the resolved catalog.
type ACDefinition struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	MinTests    int    `json:"minTests"` // always >= 1
	Source      string `json:"source"`   // provenance, e.g. "config:teamwerk.yml"
}

// EvidenceImage is a screenshot artifact bound to an AC by filename
// convention (ac<number>-description.<ext>).
type EvidenceImage struct {
	FileName string `json:"fileName"`
	ACID     string `json:"acId,omitempty"`
	Caption  string `json:"caption"`
	MIME     string `json:"mime"`
	Base64   string `json:"base64"`
}

// ACIDPattern matches canonical acceptance-criterion identifiers.
var ACIDPattern = regexp.MustCompile(`^AC-\d+$`)
