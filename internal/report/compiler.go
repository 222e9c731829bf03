// Package report merges test records, the acceptance-criteria catalog,
// and evidence images into a coverage matrix, per-criterion detail
// sections, and a gap analysis, then renders a self-contained HTML
// document by substituting named placeholders into a template.
package report

import (
	_ "embed"
	"fmt"
	"html"
	"sort"
	"strings"
	"time"

	"github.com/mgerety/teamwerk/internal/model"
)

//go:embed template.html
var defaultTemplate string

// DefaultTemplate returns the embedded report template, used when no
// external template is supplied.
func DefaultTemplate() string {
	return defaultTemplate
}

// Coverage statuses for one acceptance criterion.
const (
	StatusPass     = "PASS"
	StatusFail     = "FAIL"
	StatusBelowMin = "BELOW-MIN"
)

// Input is everything the compiler consumes. All fields are optional;
// an empty input still yields a complete document.
type Input struct {
	Project     string
	GeneratedAt time.Time
	Records     []model.TestRecord
	Defs        []model.ACDefinition
	Images      []model.EvidenceImage
}

// ACRow is one traceability-matrix row.
type ACRow struct {
	Def        model.ACDefinition
	Tests      []model.TestRecord
	Passed     int
	Failed     int
	Status     string
	DurationMs int64
	Images     []model.EvidenceImage
}

// Build computes the matrix rows in ascending AC-number order.
func Build(in Input) []ACRow {
	byAC := map[string][]model.TestRecord{}
	for _, rec := range in.Records {
		if rec.ACID == "" {
			continue // counted in totals, excluded from the matrix
		}
		byAC[rec.ACID] = append(byAC[rec.ACID], rec)
	}
	imagesByAC := map[string][]model.EvidenceImage{}
	for _, img := range in.Images {
		if img.ACID != "" {
			imagesByAC[img.ACID] = append(imagesByAC[img.ACID], img)
		}
	}

	rows := make([]ACRow, 0, len(in.Defs))
	for _, def := range in.Defs {
		row := ACRow{Def: def, Tests: byAC[def.ID], Images: imagesByAC[def.ID]}
		for _, t := range row.Tests {
			row.DurationMs += t.DurationMs
			switch t.Status {
			case model.TestPassed:
				row.Passed++
			case model.TestFailed:
				row.Failed++
			}
		}
		switch {
		case row.Failed > 0:
			row.Status = StatusFail
		case len(row.Tests) < def.MinTests:
			row.Status = StatusBelowMin
		default:
			row.Status = StatusPass
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool {
		return acNumber(rows[i].Def.ID) < acNumber(rows[j].Def.ID)
	})
	return rows
}

// Gaps returns every criterion whose associated test count is below its
// configured minimum.
func Gaps(rows []ACRow) []ACRow {
	var gaps []ACRow
	for _, r := range rows {
		if len(r.Tests) < r.Def.MinTests {
			gaps = append(gaps, r)
		}
	}
	return gaps
}

// Compile renders the document. Substitution is a no-op for any
// placeholder the template does not carry; a trimmed-down template is a
// supported configuration, not an error.
func Compile(in Input, template string) string {
	rows := Build(in)
	gaps := Gaps(rows)

	total, passed, failed := 0, 0, 0
	var durationMs int64
	for _, rec := range in.Records {
		total++
		durationMs += rec.DurationMs
		switch rec.Status {
		case model.TestPassed:
			passed++
		case model.TestFailed:
			failed++
		}
	}

	project := in.Project
	if project == "" {
		project = "Untitled Project"
	}
	ts := in.GeneratedAt
	if ts.IsZero() {
		ts = time.Now()
	}

	r := strings.NewReplacer(
		"{{PROJECT_NAME}}", html.EscapeString(project),
		"{{TIMESTAMP}}", ts.UTC().Format("2006-01-02 15:04:05 UTC"),
		"{{DURATION}}", formatDuration(durationMs),
		"{{TOTAL}}", fmt.Sprintf("%d", total),
		"{{PASSED}}", fmt.Sprintf("%d", passed),
		"{{FAILED}}", fmt.Sprintf("%d", failed),
		"<!-- {{AC_ROWS}} -->", renderRows(rows),
		"<!-- {{AC_DETAIL_SECTIONS}} -->", renderDetails(rows)+renderGallery(in.Images),
		"<!-- {{GAPS}} -->", renderGaps(gaps),
		"<!-- {{REVIEW_SUMMARY}} -->", renderSummary(rows, gaps, total, passed, failed),
	)
	return r.Replace(template)
}

func renderRows(rows []ACRow) string {
	var b strings.Builder
	for _, row := range rows {
		fmt.Fprintf(&b,
			"<tr class=\"status-%s\"><td>%s</td><td>%s</td><td>%d / %d</td><td>%d</td><td>%d</td><td><span class=\"badge\">%s</span></td></tr>\n",
			strings.ToLower(row.Status),
			html.EscapeString(row.Def.ID),
			html.EscapeString(row.Def.Description),
			len(row.Tests), row.Def.MinTests,
			row.Passed, row.Failed,
			row.Status,
		)
	}
	return b.String()
}

func renderDetails(rows []ACRow) string {
	var b strings.Builder
	for _, row := range rows {
		if len(row.Tests) == 0 {
			continue
		}
		fmt.Fprintf(&b, "<section class=\"ac-detail status-%s\" id=\"%s\">\n", strings.ToLower(row.Status), html.EscapeString(row.Def.ID))
		fmt.Fprintf(&b, "<h3>%s — %s <span class=\"badge\">%s</span></h3>\n",
			html.EscapeString(row.Def.ID), html.EscapeString(row.Def.Description), row.Status)
		fmt.Fprintf(&b, "<p class=\"ac-meta\">%d test(s), %d passed, %d failed · %s · lanes: %s · %d screenshot(s)</p>\n",
			len(row.Tests), row.Passed, row.Failed,
			formatDuration(row.DurationMs), laneCounts(row.Tests), len(row.Images))
		for _, t := range row.Tests {
			renderTestCard(&b, t)
		}
		if len(row.Images) > 0 {
			b.WriteString("<div class=\"screenshots\">\n")
			for _, img := range row.Images {
				renderImage(&b, img)
			}
			b.WriteString("</div>\n")
		}
		b.WriteString("</section>\n")
	}
	return b.String()
}

func renderTestCard(b *strings.Builder, t model.TestRecord) {
	fmt.Fprintf(b, "<div class=\"test-card test-%s\">", t.Status)
	fmt.Fprintf(b, "<span class=\"badge\">%s</span> ", strings.ToUpper(string(t.Status)))
	if t.Lane != "" {
		fmt.Fprintf(b, "<span class=\"lane\">[%s]</span> ", html.EscapeString(t.Lane))
	}
	fmt.Fprintf(b, "<strong>%s</strong> <span class=\"duration\">%s</span>", html.EscapeString(t.Title), formatDuration(t.DurationMs))
	if t.File != "" {
		fmt.Fprintf(b, "<div class=\"source\">%s:%d</div>", html.EscapeString(t.File), t.Line)
	}
	if t.Attempts > 1 {
		fmt.Fprintf(b, "<div class=\"attempts\">settled after %d attempts</div>", t.Attempts)
	}
	for _, e := range t.Errors {
		fmt.Fprintf(b, "<pre class=\"error\">%s</pre>", html.EscapeString(e))
	}
	if t.Logs != "" {
		fmt.Fprintf(b, "<pre class=\"log\">%s</pre>", html.EscapeString(t.Logs))
	}
	b.WriteString("</div>\n")
}

func renderImage(b *strings.Builder, img model.EvidenceImage) {
	fmt.Fprintf(b,
		"<figure><img src=\"data:%s;base64,%s\" alt=\"%s\"/><figcaption>%s</figcaption></figure>\n",
		img.MIME, img.Base64, html.EscapeString(img.Caption), html.EscapeString(img.Caption))
}

// renderGallery embeds images that resolved to no criterion so captured
// evidence is never silently dropped from the document.
func renderGallery(images []model.EvidenceImage) string {
	var orphans []model.EvidenceImage
	for _, img := range images {
		if img.ACID == "" {
			orphans = append(orphans, img)
		}
	}
	if len(orphans) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("<section class=\"ac-detail gallery\">\n<h3>Additional Evidence</h3>\n<div class=\"screenshots\">\n")
	for _, img := range orphans {
		renderImage(&b, img)
	}
	b.WriteString("</div>\n</section>\n")
	return b.String()
}

func renderGaps(gaps []ACRow) string {
	if len(gaps) == 0 {
		return "<p class=\"no-gaps\">No coverage gaps: every acceptance criterion meets its minimum test count.</p>\n"
	}
	var b strings.Builder
	b.WriteString("<ul class=\"gaps\">\n")
	for _, g := range gaps {
		fmt.Fprintf(&b, "<li><strong>%s</strong> %s — %d of %d required test(s)</li>\n",
			html.EscapeString(g.Def.ID), html.EscapeString(g.Def.Description),
			len(g.Tests), g.Def.MinTests)
	}
	b.WriteString("</ul>\n")
	return b.String()
}

func renderSummary(rows []ACRow, gaps []ACRow, total, passed, failed int) string {
	passing := 0
	for _, r := range rows {
		if r.Status == StatusPass {
			passing++
		}
	}
	verdict := "READY FOR REVIEW"
	if failed > 0 || len(gaps) > 0 {
		verdict = "NOT READY"
	}
	return fmt.Sprintf(
		"<p class=\"review-summary\">%d/%d acceptance criteria passing · %d test(s) run, %d passed, %d failed · %d coverage gap(s) · <strong>%s</strong></p>\n",
		passing, len(rows), total, passed, failed, len(gaps), verdict)
}

func laneCounts(tests []model.TestRecord) string {
	counts := map[string]int{}
	for _, t := range tests {
		lane := t.Lane
		if lane == "" {
			lane = "default"
		}
		counts[lane]++
	}
	lanes := make([]string, 0, len(counts))
	for lane := range counts {
		lanes = append(lanes, lane)
	}
	sort.Strings(lanes)
	parts := make([]string, 0, len(lanes))
	for _, lane := range lanes {
		parts = append(parts, fmt.Sprintf("%s=%d", html.EscapeString(lane), counts[lane]))
	}
	return strings.Join(parts, ", ")
}

func formatDuration(ms int64) string {
	switch {
	case ms < 1000:
		return fmt.Sprintf("%dms", ms)
	case ms < 60_000:
		return fmt.Sprintf("%.1fs", float64(ms)/1000)
	default:
		return fmt.Sprintf("%dm%02ds", ms/60_000, (ms%60_000)/1000)
	}
}

func acNumber(id string) int {
	n := 0
	for _, c := range strings.TrimPrefix(id, "AC-") {
		if c < '0' || c > '9' {
			break
		}
		n = n*10 + int(c-'0')
	}
	return n
}
