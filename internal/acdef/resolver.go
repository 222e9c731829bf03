// Package acdef resolves the canonical acceptance-criteria catalog via
// an ordered, short-circuiting fallback chain: explicit config file,
// conventional config file, conventional markdown documents, and
// finally inference from ingested test titles. The first source that
// yields at least one definition wins.
package acdef

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	gtext "github.com/yuin/goldmark/text"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/mgerety/teamwerk/internal/config"
	"github.com/mgerety/teamwerk/internal/model"
	"github.com/mgerety/teamwerk/internal/support"
)

// MarkdownCandidates are the conventional AC documents, in priority
// order, relative to the workspace root.
var MarkdownCandidates = []string{
	"ACCEPTANCE_CRITERIA.md",
	filepath.Join("docs", "ACCEPTANCE_CRITERIA.md"),
	"REQUIREMENTS.md",
}

var (
	acLine   = regexp.MustCompile(`^(AC-\d+)[:\s-]+(.+)$`)
	acPrefix = regexp.MustCompile(`^(AC-\d+)[:\s-]*`)
)

// Resolver threads the working directory through every source instead
// of relying on ambient process state.
type Resolver struct {
	Workspace string
	log       *zap.SugaredLogger
}

func NewResolver(workspace string, log *zap.SugaredLogger) *Resolver {
	return &Resolver{Workspace: workspace, log: log}
}

// Resolve walks the fallback chain. explicit may be empty. records are
// the already-ingested test records used by the inference source of
// last resort. The returned project name is taken from the first config
// file that parses, independent of which source supplied the catalog.
func (r *Resolver) Resolve(explicit string, records []model.TestRecord) ([]model.ACDefinition, string) {
	type source struct {
		name string
		load func() []model.ACDefinition
	}

	project := ""
	minimums := map[string]int{}
	loadConfig := func(path string) []model.ACDefinition {
		defs, cfg, err := parseConfigFile(path)
		if err != nil {
			r.log.Debugw("config source unusable, falling through", "path", path, "error", err)
			return nil
		}
		if project == "" {
			project = cfg.project
		}
		for id, n := range cfg.minimums {
			minimums[id] = n
		}
		return defs
	}

	conventional := filepath.Join(r.Workspace, config.ConfigFileName)
	sources := []source{
		{"explicit config", func() []model.ACDefinition {
			if explicit == "" {
				return nil
			}
			return loadConfig(explicit)
		}},
		{"project config", func() []model.ACDefinition {
			return loadConfig(conventional)
		}},
		{"markdown", func() []model.ACDefinition {
			for _, rel := range MarkdownCandidates {
				path := filepath.Join(r.Workspace, rel)
				data, err := os.ReadFile(path)
				if err != nil {
					continue
				}
				if defs := extractFromMarkdown(support.StripBOM(data), "markdown:"+rel); len(defs) > 0 {
					return defs
				}
			}
			return nil
		}},
		{"test titles", func() []model.ACDefinition {
			return inferFromRecords(records)
		}},
	}

	var defs []model.ACDefinition
	for _, s := range sources {
		if defs = s.load(); len(defs) > 0 {
			r.log.Debugw("acceptance criteria resolved", "source", s.name, "count", len(defs))
			break
		}
	}
	for i := range defs {
		if n, ok := minimums[defs[i].ID]; ok && n > defs[i].MinTests {
			defs[i].MinTests = n
		}
	}
	return defs, project
}

type configContent struct {
	project  string
	minimums map[string]int
}

// parseConfigFile reads the deliberately minimal project-config format:
// top-level key: value pairs, one level of nested key: value under an
// object-valued top key, and "- item" sequences under a top key.
// Deeper nesting is unsupported by design and such entries are ignored.
func parseConfigFile(path string) ([]model.ACDefinition, configContent, error) {
	out := configContent{minimums: map[string]int{}}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, out, err
	}
	var raw map[string]interface{}
	if err := yaml.Unmarshal(support.StripBOM(data), &raw); err != nil {
		return nil, out, fmt.Errorf("parse %s: %w", path, err)
	}
	if s, ok := raw["project"].(string); ok {
		out.project = s
	}

	source := "config:" + filepath.Base(path)
	var defs []model.ACDefinition
	switch crit := raw["acceptance_criteria"].(type) {
	case map[string]interface{}:
		for id, v := range crit {
			desc, ok := v.(string)
			if !ok || !model.ACIDPattern.MatchString(id) {
				continue // deeper nesting or malformed id: unsupported
			}
			defs = append(defs, model.ACDefinition{ID: id, Description: desc, MinTests: 1, Source: source})
		}
	case []interface{}:
		for _, item := range crit {
			s, ok := item.(string)
			if !ok {
				continue
			}
			if m := acLine.FindStringSubmatch(strings.TrimSpace(s)); m != nil {
				defs = append(defs, model.ACDefinition{ID: m[1], Description: strings.TrimSpace(m[2]), MinTests: 1, Source: source})
			}
		}
	}
	sortDefs(defs)

	if mins, ok := raw["min_tests"].(map[string]interface{}); ok {
		for id, v := range mins {
			n, ok := v.(int)
			if !ok || !model.ACIDPattern.MatchString(id) {
				continue
			}
			if n < 1 {
				n = 1
			}
			out.minimums[id] = n
		}
	}
	return defs, out, nil
}

// extractFromMarkdown walks the document AST and reads heading or
// list-item lines beginning with an AC id. The first occurrence of an
// id supplies its canonical description.
func extractFromMarkdown(data []byte, source string) []model.ACDefinition {
	doc := goldmark.New().Parser().Parse(gtext.NewReader(data))
	seen := map[string]struct{}{}
	var defs []model.ACDefinition

	collect := func(text string) {
		m := acLine.FindStringSubmatch(strings.TrimSpace(text))
		if m == nil {
			return
		}
		if _, dup := seen[m[1]]; dup {
			return
		}
		seen[m[1]] = struct{}{}
		defs = append(defs, model.ACDefinition{
			ID:          m[1],
			Description: strings.TrimSpace(m[2]),
			MinTests:    1,
			Source:      source,
		})
	}

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n.Kind() {
		case ast.KindHeading:
			collect(nodeText(n, data))
			return ast.WalkSkipChildren, nil
		case ast.KindListItem:
			// Only the item's own first block; nested sub-lists are
			// separate items.
			if first := n.FirstChild(); first != nil {
				collect(nodeText(first, data))
			}
		}
		return ast.WalkContinue, nil
	})
	return defs
}

func nodeText(n ast.Node, src []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if entering {
			if t, ok := c.(*ast.Text); ok {
				b.Write(t.Segment.Value(src))
			}
		}
		return ast.WalkContinue, nil
	})
	return b.String()
}

// inferFromRecords derives definitions from AC-prefixed test titles,
// keeping the first occurring description per id.
func inferFromRecords(records []model.TestRecord) []model.ACDefinition {
	seen := map[string]struct{}{}
	var defs []model.ACDefinition
	for _, rec := range records {
		if rec.ACID == "" {
			continue
		}
		if _, dup := seen[rec.ACID]; dup {
			continue
		}
		seen[rec.ACID] = struct{}{}
		desc := strings.TrimSpace(acPrefix.ReplaceAllString(rec.Title, ""))
		if desc == "" {
			desc = rec.Title
		}
		defs = append(defs, model.ACDefinition{
			ID:          rec.ACID,
			Description: desc,
			MinTests:    1,
			Source:      "inferred:test-titles",
		})
	}
	return defs
}

func sortDefs(defs []model.ACDefinition) {
	// Map iteration order is random; stable output needs numeric order.
	for i := 1; i < len(defs); i++ {
		for j := i; j > 0 && acNumber(defs[j-1].ID) > acNumber(defs[j].ID); j-- {
			defs[j-1], defs[j] = defs[j], defs[j-1]
		}
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
