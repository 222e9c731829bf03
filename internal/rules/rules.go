// Package rules defines the Rule Zero violation catalog: per-language
// patterns that detect test code mutating the system under test.
//
// Matching is deliberately heuristic text matching, not parsing. A rule
// fires when its call-opening token is followed, anywhere within a
// bounded window, by a mutating assignment or call. This trades
// precision for language-agnostic simplicity; the tradeoff is pinned
// down by the package tests.
package rules

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/mgerety/teamwerk/internal/model"
)

// Language is the rule scope inferred from a file extension.
type Language string

const (
	LangScript Language = "script" // .js .jsx .ts .tsx .mjs
	LangCSharp Language = "csharp" // .cs
	LangPython Language = "python" // .py
	LangNone   Language = ""
)

// ForFile infers the rule scope for a file, or LangNone when no rules
// apply to its extension.
func ForFile(path string) Language {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".js", ".jsx", ".ts", ".tsx", ".mjs":
		return LangScript
	case ".cs":
		return LangCSharp
	case ".py":
		return LangPython
	default:
		return LangNone
	}
}

// Rule is one immutable catalog entry.
type Rule struct {
	ID       string
	Lang     Language
	Severity model.Severity

	// Call opens the match: a script-execution or element-locator call.
	Call *regexp.Regexp
	// Mutation must match within Window bytes after the call opening.
	// Nil means the call is mutating by itself (e.g. addScriptTag).
	Mutation *regexp.Regexp
	// Allow suppresses a match whose window reaches only into the
	// read-only introspection set. Only the warning tier carries one;
	// critical matches are never filtered.
	Allow *regexp.Regexp

	Window      int
	Description string
	Remediation string
}

// Matches returns the byte offsets of every non-overlapping violating
// call opening in content.
func (r Rule) Matches(content string) []int {
	var out []int
	for _, m := range r.Call.FindAllStringIndex(content, -1) {
		end := m[1] + r.Window
		if end > len(content) {
			end = len(content)
		}
		span := content[m[0]:end]
		if r.Mutation != nil && !r.Mutation.MatchString(span) {
			continue
		}
		if r.Allow != nil && r.Allow.MatchString(span) {
			continue
		}
		out = append(out, m[0])
	}
	return out
}

// ForLanguage returns the catalog rules scoped to lang.
func ForLanguage(lang Language) []Rule {
	var out []Rule
	for _, r := range catalog {
		if r.Lang == lang {
			out = append(out, r)
		}
	}
	return out
}

// All returns the full catalog.
func All() []Rule {
	return catalog
}

// window is how far past the call opening the mutation search extends.
// Large enough for a multi-line evaluate body, small enough that
// unrelated code below the call does not bleed in.
const window = 400

// Call openers per language. The payload inside the call is JavaScript
// in all three ecosystems, so the mutation patterns are shared.
var (
	scriptExec = regexp.MustCompile(`\.(?:evaluate|evaluateHandle|\$\$eval|\$eval|executeScript|executeAsyncScript)\s*\(`)
	csharpExec = regexp.MustCompile(`\.(?:ExecuteScriptAsync|ExecuteAsyncScript|ExecuteScript|EvaluateAsync|EvaluateExpressionAsync)\s*\(`)
	pythonExec = regexp.MustCompile(`\.(?:execute_script|execute_async_script|evaluate|evaluate_handle)\s*\(`)

	locator = regexp.MustCompile(`(?:document\.getElementById|document\.querySelectorAll|document\.querySelector|document\.getElementsBy[A-Za-z]+)\s*\(`)

	styleAssign = regexp.MustCompile(`\.style(?:\.[A-Za-z_$][\w$]*|\[[^\]]*\])?\s*=[^=]`)
	propAssign  = regexp.MustCompile(`(?:\.(?:hidden|innerHTML|outerHTML|className)\s*=[^=]|\.classList\.(?:add|remove|toggle|replace)\s*\()`)
	nodeChange  = regexp.MustCompile(`(?:\.remove\s*\(\s*\)|\.removeChild\s*\(|\.replaceWith\s*\(|\.insertAdjacentHTML\s*\(|createElement\s*\(\s*['"](?:script|style|link)['"]|document\.write\s*\()`)
	observerNew = regexp.MustCompile(`new\s+MutationObserver\s*\(`)
	tagInject   = regexp.MustCompile(`\.(?:addScriptTag|addStyleTag)\s*\(`)

	anyAssign = regexp.MustCompile(`\.[A-Za-z_$][\w$]*\s*=[^=]`)
	readOnly  = regexp.MustCompile(`(?:getComputedStyle|getBoundingClientRect|getClientRects|getAttribute\s*\(|window\.getSelection)`)
)

// mutationKind describes one critical tier shared across languages.
type mutationKind struct {
	slug        string
	mutation    *regexp.Regexp
	description string
	remediation string
}

var mutationKinds = []mutationKind{
	{
		slug:        "style-mutation",
		mutation:    styleAssign,
		description: "script-execution call assigns to an element style property",
		remediation: "Tests observe, never mutate: read the computed style and assert on it instead of changing it.",
	},
	{
		slug:        "dom-prop-mutation",
		mutation:    propAssign,
		description: "script-execution call assigns to a DOM-affecting property (hidden/innerHTML/outerHTML/className/classList)",
		remediation: "Remove the assignment; drive the application through its own UI or API so the DOM reaches this state itself.",
	},
	{
		slug:        "node-removal",
		mutation:    nodeChange,
		description: "script-execution call removes, replaces, or injects an element, script, or stylesheet",
		remediation: "Do not alter the document tree from a test. If an element is in the way, the product needs a fix, not the test.",
	},
	{
		slug:        "mutation-observer",
		mutation:    observerNew,
		description: "script-execution call constructs a MutationObserver inside the page",
		remediation: "Use the test framework's own waiting primitives instead of installing observers into the page.",
	},
}

var execByLang = map[Language]*regexp.Regexp{
	LangScript: scriptExec,
	LangCSharp: csharpExec,
	LangPython: pythonExec,
}

var catalog = buildCatalog()

func buildCatalog() []Rule {
	var rules []Rule
	for _, lang := range []Language{LangScript, LangCSharp, LangPython} {
		for _, k := range mutationKinds {
			rules = append(rules, Rule{
				ID:          string(lang) + "-exec-" + k.slug,
				Lang:        lang,
				Severity:    model.SevCritical,
				Call:        execByLang[lang],
				Mutation:    k.mutation,
				Window:      window,
				Description: k.description,
				Remediation: k.remediation,
			})
		}
		// Warning tier: property assignment on an id/selector-located
		// element that cannot be shown to be read-only introspection.
		rules = append(rules, Rule{
			ID:          string(lang) + "-selector-assignment",
			Lang:        lang,
			Severity:    model.SevWarning,
			Call:        locator,
			Mutation:    anyAssign,
			Allow:       readOnly,
			Window:      window,
			Description: "property assignment on an element located by id/selector; confirm manually that the target is not part of the system under test",
			Remediation: "If this only prepares harness-owned scaffolding, keep it; otherwise assert on the property instead of assigning it.",
		})
	}
	// Tag injection calls are mutating on their own.
	rules = append(rules, Rule{
		ID:          "script-tag-injection",
		Lang:        LangScript,
		Severity:    model.SevCritical,
		Call:        tagInject,
		Window:      window,
		Description: "test injects a script or style tag into the page",
		Remediation: "Ship the behavior in the application bundle; tests must not add script or style tags.",
	})
	return rules
}
