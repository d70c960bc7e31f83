// Package fix turns detections into fix results: either a deterministic,
// anchored text substitution for auto-fixable categories, or a structured
// manual-remediation suggestion. Propose is a pure function; given the same
// detection and source it always returns the same result.
package fix

import (
	"fmt"
	"regexp"
	"strings"

	"pipemedic/internal/classify"
	"pipemedic/internal/pattern"
)

// Result describes the outcome of attempting a fix for one detection.
// Applied is true only when a deterministic, non-ambiguous substitution was
// found for the detection's category and the target span is present in the
// source document.
type Result struct {
	Category           pattern.Category `json:"category"`
	Applied            bool             `json:"applied"`
	OriginalSnippet    string           `json:"original_snippet,omitempty"`
	ReplacementSnippet string           `json:"replacement_snippet,omitempty"`
	Rationale          string           `json:"rationale"`
	Steps              []string         `json:"steps,omitempty"`
}

var moduleNameExpr = regexp.MustCompile(`No module named '([^']+)'`)

// Propose generates a fix result for one detection against the workflow
// source text. Non-auto-fixable categories always come back with
// Applied=false, a non-empty rationale, and manual steps. Auto-fixable
// categories whose anchor text is absent from source come back with
// Applied=false and rationale "target not found" rather than guessing a
// different location.
func Propose(d classify.Detection, source string) Result {
	rule, ok := pattern.Lookup(d.Category)
	if !ok {
		return Result{
			Category:  d.Category,
			Rationale: fmt.Sprintf("no rule registered for category %s; manual review required", d.Category),
		}
	}

	if !rule.AutoFixable {
		return manualResult(rule, d)
	}

	switch d.Category {
	case pattern.CategoryDeprecatedAction:
		return proposeActionUpgrade(rule, d, source)
	default:
		// Auto-fixable category without a substitution strategy; treat as
		// manual so nothing is ever guessed.
		return manualResult(rule, d)
	}
}

// ProposeAll generates one result per detection, in detection order.
func ProposeAll(detections []classify.Detection, source string) []Result {
	out := make([]Result, 0, len(detections))
	for _, d := range detections {
		out = append(out, Propose(d, source))
	}
	return out
}

func proposeActionUpgrade(rule *pattern.Rule, d classify.Detection, source string) Result {
	repl, known := pattern.ReplacementFor(d.MatchedText)
	if !known {
		// A prose deprecation notice matched, not a concrete action
		// reference; there is nothing unambiguous to substitute.
		res := manualResult(rule, d)
		res.Rationale = fmt.Sprintf("deprecation notice %q has no known replacement; manual review required", d.MatchedText)
		return res
	}

	if findSnippet(source, d.MatchedText, 0) < 0 {
		return Result{
			Category:        d.Category,
			OriginalSnippet: d.MatchedText,
			Rationale:       "target not found",
			Steps:           rule.Steps,
		}
	}

	return Result{
		Category:           d.Category,
		Applied:            true,
		OriginalSnippet:    d.MatchedText,
		ReplacementSnippet: repl,
		Rationale:          fmt.Sprintf("action reference %s is superseded; upgraded to %s", d.MatchedText, repl),
	}
}

func manualResult(rule *pattern.Rule, d classify.Detection) Result {
	res := Result{
		Category:           d.Category,
		Rationale:          rule.Description,
		ReplacementSnippet: rule.Suggestion,
		Steps:              rule.Steps,
	}

	// Name the missing module in the first step when the log reveals it.
	if d.Category == pattern.CategoryMissingDependency {
		if m := moduleNameExpr.FindStringSubmatch(d.Line); len(m) == 2 {
			res.Rationale = fmt.Sprintf("module %q is not installed in the job environment; the fix belongs in the dependency manifest, not the log", m[1])
			rest := rule.Steps
			if len(rest) > 0 {
				rest = rest[1:]
			}
			res.Steps = append([]string{fmt.Sprintf("Add %q to the dependency manifest (e.g. requirements.txt)", m[1])}, rest...)
		}
	}
	return res
}

// Apply substitutes every applied result into source, each anchored to a
// single occurrence of its original snippet: the first result targeting a
// snippet consumes its first occurrence, the next result the next
// occurrence, and so on. It returns the rewritten text and the number of
// substitutions performed. Results with Applied=false are ignored.
func Apply(source string, results []Result) (string, int) {
	applied := 0
	// Cursor per snippet so repeated occurrences are consumed in order
	// instead of rewriting the same span twice.
	cursors := make(map[string]int)

	for _, r := range results {
		if !r.Applied || r.OriginalSnippet == "" {
			continue
		}
		from := cursors[r.OriginalSnippet]
		if from > len(source) {
			continue
		}
		at := findSnippet(source, r.OriginalSnippet, from)
		if at < 0 {
			continue
		}
		source = source[:at] + r.ReplacementSnippet + source[at+len(r.OriginalSnippet):]
		cursors[r.OriginalSnippet] = at + len(r.ReplacementSnippet)
		applied++
	}
	return source, applied
}

// findSnippet returns the index of the first occurrence of snippet in source
// at or after from that is not the prefix of a longer reference, so
// "actions/checkout@v2" never anchors inside "actions/checkout@v2.1.0".
func findSnippet(source, snippet string, from int) int {
	if snippet == "" {
		return -1
	}
	for at := from; at <= len(source)-len(snippet); {
		idx := strings.Index(source[at:], snippet)
		if idx < 0 {
			return -1
		}
		pos := at + idx
		end := pos + len(snippet)
		if end == len(source) || !continuesRef(source[end]) {
			return pos
		}
		at = pos + 1
	}
	return -1
}

func continuesRef(c byte) bool {
	return c == '.' || c == '_' ||
		'0' <= c && c <= '9' || 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z'
}
