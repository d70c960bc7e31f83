// Package classify scans raw workflow-run log text against the pattern
// table and produces ordered detections. Classification is a pure function
// of its input: it never fails, and identical input yields an identical
// detection sequence.
package classify

import (
	"strings"

	"pipemedic/internal/pattern"
)

// DefaultContextLines is the window of surrounding lines captured with each
// detection for human review.
const DefaultContextLines = 3

// Detection is a single recognized occurrence of an error category within
// analyzed log text.
type Detection struct {
	Category    pattern.Category `json:"category"`
	MatchedText string           `json:"matched_text"`
	LineNumber  int              `json:"line_number"`
	Line        string           `json:"line"`
	Context     []string         `json:"context,omitempty"`
}

type Classifier struct {
	rules   []*pattern.Rule
	context int
}

// New builds a classifier over the given rules (usually pattern.All or a
// pattern.Resolve selection). contextLines < 0 falls back to the default.
func New(rules []*pattern.Rule, contextLines int) *Classifier {
	if contextLines < 0 {
		contextLines = DefaultContextLines
	}
	return &Classifier{rules: rules, context: contextLines}
}

// Classify scans logText and returns detections ordered by rule table
// position, then by first occurrence. Empty or non-matching input yields an
// empty result, never an error. Multiple rules may match the same line;
// each reports independently. Only exact duplicates (same category, matched
// text, and line) are suppressed.
func (c *Classifier) Classify(logText string) []Detection {
	if c == nil || logText == "" {
		return nil
	}

	lines := strings.Split(logText, "\n")

	type dupKey struct {
		category pattern.Category
		text     string
		line     int
	}
	seen := make(map[dupKey]struct{})

	var out []Detection
	for _, rule := range c.rules {
		for i, line := range lines {
			for _, matched := range rule.Match(line) {
				key := dupKey{rule.Category, matched, i + 1}
				if _, dup := seen[key]; dup {
					continue
				}
				seen[key] = struct{}{}
				out = append(out, Detection{
					Category:    rule.Category,
					MatchedText: matched,
					LineNumber:  i + 1,
					Line:        strings.TrimSpace(line),
					Context:     contextWindow(lines, i, c.context),
				})
			}
		}
	}
	return out
}

// Classify runs the full pattern table with the default context window.
func Classify(logText string) []Detection {
	return New(pattern.All(), DefaultContextLines).Classify(logText)
}

// contextWindow returns the lines surrounding index i, inclusive of the
// matched line itself.
func contextWindow(lines []string, i, n int) []string {
	if n == 0 {
		return nil
	}
	start := i - n
	if start < 0 {
		start = 0
	}
	end := i + n + 1
	if end > len(lines) {
		end = len(lines)
	}
	out := make([]string, end-start)
	copy(out, lines[start:end])
	return out
}
