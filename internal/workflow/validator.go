// Package workflow validates GitHub Actions workflow definitions and applies
// deterministic structural fixes. Structural edits operate on the parsed
// YAML node tree, not raw text, so untouched keys keep their order; the
// document is re-serialized with two-space indentation when a structural fix
// is applied.
package workflow

import (
	"bytes"
	"fmt"
	"regexp"

	"gopkg.in/yaml.v3"

	"pipemedic/internal/pattern"
)

// Required fields for a GitHub Actions workflow.
var (
	requiredWorkflowFields = []string{"on", "jobs"}
	requiredJobFields      = []string{"runs-on"}
)

// Replacement records one deprecated action reference found in a document
// and its current replacement.
type Replacement struct {
	Old string `json:"old"`
	New string `json:"new"`
}

// Outcome is the result of a validate-and-fix pass over one document.
type Outcome struct {
	OriginalValid bool          `json:"original_valid"`
	FixedValid    bool          `json:"fixed_valid"`
	Issues        []string      `json:"issues,omitempty"`
	Deprecated    []Replacement `json:"deprecated_actions,omitempty"`
	FixesApplied  []string      `json:"fixes_applied,omitempty"`
	Original      string        `json:"-"`
	Fixed         string        `json:"-"`
}

// Changed reports whether the fixed content differs from the original.
func (o *Outcome) Changed() bool {
	return o.Fixed != o.Original
}

// CheckSyntax parses content as YAML and returns the parse error, if any.
func CheckSyntax(content string) error {
	var node yaml.Node
	if err := yaml.Unmarshal([]byte(content), &node); err != nil {
		return fmt.Errorf("YAML syntax error: %w", err)
	}
	return nil
}

// ValidateStructure checks the workflow-shaped requirements: top-level "on"
// and "jobs", "runs-on" per job, and "steps" as a sequence. It assumes the
// content already parses; a parse failure yields a single syntax issue.
func ValidateStructure(content string) []string {
	root, err := parseDocument(content)
	if err != nil {
		return []string{err.Error()}
	}
	if root == nil {
		return []string{"document is empty"}
	}
	if root.Kind != yaml.MappingNode {
		return []string{"workflow document must be a mapping"}
	}

	var issues []string
	for _, field := range requiredWorkflowFields {
		if mapValue(root, field) == nil {
			issues = append(issues, fmt.Sprintf("missing required field: %q", field))
		}
	}

	jobs := mapValue(root, "jobs")
	if jobs == nil {
		return issues
	}
	if jobs.Kind != yaml.MappingNode {
		issues = append(issues, "'jobs' must be a mapping")
		return issues
	}

	for i := 0; i+1 < len(jobs.Content); i += 2 {
		name := jobs.Content[i].Value
		job := jobs.Content[i+1]
		if job.Kind != yaml.MappingNode {
			issues = append(issues, fmt.Sprintf("job %q is not a mapping", name))
			continue
		}
		for _, field := range requiredJobFields {
			if mapValue(job, field) == nil {
				issues = append(issues, fmt.Sprintf("job %q missing required field: %q", name, field))
			}
		}
		if steps := mapValue(job, "steps"); steps != nil && steps.Kind != yaml.SequenceNode {
			issues = append(issues, fmt.Sprintf("job %q: 'steps' must be a list", name))
		}
	}
	return issues
}

// AddMissingFields inserts default values for required fields that are
// absent: an "on" push trigger, a minimal "jobs" section, and "runs-on" per
// job. It returns the re-serialized document and a description of each
// change. The input must parse; otherwise it is returned unchanged.
func AddMissingFields(content string) (string, []string) {
	root, err := parseDocument(content)
	if err != nil || root == nil || root.Kind != yaml.MappingNode {
		return content, nil
	}

	var changes []string

	if mapValue(root, "on") == nil {
		appendMapEntry(root, "on", buildNode(map[string]any{
			"push": map[string]any{"branches": []any{"main"}},
		}))
		changes = append(changes, "Added default 'on' trigger (push to main)")
	}

	if mapValue(root, "jobs") == nil {
		appendMapEntry(root, "jobs", buildNode(map[string]any{
			"build": map[string]any{
				"runs-on": "ubuntu-latest",
				"steps":   []any{map[string]any{"uses": "actions/checkout@v4"}},
			},
		}))
		changes = append(changes, "Added default 'jobs' section")
	}

	if jobs := mapValue(root, "jobs"); jobs != nil && jobs.Kind == yaml.MappingNode {
		for i := 0; i+1 < len(jobs.Content); i += 2 {
			name := jobs.Content[i].Value
			job := jobs.Content[i+1]
			if job.Kind != yaml.MappingNode {
				continue
			}
			if mapValue(job, "runs-on") == nil {
				appendMapEntry(job, "runs-on", scalarNode("ubuntu-latest"))
				changes = append(changes, fmt.Sprintf("Added default 'runs-on' to job %q", name))
			}
		}
	}

	if len(changes) == 0 {
		return content, nil
	}

	out, err := renderDocument(root)
	if err != nil {
		return content, nil
	}
	return out, changes
}

// refExpr matches one deprecated reference including any patch-pinned
// suffix, so "actions/checkout@v2.1.0" rewrites whole to the replacement
// rather than splicing inside the pin.
func refExpr(old string) *regexp.Regexp {
	return regexp.MustCompile(regexp.QuoteMeta(old) + `(?:\.\d+)*\b`)
}

// DetectDeprecated returns the deprecated action references present in the
// document, in deterministic (sorted) order.
func DetectDeprecated(content string) []Replacement {
	var out []Replacement
	for _, pair := range pattern.DeprecatedActions() {
		if refExpr(pair[0]).MatchString(content) {
			out = append(out, Replacement{Old: pair[0], New: pair[1]})
		}
	}
	return out
}

// ReplaceDeprecated rewrites every occurrence of each known deprecated
// reference and returns the updated content and the number of references
// replaced. Validation is a whole-document pass; per-occurrence anchoring
// belongs to the fix generator.
func ReplaceDeprecated(content string) (string, int) {
	count := 0
	for _, pair := range pattern.DeprecatedActions() {
		re := refExpr(pair[0])
		if re.MatchString(content) {
			content = re.ReplaceAllString(content, pair[1])
			count++
		}
	}
	return content, count
}

// ValidateAndFix runs the complete validation pass: syntax, structure fixes
// for missing required fields, deprecated action replacement, and a final
// syntax check over the fixed content.
func ValidateAndFix(content string) *Outcome {
	out := &Outcome{
		Original: content,
		Fixed:    content,
	}

	if err := CheckSyntax(content); err != nil {
		out.Issues = append(out.Issues, err.Error())
	} else {
		out.OriginalValid = true
	}

	if out.OriginalValid {
		issues := ValidateStructure(out.Fixed)
		out.Issues = append(out.Issues, issues...)

		if len(issues) > 0 {
			fixed, changes := AddMissingFields(out.Fixed)
			out.Fixed = fixed
			out.FixesApplied = append(out.FixesApplied, changes...)
		}
	}

	out.Deprecated = DetectDeprecated(out.Fixed)
	if len(out.Deprecated) > 0 {
		fixed, n := ReplaceDeprecated(out.Fixed)
		out.Fixed = fixed
		out.FixesApplied = append(out.FixesApplied, fmt.Sprintf("Replaced %d deprecated action reference(s)", n))
	}

	out.FixedValid = CheckSyntax(out.Fixed) == nil
	return out
}

// parseDocument returns the root mapping node of a YAML document, or nil
// for an empty document.
func parseDocument(content string) (*yaml.Node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(content), &doc); err != nil {
		return nil, fmt.Errorf("YAML syntax error: %w", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, nil
	}
	return doc.Content[0], nil
}

func renderDocument(root *yaml.Node) (string, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(root); err != nil {
		return "", err
	}
	if err := enc.Close(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// mapValue returns the value node for key within a mapping node.
func mapValue(mapping *yaml.Node, key string) *yaml.Node {
	if mapping == nil || mapping.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			return mapping.Content[i+1]
		}
	}
	return nil
}

func appendMapEntry(mapping *yaml.Node, key string, value *yaml.Node) {
	mapping.Content = append(mapping.Content, scalarNode(key), value)
}

func scalarNode(v string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v}
}

// buildNode converts plain Go values into a yaml.Node tree with stable key
// order for maps built from literals here (insertion order is not available
// from Go maps, so keys are emitted sorted).
func buildNode(v any) *yaml.Node {
	var node yaml.Node
	// Marshal/unmarshal round trip gives a canonical node tree; yaml.v3
	// sorts map keys during Marshal, which keeps defaults deterministic.
	raw, err := yaml.Marshal(v)
	if err != nil {
		return scalarNode("")
	}
	if err := yaml.Unmarshal(raw, &node); err != nil {
		return scalarNode("")
	}
	if node.Kind == yaml.DocumentNode && len(node.Content) > 0 {
		return node.Content[0]
	}
	return &node
}
