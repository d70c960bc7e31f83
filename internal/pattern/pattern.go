package pattern

import "regexp"

// Category identifies a class of CI pipeline error. The set of categories is
// fixed at build time; adding one means adding a rule to the table.
type Category string

const (
	CategoryYAMLSyntaxError   Category = "yaml_syntax_error"
	CategoryMissingDependency Category = "missing_dependency"
	CategoryInvalidAction     Category = "invalid_action"
	CategoryDeprecatedAction  Category = "deprecated_action"
	CategoryPermissionError   Category = "permission_error"
	CategoryTimeoutError      Category = "timeout_error"
	CategoryEnvVarMissing     Category = "environment_variable_missing"
	CategorySecretMissing     Category = "secret_missing"
	CategoryVersionMismatch   Category = "version_mismatch"
	CategoryBuildError        Category = "build_error"
	CategoryTestFailure       Category = "test_failure"
)

// Rule is one entry in the pattern table: a category, the expressions that
// recognize it in log text, and the remediation attached to it. Rules are
// built once at init and never mutated afterwards.
type Rule struct {
	Category    Category
	Title       string
	Description string

	// Matchers are tried in order against each log line.
	Matchers []*regexp.Regexp

	// AutoFixable marks categories for which a deterministic, anchored text
	// substitution resolves the issue without human judgment.
	AutoFixable bool

	// Suggestion is an optional YAML snippet offered as a manual remediation
	// starting point (not applied automatically).
	Suggestion string

	// Steps are manual remediation instructions shown for findings that are
	// not automatically fixed.
	Steps []string
}

// Match returns all non-overlapping matches of the rule's expressions within
// line, in left-to-right order. Expressions are tried in declaration order;
// the first expression that matches the line wins, so a rule never reports
// the same line twice through two of its own patterns.
func (r *Rule) Match(line string) []string {
	for _, m := range r.Matchers {
		if found := m.FindAllString(line, -1); len(found) > 0 {
			return found
		}
	}
	return nil
}

// compile builds the matcher list for a rule. Case-insensitive rules get a
// (?i) prefix on every expression. Invalid expressions panic at init, which
// is the only time rules are compiled.
func compile(caseInsensitive bool, exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(exprs))
	for _, e := range exprs {
		if caseInsensitive {
			e = "(?i)" + e
		}
		out = append(out, regexp.MustCompile(e))
	}
	return out
}
