// Package report renders analysis results as Markdown. Every function here
// is pure: identical input produces byte-identical output, and the
// generation timestamp is supplied by the caller, never read from a clock.
package report

import (
	"fmt"
	"strings"

	"pipemedic/internal/classify"
	"pipemedic/internal/fix"
	"pipemedic/internal/pattern"
)

// maxDetailRows bounds the error-details table; further rows collapse into
// a "...and N more" line.
const maxDetailRows = 10

// RunMetadata describes the workflow run an analysis covers. GeneratedAt is
// caller-supplied so that assembly stays a pure function.
type RunMetadata struct {
	Repo        string
	Workflow    string
	RunID       int64
	Status      string
	Conclusion  string
	Branch      string
	CommitSHA   string
	URL         string
	GeneratedAt string
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

func shortSHA(sha string) string {
	if sha == "" {
		return "N/A"
	}
	if len(sha) > 7 {
		return sha[:7]
	}
	return sha
}

// Assemble renders the analysis report for one run. Detections and fixes
// are expected index-aligned (fixes[i] answers detections[i]); an empty
// analysis still produces a complete report with zero counts.
func Assemble(meta RunMetadata, detections []classify.Detection, fixes []fix.Result) string {
	autoFixed, manual := countFixes(fixes)

	var b strings.Builder
	b.WriteString("# CI/CD Pipeline Analysis Report\n\n")
	fmt.Fprintf(&b, "**Generated:** %s\n\n", orNA(meta.GeneratedAt))

	b.WriteString("## Workflow Information\n")
	fmt.Fprintf(&b, "- **Repository:** %s\n", orNA(meta.Repo))
	fmt.Fprintf(&b, "- **Workflow:** %s\n", orNA(meta.Workflow))
	if meta.RunID != 0 {
		fmt.Fprintf(&b, "- **Run ID:** %d\n", meta.RunID)
	} else {
		b.WriteString("- **Run ID:** N/A\n")
	}
	fmt.Fprintf(&b, "- **Status:** %s\n", orNA(meta.Status))
	fmt.Fprintf(&b, "- **Conclusion:** %s\n", orNA(meta.Conclusion))
	fmt.Fprintf(&b, "- **Branch:** %s\n", orNA(meta.Branch))
	fmt.Fprintf(&b, "- **Commit:** %s\n", shortSHA(meta.CommitSHA))
	b.WriteString("\n")

	b.WriteString("## Analysis Summary\n")
	fmt.Fprintf(&b, "- **Total Errors Found:** %d\n", len(detections))
	fmt.Fprintf(&b, "- **Auto-fixed:** %d\n", autoFixed)
	fmt.Fprintf(&b, "- **Manual Review Required:** %d\n", manual)
	b.WriteString("\n")

	if cats := categoriesInOrder(detections); len(cats) > 0 {
		b.WriteString("## Error Categories Detected\n")
		for _, c := range cats {
			fmt.Fprintf(&b, "- `%s`\n", c)
		}
		b.WriteString("\n")
	}

	if len(fixes) > 0 {
		b.WriteString("## Fix Details\n\n")
		for i, f := range fixes {
			badge := "Manual Review"
			if f.Applied {
				badge = "Auto-fixed"
			}
			fmt.Fprintf(&b, "### %d. %s (%s)\n", i+1, titleFor(f.Category), badge)
			if i < len(detections) {
				d := detections[i]
				fmt.Fprintf(&b, "- **Matched:** `%s` (line %d)\n", d.MatchedText, d.LineNumber)
			}
			fmt.Fprintf(&b, "- **Rationale:** %s\n", f.Rationale)
			if f.Applied {
				fmt.Fprintf(&b, "- **Change:** `%s` -> `%s`\n", f.OriginalSnippet, f.ReplacementSnippet)
			} else if f.ReplacementSnippet != "" {
				fmt.Fprintf(&b, "- **Suggested snippet:**\n\n```yaml\n%s\n```\n", f.ReplacementSnippet)
			}
			if len(f.Steps) > 0 {
				b.WriteString("- **Steps:**\n")
				for j, s := range f.Steps {
					fmt.Fprintf(&b, "  %d. %s\n", j+1, s)
				}
			}
			b.WriteString("\n")
		}
	}

	if len(detections) > 0 {
		b.WriteString("## Error Details\n\n")
		b.WriteString("| Line | Category | Content |\n")
		b.WriteString("|------|----------|---------|\n")
		shown := len(detections)
		if shown > maxDetailRows {
			shown = maxDetailRows
		}
		for _, d := range detections[:shown] {
			fmt.Fprintf(&b, "| %d | %s | %s |\n", d.LineNumber, d.Category, tableCell(d.Line))
		}
		if len(detections) > maxDetailRows {
			fmt.Fprintf(&b, "\n*...and %d more errors*\n", len(detections)-maxDetailRows)
		}
		b.WriteString("\n")
	}

	return b.String()
}

// ValidationReport renders the outcome of a validate-and-fix pass over one
// workflow file.
func ValidationReport(path string, o ValidationOutcome, generatedAt string) string {
	var b strings.Builder
	b.WriteString("# YAML Validation Report\n\n")
	fmt.Fprintf(&b, "**Generated:** %s\n\n", orNA(generatedAt))
	fmt.Fprintf(&b, "**File:** %s\n\n", orNA(path))

	b.WriteString("## Validation Status\n")
	fmt.Fprintf(&b, "- **Original Valid:** %s\n", yesNo(o.OriginalValid))
	fmt.Fprintf(&b, "- **Fixed Valid:** %s\n", yesNo(o.FixedValid))
	b.WriteString("\n")

	if len(o.Issues) > 0 {
		b.WriteString("## Issues Found\n")
		for _, issue := range o.Issues {
			fmt.Fprintf(&b, "- %s\n", issue)
		}
		b.WriteString("\n")
	}

	if len(o.Deprecated) > 0 {
		b.WriteString("## Deprecated Actions\n")
		for _, d := range o.Deprecated {
			fmt.Fprintf(&b, "- `%s` -> `%s`\n", d.Old, d.New)
		}
		b.WriteString("\n")
	}

	if len(o.FixesApplied) > 0 {
		b.WriteString("## Fixes Applied\n")
		for _, f := range o.FixesApplied {
			fmt.Fprintf(&b, "- %s\n", f)
		}
		b.WriteString("\n")
	}

	return b.String()
}

// ValidationOutcome is the slice of a workflow validation outcome the
// report needs; it mirrors workflow.Outcome without importing it, keeping
// this package a leaf over classify/fix/pattern.
type ValidationOutcome struct {
	OriginalValid bool
	FixedValid    bool
	Issues        []string
	Deprecated    []ReplacementPair
	FixesApplied  []string
}

type ReplacementPair struct {
	Old string
	New string
}

func yesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}

func countFixes(fixes []fix.Result) (autoFixed, manual int) {
	for _, f := range fixes {
		if f.Applied {
			autoFixed++
		} else {
			manual++
		}
	}
	return autoFixed, manual
}

// categoriesInOrder returns the distinct categories in first-detection
// order, which is already the stable table-then-occurrence order.
func categoriesInOrder(detections []classify.Detection) []pattern.Category {
	seen := make(map[pattern.Category]struct{})
	var out []pattern.Category
	for _, d := range detections {
		if _, ok := seen[d.Category]; ok {
			continue
		}
		seen[d.Category] = struct{}{}
		out = append(out, d.Category)
	}
	return out
}

func titleFor(c pattern.Category) string {
	if r, ok := pattern.Lookup(c); ok {
		return r.Title
	}
	return string(c)
}

// tableCell makes a log line safe for a Markdown table cell and bounds its
// length.
func tableCell(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	if len(s) > 100 {
		s = s[:100]
	}
	return s
}
