package report

import (
	"fmt"
	"strings"

	"pipemedic/internal/classify"
	"pipemedic/internal/fix"
)

// PullRequestBody renders the description for a pull request carrying
// automated workflow fixes. Deterministic: no timestamps, no randomness.
func PullRequestBody(meta RunMetadata, fixes []fix.Result) string {
	var b strings.Builder
	b.WriteString("# Automated CI/CD Pipeline Fix\n\n")
	b.WriteString("This PR contains automated fixes for issues detected in the CI/CD pipeline.\n\n")

	b.WriteString("## Workflow Information\n")
	fmt.Fprintf(&b, "- **Failed Workflow:** %s\n", orNA(meta.Workflow))
	if meta.RunID != 0 {
		fmt.Fprintf(&b, "- **Run ID:** %d\n", meta.RunID)
	}
	fmt.Fprintf(&b, "- **Branch:** %s\n", orNA(meta.Branch))
	b.WriteString("\n")

	b.WriteString("## Fixes Applied\n")
	applied := 0
	for _, f := range fixes {
		if !f.Applied {
			continue
		}
		fmt.Fprintf(&b, "- Updated `%s` to `%s`\n", f.OriginalSnippet, f.ReplacementSnippet)
		applied++
	}
	if applied == 0 {
		b.WriteString("- No automatic fixes were applied\n")
	}
	b.WriteString("\n")

	b.WriteString("## Review Checklist\n")
	b.WriteString("- [ ] Review all changes carefully\n")
	b.WriteString("- [ ] Verify fixes address the root cause\n")
	b.WriteString("- [ ] Test the workflow after merging\n")
	b.WriteString("\n---\n*This PR was generated by pipemedic.*\n")
	return b.String()
}

// IssueBody renders the description for an issue filed when detections need
// manual review.
func IssueBody(meta RunMetadata, detections []classify.Detection, fixes []fix.Result) string {
	_, manual := countFixes(fixes)

	var b strings.Builder
	b.WriteString("# CI/CD Pipeline Failure Detected\n\n")
	b.WriteString("Failures were detected that require manual review.\n\n")

	b.WriteString("## Workflow Information\n")
	fmt.Fprintf(&b, "- **Workflow:** %s\n", orNA(meta.Workflow))
	if meta.RunID != 0 {
		fmt.Fprintf(&b, "- **Run ID:** %d\n", meta.RunID)
	}
	fmt.Fprintf(&b, "- **Status:** %s\n", orNA(meta.Status))
	fmt.Fprintf(&b, "- **URL:** %s\n", orNA(meta.URL))
	b.WriteString("\n")

	b.WriteString("## Analysis Summary\n")
	fmt.Fprintf(&b, "- **Total Errors:** %d\n", len(detections))
	fmt.Fprintf(&b, "- **Manual Review Required:** %d\n", manual)
	b.WriteString("\n")

	wroteHeader := false
	seen := make(map[string]struct{})
	for _, f := range fixes {
		if f.Applied {
			continue
		}
		key := string(f.Category)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		if !wroteHeader {
			b.WriteString("## Issues Requiring Manual Review\n\n")
			wroteHeader = true
		}
		fmt.Fprintf(&b, "### %s\n", titleFor(f.Category))
		fmt.Fprintf(&b, "%s\n\n", f.Rationale)
		if len(f.Steps) > 0 {
			b.WriteString("**Recommended Actions:**\n")
			for _, s := range f.Steps {
				fmt.Fprintf(&b, "- %s\n", s)
			}
			b.WriteString("\n")
		}
	}

	b.WriteString("---\n*This issue was generated by pipemedic.*\n")
	return b.String()
}
