package report

import (
	"fmt"
	"strings"
	"testing"

	"pipemedic/internal/classify"
	"pipemedic/internal/fix"
	"pipemedic/internal/pattern"
)

func sampleMeta() RunMetadata {
	return RunMetadata{
		Repo:        "octo/app",
		Workflow:    "CI",
		RunID:       42,
		Status:      "completed",
		Conclusion:  "failure",
		Branch:      "main",
		CommitSHA:   "abc123def4567890",
		URL:         "https://github.com/octo/app/actions/runs/42",
		GeneratedAt: "2025-06-01 12:00:00 UTC",
	}
}

func sampleAnalysis() ([]classify.Detection, []fix.Result) {
	detections := []classify.Detection{
		{
			Category:    pattern.CategoryDeprecatedAction,
			MatchedText: "actions/checkout@v2",
			LineNumber:  3,
			Line:        "Run actions/checkout@v2",
		},
		{
			Category:    pattern.CategoryTestFailure,
			MatchedText: "FAILED tests",
			LineNumber:  9,
			Line:        "FAILED tests/test_api.py::test_create",
		},
	}
	fixes := []fix.Result{
		{
			Category:           pattern.CategoryDeprecatedAction,
			Applied:            true,
			OriginalSnippet:    "actions/checkout@v2",
			ReplacementSnippet: "actions/checkout@v4",
			Rationale:          "action reference actions/checkout@v2 is superseded; upgraded to actions/checkout@v4",
		},
		{
			Category:  pattern.CategoryTestFailure,
			Rationale: "One or more tests failed during execution.",
			Steps:     []string{"Review the test output for specific failures"},
		},
	}
	return detections, fixes
}

func TestAssemble(t *testing.T) {
	detections, fixes := sampleAnalysis()
	got := Assemble(sampleMeta(), detections, fixes)

	for _, want := range []string{
		"# CI/CD Pipeline Analysis Report",
		"**Generated:** 2025-06-01 12:00:00 UTC",
		"- **Repository:** octo/app",
		"- **Run ID:** 42",
		"- **Commit:** abc123d",
		"- **Total Errors Found:** 2",
		"- **Auto-fixed:** 1",
		"- **Manual Review Required:** 1",
		"- `deprecated_action`",
		"- `test_failure`",
		"### 1. Deprecated Action Version (Auto-fixed)",
		"- **Change:** `actions/checkout@v2` -> `actions/checkout@v4`",
		"### 2. Test Failure (Manual Review)",
		"| 3 | deprecated_action | Run actions/checkout@v2 |",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("report missing %q\n%s", want, got)
		}
	}
}

func TestAssembleIsPure(t *testing.T) {
	detections, fixes := sampleAnalysis()
	a := Assemble(sampleMeta(), detections, fixes)
	b := Assemble(sampleMeta(), detections, fixes)
	if a != b {
		t.Error("identical input must produce byte-identical output")
	}
}

func TestAssembleEmptyAnalysis(t *testing.T) {
	got := Assemble(sampleMeta(), nil, nil)

	if !strings.Contains(got, "- **Total Errors Found:** 0") {
		t.Errorf("zero counts missing:\n%s", got)
	}
	if strings.Contains(got, "## Error Categories Detected") {
		t.Error("empty analysis must not render a categories section")
	}
	if strings.Contains(got, "## Error Details") {
		t.Error("empty analysis must not render a details table")
	}
}

func TestAssembleMissingMetadata(t *testing.T) {
	got := Assemble(RunMetadata{}, nil, nil)

	for _, want := range []string{
		"- **Repository:** N/A",
		"- **Run ID:** N/A",
		"- **Commit:** N/A",
		"**Generated:** N/A",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %q\n%s", want, got)
		}
	}
}

func TestAssembleCapsDetailRows(t *testing.T) {
	var detections []classify.Detection
	for i := 0; i < 14; i++ {
		detections = append(detections, classify.Detection{
			Category:    pattern.CategoryBuildError,
			MatchedText: "build failed",
			LineNumber:  i + 1,
			Line:        fmt.Sprintf("build failed at step %d", i+1),
		})
	}

	got := Assemble(sampleMeta(), detections, nil)
	if !strings.Contains(got, "*...and 4 more errors*") {
		t.Errorf("overflow line missing:\n%s", got)
	}
	if strings.Contains(got, "| 11 |") {
		t.Error("rows past the cap must not be rendered")
	}
}

func TestAssembleEscapesTableCells(t *testing.T) {
	detections := []classify.Detection{{
		Category:    pattern.CategoryBuildError,
		MatchedText: "build failed",
		LineNumber:  1,
		Line:        "build failed | exit 1",
	}}

	got := Assemble(sampleMeta(), detections, nil)
	if !strings.Contains(got, `build failed \| exit 1`) {
		t.Errorf("pipe not escaped:\n%s", got)
	}
}

func TestValidationReport(t *testing.T) {
	o := ValidationOutcome{
		OriginalValid: true,
		FixedValid:    true,
		Issues:        []string{`missing required field: "on"`},
		Deprecated:    []ReplacementPair{{Old: "actions/checkout@v2", New: "actions/checkout@v4"}},
		FixesApplied:  []string{"Added default 'on' trigger (push to main)"},
	}

	got := ValidationReport(".github/workflows/ci.yml", o, "2025-06-01 12:00:00 UTC")
	for _, want := range []string{
		"# YAML Validation Report",
		"**File:** .github/workflows/ci.yml",
		"- **Original Valid:** Yes",
		"- **Fixed Valid:** Yes",
		`- missing required field: "on"`,
		"- `actions/checkout@v2` -> `actions/checkout@v4`",
		"- Added default 'on' trigger (push to main)",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("report missing %q\n%s", want, got)
		}
	}
}

func TestValidationReportInvalid(t *testing.T) {
	o := ValidationOutcome{Issues: []string{"YAML syntax error: line 2"}}
	got := ValidationReport("bad.yml", o, "")

	if !strings.Contains(got, "- **Original Valid:** No") {
		t.Errorf("invalid outcome not reflected:\n%s", got)
	}
	if strings.Contains(got, "## Deprecated Actions") {
		t.Error("empty deprecated section must be omitted")
	}
}
