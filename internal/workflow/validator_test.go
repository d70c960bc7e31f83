package workflow

import (
	"strings"
	"testing"
)

const validWorkflow = `name: CI
on:
  push:
    branches: [main]
jobs:
  test:
    runs-on: ubuntu-latest
    steps:
      - uses: actions/checkout@v4
      - run: make test
`

func TestCheckSyntax(t *testing.T) {
	if err := CheckSyntax(validWorkflow); err != nil {
		t.Errorf("valid document rejected: %v", err)
	}

	err := CheckSyntax("name: CI\n  bad: indent\njobs: x\n")
	if err == nil {
		t.Fatal("malformed document accepted")
	}
	if !strings.Contains(err.Error(), "YAML syntax error") {
		t.Errorf("error = %v", err)
	}
}

func TestValidateStructure(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []string
	}{
		{
			name:    "complete workflow",
			content: validWorkflow,
			want:    nil,
		},
		{
			name:    "missing on and jobs",
			content: "name: CI\n",
			want:    []string{`missing required field: "on"`, `missing required field: "jobs"`},
		},
		{
			name: "job without runs-on",
			content: `on: push
jobs:
  build:
    steps:
      - run: make
`,
			want: []string{`job "build" missing required field: "runs-on"`},
		},
		{
			name: "steps not a list",
			content: `on: push
jobs:
  build:
    runs-on: ubuntu-latest
    steps: make test
`,
			want: []string{`job "build": 'steps' must be a list`},
		},
		{
			name:    "jobs not a mapping",
			content: "on: push\njobs: nope\n",
			want:    []string{"'jobs' must be a mapping"},
		},
		{
			name:    "non-mapping document",
			content: "- a\n- b\n",
			want:    []string{"workflow document must be a mapping"},
		},
		{
			name:    "empty document",
			content: "",
			want:    []string{"document is empty"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ValidateStructure(tt.content)
			if len(got) != len(tt.want) {
				t.Fatalf("issues = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("issue %d = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestAddMissingFields(t *testing.T) {
	fixed, changes := AddMissingFields("name: CI\n")
	if len(changes) != 2 {
		t.Fatalf("changes = %v, want on + jobs defaults", changes)
	}
	if issues := ValidateStructure(fixed); len(issues) != 0 {
		t.Errorf("fixed document still has issues: %v", issues)
	}
	if !strings.Contains(fixed, "runs-on: ubuntu-latest") {
		t.Errorf("default job missing runs-on:\n%s", fixed)
	}
}

func TestAddMissingFieldsRunsOnPerJob(t *testing.T) {
	content := `on: push
jobs:
  build:
    steps:
      - run: make
`
	fixed, changes := AddMissingFields(content)
	if len(changes) != 1 || !strings.Contains(changes[0], `"build"`) {
		t.Fatalf("changes = %v", changes)
	}
	if issues := ValidateStructure(fixed); len(issues) != 0 {
		t.Errorf("fixed document still has issues: %v", issues)
	}
	// Untouched keys keep their order.
	if !strings.HasPrefix(fixed, "on:") {
		t.Errorf("key order not preserved:\n%s", fixed)
	}
}

func TestAddMissingFieldsNoChange(t *testing.T) {
	fixed, changes := AddMissingFields(validWorkflow)
	if len(changes) != 0 {
		t.Errorf("unexpected changes: %v", changes)
	}
	if fixed != validWorkflow {
		t.Error("content must be returned verbatim when nothing changes")
	}
}

func TestDetectDeprecated(t *testing.T) {
	content := `jobs:
  test:
    steps:
      - uses: actions/checkout@v2
      - uses: actions/setup-python@v4
      - uses: actions/checkout@v4
`
	got := DetectDeprecated(content)
	if len(got) != 2 {
		t.Fatalf("detected %v, want checkout@v2 and setup-python@v4", got)
	}
	// Sorted order: checkout@v2 before setup-python@v4.
	if got[0].Old != "actions/checkout@v2" || got[0].New != "actions/checkout@v4" {
		t.Errorf("first = %+v", got[0])
	}
	if got[1].Old != "actions/setup-python@v4" || got[1].New != "actions/setup-python@v5" {
		t.Errorf("second = %+v", got[1])
	}
}

func TestReplaceDeprecated(t *testing.T) {
	content := "- uses: actions/checkout@v2\n- uses: actions/checkout@v2\n- uses: actions/cache@v1\n"
	fixed, n := ReplaceDeprecated(content)
	if n != 2 {
		t.Errorf("replaced %d distinct references, want 2", n)
	}
	if strings.Contains(fixed, "@v2") || strings.Contains(fixed, "@v1") {
		t.Errorf("deprecated references remain:\n%s", fixed)
	}
	if strings.Count(fixed, "actions/checkout@v4") != 2 {
		t.Errorf("every occurrence must be rewritten:\n%s", fixed)
	}
}

func TestReplaceDeprecatedPinnedReferences(t *testing.T) {
	content := "- uses: actions/checkout@v2.1.0\n- uses: actions/checkout@v20\n"

	found := DetectDeprecated(content)
	if len(found) != 1 || found[0].Old != "actions/checkout@v2" {
		t.Fatalf("detected %+v, want just checkout@v2 via its pin", found)
	}

	fixed, n := ReplaceDeprecated(content)
	if n != 1 {
		t.Errorf("replaced %d references, want 1", n)
	}
	if strings.Contains(fixed, "actions/checkout@v4.1.0") {
		t.Errorf("pin suffix spliced into the replacement:\n%s", fixed)
	}
	if !strings.Contains(fixed, "actions/checkout@v4\n") {
		t.Errorf("pinned reference not rewritten whole:\n%s", fixed)
	}
	if !strings.Contains(fixed, "actions/checkout@v20") {
		t.Errorf("unrelated v20 reference must be left alone:\n%s", fixed)
	}
}

func TestValidateAndFix(t *testing.T) {
	t.Run("clean document", func(t *testing.T) {
		out := ValidateAndFix(validWorkflow)
		if !out.OriginalValid || !out.FixedValid {
			t.Errorf("outcome = %+v", out)
		}
		if len(out.Issues) != 0 || len(out.Deprecated) != 0 || len(out.FixesApplied) != 0 {
			t.Errorf("clean document reported findings: %+v", out)
		}
		if out.Changed() {
			t.Error("clean document must not change")
		}
	})

	t.Run("structural and deprecation fixes", func(t *testing.T) {
		content := `name: CI
jobs:
  test:
    steps:
      - uses: actions/checkout@v2
`
		out := ValidateAndFix(content)
		if !out.OriginalValid {
			t.Fatal("document parses; original must be syntactically valid")
		}
		if len(out.Issues) == 0 {
			t.Error("missing 'on' and 'runs-on' should be reported")
		}
		if len(out.Deprecated) != 1 || out.Deprecated[0].Old != "actions/checkout@v2" {
			t.Errorf("deprecated = %+v", out.Deprecated)
		}
		if !out.FixedValid {
			t.Errorf("fixed content is invalid:\n%s", out.Fixed)
		}
		if !out.Changed() {
			t.Error("fixes were applied; content should differ")
		}
		if issues := ValidateStructure(out.Fixed); len(issues) != 0 {
			t.Errorf("fixed document still has issues: %v", issues)
		}
		if strings.Contains(out.Fixed, "actions/checkout@v2") {
			t.Error("deprecated reference not replaced")
		}
	})

	t.Run("syntax error", func(t *testing.T) {
		out := ValidateAndFix("a: b\n c: broken\n")
		if out.OriginalValid {
			t.Fatal("broken document reported valid")
		}
		if len(out.Issues) == 0 {
			t.Error("syntax issue not reported")
		}
		if out.Changed() {
			t.Error("unparseable content must be left alone")
		}
	})
}
