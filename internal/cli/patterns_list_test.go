package cli

import (
	"bytes"
	"strings"
	"testing"

	"pipemedic/internal/pattern"
)

func TestPrintPattern(t *testing.T) {
	rules, err := pattern.Resolve("deprecated_action")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(rules) != 1 {
		t.Fatalf("expected 1 rule, got %d", len(rules))
	}

	var buf bytes.Buffer
	printPattern(&buf, rules[0])

	out := buf.String()
	for _, want := range []string{
		"PATTERN: deprecated_action",
		"Deprecated Action Version",
		"Auto-fixable: yes",
		"Remediation:",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestPrintPattern_ManualCategory(t *testing.T) {
	rules, err := pattern.Resolve("test_failure")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	var buf bytes.Buffer
	printPattern(&buf, rules[0])

	if !strings.Contains(buf.String(), "Auto-fixable: no") {
		t.Errorf("expected manual category marker:\n%s", buf.String())
	}
}
