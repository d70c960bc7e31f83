package output

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestReportSink_WritesSummaryAndSections(t *testing.T) {
	tmpDir := t.TempDir()
	reportPath := filepath.Join(tmpDir, "pipemedic-report.md")

	s, err := NewReportSink(reportPath)
	if err != nil {
		t.Fatalf("NewReportSink failed: %v", err)
	}

	if err := s.Write(Event{Type: "analysis.started", Repo: "acme/pipeline"}); err != nil {
		t.Fatalf("Write analysis.started failed: %v", err)
	}

	s.Write(Record{Repo: "acme/pipeline", RunID: 42, Category: "deprecated_action", Status: StatusFixed})
	s.Write(Record{Repo: "acme/pipeline", RunID: 42, Category: "test_failure", Status: StatusManual})
	s.Write(Record{Repo: "acme/pipeline", RunID: 41, Category: "test_failure", Status: StatusManual})
	s.Write(Record{Repo: "acme/pipeline", RunID: 40, Status: StatusError, Message: "log archive unavailable"})

	s.Write(Section{Title: "Run 42", Markdown: "## Run 42 Body"})
	s.Write(Section{Title: "Run 41", Markdown: "## Run 41 Body"})

	if err := s.Write(Event{Type: "analysis.finished", Runs: 3, ExitCode: 1}); err != nil {
		t.Fatalf("Write analysis.finished failed: %v", err)
	}

	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	b, err := os.ReadFile(reportPath)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	out := string(b)

	required := []string{
		"# Pipemedic Analysis Report",
		"## Summary",
		"- **Repositories:** acme/pipeline",
		"- **Failed Runs Analyzed:** 3",
		"- **Errors Detected:** 3",
		"- **Auto-fixed:** 1",
		"- **Manual Review Required:** 2",
		"- **Runs Not Analyzed:** 1",
		"- **Exit Code:** 1",
		"## Detections by Category",
		"| test_failure | 2 |",
		"| deprecated_action | 1 |",
		"## Runs Not Analyzed",
		"- acme/pipeline run 40: log archive unavailable",
		"## Run 42 Body",
		"## Run 41 Body",
	}
	for _, want := range required {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q\n---\n%s", want, out)
		}
	}

	// Sections keep arrival order.
	if strings.Index(out, "Run 42 Body") > strings.Index(out, "Run 41 Body") {
		t.Errorf("sections out of order:\n%s", out)
	}
}

func TestReportSink_EmptyAnalysis(t *testing.T) {
	reportPath := filepath.Join(t.TempDir(), "report.md")

	s, err := NewReportSink(reportPath)
	if err != nil {
		t.Fatalf("NewReportSink failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	b, err := os.ReadFile(reportPath)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	out := string(b)

	if !strings.Contains(out, "- **Errors Detected:** 0") {
		t.Errorf("expected zero detections summary, got:\n%s", out)
	}
	if strings.Contains(out, "## Detections by Category") {
		t.Errorf("unexpected category table for empty analysis:\n%s", out)
	}
}

func TestNewReportSink_RequiresPath(t *testing.T) {
	if _, err := NewReportSink(""); err == nil {
		t.Fatalf("expected error, got nil")
	}
}
