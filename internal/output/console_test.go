package output

import (
	"bytes"
	"strings"
	"testing"
)

func TestConsoleSink_Filtering(t *testing.T) {
	tests := []struct {
		name           string
		format         string
		filterStatuses []string
		input          Record
		shouldWrite    bool
	}{
		{
			name:           "text - no filter - fixed",
			format:         "text",
			filterStatuses: nil,
			input:          Record{Status: StatusFixed, Repo: "acme/pipeline", RunID: 1, Category: "deprecated_action"},
			shouldWrite:    true,
		},
		{
			name:           "text - filter MANUAL - input FIXED",
			format:         "text",
			filterStatuses: []string{"MANUAL"},
			input:          Record{Status: StatusFixed, Repo: "acme/pipeline", RunID: 1, Category: "deprecated_action"},
			shouldWrite:    false,
		},
		{
			name:           "text - filter MANUAL - input MANUAL",
			format:         "text",
			filterStatuses: []string{"MANUAL"},
			input:          Record{Status: StatusManual, Repo: "acme/pipeline", RunID: 1, Category: "test_failure"},
			shouldWrite:    true,
		},
		{
			name:           "text - filter MANUAL,ERROR - input ERROR",
			format:         "text",
			filterStatuses: []string{"MANUAL", "ERROR"},
			input:          Record{Status: StatusError, Repo: "acme/pipeline", RunID: 1},
			shouldWrite:    true,
		},
		{
			name:           "json - filter MANUAL - input FIXED",
			format:         "json",
			filterStatuses: []string{"MANUAL"},
			input:          Record{Status: StatusFixed, Repo: "acme/pipeline", RunID: 1, Category: "deprecated_action"},
			shouldWrite:    false,
		},
		{
			name:           "json - filter MANUAL - input MANUAL",
			format:         "json",
			filterStatuses: []string{"MANUAL"},
			input:          Record{Status: StatusManual, Repo: "acme/pipeline", RunID: 1, Category: "test_failure"},
			shouldWrite:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			sink := NewConsoleSink(&buf, tt.format, tt.filterStatuses)

			err := sink.Write(tt.input)
			if err != nil {
				t.Fatalf("Write error: %v", err)
			}

			output := buf.String()

			if tt.format == "json" {
				// JSON buffers records until Close; inspect the buffer directly.
				if tt.shouldWrite {
					if len(sink.records) != 1 {
						t.Errorf("expected 1 record buffered, got %d", len(sink.records))
					}
				} else {
					if len(sink.records) != 0 {
						t.Errorf("expected 0 records buffered, got %d", len(sink.records))
					}
				}
			} else {
				wroteSomething := len(output) > 0
				if tt.shouldWrite && !wroteSomething {
					t.Errorf("expected output, got none")
				}
				if !tt.shouldWrite && wroteSomething {
					t.Errorf("expected no output, got: %q", output)
				}
			}
		})
	}
}

func TestConsoleSink_Filtering_CaseInsensitive(t *testing.T) {
	var buf bytes.Buffer
	// Filter is "manual", input is "MANUAL"
	sink := NewConsoleSink(&buf, "text", []string{"manual"})

	input := Record{Status: StatusManual, Repo: "acme/pipeline", RunID: 1, Category: "build_error"}
	if err := sink.Write(input); err != nil {
		t.Fatalf("Write error: %v", err)
	}

	if buf.Len() == 0 {
		t.Error("expected output for case-insensitive match, got none")
	}
}

func TestConsoleSink_Filtering_NDJSON(t *testing.T) {
	// NDJSON writes immediately
	var buf bytes.Buffer
	sink := NewConsoleSink(&buf, "ndjson", []string{"MANUAL"})

	// FIXED should be ignored
	fixed := Record{Status: StatusFixed, Repo: "acme/pipeline", RunID: 1, Category: "deprecated_action"}
	if err := sink.Write(fixed); err != nil {
		t.Fatalf("Write error: %v", err)
	}

	if buf.Len() > 0 {
		t.Errorf("expected no output for FIXED, got: %s", buf.String())
	}

	// MANUAL should be written
	manual := Record{Status: StatusManual, Repo: "acme/pipeline", RunID: 1, Category: "test_failure"}
	if err := sink.Write(manual); err != nil {
		t.Fatalf("Write error: %v", err)
	}

	if !strings.Contains(buf.String(), `"status":"MANUAL"`) {
		t.Errorf("expected output for MANUAL, got: %s", buf.String())
	}
}

func TestConsoleSink_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	sink := NewConsoleSink(&buf, "text", nil)

	rec := Record{
		Status:   StatusFixed,
		Repo:     "acme/pipeline",
		RunID:    42,
		Category: "deprecated_action",
		Message:  "actions/checkout@v2 upgraded to actions/checkout@v4",
	}
	if err := sink.Write(rec); err != nil {
		t.Fatalf("Write error: %v", err)
	}

	got := buf.String()
	want := "[FIXED] acme/pipeline run 42: deprecated_action - actions/checkout@v2 upgraded to actions/checkout@v4\n"
	if got != want {
		t.Fatalf("unexpected text line:\ngot:  %q\nwant: %q", got, want)
	}
}

func TestConsoleSink_NDJSONIncludesLifecycleEvents(t *testing.T) {
	var buf bytes.Buffer
	sink := NewConsoleSink(&buf, "ndjson", nil)

	if err := sink.Write(Event{Type: "analysis.started", Repo: "acme/pipeline"}); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	if err := sink.Write(Record{Status: StatusManual, Repo: "acme/pipeline", RunID: 7, Category: "build_error"}); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	if err := sink.Write(Event{Type: "analysis.finished", Runs: 1, ExitCode: 1}); err != nil {
		t.Fatalf("Write error: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 NDJSON lines, got %d: %q", len(lines), buf.String())
	}
	if !strings.Contains(lines[0], `"type":"analysis.started"`) {
		t.Errorf("unexpected first line: %s", lines[0])
	}
	if !strings.Contains(lines[1], `"type":"detection.result"`) || !strings.Contains(lines[1], `"run_id":7`) {
		t.Errorf("unexpected second line: %s", lines[1])
	}
	if !strings.Contains(lines[2], `"exit_code":1`) {
		t.Errorf("unexpected third line: %s", lines[2])
	}
}
