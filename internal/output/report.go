package output

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
)

// ReportSink accumulates analysis output and writes a single Markdown report
// file on Close. Per-run report bodies arrive as Section values; Record and
// Event values feed the summary at the top of the file.
type ReportSink struct {
	path         string
	file         *os.File
	mu           sync.Mutex
	records      []Record
	sections     []Section
	repos        map[string]struct{}
	exitCode     int
	haveExitCode bool
}

func NewReportSink(path string) (*ReportSink, error) {
	if path == "" {
		return nil, fmt.Errorf("report path required")
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create report file: %w", err)
	}

	return &ReportSink{
		path:  path,
		file:  f,
		repos: make(map[string]struct{}),
	}, nil
}

func (s *ReportSink) Write(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch t := v.(type) {
	case Record:
		s.records = append(s.records, t)
		if t.Repo != "" {
			s.repos[t.Repo] = struct{}{}
		}
	case Section:
		s.sections = append(s.sections, t)
	case Event:
		if t.Repo != "" {
			s.repos[t.Repo] = struct{}{}
		}
		if t.Type == "analysis.finished" {
			s.exitCode = t.ExitCode
			s.haveExitCode = true
		}
	}
	return nil
}

func (s *ReportSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	writeErr := func(err error) error {
		_ = s.file.Close()
		return err
	}

	var repos []string
	for repo := range s.repos {
		repos = append(repos, repo)
	}
	sort.Strings(repos)

	fixed, manual, errored := countByStatus(s.records)
	runs := countRuns(s.records)

	var b strings.Builder
	b.WriteString("# Pipemedic Analysis Report\n\n")

	b.WriteString("## Summary\n\n")
	if len(repos) > 0 {
		b.WriteString(fmt.Sprintf("- **Repositories:** %s\n", strings.Join(repos, ", ")))
	}
	b.WriteString(fmt.Sprintf("- **Failed Runs Analyzed:** %d\n", runs))
	b.WriteString(fmt.Sprintf("- **Errors Detected:** %d\n", fixed+manual))
	b.WriteString(fmt.Sprintf("- **Auto-fixed:** %d\n", fixed))
	b.WriteString(fmt.Sprintf("- **Manual Review Required:** %d\n", manual))
	if errored > 0 {
		b.WriteString(fmt.Sprintf("- **Runs Not Analyzed:** %d\n", errored))
	}
	if s.haveExitCode {
		b.WriteString(fmt.Sprintf("- **Exit Code:** %d\n", s.exitCode))
	}
	b.WriteString("\n")

	byCategory := categoryCounts(s.records)
	if len(byCategory) > 0 {
		b.WriteString("## Detections by Category\n\n")
		b.WriteString("| Category | Count |\n")
		b.WriteString("| --- | ---: |\n")
		for _, cc := range byCategory {
			b.WriteString(fmt.Sprintf("| %s | %d |\n", cc.Category, cc.Count))
		}
		b.WriteString("\n")
	}

	if errored > 0 {
		b.WriteString("## Runs Not Analyzed\n\n")
		for _, r := range s.records {
			if r.Status != StatusError {
				continue
			}
			b.WriteString(fmt.Sprintf("- %s run %d: %s\n", r.Repo, r.RunID, r.Message))
		}
		b.WriteString("\n")
	}

	for _, sec := range s.sections {
		b.WriteString("---\n\n")
		b.WriteString(sec.Markdown)
		if !strings.HasSuffix(sec.Markdown, "\n") {
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if _, err := s.file.WriteString(b.String()); err != nil {
		return writeErr(err)
	}
	return s.file.Close()
}
