package config

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"
)

type Config struct {
	// MAINTAINER NOTE: If you add/change/remove config fields that affect
	// analysis behavior, keep the CLI flags in internal/cli/analyze.go in
	// sync.
	Targeting Targeting
	Analysis  Analysis
	Output    Output
	Runtime   Runtime
}

type Targeting struct {
	// Repo is the repository to analyze as OWNER/REPO (name or URL; see --repo).
	Repo string

	// RunID selects a single workflow run to analyze (see --run-id).
	// 0 means: analyze the most recent failed runs instead.
	RunID int64

	// MaxRuns limits how many failed runs to analyze (see --max-runs).
	MaxRuns int
}

type Analysis struct {
	// Patterns selects which pattern rules to apply.
	// Empty means the whole table; otherwise a comma-separated category list (see --patterns).
	Patterns string

	// ContextLines is the window of surrounding log lines captured per
	// detection (see --context).
	ContextLines int

	// CreateIssue files a GitHub issue for runs with findings that need
	// manual review (see --create-issue).
	CreateIssue bool

	// CreatePR commits applied fixes to FixBranch and opens a pull request
	// against BaseBranch (see --create-pr).
	CreatePR bool

	// FixBranch is the head branch used when CreatePR is set (see --fix-branch).
	FixBranch string

	// BaseBranch is the PR target branch (see --base-branch).
	BaseBranch string
}

type Output struct {
	// ConsoleFormat controls the human-facing console sink format (see --console-format).
	// Allowed values: text, json, ndjson.
	ConsoleFormat string

	// ConsoleFilterStatus filters console output by record status (see --console-filter-status).
	// Allowed values: FIXED, MANUAL, ERROR.
	ConsoleFilterStatus []string

	// Report writes the Markdown analysis report to this path (see --report).
	Report string

	// Out writes structured output to this path (see --out).
	Out string

	// OutFormat selects the format for --out (see --out-format).
	// Allowed values: json, ndjson. If empty, it is inferred from the --out file extension.
	OutFormat string

	// Emit writes an additional structured event stream to stdout (see --emit).
	// Allowed values: json, ndjson.
	Emit []string

	// NoConsole suppresses the console sink (see --no-console).
	NoConsole bool
}

type Runtime struct {
	// Concurrency controls parallelism for log fetching (see --concurrency).
	// Must be >= 1.
	Concurrency int

	// Timeout is the global timeout for the run (see --timeout).
	Timeout time.Duration

	// Verbose enables detailed diagnostics (prints every GitHub API call).
	Verbose bool
}

func New() *Config {
	return &Config{
		Targeting: Targeting{
			MaxRuns: 5,
		},
		Analysis: Analysis{
			ContextLines: 3,
			BaseBranch:   "main",
		},
		Output: Output{
			ConsoleFormat: "text",
		},
		Runtime: Runtime{
			Concurrency: 3,
			Timeout:     10 * time.Minute,
		},
	}
}

func (c *Config) Validate() error {
	c.Analysis.Patterns = strings.TrimSpace(c.Analysis.Patterns)
	c.Output.Emit = splitCommaList(c.Output.Emit)
	c.Output.ConsoleFilterStatus = splitCommaList(c.Output.ConsoleFilterStatus)

	if c.Targeting.Repo == "" {
		return errors.New("--repo is required (OWNER/REPO)")
	}
	repo, err := normalizeRepoSelector(c.Targeting.Repo)
	if err != nil {
		return fmt.Errorf("invalid --repo value: %w", err)
	}
	c.Targeting.Repo = repo

	if c.Targeting.RunID < 0 {
		return errors.New("--run-id must be >= 0")
	}
	if c.Targeting.MaxRuns < 1 {
		return errors.New("--max-runs must be >= 1")
	}

	if c.Analysis.ContextLines < 0 {
		return errors.New("--context must be >= 0")
	}
	if c.Analysis.CreatePR && strings.TrimSpace(c.Analysis.FixBranch) == "" {
		return errors.New("--create-pr requires --fix-branch")
	}
	if strings.TrimSpace(c.Analysis.BaseBranch) == "" {
		c.Analysis.BaseBranch = "main"
	}

	// Output validation
	c.Output.ConsoleFormat = normalizeEnumValue(c.Output.ConsoleFormat)
	if c.Output.ConsoleFormat == "" {
		c.Output.ConsoleFormat = "text"
	}
	if c.Output.ConsoleFormat != "text" && c.Output.ConsoleFormat != "json" && c.Output.ConsoleFormat != "ndjson" {
		return fmt.Errorf("unsupported --console-format: %s (must be one of: text, json, ndjson)", c.Output.ConsoleFormat)
	}

	for i, status := range c.Output.ConsoleFilterStatus {
		v := strings.ToUpper(strings.TrimSpace(status))
		if v != "FIXED" && v != "MANUAL" && v != "ERROR" {
			return fmt.Errorf("unsupported --console-filter-status value: %s (must be one of: FIXED, MANUAL, ERROR)", status)
		}
		c.Output.ConsoleFilterStatus[i] = v
	}

	for _, emit := range c.Output.Emit {
		v := normalizeEnumValue(emit)
		if v != "json" && v != "ndjson" {
			return fmt.Errorf("unsupported --emit value: %s (must be one of: json, ndjson)", emit)
		}
	}

	// Runtime validation
	if c.Runtime.Concurrency <= 0 {
		return errors.New("--concurrency must be >= 1")
	}
	if c.Runtime.Timeout <= 0 {
		return errors.New("--timeout must be > 0")
	}

	if c.Output.Out != "" {
		c.Output.OutFormat = normalizeEnumValue(c.Output.OutFormat)
		if c.Output.OutFormat == "" {
			ext := strings.ToLower(filepath.Ext(c.Output.Out))
			switch ext {
			case ".json":
				c.Output.OutFormat = "json"
			case ".ndjson", ".jsonl":
				c.Output.OutFormat = "ndjson"
			default:
				if ext == "" {
					return errors.New("cannot infer output format from file extension (missing extension); use --out-format")
				}
				return fmt.Errorf("cannot infer output format from file extension %q; use --out-format", ext)
			}
		} else if c.Output.OutFormat != "json" && c.Output.OutFormat != "ndjson" {
			return fmt.Errorf("unsupported output format: %s", c.Output.OutFormat)
		}
	}

	return nil
}

// SplitRepo splits the normalized OWNER/REPO selector.
func (c *Config) SplitRepo() (owner, name string) {
	owner, name, _ = strings.Cut(c.Targeting.Repo, "/")
	return owner, name
}

func normalizeEnumValue(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// normalizeRepoSelector accepts OWNER/REPO or a GitHub URL like:
//
//	https://github.com/<owner>/<repo>
//	github.com/<owner>/<repo>
//
// and returns the canonical OWNER/REPO form.
func normalizeRepoSelector(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%q", raw)
	}

	if strings.HasPrefix(raw, "github.com/") || strings.HasPrefix(raw, "www.github.com/") {
		raw = "https://" + raw
	}
	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		u, err := url.Parse(raw)
		if err != nil {
			return "", fmt.Errorf("%q", raw)
		}
		host := strings.ToLower(u.Hostname())
		if host == "www.github.com" {
			host = "github.com"
		}
		if host != "github.com" {
			return "", fmt.Errorf("%q", raw)
		}
		parts := strings.Split(strings.Trim(u.Path, "/"), "/")
		if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
			return "", fmt.Errorf("%q", raw)
		}
		return parts[0] + "/" + strings.TrimSuffix(parts[1], ".git"), nil
	}

	parts := strings.Split(raw, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", fmt.Errorf("%q", raw)
	}
	return raw, nil
}

func splitCommaList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			p := strings.TrimSpace(part)
			if p == "" {
				continue
			}
			out = append(out, p)
		}
	}
	return out
}
