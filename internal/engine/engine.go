package engine

import (
	"context"
	"fmt"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/briandowns/spinner"

	"pipemedic/internal/classify"
	"pipemedic/internal/config"
	"pipemedic/internal/fix"
	gh "pipemedic/internal/github"
	"pipemedic/internal/output"
	"pipemedic/internal/pattern"
	"pipemedic/internal/report"
)

func exitCodeForRun(fatal, partial, findings bool) int {
	// Exit code contract (UI spec):
	// 0 = clean run, no findings
	// 1 = findings detected
	// 2 = partial failure (some runs could not be analyzed)
	// 3 = fatal error (analysis did not run)
	if fatal {
		return 3
	}
	if partial {
		return 2
	}
	if findings {
		return 1
	}
	return 0
}

// RunSource is the GitHub surface the engine needs. *github.Actions satisfies
// it; tests substitute a fake.
type RunSource interface {
	ListFailedRuns(ctx context.Context, owner, repo string, max int) ([]gh.WorkflowRun, error)
	GetRun(ctx context.Context, owner, repo string, runID int64) (gh.WorkflowRun, error)
	FetchLogs(ctx context.Context, owner, repo string, runID int64) (string, error)
	FetchWorkflowFile(ctx context.Context, owner, repo, path, ref string) (content, sha string, err error)
	EnsureBranch(ctx context.Context, owner, repo, branch, base string) error
	UpdateFile(ctx context.Context, owner, repo, path, branch, message, content, sha string) error
	CreatePullRequest(ctx context.Context, owner, repo, title, body, head, base string) (gh.PullRequestHandle, error)
	CreateIssue(ctx context.Context, owner, repo, title, body string, labels []string) (gh.IssueHandle, error)
}

type Engine struct {
	Source RunSource

	// now stamps report generation times; a fixed clock keeps test output stable.
	now func() time.Time
}

func NewEngine(source RunSource) *Engine {
	return &Engine{
		Source: source,
		now:    time.Now,
	}
}

func setupOutputManager(cfg *config.Config) (*output.Manager, error) {
	outMgr := output.NewManager()

	// Console Sink
	if !cfg.Output.NoConsole {
		if err := outMgr.AddSink(output.NewConsoleSink(nil, cfg.Output.ConsoleFormat, cfg.Output.ConsoleFilterStatus)); err != nil {
			outMgr.Close()
			return nil, err
		}
	}

	// Emit Sinks (additional structured streams)
	for _, emit := range cfg.Output.Emit {
		es, err := output.NewEmitSink(os.Stdout, emit)
		if err != nil {
			outMgr.Close()
			return nil, err
		}
		if err := outMgr.AddSink(es); err != nil {
			outMgr.Close()
			return nil, err
		}
	}

	// File Sink
	if cfg.Output.Out != "" {
		fs, err := output.NewFileSink(cfg.Output.Out, cfg.Output.OutFormat)
		if err != nil {
			outMgr.Close()
			return nil, err
		}
		if err := outMgr.AddSink(fs); err != nil {
			outMgr.Close()
			return nil, err
		}
	}

	// Report Sink
	if cfg.Output.Report != "" {
		rs, err := output.NewReportSink(cfg.Output.Report)
		if err != nil {
			outMgr.Close()
			return nil, err
		}
		if err := outMgr.AddSink(rs); err != nil {
			outMgr.Close()
			return nil, err
		}
	}

	return outMgr, nil
}

// runOutcome is one failed run plus its fetched log text (or the fetch error).
type runOutcome struct {
	run      gh.WorkflowRun
	logText  string
	fetchErr error
}

func (e *Engine) discoverRuns(ctx context.Context, cfg *config.Config) ([]gh.WorkflowRun, error) {
	var spin *spinner.Spinner
	if !cfg.Output.NoConsole {
		spin = spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
		spin.Suffix = " Discovering failed workflow runs..."
		spin.Start()
		defer spin.Stop()
	}

	owner, repo := cfg.SplitRepo()
	if cfg.Targeting.RunID != 0 {
		run, err := e.Source.GetRun(ctx, owner, repo, cfg.Targeting.RunID)
		if err != nil {
			return nil, err
		}
		return []gh.WorkflowRun{run}, nil
	}
	return e.Source.ListFailedRuns(ctx, owner, repo, cfg.Targeting.MaxRuns)
}

// fetchLogsConcurrently downloads logs for all runs with bounded parallelism.
// Per-run failures are captured in the outcome, not returned, so one dead
// archive does not abort the whole analysis.
func (e *Engine) fetchLogsConcurrently(ctx context.Context, cfg *config.Config, runs []gh.WorkflowRun) []runOutcome {
	owner, repo := cfg.SplitRepo()
	outcomes := make([]runOutcome, len(runs))

	g := new(errgroup.Group)
	g.SetLimit(cfg.Runtime.Concurrency)
	for i, run := range runs {
		g.Go(func() error {
			text, err := e.Source.FetchLogs(ctx, owner, repo, run.ID)
			outcomes[i] = runOutcome{run: run, logText: text, fetchErr: err}
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

// analyzeRun classifies one run's logs, proposes fixes against the workflow
// file, emits records and the per-run report section, and optionally opens a
// fix PR and/or a review issue.
//
// Returns whether any detections were found and whether a non-fatal failure
// (workflow fetch, PR, or issue creation) occurred.
func (e *Engine) analyzeRun(ctx context.Context, cfg *config.Config, oc runOutcome, rules []*pattern.Rule, outMgr *output.Manager) (findings, partial bool) {
	owner, repoName := cfg.SplitRepo()
	run := oc.run

	_ = outMgr.Write(output.Event{Type: "run.started", Repo: cfg.Targeting.Repo, RunID: run.ID})

	classifier := classify.New(rules, cfg.Analysis.ContextLines)
	detections := classifier.Classify(oc.logText)

	var workflowSource, workflowSHA string
	if len(detections) > 0 && run.WorkflowPath != "" {
		content, sha, err := e.Source.FetchWorkflowFile(ctx, owner, repoName, run.WorkflowPath, run.Branch)
		if err != nil {
			// Fixes degrade to manual review when the workflow is unreadable.
			fmt.Fprintf(os.Stderr, "Warning: could not fetch %s for run %d: %v\n", run.WorkflowPath, run.ID, err)
			partial = true
		} else {
			workflowSource = content
			workflowSHA = sha
		}
	}

	fixes := fix.ProposeAll(detections, workflowSource)

	appliedCount := 0
	for i, d := range detections {
		f := fixes[i]
		rec := output.Record{
			Repo:        cfg.Targeting.Repo,
			RunID:       run.ID,
			Workflow:    run.WorkflowName,
			Category:    string(d.Category),
			LineNumber:  d.LineNumber,
			MatchedText: d.MatchedText,
			Message:     f.Rationale,
		}
		if rule, ok := pattern.Lookup(d.Category); ok {
			rec.Title = rule.Title
		}
		if f.Applied {
			rec.Status = output.StatusFixed
			appliedCount++
		} else {
			rec.Status = output.StatusManual
		}
		findings = true
		_ = outMgr.Write(rec)
	}

	meta := report.RunMetadata{
		Repo:        cfg.Targeting.Repo,
		Workflow:    run.WorkflowName,
		RunID:       run.ID,
		Status:      run.Status,
		Conclusion:  run.Conclusion,
		Branch:      run.Branch,
		CommitSHA:   run.CommitSHA,
		URL:         run.URL,
		GeneratedAt: e.now().UTC().Format("2006-01-02 15:04:05 UTC"),
	}
	_ = outMgr.Write(output.Section{
		Title:    fmt.Sprintf("Run %d", run.ID),
		Markdown: report.Assemble(meta, detections, fixes),
	})

	if cfg.Analysis.CreatePR && appliedCount > 0 && workflowSource != "" {
		if err := e.openFixPullRequest(ctx, cfg, run, meta, fixes, workflowSource, workflowSHA); err != nil {
			fmt.Fprintf(os.Stderr, "Error creating pull request for run %d: %v\n", run.ID, err)
			partial = true
		}
	}

	_, manualCount := splitFixCounts(fixes)
	if cfg.Analysis.CreateIssue && manualCount > 0 {
		title := fmt.Sprintf("CI/CD pipeline failure: %s run %d", run.WorkflowName, run.ID)
		body := report.IssueBody(meta, detections, fixes)
		if _, err := e.Source.CreateIssue(ctx, owner, repoName, title, body, []string{"ci-cd", "automated"}); err != nil {
			fmt.Fprintf(os.Stderr, "Error creating issue for run %d: %v\n", run.ID, err)
			partial = true
		}
	}

	_ = outMgr.Write(output.Event{
		Type:       "run.finished",
		Repo:       cfg.Targeting.Repo,
		RunID:      run.ID,
		Detections: len(detections),
		Fixes:      appliedCount,
	})
	return findings, partial
}

func (e *Engine) openFixPullRequest(ctx context.Context, cfg *config.Config, run gh.WorkflowRun, meta report.RunMetadata, fixes []fix.Result, workflowSource, workflowSHA string) error {
	owner, repoName := cfg.SplitRepo()

	updated, applied := fix.Apply(workflowSource, fixes)
	if applied == 0 || updated == workflowSource {
		return nil
	}

	branch := cfg.Analysis.FixBranch
	if err := e.Source.EnsureBranch(ctx, owner, repoName, branch, cfg.Analysis.BaseBranch); err != nil {
		return err
	}

	message := fmt.Sprintf("Fix CI/CD pipeline errors in %s", run.WorkflowPath)
	if err := e.Source.UpdateFile(ctx, owner, repoName, run.WorkflowPath, branch, message, updated, workflowSHA); err != nil {
		return err
	}

	title := fmt.Sprintf("Fix CI/CD pipeline errors (run %d)", run.ID)
	body := report.PullRequestBody(meta, fixes)
	_, err := e.Source.CreatePullRequest(ctx, owner, repoName, title, body, branch, cfg.Analysis.BaseBranch)
	return err
}

func splitFixCounts(fixes []fix.Result) (applied, manual int) {
	for _, f := range fixes {
		if f.Applied {
			applied++
		} else {
			manual++
		}
	}
	return applied, manual
}

func (e *Engine) Run(ctx context.Context, cfg *config.Config) int {
	rules, err := pattern.Resolve(cfg.Analysis.Patterns)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error resolving patterns: %v\n", err)
		return exitCodeForRun(true, false, false)
	}

	runs, err := e.discoverRuns(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error discovering failed runs: %v\n", err)
		return exitCodeForRun(true, false, false)
	}
	if !cfg.Output.NoConsole {
		fmt.Fprintf(os.Stderr, "Found %d failed runs.\n", len(runs))
	}

	outMgr, err := setupOutputManager(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating output sinks: %v\n", err)
		return exitCodeForRun(true, false, false)
	}
	defer outMgr.Close()

	_ = outMgr.Write(output.Event{Type: "analysis.started", Repo: cfg.Targeting.Repo, Runs: len(runs)})

	outcomes := e.fetchLogsConcurrently(ctx, cfg, runs)

	// Evaluation stays sequential and in discovery order so records, sections,
	// and exit codes are deterministic for a given set of runs.
	var findings, partial bool
	for _, oc := range outcomes {
		if oc.fetchErr != nil {
			_ = outMgr.Write(output.Record{
				Status:  output.StatusError,
				Repo:    cfg.Targeting.Repo,
				RunID:   oc.run.ID,
				Message: fmt.Sprintf("failed to fetch logs: %v", oc.fetchErr),
			})
			partial = true
			continue
		}
		runFindings, runPartial := e.analyzeRun(ctx, cfg, oc, rules, outMgr)
		findings = findings || runFindings
		partial = partial || runPartial
	}

	code := exitCodeForRun(false, partial, findings)
	_ = outMgr.Write(output.Event{Type: "analysis.finished", Runs: len(runs), ExitCode: code})
	return code
}
