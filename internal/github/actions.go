package github

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/google/go-github/v81/github"
)

// WorkflowRun captures the subset of a GitHub Actions run that analysis needs.
type WorkflowRun struct {
	ID           int64
	WorkflowName string
	WorkflowPath string
	Status       string
	Conclusion   string
	Branch       string
	CommitSHA    string
	URL          string
}

type PullRequestHandle struct {
	Number int
	URL    string
}

type IssueHandle struct {
	Number int
	URL    string
}

// Actions wraps the GitHub Actions and content APIs behind the request budget
// so every call is accounted against the observed rate limit.
type Actions struct {
	client *Client
	budget *RequestBudget
}

func NewActions(c *Client, budget *RequestBudget) *Actions {
	if budget == nil {
		budget = NewRequestBudget()
	}
	return &Actions{client: c, budget: budget}
}

func (a *Actions) Budget() *RequestBudget { return a.budget }

func (a *Actions) track(resp *github.Response) {
	if resp != nil {
		a.budget.UpdateFromResponse(resp.Response)
	}
}

// ListFailedRuns returns up to max of the most recent failed workflow runs,
// newest first (the API's default ordering).
func (a *Actions) ListFailedRuns(ctx context.Context, owner, repo string, max int) ([]WorkflowRun, error) {
	if max <= 0 {
		max = 5
	}
	if err := a.budget.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	opts := &github.ListWorkflowRunsOptions{
		Status:      "failure",
		ListOptions: github.ListOptions{PerPage: max},
	}
	runs, resp, err := a.client.Client.Actions.ListRepositoryWorkflowRuns(ctx, owner, repo, opts)
	a.track(resp)
	if err != nil {
		return nil, fmt.Errorf("list failed runs for %s/%s: %w", owner, repo, err)
	}

	out := make([]WorkflowRun, 0, max)
	for _, run := range runs.WorkflowRuns {
		out = append(out, workflowRunFrom(run))
		if len(out) == max {
			break
		}
	}
	return out, nil
}

// GetRun fetches a single workflow run by ID.
func (a *Actions) GetRun(ctx context.Context, owner, repo string, runID int64) (WorkflowRun, error) {
	if err := a.budget.Acquire(ctx, 1); err != nil {
		return WorkflowRun{}, err
	}
	run, resp, err := a.client.Client.Actions.GetWorkflowRunByID(ctx, owner, repo, runID)
	a.track(resp)
	if err != nil {
		return WorkflowRun{}, fmt.Errorf("get run %d for %s/%s: %w", runID, owner, repo, err)
	}
	return workflowRunFrom(run), nil
}

// FetchLogs downloads the full log archive for a run and returns the
// concatenated log text. Archive entries are concatenated in name order so
// the result is stable across downloads.
func (a *Actions) FetchLogs(ctx context.Context, owner, repo string, runID int64) (string, error) {
	// Two requests: the redirect lookup and the archive download.
	if err := a.budget.Acquire(ctx, 2); err != nil {
		return "", err
	}
	logURL, resp, err := a.client.Client.Actions.GetWorkflowRunLogs(ctx, owner, repo, runID, 4)
	a.track(resp)
	if err != nil {
		return "", fmt.Errorf("locate logs for run %d: %w", runID, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, logURL.String(), nil)
	if err != nil {
		return "", fmt.Errorf("build log request for run %d: %w", runID, err)
	}
	// The archive URL is pre-signed; sending the API token would break it.
	httpResp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("download logs for run %d: %w", runID, err)
	}
	defer httpResp.Body.Close()
	if httpResp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download logs for run %d: unexpected status %d", runID, httpResp.StatusCode)
	}

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return "", fmt.Errorf("read log archive for run %d: %w", runID, err)
	}
	text, err := extractLogArchive(data)
	if err != nil {
		return "", fmt.Errorf("extract log archive for run %d: %w", runID, err)
	}
	return text, nil
}

// extractLogArchive flattens a run log zip into one text blob. Entries are
// visited in name order, which mirrors the job/step numbering GitHub uses.
func extractLogArchive(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	files := make([]*zip.File, 0, len(zr.File))
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		files = append(files, f)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })

	var sb strings.Builder
	for _, f := range files {
		rc, err := f.Open()
		if err != nil {
			return "", fmt.Errorf("open %s: %w", f.Name, err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return "", fmt.Errorf("read %s: %w", f.Name, err)
		}
		sb.Write(content)
		if len(content) > 0 && content[len(content)-1] != '\n' {
			sb.WriteByte('\n')
		}
	}
	return sb.String(), nil
}

// FetchWorkflowFile returns the workflow file content at path on ref, plus
// the blob SHA needed for a later update.
func (a *Actions) FetchWorkflowFile(ctx context.Context, owner, repo, path, ref string) (content, sha string, err error) {
	if err := a.budget.Acquire(ctx, 1); err != nil {
		return "", "", err
	}
	opts := &github.RepositoryContentGetOptions{Ref: ref}
	file, _, resp, err := a.client.Client.Repositories.GetContents(ctx, owner, repo, path, opts)
	a.track(resp)
	if err != nil {
		return "", "", fmt.Errorf("fetch %s@%s: %w", path, ref, err)
	}
	if file == nil {
		return "", "", fmt.Errorf("fetch %s@%s: path is a directory", path, ref)
	}
	content, err = file.GetContent()
	if err != nil {
		return "", "", fmt.Errorf("decode %s@%s: %w", path, ref, err)
	}
	return content, file.GetSHA(), nil
}

// EnsureBranch creates branch from the tip of base unless it already exists.
func (a *Actions) EnsureBranch(ctx context.Context, owner, repo, branch, base string) error {
	if err := a.budget.Acquire(ctx, 1); err != nil {
		return err
	}
	_, resp, err := a.client.Client.Git.GetRef(ctx, owner, repo, "refs/heads/"+branch)
	a.track(resp)
	if err == nil {
		return nil
	}

	if err := a.budget.Acquire(ctx, 2); err != nil {
		return err
	}
	baseRef, resp, err := a.client.Client.Git.GetRef(ctx, owner, repo, "refs/heads/"+base)
	a.track(resp)
	if err != nil {
		return fmt.Errorf("resolve base branch %s: %w", base, err)
	}
	newRef := github.CreateRef{
		Ref: "refs/heads/" + branch,
		SHA: baseRef.Object.GetSHA(),
	}
	_, resp, err = a.client.Client.Git.CreateRef(ctx, owner, repo, newRef)
	a.track(resp)
	if err != nil {
		return fmt.Errorf("create branch %s: %w", branch, err)
	}
	return nil
}

// UpdateFile commits new content to path on branch. sha is the blob SHA of
// the current file; pass an empty sha to create the file.
func (a *Actions) UpdateFile(ctx context.Context, owner, repo, path, branch, message, content, sha string) error {
	if err := a.budget.Acquire(ctx, 1); err != nil {
		return err
	}
	opts := &github.RepositoryContentFileOptions{
		Message: github.Ptr(message),
		Content: []byte(content),
		Branch:  github.Ptr(branch),
	}
	if sha != "" {
		opts.SHA = github.Ptr(sha)
	}
	var resp *github.Response
	var err error
	if sha != "" {
		_, resp, err = a.client.Client.Repositories.UpdateFile(ctx, owner, repo, path, opts)
	} else {
		_, resp, err = a.client.Client.Repositories.CreateFile(ctx, owner, repo, path, opts)
	}
	a.track(resp)
	if err != nil {
		return fmt.Errorf("commit %s to %s: %w", path, branch, err)
	}
	return nil
}

// CreatePullRequest opens a PR from head into base.
func (a *Actions) CreatePullRequest(ctx context.Context, owner, repo, title, body, head, base string) (PullRequestHandle, error) {
	if err := a.budget.Acquire(ctx, 1); err != nil {
		return PullRequestHandle{}, err
	}
	pr, resp, err := a.client.Client.PullRequests.Create(ctx, owner, repo, &github.NewPullRequest{
		Title: github.Ptr(title),
		Body:  github.Ptr(body),
		Head:  github.Ptr(head),
		Base:  github.Ptr(base),
	})
	a.track(resp)
	if err != nil {
		return PullRequestHandle{}, fmt.Errorf("create pull request %s -> %s: %w", head, base, err)
	}
	return PullRequestHandle{Number: pr.GetNumber(), URL: pr.GetHTMLURL()}, nil
}

// CreateIssue files an issue with the given labels.
func (a *Actions) CreateIssue(ctx context.Context, owner, repo, title, body string, labels []string) (IssueHandle, error) {
	if err := a.budget.Acquire(ctx, 1); err != nil {
		return IssueHandle{}, err
	}
	req := &github.IssueRequest{
		Title: github.Ptr(title),
		Body:  github.Ptr(body),
	}
	if len(labels) > 0 {
		req.Labels = &labels
	}
	issue, resp, err := a.client.Client.Issues.Create(ctx, owner, repo, req)
	a.track(resp)
	if err != nil {
		return IssueHandle{}, fmt.Errorf("create issue: %w", err)
	}
	return IssueHandle{Number: issue.GetNumber(), URL: issue.GetHTMLURL()}, nil
}

func workflowRunFrom(run *github.WorkflowRun) WorkflowRun {
	return WorkflowRun{
		ID:           run.GetID(),
		WorkflowName: run.GetName(),
		WorkflowPath: run.GetPath(),
		Status:       run.GetStatus(),
		Conclusion:   run.GetConclusion(),
		Branch:       run.GetHeadBranch(),
		CommitSHA:    run.GetHeadSHA(),
		URL:          run.GetHTMLURL(),
	}
}
