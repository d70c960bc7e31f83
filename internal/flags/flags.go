package flags

// Package flags defines canonical CLI flag names shared across the CLI and engine.
// Keeping these as constants helps avoid drift between Cobra flag wiring and other
// code paths that need to reference flags.
// IMPORTANT: These are flag *names* without leading dashes.
// Example usage:
//
//	cmd.Flags().StringVar(&cfg.Targeting.Repo, flags.FlagRepo, "", "...")
//	arg := "--" + flags.FlagRepo
const (
	// Targeting
	FlagRepo    = "repo"
	FlagRunID   = "run-id"
	FlagMaxRuns = "max-runs"

	// Analysis
	FlagPatterns    = "patterns"
	FlagContext     = "context"
	FlagCreateIssue = "create-issue"
	FlagCreatePR    = "create-pr"
	FlagFixBranch   = "fix-branch"
	FlagBaseBranch  = "base-branch"

	// Output
	FlagConsoleFormat       = "console-format"
	FlagConsoleFilterStatus = "console-filter-status"
	FlagReport              = "report"
	FlagOut                 = "out"
	FlagOutFormat           = "out-format"
	FlagEmit                = "emit"
	FlagNoConsole           = "no-console"

	// Runtime
	FlagConcurrency = "concurrency"
	FlagTimeout     = "timeout"
)
