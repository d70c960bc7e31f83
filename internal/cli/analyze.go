package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"pipemedic/internal/config"
	"pipemedic/internal/engine"
	"pipemedic/internal/flags"
	gh "pipemedic/internal/github"
)

var cfg = config.New()

const analyzeHelpTemplate = `{{with (or .Long .Short)}}{{. | trimTrailingWhitespaces}}

{{end}}Usage:
  {{.UseLine}}

{{if .HasAvailableLocalFlags}}Flags:
{{.LocalFlags.FlagUsages | trimTrailingWhitespaces}}

{{end}}{{if .HasAvailableInheritedFlags}}Global Flags:
{{.InheritedFlags.FlagUsages | trimTrailingWhitespaces}}

{{end}}Environment:
	Pipemedic authenticates to GitHub using an access token.

	Sources (in order):
	1) GITHUB_TOKEN environment variable
	2) GitHub CLI (gh) authentication via gh auth token (if gh is installed and logged in)

  Token guidance (brief):
  - PAT (classic): typically needs repo (to read private repos and run logs)
    and workflow (to commit workflow fixes with --create-pr).
  - Fine-grained PAT: grant access to the target repository with
    Actions: Read, Contents: Read and write, Pull requests: Read and write.

  Examples:
    # macOS/Linux
    export GITHUB_TOKEN="<your_token>"
    pipemedic analyze --repo my-org/my-repo

		# GitHub CLI auth
		gh auth login
		pipemedic analyze --repo my-org/my-repo

    # Windows PowerShell
    $env:GITHUB_TOKEN = "<your_token>"
    pipemedic analyze --repo my-org/my-repo

{{if .HasAvailableSubCommands}}Available Commands:
{{range .Commands}}{{if (or .IsAvailableCommand (eq .Name "help"))}}
  {{rpad .Name .NamePadding }} {{.Short}}{{end}}{{end}}

{{end}}{{if .HasHelpSubCommands}}Additional help topics:
{{range .Commands}}{{if .IsAdditionalHelpTopicCommand}}
  {{rpad .Name .NamePadding }} {{.Short}}{{end}}{{end}}

{{end}}{{if .HasAvailableSubCommands}}Use "{{.CommandPath}} [command] --help" for more information about a command.
{{end}}`

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze failed workflow runs of a GitHub repository",
	Long: `Analyze failed GitHub Actions workflow runs of a repository.

Pipemedic downloads the logs of recent failed runs, classifies the errors it
finds against a static pattern table, and proposes fixes. Fixes are applied
only for categories with a deterministic remedy (deprecated action versions);
everything else is reported for manual review.

Authentication:
  Pipemedic uses a GitHub access token. It prefers GITHUB_TOKEN, but can also
  reuse GitHub CLI authentication if the gh CLI is installed and logged in.

Output:
	Console output is controlled by --console-format (default: text).
	Structured outputs can be written via:
	- --out / --out-format: write an aggregate JSON array or NDJSON stream to a file
	- --emit: write an additional structured stream to stdout (json or ndjson)
	- --report: write a Markdown analysis report to a file
	- --no-console: suppress the console sink (use with --emit/--out for machine output)

	NDJSON mode emits one JSON object per line. Objects are lifecycle Events with a
	"type" field (analysis.started, run.started, detection.result, run.finished,
	analysis.finished). Detections are represented as an Event with type
	"detection.result" and a nested record.

Exit codes:
	0 = clean run, no findings
	1 = findings detected
	2 = partial failure (some runs could not be analyzed)
	3 = fatal error (analysis did not run)

Examples:
  # Token via environment variable
  export GITHUB_TOKEN="<your_token>"
  pipemedic analyze --repo my-org/my-repo

  # Analyze one specific run and write a Markdown report
  pipemedic analyze --repo my-org/my-repo --run-id 123456789 --report report.md

  # Open a pull request with the applied fixes
	pipemedic analyze --repo my-org/my-repo --create-pr --fix-branch pipemedic/fixes

	# AI Agent: stream machine-readable events to stdout
	pipemedic analyze --repo my-org/my-repo --no-console --emit ndjson
`,
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) == 0 && cmd.Flags().NFlag() == 0 {
			_ = cmd.Help()
			return
		}

		if err := cfg.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(3)
		}

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Runtime.Timeout)
		defer cancel()

		token, _, err := gh.ResolveAuthToken(ctx, "")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to resolve GitHub auth token: %v\n", err)
			os.Exit(3)
		}
		if strings.TrimSpace(token) == "" {
			fmt.Fprintln(os.Stderr, "Error: GitHub auth token is required (set GITHUB_TOKEN or run 'gh auth login')")
			os.Exit(3)
		}

		client, err := gh.NewClient(ctx, token, gh.WithVerbose(cfg.Runtime.Verbose, nil))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to create GitHub client: %v\n", err)
			os.Exit(3)
		}
		eng := engine.NewEngine(gh.NewActions(client, gh.NewRequestBudget()))
		code := eng.Run(ctx, cfg)
		cancel()
		os.Exit(code)
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.SetHelpTemplate(analyzeHelpTemplate)

	// Targeting
	analyzeCmd.Flags().StringVar(&cfg.Targeting.Repo, flags.FlagRepo, "", "Repository to analyze as OWNER/REPO (name or URL)")
	analyzeCmd.Flags().Int64Var(&cfg.Targeting.RunID, flags.FlagRunID, 0, "Analyze a single workflow run by ID (0 = most recent failed runs)")
	analyzeCmd.Flags().IntVar(&cfg.Targeting.MaxRuns, flags.FlagMaxRuns, cfg.Targeting.MaxRuns, "Maximum number of failed runs to analyze (default: 5)")

	// Analysis
	analyzeCmd.Flags().StringVar(&cfg.Analysis.Patterns, flags.FlagPatterns, "", "Pattern selector as comma-separated categories (empty = all patterns)")
	analyzeCmd.Flags().IntVar(&cfg.Analysis.ContextLines, flags.FlagContext, cfg.Analysis.ContextLines, "Log lines of context captured around each detection (default: 3)")
	analyzeCmd.Flags().BoolVar(&cfg.Analysis.CreateIssue, flags.FlagCreateIssue, false, "File a GitHub issue for findings that need manual review")
	analyzeCmd.Flags().BoolVar(&cfg.Analysis.CreatePR, flags.FlagCreatePR, false, "Commit applied fixes to --fix-branch and open a pull request")
	analyzeCmd.Flags().StringVar(&cfg.Analysis.FixBranch, flags.FlagFixBranch, "", "Head branch for --create-pr")
	analyzeCmd.Flags().StringVar(&cfg.Analysis.BaseBranch, flags.FlagBaseBranch, cfg.Analysis.BaseBranch, "Target branch for --create-pr (default: main)")

	// Output
	analyzeCmd.Flags().StringVar(&cfg.Output.ConsoleFormat, flags.FlagConsoleFormat, "text", "Console output format: text|json|ndjson (default: text)")
	analyzeCmd.Flags().StringSliceVar(&cfg.Output.ConsoleFilterStatus, flags.FlagConsoleFilterStatus, nil, "Filter console output by status (FIXED, MANUAL, ERROR). Comma-separated.")
	analyzeCmd.Flags().StringVar(&cfg.Output.Report, flags.FlagReport, "", "Write a Markdown report to this path")
	analyzeCmd.Flags().StringVar(&cfg.Output.Out, flags.FlagOut, "", "Write structured output to this path")
	analyzeCmd.Flags().StringVar(&cfg.Output.OutFormat, flags.FlagOutFormat, "", "Structured output format for --out: json|ndjson (default: inferred from file extension)")
	analyzeCmd.Flags().StringSliceVar(&cfg.Output.Emit, flags.FlagEmit, nil, "Emit additional structured stream to stdout: json|ndjson (repeatable; comma-separated accepted)")
	analyzeCmd.Flags().BoolVar(&cfg.Output.NoConsole, flags.FlagNoConsole, false, "Suppress console output (use with --emit/--out/--report)")

	// Runtime
	analyzeCmd.Flags().IntVar(&cfg.Runtime.Concurrency, flags.FlagConcurrency, cfg.Runtime.Concurrency, "Concurrent log downloads (default: 3)")
	analyzeCmd.Flags().DurationVar(&cfg.Runtime.Timeout, flags.FlagTimeout, cfg.Runtime.Timeout, "Global timeout (default: 10m)")
}
