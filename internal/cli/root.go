package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	buildVersion = "dev"
	buildCommit  = "unknown"
	buildDate    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "pipemedic",
	Short: "Analyze failed GitHub Actions runs and propose deterministic fixes",
	Long: `Pipemedic analyzes failed GitHub Actions workflow runs, classifies the errors
found in their logs, and proposes fixes for the ones that have a deterministic
remedy (such as deprecated action versions).

Everything Pipemedic reports comes from a static pattern table; there is no
guessing and no network inference. Identical logs always produce identical
findings.

Examples:
	# Show available commands and global flags
	pipemedic --help

	# Analyze the most recent failed runs of a repository
	pipemedic analyze --repo org/repo

	# Validate (and optionally fix) a workflow file locally
	pipemedic validate .github/workflows/ci.yml --fix

	# List error patterns
	pipemedic patterns list

	# Print build info
	pipemedic version

Output:
	By default, commands write human-readable output to stdout.
	Some commands support structured output via emitter flags (see each command's --help).`,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&cfg.Runtime.Verbose, "verbose", false, "Enable verbose logging (prints every GitHub API call and full error details)")
}

func SetBuildInfo(version, commit, date string) {
	if version != "" {
		buildVersion = version
	}
	if commit != "" {
		buildCommit = commit
	}
	if date != "" {
		buildDate = date
	}

	rootCmd.Version = fmt.Sprintf("%s (%s) %s", buildVersion, buildCommit, buildDate)
	rootCmd.SetVersionTemplate("{{.Version}}\n")
}

func BuildInfo() (version, commit, date string) {
	return buildVersion, buildCommit, buildDate
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
