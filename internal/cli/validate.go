package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"pipemedic/internal/report"
	"pipemedic/internal/workflow"
)

var (
	validateFix        bool
	validateReportPath string
)

var validateCmd = &cobra.Command{
	Use:   "validate <workflow-file>",
	Short: "Validate a GitHub Actions workflow file",
	Long: `Validate a GitHub Actions workflow file and optionally fix it in place.

The validator checks YAML syntax, required workflow structure (an 'on' trigger,
a 'jobs' map, 'runs-on' per job), and deprecated action references. With
--fix, missing required fields get sensible defaults and deprecated action
references are upgraded; the fixed document is written back to the file.

Without --fix, nothing is written; issues are only reported.

Exit codes:
	0 = file is valid (or was fixed into a valid state with --fix)
	1 = issues found

Examples:
  # Check a workflow file
  pipemedic validate .github/workflows/ci.yml

  # Fix it in place and write a Markdown report
  pipemedic validate .github/workflows/ci.yml --fix --report validation.md
`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]

		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}

		outcome := workflow.ValidateAndFix(string(content))
		printOutcome(cmd, path, outcome)

		if validateFix && outcome.Changed() {
			info, statErr := os.Stat(path)
			mode := os.FileMode(0644)
			if statErr == nil {
				mode = info.Mode()
			}
			if err := os.WriteFile(path, []byte(outcome.Fixed), mode); err != nil {
				return fmt.Errorf("write %s: %w", path, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote fixed workflow to %s\n", path)
		}

		if validateReportPath != "" {
			generatedAt := time.Now().UTC().Format("2006-01-02 15:04:05 UTC")
			md := report.ValidationReport(path, toValidationOutcome(outcome), generatedAt)
			if err := os.WriteFile(validateReportPath, []byte(md), 0644); err != nil {
				return fmt.Errorf("write report %s: %w", validateReportPath, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote validation report to %s\n", validateReportPath)
		}

		valid := outcome.OriginalValid
		if validateFix {
			valid = outcome.FixedValid
		}
		if !valid || (!validateFix && (len(outcome.Issues) > 0 || len(outcome.Deprecated) > 0)) {
			// Distinguish findings from usage errors without cobra printing help.
			cmd.SilenceUsage = true
			cmd.SilenceErrors = true
			os.Exit(1)
		}
		return nil
	},
}

func printOutcome(cmd *cobra.Command, path string, o *workflow.Outcome) {
	w := cmd.OutOrStdout()
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)
	yellow := color.New(color.FgYellow)

	fmt.Fprintf(w, "Validating %s\n", path)
	if o.OriginalValid {
		green.Fprintln(w, "  Syntax: OK")
	} else {
		red.Fprintln(w, "  Syntax: INVALID")
	}
	for _, issue := range o.Issues {
		yellow.Fprintf(w, "  Issue: %s\n", issue)
	}
	for _, d := range o.Deprecated {
		yellow.Fprintf(w, "  Deprecated: %s -> %s\n", d.Old, d.New)
	}
	for _, f := range o.FixesApplied {
		green.Fprintf(w, "  Fix: %s\n", f)
	}
	if len(o.Issues) == 0 && len(o.Deprecated) == 0 && o.OriginalValid {
		green.Fprintln(w, "  No issues found")
	}
}

func toValidationOutcome(o *workflow.Outcome) report.ValidationOutcome {
	out := report.ValidationOutcome{
		OriginalValid: o.OriginalValid,
		FixedValid:    o.FixedValid,
		Issues:        o.Issues,
		FixesApplied:  o.FixesApplied,
	}
	for _, d := range o.Deprecated {
		out.Deprecated = append(out.Deprecated, report.ReplacementPair{Old: d.Old, New: d.New})
	}
	return out
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().BoolVar(&validateFix, "fix", false, "Apply fixes and write the result back to the file")
	validateCmd.Flags().StringVar(&validateReportPath, "report", "", "Write a Markdown validation report to this path")
}
