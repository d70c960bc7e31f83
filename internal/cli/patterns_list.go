package cli

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"pipemedic/internal/pattern"
)

var patternsListQuiet bool
var patternsCmd = &cobra.Command{
	Use:   "patterns",
	Short: "Manage and list error patterns",
	Long: `Manage Pipemedic error patterns.

This command group helps you discover which error categories exist and what
each pattern matches. Patterns are applied during analysis (see
"pipemedic analyze --help").

Examples:
  # List all available patterns
  pipemedic patterns list
`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var patternsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available error patterns",
	Long: `List all error patterns registered in this build.

Patterns are printed in classification order: during analysis, detections are
reported in this order.

Examples:
  pipemedic patterns list

Output:
  A vertical list of patterns:
    ----------------------------------------
    PATTERN: {CATEGORY}
    ----------------------------------------
    {TITLE}
    {DESCRIPTION}
`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, r := range pattern.All() {
			if patternsListQuiet {
				fmt.Fprintln(cmd.OutOrStdout(), r.Category)
			} else {
				printPattern(cmd.OutOrStdout(), r)
			}
		}
		return nil
	},
}

var patternsShowCmd = &cobra.Command{
	Use:   "show [category]",
	Short: "Show details of a specific pattern",
	Long: `Show details of a specific pattern by its category.

Examples:
  pipemedic patterns show deprecated_action
`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rules, err := pattern.Resolve(args[0])
		if err != nil {
			return err
		}
		if len(rules) == 0 {
			return fmt.Errorf("pattern not found: %s", args[0])
		}
		printPattern(cmd.OutOrStdout(), rules[0])
		return nil
	},
}

func printPattern(w io.Writer, r *pattern.Rule) {
	bold := color.New(color.Bold)
	fmt.Fprintln(w, "----------------------------------------")
	bold.Fprintf(w, "PATTERN: %s\n", r.Category)
	fmt.Fprintln(w, "----------------------------------------")
	fmt.Fprintln(w, r.Title)
	fmt.Fprintln(w, r.Description)
	if r.AutoFixable {
		fmt.Fprintln(w, "Auto-fixable: yes")
	} else {
		fmt.Fprintln(w, "Auto-fixable: no")
	}

	if len(r.Steps) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Remediation:")
		for _, step := range r.Steps {
			fmt.Fprintf(w, "  - %s\n", step)
		}
	}
	fmt.Fprintln(w)
}

func init() {
	rootCmd.AddCommand(patternsCmd)
	patternsCmd.AddCommand(patternsListCmd)
	patternsListCmd.Flags().BoolVarP(&patternsListQuiet, "quiet", "q", false, "Only print pattern categories")
	patternsCmd.AddCommand(patternsShowCmd)
}
