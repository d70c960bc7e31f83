package pattern

// The pattern table. Order here is the classification order: detections are
// reported table-first, then by line of first occurrence. Keep the table as
// data; do not branch on categories elsewhere to recognize them.
func init() {
	Register(&Rule{
		Category:    CategoryYAMLSyntaxError,
		Title:       "YAML Syntax Error",
		Description: "The workflow definition failed to parse as YAML.",
		Matchers: compile(true,
			`yaml.*syntax.*error`,
			`invalid.*yaml`,
			`could not find expected`,
			`mapping values are not allowed here`,
		),
		AutoFixable: false,
		Steps: []string{
			"Check for proper indentation (use spaces, not tabs)",
			"Ensure all quotes are properly closed",
			"Verify that colons are followed by a space",
			"Run 'pipemedic validate' against the workflow file to attempt a reformat",
		},
	})

	Register(&Rule{
		Category:    CategoryMissingDependency,
		Title:       "Missing Dependency",
		Description: "A required module or package is not installed in the job environment.",
		Matchers: compile(false,
			`ModuleNotFoundError: No module named '[^']+'`,
			`ModuleNotFoundError`,
			`ImportError`,
			`No module named '[^']+'`,
			`(?i)cannot find package`,
			`(?i)package .* not found`,
		),
		AutoFixable: false,
		Steps: []string{
			"Add the missing package to the dependency manifest (requirements.txt, package.json, go.mod)",
			"Update the install step in the workflow to install it",
			"Verify the package name spelling",
		},
	})

	Register(&Rule{
		Category:    CategoryInvalidAction,
		Title:       "Invalid Action Reference",
		Description: "The workflow references an action that cannot be resolved.",
		Matchers: compile(true,
			`unable to resolve action`,
			`invalid action reference`,
			`action .* not found`,
		),
		AutoFixable: false,
		Steps: []string{
			"Verify the action name and repository path",
			"Check that the referenced version or tag exists",
			"Ensure the action repository is public or accessible to this token",
		},
	})

	Register(&Rule{
		Category:    CategoryDeprecatedAction,
		Title:       "Deprecated Action Version",
		Description: "The workflow uses an action version that is superseded by a newer release.",
		Matchers: compile(false,
			deprecatedRefExpr(),
			`(?i)\bis deprecated\b`,
			`(?i)\bwill be removed\b`,
		),
		AutoFixable: true,
		Steps: []string{
			"Update to the latest stable version of the action",
			"Review the action's changelog for breaking changes before upgrading",
		},
	})

	Register(&Rule{
		Category:    CategoryPermissionError,
		Title:       "Permission Denied",
		Description: "The job was denied access to a resource it needs.",
		Matchers: compile(true,
			`permission denied`,
			`access denied`,
			`\bforbidden\b`,
			`\b403\b`,
		),
		AutoFixable: false,
		Suggestion:  "permissions:\n  contents: write\n  pull-requests: write",
		Steps: []string{
			"Check repository permissions and access tokens",
			"Verify GITHUB_TOKEN has the required permissions",
			"Add a 'permissions' block to the workflow or job",
		},
	})

	Register(&Rule{
		Category:    CategoryTimeoutError,
		Title:       "Timeout",
		Description: "A job or step exceeded its time limit.",
		Matchers: compile(true,
			`timed out`,
			`\btimeout\b`,
			`exceeded.*time`,
		),
		AutoFixable: false,
		Suggestion:  "timeout-minutes: 30",
		Steps: []string{
			"Increase timeout-minutes on the job or step",
			"Cache dependencies to cut install time",
			"Split long-running jobs into smaller parallel jobs",
		},
	})

	Register(&Rule{
		Category:    CategoryEnvVarMissing,
		Title:       "Missing Environment Variable",
		Description: "A required environment variable is not set for the job.",
		Matchers: compile(true,
			`environment variable.*not set`,
			`missing.*environment variable`,
		),
		AutoFixable: false,
		Suggestion:  "env:\n  YOUR_VAR: ${{ secrets.YOUR_VAR }}",
		Steps: []string{
			"Declare the variable in the workflow 'env' block",
			"Set the variable in repository settings",
			"Check for typos in the variable name",
		},
	})

	Register(&Rule{
		Category:    CategorySecretMissing,
		Title:       "Missing Secret",
		Description: "A secret referenced by the workflow is not configured.",
		Matchers: compile(true,
			`secret.*not found`,
			`missing.*secret`,
		),
		AutoFixable: false,
		Steps: []string{
			"Add the secret in repository or organization settings",
			"Verify the secret name matches the reference in the workflow",
			"Check that the secret is accessible at the current scope",
		},
	})

	Register(&Rule{
		Category:    CategoryVersionMismatch,
		Title:       "Version Mismatch",
		Description: "Two components require incompatible versions.",
		Matchers: compile(true,
			`version.*mismatch`,
			`incompatible.*version`,
			`requires.*version`,
		),
		AutoFixable: false,
		Steps: []string{
			"Update dependencies to compatible versions",
			"Pin specific versions in the dependency manifest",
			"Check for breaking changes in newer versions",
		},
	})

	Register(&Rule{
		Category:    CategoryBuildError,
		Title:       "Build Failed",
		Description: "Compilation or build tooling failed.",
		Matchers: compile(true,
			`build.*failed`,
			`compilation.*error`,
			`failed.*to.*build`,
		),
		AutoFixable: false,
		Steps: []string{
			"Review the build log for the first concrete error",
			"Ensure all dependencies are installed before building",
			"Verify the build tool configuration",
		},
	})

	Register(&Rule{
		Category:    CategoryTestFailure,
		Title:       "Test Failure",
		Description: "One or more tests failed during execution.",
		Matchers: compile(false,
			`AssertionError`,
			`(?i)test.*failed`,
			`(?i)assertion.*error`,
			`FAILED.*tests`,
		),
		AutoFixable: false,
		Steps: []string{
			"Review the test output for specific failures",
			"Fix the failing test cases or the code under test",
			"Check for flaky tests and stabilize them",
		},
	})
}
