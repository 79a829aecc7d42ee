package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"sweeper/internal/config"
	"sweeper/internal/engine"
	"sweeper/internal/flags"
	gh "sweeper/internal/github"
)

var cfg = config.New()

const cleanHelpTemplate = `{{with (or .Long .Short)}}{{. | trimTrailingWhitespaces}}

{{end}}Usage:
  {{.UseLine}}

{{if .HasAvailableLocalFlags}}Flags:
{{.LocalFlags.FlagUsages | trimTrailingWhitespaces}}

{{end}}{{if .HasAvailableInheritedFlags}}Global Flags:
{{.InheritedFlags.FlagUsages | trimTrailingWhitespaces}}

{{end}}Environment:
	Sweeper authenticates to GitHub using an access token.

	Sources (in order):
	1) --token flag
	2) GITHUB_TOKEN environment variable
	3) GitHub CLI (gh) authentication via gh auth token (if gh is installed and logged in)

  Token guidance (brief):
  - Deleting repositories requires the delete_repo scope (PAT classic) or
    Administration: Write (fine-grained PAT).
  - Archiving requires Administration: Write on the target repositories.

  Examples:
    # macOS/Linux
    export GITHUB_TOKEN="<your_token>"
    sweeper clean --forks --dry-run

		# GitHub CLI auth
		gh auth login
		sweeper clean --stale-days 730 --action archive

Exit codes:
	0 = run completed (including dry runs and runs where every item failed)
	1 = aborted at the confirmation prompt, or invalid configuration
	2 = fetch or authentication failure before any change could be confirmed
`

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Plan and execute a cleanup of your repositories",
	Long: `Plan and execute a cleanup of the repositories you own.

Sweeper lists your repositories, partitions them by the given criteria into a
plan, shows you the full plan, and only mutates after you type the exact
confirmation token. Criteria are AND-composed: a repository is selected only
if it matches every criterion you pass.

Running with no criteria would select everything; that requires the explicit
--all flag.

Safety:
  - Nothing is mutated before the confirmation prompt.
  - --dry-run presents the plan and always aborts.
  - One repository's failure never aborts the batch; each item gets its own
    succeeded/failed/skipped outcome and the run reports a final summary.

Examples:
  # Delete forks not pushed in a year (after confirmation)
  sweeper clean --forks --stale-days 365

  # Archive everything public and stale
  sweeper clean --visibility public --stale-days 730 --action archive

  # Machine-readable stream of outcomes on stdout
  sweeper clean --archived --no-console --emit ndjson
`,
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) == 0 && cmd.Flags().NFlag() == 0 {
			_ = cmd.Help()
			return
		}

		if err := cfg.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(engine.ExitAborted)
		}

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Runtime.Timeout)
		defer cancel()

		token, _, err := gh.ResolveAuthToken(ctx, cfg.Runtime.Token)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to resolve GitHub auth token: %v\n", err)
			os.Exit(engine.ExitFatal)
		}
		if strings.TrimSpace(token) == "" {
			fmt.Fprintln(os.Stderr, "Error: GitHub auth token is required (set GITHUB_TOKEN or run 'gh auth login')")
			os.Exit(engine.ExitFatal)
		}

		client, err := gh.NewClient(ctx, token, gh.WithVerbose(cfg.Runtime.Verbose, nil))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to create GitHub client: %v\n", err)
			os.Exit(engine.ExitFatal)
		}
		eng := engine.NewEngine(client)
		os.Exit(eng.Run(ctx, cfg))
	},
}

func init() {
	rootCmd.AddCommand(cleanCmd)
	cleanCmd.SetHelpTemplate(cleanHelpTemplate)

	// Criteria
	cleanCmd.Flags().BoolVar(&cfg.Criteria.Archived, flags.FlagArchived, false, "Target repositories that are archived")
	cleanCmd.Flags().BoolVar(&cfg.Criteria.Forks, flags.FlagForks, false, "Target repositories that are forks")
	cleanCmd.Flags().IntVar(&cfg.Criteria.StaleDays, flags.FlagStaleDays, 0, "Target repositories not pushed to in the last N days (0 = criterion off)")
	cleanCmd.Flags().StringVar(&cfg.Criteria.Visibility, flags.FlagVisibility, "", "Target repositories by visibility: public|private")
	cleanCmd.Flags().BoolVar(&cfg.Criteria.All, flags.FlagAll, false, "Explicitly target every repository (required when no criterion flags are given)")

	// Action
	cleanCmd.Flags().StringVar(&cfg.Action.Kind, flags.FlagAction, cfg.Action.Kind, "Action to perform on selected repositories: delete|archive")
	cleanCmd.Flags().BoolVar(&cfg.Action.DryRun, flags.FlagDryRun, false, "Present the plan and abort without mutating anything (still requires auth token)")

	// Output
	cleanCmd.Flags().StringSliceVar(&cfg.Output.Emit, flags.FlagEmit, nil, "Emit a structured stream to stdout: json|ndjson (repeatable; comma-separated accepted)")
	cleanCmd.Flags().StringSliceVar(&cfg.Output.ConsoleFilterStatus, flags.FlagConsoleFilterStatus, nil, "Filter console output by outcome status (succeeded, failed, skipped). Comma-separated.")
	cleanCmd.Flags().BoolVar(&cfg.Output.NoConsole, flags.FlagNoConsole, false, "Suppress console output (use with --emit for machine output)")

	// Runtime
	cleanCmd.Flags().StringVar(&cfg.Runtime.Token, flags.FlagToken, "", "GitHub access token (overrides GITHUB_TOKEN and gh)")
	cleanCmd.Flags().IntVar(&cfg.Runtime.MaxRepos, flags.FlagMaxRepos, 0, "Maximum number of repositories to enumerate (0 = unlimited)")
	cleanCmd.Flags().DurationVar(&cfg.Runtime.Timeout, flags.FlagTimeout, cfg.Runtime.Timeout, "Global timeout (default: 30m)")
}
