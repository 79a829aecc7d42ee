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
	Use:   "sweeper",
	Short: "Select and delete or archive your GitHub repositories, safely",
	Long: `Sweeper enumerates the repositories you own on GitHub, selects a subset by
criteria (archived, fork, staleness, visibility), and deletes or archives them
only after you confirm the full plan.

Sweeper never mutates anything before an explicit confirmation, and a dry run
never mutates anything at all.

Examples:
	# Show available commands and global flags
	sweeper --help

	# See what would be deleted, without touching anything
	sweeper clean --forks --stale-days 365 --dry-run

	# Archive everything not pushed in two years
	sweeper clean --stale-days 730 --action archive

	# Print build info
	sweeper version`,
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
