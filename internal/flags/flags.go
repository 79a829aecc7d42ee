package flags

// Package flags defines canonical CLI flag names shared across the CLI and
// engine. Keeping these as constants helps avoid drift between Cobra flag
// wiring and other code paths that reference flags in messages.
// IMPORTANT: These are flag *names* without leading dashes.
const (
	// Criteria
	FlagArchived   = "archived"
	FlagForks      = "forks"
	FlagStaleDays  = "stale-days"
	FlagVisibility = "visibility"
	FlagAll        = "all"

	// Action
	FlagAction = "action"
	FlagDryRun = "dry-run"

	// Output
	FlagEmit                = "emit"
	FlagConsoleFilterStatus = "console-filter-status"
	FlagNoConsole           = "no-console"

	// Runtime
	FlagToken    = "token"
	FlagMaxRepos = "max-repos"
	FlagTimeout  = "timeout"
)
