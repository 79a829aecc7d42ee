package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

type Config struct {
	// MAINTAINER NOTE: If you add/change/remove config fields, keep the CLI
	// flag wiring in internal/cli/clean.go in sync.
	Criteria Criteria
	Action   Action
	Output   Output
	Runtime  Runtime
}

type Criteria struct {
	// Archived targets repositories that are archived (see --archived).
	Archived bool

	// Forks targets repositories that are forks (see --forks).
	Forks bool

	// StaleDays targets repositories not pushed to in the last N days
	// (see --stale-days). 0 means the criterion is not applied.
	StaleDays int

	// Visibility targets repositories of one visibility (see --visibility).
	// Allowed values: public, private. Empty means the criterion is not applied.
	Visibility string

	// All is the explicit opt-in required to run with no criteria at all,
	// i.e. to act on every repository (see --all).
	All bool
}

type Action struct {
	// Kind selects the mutating call issued per repository (see --action).
	// Allowed values: delete, archive.
	Kind string

	// DryRun plans and presents but never mutates (see --dry-run).
	DryRun bool
}

type Output struct {
	// Emit writes a structured event stream to stdout (see --emit).
	// Allowed values: json, ndjson.
	Emit []string

	// ConsoleFilterStatus filters console item lines by outcome status
	// (see --console-filter-status). Allowed values: succeeded, failed, skipped.
	ConsoleFilterStatus []string

	// NoConsole suppresses the console sink (see --no-console).
	NoConsole bool
}

type Runtime struct {
	// Token is an explicit GitHub access token (see --token). When empty the
	// token is resolved from GITHUB_TOKEN or the gh CLI.
	Token string

	// MaxRepos limits how many repositories are enumerated (see --max-repos).
	// 0 means unlimited.
	MaxRepos int

	// Timeout is the global deadline for the run (see --timeout).
	Timeout time.Duration

	// Verbose enables per-request API logging on stderr (see --verbose).
	Verbose bool
}

func New() *Config {
	return &Config{
		Action: Action{
			Kind: "delete",
		},
		Runtime: Runtime{
			Timeout: 30 * time.Minute,
		},
	}
}

// HasCriteria reports whether any selection criterion is configured.
func (c *Config) HasCriteria() bool {
	return c.Criteria.Archived || c.Criteria.Forks || c.Criteria.StaleDays > 0 || c.Criteria.Visibility != ""
}

// Validate normalizes and checks the configuration. Any failure here is
// fatal before a plan is built; nothing has been mutated yet.
func (c *Config) Validate() error {
	c.Output.Emit = splitCommaList(c.Output.Emit)
	c.Output.ConsoleFilterStatus = splitCommaList(c.Output.ConsoleFilterStatus)

	// Action validation
	c.Action.Kind = normalizeEnumValue(c.Action.Kind)
	if c.Action.Kind != "delete" && c.Action.Kind != "archive" {
		return fmt.Errorf("unsupported --action: %s (must be one of: delete, archive)", c.Action.Kind)
	}

	// Criteria validation
	if c.Criteria.StaleDays < 0 {
		return errors.New("--stale-days must be >= 0")
	}
	c.Criteria.Visibility = normalizeEnumValue(c.Criteria.Visibility)
	if c.Criteria.Visibility == "all" {
		c.Criteria.Visibility = ""
	}
	if c.Criteria.Visibility != "" && c.Criteria.Visibility != "public" && c.Criteria.Visibility != "private" {
		return fmt.Errorf("unsupported --visibility: %s (must be one of: public, private)", c.Criteria.Visibility)
	}

	// An empty criteria set matches every repository. That is never implicit:
	// the caller must ask for it with --all.
	if !c.HasCriteria() && !c.Criteria.All {
		return errors.New("at least one of --archived, --forks, --stale-days, or --visibility must be provided (or pass --all to target every repository)")
	}
	if c.HasCriteria() && c.Criteria.All {
		return errors.New("--all cannot be combined with criterion flags")
	}

	// Output validation
	for _, emit := range c.Output.Emit {
		v := normalizeEnumValue(emit)
		if v != "json" && v != "ndjson" {
			return fmt.Errorf("unsupported --emit value: %s (must be one of: json, ndjson)", emit)
		}
	}
	for i, st := range c.Output.ConsoleFilterStatus {
		v := normalizeEnumValue(st)
		if v != "succeeded" && v != "failed" && v != "skipped" {
			return fmt.Errorf("unsupported --console-filter-status value: %s (must be one of: succeeded, failed, skipped)", st)
		}
		c.Output.ConsoleFilterStatus[i] = v
	}

	// Runtime validation
	if c.Runtime.MaxRepos < 0 {
		return errors.New("--max-repos must be >= 0")
	}
	if c.Runtime.Timeout <= 0 {
		return errors.New("--timeout must be > 0")
	}

	return nil
}

func normalizeEnumValue(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

func splitCommaList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			p := strings.TrimSpace(part)
			if p == "" {
				continue
			}
			out = append(out, p)
		}
	}
	return out
}
