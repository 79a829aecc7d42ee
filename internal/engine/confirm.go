package engine

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"sweeper/internal/repos"
)

// DefaultAffirmativeToken is the exact input required to proceed.
const DefaultAffirmativeToken = "yes"

type Decision int

const (
	Abort Decision = iota
	Proceed
)

// Gate is the single suspension point between planning and execution. It
// presents the full plan, then reads one line: only the exact affirmative
// token proceeds. Anything else, EOF included, aborts the whole run; there
// is no partial confirmation.
type Gate struct {
	In  io.Reader
	Out io.Writer

	// Token overrides DefaultAffirmativeToken. Used by tests.
	Token string

	// DryRun renders the same presentation but always aborts without
	// reading input.
	DryRun bool
}

func (g *Gate) token() string {
	if g.Token != "" {
		return g.Token
	}
	return DefaultAffirmativeToken
}

// Confirm presents the plan and returns the decision. The action list and
// its count are always shown before any input is read.
func (g *Gate) Confirm(plan *Plan) Decision {
	if plan == nil {
		return Abort
	}

	g.present(plan)

	if g.DryRun {
		fmt.Fprintln(g.Out, "Dry run: no changes will be made.")
		return Abort
	}
	if g.In == nil {
		return Abort
	}

	fmt.Fprintf(g.Out, "This cannot be undone. Type %q to %s these %d repositories: ", g.token(), plan.Action, len(plan.Items))
	line, err := bufio.NewReader(g.In).ReadString('\n')
	if err != nil && line == "" {
		fmt.Fprintln(g.Out)
		return Abort
	}
	if strings.TrimRight(line, "\r\n") != g.token() {
		return Abort
	}
	return Proceed
}

func (g *Gate) present(plan *Plan) {
	fmt.Fprintf(g.Out, "Planned for %s (%d):\n", plan.Action, len(plan.Items))
	for _, item := range plan.Items {
		fmt.Fprintf(g.Out, "  %s%s\n", item.Repo.FullName, recordMarkers(item.Repo))
	}
	if len(plan.Rejections) > 0 {
		fmt.Fprintf(g.Out, "Not selected (%d):\n", len(plan.Rejections))
		for _, rej := range plan.Rejections {
			fmt.Fprintf(g.Out, "  %s (does not match: %s)\n", rej.Repo.FullName, rej.Reason)
		}
	}
}

func recordMarkers(r repos.Record) string {
	var parts []string
	if r.Private {
		parts = append(parts, "private")
	}
	if r.Fork {
		parts = append(parts, "fork")
	}
	if r.Archived {
		parts = append(parts, "archived")
	}
	if !r.PushedAt.IsZero() {
		parts = append(parts, "last pushed "+r.PushedAt.Format("2006-01-02"))
	}
	if len(parts) == 0 {
		return ""
	}
	return "  [" + strings.Join(parts, ", ") + "]"
}
