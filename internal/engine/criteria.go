package engine

import (
	"errors"
	"fmt"
	"time"

	"sweeper/internal/config"
	"sweeper/internal/repos"
)

// ErrInvalidCriterion marks a criterion configuration that cannot be built.
// It always fails at construction time, never silently at evaluation time.
var ErrInvalidCriterion = errors.New("invalid criterion")

type criterionKind string

const (
	criterionArchived   criterionKind = "archived"
	criterionFork       criterionKind = "fork"
	criterionStale      criterionKind = "stale"
	criterionVisibility criterionKind = "visibility"
)

// Criterion is one selection predicate over a repository snapshot. The set of
// kinds is closed; each value is built through a constructor so that an
// invalid configuration is unrepresentable. Criteria are pure: Matches reads
// only the record.
type Criterion struct {
	kind       criterionKind
	cutoff     time.Time // stale: last-push cutoff
	staleDays  int
	visibility string
}

// ArchivedCriterion matches repositories that are archived.
func ArchivedCriterion() Criterion {
	return Criterion{kind: criterionArchived}
}

// ForkCriterion matches repositories that are forks.
func ForkCriterion() Criterion {
	return Criterion{kind: criterionFork}
}

// StaleCriterion matches repositories not pushed to within the last days
// days, measured from now.
func StaleCriterion(days int, now time.Time) (Criterion, error) {
	if days <= 0 {
		return Criterion{}, fmt.Errorf("%w: stale-days must be > 0, got %d", ErrInvalidCriterion, days)
	}
	return Criterion{
		kind:      criterionStale,
		staleDays: days,
		cutoff:    now.AddDate(0, 0, -days),
	}, nil
}

// VisibilityCriterion matches repositories with the given visibility.
func VisibilityCriterion(visibility string) (Criterion, error) {
	if visibility != "public" && visibility != "private" {
		return Criterion{}, fmt.Errorf("%w: visibility must be public or private, got %q", ErrInvalidCriterion, visibility)
	}
	return Criterion{kind: criterionVisibility, visibility: visibility}, nil
}

// Matches evaluates the criterion against a record.
func (c Criterion) Matches(r repos.Record) bool {
	switch c.kind {
	case criterionArchived:
		return r.Archived
	case criterionFork:
		return r.Fork
	case criterionStale:
		// A zero PushedAt (never pushed) counts as stale.
		return r.PushedAt.Before(c.cutoff)
	case criterionVisibility:
		return r.Visibility == c.visibility
	default:
		// Unreachable through the constructors.
		return false
	}
}

func (c Criterion) String() string {
	switch c.kind {
	case criterionStale:
		return fmt.Sprintf("not pushed in %d days", c.staleDays)
	case criterionVisibility:
		return "visibility " + c.visibility
	default:
		return string(c.kind)
	}
}

// MatchesAll reports whether the record satisfies every criterion. An empty
// criteria set matches everything; the CLI requires an explicit opt-in for
// that (see config.Validate).
func MatchesAll(r repos.Record, criteria []Criterion) bool {
	_, failed := firstFailing(r, criteria)
	return !failed
}

func firstFailing(r repos.Record, criteria []Criterion) (Criterion, bool) {
	for _, c := range criteria {
		if !c.Matches(r) {
			return c, true
		}
	}
	return Criterion{}, false
}

// CriteriaFromConfig builds the criteria set from a validated configuration.
// Construction errors wrap ErrInvalidCriterion.
func CriteriaFromConfig(cfg *config.Config, now time.Time) ([]Criterion, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: nil config", ErrInvalidCriterion)
	}

	var criteria []Criterion
	if cfg.Criteria.Archived {
		criteria = append(criteria, ArchivedCriterion())
	}
	if cfg.Criteria.Forks {
		criteria = append(criteria, ForkCriterion())
	}
	if cfg.Criteria.StaleDays > 0 {
		c, err := StaleCriterion(cfg.Criteria.StaleDays, now)
		if err != nil {
			return nil, err
		}
		criteria = append(criteria, c)
	}
	if cfg.Criteria.Visibility != "" {
		c, err := VisibilityCriterion(cfg.Criteria.Visibility)
		if err != nil {
			return nil, err
		}
		criteria = append(criteria, c)
	}
	return criteria, nil
}
