package engine

import (
	"context"
	"errors"
	"fmt"

	"sweeper/internal/repos"
)

// Action is the mutating call a plan applies to each selected repository.
type Action string

const (
	ActionDelete  Action = "delete"
	ActionArchive Action = "archive"
)

func ParseAction(raw string) (Action, error) {
	switch Action(raw) {
	case ActionDelete:
		return ActionDelete, nil
	case ActionArchive:
		return ActionArchive, nil
	default:
		return "", fmt.Errorf("unsupported action: %q", raw)
	}
}

type PlannedItem struct {
	Repo   repos.Record
	Action Action
}

type Rejection struct {
	Repo repos.Record
	// Reason names the first criterion the record failed.
	Reason string
}

// Plan is the fully determined set of intended actions, fixed before any
// mutation occurs. Items and Rejections partition the fetched sequence and
// both preserve listing order. A Plan is read-only after BuildPlan returns;
// a changed intent requires a new Plan.
type Plan struct {
	Action     Action
	Items      []PlannedItem
	Rejections []Rejection
}

// RecordSource yields repository snapshots one at a time, in listing order.
// fetcher.Stream is the production implementation.
type RecordSource interface {
	Next(ctx context.Context) (repos.Record, bool, error)
}

// BuildPlan consumes the source exactly once, evaluating the criteria against
// each record. Building a plan performs no mutation and is referentially
// transparent given the same records and criteria. Any source error aborts
// the whole plan: a partial listing cannot be trusted.
func BuildPlan(ctx context.Context, src RecordSource, criteria []Criterion, action Action) (*Plan, error) {
	if ctx == nil {
		return nil, errors.New("BuildPlan: nil context")
	}
	if src == nil {
		return nil, errors.New("BuildPlan: nil record source")
	}
	if action != ActionDelete && action != ActionArchive {
		return nil, fmt.Errorf("BuildPlan: unsupported action: %q", action)
	}

	plan := &Plan{Action: action}
	for {
		rec, ok, err := src.Next(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			return plan, nil
		}
		if failing, failed := firstFailing(rec, criteria); failed {
			plan.Rejections = append(plan.Rejections, Rejection{Repo: rec, Reason: failing.String()})
			continue
		}
		plan.Items = append(plan.Items, PlannedItem{Repo: rec, Action: action})
	}
}
