package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/go-github/v81/github"

	"sweeper/internal/fetcher"
	gh "sweeper/internal/github"
	"sweeper/internal/repos"
)

type OutcomeStatus string

const (
	OutcomeSucceeded OutcomeStatus = "succeeded"
	OutcomeFailed    OutcomeStatus = "failed"
	OutcomeSkipped   OutcomeStatus = "skipped"
)

// Outcome is one entry of the run's append-only ledger: exactly one per
// planned item, in plan order.
type Outcome struct {
	Repo   repos.Record
	Action Action
	Status OutcomeStatus
	Reason string
}

const (
	defaultMaxAttempts = 3
	defaultBackoff     = 500 * time.Millisecond
	defaultPause       = 500 * time.Millisecond
)

// Executor issues the planned mutating calls, one at a time, in plan order.
// Transient failures retry with bounded exponential backoff; everything else
// is recorded and the batch moves on. One item's failure never aborts the
// batch, and the executor never re-validates a repository against the live
// remote: interim drift surfaces as a failed outcome, not a crash.
type Executor struct {
	Client *gh.Client
	Budget *fetcher.RequestBudget

	// MaxAttempts bounds tries per item for transient failures.
	MaxAttempts int

	// Backoff is the first retry delay; it doubles per retry. A server-
	// specified rate-limit delay takes precedence when longer.
	Backoff time.Duration

	// Pause is a polite delay between consecutive mutating calls.
	Pause time.Duration

	// Sleep is injectable so tests run without real delays.
	Sleep func(context.Context, time.Duration) error
}

func NewExecutor(client *gh.Client, budget *fetcher.RequestBudget) *Executor {
	return &Executor{
		Client:      client,
		Budget:      budget,
		MaxAttempts: defaultMaxAttempts,
		Backoff:     defaultBackoff,
		Pause:       defaultPause,
	}
}

func (e *Executor) sleep(ctx context.Context, d time.Duration) error {
	if e.Sleep != nil {
		return e.Sleep(ctx, d)
	}
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Execute runs the plan to its natural end and returns one outcome per
// planned item. There is no mid-batch cancellation by design; if the context
// expires, the remaining items fail fast and are still recorded.
func (e *Executor) Execute(ctx context.Context, plan *Plan) []Outcome {
	if plan == nil {
		return nil
	}
	outcomes := make([]Outcome, 0, len(plan.Items))
	for i, item := range plan.Items {
		if i > 0 && e.Pause > 0 {
			_ = e.sleep(ctx, e.Pause)
		}
		outcomes = append(outcomes, e.executeOne(ctx, item))
	}
	return outcomes
}

func (e *Executor) executeOne(ctx context.Context, item PlannedItem) Outcome {
	out := Outcome{Repo: item.Repo, Action: item.Action}

	// The snapshot already told us this is a no-op; don't spend a call on it.
	if item.Action == ActionArchive && item.Repo.Archived {
		out.Status = OutcomeSkipped
		out.Reason = "already archived"
		return out
	}

	maxAttempts := e.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	backoff := e.Backoff
	if backoff <= 0 {
		backoff = defaultBackoff
	}

	for attempt := 1; ; attempt++ {
		err := e.issue(ctx, item)
		if err == nil {
			out.Status = OutcomeSucceeded
			return out
		}
		if !gh.IsTransient(err) || attempt >= maxAttempts {
			out.Status = OutcomeFailed
			out.Reason = failureReason(err)
			return out
		}
		wait := backoff
		if delay, ok := gh.RateLimitDelay(err); ok && delay > wait {
			wait = delay
		}
		if serr := e.sleep(ctx, wait); serr != nil {
			out.Status = OutcomeFailed
			out.Reason = failureReason(err)
			return out
		}
		backoff *= 2
	}
}

func (e *Executor) issue(ctx context.Context, item PlannedItem) error {
	if e.Client == nil || e.Client.Client == nil {
		return fmt.Errorf("executor: nil github client")
	}
	if e.Budget != nil {
		if err := e.Budget.Acquire(ctx); err != nil {
			return err
		}
	}

	var resp *github.Response
	var err error
	switch item.Action {
	case ActionDelete:
		resp, err = e.Client.Client.Repositories.Delete(ctx, item.Repo.Owner, item.Repo.Name)
	case ActionArchive:
		patch := &github.Repository{Archived: github.Ptr(true)}
		_, resp, err = e.Client.Client.Repositories.Edit(ctx, item.Repo.Owner, item.Repo.Name, patch)
	default:
		return fmt.Errorf("executor: unsupported action: %q", item.Action)
	}
	if resp != nil && e.Budget != nil {
		e.Budget.UpdateFromResponse(resp.Response)
	}
	return err
}

func failureReason(err error) string {
	if _, ok := gh.RateLimitDelay(err); ok {
		return "rate limited (retries exhausted)"
	}
	switch gh.StatusCode(err) {
	case 404:
		return "repository not found (already deleted?)"
	case 403:
		return "permission denied (token missing delete_repo scope?)"
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
