package engine

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"sweeper/internal/config"
	"sweeper/internal/fetcher"
	gh "sweeper/internal/github"
	"sweeper/internal/output"
)

// Exit code contract:
// 0 = run completed (dry runs and all-failed batches included)
// 1 = aborted by user or invalid configuration
// 2 = unrecoverable fetch/auth failure before a plan could be confirmed
const (
	ExitOK      = 0
	ExitAborted = 1
	ExitFatal   = 2
)

// Engine drives one run: authenticate, list, plan, confirm, execute. All
// per-run state lives on the run's single execution path; the engine itself
// holds only collaborators.
type Engine struct {
	Client *gh.Client

	// In is where the confirmation gate reads from. Defaults to os.Stdin.
	In io.Reader

	// Prompt is where the plan presentation and progress lines go.
	// Defaults to os.Stderr so stdout stays clean for --emit streams.
	Prompt io.Writer

	// newSource and execute are test seams for the fetch and mutation phases.
	newSource func(ctx context.Context, cfg *config.Config) RecordSource
	execute   func(ctx context.Context, plan *Plan) []Outcome
}

func NewEngine(client *gh.Client) *Engine {
	return &Engine{Client: client}
}

func (e *Engine) in() io.Reader {
	if e.In != nil {
		return e.In
	}
	return os.Stdin
}

func (e *Engine) prompt() io.Writer {
	if e.Prompt != nil {
		return e.Prompt
	}
	return os.Stderr
}

func setupOutputManager(cfg *config.Config) (*output.Manager, error) {
	outMgr := output.NewManager()

	if !cfg.Output.NoConsole {
		if err := outMgr.AddSink(output.NewConsoleSink(nil, cfg.Output.ConsoleFilterStatus)); err != nil {
			outMgr.Close()
			return nil, err
		}
	}

	for _, emit := range cfg.Output.Emit {
		es, err := output.NewEmitSink(os.Stdout, emit)
		if err != nil {
			outMgr.Close()
			return nil, err
		}
		if err := outMgr.AddSink(es); err != nil {
			outMgr.Close()
			return nil, err
		}
	}

	return outMgr, nil
}

// authenticate verifies the credential before anything else and reports the
// account the run will operate on.
func (e *Engine) authenticate(ctx context.Context) (string, error) {
	if e.Client == nil || e.Client.Client == nil {
		return "", fmt.Errorf("nil github client")
	}
	me, _, err := e.Client.Client.Users.Get(ctx, "")
	if err != nil {
		if gh.IsAuthError(err) {
			return "", fmt.Errorf("authentication failed: bad credentials")
		}
		return "", fmt.Errorf("authentication failed: %w", err)
	}
	return me.GetLogin(), nil
}

func (e *Engine) recordSource(cfg *config.Config, budget *fetcher.RequestBudget) RecordSource {
	return fetcher.NewStream(e.Client, budget, fetcher.WithLimit(cfg.Runtime.MaxRepos))
}

func (e *Engine) outcomeExecutor(budget *fetcher.RequestBudget) func(context.Context, *Plan) []Outcome {
	if e.execute != nil {
		return e.execute
	}
	executor := NewExecutor(e.Client, budget)
	return executor.Execute
}

func writeOutcomes(outMgr *output.Manager, outcomes []Outcome) (succeeded, failed, skipped int) {
	for _, out := range outcomes {
		switch out.Status {
		case OutcomeSucceeded:
			succeeded++
		case OutcomeFailed:
			failed++
		case OutcomeSkipped:
			skipped++
		}
		_ = outMgr.Write(output.ItemResult{
			Repo:   out.Repo.FullName,
			Action: string(out.Action),
			Status: string(out.Status),
			Reason: out.Reason,
		})
	}
	return succeeded, failed, skipped
}

// Run executes one full cleanup run and returns the process exit code.
func (e *Engine) Run(ctx context.Context, cfg *config.Config) int {
	prompt := e.prompt()

	login, err := e.authenticate(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitFatal
	}
	fmt.Fprintf(prompt, "Authenticated as %s.\n", login)

	criteria, err := CriteriaFromConfig(cfg, time.Now())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitAborted
	}
	action, err := ParseAction(cfg.Action.Kind)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitAborted
	}

	outMgr, err := setupOutputManager(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating output sinks: %v\n", err)
		return ExitFatal
	}
	defer outMgr.Close()

	_ = outMgr.Write(output.Event{Type: "run.started", Login: login})

	fmt.Fprintln(prompt, "Listing repositories...")
	budget := fetcher.NewRequestBudget()
	var src RecordSource
	if e.newSource != nil {
		src = e.newSource(ctx, cfg)
	} else {
		src = e.recordSource(cfg, budget)
	}

	plan, err := BuildPlan(ctx, src, criteria, action)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitFatal
	}
	fmt.Fprintf(prompt, "Found %d repositories (%d selected).\n", len(plan.Items)+len(plan.Rejections), len(plan.Items))
	_ = outMgr.Write(output.Event{Type: "plan.built", Planned: len(plan.Items), Rejected: len(plan.Rejections)})

	if len(plan.Items) == 0 {
		fmt.Fprintln(prompt, "Nothing to do.")
		_ = outMgr.Write(output.Event{Type: "run.finished", ExitCode: ExitOK})
		return ExitOK
	}

	gate := &Gate{In: e.in(), Out: prompt, DryRun: cfg.Action.DryRun}
	if gate.Confirm(plan) != Proceed {
		if cfg.Action.DryRun {
			_ = outMgr.Write(output.Event{Type: "run.finished", ExitCode: ExitOK})
			return ExitOK
		}
		fmt.Fprintln(prompt, "Aborted. No changes made.")
		_ = outMgr.Write(output.Event{Type: "run.finished", ExitCode: ExitAborted})
		return ExitAborted
	}

	outcomes := e.outcomeExecutor(budget)(ctx, plan)
	succeeded, failed, skipped := writeOutcomes(outMgr, outcomes)

	_ = outMgr.Write(output.Event{
		Type:      "run.finished",
		Succeeded: succeeded,
		Failed:    failed,
		Skipped:   skipped,
		ExitCode:  ExitOK,
	})
	return ExitOK
}
