package engine

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"sweeper/internal/fetcher"
	gh "sweeper/internal/github"
	"sweeper/internal/repos"
)

func newTestClient(t *testing.T, serverURL string) *gh.Client {
	t.Helper()

	client, err := gh.NewClient(context.Background(), "dummy-token")
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	baseURL, err := url.Parse(serverURL + "/")
	if err != nil {
		t.Fatalf("parse server URL: %v", err)
	}
	client.Client.BaseURL = baseURL
	client.Client.UploadURL = baseURL
	return client
}

func newTestExecutor(t *testing.T, serverURL string) *Executor {
	t.Helper()
	e := NewExecutor(newTestClient(t, serverURL), fetcher.NewRequestBudget())
	e.Pause = 0
	e.Sleep = func(context.Context, time.Duration) error { return nil }
	return e
}

func planOf(action Action, names ...string) *Plan {
	p := &Plan{Action: action}
	for i, name := range names {
		p.Items = append(p.Items, PlannedItem{
			Repo:   repos.Record{ID: int64(i + 1), Owner: "me", Name: name, FullName: "me/" + name},
			Action: action,
		})
	}
	return p
}

func TestExecutor_OneFailureDoesNotAbortTheBatch(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	for _, name := range []string{"a", "c"} {
		mux.HandleFunc("DELETE /repos/me/"+name, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})
	}
	mux.HandleFunc("DELETE /repos/me/b", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"message":"Not Found"}`)
	})

	e := newTestExecutor(t, server.URL)
	plan := planOf(ActionDelete, "a", "b", "c")
	outcomes := e.Execute(context.Background(), plan)

	if len(outcomes) != len(plan.Items) {
		t.Fatalf("expected %d outcomes, got %d", len(plan.Items), len(outcomes))
	}
	wantStatuses := []OutcomeStatus{OutcomeSucceeded, OutcomeFailed, OutcomeSucceeded}
	for i, want := range wantStatuses {
		if outcomes[i].Status != want {
			t.Fatalf("outcome %d (%s): expected %s, got %s (%s)",
				i, outcomes[i].Repo.FullName, want, outcomes[i].Status, outcomes[i].Reason)
		}
	}
	if outcomes[1].Reason == "" {
		t.Fatal("failed outcome must carry a reason")
	}
}

func TestExecutor_LedgerMatchesPlanExactly(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	e := newTestExecutor(t, server.URL)
	plan := planOf(ActionDelete, "a", "b", "c", "d")
	outcomes := e.Execute(context.Background(), plan)

	if len(outcomes) != len(plan.Items) {
		t.Fatalf("expected one outcome per planned item, got %d for %d items", len(outcomes), len(plan.Items))
	}
	for i := range outcomes {
		if outcomes[i].Repo.ID != plan.Items[i].Repo.ID {
			t.Fatalf("outcome %d is for %s, want %s (plan order must be preserved)",
				i, outcomes[i].Repo.FullName, plan.Items[i].Repo.FullName)
		}
	}
}

func TestExecutor_RetriesTransientFailures(t *testing.T) {
	var calls int32
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()
	mux.HandleFunc("DELETE /repos/me/flaky", func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			http.Error(w, "upstream hiccup", http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	var waits []time.Duration
	e := newTestExecutor(t, server.URL)
	e.Sleep = func(_ context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}

	outcomes := e.Execute(context.Background(), planOf(ActionDelete, "flaky"))
	if outcomes[0].Status != OutcomeSucceeded {
		t.Fatalf("expected success after retry, got %s (%s)", outcomes[0].Status, outcomes[0].Reason)
	}
	if atomic.LoadInt32(&calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}
	if len(waits) != 1 || waits[0] != e.Backoff {
		t.Fatalf("expected one backoff wait of %v, got %v", e.Backoff, waits)
	}
}

func TestExecutor_RetryCeilingThenFailed(t *testing.T) {
	var calls int32
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()
	mux.HandleFunc("DELETE /repos/me/broken", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "still broken", http.StatusInternalServerError)
	})

	var waits []time.Duration
	e := newTestExecutor(t, server.URL)
	e.Sleep = func(_ context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}

	outcomes := e.Execute(context.Background(), planOf(ActionDelete, "broken"))
	if outcomes[0].Status != OutcomeFailed {
		t.Fatalf("expected failure after retries, got %s", outcomes[0].Status)
	}
	if got := atomic.LoadInt32(&calls); got != int32(e.MaxAttempts) {
		t.Fatalf("expected %d attempts, got %d", e.MaxAttempts, got)
	}
	// Exponential: each retry doubles the previous wait.
	if len(waits) != e.MaxAttempts-1 {
		t.Fatalf("expected %d waits, got %v", e.MaxAttempts-1, waits)
	}
	for i := 1; i < len(waits); i++ {
		if waits[i] != 2*waits[i-1] {
			t.Fatalf("expected doubling backoff, got %v", waits)
		}
	}
}

func TestExecutor_NonTransientFailuresAreNotRetried(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{"not found", http.StatusNotFound},
		{"forbidden", http.StatusForbidden},
		{"unprocessable", http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			mux := http.NewServeMux()
			server := httptest.NewServer(mux)
			defer server.Close()
			mux.HandleFunc("DELETE /repos/me/gone", func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&calls, 1)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				fmt.Fprint(w, `{"message":"nope"}`)
			})

			e := newTestExecutor(t, server.URL)
			outcomes := e.Execute(context.Background(), planOf(ActionDelete, "gone"))
			if outcomes[0].Status != OutcomeFailed {
				t.Fatalf("expected failure, got %s", outcomes[0].Status)
			}
			if atomic.LoadInt32(&calls) != 1 {
				t.Fatalf("expected exactly 1 attempt, got %d", calls)
			}
		})
	}
}

func TestExecutor_ArchiveIssuesPatch(t *testing.T) {
	var patched int32
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()
	mux.HandleFunc("PATCH /repos/me/dusty", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&patched, 1)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":1,"name":"dusty","archived":true}`)
	})

	e := newTestExecutor(t, server.URL)
	outcomes := e.Execute(context.Background(), planOf(ActionArchive, "dusty"))
	if outcomes[0].Status != OutcomeSucceeded {
		t.Fatalf("expected success, got %s (%s)", outcomes[0].Status, outcomes[0].Reason)
	}
	if atomic.LoadInt32(&patched) != 1 {
		t.Fatalf("expected one PATCH, got %d", patched)
	}
}

func TestExecutor_AlreadyArchivedIsSkippedWithoutACall(t *testing.T) {
	var calls int32
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNoContent)
	})

	e := newTestExecutor(t, server.URL)
	plan := &Plan{
		Action: ActionArchive,
		Items: []PlannedItem{
			{Repo: repos.Record{ID: 1, Owner: "me", Name: "done", FullName: "me/done", Archived: true}, Action: ActionArchive},
		},
	}
	outcomes := e.Execute(context.Background(), plan)
	if outcomes[0].Status != OutcomeSkipped {
		t.Fatalf("expected skipped, got %s", outcomes[0].Status)
	}
	if outcomes[0].Reason != "already archived" {
		t.Fatalf("unexpected skip reason: %q", outcomes[0].Reason)
	}
	if atomic.LoadInt32(&calls) != 0 {
		t.Fatalf("expected no API calls for a skip, got %d", calls)
	}
}
