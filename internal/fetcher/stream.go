package fetcher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/go-github/v81/github"

	gh "sweeper/internal/github"
	"sweeper/internal/repos"
)

var (
	// ErrRateLimited is returned when a page could not be fetched within the
	// bounded number of rate-limit retries.
	ErrRateLimited = errors.New("github rate limit exceeded")

	// ErrFetchFailed is returned for any other transport or API failure while
	// listing. The whole sequence fails: a plan built from a partial listing
	// cannot be trusted.
	ErrFetchFailed = errors.New("repository listing failed")
)

const (
	pageSize                = 100
	defaultRateLimitRetries = 3
)

// Stream is a lazy, forward-only pass over the authenticated user's
// repositories, fetched page by page as records are consumed. It is not
// restartable: once Next reports an error or exhaustion, the stream is done.
type Stream struct {
	client  *gh.Client
	budget  *RequestBudget
	sleep   func(context.Context, time.Duration) error
	retries int
	limit   int

	page    int
	buf     []repos.Record
	yielded int
	done    bool
	err     error
}

type StreamOption func(*Stream)

// WithSleep replaces the rate-limit wait. Tests use it to avoid real delays.
func WithSleep(fn func(context.Context, time.Duration) error) StreamOption {
	return func(s *Stream) {
		if fn != nil {
			s.sleep = fn
		}
	}
}

// WithRateLimitRetries bounds how many times a single page fetch may wait
// out a rate limit before failing with ErrRateLimited.
func WithRateLimitRetries(n int) StreamOption {
	return func(s *Stream) {
		if n >= 0 {
			s.retries = n
		}
	}
}

// WithLimit stops the stream after n records. 0 means unlimited.
func WithLimit(n int) StreamOption {
	return func(s *Stream) {
		if n >= 0 {
			s.limit = n
		}
	}
}

func NewStream(client *gh.Client, budget *RequestBudget, opts ...StreamOption) *Stream {
	s := &Stream{
		client:  client,
		budget:  budget,
		sleep:   sleepCtx,
		retries: defaultRateLimitRetries,
	}
	for _, apply := range opts {
		if apply != nil {
			apply(s)
		}
	}
	return s
}

// Next yields the next repository record in listing order. The second return
// is false when the listing is exhausted. Records already yielded stay valid
// regardless of later errors; a rate-limit wait mid-listing retries the same
// page rather than failing the run.
func (s *Stream) Next(ctx context.Context) (repos.Record, bool, error) {
	if s.err != nil {
		return repos.Record{}, false, s.err
	}
	if s.limit > 0 && s.yielded >= s.limit {
		return repos.Record{}, false, nil
	}
	for len(s.buf) == 0 {
		if s.done {
			return repos.Record{}, false, nil
		}
		if err := s.fetchPage(ctx); err != nil {
			s.err = err
			return repos.Record{}, false, err
		}
	}
	rec := s.buf[0]
	s.buf = s.buf[1:]
	s.yielded++
	return rec, true, nil
}

func (s *Stream) fetchPage(ctx context.Context) error {
	if s.client == nil || s.client.Client == nil {
		return fmt.Errorf("%w: nil github client", ErrFetchFailed)
	}
	if s.budget == nil {
		return fmt.Errorf("%w: nil request budget", ErrFetchFailed)
	}

	attempts := 0
	for {
		if err := s.budget.Acquire(ctx); err != nil {
			return fmt.Errorf("%w: %v", ErrFetchFailed, err)
		}

		opts := &github.RepositoryListByAuthenticatedUserOptions{
			ListOptions: github.ListOptions{PerPage: pageSize, Page: s.page},
			Visibility:  "all",
			Affiliation: "owner",
			Sort:        "updated",
		}
		ghRepos, resp, err := s.client.Client.Repositories.ListByAuthenticatedUser(ctx, opts)
		if resp != nil {
			s.budget.UpdateFromResponse(resp.Response)
		}
		if err != nil {
			if delay, ok := gh.RateLimitDelay(err); ok {
				attempts++
				if attempts > s.retries {
					return fmt.Errorf("%w: page %d: retries exhausted", ErrRateLimited, s.page)
				}
				if serr := s.sleep(ctx, delay); serr != nil {
					return fmt.Errorf("%w: %v", ErrFetchFailed, serr)
				}
				continue
			}
			return fmt.Errorf("%w: page %d: %v", ErrFetchFailed, s.page, err)
		}

		for _, repo := range ghRepos {
			s.buf = append(s.buf, repos.FromGitHub(repo))
		}
		if resp.NextPage == 0 {
			s.done = true
		} else {
			s.page = resp.NextPage
		}
		return nil
	}
}
