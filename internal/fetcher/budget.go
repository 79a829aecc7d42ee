package fetcher

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// RequestBudget tracks the remaining GitHub request quota from response
// headers and blocks callers until quota is available again. The run issues
// requests sequentially, so at most one caller waits at a time; the mutex
// only guards against header updates racing a waiter's re-check.
type RequestBudget struct {
	mu        sync.Mutex
	remaining int
	reset     time.Time
	cooldown  time.Time
	now       func() time.Time
	sleep     func(context.Context, time.Duration) error
}

func NewRequestBudget() *RequestBudget {
	return &RequestBudget{
		remaining: 5000, // Conservative start until real headers arrive.
		reset:     time.Now().Add(1 * time.Hour),
		now:       time.Now,
		sleep:     sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
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

func (b *RequestBudget) Remaining() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.remaining
}

// Acquire blocks until one request may be issued. When the quota is
// exhausted it waits for the advertised reset time (or a Retry-After
// cooldown), then lets a single probe through so UpdateFromResponse can
// observe the refreshed headers.
func (b *RequestBudget) Acquire(ctx context.Context) error {
	if ctx == nil {
		return fmt.Errorf("Acquire: nil context")
	}
	if b == nil || b.now == nil || b.sleep == nil {
		return fmt.Errorf("Acquire: budget is not initialized (use NewRequestBudget)")
	}

	for {
		b.mu.Lock()
		now := b.now()

		if now.Before(b.cooldown) {
			wait := b.cooldown.Sub(now)
			b.mu.Unlock()
			if err := b.sleep(ctx, wait); err != nil {
				return err
			}
			continue
		}

		if b.remaining > 0 {
			b.remaining--
			b.mu.Unlock()
			return nil
		}

		// Quota exhausted. Once the reset has passed, allow the request as a
		// probe; its response headers refresh the budget.
		if !now.Before(b.reset) {
			b.mu.Unlock()
			return nil
		}

		wait := b.reset.Sub(now)
		b.mu.Unlock()
		if err := b.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// UpdateFromResponse absorbs rate-limit metadata from a GitHub response.
func (b *RequestBudget) UpdateFromResponse(resp *http.Response) {
	if b == nil || resp == nil || b.now == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
		if seconds, err := strconv.Atoi(retryAfter); err == nil && seconds > 0 {
			until := b.now().Add(time.Duration(seconds) * time.Second)
			if until.After(b.cooldown) {
				b.cooldown = until
			}
		}
	}

	if remaining := resp.Header.Get("X-RateLimit-Remaining"); remaining != "" {
		if val, err := strconv.Atoi(remaining); err == nil && val >= 0 {
			b.remaining = val
		}
	}

	if reset := resp.Header.Get("X-RateLimit-Reset"); reset != "" {
		if val, err := strconv.ParseInt(reset, 10, 64); err == nil && val > 0 {
			b.reset = time.Unix(val, 0)
		}
	}
}
