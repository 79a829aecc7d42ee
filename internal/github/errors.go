package github

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/google/go-github/v81/github"
)

// StatusCode extracts the HTTP status code from a go-github API error.
// Returns 0 when err carries no response.
func StatusCode(err error) int {
	var er *github.ErrorResponse
	if errors.As(err, &er) && er.Response != nil {
		return er.Response.StatusCode
	}
	var rl *github.RateLimitError
	if errors.As(err, &rl) && rl.Response != nil {
		return rl.Response.StatusCode
	}
	var abuse *github.AbuseRateLimitError
	if errors.As(err, &abuse) && abuse.Response != nil {
		return abuse.Response.StatusCode
	}
	return 0
}

// RateLimitDelay reports whether err is a primary or secondary rate-limit
// signal, and the server-specified delay before the next attempt.
func RateLimitDelay(err error) (time.Duration, bool) {
	var rl *github.RateLimitError
	if errors.As(err, &rl) {
		delay := time.Until(rl.Rate.Reset.Time)
		if delay < time.Second {
			delay = time.Second
		}
		return delay, true
	}
	var abuse *github.AbuseRateLimitError
	if errors.As(err, &abuse) {
		if abuse.RetryAfter != nil && *abuse.RetryAfter > 0 {
			return *abuse.RetryAfter, true
		}
		return time.Minute, true
	}
	return 0, false
}

// IsTransient reports whether err is worth retrying: rate limits, 5xx
// responses, and network-level failures (timeouts, connection resets).
// 4xx responses are permanent; retrying cannot fix a 404 or a 403.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if _, ok := RateLimitDelay(err); ok {
		return true
	}
	if code := StatusCode(err); code != 0 {
		return code >= http.StatusInternalServerError
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return false
}

// IsAuthError reports whether err is a credential failure (401).
func IsAuthError(err error) bool {
	return StatusCode(err) == http.StatusUnauthorized
}
