package httputil

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"
)

// maxRetryAfter caps the wait a server can request through Retry-After.
const maxRetryAfter = time.Minute

// RetryableError marks a failure worth another attempt: a network error,
// a 5xx reply or a 429 from a rate-limited API. After holds the wait the
// server asked for, if any.
type RetryableError struct {
	Err   error
	After time.Duration
}

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// Retry calls fn up to attempts times. Only [RetryableError] failures are
// retried. The wait starts at delay and doubles, but never undercuts the
// server's Retry-After. It returns the last error, or ctx.Err() when
// cancelled while waiting.
func Retry(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	attempts = max(attempts, 1)
	var lastErr error

	for i := range attempts {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		var rerr *RetryableError
		if !errors.As(err, &rerr) {
			return err
		}

		if i < attempts-1 {
			wait := max(delay, rerr.After)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
				delay *= 2
			}
		}
	}
	return lastErr
}

// retryAfter parses a Retry-After header given in seconds or as an HTTP
// date. Unparseable or past values yield zero.
func retryAfter(h string, now time.Time) time.Duration {
	if h == "" {
		return 0
	}
	var d time.Duration
	if secs, err := strconv.Atoi(h); err == nil {
		d = time.Duration(secs) * time.Second
	} else if t, err := http.ParseTime(h); err == nil {
		d = t.Sub(now)
	}
	return min(max(d, 0), maxRetryAfter)
}
