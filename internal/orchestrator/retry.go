package orchestrator

import (
	"context"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// #region constants

const maxRetries = 2 // max 2 retries = 3 total attempts

// #endregion

// #region policy

// RetryPolicy decides whether a failed model call is retried.
// Only transient transport failures qualify; plan errors never reach it.
type RetryPolicy struct {
	MaxRetries int
	Backoff    time.Duration // multiplied by the attempt number
}

// DefaultRetryPolicy retries twice with linear backoff.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: maxRetries, Backoff: 200 * time.Millisecond}
}

// #endregion

// #region should-retry

// ShouldRetry reports whether err is worth another attempt after attempts
// calls have already failed.
func (p RetryPolicy) ShouldRetry(err error, attempts int) bool {
	if err == nil || attempts > p.MaxRetries {
		return false
	}
	switch status.Code(err) {
	case codes.Unavailable, codes.ResourceExhausted, codes.Aborted:
		return true
	default:
		return false
	}
}

// Do runs fn until it succeeds, fails permanently, or retries run out.
func (p RetryPolicy) Do(ctx context.Context, fn func(context.Context) error) error {
	for attempt := 1; ; attempt++ {
		err := fn(ctx)
		if !p.ShouldRetry(err, attempt) {
			return err
		}
		select {
		case <-ctx.Done():
			return err
		case <-time.After(time.Duration(attempt) * p.Backoff):
		}
	}
}

// #endregion
