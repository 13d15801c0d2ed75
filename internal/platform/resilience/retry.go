package resilience

import (
	"context"
	"time"
)

// RetryPolicy describes a bounded, linearly backed-off retry loop.
type RetryPolicy struct {
	// Attempts is the total number of tries, including the first one.
	Attempts int
	// Backoff is multiplied by the attempt number that just failed.
	Backoff time.Duration
	// Retryable decides whether an error is worth another attempt. Nil retries everything.
	Retryable func(error) bool
	// Wait sleeps between attempts. Tests replace it to observe delays.
	Wait func(ctx context.Context, d time.Duration) error
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Attempts: 3,
		Backoff:  time.Second,
		Wait:     SleepContext,
	}
}

func NormalizeRetryPolicy(p RetryPolicy) RetryPolicy {
	defaults := DefaultRetryPolicy()
	if p.Attempts < 1 {
		p.Attempts = defaults.Attempts
	}
	if p.Backoff < 0 {
		p.Backoff = defaults.Backoff
	}
	if p.Wait == nil {
		p.Wait = defaults.Wait
	}
	return p
}

// BackoffFor returns the delay after the given failed attempt (1-based).
func (p RetryPolicy) BackoffFor(attempt int) time.Duration {
	if attempt < 1 {
		return 0
	}
	return time.Duration(attempt) * p.Backoff
}

// Retry calls fn until it succeeds, returns a non-retryable error, or the
// policy is exhausted. The last error is returned. Cancellation is checked
// before each attempt and during each wait.
func Retry(ctx context.Context, policy RetryPolicy, fn func(ctx context.Context, attempt int) error) error {
	policy = NormalizeRetryPolicy(policy)

	var lastErr error
	for attempt := 1; attempt <= policy.Attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return &AbortedError{Cause: err, Last: lastErr}
			}
			return err
		}

		lastErr = fn(ctx, attempt)
		if lastErr == nil {
			return nil
		}
		if policy.Retryable != nil && !policy.Retryable(lastErr) {
			return lastErr
		}
		if attempt == policy.Attempts {
			break
		}

		if err := policy.Wait(ctx, policy.BackoffFor(attempt)); err != nil {
			return &AbortedError{Cause: err, Last: lastErr}
		}
	}

	return lastErr
}

// AbortedError is returned when the context ends between attempts.
type AbortedError struct {
	Cause error
	Last  error
}

func (e *AbortedError) Error() string {
	return "retry aborted: " + e.Cause.Error() + " (last error: " + e.Last.Error() + ")"
}

func (e *AbortedError) Unwrap() []error {
	return []error{e.Cause, e.Last}
}

// SleepContext waits for d or until ctx is done.
func SleepContext(ctx context.Context, d time.Duration) error {
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
