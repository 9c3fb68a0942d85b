// Package retry provides bounded exponential-backoff retry for LLM calls.
//
// Attempts are strictly sequential; at most one is in flight at any time.
// A policy with MaxRetries = n runs a permanently-failing operation exactly
// n+1 times. Backoff sleeps abort immediately on context cancellation, so a
// cancelled call leaves no orphaned timers.
package retry

import (
	"context"
	"math"
	"time"
)

// DefaultCloudPolicy suits hosted APIs: transient rate limits and server
// errors are worth a few increasingly patient attempts.
func DefaultCloudPolicy() Policy {
	return Policy{
		MaxRetries: 3,
		BaseDelay:  500 * time.Millisecond,
		MaxDelay:   8 * time.Second,
		Multiplier: 2,
	}
}

// LocalPolicy suits local model servers, which either answer or are down;
// one patient retry covers model-load stalls without hammering the box.
func LocalPolicy() Policy {
	return Policy{
		MaxRetries: 1,
		BaseDelay:  2 * time.Second,
		MaxDelay:   2 * time.Second,
		Multiplier: 1,
	}
}

// Policy configures retry behavior for one call site.
type Policy struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int
	// BaseDelay is the delay before the first retry.
	BaseDelay time.Duration
	// MaxDelay caps the computed backoff delay.
	MaxDelay time.Duration
	// Multiplier grows the delay per attempt (delay = Base * Mult^(attempt-1)).
	Multiplier float64

	// ShouldRetry decides whether a failure is worth retrying. When nil,
	// every error is retried up to MaxRetries.
	ShouldRetry func(err error) bool

	// OnRetry is an observability hook invoked before each retry sleep and
	// once more on final exhaustion. It never affects control flow.
	OnRetry func(attempt int, err error)
}

// Delay returns the backoff delay after the given 1-based attempt.
func (p Policy) Delay(attempt int) time.Duration {
	d := float64(p.BaseDelay) * math.Pow(p.Multiplier, float64(attempt-1))
	if max := float64(p.MaxDelay); d > max {
		d = max
	}
	return time.Duration(d)
}

// Do runs fn under the policy. The last attempt's value is returned even on
// failure so callers can keep partial results (e.g. partial streamed text).
// Cancellation is checked before each attempt and aborts in-flight backoff
// sleeps; the context error is returned as-is, never wrapped.
func Do[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	var last T
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return last, err
		}

		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		last = v

		if attempt > p.MaxRetries || (p.ShouldRetry != nil && !p.ShouldRetry(err)) {
			if p.OnRetry != nil {
				p.OnRetry(attempt, err)
			}
			return last, err
		}
		if p.OnRetry != nil {
			p.OnRetry(attempt, err)
		}

		if !sleep(ctx, p.Delay(attempt)) {
			return last, ctx.Err()
		}
	}
}

// sleep waits for d or until ctx is done; reports whether the full delay
// elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
