package retry

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
)

// Policy is a bounded retry policy with a fixed inter-attempt delay.
// The delay does not grow between attempts; within a batch run a transient
// upstream failure either clears quickly or not at all, so flat backoff
// keeps the worst case bounded at MaxAttempts*Delay per call.
type Policy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int

	// Delay is the fixed pause between consecutive attempts.
	Delay time.Duration

	// Retryable decides whether an attempt error should be retried.
	// A nil predicate retries every error.
	Retryable func(error) bool

	clock clockwork.Clock
}

// NewPolicy creates a policy backed by the real clock.
func NewPolicy(maxAttempts int, delay time.Duration) *Policy {
	return NewPolicyWithClock(maxAttempts, delay, clockwork.NewRealClock())
}

// NewPolicyWithClock creates a policy with an injected clock so tests can
// observe the inter-attempt delay without real sleeps.
func NewPolicyWithClock(maxAttempts int, delay time.Duration, clock clockwork.Clock) *Policy {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Policy{
		MaxAttempts: maxAttempts,
		Delay:       delay,
		clock:       clock,
	}
}

// Do invokes op until it succeeds or MaxAttempts is exhausted, pausing Delay
// between attempts. It returns nil on the first success, the last attempt's
// error on exhaustion, and the context error if ctx is cancelled mid-delay.
func (p *Policy) Do(ctx context.Context, op func(ctx context.Context) error) error {
	var lastErr error

	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		err := op(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if p.Retryable != nil && !p.Retryable(err) {
			return err
		}
		if attempt == p.MaxAttempts {
			break
		}
		if p.Delay > 0 {
			select {
			case <-p.clock.After(p.Delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	return lastErr
}
