// Package retry re-runs fallible operations with classified exponential
// backoff. Callers describe what a failure means (permanent, transient,
// or throttled) and the loop handles the pacing.
package retry

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"
)

// Action is a caller's verdict on one failed attempt.
type Action int

const (
	// Stop marks the error permanent; retrying cannot help.
	Stop Action = iota
	// Retry marks the error transient; the loop backs off and tries again.
	Retry
	// Throttled marks a rate-limit rejection; the loop waits the longer
	// rate-limit backoff before the next attempt.
	Throttled
)

// Classify maps an attempt's error to the Action the loop should take.
type Classify func(err error) Action

type Operation[T any] func() (T, error)
type VoidOperation func() error

// Policy bounds the loop. InitialBackoff doubles per attempt up to
// MaxBackoff (zero means uncapped), with jitter added so callers hitting
// the same outage don't retry in lockstep.
type Policy struct {
	MaxAttempts      int
	InitialBackoff   time.Duration
	MaxBackoff       time.Duration
	RateLimitBackoff time.Duration
	OnRetry          func(attempt int, err error, backoff time.Duration)
}

func (p Policy) backoff(attempt int, action Action) time.Duration {
	if action == Throttled {
		return p.RateLimitBackoff
	}
	wait := p.InitialBackoff << (attempt - 1)
	if p.MaxBackoff > 0 && wait > p.MaxBackoff {
		wait = p.MaxBackoff
	}
	if jitter := wait / 4; jitter > 0 {
		wait += rand.N(jitter)
	}
	return wait
}

// Do runs op until it succeeds, the classifier calls the error permanent,
// attempts run out, or the context ends.
func Do[T any](ctx context.Context, p Policy, classify Classify, op Operation[T]) (T, error) {
	var zero T
	for attempt := 1; ; attempt++ {
		val, err := op()
		if err == nil {
			return val, nil
		}

		action := classify(err)
		if action == Stop {
			return zero, &PermanentError{Err: err}
		}
		if attempt >= p.MaxAttempts {
			return zero, fmt.Errorf("gave up after %d attempts: %w", attempt, err)
		}

		wait := p.backoff(attempt, action)
		if p.OnRetry != nil {
			p.OnRetry(attempt, err, wait)
		}

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return zero, fmt.Errorf("retry interrupted: %w", ctx.Err())
		}
	}
}

// DoVoid is Do for operations without a result.
func DoVoid(ctx context.Context, p Policy, classify Classify, op VoidOperation) error {
	_, err := Do(ctx, p, classify, func() (struct{}, error) { return struct{}{}, op() })
	return err
}

// PermanentError wraps an error the classifier ruled out of retrying.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }
