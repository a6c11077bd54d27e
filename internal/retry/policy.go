// Package retry bounds retries of store and scheduler calls made inside
// transitions and trigger delivery.
package retry

import (
	"context"
	"errors"
	"time"
)

// Policy holds exponential backoff settings. It is immutable after construction.
type Policy struct {
	// Initial is the delay before the first retry.
	Initial time.Duration
	// Max caps the delay growth.
	Max time.Duration
	// MaxRetries is the number of retries after the first failure.
	MaxRetries int
}

// DefaultPolicy returns 3 retries starting at 200ms and capped at 2s.
func DefaultPolicy() Policy {
	return Policy{Initial: 200 * time.Millisecond, Max: 2 * time.Second, MaxRetries: 3}
}

// NewPolicy builds a policy; zero or negative values fall back to defaults.
func NewPolicy(initial, maxDelay time.Duration, maxRetries int) Policy {
	p := DefaultPolicy()

	if initial > 0 {
		p.Initial = initial
	}

	if maxDelay > 0 {
		p.Max = maxDelay
	}

	if maxRetries >= 0 {
		p.MaxRetries = maxRetries
	}

	if p.Initial > p.Max {
		p.Initial = p.Max
	}

	return p
}

// Delay returns the backoff delay for the given retry (1-based).
func (p Policy) Delay(retry int) time.Duration {
	if retry <= 0 {
		return 0
	}

	const maxShift = 30
	if retry > maxShift {
		return p.Max
	}

	d := p.Initial << (retry - 1)
	if d <= 0 || d > p.Max {
		return p.Max
	}

	return d
}

// permanentError marks errors that must not be retried.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }

func (e *permanentError) Unwrap() error { return e.err }

// Permanent wraps err so Do returns it without retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}

	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var target *permanentError

	return errors.As(err, &target)
}

// Do runs op until it succeeds, returns a permanent error, the retries are
// exhausted or the context is canceled. The last error is returned unwrapped.
func (p Policy) Do(ctx context.Context, op func(ctx context.Context) error) error {
	var err error

	for attempt := 0; ; attempt++ {
		if err = op(ctx); err == nil {
			return nil
		}

		var permanent *permanentError
		if errors.As(err, &permanent) {
			return permanent.err
		}

		if attempt >= p.MaxRetries {
			return err
		}

		timer := time.NewTimer(p.Delay(attempt + 1))

		select {
		case <-ctx.Done():
			timer.Stop()

			return errors.Join(err, ctx.Err())
		case <-timer.C:
		}
	}
}
