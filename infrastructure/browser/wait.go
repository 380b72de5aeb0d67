package browser

import (
	"context"
	"errors"
	"time"
)

// ErrWaitTimeout is returned by WaitUntil when the condition never held.
var ErrWaitTimeout = errors.New("timed out waiting for condition")

// DefaultPollInterval is used by WaitUntil when interval is not positive.
const DefaultPollInterval = 250 * time.Millisecond

// Condition is polled by WaitUntil. Errors are treated as "not yet".
type Condition func(ctx context.Context) (bool, error)

// WaitUntil polls cond until it returns true, the timeout elapses or ctx is done.
// The condition is always evaluated at least once.
func WaitUntil(ctx context.Context, timeout, interval time.Duration, cond Condition) error {
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	deadline := time.Now().Add(timeout)
	for {
		if ok, err := cond(ctx); err == nil && ok {
			return nil
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !time.Now().Before(deadline) {
			return ErrWaitTimeout
		}

		wait := interval
		if remaining := time.Until(deadline); remaining < wait {
			wait = remaining
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

// PageReady reports whether the driver's current document finished loading.
func PageReady(d Driver) Condition {
	return func(ctx context.Context) (bool, error) {
		state, err := d.ReadyState(ctx)
		if err != nil {
			return false, err
		}
		return state == "complete", nil
	}
}

// Sleep blocks for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
