// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides the retry and pacing helpers shared by the
// network stages.
package httputil

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrExhausted is returned by Retry when every attempt failed.
var ErrExhausted = errors.New("retries exhausted")

const defaultAttempts = 3

// Policy describes a bounded retry with a fixed pause between attempts.
type Policy struct {
	// Attempts is the total number of tries, including the first one.
	// Values below 1 use the default (3).
	Attempts int

	// Delay is the pause between consecutive attempts. There is no pause
	// after the final attempt.
	Delay time.Duration

	// Sleep waits between attempts. Nil uses Sleep from this package.
	// Tests substitute a recorder.
	Sleep func(ctx context.Context, d time.Duration) error

	// OnRetry, when set, is called after a failed attempt that will be
	// retried, before the pause.
	OnRetry func(attempt int, err error)
}

// Retry calls fn until it returns nil or the policy's attempts run out.
// fn receives the 1-based attempt number. A context cancellation during a
// pause aborts immediately with ctx.Err(). After exhausting attempts the
// returned error wraps both ErrExhausted and the last failure.
func Retry(ctx context.Context, p Policy, fn func(attempt int) error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = defaultAttempts
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = Sleep
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		err := fn(attempt)
		if err == nil {
			return nil
		}
		lastErr = err

		if attempt == attempts {
			break
		}
		if p.OnRetry != nil {
			p.OnRetry(attempt, err)
		}
		if err := sleep(ctx, p.Delay); err != nil {
			return err
		}
	}
	return fmt.Errorf("%w after %d attempts: %w", ErrExhausted, attempts, lastErr)
}

// Sleep blocks for d or until ctx is done, whichever comes first. A
// non-positive d returns immediately unless ctx is already cancelled.
func Sleep(ctx context.Context, d time.Duration) error {
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
