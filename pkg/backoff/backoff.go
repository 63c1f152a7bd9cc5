package backoff

import (
	"context"
	"math/rand"
	"time"
)

// saturation bounds: the doubling must never overflow a time.Duration, even
// before the configured cap is applied.
const (
	maxShift = 40
	maxDelay = time.Duration(1<<62 - 1)
)

// Policy computes retry delays: exponential in the attempt number, with a
// bounded random jitter added to avoid synchronized retry storms, capped at
// Max when a positive Max is configured. A zero-value Policy is disabled.
type Policy struct {
	// Base is the delay for the first retry. Zero or negative disables
	// backoff entirely.
	Base time.Duration
	// Max caps the computed delay. Zero or negative means uncapped.
	Max time.Duration
	// Jitter is the upper bound of the uniform random addition.
	Jitter time.Duration
}

// Delay returns the sleep duration before retry number attempt (1-based).
// Attempts below 1 are treated as 1. The result is never negative.
func (p Policy) Delay(attempt int) time.Duration {
	if p.Base <= 0 {
		return 0
	}
	if attempt < 1 {
		attempt = 1
	}

	shift := attempt - 1
	if shift > maxShift {
		shift = maxShift
	}
	d := p.Base << shift
	if d < p.Base || d > maxDelay-p.Jitter {
		d = maxDelay - p.Jitter
	}

	if p.Jitter > 0 {
		d += time.Duration(rand.Int63n(int64(p.Jitter)))
	}
	if p.Max > 0 && d > p.Max {
		d = p.Max
	}
	return d
}

// Sleep blocks for Delay(attempt) or until the context is canceled. It is
// invoked before every retry, never before the first attempt.
func (p Policy) Sleep(ctx context.Context, attempt int) error {
	d := p.Delay(attempt)
	if d <= 0 {
		return nil
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
