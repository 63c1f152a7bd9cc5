package ratelimit

import (
	"context"
	"sync"
	"time"
)

// defaultWindow is the trailing interval the request cap applies to. The cap
// is continuously re-evaluated against "now minus 60s", not a fixed calendar
// minute.
const defaultWindow = time.Minute

// Limiter bounds operations to at most perMinute starts within the trailing
// 60-second window. It is safe for concurrent use by multiple goroutines;
// concurrent waiters serialize on the window.
type Limiter struct {
	mu        sync.Mutex
	perMinute int
	window    time.Duration
	stamps    []time.Time
}

// NewLimiter creates a limiter capped at perMinute requests per rolling
// minute. If perMinute is zero or negative the limiter is disabled and Wait
// never blocks.
func NewLimiter(perMinute int) *Limiter {
	return &Limiter{
		perMinute: perMinute,
		window:    defaultWindow,
	}
}

// Wait blocks until starting an operation would not exceed the configured cap,
// or until the context is canceled, then records the operation's timestamp.
// The wait duration is the time until the oldest recorded timestamp falls out
// of the trailing window.
func (l *Limiter) Wait(ctx context.Context) error {
	if l.perMinute <= 0 {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	l.prune(now)

	if len(l.stamps) >= l.perMinute {
		sleep := l.window - now.Sub(l.stamps[0])
		if sleep > 0 {
			timer := time.NewTimer(sleep)
			defer timer.Stop()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-timer.C:
			}
		}
		now = time.Now()
		l.prune(now)
	}

	l.stamps = append(l.stamps, now)
	return nil
}

// Pending reports how many recorded timestamps are currently inside the
// trailing window.
func (l *Limiter) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.prune(time.Now())
	return len(l.stamps)
}

// prune drops timestamps older than the window. The slice is kept in
// insertion order, oldest first. Must be called with the lock held.
func (l *Limiter) prune(now time.Time) {
	cut := 0
	for cut < len(l.stamps) && now.Sub(l.stamps[cut]) >= l.window {
		cut++
	}
	if cut > 0 {
		l.stamps = append(l.stamps[:0], l.stamps[cut:]...)
	}
}
