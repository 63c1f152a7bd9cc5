package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestLimiter_DisabledNeverBlocks(t *testing.T) {
	for _, perMinute := range []int{0, -1} {
		limiter := NewLimiter(perMinute)

		start := time.Now()
		for i := 0; i < 100; i++ {
			if err := limiter.Wait(context.Background()); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		}
		if time.Since(start) > 10*time.Millisecond {
			t.Errorf("limiter with cap %d should not block", perMinute)
		}
		if got := limiter.Pending(); got != 0 {
			t.Errorf("disabled limiter should not record timestamps, got %d", got)
		}
	}
}

func TestLimiter_UnderCapDoesNotBlock(t *testing.T) {
	limiter := NewLimiter(3)

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := limiter.Wait(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if time.Since(start) > 10*time.Millisecond {
		t.Errorf("first 3 waits under a cap of 3 should not block")
	}
	if got := limiter.Pending(); got != 3 {
		t.Errorf("expected 3 recorded timestamps, got %d", got)
	}
}

func TestLimiter_BlocksUntilOldestLeavesWindow(t *testing.T) {
	limiter := NewLimiter(2)
	limiter.window = 200 * time.Millisecond // shrink the window to keep the test fast

	ctx := context.Background()
	_ = limiter.Wait(ctx)
	_ = limiter.Wait(ctx)

	// The third wait must block until the first timestamp falls out of the
	// trailing window, i.e. roughly window - elapsed.
	start := time.Now()
	if err := limiter.Wait(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	blocked := time.Since(start)

	if blocked < 100*time.Millisecond {
		t.Errorf("expected the over-cap wait to block close to the window, blocked %v", blocked)
	}
	if blocked > 400*time.Millisecond {
		t.Errorf("expected the wait to end once the oldest entry expired, blocked %v", blocked)
	}

	// After the blocked wait the expired entry must be pruned.
	if got := limiter.Pending(); got > 2 {
		t.Errorf("window must never exceed the cap, got %d entries", got)
	}
}

func TestLimiter_ContextCancellation(t *testing.T) {
	limiter := NewLimiter(1)

	ctx := context.Background()
	_ = limiter.Wait(ctx)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()

	if err := limiter.Wait(cancelled); err == nil {
		t.Fatalf("expected context canceled error")
	}
	if got := limiter.Pending(); got != 1 {
		t.Errorf("canceled wait must not record a timestamp, got %d", got)
	}
}
