package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestFirstWaitIsImmediate(t *testing.T) {
	r := NewSimpleRateLimiter(time.Second, 2*time.Second)

	start := time.Now()
	if err := r.Wait(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("first wait should not block, took %v", elapsed)
	}
}

func TestSecondWaitIsDelayed(t *testing.T) {
	r := NewSimpleRateLimiter(50*time.Millisecond, 60*time.Millisecond)

	if err := r.Wait(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	start := time.Now()
	if err := r.Wait(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
		t.Errorf("second wait should be rate limited, took %v", elapsed)
	}
}

func TestWaitRespectsCancellation(t *testing.T) {
	r := NewSimpleRateLimiter(time.Minute, time.Minute)

	if err := r.Wait(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := r.Wait(ctx); err == nil {
		t.Error("expected context error, got nil")
	}
}

func TestCalculateDelayBounds(t *testing.T) {
	r := NewSimpleRateLimiter(100*time.Millisecond, 200*time.Millisecond)

	for i := 0; i < 100; i++ {
		d := r.calculateDelay()
		if d < 100*time.Millisecond || d > 200*time.Millisecond {
			t.Fatalf("delay %v out of [100ms, 200ms]", d)
		}
	}
}

func TestSetDelay(t *testing.T) {
	r := NewSimpleRateLimiter(time.Second, 2*time.Second)
	r.SetDelay(10*time.Millisecond, 10*time.Millisecond)

	if d := r.calculateDelay(); d != 10*time.Millisecond {
		t.Errorf("expected 10ms delay, got %v", d)
	}
}
