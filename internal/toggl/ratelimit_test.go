package toggl

import (
	"context"
	"testing"
	"time"
)

func TestRateLimiterSpacing(t *testing.T) {
	l := NewRateLimiter(100, 50*time.Millisecond)

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := l.Acquire(context.Background()); err != nil {
			t.Fatalf("Acquire: %v", err)
		}
	}
	// Three acquires against a burst of one need at least two full intervals.
	if elapsed := time.Since(start); elapsed < 100*time.Millisecond {
		t.Errorf("3 acquires took %v, want >= 100ms", elapsed)
	}
}

func TestRateLimiterWindowQuota(t *testing.T) {
	l := NewRateLimiter(2, time.Millisecond)

	clock := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	var slept []time.Duration
	l.now = func() time.Time { return clock }
	l.sleep = func(d time.Duration) {
		slept = append(slept, d)
		clock = clock.Add(d)
	}

	for i := 0; i < 2; i++ {
		if err := l.Acquire(context.Background()); err != nil {
			t.Fatalf("Acquire %d: %v", i, err)
		}
	}
	if len(slept) != 0 {
		t.Fatalf("slept %v before hitting quota", slept)
	}

	// Third acquire is at quota: it must wait until the oldest request
	// leaves the one-hour window, plus the safety margin.
	if err := l.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire at quota: %v", err)
	}
	if len(slept) != 1 {
		t.Fatalf("expected one quota sleep, got %v", slept)
	}
	if want := time.Hour + time.Second; slept[0] != want {
		t.Errorf("quota sleep = %v, want %v", slept[0], want)
	}
}

func TestRateLimiterPrunesOldTimestamps(t *testing.T) {
	l := NewRateLimiter(2, time.Millisecond)

	clock := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	var slept []time.Duration
	l.now = func() time.Time { return clock }
	l.sleep = func(d time.Duration) { slept = append(slept, d) }

	for i := 0; i < 2; i++ {
		if err := l.Acquire(context.Background()); err != nil {
			t.Fatalf("Acquire %d: %v", i, err)
		}
	}

	// Two hours later both timestamps are stale; no quota sleep needed.
	clock = clock.Add(2 * time.Hour)
	if err := l.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire after window: %v", err)
	}
	if len(slept) != 0 {
		t.Errorf("slept %v after window expired", slept)
	}
}

func TestRateLimiterContextCancel(t *testing.T) {
	l := NewRateLimiter(30, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := l.Acquire(ctx); err == nil {
		t.Fatal("expected error from cancelled context")
	}
}
