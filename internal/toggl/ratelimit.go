package toggl

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultMaxPerHour matches the vendor's free-plan quota of 30 requests
	// per hour per workspace.
	DefaultMaxPerHour = 30
	// DefaultMinInterval keeps request spacing slightly over one second.
	DefaultMinInterval = 1100 * time.Millisecond

	// windowMargin is added when sleeping out a full window so the oldest
	// timestamp is safely outside it afterwards.
	windowMargin = time.Second
)

// RateLimiter throttles outbound API calls with a fixed minimum spacing and
// an hourly sliding-window quota. It is advisory self-throttling: in-memory,
// single-process, nothing persists across restarts.
type RateLimiter struct {
	spacing    *rate.Limiter
	maxPerHour int
	window     time.Duration
	timestamps []time.Time

	now   func() time.Time
	sleep func(time.Duration)
}

// NewRateLimiter returns a limiter enforcing minInterval between requests and
// at most maxPerHour requests in any rolling hour.
func NewRateLimiter(maxPerHour int, minInterval time.Duration) *RateLimiter {
	return &RateLimiter{
		spacing:    rate.NewLimiter(rate.Every(minInterval), 1),
		maxPerHour: maxPerHour,
		window:     time.Hour,
		now:        time.Now,
		sleep:      time.Sleep,
	}
}

// Acquire blocks the caller until it is safe to issue the next request, then
// records the request. The only suspension points are the spacing wait and,
// at quota, a sleep until the oldest timestamp leaves the window.
func (l *RateLimiter) Acquire(ctx context.Context) error {
	if err := l.spacing.Wait(ctx); err != nil {
		return err
	}

	cutoff := l.now().Add(-l.window)
	kept := l.timestamps[:0]
	for _, t := range l.timestamps {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	l.timestamps = kept

	if len(l.timestamps) >= l.maxPerHour {
		l.sleep(l.timestamps[0].Sub(cutoff) + windowMargin)
	}

	l.timestamps = append(l.timestamps, l.now())
	return nil
}
