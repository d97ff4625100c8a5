// rate_limiter.go
// ----------------
// This file defines the in-process RateLimiter, a sliding-window log keyed by
// an arbitrary string (see keyForRequest in request_executor.go).
//
// Responsibilities:
// - Storing, per key, the timestamps of admitted calls within the trailing window.
// - Evicting timestamps older than the window lazily, on each check.
// - Refusing a call once the number of timestamps left reaches MaxAttempts.
//
// The window edge is a hard cutoff on timestamp age. There is no burst credit
// and no smoothing; a refused call does not record a timestamp.
package securebridge

import (
	"context"
	"sync"
	"time"
)

const (
	DefaultMaxAttempts      = 10
	DefaultInputMaxAttempts = 100
	DefaultWindow           = 60 * time.Second
)

// RateLimitDecision is the outcome of a limiter check.
type RateLimitDecision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration // until the oldest timestamp leaves the window; 0 when allowed
}

type RateLimiter struct {
	mu          sync.Mutex
	windows     map[string][]time.Time
	maxAttempts int
	window      time.Duration
	now         func() time.Time
}

// NewRateLimiter creates a sliding-window limiter. Non-positive arguments
// fall back to DefaultMaxAttempts and DefaultWindow.
func NewRateLimiter(maxAttempts int, window time.Duration) *RateLimiter {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &RateLimiter{
		windows:     make(map[string][]time.Time),
		maxAttempts: maxAttempts,
		window:      window,
		now:         time.Now,
	}
}

// NewInputRateLimiter returns the looser limiter used for user-input driven
// actions such as login attempts.
func NewInputRateLimiter(window time.Duration) *RateLimiter {
	return NewRateLimiter(DefaultInputMaxAttempts, window)
}

// SetClock replaces the limiter's time source. Intended for tests.
func (r *RateLimiter) SetClock(now func() time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.now = now
}

// Allow records a call for key if the window has room.
func (r *RateLimiter) Allow(_ context.Context, key string) (RateLimitDecision, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	cutoff := now.Add(-r.window)

	stamps := r.windows[key]
	kept := stamps[:0]
	for _, ts := range stamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}

	if len(kept) >= r.maxAttempts {
		r.windows[key] = kept
		return RateLimitDecision{
			Allowed:    false,
			Remaining:  0,
			RetryAfter: kept[0].Sub(cutoff),
		}, nil
	}

	kept = append(kept, now)
	r.windows[key] = kept
	return RateLimitDecision{
		Allowed:   true,
		Remaining: r.maxAttempts - len(kept),
	}, nil
}

// Reset forgets every timestamp recorded for key.
func (r *RateLimiter) Reset(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.windows, key)
}

// Limits returns the configured attempts and window.
func (r *RateLimiter) Limits() (int, time.Duration) {
	return r.maxAttempts, r.window
}
