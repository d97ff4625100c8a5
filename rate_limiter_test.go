package securebridge

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestRateLimiterDefaults(t *testing.T) {
	rl := NewRateLimiter(0, 0)
	max, window := rl.Limits()
	assert.Equal(t, DefaultMaxAttempts, max)
	assert.Equal(t, DefaultWindow, window)

	max, _ = NewInputRateLimiter(0).Limits()
	assert.Equal(t, DefaultInputMaxAttempts, max)
}

func TestRateLimiterRefusesBeyondMaxAttempts(t *testing.T) {
	clock := newFakeClock()
	rl := NewRateLimiter(3, time.Minute)
	rl.SetClock(clock.Now)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		d, err := rl.Allow(ctx, "GET /patients")
		require.NoError(t, err)
		assert.True(t, d.Allowed, "call %d", i+1)
		assert.Equal(t, 2-i, d.Remaining)
		clock.Advance(10 * time.Second)
	}

	d, err := rl.Allow(ctx, "GET /patients")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	// oldest stamp is 30s old, so it leaves the window in 30s
	assert.Equal(t, 30*time.Second, d.RetryAfter)

	other, err := rl.Allow(ctx, "GET /invoices")
	require.NoError(t, err)
	assert.True(t, other.Allowed, "keys are independent")
}

func TestRateLimiterSlidesWindow(t *testing.T) {
	clock := newFakeClock()
	rl := NewRateLimiter(2, time.Minute)
	rl.SetClock(clock.Now)
	ctx := context.Background()

	d, _ := rl.Allow(ctx, "k")
	require.True(t, d.Allowed)
	clock.Advance(30 * time.Second)
	d, _ = rl.Allow(ctx, "k")
	require.True(t, d.Allowed)

	d, _ = rl.Allow(ctx, "k")
	require.False(t, d.Allowed)

	// exactly one window after the first call, that stamp is evicted
	clock.Advance(30 * time.Second)
	d, _ = rl.Allow(ctx, "k")
	assert.True(t, d.Allowed)

	d, _ = rl.Allow(ctx, "k")
	assert.False(t, d.Allowed)
}

func TestRateLimiterReset(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)
	ctx := context.Background()

	d, _ := rl.Allow(ctx, "k")
	require.True(t, d.Allowed)
	d, _ = rl.Allow(ctx, "k")
	require.False(t, d.Allowed)

	rl.Reset("k")
	d, _ = rl.Allow(ctx, "k")
	assert.True(t, d.Allowed)
}

func TestRateLimiterCountsWithinWindow(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		max := rapid.IntRange(1, 20).Draw(t, "max")
		n := rapid.IntRange(0, 60).Draw(t, "n")
		step := time.Duration(rapid.IntRange(0, 999).Draw(t, "stepMs")) * time.Millisecond

		clock := newFakeClock()
		rl := NewRateLimiter(max, time.Minute)
		rl.SetClock(clock.Now)

		allowed := 0
		for i := 0; i < n; i++ {
			d, err := rl.Allow(context.Background(), "key")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			// all n calls fit inside one window (60 * 999ms < 60s)
			if i < max && !d.Allowed {
				t.Fatalf("call %d refused under limit %d", i+1, max)
			}
			if i >= max && d.Allowed {
				t.Fatalf("call %d admitted beyond limit %d", i+1, max)
			}
			if d.Allowed {
				allowed++
			}
			clock.Advance(step)
		}
		if want := min(n, max); allowed != want {
			t.Fatalf("admitted %d calls, want %d", allowed, want)
		}
	})
}

func TestRateLimiterConcurrentCallers(t *testing.T) {
	rl := NewRateLimiter(50, time.Minute)
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, _ := rl.Allow(context.Background(), "shared")
			if d.Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, allowed)
}
