package ratelimit

import (
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestLimiter(t *testing.T) (*Limiter, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)}
	l := New(WithClock(clock.Now))
	t.Cleanup(l.Close)
	return l, clock
}

func TestCheckFixedWindow(t *testing.T) {
	t.Parallel()

	l, clock := newTestLimiter(t)
	const (
		limit  = 3
		window = time.Second
	)

	for i := 0; i < limit; i++ {
		res := l.Check("wallet:abc", limit, window)
		if !res.Allowed {
			t.Fatalf("request %d denied, want allowed", i+1)
		}
		if res.Remaining != limit-i-1 {
			t.Fatalf("request %d remaining = %d, want %d", i+1, res.Remaining, limit-i-1)
		}
	}

	res := l.Check("wallet:abc", limit, window)
	if res.Allowed {
		t.Fatalf("fourth request allowed, want denied")
	}
	if got := res.RetryAfter(clock.Now()); got != window {
		t.Fatalf("retry-after = %v, want %v", got, window)
	}

	clock.Advance(window)
	res = l.Check("wallet:abc", limit, window)
	if !res.Allowed {
		t.Fatalf("request after window elapsed denied, want fresh window")
	}
	if res.Remaining != limit-1 {
		t.Fatalf("fresh window remaining = %d, want %d", res.Remaining, limit-1)
	}
}

func TestCheckKeysAreIndependent(t *testing.T) {
	t.Parallel()

	l, _ := newTestLimiter(t)

	for i := 0; i < 5; i++ {
		l.Check("ip:10.0.0.1", 5, time.Minute)
	}
	if res := l.Check("ip:10.0.0.1", 5, time.Minute); res.Allowed {
		t.Fatalf("saturated key still allowed")
	}
	if res := l.Check("ip:10.0.0.2", 5, time.Minute); !res.Allowed {
		t.Fatalf("separate key denied")
	}
}

func TestRetryAfterShrinksWithinWindow(t *testing.T) {
	t.Parallel()

	l, clock := newTestLimiter(t)

	l.Check("global", 1, time.Minute)
	clock.Advance(20 * time.Second)

	res := l.Check("global", 1, time.Minute)
	if res.Allowed {
		t.Fatalf("expected denial")
	}
	if got := res.RetryAfter(clock.Now()); got != 40*time.Second {
		t.Fatalf("retry-after = %v, want 40s", got)
	}
}

func TestDenialDoesNotConsume(t *testing.T) {
	t.Parallel()

	l, clock := newTestLimiter(t)

	l.Check("k", 1, time.Minute)
	for i := 0; i < 10; i++ {
		l.Check("k", 1, time.Minute)
	}

	clock.Advance(time.Minute)
	if res := l.Check("k", 1, time.Minute); !res.Allowed {
		t.Fatalf("denied requests must not extend or refill the window")
	}
}

func TestConcurrentChecksNeverOversubscribe(t *testing.T) {
	t.Parallel()

	l, _ := newTestLimiter(t)
	const (
		limit   = 50
		callers = 200
	)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Check("shared", limit, time.Minute).Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if allowed != limit {
		t.Fatalf("allowed = %d, want exactly %d", allowed, limit)
	}
}

func TestRemoveExpired(t *testing.T) {
	t.Parallel()

	l, clock := newTestLimiter(t)

	l.Check("a", 1, time.Second)
	l.Check("b", 1, time.Hour)
	clock.Advance(2 * time.Second)
	l.removeExpired()

	l.mu.Lock()
	_, hasA := l.entries["a"]
	_, hasB := l.entries["b"]
	l.mu.Unlock()

	if hasA {
		t.Fatalf("expired entry survived sweep")
	}
	if !hasB {
		t.Fatalf("live entry removed by sweep")
	}
}
