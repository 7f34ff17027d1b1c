// Package ratelimit provides a fixed-window request limiter keyed by scope.
//
// One Limiter instance holds process-wide state: entries are created lazily,
// reset when their window elapses, and swept periodically to bound memory.
package ratelimit

import (
	"sync"
	"time"
)

const defaultSweepInterval = 5 * time.Minute

type entry struct {
	count     int
	windowEnd time.Time
}

// Result reports one Check outcome. ResetAt lets callers compute an honest
// Retry-After instead of a fixed constant.
type Result struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// RetryAfter is the remaining window time at now, rounded up to whole seconds.
func (r Result) RetryAfter(now time.Time) time.Duration {
	d := r.ResetAt.Sub(now)
	if d <= 0 {
		return 0
	}
	return d.Round(time.Second) // callers send whole seconds over the wire
}

// Limiter is a fixed-window counter map. The mutex serializes the
// check-then-increment so two concurrent requests can never both take the last
// slot of a window.
type Limiter struct {
	mu      sync.Mutex
	entries map[string]entry

	now  func() time.Time
	stop chan struct{}
	once sync.Once
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock overrides the limiter clock (tests).
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		if now != nil {
			l.now = now
		}
	}
}

// New constructs a Limiter and starts its background sweeper.
// Call Close to stop the sweeper.
func New(opts ...Option) *Limiter {
	l := &Limiter{
		entries: make(map[string]entry),
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	go l.sweep(defaultSweepInterval)
	return l
}

// Check records one request against key and reports whether it is allowed.
// A missing or elapsed window starts fresh with count=1; a full window denies
// without consuming anything.
func (l *Limiter) Check(key string, limit int, window time.Duration) Result {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[key]
	if !ok || !now.Before(e.windowEnd) {
		end := now.Add(window)
		l.entries[key] = entry{count: 1, windowEnd: end}
		return Result{Allowed: true, Remaining: limit - 1, ResetAt: end}
	}

	if e.count >= limit {
		return Result{Allowed: false, Remaining: 0, ResetAt: e.windowEnd}
	}

	e.count++
	l.entries[key] = e
	return Result{Allowed: true, Remaining: limit - e.count, ResetAt: e.windowEnd}
}

// Close stops the background sweeper (idempotent).
func (l *Limiter) Close() {
	l.once.Do(func() { close(l.stop) })
}

func (l *Limiter) sweep(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			l.removeExpired()
		}
	}
}

func (l *Limiter) removeExpired() {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	for key, e := range l.entries {
		if !now.Before(e.windowEnd) {
			delete(l.entries, key)
		}
	}
}
