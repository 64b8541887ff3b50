// Package ratelimit provides an in-process fixed-window request limiter.
package ratelimit

import (
	"sync"
	"time"
)

// Limiter enforces a fixed-window request quota per client key. State lives
// in memory only; a restart clears all counters. This is an abuse-mitigation
// heuristic, not a security boundary.
type Limiter struct {
	mu        sync.Mutex
	entries   map[string]*entry
	window    time.Duration
	max       int
	now       func() time.Time
	lastSweep time.Time
}

type entry struct {
	count       int
	windowStart time.Time
}

// New creates a limiter allowing max requests per key within window.
func New(window time.Duration, max int) *Limiter {
	if window <= 0 {
		window = time.Minute
	}
	if max <= 0 {
		max = 10
	}
	return &Limiter{
		entries: make(map[string]*entry),
		window:  window,
		max:     max,
		now:     time.Now,
	}
}

// SetClock replaces the limiter's time source. Tests only.
func (l *Limiter) SetClock(now func() time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.now = now
}

// Allow reports whether the request identified by key is within quota,
// counting the request when it is.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.maybeSweep(now)

	e, ok := l.entries[key]
	if !ok || now.Sub(e.windowStart) >= l.window {
		l.entries[key] = &entry{count: 1, windowStart: now}
		return true
	}
	if e.count >= l.max {
		return false
	}
	e.count++
	return true
}

// Len returns the number of tracked client keys.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// maybeSweep drops entries whose window has fully elapsed. Runs at most once
// per window so eviction cost is amortized across calls. Caller holds mu.
func (l *Limiter) maybeSweep(now time.Time) {
	if now.Sub(l.lastSweep) < l.window {
		return
	}
	l.lastSweep = now
	for key, e := range l.entries {
		if now.Sub(e.windowStart) >= l.window {
			delete(l.entries, key)
		}
	}
}
