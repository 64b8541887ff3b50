package ratelimit

import (
	"sync"
	"testing"
	"time"
)

func TestAllowWithinWindow(t *testing.T) {
	l := New(60*time.Second, 10)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	now := base
	l.SetClock(func() time.Time { return now })

	for i := 0; i < 10; i++ {
		now = base.Add(time.Duration(i) * time.Second)
		if !l.Allow("1.2.3.4") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	now = base.Add(11 * time.Second)
	if l.Allow("1.2.3.4") {
		t.Fatal("11th request within the window should be rejected")
	}
}

func TestWindowResets(t *testing.T) {
	l := New(60*time.Second, 10)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	now := base
	l.SetClock(func() time.Time { return now })

	for i := 0; i < 10; i++ {
		l.Allow("key")
	}
	if l.Allow("key") {
		t.Fatal("should be limited before the window elapses")
	}

	now = base.Add(60 * time.Second)
	if !l.Allow("key") {
		t.Fatal("first request after the window should be accepted")
	}
	// Count was reset to 1, so nine more fit.
	for i := 0; i < 9; i++ {
		if !l.Allow("key") {
			t.Fatalf("request %d of the new window should be allowed", i+2)
		}
	}
	if l.Allow("key") {
		t.Fatal("11th request of the new window should be rejected")
	}
}

func TestKeysAreIndependent(t *testing.T) {
	l := New(60*time.Second, 2)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l.SetClock(func() time.Time { return now })

	l.Allow("a")
	l.Allow("a")
	if l.Allow("a") {
		t.Fatal("key a should be limited")
	}
	if !l.Allow("b") {
		t.Fatal("key b should not be affected by key a")
	}
}

func TestLazyEviction(t *testing.T) {
	l := New(60*time.Second, 10)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	now := base
	l.SetClock(func() time.Time { return now })

	for _, key := range []string{"a", "b", "c"} {
		l.Allow(key)
	}
	if got := l.Len(); got != 3 {
		t.Fatalf("Len() = %d, want 3", got)
	}

	// A call after the window passes sweeps stale entries.
	now = base.Add(2 * time.Minute)
	l.Allow("d")
	if got := l.Len(); got != 1 {
		t.Errorf("Len() = %d after sweep, want 1", got)
	}
}

func TestConcurrentAllowDoesNotUndercount(t *testing.T) {
	const max = 10
	l := New(time.Minute, max)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l.SetClock(func() time.Time { return now })

	const goroutines = 50
	var wg sync.WaitGroup
	allowed := make(chan struct{}, goroutines)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Allow("shared") {
				allowed <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(allowed)

	count := 0
	for range allowed {
		count++
	}
	if count != max {
		t.Errorf("allowed %d concurrent requests, want exactly %d", count, max)
	}
}
