package server

import (
	"sync"
	"time"
)

// authFailureLimiter blocks a key after repeated failed Basic auth attempts
// inside a window.
type authFailureLimiter struct {
	mu          sync.Mutex
	entries     map[string]authFailureEntry
	maxFailures int
	window      time.Duration
	blockedFor  time.Duration
	calls       int
}

type authFailureEntry struct {
	failures     int
	windowStart  time.Time
	blockedUntil time.Time
}

const authFailureSweepEvery = 64

func newAuthFailureLimiter(maxFailures int, window, blockedFor time.Duration) *authFailureLimiter {
	if maxFailures <= 0 || window <= 0 || blockedFor <= 0 {
		return nil
	}
	return &authFailureLimiter{
		entries:     make(map[string]authFailureEntry),
		maxFailures: maxFailures,
		window:      window,
		blockedFor:  blockedFor,
	}
}

// Blocked reports whether key is currently locked out.
func (l *authFailureLimiter) Blocked(key string, now time.Time) bool {
	if l == nil || key == "" {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	entry, ok := l.entries[key]
	return ok && now.Before(entry.blockedUntil)
}

// Fail records a failed attempt and starts a block once the limit is hit.
func (l *authFailureLimiter) Fail(key string, now time.Time) {
	if l == nil || key == "" {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	entry := l.entries[key]
	if entry.windowStart.IsZero() || now.Sub(entry.windowStart) > l.window {
		entry.failures = 0
		entry.windowStart = now
	}
	entry.failures++
	if entry.failures >= l.maxFailures {
		entry.blockedUntil = now.Add(l.blockedFor)
		entry.failures = 0
		entry.windowStart = time.Time{}
	}
	l.entries[key] = entry
	l.sweepLocked(now)
}

// Succeed forgets earlier failures for key.
func (l *authFailureLimiter) Succeed(key string) {
	if l == nil || key == "" {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, key)
}

func (l *authFailureLimiter) sweepLocked(now time.Time) {
	l.calls++
	if l.calls%authFailureSweepEvery != 0 {
		return
	}
	for key, entry := range l.entries {
		expired := now.Sub(entry.windowStart) > l.window && !now.Before(entry.blockedUntil)
		if expired {
			delete(l.entries, key)
		}
	}
}
