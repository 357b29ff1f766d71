package ratelimit

import (
	"context"
	"sync"
	"time"
)

// attemptEntry tracks attempts within the current window.
type attemptEntry struct {
	count   int
	resetAt time.Time
}

// Limiter is an in-memory sliding-window attempt counter keyed by
// identifier. Implements domain.AttemptLimiter. State does not survive a
// restart; multi-process deployments should use RedisLimiter instead.
type Limiter struct {
	mu          sync.Mutex
	entries     map[string]*attemptEntry
	maxAttempts int
	window      time.Duration
	stop        chan struct{}
	stopOnce    sync.Once
}

// NewLimiter creates an attempt limiter allowing maxAttempts per window.
// Call Close when the limiter is no longer needed to stop its cleanup
// goroutine.
func NewLimiter(maxAttempts int, window time.Duration) *Limiter {
	l := &Limiter{
		entries:     make(map[string]*attemptEntry),
		maxAttempts: maxAttempts,
		window:      window,
		stop:        make(chan struct{}),
	}
	go l.cleanupLoop()
	return l
}

// Close stops the cleanup goroutine. Safe to call more than once.
func (l *Limiter) Close() {
	l.stopOnce.Do(func() { close(l.stop) })
}

// Allow records an attempt for the identifier and reports whether it is
// within the window's budget.
func (l *Limiter) Allow(_ context.Context, identifier string) (bool, error) {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	entry, found := l.entries[identifier]
	if !found || now.After(entry.resetAt) {
		l.entries[identifier] = &attemptEntry{count: 1, resetAt: now.Add(l.window)}
		return true, nil
	}

	if entry.count >= l.maxAttempts {
		return false, nil
	}

	entry.count++
	return true, nil
}

// Clear removes the identifier's entry. Called on successful sign-in.
func (l *Limiter) Clear(_ context.Context, identifier string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, identifier)
	return nil
}

// ResetTime returns the epoch second at which the identifier's window
// elapses, false when no live window exists.
func (l *Limiter) ResetTime(_ context.Context, identifier string) (int64, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, found := l.entries[identifier]
	if !found || time.Now().After(entry.resetAt) {
		return 0, false
	}
	return entry.resetAt.Unix(), true
}

// cleanupLoop removes elapsed windows to bound memory.
func (l *Limiter) cleanupLoop() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			now := time.Now()
			l.mu.Lock()
			for id, entry := range l.entries {
				if now.After(entry.resetAt) {
					delete(l.entries, id)
				}
			}
			l.mu.Unlock()
		}
	}
}
