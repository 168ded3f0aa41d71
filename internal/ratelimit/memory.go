package ratelimit

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	count     int
	expiresAt time.Time
}

// MemoryLimiter is an in-process Limiter for single-instance deployments and
// tests. Multi-instance deployments should use the Redis limiter so counters
// are shared across replicas.
type MemoryLimiter struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryLimiter creates an in-memory limiter.
func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// TooManyAttempts reports whether the key reached maxAttempts in the window.
func (l *MemoryLimiter) TooManyAttempts(_ context.Context, key string, maxAttempts int) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.entries[key]
	if !ok {
		return false, nil
	}
	if l.now().After(entry.expiresAt) {
		delete(l.entries, key)
		return false, nil
	}
	return entry.count >= maxAttempts, nil
}

// Hit records a failed attempt. The decay window starts at the first hit.
func (l *MemoryLimiter) Hit(_ context.Context, key string, decay time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.entries[key]
	if !ok || l.now().After(entry.expiresAt) {
		l.entries[key] = memoryEntry{count: 1, expiresAt: l.now().Add(decay)}
		return nil
	}
	entry.count++
	l.entries[key] = entry
	return nil
}

// Clear resets the counter for the key.
func (l *MemoryLimiter) Clear(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, key)
	return nil
}
