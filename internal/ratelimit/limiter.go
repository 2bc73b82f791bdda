// Package ratelimit provides per-actor rate limiting for password unlock
// attempts. The policy core deliberately performs no retry accounting;
// limiting wrong-password guessing is layered here, outside the pure
// decision logic.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Config defines the rate limiting configuration.
type Config struct {
	RPS             float64       // Allowed attempts per second per key
	Burst           int           // Burst size per key
	CleanupInterval time.Duration // How often to clean up idle limiters
}

// DefaultConfig allows one unlock attempt per second with a burst of
// five, which is generous for humans and hostile to guessing.
var DefaultConfig = Config{
	RPS:             1,
	Burst:           5,
	CleanupInterval: time.Hour,
}

// limiterEntry holds a rate limiter and tracks its last usage.
type limiterEntry struct {
	limiter  *rate.Limiter
	lastUsed time.Time
}

// Limiter manages per-key token-bucket limiters. Keys are opaque; the
// HTTP layer keys unlock attempts by session id, falling back to remote
// address for sessionless callers.
type Limiter struct {
	limiters map[string]*limiterEntry
	mu       sync.RWMutex
	config   Config

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewLimiter creates a limiter with the given configuration and starts
// its background cleanup goroutine.
func NewLimiter(config Config) *Limiter {
	l := &Limiter{
		limiters: make(map[string]*limiterEntry),
		config:   config,
		stopCh:   make(chan struct{}),
	}
	l.wg.Add(1)
	go l.cleanupLoop()
	return l
}

// Allow reports whether an attempt under the given key is within limits.
func (l *Limiter) Allow(key string) bool {
	return l.get(key).Allow()
}

func (l *Limiter) get(key string) *rate.Limiter {
	// Fast path with read lock.
	l.mu.RLock()
	entry, exists := l.limiters[key]
	if exists {
		entry.lastUsed = time.Now()
		l.mu.RUnlock()
		return entry.limiter
	}
	l.mu.RUnlock()

	l.mu.Lock()
	defer l.mu.Unlock()

	// Double-check after acquiring the write lock.
	if entry, exists := l.limiters[key]; exists {
		entry.lastUsed = time.Now()
		return entry.limiter
	}

	limiter := rate.NewLimiter(rate.Limit(l.config.RPS), l.config.Burst)
	l.limiters[key] = &limiterEntry{limiter: limiter, lastUsed: time.Now()}
	return limiter
}

// Cleanup removes limiters idle for longer than the cleanup interval.
func (l *Limiter) Cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := time.Now().Add(-l.config.CleanupInterval)
	for key, entry := range l.limiters {
		if entry.lastUsed.Before(cutoff) {
			delete(l.limiters, key)
		}
	}
}

func (l *Limiter) cleanupLoop() {
	defer l.wg.Done()

	ticker := time.NewTicker(l.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.Cleanup()
		case <-l.stopCh:
			return
		}
	}
}

// Stop stops the cleanup goroutine and waits for it to finish.
func (l *Limiter) Stop() {
	close(l.stopCh)
	l.wg.Wait()
}

// Len returns the number of active limiters; useful for tests and
// monitoring.
func (l *Limiter) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.limiters)
}
