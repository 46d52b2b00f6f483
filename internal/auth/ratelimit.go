package auth

import (
	"context"
	"sync"
	"time"
)

const (
	// DefaultRateLimitWindow is the fixed window for sign-in attempts.
	DefaultRateLimitWindow = time.Minute
	// DefaultRateLimitMax is the attempt budget per key per window.
	DefaultRateLimitMax = 5
)

// UnknownClientKey buckets every attempt whose forwarded address is missing.
const UnknownClientKey = "unknown"

// RateLimitEntry tracks attempts for a single client key within one window.
type RateLimitEntry struct {
	Count       int       `json:"count"`
	WindowStart time.Time `json:"window_start"`
}

// RateLimitStore persists rate-limit entries. The in-memory implementation is
// the single-process default; deployments behind multiple instances can back
// it with a shared store so the budget holds globally.
type RateLimitStore interface {
	Get(ctx context.Context, key string) (RateLimitEntry, bool, error)
	Set(ctx context.Context, key string, entry RateLimitEntry) error
}

// MemoryRateLimitStore keeps entries in a process-local map. Stale keys are
// reset lazily on access; they are never evicted.
type MemoryRateLimitStore struct {
	mu      sync.RWMutex
	entries map[string]RateLimitEntry
}

// NewMemoryRateLimitStore creates an empty in-memory store.
func NewMemoryRateLimitStore() *MemoryRateLimitStore {
	return &MemoryRateLimitStore{
		entries: make(map[string]RateLimitEntry),
	}
}

// Get implements RateLimitStore.
func (s *MemoryRateLimitStore) Get(ctx context.Context, key string) (RateLimitEntry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[key]
	return entry, ok, nil
}

// Set implements RateLimitStore.
func (s *MemoryRateLimitStore) Set(ctx context.Context, key string, entry RateLimitEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = entry
	return nil
}

// Len reports the number of tracked keys.
func (s *MemoryRateLimitStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.entries)
}

// Limiter enforces a fixed-window budget of sign-in attempts per client key.
type Limiter struct {
	mu     sync.Mutex
	store  RateLimitStore
	window time.Duration
	max    int
}

// NewLimiter creates a limiter over the given store. A nil store gets the
// in-memory default; non-positive window or max fall back to the defaults.
func NewLimiter(store RateLimitStore, window time.Duration, max int) *Limiter {
	if store == nil {
		store = NewMemoryRateLimitStore()
	}
	if window <= 0 {
		window = DefaultRateLimitWindow
	}
	if max <= 0 {
		max = DefaultRateLimitMax
	}

	return &Limiter{
		store:  store,
		window: window,
		max:    max,
	}
}

// Allow admits or rejects an attempt for key at the given time. Within any
// window at most max attempts admit; the window resets once now moves past
// windowStart by more than the window length. Rejected attempts do not
// increment the counter. The limiter serializes the read-modify-write so
// concurrent attempts sharing a key never lose increments.
func (l *Limiter) Allow(ctx context.Context, key string, now time.Time) (bool, error) {
	if key == "" {
		key = UnknownClientKey
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok, err := l.store.Get(ctx, key)
	if err != nil {
		return false, err
	}

	if !ok || now.Sub(entry.WindowStart) > l.window {
		return true, l.store.Set(ctx, key, RateLimitEntry{Count: 1, WindowStart: now})
	}

	if entry.Count >= l.max {
		return false, nil
	}

	entry.Count++
	return true, l.store.Set(ctx, key, entry)
}

// Window reports the configured window length.
func (l *Limiter) Window() time.Duration {
	return l.window
}

// Max reports the configured attempt budget.
func (l *Limiter) Max() int {
	return l.max
}
