package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Counter is the value kept per rate limit key.
type Counter struct {
	Count     int64     `json:"count"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Store is the minimal key-value contract the limiter needs.
// Implementations must be safe for concurrent use. Get returns nil, nil when
// the key is absent or expired.
//
// Limiter.Check does a read followed by a write; without a native atomic primitive
// concurrent checks on one key can overshoot the limit slightly.
type Store interface {
	Get(ctx context.Context, key string) (*Counter, error)
	Put(ctx context.Context, key string, value Counter) error
	Delete(ctx context.Context, key string) error
}

// MemoryStore is a process-local Store with lazy expiry.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]Counter
	now     func() time.Time
}

// MemoryStoreOption configures a MemoryStore.
type MemoryStoreOption func(*MemoryStore)

// WithStoreClock overrides the clock used for expiry.
func WithStoreClock(now func() time.Time) MemoryStoreOption {
	return func(s *MemoryStore) {
		s.now = now
	}
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(opts ...MemoryStoreOption) *MemoryStore {
	s := &MemoryStore{
		entries: make(map[string]Counter),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Get returns the counter for key, dropping it when expired.
func (s *MemoryStore) Get(_ context.Context, key string) (*Counter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok {
		return nil, nil
	}
	if s.now().After(entry.ExpiresAt) {
		delete(s.entries, key)
		return nil, nil
	}

	return &entry, nil
}

// Put stores value under key.
func (s *MemoryStore) Put(_ context.Context, key string, value Counter) error {
	s.mu.Lock()
	s.entries[key] = value
	s.mu.Unlock()

	return nil
}

// Delete removes key.
func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()

	return nil
}

// Sweep removes every expired entry and returns how many were dropped.
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for key, entry := range s.entries {
		if now.After(entry.ExpiresAt) {
			delete(s.entries, key)
			removed++
		}
	}

	return removed
}

// Len returns the number of stored entries, including expired ones not yet swept.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.entries)
}
