// Package bucket implements sliding-window request accounting per key.
package bucket

import (
	"context"
	"sync"
	"time"

	"gatekeeper/internal/ratelimit/models"
)

// InMemoryStore tracks request timestamps per key under a single mutex.
// Check-then-record is one critical section, so concurrent callers for the
// same key can never over-admit. Old timestamps are pruned on every call;
// per-key state never exceeds the window's worth of admitted requests.
type InMemoryStore struct {
	mu      sync.RWMutex
	windows map[string][]time.Time
	clock   func() time.Time
}

// NewInMemoryStore creates an empty store using the wall clock.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		windows: make(map[string][]time.Time),
		clock:   time.Now,
	}
}

// WithClock swaps the time source. Test hook.
func (s *InMemoryStore) WithClock(clock func() time.Time) *InMemoryStore {
	s.clock = clock
	return s
}

// Allow prunes expired timestamps for key, then either records the request
// and admits it, or denies without mutation when the window is at capacity.
func (s *InMemoryStore) Allow(_ context.Context, key string, limit int, window time.Duration) (models.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock()
	retained := prune(s.windows[key], now.Add(-window))

	if len(retained) >= limit {
		s.windows[key] = retained
		return models.Result{
			Allowed: false,
			Limit:   limit,
			ResetAt: retained[0].Add(window),
		}, nil
	}

	retained = append(retained, now)
	s.windows[key] = retained
	return models.Result{
		Allowed:   true,
		Limit:     limit,
		Remaining: limit - len(retained),
		ResetAt:   retained[0].Add(window),
	}, nil
}

// Reset clears accounting for a key.
func (s *InMemoryStore) Reset(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.windows, key)
	return nil
}

// TrackedKeys reports how many keys currently hold window state.
func (s *InMemoryStore) TrackedKeys(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.windows), nil
}

func prune(timestamps []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for ; i < len(timestamps); i++ {
		if timestamps[i].After(cutoff) {
			break
		}
	}
	return timestamps[i:]
}
