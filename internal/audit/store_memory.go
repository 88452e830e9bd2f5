package audit

import (
	"context"
	"sync"
	"time"
)

// Store persists the event trail. Implementations must be safe for
// concurrent writers and preserve per-writer append order.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListRecent(ctx context.Context, limit int) ([]Event, error)
	Count(ctx context.Context) (int, error)
	CountSince(ctx context.Context, cutoff time.Time) (int, error)
	CountBySeverity(ctx context.Context) (map[Severity]int, error)
}

// InMemoryStore keeps events in an ordered slice under a single mutex.
type InMemoryStore struct {
	mu     sync.RWMutex
	events []Event
}

// NewInMemoryStore creates an empty store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

// ListRecent returns up to limit events, most recent first.
func (s *InMemoryStore) ListRecent(_ context.Context, limit int) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 || limit > len(s.events) {
		limit = len(s.events)
	}

	recent := make([]Event, 0, limit)
	for i := len(s.events) - 1; i >= len(s.events)-limit; i-- {
		recent = append(recent, s.events[i])
	}
	return recent, nil
}

func (s *InMemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events), nil
}

// CountSince counts events with a timestamp at or after cutoff.
func (s *InMemoryStore) CountSince(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, event := range s.events {
		if !event.Timestamp.Before(cutoff) {
			n++
		}
	}
	return n, nil
}

func (s *InMemoryStore) CountBySeverity(_ context.Context) (map[Severity]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	breakdown := make(map[Severity]int)
	for _, event := range s.events {
		breakdown[event.Severity]++
	}
	return breakdown, nil
}
