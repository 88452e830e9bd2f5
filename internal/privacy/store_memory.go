package privacy

import (
	"context"
	"sync"

	"gatekeeper/pkg/sentinel"
)

// Store persists consent records keyed by user.
type Store interface {
	Save(ctx context.Context, record Record) error
	FindByUser(ctx context.Context, userID string) (Record, error)
	Delete(ctx context.Context, userID string) error
	Count(ctx context.Context) (int, error)
}

// InMemoryStore keeps consent records under a single mutex.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
}

// NewInMemoryStore creates an empty store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[string]Record)}
}

func (s *InMemoryStore) Save(_ context.Context, record Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.UserID] = record
	return nil
}

func (s *InMemoryStore) FindByUser(_ context.Context, userID string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if record, ok := s.records[userID]; ok {
		return record, nil
	}
	return Record{}, sentinel.ErrNotFound
}

func (s *InMemoryStore) Delete(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, userID)
	return nil
}

func (s *InMemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}
