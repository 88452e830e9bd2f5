package session

import (
	"context"
	"sync"
	"time"

	"gatekeeper/pkg/sentinel"
)

// InMemoryStore keeps sessions under a single mutex. It intentionally favors
// clarity over performance; all critical sections are O(1) except
// CountActive.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]Session
	clock    func() time.Time
}

// NewInMemoryStore creates an empty store using the wall clock.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		sessions: make(map[string]Session),
		clock:    time.Now,
	}
}

// WithClock swaps the time source. Test hook.
func (s *InMemoryStore) WithClock(clock func() time.Time) *InMemoryStore {
	s.clock = clock
	return s
}

func (s *InMemoryStore) Save(_ context.Context, sess Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id string) (Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if sess, ok := s.sessions[id]; ok {
		return sess, nil
	}
	return Session{}, sentinel.ErrNotFound
}

func (s *InMemoryStore) Touch(_ context.Context, id string, idleTimeout time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok || !sess.IsActive {
		return false, nil
	}

	now := s.clock()
	if now.Sub(sess.LastActivity) > idleTimeout {
		sess.IsActive = false
		s.sessions[id] = sess
		return false, nil
	}

	sess.LastActivity = now
	s.sessions[id] = sess
	return true, nil
}

func (s *InMemoryStore) Invalidate(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[id]; ok {
		sess.IsActive = false
		s.sessions[id] = sess
	}
	return nil
}

func (s *InMemoryStore) CountActive(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, sess := range s.sessions {
		if sess.IsActive {
			count++
		}
	}
	return count, nil
}
