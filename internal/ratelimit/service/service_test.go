package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"gatekeeper/internal/ratelimit/models"
	"gatekeeper/internal/ratelimit/store/bucket"
)

type LimiterSuite struct {
	suite.Suite
	store   *bucket.InMemoryStore
	limiter *Limiter
	ctx     context.Context
}

func TestLimiterSuite(t *testing.T) {
	suite.Run(t, new(LimiterSuite))
}

func (s *LimiterSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = bucket.NewInMemoryStore()

	var err error
	s.limiter, err = New(s.store, 2, time.Minute, nil, nil)
	s.Require().NoError(err)
}

func (s *LimiterSuite) TestNew() {
	s.Run("nil store rejected", func() {
		_, err := New(nil, 2, time.Minute, nil, nil)
		s.Error(err)
	})

	s.Run("non-positive limit rejected", func() {
		_, err := New(s.store, 0, time.Minute, nil, nil)
		s.Error(err)
	})
}

func (s *LimiterSuite) TestAllow() {
	s.Run("true true false sequence at limit two", func() {
		for i := range 2 {
			r, err := s.limiter.Allow(s.ctx, "alice")
			s.Require().NoError(err, "request %d", i)
			s.True(r.Allowed)
		}
		r, err := s.limiter.Allow(s.ctx, "alice")
		s.Require().NoError(err)
		s.False(r.Allowed)
	})

	s.Run("separate identities do not interfere", func() {
		r, err := s.limiter.Allow(s.ctx, "bob")
		s.Require().NoError(err)
		s.True(r.Allowed)
	})
}

type failingStore struct{}

func (failingStore) Allow(context.Context, string, int, time.Duration) (models.Result, error) {
	return models.Result{}, errors.New("store down")
}
func (failingStore) Reset(context.Context, string) error       { return nil }
func (failingStore) TrackedKeys(context.Context) (int, error)  { return 0, nil }

func (s *LimiterSuite) TestAllowFailsOpen() {
	limiter, err := New(failingStore{}, 2, time.Minute, nil, nil)
	s.Require().NoError(err)

	r, err := limiter.Allow(s.ctx, "carol")
	s.NoError(err)
	s.True(r.Allowed)
}

func (s *LimiterSuite) TestReset() {
	for range 2 {
		_, err := s.limiter.Allow(s.ctx, "dave")
		s.Require().NoError(err)
	}
	s.Require().NoError(s.limiter.Reset(s.ctx, "dave"))

	r, err := s.limiter.Allow(s.ctx, "dave")
	s.Require().NoError(err)
	s.True(r.Allowed)
}
