//go:build integration

package bucket_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"gatekeeper/internal/ratelimit/store/bucket"
	"gatekeeper/pkg/testutil/containers"
)

type RedisBucketSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *bucket.RedisStore
	ctx   context.Context
}

func TestRedisBucketSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisBucketSuite))
}

func (s *RedisBucketSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
	s.store = bucket.NewRedisStore(s.redis.Client)
	s.ctx = context.Background()
}

func (s *RedisBucketSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(s.ctx))
}

func (s *RedisBucketSuite) TestAllowAtLimit() {
	for i := range 3 {
		result, err := s.store.Allow(s.ctx, "alice", 3, time.Minute)
		s.Require().NoError(err)
		s.True(result.Allowed, "request %d should be admitted", i+1)
	}

	result, err := s.store.Allow(s.ctx, "alice", 3, time.Minute)
	s.Require().NoError(err)
	s.False(result.Allowed)

	result, err = s.store.Allow(s.ctx, "bob", 3, time.Minute)
	s.Require().NoError(err)
	s.True(result.Allowed, "keys are independent")
}

func (s *RedisBucketSuite) TestWindowSlides() {
	window := 300 * time.Millisecond

	result, err := s.store.Allow(s.ctx, "alice", 1, window)
	s.Require().NoError(err)
	s.True(result.Allowed)

	result, err = s.store.Allow(s.ctx, "alice", 1, window)
	s.Require().NoError(err)
	s.False(result.Allowed)

	time.Sleep(window + 100*time.Millisecond)

	result, err = s.store.Allow(s.ctx, "alice", 1, window)
	s.Require().NoError(err)
	s.True(result.Allowed, "expired entries free the window")
}

// TestConcurrentAllowNeverOverAdmits exercises the script's atomicity: many
// goroutines racing on one key must admit exactly the limit.
func (s *RedisBucketSuite) TestConcurrentAllowNeverOverAdmits() {
	const (
		goroutines = 100
		limit      = 25
	)

	var wg sync.WaitGroup
	var admitted atomic.Int64
	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := s.store.Allow(s.ctx, "shared", limit, time.Minute)
			if err == nil && result.Allowed {
				admitted.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int64(limit), admitted.Load())
}

func (s *RedisBucketSuite) TestReset() {
	for range 2 {
		_, err := s.store.Allow(s.ctx, "alice", 2, time.Minute)
		s.Require().NoError(err)
	}
	result, err := s.store.Allow(s.ctx, "alice", 2, time.Minute)
	s.Require().NoError(err)
	s.False(result.Allowed)

	s.Require().NoError(s.store.Reset(s.ctx, "alice"))

	result, err = s.store.Allow(s.ctx, "alice", 2, time.Minute)
	s.Require().NoError(err)
	s.True(result.Allowed)
}

func (s *RedisBucketSuite) TestTrackedKeys() {
	n, err := s.store.TrackedKeys(s.ctx)
	s.Require().NoError(err)
	s.Zero(n)

	for _, key := range []string{"alice", "bob", "carol"} {
		_, err := s.store.Allow(s.ctx, key, 5, time.Minute)
		s.Require().NoError(err)
	}

	n, err = s.store.TrackedKeys(s.ctx)
	s.Require().NoError(err)
	s.Equal(3, n)
}
