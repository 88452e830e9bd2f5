package bucket

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"gatekeeper/internal/ratelimit/models"
)

// slidingWindowScript implements check-then-record atomically server-side:
// prune entries older than the window, deny at capacity without mutation,
// otherwise record the request and refresh the key TTL.
var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local member = ARGV[4]

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
local count = redis.call('ZCARD', key)
if count >= limit then
  return -1
end
redis.call('ZADD', key, now, member)
redis.call('PEXPIRE', key, window)
return limit - count - 1
`)

// RedisStore is the distributed sliding-window implementation, for
// deployments where multiple gatekeeper instances share quota state.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a Redis-backed bucket store.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, prefix: "gk:rl:"}
}

// Allow runs the sliding-window script for key.
func (s *RedisStore) Allow(ctx context.Context, key string, limit int, window time.Duration) (models.Result, error) {
	now := time.Now()
	// Members must be unique per request: concurrent callers can share a
	// timestamp, and a duplicate ZADD member would silently drop a slot.
	member := strconv.FormatInt(now.UnixNano(), 10) + ":" + uuid.NewString()

	remaining, err := slidingWindowScript.Run(ctx, s.client,
		[]string{s.prefix + key},
		now.UnixMilli(), window.Milliseconds(), limit, member,
	).Int()
	if err != nil {
		return models.Result{}, err
	}

	if remaining < 0 {
		return models.Result{
			Allowed: false,
			Limit:   limit,
			ResetAt: now.Add(window),
		}, nil
	}
	return models.Result{
		Allowed:   true,
		Limit:     limit,
		Remaining: remaining,
		ResetAt:   now.Add(window),
	}, nil
}

// Reset clears accounting for a key.
func (s *RedisStore) Reset(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.prefix+key).Err()
}

// TrackedKeys reports how many keys currently hold window state. SCAN keeps
// this safe on shared instances; the figure is approximate under churn.
func (s *RedisStore) TrackedKeys(ctx context.Context) (int, error) {
	var count int
	iter := s.client.Scan(ctx, 0, s.prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		count++
	}
	return count, iter.Err()
}
