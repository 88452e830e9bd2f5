package session

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"gatekeeper/pkg/sentinel"
)

const (
	redisSessionPrefix = "gk:sess:"
	redisActiveSetKey  = "gk:sess:active"
)

// touchScript performs validate-and-refresh atomically server-side,
// mirroring InMemoryStore.Touch. It also maintains the active-session set
// used by CountActive.
var touchScript = redis.NewScript(`
local key = KEYS[1]
local activeSet = KEYS[2]
local id = ARGV[1]
local now = tonumber(ARGV[2])
local timeout = tonumber(ARGV[3])

if redis.call('EXISTS', key) == 0 then
  return 0
end
if redis.call('HGET', key, 'active') ~= '1' then
  return 0
end
local last = tonumber(redis.call('HGET', key, 'last_activity'))
if now - last > timeout then
  redis.call('HSET', key, 'active', '0')
  redis.call('SREM', activeSet, id)
  return 0
end
redis.call('HSET', key, 'last_activity', now)
return 1
`)

// RedisStore is the distributed session store for multi-instance
// deployments. Sessions are retained after invalidation, matching the
// in-memory soft-delete behavior, so no TTL is set on session hashes.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a Redis-backed session store.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Save(ctx context.Context, sess Session) error {
	key := redisSessionPrefix + sess.ID
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, map[string]any{
		"user_id":       sess.UserID,
		"device":        sess.Device,
		"created_at":    sess.CreatedAt.Unix(),
		"last_activity": sess.LastActivity.Unix(),
		"active":        boolFlag(sess.IsActive),
	})
	if sess.IsActive {
		pipe.SAdd(ctx, redisActiveSetKey, sess.ID)
	} else {
		pipe.SRem(ctx, redisActiveSetKey, sess.ID)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (s *RedisStore) FindByID(ctx context.Context, id string) (Session, error) {
	fields, err := s.client.HGetAll(ctx, redisSessionPrefix+id).Result()
	if err != nil {
		return Session{}, err
	}
	if len(fields) == 0 {
		return Session{}, sentinel.ErrNotFound
	}

	createdAt, _ := strconv.ParseInt(fields["created_at"], 10, 64)
	lastActivity, _ := strconv.ParseInt(fields["last_activity"], 10, 64)
	return Session{
		ID:           id,
		UserID:       fields["user_id"],
		Device:       fields["device"],
		CreatedAt:    time.Unix(createdAt, 0),
		LastActivity: time.Unix(lastActivity, 0),
		IsActive:     fields["active"] == "1",
	}, nil
}

func (s *RedisStore) Touch(ctx context.Context, id string, idleTimeout time.Duration) (bool, error) {
	ok, err := touchScript.Run(ctx, s.client,
		[]string{redisSessionPrefix + id, redisActiveSetKey},
		id, time.Now().Unix(), int64(idleTimeout.Seconds()),
	).Int()
	if err != nil {
		return false, err
	}
	return ok == 1, nil
}

func (s *RedisStore) Invalidate(ctx context.Context, id string) error {
	key := redisSessionPrefix + id
	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil || exists == 0 {
		return err
	}
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, "active", "0")
	pipe.SRem(ctx, redisActiveSetKey, id)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisStore) CountActive(ctx context.Context) (int, error) {
	n, err := s.client.SCard(ctx, redisActiveSetKey).Result()
	return int(n), err
}

func boolFlag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
