package guard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// slidingWindow trims the sorted set to the window and adds the hit only
// when the sender is still under the limit.
var slidingWindow = redis.NewScript(`
redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', ARGV[1])
local count = redis.call('ZCARD', KEYS[1])
if count >= tonumber(ARGV[3]) then
  return 0
end
redis.call('ZADD', KEYS[1], ARGV[2], ARGV[4])
redis.call('PEXPIRE', KEYS[1], ARGV[5])
return 1
`)

// releaseClaim deletes the key only while it still holds the claim marker.
var releaseClaim = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
  return redis.call('DEL', KEYS[1])
end
return 0
`)

// RedisStore shares the guard state between instances.
type RedisStore struct {
	client *redis.Client
	prefix string
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, prefix: "chat:guard:"}
}

func (s *RedisStore) Allow(ctx context.Context, key string, limit int, window time.Duration, now time.Time) (bool, error) {
	res, err := slidingWindow.Run(ctx, s.client,
		[]string{s.prefix + "rate:" + key},
		now.Add(-window).UnixMilli(),
		now.UnixMilli(),
		limit,
		fmt.Sprintf("%d-%s", now.UnixNano(), uuid.NewString()),
		window.Milliseconds(),
	).Int()
	if err != nil {
		return false, err
	}
	return res == 1, nil
}

func (s *RedisStore) GetIdempotent(ctx context.Context, key string) (string, bool, error) {
	id, err := s.client.Get(ctx, s.idemKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	if id == claimMarker {
		return "", false, nil
	}
	return id, true, nil
}

func (s *RedisStore) ClaimIdempotent(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return s.client.SetNX(ctx, s.idemKey(key), claimMarker, ttl).Result()
}

func (s *RedisStore) ReleaseIdempotent(ctx context.Context, key string) error {
	return releaseClaim.Run(ctx, s.client, []string{s.idemKey(key)}, claimMarker).Err()
}

func (s *RedisStore) PutIdempotent(ctx context.Context, key, messageID string, ttl time.Duration) error {
	return s.client.Set(ctx, s.idemKey(key), messageID, ttl).Err()
}

func (s *RedisStore) idemKey(key string) string { return s.prefix + "idem:" + key }
