package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisBackend stores keys in Redis under "<prefix>:<key>". A zero TTL keeps keys until
// they are deleted.
type RedisBackend struct {
	redis  redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedisBackend creates a [RedisBackend]. An empty prefix defaults to "hrm".
func NewRedisBackend(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisBackend {
	if prefix == "" {
		prefix = "hrm"
	}
	return &RedisBackend{redis: client, prefix: prefix, ttl: ttl}
}

func (r *RedisBackend) key(k string) string {
	return r.prefix + ":" + k
}

func (r *RedisBackend) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := r.redis.Get(ctx, r.key(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return v, true, nil
}

func (r *RedisBackend) Set(ctx context.Context, key, value string) error {
	if err := r.redis.Set(ctx, r.key(key), value, r.ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return nil
}

func (r *RedisBackend) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = r.key(k)
	}
	if err := r.redis.Del(ctx, full...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return nil
}

// Ping returns a point-in-time Redis availability check and latency.
func (r *RedisBackend) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := r.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return time.Since(start), nil
}
