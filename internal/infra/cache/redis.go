package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is a cache backed by a Redis instance. Values are stored as JSON so
// any serializable T works. Redis being unreachable degrades to cache-miss
// behavior, never to a caller-visible error.
type Redis[T any] struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis creates a Redis-backed cache with the given TTL.
func NewRedis[T any](addr string, ttl time.Duration) *Redis[T] {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
	})
	return &Redis[T]{client: rdb, ttl: ttl}
}

// Get retrieves a value. Returns false on miss, expiry, connection failure
// or a payload that no longer decodes into T.
func (r *Redis[T]) Get(key string) (T, bool) {
	var zero T
	raw, err := r.client.Get(context.Background(), key).Bytes()
	if err != nil {
		return zero, false
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return zero, false
	}
	return v, true
}

// Set stores a value with the configured TTL. Failures are swallowed — the
// cache is an optimization, not a dependency.
func (r *Redis[T]) Set(key string, value T) {
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	r.client.Set(context.Background(), key, raw, r.ttl)
}

// Delete removes a value.
func (r *Redis[T]) Delete(key string) {
	r.client.Del(context.Background(), key)
}
