package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "ratelimit:signin:"

// RedisRateLimitStore backs the limiter with a shared Redis instance so the
// attempt budget holds across server processes. Entries expire after one
// window, so stale keys do not accumulate.
type RedisRateLimitStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisRateLimitStore creates a store over the given client. The ttl
// should match the limiter window; non-positive values fall back to the
// default window.
func NewRedisRateLimitStore(client *redis.Client, ttl time.Duration) *RedisRateLimitStore {
	if ttl <= 0 {
		ttl = DefaultRateLimitWindow
	}
	return &RedisRateLimitStore{
		client: client,
		ttl:    ttl,
	}
}

// Get implements RateLimitStore.
func (s *RedisRateLimitStore) Get(ctx context.Context, key string) (RateLimitEntry, bool, error) {
	data, err := s.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if err == redis.Nil {
		return RateLimitEntry{}, false, nil
	}
	if err != nil {
		return RateLimitEntry{}, false, fmt.Errorf("rate limit store get: %w", err)
	}

	var entry RateLimitEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		// A corrupt entry behaves like a missing one; the limiter resets it.
		return RateLimitEntry{}, false, nil
	}

	return entry, true, nil
}

// Set implements RateLimitStore.
func (s *RedisRateLimitStore) Set(ctx context.Context, key string, entry RateLimitEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("rate limit store encode: %w", err)
	}

	if err := s.client.Set(ctx, redisKeyPrefix+key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("rate limit store set: %w", err)
	}

	return nil
}
