// Package cache provides a Redis-backed read cache for subscription
// status checks. The cache is advisory: the ledger stays authoritative
// and a miss falls through to the aggregate.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/felixgeelhaar/subledger/internal/ledger/domain"
)

const keyPrefix = "subledger:active:"

// RedisStatusCache stores each payer's paid-through moment, keyed by
// account. Entries expire when the subscription lapses, so a present key
// is usually a live one.
type RedisStatusCache struct {
	client *redis.Client
}

// NewRedisStatusCache connects to Redis and verifies the connection.
func NewRedisStatusCache(addr, password string) (*RedisStatusCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisStatusCache{client: client}, nil
}

// NewRedisStatusCacheFromClient wraps an existing client. Used in tests.
func NewRedisStatusCacheFromClient(client *redis.Client) *RedisStatusCache {
	return &RedisStatusCache{client: client}
}

// SetActiveUntil records the user's paid-through moment. Entries for
// already-lapsed moments are not stored.
func (c *RedisStatusCache) SetActiveUntil(ctx context.Context, user domain.Account, until time.Time) error {
	ttl := time.Until(until)
	if ttl <= 0 {
		return c.client.Del(ctx, keyPrefix+string(user)).Err()
	}
	return c.client.Set(ctx, keyPrefix+string(user), until.UTC().Format(time.RFC3339Nano), ttl).Err()
}

// ActiveUntil returns the cached paid-through moment for the user, and
// whether an entry was present.
func (c *RedisStatusCache) ActiveUntil(ctx context.Context, user domain.Account) (time.Time, bool, error) {
	value, err := c.client.Get(ctx, keyPrefix+string(user)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, err
	}

	until, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("corrupt cache entry for %s: %w", user, err)
	}
	return until, true, nil
}

// Close closes the Redis connection.
func (c *RedisStatusCache) Close() error {
	return c.client.Close()
}
