// Package redis provides the Redis-backed dedup cache.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"opssight/internal/config"
)

// keyPrefix namespaces dedup fingerprints in Redis.
const keyPrefix = "dedup:"

// Cache implements dedup.Cache using Redis. SET NX gives the atomic
// check-and-set the suppression window needs under concurrent deliveries.
type Cache struct {
	client *redis.Client
}

// NewCache creates a Redis-backed dedup cache and verifies the connection.
func NewCache(cfg *config.RedisConfig) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Cache{client: client}, nil
}

// CheckAndSet records the fingerprint if absent. Returns seen=true when the
// fingerprint was already present within its TTL.
func (c *Cache) CheckAndSet(ctx context.Context, fingerprint string, ttl time.Duration) (bool, error) {
	set, err := c.client.SetNX(ctx, keyPrefix+fingerprint, 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check fingerprint: %w", err)
	}
	return !set, nil
}

// Forget drops the fingerprint so the next delivery is treated as new.
func (c *Cache) Forget(ctx context.Context, fingerprint string) error {
	if err := c.client.Del(ctx, keyPrefix+fingerprint).Err(); err != nil {
		return fmt.Errorf("failed to clear fingerprint: %w", err)
	}
	return nil
}

// Close closes the Redis client connection.
func (c *Cache) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}
