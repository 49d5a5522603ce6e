// Package memory provides an in-memory dedup cache for testing and
// single-process deployments.
package memory

import (
	"context"
	"sync"
	"time"
)

// Cache is a mutex-guarded fingerprint cache with per-entry expiry.
type Cache struct {
	mu      sync.Mutex
	entries map[string]time.Time
}

// NewCache creates an empty in-memory dedup cache.
func NewCache() *Cache {
	return &Cache{
		entries: make(map[string]time.Time),
	}
}

// CheckAndSet records the fingerprint if absent or expired. Holding the
// mutex across the read and write makes the operation atomic, matching the
// SET NX semantics of the Redis implementation.
func (c *Cache) CheckAndSet(ctx context.Context, fingerprint string, ttl time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	if expiry, ok := c.entries[fingerprint]; ok && now.Before(expiry) {
		return true, nil
	}

	c.entries[fingerprint] = now.Add(ttl)

	// Opportunistically drop expired entries to bound growth.
	for fp, expiry := range c.entries {
		if now.After(expiry) {
			delete(c.entries, fp)
		}
	}

	return false, nil
}

// Forget drops the fingerprint so the next delivery is treated as new.
func (c *Cache) Forget(ctx context.Context, fingerprint string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, fingerprint)
	return nil
}

// Close releases the cache. It is a no-op for the in-memory implementation.
func (c *Cache) Close() error {
	return nil
}
