package cache

import (
	"context"
	"time"
)

// NullCache stores nothing. Every lookup misses, so each request renders
// and encodes from scratch. It backs --no-cache and the "none" location.
type NullCache struct{}

// NewNullCache returns the cache used when artifacts should not be kept.
func NewNullCache() Cache {
	return &NullCache{}
}

// Get reports a miss for every key.
func (c *NullCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return nil, false, nil
}

// Set discards data.
func (c *NullCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return nil
}

// Delete does nothing.
func (c *NullCache) Delete(ctx context.Context, key string) error {
	return nil
}

// Close does nothing.
func (c *NullCache) Close() error {
	return nil
}

var _ Cache = (*NullCache)(nil)
