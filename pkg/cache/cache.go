// Package cache stores encoded render artifacts keyed by the parameters that
// produced them.
//
// Rendering is deterministic: the same bounds, size, budget, density, DPI and
// format always yield the same bytes. That makes the encoded file a safe
// cache value, and a hash of the parameters a safe key.
//
// # Backends
//
//   - [FileCache]: JSON entries under a directory (CLI default, XDG cache dir)
//   - [RedisCache]: shared cache for several render hosts
//   - [MongoCache]: document store with expiry kept alongside the data
//   - [NullCache]: caching disabled
//
// [Open] picks a backend from a URL.
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented key/value store with per-entry expiry.
type Cache interface {
	// Get returns the value for key and whether it was found.
	// A miss is not an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl of zero keeps the entry until deleted.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases the backend's resources.
	Close() error
}

// TTLArtifact is how long an encoded image stays cached.
const TTLArtifact = 7 * 24 * time.Hour
