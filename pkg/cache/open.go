package cache

import (
	"context"
	"fmt"
	"strings"
)

// Open returns a cache for location:
//
//   - "" or "none": NullCache
//   - redis://, rediss://: RedisCache
//   - mongodb://, mongodb+srv://: MongoCache
//   - file://PATH or a plain path: FileCache
func Open(ctx context.Context, location string) (Cache, error) {
	scheme, rest, hasScheme := strings.Cut(location, "://")
	if !hasScheme {
		if location == "" || location == "none" {
			return NewNullCache(), nil
		}
		return NewFileCache(location)
	}

	switch scheme {
	case "redis", "rediss":
		return NewRedisCache(location)
	case "mongodb", "mongodb+srv":
		return NewMongoCache(ctx, location)
	case "file":
		if rest == "" {
			return nil, fmt.Errorf("cache location %q has no path", location)
		}
		return NewFileCache(rest)
	default:
		return nil, fmt.Errorf("unsupported cache scheme %q", scheme)
	}
}
