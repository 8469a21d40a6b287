package cache

import (
	"context"
	"strings"

	"github.com/matzehuels/sparsetree/pkg/errors"
)

// Open returns the cache named by location: a "redis://" or "rediss://"
// URL selects [RedisCache], a "file://" URL or a plain path selects
// [FileCache].
func Open(ctx context.Context, location string) (Cache, error) {
	switch {
	case location == "":
		return nil, errors.New(errors.ErrCodeInvalidFormat, "empty cache location")
	case strings.HasPrefix(location, "redis://"), strings.HasPrefix(location, "rediss://"):
		return NewRedisCache(ctx, location)
	case strings.HasPrefix(location, "file://"):
		return NewFileCache(strings.TrimPrefix(location, "file://"))
	case strings.Contains(location, "://"):
		return nil, errors.New(errors.ErrCodeInvalidFormat, "unsupported cache location %q", location)
	default:
		return NewFileCache(location)
	}
}
