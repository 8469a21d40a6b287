// Package cache stores rendered layout artifacts between CLI runs.
//
// Rendering a layout tree through Graphviz is the slowest step of the CLI,
// and the DOT source fully determines the picture. Artifacts are therefore
// cached under a key derived from the DOT text and the output options; see
// [ArtifactKey].
//
// Two implementations exist: [FileCache] keeps entries as files under a
// directory (the CLI uses the XDG cache directory), and [NullCache] never
// stores anything, which disables caching.
package cache

import (
	"context"
	"time"
)

// Cache is a byte store with optional expiry.
type Cache interface {
	// Get returns the stored value and whether it was found.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores data under key. A ttl of zero never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Close releases resources held by the cache.
	Close() error
}

// ArtifactKeyOpts are the render options that change an artifact.
type ArtifactKeyOpts struct {
	Format   string  `json:"format"`
	Detailed bool    `json:"detailed"`
	Scale    float64 `json:"scale,omitempty"`
}

// ArtifactKey returns the cache key of the artifact rendered from dot with
// opts.
func ArtifactKey(dot string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", Hash([]byte(dot)), opts)
}
