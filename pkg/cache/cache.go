// Package cache provides response caching for the GitHub API client.
//
// Two backends are provided: a file-based cache for normal CLI usage and a
// Redis-backed cache for shared environments such as CI runners. A null
// backend disables caching entirely.
//
// Cached values are opaque byte slices; callers marshal and unmarshal their
// own payloads. Keys should be built with [Key] so that arbitrary inputs
// (repository names, URLs) never leak into backend-specific key syntax.
package cache

import (
	"context"
	"time"
)

// Cache is the backend-neutral caching interface.
//
// Get reports a miss with (nil, false, nil); errors are reserved for backend
// failures. A ttl of 0 passed to Set stores the entry without expiration.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}
