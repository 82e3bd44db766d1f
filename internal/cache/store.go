// Package cache provides a key-value store with per-key TTL, used for
// geocoding results, generated content memoization, and CBT record retention.
package cache

import (
	"context"
	"time"
)

// Store is a TTL key-value store. Each key's TTL is independent; there are no
// transactional guarantees across keys. Implementations must tolerate
// concurrent readers and writers on different keys without coordination.
//
// Values are JSON-serialized. Get decodes into dest and reports whether the
// key was present and live.
type Store interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
}
