// Package cache defines the TTL cache used for nonce replay protection.
package cache

import (
	"context"
	"time"
)

// Cache is a TTL key-value store. The memory backend is per-process; the
// redis backend is shared across instances.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
	// Add stores the key only when absent and reports whether it was stored.
	// This is the primitive replay detection builds on.
	Add(ctx context.Context, key string, value []byte, ttl time.Duration) bool
	Delete(ctx context.Context, key string)
}
