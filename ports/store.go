package ports

import (
	"context"
	"time"
)

// Store is a key/value store shared by the challenge store and the agent cache.
// Get and Take return core.ErrNotFound for missing keys.
type Store interface {
	// Put stores value under key. A zero ttl means no expiry.
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)
	// Take returns and deletes key in one atomic step.
	Take(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	// Scan calls fn for every key with the given prefix.
	Scan(ctx context.Context, prefix string, fn func(key string, value []byte) error) error
}
