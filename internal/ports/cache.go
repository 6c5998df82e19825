package ports

import (
	"context"
	"time"
)

// Cache abstracts the key/value store used for session snapshots and
// refresh tokens.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Delete(ctx context.Context, key string) error
	Ping() error
	Close() error
}
