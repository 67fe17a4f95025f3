package repository

import (
	"context"
	"time"
)

// CacheStore is a best-effort key/value store with per-entry expiry.
// Get reports found=false for missing or expired keys.
type CacheStore interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}
