package redis

import (
	"context"
	"time"
)

// LockStoreInterface defines the interface for per-car booking locks.
type LockStoreInterface interface {
	AcquireCarLock(ctx context.Context, carID string, ttl time.Duration) (string, bool, error)
	ReleaseCarLock(ctx context.Context, carID, token string) error
}

// CacheStoreInterface defines the interface for the car listing cache.
type CacheStoreInterface interface {
	Get(ctx context.Context, requestKey string) (*CachedResponse, error)
	Set(ctx context.Context, requestKey string, resp *CachedResponse) error
	InvalidateCars(ctx context.Context) error
}

// Ensure concrete types implement interfaces.
var (
	_ LockStoreInterface  = (*LockStore)(nil)
	_ CacheStoreInterface = (*CacheStore)(nil)
)
