package redis

import (
	"context"
	"time"
)

// LockStoreInterface defines the interface for per-order locking.
type LockStoreInterface interface {
	AcquireOrderLock(ctx context.Context, orderID string, ttl time.Duration) (bool, error)
	ReleaseOrderLock(ctx context.Context, orderID string) error
}

// DonorCacheInterface defines the interface for the donor list cache.
type DonorCacheInterface interface {
	DonorsVersion(ctx context.Context) (int64, error)
	GetDonors(ctx context.Context, version int64, paymentDomain string) ([]CachedDonor, error)
	SetDonors(ctx context.Context, version int64, paymentDomain string, donors []CachedDonor) error
	InvalidateDonors(ctx context.Context) error
}

// JobMutexInterface defines the interface for single-runner jobs.
type JobMutexInterface interface {
	Run(ctx context.Context, name string, ttl time.Duration, fn func(ctx context.Context) error) error
}

// Ensure concrete types implement interfaces.
var (
	_ LockStoreInterface  = (*LockStore)(nil)
	_ DonorCacheInterface = (*CacheStore)(nil)
	_ JobMutexInterface   = (*JobMutex)(nil)
)
