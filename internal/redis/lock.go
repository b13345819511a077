package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
)

// LockStore handles short-lived per-order locks in Redis.
type LockStore struct {
	client *redis.Client
}

// NewLockStore creates a new LockStore.
func NewLockStore(client *redis.Client) *LockStore {
	return &LockStore{client: client}
}

// AcquireOrderLock attempts to acquire a lock for the given order.
// Returns true if the lock was acquired, false if already held.
func (s *LockStore) AcquireOrderLock(ctx context.Context, orderID string, ttl time.Duration) (bool, error) {
	key := fmt.Sprintf("lock:order:%s", orderID)

	ok, err := s.client.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		return false, err
	}

	return ok, nil
}

// ReleaseOrderLock releases the lock for the given order.
func (s *LockStore) ReleaseOrderLock(ctx context.Context, orderID string) error {
	key := fmt.Sprintf("lock:order:%s", orderID)

	return s.client.Del(ctx, key).Err()
}

// ErrLockHeld is returned when a job mutex could not be acquired.
var ErrLockHeld = errors.New("lock held by another process")

// JobMutex runs jobs under a redsync mutex so that one instance runs them at a time.
type JobMutex struct {
	rs *redsync.Redsync
}

// NewJobMutex creates a JobMutex backed by the given client.
func NewJobMutex(client *redis.Client) *JobMutex {
	pool := goredis.NewPool(client)
	return &JobMutex{rs: redsync.New(pool)}
}

// Run executes fn while holding the named mutex. It makes a single attempt
// and returns ErrLockHeld if the mutex is taken.
func (m *JobMutex) Run(ctx context.Context, name string, ttl time.Duration, fn func(ctx context.Context) error) error {
	mutex := m.rs.NewMutex(
		"job:"+name,
		redsync.WithExpiry(ttl),
		redsync.WithTries(1),
	)

	if err := mutex.LockContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrLockHeld, err)
	}
	defer func() {
		_, _ = mutex.UnlockContext(context.WithoutCancel(ctx))
	}()

	return fn(ctx)
}
