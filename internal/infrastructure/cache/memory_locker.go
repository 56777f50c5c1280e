package cache

import (
	"context"
	"time"

	"github.com/google/uuid"
	appfinance "github.com/pass-culture/pass-culture-main-sub045/internal/application/finance"
	"github.com/pass-culture/pass-culture-main-sub045/internal/domain/finance"
)

// MemoryLocker is a process-local Locker. It only serializes workers of a
// single instance; deployments with several replicas use RedisLocker.
type MemoryLocker struct {
	leases *leaseTable
}

// NewMemoryLocker creates an empty in-memory locker
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{leases: newLeaseTable()}
}

// TryLock implements appfinance.Locker
func (l *MemoryLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	token := uuid.NewString()
	if !l.leases.acquire(key, token, ttl) {
		return "", finance.ErrLockNotAcquired
	}
	return token, nil
}

// Extend implements appfinance.Locker
func (l *MemoryLocker) Extend(ctx context.Context, key, token string, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !l.leases.extend(key, token, ttl) {
		return finance.ErrLockNotAcquired
	}
	return nil
}

// Unlock implements appfinance.Locker. Releasing a lease that expired or
// was taken over by another holder is a no-op.
func (l *MemoryLocker) Unlock(_ context.Context, key, token string) error {
	l.leases.release(key, token)
	return nil
}

// Held reports whether key has a live lease
func (l *MemoryLocker) Held(key string) bool {
	return l.leases.live(key)
}

var _ appfinance.Locker = (*MemoryLocker)(nil)
