package finance

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Locker hands out expiring leases on string keys. TryLock returns
// finance.ErrLockNotAcquired when another holder owns a live lease. A lease
// that is never released expires after ttl, so a crashed worker cannot block
// the next run forever. Long holders call Extend before the lease runs out;
// it returns finance.ErrLockNotAcquired once the token no longer owns the key.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, err error)
	Extend(ctx context.Context, key, token string, ttl time.Duration) error
	Unlock(ctx context.Context, key, token string) error
}

const (
	cashflowBatchLockKey = "cashflow-batch"
)

func pricingPointLockKey(id uuid.UUID) string {
	return "pricing-point:" + id.String()
}

func invoiceLockKey(bankAccountID uuid.UUID) string {
	return "invoice:" + bankAccountID.String()
}

// releaseLease unlocks with a context that survives the caller's cancellation
func releaseLease(ctx context.Context, locker Locker, key, token string, logger *zap.Logger) {
	if err := locker.Unlock(context.WithoutCancel(ctx), key, token); err != nil {
		logger.Warn("failed to release lease",
			zap.String("lock_key", key),
			zap.Error(err),
		)
	}
}
