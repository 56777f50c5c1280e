package finance

import (
	"context"
	"time"

	"github.com/pass-culture/pass-culture-main-sub045/internal/domain/finance"
	"go.uber.org/zap"
)

// SnapshotBookingCanceller records the cancellation on the booking snapshot
// kept by the ledger. A snapshot cancelled this way is priced as
// booking-used-after-cancellation if the booking is used again.
type SnapshotBookingCanceller struct {
	scope  TransactionScope
	logger *zap.Logger
	now    func() time.Time
}

// NewSnapshotBookingCanceller creates a new SnapshotBookingCanceller
func NewSnapshotBookingCanceller(scope TransactionScope, logger *zap.Logger) *SnapshotBookingCanceller {
	return &SnapshotBookingCanceller{scope: scope, logger: logger, now: time.Now}
}

// CancelBooking stamps the snapshot's cancellation date. Already cancelled
// snapshots are left untouched.
func (c *SnapshotBookingCanceller) CancelBooking(ctx context.Context, ref finance.BookingReference) error {
	return c.scope.Execute(ctx, func(repos Repositories) error {
		snapshot, err := repos.BookingRepo().FindByReference(ctx, ref)
		if err != nil {
			return err
		}
		if snapshot.CancelledAt != nil {
			return nil
		}
		now := c.now().UTC()
		snapshot.CancelledAt = &now
		snapshot.UpdatedAt = now
		if err := repos.BookingRepo().Save(ctx, snapshot); err != nil {
			return err
		}
		c.logger.Info("booking cancelled after incident", zap.String("booking", ref.String()))
		return nil
	})
}

var _ BookingCanceller = (*SnapshotBookingCanceller)(nil)
