package finance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pass-culture/pass-culture-main-sub045/internal/domain/finance"
	"github.com/pass-culture/pass-culture-main-sub045/internal/domain/shared"
	"github.com/pass-culture/pass-culture-main-sub045/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// BatchResult is the outcome of a cashflow batch run
type BatchResult struct {
	Cutoff             time.Time
	Batch              *finance.CashflowBatch // nil when nothing was eligible and no batch exists
	Cashflows          []*finance.Cashflow
	FailedBankAccounts []uuid.UUID
}

// CashflowBatcher sweeps validated pricings into one cashflow per bank account
type CashflowBatcher struct {
	scope     TransactionScope
	locker    Locker
	publisher shared.EventPublisher
	metrics   *telemetry.LedgerMetrics
	logger    *zap.Logger
	lockTTL   time.Duration
	now       func() time.Time
}

// NewCashflowBatcher creates a new CashflowBatcher
func NewCashflowBatcher(
	scope TransactionScope,
	locker Locker,
	publisher shared.EventPublisher,
	metrics *telemetry.LedgerMetrics,
	logger *zap.Logger,
	lockTTL time.Duration,
) *CashflowBatcher {
	if lockTTL <= 0 {
		lockTTL = 30 * time.Minute
	}
	return &CashflowBatcher{
		scope:     scope,
		locker:    locker,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger,
		lockTTL:   lockTTL,
		now:       time.Now,
	}
}

// WithClock replaces the time source
func (b *CashflowBatcher) WithClock(now func() time.Time) *CashflowBatcher {
	b.now = now
	return b
}

// RunBatch creates a cashflow for every bank account owed validated pricings
// created up to the cutoff. The batch of the cutoff is created with the first
// cashflow, so a run with nothing eligible leaves no empty batch behind.
// Running it again with the same cutoff returns the cashflows already created.
func (b *CashflowBatcher) RunBatch(ctx context.Context, cutoff time.Time) (*BatchResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "cashflow_batcher", "run_batch")
	defer span.End()

	if cutoff.IsZero() {
		return nil, shared.ErrInvalidInput.WithMessage("cutoff is required")
	}
	cutoff = cutoff.UTC()
	telemetry.SetAttributes(span, "cutoff", cutoff.Format(time.RFC3339))
	start := time.Now()

	token, err := b.locker.TryLock(ctx, cashflowBatchLockKey, b.lockTTL)
	if errors.Is(err, finance.ErrLockNotAcquired) {
		return nil, finance.ErrBatchInProgress
	}
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to acquire batch lease: %w", err)
	}
	defer releaseLease(ctx, b.locker, cashflowBatchLockKey, token, b.logger)

	var accounts []uuid.UUID
	err = b.scope.Execute(ctx, func(repos Repositories) error {
		var err error
		accounts, err = repos.PricingRepo().ListBankAccountsWithValidated(ctx, cutoff)
		return err
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to list bank accounts: %w", err)
	}

	var batch *finance.CashflowBatch
	if len(accounts) == 0 {
		batch, err = b.findBatch(ctx, cutoff)
	} else {
		batch, err = b.getOrCreateBatch(ctx, cutoff)
	}
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	result := &BatchResult{Cutoff: cutoff, Batch: batch}
	if batch == nil {
		b.logger.Debug("no validated pricing to pay", zap.Time("cutoff", cutoff))
		b.metrics.RecordJobDuration(ctx, "cashflow", time.Since(start))
		return result, nil
	}
	log := b.logger.With(
		zap.String("batch_id", batch.ID.String()),
		zap.String("batch", batch.Label),
	)

	for _, accountID := range accounts {
		if ctx.Err() != nil {
			break
		}
		cf, err := b.createCashflow(ctx, batch, accountID, cutoff)
		if err != nil {
			log.Error("failed to create cashflow",
				zap.String("bank_account_id", accountID.String()),
				zap.Error(err),
			)
			result.FailedBankAccounts = append(result.FailedBankAccounts, accountID)
			continue
		}
		if cf == nil {
			continue
		}
		b.metrics.RecordCashflowCreated(ctx, cf.Amount)
		log.Info("cashflow created",
			zap.String("bank_account_id", accountID.String()),
			zap.String("cashflow_id", cf.ID.String()),
			zap.Int64("amount", cf.Amount),
			zap.Int("pricings", len(cf.PricingIDs)),
		)
	}

	err = b.scope.Execute(ctx, func(repos Repositories) error {
		var err error
		result.Cashflows, err = repos.CashflowRepo().ListByBatch(ctx, batch.ID)
		return err
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to list batch cashflows: %w", err)
	}

	b.metrics.RecordJobDuration(ctx, "cashflow", time.Since(start))
	telemetry.SetAttributes(span,
		"batch", batch.Label,
		"cashflows", len(result.Cashflows),
		"failed_bank_accounts", len(result.FailedBankAccounts),
	)
	return result, nil
}

// findBatch returns the batch of the cutoff, or nil when none was created
func (b *CashflowBatcher) findBatch(ctx context.Context, cutoff time.Time) (*finance.CashflowBatch, error) {
	var batch *finance.CashflowBatch
	err := b.scope.Execute(ctx, func(repos Repositories) error {
		existing, err := repos.CashflowRepo().FindBatchByCutoff(ctx, cutoff)
		if errors.Is(err, shared.ErrNotFound) {
			return nil
		}
		batch = existing
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load cashflow batch: %w", err)
	}
	return batch, nil
}

func (b *CashflowBatcher) getOrCreateBatch(ctx context.Context, cutoff time.Time) (*finance.CashflowBatch, error) {
	var batch *finance.CashflowBatch
	err := b.scope.Execute(ctx, func(repos Repositories) error {
		existing, err := repos.CashflowRepo().FindBatchByCutoff(ctx, cutoff)
		if err == nil {
			batch = existing
			return nil
		}
		if !errors.Is(err, shared.ErrNotFound) {
			return err
		}
		count, err := repos.CashflowRepo().CountBatches(ctx)
		if err != nil {
			return err
		}
		batch = finance.NewCashflowBatch(cutoff, count+1, b.now())
		return repos.CashflowRepo().CreateBatch(ctx, batch)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get or create cashflow batch: %w", err)
	}
	return batch, nil
}

// createCashflow returns nil when the bank account has nothing left to pay
func (b *CashflowBatcher) createCashflow(ctx context.Context, batch *finance.CashflowBatch, bankAccountID uuid.UUID, cutoff time.Time) (*finance.Cashflow, error) {
	var cf *finance.Cashflow
	err := b.scope.Execute(ctx, func(repos Repositories) error {
		cf = nil
		pricings, err := repos.PricingRepo().ListValidatedForBankAccount(ctx, bankAccountID, cutoff)
		if err != nil {
			return err
		}
		if len(pricings) == 0 {
			return nil
		}
		now := b.now()
		cf, err = finance.NewCashflow(batch.ID, bankAccountID, pricings, now)
		if err != nil {
			return err
		}
		if err := repos.CashflowRepo().Create(ctx, cf); err != nil {
			return err
		}

		var total int64
		logs := make([]finance.PricingLog, 0, len(pricings))
		for _, p := range pricings {
			entry, err := p.Transition(finance.PricingStatusProcessed, finance.LogReasonGenerateCashflow, now)
			if err != nil {
				return err
			}
			if err := repos.PricingRepo().UpdateStatus(ctx, p); err != nil {
				return err
			}
			logs = append(logs, entry)
			total += p.Amount()
		}
		if total != cf.Amount {
			return finance.ErrUnbalancedPricing.WithMessage(fmt.Sprintf(
				"cashflow amount %d does not match pricings %d", cf.Amount, total))
		}
		return repos.PricingLogRepo().Append(ctx, logs...)
	})
	if err != nil {
		return nil, err
	}
	return cf, nil
}

// UpdateCashflowStatus records the bank's answer for a cashflow. A rejected
// cashflow releases its pricings so that the next batch picks them up again.
func (b *CashflowBatcher) UpdateCashflowStatus(ctx context.Context, cashflowID uuid.UUID, status finance.CashflowStatus, details map[string]any) (*finance.Cashflow, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "cashflow_batcher", "update_status")
	defer span.End()
	telemetry.SetAttributes(span, "cashflow_id", cashflowID.String(), "status", string(status))

	var (
		cf      *finance.Cashflow
		pending pendingEvents
	)
	err := b.scope.Execute(ctx, func(repos Repositories) error {
		pending.reset()
		var err error
		cf, err = repos.CashflowRepo().FindByID(ctx, cashflowID)
		if err != nil {
			return err
		}
		now := b.now()
		entry, err := cf.ChangeStatus(status, details, now)
		if err != nil {
			return err
		}
		if err := repos.CashflowRepo().Save(ctx, cf); err != nil {
			return err
		}
		if err := repos.CashflowRepo().AppendLog(ctx, entry); err != nil {
			return err
		}
		pending.collect(cf)

		if status != finance.CashflowStatusRejected {
			return nil
		}
		pricings, err := repos.PricingRepo().ListByIDs(ctx, cf.PricingIDs)
		if err != nil {
			return err
		}
		logs := make([]finance.PricingLog, 0, len(pricings))
		for _, p := range pricings {
			if p.Status() != finance.PricingStatusProcessed {
				continue
			}
			l, err := p.Transition(finance.PricingStatusValidated, finance.LogReasonCashflowRejected, now)
			if err != nil {
				return err
			}
			if err := repos.PricingRepo().UpdateStatus(ctx, p); err != nil {
				return err
			}
			logs = append(logs, l)
		}
		return repos.PricingLogRepo().Append(ctx, logs...)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	b.logger.Info("cashflow status updated",
		zap.String("cashflow_id", cf.ID.String()),
		zap.String("bank_account_id", cf.BankAccountID.String()),
		zap.String("status", string(cf.Status)),
	)
	pending.publish(ctx, b.publisher, b.logger)
	return cf, nil
}
