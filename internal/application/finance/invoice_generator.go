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

// InvoiceDocumentPublisher renders an invoice and stores the document
type InvoiceDocumentPublisher interface {
	// Publish renders and uploads the document, returning its storage key
	Publish(ctx context.Context, invoice *finance.Invoice) (string, error)
	// URL returns a time-limited download link for the document
	URL(ctx context.Context, invoice *finance.Invoice) (string, error)
}

// ErrDocumentsDisabled is returned when no document pipeline is configured
var ErrDocumentsDisabled = shared.ErrInvalidState.WithMessage("invoice documents are disabled")

// InvoiceRunReport summarizes an invoice generation run
type InvoiceRunReport struct {
	BankAccounts int         `json:"bank_accounts"`
	Generated    int         `json:"generated"`
	Failed       int         `json:"failed"`
	Skipped      int         `json:"skipped"`
	InvoiceIDs   []uuid.UUID `json:"invoice_ids"`
}

// InvoiceGenerator turns accepted cashflows into invoices
type InvoiceGenerator struct {
	scope     TransactionScope
	locker    Locker
	publisher shared.EventPublisher
	documents InvoiceDocumentPublisher
	metrics   *telemetry.LedgerMetrics
	logger    *zap.Logger
	lockTTL   time.Duration
	now       func() time.Time
}

// NewInvoiceGenerator creates a new InvoiceGenerator. documents may be nil.
func NewInvoiceGenerator(
	scope TransactionScope,
	locker Locker,
	publisher shared.EventPublisher,
	documents InvoiceDocumentPublisher,
	metrics *telemetry.LedgerMetrics,
	logger *zap.Logger,
	lockTTL time.Duration,
) *InvoiceGenerator {
	if lockTTL <= 0 {
		lockTTL = 10 * time.Minute
	}
	return &InvoiceGenerator{
		scope:     scope,
		locker:    locker,
		publisher: publisher,
		documents: documents,
		metrics:   metrics,
		logger:    logger,
		lockTTL:   lockTTL,
		now:       time.Now,
	}
}

// WithClock replaces the time source
func (g *InvoiceGenerator) WithClock(now func() time.Time) *InvoiceGenerator {
	g.now = now
	return g
}

// GenerateInvoice invoices every accepted, not yet invoiced cashflow of the
// bank account. Its pricings move to invoiced.
func (g *InvoiceGenerator) GenerateInvoice(ctx context.Context, bankAccountID uuid.UUID) (*finance.Invoice, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "invoice_generator", "generate")
	defer span.End()
	telemetry.SetAttributes(span, "bank_account_id", bankAccountID.String())

	key := invoiceLockKey(bankAccountID)
	token, err := g.locker.TryLock(ctx, key, g.lockTTL)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	defer releaseLease(ctx, g.locker, key, token, g.logger)

	var (
		invoice *finance.Invoice
		pending pendingEvents
	)
	err = g.scope.Execute(ctx, func(repos Repositories) error {
		pending.reset()
		cashflows, err := repos.CashflowRepo().ListAcceptedUninvoiced(ctx, bankAccountID)
		if err != nil {
			return err
		}
		if len(cashflows) == 0 {
			return finance.ErrNoEligibleCashflow
		}
		ids := make([]uuid.UUID, len(cashflows))
		for i, cf := range cashflows {
			ids[i] = cf.ID
		}
		linked, err := repos.PricingRepo().ListByCashflows(ctx, ids)
		if err != nil {
			return err
		}
		pricings := make([]*finance.Pricing, 0, len(linked))
		seen := make(map[uuid.UUID]struct{}, len(linked))
		for _, p := range linked {
			if _, dup := seen[p.ID()]; dup || p.Status() != finance.PricingStatusProcessed {
				continue
			}
			seen[p.ID()] = struct{}{}
			pricings = append(pricings, p)
		}

		now := g.now()
		prefix := finance.InvoiceReferencePrefix(now)
		count, err := repos.InvoiceRepo().CountByReferencePrefix(ctx, prefix)
		if err != nil {
			return err
		}
		invoice, err = finance.NewInvoice(bankAccountID, finance.FormatInvoiceReference(now, count+1), cashflows, pricings, now)
		if err != nil {
			return err
		}
		if err := repos.InvoiceRepo().Create(ctx, invoice); err != nil {
			return fmt.Errorf("failed to save invoice: %w", err)
		}

		logs := make([]finance.PricingLog, 0, len(pricings))
		for _, p := range pricings {
			entry, err := p.Transition(finance.PricingStatusInvoiced, finance.LogReasonGenerateInvoice, now)
			if err != nil {
				return err
			}
			if err := repos.PricingRepo().UpdateStatus(ctx, p); err != nil {
				return err
			}
			logs = append(logs, entry)
		}
		if err := repos.PricingLogRepo().Append(ctx, logs...); err != nil {
			return err
		}
		pending.collect(invoice)
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	g.metrics.RecordInvoiceGenerated(ctx)
	telemetry.SetAttributes(span, "reference", invoice.Reference, "amount", invoice.Amount)
	g.logger.Info("invoice generated",
		zap.String("bank_account_id", bankAccountID.String()),
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("reference", invoice.Reference),
		zap.Int64("amount", invoice.Amount),
		zap.Int("cashflows", len(invoice.CashflowIDs)),
	)
	pending.publish(ctx, g.publisher, g.logger)
	g.publishDocument(ctx, invoice)
	return invoice, nil
}

// publishDocument never fails the invoice: the document can be rebuilt later
func (g *InvoiceGenerator) publishDocument(ctx context.Context, invoice *finance.Invoice) {
	if g.documents == nil {
		return
	}
	key, err := g.documents.Publish(ctx, invoice)
	if err != nil {
		g.logger.Error("failed to publish invoice document",
			zap.String("invoice_id", invoice.ID.String()),
			zap.String("reference", invoice.Reference),
			zap.Error(err),
		)
		return
	}
	g.logger.Debug("invoice document published",
		zap.String("reference", invoice.Reference),
		zap.String("key", key),
	)
}

// GenerateAll invoices every bank account with eligible cashflows
func (g *InvoiceGenerator) GenerateAll(ctx context.Context) (*InvoiceRunReport, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "invoice_generator", "generate_all")
	defer span.End()
	start := time.Now()

	var accounts []uuid.UUID
	err := g.scope.Execute(ctx, func(repos Repositories) error {
		var err error
		accounts, err = repos.CashflowRepo().ListBankAccountsWithAcceptedUninvoiced(ctx)
		return err
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to list bank accounts: %w", err)
	}

	report := &InvoiceRunReport{BankAccounts: len(accounts)}
	for _, accountID := range accounts {
		if ctx.Err() != nil {
			break
		}
		inv, err := g.GenerateInvoice(ctx, accountID)
		switch {
		case err == nil:
			report.Generated++
			report.InvoiceIDs = append(report.InvoiceIDs, inv.ID)
		case errors.Is(err, finance.ErrLockNotAcquired), errors.Is(err, finance.ErrNoEligibleCashflow):
			report.Skipped++
		default:
			report.Failed++
			g.logger.Error("failed to generate invoice",
				zap.String("bank_account_id", accountID.String()),
				zap.Error(err),
			)
		}
	}
	g.metrics.RecordJobDuration(ctx, "invoice", time.Since(start))
	telemetry.SetAttributes(span, "generated", report.Generated, "failed", report.Failed)
	return report, nil
}

// UpdateInvoiceStatus moves a pending invoice to processed or rejected
func (g *InvoiceGenerator) UpdateInvoiceStatus(ctx context.Context, id uuid.UUID, status finance.InvoiceStatus) (*finance.Invoice, error) {
	if !status.IsValid() {
		return nil, shared.ErrInvalidInput.WithMessage("unknown invoice status " + string(status))
	}
	var invoice *finance.Invoice
	err := g.scope.Execute(ctx, func(repos Repositories) error {
		var err error
		invoice, err = repos.InvoiceRepo().FindByID(ctx, id)
		if err != nil {
			return err
		}
		if err := invoice.ChangeStatus(status, g.now()); err != nil {
			return err
		}
		return repos.InvoiceRepo().Save(ctx, invoice)
	})
	if err != nil {
		return nil, err
	}
	return invoice, nil
}

// DocumentURL returns a download link for the invoice document
func (g *InvoiceGenerator) DocumentURL(ctx context.Context, id uuid.UUID) (string, error) {
	if g.documents == nil {
		return "", ErrDocumentsDisabled
	}
	var invoice *finance.Invoice
	err := g.scope.Execute(ctx, func(repos Repositories) error {
		var err error
		invoice, err = repos.InvoiceRepo().FindByID(ctx, id)
		return err
	})
	if err != nil {
		return "", err
	}
	return g.documents.URL(ctx, invoice)
}
