package finance

import (
	"context"

	"github.com/pass-culture/pass-culture-main-sub045/internal/domain/finance"
)

// TransactionScope provides transactional access to the ledger repositories.
// Every multi-row transition (event to pricing, pricings to cashflow,
// cashflows to invoice) runs inside a single Execute call.
type TransactionScope interface {
	// Execute runs fn within a transaction. If fn returns an error the
	// transaction is rolled back, otherwise it is committed.
	Execute(ctx context.Context, fn func(repos Repositories) error) error
}

// Repositories provides access to all ledger repositories. When obtained
// through TransactionScope.Execute they are bound to the transaction.
type Repositories interface {
	EventRepo() finance.FinanceEventRepository
	PricingRepo() finance.PricingRepository
	PricingLogRepo() finance.PricingLogRepository
	CashflowRepo() finance.CashflowRepository
	InvoiceRepo() finance.InvoiceRepository
	IncidentRepo() finance.IncidentRepository
	BookingRepo() finance.BookingRepository
	RecipientRepo() finance.RecipientRepository
}
