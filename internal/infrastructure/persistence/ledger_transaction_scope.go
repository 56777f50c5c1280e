package persistence

import (
	"context"

	appfinance "github.com/pass-culture/pass-culture-main-sub045/internal/application/finance"
	"github.com/pass-culture/pass-culture-main-sub045/internal/domain/finance"
	"gorm.io/gorm"
)

// GormTransactionScope implements TransactionScope using GORM transactions.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs fn within a database transaction, rolled back when fn fails.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos appfinance.Repositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepositories(tx))
	})
}

// ledgerRepositories binds every ledger repository to one *gorm.DB
type ledgerRepositories struct {
	tx *gorm.DB
}

// NewRepositories returns the ledger repositories bound to db, which may be a transaction
func NewRepositories(db *gorm.DB) appfinance.Repositories {
	return &ledgerRepositories{tx: db}
}

func (r *ledgerRepositories) EventRepo() finance.FinanceEventRepository {
	return NewGormFinanceEventRepository(r.tx)
}

func (r *ledgerRepositories) PricingRepo() finance.PricingRepository {
	return NewGormPricingRepository(r.tx)
}

func (r *ledgerRepositories) PricingLogRepo() finance.PricingLogRepository {
	return NewGormPricingLogRepository(r.tx)
}

func (r *ledgerRepositories) CashflowRepo() finance.CashflowRepository {
	return NewGormCashflowRepository(r.tx)
}

func (r *ledgerRepositories) InvoiceRepo() finance.InvoiceRepository {
	return NewGormInvoiceRepository(r.tx)
}

func (r *ledgerRepositories) IncidentRepo() finance.IncidentRepository {
	return NewGormIncidentRepository(r.tx)
}

func (r *ledgerRepositories) BookingRepo() finance.BookingRepository {
	return NewGormBookingRepository(r.tx)
}

func (r *ledgerRepositories) RecipientRepo() finance.RecipientRepository {
	return NewGormRecipientRepository(r.tx)
}

// Ensure GormTransactionScope implements TransactionScope
var _ appfinance.TransactionScope = (*GormTransactionScope)(nil)
