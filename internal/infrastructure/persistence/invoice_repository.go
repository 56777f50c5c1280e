package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/pass-culture/pass-culture-main-sub045/internal/domain/finance"
	"github.com/pass-culture/pass-culture-main-sub045/internal/domain/shared"
	"github.com/pass-culture/pass-culture-main-sub045/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormInvoiceRepository implements InvoiceRepository using GORM
type GormInvoiceRepository struct {
	db *gorm.DB
}

// NewGormInvoiceRepository creates a new GormInvoiceRepository
func NewGormInvoiceRepository(db *gorm.DB) *GormInvoiceRepository {
	return &GormInvoiceRepository{db: db}
}

// Create inserts an invoice with its lines and cashflow links
func (r *GormInvoiceRepository) Create(ctx context.Context, invoice *finance.Invoice) error {
	return r.db.WithContext(ctx).Create(models.InvoiceModelFromDomain(invoice)).Error
}

// Save writes the invoice status
func (r *GormInvoiceRepository) Save(ctx context.Context, invoice *finance.Invoice) error {
	return guardedUpdate(r.db.WithContext(ctx), &models.InvoiceModel{}, "invoice", invoice.ID,
		"version = ?", invoice.Version-1,
		map[string]any{
			"status":     invoice.Status,
			"updated_at": invoice.UpdatedAt,
			"version":    invoice.Version,
		})
}

// FindByID finds an invoice by ID
func (r *GormInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*finance.Invoice, error) {
	var m models.InvoiceModel
	if err := r.db.WithContext(ctx).
		Preload("Lines").
		Preload("Cashflows").
		First(&m, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "invoice", id)
	}
	return m.ToDomain(), nil
}

// ListByBankAccount lists the invoices of a bank account, newest first
func (r *GormInvoiceRepository) ListByBankAccount(ctx context.Context, bankAccountID uuid.UUID, filter shared.Filter) ([]*finance.Invoice, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.InvoiceModel{}).Where("bank_account_id = ?", bankAccountID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var ms []models.InvoiceModel
	if err := query.
		Preload("Cashflows").
		Order("date DESC, reference DESC").
		Offset(filter.Offset()).
		Limit(filter.Limit()).
		Find(&ms).Error; err != nil {
		return nil, 0, err
	}
	invoices := make([]*finance.Invoice, len(ms))
	for i := range ms {
		invoices[i] = ms[i].ToDomain()
	}
	return invoices, total, nil
}

// CountByReferencePrefix counts the invoices whose reference starts with prefix
func (r *GormInvoiceRepository) CountByReferencePrefix(ctx context.Context, prefix string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.InvoiceModel{}).
		Where("reference LIKE ?", prefix+"%").
		Count(&count).Error
	return count, err
}

var _ finance.InvoiceRepository = (*GormInvoiceRepository)(nil)
