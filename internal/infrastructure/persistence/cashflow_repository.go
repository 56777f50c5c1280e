package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pass-culture/pass-culture-main-sub045/internal/domain/finance"
	"github.com/pass-culture/pass-culture-main-sub045/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormCashflowRepository implements CashflowRepository using GORM
type GormCashflowRepository struct {
	db *gorm.DB
}

// NewGormCashflowRepository creates a new GormCashflowRepository
func NewGormCashflowRepository(db *gorm.DB) *GormCashflowRepository {
	return &GormCashflowRepository{db: db}
}

func cashflowsToDomain(ms []models.CashflowModel) []*finance.Cashflow {
	cashflows := make([]*finance.Cashflow, len(ms))
	for i := range ms {
		cashflows[i] = ms[i].ToDomain()
	}
	return cashflows
}

// FindBatchByCutoff finds the batch generated for a cutoff
func (r *GormCashflowRepository) FindBatchByCutoff(ctx context.Context, cutoff time.Time) (*finance.CashflowBatch, error) {
	var m models.CashflowBatchModel
	if err := r.db.WithContext(ctx).First(&m, "cutoff = ?", cutoff.UTC()).Error; err != nil {
		return nil, notFound(err, "cashflow batch at", cutoff)
	}
	return m.ToDomain(), nil
}

// CountBatches counts the generated batches
func (r *GormCashflowRepository) CountBatches(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.CashflowBatchModel{}).Count(&count).Error
	return count, err
}

// CreateBatch inserts a new batch
func (r *GormCashflowRepository) CreateBatch(ctx context.Context, batch *finance.CashflowBatch) error {
	return r.db.WithContext(ctx).Create(&models.CashflowBatchModel{
		ID:        batch.ID,
		Cutoff:    batch.Cutoff.UTC(),
		Label:     batch.Label,
		CreatedAt: batch.CreatedAt,
	}).Error
}

// Create inserts a cashflow with its pricing links
func (r *GormCashflowRepository) Create(ctx context.Context, cashflow *finance.Cashflow) error {
	return r.db.WithContext(ctx).Create(models.CashflowModelFromDomain(cashflow)).Error
}

// Save writes the cashflow status. The amount and pricing links never change.
func (r *GormCashflowRepository) Save(ctx context.Context, cashflow *finance.Cashflow) error {
	return guardedUpdate(r.db.WithContext(ctx), &models.CashflowModel{}, "cashflow", cashflow.ID,
		"version = ?", cashflow.Version-1,
		map[string]any{
			"status":     cashflow.Status,
			"updated_at": cashflow.UpdatedAt,
			"version":    cashflow.Version,
		})
}

// FindByID finds a cashflow by ID
func (r *GormCashflowRepository) FindByID(ctx context.Context, id uuid.UUID) (*finance.Cashflow, error) {
	var m models.CashflowModel
	if err := r.db.WithContext(ctx).Preload("Pricings").First(&m, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "cashflow", id)
	}
	return m.ToDomain(), nil
}

// List lists cashflows matching the filter, newest first
func (r *GormCashflowRepository) List(ctx context.Context, filter finance.CashflowFilter) ([]*finance.Cashflow, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.CashflowModel{})
	if filter.BankAccountID != nil {
		query = query.Where("bank_account_id = ?", *filter.BankAccountID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.BatchID != nil {
		query = query.Where("batch_id = ?", *filter.BatchID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var ms []models.CashflowModel
	if err := query.
		Preload("Pricings").
		Order(orderClause(filter.Filter, CashflowSortFields, "created_at")).
		Offset(filter.Offset()).
		Limit(filter.Limit()).
		Find(&ms).Error; err != nil {
		return nil, 0, err
	}
	return cashflowsToDomain(ms), total, nil
}

// ListByBatch returns the cashflows of a batch
func (r *GormCashflowRepository) ListByBatch(ctx context.Context, batchID uuid.UUID) ([]*finance.Cashflow, error) {
	var ms []models.CashflowModel
	if err := r.db.WithContext(ctx).
		Preload("Pricings").
		Where("batch_id = ?", batchID).
		Order("bank_account_id ASC").
		Find(&ms).Error; err != nil {
		return nil, err
	}
	return cashflowsToDomain(ms), nil
}

func (r *GormCashflowRepository) acceptedUninvoiced(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&models.CashflowModel{}).
		Where("cashflows.status = ?", finance.CashflowStatusAccepted).
		Where("NOT EXISTS (SELECT 1 FROM invoice_cashflows ic WHERE ic.cashflow_id = cashflows.id)")
}

// ListAcceptedUninvoiced returns accepted cashflows not yet attached to an invoice
func (r *GormCashflowRepository) ListAcceptedUninvoiced(ctx context.Context, bankAccountID uuid.UUID) ([]*finance.Cashflow, error) {
	var ms []models.CashflowModel
	if err := r.acceptedUninvoiced(ctx).
		Preload("Pricings").
		Where("cashflows.bank_account_id = ?", bankAccountID).
		Order("cashflows.created_at ASC, cashflows.id ASC").
		Find(&ms).Error; err != nil {
		return nil, err
	}
	return cashflowsToDomain(ms), nil
}

// ListBankAccountsWithAcceptedUninvoiced returns the bank accounts with something left to invoice
func (r *GormCashflowRepository) ListBankAccountsWithAcceptedUninvoiced(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := r.acceptedUninvoiced(ctx).
		Distinct().
		Order("cashflows.bank_account_id").
		Pluck("cashflows.bank_account_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// ListByPricing returns the cashflows a pricing has been part of
func (r *GormCashflowRepository) ListByPricing(ctx context.Context, pricingID uuid.UUID) ([]*finance.Cashflow, error) {
	var ms []models.CashflowModel
	if err := r.db.WithContext(ctx).
		Preload("Pricings").
		Where("id IN (?)", r.db.Model(&models.CashflowPricingModel{}).
			Select("cashflow_id").
			Where("pricing_id = ?", pricingID)).
		Order("created_at ASC").
		Find(&ms).Error; err != nil {
		return nil, err
	}
	return cashflowsToDomain(ms), nil
}

// AppendLog inserts a status history entry
func (r *GormCashflowRepository) AppendLog(ctx context.Context, entry finance.CashflowLog) error {
	return r.db.WithContext(ctx).Create(models.CashflowLogModelFromDomain(entry)).Error
}

// ListLogs returns the status history of a cashflow, oldest first
func (r *GormCashflowRepository) ListLogs(ctx context.Context, cashflowID uuid.UUID) ([]finance.CashflowLog, error) {
	var ms []models.CashflowLogModel
	if err := r.db.WithContext(ctx).
		Where("cashflow_id = ?", cashflowID).
		Order("timestamp ASC, id ASC").
		Find(&ms).Error; err != nil {
		return nil, err
	}
	logs := make([]finance.CashflowLog, len(ms))
	for i := range ms {
		logs[i] = ms[i].ToDomain()
	}
	return logs, nil
}

var _ finance.CashflowRepository = (*GormCashflowRepository)(nil)
