package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pass-culture/pass-culture-main-sub045/internal/domain/finance"
	"github.com/pass-culture/pass-culture-main-sub045/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormPricingRepository implements PricingRepository using GORM
type GormPricingRepository struct {
	db *gorm.DB
}

// NewGormPricingRepository creates a new GormPricingRepository
func NewGormPricingRepository(db *gorm.DB) *GormPricingRepository {
	return &GormPricingRepository{db: db}
}

func pricingsToDomain(ms []models.PricingModel) ([]*finance.Pricing, error) {
	pricings := make([]*finance.Pricing, 0, len(ms))
	for i := range ms {
		p, err := ms[i].ToDomain()
		if err != nil {
			return nil, fmt.Errorf("pricing %s: %w", ms[i].ID, err)
		}
		pricings = append(pricings, p)
	}
	return pricings, nil
}

// withBankAccount joins the pricing point to bank account mapping
func withBankAccount(db *gorm.DB) *gorm.DB {
	return db.Joins("JOIN pricing_point_bank_accounts ppba ON ppba.pricing_point_id = pricings.pricing_point_id")
}

// withActiveBankAccount keeps only bank accounts that may receive transfers
func withActiveBankAccount(db *gorm.DB) *gorm.DB {
	return withBankAccount(db).
		Joins("JOIN bank_accounts ba ON ba.id = ppba.bank_account_id AND ba.active = ?", true)
}

// Create inserts a pricing with its lines
func (r *GormPricingRepository) Create(ctx context.Context, pricing *finance.Pricing) error {
	return r.db.WithContext(ctx).Create(models.PricingModelFromDomain(pricing)).Error
}

// UpdateStatus writes the status of an existing pricing. Amounts are never
// updated. The write only applies while the row still holds the status the
// pricing was loaded with; otherwise shared.ErrConcurrencyConflict is returned.
func (r *GormPricingRepository) UpdateStatus(ctx context.Context, pricing *finance.Pricing) error {
	err := guardedUpdate(r.db.WithContext(ctx), &models.PricingModel{}, "pricing", pricing.ID(),
		"status = ?", pricing.StoredStatus(),
		map[string]any{
			"status":     pricing.Status(),
			"updated_at": pricing.UpdatedAt(),
		})
	if err != nil {
		return err
	}
	pricing.MarkStored()
	return nil
}

// FindByID finds a pricing by ID
func (r *GormPricingRepository) FindByID(ctx context.Context, id uuid.UUID) (*finance.Pricing, error) {
	var m models.PricingModel
	if err := r.db.WithContext(ctx).Preload("Lines").First(&m, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "pricing", id)
	}
	return m.ToDomain()
}

// ListByIDs returns the pricings with the given ids
func (r *GormPricingRepository) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]*finance.Pricing, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var ms []models.PricingModel
	if err := r.db.WithContext(ctx).
		Preload("Lines").
		Where("id IN ?", ids).
		Order("created_at ASC, id ASC").
		Find(&ms).Error; err != nil {
		return nil, err
	}
	return pricingsToDomain(ms)
}

// FindActiveByEvent returns the non-cancelled pricing of an event
func (r *GormPricingRepository) FindActiveByEvent(ctx context.Context, eventID uuid.UUID) (*finance.Pricing, error) {
	var m models.PricingModel
	if err := r.db.WithContext(ctx).
		Preload("Lines").
		Where("event_id = ? AND status <> ?", eventID, finance.PricingStatusCancelled).
		First(&m).Error; err != nil {
		return nil, notFound(err, "active pricing of event", eventID)
	}
	return m.ToDomain()
}

// ListByEvents returns every pricing of the events, cancelled ones included
func (r *GormPricingRepository) ListByEvents(ctx context.Context, eventIDs []uuid.UUID) ([]*finance.Pricing, error) {
	if len(eventIDs) == 0 {
		return nil, nil
	}
	var ms []models.PricingModel
	if err := r.db.WithContext(ctx).
		Preload("Lines").
		Where("event_id IN ?", eventIDs).
		Order("created_at ASC, id ASC").
		Find(&ms).Error; err != nil {
		return nil, err
	}
	return pricingsToDomain(ms)
}

// ListActiveByBooking returns the non-cancelled pricings of a booking, oldest first
func (r *GormPricingRepository) ListActiveByBooking(ctx context.Context, ref finance.BookingReference) ([]*finance.Pricing, error) {
	var ms []models.PricingModel
	if err := r.db.WithContext(ctx).
		Preload("Lines").
		Where(referenceColumn(ref)+" = ?", ref.ID()).
		Where("status <> ?", finance.PricingStatusCancelled).
		Order("created_at ASC, id ASC").
		Find(&ms).Error; err != nil {
		return nil, err
	}
	return pricingsToDomain(ms)
}

// ListActiveOrderedAfter returns the non-cancelled pricings of the pricing
// point, valued in [from, to), whose event sorts after (orderingDate, eventID)
func (r *GormPricingRepository) ListActiveOrderedAfter(ctx context.Context, pricingPointID uuid.UUID, from, to time.Time, orderingDate time.Time, eventID uuid.UUID) ([]*finance.Pricing, error) {
	var ms []models.PricingModel
	orderingDate = orderingDate.UTC()
	if err := r.db.WithContext(ctx).
		Preload("Lines").
		Select("pricings.*").
		Joins("JOIN finance_events fe ON fe.id = pricings.event_id").
		Where("pricings.pricing_point_id = ? AND pricings.status <> ?", pricingPointID, finance.PricingStatusCancelled).
		Where("pricings.value_date >= ? AND pricings.value_date < ?", from.UTC(), to.UTC()).
		Where("fe.pricing_ordering_date > ? OR (fe.pricing_ordering_date = ? AND fe.id > ?)",
			orderingDate, orderingDate, eventID).
		Order("fe.pricing_ordering_date ASC, fe.id ASC").
		Clauses(forUpdate).
		Find(&ms).Error; err != nil {
		return nil, err
	}
	return pricingsToDomain(ms)
}

// SumRevenue sums the revenue of non-cancelled pricings valued in [from, to)
func (r *GormPricingRepository) SumRevenue(ctx context.Context, pricingPointID uuid.UUID, from, to time.Time) (int64, error) {
	var sum int64
	if err := r.db.WithContext(ctx).
		Model(&models.PricingModel{}).
		Select("COALESCE(SUM(revenue), 0)").
		Where("pricing_point_id = ? AND status <> ?", pricingPointID, finance.PricingStatusCancelled).
		Where("value_date >= ? AND value_date < ?", from.UTC(), to.UTC()).
		Scan(&sum).Error; err != nil {
		return 0, err
	}
	return sum, nil
}

// ListBankAccountsWithValidated returns the bank accounts owed validated pricings created up to cutoff
func (r *GormPricingRepository) ListBankAccountsWithValidated(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := withActiveBankAccount(r.db.WithContext(ctx).Model(&models.PricingModel{})).
		Where("pricings.status = ? AND pricings.created_at <= ?", finance.PricingStatusValidated, cutoff.UTC()).
		Distinct().
		Order("ppba.bank_account_id").
		Pluck("ppba.bank_account_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// ListValidatedForBankAccount returns the validated pricings of a bank account created up to cutoff
func (r *GormPricingRepository) ListValidatedForBankAccount(ctx context.Context, bankAccountID uuid.UUID, cutoff time.Time) ([]*finance.Pricing, error) {
	var ms []models.PricingModel
	if err := withActiveBankAccount(r.db.WithContext(ctx).Preload("Lines").Select("pricings.*")).
		Where("ppba.bank_account_id = ?", bankAccountID).
		Where("pricings.status = ? AND pricings.created_at <= ?", finance.PricingStatusValidated, cutoff.UTC()).
		Order("pricings.created_at ASC, pricings.id ASC").
		Clauses(forUpdate).
		Find(&ms).Error; err != nil {
		return nil, err
	}
	return pricingsToDomain(ms)
}

// ListByCashflows returns the pricings linked to the cashflows
func (r *GormPricingRepository) ListByCashflows(ctx context.Context, cashflowIDs []uuid.UUID) ([]*finance.Pricing, error) {
	if len(cashflowIDs) == 0 {
		return nil, nil
	}
	var ms []models.PricingModel
	if err := r.db.WithContext(ctx).
		Preload("Lines").
		Where("id IN (?)", r.db.Model(&models.CashflowPricingModel{}).
			Select("pricing_id").
			Where("cashflow_id IN ?", cashflowIDs)).
		Order("created_at ASC, id ASC").
		Find(&ms).Error; err != nil {
		return nil, err
	}
	return pricingsToDomain(ms)
}

// SumByStatusForBankAccount sums the amounts of a bank account's pricings by status
func (r *GormPricingRepository) SumByStatusForBankAccount(ctx context.Context, bankAccountID uuid.UUID) (map[finance.PricingStatus]int64, error) {
	var rows []struct {
		Status finance.PricingStatus
		Total  int64
	}
	if err := withBankAccount(r.db.WithContext(ctx).Model(&models.PricingModel{})).
		Select("pricings.status AS status, COALESCE(SUM(pricings.amount), 0) AS total").
		Where("ppba.bank_account_id = ? AND pricings.status <> ?", bankAccountID, finance.PricingStatusCancelled).
		Group("pricings.status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	sums := make(map[finance.PricingStatus]int64, len(rows))
	for _, row := range rows {
		sums[row.Status] = row.Total
	}
	return sums, nil
}

// GormPricingLogRepository implements PricingLogRepository using GORM
type GormPricingLogRepository struct {
	db *gorm.DB
}

// NewGormPricingLogRepository creates a new GormPricingLogRepository
func NewGormPricingLogRepository(db *gorm.DB) *GormPricingLogRepository {
	return &GormPricingLogRepository{db: db}
}

// Append inserts audit entries
func (r *GormPricingLogRepository) Append(ctx context.Context, entries ...finance.PricingLog) error {
	if len(entries) == 0 {
		return nil
	}
	ms := make([]*models.PricingLogModel, len(entries))
	for i, e := range entries {
		ms[i] = models.PricingLogModelFromDomain(e)
	}
	return r.db.WithContext(ctx).Create(ms).Error
}

// ListByPricing returns the audit trail of a pricing, oldest first
func (r *GormPricingLogRepository) ListByPricing(ctx context.Context, pricingID uuid.UUID) ([]finance.PricingLog, error) {
	var ms []models.PricingLogModel
	if err := r.db.WithContext(ctx).
		Where("pricing_id = ?", pricingID).
		Order("timestamp ASC, id ASC").
		Find(&ms).Error; err != nil {
		return nil, err
	}
	logs := make([]finance.PricingLog, len(ms))
	for i := range ms {
		logs[i] = ms[i].ToDomain()
	}
	return logs, nil
}

var (
	_ finance.PricingRepository    = (*GormPricingRepository)(nil)
	_ finance.PricingLogRepository = (*GormPricingLogRepository)(nil)
)
