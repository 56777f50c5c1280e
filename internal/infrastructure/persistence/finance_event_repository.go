package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pass-culture/pass-culture-main-sub045/internal/domain/finance"
	"github.com/pass-culture/pass-culture-main-sub045/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

var activeEventStatuses = []finance.FinanceEventStatus{finance.EventStatusPending, finance.EventStatusReady}

// GormFinanceEventRepository implements FinanceEventRepository using GORM
type GormFinanceEventRepository struct {
	db *gorm.DB
}

// NewGormFinanceEventRepository creates a new GormFinanceEventRepository
func NewGormFinanceEventRepository(db *gorm.DB) *GormFinanceEventRepository {
	return &GormFinanceEventRepository{db: db}
}

// referenceColumn is the column holding the id of a reference variant
func referenceColumn(ref finance.EventReference) string {
	switch ref.Kind() {
	case finance.ReferenceKindCollectiveBooking:
		return "collective_booking_id"
	case finance.ReferenceKindIncident:
		return "booking_finance_incident_id"
	default:
		return "booking_id"
	}
}

// notFound maps gorm.ErrRecordNotFound to the domain not found error
func notFound(err error, entity string, id fmt.Stringer) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return finance.NewNotFoundError(entity, id)
	}
	return err
}

func eventsToDomain(ms []models.FinanceEventModel) ([]*finance.FinanceEvent, error) {
	events := make([]*finance.FinanceEvent, 0, len(ms))
	for i := range ms {
		e, err := ms[i].ToDomain()
		if err != nil {
			return nil, fmt.Errorf("finance event %s: %w", ms[i].ID, err)
		}
		events = append(events, e)
	}
	return events, nil
}

// Create inserts a new event
func (r *GormFinanceEventRepository) Create(ctx context.Context, event *finance.FinanceEvent) error {
	return r.db.WithContext(ctx).Create(models.FinanceEventModelFromDomain(event)).Error
}

// Save writes the event state after one transition. The domain model has
// already incremented the version, so the stored row must hold Version-1.
func (r *GormFinanceEventRepository) Save(ctx context.Context, event *finance.FinanceEvent) error {
	m := models.FinanceEventModelFromDomain(event)
	return guardedUpdate(r.db.WithContext(ctx), &models.FinanceEventModel{}, "finance event", event.ID,
		"version = ?", event.Version-1,
		map[string]any{
			"status":           m.Status,
			"pricing_point_id": m.PricingPointID,
			"updated_at":       m.UpdatedAt,
			"version":          m.Version,
		})
}

// FindByID finds an event by ID
func (r *GormFinanceEventRepository) FindByID(ctx context.Context, id uuid.UUID) (*finance.FinanceEvent, error) {
	var m models.FinanceEventModel
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "finance event", id)
	}
	return m.ToDomain()
}

// ListByIDs returns the events with the given ids
func (r *GormFinanceEventRepository) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]*finance.FinanceEvent, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var ms []models.FinanceEventModel
	if err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Order("pricing_ordering_date ASC, id ASC").
		Find(&ms).Error; err != nil {
		return nil, err
	}
	return eventsToDomain(ms)
}

// List lists events matching the filter, newest ordering date first
func (r *GormFinanceEventRepository) List(ctx context.Context, filter finance.EventFilter) ([]*finance.FinanceEvent, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.FinanceEventModel{})
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Motive != nil {
		query = query.Where("motive = ?", *filter.Motive)
	}
	if filter.PricingPointID != nil {
		query = query.Where("pricing_point_id = ?", *filter.PricingPointID)
	}
	if filter.VenueID != nil {
		query = query.Where("venue_id = ?", *filter.VenueID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var ms []models.FinanceEventModel
	if err := query.
		Order(orderClause(filter.Filter, EventSortFields, "pricing_ordering_date")).
		Offset(filter.Offset()).
		Limit(filter.Limit()).
		Find(&ms).Error; err != nil {
		return nil, 0, err
	}
	events, err := eventsToDomain(ms)
	return events, total, err
}

// ExistsActive reports whether a pending or ready event exists for the reference
func (r *GormFinanceEventRepository) ExistsActive(ctx context.Context, ref finance.EventReference, motive *finance.FinanceEventMotive) (bool, error) {
	query := r.db.WithContext(ctx).
		Model(&models.FinanceEventModel{}).
		Where(referenceColumn(ref)+" = ?", ref.ID()).
		Where("status IN ?", activeEventStatuses)
	if motive != nil {
		query = query.Where("motive = ?", *motive)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// FindActiveByReference returns the pending or ready event of a reference
func (r *GormFinanceEventRepository) FindActiveByReference(ctx context.Context, ref finance.EventReference) (*finance.FinanceEvent, error) {
	var m models.FinanceEventModel
	if err := r.db.WithContext(ctx).
		Where(referenceColumn(ref)+" = ?", ref.ID()).
		Where("status IN ?", activeEventStatuses).
		Order("created_at DESC").
		First(&m).Error; err != nil {
		return nil, notFound(err, "active finance event of", ref)
	}
	return m.ToDomain()
}

// ListByReference returns every event of a reference, oldest first
func (r *GormFinanceEventRepository) ListByReference(ctx context.Context, ref finance.EventReference) ([]*finance.FinanceEvent, error) {
	var ms []models.FinanceEventModel
	if err := r.db.WithContext(ctx).
		Where(referenceColumn(ref)+" = ?", ref.ID()).
		Order("created_at ASC, id ASC").
		Find(&ms).Error; err != nil {
		return nil, err
	}
	return eventsToDomain(ms)
}

// ListPendingByVenue returns the events of a venue waiting for a pricing point
func (r *GormFinanceEventRepository) ListPendingByVenue(ctx context.Context, venueID uuid.UUID) ([]*finance.FinanceEvent, error) {
	var ms []models.FinanceEventModel
	if err := r.db.WithContext(ctx).
		Where("venue_id = ? AND status = ?", venueID, finance.EventStatusPending).
		Order("pricing_ordering_date ASC, id ASC").
		Find(&ms).Error; err != nil {
		return nil, err
	}
	return eventsToDomain(ms)
}

// ListPricingPointsWithReadyEvents returns pricing points owning ready events ordered before the threshold
func (r *GormFinanceEventRepository) ListPricingPointsWithReadyEvents(ctx context.Context, orderedBefore time.Time) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := r.db.WithContext(ctx).
		Model(&models.FinanceEventModel{}).
		Where("status = ? AND pricing_point_id IS NOT NULL AND pricing_ordering_date < ?",
			finance.EventStatusReady, orderedBefore.UTC()).
		Distinct().
		Order("pricing_point_id").
		Pluck("pricing_point_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// ListReadyByPricingPoint returns ready events in (pricingOrderingDate, id) order
func (r *GormFinanceEventRepository) ListReadyByPricingPoint(ctx context.Context, pricingPointID uuid.UUID, orderedBefore time.Time, limit int) ([]*finance.FinanceEvent, error) {
	var ms []models.FinanceEventModel
	query := r.db.WithContext(ctx).
		Where("pricing_point_id = ? AND status = ? AND pricing_ordering_date < ?",
			pricingPointID, finance.EventStatusReady, orderedBefore.UTC()).
		Order("pricing_ordering_date ASC, id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&ms).Error; err != nil {
		return nil, err
	}
	return eventsToDomain(ms)
}

var _ finance.FinanceEventRepository = (*GormFinanceEventRepository)(nil)
