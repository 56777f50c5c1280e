package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/pass-culture/pass-culture-main-sub045/internal/domain/finance"
	"github.com/pass-culture/pass-culture-main-sub045/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormIncidentRepository implements IncidentRepository using GORM
type GormIncidentRepository struct {
	db *gorm.DB
}

// NewGormIncidentRepository creates a new GormIncidentRepository
func NewGormIncidentRepository(db *gorm.DB) *GormIncidentRepository {
	return &GormIncidentRepository{db: db}
}

// Create inserts an incident with its booking parts
func (r *GormIncidentRepository) Create(ctx context.Context, incident *finance.FinanceIncident) error {
	return r.db.WithContext(ctx).Create(models.FinanceIncidentModelFromDomain(incident)).Error
}

// Save writes the incident status. Booking parts are immutable once created.
func (r *GormIncidentRepository) Save(ctx context.Context, incident *finance.FinanceIncident) error {
	return guardedUpdate(r.db.WithContext(ctx), &models.FinanceIncidentModel{}, "finance incident", incident.ID,
		"version = ?", incident.Version-1,
		map[string]any{
			"status":       incident.Status,
			"comment":      incident.Comment,
			"validated_at": incident.ValidatedAt,
			"updated_at":   incident.UpdatedAt,
			"version":      incident.Version,
		})
}

// FindByID finds an incident with its booking parts
func (r *GormIncidentRepository) FindByID(ctx context.Context, id uuid.UUID) (*finance.FinanceIncident, error) {
	var m models.FinanceIncidentModel
	if err := r.db.WithContext(ctx).
		Preload("BookingIncidents", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		First(&m, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "finance incident", id)
	}
	return m.ToDomain()
}

// FindBookingIncident finds one booking part of an incident
func (r *GormIncidentRepository) FindBookingIncident(ctx context.Context, id uuid.UUID) (*finance.BookingFinanceIncident, error) {
	var m models.BookingFinanceIncidentModel
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "booking finance incident", id)
	}
	bi, err := m.ToDomain()
	if err != nil {
		return nil, err
	}
	return &bi, nil
}

// ListIncidentIDsByBookingIncidents resolves the incidents owning the booking parts
func (r *GormIncidentRepository) ListIncidentIDsByBookingIncidents(ctx context.Context, bookingIncidentIDs []uuid.UUID) ([]uuid.UUID, error) {
	if len(bookingIncidentIDs) == 0 {
		return nil, nil
	}
	var ids []uuid.UUID
	if err := r.db.WithContext(ctx).
		Model(&models.BookingFinanceIncidentModel{}).
		Where("id IN ?", bookingIncidentIDs).
		Distinct().
		Order("incident_id").
		Pluck("incident_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// HasOpenIncident reports whether a created or validated incident concerns the booking
func (r *GormIncidentRepository) HasOpenIncident(ctx context.Context, ref finance.BookingReference) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.BookingFinanceIncidentModel{}).
		Joins("JOIN finance_incidents fi ON fi.id = booking_finance_incidents.incident_id").
		Where("booking_finance_incidents."+referenceColumn(ref)+" = ?", ref.ID()).
		Where("fi.status IN ?", []finance.IncidentStatus{finance.IncidentStatusCreated, finance.IncidentStatusValidated}).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

var _ finance.IncidentRepository = (*GormIncidentRepository)(nil)
