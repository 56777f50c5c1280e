package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/pass-culture/pass-culture-main-sub045/internal/domain/finance"
	"github.com/pass-culture/pass-culture-main-sub045/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormBookingRepository implements BookingRepository using GORM
type GormBookingRepository struct {
	db *gorm.DB
}

// NewGormBookingRepository creates a new GormBookingRepository
func NewGormBookingRepository(db *gorm.DB) *GormBookingRepository {
	return &GormBookingRepository{db: db}
}

// Save upserts a booking snapshot
func (r *GormBookingRepository) Save(ctx context.Context, booking *finance.BookingSnapshot) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}, {Name: "kind"}},
			UpdateAll: true,
		}).
		Create(models.BookingSnapshotModelFromDomain(booking)).Error
}

// FindByReference finds the snapshot of a booking
func (r *GormBookingRepository) FindByReference(ctx context.Context, ref finance.BookingReference) (*finance.BookingSnapshot, error) {
	var m models.BookingSnapshotModel
	if err := r.db.WithContext(ctx).
		First(&m, "id = ? AND kind = ?", ref.ID(), ref.BookingKind()).Error; err != nil {
		return nil, notFound(err, "booking", ref)
	}
	return m.ToDomain(), nil
}

// GormRecipientRepository implements RecipientRepository using GORM
type GormRecipientRepository struct {
	db *gorm.DB
}

// NewGormRecipientRepository creates a new GormRecipientRepository
func NewGormRecipientRepository(db *gorm.DB) *GormRecipientRepository {
	return &GormRecipientRepository{db: db}
}

// SaveBankAccount upserts a bank account
func (r *GormRecipientRepository) SaveBankAccount(ctx context.Context, account *finance.BankAccount) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"label", "iban", "active"}),
		}).
		Create(&models.BankAccountModel{
			ID:        account.ID,
			Label:     account.Label,
			IBAN:      account.IBAN,
			Active:    account.Active,
			CreatedAt: account.CreatedAt,
		}).Error
}

// FindBankAccount finds a bank account by ID
func (r *GormRecipientRepository) FindBankAccount(ctx context.Context, id uuid.UUID) (*finance.BankAccount, error) {
	var m models.BankAccountModel
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "bank account", id)
	}
	return m.ToDomain(), nil
}

// LinkPricingPoint makes the bank account the one paid for the pricing point
func (r *GormRecipientRepository) LinkPricingPoint(ctx context.Context, link finance.PricingPointLink) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "pricing_point_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"bank_account_id", "linked_at"}),
		}).
		Create(&models.PricingPointBankAccountModel{
			PricingPointID: link.PricingPointID,
			BankAccountID:  link.BankAccountID,
			LinkedAt:       link.LinkedAt,
		}).Error
}

// LinkVenue attaches a venue to its pricing point
func (r *GormRecipientRepository) LinkVenue(ctx context.Context, link finance.VenuePricingPoint) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "venue_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"pricing_point_id", "linked_at"}),
		}).
		Create(&models.VenuePricingPointModel{
			VenueID:        link.VenueID,
			PricingPointID: link.PricingPointID,
			LinkedAt:       link.LinkedAt,
		}).Error
}

// FindPricingPointForVenue returns the venue's pricing point, nil when none is attached
func (r *GormRecipientRepository) FindPricingPointForVenue(ctx context.Context, venueID uuid.UUID) (*uuid.UUID, error) {
	var m models.VenuePricingPointModel
	err := r.db.WithContext(ctx).First(&m, "venue_id = ?", venueID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m.PricingPointID, nil
}

var (
	_ finance.BookingRepository   = (*GormBookingRepository)(nil)
	_ finance.RecipientRepository = (*GormRecipientRepository)(nil)
)
