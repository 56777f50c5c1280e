package finance

import (
	"time"

	"github.com/google/uuid"
)

// BookingSnapshot is the ledger's copy of a booking, taken when the booking
// is used. Pricing reads the snapshot so that a repricing gives the same result.
type BookingSnapshot struct {
	ID            uuid.UUID
	Kind          BookingKind
	VenueID       uuid.UUID
	OfferCategory string
	Amount        int64 // minor units
	UsedAt        time.Time
	CancelledAt   *time.Time
	UpdatedAt     time.Time
}

// Reference returns the booking reference of the snapshot
func (b *BookingSnapshot) Reference() BookingReference {
	if b.Kind == BookingKindCollective {
		return CollectiveBookingRef{CollectiveBookingID: b.ID}
	}
	return BookingRef{BookingID: b.ID}
}

// Validate checks the snapshot carries what pricing needs
func (b *BookingSnapshot) Validate() error {
	if b.ID == uuid.Nil || b.VenueID == uuid.Nil {
		return ErrInvalidReference.WithMessage("booking id and venue id are required")
	}
	if !b.Kind.IsValid() {
		return ErrInvalidReference.WithMessage("unknown booking kind " + string(b.Kind))
	}
	if b.Amount < 0 {
		return ErrInvalidReference.WithMessage("booking amount cannot be negative")
	}
	if b.UsedAt.IsZero() {
		return ErrInvalidReference.WithMessage("booking has not been used")
	}
	return nil
}

// BankAccount receives the bank transfers of one or more pricing points
type BankAccount struct {
	ID        uuid.UUID
	Label     string
	IBAN      string
	Active    bool
	CreatedAt time.Time
}

// PricingPointLink attaches a pricing point to the bank account that is paid for it
type PricingPointLink struct {
	PricingPointID uuid.UUID
	BankAccountID  uuid.UUID
	LinkedAt       time.Time
}

// VenuePricingPoint attaches a venue to the pricing point its bookings are sequenced under
type VenuePricingPoint struct {
	VenueID        uuid.UUID
	PricingPointID uuid.UUID
	LinkedAt       time.Time
}
