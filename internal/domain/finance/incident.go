package finance

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pass-culture/pass-culture-main-sub045/internal/domain/shared"
)

// BookingFinanceIncident is the part of an incident that concerns one booking
type BookingFinanceIncident struct {
	ID             uuid.UUID
	IncidentID     uuid.UUID
	BookingRef     BookingReference
	OriginalAmount int64 // booking total when the incident was opened
	NewTotalAmount int64 // what the booking should have been worth
}

// IsPartial reports whether only part of the booking is contested
func (b *BookingFinanceIncident) IsPartial() bool {
	return b.NewTotalAmount > 0
}

// DueAmount is the booking total difference: positive when the booking was
// overpaid, negative for a top-up.
func (b *BookingFinanceIncident) DueAmount() int64 {
	return b.OriginalAmount - b.NewTotalAmount
}

// Reference returns the event reference pointing at this booking incident
func (b *BookingFinanceIncident) Reference() IncidentRef {
	return IncidentRef{BookingFinanceIncidentID: b.ID}
}

// FinanceIncident is a back-office correction on already priced bookings
type FinanceIncident struct {
	shared.BaseAggregateRoot
	VenueID          uuid.UUID
	Kind             IncidentKind
	Status           IncidentStatus
	Origin           string
	Comment          string
	ValidatedAt      *time.Time
	BookingIncidents []BookingFinanceIncident
}

// BookingIncidentInput describes one contested booking
type BookingIncidentInput struct {
	BookingRef     BookingReference
	OriginalAmount int64
	NewTotalAmount int64
}

// NewFinanceIncident validates amounts against the incident kind
func NewFinanceIncident(venueID uuid.UUID, kind IncidentKind, origin string, bookings []BookingIncidentInput, now time.Time) (*FinanceIncident, error) {
	if venueID == uuid.Nil {
		return nil, shared.ErrInvalidInput.WithMessage("venue id is required")
	}
	if !kind.IsValid() {
		return nil, shared.ErrInvalidInput.WithMessage("unknown incident kind " + string(kind))
	}
	if len(bookings) == 0 {
		return nil, shared.ErrInvalidInput.WithMessage("an incident needs at least one booking")
	}
	inc := &FinanceIncident{
		BaseAggregateRoot: shared.NewBaseAggregateRootAt(now),
		VenueID:           venueID,
		Kind:              kind,
		Status:            IncidentStatusCreated,
		Origin:            origin,
	}
	seen := make(map[string]bool, len(bookings))
	for _, b := range bookings {
		if b.BookingRef == nil {
			return nil, ErrInvalidReference
		}
		if seen[b.BookingRef.String()] {
			return nil, shared.ErrInvalidInput.WithMessage("booking listed twice: " + b.BookingRef.String())
		}
		seen[b.BookingRef.String()] = true
		if err := validateIncidentAmounts(kind, b.OriginalAmount, b.NewTotalAmount); err != nil {
			return nil, err
		}
		inc.BookingIncidents = append(inc.BookingIncidents, BookingFinanceIncident{
			ID:             uuid.New(),
			IncidentID:     inc.ID,
			BookingRef:     b.BookingRef,
			OriginalAmount: b.OriginalAmount,
			NewTotalAmount: b.NewTotalAmount,
		})
	}
	return inc, nil
}

func validateIncidentAmounts(kind IncidentKind, original, newTotal int64) error {
	if newTotal < 0 {
		return shared.ErrInvalidInput.WithMessage("new total amount cannot be negative")
	}
	switch {
	case kind.ReclaimsMoney(), kind == IncidentKindCommercialGesture:
		if newTotal >= original {
			return shared.ErrInvalidInput.WithMessage(fmt.Sprintf(
				"new total amount %d must be lower than the original amount %d", newTotal, original))
		}
	case kind == IncidentKindUnderpayment:
		if newTotal <= original {
			return shared.ErrInvalidInput.WithMessage(fmt.Sprintf(
				"new total amount %d must be greater than the original amount %d", newTotal, original))
		}
	}
	return nil
}

// IsFullReversal reports whether the booking incident cancels the whole booking
func (f *FinanceIncident) IsFullReversal(b *BookingFinanceIncident) bool {
	return f.Kind.ReclaimsMoney() && !b.IsPartial()
}

// CompensationMotive is the motive of the event emitted for a booking incident
func (f *FinanceIncident) CompensationMotive(b *BookingFinanceIncident) FinanceEventMotive {
	switch {
	case f.Kind == IncidentKindCommercialGesture:
		return MotiveIncidentCommercialGesture
	case f.IsFullReversal(b):
		return MotiveIncidentReversalOfOriginal
	default:
		return MotiveIncidentNewPrice
	}
}

// BookingIncident finds a booking incident by id
func (f *FinanceIncident) BookingIncident(id uuid.UUID) (*BookingFinanceIncident, bool) {
	for i := range f.BookingIncidents {
		if f.BookingIncidents[i].ID == id {
			return &f.BookingIncidents[i], true
		}
	}
	return nil, false
}

// Validate moves created -> validated
func (f *FinanceIncident) Validate(at time.Time) error {
	if !f.Status.CanValidate() {
		return NewInvalidTransitionError("finance incident", f.Status, IncidentStatusValidated)
	}
	t := at.UTC()
	f.Status = IncidentStatusValidated
	f.ValidatedAt = &t
	f.Touch(at)
	f.IncrementVersion()
	f.AddDomainEvent(NewIncidentValidatedEvent(f))
	return nil
}

// Cancel moves created|validated -> cancelled. Whether the corrections are
// already paid out is checked by the caller.
func (f *FinanceIncident) Cancel(comment string, at time.Time) error {
	if !f.Status.CanCancel() {
		return NewInvalidTransitionError("finance incident", f.Status, IncidentStatusCancelled)
	}
	f.Status = IncidentStatusCancelled
	if comment != "" {
		f.Comment = comment
	}
	f.Touch(at)
	f.IncrementVersion()
	f.AddDomainEvent(NewIncidentCancelledEvent(f))
	return nil
}

// MarkInvoiced moves validated -> invoiced
func (f *FinanceIncident) MarkInvoiced(at time.Time) error {
	if f.Status != IncidentStatusValidated {
		return NewInvalidTransitionError("finance incident", f.Status, IncidentStatusInvoiced)
	}
	f.Status = IncidentStatusInvoiced
	f.Touch(at)
	f.IncrementVersion()
	return nil
}
