package finance

import (
	"fmt"

	"github.com/google/uuid"
)

// EventReference is what a FinanceEvent is about. It is a closed sum type:
// BookingRef, CollectiveBookingRef or IncidentRef. Exactly one reference per
// event is guaranteed by construction.
type EventReference interface {
	ID() uuid.UUID
	Kind() ReferenceKind
	String() string
	sealed()
}

// ReferenceKind names the variant of an EventReference
type ReferenceKind string

const (
	ReferenceKindBooking           ReferenceKind = "booking"
	ReferenceKindCollectiveBooking ReferenceKind = "collective-booking"
	ReferenceKindIncident          ReferenceKind = "booking-finance-incident"
)

// BookingRef references an individual booking
type BookingRef struct{ BookingID uuid.UUID }

// CollectiveBookingRef references a collective booking
type CollectiveBookingRef struct{ CollectiveBookingID uuid.UUID }

// IncidentRef references a BookingFinanceIncident
type IncidentRef struct{ BookingFinanceIncidentID uuid.UUID }

func (r BookingRef) ID() uuid.UUID           { return r.BookingID }
func (r CollectiveBookingRef) ID() uuid.UUID { return r.CollectiveBookingID }
func (r IncidentRef) ID() uuid.UUID          { return r.BookingFinanceIncidentID }

func (BookingRef) Kind() ReferenceKind           { return ReferenceKindBooking }
func (CollectiveBookingRef) Kind() ReferenceKind { return ReferenceKindCollectiveBooking }
func (IncidentRef) Kind() ReferenceKind          { return ReferenceKindIncident }

func (r BookingRef) String() string           { return "booking:" + r.BookingID.String() }
func (r CollectiveBookingRef) String() string { return "collective-booking:" + r.CollectiveBookingID.String() }
func (r IncidentRef) String() string          { return "incident:" + r.BookingFinanceIncidentID.String() }

func (BookingRef) sealed()           {}
func (CollectiveBookingRef) sealed() {}
func (IncidentRef) sealed()          {}

// BookingReference is the subset of references that point at a booking.
// Pricings always carry one of these, incidents included.
type BookingReference interface {
	EventReference
	BookingKind() BookingKind
}

// BookingKind implements BookingReference
func (BookingRef) BookingKind() BookingKind { return BookingKindIndividual }

// BookingKind implements BookingReference
func (CollectiveBookingRef) BookingKind() BookingKind { return BookingKindCollective }

// NewBookingReference builds the reference matching the booking kind
func NewBookingReference(kind BookingKind, id uuid.UUID) (BookingReference, error) {
	switch kind {
	case BookingKindIndividual:
		return BookingRef{BookingID: id}, nil
	case BookingKindCollective:
		return CollectiveBookingRef{CollectiveBookingID: id}, nil
	}
	return nil, ErrInvalidReference.WithMessage(fmt.Sprintf("unknown booking kind %q", kind))
}

// ReferenceColumns is the storage layout of an EventReference
type ReferenceColumns struct {
	BookingID                *uuid.UUID
	CollectiveBookingID      *uuid.UUID
	BookingFinanceIncidentID *uuid.UUID
}

// ColumnsOf flattens a reference into its nullable storage columns
func ColumnsOf(ref EventReference) ReferenceColumns {
	var cols ReferenceColumns
	id := ref.ID()
	switch ref.(type) {
	case BookingRef:
		cols.BookingID = &id
	case CollectiveBookingRef:
		cols.CollectiveBookingID = &id
	case IncidentRef:
		cols.BookingFinanceIncidentID = &id
	}
	return cols
}

// Reference rebuilds the sum type from storage; exactly one column must be set
func (c ReferenceColumns) Reference() (EventReference, error) {
	var refs []EventReference
	if c.BookingID != nil {
		refs = append(refs, BookingRef{BookingID: *c.BookingID})
	}
	if c.CollectiveBookingID != nil {
		refs = append(refs, CollectiveBookingRef{CollectiveBookingID: *c.CollectiveBookingID})
	}
	if c.BookingFinanceIncidentID != nil {
		refs = append(refs, IncidentRef{BookingFinanceIncidentID: *c.BookingFinanceIncidentID})
	}
	if len(refs) != 1 {
		return nil, ErrInvalidReference.WithMessage(
			fmt.Sprintf("expected exactly one reference, got %d", len(refs)))
	}
	return refs[0], nil
}

// BookingReference rebuilds a booking-only reference from storage
func (c ReferenceColumns) BookingReference() (BookingReference, error) {
	ref, err := c.Reference()
	if err != nil {
		return nil, err
	}
	bref, ok := ref.(BookingReference)
	if !ok {
		return nil, ErrInvalidReference.WithMessage("expected a booking reference, got " + ref.String())
	}
	return bref, nil
}
