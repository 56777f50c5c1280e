package finance

import (
	"bytes"
	"time"

	"github.com/google/uuid"
	"github.com/pass-culture/pass-culture-main-sub045/internal/domain/shared"
)

const aggregateTypeFinanceEvent = "FinanceEvent"

// FinanceEvent records that something reimbursable happened to a booking,
// a collective booking or a booking finance incident.
type FinanceEvent struct {
	shared.BaseAggregateRoot
	ValueDate           time.Time
	PricingOrderingDate time.Time
	Status              FinanceEventStatus
	Motive              FinanceEventMotive
	Reference           EventReference
	VenueID             uuid.UUID
	PricingPointID      *uuid.UUID
}

// NewFinanceEventParams holds the inputs of NewFinanceEvent
type NewFinanceEventParams struct {
	Reference           EventReference
	Motive              FinanceEventMotive
	VenueID             uuid.UUID
	PricingPointID      *uuid.UUID
	ValueDate           time.Time
	PricingOrderingDate *time.Time
	Now                 time.Time
}

// NewFinanceEvent creates an event. It is ready when the pricing point is
// known and pending otherwise.
func NewFinanceEvent(p NewFinanceEventParams) (*FinanceEvent, error) {
	if p.Reference == nil {
		return nil, ErrInvalidReference
	}
	if !p.Motive.IsValid() {
		return nil, shared.ErrInvalidInput.WithMessage("unknown motive " + string(p.Motive))
	}
	_, isIncident := p.Reference.(IncidentRef)
	if p.Motive.IsIncident() != isIncident {
		return nil, ErrInvalidReference.WithMessage(
			"motive " + string(p.Motive) + " does not match reference " + p.Reference.String())
	}
	if p.VenueID == uuid.Nil {
		return nil, shared.ErrInvalidInput.WithMessage("venue id is required")
	}
	if p.ValueDate.IsZero() {
		return nil, shared.ErrInvalidInput.WithMessage("value date is required")
	}
	now := p.Now
	if now.IsZero() {
		now = time.Now()
	}

	ordering := p.ValueDate
	if p.PricingOrderingDate != nil {
		ordering = *p.PricingOrderingDate
	}

	e := &FinanceEvent{
		BaseAggregateRoot:   shared.NewBaseAggregateRootAt(now),
		ValueDate:           p.ValueDate.UTC(),
		PricingOrderingDate: ordering.UTC(),
		Status:              EventStatusPending,
		Motive:              p.Motive,
		Reference:           p.Reference,
		VenueID:             p.VenueID,
	}
	if p.PricingPointID != nil {
		ppID := *p.PricingPointID
		e.PricingPointID = &ppID
		e.Status = EventStatusReady
	}
	e.AddDomainEvent(NewFinanceEventCreatedEvent(e))
	return e, nil
}

// IsActive reports whether the event still waits to be priced
func (e *FinanceEvent) IsActive() bool {
	return e.Status.IsActive()
}

// AttachPricingPoint records the pricing point and promotes a pending event to ready
func (e *FinanceEvent) AttachPricingPoint(pricingPointID uuid.UUID, at time.Time) error {
	if e.Status != EventStatusPending {
		return NewInvalidTransitionError("finance event", e.Status, EventStatusReady)
	}
	e.PricingPointID = &pricingPointID
	return e.transition(EventStatusReady, at)
}

// MarkReady moves a pending event to ready. It is a no-op when already ready.
func (e *FinanceEvent) MarkReady(at time.Time) error {
	if e.Status == EventStatusReady {
		return nil
	}
	if e.Status != EventStatusPending {
		return NewInvalidTransitionError("finance event", e.Status, EventStatusReady)
	}
	if e.PricingPointID == nil {
		return ErrInvalidTransition.WithMessage("finance event has no pricing point and cannot be priced")
	}
	return e.transition(EventStatusReady, at)
}

// MarkProcessed is called once a pricing is attached
func (e *FinanceEvent) MarkProcessed(at time.Time) error {
	return e.transition(EventStatusProcessed, at)
}

// Reopen puts a processed event back in the pricing queue after its pricing was cancelled
func (e *FinanceEvent) Reopen(at time.Time) error {
	if e.Status != EventStatusProcessed {
		return NewInvalidTransitionError("finance event", e.Status, EventStatusReady)
	}
	return e.transition(EventStatusReady, at)
}

// Cancel cancels an event that has not been priced yet
func (e *FinanceEvent) Cancel(reason string, at time.Time) error {
	if e.Status == EventStatusProcessed {
		return ErrInvalidTransition.WithMessage(
			"a processed finance event can only be offset by a compensating event")
	}
	return e.cancel(reason, at)
}

// CancelPriced cancels a processed event whose pricing has just been cancelled.
// Only correction workflows call this.
func (e *FinanceEvent) CancelPriced(reason string, at time.Time) error {
	return e.cancel(reason, at)
}

func (e *FinanceEvent) cancel(reason string, at time.Time) error {
	if err := e.transition(EventStatusCancelled, at); err != nil {
		return err
	}
	e.AddDomainEvent(NewFinanceEventCancelledEvent(e, reason))
	return nil
}

func (e *FinanceEvent) transition(to FinanceEventStatus, at time.Time) error {
	if !e.Status.CanTransitionTo(to) {
		return NewInvalidTransitionError("finance event", e.Status, to)
	}
	e.Status = to
	e.Touch(at)
	e.IncrementVersion()
	return nil
}

// PricesBefore reports whether e sorts before other in pricing order:
// (PricingOrderingDate, ID) ascending.
func (e *FinanceEvent) PricesBefore(other *FinanceEvent) bool {
	return ComparePricingOrder(e.PricingOrderingDate, e.ID, other.PricingOrderingDate, other.ID) < 0
}

// ComparePricingOrder compares two (ordering date, id) keys
func ComparePricingOrder(aDate time.Time, aID uuid.UUID, bDate time.Time, bID uuid.UUID) int {
	switch {
	case aDate.Before(bDate):
		return -1
	case aDate.After(bDate):
		return 1
	}
	return bytes.Compare(aID[:], bID[:])
}
