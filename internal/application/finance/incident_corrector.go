package finance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pass-culture/pass-culture-main-sub045/internal/domain/finance"
	"github.com/pass-culture/pass-culture-main-sub045/internal/domain/shared"
	"github.com/pass-culture/pass-culture-main-sub045/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// BookingCanceller cancels a booking in the booking system. It is called
// once a full reversal incident is validated.
type BookingCanceller interface {
	CancelBooking(ctx context.Context, ref finance.BookingReference) error
}

// IncidentBookingInput is one contested booking of CreateIncidentInput
type IncidentBookingInput struct {
	Ref            finance.BookingReference
	NewTotalAmount int64
}

// CreateIncidentInput holds the inputs of CreateIncident
type CreateIncidentInput struct {
	VenueID  uuid.UUID
	Kind     finance.IncidentKind
	Origin   string
	Bookings []IncidentBookingInput
}

// IncidentCorrector opens, validates and cancels finance incidents
type IncidentCorrector struct {
	scope     TransactionScope
	canceller BookingCanceller
	publisher shared.EventPublisher
	logger    *zap.Logger
	now       func() time.Time
}

// NewIncidentCorrector creates a new IncidentCorrector. canceller may be nil.
func NewIncidentCorrector(scope TransactionScope, canceller BookingCanceller, publisher shared.EventPublisher, logger *zap.Logger) *IncidentCorrector {
	return &IncidentCorrector{
		scope:     scope,
		canceller: canceller,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// WithClock replaces the time source
func (c *IncidentCorrector) WithClock(now func() time.Time) *IncidentCorrector {
	c.now = now
	return c
}

// CreateIncident opens an incident on priced bookings. The original amount of
// each booking is taken from its snapshot.
func (c *IncidentCorrector) CreateIncident(ctx context.Context, in CreateIncidentInput) (*finance.FinanceIncident, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "incident_corrector", "create")
	defer span.End()

	var incident *finance.FinanceIncident
	err := c.scope.Execute(ctx, func(repos Repositories) error {
		bookings := make([]finance.BookingIncidentInput, 0, len(in.Bookings))
		for _, b := range in.Bookings {
			if b.Ref == nil {
				return finance.ErrInvalidReference.WithMessage("booking reference is required")
			}
			snapshot, err := repos.BookingRepo().FindByReference(ctx, b.Ref)
			if err != nil {
				return err
			}
			if snapshot.VenueID != in.VenueID {
				return shared.ErrInvalidInput.WithMessage("booking " + b.Ref.String() + " does not belong to the venue")
			}
			open, err := repos.IncidentRepo().HasOpenIncident(ctx, b.Ref)
			if err != nil {
				return err
			}
			if open {
				return shared.ErrAlreadyExists.WithMessage("booking " + b.Ref.String() + " already has an open incident")
			}
			if in.Kind != finance.IncidentKindCommercialGesture {
				if _, err := bookingPosition(ctx, repos, b.Ref); err != nil {
					return err
				}
			}
			bookings = append(bookings, finance.BookingIncidentInput{
				BookingRef:     b.Ref,
				OriginalAmount: snapshot.Amount,
				NewTotalAmount: b.NewTotalAmount,
			})
		}
		var err error
		incident, err = finance.NewFinanceIncident(in.VenueID, in.Kind, in.Origin, bookings, c.now())
		if err != nil {
			return err
		}
		return repos.IncidentRepo().Create(ctx, incident)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	c.logger.Info("finance incident created",
		zap.String("incident_id", incident.ID.String()),
		zap.String("kind", incident.Kind.String()),
		zap.Int("bookings", len(incident.BookingIncidents)),
	)
	return incident, nil
}

// Validate validates the incident and emits one compensating finance event
// per booking. Bookings fully reversed are then cancelled in the booking system.
func (c *IncidentCorrector) Validate(ctx context.Context, id uuid.UUID) (*finance.FinanceIncident, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "incident_corrector", "validate")
	defer span.End()
	telemetry.SetAttributes(span, "incident_id", id.String())

	var (
		incident *finance.FinanceIncident
		toCancel []finance.BookingReference
		pending  pendingEvents
	)
	err := c.scope.Execute(ctx, func(repos Repositories) error {
		pending.reset()
		toCancel = nil
		var err error
		incident, err = repos.IncidentRepo().FindByID(ctx, id)
		if err != nil {
			return err
		}
		now := c.now()
		if err := incident.Validate(now); err != nil {
			return err
		}
		for i := range incident.BookingIncidents {
			bi := &incident.BookingIncidents[i]
			event, err := createEvent(ctx, repos, CreateEventInput{
				Reference: bi.Reference(),
				Motive:    incident.CompensationMotive(bi),
				VenueID:   incident.VenueID,
				ValueDate: now,
			}, now)
			if err != nil {
				return err
			}
			pending.collect(event)
			if incident.IsFullReversal(bi) {
				toCancel = append(toCancel, bi.BookingRef)
			}
		}
		if err := repos.IncidentRepo().Save(ctx, incident); err != nil {
			return err
		}
		pending.collect(incident)
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	c.logger.Info("finance incident validated",
		zap.String("incident_id", incident.ID.String()),
		zap.String("kind", incident.Kind.String()),
	)
	pending.publish(ctx, c.publisher, c.logger)

	if c.canceller != nil {
		for _, ref := range toCancel {
			if err := c.canceller.CancelBooking(ctx, ref); err != nil {
				c.logger.Error("failed to cancel booking after incident",
					zap.String("incident_id", incident.ID.String()),
					zap.String("booking", ref.String()),
					zap.Error(err),
				)
			}
		}
	}
	return incident, nil
}

// Cancel cancels the incident and its compensating events. It fails once a
// compensating pricing has been paid by an accepted cashflow.
func (c *IncidentCorrector) Cancel(ctx context.Context, id uuid.UUID, comment string) (*finance.FinanceIncident, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "incident_corrector", "cancel")
	defer span.End()
	telemetry.SetAttributes(span, "incident_id", id.String())

	var (
		incident *finance.FinanceIncident
		pending  pendingEvents
	)
	err := c.scope.Execute(ctx, func(repos Repositories) error {
		pending.reset()
		var err error
		incident, err = repos.IncidentRepo().FindByID(ctx, id)
		if err != nil {
			return err
		}
		if !incident.Status.CanCancel() {
			return finance.NewInvalidTransitionError("finance incident", incident.Status, finance.IncidentStatusCancelled)
		}
		comp, err := compensations(ctx, repos, incident)
		if err != nil {
			return err
		}
		for _, cp := range comp {
			if cp.pricing == nil {
				continue
			}
			if err := checkCancellable(ctx, repos, incident, cp.pricing); err != nil {
				return err
			}
		}

		now := c.now()
		var logs []finance.PricingLog
		for _, cp := range comp {
			switch {
			case cp.event.IsActive():
				if err := cp.event.Cancel(string(finance.LogReasonCancelIncident), now); err != nil {
					return err
				}
			case cp.event.Status == finance.EventStatusProcessed:
				if cp.pricing != nil {
					entry, err := cp.pricing.Transition(finance.PricingStatusCancelled, finance.LogReasonCancelIncident, now)
					if err != nil {
						return err
					}
					if err := repos.PricingRepo().UpdateStatus(ctx, cp.pricing); err != nil {
						return err
					}
					logs = append(logs, entry)
				}
				if err := cp.event.CancelPriced(string(finance.LogReasonCancelIncident), now); err != nil {
					return err
				}
			default:
				continue
			}
			if err := repos.EventRepo().Save(ctx, cp.event); err != nil {
				return err
			}
			pending.collect(cp.event)
		}
		if err := repos.PricingLogRepo().Append(ctx, logs...); err != nil {
			return err
		}
		if err := incident.Cancel(comment, now); err != nil {
			return err
		}
		if err := repos.IncidentRepo().Save(ctx, incident); err != nil {
			return err
		}
		pending.collect(incident)
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	c.logger.Info("finance incident cancelled", zap.String("incident_id", incident.ID.String()))
	pending.publish(ctx, c.publisher, c.logger)
	return incident, nil
}

// MarkInvoiced closes a validated incident whose compensating pricings are all invoiced
func (c *IncidentCorrector) MarkInvoiced(ctx context.Context, id uuid.UUID) (*finance.FinanceIncident, error) {
	var incident *finance.FinanceIncident
	err := c.scope.Execute(ctx, func(repos Repositories) error {
		var err error
		incident, err = repos.IncidentRepo().FindByID(ctx, id)
		if err != nil {
			return err
		}
		return markIncidentInvoiced(ctx, repos, incident, c.now())
	})
	if err != nil {
		return nil, err
	}
	c.logger.Info("finance incident invoiced", zap.String("incident_id", incident.ID.String()))
	return incident, nil
}

func markIncidentInvoiced(ctx context.Context, repos Repositories, incident *finance.FinanceIncident, now time.Time) error {
	if incident.Status != finance.IncidentStatusValidated {
		return finance.NewInvalidTransitionError("finance incident", incident.Status, finance.IncidentStatusInvoiced)
	}
	comp, err := compensations(ctx, repos, incident)
	if err != nil {
		return err
	}
	invoiced := 0
	for _, cp := range comp {
		if cp.event.Status == finance.EventStatusCancelled {
			continue
		}
		if cp.pricing == nil || cp.pricing.Status() != finance.PricingStatusInvoiced {
			return finance.ErrInvalidTransition.WithMessage("incident " + incident.ID.String() + " still has pricings to invoice")
		}
		invoiced++
	}
	if invoiced == 0 {
		return finance.ErrInvalidTransition.WithMessage("incident " + incident.ID.String() + " has no invoiced pricing")
	}
	if err := incident.MarkInvoiced(now); err != nil {
		return err
	}
	return repos.IncidentRepo().Save(ctx, incident)
}

// checkCancellable refuses to cancel an incident whose compensating pricing
// was paid out by an accepted cashflow. A pricing sitting in a cashflow that
// the bank has not answered yet cannot be cancelled either; the cancel may be
// retried once that cashflow is rejected.
func checkCancellable(ctx context.Context, repos Repositories, incident *finance.FinanceIncident, pricing *finance.Pricing) error {
	switch pricing.Status() {
	case finance.PricingStatusInvoiced:
		return finance.ErrIncidentAlreadySettled.WithMessage(fmt.Sprintf(
			"pricing %s of incident %s is invoiced", pricing.ID(), incident.ID))
	case finance.PricingStatusProcessed:
	default:
		return nil
	}
	cashflows, err := repos.CashflowRepo().ListByPricing(ctx, pricing.ID())
	if err != nil {
		return fmt.Errorf("failed to load cashflows of pricing: %w", err)
	}
	for _, cf := range cashflows {
		switch cf.Status {
		case finance.CashflowStatusAccepted:
			return finance.ErrIncidentAlreadySettled.WithMessage(fmt.Sprintf(
				"pricing %s of incident %s was paid by cashflow %s", pricing.ID(), incident.ID, cf.ID))
		case finance.CashflowStatusPending, finance.CashflowStatusUnderReview:
			return finance.ErrNonCancellablePricing.WithMessage(fmt.Sprintf(
				"pricing %s of incident %s awaits bank execution in cashflow %s", pricing.ID(), incident.ID, cf.ID))
		}
	}
	return nil
}

type compensation struct {
	event   *finance.FinanceEvent
	pricing *finance.Pricing
}

// compensations lists the events of every booking incident with their active pricing
func compensations(ctx context.Context, repos Repositories, incident *finance.FinanceIncident) ([]compensation, error) {
	var out []compensation
	for i := range incident.BookingIncidents {
		events, err := repos.EventRepo().ListByReference(ctx, incident.BookingIncidents[i].Reference())
		if err != nil {
			return nil, err
		}
		for _, ev := range events {
			cp := compensation{event: ev}
			if ev.Status == finance.EventStatusProcessed {
				p, err := repos.PricingRepo().FindActiveByEvent(ctx, ev.ID)
				if err != nil && !errors.Is(err, shared.ErrNotFound) {
					return nil, err
				}
				cp.pricing = p
			}
			out = append(out, cp)
		}
	}
	return out, nil
}
