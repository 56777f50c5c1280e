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

// EventStore records reimbursable facts as finance events and applies the
// booking lifecycle callbacks.
type EventStore struct {
	scope     TransactionScope
	publisher shared.EventPublisher
	logger    *zap.Logger
	now       func() time.Time
}

// NewEventStore creates a new EventStore
func NewEventStore(scope TransactionScope, publisher shared.EventPublisher, logger *zap.Logger) *EventStore {
	return &EventStore{
		scope:     scope,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// WithClock replaces the time source
func (s *EventStore) WithClock(now func() time.Time) *EventStore {
	s.now = now
	return s
}

// CreateEventInput holds the inputs of CreateEvent
type CreateEventInput struct {
	Reference           finance.EventReference
	Motive              finance.FinanceEventMotive
	VenueID             uuid.UUID
	ValueDate           time.Time
	PricingOrderingDate *time.Time
}

// CreateEvent records a new finance event. The pricing point is resolved from
// the venue: the event is ready when it is known and pending otherwise.
func (s *EventStore) CreateEvent(ctx context.Context, in CreateEventInput) (*finance.FinanceEvent, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "finance_event", "create")
	defer span.End()

	var (
		event   *finance.FinanceEvent
		pending pendingEvents
	)
	err := s.scope.Execute(ctx, func(repos Repositories) error {
		pending.reset()
		var err error
		event, err = createEvent(ctx, repos, in, s.now())
		if err != nil {
			return err
		}
		pending.collect(event)
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttributes(span, "event_id", event.ID.String(), "motive", string(event.Motive))
	s.logger.Info("finance event created",
		zap.String("event_id", event.ID.String()),
		zap.String("reference", event.Reference.String()),
		zap.String("motive", event.Motive.String()),
		zap.String("status", event.Status.String()),
	)
	pending.publish(ctx, s.publisher, s.logger)
	return event, nil
}

// createEvent enforces the uniqueness rules on active events and persists the event
func createEvent(ctx context.Context, repos Repositories, in CreateEventInput, now time.Time) (*finance.FinanceEvent, error) {
	if in.Reference == nil {
		return nil, finance.ErrInvalidReference
	}
	if _, isIncident := in.Reference.(finance.IncidentRef); isIncident {
		motive := in.Motive
		exists, err := repos.EventRepo().ExistsActive(ctx, in.Reference, &motive)
		if err != nil {
			return nil, fmt.Errorf("failed to check active incident events: %w", err)
		}
		if exists {
			return nil, finance.ErrDuplicateActiveIncidentEvent
		}
	} else {
		exists, err := repos.EventRepo().ExistsActive(ctx, in.Reference, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to check active booking events: %w", err)
		}
		if exists {
			return nil, finance.ErrDuplicateActiveBookingEvent
		}
	}

	pricingPointID, err := repos.RecipientRepo().FindPricingPointForVenue(ctx, in.VenueID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve pricing point: %w", err)
	}
	event, err := finance.NewFinanceEvent(finance.NewFinanceEventParams{
		Reference:           in.Reference,
		Motive:              in.Motive,
		VenueID:             in.VenueID,
		PricingPointID:      pricingPointID,
		ValueDate:           in.ValueDate,
		PricingOrderingDate: in.PricingOrderingDate,
		Now:                 now,
	})
	if err != nil {
		return nil, err
	}
	if err := repos.EventRepo().Create(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to save finance event: %w", err)
	}
	return event, nil
}

// MarkReady moves a pending event to ready. Already ready events are left untouched.
func (s *EventStore) MarkReady(ctx context.Context, id uuid.UUID) (*finance.FinanceEvent, error) {
	var event *finance.FinanceEvent
	err := s.scope.Execute(ctx, func(repos Repositories) error {
		var err error
		event, err = findEvent(ctx, repos, id)
		if err != nil {
			return err
		}
		if event.Status == finance.EventStatusReady {
			return nil
		}
		if err := event.MarkReady(s.now()); err != nil {
			return err
		}
		return repos.EventRepo().Save(ctx, event)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("finance event ready", zap.String("event_id", id.String()))
	return event, nil
}

// AttachPricingPoint links a venue to its pricing point and promotes every
// pending event of the venue to ready.
func (s *EventStore) AttachPricingPoint(ctx context.Context, venueID, pricingPointID uuid.UUID) (int, error) {
	promoted := 0
	err := s.scope.Execute(ctx, func(repos Repositories) error {
		promoted = 0
		now := s.now()
		if err := repos.RecipientRepo().LinkVenue(ctx, finance.VenuePricingPoint{
			VenueID:        venueID,
			PricingPointID: pricingPointID,
			LinkedAt:       now,
		}); err != nil {
			return fmt.Errorf("failed to link venue: %w", err)
		}
		events, err := repos.EventRepo().ListPendingByVenue(ctx, venueID)
		if err != nil {
			return fmt.Errorf("failed to list pending events: %w", err)
		}
		for _, event := range events {
			if err := event.AttachPricingPoint(pricingPointID, now); err != nil {
				return err
			}
			if err := repos.EventRepo().Save(ctx, event); err != nil {
				return fmt.Errorf("failed to save finance event: %w", err)
			}
			promoted++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.logger.Info("pricing point attached to venue",
		zap.String("venue_id", venueID.String()),
		zap.String("pricing_point_id", pricingPointID.String()),
		zap.Int("promoted_events", promoted),
	)
	return promoted, nil
}

// Cancel cancels an event that has not been priced
func (s *EventStore) Cancel(ctx context.Context, id uuid.UUID, reason string) (*finance.FinanceEvent, error) {
	var (
		event   *finance.FinanceEvent
		pending pendingEvents
	)
	err := s.scope.Execute(ctx, func(repos Repositories) error {
		pending.reset()
		var err error
		event, err = findEvent(ctx, repos, id)
		if err != nil {
			return err
		}
		if err := event.Cancel(reason, s.now()); err != nil {
			return err
		}
		if err := repos.EventRepo().Save(ctx, event); err != nil {
			return fmt.Errorf("failed to save finance event: %w", err)
		}
		pending.collect(event)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("finance event cancelled",
		zap.String("event_id", id.String()),
		zap.String("reason", reason),
	)
	pending.publish(ctx, s.publisher, s.logger)
	return event, nil
}

// OnBookingUsed stores the booking snapshot and records a booking-used event.
// A booking used again after a cancellation gets the
// booking-used-after-cancellation motive.
func (s *EventStore) OnBookingUsed(ctx context.Context, booking finance.BookingSnapshot) (*finance.FinanceEvent, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "finance_event", "on_booking_used")
	defer span.End()

	if err := booking.Validate(); err != nil {
		return nil, err
	}
	var (
		event   *finance.FinanceEvent
		pending pendingEvents
	)
	err := s.scope.Execute(ctx, func(repos Repositories) error {
		pending.reset()
		ref := booking.Reference()
		previous, err := repos.BookingRepo().FindByReference(ctx, ref)
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return fmt.Errorf("failed to load booking: %w", err)
		}
		paid, err := bookingIsPaidFor(ctx, repos, ref)
		if err != nil {
			return err
		}
		if paid {
			return finance.ErrDuplicateActiveBookingEvent.WithMessage("booking " + ref.String() + " is already priced")
		}

		motive := finance.MotiveBookingUsed
		if previous != nil && previous.CancelledAt != nil {
			motive = finance.MotiveBookingUsedAfterCancellation
		}
		snapshot := booking
		snapshot.CancelledAt = nil
		snapshot.UpdatedAt = s.now().UTC()
		if err := repos.BookingRepo().Save(ctx, &snapshot); err != nil {
			return fmt.Errorf("failed to save booking snapshot: %w", err)
		}

		event, err = createEvent(ctx, repos, CreateEventInput{
			Reference: ref,
			Motive:    motive,
			VenueID:   booking.VenueID,
			ValueDate: booking.UsedAt,
		}, s.now())
		if err != nil {
			return err
		}
		pending.collect(event)
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	s.logger.Info("booking used",
		zap.String("booking", event.Reference.String()),
		zap.String("event_id", event.ID.String()),
		zap.String("motive", event.Motive.String()),
	)
	pending.publish(ctx, s.publisher, s.logger)
	return event, nil
}

// OnBookingCancelledAfterUse reacts to a used booking being cancelled. An
// event still waiting for pricing is cancelled and nil is returned; a priced
// booking gets a booking-cancelled-after-use event reversing its pricing.
func (s *EventStore) OnBookingCancelledAfterUse(ctx context.Context, ref finance.BookingReference) (*finance.FinanceEvent, error) {
	return s.reverseBooking(ctx, ref, finance.MotiveBookingCancelledAfterUse, true)
}

// OnBookingMarkedUnused reacts to a used booking being marked unused. An event
// waiting for pricing is cancelled; a priced event whose pricing is still
// validated has the pricing cancelled in place. Once the pricing has been
// swept into a cashflow a booking-unused event reverses it instead.
func (s *EventStore) OnBookingMarkedUnused(ctx context.Context, ref finance.BookingReference) (*finance.FinanceEvent, error) {
	return s.reverseBooking(ctx, ref, finance.MotiveBookingUnused, false)
}

func (s *EventStore) reverseBooking(ctx context.Context, ref finance.BookingReference, motive finance.FinanceEventMotive, cancelBooking bool) (*finance.FinanceEvent, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "finance_event", "reverse_booking")
	defer span.End()
	telemetry.SetAttributes(span, "booking", ref.String(), "motive", string(motive))

	var (
		created *finance.FinanceEvent
		pending pendingEvents
	)
	err := s.scope.Execute(ctx, func(repos Repositories) error {
		pending.reset()
		created = nil
		now := s.now()

		booking, err := repos.BookingRepo().FindByReference(ctx, ref)
		if err != nil {
			return err
		}
		if cancelBooking {
			cancelledAt := now.UTC()
			booking.CancelledAt = &cancelledAt
			booking.UpdatedAt = cancelledAt
			if err := repos.BookingRepo().Save(ctx, booking); err != nil {
				return fmt.Errorf("failed to save booking snapshot: %w", err)
			}
		}

		active, err := repos.EventRepo().FindActiveByReference(ctx, ref)
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return fmt.Errorf("failed to load active event: %w", err)
		}
		if active != nil {
			if err := active.Cancel(string(motive), now); err != nil {
				return err
			}
			if err := repos.EventRepo().Save(ctx, active); err != nil {
				return fmt.Errorf("failed to save finance event: %w", err)
			}
			pending.collect(active)
			return nil
		}

		paid, err := bookingIsPaidFor(ctx, repos, ref)
		if err != nil {
			return err
		}
		if !paid {
			return nil
		}

		if motive == finance.MotiveBookingUnused {
			done, err := s.cancelLatestPricing(ctx, repos, ref, &pending, now)
			if err != nil || done {
				return err
			}
		}

		created, err = createEvent(ctx, repos, CreateEventInput{
			Reference: ref,
			Motive:    motive,
			VenueID:   booking.VenueID,
			ValueDate: now,
		}, now)
		if err != nil {
			return err
		}
		pending.collect(created)
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if created != nil {
		s.logger.Info("booking reversal event created",
			zap.String("booking", ref.String()),
			zap.String("event_id", created.ID.String()),
			zap.String("motive", motive.String()),
		)
	} else {
		s.logger.Info("booking reversal handled without new event",
			zap.String("booking", ref.String()),
			zap.String("motive", motive.String()),
		)
	}
	pending.publish(ctx, s.publisher, s.logger)
	return created, nil
}

// cancelLatestPricing cancels the pricing of the latest processed use event
// of a booking when nothing has been paid yet. It reports false when the
// pricing, or a pricing depending on it, is already settled.
func (s *EventStore) cancelLatestPricing(ctx context.Context, repos Repositories, ref finance.BookingReference, pending *pendingEvents, now time.Time) (bool, error) {
	events, err := repos.EventRepo().ListByReference(ctx, ref)
	if err != nil {
		return false, fmt.Errorf("failed to list booking events: %w", err)
	}
	var latest *finance.FinanceEvent
	for _, e := range events {
		if e.Status == finance.EventStatusProcessed && !e.Motive.IsReversal() {
			latest = e
		}
	}
	if latest == nil {
		return false, nil
	}
	pricing, err := repos.PricingRepo().FindActiveByEvent(ctx, latest.ID)
	if err != nil {
		return false, fmt.Errorf("failed to load pricing: %w", err)
	}
	if pricing.Status() != finance.PricingStatusValidated {
		return false, nil
	}
	reopened, err := cancelDependentPricings(ctx, repos, latest, now)
	if errors.Is(err, finance.ErrNonCancellablePricing) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	log, err := pricing.Transition(finance.PricingStatusCancelled, finance.LogReasonMarkAsUnused, now)
	if err != nil {
		return false, err
	}
	if err := repos.PricingRepo().UpdateStatus(ctx, pricing); err != nil {
		return false, fmt.Errorf("failed to update pricing: %w", err)
	}
	if err := repos.PricingLogRepo().Append(ctx, log); err != nil {
		return false, fmt.Errorf("failed to append pricing log: %w", err)
	}
	if err := latest.CancelPriced(string(finance.MotiveBookingUnused), now); err != nil {
		return false, err
	}
	if err := repos.EventRepo().Save(ctx, latest); err != nil {
		return false, fmt.Errorf("failed to save finance event: %w", err)
	}
	pending.collect(latest)
	for _, e := range reopened {
		pending.collect(e)
	}
	s.logger.Info("pricing cancelled for unused booking",
		zap.String("booking", ref.String()),
		zap.String("pricing_id", pricing.ID().String()),
		zap.Int("reopened_events", len(reopened)),
	)
	return true, nil
}

// bookingIsPaidFor reports whether a booking currently carries money: its
// processed use events outnumber its processed reversal events and the net
// of its active pricings, incident corrections included, is not zero.
func bookingIsPaidFor(ctx context.Context, repos Repositories, ref finance.BookingReference) (bool, error) {
	events, err := repos.EventRepo().ListByReference(ctx, ref)
	if err != nil {
		return false, fmt.Errorf("failed to list booking events: %w", err)
	}
	balance := 0
	for _, e := range events {
		if e.Status != finance.EventStatusProcessed {
			continue
		}
		if e.Motive.IsReversal() {
			balance--
		} else {
			balance++
		}
	}
	if balance <= 0 {
		return false, nil
	}
	pricings, err := repos.PricingRepo().ListActiveByBooking(ctx, ref)
	if err != nil {
		return false, fmt.Errorf("failed to list booking pricings: %w", err)
	}
	pos := finance.NetPosition(pricings)
	return pos.Amount != 0 || pos.Revenue != 0, nil
}

func findEvent(ctx context.Context, repos Repositories, id uuid.UUID) (*finance.FinanceEvent, error) {
	event, err := repos.EventRepo().FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return event, nil
}
