package finance

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pass-culture/pass-culture-main-sub045/internal/domain/finance"
	"github.com/pass-culture/pass-culture-main-sub045/internal/domain/shared"
	"github.com/pass-culture/pass-culture-main-sub045/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PricingConfig tunes the pricing run
type PricingConfig struct {
	Workers int
	LockTTL time.Duration
	// GracePeriod keeps freshly created events out of the run so that
	// late events with an earlier ordering date can still sort before them.
	GracePeriod time.Duration
	BatchSize   int
}

// DefaultPricingConfig returns the production defaults
func DefaultPricingConfig() PricingConfig {
	return PricingConfig{
		Workers:     4,
		LockTTL:     5 * time.Minute,
		GracePeriod: time.Minute,
		BatchSize:   100,
	}
}

// PricingRunReport summarizes a pricing run
type PricingRunReport struct {
	PricingPoints int `json:"pricing_points"`
	Priced        int `json:"priced"`
	Failed        int `json:"failed"`
	Skipped       int `json:"skipped"`
}

// PricingEngine turns ready finance events into pricings, one pricing point
// at a time and in (pricingOrderingDate, id) order within a pricing point.
type PricingEngine struct {
	scope     TransactionScope
	rules     finance.RuleResolver
	locker    Locker
	queue     *WorkQueue
	publisher shared.EventPublisher
	metrics   *telemetry.LedgerMetrics
	logger    *zap.Logger
	cfg       PricingConfig
	now       func() time.Time
}

// NewPricingEngine creates a new PricingEngine
func NewPricingEngine(
	scope TransactionScope,
	rules finance.RuleResolver,
	locker Locker,
	publisher shared.EventPublisher,
	metrics *telemetry.LedgerMetrics,
	logger *zap.Logger,
	cfg PricingConfig,
) *PricingEngine {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultPricingConfig().BatchSize
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = DefaultPricingConfig().LockTTL
	}
	return &PricingEngine{
		scope:     scope,
		rules:     rules,
		locker:    locker,
		queue:     NewWorkQueue(cfg.Workers),
		publisher: publisher,
		metrics:   metrics,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
	}
}

// WithClock replaces the time source
func (e *PricingEngine) WithClock(now func() time.Time) *PricingEngine {
	e.now = now
	return e
}

// Run prices every ready event ordered before now minus the grace period.
// Pricing points are spread over the work queue; a pricing point whose lease
// is held elsewhere is skipped until the next run.
func (e *PricingEngine) Run(ctx context.Context) (*PricingRunReport, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "pricing_engine", "run")
	defer span.End()

	start := time.Now()
	threshold := e.now().Add(-e.cfg.GracePeriod)

	var points []uuid.UUID
	err := e.scope.Execute(ctx, func(repos Repositories) error {
		var err error
		points, err = repos.EventRepo().ListPricingPointsWithReadyEvents(ctx, threshold)
		return err
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to list pricing points: %w", err)
	}

	report := &PricingRunReport{PricingPoints: len(points)}
	var mu sync.Mutex
	err = e.queue.Process(ctx, points, func(ctx context.Context, worker int, pricingPointID uuid.UUID) {
		var res PricingRunReport
		telemetry.WithProfilingLabels(ctx, telemetry.OperationLabels("price_pricing_point", nil), func(c context.Context) {
			res = e.pricePricingPoint(c, worker, pricingPointID, threshold)
		})
		mu.Lock()
		report.Priced += res.Priced
		report.Failed += res.Failed
		report.Skipped += res.Skipped
		mu.Unlock()
	})

	e.metrics.RecordJobDuration(ctx, "pricing", time.Since(start))
	telemetry.SetAttributes(span,
		"pricing_points", report.PricingPoints,
		"priced", report.Priced,
		"failed", report.Failed,
		"skipped", report.Skipped,
	)
	e.logger.Info("pricing run finished",
		zap.Int("pricing_points", report.PricingPoints),
		zap.Int("priced", report.Priced),
		zap.Int("failed", report.Failed),
		zap.Int("skipped", report.Skipped),
		zap.Duration("duration", time.Since(start)),
	)
	if err != nil {
		telemetry.RecordError(span, err)
		return report, err
	}
	return report, nil
}

// pricePricingPoint prices the queue of one pricing point under its lease,
// extending the lease between batches. The first failure stops the pricing
// point for this run: pricing later events would break the ordering.
func (e *PricingEngine) pricePricingPoint(ctx context.Context, worker int, pricingPointID uuid.UUID, threshold time.Time) PricingRunReport {
	var res PricingRunReport
	log := e.logger.With(
		zap.String("pricing_point_id", pricingPointID.String()),
		zap.Int("worker", worker),
	)

	key := pricingPointLockKey(pricingPointID)
	token, err := e.locker.TryLock(ctx, key, e.cfg.LockTTL)
	if errors.Is(err, finance.ErrLockNotAcquired) {
		log.Info("pricing point locked by another worker, skipping")
		e.metrics.RecordPricingPointSkipped(ctx)
		res.Skipped++
		return res
	}
	if err != nil {
		log.Error("failed to acquire pricing point lease", zap.Error(err))
		e.metrics.RecordPricingError(ctx)
		res.Failed++
		return res
	}
	defer releaseLease(ctx, e.locker, key, token, log)

	for {
		var events []*finance.FinanceEvent
		err := e.scope.Execute(ctx, func(repos Repositories) error {
			var err error
			events, err = repos.EventRepo().ListReadyByPricingPoint(ctx, pricingPointID, threshold, e.cfg.BatchSize)
			return err
		})
		if err != nil {
			log.Error("failed to list ready events", zap.Error(err))
			res.Failed++
			return res
		}
		if len(events) == 0 {
			return res
		}
		for _, event := range events {
			if ctx.Err() != nil {
				return res
			}
			if _, err := e.priceEvent(ctx, event.ID); err != nil {
				log.Warn("failed to price event, stopping pricing point for this run",
					zap.String("event_id", event.ID.String()),
					zap.String("motive", event.Motive.String()),
					zap.Error(err),
				)
				e.metrics.RecordPricingError(ctx)
				res.Failed++
				return res
			}
			res.Priced++
		}
		if len(events) < e.cfg.BatchSize {
			return res
		}
		if err := e.locker.Extend(ctx, key, token, e.cfg.LockTTL); err != nil {
			log.Error("failed to extend pricing point lease, stopping pricing point for this run", zap.Error(err))
			e.metrics.RecordPricingError(ctx)
			res.Failed++
			return res
		}
	}
}

// PriceEvent prices a single ready event under the lease of its pricing
// point. It fails with finance.ErrLockNotAcquired while a pricing run or
// another caller holds that lease.
func (e *PricingEngine) PriceEvent(ctx context.Context, eventID uuid.UUID) (*finance.Pricing, error) {
	var event *finance.FinanceEvent
	err := e.scope.Execute(ctx, func(repos Repositories) error {
		var err error
		event, err = repos.EventRepo().FindByID(ctx, eventID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if event.PricingPointID == nil {
		return e.priceEvent(ctx, eventID)
	}

	key := pricingPointLockKey(*event.PricingPointID)
	token, err := e.locker.TryLock(ctx, key, e.cfg.LockTTL)
	if err != nil {
		return nil, err
	}
	defer releaseLease(ctx, e.locker, key, token, e.logger)
	return e.priceEvent(ctx, eventID)
}

// priceEvent prices a single ready event in its own transaction. The caller
// holds the pricing point lease. Pricings of the same pricing point and
// revenue year that sort after the event are cancelled and their events put
// back to ready so that they are recomputed with the right revenue. Pricing
// an already processed event returns its pricing.
func (e *PricingEngine) priceEvent(ctx context.Context, eventID uuid.UUID) (*finance.Pricing, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "pricing_engine", "price_event")
	defer span.End()
	telemetry.SetAttributes(span, "event_id", eventID.String())

	var (
		pricing *finance.Pricing
		event   *finance.FinanceEvent
		pending pendingEvents
	)
	err := e.scope.Execute(ctx, func(repos Repositories) error {
		pending.reset()
		pricing = nil
		var err error
		event, err = repos.EventRepo().FindByID(ctx, eventID)
		if err != nil {
			return err
		}
		if event.Status == finance.EventStatusProcessed {
			pricing, err = repos.PricingRepo().FindActiveByEvent(ctx, event.ID)
			return err
		}
		if event.Status != finance.EventStatusReady {
			return finance.NewInvalidTransitionError("finance event", event.Status, finance.EventStatusProcessed)
		}
		if event.PricingPointID == nil {
			return finance.ErrInvalidTransition.WithMessage("finance event has no pricing point")
		}
		now := e.now()

		reopened, err := cancelDependentPricings(ctx, repos, event, now)
		if err != nil {
			return err
		}
		for _, ev := range reopened {
			pending.collect(ev)
		}

		params, err := e.computePricing(ctx, repos, event)
		if err != nil {
			return err
		}
		params.Now = now
		var createdLog finance.PricingLog
		pricing, createdLog, err = finance.NewPricing(params)
		if err != nil {
			return err
		}
		if err := repos.PricingRepo().Create(ctx, pricing); err != nil {
			return fmt.Errorf("failed to save pricing: %w", err)
		}
		if err := repos.PricingLogRepo().Append(ctx, createdLog); err != nil {
			return fmt.Errorf("failed to append pricing log: %w", err)
		}
		if err := event.MarkProcessed(now); err != nil {
			return err
		}
		if err := repos.EventRepo().Save(ctx, event); err != nil {
			return fmt.Errorf("failed to save finance event: %w", err)
		}
		pending.collect(event)
		pending.add(finance.NewFinanceEventPricedEvent(event, pricing))
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if len(pending.events) > 0 {
		e.metrics.RecordEventPriced(ctx, string(event.Motive))
		e.logger.Debug("event priced",
			zap.String("event_id", event.ID.String()),
			zap.String("pricing_id", pricing.ID().String()),
			zap.String("motive", event.Motive.String()),
			zap.Int64("amount", pricing.Amount()),
		)
	}
	pending.publish(ctx, e.publisher, e.logger)
	return pricing, nil
}

// computePricing derives the pricing of an event from its motive
func (e *PricingEngine) computePricing(ctx context.Context, repos Repositories, event *finance.FinanceEvent) (finance.PricingParams, error) {
	params := finance.PricingParams{
		EventID:        event.ID,
		VenueID:        event.VenueID,
		PricingPointID: *event.PricingPointID,
		ValueDate:      event.ValueDate,
	}

	switch ref := event.Reference.(type) {
	case finance.BookingReference:
		params.BookingRef = ref
		switch event.Motive {
		case finance.MotiveBookingUsed, finance.MotiveBookingUsedAfterCancellation:
			return e.priceBookingUse(ctx, repos, event, params)
		case finance.MotiveBookingCancelledAfterUse, finance.MotiveBookingUnused:
			return reversalPricing(ctx, repos, params, false)
		}
	case finance.IncidentRef:
		bi, err := repos.IncidentRepo().FindBookingIncident(ctx, ref.BookingFinanceIncidentID)
		if err != nil {
			return params, fmt.Errorf("failed to load booking incident: %w", err)
		}
		params.BookingRef = bi.BookingRef
		params.FromIncident = true
		switch event.Motive {
		case finance.MotiveIncidentReversalOfOriginal:
			return reversalPricing(ctx, repos, params, true)
		case finance.MotiveIncidentNewPrice:
			return newPricePricing(ctx, repos, params, bi)
		case finance.MotiveIncidentCommercialGesture:
			return commercialGesturePricing(ctx, repos, params, bi)
		}
	}
	return params, shared.ErrInvalidInput.WithMessage(
		fmt.Sprintf("cannot price motive %s on %s", event.Motive, event.Reference))
}

func (e *PricingEngine) priceBookingUse(ctx context.Context, repos Repositories, event *finance.FinanceEvent, params finance.PricingParams) (finance.PricingParams, error) {
	booking, err := repos.BookingRepo().FindByReference(ctx, params.BookingRef)
	if err != nil {
		return params, fmt.Errorf("failed to load booking snapshot: %w", err)
	}
	from, to := revenuePeriod(event.ValueDate)
	revenue, err := repos.PricingRepo().SumRevenue(ctx, params.PricingPointID, from, to)
	if err != nil {
		return params, fmt.Errorf("failed to sum revenue: %w", err)
	}
	contribution := revenueContribution(booking.Kind, booking.Amount)

	rule, err := e.rules.RuleFor(ctx, booking, revenue+contribution)
	if err != nil {
		return params, finance.ErrRuleUnavailable.WithCause(err)
	}
	amount := finance.ApplyRate(booking.Amount, rule.Rate)
	params.Amount = amount
	params.Revenue = contribution
	params.Rule = rule
	params.Lines = finance.StandardLines(booking.Amount, amount, rule)
	return params, nil
}

// reversalPricing negates the net position of the booking
func reversalPricing(ctx context.Context, repos Repositories, params finance.PricingParams, fromIncident bool) (finance.PricingParams, error) {
	pos, err := bookingPosition(ctx, repos, params.BookingRef)
	if err != nil {
		return params, err
	}
	params.FromIncident = fromIncident
	params.Amount = -pos.Amount
	params.Revenue = -pos.Revenue
	params.Rule = pos.Rule
	params.Lines = finance.NegateLines(pos.Lines)
	return params, nil
}

// newPricePricing prices the booking at its corrected total and emits the
// difference with the current net position.
func newPricePricing(ctx context.Context, repos Repositories, params finance.PricingParams, bi *finance.BookingFinanceIncident) (finance.PricingParams, error) {
	pos, err := bookingPosition(ctx, repos, params.BookingRef)
	if err != nil {
		return params, err
	}
	newAmount := finance.ApplyRate(bi.NewTotalAmount, pos.Rule.Rate)
	newRevenue := revenueContribution(params.BookingRef.BookingKind(), bi.NewTotalAmount)

	params.Amount = newAmount - pos.Amount
	params.Revenue = newRevenue - pos.Revenue
	params.Rule = pos.Rule
	params.Lines = finance.MergeLines(
		finance.StandardLines(bi.NewTotalAmount, newAmount, pos.Rule),
		finance.NegateLines(pos.Lines),
	)
	return params, nil
}

// commercialGesturePricing pays the contested amount back to the recipient
func commercialGesturePricing(ctx context.Context, repos Repositories, params finance.PricingParams, bi *finance.BookingFinanceIncident) (finance.PricingParams, error) {
	pricings, err := repos.PricingRepo().ListActiveByBooking(ctx, params.BookingRef)
	if err != nil {
		return params, fmt.Errorf("failed to list booking pricings: %w", err)
	}
	rule := finance.ReimbursementRule{Category: finance.DefaultRuleCategory, Rate: decimal.NewFromInt(1)}
	if pos := finance.NetPosition(pricings); pos.Priced {
		rule = pos.Rule
	}
	amount := bi.DueAmount()
	params.Amount = amount
	params.Rule = rule
	params.Lines = []finance.PricingLine{{Category: finance.LineCategoryCommercialGesture, Amount: amount}}
	return params, nil
}

func bookingPosition(ctx context.Context, repos Repositories, ref finance.BookingReference) (finance.BookingPosition, error) {
	pricings, err := repos.PricingRepo().ListActiveByBooking(ctx, ref)
	if err != nil {
		return finance.BookingPosition{}, fmt.Errorf("failed to list booking pricings: %w", err)
	}
	pos := finance.NetPosition(pricings)
	if !pos.Priced {
		return pos, finance.ErrInvalidTransition.WithMessage("booking " + ref.String() + " has no active pricing to correct")
	}
	return pos, nil
}

// cancelDependentPricings cancels the active pricings of the event's pricing
// point, in the same revenue year, whose event sorts after the given one.
// Their events go back to ready. A dependent pricing that already left the
// validated status cannot be recomputed and aborts the operation.
func cancelDependentPricings(ctx context.Context, repos Repositories, event *finance.FinanceEvent, now time.Time) ([]*finance.FinanceEvent, error) {
	if event.PricingPointID == nil {
		return nil, nil
	}
	from, to := revenuePeriod(event.ValueDate)
	dependents, err := repos.PricingRepo().ListActiveOrderedAfter(ctx, *event.PricingPointID, from, to, event.PricingOrderingDate, event.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list dependent pricings: %w", err)
	}
	if len(dependents) == 0 {
		return nil, nil
	}
	for _, p := range dependents {
		if p.Status() != finance.PricingStatusValidated {
			return nil, finance.ErrNonCancellablePricing.WithMessage(fmt.Sprintf(
				"pricing %s is %s and sorts after event %s", p.ID(), p.Status(), event.ID))
		}
	}

	logs := make([]finance.PricingLog, 0, len(dependents))
	eventIDs := make([]uuid.UUID, 0, len(dependents))
	for _, p := range dependents {
		entry, err := p.Transition(finance.PricingStatusCancelled, finance.LogReasonRepriceAfterEarlierEvent, now)
		if err != nil {
			return nil, err
		}
		if err := repos.PricingRepo().UpdateStatus(ctx, p); err != nil {
			return nil, fmt.Errorf("failed to cancel dependent pricing: %w", err)
		}
		logs = append(logs, entry)
		eventIDs = append(eventIDs, p.EventID())
	}
	if err := repos.PricingLogRepo().Append(ctx, logs...); err != nil {
		return nil, fmt.Errorf("failed to append pricing logs: %w", err)
	}

	events, err := repos.EventRepo().ListByIDs(ctx, eventIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load dependent events: %w", err)
	}
	for _, ev := range events {
		if err := ev.Reopen(now); err != nil {
			return nil, err
		}
		if err := repos.EventRepo().Save(ctx, ev); err != nil {
			return nil, fmt.Errorf("failed to reopen dependent event: %w", err)
		}
	}
	return events, nil
}

// revenuePeriod returns [January 1st, next January 1st) of the value date's year, in UTC
func revenuePeriod(valueDate time.Time) (time.Time, time.Time) {
	year := valueDate.UTC().Year()
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	return from, from.AddDate(1, 0, 0)
}

// revenueContribution is what a booking adds to its pricing point's yearly
// revenue. Collective bookings are not counted.
func revenueContribution(kind finance.BookingKind, amount int64) int64 {
	if kind == finance.BookingKindCollective {
		return 0
	}
	return amount
}
