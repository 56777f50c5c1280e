package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	financeapp "github.com/pass-culture/pass-culture-main-sub045/internal/application/finance"
	"github.com/pass-culture/pass-culture-main-sub045/internal/domain/finance"
	"github.com/pass-culture/pass-culture-main-sub045/internal/infrastructure/cache"
	"github.com/pass-culture/pass-culture-main-sub045/internal/infrastructure/event"
	"github.com/pass-culture/pass-culture-main-sub045/internal/infrastructure/persistence"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// LedgerEventTypes lists every domain event the ledger publishes
var LedgerEventTypes = []string{
	finance.EventTypeFinanceEventCreated,
	finance.EventTypeFinanceEventCancelled,
	finance.EventTypeFinanceEventPriced,
	finance.EventTypeCashflowStatusChanged,
	finance.EventTypeInvoiceGenerated,
	finance.EventTypeIncidentValidated,
	finance.EventTypeIncidentCancelled,
}

// Ledger is a fully wired ledger running on a single database with a
// manual clock. Every service shares the same scope, locker and bus.
type Ledger struct {
	DB     *gorm.DB
	Scope  financeapp.TransactionScope
	Bus    *event.InMemoryEventBus
	Locker financeapp.Locker
	Clock  *Clock

	Events     *financeapp.EventStore
	Pricing    *financeapp.PricingEngine
	Cashflows  *financeapp.CashflowBatcher
	Invoices   *financeapp.InvoiceGenerator
	Incidents  *financeapp.IncidentCorrector
	Queries    *financeapp.Queries
	Recipients *financeapp.RecipientService

	// Recorder receives every published domain event
	Recorder *MockEventHandler
}

type ledgerOptions struct {
	rules     finance.RuleResolver
	locker    financeapp.Locker
	documents financeapp.InvoiceDocumentPublisher
	canceller financeapp.BookingCanceller
	pricing   financeapp.PricingConfig
	start     time.Time
}

// LedgerOption configures NewLedger
type LedgerOption func(*ledgerOptions)

// WithRules replaces the default full-rate resolver
func WithRules(rules finance.RuleResolver) LedgerOption {
	return func(o *ledgerOptions) { o.rules = rules }
}

// WithLocker replaces the in-memory locker
func WithLocker(locker financeapp.Locker) LedgerOption {
	return func(o *ledgerOptions) { o.locker = locker }
}

// WithDocuments enables invoice documents
func WithDocuments(documents financeapp.InvoiceDocumentPublisher) LedgerOption {
	return func(o *ledgerOptions) { o.documents = documents }
}

// WithCanceller replaces the snapshot booking canceller
func WithCanceller(canceller financeapp.BookingCanceller) LedgerOption {
	return func(o *ledgerOptions) { o.canceller = canceller }
}

// WithPricingConfig replaces the pricing run settings
func WithPricingConfig(cfg financeapp.PricingConfig) LedgerOption {
	return func(o *ledgerOptions) { o.pricing = cfg }
}

// WithStart sets the initial time of the clock
func WithStart(at time.Time) LedgerOption {
	return func(o *ledgerOptions) { o.start = at }
}

// NewLedger wires the ledger services on db. Events are priced at full rate
// unless WithRules says otherwise, and the pricing run has no grace period.
func NewLedger(t *testing.T, db *gorm.DB, opts ...LedgerOption) *Ledger {
	t.Helper()

	o := ledgerOptions{
		rules: finance.NewTieredRuleResolver("", decimal.NewFromInt(1), nil, nil),
		pricing: financeapp.PricingConfig{
			Workers:   2,
			LockTTL:   time.Minute,
			BatchSize: 10,
		},
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.locker == nil {
		o.locker = cache.NewMemoryLocker()
	}

	log := zap.NewNop()
	clock := NewClock(o.start)
	scope := persistence.NewGormTransactionScope(db)
	bus := event.NewInMemoryEventBus(log)
	require.NoError(t, bus.Start(context.Background()))

	recorder := NewMockEventHandler(LedgerEventTypes...)
	bus.Subscribe(recorder)
	bus.Subscribe(event.NewIdempotentHandler(
		financeapp.NewInvoiceGeneratedHandler(scope, log),
		cache.NewInMemoryIdempotencyStore(),
		log,
	))

	canceller := o.canceller
	if canceller == nil {
		canceller = financeapp.NewSnapshotBookingCanceller(scope, log)
	}

	return &Ledger{
		DB:         db,
		Scope:      scope,
		Bus:        bus,
		Locker:     o.locker,
		Clock:      clock,
		Events:     financeapp.NewEventStore(scope, bus, log).WithClock(clock.Now),
		Pricing:    financeapp.NewPricingEngine(scope, o.rules, o.locker, bus, nil, log, o.pricing).WithClock(clock.Now),
		Cashflows:  financeapp.NewCashflowBatcher(scope, o.locker, bus, nil, log, time.Minute).WithClock(clock.Now),
		Invoices:   financeapp.NewInvoiceGenerator(scope, o.locker, bus, o.documents, nil, log, time.Minute).WithClock(clock.Now),
		Incidents:  financeapp.NewIncidentCorrector(scope, canceller, bus, log).WithClock(clock.Now),
		Queries:    financeapp.NewQueries(scope),
		Recipients: financeapp.NewRecipientService(scope),
		Recorder:   recorder,
	}
}

// Recipient is a venue paid through a pricing point and a bank account
type Recipient struct {
	VenueID        uuid.UUID
	PricingPointID uuid.UUID
	BankAccountID  uuid.UUID
}

// SetupRecipient registers a bank account and routes a new venue to it
// through a new pricing point
func (l *Ledger) SetupRecipient(t *testing.T, label string) Recipient {
	t.Helper()
	ctx := context.Background()

	account, err := l.Recipients.RegisterBankAccount(ctx, financeapp.RegisterBankAccountRequest{
		Label: label,
		IBAN:  "FR7630006000011234567890189",
	})
	require.NoError(t, err)

	r := Recipient{
		VenueID:        uuid.New(),
		PricingPointID: uuid.New(),
		BankAccountID:  account.ID,
	}
	require.NoError(t, l.Recipients.LinkPricingPoint(ctx, r.PricingPointID, r.BankAccountID))
	_, err = l.Events.AttachPricingPoint(ctx, r.VenueID, r.PricingPointID)
	require.NoError(t, err)
	return r
}

// UseBooking records an individual booking of amount used at usedAt
func (l *Ledger) UseBooking(t *testing.T, venueID uuid.UUID, amount int64, usedAt time.Time) (*finance.BookingSnapshot, *finance.FinanceEvent) {
	t.Helper()

	booking := finance.BookingSnapshot{
		ID:            uuid.New(),
		Kind:          finance.BookingKindIndividual,
		VenueID:       venueID,
		OfferCategory: "BOOK",
		Amount:        amount,
		UsedAt:        usedAt.UTC(),
	}
	ev, err := l.Events.OnBookingUsed(context.Background(), booking)
	require.NoError(t, err)
	return &booking, ev
}

// PriceAll moves the clock forward by a second and runs the pricing engine
func (l *Ledger) PriceAll(t *testing.T) *financeapp.PricingRunReport {
	t.Helper()

	l.Clock.Advance(time.Second)
	report, err := l.Pricing.Run(context.Background())
	require.NoError(t, err)
	return report
}

// PricingOf returns the active pricing of an event
func (l *Ledger) PricingOf(t *testing.T, eventID uuid.UUID) *finance.Pricing {
	t.Helper()

	var pricing *finance.Pricing
	err := l.Scope.Execute(context.Background(), func(repos financeapp.Repositories) error {
		var err error
		pricing, err = repos.PricingRepo().FindActiveByEvent(context.Background(), eventID)
		return err
	})
	require.NoError(t, err)
	return pricing
}

// BookingPricings returns the active pricings of a booking, oldest first
func (l *Ledger) BookingPricings(t *testing.T, ref finance.BookingReference) []*finance.Pricing {
	t.Helper()

	var pricings []*finance.Pricing
	err := l.Scope.Execute(context.Background(), func(repos financeapp.Repositories) error {
		var err error
		pricings, err = repos.PricingRepo().ListActiveByBooking(context.Background(), ref)
		return err
	})
	require.NoError(t, err)
	return pricings
}

// Event reloads a finance event
func (l *Ledger) Event(t *testing.T, id uuid.UUID) *finance.FinanceEvent {
	t.Helper()

	var ev *finance.FinanceEvent
	err := l.Scope.Execute(context.Background(), func(repos financeapp.Repositories) error {
		var err error
		ev, err = repos.EventRepo().FindByID(context.Background(), id)
		return err
	})
	require.NoError(t, err)
	return ev
}
