package finance

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pass-culture/pass-culture-main-sub045/internal/domain/shared"
)

// EventFilter narrows event listings
type EventFilter struct {
	shared.Filter
	Status         *FinanceEventStatus
	Motive         *FinanceEventMotive
	PricingPointID *uuid.UUID
	VenueID        *uuid.UUID
}

// FinanceEventRepository persists finance events
type FinanceEventRepository interface {
	Create(ctx context.Context, event *FinanceEvent) error
	Save(ctx context.Context, event *FinanceEvent) error
	FindByID(ctx context.Context, id uuid.UUID) (*FinanceEvent, error)
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]*FinanceEvent, error)
	List(ctx context.Context, filter EventFilter) ([]*FinanceEvent, int64, error)

	// ExistsActive reports whether a pending or ready event exists for the
	// reference, optionally restricted to a motive.
	ExistsActive(ctx context.Context, ref EventReference, motive *FinanceEventMotive) (bool, error)
	// FindActiveByReference returns the pending or ready event of a reference
	FindActiveByReference(ctx context.Context, ref EventReference) (*FinanceEvent, error)
	// ListByReference returns every event of a reference, oldest first
	ListByReference(ctx context.Context, ref EventReference) ([]*FinanceEvent, error)
	ListPendingByVenue(ctx context.Context, venueID uuid.UUID) ([]*FinanceEvent, error)

	// ListPricingPointsWithReadyEvents returns pricing points owning at least
	// one ready event ordered before the threshold.
	ListPricingPointsWithReadyEvents(ctx context.Context, orderedBefore time.Time) ([]uuid.UUID, error)
	// ListReadyByPricingPoint returns ready events in (pricingOrderingDate, id) order
	ListReadyByPricingPoint(ctx context.Context, pricingPointID uuid.UUID, orderedBefore time.Time, limit int) ([]*FinanceEvent, error)
}

// PricingRepository persists pricings and their lines. Pricing amounts are
// never updated: only UpdateStatus writes to an existing row.
type PricingRepository interface {
	Create(ctx context.Context, pricing *Pricing) error
	UpdateStatus(ctx context.Context, pricing *Pricing) error
	FindByID(ctx context.Context, id uuid.UUID) (*Pricing, error)
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]*Pricing, error)
	FindActiveByEvent(ctx context.Context, eventID uuid.UUID) (*Pricing, error)
	ListByEvents(ctx context.Context, eventIDs []uuid.UUID) ([]*Pricing, error)
	// ListActiveByBooking returns the non-cancelled pricings of a booking, incident
	// corrections included, oldest first
	ListActiveByBooking(ctx context.Context, ref BookingReference) ([]*Pricing, error)
	// ListActiveOrderedAfter returns non-cancelled pricings of the pricing point
	// whose value date lies in [from, to) and whose event sorts after the key.
	ListActiveOrderedAfter(ctx context.Context, pricingPointID uuid.UUID, from, to time.Time, orderingDate time.Time, eventID uuid.UUID) ([]*Pricing, error)
	// SumRevenue sums the revenue of non-cancelled pricings with value date in [from, to)
	SumRevenue(ctx context.Context, pricingPointID uuid.UUID, from, to time.Time) (int64, error)
	// ListBankAccountsWithValidated returns bank accounts owed validated pricings created up to cutoff
	ListBankAccountsWithValidated(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error)
	ListValidatedForBankAccount(ctx context.Context, bankAccountID uuid.UUID, cutoff time.Time) ([]*Pricing, error)
	ListByCashflows(ctx context.Context, cashflowIDs []uuid.UUID) ([]*Pricing, error)
	SumByStatusForBankAccount(ctx context.Context, bankAccountID uuid.UUID) (map[PricingStatus]int64, error)
}

// PricingLogRepository is the append-only audit trail of pricings
type PricingLogRepository interface {
	Append(ctx context.Context, entries ...PricingLog) error
	ListByPricing(ctx context.Context, pricingID uuid.UUID) ([]PricingLog, error)
}

// CashflowFilter narrows cashflow listings
type CashflowFilter struct {
	shared.Filter
	BankAccountID *uuid.UUID
	Status        *CashflowStatus
	BatchID       *uuid.UUID
}

// CashflowRepository persists batches, cashflows and their logs
type CashflowRepository interface {
	FindBatchByCutoff(ctx context.Context, cutoff time.Time) (*CashflowBatch, error)
	CountBatches(ctx context.Context) (int64, error)
	CreateBatch(ctx context.Context, batch *CashflowBatch) error

	Create(ctx context.Context, cashflow *Cashflow) error
	Save(ctx context.Context, cashflow *Cashflow) error
	FindByID(ctx context.Context, id uuid.UUID) (*Cashflow, error)
	List(ctx context.Context, filter CashflowFilter) ([]*Cashflow, int64, error)
	ListByBatch(ctx context.Context, batchID uuid.UUID) ([]*Cashflow, error)
	// ListAcceptedUninvoiced returns accepted cashflows not yet attached to an invoice
	ListAcceptedUninvoiced(ctx context.Context, bankAccountID uuid.UUID) ([]*Cashflow, error)
	ListBankAccountsWithAcceptedUninvoiced(ctx context.Context) ([]uuid.UUID, error)
	// ListByPricing returns the cashflows a pricing has been part of, rejected ones included
	ListByPricing(ctx context.Context, pricingID uuid.UUID) ([]*Cashflow, error)

	AppendLog(ctx context.Context, entry CashflowLog) error
	ListLogs(ctx context.Context, cashflowID uuid.UUID) ([]CashflowLog, error)
}

// InvoiceRepository persists invoices and their lines
type InvoiceRepository interface {
	Create(ctx context.Context, invoice *Invoice) error
	Save(ctx context.Context, invoice *Invoice) error
	FindByID(ctx context.Context, id uuid.UUID) (*Invoice, error)
	ListByBankAccount(ctx context.Context, bankAccountID uuid.UUID, filter shared.Filter) ([]*Invoice, int64, error)
	CountByReferencePrefix(ctx context.Context, prefix string) (int64, error)
}

// IncidentRepository persists finance incidents and their booking parts
type IncidentRepository interface {
	Create(ctx context.Context, incident *FinanceIncident) error
	Save(ctx context.Context, incident *FinanceIncident) error
	FindByID(ctx context.Context, id uuid.UUID) (*FinanceIncident, error)
	FindBookingIncident(ctx context.Context, id uuid.UUID) (*BookingFinanceIncident, error)
	ListIncidentIDsByBookingIncidents(ctx context.Context, bookingIncidentIDs []uuid.UUID) ([]uuid.UUID, error)
	// HasOpenIncident reports whether a created or validated incident concerns the booking
	HasOpenIncident(ctx context.Context, ref BookingReference) (bool, error)
}

// BookingRepository stores the booking snapshots taken by the ledger
type BookingRepository interface {
	Save(ctx context.Context, booking *BookingSnapshot) error
	FindByReference(ctx context.Context, ref BookingReference) (*BookingSnapshot, error)
}

// RecipientRepository resolves who is paid for what
type RecipientRepository interface {
	SaveBankAccount(ctx context.Context, account *BankAccount) error
	FindBankAccount(ctx context.Context, id uuid.UUID) (*BankAccount, error)
	LinkPricingPoint(ctx context.Context, link PricingPointLink) error
	LinkVenue(ctx context.Context, link VenuePricingPoint) error
	FindPricingPointForVenue(ctx context.Context, venueID uuid.UUID) (*uuid.UUID, error)
}
