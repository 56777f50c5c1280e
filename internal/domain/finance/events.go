package finance

import (
	"github.com/google/uuid"
	"github.com/pass-culture/pass-culture-main-sub045/internal/domain/shared"
)

// Domain event type names
const (
	EventTypeFinanceEventCreated   = "finance.event.created"
	EventTypeFinanceEventCancelled = "finance.event.cancelled"
	EventTypeFinanceEventPriced    = "finance.event.priced"
	EventTypeCashflowStatusChanged = "finance.cashflow.status_changed"
	EventTypeInvoiceGenerated      = "finance.invoice.generated"
	EventTypeIncidentValidated     = "finance.incident.validated"
	EventTypeIncidentCancelled     = "finance.incident.cancelled"
)

// FinanceEventCreatedEvent is raised when a finance event is recorded
type FinanceEventCreatedEvent struct {
	shared.BaseDomainEvent
	Motive    FinanceEventMotive `json:"motive"`
	Reference string             `json:"reference"`
	Status    FinanceEventStatus `json:"status"`
}

// NewFinanceEventCreatedEvent creates a FinanceEventCreatedEvent
func NewFinanceEventCreatedEvent(e *FinanceEvent) *FinanceEventCreatedEvent {
	return &FinanceEventCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeFinanceEventCreated, aggregateTypeFinanceEvent, e.ID),
		Motive:          e.Motive,
		Reference:       e.Reference.String(),
		Status:          e.Status,
	}
}

// FinanceEventCancelledEvent is raised when a finance event is cancelled
type FinanceEventCancelledEvent struct {
	shared.BaseDomainEvent
	Reason string `json:"reason"`
}

// NewFinanceEventCancelledEvent creates a FinanceEventCancelledEvent
func NewFinanceEventCancelledEvent(e *FinanceEvent, reason string) *FinanceEventCancelledEvent {
	return &FinanceEventCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeFinanceEventCancelled, aggregateTypeFinanceEvent, e.ID),
		Reason:          reason,
	}
}

// FinanceEventPricedEvent is raised once a pricing is attached to an event
type FinanceEventPricedEvent struct {
	shared.BaseDomainEvent
	PricingID      uuid.UUID          `json:"pricing_id"`
	PricingPointID uuid.UUID          `json:"pricing_point_id"`
	Motive         FinanceEventMotive `json:"motive"`
	Amount         int64              `json:"amount"`
}

// NewFinanceEventPricedEvent creates a FinanceEventPricedEvent
func NewFinanceEventPricedEvent(e *FinanceEvent, p *Pricing) *FinanceEventPricedEvent {
	return &FinanceEventPricedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeFinanceEventPriced, aggregateTypeFinanceEvent, e.ID),
		PricingID:       p.ID(),
		PricingPointID:  p.PricingPointID(),
		Motive:          e.Motive,
		Amount:          p.Amount(),
	}
}

// CashflowStatusChangedEvent is raised on every cashflow status change
type CashflowStatusChangedEvent struct {
	shared.BaseDomainEvent
	BankAccountID uuid.UUID      `json:"bank_account_id"`
	From          CashflowStatus `json:"from"`
	To            CashflowStatus `json:"to"`
	Amount        int64          `json:"amount"`
}

// NewCashflowStatusChangedEvent creates a CashflowStatusChangedEvent
func NewCashflowStatusChangedEvent(c *Cashflow, from CashflowStatus) *CashflowStatusChangedEvent {
	return &CashflowStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCashflowStatusChanged, "Cashflow", c.ID),
		BankAccountID:   c.BankAccountID,
		From:            from,
		To:              c.Status,
		Amount:          c.Amount,
	}
}

// InvoiceGeneratedEvent is raised when an invoice is created
type InvoiceGeneratedEvent struct {
	shared.BaseDomainEvent
	BankAccountID uuid.UUID   `json:"bank_account_id"`
	Reference     string      `json:"reference"`
	Amount        int64       `json:"amount"`
	CashflowIDs   []uuid.UUID `json:"cashflow_ids"`
}

// NewInvoiceGeneratedEvent creates an InvoiceGeneratedEvent
func NewInvoiceGeneratedEvent(i *Invoice) *InvoiceGeneratedEvent {
	return &InvoiceGeneratedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceGenerated, "Invoice", i.ID),
		BankAccountID:   i.BankAccountID,
		Reference:       i.Reference,
		Amount:          i.Amount,
		CashflowIDs:     append([]uuid.UUID(nil), i.CashflowIDs...),
	}
}

// IncidentValidatedEvent is raised when an incident is validated
type IncidentValidatedEvent struct {
	shared.BaseDomainEvent
	Kind    IncidentKind `json:"kind"`
	VenueID uuid.UUID    `json:"venue_id"`
}

// NewIncidentValidatedEvent creates an IncidentValidatedEvent
func NewIncidentValidatedEvent(f *FinanceIncident) *IncidentValidatedEvent {
	return &IncidentValidatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeIncidentValidated, "FinanceIncident", f.ID),
		Kind:            f.Kind,
		VenueID:         f.VenueID,
	}
}

// IncidentCancelledEvent is raised when an incident is cancelled
type IncidentCancelledEvent struct {
	shared.BaseDomainEvent
	Kind IncidentKind `json:"kind"`
}

// NewIncidentCancelledEvent creates an IncidentCancelledEvent
func NewIncidentCancelledEvent(f *FinanceIncident) *IncidentCancelledEvent {
	return &IncidentCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeIncidentCancelled, "FinanceIncident", f.ID),
		Kind:            f.Kind,
	}
}
