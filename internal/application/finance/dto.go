package finance

import (
	"time"

	"github.com/google/uuid"
	"github.com/pass-culture/pass-culture-main-sub045/internal/domain/finance"
	"github.com/shopspring/decimal"
)

// CreateEventRequest represents a request to record a finance event.
// Exactly one of the reference ids must be set.
type CreateEventRequest struct {
	BookingID                *uuid.UUID `json:"booking_id"`
	CollectiveBookingID      *uuid.UUID `json:"collective_booking_id"`
	BookingFinanceIncidentID *uuid.UUID `json:"booking_finance_incident_id"`
	Motive                   string     `json:"motive" binding:"required,finance_motive"`
	VenueID                  uuid.UUID  `json:"venue_id" binding:"required"`
	ValueDate                time.Time  `json:"value_date" binding:"required"`
	PricingOrderingDate      *time.Time `json:"pricing_ordering_date"`
}

// ToInput validates the reference and builds the service input
func (r CreateEventRequest) ToInput() (CreateEventInput, error) {
	ref, err := finance.ReferenceColumns{
		BookingID:                r.BookingID,
		CollectiveBookingID:      r.CollectiveBookingID,
		BookingFinanceIncidentID: r.BookingFinanceIncidentID,
	}.Reference()
	if err != nil {
		return CreateEventInput{}, err
	}
	return CreateEventInput{
		Reference:           ref,
		Motive:              finance.FinanceEventMotive(r.Motive),
		VenueID:             r.VenueID,
		ValueDate:           r.ValueDate,
		PricingOrderingDate: r.PricingOrderingDate,
	}, nil
}

// CancelEventRequest represents a request to cancel an unpriced event
type CancelEventRequest struct {
	Reason string `json:"reason" binding:"max=200"`
}

// BookingUsedRequest is the booking system callback sent when a booking is used
type BookingUsedRequest struct {
	BookingID     uuid.UUID `json:"booking_id" binding:"required"`
	Kind          string    `json:"kind" binding:"required,booking_kind"`
	VenueID       uuid.UUID `json:"venue_id" binding:"required"`
	OfferCategory string    `json:"offer_category" binding:"max=100"`
	Amount        int64     `json:"amount" binding:"min=0"`
	UsedAt        time.Time `json:"used_at" binding:"required"`
}

// ToSnapshot converts the request into a booking snapshot
func (r BookingUsedRequest) ToSnapshot() finance.BookingSnapshot {
	return finance.BookingSnapshot{
		ID:            r.BookingID,
		Kind:          finance.BookingKind(r.Kind),
		VenueID:       r.VenueID,
		OfferCategory: r.OfferCategory,
		Amount:        r.Amount,
		UsedAt:        r.UsedAt,
	}
}

// AttachPricingPointRequest links a venue to a pricing point
type AttachPricingPointRequest struct {
	PricingPointID uuid.UUID `json:"pricing_point_id" binding:"required"`
}

// RegisterBankAccountRequest represents a request to register a bank account
type RegisterBankAccountRequest struct {
	Label string `json:"label" binding:"required,min=1,max=140"`
	IBAN  string `json:"iban" binding:"required,min=15,max=34"`
}

// BankAccountStatusRequest turns transfers to a bank account on or off
type BankAccountStatusRequest struct {
	Active *bool `json:"active" binding:"required"`
}

// LinkBankAccountRequest attaches a pricing point to the bank account paid for it
type LinkBankAccountRequest struct {
	BankAccountID uuid.UUID `json:"bank_account_id" binding:"required"`
}

// RunBatchRequest triggers a cashflow batch
type RunBatchRequest struct {
	Cutoff time.Time `json:"cutoff" binding:"required"`
}

// UpdateCashflowStatusRequest carries the bank's answer for a cashflow
type UpdateCashflowStatusRequest struct {
	Status  string         `json:"status" binding:"required,oneof=under-review accepted rejected"`
	Details map[string]any `json:"details"`
}

// UpdateInvoiceStatusRequest represents a request to settle an invoice
type UpdateInvoiceStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=processed rejected"`
}

// IncidentBookingRequest is one contested booking
type IncidentBookingRequest struct {
	BookingID      uuid.UUID `json:"booking_id" binding:"required"`
	Kind           string    `json:"kind" binding:"required,booking_kind"`
	NewTotalAmount int64     `json:"new_total_amount" binding:"min=0"`
}

// CreateIncidentRequest represents a request to open a finance incident
type CreateIncidentRequest struct {
	VenueID  uuid.UUID                `json:"venue_id" binding:"required"`
	Kind     string                   `json:"kind" binding:"required,incident_kind"`
	Origin   string                   `json:"origin" binding:"max=200"`
	Bookings []IncidentBookingRequest `json:"bookings" binding:"required,min=1,dive"`
}

// ToInput builds the service input
func (r CreateIncidentRequest) ToInput() (CreateIncidentInput, error) {
	in := CreateIncidentInput{
		VenueID:  r.VenueID,
		Kind:     finance.IncidentKind(r.Kind),
		Origin:   r.Origin,
		Bookings: make([]IncidentBookingInput, 0, len(r.Bookings)),
	}
	for _, b := range r.Bookings {
		ref, err := finance.NewBookingReference(finance.BookingKind(b.Kind), b.BookingID)
		if err != nil {
			return CreateIncidentInput{}, err
		}
		in.Bookings = append(in.Bookings, IncidentBookingInput{Ref: ref, NewTotalAmount: b.NewTotalAmount})
	}
	return in, nil
}

// CancelIncidentRequest represents a request to cancel an incident
type CancelIncidentRequest struct {
	Comment string `json:"comment" binding:"max=500"`
}

// EventListFilter represents filter options for event lists
type EventListFilter struct {
	Status         string     `form:"status" binding:"omitempty,oneof=pending ready processed cancelled"`
	Motive         string     `form:"motive" binding:"omitempty,finance_motive"`
	PricingPointID string `form:"pricing_point_id" binding:"omitempty,uuid"`
	VenueID        string `form:"venue_id" binding:"omitempty,uuid"`
	SortBy         string `form:"sort_by" binding:"omitempty,oneof=pricing_ordering_date value_date created_at"`
	SortOrder      string `form:"sort_order" binding:"omitempty,oneof=asc desc"`
	Page           int    `form:"page" binding:"omitempty,min=1"`
	PageSize       int    `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// CashflowListFilter represents filter options for cashflow lists
type CashflowListFilter struct {
	Status    string `form:"status" binding:"omitempty,oneof=pending under-review accepted rejected"`
	SortBy    string `form:"sort_by" binding:"omitempty,oneof=created_at amount"`
	SortOrder string `form:"sort_order" binding:"omitempty,oneof=asc desc"`
	Page      int    `form:"page" binding:"omitempty,min=1"`
	PageSize  int    `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// PageFilter represents plain pagination options
type PageFilter struct {
	Page     int `form:"page" binding:"omitempty,min=1"`
	PageSize int `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// EventResponse represents a finance event in API responses
type EventResponse struct {
	ID                  uuid.UUID  `json:"id"`
	Reference           string     `json:"reference"`
	ReferenceKind       string     `json:"reference_kind"`
	ReferenceID         uuid.UUID  `json:"reference_id"`
	Motive              string     `json:"motive"`
	Status              string     `json:"status"`
	VenueID             uuid.UUID  `json:"venue_id"`
	PricingPointID      *uuid.UUID `json:"pricing_point_id,omitempty"`
	ValueDate           time.Time  `json:"value_date"`
	PricingOrderingDate time.Time  `json:"pricing_ordering_date"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// ToEventResponse converts a FinanceEvent
func ToEventResponse(e *finance.FinanceEvent) EventResponse {
	return EventResponse{
		ID:                  e.ID,
		Reference:           e.Reference.String(),
		ReferenceKind:       string(e.Reference.Kind()),
		ReferenceID:         e.Reference.ID(),
		Motive:              string(e.Motive),
		Status:              string(e.Status),
		VenueID:             e.VenueID,
		PricingPointID:      e.PricingPointID,
		ValueDate:           e.ValueDate,
		PricingOrderingDate: e.PricingOrderingDate,
		CreatedAt:           e.CreatedAt,
		UpdatedAt:           e.UpdatedAt,
	}
}

// PricingLineResponse is one line of a pricing
type PricingLineResponse struct {
	Category string `json:"category"`
	Amount   int64  `json:"amount"`
}

// PricingLogResponse is one audit entry of a pricing
type PricingLogResponse struct {
	StatusBefore *string   `json:"status_before"`
	StatusAfter  string    `json:"status_after"`
	Reason       string    `json:"reason"`
	Timestamp    time.Time `json:"timestamp"`
}

// PricingResponse represents a pricing in API responses
type PricingResponse struct {
	ID             uuid.UUID             `json:"id"`
	EventID        uuid.UUID             `json:"event_id"`
	PricingPointID uuid.UUID             `json:"pricing_point_id"`
	VenueID        uuid.UUID             `json:"venue_id"`
	Booking        string                `json:"booking"`
	Status         string                `json:"status"`
	Amount         int64                 `json:"amount"`
	Revenue        int64                 `json:"revenue"`
	RuleCategory   string                `json:"rule_category"`
	RuleRate       decimal.Decimal       `json:"rule_rate"`
	FromIncident   bool                  `json:"from_incident"`
	ValueDate      time.Time             `json:"value_date"`
	CreatedAt      time.Time             `json:"created_at"`
	Lines          []PricingLineResponse `json:"lines"`
	Logs           []PricingLogResponse  `json:"logs,omitempty"`
}

// ToPricingResponse converts a Pricing and its optional audit trail
func ToPricingResponse(p *finance.Pricing, logs []finance.PricingLog) PricingResponse {
	resp := PricingResponse{
		ID:             p.ID(),
		EventID:        p.EventID(),
		PricingPointID: p.PricingPointID(),
		VenueID:        p.VenueID(),
		Booking:        p.BookingRef().String(),
		Status:         string(p.Status()),
		Amount:         p.Amount(),
		Revenue:        p.Revenue(),
		RuleCategory:   p.Rule().Category,
		RuleRate:       p.Rule().Rate,
		FromIncident:   p.FromIncident(),
		ValueDate:      p.ValueDate(),
		CreatedAt:      p.CreatedAt(),
	}
	for _, l := range p.Lines() {
		resp.Lines = append(resp.Lines, PricingLineResponse{Category: string(l.Category), Amount: l.Amount})
	}
	for _, l := range logs {
		entry := PricingLogResponse{
			StatusAfter: string(l.StatusAfter),
			Reason:      string(l.Reason),
			Timestamp:   l.Timestamp,
		}
		if l.StatusBefore != nil {
			before := string(*l.StatusBefore)
			entry.StatusBefore = &before
		}
		resp.Logs = append(resp.Logs, entry)
	}
	return resp
}

// CashflowLogResponse is one status change of a cashflow
type CashflowLogResponse struct {
	StatusBefore string         `json:"status_before"`
	StatusAfter  string         `json:"status_after"`
	Details      map[string]any `json:"details,omitempty"`
	Timestamp    time.Time      `json:"timestamp"`
}

// CashflowResponse represents a cashflow in API responses
type CashflowResponse struct {
	ID            uuid.UUID             `json:"id"`
	BatchID       uuid.UUID             `json:"batch_id"`
	BankAccountID uuid.UUID             `json:"bank_account_id"`
	Amount        int64                 `json:"amount"`
	Status        string                `json:"status"`
	PricingIDs    []uuid.UUID           `json:"pricing_ids"`
	CreatedAt     time.Time             `json:"created_at"`
	Pricings      []PricingResponse     `json:"pricings,omitempty"`
	Logs          []CashflowLogResponse `json:"logs,omitempty"`
}

// ToCashflowResponse converts a Cashflow
func ToCashflowResponse(c *finance.Cashflow) CashflowResponse {
	return CashflowResponse{
		ID:            c.ID,
		BatchID:       c.BatchID,
		BankAccountID: c.BankAccountID,
		Amount:        c.Amount,
		Status:        string(c.Status),
		PricingIDs:    c.PricingIDs,
		CreatedAt:     c.CreatedAt,
	}
}

// BatchResponse represents a cashflow batch run
type BatchResponse struct {
	ID                 *uuid.UUID         `json:"id,omitempty"`
	Label              string             `json:"label,omitempty"`
	Cutoff             time.Time          `json:"cutoff"`
	Cashflows          []CashflowResponse `json:"cashflows"`
	FailedBankAccounts []uuid.UUID        `json:"failed_bank_accounts,omitempty"`
}

// ToBatchResponse converts a BatchResult
func ToBatchResponse(r *BatchResult) BatchResponse {
	resp := BatchResponse{
		Cutoff:             r.Cutoff,
		Cashflows:          make([]CashflowResponse, 0, len(r.Cashflows)),
		FailedBankAccounts: r.FailedBankAccounts,
	}
	if r.Batch != nil {
		id := r.Batch.ID
		resp.ID = &id
		resp.Label = r.Batch.Label
		resp.Cutoff = r.Batch.Cutoff
	}
	for _, c := range r.Cashflows {
		resp.Cashflows = append(resp.Cashflows, ToCashflowResponse(c))
	}
	return resp
}

// InvoiceLineResponse is one group of an invoice
type InvoiceLineResponse struct {
	Label              string          `json:"label"`
	Category           string          `json:"category"`
	Incident           bool            `json:"incident"`
	Rate               decimal.Decimal `json:"rate"`
	ContributionAmount int64           `json:"contribution_amount"`
	ReimbursedAmount   int64           `json:"reimbursed_amount"`
}

// InvoiceResponse represents an invoice in API responses
type InvoiceResponse struct {
	ID            uuid.UUID             `json:"id"`
	BankAccountID uuid.UUID             `json:"bank_account_id"`
	Reference     string                `json:"reference"`
	Date          time.Time             `json:"date"`
	Amount        int64                 `json:"amount"`
	Status        string                `json:"status"`
	CashflowIDs   []uuid.UUID           `json:"cashflow_ids"`
	Lines         []InvoiceLineResponse `json:"lines,omitempty"`
}

// ToInvoiceResponse converts an Invoice. The token is never exposed.
func ToInvoiceResponse(i *finance.Invoice) InvoiceResponse {
	resp := InvoiceResponse{
		ID:            i.ID,
		BankAccountID: i.BankAccountID,
		Reference:     i.Reference,
		Date:          i.Date,
		Amount:        i.Amount,
		Status:        string(i.Status),
		CashflowIDs:   i.CashflowIDs,
	}
	for _, l := range i.Lines {
		resp.Lines = append(resp.Lines, InvoiceLineResponse{
			Label:              l.Label,
			Category:           l.Group.Category,
			Incident:           l.Group.Incident,
			Rate:               l.Rate,
			ContributionAmount: l.ContributionAmount,
			ReimbursedAmount:   l.ReimbursedAmount,
		})
	}
	return resp
}

// BookingIncidentResponse is one contested booking of an incident
type BookingIncidentResponse struct {
	ID             uuid.UUID `json:"id"`
	Booking        string    `json:"booking"`
	OriginalAmount int64     `json:"original_amount"`
	NewTotalAmount int64     `json:"new_total_amount"`
	DueAmount      int64     `json:"due_amount"`
}

// IncidentResponse represents a finance incident in API responses
type IncidentResponse struct {
	ID          uuid.UUID                 `json:"id"`
	VenueID     uuid.UUID                 `json:"venue_id"`
	Kind        string                    `json:"kind"`
	Status      string                    `json:"status"`
	Origin      string                    `json:"origin,omitempty"`
	Comment     string                    `json:"comment,omitempty"`
	ValidatedAt *time.Time                `json:"validated_at,omitempty"`
	CreatedAt   time.Time                 `json:"created_at"`
	Bookings    []BookingIncidentResponse `json:"bookings"`
}

// ToIncidentResponse converts a FinanceIncident
func ToIncidentResponse(f *finance.FinanceIncident) IncidentResponse {
	resp := IncidentResponse{
		ID:          f.ID,
		VenueID:     f.VenueID,
		Kind:        string(f.Kind),
		Status:      string(f.Status),
		Origin:      f.Origin,
		Comment:     f.Comment,
		ValidatedAt: f.ValidatedAt,
		CreatedAt:   f.CreatedAt,
		Bookings:    make([]BookingIncidentResponse, 0, len(f.BookingIncidents)),
	}
	for i := range f.BookingIncidents {
		b := &f.BookingIncidents[i]
		resp.Bookings = append(resp.Bookings, BookingIncidentResponse{
			ID:             b.ID,
			Booking:        b.BookingRef.String(),
			OriginalAmount: b.OriginalAmount,
			NewTotalAmount: b.NewTotalAmount,
			DueAmount:      b.DueAmount(),
		})
	}
	return resp
}

// BankAccountResponse represents a bank account in API responses
type BankAccountResponse struct {
	ID        uuid.UUID `json:"id"`
	Label     string    `json:"label"`
	IBAN      string    `json:"iban"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// ToBankAccountResponse converts a BankAccount
func ToBankAccountResponse(a *finance.BankAccount) BankAccountResponse {
	return BankAccountResponse{
		ID:        a.ID,
		Label:     a.Label,
		IBAN:      a.IBAN,
		Active:    a.Active,
		CreatedAt: a.CreatedAt,
	}
}

// BankAccountSummary is what a bank account has been priced, paid and invoiced
type BankAccountSummary struct {
	BankAccountID    uuid.UUID `json:"bank_account_id"`
	TotalPriced      int64     `json:"total_priced"`
	TotalPending     int64     `json:"total_pending"`
	TotalInCashflows int64     `json:"total_in_cashflows"`
	TotalInvoiced    int64     `json:"total_invoiced"`
}
