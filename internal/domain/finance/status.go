package finance

// FinanceEventStatus is the lifecycle state of a FinanceEvent
type FinanceEventStatus string

const (
	EventStatusPending   FinanceEventStatus = "pending"   // no pricing point known yet
	EventStatusReady     FinanceEventStatus = "ready"     // waiting for the pricing engine
	EventStatusProcessed FinanceEventStatus = "processed" // an active pricing is attached
	EventStatusCancelled FinanceEventStatus = "cancelled"
)

// IsValid checks if the status is a valid FinanceEventStatus
func (s FinanceEventStatus) IsValid() bool {
	switch s {
	case EventStatusPending, EventStatusReady, EventStatusProcessed, EventStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of FinanceEventStatus
func (s FinanceEventStatus) String() string {
	return string(s)
}

// IsActive reports whether the event still waits to be priced
func (s FinanceEventStatus) IsActive() bool {
	return s == EventStatusPending || s == EventStatusReady
}

// IsTerminal returns true for cancelled events
func (s FinanceEventStatus) IsTerminal() bool {
	return s == EventStatusCancelled
}

// CanTransitionTo reports whether the event may move to the given status.
// processed -> ready happens when the pricing is cancelled to be recomputed.
func (s FinanceEventStatus) CanTransitionTo(to FinanceEventStatus) bool {
	switch s {
	case EventStatusPending:
		return to == EventStatusReady || to == EventStatusCancelled
	case EventStatusReady:
		return to == EventStatusProcessed || to == EventStatusCancelled
	case EventStatusProcessed:
		return to == EventStatusReady || to == EventStatusCancelled
	}
	return false
}

// AllEventStatuses lists every FinanceEventStatus
func AllEventStatuses() []FinanceEventStatus {
	return []FinanceEventStatus{EventStatusPending, EventStatusReady, EventStatusProcessed, EventStatusCancelled}
}

// FinanceEventMotive is the business reason a FinanceEvent was created
type FinanceEventMotive string

const (
	MotiveBookingUsed                  FinanceEventMotive = "booking-used"
	MotiveBookingUsedAfterCancellation FinanceEventMotive = "booking-used-after-cancellation"
	MotiveBookingUnused                FinanceEventMotive = "booking-unused"
	MotiveBookingCancelledAfterUse     FinanceEventMotive = "booking-cancelled-after-use"
	MotiveIncidentReversalOfOriginal   FinanceEventMotive = "incident-reversal-of-original-event"
	MotiveIncidentNewPrice             FinanceEventMotive = "incident-new-price"
	MotiveIncidentCommercialGesture    FinanceEventMotive = "incident-commercial-gesture"
)

// IsValid checks if the motive is known
func (m FinanceEventMotive) IsValid() bool {
	switch m {
	case MotiveBookingUsed, MotiveBookingUsedAfterCancellation, MotiveBookingUnused,
		MotiveBookingCancelledAfterUse, MotiveIncidentReversalOfOriginal,
		MotiveIncidentNewPrice, MotiveIncidentCommercialGesture:
		return true
	}
	return false
}

// String returns the string representation of FinanceEventMotive
func (m FinanceEventMotive) String() string {
	return string(m)
}

// IsIncident reports whether events with this motive must reference a booking finance incident
func (m FinanceEventMotive) IsIncident() bool {
	switch m {
	case MotiveIncidentReversalOfOriginal, MotiveIncidentNewPrice, MotiveIncidentCommercialGesture:
		return true
	}
	return false
}

// IsReversal reports whether the pricing of this motive negates an earlier pricing
func (m FinanceEventMotive) IsReversal() bool {
	switch m {
	case MotiveBookingCancelledAfterUse, MotiveBookingUnused, MotiveIncidentReversalOfOriginal:
		return true
	}
	return false
}

// PricingStatus is the lifecycle state of a Pricing
type PricingStatus string

const (
	PricingStatusValidated PricingStatus = "validated" // priced, not in a cashflow
	PricingStatusProcessed PricingStatus = "processed" // included in a cashflow
	PricingStatusInvoiced  PricingStatus = "invoiced"  // included in an invoice
	PricingStatusCancelled PricingStatus = "cancelled"
)

// IsValid checks if the status is a valid PricingStatus
func (s PricingStatus) IsValid() bool {
	switch s {
	case PricingStatusValidated, PricingStatusProcessed, PricingStatusInvoiced, PricingStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of PricingStatus
func (s PricingStatus) String() string {
	return string(s)
}

// IsActive reports whether the pricing still counts in the ledger
func (s PricingStatus) IsActive() bool {
	return s != PricingStatusCancelled
}

// IsSettled reports whether the pricing has entered a bank transfer
func (s PricingStatus) IsSettled() bool {
	return s == PricingStatusProcessed || s == PricingStatusInvoiced
}

// CanTransitionTo reports whether the pricing may move to the given status
func (s PricingStatus) CanTransitionTo(to PricingStatus) bool {
	switch s {
	case PricingStatusValidated:
		return to == PricingStatusProcessed || to == PricingStatusCancelled
	case PricingStatusProcessed:
		return to == PricingStatusInvoiced || to == PricingStatusValidated
	}
	return false
}

// PricingLineCategory classifies a pricing line
type PricingLineCategory string

const (
	LineCategoryOffererRevenue      PricingLineCategory = "offerer-revenue"
	LineCategoryOffererContribution PricingLineCategory = "offerer-contribution"
	LineCategoryCommercialGesture   PricingLineCategory = "commercial-gesture"
)

// String returns the string representation of PricingLineCategory
func (c PricingLineCategory) String() string {
	return string(c)
}

// PricingLogReason explains a pricing status change
type PricingLogReason string

const (
	LogReasonPriced                   PricingLogReason = "priced"
	LogReasonMarkAsUnused             PricingLogReason = "mark-as-unused"
	LogReasonCancelBooking            PricingLogReason = "cancel-booking"
	LogReasonCancelIncident           PricingLogReason = "cancel-incident"
	LogReasonRepriceAfterEarlierEvent PricingLogReason = "reprice-after-earlier-event"
	LogReasonGenerateCashflow         PricingLogReason = "generate-cashflow"
	LogReasonCashflowRejected         PricingLogReason = "cashflow-rejected"
	LogReasonGenerateInvoice          PricingLogReason = "generate-invoice"
)

// String returns the string representation of PricingLogReason
func (r PricingLogReason) String() string {
	return string(r)
}

// CashflowStatus is the banking state of a Cashflow
type CashflowStatus string

const (
	CashflowStatusPending     CashflowStatus = "pending"
	CashflowStatusUnderReview CashflowStatus = "under-review"
	CashflowStatusAccepted    CashflowStatus = "accepted"
	CashflowStatusRejected    CashflowStatus = "rejected"
)

// IsValid checks if the status is a valid CashflowStatus
func (s CashflowStatus) IsValid() bool {
	switch s {
	case CashflowStatusPending, CashflowStatusUnderReview, CashflowStatusAccepted, CashflowStatusRejected:
		return true
	}
	return false
}

// String returns the string representation of CashflowStatus
func (s CashflowStatus) String() string {
	return string(s)
}

// IsTerminal returns true once the bank has answered
func (s CashflowStatus) IsTerminal() bool {
	return s == CashflowStatusAccepted || s == CashflowStatusRejected
}

// CanTransitionTo reports whether the cashflow may move to the given status
func (s CashflowStatus) CanTransitionTo(to CashflowStatus) bool {
	switch s {
	case CashflowStatusPending:
		return to == CashflowStatusUnderReview || to == CashflowStatusAccepted || to == CashflowStatusRejected
	case CashflowStatusUnderReview:
		return to == CashflowStatusAccepted || to == CashflowStatusRejected
	}
	return false
}

// InvoiceStatus is the state of an Invoice
type InvoiceStatus string

const (
	InvoiceStatusPending   InvoiceStatus = "pending"
	InvoiceStatusProcessed InvoiceStatus = "processed"
	InvoiceStatusRejected  InvoiceStatus = "rejected"
)

// IsValid checks if the status is a valid InvoiceStatus
func (s InvoiceStatus) IsValid() bool {
	switch s {
	case InvoiceStatusPending, InvoiceStatusProcessed, InvoiceStatusRejected:
		return true
	}
	return false
}

// String returns the string representation of InvoiceStatus
func (s InvoiceStatus) String() string {
	return string(s)
}

// CanTransitionTo reports whether the invoice may move to the given status
func (s InvoiceStatus) CanTransitionTo(to InvoiceStatus) bool {
	return s == InvoiceStatusPending && (to == InvoiceStatusProcessed || to == InvoiceStatusRejected)
}

// IncidentStatus is the lifecycle state of a FinanceIncident
type IncidentStatus string

const (
	IncidentStatusCreated   IncidentStatus = "created"
	IncidentStatusValidated IncidentStatus = "validated"
	IncidentStatusInvoiced  IncidentStatus = "invoiced"
	IncidentStatusCancelled IncidentStatus = "cancelled"
)

// IsValid checks if the status is a valid IncidentStatus
func (s IncidentStatus) IsValid() bool {
	switch s {
	case IncidentStatusCreated, IncidentStatusValidated, IncidentStatusInvoiced, IncidentStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of IncidentStatus
func (s IncidentStatus) String() string {
	return string(s)
}

// CanValidate returns true if the incident can be validated
func (s IncidentStatus) CanValidate() bool {
	return s == IncidentStatusCreated
}

// CanCancel returns true while the incident has not been invoiced
func (s IncidentStatus) CanCancel() bool {
	return s == IncidentStatusCreated || s == IncidentStatusValidated
}

// IsTerminal returns true for invoiced and cancelled incidents
func (s IncidentStatus) IsTerminal() bool {
	return s == IncidentStatusInvoiced || s == IncidentStatusCancelled
}

// IncidentKind is the nature of a finance incident
type IncidentKind string

const (
	IncidentKindOverpayment          IncidentKind = "overpayment"
	IncidentKindUnderpayment         IncidentKind = "underpayment"
	IncidentKindCommercialGesture    IncidentKind = "commercial-gesture"
	IncidentKindFraud                IncidentKind = "fraud"
	IncidentKindOfferPriceRegulation IncidentKind = "offer-price-regulation"
)

// IsValid checks if the kind is known
func (k IncidentKind) IsValid() bool {
	switch k {
	case IncidentKindOverpayment, IncidentKindUnderpayment, IncidentKindCommercialGesture,
		IncidentKindFraud, IncidentKindOfferPriceRegulation:
		return true
	}
	return false
}

// String returns the string representation of IncidentKind
func (k IncidentKind) String() string {
	return string(k)
}

// ReclaimsMoney reports whether the incident takes money back from the recipient
func (k IncidentKind) ReclaimsMoney() bool {
	switch k {
	case IncidentKindOverpayment, IncidentKindFraud, IncidentKindOfferPriceRegulation:
		return true
	}
	return false
}

// BookingKind distinguishes individual and collective bookings
type BookingKind string

const (
	BookingKindIndividual BookingKind = "individual"
	BookingKindCollective BookingKind = "collective"
)

// IsValid checks if the kind is known
func (k BookingKind) IsValid() bool {
	return k == BookingKindIndividual || k == BookingKindCollective
}
