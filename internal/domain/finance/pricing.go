package finance

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/pass-culture/pass-culture-main-sub045/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// PricingLine is one category of a pricing amount
type PricingLine struct {
	ID       uuid.UUID
	Category PricingLineCategory
	Amount   int64
}

// PricingLog is an append-only audit entry of a pricing status change.
// StatusBefore is nil for the entry written when the pricing is created.
type PricingLog struct {
	ID           uuid.UUID
	PricingID    uuid.UUID
	StatusBefore *PricingStatus
	StatusAfter  PricingStatus
	Reason       PricingLogReason
	Timestamp    time.Time
}

// Pricing is the signed amount owed to a pricing point for one finance event.
// Its money fields never change after construction; only the status moves,
// and every move yields a PricingLog entry.
type Pricing struct {
	id             uuid.UUID
	eventID        uuid.UUID
	venueID        uuid.UUID
	pricingPointID uuid.UUID
	bookingRef     BookingReference
	amount         int64
	revenue        int64
	rule           ReimbursementRule
	valueDate      time.Time
	createdAt      time.Time
	fromIncident   bool
	lines          []PricingLine

	status    PricingStatus
	updatedAt time.Time

	// storedStatus is the status last read from or written to storage
	storedStatus PricingStatus
}

// PricingParams holds the inputs of NewPricing
type PricingParams struct {
	EventID        uuid.UUID
	VenueID        uuid.UUID
	PricingPointID uuid.UUID
	BookingRef     BookingReference
	Amount         int64
	Revenue        int64
	Rule           ReimbursementRule
	ValueDate      time.Time
	FromIncident   bool
	Lines          []PricingLine
	Now            time.Time
}

// NewPricing builds a validated pricing and the log entry recording its creation
func NewPricing(p PricingParams) (*Pricing, PricingLog, error) {
	if p.EventID == uuid.Nil || p.PricingPointID == uuid.Nil {
		return nil, PricingLog{}, shared.ErrInvalidInput.WithMessage("pricing needs an event and a pricing point")
	}
	if p.BookingRef == nil {
		return nil, PricingLog{}, ErrInvalidReference.WithMessage("pricing needs a booking reference")
	}
	var sum int64
	lines := make([]PricingLine, 0, len(p.Lines))
	for _, l := range p.Lines {
		if l.Amount == 0 {
			continue
		}
		if l.ID == uuid.Nil {
			l.ID = uuid.New()
		}
		sum += l.Amount
		lines = append(lines, l)
	}
	if sum != p.Amount {
		return nil, PricingLog{}, ErrUnbalancedPricing.WithMessage(
			fmt.Sprintf("pricing lines sum to %d, amount is %d", sum, p.Amount))
	}
	now := p.Now
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()

	pr := &Pricing{
		id:             uuid.New(),
		eventID:        p.EventID,
		venueID:        p.VenueID,
		pricingPointID: p.PricingPointID,
		bookingRef:     p.BookingRef,
		amount:         p.Amount,
		revenue:        p.Revenue,
		rule:           p.Rule,
		valueDate:      p.ValueDate.UTC(),
		createdAt:      now,
		fromIncident:   p.FromIncident,
		lines:          lines,
		status:         PricingStatusValidated,
		updatedAt:      now,
		storedStatus:   PricingStatusValidated,
	}
	log := PricingLog{
		ID:          uuid.New(),
		PricingID:   pr.id,
		StatusAfter: PricingStatusValidated,
		Reason:      LogReasonPriced,
		Timestamp:   now,
	}
	return pr, log, nil
}

// RehydratedPricing carries stored pricing state back into the domain
type RehydratedPricing struct {
	ID             uuid.UUID
	EventID        uuid.UUID
	VenueID        uuid.UUID
	PricingPointID uuid.UUID
	BookingRef     BookingReference
	Amount         int64
	Revenue        int64
	Rule           ReimbursementRule
	ValueDate      time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
	FromIncident   bool
	Status         PricingStatus
	Lines          []PricingLine
}

// RehydratePricing rebuilds a pricing loaded from storage
func RehydratePricing(r RehydratedPricing) *Pricing {
	return &Pricing{
		id:             r.ID,
		eventID:        r.EventID,
		venueID:        r.VenueID,
		pricingPointID: r.PricingPointID,
		bookingRef:     r.BookingRef,
		amount:         r.Amount,
		revenue:        r.Revenue,
		rule:           r.Rule,
		valueDate:      r.ValueDate,
		createdAt:      r.CreatedAt,
		updatedAt:      r.UpdatedAt,
		fromIncident:   r.FromIncident,
		status:         r.Status,
		storedStatus:   r.Status,
		lines:          append([]PricingLine(nil), r.Lines...),
	}
}

func (p *Pricing) ID() uuid.UUID                { return p.id }
func (p *Pricing) EventID() uuid.UUID           { return p.eventID }
func (p *Pricing) VenueID() uuid.UUID           { return p.venueID }
func (p *Pricing) PricingPointID() uuid.UUID    { return p.pricingPointID }
func (p *Pricing) BookingRef() BookingReference { return p.bookingRef }
func (p *Pricing) Amount() int64                { return p.amount }
func (p *Pricing) Revenue() int64               { return p.revenue }
func (p *Pricing) Rule() ReimbursementRule      { return p.rule }
func (p *Pricing) ValueDate() time.Time         { return p.valueDate }
func (p *Pricing) CreatedAt() time.Time         { return p.createdAt }
func (p *Pricing) UpdatedAt() time.Time         { return p.updatedAt }
func (p *Pricing) FromIncident() bool           { return p.fromIncident }
func (p *Pricing) Status() PricingStatus        { return p.status }

// StoredStatus is the status the stored row is expected to hold. Status
// writes are conditioned on it so a concurrent change is detected.
func (p *Pricing) StoredStatus() PricingStatus { return p.storedStatus }

// MarkStored records that the current status has been written
func (p *Pricing) MarkStored() { p.storedStatus = p.status }

// Lines returns a copy of the pricing lines
func (p *Pricing) Lines() []PricingLine {
	return append([]PricingLine(nil), p.lines...)
}

// LineAmount sums the lines of one category
func (p *Pricing) LineAmount(category PricingLineCategory) int64 {
	var total int64
	for _, l := range p.lines {
		if l.Category == category {
			total += l.Amount
		}
	}
	return total
}

// Transition moves the status and returns the log entry to append
func (p *Pricing) Transition(to PricingStatus, reason PricingLogReason, at time.Time) (PricingLog, error) {
	if !p.status.CanTransitionTo(to) {
		return PricingLog{}, NewInvalidTransitionError("pricing", p.status, to)
	}
	before := p.status
	p.status = to
	p.updatedAt = at.UTC()
	return PricingLog{
		ID:           uuid.New(),
		PricingID:    p.id,
		StatusBefore: &before,
		StatusAfter:  to,
		Reason:       reason,
		Timestamp:    p.updatedAt,
	}, nil
}

// StandardLines splits a booking pricing into revenue and contribution lines.
// When the rule keeps the full amount a single line labelled with the rule
// category is produced.
func StandardLines(bookingAmount, amount int64, rule ReimbursementRule) []PricingLine {
	if amount == bookingAmount {
		return []PricingLine{{Category: PricingLineCategory(rule.Category), Amount: amount}}
	}
	return []PricingLine{
		{Category: LineCategoryOffererRevenue, Amount: bookingAmount},
		{Category: LineCategoryOffererContribution, Amount: amount - bookingAmount},
	}
}

// NegateLines returns the lines with opposite amounts
func NegateLines(lines []PricingLine) []PricingLine {
	out := make([]PricingLine, 0, len(lines))
	for _, l := range lines {
		out = append(out, PricingLine{Category: l.Category, Amount: -l.Amount})
	}
	return out
}

// MergeLines sums lines per category and drops empty categories.
// The result is sorted by category for stable storage.
func MergeLines(sets ...[]PricingLine) []PricingLine {
	totals := make(map[PricingLineCategory]int64)
	for _, set := range sets {
		for _, l := range set {
			totals[l.Category] += l.Amount
		}
	}
	out := make([]PricingLine, 0, len(totals))
	for cat, amount := range totals {
		if amount != 0 {
			out = append(out, PricingLine{Category: cat, Amount: amount})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out
}

// ApplyRate returns round(amount * rate), halves rounded away from zero
func ApplyRate(amount int64, rate decimal.Decimal) int64 {
	return decimal.NewFromInt(amount).Mul(rate).Round(0).IntPart()
}

// BookingPosition is the net of the active pricings of one booking
type BookingPosition struct {
	Amount  int64
	Revenue int64
	Lines   []PricingLine
	// Rule is the rule of the earliest pricing, used for corrections
	Rule   ReimbursementRule
	Priced bool
}

// NetPosition sums active pricings, oldest first, into a BookingPosition
func NetPosition(pricings []*Pricing) BookingPosition {
	var pos BookingPosition
	sets := make([][]PricingLine, 0, len(pricings))
	for _, p := range pricings {
		if !p.status.IsActive() {
			continue
		}
		if !pos.Priced {
			pos.Rule = p.rule
			pos.Priced = true
		}
		pos.Amount += p.amount
		pos.Revenue += p.revenue
		sets = append(sets, p.lines)
	}
	pos.Lines = MergeLines(sets...)
	return pos
}
