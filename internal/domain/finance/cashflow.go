package finance

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pass-culture/pass-culture-main-sub045/internal/domain/shared"
)

// CashflowBatch groups the cashflows generated for one cutoff
type CashflowBatch struct {
	ID        uuid.UUID
	Cutoff    time.Time
	Label     string
	CreatedAt time.Time
}

// NewCashflowBatch creates the batch with label VIR<sequence>
func NewCashflowBatch(cutoff time.Time, sequence int64, now time.Time) *CashflowBatch {
	return &CashflowBatch{
		ID:        uuid.New(),
		Cutoff:    cutoff.UTC(),
		Label:     fmt.Sprintf("VIR%d", sequence),
		CreatedAt: now.UTC(),
	}
}

// Cashflow is one bank transfer to one bank account
type Cashflow struct {
	shared.BaseAggregateRoot
	BatchID       uuid.UUID
	BankAccountID uuid.UUID
	Amount        int64
	Status        CashflowStatus
	PricingIDs    []uuid.UUID
}

// CashflowLog is an append-only record of a cashflow status change
type CashflowLog struct {
	ID           uuid.UUID
	CashflowID   uuid.UUID
	StatusBefore CashflowStatus
	StatusAfter  CashflowStatus
	Details      map[string]any
	Timestamp    time.Time
}

// NewCashflow groups pricings into a pending cashflow. The amount is their sum.
func NewCashflow(batchID, bankAccountID uuid.UUID, pricings []*Pricing, now time.Time) (*Cashflow, error) {
	if len(pricings) == 0 {
		return nil, shared.ErrInvalidInput.WithMessage("a cashflow needs at least one pricing")
	}
	cf := &Cashflow{
		BaseAggregateRoot: shared.NewBaseAggregateRootAt(now),
		BatchID:           batchID,
		BankAccountID:     bankAccountID,
		Status:            CashflowStatusPending,
		PricingIDs:        make([]uuid.UUID, 0, len(pricings)),
	}
	for _, p := range pricings {
		if p.Status() != PricingStatusValidated {
			return nil, NewInvalidTransitionError("pricing "+p.ID().String(), p.Status(), PricingStatusProcessed)
		}
		cf.Amount += p.Amount()
		cf.PricingIDs = append(cf.PricingIDs, p.ID())
	}
	return cf, nil
}

// ChangeStatus moves the cashflow and returns the log entry to append
func (c *Cashflow) ChangeStatus(to CashflowStatus, details map[string]any, at time.Time) (CashflowLog, error) {
	if !to.IsValid() {
		return CashflowLog{}, shared.ErrInvalidInput.WithMessage("unknown cashflow status " + string(to))
	}
	if !c.Status.CanTransitionTo(to) {
		return CashflowLog{}, NewInvalidTransitionError("cashflow", c.Status, to)
	}
	entry := CashflowLog{
		ID:           uuid.New(),
		CashflowID:   c.ID,
		StatusBefore: c.Status,
		StatusAfter:  to,
		Details:      details,
		Timestamp:    at.UTC(),
	}
	c.Status = to
	c.Touch(at)
	c.IncrementVersion()
	c.AddDomainEvent(NewCashflowStatusChangedEvent(c, entry.StatusBefore))
	return entry, nil
}
