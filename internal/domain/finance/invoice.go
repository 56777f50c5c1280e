package finance

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/pass-culture/pass-culture-main-sub045/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// RatePrecision is the number of decimals kept on invoice line rates
const RatePrecision = 4

// InvoiceLineGroup is the key invoice lines are partitioned by
type InvoiceLineGroup struct {
	Category string          `json:"category"`
	Rate     decimal.Decimal `json:"rate"`
	Incident bool            `json:"incident"`
}

func (g InvoiceLineGroup) key() string {
	return fmt.Sprintf("%t|%s|%s", g.Incident, g.Category, g.Rate.StringFixed(RatePrecision))
}

// Label is the human readable name of the group
func (g InvoiceLineGroup) Label() string {
	pct := g.Rate.Mul(decimal.NewFromInt(100)).StringFixed(2)
	if g.Incident {
		return fmt.Sprintf("Incidents %s %s%%", g.Category, pct)
	}
	return fmt.Sprintf("%s %s%%", g.Category, pct)
}

// InvoiceLine aggregates the pricings of one group. ContributionAmount is the
// part kept by the platform (zero or negative); ReimbursedAmount is what the
// recipient receives.
type InvoiceLine struct {
	ID                 uuid.UUID
	InvoiceID          uuid.UUID
	Label              string
	Group              InvoiceLineGroup
	ContributionAmount int64
	ReimbursedAmount   int64
	Rate               decimal.Decimal
}

// Invoice summarizes the accepted cashflows of a bank account
type Invoice struct {
	shared.BaseAggregateRoot
	BankAccountID uuid.UUID
	Date          time.Time
	Reference     string
	Token         string
	Amount        int64
	Status        InvoiceStatus
	CashflowIDs   []uuid.UUID
	Lines         []InvoiceLine
}

// FormatInvoiceReference renders F<YY><sequence on 7 digits>
func FormatInvoiceReference(at time.Time, sequence int64) string {
	return fmt.Sprintf("F%02d%07d", at.Year()%100, sequence)
}

// InvoiceReferencePrefix is the reference prefix of the year of at
func InvoiceReferencePrefix(at time.Time) string {
	return fmt.Sprintf("F%02d", at.Year()%100)
}

// BuildInvoiceLines groups pricings by (incident, category, rate)
func BuildInvoiceLines(pricings []*Pricing) []InvoiceLine {
	byKey := make(map[string]*InvoiceLine)
	for _, p := range pricings {
		g := InvoiceLineGroup{
			Category: p.Rule().Category,
			Rate:     p.Rule().Rate.Round(RatePrecision),
			Incident: p.FromIncident(),
		}
		line, ok := byKey[g.key()]
		if !ok {
			line = &InvoiceLine{
				ID:    uuid.New(),
				Label: g.Label(),
				Group: g,
				Rate:  g.Rate,
			}
			byKey[g.key()] = line
		}
		line.ContributionAmount += p.LineAmount(LineCategoryOffererContribution)
		line.ReimbursedAmount += p.Amount()
	}
	lines := make([]InvoiceLine, 0, len(byKey))
	for _, l := range byKey {
		lines = append(lines, *l)
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].Group.key() < lines[j].Group.key() })
	return lines
}

// NewInvoice builds a pending invoice from the accepted cashflows of a bank
// account and their pricings. The sum of reimbursed amounts must match the
// sum of pricing amounts.
func NewInvoice(bankAccountID uuid.UUID, reference string, cashflows []*Cashflow, pricings []*Pricing, now time.Time) (*Invoice, error) {
	if len(cashflows) == 0 {
		return nil, ErrNoEligibleCashflow
	}
	inv := &Invoice{
		BaseAggregateRoot: shared.NewBaseAggregateRootAt(now),
		BankAccountID:     bankAccountID,
		Date:              now.UTC(),
		Reference:         reference,
		Token:             newToken(),
		Status:            InvoiceStatusPending,
	}
	var cashflowTotal int64
	for _, cf := range cashflows {
		if cf.Status != CashflowStatusAccepted {
			return nil, ErrInvalidTransition.WithMessage("cashflow " + cf.ID.String() + " is not accepted")
		}
		inv.CashflowIDs = append(inv.CashflowIDs, cf.ID)
		cashflowTotal += cf.Amount
	}
	var pricingTotal int64
	for _, p := range pricings {
		pricingTotal += p.Amount()
	}
	inv.Lines = BuildInvoiceLines(pricings)
	for i := range inv.Lines {
		inv.Lines[i].InvoiceID = inv.ID
		inv.Amount += inv.Lines[i].ReimbursedAmount
	}
	if inv.Amount != pricingTotal || inv.Amount != cashflowTotal {
		return nil, ErrUnbalancedPricing.WithMessage(fmt.Sprintf(
			"invoice total %d does not match pricings %d and cashflows %d",
			inv.Amount, pricingTotal, cashflowTotal))
	}
	inv.AddDomainEvent(NewInvoiceGeneratedEvent(inv))
	return inv, nil
}

// ChangeStatus moves a pending invoice to processed or rejected
func (i *Invoice) ChangeStatus(to InvoiceStatus, at time.Time) error {
	if !i.Status.CanTransitionTo(to) {
		return NewInvalidTransitionError("invoice", i.Status, to)
	}
	i.Status = to
	i.Touch(at)
	i.IncrementVersion()
	return nil
}

func newToken() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return uuid.NewString()
	}
	return hex.EncodeToString(buf)
}
