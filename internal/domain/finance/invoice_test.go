package finance

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func acceptedCashflow(t *testing.T, bankAccountID uuid.UUID, pricings ...*Pricing) *Cashflow {
	t.Helper()
	cf, err := NewCashflow(uuid.New(), bankAccountID, pricings, time.Now())
	require.NoError(t, err)
	_, err = cf.ChangeStatus(CashflowStatusAccepted, nil, time.Now())
	require.NoError(t, err)
	return cf
}

func TestNewCashflow(t *testing.T) {
	bankAccountID := uuid.New()

	t.Run("sums pricing amounts", func(t *testing.T) {
		a := newTestPricing(t, 1000, "1")
		b := newTestPricing(t, 500, "1")
		cf, err := NewCashflow(uuid.New(), bankAccountID, []*Pricing{a, b}, time.Now())
		require.NoError(t, err)
		assert.Equal(t, int64(1500), cf.Amount)
		assert.Equal(t, CashflowStatusPending, cf.Status)
		assert.ElementsMatch(t, []uuid.UUID{a.ID(), b.ID()}, cf.PricingIDs)
	})

	t.Run("refuses pricings already in a cashflow", func(t *testing.T) {
		p := newTestPricing(t, 1000, "1")
		_, err := p.Transition(PricingStatusProcessed, LogReasonGenerateCashflow, time.Now())
		require.NoError(t, err)
		_, err = NewCashflow(uuid.New(), bankAccountID, []*Pricing{p}, time.Now())
		assert.True(t, errors.Is(err, ErrInvalidTransition))
	})

	t.Run("status changes are logged and terminal states stick", func(t *testing.T) {
		cf, err := NewCashflow(uuid.New(), bankAccountID, []*Pricing{newTestPricing(t, 10, "1")}, time.Now())
		require.NoError(t, err)
		log, err := cf.ChangeStatus(CashflowStatusUnderReview, map[string]any{"by": "bank"}, time.Now())
		require.NoError(t, err)
		assert.Equal(t, CashflowStatusPending, log.StatusBefore)
		assert.Equal(t, CashflowStatusUnderReview, log.StatusAfter)

		_, err = cf.ChangeStatus(CashflowStatusRejected, nil, time.Now())
		require.NoError(t, err)
		_, err = cf.ChangeStatus(CashflowStatusAccepted, nil, time.Now())
		assert.True(t, errors.Is(err, ErrInvalidTransition))
	})
}

func TestNewInvoice(t *testing.T) {
	bankAccountID := uuid.New()
	now := time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC)

	t.Run("lines reconcile with pricings", func(t *testing.T) {
		full := newTestPricing(t, 1000, "1")
		reduced := newTestPricing(t, 2000, "0.95")
		reduced2 := newTestPricing(t, 100, "0.95")
		cf1 := acceptedCashflow(t, bankAccountID, full, reduced)
		cf2 := acceptedCashflow(t, bankAccountID, reduced2)

		inv, err := NewInvoice(bankAccountID, FormatInvoiceReference(now, 1),
			[]*Cashflow{cf1, cf2}, []*Pricing{full, reduced, reduced2}, now)
		require.NoError(t, err)

		assert.Equal(t, "F260000001", inv.Reference)
		assert.Len(t, inv.Token, 32)
		require.Len(t, inv.Lines, 2)

		var reimbursed int64
		for _, l := range inv.Lines {
			reimbursed += l.ReimbursedAmount
			assert.Equal(t, inv.ID, l.InvoiceID)
		}
		assert.Equal(t, full.Amount()+reduced.Amount()+reduced2.Amount(), reimbursed)
		assert.Equal(t, reimbursed, inv.Amount)

		byRate := map[string]InvoiceLine{}
		for _, l := range inv.Lines {
			byRate[l.Rate.StringFixed(RatePrecision)] = l
		}
		assert.Equal(t, int64(0), byRate["1.0000"].ContributionAmount)
		assert.Equal(t, int64(-105), byRate["0.9500"].ContributionAmount)
		assert.Equal(t, int64(1995), byRate["0.9500"].ReimbursedAmount)
		assert.Equal(t, "default 95.00%", byRate["0.9500"].Label)
	})

	t.Run("incident pricings get their own line", func(t *testing.T) {
		booking := newTestPricing(t, 1000, "1")
		reversal, _, err := NewPricing(PricingParams{
			EventID:        uuid.New(),
			PricingPointID: booking.PricingPointID(),
			BookingRef:     booking.BookingRef(),
			Amount:         -1000,
			Rule:           booking.Rule(),
			FromIncident:   true,
			Lines:          NegateLines(booking.Lines()),
		})
		require.NoError(t, err)
		cf := acceptedCashflow(t, bankAccountID, booking, reversal)

		inv, err := NewInvoice(bankAccountID, "F260000002", []*Cashflow{cf}, []*Pricing{booking, reversal}, now)
		require.NoError(t, err)
		require.Len(t, inv.Lines, 2)
		assert.Equal(t, int64(0), inv.Amount)
		labels := []string{inv.Lines[0].Label, inv.Lines[1].Label}
		assert.Contains(t, labels, "Incidents default 100.00%")
	})

	t.Run("requires cashflows", func(t *testing.T) {
		_, err := NewInvoice(bankAccountID, "F260000003", nil, nil, now)
		assert.True(t, errors.Is(err, ErrNoEligibleCashflow))
	})

	t.Run("refuses cashflows that are not accepted", func(t *testing.T) {
		p := newTestPricing(t, 1000, "1")
		cf, err := NewCashflow(uuid.New(), bankAccountID, []*Pricing{p}, now)
		require.NoError(t, err)
		_, err = NewInvoice(bankAccountID, "F260000004", []*Cashflow{cf}, []*Pricing{p}, now)
		assert.True(t, errors.Is(err, ErrInvalidTransition))
	})

	t.Run("status moves once", func(t *testing.T) {
		p := newTestPricing(t, 1000, "1")
		inv, err := NewInvoice(bankAccountID, "F260000005",
			[]*Cashflow{acceptedCashflow(t, bankAccountID, p)}, []*Pricing{p}, now)
		require.NoError(t, err)
		require.NoError(t, inv.ChangeStatus(InvoiceStatusProcessed, now))
		assert.Error(t, inv.ChangeStatus(InvoiceStatusRejected, now))
	})
}

func TestInvoiceLineGroup_Label(t *testing.T) {
	g := InvoiceLineGroup{Category: "book", Rate: decimal.RequireFromString("0.92")}
	assert.Equal(t, "book 92.00%", g.Label())
}
