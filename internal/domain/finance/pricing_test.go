package finance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultRule(rate string) ReimbursementRule {
	return ReimbursementRule{Category: DefaultRuleCategory, Rate: decimal.RequireFromString(rate)}
}

func newTestPricing(t *testing.T, bookingAmount int64, rate string) *Pricing {
	t.Helper()
	rule := defaultRule(rate)
	amount := ApplyRate(bookingAmount, rule.Rate)
	p, _, err := NewPricing(PricingParams{
		EventID:        uuid.New(),
		VenueID:        uuid.New(),
		PricingPointID: uuid.New(),
		BookingRef:     BookingRef{BookingID: uuid.New()},
		Amount:         amount,
		Revenue:        bookingAmount,
		Rule:           rule,
		ValueDate:      time.Now(),
		Lines:          StandardLines(bookingAmount, amount, rule),
	})
	require.NoError(t, err)
	return p
}

func TestNewPricing(t *testing.T) {
	t.Run("full rate yields a single rule line", func(t *testing.T) {
		p := newTestPricing(t, 1000, "1")
		assert.Equal(t, int64(1000), p.Amount())
		require.Len(t, p.Lines(), 1)
		assert.Equal(t, PricingLineCategory("default"), p.Lines()[0].Category)
		assert.Equal(t, int64(1000), p.Lines()[0].Amount)
		assert.Equal(t, PricingStatusValidated, p.Status())
	})

	t.Run("reduced rate splits revenue and contribution", func(t *testing.T) {
		p := newTestPricing(t, 1000, "0.95")
		assert.Equal(t, int64(950), p.Amount())
		assert.Equal(t, int64(1000), p.LineAmount(LineCategoryOffererRevenue))
		assert.Equal(t, int64(-50), p.LineAmount(LineCategoryOffererContribution))
	})

	t.Run("creation log has no previous status", func(t *testing.T) {
		_, log, err := NewPricing(PricingParams{
			EventID:        uuid.New(),
			PricingPointID: uuid.New(),
			BookingRef:     BookingRef{BookingID: uuid.New()},
			Amount:         10,
			Lines:          []PricingLine{{Category: "default", Amount: 10}},
		})
		require.NoError(t, err)
		assert.Nil(t, log.StatusBefore)
		assert.Equal(t, PricingStatusValidated, log.StatusAfter)
	})

	t.Run("rejects unbalanced lines", func(t *testing.T) {
		_, _, err := NewPricing(PricingParams{
			EventID:        uuid.New(),
			PricingPointID: uuid.New(),
			BookingRef:     BookingRef{BookingID: uuid.New()},
			Amount:         1000,
			Lines:          []PricingLine{{Category: "default", Amount: 999}},
		})
		assert.True(t, errors.Is(err, ErrUnbalancedPricing))
	})

	t.Run("negative amounts are allowed", func(t *testing.T) {
		_, _, err := NewPricing(PricingParams{
			EventID:        uuid.New(),
			PricingPointID: uuid.New(),
			BookingRef:     BookingRef{BookingID: uuid.New()},
			Amount:         -1000,
			Lines:          NegateLines([]PricingLine{{Category: "default", Amount: 1000}}),
		})
		assert.NoError(t, err)
	})
}

func TestPricing_Transition(t *testing.T) {
	now := time.Now()

	t.Run("logs every move", func(t *testing.T) {
		p := newTestPricing(t, 1000, "1")
		log, err := p.Transition(PricingStatusProcessed, LogReasonGenerateCashflow, now)
		require.NoError(t, err)
		require.NotNil(t, log.StatusBefore)
		assert.Equal(t, PricingStatusValidated, *log.StatusBefore)
		assert.Equal(t, PricingStatusProcessed, log.StatusAfter)
		assert.Equal(t, LogReasonGenerateCashflow, log.Reason)
		assert.Equal(t, p.ID(), log.PricingID)
	})

	t.Run("settled pricing cannot be cancelled", func(t *testing.T) {
		p := newTestPricing(t, 1000, "1")
		_, err := p.Transition(PricingStatusProcessed, LogReasonGenerateCashflow, now)
		require.NoError(t, err)
		_, err = p.Transition(PricingStatusCancelled, LogReasonCancelIncident, now)
		assert.True(t, errors.Is(err, ErrInvalidTransition))
		assert.Equal(t, PricingStatusProcessed, p.Status())
	})

	t.Run("amount does not move with status", func(t *testing.T) {
		p := newTestPricing(t, 1000, "1")
		_, err := p.Transition(PricingStatusCancelled, LogReasonMarkAsUnused, now)
		require.NoError(t, err)
		assert.Equal(t, int64(1000), p.Amount())
	})
}

func TestLines(t *testing.T) {
	t.Run("merge nets categories and drops zeros", func(t *testing.T) {
		original := []PricingLine{{Category: "default", Amount: 1000}}
		newPrice := []PricingLine{{Category: "default", Amount: 600}}
		merged := MergeLines(newPrice, NegateLines(original))
		require.Len(t, merged, 1)
		assert.Equal(t, int64(-400), merged[0].Amount)

		assert.Empty(t, MergeLines(original, NegateLines(original)))
	})

	t.Run("apply rate rounds half away from zero", func(t *testing.T) {
		assert.Equal(t, int64(1000), ApplyRate(1000, decimal.NewFromInt(1)))
		assert.Equal(t, int64(3), ApplyRate(5, decimal.RequireFromString("0.5")))
		assert.Equal(t, int64(-3), ApplyRate(-5, decimal.RequireFromString("0.5")))
		assert.Equal(t, int64(92), ApplyRate(100, decimal.RequireFromString("0.92")))
	})
}

func TestTieredRuleResolver(t *testing.T) {
	resolver := NewTieredRuleResolver("", decimal.NewFromInt(1),
		map[string]decimal.Decimal{"book": decimal.NewFromInt(1)}, DefaultRevenueTiers())
	ctx := context.Background()

	cases := []struct {
		name     string
		category string
		revenue  int64
		want     string
		wantCat  string
	}{
		{"below first tier", "cinema", 1_000_000, "1", "default"},
		{"first tier", "cinema", 2_500_000, "0.95", "default"},
		{"second tier", "cinema", 5_000_000, "0.92", "default"},
		{"last tier", "cinema", 20_000_000, "0.9", "default"},
		{"category override", "book", 20_000_000, "1", "book"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rule, err := resolver.RuleFor(ctx, &BookingSnapshot{OfferCategory: tc.category}, tc.revenue)
			require.NoError(t, err)
			assert.True(t, decimal.RequireFromString(tc.want).Equal(rule.Rate), "got %s", rule.Rate)
			assert.Equal(t, tc.wantCat, rule.Category)
		})
	}

	_, err := resolver.RuleFor(ctx, nil, 0)
	assert.True(t, errors.Is(err, ErrRuleUnavailable))
}

func TestNetPosition(t *testing.T) {
	booking := newTestPricing(t, 1000, "1")
	correction, _, err := NewPricing(PricingParams{
		EventID:        uuid.New(),
		PricingPointID: booking.PricingPointID(),
		BookingRef:     booking.BookingRef(),
		Amount:         -400,
		Revenue:        -400,
		Rule:           booking.Rule(),
		FromIncident:   true,
		Lines:          []PricingLine{{Category: "default", Amount: -400}},
	})
	require.NoError(t, err)

	pos := NetPosition([]*Pricing{booking, correction})
	assert.True(t, pos.Priced)
	assert.Equal(t, int64(600), pos.Amount)
	assert.Equal(t, int64(600), pos.Revenue)
	assert.Equal(t, []PricingLine{{Category: "default", Amount: 600}}, pos.Lines)
	assert.Equal(t, booking.Rule(), pos.Rule)

	_, err = correction.Transition(PricingStatusCancelled, LogReasonCancelIncident, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(1000), NetPosition([]*Pricing{booking, correction}).Amount)

	assert.False(t, NetPosition(nil).Priced)
}
