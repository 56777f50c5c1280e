package finance

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// DefaultRuleCategory labels pricings made under the standard rule
const DefaultRuleCategory = "default"

// ReimbursementRule is the share of a booking amount paid to the recipient
type ReimbursementRule struct {
	Category string
	Rate     decimal.Decimal
}

// String returns "category@rate"
func (r ReimbursementRule) String() string {
	return fmt.Sprintf("%s@%s", r.Category, r.Rate.StringFixed(4))
}

// RuleResolver resolves the rule applicable to a booking. yearlyRevenue is the
// revenue of the pricing point for the booking's year, this booking included.
type RuleResolver interface {
	RuleFor(ctx context.Context, booking *BookingSnapshot, yearlyRevenue int64) (ReimbursementRule, error)
}

// RevenueTier applies Rate once the yearly revenue exceeds Threshold (minor units)
type RevenueTier struct {
	Threshold int64
	Rate      decimal.Decimal
}

// TieredRuleResolver applies fixed rates per offer category, falling back to
// degressive revenue tiers.
type TieredRuleResolver struct {
	defaultCategory string
	defaultRate     decimal.Decimal
	categoryRates   map[string]decimal.Decimal
	tiers           []RevenueTier
}

// NewTieredRuleResolver builds a resolver. Tiers are sorted by threshold.
func NewTieredRuleResolver(defaultCategory string, defaultRate decimal.Decimal,
	categoryRates map[string]decimal.Decimal, tiers []RevenueTier) *TieredRuleResolver {
	if defaultCategory == "" {
		defaultCategory = DefaultRuleCategory
	}
	sorted := append([]RevenueTier(nil), tiers...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Threshold < sorted[j].Threshold })
	rates := make(map[string]decimal.Decimal, len(categoryRates))
	for k, v := range categoryRates {
		rates[k] = v
	}
	return &TieredRuleResolver{
		defaultCategory: defaultCategory,
		defaultRate:     defaultRate,
		categoryRates:   rates,
		tiers:           sorted,
	}
}

// DefaultRevenueTiers are the standard degressive tiers, in cents
func DefaultRevenueTiers() []RevenueTier {
	return []RevenueTier{
		{Threshold: 2_000_000, Rate: decimal.RequireFromString("0.95")},
		{Threshold: 4_000_000, Rate: decimal.RequireFromString("0.92")},
		{Threshold: 15_000_000, Rate: decimal.RequireFromString("0.90")},
	}
}

// RuleFor implements RuleResolver
func (r *TieredRuleResolver) RuleFor(_ context.Context, booking *BookingSnapshot, yearlyRevenue int64) (ReimbursementRule, error) {
	if booking == nil {
		return ReimbursementRule{}, ErrRuleUnavailable.WithMessage("no booking to resolve a rule for")
	}
	if rate, ok := r.categoryRates[booking.OfferCategory]; ok {
		return ReimbursementRule{Category: booking.OfferCategory, Rate: rate}, nil
	}
	rate := r.defaultRate
	for _, tier := range r.tiers {
		if yearlyRevenue > tier.Threshold {
			rate = tier.Rate
		}
	}
	return ReimbursementRule{Category: r.defaultCategory, Rate: rate}, nil
}
