package printing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAmountFormatter_English(t *testing.T) {
	f, err := NewAmountFormatter("en-US", "EUR")
	require.NoError(t, err)

	assert.Equal(t, "1,234.50 EUR", f.Money(123450))
	assert.Equal(t, "-5.00 EUR", f.Money(-500))
	assert.Equal(t, "0.00 EUR", f.Money(0))
	assert.Equal(t, "95.00%", f.Rate(decimal.RequireFromString("0.95")))
	assert.Equal(t, "Offerer Revenue", f.Label("offerer-revenue"))
}

func TestAmountFormatter_French(t *testing.T) {
	f, err := NewAmountFormatter("fr-FR", "EUR")
	require.NoError(t, err)

	assert.Contains(t, f.Money(123450), "234,50")
	assert.Contains(t, f.Money(123450), "EUR")
}

func TestAmountFormatter_Invalid(t *testing.T) {
	_, err := NewAmountFormatter("not a locale", "EUR")
	assert.ErrorContains(t, err, "invalid locale")

	_, err = NewAmountFormatter("fr-FR", "EURO")
	assert.ErrorContains(t, err, "invalid currency")
}
