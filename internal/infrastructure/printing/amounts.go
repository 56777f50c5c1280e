package printing

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// AmountFormatter formats cent amounts and rates for one locale
type AmountFormatter struct {
	printer *message.Printer
	caser   cases.Caser
	unit    currency.Unit
}

// NewAmountFormatter parses a BCP 47 locale (fr-FR) and an ISO 4217
// currency code (EUR)
func NewAmountFormatter(locale, currencyCode string) (*AmountFormatter, error) {
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, fmt.Errorf("invalid locale %q: %w", locale, err)
	}
	unit, err := currency.ParseISO(currencyCode)
	if err != nil {
		return nil, fmt.Errorf("invalid currency %q: %w", currencyCode, err)
	}
	return &AmountFormatter{
		printer: message.NewPrinter(tag),
		caser:   cases.Title(tag),
		unit:    unit,
	}, nil
}

// Money formats cents as a grouped decimal followed by the currency code,
// "1,234.50 EUR" in English
func (f *AmountFormatter) Money(cents int64) string {
	units := decimal.New(cents, -2).InexactFloat64()
	return f.printer.Sprint(number.Decimal(units, number.Scale(2))) + " " + f.unit.String()
}

// Rate formats a ratio as a percentage, "95.00%" for 0.95
func (f *AmountFormatter) Rate(rate decimal.Decimal) string {
	pct := rate.Mul(decimal.NewFromInt(100)).InexactFloat64()
	return f.printer.Sprint(number.Decimal(pct, number.Scale(2))) + "%"
}

// Label turns a category slug into words, "Offerer Revenue" for offerer-revenue
func (f *AmountFormatter) Label(slug string) string {
	return f.caser.String(strings.NewReplacer("-", " ", "_", " ").Replace(slug))
}
