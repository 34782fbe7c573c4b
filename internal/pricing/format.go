package pricing

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var dutch = message.NewPrinter(language.Dutch)

// FormatEUR formats amount for display, e.g. "€ 12,50".
func FormatEUR(amount decimal.Decimal) string {
	return dutch.Sprintf("€ %.2f", amount.Round(2).InexactFloat64())
}

// AmountString formats amount with exactly two decimals and a dot separator,
// the representation payment providers expect.
func AmountString(amount decimal.Decimal) string {
	return amount.StringFixed(2)
}

// Cents converts amount to integer minor units, rounding half away from zero.
func Cents(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// FromCents converts integer minor units back to an amount.
func FromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}
