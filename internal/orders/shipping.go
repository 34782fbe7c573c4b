package orders

import (
	"errors"

	"github.com/shopspring/decimal"

	"github.com/beletteringbestellen/plakletters/internal/pricing"
)

var ErrNoShippingRate = errors.New("no shipping to this country")

// ShippingRate is the flat shipping cost for a country. FreeFromCents of zero
// means shipping is never free.
type ShippingRate struct {
	Country       string `db:"country" json:"country"`
	Label         string `db:"label" json:"label"`
	FlatCostCents int64  `db:"flat_cost_cents" json:"flatCostCents"`
	FreeFromCents int64  `db:"free_from_cents" json:"freeFromCents"`
	Active        bool   `db:"active" json:"active"`
}

// DefaultShippingRates are the rates the shop starts with.
func DefaultShippingRates() []ShippingRate {
	return []ShippingRate{
		{Country: "NL", Label: "Nederland", FlatCostCents: 495, FreeFromCents: 5000, Active: true},
		{Country: "BE", Label: "België", FlatCostCents: 695, FreeFromCents: 5000, Active: true},
	}
}

// ShippingFor returns the shipping cost of an order with subtotal.
func ShippingFor(rate ShippingRate, subtotal decimal.Decimal) decimal.Decimal {
	if rate.FreeFromCents > 0 && subtotal.GreaterThanOrEqual(pricing.FromCents(rate.FreeFromCents)) {
		return decimal.Zero
	}
	return pricing.FromCents(rate.FlatCostCents)
}
