package pricing

import "github.com/shopspring/decimal"

// VolumeDiscount is a quantity bracket. A nil MaxQuantity leaves the bracket open ended.
type VolumeDiscount struct {
	MinQuantity int             `json:"minQuantity"`
	MaxQuantity *int            `json:"maxQuantity"`
	Discount    decimal.Decimal `json:"discount"`
	Label       string          `json:"label"`
}

// Matches reports whether quantity falls inside the bracket.
func (d VolumeDiscount) Matches(quantity int) bool {
	if quantity < d.MinQuantity {
		return false
	}
	return d.MaxQuantity == nil || quantity <= *d.MaxQuantity
}

func intPtr(v int) *int { return &v }

// DefaultVolumeDiscounts returns the brackets 3-5, 6-10 and 11+.
func DefaultVolumeDiscounts() []VolumeDiscount {
	return []VolumeDiscount{
		{MinQuantity: 3, MaxQuantity: intPtr(5), Discount: decimal.RequireFromString("0.05"), Label: "5% korting"},
		{MinQuantity: 6, MaxQuantity: intPtr(10), Discount: decimal.RequireFromString("0.10"), Label: "10% korting"},
		{MinQuantity: 11, Discount: decimal.RequireFromString("0.15"), Label: "15% korting"},
	}
}

// VolumeDiscountFor returns the first bracket matching quantity, or nil.
func VolumeDiscountFor(brackets []VolumeDiscount, quantity int) *VolumeDiscount {
	for i := range brackets {
		if brackets[i].Matches(quantity) {
			d := brackets[i]
			return &d
		}
	}
	return nil
}
