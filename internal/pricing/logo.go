package pricing

import "github.com/shopspring/decimal"

var (
	logoMinPrice  = decimal.RequireFromString("5.00")
	logoTier1Rate = decimal.RequireFromString("0.05")
	logoTier2Rate = decimal.RequireFromString("0.04")
	logoTier3Rate = decimal.RequireFromString("0.03")
	logoTier1Max  = decimal.NewFromInt(100)
	logoTier2Max  = decimal.NewFromInt(500)
)

// FullColorPrint is the color recorded on printed logo lines.
var FullColorPrint = ColorOption{ID: "fullcolor", Name: "Full Color Print", Hex: "#000000", Category: ColorStandard, Surcharge: decimal.Zero}

// LogoFont is the font recorded on printed logo lines.
var LogoFont = FontOption{ID: "logo", Name: "Logo Upload", FontFamily: "sans-serif", Category: FontBusiness}

// LogoSize is the printed size of an uploaded logo.
type LogoSize struct {
	WidthCm  float64 `json:"widthCm"`
	HeightCm float64 `json:"heightCm"`
	AreaCm2  float64 `json:"areaCm2"`
}

// LogoUnitPrice returns the tiered price of one printed logo of areaCm2.
func LogoUnitPrice(areaCm2 float64) decimal.Decimal {
	area := decimal.NewFromFloat(areaCm2)
	switch {
	case area.LessThanOrEqual(logoTier1Max):
		return decimal.Max(area.Mul(logoTier1Rate), logoMinPrice)
	case area.LessThanOrEqual(logoTier2Max):
		return logoTier1Max.Mul(logoTier1Rate).
			Add(area.Sub(logoTier1Max).Mul(logoTier2Rate))
	default:
		return logoTier1Max.Mul(logoTier1Rate).
			Add(logoTier2Max.Sub(logoTier1Max).Mul(logoTier2Rate)).
			Add(area.Sub(logoTier2Max).Mul(logoTier3Rate))
	}
}

// CalculateLogo prices quantity printed logos. Logos get no volume discount and no
// order minimum; the per-unit minimum already covers small prints.
func (c *Calculator) CalculateLogo(name string, size LogoSize, quantity int) Calculation {
	unit := LogoUnitPrice(size.AreaCm2)
	total := unit.Mul(decimal.NewFromInt(int64(quantity)))
	if quantity <= 0 {
		total = decimal.Zero
	}

	return Calculation{
		Text:               "Logo: " + name,
		HeightCm:           size.HeightCm,
		Color:              FullColorPrint,
		Quantity:           quantity,
		BasePrice:          unit,
		ColorSurcharge:     decimal.Zero,
		Subtotal:           total,
		DiscountAmount:     decimal.Zero,
		TotalBeforeMinimum: total,
		Total:              total,
		PricePerUnit:       perUnit(total, quantity),
	}
}
