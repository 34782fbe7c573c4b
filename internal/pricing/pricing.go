package pricing

import (
	"errors"
	"math"
	"unicode"

	"github.com/shopspring/decimal"
)

// Letter height bounds accepted by the designer.
const (
	MinHeightCm = 2
	MaxHeightCm = 30
)

// Validation errors returned by ValidateTextRequest.
var (
	ErrInvalidHeight   = errors.New("height must be between 2 and 30 cm")
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
)

// Rates are the tunable inputs of the calculator.
type Rates struct {
	// BaseRate is charged per letter per cm of height.
	BaseRate decimal.Decimal
	// MinimumOrder is the floor for a non-empty line. Zero disables it.
	MinimumOrder decimal.Decimal
	Discounts    []VolumeDiscount
}

// DefaultRates returns the shop's current rates.
func DefaultRates() Rates {
	return Rates{
		BaseRate:     decimal.RequireFromString("0.22"),
		MinimumOrder: decimal.RequireFromString("9.95"),
		Discounts:    DefaultVolumeDiscounts(),
	}
}

// Calculation is the itemized price of one line. Every field is derived from the inputs.
type Calculation struct {
	Text               string          `json:"text"`
	LetterCount        int             `json:"letterCount"`
	HeightCm           float64         `json:"heightCm"`
	Color              ColorOption     `json:"color"`
	Quantity           int             `json:"quantity"`
	BasePrice          decimal.Decimal `json:"basePrice"`
	ColorSurcharge     decimal.Decimal `json:"colorSurcharge"`
	Subtotal           decimal.Decimal `json:"subtotal"`
	VolumeDiscount     *VolumeDiscount `json:"volumeDiscount"`
	DiscountAmount     decimal.Decimal `json:"discountAmount"`
	TotalBeforeMinimum decimal.Decimal `json:"totalBeforeMinimum"`
	Total              decimal.Decimal `json:"total"`
	MinimumApplied     bool            `json:"minimumApplied"`
	PricePerUnit       decimal.Decimal `json:"pricePerUnit"`
}

// Calculator prices lettering and logo lines. It holds no mutable state.
type Calculator struct {
	rates Rates
}

// NewCalculator returns a Calculator using rates.
func NewCalculator(rates Rates) *Calculator {
	return &Calculator{rates: rates}
}

// Rates returns the rates the calculator was built with.
func (c *Calculator) Rates() Rates {
	return c.rates
}

var defaultCalculator = NewCalculator(DefaultRates())

// Calculate prices a line with the default rates.
func Calculate(text string, heightCm float64, color ColorOption, quantity int) Calculation {
	return defaultCalculator.Calculate(text, heightCm, color, quantity)
}

// LetterCount counts the non-whitespace characters of text.
func LetterCount(text string) int {
	n := 0
	for _, r := range text {
		if !unicode.IsSpace(r) {
			n++
		}
	}
	return n
}

// Calculate prices quantity stickers of text at heightCm in color.
// Width of the rendered text never matters: every letter is billed the same.
func (c *Calculator) Calculate(text string, heightCm float64, color ColorOption, quantity int) Calculation {
	letters := LetterCount(text)

	calc := Calculation{
		Text:               text,
		LetterCount:        letters,
		HeightCm:           heightCm,
		Color:              color,
		Quantity:           quantity,
		BasePrice:          decimal.Zero,
		ColorSurcharge:     decimal.Zero,
		Subtotal:           decimal.Zero,
		DiscountAmount:     decimal.Zero,
		TotalBeforeMinimum: decimal.Zero,
		Total:              decimal.Zero,
		PricePerUnit:       decimal.Zero,
	}
	// Nothing to cut prices like an empty line. NaN or Inf would panic in decimal.
	if letters == 0 || quantity <= 0 || heightCm <= 0 || math.IsNaN(heightCm) || math.IsInf(heightCm, 0) {
		return calc
	}

	letterCm := decimal.NewFromInt(int64(letters)).Mul(decimal.NewFromFloat(heightCm))
	qty := decimal.NewFromInt(int64(quantity))

	calc.BasePrice = letterCm.Mul(c.rates.BaseRate)
	calc.ColorSurcharge = letterCm.Mul(color.Surcharge)
	calc.Subtotal = calc.BasePrice.Add(calc.ColorSurcharge).Mul(qty)

	calc.VolumeDiscount = VolumeDiscountFor(c.rates.Discounts, quantity)
	if calc.VolumeDiscount != nil {
		calc.DiscountAmount = calc.Subtotal.Mul(calc.VolumeDiscount.Discount)
	}

	calc.TotalBeforeMinimum = calc.Subtotal.Sub(calc.DiscountAmount)
	calc.Total = calc.TotalBeforeMinimum
	if c.rates.MinimumOrder.IsPositive() && calc.TotalBeforeMinimum.LessThan(c.rates.MinimumOrder) {
		calc.Total = c.rates.MinimumOrder
		calc.MinimumApplied = true
	}

	calc.PricePerUnit = perUnit(calc.Total, quantity)
	return calc
}

func perUnit(total decimal.Decimal, quantity int) decimal.Decimal {
	if quantity <= 0 {
		return decimal.Zero
	}
	return total.Div(decimal.NewFromInt(int64(quantity)))
}

// ValidateTextRequest rejects inputs the designer would never send.
func ValidateTextRequest(heightCm float64, quantity int) error {
	if math.IsNaN(heightCm) || heightCm < MinHeightCm || heightCm > MaxHeightCm {
		return ErrInvalidHeight
	}
	if quantity < 1 {
		return ErrInvalidQuantity
	}
	return nil
}
