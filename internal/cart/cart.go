// Package cart holds a customer's priced line items between the designer and checkout.
package cart

import (
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/beletteringbestellen/plakletters/internal/pricing"
)

// Errors returned by cart mutations.
var (
	ErrItemNotFound    = errors.New("cart item not found")
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
)

// Kind tells text lines from logo lines.
type Kind string

const (
	KindText Kind = "text"
	KindLogo Kind = "logo"
)

// Logo is the upload behind a logo line.
type Logo struct {
	Name        string           `json:"name"`
	DataURL     string           `json:"dataUrl"`
	AspectRatio float64          `json:"aspectRatio"`
	Size        pricing.LogoSize `json:"size"`
}

// Item is one cart line. Price is the snapshot taken when the line was priced;
// nothing but a quantity change replaces it.
type Item struct {
	ID       string              `json:"id"`
	Kind     Kind                `json:"kind"`
	Text     string              `json:"text"`
	Font     pricing.FontOption  `json:"font"`
	Color    pricing.ColorOption `json:"color"`
	HeightCm float64             `json:"heightCm"`
	Quantity int                 `json:"quantity"`
	Price    pricing.Calculation `json:"priceCalculation"`
	Logo     *Logo               `json:"logo,omitempty"`
}

// Cart is an ordered list of items. It is not safe for concurrent use; callers
// load, change and save one cart per request.
type Cart struct {
	calc  *pricing.Calculator
	items []Item
}

// New returns an empty cart that reprices with calc.
func New(calc *pricing.Calculator) *Cart {
	return &Cart{calc: calc}
}

// Restore rebuilds a cart from stored items without repricing them.
func Restore(calc *pricing.Calculator, items []Item) *Cart {
	c := New(calc)
	c.items = append(c.items, items...)
	return c
}

// NewTextItem prices a lettering line.
func NewTextItem(calc *pricing.Calculator, text string, font pricing.FontOption, color pricing.ColorOption, heightCm float64, quantity int) Item {
	return Item{
		Kind:     KindText,
		Text:     text,
		Font:     font,
		Color:    color,
		HeightCm: heightCm,
		Quantity: quantity,
		Price:    calc.Calculate(text, heightCm, color, quantity),
	}
}

// NewLogoItem prices a printed logo line.
func NewLogoItem(calc *pricing.Calculator, logo Logo, quantity int) Item {
	price := calc.CalculateLogo(logo.Name, logo.Size, quantity)
	return Item{
		Kind:     KindLogo,
		Text:     price.Text,
		Font:     pricing.LogoFont,
		Color:    pricing.FullColorPrint,
		HeightCm: logo.Size.HeightCm,
		Quantity: quantity,
		Price:    price,
		Logo:     &logo,
	}
}

// Add appends item under a fresh id and returns the stored copy.
func (c *Cart) Add(item Item) Item {
	item.ID = uuid.NewString()
	if item.Kind == "" {
		item.Kind = KindText
	}
	c.items = append(c.items, item)
	return item
}

// Remove drops the item with id.
func (c *Cart) Remove(id string) error {
	i := c.index(id)
	if i < 0 {
		return ErrItemNotFound
	}
	c.items = append(c.items[:i], c.items[i+1:]...)
	return nil
}

// UpdateQuantity sets the quantity of an item and prices it again from scratch,
// so volume discounts follow the new quantity.
func (c *Cart) UpdateQuantity(id string, quantity int) (Item, error) {
	if quantity < 1 {
		return Item{}, ErrInvalidQuantity
	}
	i := c.index(id)
	if i < 0 {
		return Item{}, ErrItemNotFound
	}

	item := c.items[i]
	item.Quantity = quantity
	switch {
	case item.Kind == KindLogo && item.Logo != nil:
		item.Price = c.calc.CalculateLogo(item.Logo.Name, item.Logo.Size, quantity)
	default:
		item.Price = c.calc.Calculate(item.Text, item.HeightCm, item.Color, quantity)
	}
	c.items[i] = item
	return item, nil
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.items = nil
}

// Item returns the item with id.
func (c *Cart) Item(id string) (Item, bool) {
	i := c.index(id)
	if i < 0 {
		return Item{}, false
	}
	return c.items[i], true
}

// Items returns a copy of the items in insertion order.
func (c *Cart) Items() []Item {
	out := make([]Item, len(c.items))
	copy(out, c.items)
	return out
}

// Len reports the number of lines in the cart.
func (c *Cart) Len() int {
	return len(c.items)
}

// TotalItems is the sum of quantities.
func (c *Cart) TotalItems() int {
	n := 0
	for _, it := range c.items {
		n += it.Quantity
	}
	return n
}

// TotalPrice is the sum of the stored line totals.
func (c *Cart) TotalPrice() decimal.Decimal {
	total := decimal.Zero
	for _, it := range c.items {
		total = total.Add(it.Price.Total)
	}
	return total
}

func (c *Cart) index(id string) int {
	for i, it := range c.items {
		if it.ID == id {
			return i
		}
	}
	return -1
}
