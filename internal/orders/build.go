package orders

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/beletteringbestellen/plakletters/internal/cart"
	"github.com/beletteringbestellen/plakletters/internal/pricing"
)

// BuildInput is everything needed to turn a cart into an order.
type BuildInput struct {
	Items         []cart.Item
	Customer      Customer
	Address       Address
	Notes         string
	PaymentMethod string
	Shipping      ShippingRate
	// Width returns the preview width of a text line. Optional.
	Width func(cart.Item) float64
}

// BuildOrder converts cart lines into an order. Line prices are copied from the
// snapshots; nothing is priced again.
func BuildOrder(in BuildInput, now time.Time) (Order, error) {
	if len(in.Items) == 0 {
		return Order{}, ErrEmptyCart
	}

	now = now.UTC()
	order := Order{
		ID:            uuid.NewString(),
		Number:        NewOrderNumber(now),
		Customer:      in.Customer,
		Address:       in.Address,
		Notes:         in.Notes,
		PaymentMethod: in.PaymentMethod,
		PaymentStatus: "open",
		Status:        StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	for i, line := range in.Items {
		item, err := itemFromCart(order.ID, i, line, in.Width)
		if err != nil {
			return Order{}, err
		}
		order.SubtotalCents += item.TotalPriceCents
		order.Items = append(order.Items, item)
	}

	shipping := ShippingFor(in.Shipping, pricing.FromCents(order.SubtotalCents))
	order.ShippingCents = pricing.Cents(shipping)
	order.TotalCents = order.SubtotalCents + order.ShippingCents - order.DiscountCents
	return order, nil
}

func itemFromCart(orderID string, position int, line cart.Item, width func(cart.Item) float64) (Item, error) {
	snapshot, err := json.Marshal(line.Price)
	if err != nil {
		return Item{}, fmt.Errorf("encode price snapshot: %w", err)
	}

	item := Item{
		ID:              uuid.NewString(),
		OrderID:         orderID,
		Position:        position,
		Kind:            string(line.Kind),
		Text:            line.Text,
		FontID:          line.Font.ID,
		FontName:        line.Font.Name,
		ColorID:         line.Color.ID,
		ColorName:       line.Color.Name,
		ColorHex:        line.Color.Hex,
		HeightCm:        line.HeightCm,
		Quantity:        line.Quantity,
		UnitPriceCents:  pricing.Cents(line.Price.PricePerUnit),
		TotalPriceCents: pricing.Cents(line.Price.Total),
		PriceJSON:       string(snapshot),
	}
	if item.Kind == "" {
		item.Kind = string(cart.KindText)
	}

	switch {
	case line.Logo != nil:
		item.LogoURL = line.Logo.DataURL
		item.WidthCm = line.Logo.Size.WidthCm
	case width != nil:
		item.WidthCm = math.Round(width(line)*10) / 10
	}
	return item, nil
}
