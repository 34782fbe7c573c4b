// Package orders persists placed orders and the price snapshots of their lines.
package orders

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/beletteringbestellen/plakletters/internal/pricing"
)

var (
	ErrOrderNotFound = errors.New("order not found")
	ErrEmptyCart     = errors.New("cart is empty")
	ErrNotShippable  = errors.New("order cannot be shipped in its current status")
)

type Status string

const (
	StatusPending       Status = "pending"
	StatusPaid          Status = "paid"
	StatusPaymentFailed Status = "payment_failed"
	StatusProcessing    Status = "processing"
	StatusShipped       Status = "shipped"
	StatusDelivered     Status = "delivered"
	StatusCancelled     Status = "cancelled"
)

var statusLabels = map[Status]string{
	StatusPending:       "In afwachting",
	StatusPaid:          "Betaald",
	StatusPaymentFailed: "Betaling mislukt",
	StatusProcessing:    "In productie",
	StatusShipped:       "Verzonden",
	StatusDelivered:     "Bezorgd",
	StatusCancelled:     "Geannuleerd",
}

// Label is the Dutch name shown in the admin.
func (s Status) Label() string {
	if label, ok := statusLabels[s]; ok {
		return label
	}
	return string(s)
}

// Value stores the status as plain text.
func (s Status) Value() (driver.Value, error) {
	return string(s), nil
}

// Shippable reports whether an order in status s may be marked shipped.
func (s Status) Shippable() bool {
	return s == StatusPaid || s == StatusProcessing
}

// StatusFromPayment maps a payment provider status onto an order status.
func StatusFromPayment(paymentStatus string) Status {
	switch paymentStatus {
	case "paid":
		return StatusPaid
	case "failed", "canceled", "expired":
		return StatusPaymentFailed
	default:
		return StatusPending
	}
}

type Customer struct {
	Name    string `db:"customer_name" json:"name"`
	Email   string `db:"customer_email" json:"email"`
	Phone   string `db:"customer_phone" json:"phone"`
	Company string `db:"company_name" json:"company"`
}

type Address struct {
	Street      string `db:"street" json:"street"`
	HouseNumber string `db:"house_number" json:"houseNumber"`
	PostalCode  string `db:"postal_code" json:"postalCode"`
	City        string `db:"city" json:"city"`
	Country     string `db:"country" json:"country"`
}

// Lines returns the address as printed on a label.
func (a Address) Lines() []string {
	return []string{
		strings.TrimSpace(a.Street + " " + a.HouseNumber),
		strings.TrimSpace(a.PostalCode + " " + a.City),
	}
}

type Order struct {
	ID     string `db:"id"`
	Number string `db:"order_number"`
	Customer
	Address
	Notes         string     `db:"notes"`
	PaymentMethod string     `db:"payment_method"`
	SubtotalCents int64      `db:"subtotal_cents"`
	ShippingCents int64      `db:"shipping_cents"`
	DiscountCents int64      `db:"discount_cents"`
	TotalCents    int64      `db:"total_cents"`
	PaymentID     string     `db:"payment_id"`
	PaymentStatus string     `db:"payment_status"`
	Status        Status     `db:"status"`
	TrackingCode  string     `db:"tracking_code"`
	CreatedAt     time.Time  `db:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at"`
	PaidAt        *time.Time `db:"paid_at"`
	ShippedAt     *time.Time `db:"shipped_at"`

	Items []Item `db:"-"`
}

func (o Order) Subtotal() decimal.Decimal { return pricing.FromCents(o.SubtotalCents) }
func (o Order) Shipping() decimal.Decimal { return pricing.FromCents(o.ShippingCents) }
func (o Order) Total() decimal.Decimal    { return pricing.FromCents(o.TotalCents) }

// Item is a stored order line. PriceJSON is the cart snapshot, byte for byte.
type Item struct {
	ID              string  `db:"id"`
	OrderID         string  `db:"order_id"`
	Position        int     `db:"position"`
	Kind            string  `db:"item_type"`
	Text            string  `db:"text"`
	FontID          string  `db:"font_id"`
	FontName        string  `db:"font_name"`
	ColorID         string  `db:"color_id"`
	ColorName       string  `db:"color_name"`
	ColorHex        string  `db:"color_hex"`
	LogoURL         string  `db:"logo_url"`
	WidthCm         float64 `db:"width_cm"`
	HeightCm        float64 `db:"height_cm"`
	Quantity        int     `db:"quantity"`
	UnitPriceCents  int64   `db:"unit_price_cents"`
	TotalPriceCents int64   `db:"total_price_cents"`
	PriceJSON       string  `db:"price_json"`
}

// Price decodes the stored snapshot.
func (i Item) Price() (pricing.Calculation, error) {
	var calc pricing.Calculation
	if err := json.Unmarshal([]byte(i.PriceJSON), &calc); err != nil {
		return pricing.Calculation{}, fmt.Errorf("decode price snapshot of item %s: %w", i.ID, err)
	}
	return calc, nil
}

func (i Item) Total() decimal.Decimal     { return pricing.FromCents(i.TotalPriceCents) }
func (i Item) UnitPrice() decimal.Decimal { return pricing.FromCents(i.UnitPriceCents) }

// NewOrderNumber returns a customer facing number like BB-240501-3F9A.
func NewOrderNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:4])
	return "BB-" + now.Format("060102") + "-" + suffix
}
