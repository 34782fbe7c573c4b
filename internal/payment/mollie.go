// Package payment talks to the Mollie payments API.
package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/beletteringbestellen/plakletters/internal/apiclient"
	"github.com/beletteringbestellen/plakletters/internal/pricing"
)

const DefaultBaseURL = "https://api.mollie.com/v2"

var (
	ErrPaymentNotFound = errors.New("payment not found")
	ErrInvalidRequest  = errors.New("invalid payment request")
)

// Methods the checkout offers.
const (
	MethodIDEAL      = "ideal"
	MethodBancontact = "bancontact"
	MethodCreditCard = "creditcard"
)

// ValidMethod reports whether m may be sent to the provider. Empty lets the
// customer choose on the hosted page.
func ValidMethod(m string) bool {
	switch m {
	case "", MethodIDEAL, MethodBancontact, MethodCreditCard:
		return true
	}
	return false
}

type Amount struct {
	Currency string `json:"currency"`
	Value    string `json:"value"`
}

type Metadata struct {
	OrderID       string `json:"order_id"`
	CustomerEmail string `json:"customer_email"`
}

// CreateRequest describes a payment to open.
type CreateRequest struct {
	Amount      decimal.Decimal
	Description string
	RedirectURL string
	WebhookURL  string
	Metadata    Metadata
	Method      string
}

// Payment is the provider's view of a payment.
type Payment struct {
	ID          string
	Status      string
	Amount      Amount
	Metadata    Metadata
	CheckoutURL string
	PaidAt      *time.Time
}

type createBody struct {
	Amount      Amount   `json:"amount"`
	Description string   `json:"description"`
	RedirectURL string   `json:"redirectUrl"`
	WebhookURL  string   `json:"webhookUrl,omitempty"`
	Metadata    Metadata `json:"metadata"`
	Method      string   `json:"method,omitempty"`
}

type paymentBody struct {
	ID       string     `json:"id"`
	Status   string     `json:"status"`
	Amount   Amount     `json:"amount"`
	Metadata Metadata   `json:"metadata"`
	PaidAt   *time.Time `json:"paidAt"`
	Links    struct {
		Checkout *struct {
			Href string `json:"href"`
		} `json:"checkout"`
	} `json:"_links"`
}

func (b paymentBody) payment() Payment {
	p := Payment{ID: b.ID, Status: b.Status, Amount: b.Amount, Metadata: b.Metadata, PaidAt: b.PaidAt}
	if b.Links.Checkout != nil {
		p.CheckoutURL = b.Links.Checkout.Href
	}
	return p
}

// Client is a Mollie API client.
type Client struct {
	api    *apiclient.Client
	logger *zap.Logger
}

func NewClient(api *apiclient.Client, logger *zap.Logger) *Client {
	return &Client{api: api, logger: logger}
}

// CreatePayment opens a payment and returns it with its hosted checkout URL.
// Retries reuse one idempotency key so a retried call never opens a second payment.
func (c *Client) CreatePayment(ctx context.Context, req CreateRequest) (Payment, error) {
	if !req.Amount.IsPositive() || req.Description == "" || req.RedirectURL == "" || req.Metadata.OrderID == "" {
		return Payment{}, fmt.Errorf("%w: amount, description, redirect url and order id are required", ErrInvalidRequest)
	}
	if !ValidMethod(req.Method) {
		return Payment{}, fmt.Errorf("%w: unknown method %q", ErrInvalidRequest, req.Method)
	}

	body := createBody{
		Amount:      Amount{Currency: "EUR", Value: pricing.AmountString(req.Amount)},
		Description: req.Description,
		RedirectURL: req.RedirectURL,
		WebhookURL:  req.WebhookURL,
		Metadata:    req.Metadata,
		Method:      req.Method,
	}
	header := http.Header{}
	header.Set("Idempotency-Key", uuid.NewString())

	var out paymentBody
	if err := c.api.Do(ctx, http.MethodPost, "/payments", header, body, &out); err != nil {
		return Payment{}, fmt.Errorf("create payment: %w", err)
	}

	p := out.payment()
	if p.CheckoutURL == "" {
		return Payment{}, fmt.Errorf("create payment %s: response has no checkout url", p.ID)
	}
	c.logger.Info("payment created",
		zap.String("payment_id", p.ID),
		zap.String("order_id", req.Metadata.OrderID),
		zap.String("amount", body.Amount.Value))
	return p, nil
}

// GetPayment fetches the current state of a payment.
func (c *Client) GetPayment(ctx context.Context, id string) (Payment, error) {
	if id == "" {
		return Payment{}, ErrPaymentNotFound
	}

	var out paymentBody
	if err := c.api.Do(ctx, http.MethodGet, "/payments/"+url.PathEscape(id), nil, nil, &out); err != nil {
		if apiclient.IsStatus(err, http.StatusNotFound) {
			return Payment{}, ErrPaymentNotFound
		}
		return Payment{}, fmt.Errorf("get payment %s: %w", id, err)
	}
	return out.payment(), nil
}
