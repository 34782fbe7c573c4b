// Package checkout turns a cart into a stored order and follows its payment.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/beletteringbestellen/plakletters/internal/cart"
	"github.com/beletteringbestellen/plakletters/internal/notify"
	"github.com/beletteringbestellen/plakletters/internal/orders"
	"github.com/beletteringbestellen/plakletters/internal/payment"
)

var (
	ErrInvalidDetails = errors.New("invalid customer details")
	ErrMissingPayment = errors.New("missing payment id")
	ErrPaymentFailed  = errors.New("payment could not be started")
	ErrShippingMail   = errors.New("order shipped but the customer was not emailed")
)

// OrderStore is the part of the order repository checkout needs.
type OrderStore interface {
	Create(ctx context.Context, order *orders.Order) error
	GetByID(ctx context.Context, id string) (orders.Order, error)
	GetByPaymentID(ctx context.Context, paymentID string) (orders.Order, error)
	SetPayment(ctx context.Context, id, paymentID string) error
	ApplyPayment(ctx context.Context, id, paymentStatus string) (before, after orders.Status, err error)
	UpdateStatus(ctx context.Context, id string, status orders.Status) error
	MarkShipped(ctx context.Context, id, trackingCode string) (orders.Order, error)
	ShippingRate(ctx context.Context, country string) (orders.ShippingRate, error)
}

type Payments interface {
	CreatePayment(ctx context.Context, req payment.CreateRequest) (payment.Payment, error)
	GetPayment(ctx context.Context, id string) (payment.Payment, error)
}

type Mailer interface {
	SendOrderConfirmation(ctx context.Context, o orders.Order) error
	SendShippingConfirmation(ctx context.Context, o orders.Order) error
}

// CustomerDetails is the checkout form.
type CustomerDetails struct {
	Email         string `json:"email"`
	FirstName     string `json:"firstName"`
	LastName      string `json:"lastName"`
	Company       string `json:"company"`
	Street        string `json:"street"`
	HouseNumber   string `json:"houseNumber"`
	PostalCode    string `json:"postalCode"`
	City          string `json:"city"`
	Country       string `json:"country"`
	Phone         string `json:"phone"`
	Notes         string `json:"notes"`
	PaymentMethod string `json:"paymentMethod"`
}

func (d CustomerDetails) trimmed() CustomerDetails {
	for _, f := range []*string{
		&d.Email, &d.FirstName, &d.LastName, &d.Company, &d.Street, &d.HouseNumber,
		&d.PostalCode, &d.City, &d.Country, &d.Phone, &d.Notes, &d.PaymentMethod,
	} {
		*f = strings.TrimSpace(*f)
	}
	d.PostalCode = strings.ToUpper(d.PostalCode)
	d.Country = strings.ToUpper(d.Country)
	if d.Country == "" {
		d.Country = "NL"
	}
	return d
}

// Validate returns ErrInvalidDetails naming every missing or malformed field.
func (d CustomerDetails) Validate() error {
	var missing []string
	required := []struct{ name, value string }{
		{"email", d.Email},
		{"firstName", d.FirstName},
		{"lastName", d.LastName},
		{"street", d.Street},
		{"houseNumber", d.HouseNumber},
		{"postalCode", d.PostalCode},
		{"city", d.City},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			missing = append(missing, r.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidDetails, strings.Join(missing, ", "))
	}
	if addr, err := mail.ParseAddress(d.Email); err != nil || addr.Address != strings.TrimSpace(d.Email) {
		return fmt.Errorf("%w: email %q", ErrInvalidDetails, d.Email)
	}
	if !payment.ValidMethod(strings.TrimSpace(d.PaymentMethod)) {
		return fmt.Errorf("%w: payment method %q", ErrInvalidDetails, d.PaymentMethod)
	}
	return nil
}

// Result is what the storefront needs to send the customer to the payment page.
type Result struct {
	OrderID     string          `json:"orderId"`
	OrderNumber string          `json:"orderNumber"`
	Total       decimal.Decimal `json:"total"`
	CheckoutURL string          `json:"checkoutUrl"`
}

type Options struct {
	// PublicBaseURL is where the provider sends the customer and its webhooks.
	PublicBaseURL string
	// Width estimates the printed width of a text line. Optional.
	Width func(cart.Item) float64
}

type Service struct {
	store    OrderStore
	payments Payments
	mailer   Mailer
	notifier notify.Notifier
	opts     Options
	logger   *zap.Logger
	now      func() time.Time
}

func NewService(store OrderStore, payments Payments, mailer Mailer, notifier notify.Notifier, opts Options, logger *zap.Logger) *Service {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	opts.PublicBaseURL = strings.TrimRight(opts.PublicBaseURL, "/")
	return &Service{
		store:    store,
		payments: payments,
		mailer:   mailer,
		notifier: notifier,
		opts:     opts,
		logger:   logger,
		now:      time.Now,
	}
}

// Start stores an order for items and opens its payment.
func (s *Service) Start(ctx context.Context, items []cart.Item, details CustomerDetails) (Result, error) {
	if len(items) == 0 {
		return Result{}, orders.ErrEmptyCart
	}
	details = details.trimmed()
	if err := details.Validate(); err != nil {
		return Result{}, err
	}

	rate, err := s.store.ShippingRate(ctx, details.Country)
	if err != nil {
		return Result{}, err
	}

	order, err := orders.BuildOrder(orders.BuildInput{
		Items: items,
		Customer: orders.Customer{
			Name:    strings.TrimSpace(details.FirstName + " " + details.LastName),
			Email:   details.Email,
			Phone:   details.Phone,
			Company: details.Company,
		},
		Address: orders.Address{
			Street:      details.Street,
			HouseNumber: details.HouseNumber,
			PostalCode:  details.PostalCode,
			City:        details.City,
			Country:     details.Country,
		},
		Notes:         details.Notes,
		PaymentMethod: details.PaymentMethod,
		Shipping:      rate,
		Width:         s.opts.Width,
	}, s.now())
	if err != nil {
		return Result{}, err
	}

	if err := s.store.Create(ctx, &order); err != nil {
		return Result{}, err
	}
	logger := s.logger.With(zap.String("order_id", order.ID), zap.String("order_number", order.Number))
	logger.Info("order created",
		zap.Int("items", len(order.Items)),
		zap.Int64("total_cents", order.TotalCents))

	p, err := s.payments.CreatePayment(ctx, payment.CreateRequest{
		Amount:      order.Total(),
		Description: "Bestelling " + order.Number,
		RedirectURL: s.opts.PublicBaseURL + "/bestelling/" + order.ID,
		WebhookURL:  s.opts.PublicBaseURL + "/api/payments/webhook",
		Metadata:    payment.Metadata{OrderID: order.ID, CustomerEmail: order.Email},
		Method:      order.PaymentMethod,
	})
	if err != nil {
		logger.Error("failed to create payment", zap.Error(err))
		if err := s.store.UpdateStatus(ctx, order.ID, orders.StatusPaymentFailed); err != nil {
			logger.Error("failed to mark order payment_failed", zap.Error(err))
		}
		return Result{}, fmt.Errorf("%w: %v", ErrPaymentFailed, err)
	}

	if err := s.store.SetPayment(ctx, order.ID, p.ID); err != nil {
		return Result{}, err
	}
	logger.Info("payment created", zap.String("payment_id", p.ID))

	return Result{
		OrderID:     order.ID,
		OrderNumber: order.Number,
		Total:       order.Total(),
		CheckoutURL: p.CheckoutURL,
	}, nil
}

// HandleWebhook reloads a payment from the provider and applies its status.
// The first transition to paid sends the confirmation emails and notifies the
// shop; failures there are logged only.
func (s *Service) HandleWebhook(ctx context.Context, paymentID string) error {
	paymentID = strings.TrimSpace(paymentID)
	if paymentID == "" {
		return ErrMissingPayment
	}

	p, err := s.payments.GetPayment(ctx, paymentID)
	if err != nil {
		return fmt.Errorf("fetch payment %s: %w", paymentID, err)
	}

	orderID := p.Metadata.OrderID
	if orderID == "" {
		order, err := s.store.GetByPaymentID(ctx, paymentID)
		if err != nil {
			return fmt.Errorf("find order for payment %s: %w", paymentID, err)
		}
		orderID = order.ID
	}

	before, after, err := s.store.ApplyPayment(ctx, orderID, p.Status)
	if err != nil {
		return err
	}
	logger := s.logger.With(zap.String("order_id", orderID), zap.String("payment_id", paymentID))
	logger.Info("payment status applied",
		zap.String("payment_status", p.Status),
		zap.String("from", string(before)),
		zap.String("to", string(after)))

	if before == orders.StatusPaid || after != orders.StatusPaid {
		return nil
	}

	order, err := s.store.GetByID(ctx, orderID)
	if err != nil {
		return err
	}
	if err := s.mailer.SendOrderConfirmation(ctx, order); err != nil {
		logger.Error("failed to send order confirmation", zap.Error(err))
	}
	if err := s.notifier.OrderPaid(ctx, order); err != nil {
		logger.Error("failed to notify shop of paid order", zap.Error(err))
	}
	return nil
}

// Ship marks an order shipped and emails the customer. When only the email
// fails the shipped order is returned together with ErrShippingMail.
func (s *Service) Ship(ctx context.Context, orderID, trackingCode string) (orders.Order, error) {
	order, err := s.store.MarkShipped(ctx, orderID, trackingCode)
	if err != nil {
		return orders.Order{}, err
	}
	s.logger.Info("order shipped",
		zap.String("order_id", order.ID),
		zap.String("order_number", order.Number),
		zap.Bool("tracking", order.TrackingCode != ""))

	if err := s.mailer.SendShippingConfirmation(ctx, order); err != nil {
		s.logger.Error("failed to send shipping confirmation", zap.String("order_id", order.ID), zap.Error(err))
		return order, fmt.Errorf("%w: %v", ErrShippingMail, err)
	}
	return order, nil
}
