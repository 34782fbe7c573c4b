package mail

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/beletteringbestellen/plakletters/internal/orders"
	"github.com/beletteringbestellen/plakletters/internal/pricing"
)

//go:embed templates/*.html
var templateFS embed.FS

// Sender delivers a rendered message.
type Sender interface {
	Send(ctx context.Context, msg Message) (string, error)
}

// Mailer renders the shop's emails from stored orders and sends them.
type Mailer struct {
	sender    Sender
	from      string
	shopEmail string
	tmpl      *template.Template
	logger    *zap.Logger
	now       func() time.Time
}

// NewMailer parses the embedded templates. shopEmail receives a copy of every
// new order and is shown to customers as the contact address.
func NewMailer(sender Sender, from, shopEmail string, logger *zap.Logger) (*Mailer, error) {
	tmpl, err := template.New("mail").Funcs(template.FuncMap{
		"join": strings.Join,
		"inc":  func(i int) int { return i + 1 },
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse mail templates: %w", err)
	}
	return &Mailer{sender: sender, from: from, shopEmail: shopEmail, tmpl: tmpl, logger: logger, now: time.Now}, nil
}

type lineView struct {
	Text      string
	FontName  string
	ColorName string
	ColorHex  string
	Height    string
	Width     string
	Quantity  int
	Price     string
}

type orderView struct {
	OrderNumber   string
	CustomerName  string
	CustomerEmail string
	CustomerPhone string
	Company       string
	AddressLines  []string
	Items         []lineView
	Subtotal      string
	Shipping      string
	Total         string
	TrackingCode  string
	ShopEmail     string
	Year          int
}

func (m *Mailer) view(o orders.Order) orderView {
	v := orderView{
		OrderNumber:   o.Number,
		CustomerName:  o.Customer.Name,
		CustomerEmail: o.Email,
		CustomerPhone: o.Phone,
		Company:       o.Company,
		AddressLines:  o.Address.Lines(),
		Subtotal:      pricing.FormatEUR(o.Subtotal()),
		Shipping:      "Gratis",
		Total:         pricing.FormatEUR(o.Total()),
		TrackingCode:  o.TrackingCode,
		ShopEmail:     m.shopEmail,
		Year:          m.now().Year(),
	}
	if o.ShippingCents > 0 {
		v.Shipping = pricing.FormatEUR(o.Shipping())
	}

	for _, item := range o.Items {
		line := lineView{
			Text:      item.Text,
			FontName:  item.FontName,
			ColorName: item.ColorName,
			ColorHex:  item.ColorHex,
			Height:    strconv.FormatFloat(item.HeightCm, 'f', -1, 64),
			Quantity:  item.Quantity,
			Price:     pricing.FormatEUR(item.Total()),
		}
		if item.WidthCm > 0 {
			line.Width = strconv.FormatFloat(item.WidthCm, 'f', -1, 64)
		}
		if price, err := item.Price(); err == nil {
			line.Price = pricing.FormatEUR(price.Total)
		}
		v.Items = append(v.Items, line)
	}
	return v
}

func (m *Mailer) render(name string, data orderView) (string, error) {
	var buf bytes.Buffer
	if err := m.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}

// OrderConfirmation renders the email for the customer.
func (m *Mailer) OrderConfirmation(o orders.Order) (Message, error) {
	html, err := m.render("order_confirmation.html", m.view(o))
	if err != nil {
		return Message{}, err
	}
	return Message{
		From:    m.from,
		To:      []string{o.Email},
		Subject: fmt.Sprintf("Orderbevestiging %s - BeletteringBestellen", o.Number),
		HTML:    html,
	}, nil
}

// OwnerNotification renders the production copy for the shop.
func (m *Mailer) OwnerNotification(o orders.Order) (Message, error) {
	html, err := m.render("owner_notification.html", m.view(o))
	if err != nil {
		return Message{}, err
	}
	return Message{
		From:    m.from,
		To:      []string{m.shopEmail},
		Subject: fmt.Sprintf("Nieuwe bestelling %s - €%s", o.Number, pricing.AmountString(o.Total())),
		HTML:    html,
	}, nil
}

// ShippingConfirmation renders the email sent when an order leaves the shop.
func (m *Mailer) ShippingConfirmation(o orders.Order) (Message, error) {
	html, err := m.render("shipping_confirmation.html", m.view(o))
	if err != nil {
		return Message{}, err
	}
	return Message{
		From:    m.from,
		To:      []string{o.Email},
		Subject: fmt.Sprintf("Je bestelling %s is verzonden! - BeletteringBestellen", o.Number),
		HTML:    html,
	}, nil
}

// SendOrderConfirmation mails the customer and the shop. A failed shop copy is
// logged and does not fail the call.
func (m *Mailer) SendOrderConfirmation(ctx context.Context, o orders.Order) error {
	msg, err := m.OrderConfirmation(o)
	if err != nil {
		return err
	}
	if _, err := m.sender.Send(ctx, msg); err != nil {
		return err
	}

	if m.shopEmail == "" {
		return nil
	}
	owner, err := m.OwnerNotification(o)
	if err == nil {
		_, err = m.sender.Send(ctx, owner)
	}
	if err != nil {
		m.logger.Error("shop copy of order not sent", zap.String("order_number", o.Number), zap.Error(err))
	}
	return nil
}

func (m *Mailer) SendShippingConfirmation(ctx context.Context, o orders.Order) error {
	msg, err := m.ShippingConfirmation(o)
	if err != nil {
		return err
	}
	_, err = m.sender.Send(ctx, msg)
	return err
}
