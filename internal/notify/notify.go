// Package notify pings the shop owner when an order is paid.
package notify

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/beletteringbestellen/plakletters/internal/orders"
	"github.com/beletteringbestellen/plakletters/internal/pricing"
)

type Notifier interface {
	OrderPaid(ctx context.Context, o orders.Order) error
}

// Nop is used when no chat is configured.
type Nop struct{}

func (Nop) OrderPaid(context.Context, orders.Order) error { return nil }

type messageSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram posts a short order summary to one chat.
type Telegram struct {
	bot    messageSender
	chatID int64
	logger *zap.Logger
}

// NewTelegram authorizes token against the bot API. endpoint may be empty for
// the public API; otherwise it is a format string like tgbotapi.APIEndpoint.
func NewTelegram(token, endpoint string, chatID int64, client *http.Client, logger *zap.Logger) (*Telegram, error) {
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	if client == nil {
		client = http.DefaultClient
	}
	bot, err := tgbotapi.NewBotAPIWithClient(token, endpoint, client)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot API: %w", err)
	}
	logger.Info("telegram bot authorized",
		zap.String("username", bot.Self.UserName),
		zap.Int64("chat_id", chatID))
	return &Telegram{bot: bot, chatID: chatID, logger: logger}, nil
}

func (t *Telegram) OrderPaid(_ context.Context, o orders.Order) error {
	msg := tgbotapi.NewMessage(t.chatID, OrderSummary(o))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true

	if _, err := t.bot.Send(msg); err != nil {
		t.logger.Error("failed to send order notification",
			zap.String("order_number", o.Number),
			zap.Error(err))
		return fmt.Errorf("send telegram message: %w", err)
	}
	return nil
}

// OrderSummary is the HTML message text for a paid order.
func OrderSummary(o orders.Order) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🛒 <b>Nieuwe bestelling %s</b>\n", escape(o.Number))
	fmt.Fprintf(&b, "Klant: %s", escape(o.Customer.Name))
	if o.Company != "" {
		fmt.Fprintf(&b, " (%s)", escape(o.Company))
	}
	fmt.Fprintf(&b, "\nTotaal: %s\n", escape(pricing.FormatEUR(o.Total())))

	for _, item := range o.Items {
		if item.Kind == "logo" {
			fmt.Fprintf(&b, "• logo %s, %g×%g cm, %d×\n", escape(item.Text), item.WidthCm, item.HeightCm, item.Quantity)
			continue
		}
		fmt.Fprintf(&b, "• \"%s\" %s, %s, %g cm, %d×\n",
			escape(item.Text), escape(item.FontName), escape(item.ColorName), item.HeightCm, item.Quantity)
	}
	return strings.TrimRight(b.String(), "\n")
}

var htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

func escape(s string) string { return htmlEscaper.Replace(s) }
