// Package mail renders and sends transactional email through Resend.
package mail

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/beletteringbestellen/plakletters/internal/apiclient"
)

const DefaultBaseURL = "https://api.resend.com"

var ErrNoRecipient = errors.New("email has no recipient")

// Message is one outgoing email.
type Message struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

// Client is a Resend API client.
type Client struct {
	api    *apiclient.Client
	logger *zap.Logger
}

func NewClient(api *apiclient.Client, logger *zap.Logger) *Client {
	return &Client{api: api, logger: logger}
}

// Send delivers msg and returns the provider message id.
func (c *Client) Send(ctx context.Context, msg Message) (string, error) {
	if len(msg.To) == 0 || msg.To[0] == "" {
		return "", ErrNoRecipient
	}

	var out struct {
		ID string `json:"id"`
	}
	if err := c.api.Do(ctx, http.MethodPost, "/emails", nil, msg, &out); err != nil {
		return "", fmt.Errorf("send email %q: %w", msg.Subject, err)
	}
	c.logger.Info("email sent", zap.String("message_id", out.ID), zap.Strings("to", msg.To), zap.String("subject", msg.Subject))
	return out.ID, nil
}
