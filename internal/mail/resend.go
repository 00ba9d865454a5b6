// Package mail renders the transactional emails and sends them through the
// Resend API.
package mail

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/resend/resend-go/v2"

	"github.com/iliyamo/festplanner/internal/config"
)

// ErrNotConfigured is returned when no provider key is set.
var ErrNotConfigured = errors.New("missing email provider key")

// Message is a rendered email.
type Message struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

// Sender delivers a rendered message and returns the provider's response.
type Sender interface {
	Send(ctx context.Context, m Message) (json.RawMessage, error)
}

// ProviderError carries a rejection reported by the provider.
type ProviderError struct {
	Message string
	Details json.RawMessage
}

func (e *ProviderError) Error() string {
	return "email provider rejected message: " + e.Message
}

func providerError(msg string, extra map[string]string) *ProviderError {
	msg = strings.TrimSpace(strings.TrimPrefix(msg, "[ERROR]:"))
	body := map[string]string{"message": msg}
	for k, v := range extra {
		if v != "" {
			body[k] = v
		}
	}
	details, _ := json.Marshal(body)
	return &ProviderError{Message: msg, Details: details}
}

// ResendClient sends messages with the Resend SDK.
type ResendClient struct {
	from   string
	client *resend.Client
}

// NewResend builds a client from cfg.  A missing key is not an error here;
// Send reports ErrNotConfigured so the caller can decide how to answer.
func NewResend(cfg config.MailConfig) *ResendClient {
	c := &ResendClient{from: cfg.From}
	if cfg.ResendAPIKey != "" {
		c.client = resend.NewCustomClient(&http.Client{Timeout: 15 * time.Second}, cfg.ResendAPIKey)
	}
	return c
}

// Configured reports whether an API key is present.
func (c *ResendClient) Configured() bool { return c.client != nil }

// Send delivers m.  An empty From is filled with the configured sender.
func (c *ResendClient) Send(ctx context.Context, m Message) (json.RawMessage, error) {
	if c.client == nil {
		return nil, ErrNotConfigured
	}
	if m.From == "" {
		m.From = c.from
	}
	resp, err := c.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    m.From,
		To:      m.To,
		Subject: m.Subject,
		Html:    m.HTML,
	})
	if err != nil {
		var uerr *url.Error
		var rl *resend.RateLimitError
		switch {
		case errors.As(err, &uerr), errors.Is(err, resend.ErrFailedToCreateEmailsSendRequest):
			return nil, fmt.Errorf("request failed: %w", err)
		case errors.As(err, &rl):
			return nil, providerError(rl.Message, map[string]string{"retry_after": rl.RetryAfter})
		default:
			return nil, providerError(err.Error(), nil)
		}
	}
	return json.Marshal(resp)
}
