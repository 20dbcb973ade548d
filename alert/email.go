package alert

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// DefaultEmailEndpoint is the transactional email API used when
// EmailConfig.Endpoint is empty.
const DefaultEmailEndpoint = "https://api.resend.com/emails"

// EmailConfig configures an Email messenger.
type EmailConfig struct {
	Endpoint string
	APIKey   string
	From     string
	To       []string
}

// Email sends notifications through a transactional email HTTP API that
// accepts {from, to, subject, text} with a bearer API key.
type Email struct {
	cfg    EmailConfig
	client *http.Client
}

// NewEmail validates cfg and returns an Email messenger. A nil client uses
// a client with a 10s timeout.
func NewEmail(cfg EmailConfig, client *http.Client) (*Email, error) {
	if len(cfg.To) == 0 {
		return nil, ErrNoRecipients
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEmailEndpoint
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Email{cfg: cfg, client: client}, nil
}

type emailMessage struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	Text    string   `json:"text"`
}

// Send implements Messenger.
func (e *Email) Send(ctx context.Context, n Notification) error {
	body, err := json.Marshal(emailMessage{
		From:    e.cfg.From,
		To:      e.cfg.To,
		Subject: n.Subject(),
		Text:    n.Text(),
	})
	if err != nil {
		return fmt.Errorf("encode email: %w", err)
	}

	header := http.Header{}
	if e.cfg.APIKey != "" {
		header.Set("Authorization", "Bearer "+e.cfg.APIKey)
	}
	return post(ctx, e.client, e.cfg.Endpoint, body, header)
}
