package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jonwraymond/opscore/health"
)

// Webhook types understood by NewWebhook.
const (
	WebhookSlack = "slack"
	WebhookTeams = "teams"
	WebhookHTTP  = "http"
)

// Webhook posts notifications to a chat or generic HTTP endpoint.
type Webhook struct {
	kind   string
	url    string
	client *http.Client
}

// NewWebhook returns a Webhook of the given kind. A nil client uses a
// client with a 10s timeout.
func NewWebhook(kind, url string, client *http.Client) (*Webhook, error) {
	switch kind {
	case WebhookSlack, WebhookTeams, WebhookHTTP:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownWebhookType, kind)
	}
	if url == "" {
		return nil, ErrMissingURL
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Webhook{kind: kind, url: url, client: client}, nil
}

// Send implements Messenger.
func (w *Webhook) Send(ctx context.Context, n Notification) error {
	var payload any
	switch w.kind {
	case WebhookSlack:
		payload = map[string]string{"text": "*" + n.Subject() + "*\n" + n.Text()}
	case WebhookTeams:
		payload = map[string]any{
			"@type":      "MessageCard",
			"@context":   "http://schema.org/extensions",
			"themeColor": statusColor(n.Current),
			"summary":    n.Subject(),
			"title":      n.Subject(),
			"text":       n.Text(),
		}
	default:
		payload = map[string]any{"notification": n}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", w.kind, err)
	}
	return post(ctx, w.client, w.url, body, nil)
}

func post(ctx context.Context, client *http.Client, url string, body []byte, header http.Header) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("http post: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode >= 400 {
		return fmt.Errorf("%w: HTTP %d", ErrDeliveryRejected, resp.StatusCode)
	}
	return nil
}

func statusColor(s health.Status) string {
	switch s {
	case health.StatusDown:
		return "FF4F6A"
	case health.StatusDegraded:
		return "FFAB40"
	default:
		return "2EB67D"
	}
}
