package main

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"

	"github.com/jonwraymond/opscore/alert"
	"github.com/jonwraymond/opscore/auth"
	"github.com/jonwraymond/opscore/config"
	"github.com/jonwraymond/opscore/health"
	"github.com/jonwraymond/opscore/observe"
)

func newProbe() *health.HTTPProbe {
	return health.NewHTTPProbe(health.WithUserAgent("opscore/" + Version))
}

// buildMessengers returns one messenger per configured channel.
func buildMessengers(cfg *config.Config, client *http.Client) (alert.Fanout, error) {
	var out alert.Fanout
	for i, w := range cfg.Notify.Webhooks {
		m, err := alert.NewWebhook(w.Type, w.URL, client)
		if err != nil {
			return nil, fmt.Errorf("notify.webhooks[%d]: %w", i, err)
		}
		out = append(out, m)
	}
	if e := cfg.Notify.Email; e.Enabled() {
		m, err := alert.NewEmail(alert.EmailConfig{
			Endpoint: e.Endpoint,
			APIKey:   e.APIKey,
			From:     e.From,
			To:       e.To,
		}, client)
		if err != nil {
			return nil, fmt.Errorf("notify.email: %w", err)
		}
		out = append(out, m)
	}
	return out, nil
}

// liveMessenger delivers through whichever channel set was stored last,
// so a config reload can swap channels under a running dispatcher.
type liveMessenger struct {
	current atomic.Pointer[alert.Fanout]
}

func newLiveMessenger(f alert.Fanout) *liveMessenger {
	l := &liveMessenger{}
	l.Store(f)
	return l
}

func (l *liveMessenger) Store(f alert.Fanout) { l.current.Store(&f) }

func (l *liveMessenger) Len() int { return len(*l.current.Load()) }

func (l *liveMessenger) Send(ctx context.Context, n alert.Notification) error {
	return l.current.Load().Send(ctx, n)
}

// buildAdmin returns nil when no admin token source is configured.
func buildAdmin(cfg *config.Config, logger observe.Logger) (*auth.Verifier, error) {
	switch {
	case cfg.Admin.JWTSecret != "":
		return auth.NewHMACVerifier([]byte(cfg.Admin.JWTSecret), cfg.JWT())
	case cfg.Admin.JWKSURL != "":
		return auth.NewJWKSVerifier(cfg.Admin.JWKSURL, cfg.JWT(), func(url string, err error) {
			logger.Warn(context.Background(), "JWKS refresh failed",
				observe.Field{Key: "url", Value: url},
				observe.Field{Key: "error", Value: err.Error()})
		})
	default:
		return nil, nil
	}
}
