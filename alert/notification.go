package alert

import (
	"fmt"
	"strings"
	"time"

	"github.com/jonwraymond/opscore/health"
)

// Notification describes one alert-worthy transition.
type Notification struct {
	ID             string        `json:"id"`
	Service        string        `json:"service"`
	Current        health.Status `json:"current"`
	Previous       health.Status `json:"previous"`
	Error          string        `json:"error,omitempty"`
	ResponseTimeMs int64         `json:"responseTime"`
	Timestamp      time.Time     `json:"timestamp"`
}

// NewNotification builds the notification for d from the service's latest
// result.
func NewNotification(d Decision, r health.Result) Notification {
	return Notification{
		Service:        d.Service,
		Current:        d.Current,
		Previous:       d.Previous,
		Error:          r.Error,
		ResponseTimeMs: r.ResponseTimeMs,
		Timestamp:      r.LastChecked,
	}
}

// Recovered reports whether the notification announces a return to
// Operational.
func (n Notification) Recovered() bool {
	return n.Current == health.StatusOperational
}

// Subject is a one-line summary, e.g. "[DOWN] github is down".
func (n Notification) Subject() string {
	if n.Recovered() {
		return fmt.Sprintf("[RECOVERED] %s is operational again", n.Service)
	}
	return fmt.Sprintf("[%s] %s is %s", strings.ToUpper(n.Current.String()), n.Service, n.Current)
}

// Text is the multi-line body used by plain-text channels.
func (n Notification) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Service: %s\n", n.Service)
	fmt.Fprintf(&b, "Status: %s (was %s)\n", n.Current, n.Previous)
	if n.Error != "" {
		fmt.Fprintf(&b, "Error: %s\n", n.Error)
	}
	fmt.Fprintf(&b, "Response time: %dms\n", n.ResponseTimeMs)
	fmt.Fprintf(&b, "Checked at: %s\n", n.Timestamp.UTC().Format(time.RFC3339))
	return b.String()
}
