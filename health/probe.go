package health

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"
)

const (
	// DefaultProbeTimeout applies when a spec leaves Timeout unset.
	DefaultProbeTimeout = 5 * time.Second

	// TimeoutMessage is the error recorded when a probe hits its deadline.
	TimeoutMessage = "Request timeout"

	maxDrainBytes = 64 << 10
)

// HTTPProbe checks a service with a single GET request.
type HTTPProbe struct {
	client    *http.Client
	userAgent string
	now       func() time.Time
}

// ProbeOption configures an HTTPProbe.
type ProbeOption func(*HTTPProbe)

// WithHTTPClient sets the client used for probes. The client's own Timeout
// is left alone; each probe also carries its own deadline.
func WithHTTPClient(c *http.Client) ProbeOption {
	return func(p *HTTPProbe) {
		if c != nil {
			p.client = c
		}
	}
}

// WithUserAgent sets the User-Agent header sent by probes.
func WithUserAgent(ua string) ProbeOption {
	return func(p *HTTPProbe) { p.userAgent = ua }
}

// WithProbeClock replaces time.Now for latency and completion stamps.
func WithProbeClock(now func() time.Time) ProbeOption {
	return func(p *HTTPProbe) {
		if now != nil {
			p.now = now
		}
	}
}

// NewHTTPProbe creates a probe using http.DefaultClient unless overridden.
func NewHTTPProbe(opts ...ProbeOption) *HTTPProbe {
	p := &HTTPProbe{
		client:    http.DefaultClient,
		userAgent: "opscore-health/1.0",
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Probe runs spec's check. It implements Prober.
func (p *HTTPProbe) Probe(ctx context.Context, spec ProbeSpec) Result {
	return p.Check(ctx, spec.Target, spec.Timeout, spec.ExpectedStatus)
}

// Check issues one GET to target bounded by timeout and classifies the
// outcome. A non-positive timeout selects DefaultProbeTimeout and a zero
// expectedStatus selects 200. Check never returns an error; failures are
// folded into the Result.
func (p *HTTPProbe) Check(ctx context.Context, target string, timeout time.Duration, expectedStatus int) Result {
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	if expectedStatus == 0 {
		expectedStatus = http.StatusOK
	}

	start := p.now()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		end := p.now()
		return Down(err.Error(), end.Sub(start), end)
	}
	if p.userAgent != "" {
		req.Header.Set("User-Agent", p.userAgent)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		end := p.now()
		if isTimeout(ctx, err) {
			return Down(TimeoutMessage, end.Sub(start), end)
		}
		return Down(transportMessage(err), end.Sub(start), end)
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrainBytes))
	_ = resp.Body.Close()

	end := p.now()
	if resp.StatusCode != expectedStatus {
		return Degraded(fmt.Sprintf("HTTP %d", resp.StatusCode), end.Sub(start), end)
	}
	return Operational(end.Sub(start), end)
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// transportMessage strips the "Get <url>:" prefix net/http adds.
func transportMessage(err error) string {
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		return urlErr.Err.Error()
	}
	return err.Error()
}

var _ Prober = (*HTTPProbe)(nil)
