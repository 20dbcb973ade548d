package health

import (
	"context"
	"time"
)

// Result is the outcome of probing one service.
type Result struct {
	// Status is the classified outcome.
	Status Status `json:"status"`

	// ResponseTimeMs is the wall time of the probe in milliseconds.
	ResponseTimeMs int64 `json:"responseTime"`

	// Error explains a non-operational status. Empty when operational.
	Error string `json:"error,omitempty"`

	// LastChecked is when the probe completed.
	LastChecked time.Time `json:"lastChecked"`
}

// Operational creates an operational result.
func Operational(elapsed time.Duration, at time.Time) Result {
	return Result{
		Status:         StatusOperational,
		ResponseTimeMs: elapsed.Milliseconds(),
		LastChecked:    at,
	}
}

// Degraded creates a degraded result.
func Degraded(reason string, elapsed time.Duration, at time.Time) Result {
	return Result{
		Status:         StatusDegraded,
		ResponseTimeMs: elapsed.Milliseconds(),
		Error:          reason,
		LastChecked:    at,
	}
}

// Down creates a down result.
func Down(reason string, elapsed time.Duration, at time.Time) Result {
	return Result{
		Status:         StatusDown,
		ResponseTimeMs: elapsed.Milliseconds(),
		Error:          reason,
		LastChecked:    at,
	}
}

// ProbeSpec describes one service to probe.
type ProbeSpec struct {
	// Key identifies the service in snapshots, e.g. "github".
	Key string

	// Target is the URL to GET.
	Target string

	// Timeout bounds the probe. Default: 5 seconds
	Timeout time.Duration

	// ExpectedStatus is the status code that counts as success.
	// Default: 200
	ExpectedStatus int

	// AssumeOperational skips the probe and reports Operational with zero
	// latency.
	AssumeOperational bool
}

// Prober runs the check described by a spec.
type Prober interface {
	Probe(ctx context.Context, spec ProbeSpec) Result
}

// ProberFunc is an adapter to allow ordinary functions to be used as Probers.
type ProberFunc func(ctx context.Context, spec ProbeSpec) Result

// Probe calls f.
func (f ProberFunc) Probe(ctx context.Context, spec ProbeSpec) Result {
	return f(ctx, spec)
}
