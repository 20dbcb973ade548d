package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/jonwraymond/opscore/health"
)

// Metrics holds the service's instruments. It satisfies health.Recorder and
// cache.Recorder. All methods are safe for concurrent use.
type Metrics struct {
	probes        metric.Int64Counter
	probeDuration metric.Float64Histogram
	cycles        metric.Int64Counter
	cacheLookups  metric.Int64Counter
	cacheSwept    metric.Int64Counter
	notifications metric.Int64Counter
	upstreamCalls metric.Float64Histogram
}

// NewMetrics creates the instruments on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	var (
		m   Metrics
		err error
	)

	if m.probes, err = meter.Int64Counter("opscore.probe.total",
		metric.WithDescription("Health probes run, by service and status"),
		metric.WithUnit("{probe}")); err != nil {
		return nil, err
	}
	if m.probeDuration, err = meter.Float64Histogram("opscore.probe.duration_ms",
		metric.WithDescription("Health probe response time in milliseconds"),
		metric.WithUnit("ms")); err != nil {
		return nil, err
	}
	if m.cycles, err = meter.Int64Counter("opscore.health.cycles",
		metric.WithDescription("Health cycles completed, by overall status"),
		metric.WithUnit("{cycle}")); err != nil {
		return nil, err
	}
	if m.cacheLookups, err = meter.Int64Counter("opscore.cache.lookups",
		metric.WithDescription("Cache lookups, by cache and result"),
		metric.WithUnit("{lookup}")); err != nil {
		return nil, err
	}
	if m.cacheSwept, err = meter.Int64Counter("opscore.cache.swept",
		metric.WithDescription("Expired cache entries removed by sweeps"),
		metric.WithUnit("{entry}")); err != nil {
		return nil, err
	}
	if m.notifications, err = meter.Int64Counter("opscore.notify.total",
		metric.WithDescription("Notification deliveries, by service and outcome"),
		metric.WithUnit("{notification}")); err != nil {
		return nil, err
	}
	if m.upstreamCalls, err = meter.Float64Histogram("opscore.upstream.duration_ms",
		metric.WithDescription("Upstream fetch duration in milliseconds, by kind and outcome"),
		metric.WithUnit("ms")); err != nil {
		return nil, err
	}

	return &m, nil
}

// RecordProbe implements health.Recorder.
func (m *Metrics) RecordProbe(ctx context.Context, key string, r health.Result) {
	m.probes.Add(ctx, 1, metric.WithAttributes(
		attribute.String("service", key),
		attribute.String("status", r.Status.String()),
	))
	m.probeDuration.Record(ctx, float64(r.ResponseTimeMs), metric.WithAttributes(
		attribute.String("service", key),
	))
}

// RecordCycle counts a completed health cycle.
func (m *Metrics) RecordCycle(ctx context.Context, overall health.Status) {
	m.cycles.Add(ctx, 1, metric.WithAttributes(attribute.String("overall", overall.String())))
}

// RecordLookup implements cache.Recorder.
func (m *Metrics) RecordLookup(ctx context.Context, cache string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.Add(ctx, 1, metric.WithAttributes(
		attribute.String("cache", cache),
		attribute.String("result", result),
	))
}

// RecordSweep implements cache.Recorder.
func (m *Metrics) RecordSweep(ctx context.Context, cache string, removed int) {
	if removed <= 0 {
		return
	}
	m.cacheSwept.Add(ctx, int64(removed), metric.WithAttributes(attribute.String("cache", cache)))
}

// RecordNotification counts one delivery attempt.
func (m *Metrics) RecordNotification(ctx context.Context, service string, err error) {
	m.notifications.Add(ctx, 1, metric.WithAttributes(
		attribute.String("service", service),
		attribute.String("outcome", outcome(err)),
	))
}

// RecordUpstream records one upstream fetch.
func (m *Metrics) RecordUpstream(ctx context.Context, kind string, d time.Duration, err error) {
	m.upstreamCalls.Record(ctx, float64(d.Milliseconds()), metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("outcome", outcome(err)),
	))
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
