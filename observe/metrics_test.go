package observe

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/jonwraymond/opscore/health"
)

func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := NewMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

// sumWhere adds the data points of an int64 counter whose attributes
// include key=value.
func sumWhere(t *testing.T, m *metricdata.Metrics, key, value string) int64 {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("%s: expected Sum[int64], got %T", m.Name, m.Data)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		if v, ok := dp.Attributes.Value(attribute.Key(key)); ok && v.AsString() == value {
			total += dp.Value
		}
	}
	return total
}

func TestMetrics_Probes(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordProbe(ctx, "github", health.Down("Request timeout", 5*time.Second, time.Now()))
	m.RecordProbe(ctx, "email", health.Operational(20*time.Millisecond, time.Now()))
	m.RecordCycle(ctx, health.StatusDown)

	rm := collect(t, reader)
	probes := findMetric(rm, "opscore.probe.total")
	if probes == nil {
		t.Fatal("opscore.probe.total not found")
	}
	if got := sumWhere(t, probes, "status", "down"); got != 1 {
		t.Errorf("down probes = %d, want 1", got)
	}
	if got := sumWhere(t, probes, "status", "operational"); got != 1 {
		t.Errorf("operational probes = %d, want 1", got)
	}

	if findMetric(rm, "opscore.probe.duration_ms") == nil {
		t.Error("opscore.probe.duration_ms not found")
	}
	cycles := findMetric(rm, "opscore.health.cycles")
	if cycles == nil || sumWhere(t, cycles, "overall", "down") != 1 {
		t.Error("cycle not recorded")
	}
}

func TestMetrics_Cache(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordLookup(ctx, "upstream", true)
	m.RecordLookup(ctx, "upstream", true)
	m.RecordLookup(ctx, "upstream", false)
	m.RecordSweep(ctx, "upstream", 3)
	m.RecordSweep(ctx, "upstream", 0)

	rm := collect(t, reader)
	lookups := findMetric(rm, "opscore.cache.lookups")
	if lookups == nil {
		t.Fatal("opscore.cache.lookups not found")
	}
	if hits := sumWhere(t, lookups, "result", "hit"); hits != 2 {
		t.Errorf("hits = %d, want 2", hits)
	}
	if misses := sumWhere(t, lookups, "result", "miss"); misses != 1 {
		t.Errorf("misses = %d, want 1", misses)
	}
	swept := findMetric(rm, "opscore.cache.swept")
	if swept == nil || sumWhere(t, swept, "cache", "upstream") != 3 {
		t.Error("sweep count not recorded")
	}
}

func TestMetrics_NotificationsAndUpstream(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordNotification(ctx, "github", nil)
	m.RecordNotification(ctx, "github", errors.New("smtp down"))
	m.RecordUpstream(ctx, "user", 120*time.Millisecond, nil)

	rm := collect(t, reader)
	notes := findMetric(rm, "opscore.notify.total")
	if notes == nil {
		t.Fatal("opscore.notify.total not found")
	}
	if sumWhere(t, notes, "outcome", "ok") != 1 || sumWhere(t, notes, "outcome", "error") != 1 {
		t.Error("notification outcomes not split")
	}
	if findMetric(rm, "opscore.upstream.duration_ms") == nil {
		t.Error("opscore.upstream.duration_ms not found")
	}
}
