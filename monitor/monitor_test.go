package monitor

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonwraymond/opscore/alert"
	"github.com/jonwraymond/opscore/health"
)

var fixedNow = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

// scripted reports whatever status has been set for each key.
type scripted struct {
	mu       sync.Mutex
	statuses map[string]health.Status
}

func (s *scripted) set(key string, st health.Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses[key] = st
}

func (s *scripted) Probe(_ context.Context, spec health.ProbeSpec) health.Result {
	s.mu.Lock()
	st := s.statuses[spec.Key]
	s.mu.Unlock()
	switch st {
	case health.StatusDown:
		return health.Down("Request timeout", 5*time.Second, fixedNow)
	case health.StatusDegraded:
		return health.Degraded("HTTP 500", 40*time.Millisecond, fixedNow)
	default:
		return health.Operational(12*time.Millisecond, fixedNow)
	}
}

type inbox struct {
	mu   sync.Mutex
	sent []alert.Notification
}

func (b *inbox) Send(_ context.Context, n alert.Notification) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sent = append(b.sent, n)
	return nil
}

func (b *inbox) drain() []alert.Notification {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.sent
	b.sent = nil
	return out
}

func specs() []health.ProbeSpec {
	return []health.ProbeSpec{
		{Key: "portfolio", Target: "https://portfolio.example.com"},
		{Key: "github", Target: "https://api.github.com"},
		{Key: "email", Target: "https://api.resend.com", ExpectedStatus: 401},
		{Key: "analytics", Target: "https://analytics.example.com"},
	}
}

func newTestMonitor(t *testing.T) (*Monitor, *scripted, *inbox, *alert.Dispatcher) {
	t.Helper()
	probe := &scripted{statuses: map[string]health.Status{}}
	box := &inbox{}
	d := alert.NewDispatcher(box)
	m, err := New(specs(),
		WithProber(probe),
		WithDispatcher(d),
		WithClock(func() time.Time { return fixedNow }),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return m, probe, box, d
}

func cycle(t *testing.T, m *Monitor, d *alert.Dispatcher) health.Snapshot {
	t.Helper()
	snap := m.Cycle(context.Background())
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := d.Wait(ctx); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	return snap
}

func TestMonitor_OutageAndRecovery(t *testing.T) {
	m, probe, box, d := newTestMonitor(t)

	// cycle 1: everything up, nothing to compare against
	snap := cycle(t, m, d)
	if snap.Overall != health.StatusOperational {
		t.Fatalf("cycle 1 overall = %v", snap.Overall)
	}
	if got := box.drain(); len(got) != 0 {
		t.Fatalf("cycle 1 sent %d notifications", len(got))
	}

	// cycle 2: github times out
	probe.set("github", health.StatusDown)
	snap = cycle(t, m, d)
	if snap.Overall != health.StatusDown {
		t.Errorf("cycle 2 overall = %v, want down", snap.Overall)
	}
	if code := health.StatusCode(snap); code != 503 {
		t.Errorf("cycle 2 status code = %d, want 503", code)
	}
	got := box.drain()
	if len(got) != 1 {
		t.Fatalf("cycle 2 sent %d notifications, want 1", len(got))
	}
	if n := got[0]; n.Service != "github" || n.Current != health.StatusDown || n.Previous != health.StatusOperational || n.Error != "Request timeout" {
		t.Errorf("cycle 2 notification = %+v", n)
	}

	// still down: no repeat
	snap = cycle(t, m, d)
	if got := box.drain(); len(got) != 0 {
		t.Errorf("repeat down sent %d notifications", len(got))
	}
	if snap.Services["github"].Status != health.StatusDown {
		t.Errorf("github = %v", snap.Services["github"].Status)
	}

	// recovery
	probe.set("github", health.StatusOperational)
	snap = cycle(t, m, d)
	if snap.Overall != health.StatusOperational || health.StatusCode(snap) != 200 {
		t.Errorf("recovery overall = %v (%d)", snap.Overall, health.StatusCode(snap))
	}
	got = box.drain()
	if len(got) != 1 || !got[0].Recovered() || got[0].Service != "github" || got[0].Previous != health.StatusDown {
		t.Fatalf("recovery notifications = %+v", got)
	}
}

func TestMonitor_PerServiceNotWorstOverall(t *testing.T) {
	m, probe, box, d := newTestMonitor(t)

	probe.set("email", health.StatusDown)
	cycle(t, m, d)
	box.drain()

	// overall stays Down, but analytics degrading is its own transition
	probe.set("analytics", health.StatusDegraded)
	snap := cycle(t, m, d)
	if snap.Overall != health.StatusDown {
		t.Fatalf("overall = %v", snap.Overall)
	}
	got := box.drain()
	if len(got) != 1 || got[0].Service != "analytics" || got[0].Current != health.StatusDegraded {
		t.Errorf("notifications = %+v", got)
	}
}

func TestMonitor_SlotUpdatedEveryCycle(t *testing.T) {
	m, _, _, d := newTestMonitor(t)

	if _, ok := m.Last(); ok {
		t.Fatal("slot should start empty")
	}
	snap := cycle(t, m, d)
	last, ok := m.Last()
	if !ok || last.Overall != snap.Overall || len(last.Services) != 4 {
		t.Errorf("Last() = %+v, %v", last, ok)
	}
}

func TestMonitor_FailedDeliveryDoesNotAffectSnapshot(t *testing.T) {
	probe := &scripted{statuses: map[string]health.Status{}}
	var reports int
	var mu sync.Mutex
	d := alert.NewDispatcher(
		alert.MessengerFunc(func(context.Context, alert.Notification) error { return errors.New("unreachable") }),
		alert.WithReporter(alert.ReporterFunc(func(context.Context, error, map[string]string) {
			mu.Lock()
			reports++
			mu.Unlock()
		})),
	)
	m, err := New(specs(), WithProber(probe), WithDispatcher(d))
	if err != nil {
		t.Fatal(err)
	}

	cycle(t, m, d)
	probe.set("portfolio", health.StatusDegraded)
	snap := cycle(t, m, d)

	if snap.Overall != health.StatusDegraded {
		t.Errorf("overall = %v", snap.Overall)
	}
	mu.Lock()
	defer mu.Unlock()
	if reports != 1 {
		t.Errorf("reports = %d, want 1", reports)
	}
}

func TestMonitor_CallerCancelDoesNotCutProbes(t *testing.T) {
	var slow atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if slow.Load() {
			time.Sleep(300 * time.Millisecond)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	box := &inbox{}
	d := alert.NewDispatcher(box)
	m, err := New([]health.ProbeSpec{{Key: "portfolio", Target: srv.URL, Timeout: 5 * time.Second}}, WithDispatcher(d))
	if err != nil {
		t.Fatal(err)
	}

	cycle(t, m, d)
	box.drain()

	// the caller gives up long before the probe's own deadline
	slow.Store(true)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	snap := m.Cycle(ctx)

	if got := snap.Services["portfolio"]; got.Status != health.StatusOperational {
		t.Errorf("portfolio = %v (%q), want operational", got.Status, got.Error)
	}
	last, _ := m.Last()
	if last.Overall != health.StatusOperational {
		t.Errorf("stored overall = %v, want operational", last.Overall)
	}

	wctx, wcancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer wcancel()
	_ = d.Wait(wctx)
	if got := box.drain(); len(got) != 0 {
		t.Errorf("caller cancellation sent %d notifications", len(got))
	}
}

func TestMonitor_ConcurrentCycles(t *testing.T) {
	m, _, box, d := newTestMonitor(t)

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Cycle(context.Background())
		}()
	}
	wg.Wait()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = d.Wait(ctx)

	if got := box.drain(); len(got) != 0 {
		t.Errorf("steady state sent %d notifications", len(got))
	}
}

func TestMonitor_SetProbes(t *testing.T) {
	m, _, _, d := newTestMonitor(t)

	if err := m.SetProbes([]health.ProbeSpec{{Key: "overall", Target: "https://x.example.com"}}); !errors.Is(err, health.ErrReservedKey) {
		t.Errorf("reserved key error = %v", err)
	}
	if len(m.Probes()) != 4 {
		t.Fatalf("invalid SetProbes replaced the probe set")
	}

	if err := m.SetProbes(specs()[:2]); err != nil {
		t.Fatalf("SetProbes: %v", err)
	}
	snap := cycle(t, m, d)
	if len(snap.Services) != 2 {
		t.Errorf("got %d services after reload, want 2", len(snap.Services))
	}
}

func TestNew_InvalidSpecs(t *testing.T) {
	_, err := New([]health.ProbeSpec{
		{Key: "github", Target: "https://api.github.com"},
		{Key: "github", Target: "https://api.github.com"},
	})
	if !errors.Is(err, health.ErrDuplicateKey) {
		t.Errorf("error = %v, want ErrDuplicateKey", err)
	}
}

func TestSlot_Swap(t *testing.T) {
	var s Slot
	a := health.NewSnapshot(map[string]health.Result{"a": health.Operational(0, fixedNow)}, fixedNow)
	b := health.NewSnapshot(map[string]health.Result{"a": health.Down("x", 0, fixedNow)}, fixedNow)

	if _, ok := s.Swap(a); ok {
		t.Error("first Swap reported a previous snapshot")
	}
	prev, ok := s.Swap(b)
	if !ok || prev.Overall != health.StatusOperational {
		t.Errorf("second Swap = %v, %v", prev.Overall, ok)
	}
	cur, _ := s.Load()
	if cur.Overall != health.StatusDown {
		t.Errorf("Load = %v", cur.Overall)
	}
}
