package monitor

import (
	"context"
	"fmt"
	"slices"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/jonwraymond/opscore/alert"
	"github.com/jonwraymond/opscore/health"
	"github.com/jonwraymond/opscore/observe"
)

// FallbackReason is the error reported for every service when a cycle
// cannot complete.
const FallbackReason = "Health check failed"

// Option configures a Monitor.
type Option func(*Monitor)

// WithProber replaces the HTTP prober used by the default aggregator.
func WithProber(p health.Prober) Option {
	return func(m *Monitor) { m.prober = p }
}

// WithDispatcher sets where notifications go. Without one, transitions are
// only logged.
func WithDispatcher(d *alert.Dispatcher) Option {
	return func(m *Monitor) { m.dispatcher = d }
}

// WithObserver sets the observer for spans, logs and metrics.
func WithObserver(obs observe.Observer) Option {
	return func(m *Monitor) {
		if obs != nil {
			m.obs = obs
		}
	}
}

// WithSlot shares an existing slot, e.g. between a server and a scheduler
// built separately.
func WithSlot(s *Slot) Option {
	return func(m *Monitor) {
		if s != nil {
			m.slot = s
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Monitor) {
		if now != nil {
			m.now = now
		}
	}
}

// Monitor runs health cycles over a replaceable set of probes.
type Monitor struct {
	prober     health.Prober
	agg        *health.Aggregator
	dispatcher *alert.Dispatcher
	obs        observe.Observer
	slot       *Slot
	now        func() time.Time
	specs      atomic.Pointer[[]health.ProbeSpec]
}

// New validates specs and returns a Monitor with an empty slot.
func New(specs []health.ProbeSpec, opts ...Option) (*Monitor, error) {
	m := &Monitor{
		obs:  observe.Nop(),
		slot: &Slot{},
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}

	aggOpts := []health.AggregatorOption{
		health.WithClock(m.now),
		health.WithRecorder(m.obs.Metrics()),
	}
	if m.prober != nil {
		aggOpts = append(aggOpts, health.WithProber(m.prober))
	}
	m.agg = health.NewAggregator(aggOpts...)

	if err := m.SetProbes(specs); err != nil {
		return nil, err
	}
	return m, nil
}

// SetProbes replaces the probe set used from the next cycle on.
func (m *Monitor) SetProbes(specs []health.ProbeSpec) error {
	if err := health.ValidateSpecs(specs); err != nil {
		return err
	}
	cp := slices.Clone(specs)
	m.specs.Store(&cp)
	return nil
}

// Probes returns the current probe set.
func (m *Monitor) Probes() []health.ProbeSpec {
	return slices.Clone(*m.specs.Load())
}

// Last returns the snapshot stored by the most recent completed cycle.
func (m *Monitor) Last() (health.Snapshot, bool) {
	return m.slot.Load()
}

// Cycle probes every service, stores the snapshot as the new previous one
// and starts a notification for each alert-worthy transition. It returns
// before notifications are delivered. If the cycle panics, Cycle returns
// an all-Down snapshot and leaves the slot untouched.
//
// Cancelling ctx does not cut the cycle short: each probe is bound only by
// its own timeout.
func (m *Monitor) Cycle(ctx context.Context) (snap health.Snapshot) {
	ctx = context.WithoutCancel(ctx)
	specs := *m.specs.Load()

	ctx, span := m.obs.Tracer().Start(ctx, observe.Operation{
		Component:  "health",
		Name:       "cycle",
		Attributes: []attribute.KeyValue{attribute.Int("health.probes", len(specs))},
	})
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("health cycle panic: %v", r)
			m.obs.Logger().Error(ctx, "health cycle failed", observe.Err(err))
			m.obs.Tracer().End(span, err)

			keys := make([]string, len(specs))
			for i, s := range specs {
				keys[i] = s.Key
			}
			snap = health.FallbackSnapshot(keys, FallbackReason, m.now())
			m.obs.Metrics().RecordCycle(ctx, snap.Overall)
		}
	}()

	snap = m.agg.RunAll(ctx, specs)

	prev, ok := m.slot.Swap(snap)
	var prevp *health.Snapshot
	if ok {
		prevp = &prev
	}

	for _, d := range alert.Transitions(prevp, snap) {
		if !d.ShouldNotify {
			continue
		}
		m.obs.Logger().Info(ctx, "status transition",
			observe.Field{Key: "service", Value: d.Service},
			observe.Field{Key: "from", Value: d.Previous.String()},
			observe.Field{Key: "to", Value: d.Current.String()},
		)
		if m.dispatcher != nil {
			m.dispatcher.Notify(ctx, alert.NewNotification(d, snap.Services[d.Service]))
		}
	}

	span.SetAttributes(attribute.String("health.overall", snap.Overall.String()))
	m.obs.Metrics().RecordCycle(ctx, snap.Overall)
	m.obs.Tracer().End(span, nil)
	return snap
}
