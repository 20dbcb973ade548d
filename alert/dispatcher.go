package alert

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jonwraymond/opscore/observe"
	"github.com/jonwraymond/opscore/resilience"
)

// DefaultDeliveryTimeout bounds a single delivery.
const DefaultDeliveryTimeout = 10 * time.Second

// DefaultMaxInFlight caps concurrent deliveries.
const DefaultMaxInFlight = 8

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithObserver sets the observer used for spans, logs and metrics.
func WithObserver(obs observe.Observer) DispatcherOption {
	return func(d *Dispatcher) {
		if obs != nil {
			d.obs = obs
		}
	}
}

// WithReporter sets the error-tracking sink for failed deliveries.
func WithReporter(r Reporter) DispatcherOption {
	return func(d *Dispatcher) {
		if r != nil {
			d.reporter = r
		}
	}
}

// WithDeliveryTimeout bounds each delivery by t.
func WithDeliveryTimeout(t time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		if t > 0 {
			d.timeout = t
		}
	}
}

// WithMaxInFlight caps concurrent deliveries. Deliveries beyond the cap
// wait up to the delivery timeout for a slot.
func WithMaxInFlight(n int) DispatcherOption {
	return func(d *Dispatcher) {
		if n > 0 {
			d.maxInFlight = n
		}
	}
}

// Dispatcher delivers notifications in the background.
type Dispatcher struct {
	messenger   Messenger
	reporter    Reporter
	obs         observe.Observer
	timeout     time.Duration
	maxInFlight int
	exec        *resilience.Executor
	wg          sync.WaitGroup
}

// NewDispatcher returns a Dispatcher that sends through m. A nil m drops
// every notification.
func NewDispatcher(m Messenger, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		messenger:   m,
		obs:         observe.Nop(),
		timeout:     DefaultDeliveryTimeout,
		maxInFlight: DefaultMaxInFlight,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.reporter == nil {
		d.reporter = LogReporter{Logger: d.obs.Logger()}
	}
	d.exec = resilience.NewExecutor(
		resilience.WithBulkhead(resilience.NewBulkhead(resilience.BulkheadConfig{
			MaxConcurrent: d.maxInFlight,
			MaxWait:       d.timeout,
		})),
		resilience.WithTimeout(d.timeout),
	)
	return d
}

// Notify starts delivery of n and returns immediately. The delivery
// outlives ctx's cancellation but keeps its values. Failures are logged
// and reported, never retried.
func (d *Dispatcher) Notify(ctx context.Context, n Notification) {
	if d.messenger == nil {
		return
	}
	if n.ID == "" {
		n.ID = uuid.NewString()
	}

	ctx = context.WithoutCancel(ctx)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.deliver(ctx, n)
	}()
}

func (d *Dispatcher) deliver(ctx context.Context, n Notification) {
	start := time.Now()
	op := observe.Operation{
		Component: "alert",
		Name:      "deliver",
		Attributes: []attribute.KeyValue{
			attribute.String("alert.service", n.Service),
			attribute.String("alert.status", n.Current.String()),
			attribute.String("alert.id", n.ID),
		},
	}

	err := observe.Instrument(ctx, d.obs, op, func(ctx context.Context) error {
		return d.exec.Execute(ctx, func(ctx context.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("messenger panic: %v", r)
				}
			}()
			return d.messenger.Send(ctx, n)
		})
	})

	d.obs.Metrics().RecordNotification(ctx, n.Service, err)
	if err != nil {
		d.reporter.Report(ctx, err, map[string]string{
			"component":    "alert",
			"service":      n.Service,
			"status":       n.Current.String(),
			"previous":     n.Previous.String(),
			"notification": n.ID,
			"elapsed_ms":   fmt.Sprint(time.Since(start).Milliseconds()),
		})
		return
	}
	d.obs.Logger().Info(ctx, "notification sent",
		observe.Field{Key: "service", Value: n.Service},
		observe.Field{Key: "status", Value: n.Current.String()},
		observe.Field{Key: "id", Value: n.ID},
	)
}

// Wait blocks until every delivery started so far has finished or ctx is
// done.
func (d *Dispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
