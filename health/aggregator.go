package health

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"golang.org/x/sync/errgroup"
)

// Recorder receives per-probe results, e.g. for metrics.
type Recorder interface {
	RecordProbe(ctx context.Context, key string, result Result)
}

// AggregatorOption configures an Aggregator.
type AggregatorOption func(*Aggregator)

// WithProber replaces the default HTTPProbe.
func WithProber(p Prober) AggregatorOption {
	return func(a *Aggregator) {
		if p != nil {
			a.prober = p
		}
	}
}

// WithClock replaces time.Now for snapshot timestamps and overrides.
func WithClock(now func() time.Time) AggregatorOption {
	return func(a *Aggregator) {
		if now != nil {
			a.now = now
		}
	}
}

// WithRecorder reports every probe result to r.
func WithRecorder(r Recorder) AggregatorOption {
	return func(a *Aggregator) { a.recorder = r }
}

// Aggregator runs a set of probes and combines their results.
type Aggregator struct {
	prober   Prober
	now      func() time.Time
	recorder Recorder
}

// NewAggregator creates a new aggregator. By default probes are HTTP GETs
// through http.DefaultClient.
func NewAggregator(opts ...AggregatorOption) *Aggregator {
	a := &Aggregator{
		prober: NewHTTPProbe(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// RunAll probes every spec concurrently and waits for all of them. There is
// no cycle-level deadline; each probe is bounded by its own timeout. The
// returned snapshot always contains one result per spec.
func (a *Aggregator) RunAll(ctx context.Context, specs []ProbeSpec) Snapshot {
	results := make([]Result, len(specs))

	var g errgroup.Group
	for i, spec := range specs {
		g.Go(func() error {
			results[i] = a.run(ctx, spec)
			return nil
		})
	}
	_ = g.Wait()

	byKey := make(map[string]Result, len(specs))
	for i, spec := range specs {
		byKey[spec.Key] = results[i]
		if a.recorder != nil {
			a.recorder.RecordProbe(ctx, spec.Key, results[i])
		}
	}
	return NewSnapshot(byKey, a.now())
}

func (a *Aggregator) run(ctx context.Context, spec ProbeSpec) (result Result) {
	if spec.AssumeOperational {
		return Operational(0, a.now())
	}

	defer func() {
		if r := recover(); r != nil {
			result = Down(fmt.Sprintf("probe panicked: %v", r), 0, a.now())
		}
	}()
	return a.prober.Probe(ctx, spec)
}

// ValidateSpecs reports the first problem with specs: an empty, duplicate
// or reserved key, or an unparseable target.
func ValidateSpecs(specs []ProbeSpec) error {
	seen := make(map[string]struct{}, len(specs))
	for _, spec := range specs {
		if spec.Key == "" {
			return fmt.Errorf("%w: empty key", ErrInvalidSpec)
		}
		if spec.Key == fieldOverall || spec.Key == fieldTimestamp {
			return fmt.Errorf("%w: %q", ErrReservedKey, spec.Key)
		}
		if _, dup := seen[spec.Key]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicateKey, spec.Key)
		}
		seen[spec.Key] = struct{}{}

		if spec.AssumeOperational {
			continue
		}
		u, err := url.Parse(spec.Target)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%w: %q has target %q", ErrInvalidSpec, spec.Key, spec.Target)
		}
		if spec.Timeout < 0 {
			return fmt.Errorf("%w: %q has negative timeout", ErrInvalidSpec, spec.Key)
		}
	}
	return nil
}
