package upstream

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/jonwraymond/opscore/cache"
	"github.com/jonwraymond/opscore/observe"
)

// Result is what Proxy.Fetch returns.
type Result struct {
	Data     Data
	CacheHit bool
}

// ProxyOption configures a Proxy.
type ProxyOption func(*Proxy)

// WithPolicy bounds per-request TTLs.
func WithPolicy(p cache.Policy) ProxyOption {
	return func(px *Proxy) { px.policy = p }
}

// WithTTL sets the TTL used for kind.
func WithTTL(kind Kind, ttl time.Duration) ProxyOption {
	return func(px *Proxy) {
		if ttl > 0 {
			px.ttls[kind] = ttl
		}
	}
}

// WithObserver sets the observer for spans and upstream metrics.
func WithObserver(obs observe.Observer) ProxyOption {
	return func(px *Proxy) {
		if obs != nil {
			px.obs = obs
		}
	}
}

// Proxy memoizes a Fetcher.
type Proxy struct {
	fetcher Fetcher
	store   *cache.Expiring[Data]
	memo    *cache.Memoizer[Data]
	policy  cache.Policy
	ttls    map[Kind]time.Duration
	obs     observe.Observer
}

// NewProxy returns a Proxy that caches f's answers in store.
func NewProxy(f Fetcher, store *cache.Expiring[Data], opts ...ProxyOption) *Proxy {
	p := &Proxy{
		fetcher: f,
		store:   store,
		policy:  cache.DefaultPolicy(),
		ttls:    make(map[Kind]time.Duration, len(kinds)),
		obs:     observe.Nop(),
	}
	for _, k := range kinds {
		p.ttls[k] = k.DefaultTTL()
	}
	for _, opt := range opts {
		opt(p)
	}
	p.memo = cache.NewMemoizer(store, p.policy)
	return p
}

// Fetch returns the data for req, from cache unless force is set. It
// returns ErrNotConfigured without any network call when the fetcher lacks
// credentials, and ErrNoData, uncached, when the upstream has nothing.
func (p *Proxy) Fetch(ctx context.Context, req Request, force bool) (Result, error) {
	if _, err := ParseKind(string(req.Kind)); err != nil {
		return Result{}, err
	}
	if p.fetcher == nil || !p.fetcher.Configured() {
		return Result{}, ErrNotConfigured
	}

	ttl := req.TTL
	if ttl <= 0 {
		ttl = p.ttls[req.Kind]
	}

	data, hit, err := p.memo.Load(ctx, req.Key(), ttl, force, func(ctx context.Context) (Data, error) {
		return p.load(ctx, req)
	})
	if err != nil {
		return Result{}, err
	}
	return Result{Data: data, CacheHit: hit}, nil
}

func (p *Proxy) load(ctx context.Context, req Request) (Data, error) {
	var data Data
	start := time.Now()
	op := observe.Operation{
		Component:  "upstream",
		Name:       "fetch",
		Attributes: []attribute.KeyValue{attribute.String("upstream.kind", string(req.Kind))},
	}
	err := observe.Instrument(ctx, p.obs, op, func(ctx context.Context) error {
		var err error
		data, err = p.fetcher.Fetch(ctx, req)
		if err == nil && data.Empty() {
			err = ErrNoData
		}
		return err
	})
	p.obs.Metrics().RecordUpstream(ctx, string(req.Kind), time.Since(start), err)
	return data, err
}

// ClearAll drops every cached answer.
func (p *Proxy) ClearAll() {
	p.store.Clear()
}

// Stats describes the cached answers.
func (p *Proxy) Stats() cache.Stats {
	return p.store.Stats()
}
