package cache

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"
)

// LoadFunc produces a value on a cache miss.
type LoadFunc[V any] func(ctx context.Context) (V, error)

// Memoizer caches the results of a loader in an Expiring cache.
type Memoizer[V any] struct {
	cache  *Expiring[V]
	policy Policy
	group  singleflight.Group
}

// NewMemoizer wraps c. TTLs passed to Load are clamped by policy.
func NewMemoizer[V any](c *Expiring[V], policy Policy) *Memoizer[V] {
	return &Memoizer[V]{cache: c, policy: policy}
}

// Cache returns the underlying cache.
func (m *Memoizer[V]) Cache() *Expiring[V] {
	return m.cache
}

// Load returns the value cached under key, or calls load on a miss and
// stores its result for ttl. With force set the cache is not consulted,
// but a successful result still replaces the stored entry.
//
// Errors are NOT cached. Concurrent misses for the same key share a single
// call to load, which is not cancelled when a caller's ctx ends. The boolean
// result reports a cache hit.
func (m *Memoizer[V]) Load(ctx context.Context, key string, ttl time.Duration, force bool, load LoadFunc[V]) (V, bool, error) {
	var zero V
	if load == nil {
		return zero, false, ErrNilLoader
	}

	if !force {
		if v, ok := m.cache.Get(ctx, key); ok {
			return v, true, nil
		}
	}

	flight := key
	if force {
		flight = "force\x00" + key
	}
	// The shared load outlives any one caller; each caller still stops
	// waiting when its own ctx ends.
	shared := context.WithoutCancel(ctx)
	ch := m.group.DoChan(flight, func() (any, error) {
		v, err := load(shared)
		if err != nil {
			return nil, err
		}
		m.cache.Set(shared, key, v, m.policy.EffectiveTTL(ttl))
		return v, nil
	})
	select {
	case <-ctx.Done():
		return zero, false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, false, res.Err
		}
		return res.Val.(V), false, nil
	}
}
