package cache

import (
	"context"
	"sort"
	"sync"
	"time"
)

type config struct {
	name       string
	defaultTTL time.Duration
	now        func() time.Time
	recorder   Recorder
}

// Option configures an Expiring cache.
type Option func(*config)

// WithName labels the cache in recorded metrics. Default: "default".
func WithName(name string) Option {
	return func(c *config) { c.name = name }
}

// WithDefaultTTL sets the TTL used by Set when it is given a non-positive
// TTL. Default: DefaultPolicy().DefaultTTL.
func WithDefaultTTL(ttl time.Duration) Option {
	return func(c *config) {
		if ttl > 0 {
			c.defaultTTL = ttl
		}
	}
}

// WithClock replaces time.Now. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(c *config) {
		if now != nil {
			c.now = now
		}
	}
}

// WithRecorder reports lookups and sweeps to r.
func WithRecorder(r Recorder) Option {
	return func(c *config) {
		if r != nil {
			c.recorder = r
		}
	}
}

// Expiring is a thread-safe map of string keys to values of type V with a
// TTL per entry. The zero value is not usable; construct with New.
type Expiring[V any] struct {
	mu      sync.RWMutex
	entries map[string]Entry[V]
	cfg     config
}

// New creates an empty cache.
func New[V any](opts ...Option) *Expiring[V] {
	cfg := config{
		name:       "default",
		defaultTTL: DefaultPolicy().DefaultTTL,
		now:        time.Now,
		recorder:   nopRecorder{},
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Expiring[V]{
		entries: make(map[string]Entry[V]),
		cfg:     cfg,
	}
}

// Name returns the label given by WithName.
func (c *Expiring[V]) Name() string {
	return c.cfg.name
}

// Get returns the value stored under key if it has not expired. An expired
// entry is removed and reported as a miss.
func (c *Expiring[V]) Get(ctx context.Context, key string) (V, bool) {
	now := c.cfg.now()

	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if ok && entry.Expired(now) {
		c.mu.Lock()
		// Another writer may have replaced the entry since the read lock.
		if cur, still := c.entries[key]; still && cur.StoredAt.Equal(entry.StoredAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		ok = false
	}

	c.cfg.recorder.RecordLookup(ctx, c.cfg.name, ok)
	if !ok {
		var zero V
		return zero, false
	}
	return entry.Value, true
}

// Set stores value under key, replacing any existing entry and resetting its
// age. A non-positive ttl selects the cache's default TTL.
func (c *Expiring[V]) Set(_ context.Context, key string, value V, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.cfg.defaultTTL
	}
	entry := Entry[V]{Value: value, StoredAt: c.cfg.now(), TTL: ttl}

	c.mu.Lock()
	c.entries[key] = entry
	c.mu.Unlock()
}

// Delete removes key. Deleting a missing key is a no-op.
func (c *Expiring[V]) Delete(_ context.Context, key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// SweepExpired removes every expired entry and returns how many were
// removed.
func (c *Expiring[V]) SweepExpired(ctx context.Context) int {
	now := c.cfg.now()
	removed := 0

	c.mu.Lock()
	for key, entry := range c.entries {
		if entry.Expired(now) {
			delete(c.entries, key)
			removed++
		}
	}
	c.mu.Unlock()

	c.cfg.recorder.RecordSweep(ctx, c.cfg.name, removed)
	return removed
}

// Clear removes all entries.
func (c *Expiring[V]) Clear() {
	c.mu.Lock()
	clear(c.entries)
	c.mu.Unlock()
}

// Len returns the number of stored entries, expired or not.
func (c *Expiring[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stats reports every stored entry, sorted by key. Expired entries are
// included and flagged; Stats never removes anything.
func (c *Expiring[V]) Stats() Stats {
	now := c.cfg.now()

	c.mu.RLock()
	entries := make([]EntryStats, 0, len(c.entries))
	for key, entry := range c.entries {
		entries = append(entries, EntryStats{
			Key:     key,
			AgeMs:   now.Sub(entry.StoredAt).Milliseconds(),
			TTLMs:   entry.TTL.Milliseconds(),
			Expired: entry.Expired(now),
		})
	}
	c.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return Stats{TotalEntries: len(entries), Entries: entries}
}

// RunSweeper calls SweepExpired every interval until ctx is done.
func (c *Expiring[V]) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.SweepExpired(ctx)
		}
	}
}
