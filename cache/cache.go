package cache

import (
	"context"
	"errors"
	"time"
)

// Errors returned by the cache package.
var (
	// ErrNilLoader is returned by Memoizer.Load when no loader is supplied.
	ErrNilLoader = errors.New("cache: loader is nil")
)

// Entry is a stored value together with the instant it was stored and its
// lifetime.
type Entry[V any] struct {
	Value    V
	StoredAt time.Time
	TTL      time.Duration
}

// Expired reports whether the entry is older than its TTL at now.
func (e Entry[V]) Expired(now time.Time) bool {
	return now.Sub(e.StoredAt) > e.TTL
}

// EntryStats describes one entry as seen by Stats.
type EntryStats struct {
	Key     string `json:"key"`
	AgeMs   int64  `json:"ageMs"`
	TTLMs   int64  `json:"ttlMs"`
	Expired bool   `json:"expired"`
}

// Stats is a point-in-time view of a cache's contents.
type Stats struct {
	TotalEntries int          `json:"totalEntries"`
	Entries      []EntryStats `json:"entries"`
}

// Recorder receives cache activity. Implementations must be safe for
// concurrent use.
type Recorder interface {
	RecordLookup(ctx context.Context, cache string, hit bool)
	RecordSweep(ctx context.Context, cache string, removed int)
}

type nopRecorder struct{}

func (nopRecorder) RecordLookup(context.Context, string, bool) {}
func (nopRecorder) RecordSweep(context.Context, string, int)   {}
