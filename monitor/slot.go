package monitor

import (
	"sync"

	"github.com/jonwraymond/opscore/health"
)

// Slot holds the most recent snapshot. The zero value is empty and ready
// to use.
type Slot struct {
	mu   sync.Mutex
	snap health.Snapshot
	ok   bool
}

// Load returns the stored snapshot and whether one has been stored.
func (s *Slot) Load() (health.Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap, s.ok
}

// Swap stores next and returns what it replaced.
func (s *Slot) Swap(next health.Snapshot) (prev health.Snapshot, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok = s.snap, s.ok
	s.snap, s.ok = next, true
	return prev, ok
}
