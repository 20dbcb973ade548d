package alert

import (
	"github.com/jonwraymond/opscore/health"
)

// Decision is the outcome of comparing one service's status with the
// previous observation.
type Decision struct {
	ShouldNotify bool
	Service      string
	Current      health.Status
	Previous     health.Status
	HasPrevious  bool
}

// Decide reports whether service's move from previous to current should be
// notified. hasPrevious is false on the first observation since start-up.
func Decide(service string, current, previous health.Status, hasPrevious bool) Decision {
	d := Decision{
		Service:     service,
		Current:     current,
		Previous:    previous,
		HasPrevious: hasPrevious,
	}

	switch {
	case !hasPrevious:
	case current == previous:
	case current == health.StatusDown, current == health.StatusDegraded:
		d.ShouldNotify = true
	case current == health.StatusOperational &&
		(previous == health.StatusDown || previous == health.StatusDegraded):
		d.ShouldNotify = true
	}
	return d
}

// Transitions decides every service in cur against prev, in key order.
// prev is nil on the first cycle. A service missing from prev has no
// previous status.
func Transitions(prev *health.Snapshot, cur health.Snapshot) []Decision {
	keys := cur.Keys()
	out := make([]Decision, 0, len(keys))
	for _, key := range keys {
		var (
			previous health.Status
			known    bool
		)
		if prev != nil {
			var r health.Result
			r, known = prev.Services[key]
			previous = r.Status
		}
		out = append(out, Decide(key, cur.Services[key].Status, previous, known))
	}
	return out
}
