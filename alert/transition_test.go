package alert

import (
	"testing"
	"time"

	"github.com/jonwraymond/opscore/health"
)

func TestDecide_AllTransitions(t *testing.T) {
	const (
		op   = health.StatusOperational
		deg  = health.StatusDegraded
		down = health.StatusDown
	)
	tests := []struct {
		previous health.Status
		current  health.Status
		want     bool
	}{
		{op, op, false},
		{op, deg, true},
		{op, down, true},
		{deg, op, true},
		{deg, deg, false},
		{deg, down, true},
		{down, op, true},
		{down, deg, true},
		{down, down, false},
	}

	for _, tt := range tests {
		t.Run(tt.previous.String()+"->"+tt.current.String(), func(t *testing.T) {
			d := Decide("github", tt.current, tt.previous, true)
			if d.ShouldNotify != tt.want {
				t.Errorf("ShouldNotify = %v, want %v", d.ShouldNotify, tt.want)
			}
			if d.Service != "github" || d.Current != tt.current || d.Previous != tt.previous || !d.HasPrevious {
				t.Errorf("decision fields not carried through: %+v", d)
			}
		})
	}
}

func TestDecide_NoPrevious(t *testing.T) {
	for _, current := range []health.Status{health.StatusOperational, health.StatusDegraded, health.StatusDown} {
		t.Run(current.String(), func(t *testing.T) {
			if d := Decide("email", current, health.StatusOperational, false); d.ShouldNotify {
				t.Errorf("first observation %v should not notify", current)
			}
		})
	}
}

func snapshot(statuses map[string]health.Status) health.Snapshot {
	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	services := make(map[string]health.Result, len(statuses))
	for k, s := range statuses {
		switch s {
		case health.StatusDown:
			services[k] = health.Down("Request timeout", 5*time.Second, at)
		case health.StatusDegraded:
			services[k] = health.Degraded("HTTP 500", time.Millisecond, at)
		default:
			services[k] = health.Operational(time.Millisecond, at)
		}
	}
	return health.NewSnapshot(services, at)
}

func TestTransitions(t *testing.T) {
	cur := snapshot(map[string]health.Status{
		"portfolio": health.StatusOperational,
		"github":    health.StatusDown,
		"email":     health.StatusOperational,
		"analytics": health.StatusDegraded,
	})

	t.Run("first cycle", func(t *testing.T) {
		for _, d := range Transitions(nil, cur) {
			if d.ShouldNotify || d.HasPrevious {
				t.Errorf("%s: unexpected %+v", d.Service, d)
			}
		}
	})

	t.Run("later cycle", func(t *testing.T) {
		prev := snapshot(map[string]health.Status{
			"portfolio": health.StatusOperational,
			"github":    health.StatusOperational,
			"email":     health.StatusDown,
		})
		got := map[string]bool{}
		var order []string
		for _, d := range Transitions(&prev, cur) {
			got[d.Service] = d.ShouldNotify
			order = append(order, d.Service)
		}

		want := map[string]bool{
			"portfolio": false,
			"github":    true,
			"email":     true,
			"analytics": false, // not in prev
		}
		for k, v := range want {
			if got[k] != v {
				t.Errorf("%s ShouldNotify = %v, want %v", k, got[k], v)
			}
		}
		wantOrder := []string{"analytics", "email", "github", "portfolio"}
		for i := range wantOrder {
			if order[i] != wantOrder[i] {
				t.Fatalf("order = %v, want %v", order, wantOrder)
			}
		}
	})
}

func TestNotification_Subject(t *testing.T) {
	tests := []struct {
		current health.Status
		want    string
	}{
		{health.StatusDown, "[DOWN] github is down"},
		{health.StatusDegraded, "[DEGRADED] github is degraded"},
		{health.StatusOperational, "[RECOVERED] github is operational again"},
	}
	for _, tt := range tests {
		n := Notification{Service: "github", Current: tt.current}
		if got := n.Subject(); got != tt.want {
			t.Errorf("Subject() = %q, want %q", got, tt.want)
		}
	}
}

func TestNewNotification(t *testing.T) {
	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	r := health.Down("HTTP 503", 120*time.Millisecond, at)
	n := NewNotification(Decide("github", health.StatusDown, health.StatusOperational, true), r)

	if n.Error != "HTTP 503" || n.ResponseTimeMs != 120 || !n.Timestamp.Equal(at) {
		t.Errorf("unexpected notification %+v", n)
	}
	if n.Previous != health.StatusOperational {
		t.Errorf("Previous = %v", n.Previous)
	}
}
