package server

import (
	"net/http"
	"time"

	"github.com/jonwraymond/opscore/health"
	"github.com/jonwraymond/opscore/monitor"
	"github.com/jonwraymond/opscore/observe"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	setCORS(w.Header())
	snap := s.cycle(r)
	if err := health.WriteSnapshot(w, snap); err != nil {
		s.obs.Logger().Warn(r.Context(), "write health response", observe.Err(err))
	}
}

// handleHealthTrigger lets operators force a cycle outside production.
func (s *Server) handleHealthTrigger(w http.ResponseWriter, r *http.Request) {
	if s.production() {
		setCORS(w.Header())
		w.Header().Set("Allow", "GET, OPTIONS")
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: "Method not allowed"})
		return
	}
	s.handleHealth(w, r)
}

// cycle never fails: anything that escapes the monitor yields the all-down
// fallback.
func (s *Server) cycle(r *http.Request) (snap health.Snapshot) {
	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			s.report(r, panicError(rec), start)
			var keys []string
			for _, p := range s.monitor.Probes() {
				keys = append(keys, p.Key)
			}
			snap = health.FallbackSnapshot(keys, monitor.FallbackReason, time.Now())
		}
	}()
	return s.monitor.Cycle(r.Context())
}
