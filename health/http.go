package health

import (
	"encoding/json"
	"net/http"
)

// LivenessHandler returns an HTTP handler for liveness probes.
// It reports only that the process is serving requests.
func LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}
}

// StatusCode maps a snapshot to its HTTP status: 503 when overall is Down,
// 200 otherwise.
func StatusCode(s Snapshot) int {
	if s.Overall == StatusDown {
		return http.StatusServiceUnavailable
	}
	return http.StatusOK
}

// WriteSnapshot writes s as an uncacheable JSON document.
func WriteSnapshot(w http.ResponseWriter, s Snapshot) error {
	body, err := json.Marshal(s)
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.WriteHeader(StatusCode(s))
	_, err = w.Write(body)
	return err
}
