package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jonwraymond/opscore/upstream"
)

// Admin actions accepted by POST /data.
const (
	ActionClearCache    = "clearCache"
	ActionGetCacheStats = "getCacheStats"
)

type dataResponse struct {
	Data             upstream.Data `json:"data"`
	Cached           bool          `json:"cached"`
	Timestamp        time.Time     `json:"timestamp"`
	ProcessingTimeMs int64         `json:"processingTimeMs"`
}

type invalidTypeResponse struct {
	Error      string   `json:"error"`
	ValidTypes []string `json:"validTypes"`
}

func (s *Server) handleData(w http.ResponseWriter, r *http.Request) {
	setCORS(w.Header())
	start := time.Now()

	req, force, err := upstream.RequestFromQuery(r.URL.Query())
	if err != nil {
		writeJSON(w, http.StatusBadRequest, invalidTypeResponse{
			Error:      "Invalid type parameter",
			ValidTypes: upstream.ValidKinds(),
		})
		return
	}

	res, err := s.proxy.Fetch(r.Context(), req, force)
	switch {
	case err == nil:
	case errors.Is(err, upstream.ErrNotConfigured):
		s.writeError(w, http.StatusServiceUnavailable, "GitHub integration not configured", nil)
		return
	case errors.Is(err, upstream.ErrNoData):
		s.writeError(w, http.StatusBadGateway, "No data returned from GitHub API", nil)
		return
	default:
		s.report(r, err, start)
		s.writeError(w, http.StatusInternalServerError, "Failed to fetch GitHub data", err)
		return
	}

	writeJSON(w, http.StatusOK, dataResponse{
		Data:             res.Data,
		Cached:           res.CacheHit,
		Timestamp:        time.Now().UTC(),
		ProcessingTimeMs: time.Since(start).Milliseconds(),
	})
}

type adminRequest struct {
	Action string `json:"action"`
}

type invalidActionResponse struct {
	Error        string   `json:"error"`
	ValidActions []string `json:"validActions"`
}

type clearResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (s *Server) handleDataAdmin(w http.ResponseWriter, r *http.Request) {
	setCORS(w.Header())

	var body adminRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 64<<10)).Decode(&body); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	switch body.Action {
	case ActionClearCache:
		s.proxy.ClearAll()
		writeJSON(w, http.StatusOK, clearResponse{Success: true, Message: "Cache cleared"})
	case ActionGetCacheStats:
		writeJSON(w, http.StatusOK, s.proxy.Stats())
	default:
		writeJSON(w, http.StatusBadRequest, invalidActionResponse{
			Error:        "Invalid action",
			ValidActions: []string{ActionClearCache, ActionGetCacheStats},
		})
	}
}

func panicError(rec any) error {
	if err, ok := rec.(error); ok {
		return fmt.Errorf("panic: %w", err)
	}
	return fmt.Errorf("panic: %v", rec)
}
