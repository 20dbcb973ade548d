package server

import (
	"fmt"
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jonwraymond/opscore/observe"
)

// requestLogger traces each request and logs it at a level chosen by the
// response status: info for 2xx/3xx, warn for 4xx, error for 5xx.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := chimw.GetReqID(r.Context())

		ctx, span := s.obs.Tracer().Start(r.Context(), observe.Operation{
			Component: "http",
			Name:      "request",
			Attributes: []attribute.KeyValue{
				attribute.String("http.method", r.Method),
				attribute.String("http.path", r.URL.Path),
			},
		})

		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(ctx))

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		span.SetAttributes(attribute.Int("http.status_code", status))
		var spanErr error
		if status >= 500 {
			spanErr = fmt.Errorf("HTTP %d", status)
		}
		s.obs.Tracer().End(span, spanErr)

		fields := []observe.Field{
			{Key: "method", Value: r.Method},
			{Key: "path", Value: r.URL.Path},
			{Key: "remote_addr", Value: r.RemoteAddr},
			{Key: "status", Value: status},
			{Key: "duration_ms", Value: float64(time.Since(start).Nanoseconds()) / 1e6},
			{Key: "bytes", Value: ww.BytesWritten()},
		}
		if requestID != "" {
			fields = append(fields, observe.Field{Key: "request_id", Value: requestID})
		}
		if ua := r.UserAgent(); ua != "" {
			fields = append(fields, observe.Field{Key: "user_agent", Value: ua})
		}

		log := s.obs.Logger()
		switch {
		case status >= 500:
			log.Error(ctx, "HTTP request", fields...)
		case status >= 400:
			log.Warn(ctx, "HTTP request", fields...)
		default:
			log.Info(ctx, "HTTP request", fields...)
		}
	})
}

// recoverer turns a handler panic into a reported 500.
func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			err := panicError(rec)
			s.report(r, err, start)
			s.writeError(w, http.StatusInternalServerError, "Internal server error", err)
		}()
		next.ServeHTTP(w, r)
	})
}

// report sends err to the reporter tagged with the route, parameters and
// elapsed time.
func (s *Server) report(r *http.Request, err error, start time.Time) {
	s.reporter.Report(r.Context(), err, map[string]string{
		"route":      r.Method + " " + r.URL.Path,
		"params":     r.URL.RawQuery,
		"elapsed_ms": fmt.Sprint(time.Since(start).Milliseconds()),
	})
}
