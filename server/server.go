package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/jonwraymond/opscore/alert"
	"github.com/jonwraymond/opscore/auth"
	"github.com/jonwraymond/opscore/health"
	"github.com/jonwraymond/opscore/monitor"
	"github.com/jonwraymond/opscore/observe"
	"github.com/jonwraymond/opscore/upstream"
)

// EnvProduction hides error details and disables POST /health.
const EnvProduction = "production"

// Options configures a Server.
type Options struct {
	Addr        string
	Environment string

	Monitor  *monitor.Monitor
	Proxy    *upstream.Proxy
	Observer observe.Observer

	// Reporter receives unexpected failures. Default: log through Observer.
	Reporter alert.Reporter

	// Admin guards POST /data when set.
	Admin *auth.Verifier

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// Server serves the health and data endpoints.
type Server struct {
	opts       Options
	monitor    *monitor.Monitor
	proxy      *upstream.Proxy
	obs        observe.Observer
	reporter   alert.Reporter
	handler    http.Handler
	httpServer *http.Server
}

// New builds the router.
func New(opts Options) (*Server, error) {
	if opts.Monitor == nil {
		return nil, ErrNoMonitor
	}
	if opts.Proxy == nil {
		return nil, ErrNoProxy
	}
	if opts.Addr == "" {
		opts.Addr = ":8080"
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = 15 * time.Second
	}
	if opts.WriteTimeout <= 0 {
		// long enough for a full health cycle
		opts.WriteTimeout = 30 * time.Second
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}
	if opts.Observer == nil {
		opts.Observer = observe.Nop()
	}

	s := &Server{
		opts:     opts,
		monitor:  opts.Monitor,
		proxy:    opts.Proxy,
		obs:      opts.Observer,
		reporter: opts.Reporter,
	}
	if s.reporter == nil {
		s.reporter = alert.LogReporter{Logger: s.obs.Logger()}
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(s.requestLogger)
	r.Use(s.recoverer)

	r.Get("/livez", health.LivenessHandler())
	if h := s.obs.MetricsHandler(); h != nil {
		r.Method(http.MethodGet, "/metrics", h)
	}

	r.Route("/health", func(r chi.Router) {
		r.Options("/", preflight)
		r.Get("/", s.handleHealth)
		r.Post("/", s.handleHealthTrigger)
	})

	r.Route("/data", func(r chi.Router) {
		r.Options("/", preflight)
		r.Get("/", s.handleData)
		r.With(auth.RequireRole(opts.Admin, "admin", s.deny)).Post("/", s.handleDataAdmin)
	})

	s.handler = r
	s.httpServer = &http.Server{
		Addr:              opts.Addr,
		Handler:           r,
		ReadTimeout:       opts.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      opts.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}
	return s, nil
}

// Handler returns the router, e.g. for httptest.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run serves until ctx is cancelled, then drains in-flight requests for up
// to the shutdown timeout.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.obs.Logger().Info(ctx, "HTTP server started", observe.Field{Key: "addr", Value: s.httpServer.Addr})
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.ShutdownTimeout)
		defer cancel()
		s.obs.Logger().Info(shutdownCtx, "HTTP server shutting down")
		return s.httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) production() bool {
	return strings.EqualFold(s.opts.Environment, EnvProduction)
}

func (s *Server) deny(w http.ResponseWriter, _ *http.Request, status int, err error) {
	msg := "Unauthorized"
	if status == http.StatusForbidden {
		msg = "Forbidden"
	}
	s.writeError(w, status, msg, err)
}
