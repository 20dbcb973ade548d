package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/opscore/alert"
	"github.com/jonwraymond/opscore/cache"
	"github.com/jonwraymond/opscore/config"
	"github.com/jonwraymond/opscore/monitor"
	"github.com/jonwraymond/opscore/observe"
	"github.com/jonwraymond/opscore/resilience"
	"github.com/jonwraymond/opscore/server"
	"github.com/jonwraymond/opscore/upstream"
)

var serveFlags struct {
	addr     string
	logLevel string
	noWatch  bool
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the health and data endpoints",
	Long: `Serve /health, /data, /livez and, with the prometheus exporter, /metrics.

Examples:
  # Start with the default config
  opscore serve

  # Override the listen address
  opscore serve --addr :9090`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVarP(&serveFlags.addr, "addr", "a", "", "override listen address")
	serveCmd.Flags().StringVar(&serveFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	serveCmd.Flags().BoolVar(&serveFlags.noWatch, "no-watch", false, "do not reload the config file on change")
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveFlags.addr != "" {
		cfg.Server.Addr = serveFlags.addr
	}
	if serveFlags.logLevel != "" {
		cfg.App.LogLevel = serveFlags.logLevel
	}

	obs, err := observe.NewObserver(ctx, cfg.Observe(Version))
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = obs.Shutdown(sctx)
	}()
	logger := obs.Logger()

	client := &http.Client{Timeout: cfg.Notify.Timeout}
	channels, err := buildMessengers(cfg, client)
	if err != nil {
		return err
	}
	messenger := newLiveMessenger(channels)
	dispatcher := alert.NewDispatcher(messenger,
		alert.WithObserver(obs),
		alert.WithDeliveryTimeout(cfg.Notify.Timeout),
		alert.WithMaxInFlight(cfg.Notify.MaxConcurrent),
	)

	mon, err := monitor.New(cfg.ProbeSpecs(),
		monitor.WithProber(newProbe()),
		monitor.WithDispatcher(dispatcher),
		monitor.WithObserver(obs),
	)
	if err != nil {
		return err
	}

	store := cache.New[upstream.Data](
		cache.WithName("github"),
		cache.WithDefaultTTL(cfg.Cache.DefaultTTL),
		cache.WithRecorder(obs.Metrics()),
	)
	go store.RunSweeper(ctx, cfg.Cache.SweepInterval)

	gh := upstream.NewGitHubClient(cfg.GitHub(), upstream.WithBreakerListener(
		func(name string, from, to resilience.State) {
			logger.Warn(ctx, "circuit state changed",
				observe.Field{Key: "circuit", Value: name},
				observe.Field{Key: "from", Value: from.String()},
				observe.Field{Key: "to", Value: to.String()})
		}))
	if !gh.Configured() {
		logger.Warn(ctx, "GitHub integration not configured, /data will return 503")
	}
	proxy := upstream.NewProxy(gh, store, append(cfg.ProxyOptions(), upstream.WithObserver(obs))...)

	admin, err := buildAdmin(cfg, logger)
	if err != nil {
		return err
	}
	if admin != nil {
		defer admin.Close()
	}

	srv, err := server.New(server.Options{
		Addr:            cfg.Server.Addr,
		Environment:     cfg.App.Environment,
		Monitor:         mon,
		Proxy:           proxy,
		Observer:        obs,
		Admin:           admin,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	if err != nil {
		return err
	}

	if cfg.Schedule.Cron != "" {
		sched, err := monitor.NewScheduler(mon, cfg.Schedule.Cron, logger)
		if err != nil {
			return err
		}
		if err := sched.Start(ctx); err != nil {
			return err
		}
		defer sched.Stop()
		logger.Info(ctx, "scheduled health cycles enabled",
			observe.Field{Key: "cron", Value: cfg.Schedule.Cron},
			observe.Field{Key: "next_run", Value: sched.NextRun()})
	}

	if !serveFlags.noWatch {
		go watchConfig(ctx, logger, mon, messenger, client)
	}

	logger.Info(ctx, "opscore starting",
		observe.Field{Key: "version", Value: Version},
		observe.Field{Key: "environment", Value: cfg.App.Environment},
		observe.Field{Key: "probes", Value: len(cfg.Probes)},
		observe.Field{Key: "channels", Value: messenger.Len()},
		observe.Field{Key: "admin_guard", Value: admin != nil})

	runErr := srv.Run(ctx)

	wctx, cancel := context.WithTimeout(context.Background(), cfg.Notify.Timeout)
	defer cancel()
	if err := dispatcher.Wait(wctx); err != nil {
		logger.Warn(wctx, "notifications still in flight at exit", observe.Field{Key: "error", Value: err.Error()})
	}
	return runErr
}

// watchConfig applies probe and channel changes from the config file.
// Listener, cache and admin settings need a restart.
func watchConfig(ctx context.Context, logger observe.Logger, mon *monitor.Monitor, messenger *liveMessenger, client *http.Client) {
	err := config.Watch(ctx, cfgFile, logger, func(next *config.Config) {
		if err := mon.SetProbes(next.ProbeSpecs()); err != nil {
			logger.Error(ctx, "rejected reloaded probes", observe.Field{Key: "error", Value: err.Error()})
			return
		}
		channels, err := buildMessengers(next, client)
		if err != nil {
			logger.Error(ctx, "rejected reloaded notify settings", observe.Field{Key: "error", Value: err.Error()})
			return
		}
		messenger.Store(channels)
		logger.Info(ctx, "applied reloaded config",
			observe.Field{Key: "probes", Value: len(next.Probes)},
			observe.Field{Key: "channels", Value: len(channels)})
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Warn(ctx, "config watch disabled", observe.Field{Key: "error", Value: err.Error()})
	}
}
