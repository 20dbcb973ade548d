package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/jonwraymond/opscore/observe"
)

// Scheduler runs health cycles on a cron schedule. A cycle that is still
// running when the next one is due causes that run to be skipped.
type Scheduler struct {
	monitor *Monitor
	spec    string
	cron    *cron.Cron
	logger  observe.Logger

	mu      sync.Mutex
	running bool
}

// NewScheduler validates the standard five-field cron expression spec.
func NewScheduler(m *Monitor, spec string, logger observe.Logger) (*Scheduler, error) {
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("invalid cron schedule %q: %w", spec, err)
	}
	if logger == nil {
		logger = observe.NewNopLogger()
	}
	return &Scheduler{
		monitor: m,
		spec:    spec,
		cron:    cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		logger:  logger.With(observe.Field{Key: "component", Value: "monitor.scheduler"}),
	}, nil
}

// Start schedules cycles until ctx is done or Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}

	if _, err := s.cron.AddFunc(s.spec, func() { s.run(ctx) }); err != nil {
		return fmt.Errorf("failed to schedule health cycle: %w", err)
	}
	s.cron.Start()
	s.running = true
	s.logger.Info(ctx, "health scheduler started", observe.Field{Key: "schedule", Value: s.spec})

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	return nil
}

func (s *Scheduler) run(ctx context.Context) {
	start := time.Now()
	snap := s.monitor.Cycle(ctx)
	s.logger.Debug(ctx, "scheduled health cycle completed",
		observe.Field{Key: "overall", Value: snap.Overall.String()},
		observe.Field{Key: "duration_ms", Value: time.Since(start).Milliseconds()},
	)
}

// Stop halts scheduling and waits for a running cycle to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	<-s.cron.Stop().Done()
	s.running = false
	s.logger.Info(context.Background(), "health scheduler stopped")
}

// NextRun returns when the next cycle is due, or the zero time when the
// scheduler is not running.
func (s *Scheduler) NextRun() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := s.cron.Entries()
	if !s.running || len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}
