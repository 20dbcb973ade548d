package main

import (
	"encoding/json"
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/opscore/health"
	"github.com/jonwraymond/opscore/monitor"
	"github.com/jonwraymond/opscore/observe"
)

var errOverallDown = errors.New("overall status is down")

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run one health cycle and print the snapshot",
	Long: `Run every configured probe once and print the snapshot as JSON.

Exits with status 1 when the overall status is down, which suits cron jobs
and container health checks. No notifications are sent.`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// one-shot: logs to stderr, nothing to scrape
	cfg.Telemetry.Metrics.Enabled = false
	obs, err := observe.NewObserver(ctx, cfg.Observe(Version), observe.WithLogWriter(os.Stderr))
	if err != nil {
		return err
	}
	defer func() { _ = obs.Shutdown(ctx) }()

	mon, err := monitor.New(cfg.ProbeSpecs(), monitor.WithProber(newProbe()), monitor.WithObserver(obs))
	if err != nil {
		return err
	}
	return printCycle(cmd, mon)
}

func printCycle(cmd *cobra.Command, mon *monitor.Monitor) error {
	snap := mon.Cycle(cmd.Context())

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(snap); err != nil {
		return err
	}
	if snap.Overall == health.StatusDown {
		return errOverallDown
	}
	return nil
}
