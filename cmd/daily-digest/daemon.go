// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/daily-digest/internal/config"
	"github.com/pdiddy/daily-digest/internal/logging"
	"github.com/pdiddy/daily-digest/internal/schedule"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Publish and report on a schedule, serving Prometheus metrics",
	Long: `Daemon runs the daily publication and the weekly report at the cron
times in schedule.daily and schedule.weekly, evaluated in publish.timezone.
A job whose schedule is empty is disabled.
Metrics are served on metrics_addr under /metrics until the process is
interrupted.`,
	RunE: runDaemon,
}

func init() {
	daemonCmd.Flags().Bool("no-metrics", false, "do not serve /metrics")

	rootCmd.AddCommand(daemonCmd)
}

func runDaemon(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext(cmd.Context())
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	jobs := daemonJobs(a)
	if len(jobs) == 0 {
		return errors.New("schedule.daily and schedule.weekly are both empty")
	}
	runner := &schedule.Runner{
		Location: config.Location(cfg),
		Logger:   logging.Component(logger, "daemon"),
		Jobs:     jobs,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return runner.Run(ctx) })

	noMetrics, _ := cmd.Flags().GetBool("no-metrics")
	if !noMetrics && cfg.MetricsAddr != "" {
		g.Go(func() error {
			logger.Info("serving metrics", "addr", cfg.MetricsAddr)
			return a.metrics.Serve(ctx, cfg.MetricsAddr)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("daemon stopped")
	return nil
}

// daemonJobs returns the scheduled jobs, leaving out any whose cron spec is
// empty.
func daemonJobs(a *app) []schedule.Job {
	all := []schedule.Job{
		{Name: "daily", Spec: cfg.Schedule.Daily, Run: func(ctx context.Context) error {
			_, err := a.runOnce(ctx)
			return err
		}},
		{Name: "weekly", Spec: cfg.Schedule.Weekly, Run: func(ctx context.Context) error {
			_, _, err := a.weekly(ctx, time.Now())
			return err
		}},
	}
	var jobs []schedule.Job
	for _, j := range all {
		if strings.TrimSpace(j.Spec) == "" {
			logger.Info("job disabled, no schedule", "job", j.Name)
			continue
		}
		jobs = append(jobs, j)
	}
	return jobs
}
