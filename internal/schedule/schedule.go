// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package schedule evaluates cron expressions in a configured timezone and
// drives the daemon's recurring jobs.
package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorhill/cronexpr"

	"github.com/pdiddy/daily-digest/internal/logging"
)

// Validate reports whether spec is a parsable cron expression.
func Validate(spec string) error {
	if _, err := cronexpr.Parse(spec); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", spec, err)
	}
	return nil
}

// Next returns the first activation of spec strictly after now, evaluated in
// loc. A nil loc means UTC.
func Next(spec string, loc *time.Location, now time.Time) (time.Time, error) {
	expr, err := cronexpr.Parse(spec)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid cron expression %q: %w", spec, err)
	}
	if loc == nil {
		loc = time.UTC
	}
	next := expr.Next(now.In(loc))
	if next.IsZero() {
		return time.Time{}, fmt.Errorf("cron expression %q never fires after %s", spec, now)
	}
	return next, nil
}

// Job is a named function fired on a cron schedule.
type Job struct {
	Name string
	Spec string
	Run  func(ctx context.Context) error
}

// Runner fires jobs at their scheduled times until the context ends. Jobs
// run sequentially in the runner goroutine; a job that overruns its next
// slot fires once on return rather than queueing.
type Runner struct {
	Jobs     []Job
	Location *time.Location
	Logger   *log.Logger

	// Now and After are overridable for tests.
	Now   func() time.Time
	After func(d time.Duration) <-chan time.Time
}

// Run blocks until ctx is cancelled, returning ctx.Err().
func (r *Runner) Run(ctx context.Context) error {
	if len(r.Jobs) == 0 {
		return fmt.Errorf("no jobs scheduled")
	}
	now := r.Now
	if now == nil {
		now = time.Now
	}
	after := r.After
	if after == nil {
		after = time.After
	}
	logger := logging.Or(r.Logger)

	next := make([]time.Time, len(r.Jobs))
	for i, j := range r.Jobs {
		t, err := Next(j.Spec, r.Location, now())
		if err != nil {
			return fmt.Errorf("job %s: %w", j.Name, err)
		}
		next[i] = t
		logger.Info("job scheduled", "job", j.Name, "next", t.Format(time.RFC3339))
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		due := 0
		for i := range next {
			if next[i].Before(next[due]) {
				due = i
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-after(next[due].Sub(now())):
		}

		job := r.Jobs[due]
		start := now()
		if err := job.Run(ctx); err != nil {
			logger.Error("job failed", "job", job.Name, "err", err)
		} else {
			logger.Info("job finished", "job", job.Name, "elapsed_ms", now().Sub(start).Milliseconds())
		}

		t, err := Next(job.Spec, r.Location, now())
		if err != nil {
			return fmt.Errorf("job %s: %w", job.Name, err)
		}
		next[due] = t
	}
}
