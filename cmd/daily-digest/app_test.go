// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/daily-digest/internal/journal"
	"github.com/pdiddy/daily-digest/internal/logging"
	"github.com/pdiddy/daily-digest/internal/orchestrator"
	"github.com/pdiddy/daily-digest/pkg/types"
)

func TestJournalRecorderWritesRun(t *testing.T) {
	logger = logging.Discard()
	store, err := journal.Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	defer store.Close()

	started := time.Now().Add(-time.Minute)
	res := orchestrator.Result{
		RunID:     "run-1",
		StartedAt: started,
		State:     types.StateAbortedPublish,
		Context: &orchestrator.PipelineContext{
			Topic:    types.Topic{Title: "Rust 2.0", Source: types.SourceHackerNews},
			Title:    "Rust 2.0: что нового",
			Attempts: 3,
			Errors:   []string{"HTTP 502: bad gateway"},
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	journalRecorder{store: store}.RunDone(ctx, res)

	runs, err := store.Runs(context.Background(), journal.QueryOptions{})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "run-1", runs[0].ID)
	assert.Equal(t, types.StateAbortedPublish, runs[0].State)
	assert.Equal(t, 3, runs[0].PublishAttempts)
}

func TestJournalOptsFromFlags(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.Flags().Int("days", 7, "")
	cmd.Flags().String("state", "", "")
	cmd.Flags().Int("limit", 0, "")
	require.NoError(t, cmd.Flags().Parse([]string{"--days", "0", "--state", "Done", "--limit", "5"}))

	opts := journalOptsFromFlags(cmd)
	assert.True(t, opts.Since.IsZero())
	assert.Equal(t, types.StateDone, opts.State)
	assert.Equal(t, 5, opts.Limit)

	require.NoError(t, cmd.Flags().Set("days", "3"))
	opts = journalOptsFromFlags(cmd)
	assert.WithinDuration(t, time.Now().AddDate(0, 0, -3), opts.Since, time.Minute)
}

func TestDaemonJobsSkipEmptySpecs(t *testing.T) {
	logger = logging.Discard()
	saved := cfg
	t.Cleanup(func() { cfg = saved })

	cfg.Schedule = types.ScheduleConfig{Daily: "0 11 * * *", Weekly: ""}
	jobs := daemonJobs(&app{})
	require.Len(t, jobs, 1)
	assert.Equal(t, "daily", jobs[0].Name)

	cfg.Schedule = types.ScheduleConfig{Daily: " ", Weekly: ""}
	assert.Empty(t, daemonJobs(&app{}))

	cfg.Schedule = types.ScheduleConfig{Daily: "0 11 * * *", Weekly: "0 9 * * MON"}
	assert.Len(t, daemonJobs(&app{}), 2)
}
