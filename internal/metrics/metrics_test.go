// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package metrics

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/daily-digest/internal/feeds"
	"github.com/pdiddy/daily-digest/internal/orchestrator"
	"github.com/pdiddy/daily-digest/internal/topics"
	"github.com/pdiddy/daily-digest/pkg/types"
)

var _ orchestrator.Recorder = (*Metrics)(nil)

func TestRunAndPublishCounters(t *testing.T) {
	m := New()
	m.RunDone(context.Background(), orchestrator.Result{State: types.StateDone})
	m.RunDone(context.Background(), orchestrator.Result{State: types.StateDone})
	m.RunDone(context.Background(), orchestrator.Result{State: types.StateAbortedPublish})
	m.PublishAttempt(1, errors.New("502"))
	m.PublishAttempt(2, nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.runs.WithLabelValues(string(types.StateDone))))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues(string(types.StateAbortedPublish))))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.attempts.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.attempts.WithLabelValues("ok")))
}

func TestSelected(t *testing.T) {
	m := New()
	m.Selected(topics.Selection{
		Sources: feeds.FetchSummary{
			PerSource: map[string]int{"hn": 12, "reddit:golang": 5},
			Errors:    []feeds.SourceError{{Source: "trends:RU", Err: errors.New("timeout")}},
		},
		Rejected: []topics.Rejected{{Reason: topics.RejectStale}, {Reason: topics.RejectStale}, {Reason: topics.RejectSimilar}},
	})

	assert.Equal(t, 12.0, testutil.ToFloat64(m.candidates.WithLabelValues("hn")))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.candidates.WithLabelValues("reddit:golang")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("trends:RU")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.rejected.WithLabelValues(topics.RejectStale)))
}

func TestStageHistogram(t *testing.T) {
	m := New()
	m.StageDone("Publish", 1500*time.Millisecond)
	m.StageDone("Publish", 250*time.Millisecond)

	assert.Equal(t, 1, testutil.CollectAndCount(m.stages))
	expected := `
# HELP digest_stage_duration_seconds Duration of pipeline stages.
# TYPE digest_stage_duration_seconds histogram
digest_stage_duration_seconds_bucket{stage="Publish",le="0.1"} 0
digest_stage_duration_seconds_bucket{stage="Publish",le="0.5"} 1
digest_stage_duration_seconds_bucket{stage="Publish",le="1"} 1
digest_stage_duration_seconds_bucket{stage="Publish",le="2.5"} 2
digest_stage_duration_seconds_bucket{stage="Publish",le="5"} 2
digest_stage_duration_seconds_bucket{stage="Publish",le="10"} 2
digest_stage_duration_seconds_bucket{stage="Publish",le="30"} 2
digest_stage_duration_seconds_bucket{stage="Publish",le="60"} 2
digest_stage_duration_seconds_bucket{stage="Publish",le="120"} 2
digest_stage_duration_seconds_bucket{stage="Publish",le="300"} 2
digest_stage_duration_seconds_bucket{stage="Publish",le="+Inf"} 2
digest_stage_duration_seconds_sum{stage="Publish"} 1.75
digest_stage_duration_seconds_count{stage="Publish"} 2
`
	require.NoError(t, testutil.CollectAndCompare(m.stages, strings.NewReader(expected)))
}

func TestHandler(t *testing.T) {
	m := New()
	m.RunDone(context.Background(), orchestrator.Result{State: types.StateSkippedNoTarget})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)

	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, string(body), `digest_runs_total{state="SkippedNoPublishTarget"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}

func TestServeStopsOnCancel(t *testing.T) {
	m := New()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Serve(ctx, "127.0.0.1:0") }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
