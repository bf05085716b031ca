// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package metrics exposes pipeline run metrics in the Prometheus format.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pdiddy/daily-digest/internal/orchestrator"
	"github.com/pdiddy/daily-digest/internal/topics"
)

// Metrics holds the pipeline collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	runs       *prometheus.CounterVec
	stages     *prometheus.HistogramVec
	attempts   *prometheus.CounterVec
	candidates *prometheus.CounterVec
	rejected   *prometheus.CounterVec
	failures   *prometheus.CounterVec
}

// New registers the pipeline collectors plus the Go and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "digest_runs_total",
			Help: "Pipeline runs by terminal state.",
		}, []string{"state"}),
		stages: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "digest_stage_duration_seconds",
			Help:    "Duration of pipeline stages.",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}, []string{"stage"}),
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "digest_publish_attempts_total",
			Help: "Publish attempts by result.",
		}, []string{"result"}),
		candidates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "digest_candidates_total",
			Help: "Topic candidates fetched by source.",
		}, []string{"source"}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "digest_candidates_rejected_total",
			Help: "Topic candidates dropped during selection by reason.",
		}, []string{"reason"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "digest_source_failures_total",
			Help: "Feed source fetch failures.",
		}, []string{"source"}),
	}
	m.registry.MustRegister(
		m.runs, m.stages, m.attempts, m.candidates, m.rejected, m.failures,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Selected counts fetched and rejected candidates.
func (m *Metrics) Selected(sel topics.Selection) {
	for source, n := range sel.Sources.PerSource {
		m.candidates.WithLabelValues(source).Add(float64(n))
	}
	for _, e := range sel.Sources.Errors {
		m.failures.WithLabelValues(e.Source).Inc()
	}
	for _, r := range sel.Rejected {
		m.rejected.WithLabelValues(r.Reason).Inc()
	}
}

// StageDone observes one stage duration.
func (m *Metrics) StageDone(stage string, elapsed time.Duration) {
	m.stages.WithLabelValues(stage).Observe(elapsed.Seconds())
}

// PublishAttempt counts one publish call.
func (m *Metrics) PublishAttempt(_ int, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.attempts.WithLabelValues(result).Inc()
}

// RunDone counts the run's terminal state.
func (m *Metrics) RunDone(_ context.Context, res orchestrator.Result) {
	m.runs.WithLabelValues(string(res.State)).Inc()
}

// Serve exposes /metrics on addr until ctx ends.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdown)
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
