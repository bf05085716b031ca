// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/pdiddy/daily-digest/internal/config"
	"github.com/pdiddy/daily-digest/internal/cover"
	"github.com/pdiddy/daily-digest/internal/cta"
	"github.com/pdiddy/daily-digest/internal/dedupe"
	"github.com/pdiddy/daily-digest/internal/feeds"
	"github.com/pdiddy/daily-digest/internal/ghost"
	"github.com/pdiddy/daily-digest/internal/journal"
	"github.com/pdiddy/daily-digest/internal/llm"
	"github.com/pdiddy/daily-digest/internal/metrics"
	"github.com/pdiddy/daily-digest/internal/orchestrator"
	"github.com/pdiddy/daily-digest/internal/recency"
	"github.com/pdiddy/daily-digest/internal/report"
	"github.com/pdiddy/daily-digest/internal/topics"
	"github.com/pdiddy/daily-digest/internal/verify"
	"github.com/pdiddy/daily-digest/pkg/types"
)

// app holds the collaborators built from cfg for one process.
type app struct {
	http     *http.Client
	ghost    *ghost.Client // nil when the platform is not configured
	llm      *llm.Client
	selector *topics.Aggregator
	drafter  *llm.Drafter
	verifier *verify.Engine
	journal  *journal.Store
	metrics  *metrics.Metrics
}

// newApp wires every collaborator. Only the journal and the sandbox
// provider can fail to build.
func newApp(ctx context.Context) (*app, error) {
	a := &app{http: &http.Client{Timeout: cfg.HTTP.Timeout}}

	if cfg.Ghost.Configured() {
		gc, err := ghost.NewClient(cfg.Ghost, cfg.HTTP, a.http, logger)
		if err != nil {
			return nil, err
		}
		a.ghost = gc
	} else {
		logger.Warn("ghost is not configured, runs will skip publishing")
	}

	a.llm = llm.New(cfg.AI, cfg.HTTP, a.http, logger)
	var chat llm.Chatter
	if a.llm.Enabled() {
		chat = a.llm
	} else {
		logger.Warn("no language model key, using template drafts and heuristic dedupe")
	}
	a.drafter = llm.NewDrafter(chat, a.http, logger)

	a.selector = &topics.Aggregator{
		Sources:     feeds.Build(cfg.Feeds, cfg.HTTP, cfg.Topics.Freshness, logger),
		History:     a.history(),
		Judge:       dedupe.Select(chat, a.llm.Enabled(), logger),
		Config:      cfg.Topics,
		Concurrency: cfg.Feeds.Concurrency,
		Logger:      logger,
	}

	sandbox, err := verify.NewSandbox(ctx, cfg.Verify, a.http)
	if err != nil {
		return nil, fmt.Errorf("building sandbox: %w", err)
	}
	a.verifier = verify.NewEngine(cfg.Verify, sandbox, a.http, logger)

	store, err := journal.Open(cfg.JournalPath)
	if err != nil {
		return nil, err
	}
	a.journal = store
	a.metrics = metrics.New()
	return a, nil
}

// history returns the recency oracle, unconfigured without the platform.
func (a *app) history() *recency.Oracle {
	if a.ghost == nil {
		return recency.New(nil, ghost.UpdatedSinceFilter, logger)
	}
	return recency.New(a.ghost, ghost.UpdatedSinceFilter, logger)
}

// Close releases the journal.
func (a *app) Close() error {
	return a.journal.Close()
}

// orchestrator assembles the publication state machine.
func (a *app) orchestrator() (*orchestrator.Orchestrator, error) {
	var images cover.ImageGenerator
	if a.llm.Enabled() {
		images = a.llm
	}
	renderer, err := cover.New(images, logger)
	if err != nil {
		return nil, err
	}

	ctas, err := cta.Load(cfg.CTA)
	if err != nil {
		logger.Warn("CTAs unavailable", "err", err)
		ctas = cta.New(nil)
	}

	deps := orchestrator.Deps{
		Selector:  a.selector,
		Drafter:   a.drafter,
		Verifier:  a.verifier,
		Cover:     renderer,
		CTA:       ctas,
		Recorders: []orchestrator.Recorder{a.metrics, journalRecorder{store: a.journal}},
	}
	if a.ghost != nil {
		deps.Publisher = ghost.NewPublisher(a.ghost, cfg.Publish, config.Location(cfg))
		deps.History = a.journal
	}
	return orchestrator.New(deps, cfg.Publish, logger), nil
}

// runOnce executes one publication and logs its outcome.
func (a *app) runOnce(ctx context.Context) (orchestrator.Result, error) {
	o, err := a.orchestrator()
	if err != nil {
		return orchestrator.Result{}, err
	}
	res, err := o.Run(ctx)
	logger.Info("run finished",
		"run", res.RunID,
		"state", res.State,
		"title", res.Context.Title,
		"elapsed", res.Duration().Round(time.Millisecond),
	)
	if err != nil {
		return res, err
	}
	if !res.State.Succeeded() {
		return res, fmt.Errorf("run %s ended in %s", res.RunID, res.State)
	}
	return res, nil
}

// weekly collects, renders and mails the weekly report. Without SMTP the
// report is only written to the log.
func (a *app) weekly(ctx context.Context, now time.Time) (types.WeeklyReport, string, error) {
	col := &report.Collector{Runs: a.journal, Logger: logger}
	if a.ghost != nil {
		col.Posts = a.ghost
	}
	rep, err := col.Collect(ctx, now.Add(-report.Week))
	if err != nil {
		return rep, "", err
	}

	var body bytes.Buffer
	if err := report.Render(&body, rep); err != nil {
		return rep, "", err
	}

	mailer := report.NewMailer(cfg.Report)
	subject := "Еженедельный отчёт " + now.In(config.Location(cfg)).Format("2006-01-02")
	if err := mailer.Send(subject, body.String()); err != nil {
		if errors.Is(err, report.ErrMailerNotConfigured) {
			logger.Warn("smtp not configured, report not mailed")
			return rep, body.String(), nil
		}
		return rep, body.String(), fmt.Errorf("mailing report: %w", err)
	}
	logger.Info("weekly report sent", "to", cfg.Report.To, "publications", rep.Publications)
	return rep, body.String(), nil
}

// journalRecorder stores every finished run.
type journalRecorder struct {
	store *journal.Store
}

func (journalRecorder) Selected(topics.Selection)       {}
func (journalRecorder) StageDone(string, time.Duration) {}
func (journalRecorder) PublishAttempt(int, error)       {}

// RunDone writes the run record; a write failure is only logged.
func (j journalRecorder) RunDone(ctx context.Context, res orchestrator.Result) {
	if err := j.store.Record(context.WithoutCancel(ctx), res.Record()); err != nil {
		logger.Warn("journal write failed", "run", res.RunID, "err", err)
	}
}
