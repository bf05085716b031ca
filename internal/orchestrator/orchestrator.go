// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package orchestrator runs one publication: select a topic, draft it,
// verify it (regenerating once on failure), prepare the cover and
// promotional blocks, publish with retries and record the topic as used.
//
// Every stage runs sequentially and owns no state beyond the run's
// PipelineContext. Collaborators are interfaces; a nil collaborator
// disables its feature (a nil Publisher ends the run at
// SkippedNoPublishTarget).
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/pdiddy/daily-digest/internal/logging"
	"github.com/pdiddy/daily-digest/internal/topics"
	"github.com/pdiddy/daily-digest/pkg/types"
)

// Defaults for publish retries.
const (
	DefaultPublishRetries = 3
	DefaultRetryDelay     = 2 * time.Second
)

// Selector picks the day's topic.
type Selector interface {
	Select(ctx context.Context) (types.Topic, topics.Selection, error)
}

// Drafter writes article HTML for a topic and localizes its headline.
type Drafter interface {
	Draft(ctx context.Context, topic types.Topic) (string, []string, error)
	LocalizeTitle(ctx context.Context, raw string) string
}

// Verifier decides whether drafted content may be published.
type Verifier interface {
	Verify(ctx context.Context, content, topic string) types.VerificationOutcome
}

// CoverRenderer produces a PNG cover for a title.
type CoverRenderer interface {
	Render(ctx context.Context, title string) ([]byte, error)
}

// CTAInserter appends promotional blocks and reports how many it added.
type CTAInserter interface {
	Insert(html string) (string, int)
}

// Publisher sends the article to the content platform.
type Publisher interface {
	Publish(ctx context.Context, a types.Article) (types.PublishResult, error)
}

// History marks a topic as used once its article is published.
type History interface {
	MarkUsed(ctx context.Context, topic types.Topic, res types.PublishResult) error
}

// Recorder observes a run. Calls happen on the run's goroutine.
type Recorder interface {
	Selected(sel topics.Selection)
	StageDone(stage string, elapsed time.Duration)
	PublishAttempt(attempt int, err error)
	RunDone(ctx context.Context, res Result)
}

// Deps are the run's collaborators.
type Deps struct {
	Selector  Selector
	Drafter   Drafter
	Verifier  Verifier
	Cover     CoverRenderer
	CTA       CTAInserter
	Publisher Publisher
	History   History
	Recorders []Recorder
}

// PipelineContext is the mutable aggregate threaded through one run.
type PipelineContext struct {
	Topic    types.Topic `json:"topic" yaml:"topic"`
	Title    string      `json:"title" yaml:"title"`
	HTML     string      `json:"-" yaml:"-"`
	Tags     []string    `json:"tags" yaml:"tags"`
	Cover    []byte      `json:"-" yaml:"-"`
	CTAs     int         `json:"ctas" yaml:"ctas"`
	Drafts   int         `json:"drafts" yaml:"drafts"`
	Attempts int         `json:"publish_attempts" yaml:"publish_attempts"`

	// Errors accumulates verification failures across both passes.
	Errors        []string                    `json:"errors,omitempty" yaml:"errors,omitempty"`
	Verifications []types.VerificationOutcome `json:"verifications" yaml:"verifications"`

	Published *types.PublishResult `json:"published,omitempty" yaml:"published,omitempty"`
}

// StageTiming is the elapsed time of one stage.
type StageTiming struct {
	Stage   string        `json:"stage" yaml:"stage"`
	Elapsed time.Duration `json:"elapsed" yaml:"elapsed"`
}

// Result is the outcome of one run.
type Result struct {
	RunID     string           `json:"run_id" yaml:"run_id"`
	StartedAt time.Time        `json:"started_at" yaml:"started_at"`
	State     types.RunState   `json:"state" yaml:"state"`
	Trail     []types.RunState `json:"trail" yaml:"trail"`
	Context   *PipelineContext `json:"context" yaml:"context"`
	Durations []StageTiming    `json:"durations" yaml:"durations"`

	// Err is set when the run stopped on an error rather than an outcome.
	Err error `json:"-" yaml:"-"`
}

// Duration is the sum of all stage timings.
func (r Result) Duration() time.Duration {
	var d time.Duration
	for _, s := range r.Durations {
		d += s.Elapsed
	}
	return d
}

// Record converts r to a journal entry.
func (r Result) Record() types.RunRecord {
	rec := types.RunRecord{
		ID:        r.RunID,
		StartedAt: r.StartedAt,
		Duration:  r.Duration(),
		State:     r.State,
	}
	if pc := r.Context; pc != nil {
		rec.Title = pc.Title
		rec.Source = pc.Topic.Source
		rec.PublishAttempts = pc.Attempts
		rec.CTAs = pc.CTAs
		rec.Errors = append(rec.Errors, pc.Errors...)
		if pc.Published != nil {
			rec.PostID = pc.Published.ID
			rec.PostURL = pc.Published.URL
		}
	}
	if r.Err != nil {
		rec.Errors = append(rec.Errors, r.Err.Error())
	}
	return rec
}

// Orchestrator runs the publication state machine.
type Orchestrator struct {
	deps       Deps
	retries    int
	retryDelay time.Duration
	logger     *log.Logger

	// Sleep pauses between publish attempts; tests replace it.
	Sleep func(ctx context.Context, d time.Duration) error
	Now   func() time.Time
}

// New builds an orchestrator. Non-positive retry settings use the defaults.
func New(deps Deps, cfg types.PublishConfig, logger *log.Logger) *Orchestrator {
	o := &Orchestrator{
		deps:       deps,
		retries:    cfg.Retries,
		retryDelay: cfg.RetryDelay,
		logger:     logging.Component(logger, "orchestrator"),
		Sleep:      sleepContext,
		Now:        time.Now,
	}
	if o.retries <= 0 {
		o.retries = DefaultPublishRetries
	}
	if o.retryDelay <= 0 {
		o.retryDelay = DefaultRetryDelay
	}
	return o
}

// run is the per-run state; it never outlives Run.
type run struct {
	o   *Orchestrator
	res Result
	log *log.Logger
}

// Run executes one publication. It returns an error only when topic
// selection fails closed or ctx ends; every other failure is reported
// through the terminal state of the Result.
func (o *Orchestrator) Run(ctx context.Context) (Result, error) {
	r := &run{o: o}
	r.res = Result{
		RunID:     uuid.NewString(),
		StartedAt: o.Now(),
		Context:   &PipelineContext{},
	}
	r.log = o.logger.With("run", r.res.RunID)
	r.log.Info("run started")

	r.execute(ctx)

	res := r.res
	for _, rec := range o.deps.Recorders {
		rec.RunDone(ctx, res)
	}
	r.log.Info("run finished", "state", res.State, "ms", res.Duration().Milliseconds(),
		"errors", len(res.Context.Errors))
	return res, res.Err
}

func (r *run) execute(ctx context.Context) {
	pc := r.res.Context
	d := r.o.deps

	// SelectTopic
	r.enter(types.StateSelectTopic)
	var sel topics.Selection
	err := r.stage("SelectTopic", func() error {
		if d.Selector == nil {
			return errors.New("no topic selector configured")
		}
		topic, s, err := d.Selector.Select(ctx)
		if err != nil {
			return err
		}
		sel = s
		pc.Topic = topic
		pc.Tags = topic.Tags
		pc.Title = topic.Title
		if d.Drafter != nil {
			pc.Title = d.Drafter.LocalizeTitle(ctx, topic.Title)
		}
		return nil
	})
	for _, rec := range d.Recorders {
		rec.Selected(sel)
	}
	if err != nil {
		r.fail(types.StateAbortedNoTopic, fmt.Errorf("selecting topic: %w", err))
		return
	}
	r.log.Info("topic selected", "raw", pc.Topic.Title, "title", pc.Title, "source", pc.Topic.Source)

	// GenerateContent → Verify
	r.enter(types.StateGenerateContent)
	if err := r.stage("GenerateContent", func() error { return r.draft(ctx) }); err != nil {
		r.fail(types.StateAbortedVerification, fmt.Errorf("drafting: %w", err))
		return
	}
	r.enter(types.StateVerify)
	passed := r.verify(ctx, "Verify")

	if !passed {
		r.enter(types.StateRegenerateContent)
		if err := r.stage("RegenerateContent", func() error { return r.draft(ctx) }); err != nil {
			r.fail(types.StateAbortedVerification, fmt.Errorf("regenerating: %w", err))
			return
		}
		r.enter(types.StateReverify)
		if !r.verify(ctx, "ReverifyOnce") {
			r.log.Warn("verification failed twice, not publishing", "errors", len(pc.Errors))
			r.enter(types.StateAbortedVerification)
			return
		}
	}

	// PrepareAssets
	r.enter(types.StatePrepareAssets)
	r.stage("PrepareAssets", func() error {
		r.prepareAssets(ctx)
		return nil
	})

	if d.Publisher == nil {
		r.log.Info("publish target not configured, skipping publish")
		r.enter(types.StateSkippedNoTarget)
		return
	}

	// Publish
	r.enter(types.StatePublish)
	var published types.PublishResult
	err = r.stage("Publish", func() error {
		attempts, err := r.o.retry(ctx, "Publish", func(attempt int) error {
			res, err := d.Publisher.Publish(ctx, types.Article{
				Title: pc.Title,
				HTML:  pc.HTML,
				Tags:  pc.Tags,
				Cover: pc.Cover,
			})
			for _, rec := range d.Recorders {
				rec.PublishAttempt(attempt, err)
			}
			if err == nil {
				published = res
			}
			return err
		})
		pc.Attempts = attempts
		return err
	})
	if err != nil {
		r.log.Error("publish failed", "attempts", pc.Attempts, "err", err)
		if ctx.Err() != nil {
			r.fail(types.StateAbortedPublish, ctx.Err())
			return
		}
		r.enter(types.StateAbortedPublish)
		return
	}
	pc.Published = &published
	r.log.Info("published", "id", published.ID, "status", published.Status, "url", published.URL)

	// RecordHistory
	r.enter(types.StateRecordHistory)
	if d.History != nil {
		r.stage("RecordHistory", func() error {
			if err := d.History.MarkUsed(ctx, pc.Topic, published); err != nil {
				r.log.Warn("recording topic failed", "err", err)
			}
			return nil
		})
	}
	r.enter(types.StateDone)
}

// draft replaces the current content. The drafter degrades on its own, so
// an error here means the run was cancelled.
func (r *run) draft(ctx context.Context) error {
	pc := r.res.Context
	if r.o.deps.Drafter == nil {
		return errors.New("no drafter configured")
	}
	topic := pc.Topic
	topic.Title = pc.Title
	html, tags, err := r.o.deps.Drafter.Draft(ctx, topic)
	if err != nil {
		return err
	}
	pc.Drafts++
	pc.HTML = html
	if len(tags) > 0 {
		pc.Tags = tags
	}
	return nil
}

// verify records the outcome of one verification pass. Corroboration
// searches for the source headline rather than the localized one.
func (r *run) verify(ctx context.Context, stage string) bool {
	pc := r.res.Context
	if r.o.deps.Verifier == nil {
		return true
	}
	var out types.VerificationOutcome
	r.stage(stage, func() error {
		out = r.o.deps.Verifier.Verify(ctx, pc.HTML, pc.Topic.Title)
		return nil
	})
	pc.Verifications = append(pc.Verifications, out)
	pc.Errors = append(pc.Errors, out.Errors...)
	if !out.Passed {
		r.log.Warn("verification failed", "stage", stage, "errors", out.Errors)
	}
	return out.Passed
}

// prepareAssets is best-effort: failures are logged and the article goes
// out without the asset.
func (r *run) prepareAssets(ctx context.Context) {
	pc := r.res.Context
	d := r.o.deps
	if d.Cover != nil {
		png, err := d.Cover.Render(ctx, pc.Title)
		if err != nil {
			r.log.Warn("cover generation failed", "err", err)
		} else {
			pc.Cover = png
		}
	}
	if d.CTA != nil && pc.HTML != "" {
		pc.HTML, pc.CTAs = d.CTA.Insert(pc.HTML)
	}
}

func (r *run) enter(state types.RunState) {
	r.res.State = state
	r.res.Trail = append(r.res.Trail, state)
}

func (r *run) fail(state types.RunState, err error) {
	r.res.Err = err
	r.enter(state)
}

// stage times fn and logs the step.
func (r *run) stage(name string, fn func() error) error {
	start := time.Now()
	err := fn()
	elapsed := time.Since(start)
	r.res.Durations = append(r.res.Durations, StageTiming{Stage: name, Elapsed: elapsed})
	for _, rec := range r.o.deps.Recorders {
		rec.StageDone(name, elapsed)
	}
	if err != nil {
		r.log.Error("stage failed", "stage", name, "state", r.res.State, "ms", elapsed.Milliseconds(), "err", err)
		return err
	}
	r.log.Info("stage done", "stage", name, "state", r.res.State, "ms", elapsed.Milliseconds())
	return nil
}

// retry calls fn up to o.retries times with a fixed pause between calls.
// It returns the number of attempts made and the last error.
func (o *Orchestrator) retry(ctx context.Context, step string, fn func(attempt int) error) (int, error) {
	var err error
	for attempt := 1; attempt <= o.retries; attempt++ {
		if err = fn(attempt); err == nil {
			return attempt, nil
		}
		o.logger.Warn("attempt failed", "step", step, "attempt", attempt, "max", o.retries, "err", err)
		if attempt == o.retries {
			return attempt, err
		}
		if serr := o.Sleep(ctx, o.retryDelay); serr != nil {
			return attempt, serr
		}
	}
	return o.retries, err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
