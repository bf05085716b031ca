// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/daily-digest/internal/topics"
	"github.com/pdiddy/daily-digest/pkg/types"
)

type fakeSelector struct {
	topic types.Topic
	err   error
}

func (f *fakeSelector) Select(context.Context) (types.Topic, topics.Selection, error) {
	return f.topic, topics.Selection{Fetched: 3}, f.err
}

type fakeDrafter struct {
	calls  int
	titles []string
	err    error
}

func (f *fakeDrafter) Draft(_ context.Context, topic types.Topic) (string, []string, error) {
	f.calls++
	f.titles = append(f.titles, topic.Title)
	if f.err != nil {
		return "", nil, f.err
	}
	return fmt.Sprintf("<p>draft %d</p>", f.calls), []string{"Python"}, nil
}

func (f *fakeDrafter) LocalizeTitle(_ context.Context, raw string) string { return "RU: " + raw }

// scriptedVerifier returns outcomes in order, repeating the last one.
type scriptedVerifier struct {
	outcomes []types.VerificationOutcome
	calls    int
	topics   []string
}

func (s *scriptedVerifier) Verify(_ context.Context, _, topic string) types.VerificationOutcome {
	s.topics = append(s.topics, topic)
	i := min(s.calls, len(s.outcomes)-1)
	s.calls++
	return s.outcomes[i]
}

var (
	pass = types.VerificationOutcome{Passed: true}
	fail = types.VerificationOutcome{Errors: []string{"Ошибка Python-кода: bad"}}
)

type fakePublisher struct {
	failFirst int
	calls     int
	articles  []types.Article
}

func (f *fakePublisher) Publish(_ context.Context, a types.Article) (types.PublishResult, error) {
	f.calls++
	f.articles = append(f.articles, a)
	if f.calls <= f.failFirst {
		return types.PublishResult{}, fmt.Errorf("ghost 502 on call %d", f.calls)
	}
	return types.PublishResult{ID: "p1", Status: "scheduled", URL: "https://blog/p1"}, nil
}

type fakeHistory struct{ marked []string }

func (f *fakeHistory) MarkUsed(_ context.Context, topic types.Topic, _ types.PublishResult) error {
	f.marked = append(f.marked, topic.Title)
	return nil
}

type fakeCover struct{ err error }

func (f fakeCover) Render(context.Context, string) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []byte("png"), nil
}

type fakeCTA struct{}

func (fakeCTA) Insert(html string) (string, int) { return html + "<div class=\"cta\"></div>", 1 }

type recorder struct {
	stages   []string
	attempts []int
	done     []Result
	selected int
}

func (r *recorder) Selected(sel topics.Selection)           { r.selected += sel.Fetched }
func (r *recorder) StageDone(stage string, _ time.Duration) { r.stages = append(r.stages, stage) }
func (r *recorder) PublishAttempt(attempt int, _ error)     { r.attempts = append(r.attempts, attempt) }
func (r *recorder) RunDone(_ context.Context, res Result)   { r.done = append(r.done, res) }

type harness struct {
	drafter   *fakeDrafter
	verifier  *scriptedVerifier
	publisher *fakePublisher
	history   *fakeHistory
	rec       *recorder
	sleeps    []time.Duration
	orch      *Orchestrator
}

func newHarness(outcomes []types.VerificationOutcome, failFirst int, withPublisher bool) *harness {
	h := &harness{
		drafter:   &fakeDrafter{},
		verifier:  &scriptedVerifier{outcomes: outcomes},
		publisher: &fakePublisher{failFirst: failFirst},
		history:   &fakeHistory{},
		rec:       &recorder{},
	}
	deps := Deps{
		Selector:  &fakeSelector{topic: types.Topic{Title: "Rust async runtimes", Source: types.SourceHackerNews, Tags: []string{"Tech"}}},
		Drafter:   h.drafter,
		Verifier:  h.verifier,
		Cover:     fakeCover{},
		CTA:       fakeCTA{},
		History:   h.history,
		Recorders: []Recorder{h.rec},
	}
	if withPublisher {
		deps.Publisher = h.publisher
	}
	h.orch = New(deps, types.PublishConfig{Retries: 3, RetryDelay: 2 * time.Second}, nil)
	h.orch.Sleep = func(_ context.Context, d time.Duration) error {
		h.sleeps = append(h.sleeps, d)
		return nil
	}
	return h
}

func TestRunHappyPath(t *testing.T) {
	h := newHarness([]types.VerificationOutcome{pass}, 0, true)

	res, err := h.orch.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, types.StateDone, res.State)
	assert.Equal(t, []types.RunState{
		types.StateSelectTopic, types.StateGenerateContent, types.StateVerify,
		types.StatePrepareAssets, types.StatePublish, types.StateRecordHistory, types.StateDone,
	}, res.Trail)
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, 1, h.drafter.calls)
	assert.Equal(t, 1, h.publisher.calls)
	assert.Equal(t, []string{"Rust async runtimes"}, h.history.marked)

	a := h.publisher.articles[0]
	assert.Equal(t, "RU: Rust async runtimes", a.Title)
	assert.Equal(t, []byte("png"), a.Cover)
	assert.Contains(t, a.HTML, `class="cta"`)
	assert.Equal(t, []string{"Python"}, a.Tags)

	assert.Equal(t, []string{"RU: Rust async runtimes"}, h.drafter.titles)
	assert.Equal(t, []string{"Rust async runtimes"}, h.verifier.topics)
	assert.Equal(t, 1, res.Context.CTAs)
	assert.Equal(t, "p1", res.Context.Published.ID)
	assert.Len(t, h.rec.done, 1)
	assert.Equal(t, 3, h.rec.selected)
	assert.Equal(t, []string{"SelectTopic", "GenerateContent", "Verify", "PrepareAssets", "Publish", "RecordHistory"}, h.rec.stages)
}

func TestRunRegeneratesExactlyOnce(t *testing.T) {
	h := newHarness([]types.VerificationOutcome{fail, pass}, 0, true)

	res, err := h.orch.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, types.StateDone, res.State)
	assert.Equal(t, 2, h.drafter.calls)
	assert.Equal(t, 2, h.verifier.calls, "never a third verification")
	assert.Equal(t, 1, h.publisher.calls)
	assert.Contains(t, res.Trail, types.StateRegenerateContent)
	assert.Contains(t, res.Trail, types.StateReverify)
	assert.Equal(t, "<p>draft 2</p><div class=\"cta\"></div>", h.publisher.articles[0].HTML)
}

func TestRunVerificationFailsTwice(t *testing.T) {
	h := newHarness([]types.VerificationOutcome{fail, fail}, 0, true)

	res, err := h.orch.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, types.StateAbortedVerification, res.State)
	assert.Zero(t, h.publisher.calls)
	assert.Empty(t, h.history.marked)
	assert.Equal(t, 2, h.verifier.calls)
	assert.Len(t, res.Context.Errors, 2, "errors from both passes are kept")
	assert.NotContains(t, res.Trail, types.StatePrepareAssets)
}

func TestRunPublishSucceedsOnThirdAttempt(t *testing.T) {
	h := newHarness([]types.VerificationOutcome{pass}, 2, true)

	res, err := h.orch.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, types.StateDone, res.State)
	assert.Equal(t, 3, h.publisher.calls)
	assert.Equal(t, 3, res.Context.Attempts)
	assert.Equal(t, []time.Duration{2 * time.Second, 2 * time.Second}, h.sleeps)
	assert.Equal(t, []int{1, 2, 3}, h.rec.attempts)
	assert.Len(t, h.history.marked, 1)
}

func TestRunPublishExhausted(t *testing.T) {
	h := newHarness([]types.VerificationOutcome{pass}, 5, true)

	res, err := h.orch.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, types.StateAbortedPublish, res.State)
	assert.Equal(t, 3, h.publisher.calls)
	assert.Len(t, h.sleeps, 2)
	assert.Empty(t, h.history.marked, "no topic-used record after a failed publish")
	assert.NotContains(t, res.Trail, types.StateRecordHistory)
	assert.Nil(t, res.Context.Published)
}

func TestRunNoPublishTarget(t *testing.T) {
	h := newHarness([]types.VerificationOutcome{pass}, 0, false)

	res, err := h.orch.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, types.StateSkippedNoTarget, res.State)
	assert.True(t, res.State.Succeeded())
	assert.Contains(t, res.Trail, types.StatePrepareAssets)
	assert.NotContains(t, res.Trail, types.StatePublish)
	assert.Empty(t, h.history.marked)
	assert.Equal(t, []byte("png"), res.Context.Cover)
}

func TestRunAssetFailuresDoNotAbort(t *testing.T) {
	h := newHarness([]types.VerificationOutcome{pass}, 0, true)
	h.orch.deps.Cover = fakeCover{err: errors.New("image service down")}

	res, err := h.orch.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, types.StateDone, res.State)
	assert.Nil(t, h.publisher.articles[0].Cover)
}

func TestRunSelectionFailsClosed(t *testing.T) {
	h := newHarness([]types.VerificationOutcome{pass}, 0, true)
	h.orch.deps.Selector = &fakeSelector{err: topics.ErrHistoryUnavailable}

	res, err := h.orch.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, topics.ErrHistoryUnavailable)
	assert.Equal(t, types.StateAbortedNoTopic, res.State)
	assert.Zero(t, h.drafter.calls)
	assert.Zero(t, h.publisher.calls)

	rec := res.Record()
	assert.Equal(t, types.StateAbortedNoTopic, rec.State)
	require.Len(t, rec.Errors, 1)
	assert.Contains(t, rec.Errors[0], "selecting topic")
}

func TestRunCancelledDuringPublishBackoff(t *testing.T) {
	h := newHarness([]types.VerificationOutcome{pass}, 5, true)
	ctx, cancel := context.WithCancel(context.Background())
	h.orch.Sleep = func(ctx context.Context, _ time.Duration) error {
		cancel()
		return ctx.Err()
	}

	res, err := h.orch.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, types.StateAbortedPublish, res.State)
	assert.Equal(t, 1, h.publisher.calls)
}

func TestRunNoVerifierPublishes(t *testing.T) {
	h := newHarness(nil, 0, true)
	h.orch.deps.Verifier = nil

	res, err := h.orch.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, types.StateDone, res.State)
}

func TestRecord(t *testing.T) {
	res := Result{
		RunID:     "r1",
		StartedAt: time.Date(2026, 3, 1, 7, 0, 0, 0, time.UTC),
		State:     types.StateDone,
		Durations: []StageTiming{{"SelectTopic", time.Second}, {"Publish", 2 * time.Second}},
		Context: &PipelineContext{
			Title:     "T",
			Topic:     types.Topic{Source: types.SourceReddit},
			Attempts:  2,
			CTAs:      1,
			Published: &types.PublishResult{ID: "p", URL: "u"},
		},
	}
	rec := res.Record()
	assert.Equal(t, 3*time.Second, rec.Duration)
	assert.Equal(t, "p", rec.PostID)
	assert.Equal(t, "u", rec.PostURL)
	assert.Equal(t, types.SourceReddit, rec.Source)
	assert.Equal(t, 2, rec.PublishAttempts)
}

func TestNewDefaults(t *testing.T) {
	o := New(Deps{}, types.PublishConfig{}, nil)
	assert.Equal(t, DefaultPublishRetries, o.retries)
	assert.Equal(t, DefaultRetryDelay, o.retryDelay)
}
