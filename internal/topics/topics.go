// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package topics selects the day's topic: it merges feed candidates, keeps
// the fresh ones, drops anything that repeats the platform history, ranks
// the rest and returns the best, or a fixed fallback topic.
package topics

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/charmbracelet/log"

	"github.com/pdiddy/daily-digest/internal/dedupe"
	"github.com/pdiddy/daily-digest/internal/feeds"
	"github.com/pdiddy/daily-digest/internal/logging"
	"github.com/pdiddy/daily-digest/internal/similarity"
	"github.com/pdiddy/daily-digest/pkg/types"
)

// ErrHistoryUnavailable is returned when the platform is configured but
// its history could not be established. Selection fails closed.
var ErrHistoryUnavailable = errors.New("platform history unavailable, topic selection stopped")

// HistoryOracle provides the platform history window.
type HistoryOracle interface {
	Configured() bool
	RecentTitles(ctx context.Context, window time.Duration) ([]types.RecentTitle, error)
}

// Rejection reasons recorded in a Selection.
const (
	RejectStale     = "stale"
	RejectRepeat    = "repeat"
	RejectSimilar   = "similar"
	RejectDuplicate = "duplicate"
	RejectBanned    = "banned_anchor"
)

// Ranked is a surviving candidate with its adjusted score.
type Ranked struct {
	types.TopicCandidate
	Adjusted float64 `json:"adjusted" yaml:"adjusted"`
	HowTo    bool    `json:"howto" yaml:"howto"`

	// Risk is the recency-weighted overlap with history, in [0, 1].
	Risk float64 `json:"risk" yaml:"risk"`
}

// Rejected is a dropped candidate and why.
type Rejected struct {
	Title  string `json:"title" yaml:"title"`
	Reason string `json:"reason" yaml:"reason"`
	Detail string `json:"detail,omitempty" yaml:"detail,omitempty"`
}

// Selection reports what happened during one selection run.
type Selection struct {
	Fetched  int
	Fresh    int
	History  int
	Ranked   []Ranked
	Rejected []Rejected
	Fallback bool
	Sources  feeds.FetchSummary
}

// Count returns how many candidates were rejected for reason.
func (s Selection) Count(reason string) int {
	n := 0
	for _, r := range s.Rejected {
		if r.Reason == reason {
			n++
		}
	}
	return n
}

// Aggregator runs topic selection.
type Aggregator struct {
	Sources []feeds.Source
	History HistoryOracle
	Judge   dedupe.DuplicateJudge
	Config  types.TopicConfig

	// Concurrency bounds parallel source fetches.
	Concurrency int

	Logger *log.Logger
	Now    func() time.Time
}

// Select returns the chosen topic. The only error is history being
// unavailable while the platform is configured (or ctx ending).
func (a *Aggregator) Select(ctx context.Context) (types.Topic, Selection, error) {
	logger := logging.Component(a.Logger, "topics")
	now := time.Now
	if a.Now != nil {
		now = a.Now
	}

	cands, summary := feeds.FetchAll(ctx, a.Sources, a.Concurrency, logger)
	sel := Selection{Fetched: len(cands), Sources: summary}

	cutoff := now().Add(-a.Config.Freshness)
	var fresh []types.TopicCandidate
	for _, c := range cands {
		if c.PublishedAt.Before(cutoff) {
			sel.Rejected = append(sel.Rejected, Rejected{Title: c.Title, Reason: RejectStale})
			continue
		}
		fresh = append(fresh, c)
	}
	sel.Fresh = len(fresh)

	recent, err := a.history(ctx)
	if err != nil {
		return types.Topic{}, sel, err
	}
	sel.History = len(recent)
	titles := types.Titles(recent)

	kept, rejected, err := a.filter(ctx, fresh, titles, logger)
	if err != nil {
		return types.Topic{}, sel, err
	}
	sel.Rejected = append(sel.Rejected, rejected...)

	sel.Ranked = Rank(kept, a.Config.HowToBonus)
	scoreRisk(sel.Ranked, recent, now(), a.Config.History)
	logger.Info("candidates ranked",
		"fetched", sel.Fetched, "fresh", sel.Fresh, "history", sel.History,
		"similar", sel.Count(RejectSimilar)+sel.Count(RejectRepeat),
		"duplicates", sel.Count(RejectDuplicate), "banned", sel.Count(RejectBanned),
		"ranked", len(sel.Ranked))

	if len(sel.Ranked) == 0 {
		sel.Fallback = true
		logger.Warn("no candidate survived, using fallback topic")
		return FallbackTopic(), sel, nil
	}
	return FromCandidate(sel.Ranked[0].TopicCandidate), sel, nil
}

func (a *Aggregator) history(ctx context.Context) ([]types.RecentTitle, error) {
	if a.History == nil || !a.History.Configured() {
		return nil, nil
	}
	recent, err := a.History.RecentTitles(ctx, a.Config.History)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %w", ErrHistoryUnavailable, err)
	}
	if len(recent) == 0 {
		return nil, ErrHistoryUnavailable
	}
	return recent, nil
}

// filter drops candidates that repeat history: identical candidates across
// sources, banned anchors (when enabled), exact or token-similar history
// titles, and semantic duplicates. Cheap checks run first so the judge only
// sees candidates the token rules let through.
func (a *Aggregator) filter(ctx context.Context, cands []types.TopicCandidate, recent []string, logger *log.Logger) ([]types.TopicCandidate, []Rejected, error) {
	judge := a.Judge
	if judge == nil {
		judge = dedupe.HeuristicFallback{}
	}

	var banned similarity.TokenSet
	if a.Config.AnchorBan && len(recent) > 0 {
		freq := similarity.AnchorFrequency(recent, a.Config.AnchorMinLen)
		banned = similarity.BannedAnchors(freq, a.Config.AnchorBanThreshold)
		logger.Debug("anchor ban built", "anchors", len(freq), "banned", len(banned))
	}

	seen := make(map[string]bool)
	var kept []types.TopicCandidate
	var rejected []Rejected
	for _, c := range cands {
		norm := similarity.Normalize(c.Title)
		if seen[norm] {
			rejected = append(rejected, Rejected{Title: c.Title, Reason: RejectRepeat})
			continue
		}
		seen[norm] = true

		if hit := similarity.HitsBanned(c.Title, banned, a.Config.AnchorMinLen); hit != "" {
			rejected = append(rejected, Rejected{Title: c.Title, Reason: RejectBanned, Detail: hit})
			continue
		}

		if similarity.IsSimilarToRecent(c.Title, recent) {
			rejected = append(rejected, Rejected{Title: c.Title, Reason: RejectSimilar})
			continue
		}

		dup, err := judge.Judge(ctx, c.Title, recent)
		if err != nil {
			if ctx.Err() != nil {
				return nil, nil, ctx.Err()
			}
			logger.Warn("duplicate judge failed, applying heuristic", "title", c.Title, "err", err)
			dup = dedupe.QuickDuplicate(c.Title, recent)
		}
		if dup {
			rejected = append(rejected, Rejected{Title: c.Title, Reason: RejectDuplicate})
			continue
		}
		kept = append(kept, c)
	}
	return kept, rejected, nil
}

func scoreRisk(ranked []Ranked, recent []types.RecentTitle, now time.Time, window time.Duration) {
	if len(recent) == 0 {
		return
	}
	history := make([]similarity.Dated, 0, len(recent))
	for _, r := range recent {
		history = append(history, similarity.Dated{Title: r.Title, At: r.UpdatedAt})
	}
	for i := range ranked {
		ranked[i].Risk = similarity.DuplicateRisk(ranked[i].Title, history, now, window)
	}
}

// Rank applies the how-to bonus and sorts by adjusted score, highest first.
// The sort is stable, so equal scores keep their input order.
func Rank(cands []types.TopicCandidate, howToBonus float64) []Ranked {
	out := make([]Ranked, 0, len(cands))
	for _, c := range cands {
		r := Ranked{TopicCandidate: c, Adjusted: c.Score, HowTo: IsHowTo(c.Title)}
		if r.HowTo {
			r.Adjusted += howToBonus
		}
		out = append(out, r)
	}
	slices.SortStableFunc(out, func(x, y Ranked) int {
		switch {
		case x.Adjusted > y.Adjusted:
			return -1
		case x.Adjusted < y.Adjusted:
			return 1
		}
		return 0
	})
	return out
}
