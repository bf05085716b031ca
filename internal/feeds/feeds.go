// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package feeds collects topic candidates from independent sources: Hacker
// News, its Algolia search, Reddit and Telegram RSS, generic RSS feeds and
// Google Trends. Each source fails on its own; FetchAll never aborts because
// one source broke.
package feeds

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/daily-digest/internal/logging"
	"github.com/pdiddy/daily-digest/pkg/types"
)

// Keywords gate which titles count as on-topic. Matching is a
// case-insensitive substring test.
var Keywords = []string{
	"AI",
	"нейросети",
	"машинное обучение",
	"data science",
	"веб",
	"frontend",
	"backend",
	"Python",
	"JavaScript",
	"LLM",
}

// MatchesKeywords reports whether title mentions any keyword.
func MatchesKeywords(title string) bool {
	lower := strings.ToLower(title)
	for _, k := range Keywords {
		if strings.Contains(lower, strings.ToLower(k)) {
			return true
		}
	}
	return false
}

// Source lists candidates from one feed.
type Source interface {
	Name() string
	List(ctx context.Context) ([]types.TopicCandidate, error)
}

// SourceError records one failed source.
type SourceError struct {
	Source string
	Err    error
}

// FetchSummary holds counts from one FetchAll call.
type FetchSummary struct {
	Fetched int
	Failed  int
	Errors  []SourceError

	// PerSource counts candidates by source name.
	PerSource map[string]int
}

// Total returns the number of sources consulted.
func (s FetchSummary) Total() int {
	return s.Fetched + s.Failed
}

// FetchAll lists every source concurrently, at most limit at a time.
// Results are concatenated in source order regardless of completion order,
// so ranking ties resolve the same way on every run.
func FetchAll(ctx context.Context, sources []Source, limit int, logger *log.Logger) ([]types.TopicCandidate, FetchSummary) {
	logger = logging.Or(logger)
	if limit <= 0 {
		limit = 4
	}
	results := make([][]types.TopicCandidate, len(sources))
	errs := make([]error, len(sources))

	var g errgroup.Group
	g.SetLimit(limit)
	for i, src := range sources {
		i, src := i, src
		g.Go(func() error {
			if ctx.Err() != nil {
				errs[i] = ctx.Err()
				return nil
			}
			cands, err := src.List(ctx)
			if err != nil {
				errs[i] = err
				return nil
			}
			results[i] = cands
			return nil
		})
	}
	_ = g.Wait()

	summary := FetchSummary{PerSource: make(map[string]int, len(sources))}
	var all []types.TopicCandidate
	for i, src := range sources {
		if errs[i] != nil {
			summary.Failed++
			summary.Errors = append(summary.Errors, SourceError{Source: src.Name(), Err: errs[i]})
			logger.Warn("source failed", "source", src.Name(), "err", errs[i])
			continue
		}
		summary.Fetched++
		summary.PerSource[src.Name()] += len(results[i])
		logger.Debug("source listed", "source", src.Name(), "candidates", len(results[i]))
		all = append(all, results[i]...)
	}
	return all, summary
}

// Build constructs the configured sources in their fixed enumeration
// order: HN top stories, HN search, Reddit, Google Trends, Telegram, RSS.
func Build(cfg types.FeedsConfig, httpCfg types.HTTPConfig, freshness time.Duration, logger *log.Logger) []Source {
	client := &http.Client{Timeout: httpCfg.Timeout}
	ua := httpCfg.UserAgent

	var out []Source
	if cfg.HackerNews {
		out = append(out, NewHackerNews(client, cfg.HNLimit, logger))
	}
	if cfg.HNSearch {
		out = append(out, NewHNSearch(client, freshness))
	}
	for _, sub := range cfg.RedditSubs {
		out = append(out, NewReddit(client, ua, sub))
	}
	if cfg.TrendsGeo != "" {
		out = append(out, NewTrends(client, ua, cfg.TrendsGeo))
	}
	for _, u := range cfg.TelegramFeeds {
		out = append(out, NewTelegram(client, ua, u))
	}
	for _, u := range cfg.RSSFeeds {
		out = append(out, NewRSS(client, ua, u))
	}
	return out
}

func nameFor(kind, detail string) string {
	if detail == "" {
		return kind
	}
	return fmt.Sprintf("%s:%s", kind, detail)
}
