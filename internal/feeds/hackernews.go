// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package feeds

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/pdiddy/daily-digest/internal/httputil"
	"github.com/pdiddy/daily-digest/internal/logging"
	"github.com/pdiddy/daily-digest/pkg/types"
)

// Overridable in tests.
var (
	hnAPIBase      = "https://hacker-news.firebaseio.com/v0"
	algoliaAPIBase = "https://hn.algolia.com/api/v1"
)

// hnItemInterval paces per-item requests against the HN API.
var hnItemInterval = 50 * time.Millisecond

const defaultHNLimit = 50

// HNSearchQueries are the Algolia queries for recent stories.
var HNSearchQueries = []string{"AI", "machine learning", "web development", "data science", "react", "python"}

const hnSearchHits = 10

// HackerNews lists on-topic top stories, scored by HN points.
type HackerNews struct {
	client  *http.Client
	limit   int
	limiter *rate.Limiter
	logger  *log.Logger
	now     func() time.Time
}

// NewHackerNews returns the top stories source; limit <= 0 means 50.
func NewHackerNews(client *http.Client, limit int, logger *log.Logger) *HackerNews {
	if limit <= 0 {
		limit = defaultHNLimit
	}
	return &HackerNews{
		client:  client,
		limit:   limit,
		limiter: rate.NewLimiter(rate.Every(hnItemInterval), 5),
		logger:  logging.Component(logger, "hn"),
		now:     time.Now,
	}
}

func (h *HackerNews) Name() string { return string(types.SourceHackerNews) }

type hnItem struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
	Time  int64  `json:"time"`
	Score *int   `json:"score"`
	URL   string `json:"url"`
}

// List fetches the top story ids and then each item. A failed item is
// skipped; only the id listing failing fails the source.
func (h *HackerNews) List(ctx context.Context) ([]types.TopicCandidate, error) {
	var ids []int64
	if err := httputil.GetJSON(ctx, h.client, hnAPIBase+"/topstories.json", nil, &ids); err != nil {
		return nil, fmt.Errorf("listing top stories: %w", err)
	}
	if len(ids) > h.limit {
		ids = ids[:h.limit]
	}

	var out []types.TopicCandidate
	for _, id := range ids {
		if err := h.limiter.Wait(ctx); err != nil {
			return out, err
		}
		var item hnItem
		if err := httputil.GetJSON(ctx, h.client, fmt.Sprintf("%s/item/%d.json", hnAPIBase, id), nil, &item); err != nil {
			h.logger.Debug("item fetch failed", "id", id, "err", err)
			continue
		}
		if !MatchesKeywords(item.Title) {
			continue
		}
		published := h.now().UTC()
		if item.Time > 0 {
			published = time.Unix(item.Time, 0).UTC()
		}
		score := 1.0
		if item.Score != nil {
			score = float64(*item.Score)
		}
		out = append(out, types.TopicCandidate{
			Title:       strings.TrimSpace(item.Title),
			Source:      types.SourceHackerNews,
			Score:       score,
			PublishedAt: published,
			Link:        itemLink(id, item.URL),
		})
	}
	return out, nil
}

func itemLink(id int64, u string) string {
	if u != "" {
		return u
	}
	return fmt.Sprintf("https://news.ycombinator.com/item?id=%d", id)
}

// HNSearch lists recent stories matching HNSearchQueries via Algolia.
type HNSearch struct {
	client  *http.Client
	window  time.Duration
	queries []string
	now     func() time.Time
}

// NewHNSearch returns the Algolia source for stories newer than window.
func NewHNSearch(client *http.Client, window time.Duration) *HNSearch {
	if window <= 0 {
		window = 48 * time.Hour
	}
	return &HNSearch{client: client, window: window, queries: HNSearchQueries, now: time.Now}
}

func (s *HNSearch) Name() string { return string(types.SourceHNSearch) }

type algoliaHit struct {
	ObjectID   string `json:"objectID"`
	Title      string `json:"title"`
	URL        string `json:"url"`
	CreatedAtI int64  `json:"created_at_i"`
}

type algoliaResponse struct {
	NbHits int          `json:"nbHits"`
	Hits   []algoliaHit `json:"hits"`
}

// List runs every query; the source fails only when all queries fail.
func (s *HNSearch) List(ctx context.Context) ([]types.TopicCandidate, error) {
	cutoff := s.now().Add(-s.window).Unix()
	seen := make(map[string]bool)
	var out []types.TopicCandidate
	var lastErr error
	failed := 0
	for _, q := range s.queries {
		var resp algoliaResponse
		if err := httputil.GetJSON(ctx, s.client, algoliaSearchURL(q, cutoff, hnSearchHits), nil, &resp); err != nil {
			lastErr = err
			failed++
			continue
		}
		for _, hit := range resp.Hits {
			title := strings.TrimSpace(hit.Title)
			if title == "" || seen[title] {
				continue
			}
			seen[title] = true
			link := hit.URL
			if link == "" && hit.ObjectID != "" {
				link = "https://news.ycombinator.com/item?id=" + hit.ObjectID
			}
			out = append(out, types.TopicCandidate{
				Title:       title,
				Source:      types.SourceHNSearch,
				Score:       1.0,
				PublishedAt: time.Unix(hit.CreatedAtI, 0).UTC(),
				Link:        link,
			})
		}
	}
	if failed == len(s.queries) && lastErr != nil {
		return nil, fmt.Errorf("hn search: %w", lastErr)
	}
	return out, nil
}

func algoliaSearchURL(query string, cutoff int64, hits int) string {
	params := url.Values{}
	params.Set("query", query)
	params.Set("tags", "story")
	params.Set("numericFilters", fmt.Sprintf("created_at_i>%d", cutoff))
	params.Set("hitsPerPage", fmt.Sprint(hits))
	return algoliaAPIBase + "/search?" + params.Encode()
}
