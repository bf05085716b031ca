// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package feeds

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/pdiddy/daily-digest/internal/httputil"
	"github.com/pdiddy/daily-digest/pkg/types"
)

// Overridable in tests.
var (
	redditBase = "https://www.reddit.com"
	trendsBase = "https://trends.google.com"
)

// RSS lists on-topic entries of one RSS or Atom feed.
type RSS struct {
	name   string
	url    string
	source types.SourceTag
	score  float64

	// maxEntries limits the entries inspected; 0 means all.
	maxEntries int

	// stampNow ignores entry dates and uses the fetch time.
	stampNow bool

	// summaryTitle falls back to the entry description for untitled entries.
	summaryTitle bool

	client *http.Client
	ua     string
	now    func() time.Time
}

// NewRSS returns a generic feed source scored 1.0.
func NewRSS(client *http.Client, ua, feedURL string) *RSS {
	return &RSS{name: nameFor("rss", hostOf(feedURL)), url: feedURL, source: types.SourceRSS, score: 1.0, client: client, ua: ua, now: time.Now}
}

// NewReddit returns the RSS source of one subreddit, scored 1.0.
func NewReddit(client *http.Client, ua, sub string) *RSS {
	sub = strings.TrimPrefix(strings.TrimSpace(sub), "r/")
	return &RSS{
		name:   nameFor("reddit", sub),
		url:    fmt.Sprintf("%s/r/%s/.rss", redditBase, url.PathEscape(sub)),
		source: types.SourceReddit,
		score:  1.0,
		client: client,
		ua:     ua,
		now:    time.Now,
	}
}

// NewTelegram returns a Telegram channel read through an RSS proxy. Entries
// are stamped with the fetch time and scored 1.2.
func NewTelegram(client *http.Client, ua, feedURL string) *RSS {
	return &RSS{
		name:         nameFor("telegram", hostOf(feedURL)),
		url:          feedURL,
		source:       types.SourceTelegram,
		score:        1.2,
		maxEntries:   20,
		stampNow:     true,
		summaryTitle: true,
		client:       client,
		ua:           ua,
		now:          time.Now,
	}
}

// NewTrends returns the Google Trends daily feed for geo. Entries are
// stamped with the fetch time and scored 1.5.
func NewTrends(client *http.Client, ua, geo string) *RSS {
	return &RSS{
		name:       nameFor("trends", geo),
		url:        fmt.Sprintf("%s/trending/rss?geo=%s", trendsBase, url.QueryEscape(geo)),
		source:     types.SourceTrends,
		score:      1.5,
		maxEntries: 20,
		stampNow:   true,
		client:     client,
		ua:         ua,
		now:        time.Now,
	}
}

func (s *RSS) Name() string { return s.name }

// List downloads and parses the feed.
func (s *RSS) List(ctx context.Context) ([]types.TopicCandidate, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	ua := s.ua
	if ua == "" {
		ua = httputil.DefaultUserAgent
	}
	req.Header.Set("User-Agent", ua)

	resp, err := httputil.DoWithRetry(ctx, s.client, req, 1)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", s.url, err)
	}
	defer resp.Body.Close()
	if err := httputil.CheckStatus(resp); err != nil {
		return nil, fmt.Errorf("fetching %s: %w", s.url, err)
	}

	feed, err := gofeed.NewParser().Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", s.url, err)
	}
	return s.candidates(feed.Items), nil
}

func (s *RSS) candidates(items []*gofeed.Item) []types.TopicCandidate {
	if s.maxEntries > 0 && len(items) > s.maxEntries {
		items = items[:s.maxEntries]
	}
	now := s.now().UTC()
	var out []types.TopicCandidate
	for _, it := range items {
		title := strings.TrimSpace(it.Title)
		if title == "" && s.summaryTitle {
			title = strings.TrimSpace(it.Description)
		}
		if title == "" || !MatchesKeywords(title) {
			continue
		}
		published := now
		if !s.stampNow {
			switch {
			case it.PublishedParsed != nil:
				published = it.PublishedParsed.UTC()
			case it.UpdatedParsed != nil:
				published = it.UpdatedParsed.UTC()
			}
		}
		out = append(out, types.TopicCandidate{
			Title:       title,
			Source:      s.source,
			Score:       s.score,
			PublishedAt: published,
			Link:        it.Link,
		})
	}
	return out
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	return u.Host
}
