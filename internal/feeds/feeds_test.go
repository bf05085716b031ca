// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package feeds

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/daily-digest/internal/httputil"
	"github.com/pdiddy/daily-digest/pkg/types"
)

func init() {
	httputil.RetryBaseDelay = time.Millisecond
	hnItemInterval = time.Microsecond
}

var fixedNow = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

func TestMatchesKeywords(t *testing.T) {
	assert.True(t, MatchesKeywords("New LLM benchmark"))
	assert.True(t, MatchesKeywords("нейросети в медицине"))
	assert.True(t, MatchesKeywords("python tips"))
	assert.False(t, MatchesKeywords("Rust 1.90 released"))
}

// staticSource returns fixed candidates after an optional delay.
type staticSource struct {
	name  string
	delay time.Duration
	cands []types.TopicCandidate
	err   error
}

func (s staticSource) Name() string { return s.name }

func (s staticSource) List(ctx context.Context) ([]types.TopicCandidate, error) {
	time.Sleep(s.delay)
	return s.cands, s.err
}

func TestFetchAllKeepsSourceOrder(t *testing.T) {
	sources := []Source{
		staticSource{name: "slow", delay: 20 * time.Millisecond, cands: []types.TopicCandidate{{Title: "a"}, {Title: "b"}}},
		staticSource{name: "broken", err: errors.New("dns")},
		staticSource{name: "fast", cands: []types.TopicCandidate{{Title: "c"}}},
	}

	got, summary := FetchAll(context.Background(), sources, 3, nil)

	titles := make([]string, 0, len(got))
	for _, c := range got {
		titles = append(titles, c.Title)
	}
	assert.Equal(t, []string{"a", "b", "c"}, titles)
	assert.Equal(t, 2, summary.Fetched)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 3, summary.Total())
	require.Len(t, summary.Errors, 1)
	assert.Equal(t, "broken", summary.Errors[0].Source)
	assert.Equal(t, map[string]int{"slow": 2, "fast": 1}, summary.PerSource)
}

func TestFetchAllCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	got, summary := FetchAll(ctx, []Source{staticSource{name: "x", cands: []types.TopicCandidate{{Title: "a"}}}}, 1, nil)
	assert.Empty(t, got)
	assert.Equal(t, 1, summary.Failed)
}

func TestHackerNews(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/topstories.json", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `[1,2,3,4]`)
	})
	mux.HandleFunc("/item/1.json", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"id":1,"title":"Show HN: local LLM runner","time":1772400000,"score":150,"url":"https://example.com/llm"}`)
	})
	mux.HandleFunc("/item/2.json", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"id":2,"title":"Rust compiler internals","time":1772400000,"score":90}`)
	})
	mux.HandleFunc("/item/3.json", func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	})
	mux.HandleFunc("/item/4.json", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"id":4,"title":"Python packaging in 2026","time":1772300000}`)
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	old := hnAPIBase
	hnAPIBase = ts.URL
	defer func() { hnAPIBase = old }()

	hn := NewHackerNews(ts.Client(), 3, nil)
	got, err := hn.List(context.Background())
	require.NoError(t, err)

	require.Len(t, got, 1, "limit 3 excludes item 4; item 2 is off-topic; item 3 failed")
	assert.Equal(t, "Show HN: local LLM runner", got[0].Title)
	assert.Equal(t, 150.0, got[0].Score)
	assert.Equal(t, time.Unix(1772400000, 0).UTC(), got[0].PublishedAt)
	assert.Equal(t, types.SourceHackerNews, got[0].Source)
	assert.Equal(t, "https://example.com/llm", got[0].Link)

	hn = NewHackerNews(ts.Client(), 0, nil)
	got, err = hn.List(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 1.0, got[1].Score, "missing score defaults to 1")
	assert.Equal(t, "https://news.ycombinator.com/item?id=4", got[1].Link)
}

func TestHackerNewsListingFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer ts.Close()
	old := hnAPIBase
	hnAPIBase = ts.URL
	defer func() { hnAPIBase = old }()

	_, err := NewHackerNews(ts.Client(), 5, nil).List(context.Background())
	assert.Error(t, err)
}

func TestHNSearch(t *testing.T) {
	var mu sync.Mutex
	var queries []url.Values
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		queries = append(queries, r.URL.Query())
		mu.Unlock()
		fmt.Fprint(w, `{"nbHits":2,"hits":[
			{"objectID":"11","title":"Transformers from scratch","created_at_i":1772400000},
			{"objectID":"12","title":"  ","created_at_i":1772400000}]}`)
	}))
	defer ts.Close()
	old := algoliaAPIBase
	algoliaAPIBase = ts.URL
	defer func() { algoliaAPIBase = old }()

	s := NewHNSearch(ts.Client(), 48*time.Hour)
	s.now = func() time.Time { return fixedNow }
	got, err := s.List(context.Background())
	require.NoError(t, err)

	require.Len(t, got, 1, "same title across queries is listed once")
	assert.Equal(t, types.SourceHNSearch, got[0].Source)
	assert.Equal(t, "https://news.ycombinator.com/item?id=11", got[0].Link)

	require.Len(t, queries, len(HNSearchQueries))
	assert.Equal(t, "AI", queries[0].Get("query"))
	assert.Equal(t, "story", queries[0].Get("tags"))
	assert.Equal(t, fmt.Sprintf("created_at_i>%d", fixedNow.Add(-48*time.Hour).Unix()), queries[0].Get("numericFilters"))
	assert.Equal(t, "10", queries[0].Get("hitsPerPage"))
}

func TestHNSearchAllQueriesFail(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer ts.Close()
	old := algoliaAPIBase
	algoliaAPIBase = ts.URL
	defer func() { algoliaAPIBase = old }()

	_, err := NewHNSearch(ts.Client(), time.Hour).List(context.Background())
	assert.Error(t, err)
}

const redditFeed = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>MachineLearning</title>
  <entry>
    <title>[D] LLM evaluation is broken</title>
    <link href="https://www.reddit.com/r/MachineLearning/comments/abc/"/>
    <updated>2026-03-01T10:00:00+00:00</updated>
    <published>2026-03-01T09:00:00+00:00</published>
  </entry>
  <entry>
    <title>Weekly hiring thread</title>
    <link href="https://www.reddit.com/r/MachineLearning/comments/def/"/>
    <updated>2026-03-01T10:00:00+00:00</updated>
  </entry>
</feed>`

func TestReddit(t *testing.T) {
	var gotPath, gotUA string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotUA = r.URL.Path, r.Header.Get("User-Agent")
		fmt.Fprint(w, redditFeed)
	}))
	defer ts.Close()
	old := redditBase
	redditBase = ts.URL
	defer func() { redditBase = old }()

	src := NewReddit(ts.Client(), "digest-test/1.0", "r/MachineLearning")
	assert.Equal(t, "reddit:MachineLearning", src.Name())

	got, err := src.List(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "/r/MachineLearning/.rss", gotPath)
	assert.Equal(t, "digest-test/1.0", gotUA)
	require.Len(t, got, 1)
	assert.Equal(t, "[D] LLM evaluation is broken", got[0].Title)
	assert.Equal(t, types.SourceReddit, got[0].Source)
	assert.Equal(t, 1.0, got[0].Score)
	assert.Equal(t, time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC), got[0].PublishedAt)
}

func rssWithItems(n int, title func(i int) string) string {
	s := `<?xml version="1.0"?><rss version="2.0"><channel><title>t</title>`
	for i := 0; i < n; i++ {
		s += fmt.Sprintf(`<item><title>%s</title><description>Python summary %d</description><pubDate>Mon, 02 Jan 2006 15:04:05 GMT</pubDate></item>`, title(i), i)
	}
	return s + `</channel></rss>`
}

func TestTelegramStampsNowAndLimitsEntries(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, rssWithItems(25, func(i int) string {
			if i == 0 {
				return ""
			}
			return fmt.Sprintf("AI news %d", i)
		}))
	}))
	defer ts.Close()

	src := NewTelegram(ts.Client(), "", ts.URL+"/channel")
	src.now = func() time.Time { return fixedNow }
	got, err := src.List(context.Background())
	require.NoError(t, err)

	require.Len(t, got, 20)
	assert.Equal(t, "Python summary 0", got[0].Title, "untitled entry falls back to summary")
	assert.Equal(t, fixedNow, got[0].PublishedAt)
	assert.Equal(t, 1.2, got[0].Score)
	assert.Equal(t, types.SourceTelegram, got[0].Source)
	assert.Equal(t, "AI news 19", got[19].Title)
}

func TestTrends(t *testing.T) {
	var geo string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		geo = r.URL.Query().Get("geo")
		fmt.Fprint(w, rssWithItems(2, func(i int) string { return []string{"openai", "футбол"}[i] }))
	}))
	defer ts.Close()
	old := trendsBase
	trendsBase = ts.URL
	defer func() { trendsBase = old }()

	src := NewTrends(ts.Client(), "", "RU")
	src.now = func() time.Time { return fixedNow }
	got, err := src.List(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "RU", geo)
	require.Len(t, got, 1)
	assert.Equal(t, "openai", got[0].Title)
	assert.Equal(t, 1.5, got[0].Score)
	assert.Equal(t, fixedNow, got[0].PublishedAt)
}

func TestRSSParseError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "not a feed")
	}))
	defer ts.Close()

	_, err := NewRSS(ts.Client(), "", ts.URL).List(context.Background())
	assert.Error(t, err)
}

func TestBuildOrder(t *testing.T) {
	srcs := Build(types.FeedsConfig{
		HackerNews:    true,
		HNSearch:      true,
		RedditSubs:    []string{"webdev"},
		TrendsGeo:     "RU",
		TelegramFeeds: []string{"https://rsshub.example/telegram/channel/x"},
		RSSFeeds:      []string{"https://habr.com/ru/rss/all/all/"},
	}, types.HTTPConfig{}, 48*time.Hour, nil)

	names := make([]string, 0, len(srcs))
	for _, s := range srcs {
		names = append(names, s.Name())
	}
	assert.Equal(t, []string{"hn", "hn_search", "reddit:webdev", "trends:RU", "telegram:rsshub.example", "rss:habr.com"}, names)
}
