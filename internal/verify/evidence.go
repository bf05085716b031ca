// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package verify

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/pdiddy/daily-digest/internal/httputil"
	"github.com/pdiddy/daily-digest/pkg/types"
)

// Overridable in tests.
var (
	googleCSEBase = "https://www.googleapis.com/customsearch/v1"
	braveBase     = "https://api.search.brave.com/res/v1/web/search"
	githubBase    = "https://api.github.com"
	algoliaBase   = "https://hn.algolia.com/api/v1"
)

// Evidence counts search results for a query.
type Evidence interface {
	Name() string
	Count(ctx context.Context, query string) (int, error)
}

// GoogleCSE queries a Google Programmable Search engine.
type GoogleCSE struct {
	Key    string
	CX     string
	Client *http.Client
}

func (g *GoogleCSE) Name() string { return "google_cse" }

// Count reads searchInformation.totalResults, which the API returns as a
// string.
func (g *GoogleCSE) Count(ctx context.Context, query string) (int, error) {
	params := url.Values{"key": {g.Key}, "cx": {g.CX}, "q": {query}}
	var out struct {
		SearchInformation struct {
			TotalResults string `json:"totalResults"`
		} `json:"searchInformation"`
	}
	if err := httputil.GetJSON(ctx, g.Client, googleCSEBase+"?"+params.Encode(), nil, &out); err != nil {
		return 0, err
	}
	total := strings.TrimSpace(out.SearchInformation.TotalResults)
	if total == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(total)
	if err != nil {
		return 0, fmt.Errorf("parsing totalResults %q: %w", total, err)
	}
	return n, nil
}

// Brave queries the Brave web search API.
type Brave struct {
	Key    string
	Client *http.Client
}

func (b *Brave) Name() string { return "brave" }

// Count returns the number of web results on the first page.
func (b *Brave) Count(ctx context.Context, query string) (int, error) {
	params := url.Values{"q": {query}, "count": {"5"}}
	header := http.Header{"X-Subscription-Token": {b.Key}}
	var out struct {
		Web struct {
			Results []struct {
				URL string `json:"url"`
			} `json:"results"`
		} `json:"web"`
	}
	if err := httputil.GetJSON(ctx, b.Client, braveBase+"?"+params.Encode(), header, &out); err != nil {
		return 0, err
	}
	return len(out.Web.Results), nil
}

// GitHubRepos searches repositories; a token only raises the rate limit.
type GitHubRepos struct {
	Token  string
	Client *http.Client
}

func (g *GitHubRepos) Name() string { return "github" }

// Count returns total_count of the repository search.
func (g *GitHubRepos) Count(ctx context.Context, query string) (int, error) {
	params := url.Values{"q": {query}, "per_page": {"1"}}
	header := http.Header{"Accept": {"application/vnd.github+json"}}
	if g.Token != "" {
		header.Set("Authorization", "Bearer "+g.Token)
	}
	var out struct {
		TotalCount int `json:"total_count"`
	}
	if err := httputil.GetJSON(ctx, g.Client, githubBase+"/search/repositories?"+params.Encode(), header, &out); err != nil {
		return 0, err
	}
	return out.TotalCount, nil
}

// HNAlgolia searches Hacker News stories.
type HNAlgolia struct {
	Client *http.Client
}

func (h *HNAlgolia) Name() string { return "hn_algolia" }

// Count returns nbHits for the story search.
func (h *HNAlgolia) Count(ctx context.Context, query string) (int, error) {
	params := url.Values{"query": {query}, "tags": {"story"}, "hitsPerPage": {"1"}}
	var out struct {
		NbHits int `json:"nbHits"`
	}
	if err := httputil.GetJSON(ctx, h.Client, algoliaBase+"/search?"+params.Encode(), nil, &out); err != nil {
		return 0, err
	}
	return out.NbHits, nil
}

// BuildEvidence returns the keyed primary backends (only those with
// credentials) and the no-key fallback backends, in consultation order.
// Without any primary backend corroboration is disabled and both are nil.
func BuildEvidence(cfg types.VerifyConfig, client *http.Client) (primary, fallback []Evidence) {
	if cfg.GoogleAPIKey != "" && cfg.GoogleCSEID != "" {
		primary = append(primary, &GoogleCSE{Key: cfg.GoogleAPIKey, CX: cfg.GoogleCSEID, Client: client})
	}
	if cfg.BraveAPIKey != "" {
		primary = append(primary, &Brave{Key: cfg.BraveAPIKey, Client: client})
	}
	if len(primary) == 0 {
		return nil, nil
	}
	fallback = []Evidence{
		&GitHubRepos{Token: cfg.GitHubToken, Client: client},
		&HNAlgolia{Client: client},
	}
	return primary, fallback
}
