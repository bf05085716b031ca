// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the daily-digest pipeline:
// topic candidates, platform history, drafted articles, verification outcomes,
// run records, and configuration.
package types

import "time"

// SourceTag identifies the feed that produced a candidate.
type SourceTag string

const (
	SourceHackerNews SourceTag = "hn"
	SourceHNSearch   SourceTag = "hn_search"
	SourceReddit     SourceTag = "reddit"
	SourceTrends     SourceTag = "trends"
	SourceTelegram   SourceTag = "telegram"
	SourceRSS        SourceTag = "rss"
	SourceFallback   SourceTag = "fallback"
)

// TopicCandidate is a title proposed by a feed source. Candidates are
// immutable once created and live for one selection run.
type TopicCandidate struct {
	// Title is the candidate headline as published by the source.
	Title string `json:"title" yaml:"title"`

	// Source identifies the producing feed.
	Source SourceTag `json:"source" yaml:"source"`

	// Score is a ranking heuristic (>= 0), not a probability.
	Score float64 `json:"score" yaml:"score"`

	// PublishedAt is when the source published the item.
	PublishedAt time.Time `json:"published_at" yaml:"published_at"`

	// Link points at the source item, when known.
	Link string `json:"link,omitempty" yaml:"link,omitempty"`
}

// Topic is the selected subject of one article.
type Topic struct {
	Title   string    `json:"title" yaml:"title"`
	Source  SourceTag `json:"source" yaml:"source"`
	Tags    []string  `json:"tags" yaml:"tags"`
	Outline []string  `json:"outline" yaml:"outline"`
	Link    string    `json:"link,omitempty" yaml:"link,omitempty"`
}

// RecentTitle is one entry of the platform history window.
type RecentTitle struct {
	Title     string    `json:"title" yaml:"title"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
	Status    string    `json:"status" yaml:"status"`
}

// Titles returns just the title strings, in order.
func Titles(recent []RecentTitle) []string {
	out := make([]string, 0, len(recent))
	for _, r := range recent {
		out = append(out, r.Title)
	}
	return out
}
