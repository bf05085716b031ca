// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package report builds and mails the weekly publication report.
package report

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/pdiddy/daily-digest/internal/ghost"
	"github.com/pdiddy/daily-digest/internal/journal"
	"github.com/pdiddy/daily-digest/internal/logging"
	"github.com/pdiddy/daily-digest/pkg/types"
)

// Week is the default report period.
const Week = 7 * 24 * time.Hour

// PostSource lists posts published on the content platform.
type PostSource interface {
	PublishedSince(ctx context.Context, since time.Time) ([]ghost.Post, error)
}

// RunLog summarizes local run history.
type RunLog interface {
	Summary(ctx context.Context, since time.Time) (journal.Summary, error)
	Published(ctx context.Context, since time.Time) ([]journal.PublishedEntry, error)
}

// Collector gathers report inputs. Either source may be nil.
type Collector struct {
	Posts  PostSource
	Runs   RunLog
	Logger *log.Logger
}

// Collect builds the report for posts published since the given time.
//
// Views are newsletter opens, the only per-post reach figure the Admin API
// exposes. The top article has the most opens; the top read article has the
// best open rate. CTA click-through is link clicks over opens. Without the
// platform, publications fall back to the journal.
func (c *Collector) Collect(ctx context.Context, since time.Time) (types.WeeklyReport, error) {
	logger := logging.Component(c.Logger, "report")
	rep := types.WeeklyReport{Since: since}

	if c.Runs != nil {
		sum, err := c.Runs.Summary(ctx, since)
		if err != nil {
			return rep, fmt.Errorf("summarizing journal: %w", err)
		}
		rep.Runs = sum.Runs
		rep.FailedRuns = sum.Failed
	}

	if c.Posts == nil {
		if c.Runs != nil {
			published, err := c.Runs.Published(ctx, since)
			if err != nil {
				return rep, fmt.Errorf("listing journal posts: %w", err)
			}
			rep.Publications = len(published)
			if len(published) > 0 {
				rep.TopArticle = published[0].Title
			}
		}
		return rep, nil
	}

	posts, err := c.Posts.PublishedSince(ctx, since)
	if err != nil {
		return rep, fmt.Errorf("listing published posts: %w", err)
	}
	applyPosts(&rep, posts)
	logger.Info("weekly report collected", "publications", rep.Publications, "views", rep.TotalViews, "runs", rep.Runs)
	return rep, nil
}

func applyPosts(rep *types.WeeklyReport, posts []ghost.Post) {
	rep.Publications = len(posts)
	var (
		clicks    int
		bestOpens = -1
		bestRate  = -1.0
	)
	for _, p := range posts {
		opens, sent := 0, 0
		if p.Email != nil {
			opens, sent = p.Email.OpenedCount, p.Email.EmailCount
		}
		if p.Count != nil {
			clicks += p.Count.Clicks
		}
		rep.TotalViews += opens
		if opens > bestOpens {
			bestOpens = opens
			rep.TopArticle = p.Title
		}
		if sent > 0 {
			if rate := float64(opens) / float64(sent); rate > bestRate {
				bestRate = rate
				rep.TopReadArticle = p.Title
			}
		}
	}
	if rep.TotalViews > 0 {
		rep.CTACTR = float64(clicks) / float64(rep.TotalViews)
	}
}

// Render writes a plain-text rendition of rep.
func Render(w io.Writer, rep types.WeeklyReport) error {
	_, err := fmt.Fprintf(w, `Weekly report since %s

publications:     %d
total_views:      %d
top_article:      %s
top_read_article: %s
cta_ctr:          %.2f%%
runs:             %d (failed %d)
`,
		rep.Since.Format("2006-01-02"),
		rep.Publications, rep.TotalViews,
		orDash(rep.TopArticle), orDash(rep.TopReadArticle),
		rep.CTACTR*100, rep.Runs, rep.FailedRuns)
	return err
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
