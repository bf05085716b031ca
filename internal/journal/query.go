// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/pdiddy/daily-digest/pkg/types"
)

// QueryOptions filters journal queries. Zero values match everything.
type QueryOptions struct {
	Since time.Time
	State types.RunState
	Limit int
}

var runColumns = []string{
	"id", "started_at", "duration_ms", "state", "title", "source",
	"post_id", "post_url", "publish_attempts", "ctas", "errors",
}

// Runs returns matching runs, newest first.
func (s *Store) Runs(ctx context.Context, opts QueryOptions) ([]types.RunRecord, error) {
	qb := sq.Select(runColumns...).From("runs").OrderBy("started_at DESC")
	if !opts.Since.IsZero() {
		qb = qb.Where(sq.GtOrEq{"started_at": opts.Since.UTC().Format(timeLayout)})
	}
	if opts.State != "" {
		qb = qb.Where(sq.Eq{"state": string(opts.State)})
	}
	if opts.Limit > 0 {
		qb = qb.Limit(uint64(opts.Limit))
	}
	query, args, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var out []types.RunRecord
	for rows.Next() {
		var (
			r          types.RunRecord
			startedAt  string
			durationMS int64
			state      string
			title      sql.NullString
			source     sql.NullString
			postID     sql.NullString
			postURL    sql.NullString
			errsJSON   sql.NullString
		)
		if err := rows.Scan(&r.ID, &startedAt, &durationMS, &state, &title, &source,
			&postID, &postURL, &r.PublishAttempts, &r.CTAs, &errsJSON); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		r.StartedAt, _ = time.Parse(timeLayout, startedAt)
		r.Duration = time.Duration(durationMS) * time.Millisecond
		r.State = types.RunState(state)
		r.Title = title.String
		r.Source = types.SourceTag(source.String)
		r.PostID = postID.String
		r.PostURL = postURL.String
		if errsJSON.Valid {
			json.Unmarshal([]byte(errsJSON.String), &r.Errors)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// PublishedEntry is one post recorded by MarkUsed.
type PublishedEntry struct {
	PostID      string          `json:"post_id" yaml:"post_id"`
	Title       string          `json:"title" yaml:"title"`
	Source      types.SourceTag `json:"source" yaml:"source"`
	URL         string          `json:"url" yaml:"url"`
	Status      string          `json:"status" yaml:"status"`
	PublishedAt time.Time       `json:"published_at" yaml:"published_at"`
}

// Published returns posts recorded since the given time, newest first.
func (s *Store) Published(ctx context.Context, since time.Time) ([]PublishedEntry, error) {
	query, args, err := sq.Select("post_id", "title", "source", "url", "status", "published_at").
		From("published").
		Where(sq.GtOrEq{"published_at": since.UTC().Format(timeLayout)}).
		OrderBy("published_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building query: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying published posts: %w", err)
	}
	defer rows.Close()

	var out []PublishedEntry
	for rows.Next() {
		var (
			e         PublishedEntry
			source    sql.NullString
			url       sql.NullString
			status    sql.NullString
			published string
		)
		if err := rows.Scan(&e.PostID, &e.Title, &source, &url, &status, &published); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		e.Source = types.SourceTag(source.String)
		e.URL = url.String
		e.Status = status.String
		e.PublishedAt, _ = time.Parse(timeLayout, published)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Summary aggregates runs over a period.
type Summary struct {
	Runs            int                    `json:"runs" yaml:"runs"`
	Published       int                    `json:"published" yaml:"published"`
	Failed          int                    `json:"failed" yaml:"failed"`
	PublishAttempts int                    `json:"publish_attempts" yaml:"publish_attempts"`
	CTAs            int                    `json:"ctas" yaml:"ctas"`
	ByState         map[types.RunState]int `json:"by_state" yaml:"by_state"`
}

// Summary counts runs started since the given time by terminal state.
func (s *Store) Summary(ctx context.Context, since time.Time) (Summary, error) {
	query, args, err := sq.Select("state", "COUNT(*)", "COALESCE(SUM(publish_attempts), 0)", "COALESCE(SUM(ctas), 0)").
		From("runs").
		Where(sq.GtOrEq{"started_at": since.UTC().Format(timeLayout)}).
		GroupBy("state").
		ToSql()
	if err != nil {
		return Summary{}, fmt.Errorf("building query: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return Summary{}, fmt.Errorf("summarizing runs: %w", err)
	}
	defer rows.Close()

	sum := Summary{ByState: make(map[types.RunState]int)}
	for rows.Next() {
		var (
			state          string
			n, tries, ctas int
		)
		if err := rows.Scan(&state, &n, &tries, &ctas); err != nil {
			return Summary{}, fmt.Errorf("scanning row: %w", err)
		}
		st := types.RunState(state)
		sum.ByState[st] = n
		sum.Runs += n
		sum.PublishAttempts += tries
		if st == types.StateDone {
			sum.Published += n
			sum.CTAs += ctas
		}
		if !st.Succeeded() {
			sum.Failed += n
		}
	}
	return sum, rows.Err()
}
