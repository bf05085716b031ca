// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package journal keeps a local sqlite record of pipeline runs and of the
// posts they published. It is an audit trail and weekly report input only;
// duplicate checks always go to the content platform.
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/daily-digest/pkg/types"
)

// DefaultPath is used when no journal path is configured.
const DefaultPath = "data/journal.db"

// timeLayout is fixed-width so stored UTC timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store manages the journal database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the journal at path, creating parent directories
// and the schema as needed.
func Open(path string) (*Store, error) {
	if path == "" {
		path = DefaultPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating journal directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			duration_ms INTEGER NOT NULL,
			state TEXT NOT NULL,
			title TEXT,
			source TEXT,
			post_id TEXT,
			post_url TEXT,
			publish_attempts INTEGER NOT NULL DEFAULT 0,
			ctas INTEGER NOT NULL DEFAULT 0,
			errors TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_state ON runs(state)`,
		`CREATE TABLE IF NOT EXISTS published (
			post_id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			source TEXT,
			url TEXT,
			status TEXT,
			published_at TEXT NOT NULL,
			recorded_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_published_at ON published(published_at)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Record stores one run, replacing an earlier record with the same ID.
func (s *Store) Record(ctx context.Context, run types.RunRecord) error {
	errs, err := json.Marshal(run.Errors)
	if err != nil {
		return fmt.Errorf("encoding run errors: %w", err)
	}
	query, args, err := sq.Insert("runs").Options("OR REPLACE").
		Columns("id", "started_at", "duration_ms", "state", "title", "source",
			"post_id", "post_url", "publish_attempts", "ctas", "errors").
		Values(run.ID, run.StartedAt.UTC().Format(timeLayout), run.Duration.Milliseconds(),
			string(run.State), run.Title, string(run.Source),
			run.PostID, run.PostURL, run.PublishAttempts, run.CTAs, string(errs)).
		ToSql()
	if err != nil {
		return fmt.Errorf("building insert: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("recording run %s: %w", run.ID, err)
	}
	return nil
}

// MarkUsed records a published post for topic.
func (s *Store) MarkUsed(ctx context.Context, topic types.Topic, res types.PublishResult) error {
	at := res.PublishedAt
	if at.IsZero() {
		at = time.Now()
	}
	title := res.Title
	if title == "" {
		title = topic.Title
	}
	query, args, err := sq.Insert("published").Options("OR REPLACE").
		Columns("post_id", "title", "source", "url", "status", "published_at", "recorded_at").
		Values(res.ID, title, string(topic.Source), res.URL, res.Status,
			at.UTC().Format(timeLayout), time.Now().UTC().Format(timeLayout)).
		ToSql()
	if err != nil {
		return fmt.Errorf("building insert: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("recording post %s: %w", res.ID, err)
	}
	return nil
}
