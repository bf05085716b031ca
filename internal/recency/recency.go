// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package recency retrieves the titles the content platform published or
// updated within a trailing window. The platform is the only source of
// truth for history; nothing is cached between calls.
package recency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/pdiddy/daily-digest/internal/logging"
	"github.com/pdiddy/daily-digest/pkg/types"
)

// ErrHistoryUnavailable is returned when every attempt yielded no titles.
var ErrHistoryUnavailable = errors.New("recent titles unavailable")

const (
	// DefaultAttempts is the number of fetch rounds.
	DefaultAttempts = 3

	// DefaultDelay separates fetch rounds.
	DefaultDelay = time.Second

	// pageLimit bounds one platform listing.
	pageLimit = 100
)

// Platform lists recent posts, narrowed by an optional server-side filter.
type Platform interface {
	RecentPosts(ctx context.Context, filter string, limit int) ([]types.RecentTitle, error)
}

// FilterFunc renders the server-side filter for posts updated after since.
type FilterFunc func(since time.Time) string

// Oracle fetches the history window with retries and a client-side fallback.
type Oracle struct {
	platform Platform
	filter   FilterFunc
	logger   *log.Logger

	Attempts int
	Delay    time.Duration
	Now      func() time.Time
	Sleep    func(ctx context.Context, d time.Duration) error
}

// New returns an oracle over p. A nil p yields an unconfigured oracle that
// always reports an empty history without error.
func New(p Platform, filter FilterFunc, logger *log.Logger) *Oracle {
	return &Oracle{
		platform: p,
		filter:   filter,
		logger:   logging.Component(logger, "recency"),
		Attempts: DefaultAttempts,
		Delay:    DefaultDelay,
		Now:      time.Now,
		Sleep:    SleepContext,
	}
}

// Configured reports whether a platform is attached.
func (o *Oracle) Configured() bool {
	return o != nil && o.platform != nil
}

// RecentTitles returns titles updated within window before now. Each round
// tries the filtered listing, then an unfiltered listing filtered locally.
// When all rounds come back empty the result is ErrHistoryUnavailable,
// wrapping the last transport error if there was one.
func (o *Oracle) RecentTitles(ctx context.Context, window time.Duration) ([]types.RecentTitle, error) {
	if !o.Configured() {
		return nil, nil
	}
	since := o.Now().Add(-window)
	attempts := max(o.Attempts, 1)

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		titles, err := o.fetch(ctx, since)
		if err != nil {
			lastErr = err
		}
		if len(titles) > 0 {
			o.logger.Debug("history fetched", "titles", len(titles), "attempt", attempt)
			return titles, nil
		}
		o.logger.Warn("history fetch returned nothing", "attempt", attempt, "max", attempts, "err", err)

		if attempt < attempts {
			if err := o.Sleep(ctx, o.Delay); err != nil {
				return nil, err
			}
		}
	}

	if lastErr != nil {
		return nil, fmt.Errorf("%w after %d attempts: %w", ErrHistoryUnavailable, attempts, lastErr)
	}
	return nil, fmt.Errorf("%w after %d attempts", ErrHistoryUnavailable, attempts)
}

func (o *Oracle) fetch(ctx context.Context, since time.Time) ([]types.RecentTitle, error) {
	var filtered []types.RecentTitle
	var ferr error
	if o.filter != nil {
		filtered, ferr = o.platform.RecentPosts(ctx, o.filter(since), pageLimit)
		if ferr == nil && len(filtered) > 0 {
			return filtered, nil
		}
		if ferr != nil {
			o.logger.Debug("filtered history fetch failed", "err", ferr)
		}
	}

	all, err := o.platform.RecentPosts(ctx, "", pageLimit)
	if err != nil {
		if ferr != nil {
			return nil, errors.Join(ferr, err)
		}
		return nil, err
	}
	return Since(all, since), nil
}

// Since keeps entries updated at or after since, preserving order.
func Since(titles []types.RecentTitle, since time.Time) []types.RecentTitle {
	var out []types.RecentTitle
	for _, t := range titles {
		if !t.UpdatedAt.Before(since) {
			out = append(out, t)
		}
	}
	return out
}

// SleepContext waits for d or until ctx ends.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
