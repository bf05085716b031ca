// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ghost

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/pdiddy/daily-digest/internal/schedule"
	"github.com/pdiddy/daily-digest/pkg/types"
)

// maxTitleLen is Ghost's title column limit in characters.
const maxTitleLen = 255

// Publisher creates posts for finished articles.
type Publisher struct {
	Client *Client

	// Schedule is a cron expression for the publication slot; empty
	// publishes immediately.
	Schedule string
	Location *time.Location

	// DefaultTags are appended to every post's tags.
	DefaultTags []string

	Now func() time.Time
}

// NewPublisher wires a publisher from configuration.
func NewPublisher(c *Client, cfg types.PublishConfig, loc *time.Location) *Publisher {
	return &Publisher{
		Client:      c,
		Schedule:    cfg.Schedule,
		Location:    loc,
		DefaultTags: cfg.DefaultTags,
		Now:         time.Now,
	}
}

// Publish uploads the cover (best effort) and creates or schedules the post.
func (p *Publisher) Publish(ctx context.Context, a types.Article) (types.PublishResult, error) {
	title := ClampTitle(a.Title)
	if title == "" {
		return types.PublishResult{}, fmt.Errorf("article has no title")
	}

	var image string
	if len(a.Cover) > 0 {
		url, err := p.Client.UploadImage(ctx, a.Cover, "cover.png")
		if err != nil {
			p.Client.logger.Warn("cover upload failed, publishing without image", "err", err)
		} else {
			image = url
		}
	}

	post := NewPost{
		Title:        title,
		HTML:         a.HTML,
		Status:       "published",
		FeatureImage: image,
		Tags:         tagNames(MergeTags(a.Tags, p.DefaultTags)),
	}
	if p.Schedule != "" {
		now := time.Now
		if p.Now != nil {
			now = p.Now
		}
		slot, err := schedule.Next(p.Schedule, p.Location, now())
		if err != nil {
			return types.PublishResult{}, err
		}
		post.Status = "scheduled"
		post.PublishedAt = slot.UTC().Format(time.RFC3339)
	}

	created, err := p.Client.CreatePost(ctx, post)
	if err != nil {
		return types.PublishResult{}, err
	}
	p.Client.logger.Info("post created", "id", created.ID, "status", created.Status, "published_at", post.PublishedAt)

	return types.PublishResult{
		ID:          created.ID,
		Status:      created.Status,
		URL:         created.URL,
		Title:       created.Title,
		PublishedAt: created.PublishedAt,
		CoverURL:    created.FeatureImage,
	}, nil
}

// ClampTitle trims title and shortens it to Ghost's limit, ending in "...".
func ClampTitle(title string) string {
	title = strings.TrimSpace(title)
	if utf8.RuneCountInString(title) <= maxTitleLen {
		return title
	}
	runes := []rune(title)
	return strings.TrimRight(string(runes[:maxTitleLen-3]), " ") + "..."
}

// MergeTags returns tags followed by defaults, without blanks or
// case-insensitive repeats.
func MergeTags(tags, defaults []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, t := range append(append([]string{}, tags...), defaults...) {
		t = strings.TrimSpace(t)
		key := strings.ToLower(t)
		if t == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, t)
	}
	return out
}

func tagNames(tags []string) []TagName {
	out := make([]TagName, 0, len(tags))
	for _, t := range tags {
		out = append(out, TagName{Name: t})
	}
	return out
}
