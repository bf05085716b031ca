// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ghost talks to the Ghost Admin API (v5): token signing, post
// listing for the history window, image upload, and post creation.
package ghost

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/golang-jwt/jwt/v5"

	"github.com/pdiddy/daily-digest/internal/httputil"
	"github.com/pdiddy/daily-digest/internal/logging"
	"github.com/pdiddy/daily-digest/pkg/types"
)

// ErrNotConfigured is returned when the site URL or admin key is missing.
var ErrNotConfigured = errors.New("ghost admin API is not configured")

const (
	adminPath = "/ghost/api/admin"
	audience  = "/v5/admin/"
	tokenTTL  = 5 * time.Minute
)

// Client is an authenticated Admin API client.
type Client struct {
	base   string
	keyID  string
	secret []byte
	http   *http.Client
	ua     string
	logger *log.Logger

	// Now is the fallback clock when the server time is unavailable.
	Now func() time.Time
}

// NewClient validates the admin key and returns a client for the site.
func NewClient(cfg types.GhostConfig, httpCfg types.HTTPConfig, client *http.Client, logger *log.Logger) (*Client, error) {
	if !cfg.Configured() {
		return nil, ErrNotConfigured
	}
	id, hexSecret, ok := strings.Cut(cfg.AdminKey, ":")
	if !ok || id == "" {
		return nil, fmt.Errorf("admin key must have the form <id>:<secret>")
	}
	secret, err := hex.DecodeString(hexSecret)
	if err != nil {
		return nil, fmt.Errorf("decoding admin key secret: %w", err)
	}
	if client == nil {
		client = &http.Client{Timeout: httpCfg.Timeout}
	}
	ua := httpCfg.UserAgent
	if ua == "" {
		ua = httputil.DefaultUserAgent
	}
	return &Client{
		base:   strings.TrimRight(cfg.URL, "/") + adminPath,
		keyID:  id,
		secret: secret,
		http:   client,
		ua:     ua,
		logger: logging.Component(logger, "ghost"),
		Now:    time.Now,
	}, nil
}

// SiteTime returns the server clock from the Date header of /site/, or the
// local clock when the request fails.
func (c *Client) SiteTime(ctx context.Context) time.Time {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/site/", nil)
	if err == nil {
		req.Header.Set("User-Agent", c.ua)
		var resp *http.Response
		if resp, err = c.http.Do(req); err == nil {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			if t, perr := http.ParseTime(resp.Header.Get("Date")); perr == nil {
				return t
			}
		}
	}
	return c.Now()
}

// Token signs a short-lived admin JWT. The issue time follows the server
// clock so skew between hosts does not invalidate the token.
func (c *Client) Token(ctx context.Context) (string, error) {
	iat := c.SiteTime(ctx).Unix()
	claims := jwt.MapClaims{
		"iat": iat,
		"exp": iat + int64(tokenTTL/time.Second),
		"aud": audience,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token.Header["kid"] = c.keyID
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("signing admin token: %w", err)
	}
	return signed, nil
}

// do sends one Admin API request. Only GET requests are retried on
// throttling; creates are sent once and the caller decides whether to retry.
func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	tok, err := c.Token(ctx)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Ghost "+tok)
	req.Header.Set("User-Agent", c.ua)
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	var resp *http.Response
	if method == http.MethodGet {
		resp, err = httputil.DoWithRetry(ctx, c.http, req, 0)
	} else {
		resp, err = c.http.Do(req)
	}
	if err != nil {
		return fmt.Errorf("ghost %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if err := httputil.CheckStatus(resp); err != nil {
		c.logger.Warn("admin API error", "method", method, "path", path, "err", err)
		return fmt.Errorf("ghost %s %s: %w", method, path, err)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding ghost response: %w", err)
	}
	return nil
}

// Post is the subset of post fields the pipeline reads.
type Post struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Slug         string    `json:"slug"`
	Status       string    `json:"status"`
	URL          string    `json:"url"`
	FeatureImage string    `json:"feature_image"`
	PublishedAt  time.Time `json:"published_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	// Count and Email are present only when requested through Include.
	Count *PostCount `json:"count,omitempty"`
	Email *PostEmail `json:"email,omitempty"`
}

// PostCount holds engagement counters.
type PostCount struct {
	Clicks  int `json:"clicks"`
	Signups int `json:"signups"`
}

// PostEmail holds newsletter delivery stats for a post.
type PostEmail struct {
	EmailCount  int `json:"email_count"`
	OpenedCount int `json:"opened_count"`
}

// PostQuery holds NQL list parameters.
type PostQuery struct {
	Filter  string
	Fields  string
	Include string
	Order   string
	Limit   int
}

// ListPosts returns posts matching q.
func (c *Client) ListPosts(ctx context.Context, q PostQuery) ([]Post, error) {
	params := url.Values{}
	if q.Fields != "" {
		params.Set("fields", q.Fields)
	}
	if q.Filter != "" {
		params.Set("filter", q.Filter)
	}
	if q.Include != "" {
		params.Set("include", q.Include)
	}
	if q.Order != "" {
		params.Set("order", q.Order)
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}

	var out struct {
		Posts []Post `json:"posts"`
	}
	if err := c.do(ctx, http.MethodGet, "/posts/?"+params.Encode(), nil, "", &out); err != nil {
		return nil, err
	}
	return out.Posts, nil
}

// RecentPosts lists up to limit posts ordered by last update, optionally
// narrowed by an NQL filter, as history entries.
func (c *Client) RecentPosts(ctx context.Context, filter string, limit int) ([]types.RecentTitle, error) {
	posts, err := c.ListPosts(ctx, PostQuery{
		Filter: filter,
		Fields: "title,updated_at,status",
		Order:  "updated_at desc",
		Limit:  limit,
	})
	if err != nil {
		return nil, err
	}
	out := make([]types.RecentTitle, 0, len(posts))
	for _, p := range posts {
		out = append(out, types.RecentTitle{Title: p.Title, UpdatedAt: p.UpdatedAt, Status: p.Status})
	}
	return out, nil
}

// UploadImage stores a PNG and returns its public URL.
func (c *Client) UploadImage(ctx context.Context, png []byte, filename string) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	h.Set("Content-Type", "image/png")
	part, err := mw.CreatePart(h)
	if err != nil {
		return "", fmt.Errorf("creating multipart part: %w", err)
	}
	if _, err := part.Write(png); err != nil {
		return "", fmt.Errorf("writing image: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("closing multipart body: %w", err)
	}

	var out struct {
		Images []struct {
			URL string `json:"url"`
		} `json:"images"`
	}
	if err := c.do(ctx, http.MethodPost, "/images/upload/", &buf, mw.FormDataContentType(), &out); err != nil {
		return "", err
	}
	if len(out.Images) == 0 || out.Images[0].URL == "" {
		return "", fmt.Errorf("ghost image upload returned no URL")
	}
	return out.Images[0].URL, nil
}

// NewPost is the creation payload for one HTML post.
type NewPost struct {
	Title        string    `json:"title"`
	HTML         string    `json:"html"`
	Status       string    `json:"status"`
	PublishedAt  string    `json:"published_at,omitempty"`
	FeatureImage string    `json:"feature_image,omitempty"`
	Tags         []TagName `json:"tags"`
}

// TagName references a tag by name; Ghost creates missing tags.
type TagName struct {
	Name string `json:"name"`
}

// CreatePost creates a post from HTML source.
func (c *Client) CreatePost(ctx context.Context, p NewPost) (Post, error) {
	payload, err := json.Marshal(map[string][]NewPost{"posts": {p}})
	if err != nil {
		return Post{}, fmt.Errorf("encoding post: %w", err)
	}
	var out struct {
		Posts []Post `json:"posts"`
	}
	if err := c.do(ctx, http.MethodPost, "/posts/?source=html", bytes.NewReader(payload), "application/json", &out); err != nil {
		return Post{}, err
	}
	if len(out.Posts) == 0 {
		return Post{}, fmt.Errorf("ghost returned no post")
	}
	return out.Posts[0], nil
}

// nqlTime formats t for NQL date comparisons.
func nqlTime(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04:05")
}

// UpdatedSinceFilter returns the NQL filter for posts updated after since.
func UpdatedSinceFilter(since time.Time) string {
	return fmt.Sprintf("updated_at:>'%s'", nqlTime(since))
}

// PublishedSince lists published posts with a publication time after
// since, with click counts and newsletter stats.
func (c *Client) PublishedSince(ctx context.Context, since time.Time) ([]Post, error) {
	return c.ListPosts(ctx, PostQuery{
		Filter:  fmt.Sprintf("status:published+published_at:>'%s'", nqlTime(since)),
		Include: "count.clicks,count.signups,email",
		Order:   "published_at desc",
		Limit:   100,
	})
}
