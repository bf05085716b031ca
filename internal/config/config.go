// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package config builds the immutable process configuration from a viper
// instance: defaults, the optional YAML file, DAILY_DIGEST_* variables and
// the legacy unprefixed variable names.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/pdiddy/daily-digest/internal/schedule"
	"github.com/pdiddy/daily-digest/pkg/types"
)

// EnvPrefix prefixes every automatically bound environment variable.
const EnvPrefix = "DAILY_DIGEST"

// defaults seeds every key so AutomaticEnv can see it.
var defaults = map[string]any{
	"log_level":    "info",
	"journal_path": "data/journal.db",
	"metrics_addr": ":9108",

	"http.timeout":    30 * time.Second,
	"http.user_agent": "daily-digest/0.1",

	"ai.base_url":    "https://api.openai.com",
	"ai.api_key":     "",
	"ai.model":       "gpt-5",
	"ai.image_model": "dall-e-3",
	"ai.max_retries": 3,

	"ghost.url":       "",
	"ghost.admin_key": "",

	"feeds.hacker_news":    true,
	"feeds.hn_search":      true,
	"feeds.hn_limit":       50,
	"feeds.reddit_subs":    []string{"MachineLearning", "datascience", "webdev"},
	"feeds.telegram_feeds": []string{},
	"feeds.rss_feeds":      []string{"https://habr.com/ru/rss/all/all/?fl=ru"},
	"feeds.trends_geo":     "RU",
	"feeds.concurrency":    4,

	"topics.freshness":            48 * time.Hour,
	"topics.history":              20 * 24 * time.Hour,
	"topics.howto_bonus":          0.8,
	"topics.anchor_ban":           true,
	"topics.anchor_ban_threshold": 1,
	"topics.anchor_min_len":       7,

	"verify.sandbox":         string(types.SandboxPiston),
	"verify.piston_url":      "https://emkc.org/api/v2/piston/execute",
	"verify.sandbox_image":   "python:3.12-alpine",
	"verify.sandbox_timeout": 20 * time.Second,
	"verify.max_runs":        2,
	"verify.max_code_len":    1000,
	"verify.max_queries":     8,
	"verify.google_api_key":  "",
	"verify.google_cse_id":   "",
	"verify.brave_api_key":   "",
	"verify.github_token":    "",

	"publish.retries":      3,
	"publish.retry_delay":  2 * time.Second,
	"publish.schedule":     "0 11 * * *",
	"publish.timezone":     "Europe/Moscow",
	"publish.default_tags": []string{"AI Generated"},

	"cta.json": "",
	"cta.file": "",

	"report.smtp_host":     "",
	"report.smtp_port":     587,
	"report.smtp_user":     "",
	"report.smtp_password": "",
	"report.from":          "",
	"report.to":            "",

	"schedule.daily":  "0 7 * * *",
	"schedule.weekly": "0 19 * * 0",
}

// legacyEnv binds the variable names used by existing deployments.
var legacyEnv = map[string]string{
	"ai.api_key":            "OPENAI_API_KEY",
	"ai.model":              "OPENAI_MODEL",
	"ai.image_model":        "OPENAI_IMAGE_MODEL",
	"ghost.url":             "GHOST_ADMIN_API_URL",
	"ghost.admin_key":       "GHOST_ADMIN_API_KEY",
	"verify.google_api_key": "GOOGLE_API_KEY",
	"verify.google_cse_id":  "GOOGLE_CSE_ID",
	"verify.brave_api_key":  "BRAVE_API_KEY",
	"verify.github_token":   "GITHUB_TOKEN",
	"verify.sandbox":        "SANDBOX_PROVIDER",
	"feeds.telegram_feeds":  "TELEGRAM_RSS_FEEDS",
	"feeds.reddit_subs":     "REDDIT_SUBS",
	"feeds.rss_feeds":       "RSS_FEEDS",
	"feeds.trends_geo":      "GOOGLE_TRENDS_GEO",
	"publish.timezone":      "APP_TIMEZONE",
	"cta.json":              "CTAS_JSON",
	"cta.file":              "CTAS_FILE",
	"report.smtp_host":      "SMTP_HOST",
	"report.smtp_port":      "SMTP_PORT",
	"report.smtp_user":      "SMTP_USER",
	"report.smtp_password":  "SMTP_PASSWORD",
	"report.from":           "FROM_EMAIL",
	"report.to":             "TO_EMAIL",
}

// Prepare installs defaults and environment bindings on v. Call it before
// reading the config file.
func Prepare(v *viper.Viper) {
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, legacy := range legacyEnv {
		prefixed := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		// BindEnv only errors without a key, which cannot happen here.
		_ = v.BindEnv(key, prefixed, legacy)
	}
}

// Load unmarshals v into a validated Config.
func Load(v *viper.Viper) (types.Config, error) {
	var cfg types.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return types.Config{}, fmt.Errorf("decoding configuration: %w", err)
	}
	cfg = normalize(cfg)
	if err := Validate(cfg); err != nil {
		return types.Config{}, err
	}
	return cfg, nil
}

// normalize trims list entries and strips trailing slashes from base URLs.
func normalize(cfg types.Config) types.Config {
	cfg.Ghost.URL = strings.TrimRight(strings.TrimSpace(cfg.Ghost.URL), "/")
	cfg.AI.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.AI.BaseURL), "/")
	cfg.Feeds.RedditSubs = cleanList(cfg.Feeds.RedditSubs)
	cfg.Feeds.TelegramFeeds = cleanList(cfg.Feeds.TelegramFeeds)
	cfg.Feeds.RSSFeeds = cleanList(cfg.Feeds.RSSFeeds)
	cfg.Publish.DefaultTags = cleanList(cfg.Publish.DefaultTags)
	cfg.Verify.Sandbox = types.SandboxProvider(strings.ToLower(strings.TrimSpace(string(cfg.Verify.Sandbox))))
	return cfg
}

// cleanList splits comma-joined entries (as left by env variables), trims
// them and drops empties.
func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

// Validate rejects configurations the pipeline cannot run with.
func Validate(cfg types.Config) error {
	var errs []error
	if cfg.Publish.Retries < 1 {
		errs = append(errs, fmt.Errorf("publish.retries must be at least 1, got %d", cfg.Publish.Retries))
	}
	if cfg.Publish.RetryDelay < 0 {
		errs = append(errs, fmt.Errorf("publish.retry_delay must not be negative"))
	}
	if _, err := time.LoadLocation(cfg.Publish.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("publish.timezone: %w", err))
	}
	if cfg.Publish.Schedule != "" {
		if err := schedule.Validate(cfg.Publish.Schedule); err != nil {
			errs = append(errs, fmt.Errorf("publish.schedule: %w", err))
		}
	}
	for name, spec := range map[string]string{"schedule.daily": cfg.Schedule.Daily, "schedule.weekly": cfg.Schedule.Weekly} {
		if spec == "" {
			continue
		}
		if err := schedule.Validate(spec); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	if cfg.Topics.AnchorBanThreshold < 1 {
		errs = append(errs, fmt.Errorf("topics.anchor_ban_threshold must be at least 1, got %d", cfg.Topics.AnchorBanThreshold))
	}
	if cfg.Topics.Freshness <= 0 || cfg.Topics.History <= 0 {
		errs = append(errs, fmt.Errorf("topics.freshness and topics.history must be positive"))
	}
	if cfg.Verify.MaxRuns < 0 || cfg.Verify.MaxQueries < 0 || cfg.Verify.MaxCodeLen < 0 {
		errs = append(errs, fmt.Errorf("verify limits must not be negative"))
	}
	switch cfg.Verify.Sandbox {
	case types.SandboxPiston, types.SandboxContainer, types.SandboxNone:
	default:
		errs = append(errs, fmt.Errorf("verify.sandbox: unknown provider %q", cfg.Verify.Sandbox))
	}
	if cfg.Ghost.AdminKey != "" && !strings.Contains(cfg.Ghost.AdminKey, ":") {
		errs = append(errs, fmt.Errorf("ghost.admin_key must have the form <id>:<secret>"))
	}
	return errors.Join(errs...)
}

// Location returns the publication timezone, falling back to UTC.
func Location(cfg types.Config) *time.Location {
	loc, err := time.LoadLocation(cfg.Publish.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
