// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by every collaborator that makes
// network requests.
type HTTPConfig struct {
	// Timeout is the per-request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "daily-digest/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// AIConfig holds settings for the language model service.
type AIConfig struct {
	// BaseURL is the OpenAI-compatible API root (default https://api.openai.com).
	BaseURL string `json:"base_url" yaml:"base_url" mapstructure:"base_url"`

	// APIKey is the bearer token. Empty disables every model-backed feature.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// Model is the chat model identifier (default "gpt-5").
	Model string `json:"model" yaml:"model" mapstructure:"model"`

	// ImageModel is the image generation model (default "dall-e-3").
	ImageModel string `json:"image_model" yaml:"image_model" mapstructure:"image_model"`

	// MaxRetries is the number of 429 retries for one call (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`
}

// Enabled reports whether a model key is configured.
func (c AIConfig) Enabled() bool { return c.APIKey != "" }

// GhostConfig holds the content platform credentials.
type GhostConfig struct {
	// URL is the site root, e.g. https://blog.example.com.
	URL string `json:"url" yaml:"url" mapstructure:"url"`

	// AdminKey is the Admin API key in "<id>:<hex secret>" form.
	AdminKey string `json:"admin_key,omitempty" yaml:"admin_key,omitempty" mapstructure:"admin_key"`
}

// Configured reports whether both the URL and the admin key are set.
func (c GhostConfig) Configured() bool { return c.URL != "" && c.AdminKey != "" }

// FeedsConfig lists the candidate sources.
type FeedsConfig struct {
	// HackerNews enables the HN top stories source.
	HackerNews bool `json:"hacker_news" yaml:"hacker_news" mapstructure:"hacker_news"`

	// HNSearch enables the HN Algolia keyword search source.
	HNSearch bool `json:"hn_search" yaml:"hn_search" mapstructure:"hn_search"`

	// HNLimit caps the number of top stories inspected (default 50).
	HNLimit int `json:"hn_limit" yaml:"hn_limit" mapstructure:"hn_limit"`

	// RedditSubs are subreddit names read through their RSS feeds.
	RedditSubs []string `json:"reddit_subs" yaml:"reddit_subs" mapstructure:"reddit_subs"`

	// TelegramFeeds are RSS proxy URLs for Telegram channels.
	TelegramFeeds []string `json:"telegram_feeds" yaml:"telegram_feeds" mapstructure:"telegram_feeds"`

	// RSSFeeds are generic RSS/Atom feeds (e.g. habr).
	RSSFeeds []string `json:"rss_feeds" yaml:"rss_feeds" mapstructure:"rss_feeds"`

	// TrendsGeo is the Google Trends region; empty disables the source.
	TrendsGeo string `json:"trends_geo" yaml:"trends_geo" mapstructure:"trends_geo"`

	// Concurrency bounds parallel source fetches (default 4).
	Concurrency int `json:"concurrency" yaml:"concurrency" mapstructure:"concurrency"`
}

// TopicConfig holds the topic selection windows and ranking knobs.
type TopicConfig struct {
	// Freshness is the candidate publication window (default 48h).
	Freshness time.Duration `json:"freshness" yaml:"freshness" mapstructure:"freshness"`

	// History is the duplicate-checking lookback (default 20 days).
	History time.Duration `json:"history" yaml:"history" mapstructure:"history"`

	// HowToBonus is added to the score of tutorial-style titles (default 0.8).
	HowToBonus float64 `json:"howto_bonus" yaml:"howto_bonus" mapstructure:"howto_bonus"`

	// AnchorBan enables the banned-anchor filter.
	AnchorBan bool `json:"anchor_ban" yaml:"anchor_ban" mapstructure:"anchor_ban"`

	// AnchorBanThreshold is the history count at which an anchor is banned (default 1).
	AnchorBanThreshold int `json:"anchor_ban_threshold" yaml:"anchor_ban_threshold" mapstructure:"anchor_ban_threshold"`

	// AnchorMinLen is the minimum anchor length in runes (default 7).
	AnchorMinLen int `json:"anchor_min_len" yaml:"anchor_min_len" mapstructure:"anchor_min_len"`
}

// SandboxProvider selects the code execution backend.
type SandboxProvider string

const (
	SandboxPiston    SandboxProvider = "piston"
	SandboxContainer SandboxProvider = "container"
	SandboxNone      SandboxProvider = "none"
)

// VerifyConfig holds the verification engine settings.
type VerifyConfig struct {
	// Sandbox selects the execution backend (default piston).
	Sandbox SandboxProvider `json:"sandbox" yaml:"sandbox" mapstructure:"sandbox"`

	// PistonURL is the Piston execute endpoint.
	PistonURL string `json:"piston_url" yaml:"piston_url" mapstructure:"piston_url"`

	// SandboxImage is the container image used by the container sandbox.
	SandboxImage string `json:"sandbox_image" yaml:"sandbox_image" mapstructure:"sandbox_image"`

	// SandboxTimeout bounds one execution (default 20s).
	SandboxTimeout time.Duration `json:"sandbox_timeout" yaml:"sandbox_timeout" mapstructure:"sandbox_timeout"`

	// MaxRuns caps sandboxed snippets per article (default 2).
	MaxRuns int `json:"max_runs" yaml:"max_runs" mapstructure:"max_runs"`

	// MaxCodeLen is the snippet length ceiling in characters (default 1000).
	MaxCodeLen int `json:"max_code_len" yaml:"max_code_len" mapstructure:"max_code_len"`

	// MaxQueries caps corroboration queries (default 8).
	MaxQueries int `json:"max_queries" yaml:"max_queries" mapstructure:"max_queries"`

	// GoogleAPIKey and GoogleCSEID enable Google Custom Search.
	GoogleAPIKey string `json:"google_api_key,omitempty" yaml:"google_api_key,omitempty" mapstructure:"google_api_key"`
	GoogleCSEID  string `json:"google_cse_id,omitempty" yaml:"google_cse_id,omitempty" mapstructure:"google_cse_id"`

	// BraveAPIKey enables Brave web search as a second keyed backend.
	BraveAPIKey string `json:"brave_api_key,omitempty" yaml:"brave_api_key,omitempty" mapstructure:"brave_api_key"`

	// GitHubToken raises the GitHub search rate limit; optional.
	GitHubToken string `json:"github_token,omitempty" yaml:"github_token,omitempty" mapstructure:"github_token"`
}

// PublishConfig holds publish retry and scheduling settings.
type PublishConfig struct {
	// Retries is the number of publish attempts (default 3).
	Retries int `json:"retries" yaml:"retries" mapstructure:"retries"`

	// RetryDelay is the fixed pause between attempts (default 2s).
	RetryDelay time.Duration `json:"retry_delay" yaml:"retry_delay" mapstructure:"retry_delay"`

	// Schedule is a cron expression for the publication slot (default "0 11 * * *").
	// Empty publishes immediately.
	Schedule string `json:"schedule" yaml:"schedule" mapstructure:"schedule"`

	// Timezone is the IANA zone the schedule is evaluated in (default Europe/Moscow).
	Timezone string `json:"timezone" yaml:"timezone" mapstructure:"timezone"`

	// DefaultTags are appended to every post (default ["AI Generated"]).
	DefaultTags []string `json:"default_tags" yaml:"default_tags" mapstructure:"default_tags"`
}

// CTAConfig locates the promotional blocks.
type CTAConfig struct {
	// JSON is an inline JSON array of CTAs.
	JSON string `json:"json,omitempty" yaml:"json,omitempty" mapstructure:"json"`

	// File is a YAML or JSON file of CTAs.
	File string `json:"file,omitempty" yaml:"file,omitempty" mapstructure:"file"`
}

// ReportConfig holds SMTP settings for the weekly report.
type ReportConfig struct {
	SMTPHost     string `json:"smtp_host" yaml:"smtp_host" mapstructure:"smtp_host"`
	SMTPPort     int    `json:"smtp_port" yaml:"smtp_port" mapstructure:"smtp_port"`
	SMTPUser     string `json:"smtp_user" yaml:"smtp_user" mapstructure:"smtp_user"`
	SMTPPassword string `json:"smtp_password,omitempty" yaml:"smtp_password,omitempty" mapstructure:"smtp_password"`
	From         string `json:"from" yaml:"from" mapstructure:"from"`
	To           string `json:"to" yaml:"to" mapstructure:"to"`
}

// Configured reports whether the mailer has a host and a recipient.
func (c ReportConfig) Configured() bool { return c.SMTPHost != "" && c.To != "" }

// ScheduleConfig holds the daemon cron expressions.
type ScheduleConfig struct {
	// Daily triggers a pipeline run (default "0 7 * * *").
	Daily string `json:"daily" yaml:"daily" mapstructure:"daily"`

	// Weekly triggers the report (default "0 19 * * 0").
	Weekly string `json:"weekly" yaml:"weekly" mapstructure:"weekly"`
}

// Config is the immutable process configuration built once at startup and
// passed to every collaborator.
type Config struct {
	LogLevel    string         `json:"log_level" yaml:"log_level" mapstructure:"log_level"`
	HTTP        HTTPConfig     `json:"http" yaml:"http" mapstructure:"http"`
	AI          AIConfig       `json:"ai" yaml:"ai" mapstructure:"ai"`
	Ghost       GhostConfig    `json:"ghost" yaml:"ghost" mapstructure:"ghost"`
	Feeds       FeedsConfig    `json:"feeds" yaml:"feeds" mapstructure:"feeds"`
	Topics      TopicConfig    `json:"topics" yaml:"topics" mapstructure:"topics"`
	Verify      VerifyConfig   `json:"verify" yaml:"verify" mapstructure:"verify"`
	Publish     PublishConfig  `json:"publish" yaml:"publish" mapstructure:"publish"`
	CTA         CTAConfig      `json:"cta" yaml:"cta" mapstructure:"cta"`
	Report      ReportConfig   `json:"report" yaml:"report" mapstructure:"report"`
	Schedule    ScheduleConfig `json:"schedule" yaml:"schedule" mapstructure:"schedule"`
	JournalPath string         `json:"journal_path" yaml:"journal_path" mapstructure:"journal_path"`
	MetricsAddr string         `json:"metrics_addr" yaml:"metrics_addr" mapstructure:"metrics_addr"`
}
