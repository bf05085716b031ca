// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"strings"
	"time"
)

// Article is the publishable unit produced by the pipeline.
type Article struct {
	Title string   `json:"title" yaml:"title"`
	HTML  string   `json:"html" yaml:"html"`
	Tags  []string `json:"tags" yaml:"tags"`

	// Cover is a PNG payload; nil means no feature image.
	Cover []byte `json:"-" yaml:"-"`
}

// PublishResult is what the content platform reports for a created post.
type PublishResult struct {
	ID          string    `json:"id" yaml:"id"`
	Status      string    `json:"status" yaml:"status"`
	URL         string    `json:"url" yaml:"url"`
	Title       string    `json:"title" yaml:"title"`
	PublishedAt time.Time `json:"published_at" yaml:"published_at"`
	CoverURL    string    `json:"feature_image,omitempty" yaml:"feature_image,omitempty"`
}

// ExecResult is the outcome of one sandboxed code execution.
type ExecResult struct {
	ExitCode int    `json:"exit_code" yaml:"exit_code"`
	Stdout   string `json:"stdout" yaml:"stdout"`
	Stderr   string `json:"stderr" yaml:"stderr"`
}

// Output returns stdout followed by stderr, trimmed.
func (r ExecResult) Output() string {
	return strings.TrimSpace(r.Stdout + r.Stderr)
}

// VerificationOutcome is the verdict of the verification engine.
type VerificationOutcome struct {
	Passed bool     `json:"passed" yaml:"passed"`
	Errors []string `json:"errors" yaml:"errors"`

	// Skipped counts snippets not executed (too long or deny-listed).
	Skipped int `json:"skipped" yaml:"skipped"`

	// Executed is the number of sandbox runs performed.
	Executed int `json:"executed" yaml:"executed"`

	// Corroboration names the query and backend that corroborated the topic.
	Corroboration string `json:"corroboration,omitempty" yaml:"corroboration,omitempty"`
}
