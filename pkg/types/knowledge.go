// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// RunState is a state of the publication state machine.
type RunState string

const (
	StateSelectTopic         RunState = "SelectTopic"
	StateGenerateContent     RunState = "GenerateContent"
	StateVerify              RunState = "Verify"
	StateRegenerateContent   RunState = "RegenerateContent"
	StateReverify            RunState = "ReverifyOnce"
	StatePrepareAssets       RunState = "PrepareAssets"
	StatePublish             RunState = "Publish"
	StateRecordHistory       RunState = "RecordHistory"
	StateDone                RunState = "Done"
	StateAbortedNoTopic      RunState = "AbortedNoTopic"
	StateAbortedVerification RunState = "AbortedVerificationFailed"
	StateSkippedNoTarget     RunState = "SkippedNoPublishTarget"
	StateAbortedPublish      RunState = "AbortedPublishFailed"
)

// Terminal reports whether no further transition follows s.
func (s RunState) Terminal() bool {
	switch s {
	case StateDone, StateAbortedNoTopic, StateAbortedVerification, StateSkippedNoTarget, StateAbortedPublish:
		return true
	}
	return false
}

// Succeeded reports whether s is a non-error completion.
func (s RunState) Succeeded() bool {
	return s == StateDone || s == StateSkippedNoTarget
}

// RunRecord is the journal entry written at the end of one pipeline run.
type RunRecord struct {
	ID              string        `json:"id" yaml:"id"`
	StartedAt       time.Time     `json:"started_at" yaml:"started_at"`
	Duration        time.Duration `json:"duration" yaml:"duration"`
	State           RunState      `json:"state" yaml:"state"`
	Title           string        `json:"title" yaml:"title"`
	Source          SourceTag     `json:"source" yaml:"source"`
	PostID          string        `json:"post_id,omitempty" yaml:"post_id,omitempty"`
	PostURL         string        `json:"post_url,omitempty" yaml:"post_url,omitempty"`
	PublishAttempts int           `json:"publish_attempts" yaml:"publish_attempts"`
	CTAs            int           `json:"ctas" yaml:"ctas"`
	Errors          []string      `json:"errors,omitempty" yaml:"errors,omitempty"`
}

// WeeklyReport summarizes the last seven days of publications.
type WeeklyReport struct {
	Since          time.Time `json:"since" yaml:"since"`
	Publications   int       `json:"publications" yaml:"publications"`
	TotalViews     int       `json:"total_views" yaml:"total_views"`
	TopArticle     string    `json:"top_article" yaml:"top_article"`
	TopReadArticle string    `json:"top_read_article" yaml:"top_read_article"`
	CTACTR         float64   `json:"cta_ctr" yaml:"cta_ctr"`
	Runs           int       `json:"runs" yaml:"runs"`
	FailedRuns     int       `json:"failed_runs" yaml:"failed_runs"`
}
