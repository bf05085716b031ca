// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package dedupe

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/daily-digest/internal/llm"
)

type stubChat struct {
	answer string
	err    error
	calls  int
	last   []llm.Message
	opts   llm.ChatOptions
}

func (s *stubChat) Chat(_ context.Context, msgs []llm.Message, opts llm.ChatOptions) (string, error) {
	s.calls++
	s.last = msgs
	s.opts = opts
	return s.answer, s.err
}

func TestQuickDuplicate(t *testing.T) {
	recent := []string{"Kubernetes operators: пишем свой контроллер"}

	tests := []struct {
		name      string
		candidate string
		want      bool
	}{
		{"long candidate with shared long word", "How we built operators for Kubernetes in production today", true},
		{"case-insensitive", "HOW WE BUILT OPERATORS FOR KUBERNETES IN PRODUCTION", true},
		{"too few words", "Kubernetes operators in production", false},
		{"no long shared word", "How we built a tiny web app in one day", false},
		{"substring inside a longer word", "Notes on writing an operator in Go for fun", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, QuickDuplicate(tt.candidate, recent))
		})
	}
	assert.False(t, QuickDuplicate("one two three four five six seventeen", nil))
}

func TestModelBacked(t *testing.T) {
	tests := []struct {
		answer string
		want   bool
	}{
		{"YES", true},
		{"yes.", true},
		{" Y", true},
		{"NO", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%q", tt.answer), func(t *testing.T) {
			chat := &stubChat{answer: tt.answer}
			got, err := (&ModelBacked{Chat: chat}).Judge(context.Background(), "cand", []string{"a"})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, llm.ChatOptions{Temperature: 0, MaxTokens: 2}, chat.opts)
		})
	}
}

func TestModelBackedPromptListsAtMostForty(t *testing.T) {
	recent := make([]string, 55)
	for i := range recent {
		recent[i] = fmt.Sprintf("title-%02d", i)
	}
	chat := &stubChat{answer: "NO"}
	_, err := (&ModelBacked{Chat: chat}).Judge(context.Background(), "Новая тема", recent)
	require.NoError(t, err)

	prompt := chat.last[1].Content
	assert.Contains(t, prompt, "- title-39\n")
	assert.NotContains(t, prompt, "title-40")
	assert.True(t, strings.HasSuffix(prompt, "Кандидат: Новая тема\n"))
	assert.Equal(t, "system", chat.last[0].Role)
}

func TestModelBackedSkipsEmptyHistory(t *testing.T) {
	chat := &stubChat{answer: "YES"}
	got, err := (&ModelBacked{Chat: chat}).Judge(context.Background(), "cand", []string{"", "  "})
	require.NoError(t, err)
	assert.False(t, got)
	assert.Zero(t, chat.calls)
}

func TestWithFallbackDegrades(t *testing.T) {
	chat := &stubChat{err: llm.ErrUnavailable}
	judge := Select(chat, true, nil)

	recent := []string{"Kubernetes operators: пишем свой контроллер"}
	dup, err := judge.Judge(context.Background(), "How we built operators for Kubernetes in production today", recent)
	require.NoError(t, err)
	assert.True(t, dup)

	dup, err = judge.Judge(context.Background(), "Something else entirely", recent)
	require.NoError(t, err)
	assert.False(t, dup)
	assert.Equal(t, 2, chat.calls)
}

func TestWithFallbackPrefersModel(t *testing.T) {
	chat := &stubChat{answer: "YES"}
	dup, err := Select(chat, true, nil).Judge(context.Background(), "short", []string{"other"})
	require.NoError(t, err)
	assert.True(t, dup)
}

func TestSelectWithoutModel(t *testing.T) {
	assert.IsType(t, HeuristicFallback{}, Select(nil, true, nil))
	assert.IsType(t, HeuristicFallback{}, Select(&stubChat{}, false, nil))
}

func TestWithFallbackReturnsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Select(&stubChat{err: context.Canceled}, true, nil).Judge(ctx, "c", []string{"r"})
	assert.ErrorIs(t, err, context.Canceled)
}
