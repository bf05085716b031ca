// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package dedupe judges whether a candidate title repeats a recent title by
// meaning. A model-backed judge is used when a language model is configured;
// otherwise a deterministic word-overlap heuristic decides.
package dedupe

import (
	"context"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/charmbracelet/log"

	"github.com/pdiddy/daily-digest/internal/llm"
	"github.com/pdiddy/daily-digest/internal/logging"
)

const (
	// maxListed caps the recent titles shown to the model.
	maxListed = 40

	// HeuristicMinWords is the word count below which the heuristic never
	// flags a candidate.
	HeuristicMinWords = 7

	// HeuristicMinWordLen is the rune length of words the heuristic matches.
	HeuristicMinWordLen = 7
)

// DuplicateJudge decides whether candidate duplicates any of recent. An
// error means the judge could not decide.
type DuplicateJudge interface {
	Judge(ctx context.Context, candidate string, recent []string) (bool, error)
}

// Select picks the judge for one run: model-backed with heuristic fallback
// when chat is available, the heuristic alone otherwise.
func Select(chat llm.Chatter, enabled bool, logger *log.Logger) DuplicateJudge {
	if chat == nil || !enabled {
		return HeuristicFallback{}
	}
	return WithFallback(&ModelBacked{Chat: chat}, HeuristicFallback{}, logger)
}

// HeuristicFallback flags a candidate of at least seven words when one of
// its words of seven or more characters occurs inside a recent title.
type HeuristicFallback struct{}

// Judge never fails.
func (HeuristicFallback) Judge(_ context.Context, candidate string, recent []string) (bool, error) {
	return QuickDuplicate(candidate, recent), nil
}

// QuickDuplicate implements the heuristic rule; matching is case-insensitive.
func QuickDuplicate(candidate string, recent []string) bool {
	words := strings.FieldsFunc(strings.ToLower(candidate), func(r rune) bool {
		return unicode.IsSpace(r) || (unicode.IsPunct(r) && r != '-' && r != '/')
	})
	if len(words) < HeuristicMinWords {
		return false
	}
	lowered := make([]string, 0, len(recent))
	for _, r := range recent {
		if r = strings.ToLower(strings.TrimSpace(r)); r != "" {
			lowered = append(lowered, r)
		}
	}
	for _, w := range words {
		if utf8.RuneCountInString(w) < HeuristicMinWordLen {
			continue
		}
		for _, r := range lowered {
			if strings.Contains(r, w) {
				return true
			}
		}
	}
	return false
}

const modelSystemPrompt = "Ты строгий помощник-редактор. Твоя задача — только проверка на дубликат темы по смыслу."

// ModelBacked asks the language model for a YES/NO verdict.
type ModelBacked struct {
	Chat llm.Chatter
}

// Judge returns false without a call when recent is empty.
func (m *ModelBacked) Judge(ctx context.Context, candidate string, recent []string) (bool, error) {
	titles := make([]string, 0, len(recent))
	for _, t := range recent {
		if t = strings.TrimSpace(t); t != "" {
			titles = append(titles, t)
		}
	}
	if len(titles) == 0 {
		return false, nil
	}

	answer, err := m.Chat.Chat(ctx, []llm.Message{
		llm.System(modelSystemPrompt),
		llm.User(judgePrompt(candidate, titles)),
	}, llm.ChatOptions{Temperature: 0, MaxTokens: 2})
	if err != nil {
		return false, fmt.Errorf("duplicate judgement: %w", err)
	}
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(answer)), "y"), nil
}

func judgePrompt(candidate string, titles []string) string {
	if len(titles) > maxListed {
		titles = titles[:maxListed]
	}
	var b strings.Builder
	b.WriteString("Ниже список недавних заголовков статей. И дана новая кандидатная тема.\n")
	b.WriteString("Ответь строго одним словом: YES (если кандидат — дубликат по смыслу любого из списка)")
	b.WriteString(" или NO (если не дубликат). Никаких пояснений.\n\n")
	b.WriteString("Список заголовков (последние 20 дней):\n")
	for _, t := range titles {
		b.WriteString("- ")
		b.WriteString(t)
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "\nКандидат: %s\n", candidate)
	return b.String()
}

type fallbackJudge struct {
	primary  DuplicateJudge
	fallback DuplicateJudge
	logger   *log.Logger
}

// WithFallback consults primary and, when it fails, fallback for the same
// candidate. Context cancellation is returned as is.
func WithFallback(primary, fallback DuplicateJudge, logger *log.Logger) DuplicateJudge {
	return &fallbackJudge{primary: primary, fallback: fallback, logger: logging.Component(logger, "dedupe")}
}

func (f *fallbackJudge) Judge(ctx context.Context, candidate string, recent []string) (bool, error) {
	dup, err := f.primary.Judge(ctx, candidate, recent)
	if err == nil {
		return dup, nil
	}
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	f.logger.Warn("semantic judge unavailable, using heuristic", "candidate", candidate, "err", err)
	return f.fallback.Judge(ctx, candidate, recent)
}
