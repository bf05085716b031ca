// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package topics

import (
	"strings"

	"github.com/pdiddy/daily-digest/pkg/types"
)

// HowToHints mark tutorial-style titles. The trailing space in "как " keeps
// "какой" from matching.
var HowToHints = []string{
	"how to",
	"tutorial",
	"guide",
	"step-by-step",
	"как ",
	"гайд",
	"пошаг",
	"инструкция",
}

// IsHowTo reports whether title reads like a tutorial.
func IsHowTo(title string) bool {
	lower := strings.ToLower(title)
	for _, h := range HowToHints {
		if strings.Contains(lower, h) {
			return true
		}
	}
	return false
}

// DeriveTags maps title keywords to blog tags; "Tech" when nothing matches.
func DeriveTags(title string) []string {
	lower := strings.ToLower(title)
	var tags []string
	if strings.Contains(lower, "ai") {
		tags = append(tags, "AI")
	}
	if containsAny(lower, "python", "django", "fastapi") {
		tags = append(tags, "Python")
	}
	if containsAny(lower, "javascript", "react", "next") {
		tags = append(tags, "WebDev")
	}
	if len(tags) == 0 {
		return []string{"Tech"}
	}
	return tags
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// BuildOutline returns the fixed five-section plan for title.
func BuildOutline(title string) []string {
	return []string{
		"Контекст и зачем сейчас: " + title,
		"Быстрый разбор основных понятий",
		"Пошаговый туториал с примерами кода",
		"Типичные ошибки и best practices",
		"Что почитать дальше и как прокачаться",
	}
}

// FallbackTitle is used when no candidate survives selection.
const FallbackTitle = "Как начать проект с GPT-4o: от идеи до продакшна"

// FallbackTopic returns the fixed topic used when selection comes up empty.
func FallbackTopic() types.Topic {
	return types.Topic{
		Title:  FallbackTitle,
		Source: types.SourceFallback,
		Tags:   []string{"AI", "LLM", "OpenAI"},
		Outline: []string{
			"Почему сейчас самое время стартовать",
			"Архитектура агента и пайплайна",
			"Фактчекинг и безопасность",
			"Публикация и аналитика",
		},
	}
}

// FromCandidate builds the topic for a selected candidate.
func FromCandidate(c types.TopicCandidate) types.Topic {
	return types.Topic{
		Title:   c.Title,
		Source:  c.Source,
		Tags:    DeriveTags(c.Title),
		Outline: BuildOutline(c.Title),
		Link:    c.Link,
	}
}
