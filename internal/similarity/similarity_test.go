// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package similarity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"mixed punctuation", "The Quick-Start guide to LLM/RAG и Python", []string{"guide", "llm/rag", "python", "quick-start"}},
		{"stop words dropped", "this and that from the web", []string{"web"}},
		{"cyrillic counts runes", "ИИ код кластер", []string{"кластер", "код"}},
		{"empty", "", []string{}},
		{"only short tokens", "a b go", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Tokenize(tt.text).Sorted())
		})
	}
}

func TestTokenizeIdempotent(t *testing.T) {
	title := "Как развернуть Kubernetes кластер: пошаговый гайд"
	assert.Equal(t, Tokenize(title), Tokenize(title))
}

func TestAnchors(t *testing.T) {
	got := Anchors("Terraform infrastructure в облаке кластер", 0)
	assert.Equal(t, []string{"infrastructure", "terraform", "кластер"}, got.Sorted())

	got = Anchors("Terraform infrastructure", 10)
	assert.Equal(t, []string{"infrastructure"}, got.Sorted())
}

func TestIsSimilar(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want bool
	}{
		{"identical", "Building agents with LangChain", "Building agents with LangChain", true},
		{"brand hit", "OpenAI releases new model", "Trying OpenAI assistants", true},
		{"jaccard above half", "fast tips", "fast tips now", true},
		{"jaccard exactly half", "fast tips now here", "fast tips", true},
		{"low overlap short tokens", "fast cat now here", "fast dog tip", false},
		{"disjoint", "Rust memory safety", "Kotlin coroutines tips", false},
		{"empty token set", "a b", "a b", false},
		{"one side empty", "", "Python tips", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsSimilar(tt.a, tt.b))
		})
	}
}

func TestIsSimilarReflexive(t *testing.T) {
	titles := []string{
		"Как начать с LangChain",
		"Go 1.23 iterators explained",
		"new web api",
		"React Server Components в продакшне",
	}
	for _, title := range titles {
		assert.True(t, IsSimilar(title, title), title)
	}
}

func TestIsSimilarToRecent(t *testing.T) {
	recent := []string{"Как начать с LangChain", "Rust memory safety"}

	assert.True(t, IsSimilarToRecent("  как начать с langchain ", recent))
	assert.True(t, IsSimilarToRecent("LangChain agents in production", recent))
	assert.False(t, IsSimilarToRecent("Kotlin coroutines tips", recent))
	assert.False(t, IsSimilarToRecent("Anything", nil))
}

func TestAnchorFrequency(t *testing.T) {
	titles := []string{
		"Terraform infrastructure basics",
		"infrastructure as code",
		"Cloud infrastructure costs",
	}
	freq := AnchorFrequency(titles, DefaultAnchorLen)
	assert.Equal(t, 3, freq["infrastructure"])
	assert.Equal(t, 1, freq["terraform"])
	_, ok := freq["cloud"]
	assert.False(t, ok, "short tokens are not anchors")
}

func TestBannedAnchors(t *testing.T) {
	freq := map[string]int{"javascript": 3, "terraform": 1}

	assert.Equal(t, []string{"javascript", "terraform"}, BannedAnchors(freq, 1).Sorted())
	assert.Equal(t, []string{"javascript", "terraform"}, BannedAnchors(freq, 0).Sorted())
	assert.Equal(t, []string{"javascript"}, BannedAnchors(freq, 2).Sorted())
	assert.Empty(t, BannedAnchors(freq, 4))
}

func TestHitsBanned(t *testing.T) {
	banned := BannedAnchors(map[string]int{"terraform": 1}, 1)

	assert.Equal(t, "terraform", HitsBanned("Terraform modules deep dive", banned, DefaultAnchorLen))
	assert.Equal(t, "", HitsBanned("Pulumi modules deep dive", banned, DefaultAnchorLen))
	assert.Equal(t, "", HitsBanned("Terraform", nil, DefaultAnchorLen))
}

func TestDuplicateRisk(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	window := 20 * 24 * time.Hour
	history := []Dated{
		{Title: "Как начать с LangChain", At: now.Add(-10 * 24 * time.Hour)},
		{Title: "Kotlin coroutines tips", At: now.Add(-30 * 24 * time.Hour)},
	}

	assert.InDelta(t, 0.5, DuplicateRisk("как начать с langchain", history, now, window), 1e-9)
	assert.Zero(t, DuplicateRisk("Kotlin coroutines tips", history, now, window), "outside window")
	assert.Zero(t, DuplicateRisk("Rust memory safety", history, now, window))
	assert.Zero(t, DuplicateRisk("anything", history, now, 0))
}
