// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package verify

import (
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/pdiddy/daily-digest/internal/similarity"
)

// DefaultMaxQueries caps corroboration queries per topic.
const DefaultMaxQueries = 8

// significantLen is the minimum rune length of a standalone token query.
const significantLen = 4

// BuildQueries derives search queries from topic, broad to narrow: the raw
// topic, significant tokens (longest first), quoted two-word phrases, and a
// GitHub-scoped query. Duplicates are dropped and the list is capped at max.
func BuildQueries(topic string, max int) []string {
	if max <= 0 {
		max = DefaultMaxQueries
	}
	topic = strings.Join(strings.Fields(topic), " ")
	if topic == "" {
		return nil
	}

	var out []string
	seen := make(map[string]bool)
	add := func(q string) {
		key := strings.ToLower(q)
		if q == "" || seen[key] || len(out) >= max {
			return
		}
		seen[key] = true
		out = append(out, q)
	}

	add(topic)

	tokens := similarity.Tokenize(topic).Sorted()
	slices.SortStableFunc(tokens, func(a, b string) int {
		return utf8.RuneCountInString(b) - utf8.RuneCountInString(a)
	})
	for _, t := range tokens {
		if utf8.RuneCountInString(t) >= significantLen {
			add(t)
		}
	}

	words := phraseWords(topic)
	for i := 0; i+1 < len(words); i++ {
		add(`"` + words[i] + " " + words[i+1] + `"`)
	}

	add("site:github.com " + topic)
	return out
}

// phraseWords keeps the words of topic that survive tokenization, in order.
func phraseWords(topic string) []string {
	keep := similarity.Tokenize(topic)
	var out []string
	for _, w := range strings.Fields(topic) {
		w = strings.Trim(w, ".,:;!?()[]{}\"'«»")
		if keep.Has(strings.ToLower(w)) {
			out = append(out, w)
		}
	}
	return out
}
