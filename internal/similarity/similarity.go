// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package similarity decides whether two headlines cover the same topic.
//
// Titles are reduced to token sets: lowercased, split on anything that is
// not a letter, digit, underscore, hyphen or slash, with short tokens and a
// bilingual stop-list removed. Two titles are similar when they share a
// "brand" token of five or more runes, or when the Jaccard index of their
// token sets reaches one half. No stemming is performed. All functions are
// pure and safe for concurrent use.
package similarity

import (
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	// MinTokenLen is the shortest token kept by Tokenize.
	MinTokenLen = 3

	// DefaultAnchorLen is the shortest token treated as an anchor.
	DefaultAnchorLen = 7

	// BrandLen is the shortest shared token that alone makes two titles similar.
	BrandLen = 5

	// JaccardThreshold is the token overlap at which two titles are similar.
	JaccardThreshold = 0.5
)

var splitter = regexp.MustCompile(`[^\p{L}\p{N}_\-/]+`)

// stopWords are dropped from every token set.
var stopWords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "from": true,
	"this": true, "that": true,
	"и": true, "или": true, "по": true, "на": true, "от": true, "до": true,
	"что": true, "это": true,
}

// TokenSet is a normalized set of title words.
type TokenSet map[string]struct{}

// Has reports whether tok is in the set.
func (s TokenSet) Has(tok string) bool {
	_, ok := s[tok]
	return ok
}

// Sorted returns the tokens in lexical order.
func (s TokenSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for t := range s {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Tokenize returns the normalized token set of text.
func Tokenize(text string) TokenSet {
	set := make(TokenSet)
	for _, raw := range splitter.Split(strings.ToLower(text), -1) {
		if raw == "" || utf8.RuneCountInString(raw) < MinTokenLen {
			continue
		}
		if stopWords[raw] {
			continue
		}
		set[raw] = struct{}{}
	}
	return set
}

// Anchors returns the tokens of text with at least minLen runes. A minLen of
// zero or less uses DefaultAnchorLen.
func Anchors(text string, minLen int) TokenSet {
	if minLen <= 0 {
		minLen = DefaultAnchorLen
	}
	out := make(TokenSet)
	for t := range Tokenize(text) {
		if utf8.RuneCountInString(t) >= minLen {
			out[t] = struct{}{}
		}
	}
	return out
}

// Jaccard returns |a∩b| / |a∪b|, or zero when both are empty.
func Jaccard(a, b TokenSet) float64 {
	inter := 0
	for t := range a {
		if b.Has(t) {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// IsSimilar reports whether titles a and b share a brand token or overlap by
// at least JaccardThreshold. A title with no tokens is similar to nothing.
func IsSimilar(a, b string) bool {
	ta, tb := Tokenize(a), Tokenize(b)
	if len(ta) == 0 || len(tb) == 0 {
		return false
	}
	for t := range ta {
		if tb.Has(t) && utf8.RuneCountInString(t) >= BrandLen {
			return true
		}
	}
	return Jaccard(ta, tb) >= JaccardThreshold
}

// Normalize trims and lowercases a title for exact comparison.
func Normalize(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}

// IsSimilarToRecent reports whether title equals (after normalization) or is
// similar to any of recent.
func IsSimilarToRecent(title string, recent []string) bool {
	norm := Normalize(title)
	for _, r := range recent {
		if Normalize(r) == norm {
			return true
		}
		if IsSimilar(title, r) {
			return true
		}
	}
	return false
}

// AnchorFrequency counts, for every anchor of at least minLen runes, the
// number of titles it appears in.
func AnchorFrequency(titles []string, minLen int) map[string]int {
	freq := make(map[string]int)
	for _, t := range titles {
		for a := range Anchors(t, minLen) {
			freq[a]++
		}
	}
	return freq
}

// BannedAnchors returns the anchors whose frequency is at least threshold.
// A threshold below one is treated as one.
func BannedAnchors(freq map[string]int, threshold int) TokenSet {
	if threshold < 1 {
		threshold = 1
	}
	out := make(TokenSet)
	for a, n := range freq {
		if n >= threshold {
			out[a] = struct{}{}
		}
	}
	return out
}

// HitsBanned returns the first anchor of title (in lexical order) that is
// banned, or "" when none is.
func HitsBanned(title string, banned TokenSet, minLen int) string {
	if len(banned) == 0 {
		return ""
	}
	for _, a := range Anchors(title, minLen).Sorted() {
		if banned.Has(a) {
			return a
		}
	}
	return ""
}

// Dated is a historical title with its timestamp.
type Dated struct {
	Title string
	At    time.Time
}

// DuplicateRisk scores how likely title repeats something in history. Each
// historical title contributes its Jaccard overlap with title (1.0 for an
// exact or brand match), weighted linearly down to zero at the edge of
// window. The result is the maximum contribution, in [0, 1].
func DuplicateRisk(title string, history []Dated, now time.Time, window time.Duration) float64 {
	if window <= 0 {
		return 0
	}
	tt := Tokenize(title)
	norm := Normalize(title)
	risk := 0.0
	for _, h := range history {
		age := now.Sub(h.At)
		if age < 0 {
			age = 0
		}
		if age >= window {
			continue
		}
		weight := 1 - float64(age)/float64(window)

		var overlap float64
		switch {
		case Normalize(h.Title) == norm:
			overlap = 1
		case IsSimilar(title, h.Title):
			overlap = 1
		default:
			overlap = Jaccard(tt, Tokenize(h.Title))
		}
		if s := overlap * weight; s > risk {
			risk = s
		}
	}
	return risk
}
