// Package search implements the free-text query predicate used by the
// catalog.
//
// The match is a recall-biased containment heuristic, not a ranked score: a
// query matches a track when it is a literal substring of the title or
// artist, or when at least 60% of its words appear among the track's words.
// The predicate is binary per track; callers treat the catalog's first match
// as the best one.
package search

import (
	"strings"
	"unicode"

	"github.com/desertthunder/trax/internal/models"
)

// wordThreshold is the minimum fraction of query words that must appear in
// the track's combined title and artist word set.
const wordThreshold = 0.6

// Match reports whether query matches the track's title or artist.
func Match(query string, track models.Track) bool {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return false
	}

	title := strings.ToLower(track.Title)
	artist := strings.ToLower(track.Artist)

	if strings.Contains(title, query) || strings.Contains(artist, query) {
		return true
	}

	queryWords := wordSet(query)
	if len(queryWords) == 0 {
		return false
	}

	trackWords := wordSet(title)
	for w := range wordSet(artist) {
		trackWords[w] = struct{}{}
	}

	hits := 0
	for w := range queryWords {
		if _, ok := trackWords[w]; ok {
			hits++
		}
	}

	return float64(hits)/float64(len(queryWords)) >= wordThreshold
}

// wordSet splits s into its distinct alphanumeric words, with punctuation
// stripped.
func wordSet(s string) map[string]struct{} {
	stripped := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || unicode.IsSpace(r) {
			return r
		}
		return -1
	}, s)

	set := make(map[string]struct{})
	for _, w := range strings.Fields(stripped) {
		set[w] = struct{}{}
	}
	return set
}
