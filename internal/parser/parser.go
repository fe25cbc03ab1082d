// Package parser derives track metadata from raw media filenames.
//
// The heuristics are deliberately conservative: a filename that follows none
// of the known conventions still yields a populated record with
// "Unknown Artist" / "Unknown Song" placeholders. Parsing is pure and total.
package parser

import (
	"math"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/desertthunder/trax/internal/models"
)

const (
	unknownArtist = "Unknown Artist"
	unknownSong   = "Unknown Song"
)

// separators in priority order; the first one present in the cleaned name
// wins, split at its first occurrence only.
var separators = []string{" - ", " – ", " — ", " | ", " by "}

// collabMarkers flag a side that carries featured-artist text. Matching is
// substring containment on the lowercased side, as in the original heuristic.
var collabMarkers = []string{"ft.", "ft", "feat.", "feat", "featuring", "with", "vs", "x"}

var (
	audioExtRe    = regexp.MustCompile(`(?i)\.(mp3|m4a|wav|flac|aac|ogg)$`)
	bracketRe     = regexp.MustCompile(`\[[^\]]*\]|\([^)]*\)|\{[^}]*\}`)
	trackPrefixRe = regexp.MustCompile(`^\d+\s*[-._]\s*`)
	bareNumberRe  = regexp.MustCompile(`^\d+\s+`)
	multiSpaceRe  = regexp.MustCompile(`\s{2,}`)
)

// Parse extracts track metadata from a filename and byte size. The returned
// Track has no ReferenceID; the caller assigns one before upserting. A size
// of 0 means unknown and yields SizeMB 0.
func Parse(filename string, sizeBytes int64) models.Track {
	track := models.Track{
		Format:           formatOf(filename),
		SizeMB:           sizeMB(sizeBytes),
		OriginalFilename: filepath.Base(filename),
	}

	clean := cleanName(filename)

	for _, sep := range separators {
		if !strings.Contains(clean, sep) {
			continue
		}
		parts := strings.SplitN(clean, sep, 2)
		left, right := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
		if left == "" || right == "" {
			continue
		}
		track.Title, track.Artist = assignTitleArtist(left, right)
		return track
	}

	track.Artist = unknownArtist
	if clean != "" {
		track.Title = clean
	} else {
		track.Title = unknownSong
	}
	return track
}

// assignTitleArtist decides which split half is the title and which the
// artist. The branch order and the collaboration-marker assignment reproduce
// the original heuristic exactly, including its asymmetric sense: the side
// carrying a marker becomes the title, and the default for "Artist - Song"
// shaped names returns the right half as the title.
func assignTitleArtist(left, right string) (title, artist string) {
	leftHasMarker := hasCollabMarker(left)
	rightHasMarker := hasCollabMarker(right)
	leftLen := utf8.RuneCountInString(left)
	rightLen := utf8.RuneCountInString(right)

	switch {
	case leftHasMarker && !rightHasMarker:
		return left, right
	case rightHasMarker && !leftHasMarker:
		return right, left
	case leftLen*2 > rightLen*3:
		return left, right
	case rightLen*2 > leftLen*3:
		return right, left
	default:
		return right, left
	}
}

func hasCollabMarker(s string) bool {
	lower := strings.ToLower(s)
	for _, marker := range collabMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// cleanName strips the audio extension, bracketed segments, and leading
// track-number prefixes, then collapses whitespace runs.
func cleanName(filename string) string {
	name := audioExtRe.ReplaceAllString(filename, "")
	name = filepath.Base(name)
	name = strings.TrimSpace(bracketRe.ReplaceAllString(name, ""))
	name = strings.TrimSpace(trackPrefixRe.ReplaceAllString(name, ""))
	name = strings.TrimSpace(bareNumberRe.ReplaceAllString(name, ""))
	return strings.TrimSpace(multiSpaceRe.ReplaceAllString(name, " "))
}

func formatOf(filename string) string {
	ext := filepath.Ext(filename)
	if ext == "" {
		return "unknown"
	}
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

func sizeMB(sizeBytes int64) float64 {
	if sizeBytes <= 0 {
		return 0
	}
	return math.Round(float64(sizeBytes)/(1024*1024)*100) / 100
}
