package model

import (
	"strings"
	"unicode"
)

// Track is one unit of download work. ID is derived from the source URL and
// is stable across runs, so the ledger recognizes a track it has already
// completed. Display fields may be empty when the extractor only yields URLs.
type Track struct {
	ID         string
	URL        string
	Title      string
	Artists    []string
	Album      string
	PlaylistID string
}

const idLength = 32

// DeriveID builds a stable track id from a source URL by stripping every
// non-alphanumeric rune and keeping the last 32 characters.
func DeriveID(url string) string {
	var b strings.Builder
	b.Grow(len(url))
	for _, r := range url {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	s := b.String()
	if len(s) > idLength {
		s = s[len(s)-idLength:]
	}
	return s
}

// NewTrack creates a descriptor for a source URL with the derived id.
func NewTrack(url string) Track {
	return Track{
		ID:         DeriveID(url),
		URL:        url,
		PlaylistID: "unknown",
	}
}

// Dedupe collapses tracks that share a URL, keeping the first occurrence and
// preserving input order.
func Dedupe(tracks []Track) []Track {
	seen := make(map[string]struct{}, len(tracks))
	out := make([]Track, 0, len(tracks))
	for _, t := range tracks {
		if _, ok := seen[t.URL]; ok {
			continue
		}
		seen[t.URL] = struct{}{}
		out = append(out, t)
	}
	return out
}

// ArtistsJoined renders the artist list for storage and display.
func (t Track) ArtistsJoined() string {
	return strings.Join(t.Artists, ",")
}
