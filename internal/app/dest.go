package app

import (
	"context"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/sopti/sopti/internal/extract"
)

var unsafeRunes = regexp.MustCompile(`[^\w\-. ]+`)

// SafeFolderName sanitizes a playlist name into a directory name under base:
// unsafe runes become underscores, leading/trailing dot-underscore-space
// padding is trimmed, and the result is truncated to avoid OS path limits.
func SafeFolderName(name, base string) string {
	safe := unsafeRunes.ReplaceAllString(name, "_")
	safe = strings.Trim(safe, "._ ")
	if safe == "" {
		safe = "playlist"
	}
	if len(safe) > 80 {
		safe = safe[:80]
	}
	return filepath.Join(base, safe)
}

// resolveDest picks the output directory for one profile. Playlist URLs get
// a named subfolder of the base music directory; anything else downloads
// straight into it.
func resolveDest(ctx context.Context, profileURL, base string, namer *extract.NameService) string {
	if !strings.Contains(profileURL, "/playlist/") {
		return base
	}
	return SafeFolderName(namer.PlaylistName(ctx, profileURL), base)
}
