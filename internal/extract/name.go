package extract

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/gcottom/retry"
	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"go.uber.org/zap"
	"golang.org/x/oauth2/clientcredentials"
)

// Matches open.spotify.com URLs, spotify: URIs, and bare 22-char ids.
var playlistIDPattern = regexp.MustCompile(`(?:playlist[/:])?([a-zA-Z0-9]{22})`)

// NameService resolves a human-readable playlist name via the Spotify Web
// API, used only for naming the destination folder. Lookups are best-effort:
// any failure falls back to a name derived from the URL.
type NameService struct {
	SpotifyConfig *clientcredentials.Config
	Log           *zap.Logger
}

// NewNameService builds a name service. Without credentials the service
// skips the API and always uses the URL fallback.
func NewNameService(clientID, clientSecret string, log *zap.Logger) *NameService {
	if log == nil {
		log = zap.NewNop()
	}
	s := &NameService{Log: log}
	if clientID != "" && clientSecret != "" {
		s.SpotifyConfig = &clientcredentials.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			TokenURL:     spotifyauth.TokenURL,
		}
	}
	return s
}

// PlaylistName returns the display name for a playlist URL.
func (s *NameService) PlaylistName(ctx context.Context, profileURL string) string {
	if s.SpotifyConfig != nil {
		if id, ok := extractPlaylistID(profileURL); ok {
			res, err := retry.Retry(retry.NewAlgSimpleDefault(), 3, s.fetchName, ctx, id)
			if err == nil {
				if name := res[0].(string); name != "" {
					return name
				}
			} else {
				s.Log.Warn("playlist name lookup failed",
					zap.String("profile", profileURL),
					zap.Error(err),
				)
			}
		}
	}
	return FallbackName(profileURL)
}

func (s *NameService) fetchName(ctx context.Context, id string) (string, error) {
	token, err := s.SpotifyConfig.Token(ctx)
	if err != nil {
		return "", fmt.Errorf("getting spotify token: %w", err)
	}
	authClient := spotifyauth.New().Client(ctx, token)
	spotifyClient := spotify.New(authClient)

	playlist, err := spotifyClient.GetPlaylist(ctx, spotify.ID(id))
	if err != nil {
		return "", fmt.Errorf("fetching playlist %s: %w", id, err)
	}
	return strings.TrimSpace(playlist.Name), nil
}

func extractPlaylistID(profileURL string) (string, bool) {
	m := playlistIDPattern.FindStringSubmatch(profileURL)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// FallbackName derives a name from the last URL path segment, stripping any
// query string.
func FallbackName(profileURL string) string {
	url := profileURL
	if i := strings.Index(url, "?"); i >= 0 {
		url = url[:i]
	}
	parts := strings.Split(strings.TrimRight(url, "/"), "/")
	tail := parts[len(parts)-1]
	if tail == "" {
		return "playlist"
	}
	return tail
}
