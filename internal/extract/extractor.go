package extract

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/sopti/sopti/internal/model"
)

// Extractor resolves a Spotify profile or playlist URL into an ordered,
// deduplicated list of track descriptors by shelling out to spotdl.
type Extractor struct {
	ProfileURL   string
	ClientID     string
	ClientSecret string
	UserAuth     bool
	Log          *zap.Logger
}

// New builds an extractor for one profile URL.
func New(profileURL, clientID, clientSecret string, userAuth bool, log *zap.Logger) *Extractor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Extractor{
		ProfileURL:   profileURL,
		ClientID:     clientID,
		ClientSecret: clientSecret,
		UserAuth:     userAuth,
		Log:          log,
	}
}

func (e *Extractor) args() []string {
	args := []string{"url", e.ProfileURL}
	if e.ClientID != "" {
		args = append(args, "--client-id", e.ClientID)
	}
	if e.ClientSecret != "" {
		args = append(args, "--client-secret", e.ClientSecret)
	}
	if e.UserAuth {
		args = append(args, "--user-auth")
	}
	return args
}

// Resolve runs `spotdl url` for the profile and parses one track URL per
// stdout line. Duplicate references collapse to the first occurrence with
// input order preserved.
func (e *Extractor) Resolve(ctx context.Context) ([]model.Track, error) {
	cmd := exec.CommandContext(ctx, "spotdl", e.args()...)
	cmd.Cancel = func() error {
		return cmd.Process.Signal(syscall.SIGTERM)
	}
	cmd.WaitDelay = 5 * time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("extraction cancelled: %w", ctx.Err())
		}
		return nil, fmt.Errorf("failed to extract playlist %s: %w: %s",
			e.ProfileURL, err, strings.TrimSpace(stderr.String()))
	}

	tracks := ParseTrackList(stdout.String())
	e.Log.Info("resolved profile",
		zap.String("profile", e.ProfileURL),
		zap.Int("tracks", len(tracks)),
	)
	return tracks, nil
}

// ParseTrackList converts raw spotdl output into deduplicated descriptors.
func ParseTrackList(out string) []model.Track {
	var tracks []model.Track
	for _, line := range strings.Split(out, "\n") {
		url := strings.TrimSpace(line)
		if url == "" {
			continue
		}
		tracks = append(tracks, model.NewTrack(url))
	}
	return model.Dedupe(tracks)
}
