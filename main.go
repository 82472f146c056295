package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/sopti/sopti/internal/app"
	"github.com/sopti/sopti/internal/config"
	"github.com/sopti/sopti/internal/fetch"
	"github.com/sopti/sopti/internal/logging"
	"github.com/sopti/sopti/internal/orchestrate"
)

const version = "0.1.2"

var validFormats = map[string]bool{
	"mp3": true, "flac": true, "ogg": true, "opus": true, "m4a": true, "wav": true,
}

// profileFlags collects repeatable --profile values.
type profileFlags []string

func (p *profileFlags) String() string {
	return strings.Join(*p, ",")
}

func (p *profileFlags) Set(value string) error {
	*p = append(*p, value)
	return nil
}

func main() {
	var profiles profileFlags
	var (
		syncMode     bool
		myProfiles   bool
		userAuth     bool
		quiet        bool
		login        bool
		clientID     string
		clientSecret string
		dest         string
		workers      int
		format       string
		bitrate      string
		showVersion  bool
	)

	flag.Var(&profiles, "profile", "Spotify profile or playlist URL (repeatable; defaults to configured profiles)")
	flag.BoolVar(&syncMode, "sync", false, "sync mode: run unattended without console output, errors go to the log")
	flag.BoolVar(&myProfiles, "my", false, "download the configured profiles (implies -user-auth)")
	flag.BoolVar(&userAuth, "user-auth", false, "use spotdl user authentication (required for private playlists)")
	flag.BoolVar(&quiet, "quiet", false, "suppress console output; errors are written to the log file")
	flag.BoolVar(&login, "login", false, "store Spotify API client credentials (use with -id and -crid)")
	flag.StringVar(&clientID, "id", "", "Spotify client ID (used with -login)")
	flag.StringVar(&clientSecret, "crid", "", "Spotify client secret (used with -login)")
	flag.StringVar(&dest, "dest", "", "destination folder for downloads (defaults to the configured music directory)")
	flag.IntVar(&workers, "workers", 0, "number of parallel downloads (defaults to the configured value)")
	flag.StringVar(&format, "format", "", "audio format: mp3, flac, ogg, opus, m4a, wav")
	flag.StringVar(&bitrate, "bitrate", "", "bitrate (e.g. auto, 128k, 320k)")
	flag.BoolVar(&showVersion, "version", false, "show version and exit")
	flag.Parse()

	if showVersion {
		fmt.Printf("sopti %s\n", version)
		return
	}

	logger := logging.OpenDefault()
	defer logger.Sync()

	cfgPath, err := config.DefaultPath()
	if err != nil {
		fatal(logger, "resolving config path", err)
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fatal(logger, "loading config", err)
	}

	if login {
		if clientID == "" || clientSecret == "" {
			fmt.Fprintln(os.Stderr, "-login requires both -id and -crid")
			os.Exit(1)
		}
		cfg.SpotifyClientID = clientID
		cfg.SpotifyClientSecret = clientSecret
		if err := config.Save(cfgPath, cfg); err != nil {
			fatal(logger, "saving config", err)
		}
		fmt.Println("Credentials saved to config.")
		return
	}

	if err := fetch.CheckDependencies(); err != nil {
		fatal(logger, "checking dependencies", err)
	}
	if format != "" && !validFormats[format] {
		fmt.Fprintf(os.Stderr, "invalid format %q (expected mp3, flac, ogg, opus, m4a, or wav)\n", format)
		os.Exit(1)
	}
	if flagWasSet("workers") && workers <= 0 {
		fmt.Fprintln(os.Stderr, "workers must be a positive integer")
		os.Exit(1)
	}

	settings := app.Settings{
		Dest:         firstNonEmpty(dest, cfg.MusicDir),
		Workers:      workers,
		Format:       firstNonEmpty(format, cfg.PreferredFormat),
		Bitrate:      firstNonEmpty(bitrate, cfg.Bitrate),
		Quiet:        quiet || syncMode,
		UserAuth:     userAuth || myProfiles,
		ClientID:     cfg.SpotifyClientID,
		ClientSecret: cfg.SpotifyClientSecret,
	}
	if settings.Workers <= 0 {
		settings.Workers = cfg.Workers
	}

	selected := selectProfiles(profiles, cfg, myProfiles)
	if len(selected) == 0 {
		fmt.Fprintln(os.Stderr, "no profiles provided: use -profile or add profiles to the config")
		os.Exit(1)
	}
	var bad []string
	for _, p := range selected {
		if !strings.HasPrefix(p, "https://open.spotify.com/") {
			bad = append(bad, p)
		}
	}
	if len(bad) > 0 {
		fmt.Fprintf(os.Stderr, "invalid profile URLs: %s\n", strings.Join(bad, ", "))
		os.Exit(1)
	}

	controller := orchestrate.NewController(context.Background())
	defer controller.Stop()

	os.Exit(app.Run(controller.Context(), selected, settings, logger))
}

func selectProfiles(flags profileFlags, cfg *config.Config, myProfiles bool) []string {
	if myProfiles {
		return cfg.Profiles
	}
	if len(flags) > 0 {
		return flags
	}
	return cfg.Profiles
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func flagWasSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

func fatal(logger *zap.Logger, msg string, err error) {
	logger.Error(msg, zap.Error(err))
	fmt.Fprintf(os.Stderr, "%s: %v\n", msg, err)
	os.Exit(1)
}
