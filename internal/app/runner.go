package app

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"go.uber.org/zap"

	"github.com/sopti/sopti/internal/extract"
	"github.com/sopti/sopti/internal/fetch"
	"github.com/sopti/sopti/internal/ledger"
	"github.com/sopti/sopti/internal/orchestrate"
	"github.com/sopti/sopti/internal/progress"
)

// Settings carries the per-run options assembled from flags and config.
type Settings struct {
	Dest         string
	Workers      int
	Format       string
	Bitrate      string
	Quiet        bool
	UserAuth     bool
	ClientID     string
	ClientSecret string
}

// Run processes each profile in order under one shared cancellation context.
// Per-profile failures are reported and the next profile continues;
// cancellation stops the remaining profiles. The returned code is the
// process exit code.
func Run(ctx context.Context, profiles []string, settings Settings, log *zap.Logger) int {
	exitCode := 0
	for _, profile := range profiles {
		if ctx.Err() != nil {
			break
		}
		if err := runProfile(ctx, profile, settings, log); err != nil {
			log.Error("profile run failed", zap.String("profile", profile), zap.Error(err))
			if !settings.Quiet {
				color.New(color.FgRed).Fprintf(os.Stderr, "Failed processing %s: %v\n", profile, err)
			}
			exitCode = 1
			continue
		}
	}
	if ctx.Err() != nil && !settings.Quiet {
		fmt.Println("\nCancelled by user.")
	}
	return exitCode
}

func runProfile(ctx context.Context, profile string, settings Settings, log *zap.Logger) error {
	extractor := extract.New(profile, settings.ClientID, settings.ClientSecret, settings.UserAuth, log)
	tracks, err := extractor.Resolve(ctx)
	if err != nil {
		return fmt.Errorf("resolving profile: %w", err)
	}
	if len(tracks) == 0 {
		if !settings.Quiet {
			fmt.Printf("No tracks found for %s\n", profile)
		}
		return nil
	}

	namer := extract.NewNameService(settings.ClientID, settings.ClientSecret, log)
	dest := resolveDest(ctx, profile, settings.Dest, namer)

	ledgerPath, err := ledger.DefaultPath()
	if err != nil {
		return err
	}
	store, err := ledger.Open(ledgerPath)
	if err != nil {
		return fmt.Errorf("opening ledger: %w", err)
	}
	defer store.Close()

	runner, err := fetch.NewSpotDL(fetch.SpotDLOptions{
		Dest:         dest,
		Format:       settings.Format,
		Bitrate:      settings.Bitrate,
		ClientID:     settings.ClientID,
		ClientSecret: settings.ClientSecret,
		UserAuth:     settings.UserAuth,
	}, log)
	if err != nil {
		return err
	}

	var reporter orchestrate.Reporter = orchestrate.NopReporter{}
	var manager *progress.Manager
	if !settings.Quiet {
		manager = progress.NewManager()
		manager.Start(ctx)
		reporter = manager
	}

	loop := &orchestrate.Loop{
		Store:    store,
		Fetcher:  fetch.NewRetrier(runner, log),
		Reporter: reporter,
		Limit:    settings.Workers,
		Log:      log,
	}
	tally, err := loop.Run(ctx, tracks)
	manager.Stop()
	if err != nil {
		return err
	}

	if !settings.Quiet {
		printTally(profile, tally)
	}
	return nil
}

func printTally(profile string, tally orchestrate.Tally) {
	status := color.New(color.FgGreen)
	switch tally.State {
	case orchestrate.StateCancelled:
		status = color.New(color.FgYellow)
	case orchestrate.StateStalled, orchestrate.StatePassLimit:
		if tally.Completed < tally.Total {
			status = color.New(color.FgYellow)
		}
	}
	status.Printf("Completed: %d/%d", tally.Completed, tally.Total)
	fmt.Printf(" (%s) for %s\n", tally.State, profile)
}
