package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/akashpandey/Reddit-Fetch/pkg/engine"
	errs "github.com/akashpandey/Reddit-Fetch/pkg/errors"
	"github.com/akashpandey/Reddit-Fetch/pkg/logger"
)

var (
	// Fetch command flags
	forceFetch   bool
	outputFormat string
	outputDir    string
	fetchEvery   time.Duration
	tokenBackend string
)

// fetchCmd represents the fetch command
var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Retrieve newly saved items and update the export file",
	Long: `Retrieve items saved since the last run and merge them into the export
file.

The first run (or --force) retrieves the entire saved listing. Later
runs stop at the first item already seen, so a fetch right after
another fetch does no extra work.

With --interval the command keeps running and repeats the fetch on a
fixed schedule, which is the intended mode for container deployments.`,
	Example: `  # Fetch new saved items into saved_posts.json
  redditfetch fetch

  # Re-retrieve everything and rebuild the export from scratch
  redditfetch fetch --force

  # Produce a browsable HTML page alongside the JSON
  redditfetch fetch --format html

  # Run forever, fetching once per day
  redditfetch fetch --interval 24h`,
	Args: cobra.NoArgs,
	RunE: runFetch,
}

func init() {
	rootCmd.AddCommand(fetchCmd)

	fetchCmd.Flags().BoolVar(&forceFetch, "force", false, "ignore the saved boundary and re-fetch everything")
	fetchCmd.Flags().StringVarP(&outputFormat, "format", "f", "", "output format (json or html)")
	fetchCmd.Flags().StringVarP(&outputDir, "output", "o", "", "directory for the export file")
	fetchCmd.Flags().DurationVar(&fetchEvery, "interval", 0, "keep running and fetch on this interval (e.g. 6h)")
	fetchCmd.Flags().StringVar(&tokenBackend, "token-backend", "", "credential storage backend (file, keyring, encrypted)")

	// Same flags on the root command so bare 'redditfetch --force' works.
	rootCmd.Flags().BoolVar(&forceFetch, "force", false, "ignore the saved boundary and re-fetch everything")
	rootCmd.Flags().StringVarP(&outputFormat, "format", "f", "", "output format (json or html)")
	rootCmd.Flags().StringVarP(&outputDir, "output", "o", "", "directory for the export file")
	rootCmd.Flags().DurationVar(&fetchEvery, "interval", 0, "keep running and fetch on this interval (e.g. 6h)")
	rootCmd.Flags().StringVar(&tokenBackend, "token-backend", "", "credential storage backend (file, keyring, encrypted)")
}

func runFetch(cmd *cobra.Command, args []string) error {
	flags := make(map[string]interface{})
	if forceFetch {
		flags["force"] = true
	}
	if outputFormat != "" {
		flags["format"] = outputFormat
	}
	if outputDir != "" {
		flags["output"] = outputDir
	}
	if fetchEvery > 0 {
		flags["interval"] = fetchEvery
	}
	if tokenBackend != "" {
		flags["token-backend"] = tokenBackend
	}

	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}
	log := logger.GetLogger()

	eng, err := engine.New(cfg, log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := engine.Options{
		Format:     cfg.Output.Format,
		ForceFetch: cfg.Fetch.ForceFetch,
	}

	if cfg.Fetch.Interval <= 0 {
		return runOnce(ctx, eng, opts)
	}

	// Scheduler mode: run immediately, then on every tick. Transient
	// failures are logged and the loop keeps going; fatal credential
	// problems stop it since no later run can succeed without operator
	// action.
	log.InfoWithFields("running on a schedule", map[string]interface{}{
		"interval": cfg.Fetch.Interval,
	})

	ticker := time.NewTicker(cfg.Fetch.Interval)
	defer ticker.Stop()

	for {
		if err := runOnce(ctx, eng, opts); err != nil {
			if isFatalRunError(err) {
				return err
			}
			log.WithError(err).Error("scheduled run failed, will retry on next tick")
		}
		// A forced run rebuilds once; later ticks are incremental.
		opts.ForceFetch = false

		select {
		case <-ctx.Done():
			log.Info("shutting down")
			return nil
		case <-ticker.C:
		}
	}
}

func runOnce(ctx context.Context, eng *engine.Engine, opts engine.Options) error {
	result, err := eng.Run(ctx, opts)
	if err != nil {
		return err
	}

	if result.NewCount == 0 {
		fmt.Println("Already up to date, no new saved items.")
	} else {
		fmt.Printf("Added %d new saved item(s) to the export.\n", result.NewCount)
	}
	return nil
}

func isFatalRunError(err error) bool {
	var typed *errs.Error
	if errors.As(err, &typed) {
		return errs.IsFatal(typed.Kind)
	}
	return false
}
