package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/akashpandey/Reddit-Fetch/pkg/config"
	"github.com/akashpandey/Reddit-Fetch/pkg/logger"
)

var (
	// Version information, overridden at build time
	version   = "2.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	logLevel   string
)

// rootCmd represents the base command when called without any subcommands.
// Bare invocation runs a fetch, matching the most common use.
var rootCmd = &cobra.Command{
	Use:   "redditfetch",
	Short: "Incrementally export your saved Reddit posts and comments",
	Long: `redditfetch keeps a local, deduplicated export of everything you have
saved on Reddit.

Each run retrieves only the items saved since the previous run, merges
them into the export file, and remembers where it stopped. Tokens are
refreshed automatically after the one-time 'authorize' step.

Configuration can be loaded from:
  - Command line flags (highest priority)
  - Environment variables (CLIENT_ID, CLIENT_SECRET, REDDIT_USERNAME, ...)
  - A .env file in the working directory
  - A YAML config file
  - Default values (lowest priority)`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runFetch(cmd, args)
	},
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is .redditfetch.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	rootCmd.SetVersionTemplate(`redditfetch {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// loadConfig builds the effective configuration from all sources and
// initializes the global logger from it.
func loadConfig(extraFlags map[string]interface{}) (*config.Config, error) {
	flags := make(map[string]interface{}, len(extraFlags)+1)
	for k, v := range extraFlags {
		flags[k] = v
	}
	if logLevel != "" {
		flags["log-level"] = logLevel
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		return nil, err
	}

	if err := logger.Initialize(logger.Options{
		Level: cfg.Logging.Level,
		File:  cfg.Logging.File,
	}); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return cfg, nil
}
