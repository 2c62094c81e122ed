package main

import (
	"github.com/spf13/cobra"

	"github.com/akashpandey/Reddit-Fetch/pkg/authflow"
	"github.com/akashpandey/Reddit-Fetch/pkg/engine"
	"github.com/akashpandey/Reddit-Fetch/pkg/logger"
)

var headlessAuth bool

// authorizeCmd represents the authorize command
var authorizeCmd = &cobra.Command{
	Use:   "authorize",
	Short: "Run the one-time OAuth authorization and store the tokens",
	Long: `Authorize this app against your Reddit account and store the resulting
tokens. This is a one-time step; every later fetch refreshes the access
token automatically from the stored refresh token.

The default flow opens your browser and captures the redirect on the
configured redirect URI (which must be registered on the Reddit app,
e.g. http://localhost:8080). On a headless machine use --headless: the
command prints the URL to open elsewhere and reads the redirect URL
back from stdin.`,
	Example: `  # Browser flow on a desktop machine
  redditfetch authorize

  # On a server without a browser
  redditfetch authorize --headless`,
	Args: cobra.NoArgs,
	RunE: runAuthorize,
}

func init() {
	rootCmd.AddCommand(authorizeCmd)

	authorizeCmd.Flags().BoolVar(&headlessAuth, "headless", false, "print the URL instead of opening a browser")
	authorizeCmd.Flags().StringVar(&tokenBackend, "token-backend", "", "credential storage backend (file, keyring, encrypted)")
}

func runAuthorize(cmd *cobra.Command, args []string) error {
	flags := make(map[string]interface{})
	if tokenBackend != "" {
		flags["token-backend"] = tokenBackend
	}

	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}

	store, err := engine.NewTokenStore(cfg)
	if err != nil {
		return err
	}

	flow, err := authflow.New(authflow.Options{
		ClientID:     cfg.Reddit.ClientID,
		ClientSecret: cfg.Reddit.ClientSecret,
		RedirectURI:  cfg.Reddit.RedirectURI,
		UserAgent:    cfg.Reddit.UserAgent,
		Store:        store,
		Headless:     headlessAuth,
		Logger:       logger.GetLogger(),
	})
	if err != nil {
		return err
	}

	return flow.Run(cmd.Context())
}
