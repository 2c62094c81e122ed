package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/akashpandey/Reddit-Fetch/pkg/engine"
	errs "github.com/akashpandey/Reddit-Fetch/pkg/errors"
	"github.com/akashpandey/Reddit-Fetch/pkg/logger"
	"github.com/akashpandey/Reddit-Fetch/pkg/tokens"
)

// validateCmd represents the validate command
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check credentials and stored tokens without fetching",
	Long: `Check that the configuration is complete, the stored tokens load, and
the refresh exchange works against Reddit. Run this after setup or when
fetches start failing with authorization errors.`,
	Args: cobra.NoArgs,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(nil)
	if err != nil {
		return err
	}
	fmt.Println("Configuration: OK")

	store, err := engine.NewTokenStore(cfg)
	if err != nil {
		return err
	}
	if !store.Exists() {
		return errs.New(errs.KindNoTokens, 0,
			"no stored tokens found; run 'redditfetch authorize' first")
	}
	fmt.Println("Stored tokens: found")

	manager := tokens.NewManager(tokens.ManagerOptions{
		Store:        store,
		ClientID:     cfg.Reddit.ClientID,
		ClientSecret: cfg.Reddit.ClientSecret,
		UserAgent:    cfg.Reddit.UserAgent,
		Logger:       logger.GetLogger(),
	})

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	// Force a refresh round trip so a revoked grant is caught here
	// instead of at 3 AM in a scheduled run. The first call loads the
	// stored record; invalidating makes the second actually refresh.
	if _, err := manager.EnsureValid(ctx); err != nil {
		return fmt.Errorf("token check failed: %w", err)
	}
	manager.Invalidate()
	if _, err := manager.EnsureValid(ctx); err != nil {
		return fmt.Errorf("token refresh check failed: %w", err)
	}
	fmt.Println("Token refresh: OK")

	return nil
}
