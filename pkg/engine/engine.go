package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/akashpandey/Reddit-Fetch/pkg/config"
	"github.com/akashpandey/Reddit-Fetch/pkg/export"
	"github.com/akashpandey/Reddit-Fetch/pkg/logger"
	"github.com/akashpandey/Reddit-Fetch/pkg/ratelimit"
	"github.com/akashpandey/Reddit-Fetch/pkg/reddit"
	"github.com/akashpandey/Reddit-Fetch/pkg/syncer"
	"github.com/akashpandey/Reddit-Fetch/pkg/tokens"
)

// Options selects the behavior of a single run.
type Options struct {
	// Format is "json" or "html".
	Format string
	// ForceFetch ignores the boundary and re-retrieves the whole listing,
	// fully replacing the export artifact.
	ForceFetch bool
}

// Result reports what a run produced.
type Result struct {
	// NewCount is the number of items actually added to the artifact
	// after dedup.
	NewCount int
	// Items are the collected items, oldest first.
	Items []reddit.SavedItem
}

// Exporter is the artifact writer consumed by the engine. Satisfied by
// *export.Exporter.
type Exporter interface {
	MergeAndWrite(newItems []reddit.SavedItem, format string, replace bool) (int, error)
}

// Collector is the sync coordinator consumed by the engine. Satisfied by
// *syncer.Coordinator.
type Collector interface {
	CollectNew(ctx context.Context, forceFullFetch bool) ([]reddit.SavedItem, error)
	Advance(items []reddit.SavedItem) error
}

// Engine is the seam between the sync core and any CLI or scheduler
// wrapper. One Run is one complete pass: authenticate, fetch, diff,
// export, persist the boundary.
type Engine struct {
	coordinator Collector
	exporter    Exporter
	logger      logger.Logger
}

// New wires an Engine from configuration.
func New(cfg *config.Config, log logger.Logger) (*Engine, error) {
	if log == nil {
		log = logger.GetLogger()
	}

	tokenStore, err := NewTokenStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create token store: %w", err)
	}

	manager := tokens.NewManager(tokens.ManagerOptions{
		Store:        tokenStore,
		ClientID:     cfg.Reddit.ClientID,
		ClientSecret: cfg.Reddit.ClientSecret,
		UserAgent:    cfg.Reddit.UserAgent,
		Logger:       log,
	})

	client := reddit.NewClient(cfg.Fetch.RequestTimeout, cfg.Reddit.UserAgent, log)

	limiter := ratelimit.NewTokenBucket(cfg.Fetch.RequestsPerMinute, time.Minute)

	fetcher := reddit.NewPageFetcher(reddit.FetcherOptions{
		Client:      client,
		Tokens:      manager,
		Limiter:     limiter,
		Username:    cfg.Reddit.Username,
		PageSize:    cfg.Fetch.PageSize,
		MaxAttempts: cfg.Retry.MaxAttempts,
		BaseDelay:   cfg.Retry.BaseDelay,
		MaxDelay:    cfg.Retry.MaxDelay,
		Logger:      log,
	})

	boundaryStore, err := syncer.NewFileBoundaryStore(cfg.State.BoundaryFile)
	if err != nil {
		return nil, fmt.Errorf("failed to create boundary store: %w", err)
	}

	coordinator := syncer.NewCoordinator(fetcher, boundaryStore, log)

	exporter, err := export.NewExporter(cfg.Output.Directory, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create exporter: %w", err)
	}

	return &Engine{
		coordinator: coordinator,
		exporter:    exporter,
		logger:      log,
	}, nil
}

// NewWithComponents wires an Engine from pre-built parts, for tests and
// embedding.
func NewWithComponents(coordinator Collector, exporter Exporter, log logger.Logger) *Engine {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Engine{coordinator: coordinator, exporter: exporter, logger: log}
}

// NewTokenStore selects the configured credential backend.
func NewTokenStore(cfg *config.Config) (tokens.Store, error) {
	switch cfg.State.TokenBackend {
	case "keyring":
		return tokens.NewKeyringStore(cfg.Reddit.Username)
	case "encrypted":
		return tokens.NewEncryptedFileStore(cfg.State.TokenFile + ".enc")
	default:
		return tokens.NewFileStore(cfg.State.TokenFile)
	}
}

// Run performs one complete sync pass. The run either fully succeeds
// (artifact and boundary both advance) or fails with neither mutated; an
// interruption between the export and the boundary write is repaired by
// the next run, whose merge is idempotent.
func (e *Engine) Run(ctx context.Context, opts Options) (*Result, error) {
	format := opts.Format
	if format == "" {
		format = export.FormatJSON
	}
	if format != export.FormatJSON && format != export.FormatHTML {
		return nil, fmt.Errorf("unsupported output format %q", format)
	}

	start := time.Now()
	e.logger.InfoWithFields("run started", map[string]interface{}{
		"format": format,
		"force":  opts.ForceFetch,
	})

	items, err := e.coordinator.CollectNew(ctx, opts.ForceFetch)
	if err != nil {
		e.logger.WithError(err).Error("run failed during fetch")
		return nil, err
	}

	added, err := e.exporter.MergeAndWrite(items, format, opts.ForceFetch)
	if err != nil {
		e.logger.WithError(err).Error("run failed during export")
		return nil, err
	}

	if err := e.coordinator.Advance(items); err != nil {
		e.logger.WithError(err).Error("run failed persisting boundary")
		return nil, err
	}

	e.logger.InfoWithFields("run completed", map[string]interface{}{
		"new_items": added,
		"duration":  time.Since(start),
	})

	return &Result{NewCount: added, Items: items}, nil
}
