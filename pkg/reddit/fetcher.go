package reddit

import (
	"context"
	"errors"
	"time"

	errs "github.com/akashpandey/Reddit-Fetch/pkg/errors"
	"github.com/akashpandey/Reddit-Fetch/pkg/logger"
	"github.com/akashpandey/Reddit-Fetch/pkg/ratelimit"
	"github.com/akashpandey/Reddit-Fetch/pkg/retry"
)

// TokenSource provides a valid access token before each page request.
type TokenSource interface {
	EnsureValid(ctx context.Context) (string, error)
	Invalidate()
}

// Page is one page of the saved-items listing, in the descending
// created_utc order Reddit returns. After is the cursor for the next
// page; empty means the listing is exhausted.
type Page struct {
	Items []SavedItem
	After string
}

// FetcherOptions configures a PageFetcher.
type FetcherOptions struct {
	Client   *Client
	Tokens   TokenSource
	Limiter  ratelimit.Limiter
	Username string
	PageSize int
	// BaseURL overrides the OAuth API host, for tests.
	BaseURL string
	// MaxAttempts bounds the per-page retry budget for transient and
	// rate-limit failures.
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Logger      logger.Logger
}

// PageFetcher issues paginated requests against the saved-items endpoint.
// It holds no persisted state of its own.
type PageFetcher struct {
	client      *Client
	tokens      TokenSource
	limiter     ratelimit.Limiter
	username    string
	baseURL     string
	pageSize    int
	maxAttempts int
	backoff     retry.BackoffStrategy
	logger      logger.Logger
}

// NewPageFetcher creates a page fetcher.
func NewPageFetcher(opts FetcherOptions) *PageFetcher {
	log := opts.Logger
	if log == nil {
		log = logger.GetLogger()
	}
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = OAuthBaseURL
	}
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	maxAttempts := opts.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 4
	}
	backoff := retry.DefaultExponentialBackoff()
	if opts.BaseDelay > 0 {
		backoff.BaseDelay = opts.BaseDelay
	}
	if opts.MaxDelay > 0 {
		backoff.MaxDelay = opts.MaxDelay
	}

	return &PageFetcher{
		client:      opts.Client,
		tokens:      opts.Tokens,
		limiter:     opts.Limiter,
		username:    opts.Username,
		baseURL:     baseURL,
		pageSize:    pageSize,
		maxAttempts: maxAttempts,
		backoff:     backoff,
		logger:      log,
	}
}

// FetchPage retrieves one listing page starting after the given cursor.
// Transient failures and rate limits are retried within the bounded
// budget; an authorization rejection forces one token refresh and retries
// the page exactly once before surfacing.
func (f *PageFetcher) FetchPage(ctx context.Context, after string) (*Page, error) {
	page, err := f.fetchOnce(ctx, after)
	if err == nil {
		return page, nil
	}

	var typed *errs.Error
	if errors.As(err, &typed) && typed.Kind == errs.KindUnauthorized {
		f.logger.WarnWithFields("access token rejected mid-fetch, forcing refresh", map[string]interface{}{
			"after": after,
		})
		f.tokens.Invalidate()
		return f.fetchOnce(ctx, after)
	}

	return nil, err
}

// fetchOnce performs one page request with the transient-retry budget.
func (f *PageFetcher) fetchOnce(ctx context.Context, after string) (*Page, error) {
	cfg := &retry.Config{
		MaxAttempts: f.maxAttempts,
		Backoff:     f.backoff,
		RetryIf:     retry.DefaultRetryIf,
		Context:     ctx,
		Logger:      f.logger,
		OnRetry: func(attempt int, err error, delay time.Duration) time.Duration {
			// Honor the server's Retry-After when it sent one.
			var typed *errs.Error
			if errors.As(err, &typed) && typed.RetryAfter > 0 {
				return typed.RetryAfter
			}
			return 0
		},
	}

	return retry.DoWithResult(func() (*Page, error) {
		if f.limiter != nil {
			if err := f.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		token, err := f.tokens.EnsureValid(ctx)
		if err != nil {
			return nil, err
		}

		url := SavedItemsURL(f.baseURL, f.username, after, f.pageSize)

		var result listing
		if err := f.client.GetJSON(ctx, url, token, &result); err != nil {
			return nil, err
		}

		items := make([]SavedItem, 0, len(result.Data.Children))
		for _, child := range result.Data.Children {
			items = append(items, child.toSavedItem())
		}

		f.logger.DebugWithFields("fetched saved-items page", map[string]interface{}{
			"after":     after,
			"items":     len(items),
			"next_page": result.Data.After != "",
		})

		return &Page{Items: items, After: result.Data.After}, nil
	}, cfg)
}
