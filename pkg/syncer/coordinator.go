package syncer

import (
	"context"
	"time"

	"github.com/akashpandey/Reddit-Fetch/pkg/logger"
	"github.com/akashpandey/Reddit-Fetch/pkg/reddit"
)

// PageSource produces saved-items listing pages. Satisfied by
// *reddit.PageFetcher.
type PageSource interface {
	FetchPage(ctx context.Context, after string) (*reddit.Page, error)
}

// Coordinator drives pagination and applies the incremental stop rule. It
// exclusively owns the persisted boundary.
type Coordinator struct {
	fetcher PageSource
	store   BoundaryStore
	logger  logger.Logger

	// boundary loaded by the last CollectNew, consulted by Advance.
	boundary *Boundary
}

// NewCoordinator creates a sync coordinator.
func NewCoordinator(fetcher PageSource, store BoundaryStore, log logger.Logger) *Coordinator {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Coordinator{fetcher: fetcher, store: store, logger: log}
}

// CollectNew returns exactly the items newer than the previous boundary,
// oldest first, or the entire listing when forceFullFetch is set or no
// boundary exists yet.
//
// The stop rule matches fullnames, not timestamps: Reddit timestamps are
// not strictly monotonic across re-listings, but the boundary item itself
// reappearing is unambiguous. Everything at and after it in listing order
// is older and gets discarded. If the boundary item was unsaved or
// deleted since the last run it never reappears; the coordinator then
// exhausts all pages, preferring re-downloads over silently missing items.
func (c *Coordinator) CollectNew(ctx context.Context, forceFullFetch bool) ([]reddit.SavedItem, error) {
	boundary, err := c.store.Load()
	if err != nil {
		return nil, err
	}
	c.boundary = boundary

	incremental := !forceFullFetch && boundary != nil

	c.logger.InfoWithFields("starting sync", map[string]interface{}{
		"incremental": incremental,
		"force":       forceFullFetch,
	})

	var collected []reddit.SavedItem
	after := ""
	stopped := false

	for {
		page, err := c.fetcher.FetchPage(ctx, after)
		if err != nil {
			return nil, err
		}

		for _, item := range page.Items {
			if incremental && item.Fullname == boundary.LastFullname {
				stopped = true
				break
			}
			collected = append(collected, item)
		}

		if stopped || page.After == "" {
			break
		}
		after = page.After
	}

	if incremental && !stopped && len(collected) > 0 {
		c.logger.WarnWithFields("boundary item not found in listing, fetched everything", map[string]interface{}{
			"last_fullname": boundary.LastFullname,
			"items":         len(collected),
		})
	}

	// Reverse into oldest-first order so callers can append to an archive
	// without disturbing its chronological convention.
	for i, j := 0, len(collected)-1; i < j; i, j = i+1, j-1 {
		collected[i], collected[j] = collected[j], collected[i]
	}

	c.logger.InfoWithFields("sync collection complete", map[string]interface{}{
		"new_items": len(collected),
	})

	return collected, nil
}

// Advance persists the boundary after a fully successful run. items must
// be the oldest-first slice returned by CollectNew; the newest item seen
// this run is its last element. A run that returned nothing leaves an
// existing boundary untouched so repeated no-op runs cause no timestamp
// drift.
func (c *Coordinator) Advance(items []reddit.SavedItem) error {
	if len(items) == 0 {
		c.logger.Debug("no new items, boundary unchanged")
		return nil
	}

	newest := items[len(items)-1]
	boundary := &Boundary{
		LastFullname:  newest.Fullname,
		LastFetchedAt: time.Now().Unix(),
	}

	if err := c.store.Save(boundary); err != nil {
		return err
	}

	c.boundary = boundary
	c.logger.InfoWithFields("boundary advanced", map[string]interface{}{
		"last_fullname": boundary.LastFullname,
	})

	return nil
}
