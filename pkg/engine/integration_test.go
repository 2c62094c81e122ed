package engine

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/akashpandey/Reddit-Fetch/pkg/export"
	"github.com/akashpandey/Reddit-Fetch/pkg/logger"
	"github.com/akashpandey/Reddit-Fetch/pkg/reddit"
	"github.com/akashpandey/Reddit-Fetch/pkg/syncer"
	"github.com/akashpandey/Reddit-Fetch/pkg/tokens"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// savedListing is a mutable fake of the saved-items endpoint. Items are
// held newest first, like Reddit returns them.
type savedListing struct {
	mu    sync.Mutex
	items []map[string]interface{}
}

func (s *savedListing) saveNew(fullname, title string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry := map[string]interface{}{
		"kind": "t3",
		"data": map[string]interface{}{
			"name":  fullname,
			"title": title,
			"url":   "https://example.com/" + fullname,
		},
	}
	s.items = append([]map[string]interface{}{entry}, s.items...)
}

func (s *savedListing) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()

		assert.Equal(t, "bearer test-token", r.Header.Get("Authorization"))

		// Single page; pagination is covered by the fetcher tests.
		body := map[string]interface{}{
			"kind": "Listing",
			"data": map[string]interface{}{
				"after":    "",
				"children": s.items,
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(body) //nolint:errcheck
	}
}

// newTestEngine wires real components against the fake endpoint, with all
// state under dir.
func newTestEngine(t *testing.T, serverURL, dir string) *Engine {
	t.Helper()
	log := logger.NewTestLogger()

	tokenStore, err := tokens.NewFileStore(filepath.Join(dir, "tokens.json"))
	require.NoError(t, err)
	require.NoError(t, tokenStore.Save(&tokens.AuthToken{
		AccessToken:  "test-token",
		RefreshToken: "refresh",
		ExpiresAt:    time.Now().Add(time.Hour).Unix(),
	}))

	manager := tokens.NewManager(tokens.ManagerOptions{
		Store:        tokenStore,
		ClientID:     "id",
		ClientSecret: "secret",
		UserAgent:    "redditfetch tests",
		Logger:       log,
	})

	fetcher := reddit.NewPageFetcher(reddit.FetcherOptions{
		Client:      reddit.NewClient(5*time.Second, "redditfetch tests", log),
		Tokens:      manager,
		Username:    "gopher",
		BaseURL:     serverURL,
		MaxAttempts: 2,
		BaseDelay:   time.Millisecond,
		Logger:      log,
	})

	boundaryStore, err := syncer.NewFileBoundaryStore(filepath.Join(dir, "last_fetch.json"))
	require.NoError(t, err)

	exporter, err := export.NewExporter(dir, log)
	require.NoError(t, err)

	return NewWithComponents(syncer.NewCoordinator(fetcher, boundaryStore, log), exporter, log)
}

func readArtifact(t *testing.T, dir string) []reddit.SavedItem {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, export.JSONArtifact))
	require.NoError(t, err)
	var items []reddit.SavedItem
	require.NoError(t, json.Unmarshal(data, &items))
	return items
}

func TestEngineIncrementalRuns(t *testing.T) {
	listing := &savedListing{}
	listing.saveNew("t3_1", "first")
	listing.saveNew("t3_2", "second")

	server := httptest.NewServer(listing.handler(t))
	defer server.Close()

	dir := t.TempDir()
	eng := newTestEngine(t, server.URL, dir)
	ctx := context.Background()

	// First run retrieves everything, oldest first.
	result, err := eng.Run(ctx, Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, result.NewCount)

	items := readArtifact(t, dir)
	require.Len(t, items, 2)
	assert.Equal(t, "t3_1", items[0].Fullname)
	assert.Equal(t, "t3_2", items[1].Fullname)

	// Immediate re-run is a no-op.
	result, err = eng.Run(ctx, Options{})
	require.NoError(t, err)
	assert.Equal(t, 0, result.NewCount)
	assert.Len(t, readArtifact(t, dir), 2)

	// A newly saved item is picked up and appended.
	listing.saveNew("t3_3", "third")
	result, err = eng.Run(ctx, Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, result.NewCount)

	items = readArtifact(t, dir)
	require.Len(t, items, 3)
	assert.Equal(t, "t3_3", items[2].Fullname)
}

func TestEngineFailedRunLeavesStateUntouched(t *testing.T) {
	listing := &savedListing{}
	listing.saveNew("t3_1", "first")

	calls := 0
	var failing http.HandlerFunc = func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls > 1 {
			// Later runs always fail.
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		listing.handler(t)(w, r)
	}

	server := httptest.NewServer(failing)
	defer server.Close()

	dir := t.TempDir()
	eng := newTestEngine(t, server.URL, dir)
	ctx := context.Background()

	_, err := eng.Run(ctx, Options{})
	require.NoError(t, err)

	boundaryBefore, err := os.ReadFile(filepath.Join(dir, "last_fetch.json"))
	require.NoError(t, err)
	artifactBefore := readArtifact(t, dir)

	// The failing run must not move the boundary or touch the artifact.
	_, err = eng.Run(ctx, Options{})
	require.Error(t, err)

	boundaryAfter, err := os.ReadFile(filepath.Join(dir, "last_fetch.json"))
	require.NoError(t, err)
	assert.Equal(t, string(boundaryBefore), string(boundaryAfter))
	assert.Equal(t, artifactBefore, readArtifact(t, dir))
}

func TestEngineForceRebuildsArtifact(t *testing.T) {
	listing := &savedListing{}
	listing.saveNew("t3_1", "first")

	server := httptest.NewServer(listing.handler(t))
	defer server.Close()

	dir := t.TempDir()
	eng := newTestEngine(t, server.URL, dir)
	ctx := context.Background()

	_, err := eng.Run(ctx, Options{})
	require.NoError(t, err)

	// Plant a stale entry that is no longer in the listing; a forced run
	// rebuilds the artifact from the listing alone.
	stale := append(readArtifact(t, dir), reddit.SavedItem{Fullname: "t3_stale", Title: "gone"})
	data, err := json.MarshalIndent(stale, "", "  ")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, export.JSONArtifact), data, 0o644))

	result, err := eng.Run(ctx, Options{ForceFetch: true})
	require.NoError(t, err)
	assert.Equal(t, 1, result.NewCount)

	items := readArtifact(t, dir)
	require.Len(t, items, 1)
	assert.Equal(t, "t3_1", items[0].Fullname)
}
