package syncer

import (
	"context"
	"testing"

	errs "github.com/akashpandey/Reddit-Fetch/pkg/errors"
	"github.com/akashpandey/Reddit-Fetch/pkg/logger"
	"github.com/akashpandey/Reddit-Fetch/pkg/reddit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePageSource serves a fixed sequence of pages keyed by cursor.
type fakePageSource struct {
	pages map[string]*reddit.Page
	calls []string
	err   error
}

func (f *fakePageSource) FetchPage(ctx context.Context, after string) (*reddit.Page, error) {
	f.calls = append(f.calls, after)
	if f.err != nil {
		return nil, f.err
	}
	page, ok := f.pages[after]
	if !ok {
		return &reddit.Page{}, nil
	}
	return page, nil
}

// memBoundaryStore is an in-memory BoundaryStore recording saves.
type memBoundaryStore struct {
	boundary *Boundary
	loadErr  error
	saveErr  error
	saves    int
}

func (m *memBoundaryStore) Load() (*Boundary, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return m.boundary, nil
}

func (m *memBoundaryStore) Save(b *Boundary) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.boundary = b
	m.saves++
	return nil
}

func item(fullname string) reddit.SavedItem {
	return reddit.SavedItem{
		Fullname: fullname,
		Title:    "title " + fullname,
		Type:     reddit.KindPost,
	}
}

func fullnames(items []reddit.SavedItem) []string {
	names := make([]string, len(items))
	for i, it := range items {
		names[i] = it.Fullname
	}
	return names
}

func TestCollectNewFirstRunFetchesEverythingOldestFirst(t *testing.T) {
	// Reddit lists newest first: A, B, C across two pages.
	source := &fakePageSource{pages: map[string]*reddit.Page{
		"":     {Items: []reddit.SavedItem{item("t3_a"), item("t3_b")}, After: "t3_b"},
		"t3_b": {Items: []reddit.SavedItem{item("t3_c")}, After: ""},
	}}
	store := &memBoundaryStore{}
	c := NewCoordinator(source, store, logger.NewTestLogger())

	items, err := c.CollectNew(context.Background(), false)
	require.NoError(t, err)

	assert.Equal(t, []string{"t3_c", "t3_b", "t3_a"}, fullnames(items))
	assert.Equal(t, []string{"", "t3_b"}, source.calls)
}

func TestCollectNewStopsAtBoundary(t *testing.T) {
	source := &fakePageSource{pages: map[string]*reddit.Page{
		"": {Items: []reddit.SavedItem{item("t3_new2"), item("t3_new1"), item("t3_old")}, After: "t3_old"},
	}}
	store := &memBoundaryStore{boundary: &Boundary{LastFullname: "t3_old"}}
	c := NewCoordinator(source, store, logger.NewTestLogger())

	items, err := c.CollectNew(context.Background(), false)
	require.NoError(t, err)

	assert.Equal(t, []string{"t3_new1", "t3_new2"}, fullnames(items))
	// The boundary was found on the first page; no further pages fetched.
	assert.Len(t, source.calls, 1)
}

func TestCollectNewNothingNewReturnsEmpty(t *testing.T) {
	source := &fakePageSource{pages: map[string]*reddit.Page{
		"": {Items: []reddit.SavedItem{item("t3_old"), item("t3_older")}, After: "t3_older"},
	}}
	store := &memBoundaryStore{boundary: &Boundary{LastFullname: "t3_old"}}
	c := NewCoordinator(source, store, logger.NewTestLogger())

	items, err := c.CollectNew(context.Background(), false)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestCollectNewBoundaryMissExhaustsListing(t *testing.T) {
	// The boundary item was unsaved since the last run and never
	// reappears. Everything gets re-fetched rather than guessing.
	source := &fakePageSource{pages: map[string]*reddit.Page{
		"":     {Items: []reddit.SavedItem{item("t3_a"), item("t3_b")}, After: "t3_b"},
		"t3_b": {Items: []reddit.SavedItem{item("t3_c")}, After: ""},
	}}
	store := &memBoundaryStore{boundary: &Boundary{LastFullname: "t3_gone"}}
	log := logger.NewTestLogger()
	c := NewCoordinator(source, store, log)

	items, err := c.CollectNew(context.Background(), false)
	require.NoError(t, err)

	assert.Equal(t, []string{"t3_c", "t3_b", "t3_a"}, fullnames(items))
	assert.True(t, log.HasMessage("WARN", "boundary item not found in listing, fetched everything"))
}

func TestCollectNewForceIgnoresBoundary(t *testing.T) {
	source := &fakePageSource{pages: map[string]*reddit.Page{
		"": {Items: []reddit.SavedItem{item("t3_new"), item("t3_old")}, After: ""},
	}}
	store := &memBoundaryStore{boundary: &Boundary{LastFullname: "t3_old"}}
	c := NewCoordinator(source, store, logger.NewTestLogger())

	items, err := c.CollectNew(context.Background(), true)
	require.NoError(t, err)

	assert.Equal(t, []string{"t3_old", "t3_new"}, fullnames(items))
}

func TestCollectNewPropagatesFetchError(t *testing.T) {
	source := &fakePageSource{err: errs.New(errs.KindUnreachable, 0, "network down")}
	store := &memBoundaryStore{}
	c := NewCoordinator(source, store, logger.NewTestLogger())

	_, err := c.CollectNew(context.Background(), false)
	require.Error(t, err)
	assert.True(t, errs.IsKind(err, errs.KindUnreachable))
}

func TestCollectNewPropagatesCorruptBoundary(t *testing.T) {
	store := &memBoundaryStore{loadErr: errs.New(errs.KindStateCorrupt, 0, "bad file")}
	c := NewCoordinator(&fakePageSource{}, store, logger.NewTestLogger())

	_, err := c.CollectNew(context.Background(), false)
	require.Error(t, err)
	assert.True(t, errs.IsKind(err, errs.KindStateCorrupt))
}

func TestAdvancePersistsNewestFullname(t *testing.T) {
	store := &memBoundaryStore{}
	c := NewCoordinator(&fakePageSource{}, store, logger.NewTestLogger())

	// Oldest first, as CollectNew returns them; the newest is last.
	items := []reddit.SavedItem{item("t3_c"), item("t3_b"), item("t3_a")}
	require.NoError(t, c.Advance(items))

	require.NotNil(t, store.boundary)
	assert.Equal(t, "t3_a", store.boundary.LastFullname)
	assert.NotZero(t, store.boundary.LastFetchedAt)
	assert.Equal(t, 1, store.saves)
}

func TestAdvanceWithNoItemsLeavesBoundaryUntouched(t *testing.T) {
	existing := &Boundary{LastFullname: "t3_prev", LastFetchedAt: 12345}
	store := &memBoundaryStore{boundary: existing}
	c := NewCoordinator(&fakePageSource{}, store, logger.NewTestLogger())

	require.NoError(t, c.Advance(nil))

	assert.Equal(t, 0, store.saves)
	assert.Equal(t, existing, store.boundary)
}

func TestAdvancePropagatesSaveError(t *testing.T) {
	store := &memBoundaryStore{saveErr: assert.AnError}
	c := NewCoordinator(&fakePageSource{}, store, logger.NewTestLogger())

	err := c.Advance([]reddit.SavedItem{item("t3_a")})
	assert.ErrorIs(t, err, assert.AnError)
}
