package engine

import (
	"context"
	"testing"

	"github.com/akashpandey/Reddit-Fetch/pkg/logger"
	"github.com/akashpandey/Reddit-Fetch/pkg/reddit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCollector struct {
	items      []reddit.SavedItem
	collectErr error
	advanceErr error

	collectedForce bool
	collectCalls   int
	advanceCalls   int
	advancedWith   []reddit.SavedItem
}

func (f *fakeCollector) CollectNew(ctx context.Context, forceFullFetch bool) ([]reddit.SavedItem, error) {
	f.collectCalls++
	f.collectedForce = forceFullFetch
	return f.items, f.collectErr
}

func (f *fakeCollector) Advance(items []reddit.SavedItem) error {
	f.advanceCalls++
	f.advancedWith = items
	return f.advanceErr
}

type fakeExporter struct {
	added    int
	err      error
	calls    int
	items    []reddit.SavedItem
	format   string
	replaced bool
}

func (f *fakeExporter) MergeAndWrite(newItems []reddit.SavedItem, format string, replace bool) (int, error) {
	f.calls++
	f.items = newItems
	f.format = format
	f.replaced = replace
	return f.added, f.err
}

func items(names ...string) []reddit.SavedItem {
	out := make([]reddit.SavedItem, len(names))
	for i, name := range names {
		out[i] = reddit.SavedItem{Fullname: name}
	}
	return out
}

func TestRunHappyPath(t *testing.T) {
	collector := &fakeCollector{items: items("t3_a", "t3_b")}
	exporter := &fakeExporter{added: 2}
	eng := NewWithComponents(collector, exporter, logger.NewTestLogger())

	result, err := eng.Run(context.Background(), Options{Format: "json"})
	require.NoError(t, err)

	assert.Equal(t, 2, result.NewCount)
	assert.Len(t, result.Items, 2)
	assert.Equal(t, 1, exporter.calls)
	assert.Equal(t, "json", exporter.format)
	assert.False(t, exporter.replaced)

	// The boundary advanced with exactly the collected items.
	assert.Equal(t, 1, collector.advanceCalls)
	assert.Equal(t, collector.items, collector.advancedWith)
}

func TestRunDefaultsToJSON(t *testing.T) {
	collector := &fakeCollector{}
	exporter := &fakeExporter{}
	eng := NewWithComponents(collector, exporter, logger.NewTestLogger())

	_, err := eng.Run(context.Background(), Options{})
	require.NoError(t, err)
	assert.Equal(t, "json", exporter.format)
}

func TestRunRejectsUnknownFormat(t *testing.T) {
	collector := &fakeCollector{}
	eng := NewWithComponents(collector, &fakeExporter{}, logger.NewTestLogger())

	_, err := eng.Run(context.Background(), Options{Format: "xml"})
	require.Error(t, err)
	assert.Equal(t, 0, collector.collectCalls)
}

func TestRunForceFlowsThrough(t *testing.T) {
	collector := &fakeCollector{items: items("t3_a")}
	exporter := &fakeExporter{added: 1}
	eng := NewWithComponents(collector, exporter, logger.NewTestLogger())

	_, err := eng.Run(context.Background(), Options{Format: "html", ForceFetch: true})
	require.NoError(t, err)

	assert.True(t, collector.collectedForce)
	assert.True(t, exporter.replaced, "force rebuilds the artifact from scratch")
	assert.Equal(t, "html", exporter.format)
}

func TestRunCollectFailureSkipsExportAndAdvance(t *testing.T) {
	collector := &fakeCollector{collectErr: assert.AnError}
	exporter := &fakeExporter{}
	eng := NewWithComponents(collector, exporter, logger.NewTestLogger())

	_, err := eng.Run(context.Background(), Options{})
	require.ErrorIs(t, err, assert.AnError)

	assert.Equal(t, 0, exporter.calls)
	assert.Equal(t, 0, collector.advanceCalls)
}

func TestRunExportFailureSkipsAdvance(t *testing.T) {
	collector := &fakeCollector{items: items("t3_a")}
	exporter := &fakeExporter{err: assert.AnError}
	eng := NewWithComponents(collector, exporter, logger.NewTestLogger())

	_, err := eng.Run(context.Background(), Options{})
	require.ErrorIs(t, err, assert.AnError)

	// The boundary must not move past items that were never exported.
	assert.Equal(t, 0, collector.advanceCalls)
}

func TestRunAdvanceFailureSurfaces(t *testing.T) {
	collector := &fakeCollector{items: items("t3_a"), advanceErr: assert.AnError}
	eng := NewWithComponents(collector, &fakeExporter{added: 1}, logger.NewTestLogger())

	_, err := eng.Run(context.Background(), Options{})
	assert.ErrorIs(t, err, assert.AnError)
}

func TestRunNoNewItemsStillSucceeds(t *testing.T) {
	collector := &fakeCollector{}
	exporter := &fakeExporter{}
	eng := NewWithComponents(collector, exporter, logger.NewTestLogger())

	result, err := eng.Run(context.Background(), Options{})
	require.NoError(t, err)

	assert.Equal(t, 0, result.NewCount)
	// Advance still runs; with no items it leaves the boundary alone.
	assert.Equal(t, 1, collector.advanceCalls)
}
