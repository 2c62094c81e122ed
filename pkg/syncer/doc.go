// Package syncer implements incremental synchronization over the saved
// items listing.
//
// The Coordinator consumes listing pages in descending chronological
// order and stops at the exact item recorded by the previous run's
// boundary, returning only the newer items (oldest first). The boundary
// is persisted only after the whole run, including the export, has
// succeeded.
package syncer
