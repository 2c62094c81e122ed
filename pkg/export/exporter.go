package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	errs "github.com/akashpandey/Reddit-Fetch/pkg/errors"
	"github.com/akashpandey/Reddit-Fetch/pkg/logger"
	"github.com/akashpandey/Reddit-Fetch/pkg/reddit"
)

// Output formats.
const (
	FormatJSON = "json"
	FormatHTML = "html"
)

// Artifact file names inside the output directory.
const (
	JSONArtifact = "saved_posts.json"
	HTMLArtifact = "saved_posts.html"
)

// Exporter owns the persisted collection artifact. The JSON collection is
// canonical; the HTML page is rendered from the merged collection when
// that format is selected.
type Exporter struct {
	dir    string
	logger logger.Logger
}

// NewExporter creates an exporter writing into dir.
func NewExporter(dir string, log logger.Logger) (*Exporter, error) {
	if log == nil {
		log = logger.GetLogger()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &Exporter{dir: dir, logger: log}, nil
}

// JSONPath returns the canonical collection file path.
func (e *Exporter) JSONPath() string {
	return filepath.Join(e.dir, JSONArtifact)
}

// HTMLPath returns the rendered page path.
func (e *Exporter) HTMLPath() string {
	return filepath.Join(e.dir, HTMLArtifact)
}

// MergeAndWrite merges newItems into the existing collection and writes
// the artifact(s). In replace mode the prior collection is discarded and
// the artifact fully rewritten. Returns the number of items actually
// added after dedup.
func (e *Exporter) MergeAndWrite(newItems []reddit.SavedItem, format string, replace bool) (int, error) {
	existing, err := e.loadExisting(replace)
	if err != nil {
		return 0, err
	}

	merged, added := merge(existing, newItems)

	if err := e.writeJSON(merged); err != nil {
		return 0, err
	}

	if format == FormatHTML {
		if err := e.writeHTML(merged); err != nil {
			return 0, err
		}
	}

	e.logger.InfoWithFields("export written", map[string]interface{}{
		"format": format,
		"total":  len(merged),
		"added":  added,
	})

	return added, nil
}

// loadExisting parses the prior collection. Absent means empty; a
// malformed artifact aborts the run rather than risking silent data loss
// on the rewrite.
func (e *Exporter) loadExisting(replace bool) ([]reddit.SavedItem, error) {
	if replace {
		return nil, nil
	}

	data, err := os.ReadFile(e.JSONPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read export artifact: %w", err)
	}

	var items []reddit.SavedItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, errs.Wrap(errs.KindStateCorrupt, 0, err,
			fmt.Sprintf("export artifact %s is malformed", e.JSONPath()))
	}

	return items, nil
}

// merge appends newItems after the existing entries, preserving their
// relative order and deduplicating by fullname. The first-seen copy wins.
func merge(existing, newItems []reddit.SavedItem) ([]reddit.SavedItem, int) {
	seen := make(map[string]bool, len(existing)+len(newItems))
	merged := make([]reddit.SavedItem, 0, len(existing)+len(newItems))

	for _, item := range existing {
		if item.Fullname == "" || seen[item.Fullname] {
			continue
		}
		seen[item.Fullname] = true
		merged = append(merged, item)
	}

	added := 0
	for _, item := range newItems {
		if item.Fullname == "" || seen[item.Fullname] {
			continue
		}
		seen[item.Fullname] = true
		merged = append(merged, item)
		added++
	}

	return merged, added
}

// writeJSON writes the collection atomically via temp file and rename so
// a failed write never leaves a truncated artifact.
func (e *Exporter) writeJSON(items []reddit.SavedItem) error {
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode collection: %w", err)
	}

	return e.writeAtomic(e.JSONPath(), data)
}

func (e *Exporter) writeAtomic(path string, data []byte) error {
	tempPath := path + ".tmp"
	file, err := os.OpenFile(tempPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}

	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to write artifact: %w", err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync artifact: %w", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close artifact: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace artifact: %w", err)
	}

	return nil
}
