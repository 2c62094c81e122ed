package syncer

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	errs "github.com/akashpandey/Reddit-Fetch/pkg/errors"
)

// Boundary marks sync progress: the fullname of the newest item observed
// in the prior run and the time of that run. Absent on first run.
type Boundary struct {
	LastFullname  string `json:"last_fullname"`
	LastFetchedAt int64  `json:"last_fetched_at"`
}

// BoundaryStore persists the sync boundary. Load returns (nil, nil) when
// no boundary exists yet.
type BoundaryStore interface {
	Load() (*Boundary, error)
	Save(boundary *Boundary) error
}

// FileBoundaryStore keeps the boundary in a JSON file (last_fetch.json).
type FileBoundaryStore struct {
	path string
}

// NewFileBoundaryStore creates a file-backed boundary store at path.
func NewFileBoundaryStore(path string) (*FileBoundaryStore, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create state directory: %w", err)
		}
	}
	return &FileBoundaryStore{path: path}, nil
}

// Load reads the persisted boundary. A malformed file is state corruption:
// the run aborts rather than guessing where the last sync stopped.
func (s *FileBoundaryStore) Load() (*Boundary, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read boundary file: %w", err)
	}

	var boundary Boundary
	if err := json.Unmarshal(data, &boundary); err != nil {
		return nil, errs.Wrap(errs.KindStateCorrupt, 0, err, fmt.Sprintf("boundary file %s is malformed", s.path))
	}
	if boundary.LastFullname == "" {
		return nil, errs.New(errs.KindStateCorrupt, 0, "boundary file %s has no last fullname", s.path)
	}

	return &boundary, nil
}

// Save writes the boundary atomically via temp file and rename.
func (s *FileBoundaryStore) Save(boundary *Boundary) error {
	data, err := json.MarshalIndent(boundary, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode boundary: %w", err)
	}

	tempPath := s.path + ".tmp"
	file, err := os.OpenFile(tempPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create temporary boundary file: %w", err)
	}

	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to write boundary file: %w", err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync boundary file: %w", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close boundary file: %w", err)
	}

	if err := os.Rename(tempPath, s.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace boundary file: %w", err)
	}

	return nil
}
