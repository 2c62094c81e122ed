package tokens

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	errs "github.com/akashpandey/Reddit-Fetch/pkg/errors"
)

// FileStore keeps the credential record in a plain JSON file, the same
// tokens.json layout the authorization flow writes.
type FileStore struct {
	path string
}

// NewFileStore creates a file-backed token store at path.
func NewFileStore(path string) (*FileStore, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("failed to create token directory: %w", err)
		}
	}
	return &FileStore{path: path}, nil
}

// Load reads the persisted token. A missing file returns (nil, nil); a
// malformed file is state corruption and aborts the run.
func (s *FileStore) Load() (*AuthToken, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read token file: %w", err)
	}

	var token AuthToken
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, errs.Wrap(errs.KindStateCorrupt, 0, err, fmt.Sprintf("token file %s is malformed", s.path))
	}
	if token.RefreshToken == "" {
		return nil, errs.New(errs.KindStateCorrupt, 0, "token file %s has no refresh token", s.path)
	}

	return &token, nil
}

// Save writes the token atomically: write to a temp file, fsync, rename.
func (s *FileStore) Save(token *AuthToken) error {
	data, err := json.MarshalIndent(token, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}

	tempPath := s.path + ".tmp"
	file, err := os.OpenFile(tempPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("failed to create temporary token file: %w", err)
	}

	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to write token file: %w", err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync token file: %w", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close token file: %w", err)
	}

	if err := os.Rename(tempPath, s.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace token file: %w", err)
	}

	return nil
}

// Exists checks whether a token record is present.
func (s *FileStore) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}
