package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	studyshelf "github.com/tmuthoni/studyshelf"
)

var _ studyshelf.RegistrationStore = FileStore{}

// FileStore persists the registered ids as a JSON-encoded array in a single
// file, the same flat shape the mobile client keeps in device storage.
type FileStore struct {
	path string
}

func NewFileStore(path string) (FileStore, error) {
	if path == "" {
		return FileStore{}, errors.New("file store path cannot be empty")
	}

	return FileStore{path}, nil
}

func (f FileStore) SaveIDs(ctx context.Context, ids []string) error {
	if ids == nil {
		ids = []string{}
	}

	data, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("failed to encode ids: %w", err)
	}

	// write-then-rename so readers never observe a partial file
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(tmp), err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", filepath.Base(f.path), err)
	}

	return nil
}

func (f FileStore) LoadIDs(ctx context.Context) ([]string, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filepath.Base(f.path), err)
	}

	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, fmt.Errorf("failed to decode ids: %w", err)
	}

	return ids, nil
}
