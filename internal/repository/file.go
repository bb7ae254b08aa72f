package repository

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/chanomhub/gamedl/internal/download"
)

// FileStore keeps the registry as one JSON document. Every save writes a
// temporary file next to the target and renames it over the previous copy.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Path() string {
	return s.path
}

// LoadDownloads reads the snapshot. A missing or empty file is an empty registry.
func (s *FileStore) LoadDownloads() (map[string]download.Record, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]download.Record), nil
		}

		return nil, fmt.Errorf("failed to read active downloads file: %w", err)
	}

	if len(b) == 0 {
		return make(map[string]download.Record), nil
	}

	var snap Snapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		return nil, fmt.Errorf("failed to parse active downloads file: %w", err)
	}

	return withIDs(snap.Downloads), nil
}

func (s *FileStore) SaveDownloads(downloads map[string]download.Record) error {
	if downloads == nil {
		downloads = make(map[string]download.Record)
	}

	data, err := json.MarshalIndent(Snapshot{Downloads: downloads}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize active downloads: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create state dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+"-*")
	if err != nil {
		return fmt.Errorf("failed to create active downloads file: %w", err)
	}
	tmpName := tmp.Name()

	cleanup := func(err error) error {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}

	if _, err := tmp.Write(data); err != nil {
		return cleanup(fmt.Errorf("failed to write active downloads file: %w", err))
	}

	if err := tmp.Sync(); err != nil {
		return cleanup(fmt.Errorf("failed to sync active downloads file: %w", err))
	}

	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close active downloads file: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to replace active downloads file: %w", err)
	}

	return nil
}
