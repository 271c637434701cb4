// Package archive exports ledger bundles to blob storage so a show's
// progression history can be snapshotted, audited offline, or handed to
// downstream analytics.
package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// StorageClient abstracts blob storage for ledger export bundles.
type StorageClient interface {
	PutExport(ctx context.Context, showID, exportID string, data []byte) error
	GetExport(ctx context.Context, showID, exportID string) ([]byte, error)
}

// LocalStorage implements StorageClient using the local filesystem.
// Useful for development and testing.
type LocalStorage struct {
	BaseDir string
}

// NewLocalStorage creates a LocalStorage rooted at the given directory.
func NewLocalStorage(baseDir string) *LocalStorage {
	return &LocalStorage{BaseDir: baseDir}
}

func (s *LocalStorage) path(showID, exportID string) string {
	return filepath.Join(s.BaseDir, showID, "exports", exportID+".json")
}

// PutExport stores an export bundle.
func (s *LocalStorage) PutExport(_ context.Context, showID, exportID string, data []byte) error {
	path := s.path(showID, exportID)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// GetExport retrieves an export bundle.
func (s *LocalStorage) GetExport(_ context.Context, showID, exportID string) ([]byte, error) {
	return os.ReadFile(s.path(showID, exportID))
}
