// Package filecache keeps catalog bundles as one JSON file per store.
package filecache

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/go-faster/errors"

	"github.com/xenking/vitrine/internal/domain/bundle"
	"github.com/xenking/vitrine/internal/domain/catalog"
)

var _ bundle.Store = (*BundleStore)(nil)

// BundleStore implements bundle.Store on the local filesystem. Writes go to
// a temporary file that is renamed over the previous bundle, so readers
// never observe a partial file.
type BundleStore struct {
	dir string
}

// NewBundleStore returns a BundleStore rooted at dir, creating it if needed.
func NewBundleStore(dir string) (*BundleStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache dir: %w", err)
	}
	return &BundleStore{dir: dir}, nil
}

func (s *BundleStore) path(storeID string) (string, error) {
	if !catalog.ValidStoreID(storeID) {
		return "", errors.Errorf("invalid store id %q", storeID)
	}
	return filepath.Join(s.dir, storeID+".json"), nil
}

// Load reads the bundle file of storeID.
func (s *BundleStore) Load(_ context.Context, storeID string) (*bundle.Bundle, error) {
	p, err := s.path(storeID)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, bundle.ErrNotCached
	}
	if err != nil {
		return nil, fmt.Errorf("reading bundle: %w", err)
	}
	return bundle.Decode(data)
}

// Save writes the bundle file of storeID atomically.
func (s *BundleStore) Save(_ context.Context, storeID string, b *bundle.Bundle) error {
	p, err := s.path(storeID)
	if err != nil {
		return err
	}
	data, err := bundle.Encode(b)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, storeID+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing bundle: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("syncing bundle: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing bundle: %w", err)
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		return fmt.Errorf("replacing bundle: %w", err)
	}
	return nil
}
