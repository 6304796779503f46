package filecache

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/vitrine/internal/domain/bundle"
	"github.com/xenking/vitrine/internal/domain/catalog"
)

func TestBundleStore(t *testing.T) {
	dir := t.TempDir()
	s, err := NewBundleStore(filepath.Join(dir, "data"))
	require.NoError(t, err)
	ctx := context.Background()

	_, err = s.Load(ctx, "loja")
	require.ErrorIs(t, err, bundle.ErrNotCached)

	in := &bundle.Bundle{
		Config:   catalog.StoreConfig{StoreID: "loja", LastUpdate: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)},
		Products: []catalog.Product{{ID: "mug", Name: "Caneca"}},
		SyncedAt: time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC),
	}
	require.NoError(t, s.Save(ctx, "loja", in))

	out, err := s.Load(ctx, "loja")
	require.NoError(t, err)
	assert.True(t, in.Timestamp().Equal(out.Timestamp()))
	require.Len(t, out.Products, 1)

	entries, err := os.ReadDir(filepath.Join(dir, "data"))
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp files must not be left behind")
	assert.Equal(t, "loja.json", entries[0].Name())
}

func TestBundleStore_Corrupt(t *testing.T) {
	dir := t.TempDir()
	s, err := NewBundleStore(dir)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "loja.json"), []byte("{not json"), 0o644))

	_, err = s.Load(context.Background(), "loja")
	require.ErrorIs(t, err, bundle.ErrCorrupt)
}

func TestBundleStore_RejectsPathTraversal(t *testing.T) {
	s, err := NewBundleStore(t.TempDir())
	require.NoError(t, err)

	_, err = s.Load(context.Background(), "../etc/passwd")
	require.Error(t, err)
	assert.NotErrorIs(t, err, bundle.ErrNotCached)
}
