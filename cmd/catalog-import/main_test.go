package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	pgzip "github.com/klauspost/pgzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/vitrine/internal/domain/catalog"
)

func writeGz(t *testing.T, dir, name string, lines ...string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	gz := pgzip.NewWriter(f)
	_, err = gz.Write([]byte(strings.Join(lines, "\n") + "\n"))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())
	return path
}

func TestImporter_LastFileWins(t *testing.T) {
	dir := t.TempDir()
	files := []string{
		writeGz(t, dir, "1.ndjson.gz",
			`{"id":"a","name":"A v1","value":10,"stock":1,"status":"active"}`,
			`{"id":"b","name":"B v1","value":20,"stock":1,"status":"active"}`,
			``,
		),
		writeGz(t, dir, "2.ndjson.gz",
			`{"id":"b","name":"B v2","value":25,"stock":3,"status":"active"}`,
			`{"id":"c","name":"C v1","value":30,"stock":2,"status":"active"}`,
		),
	}

	out := &mockWriter{}
	imp := &importer{files: files, storeID: "demo", batch: 1, capacity: 100, fpr: 0.001, out: out}

	stats, err := imp.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 4, stats.read)
	assert.Equal(t, 3, stats.written)
	assert.Equal(t, 1, stats.replaced)

	final := out.final()
	require.Len(t, final, 3)
	assert.Equal(t, "A v1", final["a"].Name)
	assert.Equal(t, "B v2", final["b"].Name)
	assert.Equal(t, 3, final["b"].Stock)
	assert.Equal(t, "C v1", final["c"].Name)
	for _, storeID := range out.stores {
		assert.Equal(t, "demo", storeID)
	}
}

func TestImporter_BadLine(t *testing.T) {
	dir := t.TempDir()
	files := []string{writeGz(t, dir, "1.ndjson.gz", `{"id":"a"`)}

	imp := &importer{files: files, storeID: "demo", capacity: 10, fpr: 0.01, out: &mockWriter{}}

	_, err := imp.Run(context.Background())
	require.Error(t, err)
}

func TestProductID(t *testing.T) {
	tests := []struct {
		name string
		line string
		want string
	}{
		{name: "first field", line: `{"id":"x1","name":"X"}`, want: "x1"},
		{name: "after nested", line: `{"variations":[{"id":"v"}],"id":"x2"}`, want: "x2"},
		{name: "missing", line: `{"name":"X"}`, want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := productID([]byte(tt.line))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// --- Mock implementations ---

type mockWriter struct {
	batches [][]catalog.Product
	stores  []string
}

func (m *mockWriter) UpsertProducts(_ context.Context, storeID string, products []catalog.Product) error {
	m.batches = append(m.batches, append([]catalog.Product(nil), products...))
	m.stores = append(m.stores, storeID)
	return nil
}

// final replays the batches in write order.
func (m *mockWriter) final() map[string]catalog.Product {
	out := make(map[string]catalog.Product)
	for _, b := range m.batches {
		for _, p := range b {
			out[p.ID] = p
		}
	}
	return out
}
