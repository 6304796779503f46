package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	pgzip "github.com/klauspost/pgzip"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/vitrine/internal/domain/catalog"
	"github.com/xenking/vitrine/internal/storage/postgres"
)

const (
	defaultCapacity = 1_000_000
	defaultFPR      = 0.001
	defaultBatch    = 500
	progressEvery   = 100_000
	maxLineSize     = 1 << 20
)

// productWriter is the subset of the catalog repository the importer needs.
type productWriter interface {
	UpsertProducts(ctx context.Context, storeID string, products []catalog.Product) error
}

type importer struct {
	files    []string
	storeID  string
	batch    int
	capacity uint
	fpr      float64
	out      productWriter
}

type importStats struct {
	read     int
	written  int
	replaced int
	deferred int
}

func main() {
	var (
		dataDir     string
		pattern     string
		storeID     string
		databaseURL string
		batch       int
		capacity    uint
		fpr         float64
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing catalog export files")
	flag.StringVar(&pattern, "pattern", "*.ndjson.gz", "glob of gzip NDJSON product files, applied in name order")
	flag.StringVar(&storeID, "store", "", "target store id")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.IntVar(&batch, "batch", defaultBatch, "products per upsert batch")
	flag.UintVar(&capacity, "capacity", defaultCapacity, "expected products per file")
	flag.Float64Var(&fpr, "fpr", defaultFPR, "bloom filter false positive rate")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if !catalog.ValidStoreID(storeID) {
		slog.Error("a valid --store is required", slog.String("store", storeID))
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, dataDir, pattern, storeID, databaseURL, batch, capacity, fpr); err != nil {
		slog.Error("catalog import failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("catalog import completed successfully")
}

func run(ctx context.Context, dataDir, pattern, storeID, databaseURL string, batch int, capacity uint, fpr float64) error {
	files, err := filepath.Glob(filepath.Join(dataDir, pattern))
	if err != nil {
		return errors.Wrap(err, "match files")
	}
	if len(files) == 0 {
		return errors.Errorf("no files match %s in %s", pattern, dataDir)
	}

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	imp := &importer{
		files:    files,
		storeID:  storeID,
		batch:    batch,
		capacity: capacity,
		fpr:      fpr,
		out:      postgres.NewCatalogRepository(pool),
	}
	stats, err := imp.Run(ctx)
	if err != nil {
		return err
	}

	slog.Info("import summary",
		slog.Int("read", stats.read),
		slog.Int("written", stats.written),
		slog.Int("replaced", stats.replaced),
		slog.Int("deferred", stats.deferred),
	)
	return nil
}

// Run imports every file in order. When a product id appears in more than
// one file the version from the last file wins. Products whose id may occur
// in a later file are held back until all files are read; everything else is
// written as soon as a batch fills.
func (imp *importer) Run(ctx context.Context) (importStats, error) {
	var stats importStats
	if imp.batch <= 0 {
		imp.batch = defaultBatch
	}

	slog.Info("pass 1: building bloom filters", slog.Int("files", len(imp.files)))

	filters, err := imp.buildBloomFilters(ctx)
	if err != nil {
		return stats, errors.Wrap(err, "build bloom filters")
	}

	slog.Info("pass 2: writing products")

	deferred := make(map[string]catalog.Product)
	pending := make([]catalog.Product, 0, imp.batch)
	flush := func() error {
		if len(pending) == 0 {
			return nil
		}
		if err := imp.out.UpsertProducts(ctx, imp.storeID, pending); err != nil {
			return errors.Wrap(err, "upsert products")
		}
		stats.written += len(pending)
		pending = pending[:0]
		return nil
	}

	for i, path := range imp.files {
		later := filters[i+1:]
		err := streamGzFile(ctx, path, func(line []byte) error {
			var p catalog.Product
			if err := json.Unmarshal(line, &p); err != nil {
				return errors.Wrap(err, "decode product")
			}
			if p.ID == "" {
				return nil
			}
			stats.read++
			if stats.read%progressEvery == 0 {
				slog.Info("pass 2 progress", slog.Int("file", i+1), slog.Int("products", stats.read))
			}

			if _, ok := deferred[p.ID]; ok {
				stats.replaced++
				delete(deferred, p.ID)
			}
			if mayContain(later, p.ID) {
				deferred[p.ID] = p
				return nil
			}
			pending = append(pending, p)
			if len(pending) >= imp.batch {
				return flush()
			}
			return nil
		})
		if err != nil {
			return stats, errors.Wrapf(err, "import file %d", i+1)
		}
	}

	stats.deferred = len(deferred)
	for _, p := range deferred {
		pending = append(pending, p)
		if len(pending) >= imp.batch {
			if err := flush(); err != nil {
				return stats, err
			}
		}
	}
	if err := flush(); err != nil {
		return stats, err
	}
	return stats, nil
}

func mayContain(filters []*bloom.BloomFilter, id string) bool {
	for _, f := range filters {
		if f.TestString(id) {
			return true
		}
	}
	return false
}

// buildBloomFilters creates one bloom filter of product ids per file,
// concurrently.
func (imp *importer) buildBloomFilters(ctx context.Context) ([]*bloom.BloomFilter, error) {
	filters := make([]*bloom.BloomFilter, len(imp.files))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range imp.files {
		g.Go(func() error {
			filter := bloom.NewWithEstimates(imp.capacity, imp.fpr)
			var count int

			if err := streamGzFile(ctx, path, func(line []byte) error {
				id, err := productID(line)
				if err != nil {
					return err
				}
				if id != "" {
					filter.AddString(id)
					count++
				}
				return nil
			}); err != nil {
				return errors.Wrapf(err, "build filter for file %d", i+1)
			}

			slog.Info("pass 1 complete", slog.Int("file", i+1), slog.Int("products", count))
			filters[i] = filter
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return filters, nil
}

// productID reads only the "id" field of a product line.
func productID(line []byte) (string, error) {
	var id string
	err := jx.DecodeBytes(line).ObjBytes(func(d *jx.Decoder, key []byte) error {
		if string(key) != "id" {
			return d.Skip()
		}
		s, err := d.Str()
		id = s
		return err
	})
	if err != nil {
		return "", errors.Wrap(err, "read product id")
	}
	return id, nil
}

// streamGzFile opens a gzip-compressed file and calls fn for each non-empty
// line. The line slice is only valid during the call.
func streamGzFile(ctx context.Context, path string, fn func(line []byte) error) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	scanner := bufio.NewScanner(gz)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	for line := 1; scanner.Scan(); line++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if len(scanner.Bytes()) == 0 {
			continue
		}
		if err := fn(scanner.Bytes()); err != nil {
			return errors.Wrapf(err, "%s:%d", path, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}
	return nil
}
