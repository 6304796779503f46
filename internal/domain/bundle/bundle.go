// Package bundle serves the storefront catalog from a per-store cache that
// is refreshed only when the authoritative store reports a newer config.
package bundle

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/vitrine/internal/domain"
	"github.com/xenking/vitrine/internal/domain/catalog"
)

// Cache errors.
var (
	ErrNotCached = errors.New("bundle not cached")
	ErrCorrupt   = errors.New("bundle cache corrupt")
)

// Bundle is everything the storefront needs to render a store.
type Bundle struct {
	Config   catalog.StoreConfig
	Banners  []catalog.Banner
	Products []catalog.Product
	SyncedAt time.Time
}

// Timestamp is the config modification time the bundle was built from.
func (b *Bundle) Timestamp() time.Time {
	return b.Config.LastUpdate
}

// Product returns the cached product with id.
func (b *Bundle) Product(id string) (*catalog.Product, bool) {
	for i := range b.Products {
		if b.Products[i].ID == id {
			return &b.Products[i], true
		}
	}
	return nil, false
}

// Source reads the pieces of a bundle from the authoritative store.
type Source interface {
	GetConfig(ctx context.Context, storeID string) (*catalog.StoreConfig, error)
	ListBanners(ctx context.Context, storeID string) ([]catalog.Banner, error)
	ListActiveProducts(ctx context.Context, storeID string) ([]catalog.Product, error)
}

// Store persists one bundle per store. Load returns ErrNotCached when there
// is nothing stored and ErrCorrupt when the stored blob cannot be decoded.
type Store interface {
	Load(ctx context.Context, storeID string) (*Bundle, error)
	Save(ctx context.Context, storeID string, b *Bundle) error
}

// Gateway returns cached bundles, rebuilding them when stale.
type Gateway struct {
	source Source
	store  Store
	now    func() time.Time
}

// NewGateway creates a Gateway.
func NewGateway(source Source, store Store) *Gateway {
	return &Gateway{source: source, store: store, now: time.Now}
}

// Get returns the bundle of storeID. The config document is always read;
// banners and products are only read when there is no usable cache, the
// caller forces a refresh, or the config is newer than the cached copy.
func (g *Gateway) Get(ctx context.Context, storeID string, force bool) (*Bundle, error) {
	lg := zctx.From(ctx).With(zap.String("store_id", storeID))

	cached, err := g.store.Load(ctx, storeID)
	switch {
	case err == nil:
	case errors.Is(err, ErrNotCached):
		cached = nil
	case errors.Is(err, ErrCorrupt):
		lg.Warn("Bundle cache corrupt, rebuilding", zap.Error(err))
		cached = nil
	default:
		lg.Warn("Bundle cache unreadable, rebuilding", zap.Error(err))
		cached = nil
	}

	cfg, err := g.source.GetConfig(ctx, storeID)
	if err != nil {
		if errors.Is(err, catalog.ErrStoreNotFound) {
			return nil, err
		}
		if cached != nil && !force {
			lg.Warn("Config read failed, serving cached bundle", zap.Error(err))
			return cached, nil
		}
		return nil, domain.Unavailable("read store config", err)
	}

	if cached != nil && !force && !cfg.LastUpdate.After(cached.Timestamp()) {
		return cached, nil
	}

	fresh, err := g.build(ctx, storeID, cfg)
	if err != nil {
		return nil, err
	}
	if err := g.store.Save(ctx, storeID, fresh); err != nil {
		lg.Warn("Save bundle failed", zap.Error(err))
	}
	lg.Info("Bundle refreshed",
		zap.Int("products", len(fresh.Products)),
		zap.Int("banners", len(fresh.Banners)),
		zap.Bool("forced", force),
	)
	return fresh, nil
}

func (g *Gateway) build(ctx context.Context, storeID string, cfg *catalog.StoreConfig) (*Bundle, error) {
	var (
		banners  []catalog.Banner
		products []catalog.Product
	)
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		banners, err = g.source.ListBanners(egCtx, storeID)
		return domain.Unavailable("list banners", err)
	})
	eg.Go(func() error {
		var err error
		products, err = g.source.ListActiveProducts(egCtx, storeID)
		return domain.Unavailable("list products", err)
	})
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	if banners == nil {
		banners = []catalog.Banner{}
	}
	if products == nil {
		products = []catalog.Product{}
	}
	return &Bundle{
		Config:   *cfg,
		Banners:  banners,
		Products: products,
		SyncedAt: g.now().UTC(),
	}, nil
}

// Search returns the cached products matching term.
func (b *Bundle) Search(term string) []catalog.Product {
	return catalog.Search(b.Products, term)
}
