package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/vitrine/internal/domain/catalog"
)

const productColumns = `id, name, sku, value, price_cash, price_card, promo_value, promo_until,
	stock, sizes, colors, variations, images, category, description, status, max_installments`

const (
	getConfigSQL = `SELECT id, name, whatsapp, currency, delivery_note, delivery_fee, theme, last_update
		FROM stores WHERE id = $1`

	getProductSQL = `SELECT ` + productColumns + `
		FROM products WHERE store_id = $1 AND id = $2`

	lockProductSQL = getProductSQL + ` FOR UPDATE`

	listActiveProductsSQL = `SELECT ` + productColumns + `
		FROM products WHERE store_id = $1 AND status = 'active' ORDER BY name, id`

	listBannersSQL = `SELECT id, title, subtitle, image, link, position
		FROM banners WHERE store_id = $1 ORDER BY position, id`
)

var _ catalog.Repository = (*CatalogRepository)(nil)

// CatalogRepository implements catalog.Repository backed by PostgreSQL.
type CatalogRepository struct {
	pool *pgxpool.Pool
}

// NewCatalogRepository returns a CatalogRepository that uses the given pool.
func NewCatalogRepository(pool *pgxpool.Pool) *CatalogRepository {
	return &CatalogRepository{pool: pool}
}

// GetConfig returns the configuration document of a store.
func (r *CatalogRepository) GetConfig(ctx context.Context, storeID string) (*catalog.StoreConfig, error) {
	var c catalog.StoreConfig
	err := r.pool.QueryRow(ctx, getConfigSQL, storeID).Scan(
		&c.StoreID, &c.Name, &c.WhatsApp, &c.Currency, &c.DeliveryNote, &c.DeliveryFee, &c.Theme, &c.LastUpdate,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrStoreNotFound
		}
		return nil, fmt.Errorf("getting config of store %q: %w", storeID, err)
	}
	return &c, nil
}

// GetProduct returns a single product by its identifier.
func (r *CatalogRepository) GetProduct(ctx context.Context, storeID, productID string) (*catalog.Product, error) {
	return getProduct(ctx, r.pool, getProductSQL, storeID, productID)
}

// ListActiveProducts returns the listed products of a store.
func (r *CatalogRepository) ListActiveProducts(ctx context.Context, storeID string) ([]catalog.Product, error) {
	rows, err := r.pool.Query(ctx, listActiveProductsSQL, storeID)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// ListBanners returns the hero cards of a store in display order.
func (r *CatalogRepository) ListBanners(ctx context.Context, storeID string) ([]catalog.Banner, error) {
	rows, err := r.pool.Query(ctx, listBannersSQL, storeID)
	if err != nil {
		return nil, fmt.Errorf("listing banners: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (catalog.Banner, error) {
		var b catalog.Banner
		err := row.Scan(&b.ID, &b.Title, &b.Subtitle, &b.Image, &b.Link, &b.Position)
		return b, err
	})
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func getProduct(ctx context.Context, q querier, sql, storeID, productID string) (*catalog.Product, error) {
	rows, err := q.Query(ctx, sql, storeID, productID)
	if err != nil {
		return nil, fmt.Errorf("getting product %q: %w", productID, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrProductNotFound
		}
		return nil, fmt.Errorf("getting product %q: %w", productID, err)
	}
	return &p, nil
}

func scanProduct(row pgx.CollectableRow) (catalog.Product, error) {
	var p catalog.Product
	err := row.Scan(
		&p.ID, &p.Name, &p.SKU, &p.Value, &p.PriceCash, &p.PriceCard, &p.PromoValue, &p.PromoUntil,
		&p.Stock, &p.Sizes, &p.Colors, &p.Variations, &p.Images, &p.Category, &p.Description,
		&p.Status, &p.MaxInstallments,
	)
	return p, err
}
