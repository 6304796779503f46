package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/xenking/vitrine/internal/domain/catalog"
)

const (
	upsertStoreSQL = `INSERT INTO stores (id, name, whatsapp, currency, delivery_note, delivery_fee, theme, last_update)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			whatsapp = EXCLUDED.whatsapp,
			currency = EXCLUDED.currency,
			delivery_note = EXCLUDED.delivery_note,
			delivery_fee = EXCLUDED.delivery_fee,
			theme = EXCLUDED.theme,
			last_update = now()`

	upsertProductSQL = `INSERT INTO products (store_id, ` + productColumns + `, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, now())
		ON CONFLICT (store_id, id) DO UPDATE SET
			name = EXCLUDED.name,
			sku = EXCLUDED.sku,
			value = EXCLUDED.value,
			price_cash = EXCLUDED.price_cash,
			price_card = EXCLUDED.price_card,
			promo_value = EXCLUDED.promo_value,
			promo_until = EXCLUDED.promo_until,
			stock = EXCLUDED.stock,
			sizes = EXCLUDED.sizes,
			colors = EXCLUDED.colors,
			variations = EXCLUDED.variations,
			images = EXCLUDED.images,
			category = EXCLUDED.category,
			description = EXCLUDED.description,
			status = EXCLUDED.status,
			max_installments = EXCLUDED.max_installments,
			updated_at = now()`

	upsertBannerSQL = `INSERT INTO banners (store_id, id, title, subtitle, image, link, position)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (store_id, id) DO UPDATE SET
			title = EXCLUDED.title,
			subtitle = EXCLUDED.subtitle,
			image = EXCLUDED.image,
			link = EXCLUDED.link,
			position = EXCLUDED.position`

	touchStoreSQL = `UPDATE stores SET last_update = now() WHERE id = $1`
)

// UpsertStore creates or replaces a store configuration and marks it
// modified.
func (r *CatalogRepository) UpsertStore(ctx context.Context, c catalog.StoreConfig) error {
	theme := c.Theme
	if theme == nil {
		theme = map[string]any{}
	}
	_, err := r.pool.Exec(ctx, upsertStoreSQL, c.StoreID, c.Name, c.WhatsApp, c.Currency, c.DeliveryNote, c.DeliveryFee, theme)
	if err != nil {
		return fmt.Errorf("upserting store %q: %w", c.StoreID, err)
	}
	return nil
}

// UpsertProducts writes products in one batch and marks the store modified
// so cached bundles are rebuilt.
func (r *CatalogRepository) UpsertProducts(ctx context.Context, storeID string, products []catalog.Product) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, p := range products {
			batch.Queue(upsertProductSQL, productArgs(storeID, p)...)
		}
		batch.Queue(touchStoreSQL, storeID)
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("upserting products: %w", err)
		}
		return nil
	})
}

// UpsertBanners writes hero cards and marks the store modified.
func (r *CatalogRepository) UpsertBanners(ctx context.Context, storeID string, banners []catalog.Banner) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, b := range banners {
			batch.Queue(upsertBannerSQL, storeID, b.ID, b.Title, b.Subtitle, b.Image, b.Link, b.Position)
		}
		batch.Queue(touchStoreSQL, storeID)
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("upserting banners: %w", err)
		}
		return nil
	})
}

func productArgs(storeID string, p catalog.Product) []any {
	variations := p.Variations
	if variations == nil {
		variations = []catalog.Variation{}
	}
	status := p.Status
	if status == "" {
		status = catalog.StatusActive
	}
	return []any{
		storeID, p.ID, p.Name, p.SKU, p.Value, p.PriceCash, p.PriceCard, p.PromoValue, p.PromoUntil,
		p.Stock, nonNilStrings(p.Sizes), nonNilStrings(p.Colors), variations, nonNilStrings(p.Images),
		p.Category, p.Description, status, p.MaxInstallments,
	}
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
