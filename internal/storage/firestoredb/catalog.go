package firestoredb

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"github.com/go-faster/errors"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/xenking/vitrine/internal/domain/catalog"
)

var _ catalog.Repository = (*CatalogRepository)(nil)

// CatalogRepository implements catalog.Repository on Firestore.
type CatalogRepository struct {
	Client *firestore.Client
}

// NewCatalogRepository returns a CatalogRepository using client.
func NewCatalogRepository(client *firestore.Client) *CatalogRepository {
	return &CatalogRepository{Client: client}
}

func (r *CatalogRepository) configRef(storeID string) *firestore.DocumentRef {
	return store(r.Client, storeID).Collection(colConfig).Doc(docConfig)
}

// GetConfig reads stores/{id}/config/store.
func (r *CatalogRepository) GetConfig(ctx context.Context, storeID string) (*catalog.StoreConfig, error) {
	snap, err := r.configRef(storeID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, catalog.ErrStoreNotFound
		}
		return nil, fmt.Errorf("getting config of store %q: %w", storeID, err)
	}
	var d configDoc
	if err := snap.DataTo(&d); err != nil {
		return nil, fmt.Errorf("decoding config of store %q: %w", storeID, err)
	}
	return d.toDomain(storeID), nil
}

// GetProduct reads one product document.
func (r *CatalogRepository) GetProduct(ctx context.Context, storeID, productID string) (*catalog.Product, error) {
	snap, err := store(r.Client, storeID).Collection(colProducts).Doc(productID).Get(ctx)
	return decodeProduct(snap, err, productID)
}

func decodeProduct(snap *firestore.DocumentSnapshot, err error, productID string) (*catalog.Product, error) {
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, catalog.ErrProductNotFound
		}
		return nil, fmt.Errorf("getting product %q: %w", productID, err)
	}
	if !snap.Exists() {
		return nil, catalog.ErrProductNotFound
	}
	var d productDoc
	if err := snap.DataTo(&d); err != nil {
		return nil, fmt.Errorf("decoding product %q: %w", productID, err)
	}
	p := d.toDomain(snap.Ref.ID)
	return &p, nil
}

// ListActiveProducts queries products with status "active".
func (r *CatalogRepository) ListActiveProducts(ctx context.Context, storeID string) ([]catalog.Product, error) {
	iter := store(r.Client, storeID).Collection(colProducts).
		Where("status", "==", catalog.StatusActive).
		Documents(ctx)
	defer iter.Stop()

	var out []catalog.Product
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("listing products: %w", err)
		}
		var d productDoc
		if err := snap.DataTo(&d); err != nil {
			return nil, fmt.Errorf("decoding product %q: %w", snap.Ref.ID, err)
		}
		out = append(out, d.toDomain(snap.Ref.ID))
	}
	return out, nil
}

// ListBanners reads every hero card ordered by position.
func (r *CatalogRepository) ListBanners(ctx context.Context, storeID string) ([]catalog.Banner, error) {
	docs, err := store(r.Client, storeID).Collection(colBanners).
		OrderBy("position", firestore.Asc).
		Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("listing banners: %w", err)
	}
	out := make([]catalog.Banner, 0, len(docs))
	for _, snap := range docs {
		var d bannerDoc
		if err := snap.DataTo(&d); err != nil {
			return nil, fmt.Errorf("decoding banner %q: %w", snap.Ref.ID, err)
		}
		out = append(out, catalog.Banner{
			ID:       snap.Ref.ID,
			Title:    d.Title,
			Subtitle: d.Subtitle,
			Image:    d.Image,
			Link:     d.Link,
			Position: count(d.Position),
		})
	}
	return out, nil
}

// UpsertStore writes the config document with a server timestamp as
// lastUpdate.
func (r *CatalogRepository) UpsertStore(ctx context.Context, c catalog.StoreConfig) error {
	_, err := r.configRef(c.StoreID).Set(ctx, map[string]any{
		"name":         c.Name,
		"whatsapp":     c.WhatsApp,
		"currency":     c.Currency,
		"deliveryNote": c.DeliveryNote,
		"theme":        c.Theme,
		"lastUpdate":   firestore.ServerTimestamp,
	}, firestore.MergeAll)
	if err != nil {
		return fmt.Errorf("upserting store %q: %w", c.StoreID, err)
	}
	return nil
}

// UpsertProducts writes products and touches the config lastUpdate in one
// batch.
func (r *CatalogRepository) UpsertProducts(ctx context.Context, storeID string, products []catalog.Product) error {
	batch := r.Client.Batch()
	col := store(r.Client, storeID).Collection(colProducts)
	for _, p := range products {
		batch.Set(col.Doc(p.ID), productToDoc(p))
	}
	batch.Set(r.configRef(storeID), map[string]any{"lastUpdate": firestore.ServerTimestamp}, firestore.MergeAll)
	if _, err := batch.Commit(ctx); err != nil {
		return fmt.Errorf("upserting products: %w", err)
	}
	return nil
}
