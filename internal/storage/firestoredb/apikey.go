package firestoredb

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"

	"github.com/xenking/vitrine/internal/domain/auth"
)

var _ auth.Repository = (*APIKeyRepository)(nil)

type apiKeyDoc struct {
	KeyHash string   `firestore:"keyHash"`
	Name    string   `firestore:"name"`
	StoreID string   `firestore:"storeId"`
	Scopes  []string `firestore:"scopes"`
	Active  bool     `firestore:"active"`
}

// APIKeyRepository looks up API keys in the top-level api_keys collection.
type APIKeyRepository struct {
	Client *firestore.Client
}

// NewAPIKeyRepository returns an APIKeyRepository using client.
func NewAPIKeyRepository(client *firestore.Client) *APIKeyRepository {
	return &APIKeyRepository{Client: client}
}

// FindByHash looks up an active API key by its HMAC-SHA256 hash.
func (r *APIKeyRepository) FindByHash(ctx context.Context, hash string) (*auth.APIKeyInfo, error) {
	docs, err := r.Client.Collection(colAPIKeys).
		Where("keyHash", "==", hash).
		Where("active", "==", true).
		Limit(1).
		Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("finding api key by hash: %w", err)
	}
	if len(docs) == 0 {
		return nil, auth.ErrKeyNotFound
	}
	var d apiKeyDoc
	if err := docs[0].DataTo(&d); err != nil {
		return nil, fmt.Errorf("decoding api key %q: %w", docs[0].Ref.ID, err)
	}
	return &auth.APIKeyInfo{
		ID:      docs[0].Ref.ID,
		KeyHash: d.KeyHash,
		Name:    d.Name,
		StoreID: d.StoreID,
		Scopes:  d.Scopes,
	}, nil
}

// Upsert stores an API key document, reactivating it when it exists.
func (r *APIKeyRepository) Upsert(ctx context.Context, info auth.APIKeyInfo) error {
	_, err := r.Client.Collection(colAPIKeys).Doc(info.ID).Set(ctx, apiKeyDoc{
		KeyHash: info.KeyHash,
		Name:    info.Name,
		StoreID: info.StoreID,
		Scopes:  info.Scopes,
		Active:  true,
	})
	if err != nil {
		return fmt.Errorf("upserting api key %q: %w", info.ID, err)
	}
	return nil
}
