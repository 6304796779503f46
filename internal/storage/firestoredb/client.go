// Package firestoredb implements the authoritative store on Cloud
// Firestore, laid out under stores/{storeID}.
package firestoredb

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/option"
)

// Collection names under stores/{storeID}.
const (
	colStores       = "stores"
	colConfig       = "config"
	docConfig       = "store"
	colProducts     = "products"
	colBanners      = "hero_cards"
	colOrders       = "orders"
	colReservations = "stock_reserves"
	colAnalytics    = "analytics"
	docGlobal       = "global"
	colHistory      = "analytics_history"
	colAPIKeys      = "api_keys"
)

// NewClient creates a Firestore client. An empty credentialsFile uses
// Application Default Credentials.
func NewClient(ctx context.Context, projectID, credentialsFile string) (*firestore.Client, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating firestore client: %w", err)
	}
	return client, nil
}

// Ping checks connectivity with a cheap listing call. Firestore has no ping
// API.
func Ping(ctx context.Context, client *firestore.Client) error {
	if _, err := client.Collections(ctx).GetAll(); err != nil {
		return fmt.Errorf("firestore ping: %w", err)
	}
	return nil
}

func store(client *firestore.Client, storeID string) *firestore.DocumentRef {
	return client.Collection(colStores).Doc(storeID)
}
