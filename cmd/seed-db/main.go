package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"

	"github.com/xenking/vitrine/db"
	"github.com/xenking/vitrine/internal/domain/auth"
	"github.com/xenking/vitrine/internal/domain/catalog"
	"github.com/xenking/vitrine/internal/storage/postgres"
)

// seedFile is the layout of the demo store file.
type seedFile struct {
	Store    catalog.StoreConfig `json:"store"`
	Banners  []catalog.Banner    `json:"banners"`
	Products []catalog.Product   `json:"products"`
}

func main() {
	var (
		databaseURL  string
		storeFile    string
		apiKey       string
		apiKeyPepper string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&storeFile, "store-file", "", "store JSON file; empty seeds the embedded demo store")
	flag.StringVar(&apiKey, "api-key", "", "API key to seed (or VITRINE_SEED_API_KEY env)")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or VITRINE_API_KEY_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if apiKey == "" {
		apiKey = os.Getenv("VITRINE_SEED_API_KEY")
	}
	if apiKey == "" {
		slog.Error("API key is required: set --api-key or VITRINE_SEED_API_KEY")
		os.Exit(1)
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("VITRINE_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, storeFile, apiKey, apiKeyPepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, storeFile, apiKey, pepper string) error {
	data := db.DemoStore
	if storeFile != "" {
		slog.Info("reading store file", slog.String("path", storeFile))

		var err error
		if data, err = os.ReadFile(storeFile); err != nil {
			return errors.Wrap(err, "read store file")
		}
	}
	var seed seedFile
	if err := json.Unmarshal(data, &seed); err != nil {
		return errors.Wrap(err, "parse store JSON")
	}
	if !catalog.ValidStoreID(seed.Store.StoreID) {
		return errors.Errorf("invalid store id %q", seed.Store.StoreID)
	}

	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	repo := postgres.NewCatalogRepository(pool)
	storeID := seed.Store.StoreID

	if err := repo.UpsertStore(ctx, seed.Store); err != nil {
		return errors.Wrap(err, "seed store")
	}
	slog.Info("upserted store", slog.String("id", storeID), slog.String("name", seed.Store.Name))

	if err := repo.UpsertBanners(ctx, storeID, seed.Banners); err != nil {
		return errors.Wrap(err, "seed banners")
	}
	slog.Info("upserted banners", slog.Int("count", len(seed.Banners)))

	if err := repo.UpsertProducts(ctx, storeID, seed.Products); err != nil {
		return errors.Wrap(err, "seed products")
	}
	for _, p := range seed.Products {
		slog.Info("upserted product", slog.String("id", p.ID), slog.String("name", p.Name))
	}

	if err := seedAPIKey(ctx, postgres.NewAPIKeyRepository(pool), storeID, apiKey, pepper); err != nil {
		return errors.Wrap(err, "seed api key")
	}

	return nil
}

func seedAPIKey(ctx context.Context, keys *postgres.APIKeyRepository, storeID, apiKey, pepper string) error {
	slog.Info("seeding default API key")

	if err := keys.Upsert(ctx, auth.APIKeyInfo{
		ID:      "default",
		KeyHash: auth.Hash([]byte(pepper), apiKey),
		Name:    "Default merchant key",
		StoreID: storeID,
		Scopes:  []string{auth.ScopeCatalogRefresh},
	}); err != nil {
		return errors.Wrap(err, "upsert default API key")
	}

	slog.Info("upserted API key", slog.String("id", "default"), slog.String("store", storeID))

	return nil
}
