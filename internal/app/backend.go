package app

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/xenking/vitrine/internal/domain/analytics"
	"github.com/xenking/vitrine/internal/domain/auth"
	"github.com/xenking/vitrine/internal/domain/catalog"
	"github.com/xenking/vitrine/internal/domain/order"
	"github.com/xenking/vitrine/internal/domain/reservation"
	"github.com/xenking/vitrine/internal/storage/firestoredb"
	"github.com/xenking/vitrine/internal/storage/postgres"
	"github.com/xenking/vitrine/pkg/health"
)

// backend is the set of repositories served by one authoritative store.
type backend struct {
	catalog      catalog.Repository
	reservations reservation.Repository
	orders       order.Repository
	counter      analytics.Counter
	keys         auth.Repository
	ping         health.CheckFunc
	close        func()
}

func openBackend(ctx context.Context, cfg *Config) (*backend, error) {
	switch cfg.Store {
	case StoreFirestore:
		client, err := firestoredb.NewClient(ctx, cfg.Firestore.Project, cfg.Firestore.Credentials)
		if err != nil {
			return nil, errors.Wrap(err, "create firestore client")
		}
		return &backend{
			catalog:      firestoredb.NewCatalogRepository(client),
			reservations: firestoredb.NewReservationRepository(client),
			orders:       firestoredb.NewOrderRepository(client),
			counter:      firestoredb.NewAnalyticsRepository(client),
			keys:         firestoredb.NewAPIKeyRepository(client),
			ping: func(ctx context.Context) error {
				return firestoredb.Ping(ctx, client)
			},
			close: func() { _ = client.Close() },
		}, nil
	default:
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, errors.Wrap(err, "create db pool")
		}
		if err := postgres.RunMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, errors.Wrap(err, "run migrations")
		}
		return &backend{
			catalog:      postgres.NewCatalogRepository(pool),
			reservations: postgres.NewReservationRepository(pool),
			orders:       postgres.NewOrderRepository(pool),
			counter:      postgres.NewAnalyticsRepository(pool),
			keys:         postgres.NewAPIKeyRepository(pool),
			ping:         pool.Ping,
			close:        pool.Close,
		}, nil
	}
}
