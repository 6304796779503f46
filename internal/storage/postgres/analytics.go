package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/vitrine/internal/domain/analytics"
)

const (
	recordVisitSQL = `INSERT INTO analytics_visits (store_id, day, hour, visits)
		VALUES ($1, $2, $3, 1)
		ON CONFLICT (store_id, day, hour) DO UPDATE SET visits = analytics_visits.visits + 1`

	bumpTotalVisitsSQL = `INSERT INTO analytics_totals (store_id, total_visits, last_update)
		VALUES ($1, 1, now())
		ON CONFLICT (store_id) DO UPDATE SET
			total_visits = analytics_totals.total_visits + 1,
			last_update = now()`

	bumpInteractionsSQL = `INSERT INTO analytics_totals (store_id, total_interactions, last_interaction)
		VALUES ($1, 1, now())
		ON CONFLICT (store_id) DO UPDATE SET
			total_interactions = analytics_totals.total_interactions + 1,
			last_interaction = now()`

	getTotalsSQL = `SELECT total_interactions FROM analytics_totals WHERE store_id = $1`

	listProductStatsSQL = `SELECT product_id, favs, adds, views
		FROM analytics_products WHERE store_id = $1`
)

// incrementProductSQL holds one statement per action so the column name is
// never built from input.
var incrementProductSQL = map[analytics.Action]string{
	analytics.ActionFav: `INSERT INTO analytics_products (store_id, product_id, favs) VALUES ($1, $2, 1)
		ON CONFLICT (store_id, product_id) DO UPDATE SET favs = analytics_products.favs + 1`,
	analytics.ActionAdd: `INSERT INTO analytics_products (store_id, product_id, adds) VALUES ($1, $2, 1)
		ON CONFLICT (store_id, product_id) DO UPDATE SET adds = analytics_products.adds + 1`,
	analytics.ActionView: `INSERT INTO analytics_products (store_id, product_id, views) VALUES ($1, $2, 1)
		ON CONFLICT (store_id, product_id) DO UPDATE SET views = analytics_products.views + 1`,
}

var _ analytics.Counter = (*AnalyticsRepository)(nil)

// AnalyticsRepository implements analytics.Counter backed by PostgreSQL.
type AnalyticsRepository struct {
	pool *pgxpool.Pool
}

// NewAnalyticsRepository returns an AnalyticsRepository that uses the given
// pool.
func NewAnalyticsRepository(pool *pgxpool.Pool) *AnalyticsRepository {
	return &AnalyticsRepository{pool: pool}
}

// RecordVisit bumps the hourly bucket of the visit day and the store total.
func (r *AnalyticsRepository) RecordVisit(ctx context.Context, storeID string, at time.Time) error {
	day := time.Date(at.Year(), at.Month(), at.Day(), 0, 0, 0, 0, time.UTC)
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, recordVisitSQL, storeID, day, at.Hour()); err != nil {
			return fmt.Errorf("recording visit: %w", err)
		}
		if _, err := tx.Exec(ctx, bumpTotalVisitsSQL, storeID); err != nil {
			return fmt.Errorf("bumping visit total: %w", err)
		}
		return nil
	})
}

// IncrementProduct bumps the counter of action on a product. Favorites and
// cart adds also count as store interactions.
func (r *AnalyticsRepository) IncrementProduct(ctx context.Context, storeID, productID string, action analytics.Action, _ time.Time) error {
	sql, ok := incrementProductSQL[action]
	if !ok {
		return errors.Wrap(analytics.ErrUnknownAction, string(action))
	}
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, sql, storeID, productID); err != nil {
			return fmt.Errorf("incrementing %s of %q: %w", action, productID, err)
		}
		if action == analytics.ActionView {
			return nil
		}
		if _, err := tx.Exec(ctx, bumpInteractionsSQL, storeID); err != nil {
			return fmt.Errorf("bumping interactions: %w", err)
		}
		return nil
	})
}

// Stats returns the interaction totals of a store.
func (r *AnalyticsRepository) Stats(ctx context.Context, storeID string) (*analytics.Stats, error) {
	var s analytics.Stats
	if err := r.pool.QueryRow(ctx, getTotalsSQL, storeID).Scan(&s.TotalInteractions); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, analytics.ErrNoData
		}
		return nil, fmt.Errorf("getting analytics totals: %w", err)
	}

	rows, err := r.pool.Query(ctx, listProductStatsSQL, storeID)
	if err != nil {
		return nil, fmt.Errorf("listing product stats: %w", err)
	}
	s.Products, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (analytics.ProductStat, error) {
		var ps analytics.ProductStat
		err := row.Scan(&ps.ProductID, &ps.Favs, &ps.Adds, &ps.Views)
		return ps, err
	})
	if err != nil {
		return nil, fmt.Errorf("scanning product stats: %w", err)
	}
	return &s, nil
}
