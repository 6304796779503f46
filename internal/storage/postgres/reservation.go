package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/vitrine/internal/domain/reservation"
)

const (
	listPendingReservationsSQL = `SELECT id, product_id, order_id, qty, size, color, status, created_at
		FROM stock_reservations
		WHERE store_id = $1 AND product_id = $2 AND status = 'pending'`

	insertReservationSQL = `INSERT INTO stock_reservations
		(store_id, id, product_id, order_id, qty, size, color, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (store_id, id) DO UPDATE SET order_id = stock_reservations.order_id
		RETURNING order_id`
)

var _ reservation.Repository = (*ReservationRepository)(nil)

// ReservationRepository implements reservation.Repository backed by
// PostgreSQL.
type ReservationRepository struct {
	pool *pgxpool.Pool
}

// NewReservationRepository returns a ReservationRepository that uses the
// given pool.
func NewReservationRepository(pool *pgxpool.Pool) *ReservationRepository {
	return &ReservationRepository{pool: pool}
}

// ListPending returns the pending reservations of a product.
func (r *ReservationRepository) ListPending(ctx context.Context, storeID, productID string) ([]reservation.Reservation, error) {
	return listPending(ctx, r.pool, storeID, productID)
}

// Put inserts reservations in one transaction. Ids already held by the same
// order are left untouched, so retrying the same batch is a no-op; an id
// held by another order rolls the batch back with reservation.ErrConflict.
func (r *ReservationRepository) Put(ctx context.Context, storeID string, res []reservation.Reservation) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		return insertReservations(ctx, tx, storeID, res)
	})
}

func listPending(ctx context.Context, q querier, storeID, productID string) ([]reservation.Reservation, error) {
	rows, err := q.Query(ctx, listPendingReservationsSQL, storeID, productID)
	if err != nil {
		return nil, fmt.Errorf("listing reservations of %q: %w", productID, err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (reservation.Reservation, error) {
		var res reservation.Reservation
		err := row.Scan(&res.ID, &res.ProductID, &res.OrderID, &res.Quantity,
			&res.Size, &res.Color, &res.Status, &res.CreatedAt)
		return res, err
	})
}

func insertReservations(ctx context.Context, tx pgx.Tx, storeID string, res []reservation.Reservation) error {
	batch := &pgx.Batch{}
	for _, rv := range res {
		batch.Queue(insertReservationSQL,
			storeID, rv.ID, rv.ProductID, rv.OrderID, rv.Quantity, rv.Size, rv.Color, rv.Status, rv.CreatedAt,
		).QueryRow(func(row pgx.Row) error {
			var holder string
			if err := row.Scan(&holder); err != nil {
				return err
			}
			return checkHolder(rv, holder)
		})
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		if errors.Is(err, reservation.ErrConflict) {
			return err
		}
		return fmt.Errorf("inserting reservations: %w", err)
	}
	return nil
}

// checkHolder fails when the stored reservation belongs to another order.
func checkHolder(rv reservation.Reservation, holder string) error {
	if holder != rv.OrderID {
		return fmt.Errorf("reservation %s held by order %s: %w", rv.ID, holder, reservation.ErrConflict)
	}
	return nil
}
