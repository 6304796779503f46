package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/vitrine/internal/domain/order"
	"github.com/xenking/vitrine/internal/domain/reservation"
	"github.com/xenking/vitrine/internal/domain/stock"
)

const createOrderSQL = `INSERT INTO orders
	(store_id, id, short_id, customer, items, method, payment_method, pickup,
	 subtotal, delivery_fee, total, status, platform, stock_deducted, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	ON CONFLICT (id) DO NOTHING`

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// CreateWithReservations writes the order and its reservations in one
// transaction. The product rows are locked (in id order) and availability is
// recomputed under the lock, so two checkouts racing for the last unit are
// serialized and the loser gets a *order.StockLostError with nothing
// written.
func (r *OrderRepository) CreateWithReservations(ctx context.Context, o *order.Order, res []reservation.Reservation) error {
	customerJSON, err := json.Marshal(o.Customer)
	if err != nil {
		return fmt.Errorf("marshaling order customer: %w", err)
	}
	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("marshaling order items: %w", err)
	}

	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if err := verifyStock(ctx, tx, o.StoreID, res); err != nil {
			return err
		}

		_, err := tx.Exec(ctx, createOrderSQL,
			o.StoreID, o.ID, o.ShortID, customerJSON, itemsJSON, string(o.Method), o.PaymentMethod, o.Pickup,
			o.Subtotal, o.DeliveryFee, o.Total, string(o.Status), o.Platform, o.StockDeducted, o.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("creating order %q: %w", o.ID, err)
		}

		return insertReservations(ctx, tx, o.StoreID, res)
	})
}

func verifyStock(ctx context.Context, tx pgx.Tx, storeID string, res []reservation.Reservation) error {
	byProduct := make(map[string][]reservation.Reservation)
	for _, rv := range res {
		byProduct[rv.ProductID] = append(byProduct[rv.ProductID], rv)
	}
	ids := make([]string, 0, len(byProduct))
	for id := range byProduct {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	for _, id := range ids {
		p, err := getProduct(ctx, tx, lockProductSQL, storeID, id)
		if err != nil {
			return err
		}
		pending, err := listPending(ctx, tx, storeID, id)
		if err != nil {
			return err
		}
		batch := byProduct[id]
		for i, rv := range batch {
			snap := stock.Compute(p, pending, rv.Selection()).Claim(batch[:i])
			if snap.Raw() < rv.Quantity {
				return &order.StockLostError{
					ProductID: id,
					Name:      p.Name,
					Size:      rv.Size,
					Color:     rv.Color,
					Requested: rv.Quantity,
					Available: snap.Available(),
				}
			}
		}
	}
	return nil
}
