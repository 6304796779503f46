package firestoredb

import (
	"context"
	"fmt"
	"slices"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/xenking/vitrine/internal/domain/order"
	"github.com/xenking/vitrine/internal/domain/reservation"
	"github.com/xenking/vitrine/internal/domain/stock"
)

var (
	_ reservation.Repository = (*ReservationRepository)(nil)
	_ order.Repository       = (*OrderRepository)(nil)
)

// ReservationRepository implements reservation.Repository on Firestore.
type ReservationRepository struct {
	Client *firestore.Client
}

// NewReservationRepository returns a ReservationRepository using client.
func NewReservationRepository(client *firestore.Client) *ReservationRepository {
	return &ReservationRepository{Client: client}
}

func reservations(client *firestore.Client, storeID string) *firestore.CollectionRef {
	return store(client, storeID).Collection(colReservations)
}

func pendingQuery(client *firestore.Client, storeID, productID string) firestore.Query {
	return reservations(client, storeID).
		Where("productId", "==", productID).
		Where("status", "==", string(reservation.StatusPending))
}

// ListPending queries the pending reservations of a product from the
// server.
func (r *ReservationRepository) ListPending(ctx context.Context, storeID, productID string) ([]reservation.Reservation, error) {
	docs, err := pendingQuery(r.Client, storeID, productID).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("listing reservations of %q: %w", productID, err)
	}
	return decodeReservations(docs)
}

// Put writes reservations in one transaction, skipping ids the same order
// already holds. An id held by another order fails with
// reservation.ErrConflict.
func (r *ReservationRepository) Put(ctx context.Context, storeID string, res []reservation.Reservation) error {
	return r.Client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		return putReservations(tx, reservations(r.Client, storeID), res)
	})
}

func decodeReservations(docs []*firestore.DocumentSnapshot) ([]reservation.Reservation, error) {
	out := make([]reservation.Reservation, 0, len(docs))
	for _, snap := range docs {
		var d reservationDoc
		if err := snap.DataTo(&d); err != nil {
			return nil, fmt.Errorf("decoding reservation %q: %w", snap.Ref.ID, err)
		}
		out = append(out, d.toDomain(snap.Ref.ID))
	}
	return out, nil
}

// putReservations must run after every read of the transaction.
func putReservations(tx *firestore.Transaction, col *firestore.CollectionRef, res []reservation.Reservation) error {
	refs := make([]*firestore.DocumentRef, len(res))
	for i, rv := range res {
		refs[i] = col.Doc(rv.ID)
	}
	existing, err := tx.GetAll(refs)
	if err != nil {
		return fmt.Errorf("reading reservations: %w", err)
	}
	for i, snap := range existing {
		if snap.Exists() {
			var d reservationDoc
			if err := snap.DataTo(&d); err != nil {
				return fmt.Errorf("decoding reservation %q: %w", snap.Ref.ID, err)
			}
			if err := sameHolder(res[i], d); err != nil {
				return err
			}
			continue
		}
		if err := tx.Create(refs[i], reservationToDoc(res[i])); err != nil {
			return fmt.Errorf("creating reservation %q: %w", res[i].ID, err)
		}
	}
	return nil
}

// OrderRepository implements order.Repository on Firestore.
type OrderRepository struct {
	Client *firestore.Client
}

// NewOrderRepository returns an OrderRepository using client.
func NewOrderRepository(client *firestore.Client) *OrderRepository {
	return &OrderRepository{Client: client}
}

// CreateWithReservations runs one transaction that reads the products and
// their pending reservations, re-checks availability and then creates the
// order and reservation documents. Firestore retries the transaction when a
// concurrent checkout touches the same documents, so the re-check always
// sees the other shopper's reservations.
func (r *OrderRepository) CreateWithReservations(ctx context.Context, o *order.Order, res []reservation.Reservation) error {
	storeRef := store(r.Client, o.StoreID)
	orderRef := storeRef.Collection(colOrders).Doc(o.ID)

	byProduct := make(map[string][]reservation.Reservation)
	for _, rv := range res {
		byProduct[rv.ProductID] = append(byProduct[rv.ProductID], rv)
	}
	ids := make([]string, 0, len(byProduct))
	for id := range byProduct {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	return r.Client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		for _, id := range ids {
			snap, err := tx.Get(storeRef.Collection(colProducts).Doc(id))
			p, err := decodeProduct(snap, err, id)
			if err != nil {
				return err
			}
			docs, err := tx.Documents(pendingQuery(r.Client, o.StoreID, id)).GetAll()
			if err != nil {
				return fmt.Errorf("listing reservations of %q: %w", id, err)
			}
			pending, err := decodeReservations(docs)
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

		existing, err := tx.Get(orderRef)
		if err != nil && !isNotFound(err) {
			return fmt.Errorf("reading order %q: %w", o.ID, err)
		}
		if err := putReservations(tx, storeRef.Collection(colReservations), res); err != nil {
			return err
		}
		if existing != nil && existing.Exists() {
			return nil
		}
		if err := tx.Create(orderRef, orderToDoc(o)); err != nil {
			return fmt.Errorf("creating order %q: %w", o.ID, err)
		}
		return nil
	})
}

// sameHolder fails when the stored reservation belongs to another order.
func sameHolder(rv reservation.Reservation, stored reservationDoc) error {
	if stored.OrderID != rv.OrderID {
		return fmt.Errorf("reservation %s held by order %s: %w", rv.ID, stored.OrderID, reservation.ErrConflict)
	}
	return nil
}

func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}
