// Package stock computes the quantity of a product or variation that can
// still be sold once pending reservations are subtracted.
package stock

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/xenking/vitrine/internal/domain"
	"github.com/xenking/vitrine/internal/domain/catalog"
	"github.com/xenking/vitrine/internal/domain/reservation"
)

// Snapshot is the stock position of one selection at the moment it was read.
type Snapshot struct {
	Product   *catalog.Product
	Variation *catalog.Variation
	Selection catalog.Selection
	Panel     int
	Reserved  int
}

// Raw is panel stock minus reserved stock. It may be negative while
// reservations exceed a reduced panel count.
func (s Snapshot) Raw() int {
	return s.Panel - s.Reserved
}

// Available is the sellable quantity, never below zero.
func (s Snapshot) Available() int {
	return max(s.Raw(), 0)
}

// Compute derives a snapshot from a product record and its pending
// reservations. Reservations for other products or in a non-pending state
// are ignored. Selections are compared in the product's canonical spelling,
// and holds that match no variation share the top-level stock.
func Compute(p *catalog.Product, pending []reservation.Reservation, sel catalog.Selection) Snapshot {
	sel = catalog.Canonical(p, sel)
	snap := Snapshot{Product: p, Selection: sel, Panel: max(p.Stock, 0)}
	if v, ok := catalog.MatchVariation(p, sel); ok {
		snap.Variation = v
		snap.Panel = max(v.Stock, 0)
	}
	snap.Reserved = snap.held(pending)
	return snap
}

// Claim returns the snapshot with claims counted as reserved. Checkout uses
// it for the earlier lines of the same batch, and the cart for the other
// lines already holding the product.
func (s Snapshot) Claim(claims []reservation.Reservation) Snapshot {
	s.Reserved += s.held(claims)
	return s
}

func (s Snapshot) held(res []reservation.Reservation) int {
	n := 0
	for _, r := range res {
		if r.ProductID != s.Product.ID || r.Status != reservation.StatusPending {
			continue
		}
		if s.drawsOn(catalog.Canonical(s.Product, r.Selection())) {
			n += r.Quantity
		}
	}
	return n
}

func (s Snapshot) drawsOn(held catalog.Selection) bool {
	if s.Variation == nil {
		if _, ok := catalog.MatchVariation(s.Product, held); !ok {
			return true
		}
	}
	return reservation.Reservation{Size: held.Size, Color: held.Color}.Covers(s.Selection)
}

// Ledger reads stock positions from the authoritative store.
type Ledger struct {
	products     catalog.Repository
	reservations reservation.Repository
}

// NewLedger creates a Ledger over the given repositories.
func NewLedger(products catalog.Repository, reservations reservation.Repository) *Ledger {
	return &Ledger{products: products, reservations: reservations}
}

// Check reads the product and its pending reservations and returns the
// stock position of sel. A missing product yields catalog.ErrProductNotFound;
// any other read failure is reported as domain.ErrUpstreamUnavailable.
func (l *Ledger) Check(ctx context.Context, storeID, productID string, sel catalog.Selection) (*Snapshot, error) {
	p, err := l.products.GetProduct(ctx, storeID, productID)
	if err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) {
			return nil, err
		}
		return nil, domain.Unavailable("read product", err)
	}

	pending, err := l.reservations.ListPending(ctx, storeID, productID)
	if err != nil {
		return nil, domain.Unavailable("read reservations", err)
	}

	snap := Compute(p, pending, sel)
	return &snap, nil
}

// Available returns the sellable quantity of sel, floored at zero.
func (l *Ledger) Available(ctx context.Context, storeID, productID string, sel catalog.Selection) (int, error) {
	snap, err := l.Check(ctx, storeID, productID, sel)
	if err != nil {
		return 0, err
	}
	return snap.Available(), nil
}
