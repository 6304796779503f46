package reservation

import (
	"context"
	"strings"
	"time"
	"unicode"

	"github.com/xenking/vitrine/internal/domain/catalog"
)

// Status is the lifecycle state of a stock reservation.
type Status string

// Only StatusPending consumes stock. The other states are set by the
// fulfillment process.
const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusReleased  Status = "released"
)

// Reservation is a provisional hold on stock created at checkout.
type Reservation struct {
	ID        string    `json:"id"`
	ProductID string    `json:"productId"`
	OrderID   string    `json:"orderId"`
	Quantity  int       `json:"qty"`
	Size      string    `json:"size,omitempty"`
	Color     string    `json:"color,omitempty"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// Selection returns the variation the reservation holds.
func (r Reservation) Selection() catalog.Selection {
	return catalog.Selection{Size: r.Size, Color: r.Color}
}

// Covers reports whether the reservation consumes stock of sel. An empty
// axis on either side matches anything.
func (r Reservation) Covers(sel catalog.Selection) bool {
	return axisMatches(r.Size, sel.Size) && axisMatches(r.Color, sel.Color)
}

func axisMatches(a, b string) bool {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	if a == "" || b == "" {
		return true
	}
	return strings.EqualFold(a, b)
}

// Key identifies a reservation for one order line.
type Key struct {
	OrderShortID string
	ProductID    string
	Size         string
	Color        string
}

// ID maps the key to a stable document id so a retried write for the same
// order line lands on the same record.
func (k Key) ID() string {
	var b strings.Builder
	b.WriteString("res_")
	b.WriteString(k.OrderShortID)
	b.WriteByte('_')
	b.WriteString(k.ProductID)
	b.WriteByte('_')
	b.WriteString(normalizePart(k.Size))
	b.WriteByte('_')
	b.WriteString(normalizePart(k.Color))
	return b.String()
}

func normalizePart(s string) string {
	if s == "null" {
		return ""
	}
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToLower(r)
	}, s)
}

// Repository persists reservations in the authoritative store.
type Repository interface {
	// ListPending returns the pending reservations of a product.
	ListPending(ctx context.Context, storeID, productID string) ([]Reservation, error)
	// Put writes all reservations or none. Writing an id that already
	// exists for the same order leaves the stored record untouched; an id
	// held by another order fails the batch with ErrConflict.
	Put(ctx context.Context, storeID string, reservations []Reservation) error
}
