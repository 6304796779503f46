package reservation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"
)

var (
	// ErrNoLines is returned when asked to reserve an empty line set.
	ErrNoLines = errors.New("no lines to reserve")
	// ErrConflict is returned by Repository.Put and order writers when a
	// reservation id is already held by a different order. Ids embed the
	// short order id, so the caller retries under a new order id.
	ErrConflict = errors.New("reservation id held by another order")
)

// Line is the stock request of one order line.
type Line struct {
	ProductID string
	Quantity  int
	Size      string
	Color     string
}

// Manager builds and writes deterministic reservations for an order.
type Manager struct {
	repo Repository
	now  func() time.Time
}

// NewManager creates a Manager backed by repo.
func NewManager(repo Repository) *Manager {
	return &Manager{repo: repo, now: time.Now}
}

// Build returns one pending reservation per distinct key. Lines that
// normalize to the same id are merged by summing quantities.
func (m *Manager) Build(orderID, shortID string, lines []Line) ([]Reservation, error) {
	if len(lines) == 0 {
		return nil, ErrNoLines
	}

	created := m.now().UTC()
	out := make([]Reservation, 0, len(lines))
	index := make(map[string]int, len(lines))
	for _, l := range lines {
		if l.Quantity <= 0 {
			return nil, fmt.Errorf("reserve %s: quantity must be greater than 0", l.ProductID)
		}
		id := Key{
			OrderShortID: strings.ToUpper(shortID),
			ProductID:    l.ProductID,
			Size:         l.Size,
			Color:        l.Color,
		}.ID()
		if i, ok := index[id]; ok {
			out[i].Quantity += l.Quantity
			continue
		}
		index[id] = len(out)
		out = append(out, Reservation{
			ID:        id,
			ProductID: l.ProductID,
			OrderID:   orderID,
			Quantity:  l.Quantity,
			Size:      strings.TrimSpace(l.Size),
			Color:     strings.TrimSpace(l.Color),
			Status:    StatusPending,
			CreatedAt: created,
		})
	}
	return out, nil
}

// Reserve builds the reservations for an order and writes them as a single
// all-or-nothing batch.
func (m *Manager) Reserve(ctx context.Context, storeID, orderID, shortID string, lines []Line) ([]Reservation, error) {
	res, err := m.Build(orderID, shortID, lines)
	if err != nil {
		return nil, err
	}
	if err := m.repo.Put(ctx, storeID, res); err != nil {
		return nil, errors.Wrap(err, "put reservations")
	}
	return res, nil
}
