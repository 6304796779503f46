package cart

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/vitrine/internal/domain/catalog"
	"github.com/xenking/vitrine/internal/domain/reservation"
)

// LineKey identifies a cart line: one product in one variation.
type LineKey struct {
	ProductID string `json:"productId"`
	Size      string `json:"size,omitempty"`
	Color     string `json:"color,omitempty"`
}

// NewLineKey builds the key of productID in selection sel.
func NewLineKey(productID string, sel catalog.Selection) LineKey {
	sel = sel.Trimmed()
	return LineKey{ProductID: strings.TrimSpace(productID), Size: sel.Size, Color: sel.Color}
}

// Selection returns the variation part of the key.
func (k LineKey) Selection() catalog.Selection {
	return catalog.Selection{Size: k.Size, Color: k.Color}
}

func (k LineKey) String() string {
	return k.ProductID + "-" + k.Size + "-" + k.Color
}

// Line is one product variation in the cart with the price captured when it
// was last added.
type Line struct {
	LineKey
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Name      string          `json:"name"`
	Image     string          `json:"image,omitempty"`
	SKU       string          `json:"sku,omitempty"`
}

// Cart is the session-scoped shopping cart of one shopper in one store. It
// carries no authority over stock.
type Cart struct {
	StoreID   string    `json:"storeId"`
	SessionID string    `json:"sessionId"`
	Lines     []Line    `json:"lines"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// New returns an empty cart.
func New(storeID, sessionID string) *Cart {
	return &Cart{StoreID: storeID, SessionID: sessionID, Lines: []Line{}}
}

// Find returns the line with key k.
func (c *Cart) Find(k LineKey) (*Line, bool) {
	for i := range c.Lines {
		if c.Lines[i].LineKey == k {
			return &c.Lines[i], true
		}
	}
	return nil, false
}

// Match is Find with axis values compared ignoring case and surrounding
// whitespace, for keys echoed back by clients.
func (c *Cart) Match(k LineKey) (*Line, bool) {
	if l, ok := c.Find(k); ok {
		return l, true
	}
	k.ProductID = strings.TrimSpace(k.ProductID)
	for i := range c.Lines {
		l := &c.Lines[i]
		if l.ProductID == k.ProductID && catalog.SameValue(l.Size, k.Size) && catalog.SameValue(l.Color, k.Color) {
			return l, true
		}
	}
	return nil, false
}

// Holds returns the other lines of k's product as pending reservations, so
// a stock check can count what the cart already claims.
func (c *Cart) Holds(k LineKey) []reservation.Reservation {
	var out []reservation.Reservation
	for _, l := range c.Lines {
		if l.ProductID != k.ProductID || l.LineKey == k {
			continue
		}
		out = append(out, reservation.Reservation{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			Size:      l.Size,
			Color:     l.Color,
			Status:    reservation.StatusPending,
		})
	}
	return out
}

// Quantity returns the quantity held under k, 0 when absent.
func (c *Cart) Quantity(k LineKey) int {
	if l, ok := c.Find(k); ok {
		return l.Quantity
	}
	return 0
}

// Merge adds line to the cart. An existing line with the same key gains the
// quantity and takes the new price and display snapshot.
func (c *Cart) Merge(line Line) {
	if l, ok := c.Find(line.LineKey); ok {
		l.Quantity += line.Quantity
		l.UnitPrice = line.UnitPrice
		l.Name = line.Name
		l.Image = line.Image
		l.SKU = line.SKU
		return
	}
	c.Lines = append(c.Lines, line)
}

// SetQuantity sets the quantity of k, removing the line when qty <= 0.
func (c *Cart) SetQuantity(k LineKey, qty int) {
	if qty <= 0 {
		c.Remove(k)
		return
	}
	if l, ok := c.Find(k); ok {
		l.Quantity = qty
	}
}

// Remove drops the line with key k.
func (c *Cart) Remove(k LineKey) {
	lines := c.Lines[:0]
	for _, l := range c.Lines {
		if l.LineKey != k {
			lines = append(lines, l)
		}
	}
	c.Lines = lines
}

// Count is the total number of units in the cart.
func (c *Cart) Count() int {
	n := 0
	for _, l := range c.Lines {
		n += l.Quantity
	}
	return n
}

// Empty reports whether the cart has no lines.
func (c *Cart) Empty() bool {
	return len(c.Lines) == 0
}

// Repository persists carts per (store, session).
type Repository interface {
	// Load returns the stored cart, or an empty cart when none exists.
	Load(ctx context.Context, storeID, sessionID string) (*Cart, error)
	Save(ctx context.Context, c *Cart) error
	Delete(ctx context.Context, storeID, sessionID string) error
}
