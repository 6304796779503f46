package cart

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/vitrine/internal/domain"
	"github.com/xenking/vitrine/internal/domain/catalog"
	"github.com/xenking/vitrine/internal/domain/pricing"
	"github.com/xenking/vitrine/internal/domain/stock"
)

// ErrStockExceeded matches every StockExceededError.
var ErrStockExceeded = errors.New("stock exceeded")

// StockExceededError reports an add that would take the line beyond the
// stock that is not already reserved.
type StockExceededError struct {
	ProductID string
	Name      string
	Requested int
	Available int
}

func (e *StockExceededError) Error() string {
	return fmt.Sprintf("product %s: requested %d, only %d available", e.ProductID, e.Requested, e.Available)
}

// Is reports ErrStockExceeded as the sentinel.
func (e *StockExceededError) Is(target error) bool {
	return target == ErrStockExceeded
}

// StockChecker reads the stock position of a selection from the
// authoritative store.
type StockChecker interface {
	Check(ctx context.Context, storeID, productID string, sel catalog.Selection) (*stock.Snapshot, error)
}

// NoticeKind classifies a non-fatal outcome of a quantity change.
type NoticeKind string

// NoticeLimitReached means the requested increase was capped by stock.
const NoticeLimitReached NoticeKind = "limit_reached"

// Notice is a user-facing hint returned instead of an error.
type Notice struct {
	Kind      NoticeKind `json:"kind"`
	Available int        `json:"available"`
	Message   string     `json:"message"`
}

// AddLineRequest is the input of Service.AddLine.
type AddLineRequest struct {
	StoreID   string
	SessionID string
	ProductID string
	Quantity  int
	Selection catalog.Selection
	// Image overrides the product image, e.g. the picture of the chosen color.
	Image string
}

// Service applies cart operations against the stock ledger and persists the
// resulting cart.
type Service struct {
	stock StockChecker
	carts Repository
	now   func() time.Time
}

// NewService creates a cart Service.
func NewService(stock StockChecker, carts Repository) *Service {
	return &Service{stock: stock, carts: carts, now: time.Now}
}

// Get returns the session cart.
func (s *Service) Get(ctx context.Context, storeID, sessionID string) (*Cart, error) {
	c, err := s.carts.Load(ctx, storeID, sessionID)
	if err != nil {
		return nil, domain.Unavailable("load cart", err)
	}
	return c, nil
}

// AddLine adds quantity units of a product variation to the session cart.
// The add is rejected with a StockExceededError, leaving the cart untouched,
// when the line would exceed the unreserved stock read just now. Other lines
// of the cart drawing on the same stock count against the limit.
func (s *Service) AddLine(ctx context.Context, req AddLineRequest) (*Cart, error) {
	if req.Quantity <= 0 {
		return nil, domain.Invalid("quantity", "must be greater than 0")
	}

	snap, err := s.stock.Check(ctx, req.StoreID, strings.TrimSpace(req.ProductID), req.Selection)
	if err != nil {
		return nil, err
	}
	p := snap.Product
	key := NewLineKey(p.ID, catalog.Canonical(p, req.Selection))
	if !key.Selection().Complete(p) {
		return nil, domain.Invalid("variation", "choose an option for every size and color")
	}

	c, err := s.carts.Load(ctx, req.StoreID, req.SessionID)
	if err != nil {
		return nil, domain.Unavailable("load cart", err)
	}

	current := c.Quantity(key)
	limit := snap.Claim(c.Holds(key)).Raw()
	if current+req.Quantity > limit {
		zctx.From(ctx).Info("Add rejected by stock",
			zap.String("product_id", key.ProductID),
			zap.String("line", key.String()),
			zap.Int("in_cart", current),
			zap.Int("requested", req.Quantity),
			zap.Int("panel", snap.Panel),
			zap.Int("reserved", snap.Reserved),
		)
		return nil, &StockExceededError{
			ProductID: key.ProductID,
			Name:      p.Name,
			Requested: current + req.Quantity,
			Available: max(limit, 0),
		}
	}

	now := s.now()
	line := Line{
		LineKey:   key,
		Quantity:  req.Quantity,
		UnitPrice: pricing.Resolve(p, snap.Variation, pricing.MethodPix, now),
		Name:      p.Name,
		Image:     lineImage(req.Image, p, snap.Variation),
		SKU:       lineSKU(p, snap.Variation),
	}
	c.Merge(line)
	c.UpdatedAt = now

	if err := s.carts.Save(ctx, c); err != nil {
		return nil, domain.Unavailable("save cart", err)
	}
	return c, nil
}

// ChangeQuantity moves the quantity of a line by delta. Increases are
// checked against the ledger; when stock is short the cart is returned
// unchanged with a limit notice. A quantity reaching zero removes the line.
// Unknown keys leave the cart as is.
func (s *Service) ChangeQuantity(ctx context.Context, storeID, sessionID string, key LineKey, delta int) (*Cart, *Notice, error) {
	c, err := s.carts.Load(ctx, storeID, sessionID)
	if err != nil {
		return nil, nil, domain.Unavailable("load cart", err)
	}

	line, ok := c.Match(key)
	if !ok || delta == 0 {
		return c, nil, nil
	}
	key = line.LineKey

	target := line.Quantity + delta
	if delta > 0 {
		snap, err := s.stock.Check(ctx, storeID, key.ProductID, key.Selection())
		if err != nil {
			return nil, nil, err
		}
		if limit := snap.Claim(c.Holds(key)).Raw(); target > limit {
			avail := max(limit, 0)
			return c, &Notice{
				Kind:      NoticeLimitReached,
				Available: avail,
				Message:   fmt.Sprintf("Limite atingido! Temos apenas %d unidades.", avail),
			}, nil
		}
	}

	c.SetQuantity(key, target)
	c.UpdatedAt = s.now()
	if err := s.carts.Save(ctx, c); err != nil {
		return nil, nil, domain.Unavailable("save cart", err)
	}
	return c, nil, nil
}

// Clear removes the session cart.
func (s *Service) Clear(ctx context.Context, storeID, sessionID string) error {
	if err := s.carts.Delete(ctx, storeID, sessionID); err != nil {
		return domain.Unavailable("delete cart", err)
	}
	return nil
}

func lineImage(override string, p *catalog.Product, v *catalog.Variation) string {
	switch {
	case override != "":
		return override
	case v != nil && v.Image != "":
		return v.Image
	default:
		return p.Image()
	}
}

func lineSKU(p *catalog.Product, v *catalog.Variation) string {
	if v != nil && v.SKU != "" {
		return v.SKU
	}
	if p.SKU != "" {
		return p.SKU
	}
	return "N/A"
}
