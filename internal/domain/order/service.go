package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/xenking/vitrine/internal/domain"
	"github.com/xenking/vitrine/internal/domain/cart"
	"github.com/xenking/vitrine/internal/domain/catalog"
	"github.com/xenking/vitrine/internal/domain/messaging"
	"github.com/xenking/vitrine/internal/domain/pricing"
	"github.com/xenking/vitrine/internal/domain/reservation"
	"github.com/xenking/vitrine/internal/domain/stock"
)

// ErrStockLost matches every StockLostError.
var ErrStockLost = errors.New("stock reserved by another shopper")

// StockLostError reports a cart line whose stock was claimed by someone else
// between add-to-cart and checkout.
type StockLostError struct {
	ProductID string
	Name      string
	Size      string
	Color     string
	Requested int
	Available int
}

func (e *StockLostError) Error() string {
	return fmt.Sprintf("product %s: requested %d, only %d left", e.ProductID, e.Requested, e.Available)
}

// Is reports ErrStockLost as the sentinel.
func (e *StockLostError) Is(target error) bool {
	return target == ErrStockLost
}

// ConfigReader reads the store configuration.
type ConfigReader interface {
	GetConfig(ctx context.Context, storeID string) (*catalog.StoreConfig, error)
}

// CheckoutResult is the outcome of a completed checkout.
type CheckoutResult struct {
	Order        *Order
	Reservations []reservation.Reservation
	Message      messaging.Message
	State        State
}

// checkedLine is a cart line together with the stock snapshot that
// cleared it.
type checkedLine struct {
	line cart.Line
	snap *stock.Snapshot
}

// Service drives checkout: validate, re-check stock, price, then write the
// order with its reservations atomically and hand it off.
type Service struct {
	stock        cart.StockChecker
	carts        cart.Repository
	stores       ConfigReader
	reservations *reservation.Manager
	orders       Repository
	handoff      messaging.Handoff
	outcomes     metric.Int64Counter

	now   func() time.Time
	newID func() string
}

// Option configures a Service.
type Option func(*Service)

// WithMeter records checkout outcomes on m.
func WithMeter(m metric.Meter) Option {
	return func(s *Service) {
		c, err := m.Int64Counter("vitrine.checkout.outcomes",
			metric.WithDescription("Checkout attempts by final state"),
		)
		if err == nil {
			s.outcomes = c
		}
	}
}

// NewService creates a checkout Service with the required domain
// dependencies.
func NewService(
	stock cart.StockChecker,
	carts cart.Repository,
	stores ConfigReader,
	reservations *reservation.Manager,
	orders Repository,
	handoff messaging.Handoff,
	opts ...Option,
) *Service {
	s := &Service{
		stock:        stock,
		carts:        carts,
		stores:       stores,
		reservations: reservations,
		orders:       orders,
		handoff:      handoff,
		now:          time.Now,
		newID:        func() string { return uuid.New().String() },
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Checkout turns the session cart into an order. Nothing is written unless
// every line is still covered by unreserved stock; the order and its
// reservations are then written in one atomic unit.
func (s *Service) Checkout(ctx context.Context, req CheckoutRequest) (res *CheckoutResult, err error) {
	lg := zctx.From(ctx).With(
		zap.String("store_id", req.StoreID),
		zap.String("session_id", req.SessionID),
	)
	a := newAttempt()
	defer func() {
		if err != nil && a.state != StateValidating && a.state != StateAborted {
			_ = a.advance(StateAborted)
		}
		s.record(ctx, a.state)
		if err != nil {
			lg.Info("Checkout failed", zap.Stringer("state", a.state), zap.Error(err))
		}
	}()

	// Validating: input only, no store access.
	req.normalize()
	if err := req.validate(); err != nil {
		return nil, err
	}

	c, err := s.carts.Load(ctx, req.StoreID, req.SessionID)
	if err != nil {
		return nil, domain.Unavailable("load cart", err)
	}
	if c.Empty() {
		return nil, domain.Invalid("cart", "empty")
	}

	// StockChecking: fresh reads, last check wins.
	if err := a.advance(StateStockChecking); err != nil {
		return nil, err
	}
	checked, err := s.checkStock(ctx, req.StoreID, c.Lines)
	if err != nil {
		var vErr *domain.ValidationError
		if errors.As(err, &vErr) {
			_ = a.advance(StateValidating)
		}
		return nil, err
	}
	cfg, err := s.stores.GetConfig(ctx, req.StoreID)
	if err != nil {
		if errors.Is(err, catalog.ErrStoreNotFound) {
			return nil, err
		}
		return nil, domain.Unavailable("read store config", err)
	}

	// Persisting: price at the chosen method from the snapshots just read.
	if err := a.advance(StatePersisting); err != nil {
		return nil, err
	}
	if cfg.DeliveryFee.Valid {
		req.Delivery.Fee = cfg.DeliveryFee.Decimal
	}
	o := s.buildOrder(req, checked)

	// ReservationWriting: order + reservations in one unit.
	if err := a.advance(StateReservationWriting); err != nil {
		return nil, err
	}
	reservations, err := s.commit(ctx, o)
	if err != nil {
		return nil, err
	}

	if err := a.advance(StateCompleted); err != nil {
		return nil, err
	}
	lg.Info("Order created",
		zap.String("order_id", o.ID),
		zap.String("short_id", o.ShortID),
		zap.Int("items", len(o.Items)),
		zap.String("total", o.Total.StringFixed(2)),
	)

	if err := s.carts.Delete(ctx, req.StoreID, req.SessionID); err != nil {
		lg.Warn("Clear cart failed", zap.Error(err))
	}

	text := Summary(o)
	msg := messaging.Message{
		StoreID:     o.StoreID,
		OrderID:     o.ID,
		ShortID:     o.ShortID,
		Destination: cfg.WhatsApp,
		Text:        text,
		Link:        messaging.WhatsAppLink(cfg.WhatsApp, text),
	}
	if err := s.handoff.Handoff(ctx, msg); err != nil {
		lg.Warn("Order handoff failed", zap.String("order_id", o.ID), zap.Error(err))
	}

	return &CheckoutResult{
		Order:        o,
		Reservations: reservations,
		Message:      msg,
		State:        a.state,
	}, nil
}

// maxCommitAttempts bounds the retries after a reservation id collision.
const maxCommitAttempts = 3

// commit writes o with its reservations. Reservation ids embed the short
// order id, so a collision with another order's hold is retried under a
// fresh order id.
func (s *Service) commit(ctx context.Context, o *Order) ([]reservation.Reservation, error) {
	lines := make([]reservation.Line, len(o.Items))
	for i, it := range o.Items {
		lines[i] = reservation.Line{ProductID: it.ProductID, Quantity: it.Quantity, Size: it.Size, Color: it.Color}
	}

	for attempt := 1; ; attempt++ {
		res, err := s.reservations.Build(o.ID, o.ShortID, lines)
		if err != nil {
			return nil, errors.Wrap(err, "build reservations")
		}
		err = s.orders.CreateWithReservations(ctx, o, res)
		switch {
		case err == nil:
			return res, nil
		case errors.Is(err, ErrStockLost):
			return nil, err
		case errors.Is(err, reservation.ErrConflict) && attempt < maxCommitAttempts:
			zctx.From(ctx).Warn("Reservation id taken, retrying with a new order id",
				zap.String("order_id", o.ID),
				zap.String("short_id", o.ShortID),
			)
			o.ID = s.newID()
			o.ShortID = ShortID(o.ID)
		default:
			return nil, domain.Unavailable("create order", err)
		}
	}
}

// checkStock re-reads every line from the authoritative store and fails on
// the first line no longer covered. Earlier lines of the same cart count as
// held when a later line draws on the same stock.
func (s *Service) checkStock(ctx context.Context, storeID string, lines []cart.Line) ([]checkedLine, error) {
	out := make([]checkedLine, 0, len(lines))
	var batch []reservation.Reservation
	for _, l := range lines {
		snap, err := s.stock.Check(ctx, storeID, l.ProductID, l.Selection())
		if err != nil {
			if errors.Is(err, catalog.ErrProductNotFound) {
				return nil, domain.Invalid("items", fmt.Sprintf("%s is no longer available", l.Name))
			}
			return nil, err
		}
		claimed := snap.Claim(batch)
		if claimed.Raw() < l.Quantity {
			return nil, &StockLostError{
				ProductID: l.ProductID,
				Name:      snap.Product.Name,
				Size:      l.Size,
				Color:     l.Color,
				Requested: l.Quantity,
				Available: claimed.Available(),
			}
		}
		batch = append(batch, reservation.Reservation{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			Size:      snap.Selection.Size,
			Color:     snap.Selection.Color,
			Status:    reservation.StatusPending,
		})
		out = append(out, checkedLine{line: l, snap: snap})
	}
	return out, nil
}

func (s *Service) buildOrder(req CheckoutRequest, checked []checkedLine) *Order {
	now := s.now().UTC()
	id := s.newID()

	items := make([]Item, len(checked))
	subtotal := decimal.Zero
	for i, cl := range checked {
		p := cl.snap.Product
		items[i] = Item{
			ProductID:       cl.line.ProductID,
			Name:            p.Name,
			SKU:             cl.line.SKU,
			Quantity:        cl.line.Quantity,
			Price:           pricing.Resolve(p, cl.snap.Variation, req.Payment.Method, now),
			Size:            cl.snap.Selection.Size,
			Color:           cl.snap.Selection.Color,
			Image:           cl.line.Image,
			MaxInstallments: p.MaxInstallments,
		}
		subtotal = subtotal.Add(items[i].Subtotal())
	}

	fee := req.Delivery.EffectiveFee()
	total := subtotal.Add(fee).Round(2)

	var details *Address
	if !req.Delivery.Pickup() {
		addr := req.Delivery.Address
		details = &addr
	}

	return &Order{
		ID:      id,
		ShortID: ShortID(id),
		StoreID: req.StoreID,
		Customer: Customer{
			Name:           req.Customer.Name,
			Phone:          req.Customer.Phone,
			AddressString:  req.Delivery.AddressString(),
			AddressDetails: details,
		},
		Items:         items,
		Method:        req.Payment.Method,
		PaymentMethod: req.Payment.Annotate(total),
		Pickup:        req.Delivery.Pickup(),
		Subtotal:      subtotal.Round(2),
		DeliveryFee:   fee,
		Total:         total,
		Status:        StatusPendingWhatsApp,
		Platform:      PlatformWebCatalog,
		StockDeducted: false,
		CreatedAt:     now,
	}
}

func (s *Service) record(ctx context.Context, st State) {
	if s.outcomes == nil {
		return
	}
	s.outcomes.Add(ctx, 1, metric.WithAttributes(attribute.String("state", st.String())))
}
