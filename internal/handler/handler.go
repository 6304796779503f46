// Package handler exposes the storefront API over HTTP.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/xenking/vitrine/internal/domain/analytics"
	"github.com/xenking/vitrine/internal/domain/auth"
	"github.com/xenking/vitrine/internal/domain/bundle"
	"github.com/xenking/vitrine/internal/domain/cart"
	"github.com/xenking/vitrine/internal/domain/catalog"
	"github.com/xenking/vitrine/internal/domain/order"
	"github.com/xenking/vitrine/internal/domain/stock"
)

// Request headers.
const (
	HeaderSessionID = "X-Session-ID"
	HeaderAPIKey    = "api_key"
)

// BundleGetter returns the cached catalog bundle of a store.
type BundleGetter interface {
	Get(ctx context.Context, storeID string, force bool) (*bundle.Bundle, error)
}

// StockChecker reads the live stock position of a selection.
type StockChecker interface {
	Check(ctx context.Context, storeID, productID string, sel catalog.Selection) (*stock.Snapshot, error)
}

// CartService manages session carts.
type CartService interface {
	Get(ctx context.Context, storeID, sessionID string) (*cart.Cart, error)
	AddLine(ctx context.Context, req cart.AddLineRequest) (*cart.Cart, error)
	ChangeQuantity(ctx context.Context, storeID, sessionID string, key cart.LineKey, delta int) (*cart.Cart, *cart.Notice, error)
}

// CheckoutService turns a session cart into an order.
type CheckoutService interface {
	Checkout(ctx context.Context, req order.CheckoutRequest) (*order.CheckoutResult, error)
}

// Tracker queues analytics events without blocking.
type Tracker interface {
	Track(ev analytics.Event) bool
}

// RankingReader builds ranking reports.
type RankingReader interface {
	Ranking(ctx context.Context, storeID string) (*analytics.Report, error)
}

// Authenticator validates merchant API keys.
type Authenticator interface {
	Authenticate(ctx context.Context, key, storeID, scope string) (*auth.APIKeyInfo, error)
}

// Config holds the dependencies of Handler.
type Config struct {
	Bundles  BundleGetter
	Stock    StockChecker
	Carts    CartService
	Checkout CheckoutService
	Tracker  Tracker
	Rankings RankingReader
	Keys     Authenticator
	Timeout  time.Duration
}

// Handler serves the storefront API.
type Handler struct {
	bundles  BundleGetter
	stock    StockChecker
	carts    CartService
	checkout CheckoutService
	tracker  Tracker
	rankings RankingReader
	keys     Authenticator
	timeout  time.Duration
	now      func() time.Time
}

// NewHandler constructs a Handler.
func NewHandler(cfg Config) *Handler {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Handler{
		bundles:  cfg.Bundles,
		stock:    cfg.Stock,
		carts:    cfg.Carts,
		checkout: cfg.Checkout,
		tracker:  cfg.Tracker,
		rankings: cfg.Rankings,
		keys:     cfg.Keys,
		timeout:  cfg.Timeout,
		now:      time.Now,
	}
}

// Register adds the API routes to r. Routes are registered on r itself so
// that route finders resolve full patterns.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.withTimeout, validStore)

		r.Get("/api/stores/{storeID}/bundle", h.getBundle)
		r.Post("/api/stores/{storeID}/bundle/refresh", h.refreshBundle)
		r.Get("/api/stores/{storeID}/products/search", h.search)
		r.Get("/api/stores/{storeID}/products/{productID}/quote", h.quote)

		r.Get("/api/stores/{storeID}/cart", h.getCart)
		r.Post("/api/stores/{storeID}/cart/lines", h.addLine)
		r.Patch("/api/stores/{storeID}/cart/lines", h.changeQuantity)
		r.Post("/api/stores/{storeID}/checkout", h.placeOrder)

		r.Post("/api/stores/{storeID}/visit", h.visit)
		r.Post("/api/stores/{storeID}/metrics", h.metric)
		r.Get("/api/stores/{storeID}/ranking", h.ranking)
	})
}

func (h *Handler) withTimeout(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func validStore(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !catalog.ValidStoreID(chi.URLParam(r, "storeID")) {
			writeError(w, r, http.StatusBadRequest, "Loja inválida.", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func storeID(r *http.Request) string {
	return chi.URLParam(r, "storeID")
}

func sessionID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := r.Header.Get(HeaderSessionID)
	if id == "" || len(id) > 128 {
		writeError(w, r, http.StatusBadRequest, "Sessão ausente.", nil)
		return "", false
	}
	return id, true
}
