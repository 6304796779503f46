package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/vitrine/internal/domain/auth"
	"github.com/xenking/vitrine/internal/domain/bundle"
	"github.com/xenking/vitrine/internal/domain/catalog"
	"github.com/xenking/vitrine/internal/domain/pricing"
)

func (h *Handler) getBundle(w http.ResponseWriter, r *http.Request) {
	b, err := h.bundles.Get(r.Context(), storeID(r), false)
	if err != nil {
		respondError(w, r, err)
		return
	}
	h.writeBundle(w, r, b)
}

func (h *Handler) refreshBundle(w http.ResponseWriter, r *http.Request) {
	info, err := h.keys.Authenticate(r.Context(), r.Header.Get(HeaderAPIKey), storeID(r), auth.ScopeCatalogRefresh)
	if err != nil {
		respondError(w, r, err)
		return
	}
	zctx.From(r.Context()).Info("Forced bundle refresh",
		zap.String("store_id", storeID(r)),
		zap.String("key_id", info.ID),
	)

	b, err := h.bundles.Get(r.Context(), storeID(r), true)
	if err != nil {
		respondError(w, r, err)
		return
	}
	h.writeBundle(w, r, b)
}

func (h *Handler) writeBundle(w http.ResponseWriter, r *http.Request, b *bundle.Bundle) {
	data, err := bundle.Encode(b)
	if err != nil {
		respondError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

type searchResponse struct {
	Term     string            `json:"term"`
	Products []catalog.Product `json:"products"`
}

func (h *Handler) search(w http.ResponseWriter, r *http.Request) {
	b, err := h.bundles.Get(r.Context(), storeID(r), false)
	if err != nil {
		respondError(w, r, err)
		return
	}
	term := catalog.SanitizeTerm(r.URL.Query().Get("q"))
	products := b.Search(term)
	if products == nil {
		products = []catalog.Product{}
	}
	writeJSON(w, r, http.StatusOK, searchResponse{Term: term, Products: products})
}

type quoteResponse struct {
	ProductID   string          `json:"productId"`
	Size        string          `json:"size,omitempty"`
	Color       string          `json:"color,omitempty"`
	Pix         decimal.Decimal `json:"pix"`
	Card        decimal.Decimal `json:"card"`
	CardDelta   decimal.Decimal `json:"cardDelta"`
	PromoActive bool            `json:"promoActive"`
	Available   int             `json:"available"`
	Complete    bool            `json:"complete"`
}

// quote prices a selection and reports its stock exactly as an add to cart
// would see it.
func (h *Handler) quote(w http.ResponseWriter, r *http.Request) {
	sel := catalog.Selection{
		Size:  r.URL.Query().Get("size"),
		Color: r.URL.Query().Get("color"),
	}.Trimmed()

	snap, err := h.stock.Check(r.Context(), storeID(r), chi.URLParam(r, "productID"), sel)
	if err != nil {
		respondError(w, r, err)
		return
	}
	q := pricing.QuoteFor(snap.Product, snap.Variation, h.now())
	writeJSON(w, r, http.StatusOK, quoteResponse{
		ProductID:   snap.Product.ID,
		Size:        sel.Size,
		Color:       sel.Color,
		Pix:         q.Pix,
		Card:        q.Card,
		CardDelta:   q.Card.Sub(q.Pix),
		PromoActive: q.PromoActive,
		Available:   snap.Available(),
		Complete:    sel.Complete(snap.Product),
	})
}
