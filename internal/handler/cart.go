package handler

import (
	"net/http"

	"github.com/xenking/vitrine/internal/domain/analytics"
	"github.com/xenking/vitrine/internal/domain/cart"
	"github.com/xenking/vitrine/internal/domain/catalog"
)

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	sid, ok := sessionID(w, r)
	if !ok {
		return
	}
	c, err := h.carts.Get(r.Context(), storeID(r), sid)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, c)
}

type addLineRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
	Size      string `json:"size"`
	Color     string `json:"color"`
	Image     string `json:"image"`
}

func (h *Handler) addLine(w http.ResponseWriter, r *http.Request) {
	sid, ok := sessionID(w, r)
	if !ok {
		return
	}
	var req addLineRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	c, err := h.carts.AddLine(r.Context(), cart.AddLineRequest{
		StoreID:   storeID(r),
		SessionID: sid,
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
		Selection: catalog.Selection{Size: req.Size, Color: req.Color},
		Image:     req.Image,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	h.tracker.Track(analytics.Event{
		StoreID:   storeID(r),
		ProductID: req.ProductID,
		Action:    analytics.ActionAdd,
		At:        h.now(),
	})
	writeJSON(w, r, http.StatusOK, c)
}

type changeQuantityRequest struct {
	ProductID string `json:"productId"`
	Size      string `json:"size"`
	Color     string `json:"color"`
	Delta     int    `json:"delta"`
}

type changeQuantityResponse struct {
	Cart   *cart.Cart   `json:"cart"`
	Notice *cart.Notice `json:"notice,omitempty"`
}

func (h *Handler) changeQuantity(w http.ResponseWriter, r *http.Request) {
	sid, ok := sessionID(w, r)
	if !ok {
		return
	}
	var req changeQuantityRequest
	if !decodeBody(w, r, &req) {
		return
	}

	key := cart.NewLineKey(req.ProductID, catalog.Selection{Size: req.Size, Color: req.Color})
	c, notice, err := h.carts.ChangeQuantity(r.Context(), storeID(r), sid, key, req.Delta)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, changeQuantityResponse{Cart: c, Notice: notice})
}
