package handler

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/xenking/vitrine/internal/domain/order"
	"github.com/xenking/vitrine/internal/domain/pricing"
)

type checkoutRequest struct {
	Customer struct {
		Name  string `json:"name"`
		Phone string `json:"phone"`
	} `json:"customer"`
	Delivery struct {
		Mode    string          `json:"mode"`
		Fee     decimal.Decimal `json:"fee"`
		Address order.Address   `json:"address"`
	} `json:"delivery"`
	Payment struct {
		Method       string              `json:"method"`
		ChangeFor    decimal.NullDecimal `json:"changeFor"`
		Installments int                 `json:"installments"`
	} `json:"payment"`
}

type handoffResponse struct {
	Text string `json:"text"`
	Link string `json:"link"`
}

type checkoutResponse struct {
	Order   *order.Order    `json:"order"`
	Message handoffResponse `json:"message"`
}

func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	sid, ok := sessionID(w, r)
	if !ok {
		return
	}
	var req checkoutRequest
	if !decodeBody(w, r, &req) {
		return
	}

	res, err := h.checkout.Checkout(r.Context(), order.CheckoutRequest{
		StoreID:   storeID(r),
		SessionID: sid,
		Customer: order.CustomerInput{
			Name:  req.Customer.Name,
			Phone: req.Customer.Phone,
		},
		Delivery: order.Delivery{
			Mode:    order.DeliveryMode(req.Delivery.Mode),
			Fee:     req.Delivery.Fee,
			Address: req.Delivery.Address,
		},
		Payment: order.Payment{
			Method:       pricing.Method(req.Payment.Method),
			ChangeFor:    req.Payment.ChangeFor,
			Installments: req.Payment.Installments,
		},
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusCreated, checkoutResponse{
		Order: res.Order,
		Message: handoffResponse{
			Text: res.Message.Text,
			Link: res.Message.Link,
		},
	})
}
