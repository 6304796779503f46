package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/vitrine/internal/domain"
	"github.com/xenking/vitrine/internal/domain/auth"
	"github.com/xenking/vitrine/internal/domain/cart"
	"github.com/xenking/vitrine/internal/domain/catalog"
	"github.com/xenking/vitrine/internal/domain/order"
)

// errorBody is the JSON body of every failed request.
type errorBody struct {
	Code           int    `json:"code"`
	Message        string `json:"message"`
	Field          string `json:"field,omitempty"`
	ProductID      string `json:"productId,omitempty"`
	Available      *int   `json:"available,omitempty"`
	RefreshCatalog bool   `json:"refreshCatalog,omitempty"`
}

func writeJSON(w http.ResponseWriter, r *http.Request, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zctx.From(r.Context()).Debug("Write response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string, patch func(*errorBody)) {
	body := errorBody{Code: code, Message: msg}
	if patch != nil {
		patch(&body)
	}
	writeJSON(w, r, code, body)
}

// respondError maps a domain error to its status and user-facing message.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validation *domain.ValidationError
		exceeded   *cart.StockExceededError
		lost       *order.StockLostError
	)
	switch {
	case errors.As(err, &validation):
		writeError(w, r, http.StatusBadRequest, validationMessage(validation), func(b *errorBody) {
			b.Field = validation.Field
		})
	case errors.As(err, &exceeded):
		writeError(w, r, http.StatusConflict,
			fmt.Sprintf("Estoque insuficiente para %s. Disponível: %d.", exceeded.Name, exceeded.Available),
			func(b *errorBody) {
				b.ProductID = exceeded.ProductID
				b.Available = &exceeded.Available
			})
	case errors.As(err, &lost):
		writeError(w, r, http.StatusConflict,
			fmt.Sprintf("Ops! O item %s acabou de ser reservado por outro cliente.", lost.Name),
			func(b *errorBody) {
				b.ProductID = lost.ProductID
				b.Available = &lost.Available
				b.RefreshCatalog = true
			})
	case errors.Is(err, catalog.ErrStoreNotFound):
		writeError(w, r, http.StatusNotFound, "Loja não encontrada.", nil)
	case errors.Is(err, catalog.ErrProductNotFound):
		writeError(w, r, http.StatusNotFound, "Produto não encontrado.", nil)
	case errors.Is(err, auth.ErrUnauthorized):
		writeError(w, r, http.StatusUnauthorized, "Chave de API inválida.", nil)
	case errors.Is(err, auth.ErrForbidden):
		writeError(w, r, http.StatusForbidden, "Chave de API sem permissão para esta loja.", nil)
	case errors.Is(err, domain.ErrUpstreamUnavailable):
		zctx.From(r.Context()).Warn("Upstream unavailable", zap.Error(err))
		writeError(w, r, http.StatusServiceUnavailable, "Não foi possível confirmar o estoque agora. Tente novamente.", nil)
	default:
		zctx.From(r.Context()).Error("Request failed", zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "Erro interno. Tente novamente.", nil)
	}
}

func validationMessage(e *domain.ValidationError) string {
	switch e.Field {
	case "name":
		return "Informe seu nome."
	case "phone":
		return "Informe um telefone válido com DDD."
	case "payment":
		return "Escolha a forma de pagamento."
	case "delivery":
		return "Escolha entre retirada ou entrega."
	case "street", "number", "neighborhood":
		return "Preencha o endereço completo para entrega."
	case "cart":
		return "Seu carrinho está vazio."
	case "items":
		return "Um item do carrinho não está mais disponível."
	case "variation":
		return "Selecione o tamanho e a cor."
	case "quantity":
		return "Quantidade inválida."
	default:
		return e.Error()
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, r, http.StatusBadRequest, "Requisição inválida.", nil)
		return false
	}
	return true
}
