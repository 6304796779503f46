package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/vitrine/internal/domain"
	"github.com/xenking/vitrine/internal/domain/analytics"
	"github.com/xenking/vitrine/internal/domain/auth"
	"github.com/xenking/vitrine/internal/domain/bundle"
	"github.com/xenking/vitrine/internal/domain/cart"
	"github.com/xenking/vitrine/internal/domain/catalog"
	"github.com/xenking/vitrine/internal/domain/messaging"
	"github.com/xenking/vitrine/internal/domain/order"
	"github.com/xenking/vitrine/internal/domain/stock"
)

// --- Mock implementations ---

type mockBundles struct {
	bundle *bundle.Bundle
	err    error
	forced []bool
}

func (m *mockBundles) Get(_ context.Context, _ string, force bool) (*bundle.Bundle, error) {
	m.forced = append(m.forced, force)
	return m.bundle, m.err
}

type mockStock struct {
	snap *stock.Snapshot
	err  error
}

func (m *mockStock) Check(_ context.Context, _, _ string, sel catalog.Selection) (*stock.Snapshot, error) {
	if m.err != nil {
		return nil, m.err
	}
	s := *m.snap
	s.Selection = sel
	return &s, nil
}

type mockCarts struct {
	cart    *cart.Cart
	notice  *cart.Notice
	err     error
	lastAdd cart.AddLineRequest
	lastKey cart.LineKey
	delta   int
}

func (m *mockCarts) Get(_ context.Context, storeID, sessionID string) (*cart.Cart, error) {
	if m.cart == nil {
		return cart.New(storeID, sessionID), m.err
	}
	return m.cart, m.err
}

func (m *mockCarts) AddLine(_ context.Context, req cart.AddLineRequest) (*cart.Cart, error) {
	m.lastAdd = req
	if m.err != nil {
		return nil, m.err
	}
	return m.cart, nil
}

func (m *mockCarts) ChangeQuantity(_ context.Context, _, _ string, key cart.LineKey, delta int) (*cart.Cart, *cart.Notice, error) {
	m.lastKey, m.delta = key, delta
	return m.cart, m.notice, m.err
}

type mockCheckout struct {
	res  *order.CheckoutResult
	err  error
	last order.CheckoutRequest
}

func (m *mockCheckout) Checkout(_ context.Context, req order.CheckoutRequest) (*order.CheckoutResult, error) {
	m.last = req
	return m.res, m.err
}

type mockTracker struct {
	mu     sync.Mutex
	events []analytics.Event
}

func (m *mockTracker) Track(ev analytics.Event) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
	return true
}

type mockRankings struct {
	report *analytics.Report
	err    error
}

func (m *mockRankings) Ranking(_ context.Context, _ string) (*analytics.Report, error) {
	return m.report, m.err
}

type mockKeys struct {
	err error
}

func (m *mockKeys) Authenticate(_ context.Context, key, _, _ string) (*auth.APIKeyInfo, error) {
	if m.err != nil {
		return nil, m.err
	}
	if key == "" {
		return nil, auth.ErrUnauthorized
	}
	return &auth.APIKeyInfo{ID: "key-1"}, nil
}

// --- Helpers ---

type fixture struct {
	bundles  *mockBundles
	stock    *mockStock
	carts    *mockCarts
	checkout *mockCheckout
	tracker  *mockTracker
	rankings *mockRankings
	keys     *mockKeys
	router   chi.Router
}

var testNow = time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

func teeProduct() catalog.Product {
	return catalog.Product{
		ID:        "tee",
		Name:      "Camiseta",
		Value:     decimal.NewFromInt(100),
		PriceCard: decimal.NewNullDecimal(decimal.NewFromInt(120)),
		Stock:     5,
		Sizes:     []string{"P", "M"},
		Variations: []catalog.Variation{
			{Size: "P", Stock: 1, Active: true},
			{Size: "M", Stock: 5, Active: true},
		},
		Status: catalog.StatusActive,
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	tee := teeProduct()
	f := &fixture{
		bundles: &mockBundles{bundle: &bundle.Bundle{
			Config:   catalog.StoreConfig{StoreID: "loja", Name: "Loja", LastUpdate: testNow},
			Products: []catalog.Product{tee, {ID: "mug", Name: "Caneca", Value: decimal.NewFromInt(30), Status: catalog.StatusActive}},
		}},
		stock:    &mockStock{snap: &stock.Snapshot{Product: &tee, Variation: &tee.Variations[1], Panel: 5, Reserved: 2}},
		carts:    &mockCarts{cart: cart.New("loja", "s1")},
		checkout: &mockCheckout{},
		tracker:  &mockTracker{},
		rankings: &mockRankings{},
		keys:     &mockKeys{},
	}
	h := NewHandler(Config{
		Bundles:  f.bundles,
		Stock:    f.stock,
		Carts:    f.carts,
		Checkout: f.checkout,
		Tracker:  f.tracker,
		Rankings: f.rankings,
		Keys:     f.keys,
	})
	h.now = func() time.Time { return testNow }
	r := chi.NewRouter()
	h.Register(r)
	f.router = r
	return f
}

func (f *fixture) do(t *testing.T, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func session() map[string]string {
	return map[string]string{HeaderSessionID: "s1"}
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return body
}

// --- Tests ---

func TestGetBundle(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/api/stores/loja/bundle", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Contains(t, body, "config")
	assert.Contains(t, body, "produtos")
	assert.Contains(t, body, "lastSync")
	assert.Equal(t, []bool{false}, f.bundles.forced)
}

func TestGetBundle_Errors(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		err    error
		status int
	}{
		{"invalid store id", "/api/stores/bad%20id/bundle", nil, http.StatusBadRequest},
		{"store not found", "/api/stores/loja/bundle", catalog.ErrStoreNotFound, http.StatusNotFound},
		{"upstream down", "/api/stores/loja/bundle", domain.Unavailable("read config", errors.New("timeout")), http.StatusServiceUnavailable},
		{"unexpected", "/api/stores/loja/bundle", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.bundles.err = tt.err

			w := f.do(t, http.MethodGet, tt.path, "", nil)
			assert.Equal(t, tt.status, w.Code)
			body := decodeError(t, w)
			assert.Equal(t, tt.status, body.Code)
			assert.NotEmpty(t, body.Message)
		})
	}
}

func TestRefreshBundle(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		authErr error
		status  int
		forced  []bool
	}{
		{"no key", "", nil, http.StatusUnauthorized, nil},
		{"forbidden", "k", auth.ErrForbidden, http.StatusForbidden, nil},
		{"forced rebuild", "k", nil, http.StatusOK, []bool{true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.keys.err = tt.authErr

			w := f.do(t, http.MethodPost, "/api/stores/loja/bundle/refresh", "", map[string]string{HeaderAPIKey: tt.key})
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.forced, f.bundles.forced)
		})
	}
}

func TestSearch(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/api/stores/loja/products/search?q=%3Ccamis%3E", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body searchResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "camis", body.Term)
	require.Len(t, body.Products, 1)
	assert.Equal(t, "tee", body.Products[0].ID)

	w = f.do(t, http.MethodGet, "/api/stores/loja/products/search?q=nada", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"products":[]`)
}

func TestQuote(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/api/stores/loja/products/tee/quote?size=M", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body quoteResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "tee", body.ProductID)
	assert.True(t, decimal.NewFromInt(100).Equal(body.Pix), body.Pix.String())
	assert.True(t, decimal.NewFromInt(120).Equal(body.Card), body.Card.String())
	assert.True(t, decimal.NewFromInt(20).Equal(body.CardDelta))
	assert.Equal(t, 3, body.Available)
	assert.True(t, body.Complete)

	f.stock.err = catalog.ErrProductNotFound
	w = f.do(t, http.MethodGet, "/api/stores/loja/products/gone/quote", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAddLine(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/api/stores/loja/cart/lines",
		`{"productId":"tee","size":"M","image":"azul.jpg"}`, session())
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, cart.AddLineRequest{
		StoreID:   "loja",
		SessionID: "s1",
		ProductID: "tee",
		Quantity:  1,
		Selection: catalog.Selection{Size: "M"},
		Image:     "azul.jpg",
	}, f.carts.lastAdd)

	require.Len(t, f.tracker.events, 1)
	assert.Equal(t, analytics.ActionAdd, f.tracker.events[0].Action)
	assert.Equal(t, "tee", f.tracker.events[0].ProductID)
}

func TestAddLine_Errors(t *testing.T) {
	tests := []struct {
		name      string
		headers   map[string]string
		body      string
		err       error
		status    int
		available *int
	}{
		{
			name:   "missing session",
			body:   `{"productId":"tee"}`,
			status: http.StatusBadRequest,
		},
		{
			name:    "bad json",
			headers: session(),
			body:    `{`,
			status:  http.StatusBadRequest,
		},
		{
			name:      "stock exceeded",
			headers:   session(),
			body:      `{"productId":"tee","size":"P","quantity":2}`,
			err:       &cart.StockExceededError{ProductID: "tee", Name: "Camiseta", Requested: 2, Available: 1},
			status:    http.StatusConflict,
			available: new(int),
		},
		{
			name:    "incomplete variation",
			headers: session(),
			body:    `{"productId":"tee"}`,
			err:     domain.Invalid("variation", "choose an option for every size and color"),
			status:  http.StatusBadRequest,
		},
		{
			name:    "fails closed when the store is down",
			headers: session(),
			body:    `{"productId":"tee","size":"M"}`,
			err:     domain.Unavailable("read product", errors.New("timeout")),
			status:  http.StatusServiceUnavailable,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.carts.err = tt.err

			w := f.do(t, http.MethodPost, "/api/stores/loja/cart/lines", tt.body, tt.headers)
			assert.Equal(t, tt.status, w.Code)
			body := decodeError(t, w)
			if tt.available != nil {
				require.NotNil(t, body.Available)
				assert.Equal(t, 1, *body.Available)
				assert.Equal(t, "tee", body.ProductID)
				assert.False(t, body.RefreshCatalog)
			}
			assert.Empty(t, f.tracker.events)
		})
	}
}

func TestChangeQuantity_Notice(t *testing.T) {
	f := newFixture(t)
	f.carts.notice = &cart.Notice{Kind: cart.NoticeLimitReached, Available: 1, Message: "Limite atingido! Temos apenas 1 unidades."}

	w := f.do(t, http.MethodPatch, "/api/stores/loja/cart/lines",
		`{"productId":" tee ","size":"P","delta":1}`, session())
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, cart.LineKey{ProductID: "tee", Size: "P"}, f.carts.lastKey)
	assert.Equal(t, 1, f.carts.delta)

	var body struct {
		Notice *cart.Notice `json:"notice"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	require.NotNil(t, body.Notice)
	assert.Equal(t, cart.NoticeLimitReached, body.Notice.Kind)
}

func TestGetCart(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/api/stores/loja/cart", "", session())
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"sessionId":"s1"`)

	w = f.do(t, http.MethodGet, "/api/stores/loja/cart", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

const checkoutBody = `{
	"customer": {"name": "Ana", "phone": "(11) 99999-0000"},
	"delivery": {"mode": "delivery", "fee": 10, "address": {"street": "Rua A", "number": "1", "neighborhood": "Centro"}},
	"payment": {"method": "Dinheiro", "changeFor": "200"}
}`

func TestCheckout(t *testing.T) {
	f := newFixture(t)
	f.checkout.res = &order.CheckoutResult{
		Order:   &order.Order{ID: "o1", ShortID: "ABC12", StoreID: "loja"},
		Message: messaging.Message{Text: "PEDIDO #ABC12", Link: "https://wa.me/5511?text=x"},
		State:   order.StateCompleted,
	}

	w := f.do(t, http.MethodPost, "/api/stores/loja/checkout", checkoutBody, session())
	require.Equal(t, http.StatusCreated, w.Code)

	req := f.checkout.last
	assert.Equal(t, "loja", req.StoreID)
	assert.Equal(t, "s1", req.SessionID)
	assert.Equal(t, "Ana", req.Customer.Name)
	assert.Equal(t, order.DeliveryShipping, req.Delivery.Mode)
	assert.True(t, decimal.NewFromInt(10).Equal(req.Delivery.Fee))
	assert.Equal(t, "Rua A", req.Delivery.Address.Street)
	require.True(t, req.Payment.ChangeFor.Valid)
	assert.True(t, decimal.NewFromInt(200).Equal(req.Payment.ChangeFor.Decimal))

	var body struct {
		Order   order.Order     `json:"order"`
		Message handoffResponse `json:"message"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "ABC12", body.Order.ShortID)
	assert.Equal(t, "https://wa.me/5511?text=x", body.Message.Link)
}

func TestCheckout_Errors(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		refresh bool
		field   string
	}{
		{
			name:    "stock lost to another shopper",
			err:     &order.StockLostError{ProductID: "tee", Name: "Camiseta", Size: "P", Requested: 1},
			status:  http.StatusConflict,
			refresh: true,
		},
		{
			name:   "validation",
			err:    domain.Invalid("phone", "must have at least 10 digits"),
			status: http.StatusBadRequest,
			field:  "phone",
		},
		{
			name:   "empty cart",
			err:    domain.Invalid("cart", "empty"),
			status: http.StatusBadRequest,
			field:  "cart",
		},
		{
			name:   "write failed",
			err:    domain.Unavailable("create order", errors.New("conn reset")),
			status: http.StatusServiceUnavailable,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.checkout.err = tt.err

			w := f.do(t, http.MethodPost, "/api/stores/loja/checkout", checkoutBody, session())
			assert.Equal(t, tt.status, w.Code)
			body := decodeError(t, w)
			assert.Equal(t, tt.refresh, body.RefreshCatalog)
			assert.Equal(t, tt.field, body.Field)
			if tt.refresh {
				assert.Contains(t, body.Message, "reservado por outro cliente")
			}
		})
	}
}

func TestVisitAndMetric(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/api/stores/loja/visit", "", nil)
	assert.Equal(t, http.StatusAccepted, w.Code)

	w = f.do(t, http.MethodPost, "/api/stores/loja/metrics", `{"productId":"tee","action":"fav"}`, nil)
	assert.Equal(t, http.StatusAccepted, w.Code)

	w = f.do(t, http.MethodPost, "/api/stores/loja/metrics", `{"productId":"tee","action":"visit"}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPost, "/api/stores/loja/metrics", `{"action":"add"}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	require.Len(t, f.tracker.events, 2)
	assert.Equal(t, analytics.Event{StoreID: "loja", Action: analytics.ActionVisit, At: testNow}, f.tracker.events[0])
	assert.Equal(t, analytics.Event{StoreID: "loja", ProductID: "tee", Action: analytics.ActionFav, At: testNow}, f.tracker.events[1])
}

func TestRanking(t *testing.T) {
	f := newFixture(t)
	f.rankings.err = analytics.ErrNoData

	w := f.do(t, http.MethodGet, "/api/stores/loja/ranking", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var report analytics.Report
	require.NoError(t, json.NewDecoder(w.Body).Decode(&report))
	assert.Equal(t, "loja", report.StoreID)
	assert.Empty(t, report.Ranking)

	f.rankings.err = nil
	f.rankings.report = &analytics.Report{
		StoreID:           "loja",
		TotalInteractions: 7,
		Ranking:           []analytics.RankEntry{{ProductID: "tee", Favs: 4, Adds: 3, Score: 7}},
	}
	w = f.do(t, http.MethodGet, "/api/stores/loja/ranking", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.NewDecoder(w.Body).Decode(&report))
	require.Len(t, report.Ranking, 1)
	assert.EqualValues(t, 7, report.Ranking[0].Score)
}
