//go:build integration

package integration

import (
	"net/http"
	"regexp"
	"strings"
	"testing"
)

var shortIDPattern = regexp.MustCompile(`^[A-F0-9]{5}$`)

func pickupOrder() checkoutRequest {
	var req checkoutRequest
	req.Customer.Name = "Maria Souza"
	req.Customer.Phone = "(11) 98888-7777"
	req.Delivery.Mode = "pickup"
	req.Payment.Method = "Pix"
	return req
}

func TestCheckout_EmptyCart(t *testing.T) {
	resp := doRequest(t, http.MethodPost, storePath("/checkout"), pickupOrder(), session(t))
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestCheckout_InvalidCustomer(t *testing.T) {
	req := pickupOrder()
	req.Customer.Phone = "123"

	resp := doRequest(t, http.MethodPost, storePath("/checkout"), req, session(t))
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	body := decodeJSON[errorResponse](t, resp)
	if body.Field != "phone" {
		t.Errorf("field: got %q, want phone", body.Field)
	}
}

// The mug has a single unit: the first checkout reserves it and the next
// shopper sees it as sold out.
func TestCheckout_ReservesStock(t *testing.T) {
	buyer := map[string]string{"X-Session-ID": "it-checkout-buyer"}
	other := map[string]string{"X-Session-ID": "it-checkout-other"}

	for _, sess := range []map[string]string{buyer, other} {
		resp := doRequest(t, http.MethodPost, storePath("/cart/lines"), addLineRequest{ProductID: "caneca"}, sess)
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("add: expected 200, got %d", resp.StatusCode)
		}
	}

	resp := doRequest(t, http.MethodPost, storePath("/checkout"), pickupOrder(), buyer)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("checkout: expected 201, got %d", resp.StatusCode)
	}

	res := decodeJSON[checkoutResponse](t, resp)
	if !shortIDPattern.MatchString(res.Order.ShortID) {
		t.Errorf("short id %q does not match %s", res.Order.ShortID, shortIDPattern)
	}
	if res.Order.Total != 30 {
		t.Errorf("total: got %v, want 30", res.Order.Total)
	}
	if len(res.Order.Items) != 1 || res.Order.Items[0].ID != "caneca" {
		t.Errorf("unexpected items: %+v", res.Order.Items)
	}
	if !strings.HasPrefix(res.Message.Link, "https://wa.me/5511999990000?text=") {
		t.Errorf("unexpected link %q", res.Message.Link)
	}
	if !strings.Contains(res.Message.Text, res.Order.ShortID) {
		t.Errorf("message does not mention order %s", res.Order.ShortID)
	}

	// The buyer's cart is emptied.
	cartResp := doRequest(t, http.MethodGet, storePath("/cart"), nil, buyer)
	defer cartResp.Body.Close()
	if c := decodeJSON[cartResponse](t, cartResp); len(c.Lines) != 0 {
		t.Errorf("buyer cart not cleared: %+v", c.Lines)
	}

	// The other shopper loses the race.
	lost := doRequest(t, http.MethodPost, storePath("/checkout"), pickupOrder(), other)
	defer lost.Body.Close()

	if lost.StatusCode != http.StatusConflict {
		t.Fatalf("second checkout: expected 409, got %d", lost.StatusCode)
	}
	body := decodeJSON[errorResponse](t, lost)
	if body.ProductID != "caneca" || !body.RefreshCatalog {
		t.Errorf("unexpected conflict body: %+v", body)
	}

	quote := doGet(t, storePath("/products/caneca/quote"))
	defer quote.Body.Close()
	if q := decodeJSON[quoteResponse](t, quote); q.Available != 0 {
		t.Errorf("available after checkout: got %d, want 0", q.Available)
	}
}
