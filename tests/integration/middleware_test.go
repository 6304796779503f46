//go:build integration

package integration

import (
	"net/http"
	"strconv"
	"strings"
	"testing"
)

func TestRequestID(t *testing.T) {
	tests := []struct {
		name     string
		incoming string
		wantEcho bool
	}{
		{name: "generated", incoming: "", wantEcho: false},
		{name: "echoed", incoming: "storefront-req-12345", wantEcho: true},
		{name: "oversized replaced", incoming: strings.Repeat("x", 200), wantEcho: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			headers := map[string]string{}
			if tt.incoming != "" {
				headers["X-Request-ID"] = tt.incoming
			}
			resp := doRequest(t, http.MethodGet, storePath("/bundle"), nil, headers)
			defer resp.Body.Close()

			got := resp.Header.Get("X-Request-ID")
			if got == "" {
				t.Fatal("X-Request-ID header not present")
			}
			if tt.wantEcho && got != tt.incoming {
				t.Errorf("X-Request-ID: got %q, want %q", got, tt.incoming)
			}
			if !tt.wantEcho && got == tt.incoming {
				t.Errorf("X-Request-ID %q should have been replaced", got)
			}
		})
	}
}

func TestCORS_CartPreflight(t *testing.T) {
	resp := doRequest(t, http.MethodOptions, storePath("/cart/lines"), nil, map[string]string{
		"Origin":                         "https://loja.example.com",
		"Access-Control-Request-Method":  http.MethodPatch,
		"Access-Control-Request-Headers": "content-type, x-session-id",
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin: got %q, want *", got)
	}
	if methods := resp.Header.Get("Access-Control-Allow-Methods"); !strings.Contains(methods, http.MethodPatch) {
		t.Errorf("Access-Control-Allow-Methods %q lacks PATCH", methods)
	}
	if headers := resp.Header.Get("Access-Control-Allow-Headers"); !strings.Contains(headers, "X-Session-ID") {
		t.Errorf("Access-Control-Allow-Headers %q lacks X-Session-ID", headers)
	}
	if maxAge := resp.Header.Get("Access-Control-Max-Age"); maxAge != "86400" {
		t.Errorf("Access-Control-Max-Age: got %q, want 86400", maxAge)
	}
}

func TestCORS_ExposesQuotaHeaders(t *testing.T) {
	resp := doRequest(t, http.MethodGet, storePath("/bundle"), nil, map[string]string{
		"Origin": "https://loja.example.com",
	})
	defer resp.Body.Close()

	if got := resp.Header.Get("Access-Control-Allow-Origin"); got == "" {
		t.Fatal("Access-Control-Allow-Origin header not present")
	}
	expose := resp.Header.Get("Access-Control-Expose-Headers")
	for _, h := range []string{"X-Request-ID", "X-RateLimit-Remaining", "Retry-After"} {
		if !strings.Contains(expose, h) {
			t.Errorf("Access-Control-Expose-Headers %q lacks %s", expose, h)
		}
	}
}

func TestRateLimit_StoreRoutes(t *testing.T) {
	first := doGet(t, storePath("/bundle"))
	first.Body.Close()
	second := doGet(t, storePath("/ranking"))
	second.Body.Close()

	if limit := first.Header.Get("X-RateLimit-Limit"); limit != "10000" {
		t.Errorf("X-RateLimit-Limit: got %q, want 10000", limit)
	}
	if reset := first.Header.Get("X-RateLimit-Reset"); reset == "" {
		t.Error("X-RateLimit-Reset header not present")
	}

	// The ranking route draws from the same demo store quota.
	remaining, err := strconv.Atoi(second.Header.Get("X-RateLimit-Remaining"))
	if err != nil {
		t.Fatalf("parse remaining: %v", err)
	}
	if remaining >= 10000 {
		t.Errorf("X-RateLimit-Remaining: got %d, want below the limit", remaining)
	}
}
