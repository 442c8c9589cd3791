//go:build integration

package integration

import (
	"fmt"
	"net/http"
	"testing"
)

func getProduct(t *testing.T, id int64) productResponse {
	t.Helper()
	resp := doGet(t, fmt.Sprintf("/api/products/%d", id), customerKey)
	defer resp.Body.Close()
	wantStatus(t, resp, http.StatusOK)
	return decodeJSON[productResponse](t, resp)
}

func TestProducts_List(t *testing.T) {
	resp := doGet(t, "/api/products", customerKey)
	defer resp.Body.Close()
	wantStatus(t, resp, http.StatusOK)

	products := decodeJSON[[]productResponse](t, resp)
	if len(products) < 10 {
		t.Fatalf("got %d products, want at least 10", len(products))
	}
	for _, p := range products {
		if p.SKU == "" || p.Name == "" {
			t.Errorf("product %d missing sku or name", p.ID)
		}
	}
}

func TestProducts_GetUnknown(t *testing.T) {
	resp := doGet(t, "/api/products/999999", customerKey)
	defer resp.Body.Close()
	wantStatus(t, resp, http.StatusNotFound)
}

func TestAuth_MissingKey(t *testing.T) {
	resp := doGet(t, "/api/products", "")
	defer resp.Body.Close()
	wantStatus(t, resp, http.StatusUnauthorized)
}

func TestAuth_UnknownKey(t *testing.T) {
	resp := doGet(t, "/api/products", "not-a-real-key")
	defer resp.Body.Close()
	wantStatus(t, resp, http.StatusUnauthorized)
}

func TestAdmin_StockAdjustForbiddenForCustomer(t *testing.T) {
	resp := doPost(t, "/api/products/1/stock", map[string]any{
		"delta":      5,
		"changeType": "restock",
	}, customerKey)
	defer resp.Body.Close()
	wantStatus(t, resp, http.StatusForbidden)
}

func TestAdmin_StockAdjustAndHistory(t *testing.T) {
	before := getProduct(t, 9)

	resp := doPost(t, "/api/products/9/stock", map[string]any{
		"delta":      3,
		"changeType": "restock",
		"reason":     "inbound shipment",
	}, adminKey)
	wantStatus(t, resp, http.StatusOK)
	resp.Body.Close()

	after := getProduct(t, 9)
	if after.Stock != before.Stock+3 {
		t.Errorf("stock: got %d, want %d", after.Stock, before.Stock+3)
	}

	resp = doGet(t, "/api/products/9/inventory", adminKey)
	defer resp.Body.Close()
	wantStatus(t, resp, http.StatusOK)

	logs := decodeJSON[[]map[string]any](t, resp)
	if len(logs) == 0 {
		t.Fatal("expected at least one inventory log entry")
	}
}

func TestCart_AddUpdateRemove(t *testing.T) {
	clearCart(t)
	addToCart(t, 3, 1) // Kline Accent Chair, 329.00

	resp := doReq(t, http.MethodPatch, "/api/cart/3", map[string]int{"quantity": 2}, customerKey)
	wantStatus(t, resp, http.StatusNoContent)
	resp.Body.Close()

	resp = doGet(t, "/api/cart", customerKey)
	wantStatus(t, resp, http.StatusOK)
	cart := decodeJSON[cartResponse](t, resp)
	resp.Body.Close()
	if len(cart.Items) != 1 {
		t.Fatalf("got %d cart lines, want 1", len(cart.Items))
	}
	if cart.Items[0].Quantity != 2 {
		t.Errorf("quantity: got %d, want 2", cart.Items[0].Quantity)
	}
	if cart.Subtotal != "658" && cart.Subtotal != "658.00" {
		t.Errorf("subtotal: got %s, want 658.00", cart.Subtotal)
	}

	resp = doReq(t, http.MethodDelete, "/api/cart/3", nil, customerKey)
	wantStatus(t, resp, http.StatusNoContent)
	resp.Body.Close()

	resp = doGet(t, "/api/cart", customerKey)
	defer resp.Body.Close()
	cart = decodeJSON[cartResponse](t, resp)
	if len(cart.Items) != 0 {
		t.Errorf("cart not empty after removal: %d lines", len(cart.Items))
	}
}

func TestCart_QuantityBeyondStock(t *testing.T) {
	clearCart(t)

	resp := doPost(t, "/api/cart", addToCartRequest{ProductID: 4, Quantity: 100}, customerKey)
	defer resp.Body.Close()
	wantStatus(t, resp, http.StatusConflict)
}

func TestCart_UpdateUnknownLine(t *testing.T) {
	clearCart(t)

	resp := doReq(t, http.MethodPatch, "/api/cart/6", map[string]int{"quantity": 2}, customerKey)
	defer resp.Body.Close()
	wantStatus(t, resp, http.StatusNotFound)
}

func TestHealth_Probes(t *testing.T) {
	for _, path := range []string{"/livez", "/readyz"} {
		resp := doGet(t, path, "")
		wantStatus(t, resp, http.StatusOK)
		resp.Body.Close()
	}
}
