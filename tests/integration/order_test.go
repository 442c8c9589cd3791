//go:build integration

package integration

import (
	"fmt"
	"net/http"
	"strings"
	"testing"

	"golang.org/x/sync/errgroup"
)

type addToCartRequest struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

type createOrderRequest struct {
	ShippingAddressRef int64  `json:"shippingAddressRef"`
	BillingAddressRef  int64  `json:"billingAddressRef,omitempty"`
	CouponCode         string `json:"couponCode,omitempty"`
}

type payOrderRequest struct {
	Method string `json:"method"`
}

type advanceOrderRequest struct {
	Status         string `json:"status"`
	TrackingNumber string `json:"trackingNumber,omitempty"`
}

func clearCart(t *testing.T) {
	t.Helper()
	resp := doReq(t, http.MethodDelete, "/api/cart", nil, customerKey)
	resp.Body.Close()
}

func addToCart(t *testing.T, productID int64, qty int) {
	t.Helper()
	resp := doPost(t, "/api/cart", addToCartRequest{ProductID: productID, Quantity: qty}, customerKey)
	defer resp.Body.Close()
	wantStatus(t, resp, http.StatusCreated)
}

func checkout(t *testing.T, coupon string) orderResponse {
	t.Helper()
	resp := doPost(t, "/api/orders", createOrderRequest{
		ShippingAddressRef: 1,
		CouponCode:         coupon,
	}, customerKey)
	defer resp.Body.Close()
	wantStatus(t, resp, http.StatusCreated)
	return decodeJSON[orderResponse](t, resp)
}

func payOrder(t *testing.T, orderID int64) orderResponse {
	t.Helper()
	resp := doPost(t, fmt.Sprintf("/api/orders/%d/payment", orderID),
		payOrderRequest{Method: "credit_card"}, customerKey)
	defer resp.Body.Close()
	wantStatus(t, resp, http.StatusOK)
	return decodeJSON[orderResponse](t, resp)
}

func TestCheckout_EmptyCart(t *testing.T) {
	clearCart(t)

	resp := doPost(t, "/api/orders", createOrderRequest{ShippingAddressRef: 1}, customerKey)
	defer resp.Body.Close()
	wantStatus(t, resp, http.StatusUnprocessableEntity)
}

func TestCheckout_HappyPath(t *testing.T) {
	clearCart(t)
	addToCart(t, 2, 2) // Mesa Walnut Coffee Table, 249.50 each
	addToCart(t, 7, 1) // Venta Mesh Office Chair, 219.99

	order := checkout(t, "")
	if order.Status != "pending" {
		t.Errorf("status: got %s, want pending", order.Status)
	}
	if order.Subtotal != "718.99" {
		t.Errorf("subtotal: got %s, want 718.99", order.Subtotal)
	}
	if order.ShippingCost != "10" && order.ShippingCost != "10.00" {
		t.Errorf("shipping: got %s, want 10.00", order.ShippingCost)
	}
	// 8% of 718.99 = 57.5192 -> 57.52.
	if order.TaxCost != "57.52" {
		t.Errorf("tax: got %s, want 57.52", order.TaxCost)
	}
	if order.TotalAmount != "786.51" {
		t.Errorf("total: got %s, want 786.51", order.TotalAmount)
	}
	if len(order.Items) != 2 {
		t.Fatalf("items: got %d, want 2", len(order.Items))
	}
	if !strings.HasPrefix(order.OrderNumber, "ORD-") {
		t.Errorf("order number %q missing ORD- prefix", order.OrderNumber)
	}

	// The cart is cleared by a successful checkout.
	resp := doGet(t, "/api/cart", customerKey)
	defer resp.Body.Close()
	wantStatus(t, resp, http.StatusOK)
	cart := decodeJSON[cartResponse](t, resp)
	if len(cart.Items) != 0 {
		t.Errorf("cart not cleared: %d items remain", len(cart.Items))
	}

	// The order is also addressable by its ORD- number.
	byNum := doGet(t, "/api/orders/number/"+order.OrderNumber, customerKey)
	wantStatus(t, byNum, http.StatusOK)
	lookedUp := decodeJSON[orderResponse](t, byNum)
	byNum.Body.Close()
	if lookedUp.ID != order.ID {
		t.Errorf("lookup by number: got order %d, want %d", lookedUp.ID, order.ID)
	}

	// Pay, confirm, and walk the order through fulfillment.
	paid := payOrder(t, order.ID)
	if paid.Status != "confirmed" {
		t.Fatalf("status after payment: got %s, want confirmed", paid.Status)
	}

	for _, target := range []string{"processing", "shipped", "delivered"} {
		resp := doPost(t, fmt.Sprintf("/api/orders/%d/status", order.ID),
			advanceOrderRequest{Status: target, TrackingNumber: "TRK-INT-1"}, adminKey)
		wantStatus(t, resp, http.StatusOK)
		advanced := decodeJSON[orderResponse](t, resp)
		resp.Body.Close()
		if advanced.Status != target {
			t.Fatalf("advance: got %s, want %s", advanced.Status, target)
		}
	}
}

func TestCheckout_WithCoupon(t *testing.T) {
	clearCart(t)
	addToCart(t, 1, 1) // Harlow 3-Seat Sofa, 899.99

	order := checkout(t, "WELCOME10")
	// 10% of 899.99 = 90.00 but WELCOME10 caps at 20.00.
	if order.DiscountAmount != "20" && order.DiscountAmount != "20.00" {
		t.Errorf("discount: got %s, want 20.00", order.DiscountAmount)
	}
}

func TestCheckout_CouponPerUserLimit(t *testing.T) {
	// SAVE15 allows two redemptions per user.
	for range 2 {
		clearCart(t)
		addToCart(t, 4, 1) // Norland Queen Bed Frame, 649.00, over the $75 minimum
		checkout(t, "SAVE15")
	}

	clearCart(t)
	addToCart(t, 4, 1)
	resp := doPost(t, "/api/orders", createOrderRequest{
		ShippingAddressRef: 1,
		CouponCode:         "SAVE15",
	}, customerKey)
	defer resp.Body.Close()
	wantStatus(t, resp, http.StatusUnprocessableEntity)
}

func TestCheckout_UnknownCoupon(t *testing.T) {
	clearCart(t)
	addToCart(t, 1, 1)

	resp := doPost(t, "/api/orders", createOrderRequest{
		ShippingAddressRef: 1,
		CouponCode:         "DOES-NOT-EXIST",
	}, customerKey)
	defer resp.Body.Close()
	wantStatus(t, resp, http.StatusUnprocessableEntity)
}

func TestFulfillment_SkippingForbidden(t *testing.T) {
	clearCart(t)
	addToCart(t, 8, 1)
	order := checkout(t, "")

	// pending -> shipped skips confirmation and processing.
	resp := doPost(t, fmt.Sprintf("/api/orders/%d/status", order.ID),
		advanceOrderRequest{Status: "shipped"}, adminKey)
	defer resp.Body.Close()
	wantStatus(t, resp, http.StatusConflict)
}

func TestFulfillment_RequiresAdmin(t *testing.T) {
	clearCart(t)
	addToCart(t, 8, 1)
	order := checkout(t, "")

	resp := doPost(t, fmt.Sprintf("/api/orders/%d/status", order.ID),
		advanceOrderRequest{Status: "processing"}, customerKey)
	defer resp.Body.Close()
	wantStatus(t, resp, http.StatusForbidden)
}

func TestPayment_ConcurrentConfirmNeverOversells(t *testing.T) {
	// Drive the floor lamp down to a single unit.
	before := getProduct(t, 8)
	if before.Stock != 1 {
		resp := doPost(t, "/api/products/8/stock", map[string]any{
			"delta":      1 - before.Stock,
			"changeType": "adjustment",
			"reason":     "inventory correction",
		}, adminKey)
		wantStatus(t, resp, http.StatusOK)
		resp.Body.Close()
	}

	// Two pending orders both want that unit; creation only verifies stock,
	// deduction happens at payment.
	var orders [2]orderResponse
	for i := range orders {
		clearCart(t)
		addToCart(t, 8, 1)
		orders[i] = checkout(t, "")
	}

	statuses := make([]int, len(orders))
	var g errgroup.Group
	for i := range orders {
		g.Go(func() error {
			var err error
			statuses[i], err = postStatus(fmt.Sprintf("/api/orders/%d/payment", orders[i].ID),
				payOrderRequest{Method: "credit_card"}, customerKey)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("concurrent payment: %v", err)
	}

	confirmed := 0
	var loserID int64
	for i, code := range statuses {
		switch code {
		case http.StatusOK:
			confirmed++
		case http.StatusConflict:
			loserID = orders[i].ID
		}
	}
	if confirmed != 1 || loserID == 0 {
		t.Fatalf("statuses: got %v, want exactly one 200 and one 409", statuses)
	}

	if after := getProduct(t, 8); after.Stock != 0 {
		t.Errorf("stock after racing confirms: got %d, want 0", after.Stock)
	}

	// The losing order rolled back whole: still pending, retryable.
	resp := doGet(t, fmt.Sprintf("/api/orders/%d", loserID), customerKey)
	defer resp.Body.Close()
	wantStatus(t, resp, http.StatusOK)
	if loser := decodeJSON[orderResponse](t, resp); loser.Status != "pending" {
		t.Errorf("losing order status: got %s, want pending", loser.Status)
	}
}

func TestCheckout_ConcurrentCouponRedemption(t *testing.T) {
	// HALFOFF allows a single redemption per user.
	clearCart(t)
	addToCart(t, 6, 1) // Apex Standing Desk, 459.99, over the $200 minimum

	statuses := make([]int, 2)
	var g errgroup.Group
	for i := range statuses {
		g.Go(func() error {
			var err error
			statuses[i], err = postStatus("/api/orders", createOrderRequest{
				ShippingAddressRef: 1,
				CouponCode:         "HALFOFF",
			}, customerKey)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("concurrent checkout: %v", err)
	}

	created := 0
	for _, code := range statuses {
		if code == http.StatusCreated {
			created++
		}
	}
	if created != 1 {
		t.Fatalf("statuses: got %v, want exactly one 201", statuses)
	}

	// The one successful checkout spent the per-user allowance.
	clearCart(t)
	addToCart(t, 6, 1)
	resp := doPost(t, "/api/orders", createOrderRequest{
		ShippingAddressRef: 1,
		CouponCode:         "HALFOFF",
	}, customerKey)
	defer resp.Body.Close()
	wantStatus(t, resp, http.StatusUnprocessableEntity)
}

func TestCancel_ConfirmedOrderRestoresStock(t *testing.T) {
	clearCart(t)

	before := getProduct(t, 10)
	addToCart(t, 10, 2)
	order := checkout(t, "")
	payOrder(t, order.ID)

	during := getProduct(t, 10)
	if during.Stock != before.Stock-2 {
		t.Fatalf("stock after confirmation: got %d, want %d", during.Stock, before.Stock-2)
	}

	resp := doPost(t, fmt.Sprintf("/api/orders/%d/cancel", order.ID), nil, customerKey)
	wantStatus(t, resp, http.StatusOK)
	cancelled := decodeJSON[orderResponse](t, resp)
	resp.Body.Close()
	if cancelled.Status != "cancelled" {
		t.Fatalf("status: got %s, want cancelled", cancelled.Status)
	}

	after := getProduct(t, 10)
	if after.Stock != before.Stock {
		t.Errorf("stock after cancel: got %d, want %d", after.Stock, before.Stock)
	}
}

func TestRefund_DeliveredOrder(t *testing.T) {
	clearCart(t)
	addToCart(t, 5, 1)
	order := checkout(t, "")
	payOrder(t, order.ID)

	for _, target := range []string{"processing", "shipped", "delivered"} {
		resp := doPost(t, fmt.Sprintf("/api/orders/%d/status", order.ID),
			advanceOrderRequest{Status: target, TrackingNumber: "TRK-REF-1"}, adminKey)
		wantStatus(t, resp, http.StatusOK)
		resp.Body.Close()
	}

	resp := doPost(t, fmt.Sprintf("/api/orders/%d/refund", order.ID),
		map[string]string{"amount": order.TotalAmount}, adminKey)
	wantStatus(t, resp, http.StatusOK)
	refunded := decodeJSON[orderResponse](t, resp)
	resp.Body.Close()
	if refunded.Status != "refunded" {
		t.Errorf("status: got %s, want refunded", refunded.Status)
	}

	// A second refund must fail: the order is terminal.
	resp = doPost(t, fmt.Sprintf("/api/orders/%d/refund", order.ID),
		map[string]string{"amount": "1.00"}, adminKey)
	defer resp.Body.Close()
	wantStatus(t, resp, http.StatusConflict)
}
