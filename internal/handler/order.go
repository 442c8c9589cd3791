package handler

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Nickwenniyxiao-art/wayfair-clone/internal/domain/order"
	"github.com/Nickwenniyxiao-art/wayfair-clone/internal/payment"
)

type orderItemResponse struct {
	ProductID   int64           `json:"productId"`
	ProductName string          `json:"productName"`
	ProductSKU  string          `json:"productSku"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	LineTotal   decimal.Decimal `json:"lineTotal"`
}

type orderResponse struct {
	ID             int64               `json:"id"`
	OrderNumber    string              `json:"orderNumber"`
	Status         string              `json:"status"`
	Subtotal       decimal.Decimal     `json:"subtotal"`
	DiscountAmount decimal.Decimal     `json:"discountAmount"`
	ShippingCost   decimal.Decimal     `json:"shippingCost"`
	TaxCost        decimal.Decimal     `json:"taxCost"`
	TotalAmount    decimal.Decimal     `json:"totalAmount"`
	CouponCode     string              `json:"couponCode,omitempty"`
	TrackingNumber string              `json:"trackingNumber,omitempty"`
	CreatedAt      time.Time           `json:"createdAt"`
	DeliveredAt    *time.Time          `json:"deliveredAt,omitempty"`
	Items          []orderItemResponse `json:"items,omitempty"`
}

func toOrderResponse(o *order.Order, items []order.Item) orderResponse {
	resp := orderResponse{
		ID:             o.ID,
		OrderNumber:    o.OrderNumber,
		Status:         string(o.Status),
		Subtotal:       o.Subtotal,
		DiscountAmount: o.DiscountAmount,
		ShippingCost:   o.ShippingCost,
		TaxCost:        o.TaxCost,
		TotalAmount:    o.TotalAmount,
		CouponCode:     o.CouponCode,
		TrackingNumber: o.TrackingNumber,
		CreatedAt:      o.CreatedAt,
		DeliveredAt:    o.DeliveredAt,
	}
	for _, it := range items {
		resp.Items = append(resp.Items, orderItemResponse{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			ProductSKU:  it.ProductSKU,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			LineTotal:   it.LineTotal,
		})
	}
	return resp
}

type createOrderRequest struct {
	ShippingAddressRef int64  `json:"shippingAddressRef"`
	BillingAddressRef  int64  `json:"billingAddressRef"`
	CouponCode         string `json:"couponCode"`
}

// createOrder handles POST /api/orders: checkout of the caller's cart.
func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	key := keyFrom(r.Context())

	var req createOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ShippingAddressRef <= 0 {
		respondError(w, http.StatusBadRequest, "shippingAddressRef is required")
		return
	}

	o, err := h.orders.CreateOrder(r.Context(), order.CreateOrderRequest{
		UserID:             key.UserID,
		ShippingAddressRef: req.ShippingAddressRef,
		BillingAddressRef:  req.BillingAddressRef,
		CouponCode:         req.CouponCode,
	})
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}

	_, items, err := h.orders.Get(r.Context(), key.UserID, o.ID)
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, toOrderResponse(o, items))
}

// listOrders handles GET /api/orders for the calling user.
func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	key := keyFrom(r.Context())

	limit := queryInt(r, "limit", 20)
	offset := queryInt(r, "offset", 0)

	orders, err := h.orders.ListByUser(r.Context(), key.UserID, limit, offset)
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}

	resp := make([]orderResponse, len(orders))
	for i := range orders {
		resp[i] = toOrderResponse(&orders[i], nil)
	}
	respondJSON(w, http.StatusOK, resp)
}

// getOrder handles GET /api/orders/{id}.
func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	key := keyFrom(r.Context())

	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	o, items, err := h.orders.Get(r.Context(), key.UserID, id)
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toOrderResponse(o, items))
}

// getOrderByNumber handles GET /api/orders/number/{orderNumber}: lookup by
// the ORD- reference printed on receipts.
func (h *Handler) getOrderByNumber(w http.ResponseWriter, r *http.Request) {
	key := keyFrom(r.Context())

	number := r.PathValue("orderNumber")
	if number == "" {
		respondError(w, http.StatusBadRequest, "invalid order number")
		return
	}

	o, items, err := h.orders.GetByNumber(r.Context(), key.UserID, number)
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toOrderResponse(o, items))
}

type payOrderRequest struct {
	Method string `json:"method"`
}

// payOrder handles POST /api/orders/{id}/payment: charges the order total
// and confirms the order, deducting stock.
func (h *Handler) payOrder(w http.ResponseWriter, r *http.Request) {
	key := keyFrom(r.Context())

	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	var req payOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	method := payment.Method(req.Method)
	if !method.Valid() {
		respondError(w, http.StatusBadRequest, "unsupported payment method")
		return
	}

	o, err := h.orders.ConfirmPayment(r.Context(), key.UserID, id, method)
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toOrderResponse(o, nil))
}

type advanceOrderRequest struct {
	Status         string `json:"status"`
	TrackingNumber string `json:"trackingNumber"`
}

// advanceOrder handles POST /api/orders/{id}/status. Admin only; moves the
// order one step along the fulfillment chain.
func (h *Handler) advanceOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	var req advanceOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	target := order.Status(req.Status)
	if !target.Valid() {
		respondError(w, http.StatusBadRequest, "unknown status")
		return
	}

	o, err := h.orders.AdvanceFulfillment(r.Context(), id, target, req.TrackingNumber)
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toOrderResponse(o, nil))
}

// cancelOrder handles POST /api/orders/{id}/cancel.
func (h *Handler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	key := keyFrom(r.Context())

	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	o, err := h.orders.Cancel(r.Context(), key.UserID, id)
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toOrderResponse(o, nil))
}

type refundOrderRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// refundOrder handles POST /api/orders/{id}/refund. Admin only.
func (h *Handler) refundOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	var req refundOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !req.Amount.IsPositive() {
		respondError(w, http.StatusBadRequest, "amount must be positive")
		return
	}

	o, err := h.orders.Refund(r.Context(), id, req.Amount)
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toOrderResponse(o, nil))
}
