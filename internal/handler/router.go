package handler

import (
	"net/http"

	"github.com/Nickwenniyxiao-art/wayfair-clone/pkg/health"
)

// Router builds the API's ServeMux. Every /api route runs behind API key
// authentication; the health probes do not.
func (h *Handler) Router(hlth *health.Health) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /livez", hlth.LiveEndpoint)
	mux.HandleFunc("GET /readyz", hlth.ReadyEndpoint)

	api := http.NewServeMux()
	api.HandleFunc("GET /api/products", h.listProducts)
	api.HandleFunc("GET /api/products/{id}", h.getProduct)
	api.HandleFunc("POST /api/products/{id}/stock", h.requireAdmin(h.adjustStock))
	api.HandleFunc("GET /api/products/{id}/inventory", h.requireAdmin(h.inventoryHistory))

	api.HandleFunc("GET /api/cart", h.getCart)
	api.HandleFunc("POST /api/cart", h.addToCart)
	api.HandleFunc("PATCH /api/cart/{productId}", h.updateCartLine)
	api.HandleFunc("DELETE /api/cart/{productId}", h.removeCartLine)
	api.HandleFunc("DELETE /api/cart", h.clearCart)

	api.HandleFunc("POST /api/orders", h.createOrder)
	api.HandleFunc("GET /api/orders", h.listOrders)
	api.HandleFunc("GET /api/orders/{id}", h.getOrder)
	api.HandleFunc("GET /api/orders/number/{orderNumber}", h.getOrderByNumber)
	api.HandleFunc("POST /api/orders/{id}/payment", h.payOrder)
	api.HandleFunc("POST /api/orders/{id}/status", h.requireAdmin(h.advanceOrder))
	api.HandleFunc("POST /api/orders/{id}/cancel", h.cancelOrder)
	api.HandleFunc("POST /api/orders/{id}/refund", h.requireAdmin(h.refundOrder))

	mux.Handle("/api/", h.authenticate(api))

	return mux
}
