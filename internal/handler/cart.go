package handler

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Nickwenniyxiao-art/wayfair-clone/internal/domain/cart"
)

type cartLineResponse struct {
	ProductID int64           `json:"productId"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

type cartResponse struct {
	Items    []cartLineResponse `json:"items"`
	Subtotal decimal.Decimal    `json:"subtotal"`
}

func toCartResponse(lines []cart.Line) cartResponse {
	resp := cartResponse{
		Items:    make([]cartLineResponse, len(lines)),
		Subtotal: decimal.Zero,
	}
	for i, l := range lines {
		resp.Items[i] = cartLineResponse{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			Price:     l.Price,
			Subtotal:  l.Subtotal(),
			UpdatedAt: l.UpdatedAt,
		}
		resp.Subtotal = resp.Subtotal.Add(l.Subtotal())
	}
	return resp
}

// getCart handles GET /api/cart.
func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	key := keyFrom(r.Context())

	lines, err := h.carts.List(r.Context(), key.UserID)
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toCartResponse(lines))
}

type addToCartRequest struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

// addToCart handles POST /api/cart. Adding a product already in the cart
// replaces its quantity and refreshes the price snapshot.
func (h *Handler) addToCart(w http.ResponseWriter, r *http.Request) {
	key := keyFrom(r.Context())

	var req addToCartRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	line, err := h.carts.Add(r.Context(), key.UserID, req.ProductID, req.Quantity)
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, cartLineResponse{
		ProductID: line.ProductID,
		Quantity:  line.Quantity,
		Price:     line.Price,
		Subtotal:  line.Subtotal(),
		UpdatedAt: line.UpdatedAt,
	})
}

type updateCartRequest struct {
	Quantity int `json:"quantity"`
}

// updateCartLine handles PATCH /api/cart/{productId}.
func (h *Handler) updateCartLine(w http.ResponseWriter, r *http.Request) {
	key := keyFrom(r.Context())

	productID, err := pathID(r, "productId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	var req updateCartRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.carts.UpdateQuantity(r.Context(), key.UserID, productID, req.Quantity); err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// removeCartLine handles DELETE /api/cart/{productId}.
func (h *Handler) removeCartLine(w http.ResponseWriter, r *http.Request) {
	key := keyFrom(r.Context())

	productID, err := pathID(r, "productId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	if err := h.carts.Remove(r.Context(), key.UserID, productID); err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// clearCart handles DELETE /api/cart.
func (h *Handler) clearCart(w http.ResponseWriter, r *http.Request) {
	key := keyFrom(r.Context())

	if err := h.carts.Clear(r.Context(), key.UserID); err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
