package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Nickwenniyxiao-art/wayfair-clone/internal/domain/product"
)

type productResponse struct {
	ID          int64           `json:"id"`
	SKU         string          `json:"sku"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Category    string          `json:"category"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Active      bool            `json:"active"`
}

func toProductResponse(p product.Product) productResponse {
	return productResponse{
		ID:          p.ID,
		SKU:         p.SKU,
		Name:        p.Name,
		Description: p.Description,
		Category:    p.Category,
		Price:       p.Price,
		Stock:       p.Stock,
		Active:      p.Active,
	}
}

// listProducts handles GET /api/products.
func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context())
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}

	resp := make([]productResponse, len(products))
	for i, p := range products {
		resp[i] = toProductResponse(p)
	}
	respondJSON(w, http.StatusOK, resp)
}

// getProduct handles GET /api/products/{id}.
func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	p, err := h.products.GetByID(r.Context(), id)
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toProductResponse(*p))
}

type adjustStockRequest struct {
	Delta      int    `json:"delta"`
	ChangeType string `json:"changeType"`
	Reason     string `json:"reason"`
}

// adjustStock handles POST /api/products/{id}/stock. Admin only. Accepts
// restock and adjustment deltas; order-driven changes never route here.
func (h *Handler) adjustStock(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	var req adjustStockRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	change := product.ChangeType(req.ChangeType)
	if change != product.ChangeRestock && change != product.ChangeAdjustment {
		respondError(w, http.StatusBadRequest, "changeType must be restock or adjustment")
		return
	}
	if req.Delta == 0 {
		respondError(w, http.StatusBadRequest, "delta must be non-zero")
		return
	}

	p, err := h.products.AdjustStock(r.Context(), id, req.Delta, change, req.Reason)
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toProductResponse(*p))
}

type inventoryLogResponse struct {
	ID            int64     `json:"id"`
	OrderID       *int64    `json:"orderId,omitempty"`
	ChangeType    string    `json:"changeType"`
	Quantity      int       `json:"quantity"`
	PreviousStock int       `json:"previousStock"`
	NewStock      int       `json:"newStock"`
	Reason        string    `json:"reason,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// inventoryHistory handles GET /api/products/{id}/inventory. Admin only.
func (h *Handler) inventoryHistory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	limit := queryInt(r, "limit", 50)
	logs, err := h.products.InventoryHistory(r.Context(), id, limit)
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}

	resp := make([]inventoryLogResponse, len(logs))
	for i, l := range logs {
		resp[i] = inventoryLogResponse{
			ID:            l.ID,
			OrderID:       l.OrderID,
			ChangeType:    string(l.ChangeType),
			Quantity:      l.Quantity,
			PreviousStock: l.PreviousStock,
			NewStock:      l.NewStock,
			Reason:        l.Reason,
			CreatedAt:     l.CreatedAt,
		}
	}
	respondJSON(w, http.StatusOK, resp)
}

func pathID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(r.PathValue(name), 10, 64)
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}
