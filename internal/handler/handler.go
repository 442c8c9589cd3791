package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/Nickwenniyxiao-art/wayfair-clone/internal/domain/auth"
	"github.com/Nickwenniyxiao-art/wayfair-clone/internal/domain/cart"
	"github.com/Nickwenniyxiao-art/wayfair-clone/internal/domain/coupon"
	"github.com/Nickwenniyxiao-art/wayfair-clone/internal/domain/order"
	"github.com/Nickwenniyxiao-art/wayfair-clone/internal/domain/product"
)

// Config holds non-dependency configuration for the Handler.
type Config struct {
	// APIKeyPepper is the HMAC key for hashing incoming API keys.
	APIKeyPepper []byte
}

// Handler serves the storefront API, delegating business logic to the
// domain services.
type Handler struct {
	products product.Repository
	carts    *cart.Service
	orders   *order.Engine
	apikeys  auth.Repository
	pepper   []byte
}

// New constructs a Handler with the required domain dependencies.
func New(
	cfg Config,
	products product.Repository,
	carts *cart.Service,
	orders *order.Engine,
	apikeys auth.Repository,
) *Handler {
	return &Handler{
		products: products,
		carts:    carts,
		orders:   orders,
		apikeys:  apikeys,
		pepper:   cfg.APIKeyPepper,
	}
}

type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorResponse{Code: status, Message: message})
}

// respondDomainError maps domain errors onto the HTTP error taxonomy. Every
// recoverable error category has a stable status; anything unmapped is a 500
// with the detail kept server-side.
func (h *Handler) respondDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		stockErr      *product.InsufficientStockError
		couponErr     *coupon.InvalidError
		transitionErr *order.InvalidTransitionError
		paymentErr    *order.PaymentFailedError
	)

	switch {
	case errors.Is(err, auth.ErrUnauthorized):
		respondError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, order.ErrNotOwner):
		respondError(w, http.StatusForbidden, "order belongs to another user")
	case errors.Is(err, product.ErrNotFound),
		errors.Is(err, order.ErrNotFound),
		errors.Is(err, cart.ErrLineNotFound):
		respondError(w, http.StatusNotFound, "not found")
	case errors.As(err, &paymentErr):
		respondError(w, http.StatusPaymentRequired, paymentErr.Error())
	case errors.As(err, &stockErr):
		respondError(w, http.StatusConflict, stockErr.Error())
	case errors.As(err, &transitionErr):
		respondError(w, http.StatusConflict, transitionErr.Error())
	case errors.Is(err, order.ErrNoPayment):
		respondError(w, http.StatusConflict, "order has no captured payment")
	case errors.Is(err, cart.ErrEmpty):
		respondError(w, http.StatusUnprocessableEntity, "cart is empty")
	case errors.As(err, &couponErr):
		respondError(w, http.StatusUnprocessableEntity, couponErr.Error())
	case errors.Is(err, coupon.ErrLimitExceeded):
		respondError(w, http.StatusUnprocessableEntity, "coupon usage limit exceeded")
	case errors.Is(err, order.ErrRefundTooLarge):
		respondError(w, http.StatusUnprocessableEntity, "refund exceeds captured amount")
	case errors.Is(err, cart.ErrInvalidQuantity),
		errors.Is(err, cart.ErrProductInactive):
		respondError(w, http.StatusBadRequest, err.Error())
	default:
		zctx.From(r.Context()).Error("request failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
