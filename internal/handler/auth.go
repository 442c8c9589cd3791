package handler

import (
	"context"
	"crypto/subtle"
	"net/http"

	"github.com/Nickwenniyxiao-art/wayfair-clone/internal/domain/auth"
)

type ctxKey struct{}

// keyFrom returns the authenticated API key stored by authenticate, or nil
// on unauthenticated requests.
func keyFrom(ctx context.Context) *auth.Key {
	k, _ := ctx.Value(ctxKey{}).(*auth.Key)
	return k
}

// authenticate validates the api_key header by computing its HMAC-SHA256,
// looking the digest up, and comparing in constant time. The resolved key
// (and thereby the acting user) is stored on the request context.
func (h *Handler) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get("api_key")
		if raw == "" {
			respondError(w, http.StatusUnauthorized, "missing api key")
			return
		}

		hash := auth.HashKey(h.pepper, raw)

		key, err := h.apikeys.FindByHash(r.Context(), hash)
		if err != nil {
			respondError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		if subtle.ConstantTimeCompare([]byte(hash), []byte(key.KeyHash)) != 1 {
			respondError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, key)))
	})
}

// requireAdmin gates fulfillment and stock endpoints behind the admin scope.
func (h *Handler) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := keyFrom(r.Context())
		if key == nil || !key.HasScope(auth.ScopeAdmin) {
			respondError(w, http.StatusForbidden, "admin scope required")
			return
		}
		next(w, r)
	}
}
