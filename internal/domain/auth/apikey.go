// Package auth provides API key authentication. Keys are stored as
// HMAC-SHA256 hashes and bind each request to the owning user.
package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"slices"

	"github.com/go-faster/errors"
)

// ErrUnauthorized is returned when a request carries no valid API key.
var ErrUnauthorized = errors.New("unauthorized")

// ScopeAdmin marks keys allowed to drive fulfillment, refunds and stock
// adjustments.
const ScopeAdmin = "admin"

// Key holds the identity and permission data for a validated API key.
type Key struct {
	ID      int64
	KeyHash string
	Name    string
	UserID  int64
	Scopes  []string
}

// HasScope reports whether the key carries the given scope.
func (k *Key) HasScope(scope string) bool {
	return slices.Contains(k.Scopes, scope)
}

// Repository provides lookup of active API keys by their HMAC-SHA256 hash.
type Repository interface {
	FindByHash(ctx context.Context, hash string) (*Key, error)
}

// HashKey computes the hex HMAC-SHA256 of an API key under the given pepper.
// The pepper keeps leaked database rows unusable without the server secret.
func HashKey(pepper []byte, key string) string {
	mac := hmac.New(sha256.New, pepper)
	mac.Write([]byte(key))
	return hex.EncodeToString(mac.Sum(nil))
}
