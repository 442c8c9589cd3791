package coupon

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Type enumerates the supported coupon discount strategies.
type Type string

const (
	// TypePercentage applies a percentage-based discount to the subtotal,
	// optionally capped by MaxDiscount.
	TypePercentage Type = "percentage"
	// TypeFixedAmount applies a fixed monetary discount capped at the subtotal.
	TypeFixedAmount Type = "fixed_amount"
)

// InvalidReason classifies why a coupon failed validation.
type InvalidReason string

const (
	ReasonNotFound     InvalidReason = "not_found"
	ReasonInactive     InvalidReason = "inactive"
	ReasonExpired      InvalidReason = "expired"
	ReasonBelowMinimum InvalidReason = "below_minimum"
)

// InvalidError indicates a coupon cannot be applied to the order being priced.
type InvalidError struct {
	Code   string
	Reason InvalidReason
}

func (e *InvalidError) Error() string {
	return fmt.Sprintf("coupon %q invalid: %s", e.Code, e.Reason)
}

// ErrLimitExceeded is returned when redeeming a coupon would exceed its
// global usage limit or the per-user limit.
var ErrLimitExceeded = errors.New("coupon usage limit exceeded")

// Coupon is a redeemable discount rule. It is read-only to the order engine;
// usage counters are advanced only inside the order-creation transaction,
// where the global and per-user limits are checked atomically.
type Coupon struct {
	ID             int64
	Code           string
	Type           Type
	Value          decimal.Decimal
	MaxDiscount    *decimal.Decimal
	MinOrderAmount decimal.Decimal
	UsageLimit     *int
	UsageCount     int
	PerUserLimit   int
	StartDate      time.Time
	EndDate        time.Time
	Active         bool
}

// Repository provides coupon lookup. Redemption is not exposed here: it
// must run inside the order-creation transaction so two concurrent
// checkouts cannot both pass a stale limit check.
type Repository interface {
	// FindByCode looks up a coupon by its code, case-insensitively.
	// Returns an InvalidError with ReasonNotFound when no coupon exists.
	FindByCode(ctx context.Context, code string) (*Coupon, error)
}
