package coupon

import (
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Evaluate validates the coupon against an order subtotal at the given
// instant and returns the discount amount, rounded half-up to 2 decimal
// places. The discount never exceeds the subtotal.
//
// Evaluate is pure: usage limits are not checked here. They are enforced by
// Repository.Redeem at the moment the coupon is attached to a created order.
func Evaluate(c *Coupon, subtotal decimal.Decimal, now time.Time) (decimal.Decimal, error) {
	if !c.Active {
		return decimal.Zero, &InvalidError{Code: c.Code, Reason: ReasonInactive}
	}
	if now.Before(c.StartDate) || now.After(c.EndDate) {
		return decimal.Zero, &InvalidError{Code: c.Code, Reason: ReasonExpired}
	}
	if subtotal.LessThan(c.MinOrderAmount) {
		return decimal.Zero, &InvalidError{Code: c.Code, Reason: ReasonBelowMinimum}
	}

	var amount decimal.Decimal
	switch c.Type {
	case TypePercentage:
		amount = subtotal.Mul(c.Value).Div(hundred)
		if c.MaxDiscount != nil {
			amount = decimal.Min(amount, *c.MaxDiscount)
		}
	case TypeFixedAmount:
		amount = c.Value
	default:
		return decimal.Zero, &InvalidError{Code: c.Code, Reason: ReasonNotFound}
	}

	// Never discount more than the subtotal, never go negative.
	amount = decimal.Min(amount, subtotal)
	if amount.IsNegative() {
		amount = decimal.Zero
	}
	return amount.Round(2), nil
}
