// Package pricing computes order totals from cart lines and an optional
// coupon. The engine is pure: it reads nothing and writes nothing, so two
// calls with the same inputs always produce the same quote.
package pricing

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Nickwenniyxiao-art/wayfair-clone/internal/domain/cart"
	"github.com/Nickwenniyxiao-art/wayfair-clone/internal/domain/coupon"
)

// ShippingPolicy computes the shipping cost for a priced order. Geography
// and carrier selection are outside this core; policies receive the
// post-discount merchandise amount should they want tiered behaviour.
type ShippingPolicy interface {
	ShippingCost(merchandise decimal.Decimal) decimal.Decimal
}

// FlatRate ships everything for a single fixed cost.
type FlatRate struct {
	Cost decimal.Decimal
}

func (f FlatRate) ShippingCost(decimal.Decimal) decimal.Decimal {
	return f.Cost
}

// Quote is the complete pricing breakdown for a cart. All amounts carry
// currency precision (2 decimal places) and satisfy
// Total = Subtotal - Discount + Shipping + Tax.
type Quote struct {
	Subtotal decimal.Decimal
	Discount decimal.Decimal
	Shipping decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

// Engine prices carts with a pluggable shipping policy and a fixed tax rate.
type Engine struct {
	shipping ShippingPolicy
	taxRate  decimal.Decimal
}

// NewEngine creates a pricing Engine. taxRate is a fraction, e.g. 0.08 for 8%.
func NewEngine(shipping ShippingPolicy, taxRate decimal.Decimal) *Engine {
	return &Engine{shipping: shipping, taxRate: taxRate}
}

// Quote prices the given cart lines using their snapshot prices, applying
// the coupon when non-nil. It fails with cart.ErrEmpty for an empty cart and
// propagates coupon validation errors.
//
// Tax is computed on the discounted subtotal and rounded half-up to 2
// decimal places exactly once, so no rounding error accumulates across
// lines.
func (e *Engine) Quote(lines []cart.Line, c *coupon.Coupon, now time.Time) (Quote, error) {
	if len(lines) == 0 {
		return Quote{}, cart.ErrEmpty
	}

	subtotal := decimal.Zero
	for _, line := range lines {
		subtotal = subtotal.Add(line.Subtotal())
	}

	discount := decimal.Zero
	if c != nil {
		var err error
		discount, err = coupon.Evaluate(c, subtotal, now)
		if err != nil {
			return Quote{}, err
		}
	}

	merchandise := subtotal.Sub(discount)
	shipping := e.shipping.ShippingCost(merchandise)
	tax := merchandise.Mul(e.taxRate).Round(2)
	total := merchandise.Add(shipping).Add(tax)

	return Quote{
		Subtotal: subtotal,
		Discount: discount,
		Shipping: shipping,
		Tax:      tax,
		Total:    total,
	}, nil
}
