package pricing

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nickwenniyxiao-art/wayfair-clone/internal/domain/cart"
	"github.com/Nickwenniyxiao-art/wayfair-clone/internal/domain/coupon"
)

var quoteNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func testEngine() *Engine {
	return NewEngine(
		FlatRate{Cost: decimal.RequireFromString("10.00")},
		decimal.RequireFromString("0.08"),
	)
}

func line(price string, qty int) cart.Line {
	return cart.Line{
		Quantity: qty,
		Price:    decimal.RequireFromString(price),
	}
}

func percentCoupon(value string) *coupon.Coupon {
	return &coupon.Coupon{
		Code:      "SAVE",
		Type:      coupon.TypePercentage,
		Value:     decimal.RequireFromString(value),
		StartDate: quoteNow.Add(-time.Hour),
		EndDate:   quoteNow.Add(time.Hour),
		Active:    true,
	}
}

func TestQuote_EmptyCart(t *testing.T) {
	_, err := testEngine().Quote(nil, nil, quoteNow)
	require.ErrorIs(t, err, cart.ErrEmpty)
}

func TestQuote_NoCoupon(t *testing.T) {
	lines := []cart.Line{line("25.00", 2), line("10.50", 1)}

	q, err := testEngine().Quote(lines, nil, quoteNow)
	require.NoError(t, err)

	assert.True(t, decimal.RequireFromString("60.50").Equal(q.Subtotal), q.Subtotal.String())
	assert.True(t, q.Discount.IsZero())
	assert.True(t, decimal.RequireFromString("10.00").Equal(q.Shipping))
	// 8% of 60.50 = 4.84
	assert.True(t, decimal.RequireFromString("4.84").Equal(q.Tax), q.Tax.String())
	assert.True(t, decimal.RequireFromString("75.34").Equal(q.Total), q.Total.String())
}

func TestQuote_WithCoupon(t *testing.T) {
	lines := []cart.Line{line("100.00", 1)}

	q, err := testEngine().Quote(lines, percentCoupon("10"), quoteNow)
	require.NoError(t, err)

	assert.True(t, decimal.RequireFromString("10.00").Equal(q.Discount), q.Discount.String())
	// Tax on discounted merchandise: 8% of 90.00 = 7.20.
	assert.True(t, decimal.RequireFromString("7.20").Equal(q.Tax), q.Tax.String())
	assert.True(t, decimal.RequireFromString("107.20").Equal(q.Total), q.Total.String())
}

func TestQuote_Identity(t *testing.T) {
	lines := []cart.Line{line("33.33", 3), line("7.77", 2)}

	q, err := testEngine().Quote(lines, percentCoupon("18"), quoteNow)
	require.NoError(t, err)

	want := q.Subtotal.Sub(q.Discount).Add(q.Shipping).Add(q.Tax)
	assert.True(t, want.Equal(q.Total), "total %s != identity %s", q.Total, want)
}

func TestQuote_TaxRoundedOnce(t *testing.T) {
	// Three lines of 0.03 each would accumulate rounding error if taxed
	// per line; the engine taxes the summed merchandise amount once.
	lines := []cart.Line{line("0.03", 1), line("0.03", 1), line("0.03", 1)}

	q, err := testEngine().Quote(lines, nil, quoteNow)
	require.NoError(t, err)

	// 8% of 0.09 = 0.0072 -> 0.01 rounded once.
	assert.True(t, decimal.RequireFromString("0.01").Equal(q.Tax), q.Tax.String())
}

func TestQuote_CouponErrorPropagates(t *testing.T) {
	c := percentCoupon("10")
	c.Active = false

	_, err := testEngine().Quote([]cart.Line{line("50.00", 1)}, c, quoteNow)

	var invErr *coupon.InvalidError
	require.ErrorAs(t, err, &invErr)
	assert.Equal(t, coupon.ReasonInactive, invErr.Reason)
}

func TestQuote_FullDiscountStillShipsAndTaxes(t *testing.T) {
	c := percentCoupon("100")

	q, err := testEngine().Quote([]cart.Line{line("40.00", 1)}, c, quoteNow)
	require.NoError(t, err)

	assert.True(t, q.Discount.Equal(q.Subtotal))
	assert.True(t, q.Tax.IsZero(), q.Tax.String())
	assert.True(t, decimal.RequireFromString("10.00").Equal(q.Total), q.Total.String())
}

func TestQuote_Deterministic(t *testing.T) {
	lines := []cart.Line{line("19.99", 4)}

	q1, err := testEngine().Quote(lines, percentCoupon("25"), quoteNow)
	require.NoError(t, err)
	q2, err := testEngine().Quote(lines, percentCoupon("25"), quoteNow)
	require.NoError(t, err)

	assert.Equal(t, q1, q2)
}
