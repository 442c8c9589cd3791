package coupon

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var evalNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func activeCoupon(typ Type, value string) *Coupon {
	return &Coupon{
		Code:      "TEST10",
		Type:      typ,
		Value:     decimal.RequireFromString(value),
		StartDate: evalNow.Add(-24 * time.Hour),
		EndDate:   evalNow.Add(24 * time.Hour),
		Active:    true,
	}
}

func TestEvaluate_Percentage(t *testing.T) {
	c := activeCoupon(TypePercentage, "10")

	got, err := Evaluate(c, decimal.RequireFromString("200.00"), evalNow)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("20.00").Equal(got), got.String())
}

func TestEvaluate_PercentageRoundsHalfUp(t *testing.T) {
	c := activeCoupon(TypePercentage, "15")

	// 15% of 10.03 = 1.5045 -> 1.50; 15% of 10.05 = 1.5075 -> 1.51.
	got, err := Evaluate(c, decimal.RequireFromString("10.03"), evalNow)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("1.50").Equal(got), got.String())

	got, err = Evaluate(c, decimal.RequireFromString("10.05"), evalNow)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("1.51").Equal(got), got.String())
}

func TestEvaluate_PercentageCappedByMaxDiscount(t *testing.T) {
	c := activeCoupon(TypePercentage, "50")
	maxDiscount := decimal.RequireFromString("25.00")
	c.MaxDiscount = &maxDiscount

	got, err := Evaluate(c, decimal.RequireFromString("200.00"), evalNow)
	require.NoError(t, err)
	assert.True(t, maxDiscount.Equal(got), got.String())
}

func TestEvaluate_FixedAmount(t *testing.T) {
	c := activeCoupon(TypeFixedAmount, "15.00")

	got, err := Evaluate(c, decimal.RequireFromString("100.00"), evalNow)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("15.00").Equal(got), got.String())
}

func TestEvaluate_FixedAmountClampedToSubtotal(t *testing.T) {
	c := activeCoupon(TypeFixedAmount, "50.00")

	got, err := Evaluate(c, decimal.RequireFromString("30.00"), evalNow)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("30.00").Equal(got), got.String())
}

func TestEvaluate_Inactive(t *testing.T) {
	c := activeCoupon(TypePercentage, "10")
	c.Active = false

	_, err := Evaluate(c, decimal.RequireFromString("100.00"), evalNow)

	var invErr *InvalidError
	require.ErrorAs(t, err, &invErr)
	assert.Equal(t, ReasonInactive, invErr.Reason)
}

func TestEvaluate_OutsideWindow(t *testing.T) {
	notStarted := activeCoupon(TypePercentage, "10")
	notStarted.StartDate = evalNow.Add(time.Hour)

	_, err := Evaluate(notStarted, decimal.RequireFromString("100.00"), evalNow)
	var invErr *InvalidError
	require.ErrorAs(t, err, &invErr)
	assert.Equal(t, ReasonExpired, invErr.Reason)

	expired := activeCoupon(TypePercentage, "10")
	expired.EndDate = evalNow.Add(-time.Hour)

	_, err = Evaluate(expired, decimal.RequireFromString("100.00"), evalNow)
	require.ErrorAs(t, err, &invErr)
	assert.Equal(t, ReasonExpired, invErr.Reason)
}

func TestEvaluate_WindowBoundsInclusive(t *testing.T) {
	c := activeCoupon(TypePercentage, "10")
	c.StartDate = evalNow
	c.EndDate = evalNow

	got, err := Evaluate(c, decimal.RequireFromString("100.00"), evalNow)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("10.00").Equal(got), got.String())
}

func TestEvaluate_BelowMinimum(t *testing.T) {
	c := activeCoupon(TypePercentage, "10")
	c.MinOrderAmount = decimal.RequireFromString("50.00")

	_, err := Evaluate(c, decimal.RequireFromString("49.99"), evalNow)

	var invErr *InvalidError
	require.ErrorAs(t, err, &invErr)
	assert.Equal(t, ReasonBelowMinimum, invErr.Reason)

	// Exactly at the minimum qualifies.
	got, err := Evaluate(c, decimal.RequireFromString("50.00"), evalNow)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("5.00").Equal(got), got.String())
}

func TestEvaluate_NegativeValueFloorsAtZero(t *testing.T) {
	c := activeCoupon(TypeFixedAmount, "-5.00")

	got, err := Evaluate(c, decimal.RequireFromString("100.00"), evalNow)
	require.NoError(t, err)
	assert.True(t, got.IsZero(), got.String())
}
