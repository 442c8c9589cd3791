package order

import (
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatus_Valid(t *testing.T) {
	for _, s := range []Status{
		StatusPending, StatusConfirmed, StatusProcessing, StatusShipped,
		StatusDelivered, StatusCancelled, StatusRefunded,
	} {
		assert.True(t, s.Valid(), string(s))
	}
	assert.False(t, Status("archived").Valid())
	assert.False(t, Status("").Valid())
}

func TestStatus_NextFulfillment(t *testing.T) {
	next, ok := StatusConfirmed.NextFulfillment()
	require.True(t, ok)
	assert.Equal(t, StatusProcessing, next)

	next, ok = StatusProcessing.NextFulfillment()
	require.True(t, ok)
	assert.Equal(t, StatusShipped, next)

	next, ok = StatusShipped.NextFulfillment()
	require.True(t, ok)
	assert.Equal(t, StatusDelivered, next)

	for _, s := range []Status{StatusPending, StatusDelivered, StatusCancelled, StatusRefunded} {
		_, ok := s.NextFulfillment()
		assert.False(t, ok, string(s))
	}
}

func TestStatus_Cancellable(t *testing.T) {
	assert.True(t, StatusPending.Cancellable())
	assert.True(t, StatusConfirmed.Cancellable())
	assert.True(t, StatusProcessing.Cancellable())

	assert.False(t, StatusShipped.Cancellable())
	assert.False(t, StatusDelivered.Cancellable())
	assert.False(t, StatusCancelled.Cancellable())
	assert.False(t, StatusRefunded.Cancellable())
}

func TestStatus_Refundable(t *testing.T) {
	assert.True(t, StatusDelivered.Refundable())
	assert.True(t, StatusCancelled.Refundable())

	assert.False(t, StatusPending.Refundable())
	assert.False(t, StatusShipped.Refundable())
	assert.False(t, StatusRefunded.Refundable())
}

func TestStatus_StockDeducted(t *testing.T) {
	assert.False(t, StatusPending.StockDeducted())
	assert.True(t, StatusConfirmed.StockDeducted())
	assert.True(t, StatusShipped.StockDeducted())
	assert.False(t, StatusCancelled.StockDeducted())
}

func TestNewOrderNumber(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	n := NewOrderNumber(now)
	parts := strings.SplitN(n, "-", 3)
	require.Len(t, parts, 3)
	assert.Equal(t, "ORD", parts[0])
	assert.Equal(t, strconv.FormatInt(now.UnixMilli(), 10), parts[1])
	assert.Len(t, parts[2], 9)

	assert.NotEqual(t, n, NewOrderNumber(now), "random suffix must differ between calls")
}
