package order

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Nickwenniyxiao-art/wayfair-clone/internal/payment"
)

// Sentinel errors for order access and refund preconditions.
var (
	ErrNotFound       = errors.New("order not found")
	ErrNotOwner       = errors.New("order belongs to another user")
	ErrNoPayment      = errors.New("order has no captured payment")
	ErrRefundTooLarge = errors.New("refund amount exceeds payment amount")

	// ErrNumberTaken is returned by the store when the generated order number
	// collides with an existing one. The engine regenerates and retries.
	ErrNumberTaken = errors.New("order number already exists")

	// ErrStatusConflict is returned by the store when a guarded status update
	// matched no row, meaning the order moved concurrently.
	ErrStatusConflict = errors.New("order status changed concurrently")
)

// InvalidTransitionError indicates a disallowed order status transition.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid order transition: %s -> %s", e.From, e.To)
}

// PaymentFailedError indicates the payment gateway declined or failed the
// charge. The order remains pending and the caller may retry.
type PaymentFailedError struct {
	Reason string
}

func (e *PaymentFailedError) Error() string {
	return fmt.Sprintf("payment failed: %s", e.Reason)
}

// Order is an immutable-once-created record of a purchase. Monetary fields
// are frozen at creation; only the refund path touches them afterwards.
type Order struct {
	ID                 int64
	OrderNumber        string
	UserID             int64
	Status             Status
	Subtotal           decimal.Decimal
	ShippingCost       decimal.Decimal
	TaxCost            decimal.Decimal
	DiscountAmount     decimal.Decimal
	TotalAmount        decimal.Decimal
	CouponCode         string
	ShippingAddressRef int64
	BillingAddressRef  int64
	TrackingNumber     string
	CreatedAt          time.Time
	UpdatedAt          time.Time
	DeliveredAt        *time.Time
}

// Item is a snapshot of one product at the moment the order was placed.
// Name and SKU are copied so later catalog edits do not rewrite history.
type Item struct {
	ID          int64
	OrderID     int64
	ProductID   int64
	ProductName string
	ProductSKU  string
	Quantity    int
	UnitPrice   decimal.Decimal
	LineTotal   decimal.Decimal
}

// PaymentStatus enumerates the lifecycle of a payment record.
type PaymentStatus string

const (
	PaymentSucceeded PaymentStatus = "succeeded"
	PaymentFailed    PaymentStatus = "failed"
	PaymentRefunded  PaymentStatus = "refunded"
)

// Payment records the one charge (and optional refund) attached to an order.
// Amount equals the order's total at creation.
type Payment struct {
	ID            int64
	OrderID       int64
	UserID        int64
	Amount        decimal.Decimal
	Currency      string
	Method        payment.Method
	Status        PaymentStatus
	TransactionID string
	FailureReason string
	RefundAmount  decimal.Decimal
	RefundedAt    *time.Time
	CreatedAt     time.Time
}

// NewOrderNumber generates a human-auditable order number of the form
// ORD-<unix-millis>-<9-char-random>. Collisions are already negligible, but
// uniqueness is still enforced by the orders.order_number constraint; the
// engine retries with a fresh number on conflict.
func NewOrderNumber(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")[:9]
	return fmt.Sprintf("ORD-%d-%s", now.UnixMilli(), suffix)
}

// Repository defines the transactional persistence contract for orders.
// Each mutating method is a single all-or-nothing transaction; a persisted
// order always has its items, and the write groups described on each method
// either fully commit or leave no trace.
type Repository interface {
	GetByID(ctx context.Context, id int64) (*Order, error)
	GetByNumber(ctx context.Context, orderNumber string) (*Order, error)
	ListByUser(ctx context.Context, userID int64, limit, offset int) ([]Order, error)
	Items(ctx context.Context, orderID int64) ([]Item, error)
	Payment(ctx context.Context, orderID int64) (*Payment, error)

	// Create persists the order with its items, redeems the coupon when
	// o.CouponCode is set (atomic usage-limit and per-user-limit checks,
	// coupon.ErrLimitExceeded on the over-limit attempt) and clears the
	// user's cart, all in one transaction. Returns ErrNumberTaken on an
	// order-number collision.
	Create(ctx context.Context, o *Order, items []Item) error

	// Confirm moves a pending order to confirmed, deducting stock for every
	// item with conditional decrements (writing purchase inventory logs) and
	// inserting the captured payment. A failed decrement aborts the whole
	// transaction with product.InsufficientStockError; a concurrent status
	// change aborts with ErrStatusConflict.
	Confirm(ctx context.Context, o *Order, pay *Payment) error

	// RecordFailedPayment inserts a failed payment attempt outside the order
	// state machine. Best effort bookkeeping for declined charges.
	RecordFailedPayment(ctx context.Context, pay *Payment) error

	// Advance performs a guarded transition from exactly `from` to `to`,
	// recording the tracking number and delivery timestamp when set.
	// Returns ErrStatusConflict when the order was not in `from`.
	Advance(ctx context.Context, orderID int64, from, to Status, trackingNumber string, deliveredAt *time.Time) error

	// Cancel moves the order to cancelled; when restock is true it also
	// reverses the stock deduction for every item, writing restock inventory
	// logs linked to the order.
	Cancel(ctx context.Context, o *Order, restock bool) error

	// Refund sets the payment's refund fields and the order status to
	// refunded in one transaction.
	Refund(ctx context.Context, orderID int64, amount decimal.Decimal, refundedAt time.Time) error
}
