package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/Nickwenniyxiao-art/wayfair-clone/internal/domain/cart"
	"github.com/Nickwenniyxiao-art/wayfair-clone/internal/domain/coupon"
	"github.com/Nickwenniyxiao-art/wayfair-clone/internal/domain/pricing"
	"github.com/Nickwenniyxiao-art/wayfair-clone/internal/domain/product"
	"github.com/Nickwenniyxiao-art/wayfair-clone/internal/payment"
)

// createAttempts bounds order-number regeneration on unique-constraint
// collisions.
const createAttempts = 3

// CreateOrderRequest holds the input for converting a cart into an order.
type CreateOrderRequest struct {
	UserID             int64
	ShippingAddressRef int64
	BillingAddressRef  int64
	CouponCode         string
}

// Engine orchestrates the cart-to-order transaction and the order lifecycle.
// All shared state lives in the store; the engine itself is safe for
// concurrent use.
type Engine struct {
	orders   Repository
	carts    cart.Repository
	products product.Repository
	coupons  coupon.Repository
	pricer   *pricing.Engine
	gateway  payment.Gateway

	chargeTimeout time.Duration
	now           func() time.Time
}

// NewEngine creates an order Engine. chargeTimeout bounds every gateway
// call; there is no internal retry loop.
func NewEngine(
	orders Repository,
	carts cart.Repository,
	products product.Repository,
	coupons coupon.Repository,
	pricer *pricing.Engine,
	gateway payment.Gateway,
	chargeTimeout time.Duration,
) *Engine {
	return &Engine{
		orders:        orders,
		carts:         carts,
		products:      products,
		coupons:       coupons,
		pricer:        pricer,
		gateway:       gateway,
		chargeTimeout: chargeTimeout,
		now:           time.Now,
	}
}

// CreateOrder converts the user's cart into a pending order.
//
// Stock is verified against the live catalog for every line, but prices are
// the cart's add-time snapshots. The order, its items, the coupon redemption
// and the cart clear are persisted in a single transaction; a partial
// outcome cannot occur.
func (e *Engine) CreateOrder(ctx context.Context, req CreateOrderRequest) (*Order, error) {
	lines, err := e.carts.List(ctx, req.UserID)
	if err != nil {
		return nil, errors.Wrap(err, "list cart")
	}
	if len(lines) == 0 {
		return nil, cart.ErrEmpty
	}

	ids := make([]int64, len(lines))
	for i, line := range lines {
		ids[i] = line.ProductID
	}
	fetched, err := e.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get products")
	}
	byID := make(map[int64]product.Product, len(fetched))
	for _, p := range fetched {
		byID[p.ID] = p
	}

	// Re-verify current stock for every line. No partial orders: the first
	// shortfall fails the whole checkout. Deduction itself happens later, at
	// payment confirmation.
	for _, line := range lines {
		p, ok := byID[line.ProductID]
		if !ok {
			return nil, errors.Wrapf(product.ErrNotFound, "product %d", line.ProductID)
		}
		if p.Stock < line.Quantity {
			return nil, &product.InsufficientStockError{
				ProductID: line.ProductID,
				Requested: line.Quantity,
				Available: p.Stock,
			}
		}
	}

	var cpn *coupon.Coupon
	if req.CouponCode != "" {
		cpn, err = e.coupons.FindByCode(ctx, req.CouponCode)
		if err != nil {
			return nil, err
		}
	}

	now := e.now()
	quote, err := e.pricer.Quote(lines, cpn, now)
	if err != nil {
		return nil, err
	}

	billingRef := req.BillingAddressRef
	if billingRef == 0 {
		billingRef = req.ShippingAddressRef
	}

	o := &Order{
		UserID:             req.UserID,
		Status:             StatusPending,
		Subtotal:           quote.Subtotal,
		ShippingCost:       quote.Shipping,
		TaxCost:            quote.Tax,
		DiscountAmount:     quote.Discount,
		TotalAmount:        quote.Total,
		CouponCode:         req.CouponCode,
		ShippingAddressRef: req.ShippingAddressRef,
		BillingAddressRef:  billingRef,
	}

	items := make([]Item, len(lines))
	for i, line := range lines {
		p := byID[line.ProductID]
		items[i] = Item{
			ProductID:   line.ProductID,
			ProductName: p.Name,
			ProductSKU:  p.SKU,
			Quantity:    line.Quantity,
			UnitPrice:   line.Price,
			LineTotal:   line.Subtotal(),
		}
	}

	for attempt := 0; ; attempt++ {
		o.OrderNumber = NewOrderNumber(e.now())
		err = e.orders.Create(ctx, o, items)
		if err == nil {
			return o, nil
		}
		if !errors.Is(err, ErrNumberTaken) || attempt+1 >= createAttempts {
			return nil, err
		}
	}
}

// ConfirmPayment charges the order total through the gateway and, on
// success, deducts stock and moves the order to confirmed. On gateway
// failure the order stays pending, a failed payment record is kept, and the
// caller may retry.
func (e *Engine) ConfirmPayment(ctx context.Context, userID, orderID int64, method payment.Method) (*Order, error) {
	o, err := e.ownedOrder(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	if o.Status != StatusPending {
		return nil, &InvalidTransitionError{From: o.Status, To: StatusConfirmed}
	}

	chargeCtx, cancel := context.WithTimeout(ctx, e.chargeTimeout)
	defer cancel()

	res, err := e.gateway.Charge(chargeCtx, o.TotalAmount, method)
	if err != nil {
		return nil, &PaymentFailedError{Reason: err.Error()}
	}
	if !res.Authorized {
		// Bookkeeping only; the decline itself is what the caller sees.
		_ = e.orders.RecordFailedPayment(ctx, &Payment{
			OrderID:       orderID,
			UserID:        userID,
			Amount:        o.TotalAmount,
			Currency:      "USD",
			Method:        method,
			Status:        PaymentFailed,
			FailureReason: res.Reason,
		})
		return nil, &PaymentFailedError{Reason: res.Reason}
	}

	pay := &Payment{
		OrderID:       orderID,
		UserID:        userID,
		Amount:        o.TotalAmount,
		Currency:      "USD",
		Method:        method,
		Status:        PaymentSucceeded,
		TransactionID: res.Reference,
	}
	if err := e.orders.Confirm(ctx, o, pay); err != nil {
		// The charge is already captured at the gateway. Keep its reference
		// in a failed payment row so the charge can be voided out of band.
		pay.Status = PaymentFailed
		pay.FailureReason = "captured charge not applied: " + err.Error()
		_ = e.orders.RecordFailedPayment(ctx, pay)

		if errors.Is(err, ErrStatusConflict) {
			return nil, e.staleTransition(ctx, orderID, StatusConfirmed)
		}
		return nil, err
	}

	o.Status = StatusConfirmed
	return o, nil
}

// AdvanceFulfillment moves an order one step along the linear fulfillment
// progression. Reaching shipped records the carrier tracking number;
// delivered stamps the delivery time.
func (e *Engine) AdvanceFulfillment(ctx context.Context, orderID int64, target Status, trackingNumber string) (*Order, error) {
	o, err := e.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	next, ok := o.Status.NextFulfillment()
	if !ok || next != target {
		return nil, &InvalidTransitionError{From: o.Status, To: target}
	}

	var deliveredAt *time.Time
	if target == StatusDelivered {
		t := e.now()
		deliveredAt = &t
	}
	tracking := ""
	if target == StatusShipped {
		tracking = trackingNumber
	}

	if err := e.orders.Advance(ctx, orderID, o.Status, target, tracking, deliveredAt); err != nil {
		if errors.Is(err, ErrStatusConflict) {
			return nil, e.staleTransition(ctx, orderID, target)
		}
		return nil, err
	}

	o.Status = target
	if tracking != "" {
		o.TrackingNumber = tracking
	}
	o.DeliveredAt = deliveredAt
	return o, nil
}

// Cancel moves the order to cancelled. Orders that had stock deducted at
// confirmation get it restored, with restock inventory logs linked back to
// the order. Cancellation is disallowed once the order has shipped.
func (e *Engine) Cancel(ctx context.Context, userID, orderID int64) (*Order, error) {
	o, err := e.ownedOrder(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	if !o.Status.Cancellable() {
		return nil, &InvalidTransitionError{From: o.Status, To: StatusCancelled}
	}

	if err := e.orders.Cancel(ctx, o, o.Status.StockDeducted()); err != nil {
		if errors.Is(err, ErrStatusConflict) {
			return nil, e.staleTransition(ctx, orderID, StatusCancelled)
		}
		return nil, err
	}

	o.Status = StatusCancelled
	return o, nil
}

// Refund refunds up to the captured payment amount for a delivered order,
// or a cancelled order whose payment was captured before cancellation, and
// moves the order to refunded.
func (e *Engine) Refund(ctx context.Context, orderID int64, amount decimal.Decimal) (*Order, error) {
	o, err := e.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !o.Status.Refundable() {
		return nil, &InvalidTransitionError{From: o.Status, To: StatusRefunded}
	}

	pay, err := e.orders.Payment(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if pay == nil || pay.Status != PaymentSucceeded {
		return nil, ErrNoPayment
	}
	if amount.GreaterThan(pay.Amount) {
		return nil, ErrRefundTooLarge
	}

	if err := e.orders.Refund(ctx, orderID, amount, e.now()); err != nil {
		return nil, err
	}

	o.Status = StatusRefunded
	return o, nil
}

// Get returns an order with its items, enforcing ownership.
func (e *Engine) Get(ctx context.Context, userID, orderID int64) (*Order, []Item, error) {
	o, err := e.ownedOrder(ctx, userID, orderID)
	if err != nil {
		return nil, nil, err
	}
	items, err := e.orders.Items(ctx, orderID)
	if err != nil {
		return nil, nil, errors.Wrap(err, "list order items")
	}
	return o, items, nil
}

// GetByNumber resolves an order through its human-auditable order number,
// enforcing ownership.
func (e *Engine) GetByNumber(ctx context.Context, userID int64, orderNumber string) (*Order, []Item, error) {
	o, err := e.orders.GetByNumber(ctx, orderNumber)
	if err != nil {
		return nil, nil, err
	}
	if o.UserID != userID {
		return nil, nil, ErrNotOwner
	}
	items, err := e.orders.Items(ctx, o.ID)
	if err != nil {
		return nil, nil, errors.Wrap(err, "list order items")
	}
	return o, items, nil
}

// ListByUser returns the user's orders, newest first.
func (e *Engine) ListByUser(ctx context.Context, userID int64, limit, offset int) ([]Order, error) {
	return e.orders.ListByUser(ctx, userID, limit, offset)
}

func (e *Engine) ownedOrder(ctx context.Context, userID, orderID int64) (*Order, error) {
	o, err := e.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.UserID != userID {
		return nil, ErrNotOwner
	}
	return o, nil
}

// staleTransition re-reads the order after a guarded update matched nothing
// and reports the transition that is now invalid.
func (e *Engine) staleTransition(ctx context.Context, orderID int64, target Status) error {
	o, err := e.orders.GetByID(ctx, orderID)
	if err != nil {
		return err
	}
	return &InvalidTransitionError{From: o.Status, To: target}
}
