package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/Nickwenniyxiao-art/wayfair-clone/internal/domain/order"
	"github.com/Nickwenniyxiao-art/wayfair-clone/internal/domain/product"
)

const (
	orderColumns = `id, order_number, user_id, status, subtotal, shipping_cost, tax_cost,
		discount_amount, total_amount, coupon_code, shipping_address_ref,
		billing_address_ref, tracking_number, created_at, updated_at, delivered_at`

	getOrderByIDSQL = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	getOrderByNumberSQL = `SELECT ` + orderColumns + ` FROM orders WHERE order_number = $1`

	listOrdersByUserSQL = `SELECT ` + orderColumns + ` FROM orders
		WHERE user_id = $1 ORDER BY id DESC LIMIT $2 OFFSET $3`

	insertOrderSQL = `INSERT INTO orders
		(order_number, user_id, status, subtotal, shipping_cost, tax_cost,
		 discount_amount, total_amount, coupon_code, shipping_address_ref, billing_address_ref)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, updated_at`

	insertOrderItemSQL = `INSERT INTO order_items
		(order_id, product_id, product_name, product_sku, quantity, unit_price, line_total)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`

	listOrderItemsSQL = `SELECT id, order_id, product_id, product_name, product_sku,
		quantity, unit_price, line_total
		FROM order_items WHERE order_id = $1 ORDER BY id`

	advanceOrderSQL = `UPDATE orders SET status = $3,
		tracking_number = CASE WHEN $4 <> '' THEN $4 ELSE tracking_number END,
		delivered_at = COALESCE($5, delivered_at),
		updated_at = now()
		WHERE id = $1 AND status = $2`

	guardedStatusSQL = `UPDATE orders SET status = $3, updated_at = now()
		WHERE id = $1 AND status = $2`

	deductStockSQL = `UPDATE products SET stock = stock - $2, updated_at = now()
		WHERE id = $1 AND stock >= $2
		RETURNING stock`

	restockSQL = `UPDATE products SET stock = stock + $2, updated_at = now()
		WHERE id = $1
		RETURNING stock`

	insertPaymentSQL = `INSERT INTO payments
		(order_id, user_id, amount, currency, method, status, transaction_id, failure_reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at`

	getPaymentSQL = `SELECT id, order_id, user_id, amount, currency, method, status,
		transaction_id, failure_reason, refund_amount, refunded_at, created_at
		FROM payments WHERE order_id = $1 AND status <> 'failed'`

	refundPaymentSQL = `UPDATE payments
		SET status = 'refunded', refund_amount = $2, refunded_at = $3
		WHERE order_id = $1 AND status = 'succeeded'`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL. Every
// mutating method runs as one transaction so the write groups the order
// engine relies on are all-or-nothing.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// GetByID returns a single order by its identifier.
func (r *OrderRepository) GetByID(ctx context.Context, id int64) (*order.Order, error) {
	return r.getOrder(ctx, getOrderByIDSQL, id)
}

// GetByNumber returns a single order by its order number.
func (r *OrderRepository) GetByNumber(ctx context.Context, orderNumber string) (*order.Order, error) {
	return r.getOrder(ctx, getOrderByNumberSQL, orderNumber)
}

func (r *OrderRepository) getOrder(ctx context.Context, sql string, arg any) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, sql, arg)
	if err != nil {
		return nil, fmt.Errorf("getting order: %w", err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order: %w", err)
	}
	return &o, nil
}

// ListByUser returns the user's orders, newest first.
func (r *OrderRepository) ListByUser(ctx context.Context, userID int64, limit, offset int) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersByUserSQL, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing orders for user %d: %w", userID, err)
	}
	return pgx.CollectRows(rows, scanOrder)
}

// Items returns the order's line items.
func (r *OrderRepository) Items(ctx context.Context, orderID int64) ([]order.Item, error) {
	rows, err := r.pool.Query(ctx, listOrderItemsSQL, orderID)
	if err != nil {
		return nil, fmt.Errorf("listing items for order %d: %w", orderID, err)
	}
	return pgx.CollectRows(rows, scanOrderItem)
}

// Payment returns the order's captured (non-failed) payment, or nil when
// none exists.
func (r *OrderRepository) Payment(ctx context.Context, orderID int64) (*order.Payment, error) {
	rows, err := r.pool.Query(ctx, getPaymentSQL, orderID)
	if err != nil {
		return nil, fmt.Errorf("getting payment for order %d: %w", orderID, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanPayment)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting payment for order %d: %w", orderID, err)
	}
	return &p, nil
}

// Create persists the order, its items, the coupon redemption and the cart
// clear in one transaction.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order, items []order.Item) error {
	return inTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, insertOrderSQL,
			o.OrderNumber, o.UserID, o.Status, o.Subtotal, o.ShippingCost, o.TaxCost,
			o.DiscountAmount, o.TotalAmount, o.CouponCode, o.ShippingAddressRef, o.BillingAddressRef,
		).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
		if err != nil {
			if isUniqueViolation(err, "orders_order_number_key") {
				return order.ErrNumberTaken
			}
			return fmt.Errorf("creating order %q: %w", o.OrderNumber, err)
		}

		for i := range items {
			items[i].OrderID = o.ID
			err := tx.QueryRow(ctx, insertOrderItemSQL,
				o.ID, items[i].ProductID, items[i].ProductName, items[i].ProductSKU,
				items[i].Quantity, items[i].UnitPrice, items[i].LineTotal,
			).Scan(&items[i].ID)
			if err != nil {
				return fmt.Errorf("creating item for order %q: %w", o.OrderNumber, err)
			}
		}

		if o.CouponCode != "" {
			if err := redeemCoupon(ctx, tx, o.CouponCode, o.UserID, o.ID); err != nil {
				return err
			}
		}

		if _, err := tx.Exec(ctx, clearCartSQL, o.UserID); err != nil {
			return fmt.Errorf("clearing cart for user %d: %w", o.UserID, err)
		}
		return nil
	})
}

// Confirm transitions pending -> confirmed, deducts stock per item with
// purchase inventory logs, and records the captured payment.
func (r *OrderRepository) Confirm(ctx context.Context, o *order.Order, pay *order.Payment) error {
	return inTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, guardedStatusSQL, o.ID, order.StatusPending, order.StatusConfirmed)
		if err != nil {
			return fmt.Errorf("confirming order %d: %w", o.ID, err)
		}
		if tag.RowsAffected() == 0 {
			return order.ErrStatusConflict
		}

		items, err := collectItems(ctx, tx, o.ID)
		if err != nil {
			return err
		}
		for _, item := range items {
			if err := deductStock(ctx, tx, item, o.ID); err != nil {
				return err
			}
		}

		pay.OrderID = o.ID
		err = tx.QueryRow(ctx, insertPaymentSQL,
			pay.OrderID, pay.UserID, pay.Amount, pay.Currency, pay.Method,
			pay.Status, pay.TransactionID, pay.FailureReason,
		).Scan(&pay.ID, &pay.CreatedAt)
		if err != nil {
			return fmt.Errorf("recording payment for order %d: %w", o.ID, err)
		}
		return nil
	})
}

// RecordFailedPayment inserts a failed payment attempt.
func (r *OrderRepository) RecordFailedPayment(ctx context.Context, pay *order.Payment) error {
	err := r.pool.QueryRow(ctx, insertPaymentSQL,
		pay.OrderID, pay.UserID, pay.Amount, pay.Currency, pay.Method,
		pay.Status, pay.TransactionID, pay.FailureReason,
	).Scan(&pay.ID, &pay.CreatedAt)
	if err != nil {
		return fmt.Errorf("recording failed payment for order %d: %w", pay.OrderID, err)
	}
	return nil
}

// Advance performs a guarded status transition.
func (r *OrderRepository) Advance(ctx context.Context, orderID int64, from, to order.Status, trackingNumber string, deliveredAt *time.Time) error {
	tag, err := r.pool.Exec(ctx, advanceOrderSQL, orderID, from, to, trackingNumber, deliveredAt)
	if err != nil {
		return fmt.Errorf("advancing order %d to %s: %w", orderID, to, err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrStatusConflict
	}
	return nil
}

// Cancel moves the order to cancelled, restocking its items when requested.
func (r *OrderRepository) Cancel(ctx context.Context, o *order.Order, restock bool) error {
	return inTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, guardedStatusSQL, o.ID, o.Status, order.StatusCancelled)
		if err != nil {
			return fmt.Errorf("cancelling order %d: %w", o.ID, err)
		}
		if tag.RowsAffected() == 0 {
			return order.ErrStatusConflict
		}

		if !restock {
			return nil
		}

		items, err := collectItems(ctx, tx, o.ID)
		if err != nil {
			return err
		}
		for _, item := range items {
			var newStock int
			err := tx.QueryRow(ctx, restockSQL, item.ProductID, item.Quantity).Scan(&newStock)
			if err != nil {
				return fmt.Errorf("restocking product %d for order %d: %w", item.ProductID, o.ID, err)
			}
			_, err = tx.Exec(ctx, insertInventoryLogSQL,
				item.ProductID, o.ID, product.ChangeRestock, item.Quantity,
				newStock-item.Quantity, newStock, "order cancelled",
			)
			if err != nil {
				return fmt.Errorf("logging restock for product %d: %w", item.ProductID, err)
			}
		}
		return nil
	})
}

// Refund sets the payment's refund fields and the order status to refunded.
func (r *OrderRepository) Refund(ctx context.Context, orderID int64, amount decimal.Decimal, refundedAt time.Time) error {
	return inTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, refundPaymentSQL, orderID, amount, refundedAt)
		if err != nil {
			return fmt.Errorf("refunding payment for order %d: %w", orderID, err)
		}
		if tag.RowsAffected() == 0 {
			return order.ErrNoPayment
		}

		for _, from := range []order.Status{order.StatusDelivered, order.StatusCancelled} {
			tag, err := tx.Exec(ctx, guardedStatusSQL, orderID, from, order.StatusRefunded)
			if err != nil {
				return fmt.Errorf("marking order %d refunded: %w", orderID, err)
			}
			if tag.RowsAffected() == 1 {
				return nil
			}
		}
		return order.ErrStatusConflict
	})
}

// collectItems reads the order's items inside the caller's transaction.
func collectItems(ctx context.Context, tx pgx.Tx, orderID int64) ([]order.Item, error) {
	rows, err := tx.Query(ctx, listOrderItemsSQL, orderID)
	if err != nil {
		return nil, fmt.Errorf("listing items for order %d: %w", orderID, err)
	}
	return pgx.CollectRows(rows, scanOrderItem)
}

// deductStock performs the conditional decrement for one item and writes
// the purchase inventory log. Failing the predicate reports the shortfall.
func deductStock(ctx context.Context, tx pgx.Tx, item order.Item, orderID int64) error {
	var newStock int
	err := tx.QueryRow(ctx, deductStockSQL, item.ProductID, item.Quantity).Scan(&newStock)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("deducting stock for product %d: %w", item.ProductID, err)
		}
		var available int
		if scanErr := tx.QueryRow(ctx, getStockSQL, item.ProductID).Scan(&available); scanErr != nil {
			return fmt.Errorf("reading stock for product %d: %w", item.ProductID, scanErr)
		}
		return &product.InsufficientStockError{
			ProductID: item.ProductID,
			Requested: item.Quantity,
			Available: available,
		}
	}

	_, err = tx.Exec(ctx, insertInventoryLogSQL,
		item.ProductID, orderID, product.ChangePurchase, -item.Quantity,
		newStock+item.Quantity, newStock, "",
	)
	if err != nil {
		return fmt.Errorf("logging purchase for product %d: %w", item.ProductID, err)
	}
	return nil
}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == constraint
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var o order.Order
	err := row.Scan(
		&o.ID, &o.OrderNumber, &o.UserID, &o.Status, &o.Subtotal, &o.ShippingCost,
		&o.TaxCost, &o.DiscountAmount, &o.TotalAmount, &o.CouponCode,
		&o.ShippingAddressRef, &o.BillingAddressRef, &o.TrackingNumber,
		&o.CreatedAt, &o.UpdatedAt, &o.DeliveredAt,
	)
	return o, err
}

func scanPayment(row pgx.CollectableRow) (order.Payment, error) {
	var p order.Payment
	err := row.Scan(
		&p.ID, &p.OrderID, &p.UserID, &p.Amount, &p.Currency, &p.Method,
		&p.Status, &p.TransactionID, &p.FailureReason, &p.RefundAmount,
		&p.RefundedAt, &p.CreatedAt,
	)
	return p, err
}

func scanOrderItem(row pgx.CollectableRow) (order.Item, error) {
	var it order.Item
	err := row.Scan(
		&it.ID, &it.OrderID, &it.ProductID, &it.ProductName, &it.ProductSKU,
		&it.Quantity, &it.UnitPrice, &it.LineTotal,
	)
	return it, err
}
