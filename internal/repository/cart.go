package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Nickwenniyxiao-art/wayfair-clone/internal/domain/cart"
)

const (
	listCartLinesSQL = `SELECT id, user_id, product_id, quantity, price, created_at, updated_at
		FROM cart_items WHERE user_id = $1 ORDER BY id`

	upsertCartLineSQL = `INSERT INTO cart_items (user_id, product_id, quantity, price)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, product_id)
		DO UPDATE SET quantity = EXCLUDED.quantity, price = EXCLUDED.price, updated_at = now()
		RETURNING id, created_at, updated_at`

	updateCartQuantitySQL = `UPDATE cart_items SET quantity = $3, updated_at = now()
		WHERE user_id = $1 AND product_id = $2`

	removeCartLineSQL = `DELETE FROM cart_items WHERE user_id = $1 AND product_id = $2`

	clearCartSQL = `DELETE FROM cart_items WHERE user_id = $1`
)

var _ cart.Repository = (*CartRepository)(nil)

// CartRepository implements cart.Repository backed by PostgreSQL.
type CartRepository struct {
	pool *pgxpool.Pool
}

// NewCartRepository returns a CartRepository that uses the given pool.
func NewCartRepository(pool *pgxpool.Pool) *CartRepository {
	return &CartRepository{pool: pool}
}

// List returns the user's cart lines in insertion order.
func (r *CartRepository) List(ctx context.Context, userID int64) ([]cart.Line, error) {
	rows, err := r.pool.Query(ctx, listCartLinesSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("listing cart for user %d: %w", userID, err)
	}
	return pgx.CollectRows(rows, scanCartLine)
}

// Upsert inserts the line or, for an existing (user, product) pair, replaces
// its quantity and snapshot price.
func (r *CartRepository) Upsert(ctx context.Context, line *cart.Line) error {
	err := r.pool.QueryRow(ctx, upsertCartLineSQL,
		line.UserID, line.ProductID, line.Quantity, line.Price,
	).Scan(&line.ID, &line.CreatedAt, &line.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upserting cart line for user %d: %w", line.UserID, err)
	}
	return nil
}

// UpdateQuantity changes the quantity of an existing line, leaving the
// snapshot price untouched.
func (r *CartRepository) UpdateQuantity(ctx context.Context, userID, productID int64, quantity int) error {
	tag, err := r.pool.Exec(ctx, updateCartQuantitySQL, userID, productID, quantity)
	if err != nil {
		return fmt.Errorf("updating cart quantity for user %d: %w", userID, err)
	}
	if tag.RowsAffected() == 0 {
		return cart.ErrLineNotFound
	}
	return nil
}

// Remove deletes one line from the user's cart.
func (r *CartRepository) Remove(ctx context.Context, userID, productID int64) error {
	tag, err := r.pool.Exec(ctx, removeCartLineSQL, userID, productID)
	if err != nil {
		return fmt.Errorf("removing cart line for user %d: %w", userID, err)
	}
	if tag.RowsAffected() == 0 {
		return cart.ErrLineNotFound
	}
	return nil
}

// Clear deletes every line from the user's cart.
func (r *CartRepository) Clear(ctx context.Context, userID int64) error {
	if _, err := r.pool.Exec(ctx, clearCartSQL, userID); err != nil {
		return fmt.Errorf("clearing cart for user %d: %w", userID, err)
	}
	return nil
}

func scanCartLine(row pgx.CollectableRow) (cart.Line, error) {
	var l cart.Line
	err := row.Scan(&l.ID, &l.UserID, &l.ProductID, &l.Quantity, &l.Price, &l.CreatedAt, &l.UpdatedAt)
	return l, err
}
