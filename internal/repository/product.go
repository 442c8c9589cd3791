package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Nickwenniyxiao-art/wayfair-clone/internal/domain/product"
)

const (
	productColumns = `id, sku, name, description, category, price, stock, active, created_at, updated_at`

	listProductsSQL = `SELECT ` + productColumns + ` FROM products WHERE active = TRUE ORDER BY id`

	getProductByIDSQL = `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	getProductsByIDsSQL = `SELECT ` + productColumns + ` FROM products WHERE id = ANY($1)`

	adjustStockSQL = `UPDATE products SET stock = stock + $2, updated_at = now()
		WHERE id = $1 AND stock + $2 >= 0
		RETURNING stock`

	getStockSQL = `SELECT stock FROM products WHERE id = $1`

	insertInventoryLogSQL = `INSERT INTO inventory_logs
		(product_id, order_id, change_type, quantity, previous_stock, new_stock, reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	inventoryHistorySQL = `SELECT id, product_id, order_id, change_type, quantity,
		previous_stock, new_stock, reason, created_at
		FROM inventory_logs WHERE product_id = $1 ORDER BY id DESC LIMIT $2`
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// List returns all active products ordered by ID.
func (r *ProductRepository) List(ctx context.Context) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, listProductsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// GetByID returns a single product by its identifier.
func (r *ProductRepository) GetByID(ctx context.Context, id int64) (*product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting product %d: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %d: %w", id, err)
	}
	return &p, nil
}

// GetByIDs returns products matching any of the given IDs.
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []int64) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductsByIDsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("getting products by ids: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// AdjustStock applies a manual stock delta and its inventory log entry in
// one transaction. The conditional update keeps stock from going negative
// even under concurrent adjustments.
func (r *ProductRepository) AdjustStock(ctx context.Context, id int64, delta int, change product.ChangeType, reason string) (*product.Product, error) {
	err := inTx(ctx, r.pool, func(tx pgx.Tx) error {
		var newStock int
		err := tx.QueryRow(ctx, adjustStockSQL, id, delta).Scan(&newStock)
		if err != nil {
			if !errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("adjusting stock for product %d: %w", id, err)
			}
			// Either the product is missing or the delta would go negative.
			var available int
			if scanErr := tx.QueryRow(ctx, getStockSQL, id).Scan(&available); scanErr != nil {
				if errors.Is(scanErr, pgx.ErrNoRows) {
					return product.ErrNotFound
				}
				return fmt.Errorf("reading stock for product %d: %w", id, scanErr)
			}
			return &product.InsufficientStockError{
				ProductID: id,
				Requested: -delta,
				Available: available,
			}
		}

		_, err = tx.Exec(ctx, insertInventoryLogSQL,
			id, nil, change, delta, newStock-delta, newStock, reason,
		)
		if err != nil {
			return fmt.Errorf("writing inventory log for product %d: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

// InventoryHistory returns the newest log entries for a product.
func (r *ProductRepository) InventoryHistory(ctx context.Context, id int64, limit int) ([]product.InventoryLog, error) {
	rows, err := r.pool.Query(ctx, inventoryHistorySQL, id, limit)
	if err != nil {
		return nil, fmt.Errorf("listing inventory logs for product %d: %w", id, err)
	}
	return pgx.CollectRows(rows, scanInventoryLog)
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var p product.Product
	err := row.Scan(
		&p.ID, &p.SKU, &p.Name, &p.Description, &p.Category,
		&p.Price, &p.Stock, &p.Active, &p.CreatedAt, &p.UpdatedAt,
	)
	return p, err
}

func scanInventoryLog(row pgx.CollectableRow) (product.InventoryLog, error) {
	var l product.InventoryLog
	err := row.Scan(
		&l.ID, &l.ProductID, &l.OrderID, &l.ChangeType, &l.Quantity,
		&l.PreviousStock, &l.NewStock, &l.Reason, &l.CreatedAt,
	)
	return l, err
}
