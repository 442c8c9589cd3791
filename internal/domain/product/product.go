package product

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// InsufficientStockError indicates a requested quantity exceeds the
// currently available stock for a product.
type InsufficientStockError struct {
	ProductID int64
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}

// Product represents a catalog item available for purchase. Stock is mutated
// only through the inventory-adjustment path or an order's lifecycle, always
// paired with an inventory log entry.
type Product struct {
	ID          int64
	SKU         string
	Name        string
	Description string
	Category    string
	Price       decimal.Decimal
	Stock       int
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ChangeType enumerates the kinds of stock mutations recorded in the
// inventory log.
type ChangeType string

const (
	ChangePurchase   ChangeType = "purchase"
	ChangeReturn     ChangeType = "return"
	ChangeRestock    ChangeType = "restock"
	ChangeAdjustment ChangeType = "adjustment"
)

// InventoryLog is one append-only record of a stock delta. The sequence of
// logs for a product reconstructs its current stock from any prior point.
type InventoryLog struct {
	ID            int64
	ProductID     int64
	OrderID       *int64
	ChangeType    ChangeType
	Quantity      int
	PreviousStock int
	NewStock      int
	Reason        string
	CreatedAt     time.Time
}

// Repository defines catalog reads plus the manual inventory-adjustment path.
// Stock deductions made on behalf of an order happen inside the order store's
// transactions, not here.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id int64) (*Product, error)
	GetByIDs(ctx context.Context, ids []int64) ([]Product, error)

	// AdjustStock applies a manual stock delta (restock or adjustment) and
	// writes the matching inventory log in one transaction. A negative delta
	// that would take stock below zero fails with InsufficientStockError.
	AdjustStock(ctx context.Context, id int64, delta int, change ChangeType, reason string) (*Product, error)

	// InventoryHistory returns the log entries for a product, newest first.
	InventoryHistory(ctx context.Context, id int64, limit int) ([]InventoryLog, error)
}
