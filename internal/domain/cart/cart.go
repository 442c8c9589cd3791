package cart

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrEmpty is returned when an operation requires a non-empty cart.
var ErrEmpty = errors.New("cart is empty")

// ErrLineNotFound is returned when a cart line does not exist for the user.
var ErrLineNotFound = errors.New("cart line not found")

// Line is one product-quantity entry in a user's cart. Price is snapshotted
// at add time and is the price charged at checkout, even if the catalog
// price changes afterwards.
type Line struct {
	ID        int64
	UserID    int64
	ProductID int64
	Quantity  int
	Price     decimal.Decimal
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Subtotal returns the line's snapshot price multiplied by its quantity.
func (l Line) Subtotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Repository defines persistence operations for cart lines. Lines are unique
// per (user, product); Upsert replaces quantity and refreshes the snapshot
// price for an existing line.
type Repository interface {
	List(ctx context.Context, userID int64) ([]Line, error)
	Upsert(ctx context.Context, line *Line) error
	UpdateQuantity(ctx context.Context, userID, productID int64, quantity int) error
	Remove(ctx context.Context, userID, productID int64) error
	Clear(ctx context.Context, userID int64) error
}
