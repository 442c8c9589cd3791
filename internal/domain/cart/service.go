package cart

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/Nickwenniyxiao-art/wayfair-clone/internal/domain/product"
)

// ErrInvalidQuantity is returned when a requested quantity is not positive.
var ErrInvalidQuantity = errors.New("quantity must be greater than 0")

// ErrProductInactive is returned when adding a product that is not for sale.
var ErrProductInactive = errors.New("product is not available")

// Service provides cart mutations backed by the catalog for price snapshots
// and stock checks at add time.
type Service struct {
	lines    Repository
	products product.Repository
}

// NewService creates a cart Service.
func NewService(lines Repository, products product.Repository) *Service {
	return &Service{lines: lines, products: products}
}

// List returns the user's current cart lines.
func (s *Service) List(ctx context.Context, userID int64) ([]Line, error) {
	return s.lines.List(ctx, userID)
}

// Add puts a product into the user's cart, snapshotting the current catalog
// price. Adding a product already in the cart replaces its quantity and
// refreshes the snapshot. Stock is checked here as a courtesy; the
// authoritative check happens again at checkout.
func (s *Service) Add(ctx context.Context, userID, productID int64, quantity int) (*Line, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	p, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, errors.Wrap(err, "get product")
	}
	if !p.Active {
		return nil, ErrProductInactive
	}
	if p.Stock < quantity {
		return nil, &product.InsufficientStockError{
			ProductID: productID,
			Requested: quantity,
			Available: p.Stock,
		}
	}

	line := &Line{
		UserID:    userID,
		ProductID: productID,
		Quantity:  quantity,
		Price:     p.Price,
	}
	if err := s.lines.Upsert(ctx, line); err != nil {
		return nil, errors.Wrap(err, "upsert cart line")
	}
	return line, nil
}

// UpdateQuantity changes the quantity of an existing line. The snapshot
// price is kept unchanged.
func (s *Service) UpdateQuantity(ctx context.Context, userID, productID int64, quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	return s.lines.UpdateQuantity(ctx, userID, productID, quantity)
}

// Remove deletes a single line from the user's cart.
func (s *Service) Remove(ctx context.Context, userID, productID int64) error {
	return s.lines.Remove(ctx, userID, productID)
}

// Clear deletes every line from the user's cart.
func (s *Service) Clear(ctx context.Context, userID int64) error {
	return s.lines.Clear(ctx, userID)
}
