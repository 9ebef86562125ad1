// Package store provides an interface for inventory storage operations.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Inventory represents the local, authoritative stock record for one product.
// At most one record exists per ProductID and Quantity is never negative.
type Inventory struct {
	ID        uuid.UUID
	ProductID int64
	Quantity  int32
	CreatedAt time.Time
	UpdatedAt time.Time
}

// StockStore is an interface for inventory storage operations.
// It abstracts the underlying data store, allowing for different implementations (e.g., in-memory, database).
type StockStore interface {
	// FindByProductID retrieves the inventory record for a product.
	// Returns ErrInventoryNotFound if no record exists.
	FindByProductID(ctx context.Context, productID int64) (*Inventory, error)

	// ExistsByProductID reports whether an inventory record exists for a product.
	ExistsByProductID(ctx context.Context, productID int64) (bool, error)

	// Create adds a new inventory record for a product.
	// Returns ErrDuplicateInventory if a record already exists for the product.
	Create(ctx context.Context, productID int64, quantity int32) (*Inventory, error)

	// UpdateQuantity sets the absolute quantity for a product. The write is
	// atomic per record. Returns ErrInventoryNotFound if no record exists.
	UpdateQuantity(ctx context.Context, productID int64, quantity int32) (*Inventory, error)

	// CompareAndSwapQuantity sets the quantity for a product only if the
	// current value matches expected. Returns ErrQuantityConflict when a
	// concurrent writer changed the quantity first, ErrInventoryNotFound if
	// no record exists.
	CompareAndSwapQuantity(ctx context.Context, productID int64, expected, quantity int32) (*Inventory, error)
}
