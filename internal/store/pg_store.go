package store

import (
	"context"
	"errors"
	"fmt"

	inverrors "github.com/microservices-lab/inventory-service/internal/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// uniqueViolation is the PostgreSQL error code for unique constraint violations.
const uniqueViolation = "23505"

// PgStore implements StockStore using PostgreSQL as the data store.
type PgStore struct {
	db *pgxpool.Pool
}

// NewPgStore creates a new instance of StockStore using a PostgreSQL connection pool.
func NewPgStore(dbp *pgxpool.Pool) *PgStore {
	return &PgStore{db: dbp}
}

// FindByProductID retrieves the inventory record for a product.
// Returns ErrInventoryNotFound if no record exists.
func (p *PgStore) FindByProductID(ctx context.Context, productID int64) (*Inventory, error) {
	row := p.db.QueryRow(ctx,
		`SELECT id, producto_id, cantidad, created_at, updated_at
		   FROM inventarios
		  WHERE producto_id = $1`, productID)

	inv, err := scanInventory(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, inverrors.ErrInventoryNotFound
		}
		return nil, fmt.Errorf("failed to find inventory by product ID: %w", err)
	}
	return inv, nil
}

// ExistsByProductID reports whether an inventory record exists for a product.
func (p *PgStore) ExistsByProductID(ctx context.Context, productID int64) (bool, error) {
	var exists bool
	err := p.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM inventarios WHERE producto_id = $1)`, productID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check inventory existence: %w", err)
	}
	return exists, nil
}

// Create adds a new inventory record for a product.
// Returns ErrDuplicateInventory if a record already exists for the product.
func (p *PgStore) Create(ctx context.Context, productID int64, quantity int32) (*Inventory, error) {
	row := p.db.QueryRow(ctx,
		`INSERT INTO inventarios (producto_id, cantidad)
		 VALUES ($1, $2)
		 RETURNING id, producto_id, cantidad, created_at, updated_at`, productID, quantity)

	inv, err := scanInventory(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, inverrors.ErrDuplicateInventory
		}
		return nil, fmt.Errorf("failed to create inventory: %w", err)
	}
	return inv, nil
}

// UpdateQuantity sets the absolute quantity for a product.
// Returns ErrInventoryNotFound if no record exists.
func (p *PgStore) UpdateQuantity(ctx context.Context, productID int64, quantity int32) (*Inventory, error) {
	row := p.db.QueryRow(ctx,
		`UPDATE inventarios
		    SET cantidad = $2, updated_at = now()
		  WHERE producto_id = $1
		 RETURNING id, producto_id, cantidad, created_at, updated_at`, productID, quantity)

	inv, err := scanInventory(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, inverrors.ErrInventoryNotFound
		}
		return nil, fmt.Errorf("failed to update inventory quantity: %w", err)
	}
	return inv, nil
}

// CompareAndSwapQuantity sets the quantity for a product only if the current
// value matches expected. The WHERE clause makes the read-compare-write a
// single atomic statement. Returns ErrQuantityConflict when the guard does not
// match, ErrInventoryNotFound if no record exists at all.
func (p *PgStore) CompareAndSwapQuantity(ctx context.Context, productID int64, expected, quantity int32) (*Inventory, error) {
	row := p.db.QueryRow(ctx,
		`UPDATE inventarios
		    SET cantidad = $3, updated_at = now()
		  WHERE producto_id = $1 AND cantidad = $2
		 RETURNING id, producto_id, cantidad, created_at, updated_at`, productID, expected, quantity)

	inv, err := scanInventory(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			exists, existsErr := p.ExistsByProductID(ctx, productID)
			if existsErr != nil {
				return nil, existsErr
			}
			if !exists {
				return nil, inverrors.ErrInventoryNotFound
			}
			return nil, inverrors.ErrQuantityConflict
		}
		return nil, fmt.Errorf("failed to compare-and-swap inventory quantity: %w", err)
	}
	return inv, nil
}

// scanInventory scans a single inventory row.
func scanInventory(row pgx.Row) (*Inventory, error) {
	var inv Inventory
	if err := row.Scan(&inv.ID, &inv.ProductID, &inv.Quantity, &inv.CreatedAt, &inv.UpdatedAt); err != nil {
		return nil, err
	}
	return &inv, nil
}
