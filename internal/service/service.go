// Package service provides the implementation of inventory-related business logic.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/microservices-lab/inventory-service/internal/client"
	inverrors "github.com/microservices-lab/inventory-service/internal/errors"
	"github.com/microservices-lab/inventory-service/internal/events"
	"github.com/microservices-lab/inventory-service/internal/store"

	"github.com/shopspring/decimal"
)

// casMaxAttempts bounds the compare-and-swap loop used by Increment and
// Decrement when concurrent writers race on the same product.
const casMaxAttempts = 3

// InventoryService defines the methods for managing inventory.
// It abstracts the underlying business logic and data access.
type InventoryService interface {
	// FindByProductID retrieves the inventory of a product enriched with
	// product metadata from the product service.
	// Returns ErrInventoryNotFound if no record exists; the product service
	// is never called in that case.
	FindByProductID(ctx context.Context, productID int64) (*InventoryWithProductDto, error)

	// SetQuantity sets the absolute quantity for a product and emits a
	// stock-change notification.
	// Returns ErrInvalidArgument for negative quantities and
	// ErrInventoryNotFound if no record exists.
	SetQuantity(ctx context.Context, productID int64, quantity int32) (*InventoryWithProductDto, error)

	// Create adds an inventory record for a product after verifying the
	// product exists in the product service.
	// Returns ErrDuplicateInventory if a record already exists.
	Create(ctx context.Context, productID int64, initialQuantity int32) (*InventoryDto, error)

	// Decrement reduces the quantity of a product by amount.
	// Returns ErrInsufficientStock, leaving the quantity unchanged, when
	// amount exceeds the available quantity.
	Decrement(ctx context.Context, productID int64, amount int32) (*InventoryWithProductDto, error)

	// Increment raises the quantity of a product by amount.
	Increment(ctx context.Context, productID int64, amount int32) (*InventoryWithProductDto, error)

	// CheckAvailability reports whether at least requiredQuantity units of a
	// product are in stock. Read-only.
	CheckAvailability(ctx context.Context, productID int64, requiredQuantity int32) (*AvailabilityDto, error)
}

// Service implements InventoryService and provides methods to manage inventory.
type Service struct {
	stockStore    store.StockStore
	productClient client.ProductClient
	notifier      events.Notifier
	logger        *slog.Logger
}

// NewService creates a new instance of InventoryService with the provided collaborators.
func NewService(stockStore store.StockStore, productClient client.ProductClient, notifier events.Notifier, logger *slog.Logger) *Service {
	return &Service{
		stockStore:    stockStore,
		productClient: productClient,
		notifier:      notifier,
		logger:        logger.With("component", "service"),
	}
}

// InventoryDto represents a bare inventory record.
type InventoryDto struct {
	ProductID int64 `json:"productoId"`
	Quantity  int32 `json:"cantidad"`
}

// ProductDto represents product metadata fetched from the product service.
type ProductDto struct {
	ID    int64           `json:"id"`
	Name  string          `json:"nombre"`
	Price decimal.Decimal `json:"precio"`
}

// InventoryWithProductDto merges a local inventory record with product
// metadata. It is built per request and never persisted. Product is nil when
// a mutation committed but the subsequent enrichment call failed.
type InventoryWithProductDto struct {
	ProductID int64       `json:"productoId"`
	Quantity  int32       `json:"cantidad"`
	Product   *ProductDto `json:"producto,omitempty"`
}

// AvailabilityDto reports whether a required quantity is in stock.
type AvailabilityDto struct {
	ProductID         int64  `json:"productoId"`
	RequiredQuantity  int32  `json:"cantidadRequerida"`
	AvailableQuantity int32  `json:"cantidadDisponible"`
	Available         bool   `json:"disponible"`
	ProductName       string `json:"productoNombre"`
}

// FindByProductID retrieves the inventory of a product enriched with product metadata.
func (s *Service) FindByProductID(ctx context.Context, productID int64) (*InventoryWithProductDto, error) {
	inv, err := s.stockStore.FindByProductID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch inventory for product %d: %w", productID, err)
	}

	product, err := s.productClient.FetchProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch product %d: %w", productID, err)
	}

	return merge(inv, product), nil
}

// SetQuantity sets the absolute quantity for a product. The local save is the
// authoritative commit; if the enrichment call fails afterwards, the updated
// quantity is returned with a nil product rather than rolling back.
func (s *Service) SetQuantity(ctx context.Context, productID int64, quantity int32) (*InventoryWithProductDto, error) {
	if quantity < 0 {
		return nil, fmt.Errorf("quantity must not be negative, got %d: %w", quantity, inverrors.ErrInvalidArgument)
	}

	inv, err := s.stockStore.FindByProductID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch inventory for product %d: %w", productID, err)
	}
	previous := inv.Quantity

	updated, err := s.stockStore.UpdateQuantity(ctx, productID, quantity)
	if err != nil {
		return nil, fmt.Errorf("failed to update quantity for product %d: %w", productID, err)
	}

	s.notifier.StockChanged(ctx, events.StockChangedEvent{
		ProductID:        productID,
		PreviousQuantity: previous,
		NewQuantity:      updated.Quantity,
	})

	return s.enrich(ctx, updated), nil
}

// Create adds an inventory record for a product. The product must exist in
// the product service; otherwise the creation is rejected so no orphan
// records are stored for unknown products.
func (s *Service) Create(ctx context.Context, productID int64, initialQuantity int32) (*InventoryDto, error) {
	if initialQuantity < 0 {
		return nil, fmt.Errorf("initial quantity must not be negative, got %d: %w", initialQuantity, inverrors.ErrInvalidArgument)
	}

	if _, err := s.productClient.FetchProduct(ctx, productID); err != nil {
		return nil, fmt.Errorf("failed to verify product %d: %w", productID, err)
	}

	exists, err := s.stockStore.ExistsByProductID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to check inventory existence for product %d: %w", productID, err)
	}
	if exists {
		return nil, fmt.Errorf("product %d: %w", productID, inverrors.ErrDuplicateInventory)
	}

	inv, err := s.stockStore.Create(ctx, productID, initialQuantity)
	if err != nil {
		return nil, fmt.Errorf("failed to create inventory for product %d: %w", productID, err)
	}
	s.logger.InfoContext(ctx, "Inventory created", "producto_id", inv.ProductID, "cantidad", inv.Quantity)

	return &InventoryDto{ProductID: inv.ProductID, Quantity: inv.Quantity}, nil
}

// Decrement reduces the quantity of a product by amount. The sufficiency
// check and the write run as a bounded compare-and-swap loop so concurrent
// writers on the same product cannot push the quantity below zero.
func (s *Service) Decrement(ctx context.Context, productID int64, amount int32) (*InventoryWithProductDto, error) {
	return s.adjust(ctx, productID, amount, func(current int32) (int32, error) {
		if current < amount {
			return 0, fmt.Errorf("available: %d, requested: %d: %w", current, amount, inverrors.ErrInsufficientStock)
		}
		return current - amount, nil
	})
}

// Increment raises the quantity of a product by amount.
func (s *Service) Increment(ctx context.Context, productID int64, amount int32) (*InventoryWithProductDto, error) {
	return s.adjust(ctx, productID, amount, func(current int32) (int32, error) {
		return current + amount, nil
	})
}

// adjust applies a relative quantity change through a compare-and-swap loop.
func (s *Service) adjust(ctx context.Context, productID int64, amount int32, apply func(current int32) (int32, error)) (*InventoryWithProductDto, error) {
	if amount < 1 {
		return nil, fmt.Errorf("amount must be at least 1, got %d: %w", amount, inverrors.ErrInvalidArgument)
	}

	var updated *store.Inventory
	var previous int32
	for attempt := 1; ; attempt++ {
		inv, err := s.stockStore.FindByProductID(ctx, productID)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch inventory for product %d: %w", productID, err)
		}

		next, err := apply(inv.Quantity)
		if err != nil {
			return nil, fmt.Errorf("product %d: %w", productID, err)
		}

		updated, err = s.stockStore.CompareAndSwapQuantity(ctx, productID, inv.Quantity, next)
		if err == nil {
			previous = inv.Quantity
			break
		}
		if !errors.Is(err, inverrors.ErrQuantityConflict) {
			return nil, fmt.Errorf("failed to update quantity for product %d: %w", productID, err)
		}
		if attempt >= casMaxAttempts {
			return nil, fmt.Errorf("product %d contended beyond %d attempts: %w", productID, casMaxAttempts, inverrors.ErrQuantityConflict)
		}
		s.logger.DebugContext(ctx, "Quantity changed concurrently, retrying", "producto_id", productID, "attempt", attempt)
	}

	s.notifier.StockChanged(ctx, events.StockChangedEvent{
		ProductID:        productID,
		PreviousQuantity: previous,
		NewQuantity:      updated.Quantity,
	})

	return s.enrich(ctx, updated), nil
}

// CheckAvailability reports whether at least requiredQuantity units are in stock.
func (s *Service) CheckAvailability(ctx context.Context, productID int64, requiredQuantity int32) (*AvailabilityDto, error) {
	if requiredQuantity < 0 {
		return nil, fmt.Errorf("required quantity must not be negative, got %d: %w", requiredQuantity, inverrors.ErrInvalidArgument)
	}

	inv, err := s.FindByProductID(ctx, productID)
	if err != nil {
		return nil, err
	}

	return &AvailabilityDto{
		ProductID:         productID,
		RequiredQuantity:  requiredQuantity,
		AvailableQuantity: inv.Quantity,
		Available:         inv.Quantity >= requiredQuantity,
		ProductName:       inv.Product.Name,
	}, nil
}

// enrich fetches product metadata for a committed inventory record. The
// record is already durable at this point, so an enrichment failure degrades
// the response instead of failing the operation.
func (s *Service) enrich(ctx context.Context, inv *store.Inventory) *InventoryWithProductDto {
	product, err := s.productClient.FetchProduct(ctx, inv.ProductID)
	if err != nil {
		s.logger.WarnContext(ctx, "Inventory updated but product enrichment failed",
			"producto_id", inv.ProductID, "error", err)
		return merge(inv, nil)
	}
	return merge(inv, product)
}

// merge builds the response DTO from a record and optional product metadata.
func merge(inv *store.Inventory, product *client.Product) *InventoryWithProductDto {
	dto := &InventoryWithProductDto{
		ProductID: inv.ProductID,
		Quantity:  inv.Quantity,
	}
	if product != nil {
		dto.Product = &ProductDto{
			ID:    product.ID,
			Name:  product.Name,
			Price: product.Price,
		}
	}
	return dto
}
