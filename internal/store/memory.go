package store

import (
	"context"
	"sync"
	"time"

	inverrors "github.com/microservices-lab/inventory-service/internal/errors"

	"github.com/google/uuid"
)

// memoryStore implements StockStore using an in-memory map.
// Used by tests and local runs without a database.
type memoryStore struct {
	mu      sync.RWMutex
	records map[int64]Inventory
}

// NewMemoryStore creates a new in-memory StockStore.
func NewMemoryStore() StockStore {
	return &memoryStore{
		records: make(map[int64]Inventory),
	}
}

func (s *memoryStore) FindByProductID(_ context.Context, productID int64) (*Inventory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inv, ok := s.records[productID]
	if !ok {
		return nil, inverrors.ErrInventoryNotFound
	}
	return &inv, nil
}

func (s *memoryStore) ExistsByProductID(_ context.Context, productID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.records[productID]
	return ok, nil
}

func (s *memoryStore) Create(_ context.Context, productID int64, quantity int32) (*Inventory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[productID]; ok {
		return nil, inverrors.ErrDuplicateInventory
	}
	now := time.Now()
	inv := Inventory{
		ID:        uuid.New(),
		ProductID: productID,
		Quantity:  quantity,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.records[productID] = inv
	return &inv, nil
}

func (s *memoryStore) UpdateQuantity(_ context.Context, productID int64, quantity int32) (*Inventory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inv, ok := s.records[productID]
	if !ok {
		return nil, inverrors.ErrInventoryNotFound
	}
	inv.Quantity = quantity
	inv.UpdatedAt = time.Now()
	s.records[productID] = inv
	return &inv, nil
}

func (s *memoryStore) CompareAndSwapQuantity(_ context.Context, productID int64, expected, quantity int32) (*Inventory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inv, ok := s.records[productID]
	if !ok {
		return nil, inverrors.ErrInventoryNotFound
	}
	if inv.Quantity != expected {
		return nil, inverrors.ErrQuantityConflict
	}
	inv.Quantity = quantity
	inv.UpdatedAt = time.Now()
	s.records[productID] = inv
	return &inv, nil
}
