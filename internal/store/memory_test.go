package store

import (
	"context"
	"errors"
	"sync"
	"testing"

	inverrors "github.com/microservices-lab/inventory-service/internal/errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_CreateAndFind(t *testing.T) {
	// given
	s := NewMemoryStore()
	ctx := context.Background()

	// when
	created, err := s.Create(ctx, 42, 100)

	// then
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, created.ID)
	assert.Equal(t, int64(42), created.ProductID)
	assert.Equal(t, int32(100), created.Quantity)
	assert.False(t, created.CreatedAt.IsZero())

	found, err := s.FindByProductID(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)
	assert.Equal(t, int32(100), found.Quantity)
}

func TestMemoryStore_FindUnknown(t *testing.T) {
	s := NewMemoryStore()

	inv, err := s.FindByProductID(context.Background(), 99)

	assert.Nil(t, inv)
	assert.ErrorIs(t, err, inverrors.ErrInventoryNotFound)
}

func TestMemoryStore_DuplicateCreate(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_, err := s.Create(ctx, 42, 100)
	require.NoError(t, err)

	inv, err := s.Create(ctx, 42, 5)

	assert.Nil(t, inv)
	assert.ErrorIs(t, err, inverrors.ErrDuplicateInventory)
}

func TestMemoryStore_ExistsByProductID(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	exists, err := s.ExistsByProductID(ctx, 42)
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = s.Create(ctx, 42, 100)
	require.NoError(t, err)

	exists, err = s.ExistsByProductID(ctx, 42)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestMemoryStore_UpdateQuantity(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_, err := s.Create(ctx, 42, 100)
	require.NoError(t, err)

	updated, err := s.UpdateQuantity(ctx, 42, 60)
	require.NoError(t, err)
	assert.Equal(t, int32(60), updated.Quantity)

	_, err = s.UpdateQuantity(ctx, 99, 10)
	assert.ErrorIs(t, err, inverrors.ErrInventoryNotFound)
}

func TestMemoryStore_CompareAndSwapQuantity(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_, err := s.Create(ctx, 42, 100)
	require.NoError(t, err)

	t.Run("succeeds when expected matches", func(t *testing.T) {
		updated, err := s.CompareAndSwapQuantity(ctx, 42, 100, 70)
		require.NoError(t, err)
		assert.Equal(t, int32(70), updated.Quantity)
	})

	t.Run("conflicts when expected is stale", func(t *testing.T) {
		inv, err := s.CompareAndSwapQuantity(ctx, 42, 100, 50)
		assert.Nil(t, inv)
		assert.ErrorIs(t, err, inverrors.ErrQuantityConflict)

		current, err := s.FindByProductID(ctx, 42)
		require.NoError(t, err)
		assert.Equal(t, int32(70), current.Quantity)
	})

	t.Run("unknown product", func(t *testing.T) {
		inv, err := s.CompareAndSwapQuantity(ctx, 99, 1, 2)
		assert.Nil(t, inv)
		assert.ErrorIs(t, err, inverrors.ErrInventoryNotFound)
	})
}

// TestMemoryStore_ConcurrentDecrements runs many writers racing on the same
// product through the CAS primitive. Every unit removed must be accounted for
// and the quantity must never go below zero.
func TestMemoryStore_ConcurrentDecrements(t *testing.T) {
	const (
		writers = 50
		initial = int32(40)
	)

	s := NewMemoryStore()
	ctx := context.Background()
	_, err := s.Create(ctx, 42, initial)
	require.NoError(t, err)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int32
	)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				inv, err := s.FindByProductID(ctx, 42)
				if err != nil {
					return
				}
				if inv.Quantity < 1 {
					// Out of stock, give up like the service would.
					return
				}
				_, err = s.CompareAndSwapQuantity(ctx, 42, inv.Quantity, inv.Quantity-1)
				if err == nil {
					mu.Lock()
					succeeded++
					mu.Unlock()
					return
				}
				if !errors.Is(err, inverrors.ErrQuantityConflict) {
					return
				}
			}
		}()
	}
	wg.Wait()

	final, err := s.FindByProductID(ctx, 42)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, final.Quantity, int32(0))
	assert.Equal(t, initial-succeeded, final.Quantity)
	assert.Equal(t, initial, succeeded, "with more writers than stock every unit should be taken")
	assert.Equal(t, int32(0), final.Quantity)
}
