package store_test

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/storefront-api/internal/model"
	"github.com/fairyhunter13/storefront-api/internal/store"
	"github.com/fairyhunter13/storefront-api/internal/store/storetest"
)

func TestMemoryContract(t *testing.T) {
	storetest.Run(t, func(*testing.T) store.Store { return store.NewMemory() })
}

func TestMemoryReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	p := &model.Product{Name: "Copy", Price: decimal.NewFromInt(1), Images: []string{"a"}}
	require.NoError(t, s.CreateProduct(ctx, p))

	got, err := s.FindProduct(ctx, p.ID)
	require.NoError(t, err)
	got.Images[0] = "mutated"

	again, err := s.FindProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "a", again.Images[0])
}

func TestMemoryConcurrentStockAdjustments(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	p := &model.Product{Name: "Busy", Price: decimal.NewFromInt(1), Quantity: 100}
	require.NoError(t, s.CreateProduct(ctx, p))

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.AdjustStock(ctx, p.ID, -1)
		}()
	}
	wg.Wait()

	got, err := s.FindProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Quantity)
}
