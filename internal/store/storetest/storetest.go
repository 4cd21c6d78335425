// Package storetest holds the behavioural contract every store.Store implementation must pass.
package storetest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/storefront-api/internal/model"
	"github.com/fairyhunter13/storefront-api/internal/store"
)

// Factory returns an empty store for one subtest.
type Factory func(t *testing.T) store.Store

// Run executes the contract against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("Users", func(t *testing.T) { testUsers(t, newStore(t)) })
	t.Run("Categories", func(t *testing.T) { testCategories(t, newStore(t)) })
	t.Run("Products", func(t *testing.T) { testProducts(t, newStore(t)) })
	t.Run("AdjustStock", func(t *testing.T) { testAdjustStock(t, newStore(t)) })
	t.Run("Orders", func(t *testing.T) { testOrders(t, newStore(t)) })
	t.Run("ConcurrentStatusUpdates", func(t *testing.T) { testConcurrentStatus(t, newStore(t)) })
}

func testUsers(t *testing.T, s store.Store) {
	ctx := context.Background()
	u := &model.User{Name: "Alice", Email: " Alice@Example.com ", PasswordHash: "hash"}
	require.NoError(t, s.CreateUser(ctx, u))
	require.NotEmpty(t, u.ID)

	got, err := s.FindUserByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, "hash", got.PasswordHash)

	byID, err := s.FindUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", byID.Email)

	err = s.CreateUser(ctx, &model.User{Name: "Other", Email: "ALICE@example.com", PasswordHash: "x"})
	assert.ErrorIs(t, err, store.ErrDuplicate)

	_, err = s.FindUserByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.FindUserByID(ctx, "not-an-id")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func testCategories(t *testing.T, s store.Store) {
	ctx := context.Background()
	gaming := &model.Category{Name: "Gaming", Description: "fast"}
	require.NoError(t, s.CreateCategory(ctx, gaming))
	require.NoError(t, s.CreateCategory(ctx, &model.Category{Name: "Business"}))
	assert.ErrorIs(t, s.CreateCategory(ctx, &model.Category{Name: "gaming"}), store.ErrDuplicate)

	list, err := s.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Business", list[0].Name)

	byID, err := s.FindCategory(ctx, gaming.ID)
	require.NoError(t, err)
	assert.Equal(t, "Gaming", byID.Name)

	byName, err := s.FindCategory(ctx, "GAMING")
	require.NoError(t, err)
	assert.Equal(t, gaming.ID, byName.ID)

	_, err = s.FindCategory(ctx, "Workstation")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func newProduct(name string, qty int) *model.Product {
	return &model.Product{
		Name:      name,
		Price:     decimal.RequireFromString("999.99"),
		CostPrice: decimal.RequireFromString("700"),
		Quantity:  qty,
		CPU:       "i7",
		Images:    []string{"https://img.example/" + name + ".jpg"},
	}
}

func testProducts(t *testing.T, s store.Store) {
	ctx := context.Background()
	b := newProduct("Beta", 3)
	a := newProduct("Alpha", 5)
	require.NoError(t, s.CreateProduct(ctx, b))
	require.NoError(t, s.CreateProduct(ctx, a))

	first, err := s.ListProducts(ctx)
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, "Alpha", first[0].Name)
	second, err := s.ListProducts(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	got, err := s.FindProduct(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, got.Price.Equal(decimal.RequireFromString("999.99")))
	assert.True(t, got.CostPrice.Equal(decimal.NewFromInt(700)))
	assert.Equal(t, []string{"https://img.example/Alpha.jpg"}, got.Images)

	got.Price = decimal.NewFromInt(10)
	got.Quantity = 42
	require.NoError(t, s.UpdateProduct(ctx, got))
	upd, err := s.FindProduct(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, upd.Price.Equal(decimal.NewFromInt(10)))
	assert.Equal(t, 42, upd.Quantity)

	require.NoError(t, s.DeleteProduct(ctx, a.ID))
	_, err = s.FindProduct(ctx, a.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, s.DeleteProduct(ctx, a.ID), store.ErrNotFound)
	assert.ErrorIs(t, s.UpdateProduct(ctx, model.Product{ID: a.ID, Name: "x"}), store.ErrNotFound)
	_, err = s.FindProduct(ctx, "%%%")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func testAdjustStock(t *testing.T, s store.Store) {
	ctx := context.Background()
	p := newProduct("Gamma", 4)
	require.NoError(t, s.CreateProduct(ctx, p))
	require.NoError(t, s.AdjustStock(ctx, p.ID, -3))
	got, err := s.FindProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Quantity)

	require.NoError(t, s.AdjustStock(ctx, p.ID, -10))
	got, err = s.FindProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Quantity)

	assert.ErrorIs(t, s.AdjustStock(ctx, "missing", 1), store.ErrNotFound)
}

func newOrder(created time.Time, userID *string) *model.Order {
	return &model.Order{
		UserID:        userID,
		CustomerName:  "Bob",
		CustomerEmail: "bob@x.com",
		Address:       "1 Main St, Springfield, IL 62701",
		Items: []model.LineItem{
			{ProductID: "1", Quantity: 2, UnitPrice: decimal.NewFromInt(500)},
		},
		Total:     decimal.NewFromInt(1000),
		Status:    model.OrderStatusPending,
		CreatedAt: created,
	}
}

func testOrders(t *testing.T, s store.Store) {
	ctx := context.Background()
	base := time.Now().Add(-time.Hour).Truncate(time.Second)
	buyer := &model.User{Name: "Buyer", Email: "buyer@example.com", PasswordHash: "x"}
	require.NoError(t, s.CreateUser(ctx, buyer))
	uid := buyer.ID
	older := newOrder(base, nil)
	newer := newOrder(base.Add(10*time.Minute), &uid)
	require.NoError(t, s.CreateOrder(ctx, older))
	require.NoError(t, s.CreateOrder(ctx, newer))
	require.NotEmpty(t, older.ID)

	list, err := s.FindOrders(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, newer.ID, list[0].ID)
	assert.Equal(t, older.ID, list[1].ID)
	assert.Nil(t, list[1].UserID)
	require.NotNil(t, list[0].UserID)
	assert.Equal(t, uid, *list[0].UserID)
	require.Len(t, list[0].Items, 1)
	assert.Equal(t, "1", list[0].Items[0].ProductID)
	assert.True(t, list[0].Items[0].UnitPrice.Equal(decimal.NewFromInt(500)))
	assert.True(t, list[0].Total.Equal(decimal.NewFromInt(1000)))

	require.NoError(t, s.UpdateOrderStatus(ctx, older.ID, model.OrderStatusDelivered))
	got, err := s.FindOrder(ctx, older.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusDelivered, got.Status)

	assert.ErrorIs(t, s.UpdateOrderStatus(ctx, "123", model.OrderStatusShipped), store.ErrNotFound)
	_, err = s.FindOrder(ctx, "123")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func testConcurrentStatus(t *testing.T, s store.Store) {
	ctx := context.Background()
	o := newOrder(time.Now(), nil)
	require.NoError(t, s.CreateOrder(ctx, o))

	var wg sync.WaitGroup
	for _, st := range model.OrderStatuses {
		wg.Add(1)
		go func(st model.OrderStatus) {
			defer wg.Done()
			assert.NoError(t, s.UpdateOrderStatus(ctx, o.ID, st))
		}(st)
	}
	wg.Wait()

	got, err := s.FindOrder(ctx, o.ID)
	require.NoError(t, err)
	// Last write wins; any one of the written values is acceptable.
	assert.Contains(t, model.OrderStatuses, got.Status)
}
