package sqlstore

import (
	"os"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/storefront-api/internal/model"
	"github.com/fairyhunter13/storefront-api/internal/store"
	"github.com/fairyhunter13/storefront-api/internal/store/storetest"
)

func TestOrderRowKeepsItemOrder(t *testing.T) {
	o := model.Order{
		ID: "o-1",
		Items: []model.LineItem{
			{ProductID: "b", Quantity: 1, UnitPrice: decimal.NewFromInt(2)},
			{ProductID: "a", Quantity: 3, UnitPrice: decimal.NewFromInt(4)},
		},
		Total:  decimal.NewFromInt(14),
		Status: model.OrderStatusPending,
	}
	r := orderToRow(o)
	require.Len(t, r.Items, 2)
	assert.Equal(t, 0, r.Items[0].Position)
	assert.Equal(t, 1, r.Items[1].Position)
	assert.Equal(t, "o-1", r.Items[1].OrderID)

	back := orderFromRow(r)
	assert.Equal(t, "b", back.Items[0].ProductID)
	assert.Nil(t, back.UserID)
	assert.Equal(t, model.OrderStatusPending, back.Status)
}

func TestProductRowNeverNilImages(t *testing.T) {
	r := productToRow(model.Product{Name: "X"})
	assert.NotNil(t, r.Images)
	assert.Empty(t, r.Images)
}

func TestMySQLContract(t *testing.T) {
	dsn := os.Getenv("MYSQL_TEST_DSN")
	if dsn == "" {
		t.Skip("MYSQL_TEST_DSN not set")
	}
	s, err := New(dsn)
	require.NoError(t, err)
	storetest.Run(t, func(t *testing.T) store.Store {
		require.NoError(t, s.Reset())
		return s
	})
}
