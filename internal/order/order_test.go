package order

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/storefront-api/internal/apperr"
	"github.com/fairyhunter13/storefront-api/internal/config"
	"github.com/fairyhunter13/storefront-api/internal/model"
	"github.com/fairyhunter13/storefront-api/internal/obs"
	"github.com/fairyhunter13/storefront-api/internal/store"
)

var admin = &model.Principal{ID: "admin", Name: "Admin", Email: "admin@example.com", IsAdmin: true}

func price(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

type recordingQueue struct {
	mu   sync.Mutex
	adjs []model.StockAdjustment
}

func (q *recordingQueue) Enqueue(adj model.StockAdjustment) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.adjs = append(q.adjs, adj)
	return true
}

func seedProduct(t *testing.T, st *store.Memory, name, p, cost string, qty int) model.Product {
	t.Helper()
	prod := model.Product{
		Name:      name,
		Price:     decimal.RequireFromString(p),
		CostPrice: decimal.RequireFromString(cost),
		Quantity:  qty,
		Images:    []string{"https://img.example/" + name + ".jpg"},
	}
	require.NoError(t, st.CreateProduct(context.Background(), &prod))
	return prod
}

func guest() *CustomerInfo { return &CustomerInfo{Name: "Bob", Email: "bob@x.com"} }

func TestCreateValidation(t *testing.T) {
	svc := NewService(store.NewMemory(), Options{})
	ctx := context.Background()
	item := ItemInput{ProductID: "1", Quantity: 2, Price: price("500")}

	cases := []struct {
		name string
		in   CreateInput
		msg  string
	}{
		{"no items", CreateInput{Customer: guest()}, "No items"},
		{"guest without info", CreateInput{Items: []ItemInput{item}}, "Customer information required for guest checkout"},
		{"guest without email", CreateInput{Items: []ItemInput{item}, Customer: &CustomerInfo{Name: "Bob"}}, "Customer information required for guest checkout"},
		{"zero quantity", CreateInput{Items: []ItemInput{{ProductID: "1", Price: price("1")}}, Customer: guest()}, "Invalid item quantity"},
		{"negative price", CreateInput{Items: []ItemInput{{ProductID: "1", Quantity: 1, Price: price("-1")}}, Customer: guest()}, "Invalid item price"},
		{"missing price", CreateInput{Items: []ItemInput{{ProductID: "1", Quantity: 1}}, Customer: guest()}, "Invalid item price"},
		{"missing product", CreateInput{Items: []ItemInput{{Quantity: 1, Price: price("1")}}, Customer: guest()}, "Invalid item product"},
		{"negative total", CreateInput{Items: []ItemInput{item}, Customer: guest(), Total: price("-5")}, "Invalid total"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tc.in)
			require.Error(t, err)
			assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
			assert.Equal(t, tc.msg, apperr.Message(err, ""))
		})
	}
}

func TestCreateGuestTrustsClientPrices(t *testing.T) {
	st := store.NewMemory()
	svc := NewService(st, Options{})
	ctx := context.Background()

	o, err := svc.Create(ctx, CreateInput{
		Items:    []ItemInput{{ProductID: "1", Quantity: 2, Price: price("500")}},
		Total:    price("999"),
		Customer: &CustomerInfo{Name: " Bob ", Email: "bob@x.com", Phone: "555-0100"},
		Address:  model.AddressInput{Postal: &model.PostalAddress{Street: "1 Main St", City: "Springfield", State: "IL", ZipCode: "62701"}},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, o.ID)
	assert.Nil(t, o.UserID)
	assert.Equal(t, "Bob", o.CustomerName)
	assert.Equal(t, "555-0100", o.CustomerPhone)
	assert.Equal(t, "1 Main St, Springfield, IL 62701", o.Address)
	assert.Equal(t, model.OrderStatusPending, o.Status)
	assert.True(t, o.Total.Equal(decimal.NewFromInt(999)), "supplied total stored verbatim")

	stored, err := st.FindOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.True(t, stored.Items[0].UnitPrice.Equal(decimal.NewFromInt(500)))
}

func TestCreateAuthenticatedUsesPrincipal(t *testing.T) {
	svc := NewService(store.NewMemory(), Options{})
	p := &model.Principal{ID: "u1", Name: "Ann", Email: "ann@example.com"}
	o, err := svc.Create(context.Background(), CreateInput{
		Principal: p,
		Items:     []ItemInput{{ProductID: "1", Quantity: 1, Price: price("10.50")}, {ProductID: "2", Quantity: 3, Price: price("2")}},
		Customer:  &CustomerInfo{Name: "Someone Else", Email: "else@example.com", Phone: "123"},
		Address:   model.AddressInput{Text: "PO Box 7"},
	})
	require.NoError(t, err)
	require.NotNil(t, o.UserID)
	assert.Equal(t, "u1", *o.UserID)
	assert.Equal(t, "Ann", o.CustomerName)
	assert.Equal(t, "ann@example.com", o.CustomerEmail)
	assert.Equal(t, "123", o.CustomerPhone)
	assert.Equal(t, "PO Box 7", o.Address)
	assert.True(t, o.Total.Equal(decimal.RequireFromString("16.50")), "total defaults to the item sum")
}

func TestCreateServerPricing(t *testing.T) {
	st := store.NewMemory()
	laptop := seedProduct(t, st, "falcon", "1200", "800", 5)
	svc := NewService(st, Options{Pricing: config.PricingServer})
	ctx := context.Background()

	o, err := svc.Create(ctx, CreateInput{
		Items:    []ItemInput{{ProductID: laptop.ID, Quantity: 2, Price: price("1")}},
		Total:    price("2"),
		Customer: guest(),
	})
	require.NoError(t, err)
	assert.True(t, o.Items[0].UnitPrice.Equal(decimal.NewFromInt(1200)))
	assert.True(t, o.Total.Equal(decimal.NewFromInt(2400)))

	_, err = svc.Create(ctx, CreateInput{Items: []ItemInput{{ProductID: "ghost", Quantity: 1}}, Customer: guest()})
	assert.Equal(t, "Product not found: ghost", apperr.Message(err, ""))
}

func TestCreateEnqueuesStockDecrements(t *testing.T) {
	q := &recordingQueue{}
	m := obs.NewMetrics()
	svc := NewService(store.NewMemory(), Options{Stock: q, Metrics: m})
	_, err := svc.Create(context.Background(), CreateInput{
		Items:    []ItemInput{{ProductID: "a", Quantity: 2, Price: price("1")}, {ProductID: "b", Quantity: 1, Price: price("1")}},
		Customer: guest(),
	})
	require.NoError(t, err)
	assert.Equal(t, []model.StockAdjustment{{ProductID: "a", Delta: -2}, {ProductID: "b", Delta: -1}}, q.adjs)
}

func placeOrder(t *testing.T, svc *Service) model.Order {
	t.Helper()
	o, err := svc.Create(context.Background(), CreateInput{
		Items:    []ItemInput{{ProductID: "1", Quantity: 1, Price: price("100")}},
		Customer: guest(),
	})
	require.NoError(t, err)
	return o
}

func TestUpdateStatusUnrestricted(t *testing.T) {
	st := store.NewMemory()
	svc := NewService(st, Options{})
	ctx := context.Background()
	o := placeOrder(t, svc)

	for _, s := range []string{"delivered", "shipped", "pending", "cancelled", "confirmed"} {
		require.NoError(t, svc.UpdateStatus(ctx, admin, o.ID, s))
		got, err := st.FindOrder(ctx, o.ID)
		require.NoError(t, err)
		assert.Equal(t, model.OrderStatus(s), got.Status)
	}

	err := svc.UpdateStatus(ctx, admin, o.ID, "lost")
	assert.Equal(t, "Invalid status", apperr.Message(err, ""))
	err = svc.UpdateStatus(ctx, admin, "missing", "shipped")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	assert.Equal(t, "Order not found", apperr.Message(err, ""))
	err = svc.UpdateStatus(ctx, &model.Principal{ID: "u"}, o.ID, "shipped")
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
}

func TestUpdateStatusStrict(t *testing.T) {
	svc := NewService(store.NewMemory(), Options{StrictTransitions: true})
	ctx := context.Background()
	o := placeOrder(t, svc)

	require.NoError(t, svc.UpdateStatus(ctx, admin, o.ID, "confirmed"))
	require.NoError(t, svc.UpdateStatus(ctx, admin, o.ID, "shipped"))
	require.NoError(t, svc.UpdateStatus(ctx, admin, o.ID, "delivered"))
	require.NoError(t, svc.UpdateStatus(ctx, admin, o.ID, "delivered"))

	err := svc.UpdateStatus(ctx, admin, o.ID, "pending")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.Equal(t, "Invalid status transition", apperr.Message(err, ""))
}

func TestListExpandsReferences(t *testing.T) {
	st := store.NewMemory()
	ctx := context.Background()
	laptop := seedProduct(t, st, "falcon", "1200", "800", 5)
	u := model.User{Name: "Ann", Email: "ann@example.com", PasswordHash: "x"}
	require.NoError(t, st.CreateUser(ctx, &u))

	svc := NewService(st, Options{})
	first, err := svc.Create(ctx, CreateInput{
		Principal: &model.Principal{ID: u.ID, Name: u.Name, Email: u.Email},
		Items:     []ItemInput{{ProductID: laptop.ID, Quantity: 1, Price: price("1200")}},
	})
	require.NoError(t, err)
	second, err := svc.Create(ctx, CreateInput{
		Items:    []ItemInput{{ProductID: "gone", Quantity: 1, Price: price("5")}},
		Customer: guest(),
	})
	require.NoError(t, err)

	views, err := svc.List(ctx, admin)
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, second.ID, views[0].ID, "newest first")
	assert.Nil(t, views[0].User)
	assert.Nil(t, views[0].Items[0].Product)

	assert.Equal(t, first.ID, views[1].ID)
	require.NotNil(t, views[1].User)
	assert.Equal(t, "ann@example.com", views[1].User.Email)
	require.NotNil(t, views[1].Items[0].Product)
	assert.Equal(t, "falcon", views[1].Items[0].Product.Name)
	assert.Equal(t, "https://img.example/falcon.jpg", views[1].Items[0].Product.Image)

	raw, err := json.Marshal(views[1])
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	items := decoded["items"].([]any)
	item := items[0].(map[string]any)
	assert.Equal(t, laptop.ID, item["product_id"])
	assert.Contains(t, item, "product")

	_, err = svc.List(ctx, nil)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
}

func TestAnalyticsEmpty(t *testing.T) {
	st := store.NewMemory()
	svc := NewService(st, Options{})
	ctx := context.Background()
	placeOrder(t, svc)

	a, err := svc.Analytics(ctx, admin)
	require.NoError(t, err)
	assert.True(t, a.TotalRevenue.IsZero())
	assert.True(t, a.TotalProfit.IsZero())
	assert.Equal(t, 0.0, a.ProfitMargin)
	assert.Equal(t, 1, a.TotalOrders)
	assert.Equal(t, 1, a.OrdersByStatus[model.OrderStatusPending])

	raw, err := json.Marshal(a)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"totalRevenue":0`)
	assert.Contains(t, string(raw), `"profitMargin":0`)
}

func TestAnalyticsAggregates(t *testing.T) {
	st := store.NewMemory()
	ctx := context.Background()
	falcon := seedProduct(t, st, "falcon", "1000", "700", 0)
	seedProduct(t, st, "atlas", "500", "300", 4)
	seedProduct(t, st, "zephyr", "800", "600", 25)

	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	svc := NewService(st, Options{Now: func() time.Time { return now }})

	orders := []model.Order{
		{CustomerName: "a", CustomerEmail: "a@x.com", Status: model.OrderStatusDelivered, Total: decimal.NewFromInt(2000), CreatedAt: now.AddDate(0, 0, -3),
			Items: []model.LineItem{{ProductID: falcon.ID, Quantity: 2, UnitPrice: decimal.NewFromInt(1000)}}},
		{CustomerName: "b", CustomerEmail: "b@x.com", Status: model.OrderStatusDelivered, Total: decimal.NewFromInt(100), CreatedAt: now.AddDate(0, -1, 0),
			Items: []model.LineItem{{ProductID: "deleted", Quantity: 1, UnitPrice: decimal.NewFromInt(100)}}},
		{CustomerName: "c", CustomerEmail: "c@x.com", Status: model.OrderStatusShipped, Total: decimal.NewFromInt(9999), CreatedAt: now,
			Items: []model.LineItem{{ProductID: falcon.ID, Quantity: 1, UnitPrice: decimal.NewFromInt(9999)}}},
	}
	for i := range orders {
		require.NoError(t, st.CreateOrder(ctx, &orders[i]))
	}

	a, err := svc.Analytics(ctx, admin)
	require.NoError(t, err)
	assert.True(t, a.TotalRevenue.Equal(decimal.NewFromInt(2100)), a.TotalRevenue.String())
	// (1000-700)*2 + (100-0)*1
	assert.True(t, a.TotalProfit.Equal(decimal.NewFromInt(700)), a.TotalProfit.String())
	assert.True(t, a.MonthlyRevenue.Equal(decimal.NewFromInt(2000)), a.MonthlyRevenue.String())
	assert.Equal(t, 33.33, a.ProfitMargin)
	assert.Equal(t, 2, a.LowStockProducts)
	assert.Equal(t, 1, a.OutOfStockProducts)
	assert.Equal(t, 3, a.TotalOrders)
	assert.Equal(t, 2, a.OrdersByStatus[model.OrderStatusDelivered])

	_, err = svc.Analytics(ctx, &model.Principal{ID: "u"})
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
}
