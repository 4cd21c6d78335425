package order

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fairyhunter13/storefront-api/internal/apperr"
	"github.com/fairyhunter13/storefront-api/internal/auth"
	"github.com/fairyhunter13/storefront-api/internal/model"
	"github.com/fairyhunter13/storefront-api/internal/store"
)

// LowStockThreshold is the quantity below which a product counts as low stock.
const LowStockThreshold = 10

// UserRef is the customer summary attached to listed orders.
type UserRef struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// ProductRef is the product summary attached to listed line items.
type ProductRef struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
	Image string          `json:"image"`
}

type ItemView struct {
	model.LineItem
	Product *ProductRef `json:"product,omitempty"`
}

// View is an order with its user and products expanded where they resolve.
type View struct {
	model.Order
	User  *UserRef   `json:"user,omitempty"`
	Items []ItemView `json:"items"`
}

// List returns every order, newest first.
func (s *Service) List(ctx context.Context, caller *model.Principal) ([]View, error) {
	if err := auth.RequireAdmin(caller); err != nil {
		return nil, err
	}
	orders, err := s.store.FindOrders(ctx)
	if err != nil {
		return nil, apperr.Wrap(err, "list orders")
	}
	products, err := s.productIndex(ctx)
	if err != nil {
		return nil, err
	}
	users := make(map[string]*UserRef)

	out := make([]View, len(orders))
	for i, o := range orders {
		v := View{Order: o, Items: make([]ItemView, len(o.Items))}
		if o.UserID != nil {
			ref, err := s.userRef(ctx, users, *o.UserID)
			if err != nil {
				return nil, err
			}
			v.User = ref
		}
		for j, li := range o.Items {
			v.Items[j] = ItemView{LineItem: li}
			if p, ok := products[li.ProductID]; ok {
				v.Items[j].Product = &ProductRef{ID: p.ID, Name: p.Name, Price: p.Price, Image: p.Image()}
			}
		}
		out[i] = v
	}
	return out, nil
}

func (s *Service) userRef(ctx context.Context, cache map[string]*UserRef, id string) (*UserRef, error) {
	if ref, ok := cache[id]; ok {
		return ref, nil
	}
	u, err := s.store.FindUserByID(ctx, id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		cache[id] = nil
		return nil, nil
	case err != nil:
		return nil, apperr.Wrap(err, "find user")
	}
	ref := &UserRef{ID: u.ID, Name: u.Name, Email: u.Email}
	cache[id] = ref
	return ref, nil
}

func (s *Service) productIndex(ctx context.Context) (map[string]model.Product, error) {
	products, err := s.store.ListProducts(ctx)
	if err != nil {
		return nil, apperr.Wrap(err, "list products")
	}
	idx := make(map[string]model.Product, len(products))
	for _, p := range products {
		idx[p.ID] = p
	}
	return idx, nil
}

// Analytics summarises sales and stock for the admin dashboard.
type Analytics struct {
	TotalRevenue       decimal.Decimal           `json:"totalRevenue"`
	TotalProfit        decimal.Decimal           `json:"totalProfit"`
	MonthlyRevenue     decimal.Decimal           `json:"monthlyRevenue"`
	ProfitMargin       float64                   `json:"profitMargin"`
	LowStockProducts   int                       `json:"lowStockProducts"`
	OutOfStockProducts int                       `json:"outOfStockProducts"`
	TotalOrders        int                       `json:"totalOrders"`
	OrdersByStatus     map[model.OrderStatus]int `json:"ordersByStatus"`
}

// Analytics aggregates delivered orders and current stock. Cost prices are
// read at call time; unknown products cost 0.
func (s *Service) Analytics(ctx context.Context, caller *model.Principal) (Analytics, error) {
	if err := auth.RequireAdmin(caller); err != nil {
		return Analytics{}, err
	}
	orders, err := s.store.FindOrders(ctx)
	if err != nil {
		return Analytics{}, apperr.Wrap(err, "list orders")
	}
	products, err := s.productIndex(ctx)
	if err != nil {
		return Analytics{}, err
	}
	return summarize(orders, products, s.opts.Now()), nil
}

func summarize(orders []model.Order, products map[string]model.Product, now time.Time) Analytics {
	a := Analytics{
		TotalRevenue:   decimal.Zero,
		TotalProfit:    decimal.Zero,
		MonthlyRevenue: decimal.Zero,
		TotalOrders:    len(orders),
		OrdersByStatus: make(map[model.OrderStatus]int, len(model.OrderStatuses)),
	}
	for _, st := range model.OrderStatuses {
		a.OrdersByStatus[st] = 0
	}
	year, month, _ := now.Date()

	for _, o := range orders {
		a.OrdersByStatus[o.Status]++
		if o.Status != model.OrderStatusDelivered {
			continue
		}
		a.TotalRevenue = a.TotalRevenue.Add(o.Total)
		if y, m, _ := o.CreatedAt.In(now.Location()).Date(); y == year && m == month {
			a.MonthlyRevenue = a.MonthlyRevenue.Add(o.Total)
		}
		for _, li := range o.Items {
			cost := products[li.ProductID].CostPrice
			margin := li.UnitPrice.Sub(cost).Mul(decimal.NewFromInt(int64(li.Quantity)))
			a.TotalProfit = a.TotalProfit.Add(margin)
		}
	}
	if !a.TotalRevenue.IsZero() {
		a.ProfitMargin = a.TotalProfit.Div(a.TotalRevenue).Mul(decimal.NewFromInt(100)).Round(2).InexactFloat64()
	}

	for _, p := range products {
		if p.Quantity < LowStockThreshold {
			a.LowStockProducts++
		}
		if p.Quantity == 0 {
			a.OutOfStockProducts++
		}
	}
	return a
}
