// Package order implements checkout, the admin status override, the admin
// order listing and sales analytics.
package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fairyhunter13/storefront-api/internal/apperr"
	"github.com/fairyhunter13/storefront-api/internal/auth"
	"github.com/fairyhunter13/storefront-api/internal/config"
	"github.com/fairyhunter13/storefront-api/internal/model"
	"github.com/fairyhunter13/storefront-api/internal/obs"
	"github.com/fairyhunter13/storefront-api/internal/store"
)

// Store is the persistence the order service needs.
type Store interface {
	FindUserByID(ctx context.Context, id string) (model.User, error)
	ListProducts(ctx context.Context) ([]model.Product, error)
	FindProduct(ctx context.Context, id string) (model.Product, error)
	CreateOrder(ctx context.Context, o *model.Order) error
	FindOrder(ctx context.Context, id string) (model.Order, error)
	FindOrders(ctx context.Context) ([]model.Order, error)
	UpdateOrderStatus(ctx context.Context, id string, status model.OrderStatus) error
}

// StockQueue accepts stock adjustments for asynchronous application.
type StockQueue interface {
	Enqueue(adj model.StockAdjustment) bool
}

// Options tune checkout behaviour. The zero value trusts client prices,
// leaves stock untouched and allows any status change.
type Options struct {
	Pricing           string
	StrictTransitions bool
	Stock             StockQueue
	Metrics           *obs.Metrics
	Now               func() time.Time
}

type Service struct {
	store Store
	opts  Options
}

func NewService(st Store, opts Options) *Service {
	if opts.Pricing == "" {
		opts.Pricing = config.PricingClient
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{store: st, opts: opts}
}

// ItemInput is one submitted cart line. Price may be nil under server pricing.
type ItemInput struct {
	ProductID string
	Quantity  int
	Price     *decimal.Decimal
}

// CustomerInfo is the contact data sent with a checkout.
type CustomerInfo struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// CreateInput is a checkout request. Principal is nil for guests.
type CreateInput struct {
	Principal *model.Principal
	Items     []ItemInput
	Total     *decimal.Decimal
	Address   model.AddressInput
	Customer  *CustomerInfo
}

// Create validates and stores a pending order.
func (s *Service) Create(ctx context.Context, in CreateInput) (model.Order, error) {
	if len(in.Items) == 0 {
		return model.Order{}, apperr.Validation("No items")
	}
	var cust CustomerInfo
	if in.Customer != nil {
		cust = CustomerInfo{
			Name:  strings.TrimSpace(in.Customer.Name),
			Email: strings.TrimSpace(in.Customer.Email),
			Phone: strings.TrimSpace(in.Customer.Phone),
		}
	}
	if in.Principal == nil && (cust.Name == "" || cust.Email == "") {
		return model.Order{}, apperr.Validation("Customer information required for guest checkout")
	}
	if in.Total != nil && in.Total.IsNegative() {
		return model.Order{}, apperr.Validation("Invalid total")
	}

	items, err := s.lineItems(ctx, in.Items)
	if err != nil {
		return model.Order{}, err
	}
	total := decimal.Zero
	for _, li := range items {
		total = total.Add(li.Subtotal())
	}
	if in.Total != nil && s.opts.Pricing == config.PricingClient {
		total = *in.Total
	}

	o := model.Order{
		CustomerName:  cust.Name,
		CustomerEmail: cust.Email,
		CustomerPhone: cust.Phone,
		Address:       strings.TrimSpace(in.Address.Format()),
		Items:         items,
		Total:         total,
		Status:        model.OrderStatusPending,
	}
	checkout := "guest"
	if p := in.Principal; p != nil {
		id := p.ID
		o.UserID = &id
		o.CustomerName, o.CustomerEmail = p.Name, p.Email
		checkout = "authenticated"
	}
	if err := s.store.CreateOrder(ctx, &o); err != nil {
		return model.Order{}, apperr.Wrap(err, "create order")
	}

	if s.opts.Metrics != nil {
		s.opts.Metrics.OrdersCreated.WithLabelValues(checkout).Inc()
	}
	obs.Logger.Info("order_created", "order_id", o.ID, "checkout", checkout, "items", len(o.Items), "total", o.Total.String())
	s.decrementStock(o)
	return o, nil
}

func (s *Service) lineItems(ctx context.Context, in []ItemInput) ([]model.LineItem, error) {
	out := make([]model.LineItem, 0, len(in))
	for _, it := range in {
		id := strings.TrimSpace(it.ProductID)
		if id == "" {
			return nil, apperr.Validation("Invalid item product")
		}
		if it.Quantity < 1 {
			return nil, apperr.Validation("Invalid item quantity")
		}
		li := model.LineItem{ProductID: id, Quantity: it.Quantity}
		switch s.opts.Pricing {
		case config.PricingServer:
			p, err := s.store.FindProduct(ctx, id)
			if errors.Is(err, store.ErrNotFound) {
				return nil, apperr.Validation(fmt.Sprintf("Product not found: %s", id))
			}
			if err != nil {
				return nil, apperr.Wrap(err, "price item")
			}
			li.UnitPrice = p.Price
		default:
			if it.Price == nil || it.Price.IsNegative() {
				return nil, apperr.Validation("Invalid item price")
			}
			li.UnitPrice = *it.Price
		}
		out = append(out, li)
	}
	return out, nil
}

func (s *Service) decrementStock(o model.Order) {
	if s.opts.Stock == nil {
		return
	}
	for _, li := range o.Items {
		if !s.opts.Stock.Enqueue(model.StockAdjustment{ProductID: li.ProductID, Delta: -li.Quantity}) {
			obs.Logger.Warn("stock_decrement_dropped", "order_id", o.ID, "product_id", li.ProductID)
		}
	}
}

// transitions is the adjacency table enforced in strict mode.
var transitions = map[model.OrderStatus][]model.OrderStatus{
	model.OrderStatusPending:   {model.OrderStatusConfirmed, model.OrderStatusCancelled},
	model.OrderStatusConfirmed: {model.OrderStatusShipped, model.OrderStatusCancelled},
	model.OrderStatusShipped:   {model.OrderStatusDelivered},
}

func allowed(from, to model.OrderStatus) bool {
	if from == to {
		return true
	}
	for _, st := range transitions[from] {
		if st == to {
			return true
		}
	}
	return false
}

// UpdateStatus sets the status of order id. Without strict transitions any
// status may follow any other.
func (s *Service) UpdateStatus(ctx context.Context, caller *model.Principal, id, status string) error {
	if err := auth.RequireAdmin(caller); err != nil {
		return err
	}
	next, ok := model.ParseOrderStatus(strings.TrimSpace(status))
	if !ok {
		return apperr.Validation("Invalid status")
	}
	cur, err := s.store.FindOrder(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return apperr.NotFound("Order not found")
	}
	if err != nil {
		return apperr.Wrap(err, "find order")
	}
	if s.opts.StrictTransitions && !allowed(cur.Status, next) {
		return apperr.Validation("Invalid status transition")
	}
	if err := s.store.UpdateOrderStatus(ctx, id, next); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound("Order not found")
		}
		return apperr.Wrap(err, "update order status")
	}
	if s.opts.Metrics != nil {
		s.opts.Metrics.StatusUpdates.WithLabelValues(string(next)).Inc()
	}
	obs.Logger.Info("order_status_updated", "order_id", id, "from", cur.Status, "to", next, "admin_id", caller.ID)
	return nil
}
