// Package store defines the persistence contract of the storefront and its in-memory implementation.
package store

import (
	"context"
	"errors"

	"github.com/fairyhunter13/storefront-api/internal/model"
)

var (
	// ErrNotFound is returned when no record matches, including malformed identifiers.
	ErrNotFound = errors.New("store: not found")
	// ErrDuplicate is returned when a unique key (user email, category name) is taken.
	ErrDuplicate = errors.New("store: duplicate key")
)

// Store is the single persistence abstraction behind every service.
//
// Implementations are safe for concurrent use. Writes to the same record are
// last-write-wins; no optimistic concurrency check is performed.
type Store interface {
	Ping(ctx context.Context) error
	Close(ctx context.Context) error

	CreateUser(ctx context.Context, u *model.User) error
	FindUserByEmail(ctx context.Context, email string) (model.User, error)
	FindUserByID(ctx context.Context, id string) (model.User, error)

	ListCategories(ctx context.Context) ([]model.Category, error)
	// FindCategory matches idOrName against category ids first, then names ignoring case.
	FindCategory(ctx context.Context, idOrName string) (model.Category, error)
	CreateCategory(ctx context.Context, c *model.Category) error

	// ListProducts returns products sorted by name, then id.
	ListProducts(ctx context.Context) ([]model.Product, error)
	FindProduct(ctx context.Context, id string) (model.Product, error)
	CreateProduct(ctx context.Context, p *model.Product) error
	UpdateProduct(ctx context.Context, p model.Product) error
	DeleteProduct(ctx context.Context, id string) error
	// AdjustStock adds delta to a product's quantity, never going below zero.
	AdjustStock(ctx context.Context, id string, delta int) error

	CreateOrder(ctx context.Context, o *model.Order) error
	FindOrder(ctx context.Context, id string) (model.Order, error)
	// FindOrders returns every order, newest first.
	FindOrders(ctx context.Context) ([]model.Order, error)
	UpdateOrderStatus(ctx context.Context, id string, status model.OrderStatus) error
}
