// Package catalog serves categories and products and the admin mutations on them.
package catalog

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/fairyhunter13/storefront-api/internal/apperr"
	"github.com/fairyhunter13/storefront-api/internal/auth"
	"github.com/fairyhunter13/storefront-api/internal/model"
	"github.com/fairyhunter13/storefront-api/internal/obs"
	"github.com/fairyhunter13/storefront-api/internal/store"
)

const msgProductNotFound = "Product not found"

// Store is the persistence the catalog needs.
type Store interface {
	ListCategories(ctx context.Context) ([]model.Category, error)
	FindCategory(ctx context.Context, idOrName string) (model.Category, error)
	CreateCategory(ctx context.Context, c *model.Category) error
	ListProducts(ctx context.Context) ([]model.Product, error)
	FindProduct(ctx context.Context, id string) (model.Product, error)
	CreateProduct(ctx context.Context, p *model.Product) error
	UpdateProduct(ctx context.Context, p model.Product) error
	DeleteProduct(ctx context.Context, id string) error
}

type Service struct {
	store Store
}

func NewService(st Store) *Service { return &Service{store: st} }

// ProductInput is the admin payload for create and update. Nil pointers are
// missing fields.
type ProductInput struct {
	Name            string           `json:"name"`
	Description     string           `json:"description"`
	Price           *decimal.Decimal `json:"price"`
	Quantity        *int             `json:"quantity"`
	CostPrice       *decimal.Decimal `json:"cost_price"`
	CategoryID      string           `json:"category_id"`
	CPU             string           `json:"cpu"`
	RAM             string           `json:"ram"`
	Storage         string           `json:"storage"`
	Graphics        string           `json:"graphics"`
	ScreenSize      string           `json:"screen_size"`
	OperatingSystem string           `json:"operating_system"`
	Weight          string           `json:"weight"`
	Battery         string           `json:"battery"`
	Images          []string         `json:"images"`
}

// CategoryInput is the admin payload for a new category.
type CategoryInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (s *Service) ListCategories(ctx context.Context) ([]model.Category, error) {
	cats, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, apperr.Wrap(err, "list categories")
	}
	return cats, nil
}

// ListProducts returns every product with its category expanded when it resolves.
func (s *Service) ListProducts(ctx context.Context) ([]model.Product, error) {
	products, err := s.store.ListProducts(ctx)
	if err != nil {
		return nil, apperr.Wrap(err, "list products")
	}
	cats, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, apperr.Wrap(err, "list categories")
	}
	byID := make(map[string]model.Category, len(cats))
	for _, c := range cats {
		byID[c.ID] = c
	}
	for i := range products {
		if c, ok := byID[products[i].CategoryID]; ok {
			products[i].Category = &model.CategoryRef{ID: c.ID, Name: c.Name}
		}
	}
	return products, nil
}

func (s *Service) GetProduct(ctx context.Context, id string) (model.Product, error) {
	p, err := s.store.FindProduct(ctx, strings.TrimSpace(id))
	if errors.Is(err, store.ErrNotFound) {
		return model.Product{}, apperr.NotFound(msgProductNotFound)
	}
	if err != nil {
		return model.Product{}, apperr.Wrap(err, "find product")
	}
	s.expand(ctx, &p)
	return p, nil
}

func (s *Service) expand(ctx context.Context, p *model.Product) {
	if p.CategoryID == "" {
		return
	}
	if c, err := s.store.FindCategory(ctx, p.CategoryID); err == nil {
		p.Category = &model.CategoryRef{ID: c.ID, Name: c.Name}
	}
}

// resolve validates in and maps it onto p.
func (s *Service) resolve(ctx context.Context, in ProductInput, p *model.Product) error {
	name := strings.TrimSpace(in.Name)
	if name == "" || in.Price == nil || in.Quantity == nil || strings.TrimSpace(in.CategoryID) == "" {
		return apperr.Validation("Name, price, quantity and category are required")
	}
	if in.Price.IsNegative() {
		return apperr.Validation("Price must not be negative")
	}
	if *in.Quantity < 0 {
		return apperr.Validation("Quantity must not be negative")
	}
	cost := decimal.Zero
	if in.CostPrice != nil {
		if in.CostPrice.IsNegative() {
			return apperr.Validation("Cost price must not be negative")
		}
		cost = *in.CostPrice
	}
	cat, err := s.store.FindCategory(ctx, strings.TrimSpace(in.CategoryID))
	if errors.Is(err, store.ErrNotFound) {
		return apperr.Validation("Category not found")
	}
	if err != nil {
		return apperr.Wrap(err, "find category")
	}

	images := in.Images
	if images == nil {
		images = []string{}
	}
	p.Name = name
	p.Description = in.Description
	p.Price = *in.Price
	p.Quantity = *in.Quantity
	p.CostPrice = cost
	p.CategoryID = cat.ID
	p.Category = &model.CategoryRef{ID: cat.ID, Name: cat.Name}
	p.CPU = in.CPU
	p.RAM = in.RAM
	p.Storage = in.Storage
	p.Graphics = in.Graphics
	p.ScreenSize = in.ScreenSize
	p.OperatingSystem = in.OperatingSystem
	p.Weight = in.Weight
	p.Battery = in.Battery
	p.Images = images
	return nil
}

func (s *Service) CreateProduct(ctx context.Context, caller *model.Principal, in ProductInput) (model.Product, error) {
	if err := auth.RequireAdmin(caller); err != nil {
		return model.Product{}, err
	}
	var p model.Product
	if err := s.resolve(ctx, in, &p); err != nil {
		return model.Product{}, err
	}
	if err := s.store.CreateProduct(ctx, &p); err != nil {
		return model.Product{}, apperr.Wrap(err, "create product")
	}
	obs.Logger.Info("product_created", "product_id", p.ID, "admin_id", caller.ID)
	return p, nil
}

func (s *Service) UpdateProduct(ctx context.Context, caller *model.Principal, id string, in ProductInput) (model.Product, error) {
	if err := auth.RequireAdmin(caller); err != nil {
		return model.Product{}, err
	}
	p, err := s.store.FindProduct(ctx, strings.TrimSpace(id))
	if errors.Is(err, store.ErrNotFound) {
		return model.Product{}, apperr.NotFound(msgProductNotFound)
	}
	if err != nil {
		return model.Product{}, apperr.Wrap(err, "find product")
	}
	if err := s.resolve(ctx, in, &p); err != nil {
		return model.Product{}, err
	}
	if err := s.store.UpdateProduct(ctx, p); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return model.Product{}, apperr.NotFound(msgProductNotFound)
		}
		return model.Product{}, apperr.Wrap(err, "update product")
	}
	stored, err := s.store.FindProduct(ctx, p.ID)
	if err != nil {
		return model.Product{}, apperr.Wrap(err, "reload product")
	}
	stored.Category = p.Category
	obs.Logger.Info("product_updated", "product_id", p.ID, "admin_id", caller.ID)
	return stored, nil
}

func (s *Service) DeleteProduct(ctx context.Context, caller *model.Principal, id string) error {
	if err := auth.RequireAdmin(caller); err != nil {
		return err
	}
	err := s.store.DeleteProduct(ctx, strings.TrimSpace(id))
	if errors.Is(err, store.ErrNotFound) {
		return apperr.NotFound(msgProductNotFound)
	}
	if err != nil {
		return apperr.Wrap(err, "delete product")
	}
	obs.Logger.Info("product_deleted", "product_id", id, "admin_id", caller.ID)
	return nil
}

func (s *Service) CreateCategory(ctx context.Context, caller *model.Principal, in CategoryInput) (model.Category, error) {
	if err := auth.RequireAdmin(caller); err != nil {
		return model.Category{}, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return model.Category{}, apperr.Validation("Category name is required")
	}
	c := model.Category{Name: name, Description: strings.TrimSpace(in.Description)}
	if err := s.store.CreateCategory(ctx, &c); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return model.Category{}, apperr.Conflict("Category already exists")
		}
		return model.Category{}, apperr.Wrap(err, "create category")
	}
	obs.Logger.Info("category_created", "category_id", c.ID, "admin_id", caller.ID)
	return c, nil
}
