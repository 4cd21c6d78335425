package sqlstore

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/fairyhunter13/storefront-api/internal/model"
)

type userRow struct {
	ID           string `gorm:"primaryKey;size:36"`
	Name         string `gorm:"size:128"`
	Email        string `gorm:"size:255;uniqueIndex"`
	PasswordHash string `gorm:"size:255"`
	IsAdmin      bool
	CreatedAt    time.Time
}

func (userRow) TableName() string { return "users" }

type categoryRow struct {
	ID          string `gorm:"primaryKey;size:36"`
	Name        string `gorm:"size:128"`
	NameKey     string `gorm:"size:128;uniqueIndex"`
	Description string `gorm:"type:text"`
}

func (categoryRow) TableName() string { return "categories" }

type productRow struct {
	ID              string          `gorm:"primaryKey;size:36"`
	Name            string          `gorm:"size:255;index"`
	Description     string          `gorm:"type:text"`
	Price           decimal.Decimal `gorm:"type:decimal(12,2)"`
	Quantity        int
	CostPrice       decimal.Decimal `gorm:"type:decimal(12,2)"`
	CategoryID      string          `gorm:"size:36;index"`
	CPU             string          `gorm:"size:128"`
	RAM             string          `gorm:"size:64"`
	Storage         string          `gorm:"size:64"`
	Graphics        string          `gorm:"size:128"`
	ScreenSize      string          `gorm:"size:32"`
	OperatingSystem string          `gorm:"size:64"`
	Weight          string          `gorm:"size:32"`
	Battery         string          `gorm:"size:64"`
	Images          []string        `gorm:"serializer:json;type:text"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (productRow) TableName() string { return "products" }

type orderItemRow struct {
	ID        uint            `gorm:"primaryKey"`
	OrderID   string          `gorm:"size:36;index"`
	Position  int             `gorm:"not null"`
	ProductID string          `gorm:"size:64"`
	Quantity  int             `gorm:"not null"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(12,2)"`
}

func (orderItemRow) TableName() string { return "order_items" }

type orderRow struct {
	ID            string          `gorm:"primaryKey;size:36"`
	UserID        *string         `gorm:"size:36;index"`
	CustomerName  string          `gorm:"size:128"`
	CustomerEmail string          `gorm:"size:255"`
	CustomerPhone string          `gorm:"size:32"`
	Address       string          `gorm:"type:text"`
	Items         []orderItemRow  `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Total         decimal.Decimal `gorm:"type:decimal(12,2)"`
	Status        string          `gorm:"size:16;index"`
	CreatedAt     time.Time       `gorm:"index"`
	UpdatedAt     time.Time
}

func (orderRow) TableName() string { return "orders" }

func userFromRow(r userRow) model.User {
	return model.User{
		ID:           r.ID,
		Name:         r.Name,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		IsAdmin:      r.IsAdmin,
		CreatedAt:    r.CreatedAt,
	}
}

func categoryFromRow(r categoryRow) model.Category {
	return model.Category{ID: r.ID, Name: r.Name, Description: r.Description}
}

func productToRow(p model.Product) productRow {
	images := p.Images
	if images == nil {
		images = []string{}
	}
	return productRow{
		ID:              p.ID,
		Name:            p.Name,
		Description:     p.Description,
		Price:           p.Price,
		Quantity:        p.Quantity,
		CostPrice:       p.CostPrice,
		CategoryID:      p.CategoryID,
		CPU:             p.CPU,
		RAM:             p.RAM,
		Storage:         p.Storage,
		Graphics:        p.Graphics,
		ScreenSize:      p.ScreenSize,
		OperatingSystem: p.OperatingSystem,
		Weight:          p.Weight,
		Battery:         p.Battery,
		Images:          images,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
}

func productFromRow(r productRow) model.Product {
	return model.Product{
		ID:              r.ID,
		Name:            r.Name,
		Description:     r.Description,
		Price:           r.Price,
		Quantity:        r.Quantity,
		CostPrice:       r.CostPrice,
		CategoryID:      r.CategoryID,
		CPU:             r.CPU,
		RAM:             r.RAM,
		Storage:         r.Storage,
		Graphics:        r.Graphics,
		ScreenSize:      r.ScreenSize,
		OperatingSystem: r.OperatingSystem,
		Weight:          r.Weight,
		Battery:         r.Battery,
		Images:          r.Images,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

func orderToRow(o model.Order) orderRow {
	r := orderRow{
		ID:            o.ID,
		UserID:        o.UserID,
		CustomerName:  o.CustomerName,
		CustomerEmail: o.CustomerEmail,
		CustomerPhone: o.CustomerPhone,
		Address:       o.Address,
		Items:         make([]orderItemRow, len(o.Items)),
		Total:         o.Total,
		Status:        string(o.Status),
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}
	for i, it := range o.Items {
		r.Items[i] = orderItemRow{
			OrderID:   o.ID,
			Position:  i,
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
		}
	}
	return r
}

func orderFromRow(r orderRow) model.Order {
	o := model.Order{
		ID:            r.ID,
		UserID:        r.UserID,
		CustomerName:  r.CustomerName,
		CustomerEmail: r.CustomerEmail,
		CustomerPhone: r.CustomerPhone,
		Address:       r.Address,
		Items:         make([]model.LineItem, len(r.Items)),
		Total:         r.Total,
		Status:        model.OrderStatus(r.Status),
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
	for i, it := range r.Items {
		o.Items[i] = model.LineItem{ProductID: it.ProductID, Quantity: it.Quantity, UnitPrice: it.UnitPrice}
	}
	return o
}
