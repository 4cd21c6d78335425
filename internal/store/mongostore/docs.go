package mongostore

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/fairyhunter13/storefront-api/internal/model"
)

type userDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Name      string             `bson:"name"`
	Email     string             `bson:"email"`
	Password  string             `bson:"password"`
	IsAdmin   bool               `bson:"is_admin"`
	CreatedAt time.Time          `bson:"created_at"`
}

type categoryDoc struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Name        string             `bson:"name"`
	NameKey     string             `bson:"name_key"`
	Description string             `bson:"description,omitempty"`
}

type productDoc struct {
	ID              primitive.ObjectID   `bson:"_id,omitempty"`
	Name            string               `bson:"name"`
	Description     string               `bson:"description,omitempty"`
	Price           primitive.Decimal128 `bson:"price"`
	Quantity        int                  `bson:"quantity"`
	CostPrice       primitive.Decimal128 `bson:"cost_price"`
	CategoryID      *primitive.ObjectID  `bson:"category_id,omitempty"`
	CPU             string               `bson:"cpu,omitempty"`
	RAM             string               `bson:"ram,omitempty"`
	Storage         string               `bson:"storage,omitempty"`
	Graphics        string               `bson:"graphics,omitempty"`
	ScreenSize      string               `bson:"screen_size,omitempty"`
	OperatingSystem string               `bson:"operating_system,omitempty"`
	Weight          string               `bson:"weight,omitempty"`
	Battery         string               `bson:"battery,omitempty"`
	Images          []string             `bson:"images"`
	CreatedAt       time.Time            `bson:"created_at"`
	UpdatedAt       time.Time            `bson:"updated_at"`
}

type orderItemDoc struct {
	ProductID string               `bson:"product_id"`
	Quantity  int                  `bson:"quantity"`
	Price     primitive.Decimal128 `bson:"price"`
}

type orderDoc struct {
	ID            primitive.ObjectID   `bson:"_id,omitempty"`
	UserID        *primitive.ObjectID  `bson:"user_id"`
	CustomerName  string               `bson:"customer_name"`
	CustomerEmail string               `bson:"customer_email"`
	CustomerPhone string               `bson:"customer_phone,omitempty"`
	Address       string               `bson:"address"`
	Items         []orderItemDoc       `bson:"items"`
	Total         primitive.Decimal128 `bson:"total"`
	Status        string               `bson:"status"`
	CreatedAt     time.Time            `bson:"created_at"`
	UpdatedAt     time.Time            `bson:"updated_at"`
}

// decimal128Digits is the significand precision of a BSON Decimal128.
const decimal128Digits = 34

// toDecimal128 rounds away digits a Decimal128 cannot hold and fails when the
// value is out of its exponent range.
func toDecimal128(d decimal.Decimal) (primitive.Decimal128, error) {
	if n := d.NumDigits(); n > decimal128Digits {
		d = d.Round(-d.Exponent() - int32(n-decimal128Digits))
	}
	v, err := primitive.ParseDecimal128(d.String())
	if err != nil {
		return primitive.Decimal128{}, fmt.Errorf("decimal %s: %w", d.String(), err)
	}
	return v, nil
}

func fromDecimal128(v primitive.Decimal128) decimal.Decimal {
	d, err := decimal.NewFromString(v.String())
	if err != nil {
		return decimal.Zero
	}
	return d
}

// objectID parses a hex id; ok is false for anything the driver would reject.
func objectID(id string) (primitive.ObjectID, bool) {
	oid, err := primitive.ObjectIDFromHex(id)
	return oid, err == nil
}

func userFromDoc(d userDoc) model.User {
	return model.User{
		ID:           d.ID.Hex(),
		Name:         d.Name,
		Email:        d.Email,
		PasswordHash: d.Password,
		IsAdmin:      d.IsAdmin,
		CreatedAt:    d.CreatedAt,
	}
}

func categoryFromDoc(d categoryDoc) model.Category {
	return model.Category{ID: d.ID.Hex(), Name: d.Name, Description: d.Description}
}

func productToDoc(p model.Product) (productDoc, error) {
	price, err := toDecimal128(p.Price)
	if err != nil {
		return productDoc{}, err
	}
	cost, err := toDecimal128(p.CostPrice)
	if err != nil {
		return productDoc{}, err
	}
	d := productDoc{
		Name:            p.Name,
		Description:     p.Description,
		Price:           price,
		Quantity:        p.Quantity,
		CostPrice:       cost,
		CPU:             p.CPU,
		RAM:             p.RAM,
		Storage:         p.Storage,
		Graphics:        p.Graphics,
		ScreenSize:      p.ScreenSize,
		OperatingSystem: p.OperatingSystem,
		Weight:          p.Weight,
		Battery:         p.Battery,
		Images:          p.Images,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
	if d.Images == nil {
		d.Images = []string{}
	}
	if oid, ok := objectID(p.ID); ok {
		d.ID = oid
	}
	if oid, ok := objectID(p.CategoryID); ok {
		d.CategoryID = &oid
	}
	return d, nil
}

func productFromDoc(d productDoc) model.Product {
	p := model.Product{
		ID:              d.ID.Hex(),
		Name:            d.Name,
		Description:     d.Description,
		Price:           fromDecimal128(d.Price),
		Quantity:        d.Quantity,
		CostPrice:       fromDecimal128(d.CostPrice),
		CPU:             d.CPU,
		RAM:             d.RAM,
		Storage:         d.Storage,
		Graphics:        d.Graphics,
		ScreenSize:      d.ScreenSize,
		OperatingSystem: d.OperatingSystem,
		Weight:          d.Weight,
		Battery:         d.Battery,
		Images:          d.Images,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
	if d.CategoryID != nil {
		p.CategoryID = d.CategoryID.Hex()
	}
	return p
}

func orderToDoc(o model.Order) (orderDoc, error) {
	total, err := toDecimal128(o.Total)
	if err != nil {
		return orderDoc{}, err
	}
	d := orderDoc{
		CustomerName:  o.CustomerName,
		CustomerEmail: o.CustomerEmail,
		CustomerPhone: o.CustomerPhone,
		Address:       o.Address,
		Items:         make([]orderItemDoc, len(o.Items)),
		Total:         total,
		Status:        string(o.Status),
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}
	for i, it := range o.Items {
		price, err := toDecimal128(it.UnitPrice)
		if err != nil {
			return orderDoc{}, err
		}
		d.Items[i] = orderItemDoc{ProductID: it.ProductID, Quantity: it.Quantity, Price: price}
	}
	if oid, ok := objectID(o.ID); ok {
		d.ID = oid
	}
	if o.UserID != nil {
		if oid, ok := objectID(*o.UserID); ok {
			d.UserID = &oid
		}
	}
	return d, nil
}

func orderFromDoc(d orderDoc) model.Order {
	o := model.Order{
		ID:            d.ID.Hex(),
		CustomerName:  d.CustomerName,
		CustomerEmail: d.CustomerEmail,
		CustomerPhone: d.CustomerPhone,
		Address:       d.Address,
		Items:         make([]model.LineItem, len(d.Items)),
		Total:         fromDecimal128(d.Total),
		Status:        model.OrderStatus(d.Status),
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
	for i, it := range d.Items {
		o.Items[i] = model.LineItem{ProductID: it.ProductID, Quantity: it.Quantity, UnitPrice: fromDecimal128(it.Price)}
	}
	if d.UserID != nil {
		uid := d.UserID.Hex()
		o.UserID = &uid
	}
	return o
}
