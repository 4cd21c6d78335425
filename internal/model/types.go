// Package model defines domain types used by the service.
package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Money travels as a plain JSON number, the storefront does arithmetic on it.
	decimal.MarshalJSONWithoutQuotes = true
}

// User is a registered storefront account.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	IsAdmin      bool      `json:"is_admin"`
	CreatedAt    time.Time `json:"created_at"`
}

// Principal is the identity decoded from a verified bearer token.
type Principal struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	IsAdmin bool   `json:"is_admin"`
}

// PrincipalOf returns the public identity of u.
func PrincipalOf(u User) Principal {
	return Principal{ID: u.ID, Name: u.Name, Email: u.Email, IsAdmin: u.IsAdmin}
}

// Category groups products. Names are unique ignoring case.
type Category struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// CategoryRef is the compact category form embedded in product listings.
type CategoryRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Product is a laptop offered in the catalog.
type Product struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Description     string          `json:"description,omitempty"`
	Price           decimal.Decimal `json:"price"`
	Quantity        int             `json:"quantity"`
	CostPrice       decimal.Decimal `json:"cost_price"`
	CategoryID      string          `json:"category_id,omitempty"`
	Category        *CategoryRef    `json:"category,omitempty"`
	CPU             string          `json:"cpu,omitempty"`
	RAM             string          `json:"ram,omitempty"`
	Storage         string          `json:"storage,omitempty"`
	Graphics        string          `json:"graphics,omitempty"`
	ScreenSize      string          `json:"screen_size,omitempty"`
	OperatingSystem string          `json:"operating_system,omitempty"`
	Weight          string          `json:"weight,omitempty"`
	Battery         string          `json:"battery,omitempty"`
	Images          []string        `json:"images"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// Image returns the first product image or an empty string.
func (p Product) Image() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NameKey is the case-insensitive identity of a category name.
func NameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// PostalAddress is the structured shipping address sent by the checkout form.
type PostalAddress struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zipCode"`
}

// AddressInput holds either a free-text address or a structured one.
type AddressInput struct {
	Text   string
	Postal *PostalAddress
}

// Format flattens the address into the single string stored on orders.
func (a AddressInput) Format() string {
	if a.Postal != nil {
		p := a.Postal
		return fmt.Sprintf("%s, %s, %s %s", p.Street, p.City, p.State, p.ZipCode)
	}
	return a.Text
}
