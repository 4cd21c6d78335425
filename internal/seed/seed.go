// Package seed loads a YAML catalog with categories, products and admin
// accounts into a store.
package seed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/fairyhunter13/storefront-api/internal/model"
	"github.com/fairyhunter13/storefront-api/internal/obs"
	"github.com/fairyhunter13/storefront-api/internal/store"
)

type File struct {
	Categories []Category `yaml:"categories"`
	Products   []Product  `yaml:"products"`
	Admins     []Admin    `yaml:"admins"`
}

type Category struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

// Product names its category by name; prices are decimal strings.
type Product struct {
	Name            string   `yaml:"name"`
	Category        string   `yaml:"category"`
	Price           string   `yaml:"price"`
	CostPrice       string   `yaml:"cost_price"`
	Quantity        int      `yaml:"quantity"`
	Description     string   `yaml:"description"`
	CPU             string   `yaml:"cpu"`
	RAM             string   `yaml:"ram"`
	Storage         string   `yaml:"storage"`
	Graphics        string   `yaml:"graphics"`
	ScreenSize      string   `yaml:"screen_size"`
	OperatingSystem string   `yaml:"operating_system"`
	Weight          string   `yaml:"weight"`
	Battery         string   `yaml:"battery"`
	Images          []string `yaml:"images"`
}

type Admin struct {
	Name     string `yaml:"name"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
}

// Hasher turns a cleartext password into a stored hash.
type Hasher interface {
	Hash(ctx context.Context, password string) (string, error)
}

// Result counts the records created by Apply.
type Result struct {
	Categories int
	Products   int
	Admins     int
}

func Parse(r io.Reader) (File, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return File{}, fmt.Errorf("parse seed: %w", err)
	}
	return f, nil
}

// LoadFile parses path and applies it to st.
func LoadFile(ctx context.Context, path string, st store.Store, h Hasher) (Result, error) {
	fh, err := os.Open(path)
	if err != nil {
		return Result{}, err
	}
	defer fh.Close()
	f, err := Parse(fh)
	if err != nil {
		return Result{}, err
	}
	res, err := Apply(ctx, st, h, f)
	if err != nil {
		return res, err
	}
	obs.Logger.Info("seed_applied", "file", path, "categories", res.Categories, "products", res.Products, "admins", res.Admins)
	return res, nil
}

// Apply inserts what is missing. Categories and products are matched by
// name, admins by email, so applying the same file twice changes nothing.
func Apply(ctx context.Context, st store.Store, h Hasher, f File) (Result, error) {
	var res Result
	for _, c := range f.Categories {
		if strings.TrimSpace(c.Name) == "" {
			return res, errors.New("seed: category without name")
		}
		if _, err := st.FindCategory(ctx, c.Name); err == nil {
			continue
		} else if !errors.Is(err, store.ErrNotFound) {
			return res, err
		}
		cat := model.Category{Name: strings.TrimSpace(c.Name), Description: c.Description}
		if err := st.CreateCategory(ctx, &cat); err != nil {
			return res, fmt.Errorf("seed category %q: %w", c.Name, err)
		}
		res.Categories++
	}

	existing, err := st.ListProducts(ctx)
	if err != nil {
		return res, err
	}
	names := make(map[string]bool, len(existing))
	for _, p := range existing {
		names[model.NameKey(p.Name)] = true
	}
	for _, sp := range f.Products {
		if names[model.NameKey(sp.Name)] {
			continue
		}
		p, err := toProduct(ctx, st, sp)
		if err != nil {
			return res, err
		}
		if err := st.CreateProduct(ctx, &p); err != nil {
			return res, fmt.Errorf("seed product %q: %w", sp.Name, err)
		}
		names[model.NameKey(sp.Name)] = true
		res.Products++
	}

	for _, a := range f.Admins {
		email := model.NormalizeEmail(a.Email)
		if email == "" || a.Password == "" {
			return res, errors.New("seed: admin needs email and password")
		}
		if _, err := st.FindUserByEmail(ctx, email); err == nil {
			continue
		} else if !errors.Is(err, store.ErrNotFound) {
			return res, err
		}
		hash, err := h.Hash(ctx, a.Password)
		if err != nil {
			return res, err
		}
		u := model.User{Name: strings.TrimSpace(a.Name), Email: email, PasswordHash: hash, IsAdmin: true}
		if err := st.CreateUser(ctx, &u); err != nil {
			return res, fmt.Errorf("seed admin %q: %w", email, err)
		}
		res.Admins++
	}
	return res, nil
}

func toProduct(ctx context.Context, st store.Store, sp Product) (model.Product, error) {
	if strings.TrimSpace(sp.Name) == "" {
		return model.Product{}, errors.New("seed: product without name")
	}
	price, err := decimal.NewFromString(sp.Price)
	if err != nil || price.IsNegative() {
		return model.Product{}, fmt.Errorf("seed product %q: invalid price %q", sp.Name, sp.Price)
	}
	cost := decimal.Zero
	if sp.CostPrice != "" {
		if cost, err = decimal.NewFromString(sp.CostPrice); err != nil {
			return model.Product{}, fmt.Errorf("seed product %q: invalid cost_price %q", sp.Name, sp.CostPrice)
		}
	}
	if sp.Quantity < 0 {
		return model.Product{}, fmt.Errorf("seed product %q: negative quantity", sp.Name)
	}
	cat, err := st.FindCategory(ctx, sp.Category)
	if err != nil {
		return model.Product{}, fmt.Errorf("seed product %q: category %q: %w", sp.Name, sp.Category, err)
	}
	images := sp.Images
	if images == nil {
		images = []string{}
	}
	return model.Product{
		Name:            strings.TrimSpace(sp.Name),
		Description:     sp.Description,
		Price:           price,
		Quantity:        sp.Quantity,
		CostPrice:       cost,
		CategoryID:      cat.ID,
		CPU:             sp.CPU,
		RAM:             sp.RAM,
		Storage:         sp.Storage,
		Graphics:        sp.Graphics,
		ScreenSize:      sp.ScreenSize,
		OperatingSystem: sp.OperatingSystem,
		Weight:          sp.Weight,
		Battery:         sp.Battery,
		Images:          images,
	}, nil
}
