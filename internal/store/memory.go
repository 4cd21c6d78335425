package store

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fairyhunter13/storefront-api/internal/model"
)

type orderState struct {
	o   model.Order
	seq uint64
}

// Memory is a process-local Store guarded by a single RWMutex.
type Memory struct {
	mu         sync.RWMutex
	users      map[string]model.User
	emails     map[string]string
	categories map[string]model.Category
	catNames   map[string]string
	products   map[string]model.Product
	orders     map[string]orderState
	orderSeq   uint64
	now        func() time.Time
}

var _ Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		users:      make(map[string]model.User),
		emails:     make(map[string]string),
		categories: make(map[string]model.Category),
		catNames:   make(map[string]string),
		products:   make(map[string]model.Product),
		orders:     make(map[string]orderState),
		now:        time.Now,
	}
}

func (s *Memory) Ping(context.Context) error  { return nil }
func (s *Memory) Close(context.Context) error { return nil }

func (s *Memory) CreateUser(_ context.Context, u *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := model.NormalizeEmail(u.Email)
	if _, ok := s.emails[key]; ok {
		return ErrDuplicate
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = s.now()
	}
	u.Email = key
	s.users[u.ID] = *u
	s.emails[key] = u.ID
	return nil
}

func (s *Memory) FindUserByEmail(_ context.Context, email string) (model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.emails[model.NormalizeEmail(email)]
	if !ok {
		return model.User{}, ErrNotFound
	}
	return s.users[id], nil
}

func (s *Memory) FindUserByID(_ context.Context, id string) (model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return model.User{}, ErrNotFound
	}
	return u, nil
}

func (s *Memory) ListCategories(context.Context) ([]model.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Category, 0, len(s.categories))
	for _, c := range s.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Memory) FindCategory(_ context.Context, idOrName string) (model.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.categories[idOrName]; ok {
		return c, nil
	}
	if id, ok := s.catNames[model.NameKey(idOrName)]; ok {
		return s.categories[id], nil
	}
	return model.Category{}, ErrNotFound
}

func (s *Memory) CreateCategory(_ context.Context, c *model.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := model.NameKey(c.Name)
	if _, ok := s.catNames[key]; ok {
		return ErrDuplicate
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.Name = strings.TrimSpace(c.Name)
	s.categories[c.ID] = *c
	s.catNames[key] = c.ID
	return nil
}

func cloneProduct(p model.Product) model.Product {
	p.Images = slices.Clone(p.Images)
	p.Category = nil
	return p
}

func (s *Memory) ListProducts(context.Context) ([]model.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Product, 0, len(s.products))
	for _, p := range s.products {
		out = append(out, cloneProduct(p))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Memory) FindProduct(_ context.Context, id string) (model.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[id]
	if !ok {
		return model.Product{}, ErrNotFound
	}
	return cloneProduct(p), nil
}

func (s *Memory) CreateProduct(_ context.Context, p *model.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := s.now()
	p.CreatedAt, p.UpdatedAt = now, now
	s.products[p.ID] = cloneProduct(*p)
	return nil
}

func (s *Memory) UpdateProduct(_ context.Context, p model.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.products[p.ID]
	if !ok {
		return ErrNotFound
	}
	p.CreatedAt = cur.CreatedAt
	p.UpdatedAt = s.now()
	s.products[p.ID] = cloneProduct(p)
	return nil
}

func (s *Memory) DeleteProduct(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[id]; !ok {
		return ErrNotFound
	}
	delete(s.products, id)
	return nil
}

func (s *Memory) AdjustStock(_ context.Context, id string, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return ErrNotFound
	}
	p.Quantity = max(p.Quantity+delta, 0)
	p.UpdatedAt = s.now()
	s.products[id] = p
	return nil
}

func cloneOrder(o model.Order) model.Order {
	o.Items = slices.Clone(o.Items)
	if o.UserID != nil {
		id := *o.UserID
		o.UserID = &id
	}
	return o
}

func (s *Memory) CreateOrder(_ context.Context, o *model.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	now := s.now()
	if o.CreatedAt.IsZero() {
		o.CreatedAt = now
	}
	o.UpdatedAt = now
	s.orderSeq++
	s.orders[o.ID] = orderState{o: cloneOrder(*o), seq: s.orderSeq}
	return nil
}

func (s *Memory) FindOrder(_ context.Context, id string) (model.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.orders[id]
	if !ok {
		return model.Order{}, ErrNotFound
	}
	return cloneOrder(st.o), nil
}

func (s *Memory) FindOrders(context.Context) ([]model.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	states := make([]orderState, 0, len(s.orders))
	for _, st := range s.orders {
		states = append(states, st)
	}
	sort.Slice(states, func(i, j int) bool {
		a, b := states[i], states[j]
		if !a.o.CreatedAt.Equal(b.o.CreatedAt) {
			return a.o.CreatedAt.After(b.o.CreatedAt)
		}
		return a.seq > b.seq
	})
	out := make([]model.Order, len(states))
	for i, st := range states {
		out[i] = cloneOrder(st.o)
	}
	return out, nil
}

func (s *Memory) UpdateOrderStatus(_ context.Context, id string, status model.OrderStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.orders[id]
	if !ok {
		return ErrNotFound
	}
	st.o.Status = status
	st.o.UpdatedAt = s.now()
	s.orders[id] = st
	return nil
}
