// Package sqlstore implements store.Store on MySQL through gorm.
package sqlstore

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/fairyhunter13/storefront-api/internal/model"
	"github.com/fairyhunter13/storefront-api/internal/store"
)

// Store is a store.Store backed by a gorm connection.
type Store struct {
	db *gorm.DB
}

var _ store.Store = (*Store)(nil)

// Open returns a gorm DB for the MySQL dsn with pooled connections.
func Open(dsn string) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	}

	gdb, err := gorm.Open(mysql.Open(dsn), gormCfg)
	if err != nil {
		return nil, err
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, err
	}

	sqlDB.SetConnMaxLifetime(5 * time.Minute)
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	return gdb, nil
}

// New opens dsn and migrates the schema.
func New(dsn string) (*Store, error) {
	gdb, err := Open(dsn)
	if err != nil {
		return nil, err
	}
	s := &Store{db: gdb}
	if err := s.EnsureSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

// EnsureSchema applies the required database schema.
func (s *Store) EnsureSchema() error {
	return s.db.AutoMigrate(&userRow{}, &categoryRow{}, &productRow{}, &orderRow{}, &orderItemRow{})
}

// Reset drops and recreates every table. Used by tests.
func (s *Store) Reset() error {
	if err := s.db.Migrator().DropTable(&orderItemRow{}, &orderRow{}, &productRow{}, &categoryRow{}, &userRow{}); err != nil {
		return err
	}
	return s.EnsureSchema()
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) Close(context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func translate(err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return store.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return store.ErrDuplicate
	}
	return err
}

func (s *Store) CreateUser(ctx context.Context, u *model.User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.Email = model.NormalizeEmail(u.Email)
	row := userRow{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		IsAdmin:      u.IsAdmin,
		CreatedAt:    u.CreatedAt,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return translate(err)
	}
	u.CreatedAt = row.CreatedAt
	return nil
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (model.User, error) {
	var row userRow
	if err := s.db.WithContext(ctx).Take(&row, "email = ?", model.NormalizeEmail(email)).Error; err != nil {
		return model.User{}, translate(err)
	}
	return userFromRow(row), nil
}

func (s *Store) FindUserByID(ctx context.Context, id string) (model.User, error) {
	var row userRow
	if err := s.db.WithContext(ctx).Take(&row, "id = ?", id).Error; err != nil {
		return model.User{}, translate(err)
	}
	return userFromRow(row), nil
}

func (s *Store) ListCategories(ctx context.Context) ([]model.Category, error) {
	var rows []categoryRow
	if err := s.db.WithContext(ctx).Order("name asc, id asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]model.Category, len(rows))
	for i, r := range rows {
		out[i] = categoryFromRow(r)
	}
	return out, nil
}

func (s *Store) FindCategory(ctx context.Context, idOrName string) (model.Category, error) {
	var row categoryRow
	err := s.db.WithContext(ctx).Take(&row, "id = ?", idOrName).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = s.db.WithContext(ctx).Take(&row, "name_key = ?", model.NameKey(idOrName)).Error
	}
	if err != nil {
		return model.Category{}, translate(err)
	}
	return categoryFromRow(row), nil
}

func (s *Store) CreateCategory(ctx context.Context, c *model.Category) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	row := categoryRow{ID: c.ID, Name: c.Name, NameKey: model.NameKey(c.Name), Description: c.Description}
	return translate(s.db.WithContext(ctx).Create(&row).Error)
}

func (s *Store) ListProducts(ctx context.Context) ([]model.Product, error) {
	var rows []productRow
	if err := s.db.WithContext(ctx).Order("name asc, id asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]model.Product, len(rows))
	for i, r := range rows {
		out[i] = productFromRow(r)
	}
	return out, nil
}

func (s *Store) FindProduct(ctx context.Context, id string) (model.Product, error) {
	var row productRow
	if err := s.db.WithContext(ctx).Take(&row, "id = ?", id).Error; err != nil {
		return model.Product{}, translate(err)
	}
	return productFromRow(row), nil
}

func (s *Store) CreateProduct(ctx context.Context, p *model.Product) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	row := productToRow(*p)
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return translate(err)
	}
	p.CreatedAt, p.UpdatedAt = row.CreatedAt, row.UpdatedAt
	return nil
}

// exists distinguishes "no such row" from "row unchanged" after an UPDATE,
// since MySQL reports only changed rows as affected.
func (s *Store) exists(ctx context.Context, table any, id string) error {
	var n int64
	if err := s.db.WithContext(ctx).Model(table).Where("id = ?", id).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) UpdateProduct(ctx context.Context, p model.Product) error {
	row := productToRow(p)
	res := s.db.WithContext(ctx).Model(&productRow{ID: p.ID}).
		Select("*").Omit("id", "created_at").
		Updates(&row)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return s.exists(ctx, &productRow{}, p.ID)
	}
	return nil
}

func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&productRow{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) AdjustStock(ctx context.Context, id string, delta int) error {
	res := s.db.WithContext(ctx).Model(&productRow{}).Where("id = ?", id).
		UpdateColumns(map[string]any{
			"quantity":   gorm.Expr("GREATEST(quantity + ?, 0)", delta),
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return s.exists(ctx, &productRow{}, id)
	}
	return nil
}

func (s *Store) CreateOrder(ctx context.Context, o *model.Order) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	row := orderToRow(*o)
	// Items are inserted with the order by gorm's association handling.
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return translate(err)
	}
	o.CreatedAt, o.UpdatedAt = row.CreatedAt, row.UpdatedAt
	return nil
}

func orderedItems(db *gorm.DB) *gorm.DB { return db.Order("position asc") }

func (s *Store) FindOrder(ctx context.Context, id string) (model.Order, error) {
	var row orderRow
	err := s.db.WithContext(ctx).Preload("Items", orderedItems).Take(&row, "id = ?", id).Error
	if err != nil {
		return model.Order{}, translate(err)
	}
	return orderFromRow(row), nil
}

func (s *Store) FindOrders(ctx context.Context) ([]model.Order, error) {
	var rows []orderRow
	err := s.db.WithContext(ctx).Preload("Items", orderedItems).Order("created_at desc, id desc").Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]model.Order, len(rows))
	for i, r := range rows {
		out[i] = orderFromRow(r)
	}
	return out, nil
}

func (s *Store) UpdateOrderStatus(ctx context.Context, id string, status model.OrderStatus) error {
	res := s.db.WithContext(ctx).Model(&orderRow{}).Where("id = ?", id).
		Updates(map[string]any{"status": string(status), "updated_at": time.Now()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return s.exists(ctx, &orderRow{}, id)
	}
	return nil
}
