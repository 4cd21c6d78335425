// Package mongostore implements store.Store on MongoDB.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/fairyhunter13/storefront-api/internal/model"
	"github.com/fairyhunter13/storefront-api/internal/store"
)

const (
	colUsers      = "users"
	colCategories = "categories"
	colProducts   = "products"
	colOrders     = "orders"
)

// Store is a store.Store backed by one MongoDB database.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
	now    func() time.Time
}

var _ store.Store = (*Store)(nil)

// New connects to uri, verifies the connection and ensures indexes on database.
func New(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	s := &Store{client: client, db: client.Database(database), now: time.Now}
	if err := s.Ping(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo indexes: %w", err)
	}
	return s, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	unique := options.Index().SetUnique(true)
	if _, err := s.db.Collection(colUsers).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "email", Value: 1}}, Options: unique,
	}); err != nil {
		return err
	}
	if _, err := s.db.Collection(colCategories).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "name_key", Value: 1}}, Options: unique,
	}); err != nil {
		return err
	}
	if _, err := s.db.Collection(colProducts).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "name", Value: 1}, {Key: "_id", Value: 1}},
	}); err != nil {
		return err
	}
	_, err := s.db.Collection(colOrders).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "created_at", Value: -1}},
	})
	return err
}

// Drop removes the whole database. Used by tests.
func (s *Store) Drop(ctx context.Context) error { return s.db.Drop(ctx) }

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *Store) Close(ctx context.Context) error { return s.client.Disconnect(ctx) }

func notFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return store.ErrNotFound
	}
	return err
}

func insertedHex(res *mongo.InsertOneResult) string {
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		return oid.Hex()
	}
	return ""
}

func (s *Store) CreateUser(ctx context.Context, u *model.User) error {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = s.now()
	}
	u.Email = model.NormalizeEmail(u.Email)
	doc := userDoc{
		Name:      u.Name,
		Email:     u.Email,
		Password:  u.PasswordHash,
		IsAdmin:   u.IsAdmin,
		CreatedAt: u.CreatedAt,
	}
	res, err := s.db.Collection(colUsers).InsertOne(ctx, doc)
	if mongo.IsDuplicateKeyError(err) {
		return store.ErrDuplicate
	}
	if err != nil {
		return err
	}
	u.ID = insertedHex(res)
	return nil
}

func (s *Store) findUser(ctx context.Context, filter bson.M) (model.User, error) {
	var d userDoc
	if err := s.db.Collection(colUsers).FindOne(ctx, filter).Decode(&d); err != nil {
		return model.User{}, notFound(err)
	}
	return userFromDoc(d), nil
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (model.User, error) {
	return s.findUser(ctx, bson.M{"email": model.NormalizeEmail(email)})
}

func (s *Store) FindUserByID(ctx context.Context, id string) (model.User, error) {
	oid, ok := objectID(id)
	if !ok {
		return model.User{}, store.ErrNotFound
	}
	return s.findUser(ctx, bson.M{"_id": oid})
}

func (s *Store) ListCategories(ctx context.Context) ([]model.Category, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.db.Collection(colCategories).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	var docs []categoryDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]model.Category, len(docs))
	for i, d := range docs {
		out[i] = categoryFromDoc(d)
	}
	return out, nil
}

func (s *Store) FindCategory(ctx context.Context, idOrName string) (model.Category, error) {
	col := s.db.Collection(colCategories)
	var d categoryDoc
	if oid, ok := objectID(idOrName); ok {
		err := col.FindOne(ctx, bson.M{"_id": oid}).Decode(&d)
		if err == nil {
			return categoryFromDoc(d), nil
		}
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return model.Category{}, err
		}
	}
	if err := col.FindOne(ctx, bson.M{"name_key": model.NameKey(idOrName)}).Decode(&d); err != nil {
		return model.Category{}, notFound(err)
	}
	return categoryFromDoc(d), nil
}

func (s *Store) CreateCategory(ctx context.Context, c *model.Category) error {
	doc := categoryDoc{Name: c.Name, NameKey: model.NameKey(c.Name), Description: c.Description}
	res, err := s.db.Collection(colCategories).InsertOne(ctx, doc)
	if mongo.IsDuplicateKeyError(err) {
		return store.ErrDuplicate
	}
	if err != nil {
		return err
	}
	c.ID = insertedHex(res)
	return nil
}

func (s *Store) ListProducts(ctx context.Context) ([]model.Product, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.db.Collection(colProducts).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	var docs []productDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]model.Product, len(docs))
	for i, d := range docs {
		out[i] = productFromDoc(d)
	}
	return out, nil
}

func (s *Store) FindProduct(ctx context.Context, id string) (model.Product, error) {
	oid, ok := objectID(id)
	if !ok {
		return model.Product{}, store.ErrNotFound
	}
	var d productDoc
	if err := s.db.Collection(colProducts).FindOne(ctx, bson.M{"_id": oid}).Decode(&d); err != nil {
		return model.Product{}, notFound(err)
	}
	return productFromDoc(d), nil
}

func (s *Store) CreateProduct(ctx context.Context, p *model.Product) error {
	now := s.now().UTC().Truncate(time.Millisecond)
	p.CreatedAt, p.UpdatedAt = now, now
	doc, err := productToDoc(*p)
	if err != nil {
		return err
	}
	res, err := s.db.Collection(colProducts).InsertOne(ctx, doc)
	if err != nil {
		return err
	}
	p.ID = insertedHex(res)
	return nil
}

func (s *Store) UpdateProduct(ctx context.Context, p model.Product) error {
	oid, ok := objectID(p.ID)
	if !ok {
		return store.ErrNotFound
	}
	doc, err := productToDoc(p)
	if err != nil {
		return err
	}
	set := bson.M{
		"name":             doc.Name,
		"description":      doc.Description,
		"price":            doc.Price,
		"quantity":         doc.Quantity,
		"cost_price":       doc.CostPrice,
		"category_id":      doc.CategoryID,
		"cpu":              doc.CPU,
		"ram":              doc.RAM,
		"storage":          doc.Storage,
		"graphics":         doc.Graphics,
		"screen_size":      doc.ScreenSize,
		"operating_system": doc.OperatingSystem,
		"weight":           doc.Weight,
		"battery":          doc.Battery,
		"images":           doc.Images,
		"updated_at":       s.now().UTC(),
	}
	res, err := s.db.Collection(colProducts).UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	oid, ok := objectID(id)
	if !ok {
		return store.ErrNotFound
	}
	res, err := s.db.Collection(colProducts).DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) AdjustStock(ctx context.Context, id string, delta int) error {
	oid, ok := objectID(id)
	if !ok {
		return store.ErrNotFound
	}
	// Pipeline update keeps the clamp atomic on the server.
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "quantity", Value: bson.D{{Key: "$max", Value: bson.A{
				0,
				bson.D{{Key: "$add", Value: bson.A{"$quantity", delta}}},
			}}}},
			{Key: "updated_at", Value: s.now().UTC()},
		}}},
	}
	res, err := s.db.Collection(colProducts).UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) CreateOrder(ctx context.Context, o *model.Order) error {
	now := s.now().UTC().Truncate(time.Millisecond)
	if o.CreatedAt.IsZero() {
		o.CreatedAt = now
	}
	o.UpdatedAt = now
	doc, err := orderToDoc(*o)
	if err != nil {
		return err
	}
	res, err := s.db.Collection(colOrders).InsertOne(ctx, doc)
	if err != nil {
		return err
	}
	o.ID = insertedHex(res)
	return nil
}

func (s *Store) FindOrder(ctx context.Context, id string) (model.Order, error) {
	oid, ok := objectID(id)
	if !ok {
		return model.Order{}, store.ErrNotFound
	}
	var d orderDoc
	if err := s.db.Collection(colOrders).FindOne(ctx, bson.M{"_id": oid}).Decode(&d); err != nil {
		return model.Order{}, notFound(err)
	}
	return orderFromDoc(d), nil
}

func (s *Store) FindOrders(ctx context.Context) ([]model.Order, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := s.db.Collection(colOrders).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	var docs []orderDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]model.Order, len(docs))
	for i, d := range docs {
		out[i] = orderFromDoc(d)
	}
	return out, nil
}

func (s *Store) UpdateOrderStatus(ctx context.Context, id string, status model.OrderStatus) error {
	oid, ok := objectID(id)
	if !ok {
		return store.ErrNotFound
	}
	update := bson.M{"$set": bson.M{"status": string(status), "updated_at": s.now().UTC()}}
	res, err := s.db.Collection(colOrders).UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}
