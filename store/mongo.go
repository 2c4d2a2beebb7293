package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"go-storefront/services"
)

const (
	usersCollection      = "users"
	productsCollection   = "products"
	categoriesCollection = "categories"
	cartsCollection      = "carts"
	ordersCollection     = "orders"
	reviewsCollection    = "reviews"
	usedTokensCollection = "used_tokens"
)

// Mongo is the MongoDB backend. Transactions need a replica set.
type Mongo struct {
	client *mongo.Client
	db     *mongo.Database
	tx     TxOptions
}

// Connect dials uri and pings the primary before returning.
func Connect(ctx context.Context, uri, database string, tx TxOptions) (*Mongo, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, wrap("connect mongo", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.WithoutCancel(ctx))
		return nil, wrap("ping mongo", err)
	}
	return NewMongo(client, database, tx), nil
}

func NewMongo(client *mongo.Client, database string, tx TxOptions) *Mongo {
	return &Mongo{client: client, db: client.Database(database), tx: tx}
}

func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

func (m *Mongo) Ping(ctx context.Context) error {
	if err := m.client.Ping(ctx, readpref.Primary()); err != nil {
		return wrap("ping mongo", err)
	}
	return nil
}

func (m *Mongo) Database() *mongo.Database { return m.db }

func (m *Mongo) Users() services.UserRepository {
	return &UserStore{coll: m.db.Collection(usersCollection)}
}

func (m *Mongo) Products() services.ProductRepository {
	return &ProductStore{coll: m.db.Collection(productsCollection)}
}

func (m *Mongo) Categories() services.CategoryRepository {
	return &CategoryStore{coll: m.db.Collection(categoriesCollection)}
}

func (m *Mongo) Carts() services.CartRepository {
	return &CartStore{coll: m.db.Collection(cartsCollection)}
}

func (m *Mongo) Orders() services.OrderRepository {
	return &OrderStore{coll: m.db.Collection(ordersCollection)}
}

func (m *Mongo) Reviews() services.ReviewRepository {
	return &ReviewStore{coll: m.db.Collection(reviewsCollection)}
}

func (m *Mongo) TokenLedger() *MongoTokenLedger {
	return &MongoTokenLedger{coll: m.db.Collection(usedTokensCollection)}
}

// EnsureIndexes creates the indexes the uniqueness rules rely on. It is safe
// to call on every start.
func (m *Mongo) EnsureIndexes(ctx context.Context) error {
	specs := map[string][]mongo.IndexModel{
		usersCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		cartsCollection: {
			{Keys: bson.D{{Key: "user_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		reviewsCollection: {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "product_id", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "product_id", Value: 1}, {Key: "created_at", Value: -1}}},
		},
		categoriesCollection: {
			{Keys: bson.D{{Key: "name", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "slug", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		productsCollection: {
			{Keys: bson.D{{Key: "category_id", Value: 1}, {Key: "created_at", Value: -1}}},
		},
		ordersCollection: {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "order_number", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		usedTokensCollection: {
			{Keys: bson.D{{Key: "expires_at", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(0)},
		},
	}

	for name, idx := range specs {
		if _, err := m.db.Collection(name).Indexes().CreateMany(ctx, idx); err != nil {
			return wrap(fmt.Sprintf("create indexes on %s", name), err)
		}
	}
	return nil
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}
