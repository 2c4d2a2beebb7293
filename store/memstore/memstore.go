// Package memstore is an in-process backend. Transactions are serialized
// behind one mutex and roll back by restoring a snapshot, which makes it a
// convenient stand-in for MongoDB in tests and local runs.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"go-storefront/models"
	"go-storefront/services"
)

type txKey struct{}

type Store struct {
	mu   sync.Mutex
	data *dataset
	now  func() time.Time
}

type dataset struct {
	users      map[primitive.ObjectID]models.User
	products   map[primitive.ObjectID]models.Product
	categories map[primitive.ObjectID]models.Category
	carts      map[primitive.ObjectID]models.Cart
	orders     map[primitive.ObjectID]models.Order
	reviews    map[primitive.ObjectID]models.Review
	tokens     map[string]time.Time
}

func New() *Store {
	return &Store{
		data: &dataset{
			users:      map[primitive.ObjectID]models.User{},
			products:   map[primitive.ObjectID]models.Product{},
			categories: map[primitive.ObjectID]models.Category{},
			carts:      map[primitive.ObjectID]models.Cart{},
			orders:     map[primitive.ObjectID]models.Order{},
			reviews:    map[primitive.ObjectID]models.Review{},
			tokens:     map[string]time.Time{},
		},
		now: func() time.Time { return time.Now().UTC() },
	}
}

// WithTransaction holds the store lock for the whole of fn. Nested calls
// join the outer transaction.
func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.inTx(ctx) {
		return fn(ctx)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	if err := fn(context.WithValue(ctx, txKey{}, s)); err != nil {
		s.data = snapshot
		return err
	}
	return nil
}

func (s *Store) inTx(ctx context.Context) bool {
	owner, _ := ctx.Value(txKey{}).(*Store)
	return owner == s
}

// lock acquires the store mutex unless ctx already belongs to a transaction
// on this store.
func (s *Store) lock(ctx context.Context) func() {
	if s.inTx(ctx) {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *Store) Users() services.UserRepository { return &userRepo{s} }
func (s *Store) Products() services.ProductRepository { return &productRepo{s} }
func (s *Store) Categories() services.CategoryRepository { return &categoryRepo{s} }
func (s *Store) Carts() services.CartRepository { return &cartRepo{s} }
func (s *Store) Orders() services.OrderRepository { return &orderRepo{s} }
func (s *Store) Reviews() services.ReviewRepository { return &reviewRepo{s} }
func (s *Store) TokenLedger() services.TokenLedger { return &tokenLedger{s} }

// Ping always succeeds unless ctx is done.
func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

func (d *dataset) clone() *dataset {
	c := &dataset{
		users:      make(map[primitive.ObjectID]models.User, len(d.users)),
		products:   make(map[primitive.ObjectID]models.Product, len(d.products)),
		categories: make(map[primitive.ObjectID]models.Category, len(d.categories)),
		carts:      make(map[primitive.ObjectID]models.Cart, len(d.carts)),
		orders:     make(map[primitive.ObjectID]models.Order, len(d.orders)),
		reviews:    make(map[primitive.ObjectID]models.Review, len(d.reviews)),
		tokens:     make(map[string]time.Time, len(d.tokens)),
	}
	for k, v := range d.users {
		c.users[k] = v
	}
	for k, v := range d.products {
		c.products[k] = copyProduct(v)
	}
	for k, v := range d.categories {
		c.categories[k] = v
	}
	for k, v := range d.carts {
		c.carts[k] = copyCart(v)
	}
	for k, v := range d.orders {
		c.orders[k] = copyOrder(v)
	}
	for k, v := range d.reviews {
		c.reviews[k] = v
	}
	for k, v := range d.tokens {
		c.tokens[k] = v
	}
	return c
}

func copyProduct(p models.Product) models.Product {
	p.Images = append([]string{}, p.Images...)
	return p
}

func copyCart(c models.Cart) models.Cart {
	c.Items = append([]models.CartItem{}, c.Items...)
	return c
}

func copyOrder(o models.Order) models.Order {
	o.Items = append([]models.OrderItem{}, o.Items...)
	return o
}

// newestFirst orders by creation time, then id, both descending.
func newestFirst(aTime, bTime time.Time, aID, bID primitive.ObjectID) bool {
	if !aTime.Equal(bTime) {
		return aTime.After(bTime)
	}
	return aID.Hex() > bID.Hex()
}

func sortOrders(orders []models.Order) {
	sort.Slice(orders, func(i, j int) bool {
		return newestFirst(orders[i].CreatedAt, orders[j].CreatedAt, orders[i].ID, orders[j].ID)
	})
}
