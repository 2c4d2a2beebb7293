package services

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"go-storefront/models"
)

// Transactor runs fn as one atomic unit. Repository calls made with the ctx
// passed to fn take part in the transaction.
type Transactor interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	UpdatePassword(ctx context.Context, id primitive.ObjectID, hash string) error
}

type ProductRepository interface {
	Create(ctx context.Context, product *models.Product) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error)
	List(ctx context.Context, filter models.ProductFilter) ([]models.Product, int64, error)
	All(ctx context.Context) ([]models.Product, error)
	Update(ctx context.Context, id primitive.ObjectID, patch models.ProductPatch) (*models.Product, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	CountByCategory(ctx context.Context, categoryID primitive.ObjectID) (int64, error)
	// DecrementStock succeeds only while stock >= qty and otherwise returns
	// models.ErrInsufficientStock.
	DecrementStock(ctx context.Context, id primitive.ObjectID, qty int) error
	IncrementStock(ctx context.Context, id primitive.ObjectID, qty int) error
	SetRating(ctx context.Context, id primitive.ObjectID, rating float64, totalReviews int) error
}

type CategoryRepository interface {
	Create(ctx context.Context, category *models.Category) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Category, error)
	FindBySlug(ctx context.Context, slug string) (*models.Category, error)
	List(ctx context.Context) ([]models.Category, error)
	Update(ctx context.Context, category *models.Category) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// CartRepository mutates carts with atomic per-line updates.
type CartRepository interface {
	FindByUser(ctx context.Context, userID primitive.ObjectID) (*models.Cart, error)
	// AddItem creates the cart if needed and merges qty into an existing line.
	AddItem(ctx context.Context, userID, productID primitive.ObjectID, qty int) (*models.Cart, error)
	SetQuantity(ctx context.Context, userID, productID primitive.ObjectID, qty int) (*models.Cart, error)
	RemoveItem(ctx context.Context, userID, productID primitive.ObjectID) (*models.Cart, error)
	DeleteByUser(ctx context.Context, userID primitive.ObjectID) error
}

type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error)
	ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Order, error)
	ListAll(ctx context.Context) ([]models.Order, error)
	UpdateStatus(ctx context.Context, id primitive.ObjectID, orderStatus models.OrderStatus, paymentStatus models.PaymentStatus) (*models.Order, error)
	// HasPurchased reports whether the user has a non-cancelled order
	// containing the product.
	HasPurchased(ctx context.Context, userID, productID primitive.ObjectID) (bool, error)
}

type ReviewRepository interface {
	Create(ctx context.Context, review *models.Review) error
	ListByProduct(ctx context.Context, productID primitive.ObjectID) ([]models.Review, error)
	Exists(ctx context.Context, userID, productID primitive.ObjectID) (bool, error)
}

// TokenLedger records consumed single-use token ids until they expire.
type TokenLedger interface {
	// Consume returns models.ErrTokenUsed if jti was consumed before.
	Consume(ctx context.Context, jti string, expiresAt time.Time) error
	// Release forgets jti so it can be consumed again.
	Release(ctx context.Context, jti string) error
}

// Store bundles the repositories of one backend.
type Store interface {
	Transactor
	Users() UserRepository
	Products() ProductRepository
	Categories() CategoryRepository
	Carts() CartRepository
	Orders() OrderRepository
	Reviews() ReviewRepository
}
