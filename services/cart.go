package services

import (
	"context"
	"errors"
	"math"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"go-storefront/models"
)

// CartService checks stock at add time only as a courtesy; PlaceOrder
// repeats the check authoritatively.
type CartService struct {
	carts    CartRepository
	products ProductRepository
}

func NewCartService(carts CartRepository, products ProductRepository) *CartService {
	return &CartService{carts: carts, products: products}
}

func (s *CartService) AddItem(ctx context.Context, userID, productID primitive.ObjectID, qty int) (*models.CartView, error) {
	if productID.IsZero() {
		return nil, models.Invalid("product ID and quantity are required")
	}
	if qty <= 0 {
		return nil, models.Invalid("quantity must be greater than 0")
	}

	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	held := 0
	cart, err := s.carts.FindByUser(ctx, userID)
	switch {
	case err == nil:
		if line, ok := cart.Item(productID); ok {
			held = line.Quantity
		}
	case !errors.Is(err, models.ErrCartNotFound):
		return nil, err
	}
	// held+qty can overflow.
	if qty > product.Stock || held > product.Stock-qty {
		return nil, stockError(product, mergedQuantity(held, qty))
	}

	cart, err = s.carts.AddItem(ctx, userID, productID, qty)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, cart)
}

// mergedQuantity saturates at math.MaxInt.
func mergedQuantity(held, qty int) int {
	if held > math.MaxInt-qty {
		return math.MaxInt
	}
	return held + qty
}

func (s *CartService) UpdateQuantity(ctx context.Context, userID, productID primitive.ObjectID, qty int) (*models.CartView, error) {
	if productID.IsZero() {
		return nil, models.Invalid("product ID and quantity are required")
	}
	if qty <= 0 {
		return nil, models.Invalid("quantity must be greater than 0")
	}

	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product.Stock < qty {
		return nil, stockError(product, qty)
	}

	cart, err := s.carts.SetQuantity(ctx, userID, productID, qty)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, cart)
}

func (s *CartService) RemoveItem(ctx context.Context, userID, productID primitive.ObjectID) (*models.CartView, error) {
	if productID.IsZero() {
		return nil, models.Invalid("product ID is required")
	}
	cart, err := s.carts.RemoveItem(ctx, userID, productID)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, cart)
}

func (s *CartService) GetCart(ctx context.Context, userID primitive.ObjectID) (*models.CartView, error) {
	cart, err := s.carts.FindByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, cart)
}

// view resolves each line against the catalog. Lines whose product is gone
// stay visible but do not count towards the total.
func (s *CartService) view(ctx context.Context, cart *models.Cart) (*models.CartView, error) {
	v := &models.CartView{
		ID:         cart.ID,
		UserID:     cart.UserID,
		Lines:      make([]models.CartLine, 0, len(cart.Items)),
		TotalPrice: models.MoneyFromInt(0),
		ItemCount:  len(cart.Items),
		UpdatedAt:  cart.UpdatedAt,
	}
	for _, item := range cart.Items {
		line := models.CartLine{ProductID: item.ProductID, Quantity: item.Quantity, Subtotal: models.MoneyFromInt(0)}
		product, err := s.products.FindByID(ctx, item.ProductID)
		switch {
		case err == nil:
			line.Product = product
			line.Available = true
			line.Subtotal = product.Price.Times(item.Quantity)
			v.TotalPrice = v.TotalPrice.Plus(line.Subtotal)
		case !errors.Is(err, models.ErrProductNotFound):
			return nil, err
		}
		v.Lines = append(v.Lines, line)
	}
	return v, nil
}

func stockError(p *models.Product, requested int) error {
	return &models.StockError{ProductID: p.ID, Name: p.Name, Requested: requested, Available: p.Stock}
}
