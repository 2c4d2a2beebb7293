package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CartItem represents an item in the cart
type CartItem struct {
	ProductID primitive.ObjectID `bson:"product_id" json:"productId"`
	Quantity  int                `bson:"quantity" json:"quantity"`
	AddedAt   time.Time          `bson:"added_at" json:"addedAt"`
}

// Cart represents a user's shopping cart. There is at most one per user.
type Cart struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    primitive.ObjectID `bson:"user_id" json:"userId"`
	Items     []CartItem         `bson:"items" json:"items"`
	CreatedAt time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updatedAt"`
}

// Item returns the line for productID, if present.
func (c *Cart) Item(productID primitive.ObjectID) (CartItem, bool) {
	for _, it := range c.Items {
		if it.ProductID == productID {
			return it, true
		}
	}
	return CartItem{}, false
}

// CartLine is a cart item resolved against the catalog.
type CartLine struct {
	ProductID primitive.ObjectID `json:"productId"`
	Quantity  int                `json:"quantity"`
	Product   *Product           `json:"product,omitempty"`
	Subtotal  Money              `json:"subtotal"`
	Available bool               `json:"available"`
}

// CartView is what clients see: resolved lines plus totals over the lines
// whose product still exists.
type CartView struct {
	ID         primitive.ObjectID `json:"id"`
	UserID     primitive.ObjectID `json:"userId"`
	Lines      []CartLine         `json:"items"`
	TotalPrice Money              `json:"totalPrice"`
	ItemCount  int                `json:"itemCount"`
	UpdatedAt  time.Time          `json:"updatedAt"`
}
