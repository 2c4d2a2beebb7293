package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type OrderStatus string

const (
	OrderProcessing OrderStatus = "processing"
	OrderShipped    OrderStatus = "shipped"
	OrderDelivered  OrderStatus = "delivered"
	OrderCancelled  OrderStatus = "cancelled"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderProcessing: {OrderShipped, OrderCancelled},
	OrderShipped:    {OrderDelivered, OrderCancelled},
	OrderDelivered:  nil,
	OrderCancelled:  nil,
}

func ParseOrderStatus(s string) (OrderStatus, error) {
	st := OrderStatus(s)
	if _, ok := orderTransitions[st]; !ok {
		return "", Errorf(ErrInvalidStatus, "invalid order status %q", s)
	}
	return st, nil
}

// CanTransition reports whether an order may move from s to next.
// Staying put is always allowed.
func (s OrderStatus) CanTransition(next OrderStatus) bool {
	if s == next {
		return true
	}
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// OrderItem freezes the product name and unit price at purchase time.
type OrderItem struct {
	ProductID primitive.ObjectID `bson:"product_id" json:"productId"`
	Name      string             `bson:"name" json:"name"`
	Quantity  int                `bson:"quantity" json:"quantity"`
	UnitPrice Money              `bson:"unit_price" json:"unitPrice"`
	Subtotal  Money              `bson:"subtotal" json:"subtotal"`
}

// Order represents a placed order. Items and TotalAmount never change after
// creation; only the two status fields do.
type Order struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OrderNumber     string             `bson:"order_number" json:"orderNumber"`
	UserID          primitive.ObjectID `bson:"user_id" json:"userId"`
	Items           []OrderItem        `bson:"items" json:"items"`
	TotalAmount     Money              `bson:"total_amount" json:"totalAmount"`
	ShippingAddress Address            `bson:"shipping_address" json:"shippingAddress"`
	PaymentMethod   PaymentMethod      `bson:"payment_method" json:"paymentMethod"`
	PaymentStatus   PaymentStatus      `bson:"payment_status" json:"paymentStatus"`
	OrderStatus     OrderStatus        `bson:"order_status" json:"orderStatus"`
	CreatedAt       time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt       time.Time          `bson:"updated_at" json:"updatedAt"`
}

func (o *Order) ContainsProduct(productID primitive.ObjectID) bool {
	for _, it := range o.Items {
		if it.ProductID == productID {
			return true
		}
	}
	return false
}
