package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"go-storefront/events"
	"go-storefront/models"
)

type PlaceOrderInput struct {
	ShippingAddress models.Address       `json:"shippingAddress"`
	PaymentMethod   models.PaymentMethod `json:"paymentMethod"`
}

// StatusUpdate carries the raw status strings of an admin update; nil
// leaves the field unchanged.
type StatusUpdate struct {
	OrderStatus   *string `json:"orderStatus"`
	PaymentStatus *string `json:"paymentStatus"`
}

// OrderService turns carts into orders and drives order status.
type OrderService struct {
	tx        Transactor
	carts     CartRepository
	products  ProductRepository
	orders    OrderRepository
	publisher events.Publisher
	logger    *slog.Logger
	now       func() time.Time
}

func NewOrderService(tx Transactor, carts CartRepository, products ProductRepository, orders OrderRepository, publisher events.Publisher, logger *slog.Logger) *OrderService {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &OrderService{
		tx:        tx,
		carts:     carts,
		products:  products,
		orders:    orders,
		publisher: publisher,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// PlaceOrder converts the caller's cart into an order. Stock checks, stock
// decrements, order creation and cart removal commit together or not at
// all.
func (s *OrderService) PlaceOrder(ctx context.Context, userID primitive.ObjectID, in PlaceOrderInput) (*models.Order, error) {
	addr := in.ShippingAddress.Trimmed()
	if err := addr.ValidateShipping(); err != nil {
		return nil, err
	}
	if in.PaymentMethod == "" {
		return nil, models.Invalid("payment method is required")
	}
	if !in.PaymentMethod.Valid() {
		return nil, models.Invalid("invalid payment method %q", in.PaymentMethod)
	}

	var order *models.Order
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		cart, err := s.carts.FindByUser(ctx, userID)
		if err != nil {
			if errors.Is(err, models.ErrCartNotFound) {
				return models.ErrEmptyCart
			}
			return err
		}
		if len(cart.Items) == 0 {
			return models.ErrEmptyCart
		}

		for _, item := range cart.Items {
			if item.Quantity < 1 {
				return models.Invalid("cart line for product %s has invalid quantity %d", item.ProductID.Hex(), item.Quantity)
			}
		}

		products := make([]*models.Product, len(cart.Items))
		for i, item := range cart.Items {
			p, err := s.products.FindByID(ctx, item.ProductID)
			if err != nil {
				if errors.Is(err, models.ErrProductNotFound) {
					return fmt.Errorf("%w: %s", models.ErrProductNotFound, item.ProductID.Hex())
				}
				return err
			}
			products[i] = p
		}

		// Every line is checked before any stock moves.
		for i, item := range cart.Items {
			if products[i].Stock < item.Quantity {
				return stockError(products[i], item.Quantity)
			}
		}

		now := s.now()
		o := &models.Order{
			ID:              primitive.NewObjectID(),
			OrderNumber:     newOrderNumber(now),
			UserID:          userID,
			Items:           make([]models.OrderItem, 0, len(cart.Items)),
			TotalAmount:     models.MoneyFromInt(0),
			ShippingAddress: addr,
			PaymentMethod:   in.PaymentMethod,
			PaymentStatus:   models.PaymentPending,
			OrderStatus:     models.OrderProcessing,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		for i, item := range cart.Items {
			line := models.OrderItem{
				ProductID: item.ProductID,
				Name:      products[i].Name,
				Quantity:  item.Quantity,
				UnitPrice: products[i].Price,
				Subtotal:  products[i].Price.Times(item.Quantity),
			}
			o.Items = append(o.Items, line)
			o.TotalAmount = o.TotalAmount.Plus(line.Subtotal)
		}

		for i, item := range cart.Items {
			if err := s.products.DecrementStock(ctx, item.ProductID, item.Quantity); err != nil {
				if errors.Is(err, models.ErrInsufficientStock) {
					return stockError(products[i], item.Quantity)
				}
				return err
			}
		}
		if err := s.orders.Create(ctx, o); err != nil {
			return err
		}
		if err := s.carts.DeleteByUser(ctx, userID); err != nil {
			return err
		}
		order = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "order placed", "order_id", order.ID.Hex(), "order_number", order.OrderNumber, "user_id", userID.Hex(), "total", order.TotalAmount.String())
	s.publish(ctx, events.OrderPlaced, order)
	return order, nil
}

func newOrderNumber(t time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("ORD-%s-%s", t.Format("20060102150405"), suffix)
}

// UpdateOrderStatus applies an admin status change. Moves outside the
// transition graph are rejected and cancelling puts the stock back.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, orderID primitive.ObjectID, in StatusUpdate) (*models.Order, error) {
	if in.OrderStatus == nil && in.PaymentStatus == nil {
		return nil, models.Errorf(models.ErrInvalidStatus, "orderStatus or paymentStatus is required")
	}

	var nextOrder *models.OrderStatus
	if in.OrderStatus != nil {
		st, err := models.ParseOrderStatus(*in.OrderStatus)
		if err != nil {
			return nil, err
		}
		nextOrder = &st
	}
	var nextPayment *models.PaymentStatus
	if in.PaymentStatus != nil {
		ps, err := models.ParsePaymentStatus(*in.PaymentStatus)
		if err != nil {
			return nil, err
		}
		nextPayment = &ps
	}

	var (
		updated *models.Order
		changed bool
	)
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		current, err := s.orders.FindByID(ctx, orderID)
		if err != nil {
			return err
		}

		orderStatus, paymentStatus := current.OrderStatus, current.PaymentStatus
		if nextOrder != nil {
			if !orderStatus.CanTransition(*nextOrder) {
				return models.Errorf(models.ErrInvalidTransition, "cannot change order status from %s to %s", orderStatus, *nextOrder)
			}
			orderStatus = *nextOrder
		}
		if nextPayment != nil {
			if !paymentStatus.CanTransition(*nextPayment) {
				return models.Errorf(models.ErrInvalidTransition, "cannot change payment status from %s to %s", paymentStatus, *nextPayment)
			}
			paymentStatus = *nextPayment
		}

		if orderStatus == current.OrderStatus && paymentStatus == current.PaymentStatus {
			updated = current
			return nil
		}

		if orderStatus == models.OrderCancelled && current.OrderStatus != models.OrderCancelled {
			for _, item := range current.Items {
				err := s.products.IncrementStock(ctx, item.ProductID, item.Quantity)
				if err != nil && !errors.Is(err, models.ErrProductNotFound) {
					return err
				}
			}
		}

		updated, err = s.orders.UpdateStatus(ctx, orderID, orderStatus, paymentStatus)
		if err != nil {
			return err
		}
		changed = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if changed {
		s.logger.InfoContext(ctx, "order status updated", "order_id", orderID.Hex(), "order_status", updated.OrderStatus, "payment_status", updated.PaymentStatus)
		s.publish(ctx, events.OrderUpdated, updated)
	}
	return updated, nil
}

// GetUserOrders lists the user's orders, newest first. No orders is an
// empty list, not an error.
func (s *OrderService) GetUserOrders(ctx context.Context, userID primitive.ObjectID) ([]models.Order, error) {
	return s.orders.ListByUser(ctx, userID)
}

func (s *OrderService) GetAllOrders(ctx context.Context) ([]models.Order, error) {
	return s.orders.ListAll(ctx)
}

// GetOrder returns the order to its owner or to an admin. Other callers get
// the same not-found error as for a missing order.
func (s *OrderService) GetOrder(ctx context.Context, orderID, callerID primitive.ObjectID, isAdmin bool) (*models.Order, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !isAdmin && order.UserID != callerID {
		return nil, models.ErrOrderNotFound
	}
	return order, nil
}

func (s *OrderService) publish(ctx context.Context, t events.Type, order *models.Order) {
	if err := s.publisher.Publish(ctx, events.NewOrderEvent(t, order)); err != nil {
		s.logger.WarnContext(ctx, "publish order event failed", "type", t, "order_id", order.ID.Hex(), "err", err)
	}
}
