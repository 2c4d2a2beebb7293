package events

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"go-storefront/models"
	"go-storefront/utils"
)

type UserLookup interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
}

// Notifier emails the order owner about placed and updated orders.
type Notifier struct {
	users  UserLookup
	mailer utils.Mailer
}

func NewNotifier(users UserLookup, mailer utils.Mailer) *Notifier {
	return &Notifier{users: users, mailer: mailer}
}

func (n *Notifier) Publish(ctx context.Context, event Event) error {
	user, err := n.users.FindByID(ctx, event.Order.UserID)
	if err != nil {
		return fmt.Errorf("notify %s: %w", event.Type, err)
	}

	var msg utils.Message
	switch event.Type {
	case OrderPlaced:
		msg = utils.OrderConfirmationMessage(user.Email, user.Name, &event.Order)
	case OrderUpdated:
		msg = utils.OrderStatusMessage(user.Email, user.Name, &event.Order)
	default:
		return nil
	}

	if err := n.mailer.Send(ctx, msg); err != nil {
		return fmt.Errorf("notify %s: %w", event.Type, err)
	}
	return nil
}
