package events

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"go-storefront/models"
)

type Type string

const (
	OrderPlaced  Type = "order.placed"
	OrderUpdated Type = "order.updated"
)

// Event is published after the order change it describes has committed.
type Event struct {
	ID         string       `json:"id"`
	Type       Type         `json:"type"`
	OccurredAt time.Time    `json:"occurredAt"`
	Order      models.Order `json:"order"`
}

func NewOrderEvent(t Type, order *models.Order) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       t,
		OccurredAt: time.Now().UTC(),
		Order:      *order,
	}
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, event Event) error

func (f PublisherFunc) Publish(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Multi delivers to every publisher and joins their errors.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, event Event) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Nop discards events.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
