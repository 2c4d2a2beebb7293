package events

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	kafkaGo "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"go-storefront/models"
	"go-storefront/utils"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type recorder struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (r *recorder) Publish(_ context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return r.err
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func sampleOrder() *models.Order {
	return &models.Order{
		ID:            primitive.NewObjectID(),
		OrderNumber:   "ORD-20240101120000-0a1b2c3d",
		UserID:        primitive.NewObjectID(),
		TotalAmount:   models.MoneyFromInt(25),
		PaymentMethod: models.PaymentCreditCard,
		PaymentStatus: models.PaymentPending,
		OrderStatus:   models.OrderProcessing,
	}
}

func TestMultiDeliversToAllAndJoinsErrors(t *testing.T) {
	failing := &recorder{err: errors.New("broker down")}
	ok := &recorder{}

	err := Multi{failing, ok}.Publish(context.Background(), NewOrderEvent(OrderPlaced, sampleOrder()))

	assert.ErrorContains(t, err, "broker down")
	assert.Equal(t, 1, failing.count())
	assert.Equal(t, 1, ok.count())
}

func TestAsyncOutlivesRequestContext(t *testing.T) {
	rec := &recorder{}
	async := NewAsync(rec, discard, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, async.Publish(ctx, NewOrderEvent(OrderPlaced, sampleOrder())))
	cancel()
	async.Wait()

	assert.Equal(t, 1, rec.count())
}

type fakeReader struct {
	msgs   []kafkaGo.Message
	cancel context.CancelFunc
}

func (f *fakeReader) ReadMessage(ctx context.Context) (kafkaGo.Message, error) {
	if len(f.msgs) == 0 {
		f.cancel()
		<-ctx.Done()
		return kafkaGo.Message{}, ctx.Err()
	}
	m := f.msgs[0]
	f.msgs = f.msgs[1:]
	return m, nil
}

func TestConsumeDecodesAndSkipsBadMessages(t *testing.T) {
	event := NewOrderEvent(OrderUpdated, sampleOrder())
	payload, err := json.Marshal(event)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	reader := &fakeReader{
		msgs:   []kafkaGo.Message{{Value: []byte("{not json")}, {Value: payload}},
		cancel: cancel,
	}
	rec := &recorder{}

	Consume(ctx, reader, discard, rec)

	require.Equal(t, 1, rec.count())
	got := rec.events[0]
	assert.Equal(t, event.ID, got.ID)
	assert.Equal(t, OrderUpdated, got.Type)
	assert.Equal(t, event.Order.ID, got.Order.ID)
	assert.True(t, got.Order.TotalAmount.Equal(event.Order.TotalAmount.Decimal))
}

type staticUsers map[primitive.ObjectID]*models.User

func (s staticUsers) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	if u, ok := s[id]; ok {
		return u, nil
	}
	return nil, models.ErrUserNotFound
}

type captureMailer struct {
	sent []utils.Message
}

func (c *captureMailer) Send(_ context.Context, msg utils.Message) error {
	c.sent = append(c.sent, msg)
	return nil
}

func TestNotifierEmailsOrderOwner(t *testing.T) {
	order := sampleOrder()
	users := staticUsers{order.UserID: {ID: order.UserID, Name: "Ada", Email: "ada@example.com"}}
	mailer := &captureMailer{}
	n := NewNotifier(users, mailer)

	require.NoError(t, n.Publish(context.Background(), NewOrderEvent(OrderPlaced, order)))
	order.OrderStatus = models.OrderShipped
	require.NoError(t, n.Publish(context.Background(), NewOrderEvent(OrderUpdated, order)))

	require.Len(t, mailer.sent, 2)
	assert.Equal(t, "ada@example.com", mailer.sent[0].To)
	assert.Equal(t, "Order Confirmation", mailer.sent[0].Subject)
	assert.Contains(t, mailer.sent[1].Text, "shipped")
}

func TestNotifierUnknownUser(t *testing.T) {
	n := NewNotifier(staticUsers{}, &captureMailer{})
	err := n.Publish(context.Background(), NewOrderEvent(OrderPlaced, sampleOrder()))
	assert.ErrorIs(t, err, models.ErrUserNotFound)
}
