package memstore

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"go-storefront/models"
)

func TestTransactionRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := New()
	p := &models.Product{Name: "Lamp", Price: models.MoneyFromInt(10), Stock: 5}
	require.NoError(t, s.Products().Create(ctx, p))

	boom := errors.New("boom")
	err := s.WithTransaction(ctx, func(ctx context.Context) error {
		require.NoError(t, s.Products().DecrementStock(ctx, p.ID, 3))
		require.NoError(t, s.Orders().Create(ctx, &models.Order{UserID: primitive.NewObjectID()}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := s.Products().FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.Stock)

	orders, err := s.Orders().ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestNestedTransactionJoinsOuter(t *testing.T) {
	ctx := context.Background()
	s := New()
	p := &models.Product{Name: "Lamp", Stock: 2}
	require.NoError(t, s.Products().Create(ctx, p))

	err := s.WithTransaction(ctx, func(ctx context.Context) error {
		return s.WithTransaction(ctx, func(ctx context.Context) error {
			return s.Products().DecrementStock(ctx, p.ID, 1)
		})
	})
	require.NoError(t, err)

	got, err := s.Products().FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Stock)
}

func TestDecrementStockNeverNegative(t *testing.T) {
	ctx := context.Background()
	s := New()
	p := &models.Product{Name: "Lamp", Stock: 1}
	require.NoError(t, s.Products().Create(ctx, p))

	assert.ErrorIs(t, s.Products().DecrementStock(ctx, p.ID, 2), models.ErrInsufficientStock)
	assert.ErrorIs(t, s.Products().DecrementStock(ctx, primitive.NewObjectID(), 1), models.ErrProductNotFound)

	for _, qty := range []int{0, -1, math.MinInt} {
		assert.ErrorIs(t, s.Products().DecrementStock(ctx, p.ID, qty), models.ErrValidation)
	}
	got, err := s.Products().FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Stock)
}

func TestListProductsPastLastPage(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.Products().Create(ctx, &models.Product{Name: "Lamp", Stock: 1}))

	for _, page := range []int{2, math.MaxInt/50 + 1} {
		items, total, err := s.Products().List(ctx, models.ProductFilter{Page: page, PageSize: 100})
		require.NoError(t, err)
		assert.Empty(t, items)
		assert.EqualValues(t, 1, total)
	}
}

func TestCartAddMergesAndReportsMissing(t *testing.T) {
	ctx := context.Background()
	s := New()
	user, product := primitive.NewObjectID(), primitive.NewObjectID()

	_, err := s.Carts().RemoveItem(ctx, user, product)
	assert.ErrorIs(t, err, models.ErrCartNotFound)

	_, err = s.Carts().AddItem(ctx, user, product, 1)
	require.NoError(t, err)
	cart, err := s.Carts().AddItem(ctx, user, product, 2)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 3, cart.Items[0].Quantity)

	_, err = s.Carts().SetQuantity(ctx, user, primitive.NewObjectID(), 1)
	assert.ErrorIs(t, err, models.ErrCartItemNotFound)

	cart, err = s.Carts().RemoveItem(ctx, user, product)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
}

func TestReturnedValuesAreCopies(t *testing.T) {
	ctx := context.Background()
	s := New()
	user, product := primitive.NewObjectID(), primitive.NewObjectID()

	cart, err := s.Carts().AddItem(ctx, user, product, 1)
	require.NoError(t, err)
	cart.Items[0].Quantity = 99

	again, err := s.Carts().FindByUser(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, 1, again.Items[0].Quantity)
}

func TestTokenLedgerRejectsReuse(t *testing.T) {
	ctx := context.Background()
	s := New()
	exp := s.now().Add(time.Minute)

	require.NoError(t, s.TokenLedger().Consume(ctx, "jti-1", exp))
	assert.ErrorIs(t, s.TokenLedger().Consume(ctx, "jti-1", exp), models.ErrTokenUsed)

	require.NoError(t, s.TokenLedger().Release(ctx, "jti-1"))
	require.NoError(t, s.TokenLedger().Consume(ctx, "jti-1", exp))
}
