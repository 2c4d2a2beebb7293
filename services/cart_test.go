package services_test

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"go-storefront/models"
)

func TestCartAddMergesLines(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	p := env.product(t, "Lamp", "10", 5)
	userID := primitive.NewObjectID()

	_, err := env.carts.AddItem(ctx, userID, p.ID, 1)
	require.NoError(t, err)
	view, err := env.carts.AddItem(ctx, userID, p.ID, 2)
	require.NoError(t, err)

	require.Len(t, view.Lines, 1)
	assert.Equal(t, 3, view.Lines[0].Quantity)
	assert.Equal(t, "30", view.TotalPrice.String())
	assert.Equal(t, 1, view.ItemCount)
}

func TestCartAddRejects(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	p := env.product(t, "Lamp", "10", 2)
	userID := primitive.NewObjectID()

	_, err := env.carts.AddItem(ctx, userID, p.ID, 0)
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = env.carts.AddItem(ctx, userID, primitive.NewObjectID(), 1)
	assert.ErrorIs(t, err, models.ErrProductNotFound)

	_, err = env.carts.AddItem(ctx, userID, p.ID, 3)
	assert.ErrorIs(t, err, models.ErrInsufficientStock)

	_, err = env.carts.AddItem(ctx, userID, p.ID, 2)
	require.NoError(t, err)
	_, err = env.carts.AddItem(ctx, userID, p.ID, 1)
	assert.ErrorIs(t, err, models.ErrInsufficientStock, "merged quantity exceeds stock")
}

func TestCartUpdateAndRemoveReportMissing(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	a := env.product(t, "Lamp", "10", 5)
	b := env.product(t, "Rug", "40", 5)
	userID := primitive.NewObjectID()

	_, err := env.carts.UpdateQuantity(ctx, userID, a.ID, 1)
	assert.ErrorIs(t, err, models.ErrCartNotFound)
	_, err = env.carts.RemoveItem(ctx, userID, a.ID)
	assert.ErrorIs(t, err, models.ErrCartNotFound)
	_, err = env.carts.GetCart(ctx, userID)
	assert.ErrorIs(t, err, models.ErrCartNotFound)

	_, err = env.carts.AddItem(ctx, userID, a.ID, 1)
	require.NoError(t, err)

	_, err = env.carts.UpdateQuantity(ctx, userID, b.ID, 1)
	assert.ErrorIs(t, err, models.ErrCartItemNotFound)
	_, err = env.carts.RemoveItem(ctx, userID, b.ID)
	assert.ErrorIs(t, err, models.ErrCartItemNotFound)

	_, err = env.carts.UpdateQuantity(ctx, userID, a.ID, 6)
	assert.ErrorIs(t, err, models.ErrInsufficientStock)

	view, err := env.carts.UpdateQuantity(ctx, userID, a.ID, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, view.Lines[0].Quantity)
}

func TestCartViewSkipsVanishedProducts(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	a := env.product(t, "Lamp", "10", 5)
	b := env.product(t, "Rug", "40", 5)
	userID := primitive.NewObjectID()

	_, err := env.carts.AddItem(ctx, userID, a.ID, 2)
	require.NoError(t, err)
	_, err = env.carts.AddItem(ctx, userID, b.ID, 1)
	require.NoError(t, err)
	require.NoError(t, env.catalog.DeleteProduct(ctx, b.ID))

	view, err := env.carts.GetCart(ctx, userID)
	require.NoError(t, err)
	require.Len(t, view.Lines, 2)
	assert.True(t, view.Lines[0].Available)
	assert.Equal(t, "Lamp", view.Lines[0].Product.Name)
	assert.False(t, view.Lines[1].Available)
	assert.Nil(t, view.Lines[1].Product)
	assert.Equal(t, "20", view.TotalPrice.String())
}

func TestCartAddRejectsOverflowingMerge(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	p := env.product(t, "Lamp", "10", 5)
	userID := primitive.NewObjectID()

	_, err := env.carts.AddItem(ctx, userID, p.ID, 1)
	require.NoError(t, err)

	_, err = env.carts.AddItem(ctx, userID, p.ID, math.MaxInt)
	var stockErr *models.StockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, math.MaxInt, stockErr.Requested)
	assert.Equal(t, 5, stockErr.Available)

	cart, err := env.store.Carts().FindByUser(ctx, userID)
	require.NoError(t, err)
	line, ok := cart.Item(p.ID)
	require.True(t, ok)
	assert.Equal(t, 1, line.Quantity)

	view, err := env.carts.AddItem(ctx, userID, p.ID, 4)
	require.NoError(t, err)
	require.Len(t, view.Lines, 1)
	assert.Equal(t, 5, view.Lines[0].Quantity)
	assert.Equal(t, "50", view.TotalPrice.String())
}
