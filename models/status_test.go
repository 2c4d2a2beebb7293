package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOrderStatus(t *testing.T) {
	st, err := ParseOrderStatus("shipped")
	require.NoError(t, err)
	assert.Equal(t, OrderShipped, st)

	_, err = ParseOrderStatus("lost")
	assert.ErrorIs(t, err, ErrInvalidStatus)

	_, err = ParsePaymentStatus("refunded")
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestOrderStatusTransitions(t *testing.T) {
	allowed := [][2]OrderStatus{
		{OrderProcessing, OrderShipped},
		{OrderProcessing, OrderCancelled},
		{OrderShipped, OrderDelivered},
		{OrderShipped, OrderCancelled},
		{OrderDelivered, OrderDelivered},
	}
	for _, tr := range allowed {
		assert.True(t, tr[0].CanTransition(tr[1]), "%s -> %s", tr[0], tr[1])
	}

	denied := [][2]OrderStatus{
		{OrderDelivered, OrderProcessing},
		{OrderCancelled, OrderDelivered},
		{OrderProcessing, OrderDelivered},
		{OrderShipped, OrderProcessing},
	}
	for _, tr := range denied {
		assert.False(t, tr[0].CanTransition(tr[1]), "%s -> %s", tr[0], tr[1])
	}
}

func TestPaymentStatusTransitions(t *testing.T) {
	assert.True(t, PaymentPending.CanTransition(PaymentPaid))
	assert.True(t, PaymentFailed.CanTransition(PaymentPending))
	assert.True(t, PaymentPaid.CanTransition(PaymentPaid))
	assert.False(t, PaymentPaid.CanTransition(PaymentPending))
	assert.False(t, PaymentPaid.CanTransition(PaymentFailed))
}

func TestValidateShipping(t *testing.T) {
	err := Address{Street: "1 Main", City: "Springfield"}.ValidateShipping()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "state, postalCode, country")

	full := Address{Street: " 1 Main ", City: "X", State: "Y", PostalCode: "123", Country: "Z"}.Trimmed()
	assert.Equal(t, "1 Main", full.Street)
	assert.NoError(t, full.ValidateShipping())
}

func TestNewOffsetPage(t *testing.T) {
	page := NewOffsetPage[Product](nil, 41, 2, 20)
	assert.NotNil(t, page.Items)
	assert.Equal(t, 3, page.TotalPages)
}
