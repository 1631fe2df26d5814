package order

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddressValidate(t *testing.T) {
	valid := shippingAddress()
	require.NoError(t, valid.Validate())

	t.Run("missing required field", func(t *testing.T) {
		a := shippingAddress()
		a.City = ""
		require.Error(t, a.Validate())
	})

	t.Run("whitespace only", func(t *testing.T) {
		a := shippingAddress()
		a.Street = "   "
		require.Error(t, a.Validate())
	})

	t.Run("bad email", func(t *testing.T) {
		a := shippingAddress()
		a.Email = "jane@"
		require.Error(t, a.Validate())
	})
}

func TestValidStatusTransition(t *testing.T) {
	tests := []struct {
		from    OrderStatus
		to      OrderStatus
		allowed bool
	}{
		{OrderStatusConfirmed, OrderStatusProcessing, true},
		{OrderStatusConfirmed, OrderStatusCancelled, true},
		{OrderStatusProcessing, OrderStatusShipped, true},
		{OrderStatusShipped, OrderStatusDelivered, true},
		{OrderStatusDelivered, OrderStatusCompleted, true},
		{OrderStatusCompleted, OrderStatusProcessing, false},
		{OrderStatusCancelled, OrderStatusConfirmed, false},
		{OrderStatusDelivered, OrderStatusShipped, false},
	}

	for _, tt := range tests {
		got := ValidStatusTransition(tt.from, tt.to)
		require.Equal(t, tt.allowed, got, "%s -> %s", tt.from, tt.to)
	}
}

func TestCanBeCancelled(t *testing.T) {
	require.True(t, (&Order{Status: OrderStatusConfirmed}).CanBeCancelled())
	require.True(t, (&Order{Status: OrderStatusProcessing}).CanBeCancelled())
	require.False(t, (&Order{Status: OrderStatusShipped}).CanBeCancelled())
	require.False(t, (&Order{Status: OrderStatusCancelled}).CanBeCancelled())
}
