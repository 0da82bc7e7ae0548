package shop_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/storefront/pkg/shop"
)

func TestCartItem(t *testing.T) {
	t.Parallel()

	item := shop.CartItem{ProductID: 3, Quantity: 2, Product: &shop.Product{ID: 3, Price: 1250}}

	require.EqualValues(t, 3, item.ItemID())
	require.Equal(t, 2, item.Count())
	require.EqualValues(t, 2500, item.Subtotal())

	updated := item.WithQuantity(5)
	require.Equal(t, 5, updated.Quantity)
	require.Equal(t, 2, item.Quantity, "receiver must not change")
	require.Same(t, item.Product, updated.Product)
}

func TestCartTotal(t *testing.T) {
	t.Parallel()

	items := []shop.CartItem{
		{ProductID: 1, Quantity: 2, Product: &shop.Product{Price: 100}},
		{ProductID: 2, Quantity: 1, Product: &shop.Product{Price: 999}},
		{ProductID: 3, Quantity: 4},
	}
	require.EqualValues(t, 1199, shop.CartTotal(items))
	require.Zero(t, shop.CartTotal(nil))
}
