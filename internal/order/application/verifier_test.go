package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orderflow/orderflow/internal/order/domain"
)

func TestVerify_PricesLinesInInputOrder(t *testing.T) {
	gw := newFakeGateway(
		domain.Product{ID: "p1", Name: "Widget", Price: mustDecimal("9.99"), Inventory: 5},
		domain.Product{ID: "p2", Name: "Gadget", Price: mustDecimal("4.00"), Inventory: 2},
	)
	v := NewStockVerifier(gw)

	lines, err := v.Verify(context.Background(), []domain.ItemRequest{
		{ProductID: "p2", Quantity: 1},
		{ProductID: "p1", Quantity: 3},
	})
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, "Gadget", lines[0].Name)
	assert.Equal(t, "Widget", lines[1].Name)
	assert.True(t, lines[1].Price.Equal(mustDecimal("9.99")))
	assert.Equal(t, 3, lines[1].Quantity)
}

func TestVerify_ShortCircuitsOnFirstShortage(t *testing.T) {
	gw := newFakeGateway(
		domain.Product{ID: "p1", Name: "Widget", Price: mustDecimal("9.99"), Inventory: 0},
		domain.Product{ID: "p2", Name: "Gadget", Price: mustDecimal("4.00"), Inventory: 9},
	)
	v := NewStockVerifier(gw)

	_, err := v.Verify(context.Background(), []domain.ItemRequest{
		{ProductID: "p1", Quantity: 1},
		{ProductID: "p2", Quantity: 1},
	})

	var stock *domain.InsufficientStockError
	require.ErrorAs(t, err, &stock)
	assert.Equal(t, "p1", stock.ProductID)
	assert.Equal(t, 1, gw.getCalls, "later items are not checked")
}

// Each duplicate line is checked against the same snapshotted inventory, so
// verification alone admits an aggregate overdraft; the reservation step is
// what catches it.
func TestVerify_DuplicateLinesUseSameSnapshot(t *testing.T) {
	gw := newFakeGateway(domain.Product{ID: "p1", Name: "Widget", Price: mustDecimal("9.99"), Inventory: 5})
	v := NewStockVerifier(gw)

	lines, err := v.Verify(context.Background(), []domain.ItemRequest{
		{ProductID: "p1", Quantity: 3},
		{ProductID: "p1", Quantity: 3},
	})
	require.NoError(t, err, "6 of 5 passes verification line by line")
	assert.Len(t, lines, 2)
}

func TestVerify_PropagatesRemoteFailures(t *testing.T) {
	gw := newFakeGateway()
	v := NewStockVerifier(gw)

	_, err := v.Verify(context.Background(), []domain.ItemRequest{{ProductID: "ghost", Quantity: 1}})
	require.ErrorIs(t, err, domain.ErrProductNotFound)

	gw.getErr = domain.ErrProductUnavailable
	_, err = v.Verify(context.Background(), []domain.ItemRequest{{ProductID: "p1", Quantity: 1}})
	require.ErrorIs(t, err, domain.ErrProductUnavailable)
}
