package application

import (
	"context"
	"log/slog"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orderflow/orderflow/internal/order/domain"
)

func mustDecimal(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func widget(inventory int) domain.Product {
	return domain.Product{ID: "p1", Name: "Widget", Price: mustDecimal("9.99"), Inventory: inventory}
}

func validInput(items ...domain.ItemRequest) PlaceOrderInput {
	return PlaceOrderInput{
		CustomerID: "c1",
		Items:      items,
		ShippingAddress: domain.Address{
			Street: "1 Main St", City: "Springfield", State: "IL", ZipCode: "62701", Country: "USA",
		},
		PaymentMethod: domain.PaymentCreditCard,
	}
}

func TestPlaceOrder_HappyPath(t *testing.T) {
	repo := newFakeRepo()
	gw := newFakeGateway(widget(5))
	coord := NewCoordinator(discardLogger(), repo, gw)

	o, err := coord.PlaceOrder(context.Background(), validInput(domain.ItemRequest{ProductID: "p1", Quantity: 2}))
	require.NoError(t, err)

	assert.NotEmpty(t, o.ID)
	assert.Equal(t, domain.StatusPending, o.Status)
	assert.Equal(t, domain.PaymentPending, o.PaymentStatus)
	assert.True(t, o.TotalAmount.Equal(mustDecimal("19.98")), "got %s", o.TotalAmount)
	require.Len(t, o.Items, 1)
	assert.Equal(t, "Widget", o.Items[0].Name)
	assert.True(t, o.Items[0].Price.Equal(mustDecimal("9.99")))

	assert.Equal(t, 3, gw.inventory("p1"), "inventory decremented by the sale")
	assert.Equal(t, 1, repo.count())
	assert.Equal(t, []string{"OrderPlaced"}, repo.events)
}

func TestPlaceOrder_InsufficientStock(t *testing.T) {
	repo := newFakeRepo()
	gw := newFakeGateway(widget(5))
	coord := NewCoordinator(discardLogger(), repo, gw)

	_, err := coord.PlaceOrder(context.Background(), validInput(domain.ItemRequest{ProductID: "p1", Quantity: 6}))

	var stock *domain.InsufficientStockError
	require.ErrorAs(t, err, &stock)
	assert.Equal(t, "p1", stock.ProductID)
	assert.Equal(t, "Widget", stock.ProductName)
	assert.Equal(t, 6, stock.Requested)
	assert.Equal(t, 5, stock.Available)

	assert.Equal(t, 0, repo.count(), "no order persisted")
	assert.Equal(t, 5, gw.inventory("p1"), "inventory untouched")
	assert.Empty(t, gw.adjustCalls, "rejected before any adjustment")
}

func TestPlaceOrder_ValidationBeforeAnyRemoteCall(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*PlaceOrderInput)
	}{
		{"missing customerId", func(in *PlaceOrderInput) { in.CustomerID = "" }},
		{"empty items", func(in *PlaceOrderInput) { in.Items = nil }},
		{"zero quantity", func(in *PlaceOrderInput) { in.Items[0].Quantity = 0 }},
		{"missing address field", func(in *PlaceOrderInput) { in.ShippingAddress.City = "" }},
		{"missing payment method", func(in *PlaceOrderInput) { in.PaymentMethod = "" }},
		{"unknown payment method", func(in *PlaceOrderInput) { in.PaymentMethod = "barter" }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			repo := newFakeRepo()
			gw := newFakeGateway(widget(5))
			coord := NewCoordinator(discardLogger(), repo, gw)

			in := validInput(domain.ItemRequest{ProductID: "p1", Quantity: 1})
			tc.mutate(&in)

			_, err := coord.PlaceOrder(context.Background(), in)
			var verr *domain.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Zero(t, gw.getCalls, "no remote call before validation")
			assert.Equal(t, 0, repo.count())
		})
	}
}

func TestPlaceOrder_SnapshotsPriceAndName(t *testing.T) {
	repo := newFakeRepo()
	gw := newFakeGateway(widget(5))
	coord := NewCoordinator(discardLogger(), repo, gw)

	o, err := coord.PlaceOrder(context.Background(), validInput(domain.ItemRequest{ProductID: "p1", Quantity: 2}))
	require.NoError(t, err)

	gw.setPrice("p1", "99.99")

	stored, err := repo.Get(context.Background(), o.ID)
	require.NoError(t, err)
	assert.True(t, stored.Items[0].Price.Equal(mustDecimal("9.99")), "price captured at placement time")
	assert.True(t, stored.TotalAmount.Equal(mustDecimal("19.98")))
}

func TestPlaceOrder_RemoteFailureCreatesNoOrder(t *testing.T) {
	repo := newFakeRepo()
	gw := newFakeGateway(widget(5))
	gw.getErr = domain.ErrProductUnavailable
	coord := NewCoordinator(discardLogger(), repo, gw)

	_, err := coord.PlaceOrder(context.Background(), validInput(domain.ItemRequest{ProductID: "p1", Quantity: 1}))
	require.ErrorIs(t, err, domain.ErrProductUnavailable)
	assert.Equal(t, 0, repo.count())
}

func TestPlaceOrder_ReleasesReservationsWhenLaterLineFails(t *testing.T) {
	repo := newFakeRepo()
	gw := newFakeGateway(
		widget(5),
		domain.Product{ID: "p2", Name: "Gadget", Price: mustDecimal("4.00"), Inventory: 8},
	)
	gw.adjustErrOn = "p2"
	coord := NewCoordinator(discardLogger(), repo, gw)

	_, err := coord.PlaceOrder(context.Background(), validInput(
		domain.ItemRequest{ProductID: "p1", Quantity: 2},
		domain.ItemRequest{ProductID: "p2", Quantity: 1},
	))

	var remote *domain.RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, 0, repo.count(), "no order persisted")
	assert.Equal(t, 5, gw.inventory("p1"), "first reservation released")
	assert.Equal(t, 8, gw.inventory("p2"))
}

// A request that dies mid-reserve (server timeout, client disconnect) kills
// the context every remaining gateway call would run on. The restocks must
// still land, or the decrements leak with no order behind them.
func TestPlaceOrder_ReleasesReservationsWhenRequestDies(t *testing.T) {
	repo := newFakeRepo()
	gw := newFakeGateway(
		widget(5),
		domain.Product{ID: "p2", Name: "Gadget", Price: mustDecimal("4.00"), Inventory: 8},
	)
	coord := NewCoordinator(discardLogger(), repo, gw)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	gw.cancelOnAdjust = "p2"
	gw.cancel = cancel

	_, err := coord.PlaceOrder(ctx, validInput(
		domain.ItemRequest{ProductID: "p1", Quantity: 2},
		domain.ItemRequest{ProductID: "p2", Quantity: 1},
	))
	require.ErrorIs(t, err, domain.ErrProductUnavailable)

	assert.Equal(t, 0, repo.count(), "no order persisted")
	assert.Equal(t, 5, gw.inventory("p1"), "release survives the dead request context")
	assert.Equal(t, 8, gw.inventory("p2"))
}

func TestPlaceOrder_ReleasesReservationsWhenPersistFails(t *testing.T) {
	repo := newFakeRepo()
	repo.failCreate = assert.AnError
	gw := newFakeGateway(widget(5))
	coord := NewCoordinator(discardLogger(), repo, gw)

	_, err := coord.PlaceOrder(context.Background(), validInput(domain.ItemRequest{ProductID: "p1", Quantity: 2}))
	require.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, 5, gw.inventory("p1"), "reservation released after store failure")
	assert.Equal(t, 0, repo.count())
}

// Duplicate lines for one product each pass verification against the same
// inventory snapshot; the conditional decrement is what stops the aggregate
// overdraft.
func TestPlaceOrder_DuplicateLinesCannotOverdraw(t *testing.T) {
	repo := newFakeRepo()
	gw := newFakeGateway(widget(5))
	coord := NewCoordinator(discardLogger(), repo, gw)

	_, err := coord.PlaceOrder(context.Background(), validInput(
		domain.ItemRequest{ProductID: "p1", Quantity: 3},
		domain.ItemRequest{ProductID: "p1", Quantity: 3},
	))

	var stock *domain.InsufficientStockError
	require.ErrorAs(t, err, &stock)
	assert.Equal(t, 5, gw.inventory("p1"), "first line's decrement released")
	assert.Equal(t, 0, repo.count())

	// Per-line idempotency keys must differ, or the second line would be
	// deduplicated away instead of rejected.
	require.GreaterOrEqual(t, len(gw.adjustCalls), 2)
	assert.NotEqual(t, gw.adjustCalls[0].key, gw.adjustCalls[1].key)
}

// Two concurrent placements for 3 of 5 units: the conditional decrement
// guarantees at most one wins and inventory never goes negative. The naive
// verify-then-write design would let both through, ending at -1.
func TestPlaceOrder_ConcurrentPlacementsDoNotOversell(t *testing.T) {
	repo := newFakeRepo()
	gw := newFakeGateway(widget(5))
	coord := NewCoordinator(discardLogger(), repo, gw)

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = coord.PlaceOrder(context.Background(),
				validInput(domain.ItemRequest{ProductID: "p1", Quantity: 3}))
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range results {
		if err == nil {
			successes++
		}
	}
	require.Equal(t, 1, successes, "exactly one placement may win")
	assert.Equal(t, 2, gw.inventory("p1"))
	assert.Equal(t, 1, repo.count())
}

func TestUpdateOrderStatus_IllegalCancelLeavesStoreUnchanged(t *testing.T) {
	repo := newFakeRepo()
	gw := newFakeGateway(widget(5))
	coord := NewCoordinator(discardLogger(), repo, gw)

	o, err := coord.PlaceOrder(context.Background(), validInput(domain.ItemRequest{ProductID: "p1", Quantity: 1}))
	require.NoError(t, err)
	_, err = coord.UpdateOrderStatus(context.Background(), o.ID, domain.StatusShipped)
	require.NoError(t, err)

	_, err = coord.UpdateOrderStatus(context.Background(), o.ID, domain.StatusCancelled)
	var illegal *domain.IllegalTransitionError
	require.ErrorAs(t, err, &illegal)

	stored, err := repo.Get(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusShipped, stored.Status)
}

func TestUpdateOrderStatus_NotFound(t *testing.T) {
	coord := NewCoordinator(discardLogger(), newFakeRepo(), newFakeGateway())
	_, err := coord.UpdateOrderStatus(context.Background(), "missing", domain.StatusShipped)
	require.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestCancelOrder_IdempotentSecondCall(t *testing.T) {
	repo := newFakeRepo()
	gw := newFakeGateway(widget(5))
	coord := NewCoordinator(discardLogger(), repo, gw)

	o, err := coord.PlaceOrder(context.Background(), validInput(domain.ItemRequest{ProductID: "p1", Quantity: 1}))
	require.NoError(t, err)

	first, err := coord.CancelOrder(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, first.Status)

	second, err := coord.CancelOrder(context.Background(), o.ID)
	require.NoError(t, err, "re-cancel is a no-op success")
	assert.Equal(t, domain.StatusCancelled, second.Status)

	// Only the first cancel emits an event; the no-op does not.
	assert.Equal(t, []string{"OrderPlaced", "OrderStatusChanged"}, repo.events)
}

func TestUpdatePaymentStatus(t *testing.T) {
	repo := newFakeRepo()
	gw := newFakeGateway(widget(5))
	coord := NewCoordinator(discardLogger(), repo, gw)

	o, err := coord.PlaceOrder(context.Background(), validInput(domain.ItemRequest{ProductID: "p1", Quantity: 1}))
	require.NoError(t, err)

	updated, err := coord.UpdatePaymentStatus(context.Background(), o.ID, domain.PaymentCompleted)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentCompleted, updated.PaymentStatus)

	// Payment status is independent of order status and unordered.
	updated, err = coord.UpdatePaymentStatus(context.Background(), o.ID, domain.PaymentRefunded)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentRefunded, updated.PaymentStatus)

	_, err = coord.UpdatePaymentStatus(context.Background(), o.ID, domain.PaymentStatus("voided"))
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
}
