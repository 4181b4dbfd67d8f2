package application

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/orderflow/orderflow/internal/order/domain"
)

// releaseTimeout bounds compensation restocks, which run detached from the
// request context.
const releaseTimeout = 10 * time.Second

// PlaceOrderInput is the raw placement request before validation.
type PlaceOrderInput struct {
	CustomerID      string
	Items           []domain.ItemRequest
	ShippingAddress domain.Address
	PaymentMethod   domain.PaymentMethod
	Notes           string
}

func (in PlaceOrderInput) validate() error {
	if in.CustomerID == "" {
		return &domain.ValidationError{Field: "customerId", Reason: "required"}
	}
	if len(in.Items) == 0 {
		return &domain.ValidationError{Field: "items", Reason: "at least one item is required"}
	}
	for _, item := range in.Items {
		if item.ProductID == "" {
			return &domain.ValidationError{Field: "items.productId", Reason: "required"}
		}
		if item.Quantity < 1 {
			return &domain.ValidationError{Field: "items.quantity", Reason: "must be at least 1"}
		}
	}
	if err := in.ShippingAddress.Validate(); err != nil {
		return err
	}
	if in.PaymentMethod == "" {
		return &domain.ValidationError{Field: "paymentMethod", Reason: "required"}
	}
	if !in.PaymentMethod.Valid() {
		return &domain.ValidationError{Field: "paymentMethod", Reason: "unknown value " + string(in.PaymentMethod)}
	}
	return nil
}

// Coordinator orchestrates the placement saga and all subsequent order
// mutations. It owns the Order aggregate; nothing else writes order fields.
type Coordinator struct {
	log      *slog.Logger
	orders   OrderRepository
	products ProductGateway
	verifier *StockVerifier
}

func NewCoordinator(log *slog.Logger, orders OrderRepository, products ProductGateway) *Coordinator {
	return &Coordinator{
		log:      log,
		orders:   orders,
		products: products,
		verifier: NewStockVerifier(products),
	}
}

// PlaceOrder runs the placement saga: validate, verify stock, reserve
// inventory through conditional decrements, then persist. Reservations made
// before a failing step are released, so the caller either gets a fully
// backed order or no order at all.
func (c *Coordinator) PlaceOrder(ctx context.Context, in PlaceOrderInput) (domain.Order, error) {
	saga := newPlacement()

	if err := in.validate(); err != nil {
		saga.fail()
		return domain.Order{}, err
	}

	saga.advance(stateVerifying)
	lines, err := c.verifier.Verify(ctx, in.Items)
	if err != nil {
		saga.fail()
		return domain.Order{}, err
	}

	saga.advance(stateReserving)
	for i, item := range in.Items {
		key := saga.lineKey(i)
		if err := c.products.AdjustStock(ctx, item.ProductID, -item.Quantity, key); err != nil {
			c.release(ctx, saga)
			saga.fail()
			return domain.Order{}, err
		}
		saga.reserve(item.ProductID, item.Quantity, key)
	}

	saga.advance(statePersisting)
	o := domain.NewOrder(uuid.NewString(), in.CustomerID, lines, in.ShippingAddress, in.PaymentMethod, in.Notes)
	payload, err := json.Marshal(domain.OrderPlaced{
		OrderID:     o.ID,
		CustomerID:  o.CustomerID,
		TotalAmount: o.TotalAmount,
		Items:       o.Items,
	})
	if err != nil {
		c.release(ctx, saga)
		saga.fail()
		return domain.Order{}, err
	}
	created, err := c.orders.Create(ctx, o, "OrderPlaced", payload)
	if err != nil {
		c.release(ctx, saga)
		saga.fail()
		return domain.Order{}, err
	}

	saga.advance(stateCompleted)
	c.log.Info("order placed",
		"order_id", created.ID,
		"customer_id", created.CustomerID,
		"total", created.TotalAmount.String(),
		"lines", len(created.Items))
	return created, nil
}

// release compensates applied reservations by restocking each one. Failures
// are logged, not returned: the placement already failed and the caller's
// outcome does not change.
//
// The restocks run on a context detached from the request: the step that
// failed may have failed precisely because the request context died
// (timeout, client disconnect), and issuing the restocks on that same dead
// context would fail them all and leak the decrements.
func (c *Coordinator) release(ctx context.Context, saga *placement) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer cancel()

	for _, r := range saga.reserved {
		if err := c.products.AdjustStock(ctx, r.productID, r.quantity, r.key+":release"); err != nil {
			c.log.Error("reservation release failed",
				"product_id", r.productID,
				"quantity", r.quantity,
				"err", err)
		}
	}
}

func (c *Coordinator) GetOrder(ctx context.Context, id string) (domain.Order, error) {
	return c.orders.Get(ctx, id)
}

func (c *Coordinator) ListOrders(ctx context.Context) ([]domain.Order, error) {
	return c.orders.List(ctx)
}

// UpdateOrderStatus applies a lifecycle transition, persists it and
// enqueues a status-change event. The stored status is untouched when the
// transition is illegal.
func (c *Coordinator) UpdateOrderStatus(ctx context.Context, id string, status domain.OrderStatus) (domain.Order, error) {
	o, err := c.orders.Get(ctx, id)
	if err != nil {
		return domain.Order{}, err
	}
	from := o.Status
	if err := o.TransitionStatus(status); err != nil {
		return domain.Order{}, err
	}
	payload, err := json.Marshal(domain.OrderStatusChanged{OrderID: id, From: from, To: o.Status})
	if err != nil {
		return domain.Order{}, err
	}
	return c.orders.UpdateStatus(ctx, id, o.Status, "OrderStatusChanged", payload)
}

func (c *Coordinator) UpdatePaymentStatus(ctx context.Context, id string, status domain.PaymentStatus) (domain.Order, error) {
	o, err := c.orders.Get(ctx, id)
	if err != nil {
		return domain.Order{}, err
	}
	if err := o.TransitionPayment(status); err != nil {
		return domain.Order{}, err
	}
	return c.orders.UpdatePaymentStatus(ctx, id, o.PaymentStatus)
}

// CancelOrder sets status to cancelled, subject to the shipped/delivered
// guard. Cancelling an already-cancelled order returns it unchanged.
func (c *Coordinator) CancelOrder(ctx context.Context, id string) (domain.Order, error) {
	o, err := c.orders.Get(ctx, id)
	if err != nil {
		return domain.Order{}, err
	}
	if o.Status == domain.StatusCancelled {
		return o, nil
	}
	from := o.Status
	if err := o.Cancel(); err != nil {
		return domain.Order{}, err
	}
	payload, err := json.Marshal(domain.OrderStatusChanged{OrderID: id, From: from, To: domain.StatusCancelled})
	if err != nil {
		return domain.Order{}, err
	}
	return c.orders.UpdateStatus(ctx, id, domain.StatusCancelled, "OrderStatusChanged", payload)
}
