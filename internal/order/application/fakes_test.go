package application

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/orderflow/orderflow/internal/order/domain"
)

// fakeRepo is an in-memory OrderRepository.
type fakeRepo struct {
	mu         sync.Mutex
	orders     map[string]domain.Order
	events     []string
	failCreate error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{orders: map[string]domain.Order{}}
}

func (r *fakeRepo) Create(_ context.Context, o domain.Order, eventType string, _ []byte) (domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failCreate != nil {
		return domain.Order{}, r.failCreate
	}
	if _, ok := r.orders[o.ID]; ok {
		return domain.Order{}, errors.New("duplicate order id")
	}
	now := time.Now().UTC()
	o.CreatedAt = now
	o.UpdatedAt = now
	r.orders[o.ID] = o
	r.events = append(r.events, eventType)
	return o, nil
}

func (r *fakeRepo) Get(_ context.Context, id string) (domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return o, nil
}

func (r *fakeRepo) List(_ context.Context) ([]domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Order, 0, len(r.orders))
	for _, o := range r.orders {
		out = append(out, o)
	}
	return out, nil
}

func (r *fakeRepo) UpdateStatus(_ context.Context, id string, status domain.OrderStatus, eventType string, _ []byte) (domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	o.Status = status
	o.UpdatedAt = time.Now().UTC()
	r.orders[id] = o
	r.events = append(r.events, eventType)
	return o, nil
}

func (r *fakeRepo) UpdatePaymentStatus(_ context.Context, id string, status domain.PaymentStatus) (domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	o.PaymentStatus = status
	o.UpdatedAt = time.Now().UTC()
	r.orders[id] = o
	return o, nil
}

func (r *fakeRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.orders)
}

type adjustCall struct {
	productID string
	delta     int
	key       string
}

// fakeGateway mimics the redesigned product service: conditional relative
// adjustments that never drive inventory negative. Like the real client, any
// call on an expired context fails with ErrProductUnavailable.
type fakeGateway struct {
	mu             sync.Mutex
	products       map[string]domain.Product
	getErr         error
	adjustErrOn    string // productID whose adjustment fails with a remote error
	cancelOnAdjust string // productID whose sale decrement cancels the request
	cancel         context.CancelFunc
	getCalls       int
	adjustCalls    []adjustCall
}

func newFakeGateway(products ...domain.Product) *fakeGateway {
	g := &fakeGateway{products: map[string]domain.Product{}}
	for _, p := range products {
		g.products[p.ID] = p
	}
	return g
}

func (g *fakeGateway) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if ctx.Err() != nil {
		return domain.Product{}, domain.ErrProductUnavailable
	}
	g.getCalls++
	if g.getErr != nil {
		return domain.Product{}, g.getErr
	}
	p, ok := g.products[id]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return p, nil
}

func (g *fakeGateway) AdjustStock(ctx context.Context, id string, delta int, key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if ctx.Err() != nil {
		return domain.ErrProductUnavailable
	}
	g.adjustCalls = append(g.adjustCalls, adjustCall{productID: id, delta: delta, key: key})
	if g.adjustErrOn == id && delta < 0 {
		return &domain.RemoteError{StatusCode: 500, Message: "inventory update failed"}
	}
	if g.cancelOnAdjust == id && delta < 0 {
		g.cancel()
		return domain.ErrProductUnavailable
	}
	p, ok := g.products[id]
	if !ok {
		return domain.ErrProductNotFound
	}
	if p.Inventory+delta < 0 {
		return &domain.InsufficientStockError{
			ProductID:   p.ID,
			ProductName: p.Name,
			Requested:   -delta,
			Available:   p.Inventory,
		}
	}
	p.Inventory += delta
	g.products[id] = p
	return nil
}

func (g *fakeGateway) SetInventory(_ context.Context, id string, inventory int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	p, ok := g.products[id]
	if !ok {
		return domain.ErrProductNotFound
	}
	p.Inventory = inventory
	g.products[id] = p
	return nil
}

func (g *fakeGateway) inventory(id string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.products[id].Inventory
}

func (g *fakeGateway) setPrice(id, price string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	p := g.products[id]
	p.Price = mustDecimal(price)
	g.products[id] = p
}
