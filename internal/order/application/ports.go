package application

import (
	"context"

	"github.com/orderflow/orderflow/internal/order/domain"
)

// OrderRepository persists order aggregates. Create and UpdateStatus
// enqueue the given event in the same transaction (outbox pattern); the
// store assigns timestamps and enforces id uniqueness, nothing else.
type OrderRepository interface {
	Create(ctx context.Context, o domain.Order, eventType string, payload []byte) (domain.Order, error)
	Get(ctx context.Context, id string) (domain.Order, error)
	List(ctx context.Context) ([]domain.Order, error)
	UpdateStatus(ctx context.Context, id string, status domain.OrderStatus, eventType string, payload []byte) (domain.Order, error)
	UpdatePaymentStatus(ctx context.Context, id string, status domain.PaymentStatus) (domain.Order, error)
}

// ProductGateway is the typed boundary to the product service.
//
// GetProduct fails with domain.ErrProductNotFound, domain.ErrProductUnavailable
// or *domain.RemoteError. AdjustStock applies a relative inventory change
// (negative delta for a sale) that the product service executes as a single
// conditional operation: it fails with *domain.InsufficientStockError instead
// of ever driving inventory negative, and deduplicates by idempotency key so
// a retried call cannot double-apply. SetInventory is the plain absolute
// write used for catalog edits and restocks.
//
// No method retries; retry policy belongs to callers.
type ProductGateway interface {
	GetProduct(ctx context.Context, productID string) (domain.Product, error)
	AdjustStock(ctx context.Context, productID string, delta int, idempotencyKey string) error
	SetInventory(ctx context.Context, productID string, inventory int) error
}
