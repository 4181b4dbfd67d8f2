package application

import (
	"context"

	"github.com/orderflow/orderflow/internal/product/domain"
)

type ProductRepository interface {
	Create(ctx context.Context, p domain.Product) (domain.Product, error)
	Get(ctx context.Context, id string) (domain.Product, error)
	List(ctx context.Context) ([]domain.Product, error)
	Update(ctx context.Context, p domain.Product) (domain.Product, error)
	Delete(ctx context.Context, id string) error
	// AdjustInventory applies inventory+delta in one conditional statement,
	// failing with *domain.InsufficientInventoryError instead of going
	// negative.
	AdjustInventory(ctx context.Context, id string, delta int) (domain.Product, error)
}

// SeenStore deduplicates adjustment requests by idempotency key. Mark
// atomically claims a key, reporting false when another caller holds it;
// Forget releases a claim whose request did not go through.
type SeenStore interface {
	Mark(ctx context.Context, key string) (bool, error)
	Forget(ctx context.Context, key string) error
}
