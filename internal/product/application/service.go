package application

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/orderflow/orderflow/internal/product/domain"
)

type Service struct {
	log  *slog.Logger
	repo ProductRepository
	seen SeenStore
}

func NewService(log *slog.Logger, repo ProductRepository, seen SeenStore) *Service {
	return &Service{log: log, repo: repo, seen: seen}
}

func (s *Service) Create(ctx context.Context, p domain.Product) (domain.Product, error) {
	if err := p.Validate(); err != nil {
		return domain.Product{}, err
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return s.repo.Create(ctx, p)
}

func (s *Service) Get(ctx context.Context, id string) (domain.Product, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]domain.Product, error) {
	return s.repo.List(ctx)
}

// Update overwrites mutable catalog fields, including an absolute
// inventory value. Sales do not go through here; they use AdjustInventory
// so the decrement stays conditional.
func (s *Service) Update(ctx context.Context, p domain.Product) (domain.Product, error) {
	if err := p.Validate(); err != nil {
		return domain.Product{}, err
	}
	return s.repo.Update(ctx, p)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// AdjustInventory applies a relative inventory change, deduplicated by the
// caller's idempotency key: a retried request that was already applied
// returns the current product without applying again.
//
// The key is claimed atomically before the update, so a duplicate racing in
// while the first request is in flight loses the claim and cannot
// double-apply. A claim whose update fails is released, keeping the key
// retryable.
func (s *Service) AdjustInventory(ctx context.Context, id string, delta int, idempotencyKey string) (domain.Product, error) {
	if idempotencyKey != "" {
		first, err := s.seen.Mark(ctx, idempotencyKey)
		if err != nil {
			return domain.Product{}, err
		}
		if !first {
			s.log.Info("duplicate adjustment skipped", "product_id", id, "key", idempotencyKey)
			return s.repo.Get(ctx, id)
		}
	}

	p, err := s.repo.AdjustInventory(ctx, id, delta)
	if err != nil {
		if idempotencyKey != "" {
			if ferr := s.seen.Forget(ctx, idempotencyKey); ferr != nil {
				s.log.Error("idempotency claim release failed", "key", idempotencyKey, "err", ferr)
			}
		}
		return domain.Product{}, err
	}
	return p, nil
}
