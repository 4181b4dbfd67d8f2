package application

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/orderflow/orderflow/internal/customer/domain"
)

type CustomerRepository interface {
	Create(ctx context.Context, c domain.Customer) (domain.Customer, error)
	Get(ctx context.Context, id string) (domain.Customer, error)
	List(ctx context.Context) ([]domain.Customer, error)
	Update(ctx context.Context, c domain.Customer) (domain.Customer, error)
	Delete(ctx context.Context, id string) error
}

type Service struct {
	log  *slog.Logger
	repo CustomerRepository
}

func NewService(log *slog.Logger, repo CustomerRepository) *Service {
	return &Service{log: log, repo: repo}
}

func (s *Service) Create(ctx context.Context, c domain.Customer) (domain.Customer, error) {
	c.Normalize()
	if err := c.Validate(); err != nil {
		return domain.Customer{}, err
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return s.repo.Create(ctx, c)
}

func (s *Service) Get(ctx context.Context, id string) (domain.Customer, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]domain.Customer, error) {
	return s.repo.List(ctx)
}

func (s *Service) Update(ctx context.Context, c domain.Customer) (domain.Customer, error) {
	c.Normalize()
	if err := c.Validate(); err != nil {
		return domain.Customer{}, err
	}
	return s.repo.Update(ctx, c)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}
