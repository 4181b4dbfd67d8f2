package postgres

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/orderflow/orderflow/internal/product/domain"
)

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

func (r *Repository) EnsureSchema(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS products (
			id          TEXT PRIMARY KEY,
			name        TEXT NOT NULL,
			description TEXT NOT NULL,
			price       NUMERIC(12,2) NOT NULL CHECK (price >= 0),
			inventory   INT NOT NULL DEFAULT 0 CHECK (inventory >= 0),
			category    TEXT NOT NULL,
			image_url   TEXT NOT NULL DEFAULT '',
			is_active   BOOLEAN NOT NULL DEFAULT TRUE,
			created_at  TIMESTAMPTZ NOT NULL,
			updated_at  TIMESTAMPTZ NOT NULL
		)`)
	return err
}

const productColumns = `id, name, description, price, inventory, category, image_url, is_active, created_at, updated_at`

func scanProduct(row pgx.Row) (domain.Product, error) {
	var p domain.Product
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Inventory,
		&p.Category, &p.ImageURL, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Product{}, domain.ErrProductNotFound
		}
		return domain.Product{}, err
	}
	return p, nil
}

func (r *Repository) Create(ctx context.Context, p domain.Product) (domain.Product, error) {
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	_, err := r.pool.Exec(ctx, `INSERT INTO products (`+productColumns+`)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		p.ID, p.Name, p.Description, p.Price, p.Inventory,
		p.Category, p.ImageURL, p.IsActive, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return domain.Product{}, err
	}
	return p, nil
}

func (r *Repository) Get(ctx context.Context, id string) (domain.Product, error) {
	return scanProduct(r.pool.QueryRow(ctx,
		`SELECT `+productColumns+` FROM products WHERE id=$1`, id))
}

func (r *Repository) List(ctx context.Context) ([]domain.Product, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+productColumns+` FROM products ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (r *Repository) Update(ctx context.Context, p domain.Product) (domain.Product, error) {
	p.UpdatedAt = time.Now().UTC()
	return scanProduct(r.pool.QueryRow(ctx, `UPDATE products
			SET name=$2, description=$3, price=$4, inventory=$5, category=$6,
			    image_url=$7, is_active=$8, updated_at=$9
			WHERE id=$1
			RETURNING `+productColumns,
		p.ID, p.Name, p.Description, p.Price, p.Inventory,
		p.Category, p.ImageURL, p.IsActive, p.UpdatedAt))
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}

// AdjustInventory applies the delta in a single conditional UPDATE, so two
// concurrent sales can never drive inventory below zero: the losing request
// sees no matching row and gets the shortage error built from the current
// state.
func (r *Repository) AdjustInventory(ctx context.Context, id string, delta int) (domain.Product, error) {
	p, err := scanProduct(r.pool.QueryRow(ctx, `UPDATE products
			SET inventory = inventory + $2, updated_at = now()
			WHERE id=$1 AND inventory + $2 >= 0
			RETURNING `+productColumns,
		id, delta))
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, domain.ErrProductNotFound) {
		return domain.Product{}, err
	}

	// No row matched: either the product is gone or the condition failed.
	current, getErr := r.Get(ctx, id)
	if getErr != nil {
		return domain.Product{}, getErr
	}
	return domain.Product{}, &domain.InsufficientInventoryError{
		ProductID: current.ID,
		Name:      current.Name,
		Requested: -delta,
		Available: current.Inventory,
	}
}
