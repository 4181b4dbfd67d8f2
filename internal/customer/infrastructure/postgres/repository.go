package postgres

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/orderflow/orderflow/internal/customer/domain"
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
		CREATE TABLE IF NOT EXISTS customers (
			id         TEXT PRIMARY KEY,
			first_name TEXT NOT NULL,
			last_name  TEXT NOT NULL,
			email      TEXT NOT NULL UNIQUE,
			phone      TEXT NOT NULL DEFAULT '',
			addresses  JSONB NOT NULL DEFAULT '[]',
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`)
	return err
}

const customerColumns = `id, first_name, last_name, email, phone, addresses, created_at, updated_at`

func scanCustomer(row pgx.Row) (domain.Customer, error) {
	var c domain.Customer
	err := row.Scan(&c.ID, &c.FirstName, &c.LastName, &c.Email, &c.Phone,
		&c.Addresses, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Customer{}, domain.ErrCustomerNotFound
		}
		return domain.Customer{}, err
	}
	return c, nil
}

func (r *Repository) Create(ctx context.Context, c domain.Customer) (domain.Customer, error) {
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now
	if c.Addresses == nil {
		c.Addresses = []domain.Address{}
	}
	_, err := r.pool.Exec(ctx, `INSERT INTO customers (`+customerColumns+`)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		c.ID, c.FirstName, c.LastName, c.Email, c.Phone, c.Addresses, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Customer{}, domain.ErrDuplicateEmail
		}
		return domain.Customer{}, err
	}
	return c, nil
}

func (r *Repository) Get(ctx context.Context, id string) (domain.Customer, error) {
	return scanCustomer(r.pool.QueryRow(ctx,
		`SELECT `+customerColumns+` FROM customers WHERE id=$1`, id))
}

func (r *Repository) List(ctx context.Context) ([]domain.Customer, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+customerColumns+` FROM customers ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var customers []domain.Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		customers = append(customers, c)
	}
	return customers, rows.Err()
}

func (r *Repository) Update(ctx context.Context, c domain.Customer) (domain.Customer, error) {
	c.UpdatedAt = time.Now().UTC()
	if c.Addresses == nil {
		c.Addresses = []domain.Address{}
	}
	updated, err := scanCustomer(r.pool.QueryRow(ctx, `UPDATE customers
			SET first_name=$2, last_name=$3, email=$4, phone=$5, addresses=$6, updated_at=$7
			WHERE id=$1
			RETURNING `+customerColumns,
		c.ID, c.FirstName, c.LastName, c.Email, c.Phone, c.Addresses, c.UpdatedAt))
	if err != nil && isUniqueViolation(err) {
		return domain.Customer{}, domain.ErrDuplicateEmail
	}
	return updated, err
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM customers WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrCustomerNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
