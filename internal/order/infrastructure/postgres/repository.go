package postgres

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/orderflow/orderflow/internal/order/domain"
	"github.com/orderflow/orderflow/pkg/tracing"
)

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

// EnsureSchema creates the order tables if they do not exist.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS orders (
			id             TEXT PRIMARY KEY,
			customer_id    TEXT NOT NULL,
			total_amount   NUMERIC(12,2) NOT NULL,
			street         TEXT NOT NULL,
			city           TEXT NOT NULL,
			state          TEXT NOT NULL,
			zip_code       TEXT NOT NULL,
			country        TEXT NOT NULL,
			status         TEXT NOT NULL,
			payment_method TEXT NOT NULL,
			payment_status TEXT NOT NULL,
			notes          TEXT NOT NULL DEFAULT '',
			created_at     TIMESTAMPTZ NOT NULL,
			updated_at     TIMESTAMPTZ NOT NULL
		);
		CREATE TABLE IF NOT EXISTS order_items (
			order_id   TEXT NOT NULL REFERENCES orders(id),
			line_no    INT NOT NULL,
			product_id TEXT NOT NULL,
			name       TEXT NOT NULL,
			quantity   INT NOT NULL,
			price      NUMERIC(12,2) NOT NULL,
			PRIMARY KEY (order_id, line_no)
		);
		CREATE TABLE IF NOT EXISTS outbox (
			id             BIGSERIAL PRIMARY KEY,
			aggregate_type TEXT NOT NULL,
			aggregate_id   TEXT NOT NULL,
			type           TEXT NOT NULL,
			payload        BYTEA NOT NULL,
			traceparent    TEXT NOT NULL DEFAULT '',
			status         TEXT NOT NULL DEFAULT 'pending',
			relay_id       TEXT,
			lease_until    TIMESTAMPTZ,
			retry_count    INT NOT NULL DEFAULT 0,
			last_error     TEXT,
			created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)
	return err
}

// Create persists the order, its lines and the outbox event in one
// transaction. The id is unique; a conflict surfaces as an error, never an
// overwrite.
func (r *Repository) Create(ctx context.Context, o domain.Order, eventType string, payload []byte) (domain.Order, error) {
	now := time.Now().UTC()
	o.CreatedAt = now
	o.UpdatedAt = now

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return domain.Order{}, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	_, err = tx.Exec(ctx, `INSERT INTO orders
			(id, customer_id, total_amount, street, city, state, zip_code, country,
			 status, payment_method, payment_status, notes, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		o.ID, o.CustomerID, o.TotalAmount,
		o.ShippingAddress.Street, o.ShippingAddress.City, o.ShippingAddress.State,
		o.ShippingAddress.ZipCode, o.ShippingAddress.Country,
		o.Status, o.PaymentMethod, o.PaymentStatus, o.Notes, o.CreatedAt, o.UpdatedAt)
	if err != nil {
		return domain.Order{}, err
	}

	batch := &pgx.Batch{}
	for i, item := range o.Items {
		batch.Queue(`INSERT INTO order_items (order_id, line_no, product_id, name, quantity, price)
			VALUES ($1,$2,$3,$4,$5,$6)`,
			o.ID, i, item.ProductID, item.Name, item.Quantity, item.Price)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return domain.Order{}, err
	}

	_, err = tx.Exec(ctx, `INSERT INTO outbox (aggregate_type, aggregate_id, type, payload, traceparent)
			VALUES ($1,$2,$3,$4,$5)`,
		"order", o.ID, eventType, payload, tracing.Traceparent(ctx))
	if err != nil {
		return domain.Order{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Order{}, err
	}
	return o, nil
}

func (r *Repository) Get(ctx context.Context, id string) (domain.Order, error) {
	var o domain.Order
	err := r.pool.QueryRow(ctx, `SELECT id, customer_id, total_amount, street, city, state,
			zip_code, country, status, payment_method, payment_status, notes, created_at, updated_at
			FROM orders WHERE id=$1`, id).
		Scan(&o.ID, &o.CustomerID, &o.TotalAmount,
			&o.ShippingAddress.Street, &o.ShippingAddress.City, &o.ShippingAddress.State,
			&o.ShippingAddress.ZipCode, &o.ShippingAddress.Country,
			&o.Status, &o.PaymentMethod, &o.PaymentStatus, &o.Notes, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		return domain.Order{}, err
	}

	rows, err := r.pool.Query(ctx, `SELECT product_id, name, quantity, price
			FROM order_items WHERE order_id=$1 ORDER BY line_no`, id)
	if err != nil {
		return domain.Order{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var item domain.OrderLineItem
		if err := rows.Scan(&item.ProductID, &item.Name, &item.Quantity, &item.Price); err != nil {
			return domain.Order{}, err
		}
		o.Items = append(o.Items, item)
	}
	return o, rows.Err()
}

func (r *Repository) List(ctx context.Context) ([]domain.Order, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, customer_id, total_amount, street, city, state,
			zip_code, country, status, payment_method, payment_status, notes, created_at, updated_at
			FROM orders ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []domain.Order
	index := map[string]int{}
	for rows.Next() {
		var o domain.Order
		if err := rows.Scan(&o.ID, &o.CustomerID, &o.TotalAmount,
			&o.ShippingAddress.Street, &o.ShippingAddress.City, &o.ShippingAddress.State,
			&o.ShippingAddress.ZipCode, &o.ShippingAddress.Country,
			&o.Status, &o.PaymentMethod, &o.PaymentStatus, &o.Notes, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		index[o.ID] = len(orders)
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	itemRows, err := r.pool.Query(ctx, `SELECT order_id, product_id, name, quantity, price
			FROM order_items ORDER BY order_id, line_no`)
	if err != nil {
		return nil, err
	}
	defer itemRows.Close()
	for itemRows.Next() {
		var orderID string
		var item domain.OrderLineItem
		if err := itemRows.Scan(&orderID, &item.ProductID, &item.Name, &item.Quantity, &item.Price); err != nil {
			return nil, err
		}
		if i, ok := index[orderID]; ok {
			orders[i].Items = append(orders[i].Items, item)
		}
	}
	return orders, itemRows.Err()
}

// UpdateStatus writes the new status and the status-change event in one
// transaction, so the event stream never reports a change that was not
// stored.
func (r *Repository) UpdateStatus(ctx context.Context, id string, status domain.OrderStatus, eventType string, payload []byte) (domain.Order, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return domain.Order{}, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	ct, err := tx.Exec(ctx, `UPDATE orders SET status=$2, updated_at=$3 WHERE id=$1`,
		id, status, time.Now().UTC())
	if err != nil {
		return domain.Order{}, err
	}
	if ct.RowsAffected() == 0 {
		return domain.Order{}, domain.ErrOrderNotFound
	}

	_, err = tx.Exec(ctx, `INSERT INTO outbox (aggregate_type, aggregate_id, type, payload, traceparent)
			VALUES ($1,$2,$3,$4,$5)`,
		"order", id, eventType, payload, tracing.Traceparent(ctx))
	if err != nil {
		return domain.Order{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.Order{}, err
	}
	return r.Get(ctx, id)
}

func (r *Repository) UpdatePaymentStatus(ctx context.Context, id string, status domain.PaymentStatus) (domain.Order, error) {
	ct, err := r.pool.Exec(ctx, `UPDATE orders SET payment_status=$2, updated_at=$3 WHERE id=$1`,
		id, status, time.Now().UTC())
	if err != nil {
		return domain.Order{}, err
	}
	if ct.RowsAffected() == 0 {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return r.Get(ctx, id)
}
