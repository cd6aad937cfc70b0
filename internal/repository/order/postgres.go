package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"storefront/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const orderColumns = `id::text, user_id, items, total::text, status, address, user_email, user_name,
       payment_id, gateway_order_id, shipment_ref, created_at, updated_at`

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *logrus.Logger
}

// NewPostgres returns a Repository backed by Postgres JSONB documents.
func NewPostgres(pool *pgxpool.Pool, logger *logrus.Logger) Repository {
	if logger == nil {
		logger = logrus.New()
	}
	return &postgresRepo{pool: pool, logger: logger}
}

func (r *postgresRepo) Create(ctx context.Context, o domain.Order) (*domain.Order, error) {
	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return nil, fmt.Errorf("encode items: %w", err)
	}
	addrJSON, err := json.Marshal(o.Address)
	if err != nil {
		return nil, fmt.Errorf("encode address: %w", err)
	}

	const q = `
INSERT INTO orders (id, user_id, items, total, status, address, user_email, user_name, payment_id, gateway_order_id)
VALUES ($1, $2, $3, $4::numeric, $5, $6, $7, $8, $9, $10)
RETURNING ` + orderColumns

	created, err := r.scanOrder(r.pool.QueryRow(ctx, q,
		o.ID,
		o.UserID,
		itemsJSON,
		o.Total.StringFixed(2),
		string(o.Status),
		addrJSON,
		o.UserEmail,
		o.UserName,
		o.PaymentID,
		o.GatewayOrderID,
	))
	if err != nil {
		return nil, err
	}
	r.logger.WithFields(logrus.Fields{"order_id": created.ID, "payment_id": created.PaymentID}).Info("order repo: created")
	return created, nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	id, err := domain.ParseID(id)
	if err != nil {
		return nil, err
	}
	q := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1::uuid`
	return r.scanOrder(r.pool.QueryRow(ctx, q, id))
}

func (r *postgresRepo) GetByPaymentID(ctx context.Context, paymentID string) (*domain.Order, error) {
	q := `SELECT ` + orderColumns + ` FROM orders WHERE payment_id = $1`
	return r.scanOrder(r.pool.QueryRow(ctx, q, paymentID))
}

func (r *postgresRepo) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	q := `SELECT ` + orderColumns + ` FROM orders WHERE user_id = $1 ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	return r.collect(rows)
}

func (r *postgresRepo) List(ctx context.Context, f ListFilter) ([]domain.Order, int, error) {
	limit := f.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM orders WHERE ($1 = '' OR status = $1)`, string(f.Status)).Scan(&total); err != nil {
		return nil, 0, err
	}

	q := `SELECT ` + orderColumns + `
FROM orders
WHERE ($1 = '' OR status = $1)
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, q, string(f.Status), limit, offset)
	if err != nil {
		return nil, 0, err
	}
	orders, err := r.collect(rows)
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (r *postgresRepo) UpdateStatus(ctx context.Context, id string, to domain.OrderStatus, from []domain.OrderStatus) (*domain.Order, error) {
	id, err := domain.ParseID(id)
	if err != nil {
		return nil, err
	}
	allowed := make([]string, 0, len(from))
	for _, s := range from {
		allowed = append(allowed, string(s))
	}
	q := `
UPDATE orders
SET status = $2, updated_at = now()
WHERE id = $1::uuid AND status = ANY($3::text[])
RETURNING ` + orderColumns

	updated, err := r.scanOrder(r.pool.QueryRow(ctx, q, id, string(to), allowed))
	if err == nil {
		r.logger.WithFields(logrus.Fields{"order_id": id, "status": to}).Info("order repo: status updated")
		return updated, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	// Nothing matched: either the order is gone or its status forbids the move.
	var current string
	if err := r.pool.QueryRow(ctx, `SELECT status FROM orders WHERE id = $1::uuid`, id).Scan(&current); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return nil, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, current, to)
}

func (r *postgresRepo) AttachShipment(ctx context.Context, id, ref string) error {
	id, err := domain.ParseID(id)
	if err != nil {
		return err
	}
	cmd, err := r.pool.Exec(ctx, `UPDATE orders SET shipment_ref = $2, updated_at = now() WHERE id = $1::uuid`, id, ref)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postgresRepo) Delete(ctx context.Context, id string) error {
	id, err := domain.ParseID(id)
	if err != nil {
		return err
	}
	cmd, err := r.pool.Exec(ctx, `DELETE FROM orders WHERE id = $1::uuid`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	r.logger.WithField("order_id", id).Info("order repo: deleted")
	return nil
}

func (r *postgresRepo) collect(rows pgx.Rows) ([]domain.Order, error) {
	defer rows.Close()
	var out []domain.Order
	for rows.Next() {
		o, err := r.scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *postgresRepo) scanOrder(row pgx.Row) (*domain.Order, error) {
	var (
		o                   domain.Order
		itemsJSON, addrJSON []byte
		total, status       string
	)
	err := row.Scan(
		&o.ID,
		&o.UserID,
		&itemsJSON,
		&total,
		&status,
		&addrJSON,
		&o.UserEmail,
		&o.UserName,
		&o.PaymentID,
		&o.GatewayOrderID,
		&o.ShipmentRef,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, domain.ErrAlreadyExists
		}
		r.logger.WithError(err).Error("order repo: scan")
		return nil, err
	}
	o.Status = domain.OrderStatus(status)
	if o.Total, err = decimal.NewFromString(total); err != nil {
		return nil, fmt.Errorf("decode total id=%s: %w", o.ID, err)
	}
	if err := json.Unmarshal(itemsJSON, &o.Items); err != nil {
		return nil, fmt.Errorf("decode items id=%s: %w", o.ID, err)
	}
	if len(addrJSON) > 0 {
		if err := json.Unmarshal(addrJSON, &o.Address); err != nil {
			return nil, fmt.Errorf("decode address id=%s: %w", o.ID, err)
		}
	}
	return &o, nil
}
