package wishlist

import (
	"context"
	"errors"

	"storefront/internal/domain"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type postgresRepo struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) Repository {
	return &postgresRepo{pool: pool}
}

func (r *postgresRepo) List(ctx context.Context, userID string) ([]domain.WishlistItem, error) {
	const q = `
SELECT p.id::text, p.sku, p.name, p.price_cents, p.currency, w.created_at
FROM wishlist_items w
JOIN products p ON p.id = w.product_id
WHERE w.user_id = $1
ORDER BY w.created_at DESC
`
	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []domain.WishlistItem{}
	for rows.Next() {
		var it domain.WishlistItem
		if err := rows.Scan(&it.ProductID, &it.SKU, &it.Name, &it.PriceCents, &it.Currency, &it.AddedAt); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *postgresRepo) Add(ctx context.Context, userID, productID string) error {
	productID, err := domain.ParseID(productID)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
INSERT INTO wishlist_items (user_id, product_id)
VALUES ($1, $2::uuid)
ON CONFLICT (user_id, product_id) DO NOTHING
`, userID, productID)
	if err != nil {
		var pgErr *pgconn.PgError
		// 23503: foreign key violation.
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return domain.ErrNotFound
		}
		return err
	}
	return nil
}

func (r *postgresRepo) Remove(ctx context.Context, userID, productID string) error {
	productID, err := domain.ParseID(productID)
	if err != nil {
		return err
	}
	cmd, err := r.pool.Exec(ctx, `
DELETE FROM wishlist_items
WHERE user_id = $1 AND product_id = $2::uuid
`, userID, productID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
