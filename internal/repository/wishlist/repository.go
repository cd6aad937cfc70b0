package wishlist

import (
	"context"

	"storefront/internal/domain"
)

// Repository stores saved products per user. Add is idempotent.
type Repository interface {
	List(ctx context.Context, userID string) ([]domain.WishlistItem, error)
	Add(ctx context.Context, userID, productID string) error
	Remove(ctx context.Context, userID, productID string) error
}
