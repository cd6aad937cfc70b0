package cart

import (
	"context"

	"storefront/internal/domain"
)

// Repository stores the per-user cart. Lines are priced from the catalogue
// when the cart is read.
type Repository interface {
	Get(ctx context.Context, userID string) (*domain.Cart, error)
	AddItem(ctx context.Context, userID, productID string, quantity int) error
	SetQuantity(ctx context.Context, userID, productID string, quantity int) error
	RemoveItem(ctx context.Context, userID, productID string) error
	Clear(ctx context.Context, userID string) error
}
