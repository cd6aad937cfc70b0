package order

import (
	"context"

	"storefront/internal/domain"
)

// ListFilter narrows admin listings. A zero Status matches every status.
type ListFilter struct {
	Status domain.OrderStatus
	Limit  int
	Offset int
}

// Repository persists orders.
type Repository interface {
	Create(ctx context.Context, o domain.Order) (*domain.Order, error)
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	GetByPaymentID(ctx context.Context, paymentID string) (*domain.Order, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Order, error)
	List(ctx context.Context, f ListFilter) ([]domain.Order, int, error)
	// UpdateStatus moves the order to status to only if it is currently in one
	// of from. It returns domain.ErrNotFound or domain.ErrInvalidTransition.
	UpdateStatus(ctx context.Context, id string, to domain.OrderStatus, from []domain.OrderStatus) (*domain.Order, error)
	AttachShipment(ctx context.Context, id, ref string) error
	Delete(ctx context.Context, id string) error
}
