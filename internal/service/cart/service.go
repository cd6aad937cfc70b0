package cart

import (
	"context"
	"strings"

	"storefront/internal/domain"
	cartrepo "storefront/internal/repository/cart"
)

// maxQuantity caps a single line.
const maxQuantity = 99

type Service struct {
	repo cartrepo.Repository
}

func New(repo cartrepo.Repository) *Service {
	return &Service{repo: repo}
}

// ItemInput is the body of add/update item calls.
type ItemInput struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

func (s *Service) Get(ctx context.Context, userID string) (*domain.Cart, error) {
	return s.repo.Get(ctx, userID)
}

// AddItem adds quantity to the line for productID, creating it if needed.
func (s *Service) AddItem(ctx context.Context, userID string, in ItemInput) (*domain.Cart, error) {
	productID := strings.TrimSpace(in.ProductID)
	if productID == "" {
		return nil, domain.Invalid("productId", "required")
	}
	if in.Quantity == 0 {
		in.Quantity = 1
	}
	if in.Quantity < 0 || in.Quantity > maxQuantity {
		return nil, domain.Invalid("quantity", "must be between 1 and 99")
	}
	if err := s.repo.AddItem(ctx, userID, productID, in.Quantity); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, userID)
}

// SetQuantity overwrites a line's quantity; zero or less removes the line.
func (s *Service) SetQuantity(ctx context.Context, userID, productID string, quantity int) (*domain.Cart, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return nil, domain.Invalid("productId", "required")
	}
	if quantity > maxQuantity {
		return nil, domain.Invalid("quantity", "must be at most 99")
	}
	if err := s.repo.SetQuantity(ctx, userID, productID, quantity); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, userID)
}

func (s *Service) RemoveItem(ctx context.Context, userID, productID string) (*domain.Cart, error) {
	if err := s.repo.RemoveItem(ctx, userID, strings.TrimSpace(productID)); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, userID)
}

func (s *Service) Clear(ctx context.Context, userID string) error {
	return s.repo.Clear(ctx, userID)
}
