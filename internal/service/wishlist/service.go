package wishlist

import (
	"context"
	"strings"

	"storefront/internal/domain"
	wishlistrepo "storefront/internal/repository/wishlist"
)

type Service struct {
	repo wishlistrepo.Repository
}

func New(repo wishlistrepo.Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, userID string) ([]domain.WishlistItem, error) {
	return s.repo.List(ctx, userID)
}

// Add saves productID; adding twice is not an error.
func (s *Service) Add(ctx context.Context, userID, productID string) ([]domain.WishlistItem, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return nil, domain.Invalid("productId", "required")
	}
	if err := s.repo.Add(ctx, userID, productID); err != nil {
		return nil, err
	}
	return s.repo.List(ctx, userID)
}

func (s *Service) Remove(ctx context.Context, userID, productID string) ([]domain.WishlistItem, error) {
	if err := s.repo.Remove(ctx, userID, strings.TrimSpace(productID)); err != nil {
		return nil, err
	}
	return s.repo.List(ctx, userID)
}
