package order

import (
	"context"
	"errors"

	"storefront/internal/domain"
	orderrepo "storefront/internal/repository/order"

	"github.com/sirupsen/logrus"
)

type Service struct {
	repo   orderrepo.Repository
	logger *logrus.Logger
}

func New(repo orderrepo.Repository, logger *logrus.Logger) *Service {
	if logger == nil {
		logger = logrus.New()
	}
	return &Service{repo: repo, logger: logger}
}

// Page is one slice of the admin order listing.
type Page struct {
	Orders []domain.Order `json:"orders"`
	Total  int            `json:"total"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

// ListForUser returns the caller's orders, newest first.
func (s *Service) ListForUser(ctx context.Context, userID string) ([]domain.Order, error) {
	orders, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	return orders, nil
}

// GetForUser hides orders owned by someone else behind ErrNotFound.
func (s *Service) GetForUser(ctx context.Context, userID, id string) (*domain.Order, error) {
	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.UserID != userID {
		return nil, domain.ErrNotFound
	}
	return o, nil
}

// List is the admin listing. An empty status means all.
func (s *Service) List(ctx context.Context, status string, limit, offset int) (*Page, error) {
	var filter orderrepo.ListFilter
	if status != "" {
		st, ok := domain.ParseStatus(status)
		if !ok {
			return nil, domain.Invalid("status", "unknown status "+status)
		}
		filter.Status = st
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	filter.Limit, filter.Offset = limit, offset

	orders, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	return &Page{Orders: orders, Total: total, Limit: limit, Offset: offset}, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Order, error) {
	return s.repo.GetByID(ctx, id)
}

// UpdateStatus moves an order to status if the lifecycle allows it.
func (s *Service) UpdateStatus(ctx context.Context, id, status string) (*domain.Order, error) {
	to, ok := domain.ParseStatus(status)
	if !ok {
		return nil, domain.Invalid("status", "unknown status "+status)
	}
	o, err := s.repo.UpdateStatus(ctx, id, to, domain.SourcesFor(to))
	if err != nil {
		return nil, err
	}
	s.logger.WithFields(logrus.Fields{"order_id": id, "status": to}).Info("order status changed")
	return o, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.WithField("order_id", id).Warn("order deleted by admin")
	return nil
}

// RecordShipment stores ref and moves a pending order to processing. An order
// already past processing keeps its status.
func (s *Service) RecordShipment(ctx context.Context, id, ref string) error {
	_, err := s.repo.UpdateStatus(ctx, id, domain.StatusProcessing, domain.SourcesFor(domain.StatusProcessing))
	if err != nil && !errors.Is(err, domain.ErrInvalidTransition) {
		return err
	}
	if ref == "" {
		return nil
	}
	return s.repo.AttachShipment(ctx, id, ref)
}
