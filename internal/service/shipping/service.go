// Package shipping hands placed orders to the shipping provider.
package shipping

import (
	"context"

	"storefront/internal/domain"
	"storefront/internal/shipping/shiprocket"

	"github.com/sirupsen/logrus"
)

type Provider interface {
	CreateOrder(ctx context.Context, s domain.Shipment) (*shiprocket.Result, error)
}

// Recorder stores the provider reference against the internal order.
type Recorder interface {
	RecordShipment(ctx context.Context, orderID, ref string) error
}

type Service struct {
	provider Provider
	orders   Recorder
	logger   *logrus.Logger
}

// New builds a Service. orders may be nil.
func New(provider Provider, orders Recorder, logger *logrus.Logger) *Service {
	if logger == nil {
		logger = logrus.New()
	}
	return &Service{provider: provider, orders: orders, logger: logger}
}

// Handoff submits s once. There is no retry: a failure is returned to the
// caller and the order keeps its current status.
func (s *Service) Handoff(ctx context.Context, shipment domain.Shipment) (*shiprocket.Result, error) {
	if err := shipment.Validate(); err != nil {
		return nil, err
	}
	log := s.logger.WithField("order_id", shipment.OrderID)

	res, err := s.provider.CreateOrder(ctx, shipment)
	if err != nil {
		log.WithError(err).Error("shipping handoff failed")
		return nil, err
	}

	if s.orders != nil {
		if err := s.orders.RecordShipment(context.WithoutCancel(ctx), shipment.OrderID, res.ShipmentRef); err != nil {
			log.WithError(err).Warn("shipment created but order not updated")
		}
	}
	return res, nil
}
