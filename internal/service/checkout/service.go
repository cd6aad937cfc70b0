// Package checkout issues payment intents and turns verified payments into orders.
package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"storefront/internal/domain"
	"storefront/internal/metrics"
	"storefront/internal/notify"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const idempotencyScope = "payment"

// MaxAmount bounds charge amounts and order totals in major units. It matches
// the NUMERIC(14, 2) orders.total column and keeps minor units well inside int64.
var MaxAmount = decimal.New(1, 12)

// Gateway is the payment provider.
type Gateway interface {
	CreateOrder(ctx context.Context, amount int64, currency, receipt string) (json.RawMessage, error)
	VerifyPayment(orderID, paymentID, signature string) error
}

type Orders interface {
	Create(ctx context.Context, o domain.Order) (*domain.Order, error)
	GetByPaymentID(ctx context.Context, paymentID string) (*domain.Order, error)
}

// Locks guards concurrent finalize calls for one payment.
type Locks interface {
	TryLock(ctx context.Context, scope, key string) (bool, error)
	Release(ctx context.Context, scope, key string) error
	Remember(ctx context.Context, scope, key, value string) error
	Recall(ctx context.Context, scope, key string) (string, bool, error)
}

type Notifier interface {
	OrderPlaced(ctx context.Context, o domain.Order) []notify.Outcome
}

type Carts interface {
	Clear(ctx context.Context, userID string) error
}

// Service wires the gateway, the order store and the notification fan-out.
// locks and carts may be nil.
type Service struct {
	gateway  Gateway
	orders   Orders
	locks    Locks
	notifier Notifier
	carts    Carts
	logger   *logrus.Logger
}

func New(gateway Gateway, orders Orders, locks Locks, notifier Notifier, carts Carts, logger *logrus.Logger) *Service {
	if logger == nil {
		logger = logrus.New()
	}
	return &Service{
		gateway:  gateway,
		orders:   orders,
		locks:    locks,
		notifier: notifier,
		carts:    carts,
		logger:   logger,
	}
}

// IntentInput is a charge request in major currency units.
type IntentInput struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
	Receipt  string          `json:"receipt"`
}

// MinorUnits converts a major-unit amount to minor units, rounding half away
// from zero at the second decimal. Amounts at or above MaxAmount are rejected
// before conversion so IntPart cannot wrap.
func MinorUnits(amount decimal.Decimal) (int64, error) {
	if amount.Abs().GreaterThanOrEqual(MaxAmount) {
		return 0, domain.Invalid("amount", "too large")
	}
	return amount.Shift(2).Round(0).IntPart(), nil
}

// CreateIntent asks the gateway for an order token and returns it verbatim.
func (s *Service) CreateIntent(ctx context.Context, in IntentInput) (json.RawMessage, error) {
	if !in.Amount.IsPositive() {
		return nil, domain.Invalid("amount", "must be greater than zero")
	}
	receipt := strings.TrimSpace(in.Receipt)
	if receipt == "" {
		return nil, domain.Invalid("receipt", "required")
	}
	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if currency == "" {
		currency = "INR"
	}
	if len(currency) != 3 {
		return nil, domain.Invalid("currency", "must be a 3-letter ISO code")
	}
	minor, err := MinorUnits(in.Amount)
	if err != nil {
		return nil, err
	}
	if minor < 1 {
		return nil, domain.Invalid("amount", "rounds to zero")
	}
	return s.gateway.CreateOrder(ctx, minor, currency, receipt)
}

// OrderData is the client's description of the order being paid for.
type OrderData struct {
	UserID    string             `json:"userId"`
	Items     []domain.OrderItem `json:"items"`
	Total     decimal.Decimal    `json:"total"`
	Address   domain.Address     `json:"address"`
	UserEmail string             `json:"userEmail"`
	UserName  string             `json:"userName"`
}

type FinalizeInput struct {
	GatewayOrderID string    `json:"razorpay_order_id"`
	PaymentID      string    `json:"razorpay_payment_id"`
	Signature      string    `json:"razorpay_signature"`
	OrderData      OrderData `json:"orderData"`
}

// FinalizeResult reports what happened. Notifications and Warnings are for
// logs and metrics only; the caller's response depends on OrderID alone.
type FinalizeResult struct {
	OrderID       string
	Duplicate     bool
	Notifications []notify.Outcome
	Warnings      []string
}

func (in FinalizeInput) validate() error {
	switch {
	case strings.TrimSpace(in.GatewayOrderID) == "":
		return domain.Invalid("razorpay_order_id", "required")
	case strings.TrimSpace(in.PaymentID) == "":
		return domain.Invalid("razorpay_payment_id", "required")
	case strings.TrimSpace(in.Signature) == "":
		return domain.Invalid("razorpay_signature", "required")
	case strings.TrimSpace(in.OrderData.UserID) == "":
		return domain.Invalid("orderData.userId", "required")
	case strings.TrimSpace(in.OrderData.UserEmail) == "":
		return domain.Invalid("orderData.userEmail", "required")
	case len(in.OrderData.Items) == 0:
		return domain.Invalid("orderData.items", "at least one item required")
	case !in.OrderData.Total.Equal(in.OrderData.Total.Round(2)):
		return domain.Invalid("orderData.total", "at most 2 decimal places")
	case in.OrderData.Total.Abs().GreaterThanOrEqual(MaxAmount):
		return domain.Invalid("orderData.total", "too large")
	}
	for _, it := range in.OrderData.Items {
		if it.Quantity < 1 {
			return domain.Invalid("orderData.items.quantity", "must be at least 1")
		}
		if it.Price.IsNegative() {
			return domain.Invalid("orderData.items.price", "must not be negative")
		}
	}
	return nil
}

// Finalize verifies the payment signature, persists at most one order per
// payment id and fans out notifications. Notification failures never fail
// the call.
func (s *Service) Finalize(ctx context.Context, in FinalizeInput) (*FinalizeResult, error) {
	if err := in.validate(); err != nil {
		metrics.OrdersFinalized.WithLabelValues("invalid").Inc()
		return nil, err
	}
	paymentID := strings.TrimSpace(in.PaymentID)
	gatewayOrderID := strings.TrimSpace(in.GatewayOrderID)
	log := s.logger.WithFields(logrus.Fields{"payment_id": paymentID, "gateway_order_id": gatewayOrderID})

	if err := s.gateway.VerifyPayment(gatewayOrderID, paymentID, in.Signature); err != nil {
		metrics.OrdersFinalized.WithLabelValues("rejected").Inc()
		log.WithError(err).Warn("payment signature rejected")
		return nil, err
	}

	if res, ok, err := s.replay(ctx, paymentID, log); err != nil || ok {
		return res, err
	}

	o := s.newOrder(in)
	var warnings []string
	if sum := domain.ItemsTotal(o.Items); !sum.Equal(o.Total) {
		msg := fmt.Sprintf("order total %s differs from item sum %s", o.Total.StringFixed(2), sum.StringFixed(2))
		warnings = append(warnings, msg)
		log.WithField("order_id", o.ID).Warn(msg)
	}

	created, err := s.orders.Create(ctx, o)
	if errors.Is(err, domain.ErrAlreadyExists) {
		// Lost a race that the lock did not catch; the other writer won.
		existing, getErr := s.orders.GetByPaymentID(ctx, paymentID)
		if getErr != nil {
			return nil, getErr
		}
		metrics.OrdersFinalized.WithLabelValues("duplicate").Inc()
		return &FinalizeResult{OrderID: existing.ID, Duplicate: true}, nil
	}
	if err != nil {
		s.release(ctx, paymentID, log)
		metrics.OrdersFinalized.WithLabelValues(metrics.ResultError).Inc()
		log.WithError(err).Error("payment captured but order not persisted; needs reconciliation")
		return nil, fmt.Errorf("persist order: %w", err)
	}
	log = log.WithField("order_id", created.ID)
	log.Info("order persisted")
	metrics.OrdersFinalized.WithLabelValues("created").Inc()

	if s.locks != nil {
		if err := s.locks.Remember(ctx, idempotencyScope, paymentID, created.ID); err != nil {
			log.WithError(err).Warn("idempotency store: remember failed")
		}
	}

	// Side effects run even if the client has gone away.
	sideCtx := context.WithoutCancel(ctx)
	outcomes := s.notifier.OrderPlaced(sideCtx, *created)
	for _, f := range notify.Failures(outcomes) {
		warnings = append(warnings, f.Channel+": "+f.Err.Error())
	}

	if s.carts != nil {
		if err := s.carts.Clear(sideCtx, created.UserID); err != nil {
			warnings = append(warnings, "cart: "+err.Error())
			log.WithError(err).Warn("cart clear failed")
		}
	}

	if len(warnings) > 0 {
		log.WithField("warnings", warnings).Warn("order finalized with warnings")
	}
	return &FinalizeResult{OrderID: created.ID, Notifications: outcomes, Warnings: warnings}, nil
}

// replay reports an already finalized payment. ok is true when the caller
// should return res as is.
func (s *Service) replay(ctx context.Context, paymentID string, log *logrus.Entry) (*FinalizeResult, bool, error) {
	duplicate := func(orderID string) (*FinalizeResult, bool, error) {
		metrics.OrdersFinalized.WithLabelValues("duplicate").Inc()
		log.WithField("order_id", orderID).Info("payment already finalized")
		return &FinalizeResult{OrderID: orderID, Duplicate: true}, true, nil
	}

	if s.locks != nil {
		if id, found, err := s.locks.Recall(ctx, idempotencyScope, paymentID); err != nil {
			log.WithError(err).Warn("idempotency store unavailable; relying on database constraint")
		} else if found {
			// The memo can outlive the row when an admin deletes the order.
			existing, getErr := s.orders.GetByPaymentID(ctx, paymentID)
			switch {
			case getErr == nil:
				return duplicate(existing.ID)
			case errors.Is(getErr, domain.ErrNotFound):
				log.WithField("order_id", id).Info("remembered order no longer stored; finalizing again")
				if err := s.locks.Release(ctx, idempotencyScope, paymentID); err != nil {
					log.WithError(err).Warn("idempotency lock release failed")
				}
			default:
				return nil, true, getErr
			}
		}

		acquired, err := s.locks.TryLock(ctx, idempotencyScope, paymentID)
		switch {
		case err != nil:
			log.WithError(err).Warn("idempotency lock failed; relying on database constraint")
		case !acquired:
			if existing, getErr := s.orders.GetByPaymentID(ctx, paymentID); getErr == nil {
				return duplicate(existing.ID)
			}
			metrics.OrdersFinalized.WithLabelValues("in_flight").Inc()
			return nil, true, fmt.Errorf("%w: payment %s is being finalized", domain.ErrConflict, paymentID)
		}
	}

	existing, err := s.orders.GetByPaymentID(ctx, paymentID)
	switch {
	case err == nil:
		return duplicate(existing.ID)
	case errors.Is(err, domain.ErrNotFound):
		return nil, false, nil
	default:
		s.release(ctx, paymentID, log)
		return nil, true, err
	}
}

func (s *Service) release(ctx context.Context, paymentID string, log *logrus.Entry) {
	if s.locks == nil {
		return
	}
	if err := s.locks.Release(context.WithoutCancel(ctx), idempotencyScope, paymentID); err != nil {
		log.WithError(err).Warn("idempotency lock release failed")
	}
}

func (s *Service) newOrder(in FinalizeInput) domain.Order {
	d := in.OrderData
	return domain.Order{
		ID:             uuid.NewString(),
		UserID:         strings.TrimSpace(d.UserID),
		Items:          d.Items,
		Total:          d.Total,
		Status:         domain.StatusPending,
		Address:        d.Address,
		UserEmail:      strings.TrimSpace(d.UserEmail),
		UserName:       strings.TrimSpace(d.UserName),
		PaymentID:      strings.TrimSpace(in.PaymentID),
		GatewayOrderID: strings.TrimSpace(in.GatewayOrderID),
	}
}
