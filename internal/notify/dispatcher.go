// Package notify fans a placed order out to email and event channels.
package notify

import (
	"context"
	"time"

	"storefront/internal/domain"
	"storefront/internal/metrics"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Channel names reported in outcomes and metrics.
const (
	ChannelCustomerOrder   = "customer_order_email"
	ChannelCustomerPayment = "customer_payment_email"
	ChannelAdminOrder      = "admin_order_email"
	ChannelOrderEvent      = "order_event"
)

// Outcome is the result of one notification task. Err is nil on success.
type Outcome struct {
	Channel string
	Err     error
}

// EventPublisher emits order events.
type EventPublisher interface {
	PublishOrderCreated(ctx context.Context, o domain.Order) error
}

type Options struct {
	StoreName  string
	AdminEmail string
	Timeout    time.Duration
}

// Dispatcher runs every channel concurrently; one failing task never stops
// the others.
type Dispatcher struct {
	sender Sender
	events EventPublisher
	opts   Options
	logger *logrus.Logger
}

// NewDispatcher builds a Dispatcher. events may be nil.
func NewDispatcher(sender Sender, events EventPublisher, opts Options, logger *logrus.Logger) *Dispatcher {
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.StoreName == "" {
		opts.StoreName = "Storefront"
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Dispatcher{sender: sender, events: events, opts: opts, logger: logger}
}

type task struct {
	channel string
	run     func(ctx context.Context) error
}

// OrderPlaced notifies customer and admin about o and returns one outcome
// per channel in a fixed order.
func (d *Dispatcher) OrderPlaced(ctx context.Context, o domain.Order) []Outcome {
	ctx, cancel := context.WithTimeout(ctx, d.opts.Timeout)
	defer cancel()

	view := newOrderView(d.opts.StoreName, o)
	tasks := []task{
		{ChannelCustomerOrder, d.mail("order_confirmation", view, o.UserEmail, "Your "+d.opts.StoreName+" order "+o.ID)},
		{ChannelCustomerPayment, d.mail("payment_confirmation", view, o.UserEmail, "Payment received for order "+o.ID)},
		{ChannelAdminOrder, d.mail("admin_notification", view, d.opts.AdminEmail, "New order "+o.ID)},
	}
	if d.events != nil {
		tasks = append(tasks, task{ChannelOrderEvent, func(ctx context.Context) error {
			return d.events.PublishOrderCreated(ctx, o)
		}})
	}

	outcomes := make([]Outcome, len(tasks))
	var g errgroup.Group
	for i, t := range tasks {
		g.Go(func() error {
			err := t.run(ctx)
			outcomes[i] = Outcome{Channel: t.channel, Err: err}
			entry := d.logger.WithFields(logrus.Fields{"channel": t.channel, "order_id": o.ID})
			if err != nil {
				metrics.Notifications.WithLabelValues(t.channel, metrics.ResultError).Inc()
				entry.WithError(err).Warn("notification failed")
				return nil
			}
			metrics.Notifications.WithLabelValues(t.channel, metrics.ResultOK).Inc()
			entry.Info("notification sent")
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

func (d *Dispatcher) mail(tmpl string, view orderView, to, subject string) func(context.Context) error {
	return func(ctx context.Context) error {
		if to == "" {
			return domain.Invalid("to", "recipient not set")
		}
		html, err := render(tmpl, view)
		if err != nil {
			return err
		}
		return d.sender.Send(ctx, Message{To: []string{to}, Subject: subject, HTML: html})
	}
}

// Failures returns the outcomes that carry an error.
func Failures(outcomes []Outcome) []Outcome {
	var out []Outcome
	for _, o := range outcomes {
		if o.Err != nil {
			out = append(out, o)
		}
	}
	return out
}
