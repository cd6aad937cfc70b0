package notify

import (
	"context"
	"encoding/json"
	"time"

	"storefront/internal/domain"

	"github.com/IBM/sarama"
	"github.com/sirupsen/logrus"
)

// OrderCreatedEvent is published once per finalized order.
type OrderCreatedEvent struct {
	OrderID   string    `json:"order_id"`
	UserID    string    `json:"user_id"`
	PaymentID string    `json:"payment_id"`
	Total     string    `json:"total"`
	Items     int       `json:"items"`
	CreatedAt time.Time `json:"created_at"`
	EventTime time.Time `json:"event_time"`
}

// KafkaPublisher writes order events with a synchronous producer.
type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
	logger   *logrus.Logger
}

func NewKafkaPublisher(brokers []string, topic string, logger *logrus.Logger) (*KafkaPublisher, error) {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 3
	config.Producer.Return.Successes = true
	config.Version = sarama.V2_6_0_0

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, err
	}
	return NewPublisherWithProducer(producer, topic, logger), nil
}

// NewPublisherWithProducer wraps an existing producer.
func NewPublisherWithProducer(producer sarama.SyncProducer, topic string, logger *logrus.Logger) *KafkaPublisher {
	if topic == "" {
		topic = "order.created"
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &KafkaPublisher{producer: producer, topic: topic, logger: logger}
}

func (p *KafkaPublisher) PublishOrderCreated(ctx context.Context, o domain.Order) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(OrderCreatedEvent{
		OrderID:   o.ID,
		UserID:    o.UserID,
		PaymentID: o.PaymentID,
		Total:     o.Total.StringFixed(2),
		Items:     len(o.Items),
		CreatedAt: o.CreatedAt,
		EventTime: time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	partition, offset, err := p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(o.ID),
		Value: sarama.ByteEncoder(data),
	})
	if err != nil {
		p.logger.WithError(err).WithField("order_id", o.ID).Error("failed to publish order event")
		return &domain.UpstreamError{Service: "kafka", Err: err}
	}

	p.logger.WithFields(logrus.Fields{
		"topic":     p.topic,
		"partition": partition,
		"offset":    offset,
		"order_id":  o.ID,
	}).Info("order event published")
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}
