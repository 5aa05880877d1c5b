// Package events delivers normalized payment actions to the host
// platform over Kafka, or drops them when no broker is configured.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/IBM/sarama"

	"github.com/common-repository/payflexi-instalment-payment-gateway-for-gravity-forms/internal/models"
)

// Publisher emits payment actions for the host platform to consume.
// Publishing is best effort from the reconciliation engine's point of
// view: the correlation record is already durable when Publish is
// called, so a failed publish must not fail the webhook.
type Publisher interface {
	Publish(ctx context.Context, action *models.PaymentAction) error
	Close() error
}

// NoOpPublisher drops every action. Used when Kafka is disabled; the
// host platform can still poll the correlation store.
type NoOpPublisher struct {
	logger *slog.Logger
}

// NewNoOpPublisher creates a publisher that logs and discards actions.
func NewNoOpPublisher(logger *slog.Logger) *NoOpPublisher {
	return &NoOpPublisher{logger: logger}
}

func (p *NoOpPublisher) Publish(_ context.Context, action *models.PaymentAction) error {
	p.logger.Debug("dropping payment action, no publisher configured",
		slog.String("action_id", action.ID),
		slog.Int64("submission_id", action.SubmissionID),
	)
	return nil
}

func (p *NoOpPublisher) Close() error { return nil }

// KafkaPublisher emits payment actions to a Kafka topic. Messages are
// keyed by action id so re-deliveries of the same processor event land
// on the same partition in order.
type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
	logger   *slog.Logger
}

// NewKafkaPublisher connects a synchronous producer to the given brokers.
func NewKafkaPublisher(brokers []string, topic string, logger *slog.Logger) (*KafkaPublisher, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5
	cfg.Producer.Return.Successes = true

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	return &KafkaPublisher{
		producer: producer,
		topic:    topic,
		logger:   logger,
	}, nil
}

func (p *KafkaPublisher) Publish(_ context.Context, action *models.PaymentAction) error {
	payload, err := json.Marshal(action)
	if err != nil {
		return fmt.Errorf("failed to encode payment action: %w", err)
	}

	partition, offset, err := p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(action.ID),
		Value: sarama.ByteEncoder(payload),
	})
	if err != nil {
		return fmt.Errorf("failed to publish payment action: %w", err)
	}

	p.logger.Info("published payment action",
		slog.String("action_id", action.ID),
		slog.Int64("submission_id", action.SubmissionID),
		slog.Int("partition", int(partition)),
		slog.Int64("offset", offset),
	)
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}

var (
	_ Publisher = (*NoOpPublisher)(nil)
	_ Publisher = (*KafkaPublisher)(nil)
)
