package consumer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"

	"pulsefeed-post-service/internal/config"
	"pulsefeed-post-service/internal/logger"
)

const pollTimeoutMs = 100

// KafkaConsumer drives the AccountDeletionHandler from the account-deletion
// topic. Offsets are stored only after a message is handled successfully, so
// a handler failure leaves the offset behind and the broker redelivers.
type KafkaConsumer struct {
	consumer *kafka.Consumer
	handler  *AccountDeletionHandler
	log      *logger.Logger
}

func NewKafkaConsumer(cfg config.Kafka, handler *AccountDeletionHandler, log *logger.Logger) (*KafkaConsumer, error) {
	consumer, err := kafka.NewConsumer(&kafka.ConfigMap{
		"bootstrap.servers": cfg.Brokers,
		"group.id":          cfg.GroupID,
		"auto.offset.reset": cfg.OffsetReset,

		// At-least-once: the background commit only ever commits offsets we
		// stored explicitly after a successful Handle.
		"enable.auto.commit":       true,
		"enable.auto.offset.store": false,
	})
	if err != nil {
		log.Error("Failed to create Kafka consumer", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to create kafka consumer: %w", err)
	}

	if err := consumer.SubscribeTopics([]string{cfg.Topic}, nil); err != nil {
		log.Error("Failed to subscribe to topic",
			slog.String("topic", cfg.Topic),
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to subscribe to topic %s: %w", cfg.Topic, err)
	}

	log.Info("Kafka consumer subscribed",
		slog.String("topic", cfg.Topic),
		slog.String("group_id", cfg.GroupID))

	return &KafkaConsumer{
		consumer: consumer,
		handler:  handler,
		log:      log,
	}, nil
}

func (c *KafkaConsumer) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			ev := c.consumer.Poll(pollTimeoutMs)
			if ev == nil {
				continue
			}

			switch e := ev.(type) {
			case *kafka.Message:
				if err := c.handler.Handle(ctx, e.Value); err != nil {
					// Offset not stored: the broker will redeliver.
					c.log.Error("Event handling failed, leaving offset for redelivery",
						slog.String("topic_partition", e.TopicPartition.String()),
						slog.String("error", err.Error()))
					continue
				}
				if _, err := c.consumer.StoreMessage(e); err != nil {
					c.log.Error("Failed to store offset",
						slog.String("topic_partition", e.TopicPartition.String()),
						slog.String("error", err.Error()))
				}
			case kafka.Error:
				c.log.Error("Kafka consumer error", slog.String("error", e.Error()))
			}
		}
	}
}

func (c *KafkaConsumer) Close() error {
	if err := c.consumer.Close(); err != nil {
		c.log.Error("Failed to close Kafka consumer", slog.String("error", err.Error()))
		return fmt.Errorf("failed to close kafka consumer: %w", err)
	}

	c.log.Info("Kafka consumer closed")
	return nil
}
