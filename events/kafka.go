package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkaGo "github.com/segmentio/kafka-go"
)

// KafkaPublisher writes events as JSON, keyed by order id so every event of
// one order lands on the same partition.
type KafkaPublisher struct {
	writer *kafkaGo.Writer
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafkaGo.Writer{
			Addr:                   kafkaGo.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafkaGo.Hash{},
			AllowAutoTopicCreation: true,
		},
	}
}

func (k *KafkaPublisher) Publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	err = k.writer.WriteMessages(ctx, kafkaGo.Message{
		Key:   []byte(event.Order.ID.Hex()),
		Value: payload,
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}
	return nil
}

func (k *KafkaPublisher) Close() error {
	return k.writer.Close()
}

// NewKafkaReader creates a consumer-group reader for topic.
func NewKafkaReader(brokers []string, topic, groupID string) *kafkaGo.Reader {
	return kafkaGo.NewReader(kafkaGo.ReaderConfig{
		Brokers: brokers,
		Topic:   topic,
		GroupID: groupID,
	})
}

// MessageReader is the part of *kafka.Reader that Consume needs.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafkaGo.Message, error)
}

const readRetryDelay = time.Second

// Consume decodes events from reader and passes them to handler until ctx is
// cancelled. Undecodable messages and handler failures are logged and skipped.
func Consume(ctx context.Context, reader MessageReader, logger *slog.Logger, handler Publisher) {
	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				logger.Info("consumer shutting down", "topic", msg.Topic)
				return
			}
			logger.Error("error reading message", "err", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(readRetryDelay):
			}
			continue
		}

		var event Event
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			logger.Error("error decoding event", "topic", msg.Topic, "offset", msg.Offset, "err", err)
			continue
		}
		if err := handler.Publish(ctx, event); err != nil {
			logger.Error("error handling event", "topic", msg.Topic, "event_id", event.ID, "err", err)
		}
	}
}
