package kafka

import (
	"context"
	"log"

	"github.com/segmentio/kafka-go"
)

// EventHandler processes one journal event from the stream. The key is
// the session ID the event was published under.
type EventHandler func(ctx context.Context, key, value []byte) error

// EventReader consumes the cart-event topic within a consumer group.
type EventReader struct {
	reader *kafka.Reader
}

func NewEventReader(brokers []string, topic, groupID string) *EventReader {
	return &EventReader{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  brokers,
			Topic:    topic,
			GroupID:  groupID,
			MinBytes: 10e3, // 10KB
			MaxBytes: 10e6, // 10MB
		}),
	}
}

// Run consumes events until the context is cancelled. Handler errors
// drop the message after logging; the journal is telemetry, not state,
// so there is no retry.
func (r *EventReader) Run(ctx context.Context, handle EventHandler) error {
	for {
		msg, err := r.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Printf("[Kafka] Error reading message: %v", err)
			continue
		}

		if err := handle(ctx, msg.Key, msg.Value); err != nil {
			log.Printf("[Kafka] Error handling message: %v", err)
		}
	}
}

func (r *EventReader) Close() error {
	return r.reader.Close()
}
