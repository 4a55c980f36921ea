// Package kafka moves the cart-event journal between the API process
// and downstream consumers.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// EventWriter publishes journal events to the cart-event topic.
// Messages are keyed by session ID and hash-balanced, so one session's
// events land on one partition and stay in mutation order.
type EventWriter struct {
	writer *kafka.Writer
}

func NewEventWriter(brokers []string, topic string) *EventWriter {
	return &EventWriter{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			BatchTimeout: 10 * time.Millisecond,
		},
	}
}

// Publish sends one event keyed by session ID.
func (w *EventWriter) Publish(ctx context.Context, sessionID string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal cart event: %w", err)
	}

	return w.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(sessionID),
		Value: payload,
		Time:  time.Now(),
	})
}

func (w *EventWriter) Close() error {
	return w.writer.Close()
}
