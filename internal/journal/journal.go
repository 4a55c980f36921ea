// Package journal keeps an append-only record of cart mutations and
// fans them out to Kafka for downstream analytics. It is observability
// plumbing only: the cart engine never reads it back, and losing it
// loses nothing but telemetry.
package journal

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/example/grocer-shop/internal/domain/cart"
)

// Event is one recorded cart mutation.
type Event struct {
	ID        string          `json:"id"`
	SessionID string          `json:"session_id"`
	EventType string          `json:"event_type"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
	Version   int             `json:"version"`
}

// Publisher delivers events to a message broker.
type Publisher interface {
	Publish(ctx context.Context, key string, event any) error
}

// Journal stores events per session and publishes them. A nil
// publisher disables fan-out.
type Journal struct {
	mu        sync.RWMutex
	events    map[string][]Event // sessionID -> events
	publisher Publisher
}

func New(publisher Publisher) *Journal {
	return &Journal{
		events:    make(map[string][]Event),
		publisher: publisher,
	}
}

// Append records an event for a session and publishes it.
func (j *Journal) Append(ctx context.Context, sessionID, eventType string, data any) (*Event, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	j.mu.Lock()
	event := Event{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		EventType: eventType,
		Data:      jsonData,
		Timestamp: time.Now(),
		Version:   len(j.events[sessionID]) + 1,
	}
	j.events[sessionID] = append(j.events[sessionID], event)
	j.mu.Unlock()

	if j.publisher != nil {
		if err := j.publisher.Publish(ctx, sessionID, event); err != nil {
			return nil, err
		}
	}

	return &event, nil
}

// Events returns all recorded events for a session.
func (j *Journal) Events(sessionID string) []Event {
	j.mu.RLock()
	defer j.mu.RUnlock()

	out := make([]Event, len(j.events[sessionID]))
	copy(out, j.events[sessionID])
	return out
}

// Recorder adapts the journal to the cart engine's Recorder interface
// for one session. Publish failures are logged and swallowed: the
// mutation has already happened and telemetry must not undo it.
func (j *Journal) Recorder(sessionID string) cart.Recorder {
	return cart.RecorderFunc(func(ctx context.Context, eventType string, data any) {
		if _, err := j.Append(ctx, sessionID, eventType, data); err != nil {
			log.Printf("[Journal] Failed to record %s for session %s: %v", eventType, sessionID, err)
		}
	})
}
