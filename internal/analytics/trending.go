// Package analytics maintains the trending-products feed from the
// stream of cart events.
package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"sync"

	"github.com/example/grocer-shop/internal/domain/cart"
	"github.com/example/grocer-shop/internal/journal"
)

// ProductCount is one entry of the trending feed.
type ProductCount struct {
	ProductID int    `json:"product_id"`
	Name      string `json:"name"`
	Adds      int    `json:"adds"`
}

// Tracker counts cart adds per product. Safe for concurrent use.
type Tracker struct {
	mu    sync.RWMutex
	adds  map[int]int
	names map[int]string
}

func NewTracker() *Tracker {
	return &Tracker{
		adds:  make(map[int]int),
		names: make(map[int]string),
	}
}

// RecordAdd counts one cart add for a product.
func (t *Tracker) RecordAdd(productID int, name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.adds[productID]++
	if name != "" {
		t.names[productID] = name
	}
}

// TopN returns the n most-added products, most added first. Ties break
// on ascending product ID so the feed is deterministic.
func (t *Tracker) TopN(n int) []ProductCount {
	t.mu.RLock()
	counts := make([]ProductCount, 0, len(t.adds))
	for id, adds := range t.adds {
		counts = append(counts, ProductCount{ProductID: id, Name: t.names[id], Adds: adds})
	}
	t.mu.RUnlock()

	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Adds != counts[j].Adds {
			return counts[i].Adds > counts[j].Adds
		}
		return counts[i].ProductID < counts[j].ProductID
	})

	if n > 0 && len(counts) > n {
		counts = counts[:n]
	}
	return counts
}

// Recorder adapts the tracker to the cart engine's Recorder interface.
// When no Kafka stream feeds HandleEvent, the tracker hangs directly
// off each session engine instead.
func (t *Tracker) Recorder() cart.Recorder {
	return cart.RecorderFunc(func(ctx context.Context, eventType string, data any) {
		if eventType != cart.EventItemAdded {
			return
		}
		if added, ok := data.(cart.ItemAdded); ok {
			t.RecordAdd(added.ProductID, added.Name)
		}
	})
}

// HandleEvent consumes one journal event from Kafka and updates the
// tracker. Non-add events are acknowledged and ignored.
func (t *Tracker) HandleEvent(ctx context.Context, key, value []byte) error {
	var event journal.Event
	if err := json.Unmarshal(value, &event); err != nil {
		return fmt.Errorf("failed to unmarshal journal event: %w", err)
	}

	switch event.EventType {
	case cart.EventItemAdded:
		var data cart.ItemAdded
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return fmt.Errorf("failed to unmarshal %s: %w", event.EventType, err)
		}
		t.RecordAdd(data.ProductID, data.Name)
		log.Printf("[Analytics] Add recorded: product=%d session=%s", data.ProductID, event.SessionID)
	}

	return nil
}
