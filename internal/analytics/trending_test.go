package analytics

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/grocer-shop/internal/domain/cart"
	"github.com/example/grocer-shop/internal/journal"
)

func journalEventJSON(t *testing.T, eventType string, data any) []byte {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	payload, err := json.Marshal(journal.Event{
		ID:        "evt-1",
		SessionID: "session-1",
		EventType: eventType,
		Data:      raw,
		Version:   1,
	})
	require.NoError(t, err)
	return payload
}

func TestTracker_TopN_OrdersByAddsThenID(t *testing.T) {
	tr := NewTracker()
	tr.RecordAdd(642, "Coca-Cola")
	tr.RecordAdd(642, "Coca-Cola")
	tr.RecordAdd(532, "Croissant")
	tr.RecordAdd(641, "Coffee")
	tr.RecordAdd(641, "Coffee")

	top := tr.TopN(10)
	require.Len(t, top, 3)

	// 641 and 642 tie on two adds; the lower ID comes first
	assert.Equal(t, ProductCount{ProductID: 641, Name: "Coffee", Adds: 2}, top[0])
	assert.Equal(t, ProductCount{ProductID: 642, Name: "Coca-Cola", Adds: 2}, top[1])
	assert.Equal(t, ProductCount{ProductID: 532, Name: "Croissant", Adds: 1}, top[2])
}

func TestTracker_TopN_TruncatesToN(t *testing.T) {
	tr := NewTracker()
	for id := 1; id <= 5; id++ {
		tr.RecordAdd(id, "")
	}

	assert.Len(t, tr.TopN(3), 3)
	assert.Len(t, tr.TopN(0), 5)
	assert.Empty(t, NewTracker().TopN(3))
}

func TestTracker_Recorder_CountsAddsInProcess(t *testing.T) {
	ctx := context.Background()
	tr := NewTracker()
	rec := tr.Recorder()

	rec.Record(ctx, cart.EventItemAdded, cart.ItemAdded{ProductID: 642, Name: "Coca-Cola", Quantity: 1})
	rec.Record(ctx, cart.EventItemAdded, cart.ItemAdded{ProductID: 642, Name: "Coca-Cola", Quantity: 2})
	rec.Record(ctx, cart.EventItemRemoved, cart.ItemRemoved{ProductID: 642})
	rec.Record(ctx, cart.EventItemAdded, "not an ItemAdded payload")

	top := tr.TopN(10)
	require.Len(t, top, 1)
	assert.Equal(t, 642, top[0].ProductID)
	assert.Equal(t, "Coca-Cola", top[0].Name)
	assert.Equal(t, 2, top[0].Adds)
}

func TestTracker_HandleEvent_CountsAdds(t *testing.T) {
	ctx := context.Background()
	tr := NewTracker()

	payload := journalEventJSON(t, cart.EventItemAdded, cart.ItemAdded{
		ProductID: 642,
		Name:      "Coca-Cola",
		Quantity:  3,
	})
	require.NoError(t, tr.HandleEvent(ctx, []byte("session-1"), payload))
	require.NoError(t, tr.HandleEvent(ctx, []byte("session-1"), payload))

	top := tr.TopN(1)
	require.Len(t, top, 1)
	assert.Equal(t, 642, top[0].ProductID)
	assert.Equal(t, 2, top[0].Adds)
}

func TestTracker_HandleEvent_IgnoresOtherEventTypes(t *testing.T) {
	ctx := context.Background()
	tr := NewTracker()

	payload := journalEventJSON(t, cart.EventItemRemoved, cart.ItemRemoved{ProductID: 642})
	require.NoError(t, tr.HandleEvent(ctx, []byte("session-1"), payload))

	assert.Empty(t, tr.TopN(10))
}

func TestTracker_HandleEvent_RejectsMalformedPayloads(t *testing.T) {
	ctx := context.Background()
	tr := NewTracker()

	assert.Error(t, tr.HandleEvent(ctx, []byte("session-1"), []byte("not json")))

	bad, err := json.Marshal(journal.Event{
		EventType: cart.EventItemAdded,
		Data:      json.RawMessage(`"not an object"`),
	})
	require.NoError(t, err)
	assert.Error(t, tr.HandleEvent(ctx, []byte("session-1"), bad))
}
