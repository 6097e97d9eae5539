package bus

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kpatel2913/Faceable/internal/gesture"
)

func TestPublishSync_DeliversInOrder(t *testing.T) {
	b := NewEventBus()

	var (
		mu       sync.Mutex
		received []EventType
	)
	b.SubscribeMultiple(GestureEventTypes, func(e Event) {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, e.Type)
	})

	for _, ev := range []gesture.Event{gesture.ToolCycle(), gesture.DrawToggle(), gesture.CursorMove(1, 2)} {
		b.PublishSync(FromGesture("s1", ev))
	}

	assert.Equal(t, []EventType{EventTypeToolCycle, EventTypeDrawToggle, EventTypeCursorMove}, received)
}

func TestPublish_Async(t *testing.T) {
	b := NewEventBus()
	done := make(chan Event, 1)
	b.Subscribe(EventTypeSessionStarted, func(e Event) { done <- e })

	b.Publish(Event{Type: EventTypeSessionStarted, Data: map[string]any{"session": "abc"}})

	select {
	case e := <-done:
		assert.Equal(t, "abc", e.Data["session"])
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}
}

func TestPublish_NoHandlers(t *testing.T) {
	b := NewEventBus()
	assert.NotPanics(t, func() {
		b.Publish(Event{Type: EventTypeSessionEnded})
		b.PublishSync(Event{Type: EventTypeSessionEnded})
	})
}

func TestFromGesture(t *testing.T) {
	e := FromGesture("sess", gesture.CursorMove(12.5, 80))
	require.Equal(t, EventTypeCursorMove, e.Type)
	assert.Equal(t, "sess", e.Data["session"])
	assert.Equal(t, 12.5, e.Data["x"])
	assert.Equal(t, 80.0, e.Data["y"])

	e = FromGesture("sess", gesture.ColorCycle())
	assert.Equal(t, EventTypeColorCycle, e.Type)
	_, hasX := e.Data["x"]
	assert.False(t, hasX)
}

func TestClear(t *testing.T) {
	b := NewEventBus()
	var calls atomic.Int32
	b.Subscribe(EventTypeToolCycle, func(Event) { calls.Add(1) })
	require.Equal(t, 1, b.HandlerCount(EventTypeToolCycle))

	b.Clear()
	b.PublishSync(Event{Type: EventTypeToolCycle})
	assert.Zero(t, calls.Load())
	assert.Zero(t, b.HandlerCount(EventTypeToolCycle))
}
