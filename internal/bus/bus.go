// Package bus provides an internal event bus for component communication
package bus

import (
	"sync"

	"github.com/kpatel2913/Faceable/internal/gesture"
)

// EventType identifies different event types
type EventType string

// Event types for Faceable
const (
	// Gesture events
	EventTypeToolCycle  EventType = "gesture.tool_cycle"
	EventTypeColorCycle EventType = "gesture.color_cycle"
	EventTypeDrawToggle EventType = "gesture.draw_toggle"
	EventTypeCursorMove EventType = "cursor.move"

	// Session events
	EventTypeSessionStarted EventType = "session.started"
	EventTypeSessionEnded   EventType = "session.ended"
	EventTypeSessionReset   EventType = "session.reset"
	EventTypeFrameDropped   EventType = "session.frame_dropped"

	// Config events
	EventTypeConfigReloaded EventType = "config.reloaded"
)

// GestureEventTypes lists the event types carried by gesture.Event values.
var GestureEventTypes = []EventType{
	EventTypeToolCycle,
	EventTypeColorCycle,
	EventTypeDrawToggle,
	EventTypeCursorMove,
}

var gestureTypes = map[gesture.Kind]EventType{
	gesture.KindToolCycle:  EventTypeToolCycle,
	gesture.KindColorCycle: EventTypeColorCycle,
	gesture.KindDrawToggle: EventTypeDrawToggle,
	gesture.KindCursorMove: EventTypeCursorMove,
}

// Event represents a bus event
type Event struct {
	Type EventType
	Data map[string]any
}

// FromGesture wraps a gesture event for the bus, tagged with its session.
func FromGesture(sessionID string, ev gesture.Event) Event {
	data := map[string]any{
		"session": sessionID,
		"kind":    string(ev.Kind),
	}
	if ev.Kind == gesture.KindCursorMove {
		data["x"] = ev.X
		data["y"] = ev.Y
	}
	return Event{Type: gestureTypes[ev.Kind], Data: data}
}

// Handler is a function that handles events
type Handler func(Event)

// EventBus is a simple pub/sub event bus
type EventBus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
}

// NewEventBus creates a new event bus
func NewEventBus() *EventBus {
	return &EventBus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe adds a handler for an event type
func (b *EventBus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)
}

// SubscribeMultiple adds a handler for multiple event types
func (b *EventBus) SubscribeMultiple(eventTypes []EventType, handler Handler) {
	for _, et := range eventTypes {
		b.Subscribe(et, handler)
	}
}

func (b *EventBus) snapshot(eventType EventType) []Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()
	handlers := make([]Handler, len(b.handlers[eventType]))
	copy(handlers, b.handlers[eventType])
	return handlers
}

// Publish sends an event to all subscribed handlers without waiting
func (b *EventBus) Publish(event Event) {
	for _, handler := range b.snapshot(event.Type) {
		go handler(event)
	}
}

// PublishSync sends an event and waits for all handlers to complete.
// Successive PublishSync calls are therefore observed in call order.
func (b *EventBus) PublishSync(event Event) {
	handlers := b.snapshot(event.Type)

	var wg sync.WaitGroup
	for _, handler := range handlers {
		wg.Add(1)
		go func(h Handler) {
			defer wg.Done()
			h(event)
		}(handler)
	}
	wg.Wait()
}

// HandlerCount returns how many handlers listen for an event type
func (b *EventBus) HandlerCount(eventType EventType) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[eventType])
}

// Clear removes all handlers
func (b *EventBus) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = make(map[EventType][]Handler)
}
