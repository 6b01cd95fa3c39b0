package eventbus

import (
	"context"
	"fmt"
	"sync"
	"time"

	"sitecontent/internal/shared/logger"

	"go.uber.org/zap"
)

// Event represents a generic event
type Event interface {
	Type() string
	Data() interface{}
	Timestamp() time.Time
	Source() string
}

// Handler defines the event handler function type
type Handler func(ctx context.Context, event Event) error

// HandlerID identifies one registered handler so it can be removed on its own.
type HandlerID uint64

// EventBusInterface defines the contract for event bus implementations
type EventBusInterface interface {
	Subscribe(eventType string, handler Handler) HandlerID
	Publish(ctx context.Context, event Event) error
	PublishAndForget(ctx context.Context, event Event)
	Unsubscribe(eventType string, id HandlerID)
	GetSubscriberCount(eventType string) int
}

type registration struct {
	id      HandlerID
	handler Handler
}

// EventBus is an in-memory event bus. Handlers for one event type run in
// registration order on the publishing goroutine.
type EventBus struct {
	mu       sync.RWMutex
	nextID   HandlerID
	handlers map[string][]registration
	logger   logger.Logger
}

// NewEventBus creates a new event bus instance
func NewEventBus(log logger.Logger) *EventBus {
	if log == nil {
		log = logger.NewNop()
	}
	return &EventBus{
		handlers: make(map[string][]registration),
		logger:   log.WithComponent("eventbus"),
	}
}

// Subscribe adds a handler for a specific event type and returns its id.
func (eb *EventBus) Subscribe(eventType string, handler Handler) HandlerID {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.nextID++
	id := eb.nextID
	eb.handlers[eventType] = append(eb.handlers[eventType], registration{id: id, handler: handler})
	eb.logger.Debug("handler subscribed", zap.String("eventType", eventType), zap.Uint64("handlerID", uint64(id)))
	return id
}

// Publish sends an event to every handler registered for its type. A failing
// handler does not stop the others; the first error is returned.
func (eb *EventBus) Publish(ctx context.Context, event Event) error {
	eb.mu.RLock()
	regs := append([]registration(nil), eb.handlers[event.Type()]...)
	eb.mu.RUnlock()

	var firstErr error
	for _, reg := range regs {
		err := reg.handler(ctx, event)
		if err == nil {
			continue
		}
		eb.logger.Warn("handler failed",
			zap.String("eventType", event.Type()),
			zap.Uint64("handlerID", uint64(reg.id)),
			zap.Error(err))
		if firstErr == nil {
			firstErr = fmt.Errorf("handler %d: %w", reg.id, err)
		}
	}
	return firstErr
}

// PublishAndForget publishes an event asynchronously without waiting for completion
func (eb *EventBus) PublishAndForget(ctx context.Context, event Event) {
	go func() {
		if err := eb.Publish(ctx, event); err != nil {
			eb.logger.Error("publish failed", zap.String("eventType", event.Type()), zap.Error(err))
		}
	}()
}

// Unsubscribe removes one handler. Unknown ids are ignored.
func (eb *EventBus) Unsubscribe(eventType string, id HandlerID) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	regs := eb.handlers[eventType]
	for i, reg := range regs {
		if reg.id != id {
			continue
		}
		regs = append(regs[:i:i], regs[i+1:]...)
		if len(regs) == 0 {
			delete(eb.handlers, eventType)
		} else {
			eb.handlers[eventType] = regs
		}
		return
	}
}

// GetSubscriberCount returns the number of handlers for an event type
func (eb *EventBus) GetSubscriberCount(eventType string) int {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	return len(eb.handlers[eventType])
}

// BasicEvent implements the Event interface
type BasicEvent struct {
	eventType string
	data      interface{}
	timestamp time.Time
	source    string
}

// NewBasicEvent creates a new basic event
func NewBasicEvent(eventType string, data interface{}) Event {
	return NewBasicEventWithSource(eventType, data, "unknown")
}

// NewBasicEventWithSource creates a new basic event with source
func NewBasicEventWithSource(eventType string, data interface{}, source string) Event {
	return &BasicEvent{
		eventType: eventType,
		data:      data,
		timestamp: time.Now(),
		source:    source,
	}
}

func (e *BasicEvent) Type() string {
	return e.eventType
}

func (e *BasicEvent) Data() interface{} {
	return e.data
}

func (e *BasicEvent) Timestamp() time.Time {
	return e.timestamp
}

func (e *BasicEvent) Source() string {
	return e.source
}

// Event types emitted by the content module
const (
	EventTypeSnapshotChanged  = "content.snapshot_changed"
	EventTypeContentCommitted = "content.committed"
	EventTypeSeeded           = "content.seeded"
)
