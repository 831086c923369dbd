package services

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/relaycrm/backend/internal/domain/events"
)

// EventType is an alias to the domain type
type EventType = events.EventType

// EventHandler is a function that handles an event
type EventHandler func(ctx context.Context, payload interface{}) error

// EventBus manages the in-process publish-subscribe system. Record events
// reach it through the outbox worker; subscribers are the workflow engine
// and the agent orchestrator bridge.
type EventBus struct {
	handlers map[EventType][]EventHandler
	mu       sync.RWMutex
}

// NewEventBus creates a new EventBus instance
func NewEventBus() *EventBus {
	return &EventBus{
		handlers: make(map[EventType][]EventHandler),
	}
}

// Subscribe registers a handler for a specific event type
func (eb *EventBus) Subscribe(eventType EventType, handler EventHandler) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.handlers[eventType] = append(eb.handlers[eventType], handler)
}

// Publish publishes an event to all registered handlers in sequence. The
// first handler error stops the chain and is returned to the caller (the
// outbox worker retries on it).
func (eb *EventBus) Publish(ctx context.Context, eventType EventType, payload interface{}) error {
	eb.mu.RLock()
	handlers := eb.handlers[eventType]
	eb.mu.RUnlock()

	for _, handler := range handlers {
		if err := handler(ctx, payload); err != nil {
			return fmt.Errorf("event handler error for %s: %w", eventType, err)
		}
	}
	return nil
}

// PublishAsync publishes an event asynchronously, decoupled from the
// caller's request and transaction
func (eb *EventBus) PublishAsync(eventType EventType, payload interface{}) {
	go func() {
		if err := eb.Publish(context.Background(), eventType, payload); err != nil {
			log.Printf("⚠️ EventBus async publish error: %v", err)
		}
	}()
}

// Clear removes all handlers (useful for testing)
func (eb *EventBus) Clear() {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.handlers = make(map[EventType][]EventHandler)
}
