// Package events provides a minimal in-process domain event bus.
// Validators publish denial events here so interested subsystems
// (UI, metrics, incident tooling) can react without coupling to the
// security package.
package events

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event is the generic domain-event wrapper shared with consumers.
type Event struct {
	ID        string            `json:"id"`
	Type      string            `json:"type"`
	Source    string            `json:"source"`
	Data      map[string]string `json:"data,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// New builds an event with a fresh ID and a UTC timestamp.
func New(eventType, source string, data map[string]string) Event {
	return Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Source:    source,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}
}

// Handler receives published events. Handlers run synchronously on the
// publisher's goroutine and must not block.
type Handler func(Event)

// Bus fans events out to subscribers. Safe for concurrent use.
type Bus struct {
	logger *slog.Logger
	mu     sync.RWMutex
	subs   map[string][]Handler // event type -> handlers; "" subscribes to all
}

// NewBus creates an empty bus.
func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		logger: logger.With("component", "events"),
		subs:   make(map[string][]Handler),
	}
}

// Subscribe registers a handler for the given event type.
// An empty eventType subscribes to every event.
func (b *Bus) Subscribe(eventType string, h Handler) {
	if h == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[eventType] = append(b.subs[eventType], h)
}

// Publish delivers the event to all matching subscribers.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.subs[e.Type])+len(b.subs[""]))
	handlers = append(handlers, b.subs[e.Type]...)
	handlers = append(handlers, b.subs[""]...)
	b.mu.RUnlock()

	for _, h := range handlers {
		h(e)
	}
	b.logger.Debug("event published", "type", e.Type, "source", e.Source, "subscribers", len(handlers))
}
