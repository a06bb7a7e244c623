package eventbus

import (
	"slices"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

type EventType string

const (
	TaskCreated  EventType = "task.created"
	TaskUpdated  EventType = "task.updated"
	TaskDeleted  EventType = "task.deleted"
	TaskAssigned EventType = "task.assigned"
	NoteChanged  EventType = "note.changed"
)

type Event struct {
	ID         string            `json:"id"`
	Type       EventType         `json:"type"`
	ResourceID string            `json:"resourceId"`
	Payload    string            `json:"payload,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	CreatedAt  time.Time         `json:"createdAt"`
}

type subscriber struct {
	ch    chan *Event
	types []EventType
}

// Bus fans events out to in-process subscribers. Publishing never blocks: a
// subscriber whose buffer is full misses the event.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string]*subscriber
}

func New() *Bus {
	return &Bus{
		subscribers: make(map[string]*subscriber),
	}
}

// Subscribe registers a subscriber. When types is non-empty only events of
// those types are delivered.
func (b *Bus) Subscribe(bufSize int, types ...EventType) (string, <-chan *Event) {
	id := ulid.Make().String()
	sub := &subscriber{ch: make(chan *Event, bufSize), types: types}
	b.mu.Lock()
	b.subscribers[id] = sub
	b.mu.Unlock()
	return id, sub.ch
}

func (b *Bus) Unsubscribe(id string) {
	b.mu.Lock()
	if sub, ok := b.subscribers[id]; ok {
		close(sub.ch)
		delete(b.subscribers, id)
	}
	b.mu.Unlock()
}

func (b *Bus) Publish(event *Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subscribers {
		if len(sub.types) > 0 && !slices.Contains(sub.types, event.Type) {
			continue
		}
		select {
		case sub.ch <- event:
		default:
			// buffer full, drop event for this subscriber
		}
	}
}

func (b *Bus) PublishNew(eventType EventType, resourceID string, payload string, metadata map[string]string) {
	b.Publish(&Event{
		ID:         ulid.Make().String(),
		Type:       eventType,
		ResourceID: resourceID,
		Payload:    payload,
		Metadata:   metadata,
		CreatedAt:  time.Now().UTC(),
	})
}
