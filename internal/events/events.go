// Package events provides the in-process event bus used to notify clients
// and services when journal data changes.
package events

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// EventType identifies the kind of event.
type EventType string

const (
	// EventJournalChanged fires after any trade create/update/delete/import.
	EventJournalChanged EventType = "journal.changed"
	// EventSnapshotRefreshed fires when the scheduler re-warms report caches.
	EventSnapshotRefreshed EventType = "analytics.snapshot_refreshed"
	// EventBackupCompleted fires after a successful backup upload.
	EventBackupCompleted EventType = "backup.completed"
)

// Event is a single bus message.
type Event struct {
	Type      EventType              `json:"type"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// Bus is a fan-out pub/sub bus. Publish never blocks: events to slow
// subscribers are dropped rather than stalling the publisher.
type Bus struct {
	mu     sync.RWMutex
	subs   map[int]chan Event
	nextID int
	log    zerolog.Logger
}

// subscriberBuffer is the per-subscriber channel capacity.
const subscriberBuffer = 16

// NewBus creates a new event bus.
func NewBus(log zerolog.Logger) *Bus {
	return &Bus{
		subs: make(map[int]chan Event),
		log:  log.With().Str("component", "event_bus").Logger(),
	}
}

// Subscribe registers a new subscriber and returns its id and channel.
// The caller must Unsubscribe when done.
func (b *Bus) Subscribe() (int, <-chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++

	ch := make(chan Event, subscriberBuffer)
	b.subs[id] = ch

	return id, ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *Bus) Unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ch, ok := b.subs[id]; ok {
		close(ch)
		delete(b.subs, id)
	}
}

// Publish delivers an event to all subscribers without blocking.
func (b *Bus) Publish(eventType EventType, payload map[string]interface{}) {
	event := Event{
		Type:      eventType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for id, ch := range b.subs {
		select {
		case ch <- event:
		default:
			b.log.Debug().
				Int("subscriber", id).
				Str("type", string(eventType)).
				Msg("Dropping event for slow subscriber")
		}
	}
}

// SubscriberCount returns the number of active subscribers.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
