package events

import (
	"log"
	"sync"
)

// Topics published on the bus
const (
	TopicProfileSwitched = "profile.switched"
	TopicPremiumChanged  = "premium.changed"
)

// Event is a broadcast notification. Only the fields relevant to the topic
// are set: ProfileID for profile switches, UserID/Premium for entitlement
// changes.
type Event struct {
	Topic     string
	SessionID string
	ProfileID int64
	UserID    int64
	Premium   bool
}

// Bus is a small in-process pub/sub used to decouple the state manager from
// services that key their own storage off the active profile (activity
// tracker, audio cache) and from entitlement listeners.
type Bus struct {
	mu   sync.RWMutex
	subs map[string][]chan Event
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{subs: make(map[string][]chan Event)}
}

// Subscribe registers a listener for a topic and returns its channel plus an
// unsubscribe function. The channel is buffered; slow listeners drop events
// rather than block publishers.
func (b *Bus) Subscribe(topic string) (<-chan Event, func()) {
	ch := make(chan Event, 16)

	b.mu.Lock()
	b.subs[topic] = append(b.subs[topic], ch)
	b.mu.Unlock()

	unsubscribe := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		listeners := b.subs[topic]
		for i, c := range listeners {
			if c == ch {
				b.subs[topic] = append(listeners[:i], listeners[i+1:]...)
				close(ch)
				return
			}
		}
	}
	return ch, unsubscribe
}

// Publish delivers an event to all listeners on its topic without blocking
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subs[event.Topic] {
		select {
		case ch <- event:
		default:
			log.Printf("Warning: dropping %s event, listener buffer full", event.Topic)
		}
	}
}
