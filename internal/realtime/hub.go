// internal/realtime/hub.go
package realtime

import (
	"context"
	"errors"
	"sync"
)

// ErrListenerBusy is returned when at least one listener's buffer was full
// and the message was dropped for it.
var ErrListenerBusy = errors.New("listener buffer full, message dropped")

const defaultBuffer = 16

// Hub fans messages out to in-process subscribers keyed by topic.
// Sends never block; a slow listener loses messages instead of stalling
// the sender.
type Hub struct {
	mu        sync.RWMutex
	listeners map[string]map[chan Message]struct{}
	buffer    int
}

func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Hub{
		listeners: make(map[string]map[chan Message]struct{}),
		buffer:    buffer,
	}
}

// Subscribe registers a listener. The returned cancel func must be called
// once the listener goes away; it closes the channel.
func (h *Hub) Subscribe(topic Topic) (<-chan Message, func()) {
	ch := make(chan Message, h.buffer)
	key := topic.Key()

	h.mu.Lock()
	if h.listeners[key] == nil {
		h.listeners[key] = make(map[chan Message]struct{})
	}
	h.listeners[key][ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.listeners[key], ch)
			if len(h.listeners[key]) == 0 {
				delete(h.listeners, key)
			}
			h.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// Push delivers msg to every current listener of topic. Zero listeners is
// not an error.
func (h *Hub) Push(_ context.Context, topic Topic, msg Message) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	dropped := false
	for ch := range h.listeners[topic.Key()] {
		select {
		case ch <- msg:
		default:
			dropped = true
		}
	}
	if dropped {
		return ErrListenerBusy
	}
	return nil
}

// Listeners returns the number of live listeners on topic.
func (h *Hub) Listeners(topic Topic) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.listeners[topic.Key()])
}

// Topics returns how many topics have at least one listener.
func (h *Hub) Topics() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.listeners)
}
