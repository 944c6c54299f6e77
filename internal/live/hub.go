// Package live serves widgets to browsers and streams every update over a
// websocket.
package live

import (
	"sync"
	"time"
)

// Message types sent to viewers.
const (
	TypeMount   = "mount"
	TypeStatus  = "status"
	TypeMetrics = "metrics"
	TypeChart   = "chart"
	TypeClear   = "clear"
)

// Message is the envelope sent over the live stream.
type Message struct {
	Type      string    `json:"type"`
	Container string    `json:"container"`
	Payload   any       `json:"payload,omitempty"`
	Timestamp time.Time `json:"ts"`
}

// Hub fans messages out to the viewers of each container.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan Message]struct{}
}

func NewHub() *Hub {
	return &Hub{subscribers: make(map[string]map[chan Message]struct{})}
}

// Subscribe registers a viewer for a container. The returned func
// unsubscribes and closes the channel.
func (h *Hub) Subscribe(container string) (chan Message, func()) {
	ch := make(chan Message, 16)
	h.mu.Lock()
	listeners := h.subscribers[container]
	if listeners == nil {
		listeners = make(map[chan Message]struct{})
		h.subscribers[container] = listeners
	}
	listeners[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			listeners := h.subscribers[container]
			if listeners != nil {
				delete(listeners, ch)
				if len(listeners) == 0 {
					delete(h.subscribers, container)
				}
			}
			h.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// Broadcast delivers msg to every viewer of its container. Slow viewers
// drop messages rather than block the widget.
func (h *Hub) Broadcast(msg Message) {
	if h == nil {
		return
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	h.mu.RLock()
	for ch := range h.subscribers[msg.Container] {
		select {
		case ch <- msg:
		default:
		}
	}
	h.mu.RUnlock()
}

// Viewers counts subscribers of a container.
func (h *Hub) Viewers(container string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[container])
}
