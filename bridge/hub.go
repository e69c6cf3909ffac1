package bridge

import (
	"sync"

	"docview/scanner"
)

// Frame is one message on the progress websocket.
type Frame struct {
	Event    string           `json:"event"`
	Progress scanner.Progress `json:"progress"`
}

// Subscription is a listener registered with Hub.Subscribe.
type Subscription struct {
	ch        chan Frame
	scanID    string
	closeOnce sync.Once
}

// C delivers frames until the subscription is removed.
func (sub *Subscription) C() <-chan Frame {
	return sub.ch
}

func (sub *Subscription) close() {
	sub.closeOnce.Do(func() {
		close(sub.ch)
	})
}

// send never blocks; a slow listener misses frames.
func (sub *Subscription) send(f Frame) bool {
	if sub.scanID != "" && sub.scanID != f.Progress.ScanID {
		return false
	}
	select {
	case sub.ch <- f:
		return true
	default:
		return false
	}
}

// Hub is a scanner.Emitter that fans progress out to websocket listeners.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[*Subscription]struct{}
	buffer      int
}

// NewHub creates a hub whose listeners buffer up to buffer frames.
func NewHub(buffer int) *Hub {
	if buffer < 1 {
		buffer = 32
	}
	return &Hub{
		subscribers: make(map[*Subscription]struct{}),
		buffer:      buffer,
	}
}

// Subscribe registers a listener. A non-empty scanID restricts it to that
// scan's events.
func (h *Hub) Subscribe(scanID string) *Subscription {
	sub := &Subscription{ch: make(chan Frame, h.buffer), scanID: scanID}
	h.mu.Lock()
	h.subscribers[sub] = struct{}{}
	h.mu.Unlock()
	return sub
}

// Unsubscribe removes the listener and closes its channel.
func (h *Hub) Unsubscribe(sub *Subscription) {
	h.mu.Lock()
	// Closing under the write lock keeps Emit from sending on a closed channel.
	delete(h.subscribers, sub)
	sub.close()
	h.mu.Unlock()
}

// Len reports the number of listeners.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

func (h *Hub) Emit(event string, p scanner.Progress) {
	frame := Frame{Event: event, Progress: p}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subscribers {
		sub.send(frame)
	}
}

// Close drops every listener.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subscribers {
		sub.close()
		delete(h.subscribers, sub)
	}
}
