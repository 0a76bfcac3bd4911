package server

import (
	"encoding/json"
	"sync"

	"spiretool/internal/search"
)

// Hub fans generation summaries out to websocket watchers. Slow watchers
// lose messages instead of blocking the search.
type Hub struct {
	mu     sync.Mutex
	nextID uint64
	subs   map[uint64]chan []byte
}

func NewHub() *Hub {
	return &Hub{subs: make(map[uint64]chan []byte)}
}

func (h *Hub) Subscribe(buffer int) (uint64, <-chan []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	ch := make(chan []byte, buffer)
	h.subs[h.nextID] = ch
	return h.nextID, ch
}

func (h *Hub) Unsubscribe(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if ch, ok := h.subs[id]; ok {
		delete(h.subs, id)
		close(ch)
	}
}

func (h *Hub) Broadcast(b []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, ch := range h.subs {
		select {
		case ch <- b:
		default:
		}
	}
}

func (h *Hub) Publish(g search.Generation) {
	b, err := json.Marshal(g)
	if err != nil {
		return
	}
	h.Broadcast(b)
}

func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
