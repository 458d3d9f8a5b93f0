package ws

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/google/uuid"
)

// Event is one message pushed to kitchen displays.
type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

const (
	EventOrderCreated      = "order.created"
	EventOrderStatusChange = "order.status_changed"
	EventMenuAvailability  = "menu.availability_changed"
)

// Hub fans events out to the websocket clients of one tenant. Clients
// register per tenant so one restaurant never sees another's orders.
type Hub struct {
	mu      sync.RWMutex
	clients map[uuid.UUID]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{clients: make(map[uuid.UUID]map[*Client]struct{})}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.clients[c.tenantID]
	if !ok {
		room = make(map[*Client]struct{})
		h.clients[c.tenantID] = room
	}
	room[c] = struct{}{}
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.clients[c.tenantID]
	if !ok {
		return
	}
	if _, ok := room[c]; ok {
		delete(room, c)
		close(c.send)
	}
	if len(room) == 0 {
		delete(h.clients, c.tenantID)
	}
}

// Broadcast sends the event to every client of the tenant. A client
// whose send buffer is full is dropped rather than blocking the
// caller.
func (h *Hub) Broadcast(tenantID uuid.UUID, event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("ERROR: marshal ws event: %v", err)
		return
	}

	h.mu.RLock()
	room := h.clients[tenantID]
	var stale []*Client
	for c := range room {
		select {
		case c.send <- data:
		default:
			stale = append(stale, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range stale {
		h.unregister(c)
	}
}

// ClientCount reports how many clients the tenant has connected.
func (h *Hub) ClientCount(tenantID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[tenantID])
}
