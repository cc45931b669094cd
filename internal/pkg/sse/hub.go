package sse

import (
	"encoding/json"
	"sync"
)

// Event is a single server-sent event.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Client is one subscriber connection. Owner is the notification scope:
// all conversations of one owner multiplex over the same channel.
type Client struct {
	ID      string
	Owner   string
	Channel chan Event
}

// Hub fans events out to subscribers keyed by owner.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{} // owner -> clients
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]map[*Client]struct{}),
	}
}

// Register adds a subscriber.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[client.Owner] == nil {
		h.clients[client.Owner] = make(map[*Client]struct{})
	}
	h.clients[client.Owner][client] = struct{}{}
}

// Unregister removes a subscriber and closes its channel.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.clients[client.Owner]
	if !ok {
		return
	}
	if _, exists := clients[client]; !exists {
		return
	}

	delete(clients, client)
	close(client.Channel)

	if len(clients) == 0 {
		delete(h.clients, client.Owner)
	}
}

// Broadcast delivers an event to every subscriber of the owner. Slow
// subscribers with a full buffer are skipped; they recover via replay on
// reconnect.
func (h *Hub) Broadcast(owner string, event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients[owner] {
		select {
		case client.Channel <- event:
		default:
		}
	}
}

// SubscriberCount returns the number of active subscribers for an owner.
func (h *Hub) SubscriberCount(owner string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[owner])
}

// FormatSSE renders the event in wire format.
func (e Event) FormatSSE() string {
	data, _ := json.Marshal(e.Data)
	return "event: " + e.Type + "\ndata: " + string(data) + "\n\n"
}
