package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
)

// Message is a realtime sync notification sent to a household's connected
// dashboards when tasks, assignments, or responses change.
type Message struct {
	Type   string         `json:"type"`
	Entity string         `json:"entity"`
	Action string         `json:"action"`
	ID     int64          `json:"id,omitempty"`
	Extra  map[string]any `json:"extra,omitempty"`
}

// NewMessage creates a Message with the Type field derived from entity and action.
func NewMessage(entity, action string, id int64, extra map[string]any) Message {
	return Message{
		Type:   fmt.Sprintf("%s_%s", entity, action),
		Entity: entity,
		Action: action,
		ID:     id,
		Extra:  extra,
	}
}

// Hub maintains the set of active WebSocket clients, partitioned by
// household. Messages for one household are never delivered to another.
type Hub struct {
	mu      sync.RWMutex
	clients map[int64]map[*Client]struct{} // householdID -> clients
	logger  *slog.Logger
}

// NewHub creates a new Hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[int64]map[*Client]struct{}),
		logger:  logger,
	}
}

// Register adds a client to its household's set.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	set, ok := h.clients[c.householdID]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[c.householdID] = set
	}
	set[c] = struct{}{}
	h.mu.Unlock()
}

// Unregister removes a client and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if set, ok := h.clients[c.householdID]; ok {
		if _, ok := set[c]; ok {
			delete(set, c)
			close(c.send)
		}
		if len(set) == 0 {
			delete(h.clients, c.householdID)
		}
	}
	h.mu.Unlock()
}

// Broadcast sends a message to every client in the household.
func (h *Hub) Broadcast(householdID int64, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal broadcast", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients[householdID] {
		select {
		case c.send <- data:
		default:
			// Client buffer full, drop the message rather than block
		}
	}
}

// ClientCount returns the number of connected clients for a household.
func (h *Hub) ClientCount(householdID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[householdID])
}
