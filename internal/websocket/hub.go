package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
)

// Message is a change notification pushed to connected browsers so open
// tabs stay in sync with the ledger.
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

// SessionMessage creates a Message describing an auth state change for a user.
func SessionMessage(action string, userID int64) Message {
	return Message{
		Type:   fmt.Sprintf("session_%s", action),
		Entity: "session",
		Action: action,
		ID:     userID,
	}
}

// Hub maintains the set of active WebSocket clients and routes messages to
// the organization or user they concern.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	logger  *slog.Logger
}

// NewHub creates a new Hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		logger:  logger,
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

// Unregister removes a client from the hub and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// Broadcast sends a message to every client connected for the organization.
func (h *Hub) Broadcast(orgID int64, msg Message) {
	h.send(msg, func(c *Client) bool { return c.orgID == orgID })
}

// BroadcastUser sends a message to every connection held by the user,
// regardless of which organization each connection is scoped to.
func (h *Hub) BroadcastUser(userID int64, msg Message) {
	h.send(msg, func(c *Client) bool { return c.userID == userID })
}

// BroadcastAll sends a message to every connected client. Used for
// process-wide events like archive status changes.
func (h *Hub) BroadcastAll(msg Message) {
	h.send(msg, func(*Client) bool { return true })
}

func (h *Hub) send(msg Message, match func(*Client) bool) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal broadcast", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		if !match(c) {
			continue
		}
		select {
		case c.send <- data:
		default:
			// Slow client; drop rather than block the caller.
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
