package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
)

// Message is a realtime event fanned out to a family's connected clients.
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

// FamilyRoom names the room shared by a family; solo users get a private
// room so their events never leak to anyone else.
func FamilyRoom(familyCode string, userID int64) string {
	if familyCode == "" {
		return "user:" + strconv.FormatInt(userID, 10)
	}
	return "family:" + familyCode
}

// Hub maintains the set of active WebSocket clients grouped into rooms and
// delivers each message only to the clients of its room.
type Hub struct {
	mu     sync.RWMutex
	rooms  map[string]map[*Client]struct{}
	logger *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		rooms:  make(map[string]map[*Client]struct{}),
		logger: logger,
	}
}

// Register adds a client to its room.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	clients, ok := h.rooms[c.room]
	if !ok {
		clients = make(map[*Client]struct{})
		h.rooms[c.room] = clients
	}
	clients[c] = struct{}{}
	h.mu.Unlock()
}

// Unregister removes a client from its room and closes its send channel.
// Empty rooms are dropped.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if clients, ok := h.rooms[c.room]; ok {
		if _, ok := clients[c]; ok {
			delete(clients, c)
			close(c.send)
		}
		if len(clients) == 0 {
			delete(h.rooms, c.room)
		}
	}
	h.mu.Unlock()
}

// Broadcast sends a message to every client in one room.
func (h *Hub) Broadcast(room string, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal broadcast", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.rooms[room] {
		select {
		case c.send <- data:
		default:
			// Client buffer full — drop message to avoid blocking
		}
	}
}

// ClientCount returns the number of connected clients across all rooms.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	total := 0
	for _, clients := range h.rooms {
		total += len(clients)
	}
	return total
}
