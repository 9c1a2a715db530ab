package websocket

import (
	"encoding/json"
	"sync"

	"github.com/gofiber/contrib/websocket"
	"github.com/rs/zerolog/log"

	"github.com/ejanapp/api/internal/model"
)

// Hub fans progress updates out to websocket clients grouped by tutorial ID.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*websocket.Conn]bool
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]map[*websocket.Conn]bool),
	}
}

// Register adds a connection to a tutorial's subscriber set.
func (h *Hub) Register(tutorialID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[tutorialID] == nil {
		h.clients[tutorialID] = make(map[*websocket.Conn]bool)
	}
	h.clients[tutorialID][conn] = true
	log.Debug().Str("tutorial_id", tutorialID).Msg("websocket client registered")
}

// Unregister removes a connection. Safe to call for unknown connections.
func (h *Hub) Unregister(tutorialID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.clients[tutorialID]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.clients, tutorialID)
		}
	}
}

// Broadcast sends a JSON message to every subscriber of a tutorial.
// Write failures drop the connection silently; the client reconnects.
func (h *Hub) Broadcast(tutorialID string, message interface{}) {
	data, err := json.Marshal(message)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal websocket message")
		return
	}

	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.clients[tutorialID]))
	for conn := range h.clients[tutorialID] {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	for _, conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.Unregister(tutorialID, conn)
		}
	}
}

// HandleConnection owns one client connection for its lifetime: register,
// serve pings, unregister on any read error.
func (h *Hub) HandleConnection(conn *websocket.Conn, tutorialID string) {
	h.Register(tutorialID, conn)
	defer func() {
		h.Unregister(tutorialID, conn)
		conn.Close()
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var m model.WSMessage
		if json.Unmarshal(msg, &m) == nil && m.Type == model.WSMessageTypePing {
			pong, _ := json.Marshal(model.WSMessage{Type: model.WSMessageTypePong})
			if err := conn.WriteMessage(websocket.TextMessage, pong); err != nil {
				return
			}
		}
	}
}

// SubscriberCount reports active connections for a tutorial.
func (h *Hub) SubscriberCount(tutorialID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[tutorialID])
}
