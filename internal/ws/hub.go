package ws

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"skillverse/internal/models"
	"skillverse/internal/observability"
)

// Hub maintains the active websocket connections, grouped by conversation
// key. Both participants of a conversation land in the same room.
type Hub struct {
	rooms    map[string]map[*websocket.Conn]bool
	connInfo map[string]map[*websocket.Conn]ConnInfo
	mu       sync.RWMutex
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		rooms:    make(map[string]map[*websocket.Conn]bool),
		connInfo: make(map[string]map[*websocket.Conn]ConnInfo),
	}
}

// AddClient registers a websocket connection under a conversation key.
func (h *Hub) AddClient(key string, conn *websocket.Conn, info ConnInfo) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.rooms[key]; !ok {
		h.rooms[key] = make(map[*websocket.Conn]bool)
	}
	h.rooms[key][conn] = true
	if _, ok := h.connInfo[key]; !ok {
		h.connInfo[key] = make(map[*websocket.Conn]ConnInfo)
	}
	h.connInfo[key][conn] = info
}

// RemoveClient removes a websocket connection.
func (h *Hub) RemoveClient(key string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.rooms[key]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.rooms, key)
		}
	}
	if infos, ok := h.connInfo[key]; ok {
		delete(infos, conn)
		if len(infos) == 0 {
			delete(h.connInfo, key)
		}
	}
}

// BroadcastMessage pushes a new message to everyone viewing the conversation.
func (h *Hub) BroadcastMessage(key string, msg models.Message) {
	h.broadcast(key, models.ChatEvent{Type: "message", Message: &msg})
}

// BroadcastRead pushes a watermark advance, so the sender's "seen" indicator
// updates without a refetch.
func (h *Hub) BroadcastRead(key string, userID string, lastRead time.Time) {
	h.broadcast(key, models.ChatEvent{Type: "read", UserID: userID, LastRead: &lastRead})
}

// BroadcastPresence pushes an online/offline transition for a participant.
func (h *Hub) BroadcastPresence(key string, userID string, online bool) {
	h.broadcast(key, models.ChatEvent{Type: "presence", UserID: userID, Online: &online})
}

func (h *Hub) broadcast(key string, event models.ChatEvent) {
	// Copy the room under the lock: writing frames can block, and the live
	// map may be mutated by AddClient/RemoveClient in the meantime.
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.rooms[key]))
	for conn := range h.rooms[key] {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	payload, _ := json.Marshal(event)
	for _, conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			log.Printf("websocket write error: %v", err)
			conn.Close()
			h.RemoveClient(key, conn)
			h.publishWSError(key, conn, err)
		}
	}
}

func (h *Hub) publishWSError(key string, conn *websocket.Conn, err error) {
	info, ok := h.getConnInfo(key, conn)
	if !ok {
		return
	}

	payload := map[string]interface{}{
		"ws": map[string]interface{}{
			"conversation_key": key,
			"peer_id":          models.ConversationPeer(key, info.UserID),
			"event":            "ws_error",
			"conn_id":          info.ConnID,
			"duration_ms":      time.Since(info.ConnectedAt).Milliseconds(),
			"reason":           err.Error(),
		},
		"identity": map[string]interface{}{
			"user_id":   info.UserID,
			"device_id": info.DeviceID,
			"ip":        info.IP,
		},
	}

	headers := observability.BuildHeaders(info.RequestID, info.TraceID)
	_ = observability.PublishEvent(context.Background(), observability.RoutingKeyWSEvents, observability.EventEnvelope{
		EventType: "ws_events",
		EventName: "ws_error",
		Payload:   payload,
	}, headers)
	observability.IncWSEvent("ws_error")
}

func (h *Hub) getConnInfo(key string, conn *websocket.Conn) (ConnInfo, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if infos, ok := h.connInfo[key]; ok {
		info, exists := infos[conn]
		return info, exists
	}
	return ConnInfo{}, false
}
