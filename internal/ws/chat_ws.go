package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"skillverse/internal/auth"
	"skillverse/internal/inbox"
	"skillverse/internal/models"
	"skillverse/internal/observability"
	"skillverse/internal/presence"
	"skillverse/internal/repositories"
)

// ChatWebSocketHandler upgrades /ws/chats/:peer_id requests and feeds the
// conversation room for the authenticated user and the named peer.
type ChatWebSocketHandler struct {
	hub        *Hub
	users      repositories.UserRepository
	watermarks repositories.WatermarkRepository
	tokens     *auth.Manager
	tracker    *presence.Tracker
}

// NewChatWebSocketHandler constructs a ChatWebSocketHandler.
func NewChatWebSocketHandler(hub *Hub, users repositories.UserRepository, watermarks repositories.WatermarkRepository, tokens *auth.Manager, tracker *presence.Tracker) *ChatWebSocketHandler {
	return &ChatWebSocketHandler{hub: hub, users: users, watermarks: watermarks, tokens: tokens, tracker: tracker}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handle upgrades the connection and registers the client in the
// conversation room. Messages still travel over HTTP POST; the socket pushes
// message, read and presence events to the client and accepts read
// acknowledgement frames back.
func (h *ChatWebSocketHandler) Handle(c *gin.Context) {
	ctx, span := otel.Tracer("skillverse/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	token := c.GetHeader("Authorization")
	if token == "" {
		token = c.Query("token")
		if token != "" {
			token = "Bearer " + token
		}
	}

	userID, err := h.validateToken(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	peerID := c.Param("peer_id")
	if peerID == "" || peerID == userID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid peer id"})
		return
	}
	if _, err := h.users.GetUser(ctx, peerID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "peer not found"})
		return
	}

	key := models.ConversationKey(userID, peerID)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	traceID := span.SpanContext().TraceID().String()
	requestID := observability.RequestIDFromRequest(c.Request)
	info := ConnInfo{
		ConnID:      newConnID(),
		UserID:      userID,
		DeviceID:    observability.DeviceIDFromRequest(c.Request),
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   requestID,
		TraceID:     traceID,
		ConnectedAt: time.Now(),
	}
	h.hub.AddClient(key, conn, info)

	h.tracker.MarkOnline(ctx, userID)
	h.hub.BroadcastPresence(key, userID, true)

	observability.IncWSActive()
	observability.IncWSEvent("ws_connect")
	_ = observability.PublishEvent(ctx, observability.RoutingKeyWSEvents, observability.EventEnvelope{
		EventType: "ws_events",
		EventName: "ws_connect",
		Payload:   wsEventPayload(key, "ws_connect", info, 0, ""),
	}, observability.BuildHeaders(requestID, traceID))

	// Keep connection alive and clean on close
	go func() {
		var closeReason string
		defer func() {
			h.hub.RemoveClient(key, conn)
			// The request context is gone once the handshake handler
			// returns, so the offline write gets its own.
			h.tracker.MarkOffline(context.Background(), userID)
			h.hub.BroadcastPresence(key, userID, false)
			observability.DecWSActive()
			observability.IncWSEvent("ws_disconnect")
			_ = observability.PublishEvent(ctx, observability.RoutingKeyWSEvents, observability.EventEnvelope{
				EventType: "ws_events",
				EventName: "ws_disconnect",
				Payload:   wsEventPayload(key, "ws_disconnect", info, time.Since(info.ConnectedAt).Milliseconds(), closeReason),
			}, observability.BuildHeaders(requestID, traceID))
			conn.Close()
		}()
		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				closeReason = err.Error()
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					observability.IncWSEvent("ws_error")
					_ = observability.PublishEvent(ctx, observability.RoutingKeyWSEvents, observability.EventEnvelope{
						EventType: "ws_events",
						EventName: "ws_error",
						Payload:   wsEventPayload(key, "ws_error", info, time.Since(info.ConnectedAt).Milliseconds(), closeReason),
					}, observability.BuildHeaders(requestID, traceID))
				}
				return
			}
			h.handleClientFrame(context.Background(), key, userID, raw)
		}
	}()
}

// handleClientFrame interprets inbound frames as read acknowledgements:
// the client reports it has caught up with the conversation, the watermark
// advances to the server clock and the new value is broadcast. Any other
// frame is dropped.
func (h *ChatWebSocketHandler) handleClientFrame(ctx context.Context, key, userID string, raw []byte) {
	var frame struct {
		Type     string `json:"type"`
		LastRead any    `json:"last_read"`
	}
	if err := json.Unmarshal(raw, &frame); err != nil || frame.Type != "read" {
		return
	}
	// Clients echo their local read time in whatever shape their clock
	// produces, native, unix milliseconds or an RFC3339 string. A frame
	// whose timestamp does not parse is treated as malformed and dropped;
	// the stored watermark stays server-assigned either way.
	if frame.LastRead != nil {
		if _, ok := inbox.ParseTimestamp(frame.LastRead); !ok {
			return
		}
	}
	lastRead, err := h.watermarks.Touch(ctx, userID, key)
	if err != nil {
		log.Printf("watermark touch over websocket failed: %v", err)
		return
	}
	h.hub.BroadcastRead(key, userID, lastRead)
}

func (h *ChatWebSocketHandler) validateToken(header string) (string, error) {
	parts := strings.Split(header, " ")
	if len(parts) != 2 {
		return "", auth.ErrInvalidToken
	}
	return h.tokens.Verify(parts[1])
}

func wsEventPayload(key, event string, info ConnInfo, durationMS int64, reason string) map[string]interface{} {
	return map[string]interface{}{
		"ws": map[string]interface{}{
			"conversation_key": key,
			"peer_id":          models.ConversationPeer(key, info.UserID),
			"event":            event,
			"conn_id":          info.ConnID,
			"duration_ms":      durationMS,
			"reason":           reason,
		},
		"identity": map[string]interface{}{
			"user_id":   info.UserID,
			"device_id": info.DeviceID,
			"ip":        info.IP,
		},
	}
}
