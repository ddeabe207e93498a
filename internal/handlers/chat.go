package handlers

import (
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"skillverse/internal/inbox"
	"skillverse/internal/models"
	"skillverse/internal/observability"
	"skillverse/internal/presence"
	"skillverse/internal/repositories"
	"skillverse/internal/ws"
)

// ChatHandler manages the direct-message endpoints.
type ChatHandler struct {
	users      repositories.UserRepository
	messages   repositories.MessageRepository
	watermarks repositories.WatermarkRepository
	hub        *ws.Hub
}

// NewChatHandler builds a ChatHandler.
func NewChatHandler(
	users repositories.UserRepository,
	messages repositories.MessageRepository,
	watermarks repositories.WatermarkRepository,
	hub *ws.Hub,
) *ChatHandler {
	return &ChatHandler{
		users:      users,
		messages:   messages,
		watermarks: watermarks,
		hub:        hub,
	}
}

// ListChats returns the viewer's inbox: one row per peer with message
// history, newest conversation first, with unread badges and seen state.
// Supports ?search= name filtering and ?unread=true.
func (h *ChatHandler) ListChats(c *gin.Context) {
	viewerID := c.GetString("userID")
	ctx := c.Request.Context()

	all, err := h.users.ListUsers(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load users"})
		return
	}

	now := time.Now()
	view := inbox.NewView(viewerID)
	for _, peer := range all {
		if peer.ID == viewerID {
			continue
		}
		key := models.ConversationKey(viewerID, peer.ID)

		msgs, err := h.messages.ListMessages(ctx, key)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
			return
		}
		if len(msgs) == 0 {
			continue
		}

		view.ApplyProfile(peer, presence.IsOnline(peer, now))
		view.ApplyMessages(peer.ID, msgs)

		lastRead, err := h.watermarks.Get(ctx, viewerID, key)
		if err == nil {
			view.ApplyWatermark(peer.ID, lastRead)
		}
		peerRead, err := h.watermarks.Get(ctx, peer.ID, key)
		if err == nil {
			view.ApplyPeerWatermark(peer.ID, peerRead)
		}
	}

	unreadOnly := c.Query("unread") == "true"
	rows := view.Rows(c.Query("search"), unreadOnly)

	c.JSON(http.StatusOK, gin.H{"chats": rows, "total_unread": view.TotalUnread()})
}

// GetMessages returns the full ordered message list for the conversation
// with the named peer. Viewing the conversation advances the viewer's read
// watermark as a side effect.
func (h *ChatHandler) GetMessages(c *gin.Context) {
	viewerID := c.GetString("userID")
	peerID := c.Param("peer_id")

	if _, err := h.users.GetUser(c.Request.Context(), peerID); err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load user"})
		return
	}

	key := models.ConversationKey(viewerID, peerID)
	msgs, err := h.messages.ListMessages(c.Request.Context(), key)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}

	// Watermark touch is a background write: failures never block the fetch.
	var lastRead *time.Time
	if ts, err := h.watermarks.Touch(c.Request.Context(), viewerID, key); err != nil {
		log.Printf("watermark touch failed for %s/%s: %v", viewerID, key, err)
	} else {
		lastRead = &ts
		h.hub.BroadcastRead(key, viewerID, ts)
	}

	c.JSON(http.StatusOK, gin.H{"messages": msgs, "last_read": lastRead})
}

// PostMessage appends a message to the conversation and fans it out to the
// websocket room. Messages that are empty after trimming are dropped
// silently, matching the composer behavior users expect.
func (h *ChatHandler) PostMessage(c *gin.Context) {
	var req struct {
		Text string `json:"text"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	text := strings.TrimSpace(req.Text)
	if text == "" {
		c.Status(http.StatusNoContent)
		return
	}

	viewerID := c.GetString("userID")
	peerID := c.Param("peer_id")
	if peerID == viewerID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot message yourself"})
		return
	}

	if _, err := h.users.GetUser(c.Request.Context(), peerID); err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load user"})
		return
	}

	key := models.ConversationKey(viewerID, peerID)
	msg, err := h.messages.CreateMessage(c.Request.Context(), key, viewerID, text)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not store message"})
		return
	}

	// The broadcast happens only after the row is committed, so subscribers
	// never see a message without its durable timestamp.
	observability.IncMessageSent()
	h.hub.BroadcastMessage(key, msg)

	c.JSON(http.StatusCreated, gin.H{"message": msg})
}

// MarkRead advances the viewer's read watermark for the conversation.
func (h *ChatHandler) MarkRead(c *gin.Context) {
	viewerID := c.GetString("userID")
	peerID := c.Param("peer_id")
	key := models.ConversationKey(viewerID, peerID)

	ts, err := h.watermarks.Touch(c.Request.Context(), viewerID, key)
	if err != nil {
		log.Printf("watermark touch failed for %s/%s: %v", viewerID, key, err)
		c.Status(http.StatusNoContent)
		return
	}

	h.hub.BroadcastRead(key, viewerID, ts)
	c.JSON(http.StatusOK, gin.H{"last_read": ts})
}
