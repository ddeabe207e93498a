package handlers

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"skillverse/internal/models"
	"skillverse/internal/observability"
	"skillverse/internal/repositories"
	"skillverse/internal/telemetry"
)

// Sessions whose effective end is older than this are removed lazily on
// listing.
const sessionRetention = 45 * 24 * time.Hour

// SessionHandler manages scheduled sessions and their reviews.
type SessionHandler struct {
	sessions repositories.SessionRepository
	reviews  repositories.ReviewRepository
	users    repositories.UserRepository
	audit    *telemetry.AuditEmitter
}

// NewSessionHandler builds a SessionHandler.
func NewSessionHandler(sessions repositories.SessionRepository, reviews repositories.ReviewRepository, users repositories.UserRepository, audit *telemetry.AuditEmitter) *SessionHandler {
	return &SessionHandler{sessions: sessions, reviews: reviews, users: users, audit: audit}
}

// Create schedules a new session with the authenticated user as host.
func (h *SessionHandler) Create(c *gin.Context) {
	var req struct {
		GuestID string    `json:"guest_id" binding:"required"`
		Topic   string    `json:"topic"`
		StartAt time.Time `json:"start_at" binding:"required"`
		EndAt   time.Time `json:"end_at"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	hostID := c.GetString("userID")
	if req.GuestID == hostID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot schedule a session with yourself"})
		return
	}
	if !req.EndAt.IsZero() && !req.EndAt.After(req.StartAt) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "end must be after start"})
		return
	}

	if _, err := h.users.GetUser(c.Request.Context(), req.GuestID); err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "guest not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load guest"})
		return
	}

	topic := req.Topic
	if topic == "" {
		topic = "General"
	}

	session := models.Session{
		ID:      uuid.NewString(),
		HostID:  hostID,
		GuestID: req.GuestID,
		Topic:   topic,
		StartAt: req.StartAt,
		EndAt:   req.EndAt,
		Status:  models.SessionPending,
	}

	created, err := h.sessions.CreateSession(c.Request.Context(), session)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create session"})
		return
	}

	h.audit.Emit(c.Request.Context(), "INFO", "session_create", "session scheduled", requestIDFromContext(c), &hostID)
	publishSessionEvent(c, "session_created", created, hostID)

	c.JSON(http.StatusCreated, gin.H{"session": created})
}

// List returns the authenticated user's sessions, optionally filtered by
// status. Listing first sweeps out sessions past the retention window.
func (h *SessionHandler) List(c *gin.Context) {
	userID := c.GetString("userID")
	ctx := c.Request.Context()

	// Lazy retention sweep. A failed sweep only delays cleanup until the
	// next listing.
	cutoff := time.Now().Add(-sessionRetention)
	if n, err := h.sessions.DeleteSessionsEndedBefore(ctx, userID, cutoff); err != nil {
		log.Printf("session cleanup failed for %s: %v", userID, err)
	} else if n > 0 {
		observability.AddSessionsExpired(n)
	}

	sessions, err := h.sessions.ListSessionsForUser(ctx, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load sessions"})
		return
	}

	statusFilter := c.Query("status")
	if statusFilter != "" && !models.ValidSessionStatus(statusFilter) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status filter"})
		return
	}

	type sessionResponse struct {
		models.Session
		JoinURL string `json:"join_url,omitempty"`
	}

	responses := make([]sessionResponse, 0, len(sessions))
	for _, s := range sessions {
		if statusFilter != "" && s.Status != statusFilter {
			continue
		}
		resp := sessionResponse{Session: s}
		if s.Status == models.SessionAccepted {
			resp.JoinURL = joinURL(s.ID)
		}
		responses = append(responses, resp)
	}

	c.JSON(http.StatusOK, gin.H{"sessions": responses})
}

// Respond lets the guest accept or reject a pending session. The transition
// is one-shot.
func (h *SessionHandler) Respond(c *gin.Context) {
	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Status != models.SessionAccepted && req.Status != models.SessionRejected {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status must be accepted or rejected"})
		return
	}

	sessionID := c.Param("session_id")
	session, err := h.sessions.GetSession(c.Request.Context(), sessionID)
	if err != nil {
		if errors.Is(err, repositories.ErrSessionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load session"})
		return
	}

	userID := c.GetString("userID")
	if session.GuestID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "only the guest may respond"})
		return
	}

	if err := h.sessions.RespondToSession(c.Request.Context(), sessionID, req.Status); err != nil {
		if errors.Is(err, repositories.ErrSessionNotPending) {
			c.JSON(http.StatusConflict, gin.H{"error": "session already responded to"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update session"})
		return
	}

	h.audit.Emit(c.Request.Context(), "INFO", "session_respond", "session "+req.Status, requestIDFromContext(c), &userID)

	session.Status = req.Status
	publishSessionEvent(c, "session_"+req.Status, session, userID)
	resp := gin.H{"session": session}
	if req.Status == models.SessionAccepted {
		resp["join_url"] = joinURL(session.ID)
	}
	c.JSON(http.StatusOK, resp)
}

// Review records a 1-5 rating for a session the user took part in.
func (h *SessionHandler) Review(c *gin.Context) {
	var req struct {
		Rating int `json:"rating" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Rating < 1 || req.Rating > 5 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "rating must be between 1 and 5"})
		return
	}

	sessionID := c.Param("session_id")
	session, err := h.sessions.GetSession(c.Request.Context(), sessionID)
	if err != nil {
		if errors.Is(err, repositories.ErrSessionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load session"})
		return
	}

	userID := c.GetString("userID")
	if !session.Involves(userID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a session participant"})
		return
	}

	review, err := h.reviews.CreateReview(c.Request.Context(), sessionID, userID, req.Rating)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not store review"})
		return
	}

	h.audit.Emit(c.Request.Context(), "INFO", "session_review", "session reviewed", requestIDFromContext(c), &userID)

	c.JSON(http.StatusCreated, gin.H{"review": review})
}

func joinURL(sessionID string) string {
	return "https://meet.jit.si/skillverse-" + sessionID
}

// publishSessionEvent emits a session lifecycle event on the bus. Publishing
// is fire-and-forget; a missing publisher is a no-op.
func publishSessionEvent(c *gin.Context, name string, session models.Session, actorID string) {
	payload := map[string]interface{}{
		"session": map[string]interface{}{
			"id":       session.ID,
			"host_id":  session.HostID,
			"guest_id": session.GuestID,
			"topic":    session.Topic,
			"status":   session.Status,
		},
		"identity": map[string]interface{}{
			"user_id": actorID,
		},
	}
	_ = observability.PublishEvent(c.Request.Context(), observability.RoutingKeySessions, observability.EventEnvelope{
		EventType: "session_events",
		EventName: name,
		Payload:   payload,
	}, observability.BuildHeaders(requestIDFromContext(c), ""))
}
