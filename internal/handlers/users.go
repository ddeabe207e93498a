package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"skillverse/internal/inbox"
	"skillverse/internal/match"
	"skillverse/internal/models"
	"skillverse/internal/presence"
	"skillverse/internal/repositories"
	"skillverse/internal/storage"
	"skillverse/internal/telemetry"
)

// UserHandler manages profile, match and stats endpoints.
type UserHandler struct {
	users      repositories.UserRepository
	messages   repositories.MessageRepository
	watermarks repositories.WatermarkRepository
	sessions   repositories.SessionRepository
	reviews    repositories.ReviewRepository
	tracker    *presence.Tracker
	blobs      storage.BlobStore
	audit      *telemetry.AuditEmitter
}

// NewUserHandler builds a UserHandler.
func NewUserHandler(
	users repositories.UserRepository,
	messages repositories.MessageRepository,
	watermarks repositories.WatermarkRepository,
	sessions repositories.SessionRepository,
	reviews repositories.ReviewRepository,
	tracker *presence.Tracker,
	blobs storage.BlobStore,
	audit *telemetry.AuditEmitter,
) *UserHandler {
	return &UserHandler{
		users:      users,
		messages:   messages,
		watermarks: watermarks,
		sessions:   sessions,
		reviews:    reviews,
		tracker:    tracker,
		blobs:      blobs,
		audit:      audit,
	}
}

// Me returns the authenticated user's own profile.
func (h *UserHandler) Me(c *gin.Context) {
	userID := c.GetString("userID")

	user, err := h.users.GetUser(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load profile"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}

// UpdateMe updates the authenticated user's mutable profile fields.
func (h *UserHandler) UpdateMe(c *gin.Context) {
	var req struct {
		Skills   string `json:"skills"`
		Learning string `json:"learning"`
		Bio      string `json:"bio"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetString("userID")
	if err := h.users.UpdateProfile(c.Request.Context(), userID, req.Skills, req.Learning, req.Bio); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update profile"})
		return
	}

	user, err := h.users.GetUser(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load profile"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}

// UploadAvatar stores a profile photo in the blob store and saves its URL.
func (h *UserHandler) UploadAvatar(c *gin.Context) {
	if h.blobs == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "photo storage not configured"})
		return
	}

	userID := c.GetString("userID")

	fileHeader, err := c.FormFile("photo")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "photo file is required"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read photo"})
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	if ext == "" {
		ext = ".jpg"
	}
	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	key := fmt.Sprintf("avatars/%s/%d%s", userID, time.Now().UnixMilli(), ext)
	url, err := h.blobs.Upload(c.Request.Context(), key, contentType, file)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "photo upload failed"})
		return
	}

	if err := h.users.UpdatePhotoURL(c.Request.Context(), userID, url); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not save photo url"})
		return
	}

	h.audit.Emit(c.Request.Context(), "INFO", "avatar_upload", "profile photo updated", requestIDFromContext(c), &userID)

	c.JSON(http.StatusOK, gin.H{"photo_url": url})
}

// GetUser returns another user's public profile with the rating aggregate.
func (h *UserHandler) GetUser(c *gin.Context) {
	targetID := c.Param("user_id")

	user, err := h.users.GetUser(c.Request.Context(), targetID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load user"})
		return
	}

	rating, err := h.ratingFor(c, targetID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load rating"})
		return
	}

	profile := user.Public()
	profile.Online = h.tracker.Online(c.Request.Context(), user)

	c.JSON(http.StatusOK, gin.H{"user": profile, "rating": rating})
}

// Matches lists the users whose skills cover the viewer's learning interest,
// with online state and unread badge per match plus the activity summary.
func (h *UserHandler) Matches(c *gin.Context) {
	viewerID := c.GetString("userID")

	viewer, err := h.users.GetUser(c.Request.Context(), viewerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load profile"})
		return
	}

	all, err := h.users.ListUsers(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load users"})
		return
	}

	matches := match.Matches(viewer, all)
	match.Sort(matches, c.Query("sort"))

	type matchResponse struct {
		models.PublicProfile
		Unread int `json:"unread"`
	}

	now := time.Now()
	responses := make([]matchResponse, 0, len(matches))
	for _, m := range matches {
		key := models.ConversationKey(viewerID, m.ID)

		unread := 0
		if msgs, err := h.messages.ListMessages(c.Request.Context(), key); err == nil && len(msgs) > 0 {
			lastRead, _ := h.watermarks.Get(c.Request.Context(), viewerID, key)
			unread = inbox.UnreadCount(msgs, viewerID, lastRead)
		}

		profile := m.Public()
		profile.Online = presence.IsOnline(m, now)
		responses = append(responses, matchResponse{PublicProfile: profile, Unread: unread})
	}

	c.JSON(http.StatusOK, gin.H{
		"matches": responses,
		"summary": gin.H{
			"total":        len(matches),
			"new_last_24h": match.NewWithin(matches, now, 24*time.Hour),
			"activity":     match.ActivityHistogram(matches, now, 7),
		},
	})
}

// Stats returns the authenticated user's rating and session aggregates.
func (h *UserHandler) Stats(c *gin.Context) {
	userID := c.GetString("userID")

	sessions, err := h.sessions.ListSessionsForUser(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load sessions"})
		return
	}

	sessionIDs := make([]string, 0, len(sessions))
	byStatus := map[string]int{}
	for _, s := range sessions {
		sessionIDs = append(sessionIDs, s.ID)
		byStatus[s.Status]++
	}

	var reviews []models.Review
	if len(sessionIDs) > 0 {
		reviews, err = h.reviews.ListReviewsForSessions(c.Request.Context(), sessionIDs)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load reviews"})
			return
		}
	}

	taught, learned := match.TopicCounts(sessions, userID)

	c.JSON(http.StatusOK, gin.H{
		"rating":             match.Rating(userID, sessions, reviews),
		"sessions_by_status": byStatus,
		"taught_by_topic":    taught,
		"learned_by_topic":   learned,
	})
}

func (h *UserHandler) ratingFor(c *gin.Context, userID string) (match.RatingSummary, error) {
	sessions, err := h.sessions.ListSessionsForUser(c.Request.Context(), userID)
	if err != nil {
		return match.RatingSummary{}, err
	}
	if len(sessions) == 0 {
		return match.RatingSummary{}, nil
	}

	sessionIDs := make([]string, 0, len(sessions))
	for _, s := range sessions {
		sessionIDs = append(sessionIDs, s.ID)
	}

	reviews, err := h.reviews.ListReviewsForSessions(c.Request.Context(), sessionIDs)
	if err != nil {
		return match.RatingSummary{}, err
	}

	return match.Rating(userID, sessions, reviews), nil
}
