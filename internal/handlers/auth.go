package handlers

import (
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"skillverse/internal/auth"
	"skillverse/internal/middleware"
	"skillverse/internal/models"
	"skillverse/internal/presence"
	"skillverse/internal/repositories"
	"skillverse/internal/telemetry"
)

// AuthHandler manages signup, login and logout.
type AuthHandler struct {
	users   repositories.UserRepository
	tokens  *auth.Manager
	tracker *presence.Tracker
	rdb     *redis.Client
	audit   *telemetry.AuditEmitter
}

// NewAuthHandler builds an AuthHandler. rdb may be nil, which disables the
// logout blacklist.
func NewAuthHandler(users repositories.UserRepository, tokens *auth.Manager, tracker *presence.Tracker, rdb *redis.Client, audit *telemetry.AuditEmitter) *AuthHandler {
	return &AuthHandler{users: users, tokens: tokens, tracker: tracker, rdb: rdb, audit: audit}
}

// Signup registers a new profile and returns a bearer token.
func (h *AuthHandler) Signup(c *gin.Context) {
	var req struct {
		Name     string `json:"name" binding:"required"`
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required,min=6"`
		Skills   string `json:"skills"`
		Learning string `json:"learning"`
		Bio      string `json:"bio"`
		Role     string `json:"role"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	role := req.Role
	if role == "" {
		role = models.RoleBoth
	}
	if role != models.RoleTeacher && role != models.RoleLearner && role != models.RoleBoth {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid role"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not hash password"})
		return
	}

	user := models.User{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(req.Name),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: string(hash),
		Skills:       req.Skills,
		Learning:     req.Learning,
		Bio:          req.Bio,
		Role:         role,
	}

	if err := h.users.CreateUser(c.Request.Context(), user); err != nil {
		if errors.Is(err, repositories.ErrEmailTaken) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "email already registered"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create user"})
		return
	}

	token, err := h.tokens.Generate(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not issue token"})
		return
	}

	h.tracker.MarkOnline(c.Request.Context(), user.ID)
	h.audit.Emit(c.Request.Context(), "INFO", "signup", "user signed up", requestIDFromContext(c), &user.ID)

	c.JSON(http.StatusCreated, gin.H{"token": token, "user": user.Public()})
}

// Login verifies credentials and returns a bearer token.
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.users.GetUserByEmail(c.Request.Context(), strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load user"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	token, err := h.tokens.Generate(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not issue token"})
		return
	}

	h.tracker.MarkOnline(c.Request.Context(), user.ID)
	h.audit.Emit(c.Request.Context(), "INFO", "login", "user logged in", requestIDFromContext(c), &user.ID)

	c.JSON(http.StatusOK, gin.H{"token": token, "user": user.Public()})
}

// Logout revokes the presented token and flags the user offline.
func (h *AuthHandler) Logout(c *gin.Context) {
	userID := c.GetString("userID")

	header := c.GetHeader("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) == 2 && h.rdb != nil {
		token := parts[1]
		if expiry, err := h.tokens.Expiry(token); err == nil {
			ttl := time.Until(expiry)
			if ttl > 0 {
				if err := h.rdb.Set(c.Request.Context(), middleware.BlacklistKey(token), "1", ttl).Err(); err != nil {
					log.Printf("token blacklist write failed: %v", err)
				}
			}
		}
	}

	h.tracker.MarkOffline(c.Request.Context(), userID)
	h.audit.Emit(c.Request.Context(), "INFO", "logout", "user logged out", requestIDFromContext(c), &userID)

	c.JSON(http.StatusOK, gin.H{"status": "logged out"})
}
