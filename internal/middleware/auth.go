package middleware

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"skillverse/internal/auth"
)

// AuthMiddleware validates the Authorization bearer token and rejects tokens
// revoked by logout. rdb may be nil, in which case revocation is skipped.
func AuthMiddleware(tokens *auth.Manager, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization"})
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header"})
			return
		}

		userID, err := tokens.Verify(parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		if rdb != nil {
			n, err := rdb.Exists(c.Request.Context(), BlacklistKey(parts[1])).Result()
			if err != nil {
				// Revocation check is advisory: a broken redis must not take
				// the whole API down.
				log.Printf("token blacklist check failed: %v", err)
			} else if n > 0 {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token revoked"})
				return
			}
		}

		c.Set("userID", userID)
		c.Next()
	}
}

// BlacklistKey is the redis key under which a revoked token is stored.
func BlacklistKey(token string) string {
	return "blacklist:" + token
}
