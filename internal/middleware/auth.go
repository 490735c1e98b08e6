package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"chat-feed/internal/session"
)

const (
	UsernameKey = "username"
	UserIDKey   = "userID"
)

// SessionValidator checks bearer session tokens.
type SessionValidator interface {
	Validate(token string) (*session.Claims, error)
}

// AuthMiddleware validates the session token and stores the user in the
// gin context. Browsers cannot set headers on WebSocket upgrades, so a
// `token` query parameter is accepted there.
func AuthMiddleware(sessions SessionValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization"})
			return
		}

		claims, err := sessions.Validate(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(UsernameKey, claims.Username)
		c.Set(UserIDKey, claims.UserID)
		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if header == "" {
		if token := c.Query("token"); token != "" && isUpgrade(c.Request) {
			return token, true
		}
		return "", false
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func isUpgrade(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Upgrade"), "websocket")
}

// Username returns the authenticated username, if any.
func Username(c *gin.Context) string {
	return c.GetString(UsernameKey)
}

// UserID returns the authenticated user id, or 0.
func UserID(c *gin.Context) int {
	return c.GetInt(UserIDKey)
}
