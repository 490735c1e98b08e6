package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"chat-feed/internal/repositories"
	"chat-feed/internal/telemetry"
)

// SessionIssuer mints session tokens.
type SessionIssuer interface {
	Issue(userID int, username string) (string, time.Time, error)
}

// AuthHandler logs users in.
type AuthHandler struct {
	users    repositories.UserRepository
	sessions SessionIssuer
	audit    *telemetry.AuditEmitter
}

func NewAuthHandler(users repositories.UserRepository, sessions SessionIssuer, audit *telemetry.AuditEmitter) *AuthHandler {
	return &AuthHandler{users: users, sessions: sessions, audit: audit}
}

// Login verifies the password and returns a session token.
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.users.GetByUsername(c.Request.Context(), req.Username)
	if errors.Is(err, repositories.ErrUserNotFound) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load user"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		audit(c, h.audit, "login_failed", "invalid password", map[string]string{"username": req.Username})
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	token, expires, err := h.sessions.Issue(user.ID, user.Username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue session"})
		return
	}

	audit(c, h.audit, "login", "user logged in", map[string]string{"username": user.Username})
	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"expires_at": expires,
		"user":       user,
	})
}
