package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"chat-feed/internal/middleware"
	"chat-feed/internal/models"
	"chat-feed/internal/repositories"
)

const recentMessagesLimit = 20

// UserHandler serves the current user's profile.
type UserHandler struct {
	users    repositories.UserRepository
	messages repositories.MessageRepository
}

func NewUserHandler(users repositories.UserRepository, messages repositories.MessageRepository) *UserHandler {
	return &UserHandler{users: users, messages: messages}
}

// Me returns the profile plus the user's recently archived messages.
func (h *UserHandler) Me(c *gin.Context) {
	user, err := h.users.GetByID(c.Request.Context(), middleware.UserID(c))
	if errors.Is(err, repositories.ErrUserNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load user"})
		return
	}

	recent, err := h.messages.ListRecentByAuthor(c.Request.Context(), user.Username, recentMessagesLimit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}
	if recent == nil {
		recent = []models.StoredMessage{}
	}

	c.JSON(http.StatusOK, gin.H{"user": user, "recent_messages": recent})
}
