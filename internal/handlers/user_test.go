package handlers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"chat-feed/internal/mocks"
	"chat-feed/internal/models"
	"chat-feed/internal/repositories"
)

func TestMeReturnsProfileAndRecentMessages(t *testing.T) {
	users := new(mocks.UserRepoMock)
	users.On("GetByID", mock.Anything, 7).Return(models.User{ID: 7, Username: "alice", PasswordHash: "secret"}, nil).Once()
	messages := new(mocks.MessageRepoMock)
	messages.On("ListRecentByAuthor", mock.Anything, "alice", recentMessagesLimit).
		Return([]models.StoredMessage{{ID: "a1", ChannelName: "general", Author: "alice", Content: "hi"}}, nil).Once()

	router := gin.New()
	router.GET("/users/me", asUser(7, "alice"), NewUserHandler(users, messages).Me)

	w := perform(router, http.MethodGet, "/users/me", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "secret")

	body := decode(t, w)
	recent, _ := body["recent_messages"].([]any)
	require.Len(t, recent, 1)
	assert.Equal(t, "hi", recent[0].(map[string]any)["content"])
	users.AssertExpectations(t)
	messages.AssertExpectations(t)
}

func TestMeUnknownUser(t *testing.T) {
	users := new(mocks.UserRepoMock)
	users.On("GetByID", mock.Anything, 7).Return(models.User{}, repositories.ErrUserNotFound).Once()

	router := gin.New()
	router.GET("/users/me", asUser(7, "alice"), NewUserHandler(users, new(mocks.MessageRepoMock)).Me)

	assert.Equal(t, http.StatusNotFound, perform(router, http.MethodGet, "/users/me", nil).Code)
}
