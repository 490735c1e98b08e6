package handlers

import (
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"chat-feed/internal/mocks"
	"chat-feed/internal/models"
	"chat-feed/internal/repositories"
	"chat-feed/internal/session"
)

func loginRouter(t *testing.T) (*gin.Engine, *mocks.UserRepoMock, *session.Manager) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	require.NoError(t, err)

	users := new(mocks.UserRepoMock)
	users.On("GetByUsername", mock.Anything, "alice").
		Return(models.User{ID: 7, Username: "alice", PasswordHash: string(hash)}, nil)
	users.On("GetByUsername", mock.Anything, "nobody").
		Return(models.User{}, repositories.ErrUserNotFound)

	sessions := session.NewManager("test-secret", "chat-feed", time.Hour)
	h := NewAuthHandler(users, sessions, nil)

	router := gin.New()
	router.POST("/auth/login", h.Login)
	return router, users, sessions
}

func TestLoginIssuesSession(t *testing.T) {
	router, users, sessions := loginRouter(t)

	w := perform(router, http.MethodPost, "/auth/login", gin.H{"username": "alice", "password": "hunter2"})
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	assert.NotContains(t, w.Body.String(), "password_hash")

	claims, err := sessions.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, 7, claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	users.AssertExpectations(t)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	router, _, _ := loginRouter(t)

	w := perform(router, http.MethodPost, "/auth/login", gin.H{"username": "alice", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = perform(router, http.MethodPost, "/auth/login", gin.H{"username": "nobody", "password": "x"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = perform(router, http.MethodPost, "/auth/login", gin.H{"username": "alice"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
