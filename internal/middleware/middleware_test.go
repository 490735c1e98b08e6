package middleware_test

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"chat-feed/internal/middleware"
	"chat-feed/internal/mocks"
	"chat-feed/internal/session"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func protectedRouter(sessions *session.Manager) *gin.Engine {
	router := gin.New()
	router.GET("/me", middleware.AuthMiddleware(sessions), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"username": middleware.Username(c), "id": middleware.UserID(c)})
	})
	return router
}

func TestAuthMiddlewareAcceptsBearerToken(t *testing.T) {
	sessions := session.NewManager("secret", "chat-feed", time.Hour)
	token, _, err := sessions.Issue(3, "alice")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	protectedRouter(sessions).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"username":"alice","id":3}`, w.Body.String())
}

func TestAuthMiddlewareRejectsMissingAndInvalid(t *testing.T) {
	sessions := session.NewManager("secret", "chat-feed", time.Hour)
	router := protectedRouter(sessions)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer nope")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"invalid token"}`, w.Body.String())
}

func TestAuthMiddlewareQueryTokenOnlyForUpgrades(t *testing.T) {
	sessions := session.NewManager("secret", "chat-feed", time.Hour)
	token, _, err := sessions.Issue(3, "alice")
	require.NoError(t, err)
	router := protectedRouter(sessions)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me?token="+token, nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/me?token="+token, nil)
	req.Header.Set("Upgrade", "websocket")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequestIDGeneratedAndEchoed(t *testing.T) {
	router := gin.New()
	router.Use(middleware.RequestID(), middleware.RequestLogger(quiet))
	router.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(middleware.RequestIDKey))
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	assert.Equal(t, w.Header().Get("X-Request-ID"), w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-Request-ID", "abc")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, "abc", w.Body.String())
}

func TestRateLimit(t *testing.T) {
	repo := new(mocks.RateLimitRepoMock)
	repo.On("CheckLimit", mock.Anything, "token:192.0.2.1", 2).Return(true, nil).Once()
	repo.On("Increment", mock.Anything, "token:192.0.2.1", time.Minute).Return(int64(1), nil).Once()
	repo.On("CheckLimit", mock.Anything, "token:192.0.2.1", 2).Return(false, nil).Once()

	router := gin.New()
	router.GET("/t", middleware.RateLimit(repo, "token", 2, time.Minute, quiet), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/t", nil)
		req.RemoteAddr = "192.0.2.1:1234"
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	w := send()
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Remaining"))

	w = send()
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	repo.AssertExpectations(t)
}

func TestRateLimitFailsOpen(t *testing.T) {
	repo := new(mocks.RateLimitRepoMock)
	repo.On("CheckLimit", mock.Anything, mock.Anything, 5).Return(false, assert.AnError)

	router := gin.New()
	router.GET("/t", middleware.RateLimit(repo, "token", 5, time.Minute, quiet), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/t", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	router = gin.New()
	router.GET("/t", middleware.RateLimit(nil, "token", 5, time.Minute, quiet), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/t", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
