package handlers

import (
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"chat-feed/internal/mocks"
	"chat-feed/internal/telemetry"
	"chat-feed/internal/ws"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func TestDebugRoutesDisabled(t *testing.T) {
	router := gin.New()
	RegisterDebugRoutes(router, nil, ws.NewHub(), false)

	assert.Equal(t, http.StatusNotFound, perform(router, http.MethodGet, "/debug/sessions", nil).Code)
}

func TestDebugRoutes(t *testing.T) {
	publisher := new(mocks.PublisherMock)
	publisher.On("Publish", mock.Anything, "audit.feed", mock.Anything).Return(nil).Once()
	emitter := telemetry.NewAuditEmitter(publisher, "audit.feed", "chat-feed", "test", slog.New(slog.NewTextHandler(io.Discard, nil)))

	hub := ws.NewHub()
	hub.Add(nopCloser{}, ws.ConnInfo{Channel: "general", Username: "alice"})

	router := gin.New()
	RegisterDebugRoutes(router, emitter, hub, true)

	w := perform(router, http.MethodGet, "/debug/sessions", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"channels":[{"channel":"general","connections":1,"users":["alice"]}]}`, w.Body.String())

	assert.Equal(t, http.StatusOK, perform(router, http.MethodGet, "/debug/audit-test", nil).Code)
	publisher.AssertExpectations(t)
}
