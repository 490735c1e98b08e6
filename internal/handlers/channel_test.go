package handlers

import (
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"chat-feed/internal/conversation"
	"chat-feed/internal/feed"
	"chat-feed/internal/mocks"
	"chat-feed/internal/models"
	"chat-feed/internal/repositories"
)

var feedAnchor = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func channelRouter(channels *mocks.ChannelRepoMock, backend *mocks.BackendMock) (*gin.Engine, *ChannelHandler) {
	builder := &feed.Builder{
		Config:   feed.Config{BotsEnabled: true, BotAuthorPrefix: "bot:"},
		PageSize: 10,
		Script: []models.ScriptEntry{
			{Offset: 5 * time.Second, Author: "bot:ada", Text: "welcome"},
			{Offset: time.Hour, Author: "bot:ada", Text: "still here"},
		},
		BotIDPrefix: "bot-",
		Backends:    func(string) conversation.Backend { return backend },
	}
	h := NewChannelHandler(channels, builder, slog.New(slog.NewTextHandler(io.Discard, nil)))

	router := gin.New()
	group := router.Group("/", asUser(7, "alice"))
	group.GET("/channels", h.ListChannels)
	group.GET("/channels/:name", h.GetChannel)
	group.POST("/channels/:name/join", h.JoinChannel)
	group.GET("/channels/:name/feed", h.GetFeed)
	return router, h
}

func general() models.Channel {
	return models.Channel{ID: 1, Name: "general", CreatedAt: feedAnchor}
}

func TestListChannels(t *testing.T) {
	channels := new(mocks.ChannelRepoMock)
	channels.On("ListChannels", mock.Anything).
		Return([]models.ChannelSummary{{Channel: general(), Members: 3}}, nil).Once()
	router, _ := channelRouter(channels, nil)

	w := perform(router, http.MethodGet, "/channels", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list, _ := decode(t, w)["channels"].([]any)
	require.Len(t, list, 1)
	assert.EqualValues(t, 3, list[0].(map[string]any)["members"])
}

func TestListChannelsEmpty(t *testing.T) {
	channels := new(mocks.ChannelRepoMock)
	channels.On("ListChannels", mock.Anything).Return(nil, nil).Once()
	router, _ := channelRouter(channels, nil)

	w := perform(router, http.MethodGet, "/channels", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"channels":[]}`, w.Body.String())
}

func TestGetAndJoinChannel(t *testing.T) {
	channels := new(mocks.ChannelRepoMock)
	channels.On("GetByName", mock.Anything, "general").Return(general(), nil)
	channels.On("GetByName", mock.Anything, "missing").Return(models.Channel{}, repositories.ErrChannelNotFound)
	channels.On("IsMember", mock.Anything, 1, 7).Return(false, nil).Once()
	channels.On("Join", mock.Anything, 1, 7).Return(nil).Once()
	router, _ := channelRouter(channels, nil)

	w := perform(router, http.MethodGet, "/channels/general", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decode(t, w)["member"])

	w = perform(router, http.MethodPost, "/channels/general/join", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = perform(router, http.MethodGet, "/channels/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = perform(router, http.MethodPost, "/channels/missing/join", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	channels.AssertExpectations(t)
}

func TestGetFeedMergesDueBotMessages(t *testing.T) {
	channels := new(mocks.ChannelRepoMock)
	channels.On("GetByName", mock.Anything, "general").Return(general(), nil)
	backend := new(mocks.BackendMock)
	unsubscribed := false
	backend.CaptureSubscription("general", &unsubscribed)
	backend.On("Query", mock.Anything, "general", mock.Anything).Return([]*models.Message{
		{ID: "m1", ConversationID: "general", CreatedBy: "bob", CreatedAt: feedAnchor, Body: models.ParseBody("hello")},
	}, nil).Once()

	router, h := channelRouter(channels, backend)
	h.now = func() time.Time { return feedAnchor.Add(time.Minute) }

	w := perform(router, http.MethodGet, "/channels/general/feed", nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	msgs, _ := body["messages"].([]any)
	require.Len(t, msgs, 2)
	assert.Equal(t, "m1", msgs[0].(map[string]any)["id"])
	assert.Equal(t, "bot-general-0", msgs[1].(map[string]any)["id"])
	assert.Equal(t, false, body["loading"])
	assert.True(t, unsubscribed)
}

func TestGetFeedBackendFailure(t *testing.T) {
	channels := new(mocks.ChannelRepoMock)
	channels.On("GetByName", mock.Anything, "general").Return(general(), nil)
	backend := new(mocks.BackendMock)
	backend.On("Subscribe", mock.Anything, "general", mock.Anything).Return(nil, assert.AnError).Once()

	router, _ := channelRouter(channels, backend)
	w := perform(router, http.MethodGet, "/channels/general/feed", nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)
}
