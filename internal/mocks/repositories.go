package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"chat-feed/internal/models"
	"chat-feed/internal/repositories"
)

type UserRepoMock struct {
	mock.Mock
}

func (m *UserRepoMock) GetByUsername(ctx context.Context, username string) (models.User, error) {
	args := m.Called(ctx, username)
	return args.Get(0).(models.User), args.Error(1)
}

func (m *UserRepoMock) GetByID(ctx context.Context, id int) (models.User, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(models.User), args.Error(1)
}

type ChannelRepoMock struct {
	mock.Mock
}

func (m *ChannelRepoMock) ListChannels(ctx context.Context) ([]models.ChannelSummary, error) {
	args := m.Called(ctx)
	var channels []models.ChannelSummary
	if val := args.Get(0); val != nil {
		channels = val.([]models.ChannelSummary)
	}
	return channels, args.Error(1)
}

func (m *ChannelRepoMock) GetByName(ctx context.Context, name string) (models.Channel, error) {
	args := m.Called(ctx, name)
	return args.Get(0).(models.Channel), args.Error(1)
}

func (m *ChannelRepoMock) Join(ctx context.Context, channelID int, userID int) error {
	args := m.Called(ctx, channelID, userID)
	return args.Error(0)
}

func (m *ChannelRepoMock) IsMember(ctx context.Context, channelID int, userID int) (bool, error) {
	args := m.Called(ctx, channelID, userID)
	return args.Bool(0), args.Error(1)
}

type VideoRepoMock struct {
	mock.Mock
}

func (m *VideoRepoMock) ListVideos(ctx context.Context) ([]models.Video, error) {
	args := m.Called(ctx)
	var videos []models.Video
	if val := args.Get(0); val != nil {
		videos = val.([]models.Video)
	}
	return videos, args.Error(1)
}

func (m *VideoRepoMock) GetVideo(ctx context.Context, videoID int) (models.Video, error) {
	args := m.Called(ctx, videoID)
	return args.Get(0).(models.Video), args.Error(1)
}

func (m *VideoRepoMock) AddFavorite(ctx context.Context, userID int, videoID int) error {
	args := m.Called(ctx, userID, videoID)
	return args.Error(0)
}

func (m *VideoRepoMock) RemoveFavorite(ctx context.Context, userID int, videoID int) error {
	args := m.Called(ctx, userID, videoID)
	return args.Error(0)
}

func (m *VideoRepoMock) ListFavorites(ctx context.Context, userID int) ([]models.Video, error) {
	args := m.Called(ctx, userID)
	var videos []models.Video
	if val := args.Get(0); val != nil {
		videos = val.([]models.Video)
	}
	return videos, args.Error(1)
}

type MessageRepoMock struct {
	mock.Mock
}

func (m *MessageRepoMock) Archive(ctx context.Context, channelName string, author string, content string) (models.StoredMessage, error) {
	args := m.Called(ctx, channelName, author, content)
	return args.Get(0).(models.StoredMessage), args.Error(1)
}

func (m *MessageRepoMock) ListRecentByAuthor(ctx context.Context, author string, limit int) ([]models.StoredMessage, error) {
	args := m.Called(ctx, author, limit)
	var msgs []models.StoredMessage
	if val := args.Get(0); val != nil {
		msgs = val.([]models.StoredMessage)
	}
	return msgs, args.Error(1)
}

type RateLimitRepoMock struct {
	mock.Mock
}

func (m *RateLimitRepoMock) CheckLimit(ctx context.Context, key string, limit int) (bool, error) {
	args := m.Called(ctx, key, limit)
	return args.Bool(0), args.Error(1)
}

func (m *RateLimitRepoMock) Increment(ctx context.Context, key string, window time.Duration) (int64, error) {
	args := m.Called(ctx, key, window)
	return args.Get(0).(int64), args.Error(1)
}

var (
	_ repositories.UserRepository      = (*UserRepoMock)(nil)
	_ repositories.ChannelRepository   = (*ChannelRepoMock)(nil)
	_ repositories.VideoRepository     = (*VideoRepoMock)(nil)
	_ repositories.MessageRepository   = (*MessageRepoMock)(nil)
	_ repositories.RateLimitRepository = (*RateLimitRepoMock)(nil)
)
