package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"chat-feed/internal/conversation"
	"chat-feed/internal/models"
)

type BackendMock struct {
	mock.Mock
}

func (m *BackendMock) Query(ctx context.Context, channel string, q conversation.PageQuery) ([]*models.Message, error) {
	args := m.Called(ctx, channel, q)
	var msgs []*models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]*models.Message)
	}
	return msgs, args.Error(1)
}

func (m *BackendMock) Send(ctx context.Context, channel, text string) error {
	args := m.Called(ctx, channel, text)
	return args.Error(0)
}

func (m *BackendMock) Edit(ctx context.Context, channel, messageID, text string) error {
	args := m.Called(ctx, channel, messageID, text)
	return args.Error(0)
}

func (m *BackendMock) Delete(ctx context.Context, channel, messageID string) error {
	args := m.Called(ctx, channel, messageID)
	return args.Error(0)
}

func (m *BackendMock) AddReaction(ctx context.Context, channel, messageID, reactionType string) error {
	args := m.Called(ctx, channel, messageID, reactionType)
	return args.Error(0)
}

func (m *BackendMock) RemoveReaction(ctx context.Context, channel, reactionID string) error {
	args := m.Called(ctx, channel, reactionID)
	return args.Error(0)
}

func (m *BackendMock) Subscribe(ctx context.Context, channel string, handler conversation.EventHandler) (conversation.Unsubscribe, error) {
	args := m.Called(ctx, channel, handler)
	var unsub conversation.Unsubscribe
	if val := args.Get(0); val != nil {
		unsub = val.(conversation.Unsubscribe)
	}
	return unsub, args.Error(1)
}

// CaptureSubscription expects one Subscribe call for channel and records the
// handler it receives. The returned pointer is filled once Subscribe runs.
func (m *BackendMock) CaptureSubscription(channel string, unsubscribed *bool) *conversation.EventHandler {
	var handler conversation.EventHandler
	m.On("Subscribe", mock.Anything, channel, mock.Anything).
		Run(func(args mock.Arguments) {
			handler = args.Get(2).(conversation.EventHandler)
		}).
		Return(conversation.Unsubscribe(func() {
			if unsubscribed != nil {
				*unsubscribed = true
			}
		}), nil).Once()
	return &handler
}

var _ conversation.Backend = (*BackendMock)(nil)
