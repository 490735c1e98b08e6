package observability

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type publisherMock struct {
	mock.Mock
}

func (m *publisherMock) Publish(ctx context.Context, routingKey string, event any) error {
	args := m.Called(ctx, routingKey, event)
	return args.Error(0)
}

func TestIPFromRequest(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	assert.Equal(t, "10.0.0.1", IPFromRequest(req))

	req.Header.Set("X-Forwarded-For", "1.2.3.4, 10.0.0.1")
	assert.Equal(t, "1.2.3.4", IPFromRequest(req))
}

func TestRequestIDFromRequest(t *testing.T) {
	req := httptest.NewRequest("GET", "/ws?request_id=q1", nil)
	assert.Equal(t, "q1", RequestIDFromRequest(req))

	req.Header.Set("X-Request-Id", "h1")
	assert.Equal(t, "h1", RequestIDFromRequest(req))
}

func TestPublishEventAttachesHeaders(t *testing.T) {
	pub := new(publisherMock)
	SetPublisher(pub)
	defer SetPublisher(nil)

	pub.On("Publish", mock.Anything, "ws_events.feeds", mock.MatchedBy(func(e EventEnvelope) bool {
		return e.EventName == "ws_connect" && e.Headers["x-request-id"] == "r1" && e.Headers["trace_id"] == "t1"
	})).Return(nil).Once()

	err := PublishEvent(context.Background(), "ws_events.feeds", EventEnvelope{EventType: "ws_events", EventName: "ws_connect"}, BuildHeaders("r1", "t1"))
	require.NoError(t, err)
	pub.AssertExpectations(t)
}

func TestPublishEventWithoutPublisher(t *testing.T) {
	SetPublisher(nil)
	assert.NoError(t, PublishEvent(context.Background(), "k", EventEnvelope{}, nil))
}

func TestBuildHeadersSkipsEmpty(t *testing.T) {
	assert.Empty(t, BuildHeaders("", ""))
}
