package telemetry_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"chat-feed/internal/config"
	"chat-feed/internal/logging"
	"chat-feed/internal/mocks"
	"chat-feed/internal/telemetry"
)

func TestAuditEmitterPublishesEnvelope(t *testing.T) {
	publisher := new(mocks.PublisherMock)
	var got telemetry.AuditEnvelope
	publisher.On("Publish", mock.Anything, "audit.feed", mock.AnythingOfType("telemetry.AuditEnvelope")).
		Run(func(args mock.Arguments) {
			got = args.Get(2).(telemetry.AuditEnvelope)
		}).
		Return(nil).Once()

	emitter := telemetry.NewAuditEmitter(publisher, "audit.feed", "chat-feed", "test", nil)
	emitter.Emit(context.Background(), telemetry.AuditEntry{
		Action:    "token_issued",
		Text:      "realtime token issued",
		RequestID: "req-1",
		Username:  "alice",
	})

	publisher.AssertExpectations(t)
	assert.Equal(t, "audit_log", got.EventType)
	assert.Equal(t, "INFO", got.Payload.Level)
	assert.Equal(t, "token_issued", got.Payload.Action)
	require.NotNil(t, got.Username)
	assert.Equal(t, "alice", *got.Username)
}

func TestAuditEmitterSwallowsPublishErrors(t *testing.T) {
	publisher := new(mocks.PublisherMock)
	publisher.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(assert.AnError).Once()

	emitter := telemetry.NewAuditEmitter(publisher, "audit.feed", "chat-feed", "test", nil)
	assert.NotPanics(t, func() {
		emitter.Emit(context.Background(), telemetry.AuditEntry{Action: "login"})
	})

	var nilEmitter *telemetry.AuditEmitter
	assert.NotPanics(t, func() {
		nilEmitter.Emit(context.Background(), telemetry.AuditEntry{Action: "login"})
	})
}

func TestInitTracingDisabledWithoutEndpoint(t *testing.T) {
	shutdown, err := telemetry.InitTracing(config.TracingConfig{ServiceName: "chat-feed"}, logging.New("error", "text"))
	require.NoError(t, err)
	assert.NotPanics(t, shutdown)
}
