package ws

import (
	"context"
	"time"

	"github.com/google/uuid"

	"chat-feed/internal/observability"
)

const (
	wsKind       = "feed"
	wsRoutingKey = "ws_events.feeds"
)

func newConnID() string {
	return uuid.NewString()
}

// publishWSEvent emits a connection lifecycle envelope and counts it.
func publishWSEvent(ctx context.Context, info ConnInfo, event, reason string) {
	duration := int64(0)
	if event != "ws_connect" {
		duration = time.Since(info.ConnectedAt).Milliseconds()
	}
	payload := map[string]interface{}{
		"ws": map[string]interface{}{
			"kind":        wsKind,
			"channel":     info.Channel,
			"event":       event,
			"conn_id":     info.ConnID,
			"duration_ms": duration,
			"reason":      reason,
		},
		"identity": map[string]interface{}{
			"username":  info.Username,
			"device_id": info.DeviceID,
			"ip":        info.IP,
		},
	}

	_ = observability.PublishEvent(ctx, wsRoutingKey, observability.EventEnvelope{
		EventType: "ws_events",
		EventName: event,
		Payload:   payload,
	}, observability.BuildHeaders(info.RequestID, info.TraceID))
	observability.IncWSEvent(wsKind, event)
}
