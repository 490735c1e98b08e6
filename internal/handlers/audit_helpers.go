package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"chat-feed/internal/middleware"
	"chat-feed/internal/telemetry"
)

func requestIDFromContext(c *gin.Context) string {
	if id := c.GetString(middleware.RequestIDKey); id != "" {
		return id
	}

	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Set(middleware.RequestIDKey, requestID)
	return requestID
}

func audit(c *gin.Context, emitter *telemetry.AuditEmitter, action, text string, fields map[string]string) {
	emitter.Emit(c.Request.Context(), telemetry.AuditEntry{
		Action:    action,
		Text:      text,
		RequestID: requestIDFromContext(c),
		Username:  middleware.Username(c),
		Fields:    fields,
	})
}
