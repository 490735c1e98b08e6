package middleware

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"chat-feed/internal/observability"
	"chat-feed/internal/repositories"
)

// RateLimit allows limit requests per user (or client IP when anonymous)
// per window. A nil repository disables the limit. Limiter failures let
// the request through.
func RateLimit(repo repositories.RateLimitRepository, scope string, limit int, window time.Duration, log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if repo == nil || limit <= 0 {
			c.Next()
			return
		}

		subject := Username(c)
		if subject == "" {
			subject = c.ClientIP()
		}
		key := scope + ":" + subject
		ctx := c.Request.Context()

		allowed, err := repo.CheckLimit(ctx, key, limit)
		if err != nil {
			log.Warn("rate limit check failed", "key", key, "error", err)
			c.Next()
			return
		}
		if !allowed {
			observability.IncRateLimited(scope)
			c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
			c.Header("X-RateLimit-Remaining", "0")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}

		count, err := repo.Increment(ctx, key, window)
		if err != nil {
			log.Warn("rate limit increment failed", "key", key, "error", err)
		}
		remaining := limit - int(count)
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Next()
	}
}
