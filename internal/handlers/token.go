package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"chat-feed/internal/middleware"
	"chat-feed/internal/observability"
	"chat-feed/internal/telemetry"
	"chat-feed/internal/tokens"
)

// TokenIssuer mints realtime token requests.
type TokenIssuer interface {
	Issue(clientID string) (*tokens.Request, error)
}

// TokenHandler serves capability token requests for the realtime backend.
type TokenHandler struct {
	issuer TokenIssuer
	audit  *telemetry.AuditEmitter
}

func NewTokenHandler(issuer TokenIssuer, audit *telemetry.AuditEmitter) *TokenHandler {
	return &TokenHandler{issuer: issuer, audit: audit}
}

// GetToken returns a token request scoped to the session user.
func (h *TokenHandler) GetToken(c *gin.Context) {
	username := middleware.Username(c)
	if username == "" {
		observability.IncTokenIssued("unauthorized")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not logged in"})
		return
	}

	req, err := h.issuer.Issue(username)
	if err != nil {
		observability.IncTokenIssued("error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue token"})
		return
	}

	observability.IncTokenIssued("ok")
	audit(c, h.audit, "token_issued", "realtime token issued", map[string]string{"nonce": req.Nonce})
	c.JSON(http.StatusOK, req)
}
