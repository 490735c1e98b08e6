package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"chat-feed/internal/feed"
	"chat-feed/internal/middleware"
	"chat-feed/internal/models"
	"chat-feed/internal/repositories"
)

// FeedOpener opens a feed session for one viewer.
type FeedOpener interface {
	Open(ctx context.Context, channel, username string) (*feed.Session, error)
}

// ChannelHandler serves the channel catalog and one-shot feed snapshots.
type ChannelHandler struct {
	channels repositories.ChannelRepository
	feeds    FeedOpener
	log      *slog.Logger
	now      func() time.Time
}

func NewChannelHandler(channels repositories.ChannelRepository, feeds FeedOpener, log *slog.Logger) *ChannelHandler {
	return &ChannelHandler{channels: channels, feeds: feeds, log: log, now: time.Now}
}

func (h *ChannelHandler) ListChannels(c *gin.Context) {
	channels, err := h.channels.ListChannels(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load channels"})
		return
	}
	if channels == nil {
		channels = []models.ChannelSummary{}
	}
	c.JSON(http.StatusOK, gin.H{"channels": channels})
}

func (h *ChannelHandler) GetChannel(c *gin.Context) {
	ch, ok := h.lookup(c)
	if !ok {
		return
	}
	member, err := h.channels.IsMember(c.Request.Context(), ch.ID, middleware.UserID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to check membership"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"channel": ch, "member": member})
}

func (h *ChannelHandler) JoinChannel(c *gin.Context) {
	ch, ok := h.lookup(c)
	if !ok {
		return
	}
	if err := h.channels.Join(c.Request.Context(), ch.ID, middleware.UserID(c)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to join channel"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "joined"})
}

// GetFeed loads the newest page, reveals bot entries that are already due
// and returns the merged feed.
func (h *ChannelHandler) GetFeed(c *gin.Context) {
	ch, ok := h.lookup(c)
	if !ok {
		return
	}

	session, err := h.feeds.Open(c.Request.Context(), ch.Name, middleware.Username(c))
	if session == nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to open feed"})
		return
	}
	defer session.Close()
	if err != nil {
		h.log.Warn("feed load failed", "channel", ch.Name, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to load feed"})
		return
	}

	session.RevealDue(h.now())
	c.JSON(http.StatusOK, session.Snapshot())
}

func (h *ChannelHandler) lookup(c *gin.Context) (models.Channel, bool) {
	ch, err := h.channels.GetByName(c.Request.Context(), c.Param("name"))
	if errors.Is(err, repositories.ErrChannelNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "channel not found"})
		return models.Channel{}, false
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load channel"})
		return models.Channel{}, false
	}
	return ch, true
}
