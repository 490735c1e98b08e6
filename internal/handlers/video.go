package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"chat-feed/internal/middleware"
	"chat-feed/internal/models"
	"chat-feed/internal/repositories"
)

// VideoHandler serves the video catalog and favorites.
type VideoHandler struct {
	videos repositories.VideoRepository
}

func NewVideoHandler(videos repositories.VideoRepository) *VideoHandler {
	return &VideoHandler{videos: videos}
}

func (h *VideoHandler) ListVideos(c *gin.Context) {
	videos, err := h.videos.ListVideos(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load videos"})
		return
	}
	if videos == nil {
		videos = []models.Video{}
	}
	c.JSON(http.StatusOK, gin.H{"videos": videos})
}

func (h *VideoHandler) AddFavorite(c *gin.Context) {
	videoID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid video id"})
		return
	}

	err = h.videos.AddFavorite(c.Request.Context(), middleware.UserID(c), videoID)
	if errors.Is(err, repositories.ErrVideoNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "video not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to add favorite"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *VideoHandler) RemoveFavorite(c *gin.Context) {
	videoID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid video id"})
		return
	}

	if err := h.videos.RemoveFavorite(c.Request.Context(), middleware.UserID(c), videoID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to remove favorite"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *VideoHandler) ListFavorites(c *gin.Context) {
	videos, err := h.videos.ListFavorites(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load favorites"})
		return
	}
	if videos == nil {
		videos = []models.Video{}
	}
	c.JSON(http.StatusOK, gin.H{"videos": videos})
}
