package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/playdrop/backend/internal/services"
)

type AnalyticsHandler struct {
	analyticsService *services.AnalyticsService
	playlistService  *services.PlaylistService
}

func NewAnalyticsHandler(analyticsService *services.AnalyticsService, playlistService *services.PlaylistService) *AnalyticsHandler {
	return &AnalyticsHandler{
		analyticsService: analyticsService,
		playlistService:  playlistService,
	}
}

// ownedPlaylistID parses the playlist route param and verifies the
// authenticated operator owns it before any analytics query runs.
func (h *AnalyticsHandler) ownedPlaylistID(c *gin.Context) (uuid.UUID, bool) {
	userID := c.MustGet("userID").(uuid.UUID)

	playlistID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid playlist id"})
		return uuid.Nil, false
	}
	if _, err := h.playlistService.GetPlaylistByID(playlistID, userID); err != nil {
		respondServiceError(c, err)
		return uuid.Nil, false
	}
	return playlistID, true
}

// PlaylistOverview aggregates engagement across a playlist's share links
func (h *AnalyticsHandler) PlaylistOverview(c *gin.Context) {
	playlistID, ok := h.ownedPlaylistID(c)
	if !ok {
		return
	}

	overview, err := h.analyticsService.GetPlaylistOverview(playlistID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"overview": overview})
}

// PlaysByTrack returns play/download counts per track for a playlist
func (h *AnalyticsHandler) PlaysByTrack(c *gin.Context) {
	playlistID, ok := h.ownedPlaylistID(c)
	if !ok {
		return
	}

	rows, err := h.analyticsService.GetPlaysByTrack(playlistID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"tracks": rows})
}

// RecentActivity returns the merged view/play/download feed for a playlist
func (h *AnalyticsHandler) RecentActivity(c *gin.Context) {
	playlistID, ok := h.ownedPlaylistID(c)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	items, err := h.analyticsService.GetRecentActivity(playlistID, limit)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"activity": items})
}
