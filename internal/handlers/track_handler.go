package handlers

import (
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/playdrop/backend/internal/config"
	"github.com/playdrop/backend/internal/services"
)

type TrackHandler struct {
	trackService    *services.TrackService
	playlistService *services.PlaylistService
	storageService  *services.StorageService
	cfg             *config.Config
}

func NewTrackHandler(trackService *services.TrackService, playlistService *services.PlaylistService, storageService *services.StorageService, cfg *config.Config) *TrackHandler {
	return &TrackHandler{
		trackService:    trackService,
		playlistService: playlistService,
		storageService:  storageService,
		cfg:             cfg,
	}
}

// ListTracks returns the operator's catalog
func (h *TrackHandler) ListTracks(c *gin.Context) {
	userID := c.MustGet("userID").(uuid.UUID)

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	tracks, total, err := h.trackService.ListTracks(userID, limit, offset)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"tracks": tracks,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

// UploadTrack handles a multipart audio upload
func (h *TrackHandler) UploadTrack(c *gin.Context) {
	userID := c.MustGet("userID").(uuid.UUID)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}

	maxBytes := h.cfg.MaxUploadSizeMB * 1024 * 1024
	if fileHeader.Size > maxBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{
			"error": fmt.Sprintf("file exceeds maximum upload size of %dMB", h.cfg.MaxUploadSizeMB),
		})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to open uploaded file"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read uploaded file"})
		return
	}

	// The player knows the decoded duration; tags mostly don't carry it.
	duration, _ := strconv.Atoi(c.PostForm("duration"))

	track, err := h.trackService.UploadTrack(c.Request.Context(), userID, fileHeader.Filename, data, duration)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"track": track})
}

// GetTrack returns a single track
func (h *TrackHandler) GetTrack(c *gin.Context) {
	userID := c.MustGet("userID").(uuid.UUID)

	trackID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid track id"})
		return
	}

	track, err := h.trackService.GetOwnedTrack(trackID, userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"track": track})
}

// GetPlaybackURL issues a signed playback URL for a track
func (h *TrackHandler) GetPlaybackURL(c *gin.Context) {
	userID := c.MustGet("userID").(uuid.UUID)

	trackID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid track id"})
		return
	}

	track, err := h.trackService.GetOwnedTrack(trackID, userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	url, err := h.trackService.GetSignedPlaybackURL(c.Request.Context(), track.StorageKey)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to sign playback URL"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": url})
}

// ServeArtwork streams a track's embedded artwork through the local cache
func (h *TrackHandler) ServeArtwork(c *gin.Context) {
	userID := c.MustGet("userID").(uuid.UUID)

	trackID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid track id"})
		return
	}

	track, err := h.trackService.GetOwnedTrack(trackID, userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if track.ArtworkKey == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "track has no artwork"})
		return
	}

	path, err := h.storageService.EnsureCached(c.Request.Context(), h.cfg.TracksBucket, track.ArtworkKey)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load artwork"})
		return
	}

	h.storageService.ServeFileWithRange(c.Writer, c.Request, path, "")
}

// DeleteTrack removes a track from the catalog along with its placements
func (h *TrackHandler) DeleteTrack(c *gin.Context) {
	userID := c.MustGet("userID").(uuid.UUID)

	trackID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid track id"})
		return
	}

	track, err := h.trackService.GetOwnedTrack(trackID, userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	if err := h.trackService.DeleteTrack(c.Request.Context(), trackID, userID); err != nil {
		respondServiceError(c, err)
		return
	}

	if track.ArtworkKey != "" {
		_ = h.storageService.Evict(track.ArtworkKey)
	}

	c.JSON(http.StatusOK, gin.H{"message": "Track deleted"})
}

// TrackUsage reports which playlists contain the given tracks. The client
// calls this before a delete to warn about affected playlists.
func (h *TrackHandler) TrackUsage(c *gin.Context) {
	userID := c.MustGet("userID").(uuid.UUID)

	var req struct {
		TrackIDs []uuid.UUID `json:"track_ids" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	usage, err := h.playlistService.PlaylistsContainingTracks(userID, req.TrackIDs)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"usage": usage})
}
