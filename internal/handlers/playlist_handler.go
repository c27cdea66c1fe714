package handlers

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/playdrop/backend/internal/services"
)

type PlaylistHandler struct {
	playlistService    *services.PlaylistService
	compositionService *services.CompositionService
}

func NewPlaylistHandler(playlistService *services.PlaylistService, compositionService *services.CompositionService) *PlaylistHandler {
	return &PlaylistHandler{
		playlistService:    playlistService,
		compositionService: compositionService,
	}
}

// CreatePlaylist creates an empty playlist
func (h *PlaylistHandler) CreatePlaylist(c *gin.Context) {
	userID := c.MustGet("userID").(uuid.UUID)

	var req struct {
		Title       string `json:"title" binding:"required"`
		ClientName  string `json:"client_name"`
		Description string `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	playlist, err := h.playlistService.CreatePlaylist(userID, req.Title, req.ClientName, req.Description)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"playlist": playlist})
}

// ListPlaylists returns the operator's playlists
func (h *PlaylistHandler) ListPlaylists(c *gin.Context) {
	userID := c.MustGet("userID").(uuid.UUID)

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	playlists, total, err := h.playlistService.ListPlaylists(userID, limit, offset)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"playlists": playlists,
		"total":     total,
		"limit":     limit,
		"offset":    offset,
	})
}

// GetPlaylist returns a playlist with ordered sections and placements
func (h *PlaylistHandler) GetPlaylist(c *gin.Context) {
	userID := c.MustGet("userID").(uuid.UUID)

	playlistID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid playlist id"})
		return
	}

	playlist, err := h.playlistService.GetPlaylistDetail(playlistID, userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"playlist": playlist})
}

// UpdatePlaylist edits playlist metadata
func (h *PlaylistHandler) UpdatePlaylist(c *gin.Context) {
	userID := c.MustGet("userID").(uuid.UUID)

	playlistID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid playlist id"})
		return
	}

	var req struct {
		Title       *string `json:"title"`
		ClientName  *string `json:"client_name"`
		Description *string `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	playlist, err := h.playlistService.UpdatePlaylist(playlistID, userID, req.Title, req.ClientName, req.Description)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"playlist": playlist})
}

// DeletePlaylist removes a playlist and all of its dependents
func (h *PlaylistHandler) DeletePlaylist(c *gin.Context) {
	userID := c.MustGet("userID").(uuid.UUID)

	playlistID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid playlist id"})
		return
	}

	if err := h.compositionService.DeletePlaylist(c.Request.Context(), playlistID, userID); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Playlist deleted"})
}

// DuplicatePlaylist creates an independent copy of a playlist
func (h *PlaylistHandler) DuplicatePlaylist(c *gin.Context) {
	userID := c.MustGet("userID").(uuid.UUID)

	playlistID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid playlist id"})
		return
	}

	copied, err := h.compositionService.DuplicatePlaylist(playlistID, userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"playlist": copied})
}

// UploadArtwork stores playlist cover art
func (h *PlaylistHandler) UploadArtwork(c *gin.Context) {
	userID := c.MustGet("userID").(uuid.UUID)

	playlistID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid playlist id"})
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
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

	playlist, err := h.playlistService.UploadArtwork(c.Request.Context(), playlistID, userID, fileHeader.Filename, data)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"playlist": playlist})
}

// --- Placements ---

// AddTracks appends one or more tracks to a playlist group
func (h *PlaylistHandler) AddTracks(c *gin.Context) {
	userID := c.MustGet("userID").(uuid.UUID)

	playlistID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid playlist id"})
		return
	}

	var req struct {
		TrackIDs  []uuid.UUID `json:"track_ids" binding:"required,min=1"`
		SectionID *uuid.UUID  `json:"section_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	placements, err := h.compositionService.AppendPlacements(playlistID, userID, req.TrackIDs, req.SectionID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"placements": placements})
}

// ReorderPlacement moves a placement within or across groups
func (h *PlaylistHandler) ReorderPlacement(c *gin.Context) {
	userID := c.MustGet("userID").(uuid.UUID)

	playlistID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid playlist id"})
		return
	}
	placementID, err := uuid.Parse(c.Param("placementId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid placement id"})
		return
	}

	var req struct {
		SectionID *uuid.UUID `json:"section_id"`
		Position  *int       `json:"position" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.compositionService.ReorderPlacement(playlistID, userID, placementID, req.SectionID, *req.Position); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Placement moved"})
}

// RemovePlacement deletes a single placement
func (h *PlaylistHandler) RemovePlacement(c *gin.Context) {
	userID := c.MustGet("userID").(uuid.UUID)

	playlistID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid playlist id"})
		return
	}
	placementID, err := uuid.Parse(c.Param("placementId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid placement id"})
		return
	}

	if err := h.compositionService.DeletePlacement(playlistID, userID, placementID); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Placement removed"})
}

// RenumberGroup closes position gaps in one group
func (h *PlaylistHandler) RenumberGroup(c *gin.Context) {
	userID := c.MustGet("userID").(uuid.UUID)

	playlistID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid playlist id"})
		return
	}

	var req struct {
		SectionID *uuid.UUID `json:"section_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.compositionService.RenumberGroup(playlistID, userID, req.SectionID); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Group renumbered"})
}

// --- Sections ---

// AddSection creates a section at the end of the playlist
func (h *PlaylistHandler) AddSection(c *gin.Context) {
	userID := c.MustGet("userID").(uuid.UUID)

	playlistID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid playlist id"})
		return
	}

	var req struct {
		Title string `json:"title" binding:"required"`
		Emoji string `json:"emoji"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	section, err := h.compositionService.AppendSection(playlistID, userID, req.Title, req.Emoji)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"section": section})
}

// UpdateSection edits a section's title/emoji
func (h *PlaylistHandler) UpdateSection(c *gin.Context) {
	userID := c.MustGet("userID").(uuid.UUID)

	playlistID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid playlist id"})
		return
	}
	sectionID, err := uuid.Parse(c.Param("sectionId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid section id"})
		return
	}

	var req struct {
		Title *string `json:"title"`
		Emoji *string `json:"emoji"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	section, err := h.compositionService.UpdateSection(playlistID, userID, sectionID, req.Title, req.Emoji)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"section": section})
}

// ReorderSection moves a section within the playlist's section list
func (h *PlaylistHandler) ReorderSection(c *gin.Context) {
	userID := c.MustGet("userID").(uuid.UUID)

	playlistID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid playlist id"})
		return
	}
	sectionID, err := uuid.Parse(c.Param("sectionId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid section id"})
		return
	}

	var req struct {
		Position *int `json:"position" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.compositionService.ReorderSection(playlistID, userID, sectionID, *req.Position); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Section moved"})
}

// RemoveSection deletes a section. With ?delete_placements=true its
// placements go too; otherwise they move to the unsectioned group.
func (h *PlaylistHandler) RemoveSection(c *gin.Context) {
	userID := c.MustGet("userID").(uuid.UUID)

	playlistID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid playlist id"})
		return
	}
	sectionID, err := uuid.Parse(c.Param("sectionId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid section id"})
		return
	}

	deletePlacements := c.Query("delete_placements") == "true"

	if err := h.compositionService.DeleteSection(playlistID, userID, sectionID, deletePlacements); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Section removed"})
}
