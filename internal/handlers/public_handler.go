package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/playdrop/backend/internal/models"
	"github.com/playdrop/backend/internal/services"
)

// PublicHandler serves the visitor-facing share surface: gate resolution,
// unlocking, the gated playlist view and event recording. Nothing here
// requires an operator session.
type PublicHandler struct {
	shareService     *services.ShareService
	playlistService  *services.PlaylistService
	trackService     *services.TrackService
	analyticsService *services.AnalyticsService
}

func NewPublicHandler(shareService *services.ShareService, playlistService *services.PlaylistService, trackService *services.TrackService, analyticsService *services.AnalyticsService) *PublicHandler {
	return &PublicHandler{
		shareService:     shareService,
		playlistService:  playlistService,
		trackService:     trackService,
		analyticsService: analyticsService,
	}
}

func (h *PublicHandler) visitorContext(c *gin.Context) services.VisitorContext {
	email, _ := c.Get("listenerEmail")
	emailStr, _ := email.(string)
	return services.VisitorContext{
		Email:     emailStr,
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
}

// ResolveShare tells a visitor what the link demands before content loads.
// It never leaks playlist contents; only the gate requirement and a label.
func (h *PublicHandler) ResolveShare(c *gin.Context) {
	slug := c.Param("slug")

	link, err := h.shareService.GetBySlug(slug)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	gate := services.GateFor(link, time.Now())
	resp := gin.H{
		"slug": link.Slug,
		"gate": gate,
	}
	if gate != services.GateInactive && gate != services.GateExpired {
		resp["label"] = link.Label
		resp["allow_download"] = link.AllowDownload
	}

	switch gate {
	case services.GateInactive:
		c.JSON(http.StatusGone, resp)
	case services.GateExpired:
		c.JSON(http.StatusGone, resp)
	default:
		c.JSON(http.StatusOK, resp)
	}
}

// UnlockShare checks the visitor's submission against the gate and issues
// a share-session token.
func (h *PublicHandler) UnlockShare(c *gin.Context) {
	slug := c.Param("slug")

	var req struct {
		Password string `json:"password"`
		Email    string `json:"email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, err := h.shareService.Unlock(slug, services.UnlockParams{
		Password: req.Password,
		Email:    req.Email,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"session": token})
}

// VerifyShareEmail checks an email-gate verification code and issues the
// session token.
func (h *PublicHandler) VerifyShareEmail(c *gin.Context) {
	slug := c.Param("slug")

	var req struct {
		Email string `json:"email" binding:"required,email"`
		Code  string `json:"code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, err := h.shareService.VerifyRecipient(slug, req.Email, req.Code)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"session": token})
}

// SharedPlaylist returns the gated playlist view: ordered sections and
// placements with track metadata. A page view is recorded as a side
// effect. Requires a valid share session (ShareSession middleware).
func (h *PublicHandler) SharedPlaylist(c *gin.Context) {
	slug := c.Param("slug")

	link, err := h.shareService.GetBySlug(slug)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	playlist, err := h.playlistService.SharedPlaylistDetail(link.PlaylistID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	// Analytics must never block the visitor view.
	_ = h.analyticsService.RecordPageView(link.ID, h.visitorContext(c))

	var artworkURL string
	if playlist.ArtworkKey != "" {
		artworkURL, _ = h.playlistService.GetArtworkURL(c.Request.Context(), playlist.ArtworkKey)
	}

	c.JSON(http.StatusOK, gin.H{
		"playlist":       playlist,
		"artwork_url":    artworkURL,
		"allow_download": link.AllowDownload,
	})
}

// sharedTrack resolves a track for the share surface. The track must be
// placed in the shared playlist; a session for one link grants nothing
// beyond that link's playlist, so anything else reads as not found.
func (h *PublicHandler) sharedTrack(c *gin.Context, playlistID, trackID uuid.UUID) (*models.Track, bool) {
	inPlaylist, err := h.playlistService.TrackInPlaylist(playlistID, trackID)
	if err != nil {
		respondServiceError(c, err)
		return nil, false
	}
	if !inPlaylist {
		c.JSON(http.StatusNotFound, gin.H{"error": "track not found in this playlist"})
		return nil, false
	}

	track, err := h.trackService.GetTrackByID(trackID)
	if err != nil {
		respondServiceError(c, err)
		return nil, false
	}
	return track, true
}

// SharedPlaybackURL issues a signed playback URL for one track of the
// shared playlist and records a play event.
func (h *PublicHandler) SharedPlaybackURL(c *gin.Context) {
	slug := c.Param("slug")
	trackID, err := uuid.Parse(c.Param("trackId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid track id"})
		return
	}

	link, err := h.shareService.GetBySlug(slug)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	track, ok := h.sharedTrack(c, link.PlaylistID, trackID)
	if !ok {
		return
	}

	url, err := h.trackService.GetSignedPlaybackURL(c.Request.Context(), track.StorageKey)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to sign playback URL"})
		return
	}

	event, err := h.analyticsService.RecordPlay(link.ID, trackID, h.visitorContext(c))
	var playEventID uuid.UUID
	if err == nil {
		playEventID = event.ID
	}

	c.JSON(http.StatusOK, gin.H{
		"url":           url,
		"play_event_id": playEventID,
	})
}

// SharedPlayProgress records how far a listener got through a track
func (h *PublicHandler) SharedPlayProgress(c *gin.Context) {
	playEventID, err := uuid.Parse(c.Param("playEventId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid play event id"})
		return
	}

	var req struct {
		DurationListened int  `json:"duration_listened"`
		Completed        bool `json:"completed"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.analyticsService.UpdatePlayProgress(playEventID, req.DurationListened, req.Completed); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Progress recorded"})
}

// SharedDownloadURL issues a signed download URL when the link permits
// downloads, and records a download event.
func (h *PublicHandler) SharedDownloadURL(c *gin.Context) {
	slug := c.Param("slug")
	trackID, err := uuid.Parse(c.Param("trackId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid track id"})
		return
	}

	link, err := h.shareService.GetBySlug(slug)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	if !link.AllowDownload {
		c.JSON(http.StatusForbidden, gin.H{"error": "downloads are not permitted on this link"})
		return
	}

	track, ok := h.sharedTrack(c, link.PlaylistID, trackID)
	if !ok {
		return
	}

	url, err := h.trackService.GetSignedPlaybackURL(c.Request.Context(), track.StorageKey)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to sign download URL"})
		return
	}

	_ = h.analyticsService.RecordDownload(link.ID, trackID, h.visitorContext(c))

	c.JSON(http.StatusOK, gin.H{"url": url})
}
