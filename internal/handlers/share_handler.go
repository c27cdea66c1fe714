package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/playdrop/backend/internal/services"
)

type ShareHandler struct {
	shareService     *services.ShareService
	playlistService  *services.PlaylistService
	analyticsService *services.AnalyticsService
	qrService        *services.QRService
	emailService     *services.EmailService
}

func NewShareHandler(shareService *services.ShareService, playlistService *services.PlaylistService, analyticsService *services.AnalyticsService, qrService *services.QRService, emailService *services.EmailService) *ShareHandler {
	return &ShareHandler{
		shareService:     shareService,
		playlistService:  playlistService,
		analyticsService: analyticsService,
		qrService:        qrService,
		emailService:     emailService,
	}
}

// CreateShare mints a share link for a playlist
func (h *ShareHandler) CreateShare(c *gin.Context) {
	userID := c.MustGet("userID").(uuid.UUID)

	playlistID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid playlist id"})
		return
	}

	var req struct {
		Label          string     `json:"label"`
		AllowDownload  bool       `json:"allow_download"`
		RequireEmail   bool       `json:"require_email"`
		RecipientEmail string     `json:"recipient_email"`
		Password       string     `json:"password"`
		ExpiresAt      *time.Time `json:"expires_at"`
		NotifyByEmail  bool       `json:"notify_by_email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	link, err := h.shareService.CreateShareLink(playlistID, userID, services.CreateShareParams{
		Label:          req.Label,
		AllowDownload:  req.AllowDownload,
		RequireEmail:   req.RequireEmail,
		RecipientEmail: req.RecipientEmail,
		Password:       req.Password,
		ExpiresAt:      req.ExpiresAt,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	if req.NotifyByEmail && link.RecipientEmail != "" {
		playlist, perr := h.playlistService.GetPlaylistByID(playlistID, userID)
		if perr == nil {
			go h.emailService.SendShareInvitation(link.RecipientEmail, playlist.Title, h.shareService.ShareURL(link.Slug))
		}
	}

	c.JSON(http.StatusCreated, gin.H{
		"share": link,
		"url":   h.shareService.ShareURL(link.Slug),
	})
}

// ListShares returns all share links of a playlist
func (h *ShareHandler) ListShares(c *gin.Context) {
	userID := c.MustGet("userID").(uuid.UUID)

	playlistID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid playlist id"})
		return
	}

	links, err := h.shareService.ListSharesForPlaylist(playlistID, userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"shares": links})
}

// UpdateShare edits a share link's settings
func (h *ShareHandler) UpdateShare(c *gin.Context) {
	userID := c.MustGet("userID").(uuid.UUID)

	linkID, err := uuid.Parse(c.Param("shareId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid share id"})
		return
	}

	var req struct {
		Label         *string    `json:"label"`
		AllowDownload *bool      `json:"allow_download"`
		RequireEmail  *bool      `json:"require_email"`
		Password      *string    `json:"password"`
		ClearPassword bool       `json:"clear_password"`
		ExpiresAt     *time.Time `json:"expires_at"`
		ClearExpiry   bool       `json:"clear_expiry"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	link, err := h.shareService.UpdateShareLink(linkID, userID, services.UpdateShareParams{
		Label:         req.Label,
		AllowDownload: req.AllowDownload,
		RequireEmail:  req.RequireEmail,
		Password:      req.Password,
		ClearPassword: req.ClearPassword,
		ExpiresAt:     req.ExpiresAt,
		ClearExpiry:   req.ClearExpiry,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"share": link})
}

// ToggleShare flips a share link between active and revoked
func (h *ShareHandler) ToggleShare(c *gin.Context) {
	userID := c.MustGet("userID").(uuid.UUID)

	linkID, err := uuid.Parse(c.Param("shareId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid share id"})
		return
	}

	link, err := h.shareService.ToggleShareLink(linkID, userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"share": link})
}

// DeleteShare removes a share link and its recorded events
func (h *ShareHandler) DeleteShare(c *gin.Context) {
	userID := c.MustGet("userID").(uuid.UUID)

	linkID, err := uuid.Parse(c.Param("shareId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid share id"})
		return
	}

	if err := h.shareService.DeleteShareLink(linkID, userID); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Share link deleted"})
}

// ListRecipients returns the emails collected by a share link's gate
func (h *ShareHandler) ListRecipients(c *gin.Context) {
	userID := c.MustGet("userID").(uuid.UUID)

	linkID, err := uuid.Parse(c.Param("shareId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid share id"})
		return
	}

	recipients, err := h.shareService.ListRecipients(linkID, userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"recipients": recipients})
}

// ShareQRPNG renders a share link's URL as a QR code PNG
func (h *ShareHandler) ShareQRPNG(c *gin.Context) {
	userID := c.MustGet("userID").(uuid.UUID)

	linkID, err := uuid.Parse(c.Param("shareId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid share id"})
		return
	}

	link, err := h.shareService.GetShareLinkByID(linkID, userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	png, err := h.qrService.GenerateShareQRPNG(link)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate QR code"})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=%q", link.Slug+".png"))
	c.Data(http.StatusOK, "image/png", png)
}

// ShareQRPDF renders a printable PDF with the playlist title and QR code
func (h *ShareHandler) ShareQRPDF(c *gin.Context) {
	userID := c.MustGet("userID").(uuid.UUID)

	linkID, err := uuid.Parse(c.Param("shareId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid share id"})
		return
	}

	link, err := h.shareService.GetShareLinkByID(linkID, userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	playlist, err := h.playlistService.GetPlaylistByID(link.PlaylistID, userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	pdf, err := h.qrService.GenerateShareQRPDF(link, playlist.Title)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate PDF"})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", link.Slug+".pdf"))
	c.Data(http.StatusOK, "application/pdf", pdf)
}

// ShareOverview returns view/play/download counts for one link
func (h *ShareHandler) ShareOverview(c *gin.Context) {
	userID := c.MustGet("userID").(uuid.UUID)

	linkID, err := uuid.Parse(c.Param("shareId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid share id"})
		return
	}

	if _, err := h.shareService.GetShareLinkByID(linkID, userID); err != nil {
		respondServiceError(c, err)
		return
	}

	overview, err := h.analyticsService.GetShareOverview(linkID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"overview": overview})
}
