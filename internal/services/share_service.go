package services

import (
	"crypto/rand"
	"fmt"
	"log"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/playdrop/backend/internal/config"
	"github.com/playdrop/backend/internal/models"
	"github.com/playdrop/backend/pkg/crypto"
	"github.com/playdrop/backend/pkg/jwt"
	"github.com/playdrop/backend/pkg/validation"
	"gorm.io/gorm"
)

// Share slugs use an unambiguous lowercase alphanumeric alphabet so the
// links survive being read aloud or retyped.
const slugAlphabet = "abcdefghjkmnpqrstuvwxyz23456789"

type ShareService struct {
	db           *gorm.DB
	cfg          *config.Config
	emailService *EmailService
}

func NewShareService(db *gorm.DB, cfg *config.Config, emailService *EmailService) *ShareService {
	return &ShareService{
		db:           db,
		cfg:          cfg,
		emailService: emailService,
	}
}

// GateRequirement tells a visitor what the share link demands before the
// playlist becomes visible.
type GateRequirement string

const (
	GateOpen          GateRequirement = "open"
	GateNeedsPassword GateRequirement = "password"
	GateNeedsEmail    GateRequirement = "email"
	GateExpired       GateRequirement = "expired"
	GateInactive      GateRequirement = "inactive"
)

// GateFor evaluates a link's access gate. Checks run in a fixed order:
// active, expiry, password, email prompt. A preset recipient email never
// gates: it becomes the tracked identity and the prompt is skipped.
func GateFor(link *models.ShareLink, now time.Time) GateRequirement {
	if !link.IsActive {
		return GateInactive
	}
	if link.IsExpired(now) {
		return GateExpired
	}
	if link.HasPassword() {
		return GateNeedsPassword
	}
	if link.RequireEmail && link.RecipientEmail == "" {
		return GateNeedsEmail
	}
	return GateOpen
}

// CreateShareParams carries the operator's share settings.
type CreateShareParams struct {
	Label          string
	AllowDownload  bool
	RequireEmail   bool
	RecipientEmail string
	Password       string
	ExpiresAt      *time.Time
}

// CreateShareLink mints a new slug for a playlist. The password, when set,
// is stored only as a bcrypt hash.
func (s *ShareService) CreateShareLink(playlistID, ownerID uuid.UUID, params CreateShareParams) (*models.ShareLink, error) {
	var playlist models.Playlist
	if err := s.db.First(&playlist, "id = ? AND owner_id = ?", playlistID, ownerID).Error; err != nil {
		return nil, translateDBErr(err, "playlist", playlistID)
	}

	if params.RecipientEmail != "" && !validation.ValidateEmail(params.RecipientEmail) {
		return nil, fmt.Errorf("invalid recipient email: %s", params.RecipientEmail)
	}

	link := &models.ShareLink{
		PlaylistID:     playlistID,
		Label:          params.Label,
		AllowDownload:  params.AllowDownload,
		RequireEmail:   params.RequireEmail,
		RecipientEmail: strings.ToLower(strings.TrimSpace(params.RecipientEmail)),
		ExpiresAt:      params.ExpiresAt,
		IsActive:       true,
	}

	if params.Password != "" {
		hash, err := crypto.HashPassword(params.Password, s.cfg.BcryptCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash share password: %w", err)
		}
		link.PasswordHash = hash
	}

	// Retry on the (unlikely) slug collision instead of pre-checking.
	for attempt := 0; attempt < 5; attempt++ {
		slug, err := generateSlug(s.cfg.ShareSlugLength)
		if err != nil {
			return nil, fmt.Errorf("failed to generate slug: %w", err)
		}
		link.Slug = slug
		if err := s.db.Create(link).Error; err != nil {
			if strings.Contains(err.Error(), "23505") {
				link.ID = uuid.Nil
				continue
			}
			return nil, fmt.Errorf("failed to create share link: %w", err)
		}
		return link, nil
	}
	return nil, fmt.Errorf("failed to create share link: slug space exhausted")
}

// generateSlug draws n characters from the slug alphabet with crypto/rand.
func generateSlug(n int) (string, error) {
	if n <= 0 {
		n = 12
	}
	var b strings.Builder
	b.Grow(n)
	max := big.NewInt(int64(len(slugAlphabet)))
	for i := 0; i < n; i++ {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(slugAlphabet[idx.Int64()])
	}
	return b.String(), nil
}

// ListSharesForPlaylist returns an owner's playlist's share links,
// newest first
func (s *ShareService) ListSharesForPlaylist(playlistID, ownerID uuid.UUID) ([]models.ShareLink, error) {
	if err := s.db.Select("id").First(&models.Playlist{}, "id = ? AND owner_id = ?", playlistID, ownerID).Error; err != nil {
		return nil, translateDBErr(err, "playlist", playlistID)
	}
	var links []models.ShareLink
	if err := s.db.Where("playlist_id = ?", playlistID).Order("created_at DESC").Find(&links).Error; err != nil {
		return nil, err
	}
	return links, nil
}

// GetBySlug resolves a share link from its public slug
func (s *ShareService) GetBySlug(slug string) (*models.ShareLink, error) {
	var link models.ShareLink
	if err := s.db.First(&link, "slug = ?", slug).Error; err != nil {
		return nil, translateDBErr(err, "share link", slug)
	}
	return &link, nil
}

// GetShareLinkByID returns a share link by primary key, scoped through
// its playlist to the owning operator. Someone else's link reads as not
// found.
func (s *ShareService) GetShareLinkByID(linkID, ownerID uuid.UUID) (*models.ShareLink, error) {
	var link models.ShareLink
	err := s.db.
		Joins("JOIN playlists ON playlists.id = share_links.playlist_id").
		Where("share_links.id = ? AND playlists.owner_id = ?", linkID, ownerID).
		First(&link).Error
	if err != nil {
		return nil, translateDBErr(err, "share link", linkID)
	}
	return &link, nil
}

// UpdateShareParams carries partial share settings edits. Nil means leave
// unchanged; Password "" with ClearPassword set removes protection.
type UpdateShareParams struct {
	Label         *string
	AllowDownload *bool
	RequireEmail  *bool
	Password      *string
	ClearPassword bool
	ExpiresAt     *time.Time
	ClearExpiry   bool
}

// UpdateShareLink edits a link's settings in place. The slug never changes.
func (s *ShareService) UpdateShareLink(linkID, ownerID uuid.UUID, params UpdateShareParams) (*models.ShareLink, error) {
	link, err := s.GetShareLinkByID(linkID, ownerID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if params.Label != nil {
		updates["label"] = *params.Label
	}
	if params.AllowDownload != nil {
		updates["allow_download"] = *params.AllowDownload
	}
	if params.RequireEmail != nil {
		updates["require_email"] = *params.RequireEmail
	}
	if params.ClearPassword {
		updates["password_hash"] = ""
	} else if params.Password != nil && *params.Password != "" {
		hash, err := crypto.HashPassword(*params.Password, s.cfg.BcryptCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash share password: %w", err)
		}
		updates["password_hash"] = hash
	}
	if params.ClearExpiry {
		updates["expires_at"] = nil
	} else if params.ExpiresAt != nil {
		updates["expires_at"] = *params.ExpiresAt
	}

	if len(updates) == 0 {
		return link, nil
	}
	if err := s.db.Model(link).Updates(updates).Error; err != nil {
		return nil, err
	}
	return s.GetShareLinkByID(linkID, ownerID)
}

// ToggleShareLink flips a link between active and revoked
func (s *ShareService) ToggleShareLink(linkID, ownerID uuid.UUID) (*models.ShareLink, error) {
	link, err := s.GetShareLinkByID(linkID, ownerID)
	if err != nil {
		return nil, err
	}
	if err := s.db.Model(link).Update("is_active", !link.IsActive).Error; err != nil {
		return nil, err
	}
	link.IsActive = !link.IsActive
	return link, nil
}

// DeleteShareLink removes a link and everything hanging off it, in
// dependency order: analytics first, then recipients, then the link.
func (s *ShareService) DeleteShareLink(linkID, ownerID uuid.UUID) error {
	if _, err := s.GetShareLinkByID(linkID, ownerID); err != nil {
		return err
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("share_link_id = ?", linkID).Delete(&models.AnalyticsEvent{}).Error; err != nil {
			return &PartialFailureError{Op: "delete share link", Step: "delete analytics events", Err: err}
		}
		if err := tx.Where("share_link_id = ?", linkID).Delete(&models.PlayEvent{}).Error; err != nil {
			return &PartialFailureError{Op: "delete share link", Step: "delete play events", Err: err}
		}
		if err := tx.Where("share_link_id = ?", linkID).Delete(&models.DownloadEvent{}).Error; err != nil {
			return &PartialFailureError{Op: "delete share link", Step: "delete download events", Err: err}
		}
		if err := tx.Where("share_link_id = ?", linkID).Delete(&models.ShareRecipient{}).Error; err != nil {
			return &PartialFailureError{Op: "delete share link", Step: "delete recipients", Err: err}
		}
		res := tx.Delete(&models.ShareLink{}, "id = ?", linkID)
		if res.Error != nil {
			return &PartialFailureError{Op: "delete share link", Step: "delete share link", Err: translateDBErr(res.Error, "share link", linkID)}
		}
		if res.RowsAffected == 0 {
			return notFoundErr("share link", linkID)
		}
		return nil
	})
}

// UnlockParams is what a visitor submits against the gate.
type UnlockParams struct {
	Password string
	Email    string
}

// Unlock checks a visitor's submission against a link's gate and, on
// success, issues a short-lived share-session token bound to the slug.
func (s *ShareService) Unlock(slug string, params UnlockParams) (string, error) {
	link, err := s.GetBySlug(slug)
	if err != nil {
		return "", err
	}

	now := time.Now()
	switch GateFor(link, now) {
	case GateInactive:
		return "", fmt.Errorf("%w: link revoked", ErrShareGate)
	case GateExpired:
		return "", ErrShareExpired
	case GateNeedsPassword:
		if params.Password == "" || !crypto.CheckPassword(params.Password, link.PasswordHash) {
			return "", fmt.Errorf("%w: wrong password", ErrShareGate)
		}
	case GateNeedsEmail:
		email := strings.ToLower(strings.TrimSpace(params.Email))
		if !validation.ValidateEmail(email) {
			return "", fmt.Errorf("%w: valid email required", ErrShareGate)
		}
		if err := s.recordRecipient(link, email); err != nil {
			return "", err
		}
		if s.cfg.ShareEmailVerificationEnabled {
			return "", fmt.Errorf("%w: verification code sent", ErrShareGate)
		}
	}

	// A preset recipient is the session identity regardless of what the
	// visitor typed; the share was addressed to them.
	email := strings.ToLower(strings.TrimSpace(params.Email))
	if link.RecipientEmail != "" {
		email = link.RecipientEmail
	}
	return jwt.GenerateShareToken(link.Slug, email, s.cfg.JWTSecret, s.cfg.ShareSessionDuration)
}

// recordRecipient stores (or refreshes) the visitor identity for an email
// gate, sending a verification code when verification is enabled.
func (s *ShareService) recordRecipient(link *models.ShareLink, email string) error {
	var recipient models.ShareRecipient
	err := s.db.Where("share_link_id = ? AND email = ?", link.ID, email).First(&recipient).Error
	if err == nil && !s.cfg.ShareEmailVerificationEnabled {
		return nil
	}
	if err != nil && err != gorm.ErrRecordNotFound {
		return err
	}

	if err == gorm.ErrRecordNotFound {
		recipient = models.ShareRecipient{ShareLinkID: link.ID, Email: email}
	}

	if s.cfg.ShareEmailVerificationEnabled {
		code, genErr := generateVerificationCode()
		if genErr != nil {
			return fmt.Errorf("failed to generate verification code: %w", genErr)
		}
		recipient.VerificationCode = code
		recipient.VerifiedAt = nil
	} else {
		recipient.MarkVerified()
	}

	if recipient.ID == uuid.Nil {
		if err := s.db.Create(&recipient).Error; err != nil {
			return fmt.Errorf("failed to record recipient: %w", err)
		}
	} else {
		if err := s.db.Save(&recipient).Error; err != nil {
			return fmt.Errorf("failed to update recipient: %w", err)
		}
	}

	if s.cfg.ShareEmailVerificationEnabled && s.emailService != nil {
		label := link.Label
		if label == "" {
			label = link.Slug
		}
		if err := s.emailService.SendShareVerificationCode(email, label, recipient.VerificationCode); err != nil {
			log.Printf("[Share] Warning: failed to send verification code to %s: %v", email, err)
		}
	}
	return nil
}

// VerifyRecipient checks a verification code and issues the session token.
func (s *ShareService) VerifyRecipient(slug, email, code string) (string, error) {
	link, err := s.GetBySlug(slug)
	if err != nil {
		return "", err
	}
	if gate := GateFor(link, time.Now()); gate == GateInactive || gate == GateExpired {
		return "", fmt.Errorf("%w: link no longer available", ErrShareGate)
	}

	email = strings.ToLower(strings.TrimSpace(email))
	var recipient models.ShareRecipient
	if err := s.db.Where("share_link_id = ? AND email = ?", link.ID, email).First(&recipient).Error; err != nil {
		return "", translateDBErr(err, "share recipient", email)
	}
	if recipient.VerificationCode == "" || recipient.VerificationCode != code {
		return "", fmt.Errorf("%w: invalid verification code", ErrShareGate)
	}

	recipient.MarkVerified()
	recipient.VerificationCode = ""
	if err := s.db.Save(&recipient).Error; err != nil {
		return "", fmt.Errorf("failed to mark recipient verified: %w", err)
	}

	return jwt.GenerateShareToken(link.Slug, email, s.cfg.JWTSecret, s.cfg.ShareSessionDuration)
}

// generateVerificationCode returns a 6-digit numeric code.
func generateVerificationCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// ValidateShareSession checks a visitor's session token against a slug.
func (s *ShareService) ValidateShareSession(token, slug string) (*jwt.Claims, error) {
	claims, err := jwt.ValidateToken(token, s.cfg.JWTSecret)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid session", ErrShareGate)
	}
	if claims.TokenType != jwt.ShareToken || claims.ShareSlug != slug {
		return nil, fmt.Errorf("%w: session does not match link", ErrShareGate)
	}
	return claims, nil
}

// ListRecipients returns the visitor identities collected by a link's
// email gate, newest first.
func (s *ShareService) ListRecipients(linkID, ownerID uuid.UUID) ([]models.ShareRecipient, error) {
	if _, err := s.GetShareLinkByID(linkID, ownerID); err != nil {
		return nil, err
	}
	var recipients []models.ShareRecipient
	if err := s.db.Where("share_link_id = ?", linkID).Order("created_at DESC").Find(&recipients).Error; err != nil {
		return nil, err
	}
	return recipients, nil
}

// DeactivateExpired flips expired, still-active links to inactive. A
// background sweep calls this so expired links also read as revoked in
// listings, not just at the gate.
func (s *ShareService) DeactivateExpired() (int64, error) {
	res := s.db.Model(&models.ShareLink{}).
		Where("is_active = ? AND expires_at IS NOT NULL AND expires_at < ?", true, time.Now()).
		Update("is_active", false)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

// ShareURL renders the public URL for a slug.
func (s *ShareService) ShareURL(slug string) string {
	return fmt.Sprintf("%s/s/%s", strings.TrimRight(s.cfg.FrontendURL, "/"), slug)
}
