package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ShareLink is a tokenized, access-controlled public view of one playlist.
type ShareLink struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	PlaylistID     uuid.UUID  `gorm:"type:uuid;not null;index" json:"playlist_id"`
	Slug           string     `gorm:"size:32;uniqueIndex;not null" json:"slug"`
	Label          string     `gorm:"size:255" json:"label,omitempty"`
	AllowDownload  bool       `gorm:"default:false" json:"allow_download"`
	RequireEmail   bool       `gorm:"default:false" json:"require_email"`
	RecipientEmail string     `gorm:"size:255" json:"recipient_email,omitempty"`
	PasswordHash   string     `gorm:"size:255" json:"-"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
	IsActive       bool       `gorm:"default:true" json:"is_active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Playlist *Playlist `gorm:"foreignKey:PlaylistID" json:"playlist,omitempty"`
}

func (s *ShareLink) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// HasPassword reports whether the link is password protected.
func (s *ShareLink) HasPassword() bool {
	return s.PasswordHash != ""
}

// IsExpired reports whether the link's expiry, if set, has passed.
func (s *ShareLink) IsExpired(now time.Time) bool {
	return s.ExpiresAt != nil && s.ExpiresAt.Before(now)
}

// ShareRecipient records a visitor identity collected by the email gate.
type ShareRecipient struct {
	ID               uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ShareLinkID      uuid.UUID  `gorm:"type:uuid;not null;index" json:"share_link_id"`
	Email            string     `gorm:"size:255;not null" json:"email"`
	VerificationCode string     `gorm:"size:16" json:"-"`
	VerifiedAt       *time.Time `json:"verified_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

func (r *ShareRecipient) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// MarkVerified stamps the recipient as verified.
func (r *ShareRecipient) MarkVerified() {
	now := time.Now()
	r.VerifiedAt = &now
}
