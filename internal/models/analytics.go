package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	EventTypePageView = "page_view"
)

// AnalyticsEvent is an append-only page-level event tagged with a share link.
type AnalyticsEvent struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ShareLinkID   uuid.UUID `gorm:"type:uuid;not null;index" json:"share_link_id"`
	EventType     string    `gorm:"size:32;not null;index" json:"event_type"`
	ListenerEmail string    `gorm:"size:255" json:"listener_email,omitempty"`
	ListenerIP    string    `gorm:"size:64" json:"listener_ip,omitempty"`
	UserAgent     string    `gorm:"size:512" json:"user_agent,omitempty"`
	CreatedAt     time.Time `json:"created_at"`

	// Relations
	ShareLink *ShareLink `gorm:"foreignKey:ShareLinkID" json:"share_link,omitempty"`
}

func (e *AnalyticsEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// PlayEvent records a playback start on a shared playlist.
type PlayEvent struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	TrackID          uuid.UUID `gorm:"type:uuid;not null;index" json:"track_id"`
	ShareLinkID      uuid.UUID `gorm:"type:uuid;not null;index" json:"share_link_id"`
	ListenerEmail    string    `gorm:"size:255" json:"listener_email,omitempty"`
	ListenerIP       string    `gorm:"size:64" json:"listener_ip,omitempty"`
	DurationListened int       `gorm:"default:0" json:"duration_listened"` // seconds
	Completed        bool      `gorm:"default:false" json:"completed"`
	UserAgent        string    `gorm:"size:512" json:"user_agent,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`

	// Relations
	Track     *Track     `gorm:"foreignKey:TrackID" json:"track,omitempty"`
	ShareLink *ShareLink `gorm:"foreignKey:ShareLinkID" json:"share_link,omitempty"`
}

func (e *PlayEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// DownloadEvent records a track download from a shared playlist.
type DownloadEvent struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	TrackID       uuid.UUID `gorm:"type:uuid;not null;index" json:"track_id"`
	ShareLinkID   uuid.UUID `gorm:"type:uuid;not null;index" json:"share_link_id"`
	ListenerEmail string    `gorm:"size:255" json:"listener_email,omitempty"`
	ListenerIP    string    `gorm:"size:64" json:"listener_ip,omitempty"`
	UserAgent     string    `gorm:"size:512" json:"user_agent,omitempty"`
	CreatedAt     time.Time `json:"created_at"`

	// Relations
	Track     *Track     `gorm:"foreignKey:TrackID" json:"track,omitempty"`
	ShareLink *ShareLink `gorm:"foreignKey:ShareLinkID" json:"share_link,omitempty"`
}

func (e *DownloadEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
