package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Playlist is a named, client-facing collection owned by one operator.
type Playlist struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerID     uuid.UUID `gorm:"type:uuid;not null;index" json:"owner_id"`
	Title       string    `gorm:"size:255;not null" json:"title"`
	ClientName  string    `gorm:"size:255" json:"client_name,omitempty"`
	Description string    `gorm:"size:2000" json:"description,omitempty"`
	ArtworkKey  string    `gorm:"size:512" json:"artwork_key,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Sections   []Section       `gorm:"foreignKey:PlaylistID" json:"sections,omitempty"`
	Placements []PlaylistTrack `gorm:"foreignKey:PlaylistID" json:"placements,omitempty"`
	Shares     []ShareLink     `gorm:"foreignKey:PlaylistID" json:"shares,omitempty"`
}

func (p *Playlist) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// Section is a named, ordered sub-grouping within exactly one playlist.
// Position is a zero-based ordering key unique among sections of the playlist.
type Section struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	PlaylistID uuid.UUID `gorm:"type:uuid;not null;index" json:"playlist_id"`
	Title      string    `gorm:"size:255;not null" json:"title"`
	Emoji      string    `gorm:"size:16" json:"emoji,omitempty"`
	Position   int       `gorm:"not null;default:0" json:"position"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (s *Section) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// PlaylistTrack is a placement: one track placed inside one playlist,
// optionally inside one section. Position is unique within the
// (playlist, section-or-null) group after any completed operation. A nil
// SectionID means the placement belongs to the playlist's unsectioned group.
type PlaylistTrack struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	PlaylistID uuid.UUID  `gorm:"type:uuid;not null;index" json:"playlist_id"`
	TrackID    uuid.UUID  `gorm:"type:uuid;not null;index" json:"track_id"`
	SectionID  *uuid.UUID `gorm:"type:uuid;index" json:"section_id,omitempty"`
	Position   int        `gorm:"not null;default:0" json:"position"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Track *Track `gorm:"foreignKey:TrackID" json:"track,omitempty"`
}

func (pt *PlaylistTrack) BeforeCreate(tx *gorm.DB) error {
	if pt.ID == uuid.Nil {
		pt.ID = uuid.New()
	}
	return nil
}
