package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Track is a catalog entity owned by an operator, independent of any playlist.
// Metadata fields are extracted from the uploaded file's embedded tags.
type Track struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerID    uuid.UUID `gorm:"type:uuid;not null;index" json:"owner_id"`
	Title      string    `gorm:"size:255;not null" json:"title"`
	Artist     string    `gorm:"size:255" json:"artist,omitempty"`
	Album      string    `gorm:"size:255" json:"album,omitempty"`
	Year       int       `json:"year,omitempty"`
	Genre      string    `gorm:"size:120" json:"genre,omitempty"`
	Composer   string    `gorm:"size:255" json:"composer,omitempty"`
	BPM        int       `json:"bpm,omitempty"`
	MusicalKey string    `gorm:"size:16" json:"key,omitempty"`
	ISRC       string    `gorm:"size:24" json:"isrc,omitempty"`
	Copyright  string    `gorm:"size:512" json:"copyright,omitempty"`
	Comment    string    `gorm:"size:2000" json:"comment,omitempty"`
	Duration   int       `gorm:"default:0" json:"duration"` // seconds
	Format     string    `gorm:"size:16" json:"format,omitempty"`
	SizeBytes  int64     `json:"file_size"`
	StorageKey string    `gorm:"size:512;uniqueIndex" json:"storage_key"`
	ArtworkKey string    `gorm:"size:512" json:"artwork_key,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (t *Track) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
