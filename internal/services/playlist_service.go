package services

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/playdrop/backend/internal/config"
	"github.com/playdrop/backend/internal/models"
	"gorm.io/gorm"
)

// PlaylistService covers playlist CRUD and artwork. Ordering, duplication
// and cascade deletion live in CompositionService.
type PlaylistService struct {
	db        *gorm.DB
	cfg       *config.Config
	s3Service *S3Service
}

func NewPlaylistService(db *gorm.DB, cfg *config.Config, s3Service *S3Service) *PlaylistService {
	return &PlaylistService{
		db:        db,
		cfg:       cfg,
		s3Service: s3Service,
	}
}

// CreatePlaylist creates an empty playlist for an operator
func (s *PlaylistService) CreatePlaylist(ownerID uuid.UUID, title, clientName, description string) (*models.Playlist, error) {
	if title == "" {
		return nil, fmt.Errorf("title is required")
	}

	playlist := &models.Playlist{
		OwnerID:     ownerID,
		Title:       title,
		ClientName:  clientName,
		Description: description,
	}

	if err := s.db.Create(playlist).Error; err != nil {
		return nil, fmt.Errorf("failed to create playlist: %w", err)
	}

	return playlist, nil
}

// ListPlaylists returns an operator's playlists, newest first
func (s *PlaylistService) ListPlaylists(ownerID uuid.UUID, limit, offset int) ([]models.Playlist, int64, error) {
	var playlists []models.Playlist
	var total int64

	query := s.db.Model(&models.Playlist{}).Where("owner_id = ?", ownerID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&playlists).Error; err != nil {
		return nil, 0, err
	}

	return playlists, total, nil
}

// GetPlaylistByID returns a single playlist scoped to its owner. A
// playlist belonging to another operator reads as not found.
func (s *PlaylistService) GetPlaylistByID(playlistID, ownerID uuid.UUID) (*models.Playlist, error) {
	var playlist models.Playlist
	if err := s.db.First(&playlist, "id = ? AND owner_id = ?", playlistID, ownerID).Error; err != nil {
		return nil, translateDBErr(err, "playlist", playlistID)
	}
	return &playlist, nil
}

// GetPlaylistDetail returns an owner's playlist with its ordered sections
// and placements (track metadata preloaded)
func (s *PlaylistService) GetPlaylistDetail(playlistID, ownerID uuid.UUID) (*models.Playlist, error) {
	var playlist models.Playlist
	err := playlistDetailQuery(s.db).
		First(&playlist, "id = ? AND owner_id = ?", playlistID, ownerID).Error
	if err != nil {
		return nil, translateDBErr(err, "playlist", playlistID)
	}
	return &playlist, nil
}

// SharedPlaylistDetail is the detail view for the public share surface.
// Access control happens at the share gate, not here; callers must hold a
// playlist id resolved from a validated share link.
func (s *PlaylistService) SharedPlaylistDetail(playlistID uuid.UUID) (*models.Playlist, error) {
	var playlist models.Playlist
	err := playlistDetailQuery(s.db).First(&playlist, "id = ?", playlistID).Error
	if err != nil {
		return nil, translateDBErr(err, "playlist", playlistID)
	}
	return &playlist, nil
}

func playlistDetailQuery(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Sections", func(q *gorm.DB) *gorm.DB { return q.Order("position ASC") }).
		Preload("Placements", func(q *gorm.DB) *gorm.DB { return q.Order("position ASC") }).
		Preload("Placements.Track")
}

// TrackInPlaylist reports whether a playlist holds at least one placement
// of the track. The share surface checks this before signing playback or
// download URLs so a session for one link cannot reach arbitrary tracks.
func (s *PlaylistService) TrackInPlaylist(playlistID, trackID uuid.UUID) (bool, error) {
	var count int64
	err := s.db.Model(&models.PlaylistTrack{}).
		Where("playlist_id = ? AND track_id = ?", playlistID, trackID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// UpdatePlaylist edits title, client name and description
func (s *PlaylistService) UpdatePlaylist(playlistID, ownerID uuid.UUID, title, clientName, description *string) (*models.Playlist, error) {
	var playlist models.Playlist
	if err := s.db.First(&playlist, "id = ? AND owner_id = ?", playlistID, ownerID).Error; err != nil {
		return nil, translateDBErr(err, "playlist", playlistID)
	}

	updates := map[string]interface{}{}
	if title != nil && *title != "" {
		updates["title"] = *title
	}
	if clientName != nil {
		updates["client_name"] = *clientName
	}
	if description != nil {
		updates["description"] = *description
	}
	if len(updates) == 0 {
		return &playlist, nil
	}
	if err := s.db.Model(&playlist).Updates(updates).Error; err != nil {
		return nil, err
	}
	return &playlist, nil
}

// UploadArtwork stores playlist cover art in S3 and records its key,
// replacing any previous artwork object.
func (s *PlaylistService) UploadArtwork(ctx context.Context, playlistID, ownerID uuid.UUID, filename string, data []byte) (*models.Playlist, error) {
	var playlist models.Playlist
	if err := s.db.First(&playlist, "id = ? AND owner_id = ?", playlistID, ownerID).Error; err != nil {
		return nil, translateDBErr(err, "playlist", playlistID)
	}

	ext := strings.ToLower(filepath.Ext(filename))
	allowedExts := map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".webp": true}
	if !allowedExts[ext] {
		return nil, fmt.Errorf("unsupported artwork format: %s (allowed: jpg, jpeg, png, webp)", ext)
	}

	key := fmt.Sprintf("playlist-artwork/%s%s", playlistID, ext)
	ctype := "image/jpeg"
	switch ext {
	case ".png":
		ctype = "image/png"
	case ".webp":
		ctype = "image/webp"
	}

	if err := s.s3Service.UploadMedia(ctx, s.cfg.TracksBucket, key, bytes.NewReader(data), ctype); err != nil {
		return nil, fmt.Errorf("failed to upload artwork: %w", err)
	}

	if playlist.ArtworkKey != "" && playlist.ArtworkKey != key {
		_ = s.s3Service.DeleteMedia(ctx, s.cfg.TracksBucket, playlist.ArtworkKey)
	}

	if err := s.db.Model(&playlist).Update("artwork_key", key).Error; err != nil {
		return nil, fmt.Errorf("failed to record artwork: %w", err)
	}
	playlist.ArtworkKey = key
	return &playlist, nil
}

// GetArtworkURL issues a signed URL for a playlist's artwork
func (s *PlaylistService) GetArtworkURL(ctx context.Context, key string) (string, error) {
	ttl := time.Duration(s.cfg.ArtworkURLTTLMinutes) * time.Minute
	if ttl == 0 {
		ttl = time.Hour
	}
	return s.s3Service.PresignMediaGet(ctx, s.cfg.TracksBucket, key, ttl)
}

// PlaylistsContainingTracks returns, per track, the titles of the
// operator's playlists holding a placement of it. The tracks page uses
// this to warn before a catalog delete.
func (s *PlaylistService) PlaylistsContainingTracks(ownerID uuid.UUID, trackIDs []uuid.UUID) (map[uuid.UUID][]string, error) {
	if len(trackIDs) == 0 {
		return map[uuid.UUID][]string{}, nil
	}

	type row struct {
		TrackID uuid.UUID
		Title   string
	}
	var rows []row
	err := s.db.Model(&models.PlaylistTrack{}).
		Select("playlist_tracks.track_id, playlists.title").
		Joins("JOIN playlists ON playlists.id = playlist_tracks.playlist_id").
		Where("playlist_tracks.track_id IN ? AND playlists.owner_id = ?", trackIDs, ownerID).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	result := make(map[uuid.UUID][]string)
	for _, r := range rows {
		result[r.TrackID] = append(result[r.TrackID], r.Title)
	}
	return result, nil
}
