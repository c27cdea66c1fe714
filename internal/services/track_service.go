package services

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dhowden/tag"
	"github.com/google/uuid"
	"github.com/playdrop/backend/internal/config"
	"github.com/playdrop/backend/internal/models"
	"gorm.io/gorm"
)

type TrackService struct {
	db        *gorm.DB
	cfg       *config.Config
	s3Service *S3Service
}

func NewTrackService(db *gorm.DB, cfg *config.Config, s3Service *S3Service) *TrackService {
	return &TrackService{
		db:        db,
		cfg:       cfg,
		s3Service: s3Service,
	}
}

// trackMeta is what we managed to pull out of the file's embedded tags.
type trackMeta struct {
	Title      string
	Artist     string
	Album      string
	Year       int
	Genre      string
	Composer   string
	BPM        int
	MusicalKey string
	ISRC       string
	Copyright  string
	Comment    string
	Artwork    []byte
	ArtworkExt string
}

// UploadTrack stores an audio file in S3 and creates the catalog record.
// Embedded metadata is extracted when present; the filename (without
// extension) is the fallback title. Embedded artwork is stored as its own
// object next to the audio.
func (s *TrackService) UploadTrack(ctx context.Context, ownerID uuid.UUID, filename string, data []byte, duration int) (*models.Track, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	allowedExts := map[string]bool{
		".flac": true,
		".mp3":  true,
		".wav":  true,
		".aac":  true,
		".m4a":  true,
		".ogg":  true,
		".oga":  true,
		".aiff": true,
		".aif":  true,
	}
	if !allowedExts[ext] {
		return nil, fmt.Errorf("unsupported audio format: %s (allowed: flac, mp3, wav, aac, m4a, ogg, aiff)", ext)
	}

	mimeType := audioMimeTypeFromExt(ext)
	if mimeType == "application/octet-stream" {
		sniffed := http.DetectContentType(data)
		if strings.HasPrefix(sniffed, "audio/") {
			mimeType = sniffed
		}
	}

	meta := extractTrackMeta(data, filename)

	storageKey := fmt.Sprintf("tracks/%s/%s%s", ownerID, uuid.New().String(), ext)
	if err := s.s3Service.UploadMedia(ctx, s.cfg.TracksBucket, storageKey, bytes.NewReader(data), mimeType); err != nil {
		return nil, fmt.Errorf("failed to upload audio: %w", err)
	}

	artworkKey := ""
	if len(meta.Artwork) > 0 {
		artworkKey = strings.TrimSuffix(storageKey, ext) + ".artwork." + meta.ArtworkExt
		artworkType := "image/" + meta.ArtworkExt
		if err := s.s3Service.UploadMedia(ctx, s.cfg.TracksBucket, artworkKey, bytes.NewReader(meta.Artwork), artworkType); err != nil {
			log.Printf("[Upload] Warning: failed to upload embedded artwork for %s: %v", filename, err)
			artworkKey = ""
		}
	}

	track := &models.Track{
		OwnerID:    ownerID,
		Title:      meta.Title,
		Artist:     meta.Artist,
		Album:      meta.Album,
		Year:       meta.Year,
		Genre:      meta.Genre,
		Composer:   meta.Composer,
		BPM:        meta.BPM,
		MusicalKey: meta.MusicalKey,
		ISRC:       meta.ISRC,
		Copyright:  meta.Copyright,
		Comment:    meta.Comment,
		Duration:   duration,
		Format:     strings.TrimPrefix(ext, "."),
		SizeBytes:  int64(len(data)),
		StorageKey: storageKey,
		ArtworkKey: artworkKey,
	}

	if err := s.db.Create(track).Error; err != nil {
		// Best-effort storage cleanup so a failed insert does not leak objects.
		_ = s.s3Service.DeleteMedia(ctx, s.cfg.TracksBucket, storageKey)
		if artworkKey != "" {
			_ = s.s3Service.DeleteMedia(ctx, s.cfg.TracksBucket, artworkKey)
		}
		return nil, fmt.Errorf("failed to create track record: %w", err)
	}

	return track, nil
}

// extractTrackMeta reads embedded tags; any failure degrades to the
// filename-as-title fallback rather than failing the upload.
func extractTrackMeta(data []byte, filename string) trackMeta {
	meta := trackMeta{
		Title: strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename)),
	}

	m, err := tag.ReadFrom(bytes.NewReader(data))
	if err != nil {
		return meta
	}

	if t := strings.TrimSpace(m.Title()); t != "" {
		meta.Title = t
	}
	meta.Artist = strings.TrimSpace(m.Artist())
	meta.Album = strings.TrimSpace(m.Album())
	meta.Year = m.Year()
	meta.Genre = strings.TrimSpace(m.Genre())
	meta.Composer = strings.TrimSpace(m.Composer())
	meta.Comment = strings.TrimSpace(m.Comment())

	// BPM, key, ISRC and copyright only exist as raw frames.
	raw := m.Raw()
	meta.BPM = rawFrameInt(raw, "TBPM", "tmpo", "BPM")
	meta.MusicalKey = rawFrameString(raw, "TKEY", "KEY", "INITIALKEY")
	meta.ISRC = rawFrameString(raw, "TSRC", "ISRC")
	meta.Copyright = rawFrameString(raw, "TCOP", "COPYRIGHT", "cprt")

	if pic := m.Picture(); pic != nil && len(pic.Data) > 0 {
		meta.Artwork = pic.Data
		meta.ArtworkExt = pic.Ext
		if meta.ArtworkExt == "" {
			meta.ArtworkExt = "jpg"
		}
	}

	return meta
}

func rawFrameString(raw map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		if v, ok := raw[key]; ok {
			if s, ok := v.(string); ok {
				return strings.TrimSpace(s)
			}
		}
	}
	return ""
}

func rawFrameInt(raw map[string]interface{}, keys ...string) int {
	for _, key := range keys {
		v, ok := raw[key]
		if !ok {
			continue
		}
		switch n := v.(type) {
		case int:
			return n
		case string:
			if parsed, err := strconv.Atoi(strings.TrimSpace(n)); err == nil {
				return parsed
			}
		}
	}
	return 0
}

// ListTracks returns an operator's catalog, newest first
func (s *TrackService) ListTracks(ownerID uuid.UUID, limit, offset int) ([]models.Track, int64, error) {
	var tracks []models.Track
	var total int64

	query := s.db.Model(&models.Track{}).Where("owner_id = ?", ownerID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&tracks).Error; err != nil {
		return nil, 0, err
	}

	return tracks, total, nil
}

// GetTrackByID returns a single track with no owner predicate. Only the
// share surface uses this, after verifying the track is placed in the
// shared playlist; operator routes go through GetOwnedTrack.
func (s *TrackService) GetTrackByID(trackID uuid.UUID) (*models.Track, error) {
	var track models.Track
	if err := s.db.First(&track, "id = ?", trackID).Error; err != nil {
		return nil, translateDBErr(err, "track", trackID)
	}
	return &track, nil
}

// GetOwnedTrack returns a track scoped to its owner. Another operator's
// track reads as not found.
func (s *TrackService) GetOwnedTrack(trackID, ownerID uuid.UUID) (*models.Track, error) {
	var track models.Track
	if err := s.db.First(&track, "id = ? AND owner_id = ?", trackID, ownerID).Error; err != nil {
		return nil, translateDBErr(err, "track", trackID)
	}
	return &track, nil
}

// DeleteTrack removes an owner's track from the catalog. Its placements
// are removed first so no playlist is left pointing at a missing track,
// then the storage objects, then the record.
func (s *TrackService) DeleteTrack(ctx context.Context, trackID, ownerID uuid.UUID) error {
	track, err := s.GetOwnedTrack(trackID, ownerID)
	if err != nil {
		return err
	}

	if err := s.db.Where("track_id = ?", trackID).Delete(&models.PlaylistTrack{}).Error; err != nil {
		return &PartialFailureError{Op: "delete track", Step: "delete placements", Err: translateDBErr(err, "track", trackID)}
	}

	if track.StorageKey != "" {
		if err := s.s3Service.DeleteMedia(ctx, s.cfg.TracksBucket, track.StorageKey); err != nil {
			log.Printf("[DeleteTrack] Warning: failed to delete S3 object %s: %v", track.StorageKey, err)
		}
	}
	if track.ArtworkKey != "" {
		if err := s.s3Service.DeleteMedia(ctx, s.cfg.TracksBucket, track.ArtworkKey); err != nil {
			log.Printf("[DeleteTrack] Warning: failed to delete artwork %s: %v", track.ArtworkKey, err)
		}
	}

	if err := s.db.Delete(&models.Track{}, "id = ?", trackID).Error; err != nil {
		return &PartialFailureError{Op: "delete track", Step: "delete track record", Err: translateDBErr(err, "track", trackID)}
	}
	return nil
}

// GetSignedPlaybackURL issues a time-limited playback URL for a track's
// audio object
func (s *TrackService) GetSignedPlaybackURL(ctx context.Context, storageKey string) (string, error) {
	ttl := time.Duration(s.cfg.PlaybackURLTTLMinutes) * time.Minute
	if ttl == 0 {
		ttl = time.Hour
	}
	return s.s3Service.PresignMediaGet(ctx, s.cfg.TracksBucket, storageKey, ttl)
}

// audioMimeTypeFromExt returns the MIME type for common audio extensions.
func audioMimeTypeFromExt(ext string) string {
	switch strings.ToLower(ext) {
	case ".flac":
		return "audio/flac"
	case ".mp3":
		return "audio/mpeg"
	case ".wav":
		return "audio/wav"
	case ".aac":
		return "audio/aac"
	case ".m4a":
		return "audio/mp4"
	case ".ogg", ".oga":
		return "audio/ogg"
	case ".aiff", ".aif":
		return "audio/aiff"
	default:
		return "application/octet-stream"
	}
}
