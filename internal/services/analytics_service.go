package services

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/playdrop/backend/internal/config"
	"github.com/playdrop/backend/internal/models"
	"gorm.io/gorm"
)

type AnalyticsService struct {
	db  *gorm.DB
	cfg *config.Config
}

func NewAnalyticsService(db *gorm.DB, cfg *config.Config) *AnalyticsService {
	return &AnalyticsService{db: db, cfg: cfg}
}

// VisitorContext is the request metadata attached to every recorded event.
type VisitorContext struct {
	Email     string
	IP        string
	UserAgent string
}

// RecordPageView appends a page view for a share link
func (s *AnalyticsService) RecordPageView(shareLinkID uuid.UUID, visitor VisitorContext) error {
	event := &models.AnalyticsEvent{
		ShareLinkID:   shareLinkID,
		EventType:     models.EventTypePageView,
		ListenerEmail: visitor.Email,
		ListenerIP:    visitor.IP,
		UserAgent:     visitor.UserAgent,
	}
	return s.db.Create(event).Error
}

// RecordPlay appends a playback-start event
func (s *AnalyticsService) RecordPlay(shareLinkID, trackID uuid.UUID, visitor VisitorContext) (*models.PlayEvent, error) {
	event := &models.PlayEvent{
		TrackID:       trackID,
		ShareLinkID:   shareLinkID,
		ListenerEmail: visitor.Email,
		ListenerIP:    visitor.IP,
		UserAgent:     visitor.UserAgent,
	}
	if err := s.db.Create(event).Error; err != nil {
		return nil, err
	}
	return event, nil
}

// UpdatePlayProgress records how far a listener got through a track.
// The client pings this periodically and on pause/end.
func (s *AnalyticsService) UpdatePlayProgress(playEventID uuid.UUID, durationListened int, completed bool) error {
	res := s.db.Model(&models.PlayEvent{}).
		Where("id = ?", playEventID).
		Updates(map[string]interface{}{
			"duration_listened": durationListened,
			"completed":         completed,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return notFoundErr("play event", playEventID)
	}
	return nil
}

// RecordDownload appends a download event
func (s *AnalyticsService) RecordDownload(shareLinkID, trackID uuid.UUID, visitor VisitorContext) error {
	event := &models.DownloadEvent{
		TrackID:       trackID,
		ShareLinkID:   shareLinkID,
		ListenerEmail: visitor.Email,
		ListenerIP:    visitor.IP,
		UserAgent:     visitor.UserAgent,
	}
	return s.db.Create(event).Error
}

// ShareOverview summarizes one share link's engagement.
type ShareOverview struct {
	ShareLinkID uuid.UUID `json:"share_link_id"`
	Views       int64     `json:"views"`
	Plays       int64     `json:"plays"`
	Downloads   int64     `json:"downloads"`
	LastVisit   time.Time `json:"last_visit,omitempty"`
}

// GetShareOverview returns view/play/download counts for one link
func (s *AnalyticsService) GetShareOverview(shareLinkID uuid.UUID) (*ShareOverview, error) {
	overview := &ShareOverview{ShareLinkID: shareLinkID}

	if err := s.db.Model(&models.AnalyticsEvent{}).
		Where("share_link_id = ? AND event_type = ?", shareLinkID, models.EventTypePageView).
		Count(&overview.Views).Error; err != nil {
		return nil, err
	}
	if err := s.db.Model(&models.PlayEvent{}).
		Where("share_link_id = ?", shareLinkID).
		Count(&overview.Plays).Error; err != nil {
		return nil, err
	}
	if err := s.db.Model(&models.DownloadEvent{}).
		Where("share_link_id = ?", shareLinkID).
		Count(&overview.Downloads).Error; err != nil {
		return nil, err
	}

	var last models.AnalyticsEvent
	err := s.db.Where("share_link_id = ?", shareLinkID).
		Order("created_at DESC").
		First(&last).Error
	if err == nil {
		overview.LastVisit = last.CreatedAt
	} else if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	return overview, nil
}

// TrackPlayCount pairs a track with its play/download totals across the
// playlist's share links.
type TrackPlayCount struct {
	TrackID   uuid.UUID `json:"track_id"`
	Title     string    `json:"title"`
	Artist    string    `json:"artist"`
	Plays     int64     `json:"plays"`
	Downloads int64     `json:"downloads"`
}

// GetPlaysByTrack aggregates play and download counts per track for all of
// a playlist's share links, most played first.
func (s *AnalyticsService) GetPlaysByTrack(playlistID uuid.UUID) ([]TrackPlayCount, error) {
	var rows []TrackPlayCount
	err := s.db.Model(&models.PlayEvent{}).
		Select("play_events.track_id, tracks.title, tracks.artist, COUNT(play_events.id) AS plays").
		Joins("JOIN tracks ON tracks.id = play_events.track_id").
		Joins("JOIN share_links ON share_links.id = play_events.share_link_id").
		Where("share_links.playlist_id = ?", playlistID).
		Group("play_events.track_id, tracks.title, tracks.artist").
		Order("plays DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	type dlRow struct {
		TrackID   uuid.UUID
		Downloads int64
	}
	var dls []dlRow
	err = s.db.Model(&models.DownloadEvent{}).
		Select("download_events.track_id, COUNT(download_events.id) AS downloads").
		Joins("JOIN share_links ON share_links.id = download_events.share_link_id").
		Where("share_links.playlist_id = ?", playlistID).
		Group("download_events.track_id").
		Scan(&dls).Error
	if err != nil {
		return nil, err
	}

	byTrack := make(map[uuid.UUID]int64, len(dls))
	for _, d := range dls {
		byTrack[d.TrackID] = d.Downloads
	}
	for i := range rows {
		rows[i].Downloads = byTrack[rows[i].TrackID]
	}
	return rows, nil
}

// ActivityItem is one entry of the merged recent-activity feed.
type ActivityItem struct {
	Kind          string    `json:"kind"` // "view", "play", "download"
	ShareLinkID   uuid.UUID `json:"share_link_id"`
	TrackID       uuid.UUID `json:"track_id,omitempty"`
	ListenerEmail string    `json:"listener_email,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// GetRecentActivity returns the newest events across all three streams for
// one playlist, merged into a single reverse-chronological feed.
func (s *AnalyticsService) GetRecentActivity(playlistID uuid.UUID, limit int) ([]ActivityItem, error) {
	if limit <= 0 {
		limit = 20
	}

	var views []models.AnalyticsEvent
	err := s.db.Joins("JOIN share_links ON share_links.id = analytics_events.share_link_id").
		Where("share_links.playlist_id = ?", playlistID).
		Order("analytics_events.created_at DESC").
		Limit(limit).
		Find(&views).Error
	if err != nil {
		return nil, err
	}

	var plays []models.PlayEvent
	err = s.db.Joins("JOIN share_links ON share_links.id = play_events.share_link_id").
		Where("share_links.playlist_id = ?", playlistID).
		Order("play_events.created_at DESC").
		Limit(limit).
		Find(&plays).Error
	if err != nil {
		return nil, err
	}

	var downloads []models.DownloadEvent
	err = s.db.Joins("JOIN share_links ON share_links.id = download_events.share_link_id").
		Where("share_links.playlist_id = ?", playlistID).
		Order("download_events.created_at DESC").
		Limit(limit).
		Find(&downloads).Error
	if err != nil {
		return nil, err
	}

	return mergeActivity(views, plays, downloads, limit), nil
}

// mergeActivity folds the three event streams into one feed, newest first,
// capped at limit.
func mergeActivity(views []models.AnalyticsEvent, plays []models.PlayEvent, downloads []models.DownloadEvent, limit int) []ActivityItem {
	items := make([]ActivityItem, 0, len(views)+len(plays)+len(downloads))
	for _, v := range views {
		items = append(items, ActivityItem{
			Kind:          "view",
			ShareLinkID:   v.ShareLinkID,
			ListenerEmail: v.ListenerEmail,
			OccurredAt:    v.CreatedAt,
		})
	}
	for _, p := range plays {
		items = append(items, ActivityItem{
			Kind:          "play",
			ShareLinkID:   p.ShareLinkID,
			TrackID:       p.TrackID,
			ListenerEmail: p.ListenerEmail,
			OccurredAt:    p.CreatedAt,
		})
	}
	for _, d := range downloads {
		items = append(items, ActivityItem{
			Kind:          "download",
			ShareLinkID:   d.ShareLinkID,
			TrackID:       d.TrackID,
			ListenerEmail: d.ListenerEmail,
			OccurredAt:    d.CreatedAt,
		})
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].OccurredAt.After(items[j].OccurredAt)
	})
	if len(items) > limit {
		items = items[:limit]
	}
	return items
}

// PlaylistOverview rolls up engagement across all of a playlist's links.
type PlaylistOverview struct {
	PlaylistID     uuid.UUID `json:"playlist_id"`
	TotalViews     int64     `json:"total_views"`
	TotalPlays     int64     `json:"total_plays"`
	TotalDownloads int64     `json:"total_downloads"`
	UniqueVisitors int64     `json:"unique_visitors"`
}

// GetPlaylistOverview aggregates counts across every share link of a
// playlist. Unique visitors are counted by distinct listener email,
// falling back to IP for anonymous visits.
func (s *AnalyticsService) GetPlaylistOverview(playlistID uuid.UUID) (*PlaylistOverview, error) {
	overview := &PlaylistOverview{PlaylistID: playlistID}

	err := s.db.Model(&models.AnalyticsEvent{}).
		Joins("JOIN share_links ON share_links.id = analytics_events.share_link_id").
		Where("share_links.playlist_id = ? AND analytics_events.event_type = ?", playlistID, models.EventTypePageView).
		Count(&overview.TotalViews).Error
	if err != nil {
		return nil, err
	}

	err = s.db.Model(&models.PlayEvent{}).
		Joins("JOIN share_links ON share_links.id = play_events.share_link_id").
		Where("share_links.playlist_id = ?", playlistID).
		Count(&overview.TotalPlays).Error
	if err != nil {
		return nil, err
	}

	err = s.db.Model(&models.DownloadEvent{}).
		Joins("JOIN share_links ON share_links.id = download_events.share_link_id").
		Where("share_links.playlist_id = ?", playlistID).
		Count(&overview.TotalDownloads).Error
	if err != nil {
		return nil, err
	}

	err = s.db.Model(&models.AnalyticsEvent{}).
		Joins("JOIN share_links ON share_links.id = analytics_events.share_link_id").
		Where("share_links.playlist_id = ?", playlistID).
		Distinct("COALESCE(NULLIF(analytics_events.listener_email, ''), analytics_events.listener_ip)").
		Count(&overview.UniqueVisitors).Error
	if err != nil {
		return nil, err
	}

	return overview, nil
}
