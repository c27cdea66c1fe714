package services

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/playdrop/backend/internal/config"
	"github.com/playdrop/backend/internal/models"
	"github.com/playdrop/backend/internal/pkg/ordering"
	"gorm.io/gorm"
)

// CompositionService owns the relationship between a playlist, its ordered
// sections, and the ordered, optionally-sectioned placements inside it:
// position assignment, reorder and cross-group moves, duplication, and
// cascade-safe deletion.
//
// The service is stateless between calls. Every operation reads current
// positions from the store inside its own transaction rather than trusting
// any earlier snapshot, so a violated single-writer assumption degrades to
// a duplicate/skipped position that the next renumber heals, never to data
// loss.
type CompositionService struct {
	db        *gorm.DB
	cfg       *config.Config
	s3Service *S3Service
}

func NewCompositionService(db *gorm.DB, cfg *config.Config, s3Service *S3Service) *CompositionService {
	return &CompositionService{
		db:        db,
		cfg:       cfg,
		s3Service: s3Service,
	}
}

// groupScope narrows a placement query to one (playlist, section-or-null)
// group. A nil sectionID selects the unsectioned pseudo-group.
func groupScope(q *gorm.DB, playlistID uuid.UUID, sectionID *uuid.UUID) *gorm.DB {
	q = q.Where("playlist_id = ?", playlistID)
	if sectionID == nil {
		return q.Where("section_id IS NULL")
	}
	return q.Where("section_id = ?", *sectionID)
}

// loadGroup returns the placements of one group ordered by position.
func loadGroup(tx *gorm.DB, playlistID uuid.UUID, sectionID *uuid.UUID) ([]models.PlaylistTrack, error) {
	var placements []models.PlaylistTrack
	err := groupScope(tx.Model(&models.PlaylistTrack{}), playlistID, sectionID).
		Order("position ASC, created_at ASC").
		Find(&placements).Error
	return placements, err
}

// checkPlaylist verifies the playlist exists and belongs to the operator.
// Someone else's playlist reads as not found.
func (s *CompositionService) checkPlaylist(tx *gorm.DB, playlistID, ownerID uuid.UUID) error {
	if err := tx.Select("id").First(&models.Playlist{}, "id = ? AND owner_id = ?", playlistID, ownerID).Error; err != nil {
		return translateDBErr(err, "playlist", playlistID)
	}
	return nil
}

func (s *CompositionService) checkSection(tx *gorm.DB, playlistID uuid.UUID, sectionID *uuid.UUID) error {
	if sectionID == nil {
		return nil
	}
	var section models.Section
	if err := tx.First(&section, "id = ?", *sectionID).Error; err != nil {
		return translateDBErr(err, "section", *sectionID)
	}
	if section.PlaylistID != playlistID {
		return fmt.Errorf("%w: section %s does not belong to playlist %s", ErrNotFound, *sectionID, playlistID)
	}
	return nil
}

// AppendPlacement places a track at the end of a group: position is
// max(existing)+1, or 0 for an empty group, read inside the insert
// transaction so two racing appends serialize on the storage layer.
func (s *CompositionService) AppendPlacement(playlistID, ownerID, trackID uuid.UUID, sectionID *uuid.UUID) (*models.PlaylistTrack, error) {
	var placement *models.PlaylistTrack
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.checkPlaylist(tx, playlistID, ownerID); err != nil {
			return err
		}
		if err := tx.Select("id").First(&models.Track{}, "id = ? AND owner_id = ?", trackID, ownerID).Error; err != nil {
			return translateDBErr(err, "track", trackID)
		}
		if err := s.checkSection(tx, playlistID, sectionID); err != nil {
			return err
		}

		var next int
		if err := groupScope(tx.Model(&models.PlaylistTrack{}), playlistID, sectionID).
			Select("COALESCE(MAX(position) + 1, 0)").Scan(&next).Error; err != nil {
			return err
		}

		placement = &models.PlaylistTrack{
			PlaylistID: playlistID,
			TrackID:    trackID,
			SectionID:  sectionID,
			Position:   next,
		}
		return translateDBErr(tx.Create(placement).Error, "placement", trackID)
	})
	if err != nil {
		return nil, err
	}
	return placement, nil
}

// AppendPlacements bulk-appends tracks to a group preserving argument order.
func (s *CompositionService) AppendPlacements(playlistID, ownerID uuid.UUID, trackIDs []uuid.UUID, sectionID *uuid.UUID) ([]models.PlaylistTrack, error) {
	if len(trackIDs) == 0 {
		return nil, nil
	}
	var created []models.PlaylistTrack
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.checkPlaylist(tx, playlistID, ownerID); err != nil {
			return err
		}
		if err := s.checkSection(tx, playlistID, sectionID); err != nil {
			return err
		}
		var owned int64
		if err := tx.Model(&models.Track{}).
			Where("id IN ? AND owner_id = ?", trackIDs, ownerID).
			Count(&owned).Error; err != nil {
			return err
		}
		if owned != int64(len(uniqueIDs(trackIDs))) {
			return notFoundErr("track", trackIDs)
		}

		var start int
		if err := groupScope(tx.Model(&models.PlaylistTrack{}), playlistID, sectionID).
			Select("COALESCE(MAX(position) + 1, 0)").Scan(&start).Error; err != nil {
			return err
		}

		created = make([]models.PlaylistTrack, 0, len(trackIDs))
		for i, trackID := range trackIDs {
			created = append(created, models.PlaylistTrack{
				PlaylistID: playlistID,
				TrackID:    trackID,
				SectionID:  sectionID,
				Position:   start + i,
			})
		}
		return translateDBErr(tx.Create(&created).Error, "placements", playlistID)
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// AppendSection creates a section at the end of the playlist's section list.
func (s *CompositionService) AppendSection(playlistID, ownerID uuid.UUID, title, emoji string) (*models.Section, error) {
	var section *models.Section
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.checkPlaylist(tx, playlistID, ownerID); err != nil {
			return err
		}

		var count int64
		if err := tx.Model(&models.Section{}).Where("playlist_id = ?", playlistID).Count(&count).Error; err != nil {
			return err
		}

		section = &models.Section{
			PlaylistID: playlistID,
			Title:      title,
			Emoji:      emoji,
			Position:   int(count),
		}
		return tx.Create(section).Error
	})
	if err != nil {
		return nil, err
	}
	return section, nil
}

// UpdateSection edits a section's title/emoji.
func (s *CompositionService) UpdateSection(playlistID, ownerID, sectionID uuid.UUID, title, emoji *string) (*models.Section, error) {
	if err := s.checkPlaylist(s.db, playlistID, ownerID); err != nil {
		return nil, err
	}
	var section models.Section
	if err := s.db.First(&section, "id = ? AND playlist_id = ?", sectionID, playlistID).Error; err != nil {
		return nil, translateDBErr(err, "section", sectionID)
	}
	updates := map[string]interface{}{}
	if title != nil {
		updates["title"] = *title
	}
	if emoji != nil {
		updates["emoji"] = *emoji
	}
	if len(updates) == 0 {
		return &section, nil
	}
	if err := s.db.Model(&section).Updates(updates).Error; err != nil {
		return nil, err
	}
	return &section, nil
}

// ReorderPlacement moves a placement to targetIndex within the group
// identified by targetSectionID (nil = unsectioned). When the target group
// equals the placement's current group this is a within-group reorder:
// remove, reinsert at the index, renumber the group 0..n-1. Moving to a
// different group leaves the source group's relative order intact (gaps
// there are harmless, positions are only compared within a group) and
// renumbers the target group. A negative targetIndex appends to the end.
func (s *CompositionService) ReorderPlacement(playlistID, ownerID, placementID uuid.UUID, targetSectionID *uuid.UUID, targetIndex int) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.checkPlaylist(tx, playlistID, ownerID); err != nil {
			return err
		}
		var placement models.PlaylistTrack
		if err := tx.First(&placement, "id = ? AND playlist_id = ?", placementID, playlistID).Error; err != nil {
			return translateDBErr(err, "placement", placementID)
		}
		if err := s.checkSection(tx, placement.PlaylistID, targetSectionID); err != nil {
			return err
		}

		sameGroup := sectionIDsEqual(placement.SectionID, targetSectionID)

		if sameGroup {
			group, err := loadGroup(tx, placement.PlaylistID, placement.SectionID)
			if err != nil {
				return err
			}
			ids, current := idsAndPositions(group)
			if targetIndex < 0 {
				targetIndex = len(ids) - 1
			}
			reordered, found := ordering.MoveTo(ids, placementID, targetIndex)
			if !found {
				return notFoundErr("placement", placementID)
			}
			return applyPlacementPositions(tx, ordering.Renumber(reordered, current))
		}

		// Cross-group move: drop out of the source, land in the target,
		// renumber the target including the moved placement.
		target, err := loadGroup(tx, placement.PlaylistID, targetSectionID)
		if err != nil {
			return err
		}
		ids, current := idsAndPositions(target)
		if targetIndex < 0 {
			targetIndex = len(ids)
		}
		reordered := ordering.InsertAt(ids, placementID, targetIndex)

		var sectionValue interface{}
		if targetSectionID != nil {
			sectionValue = *targetSectionID
		}
		if err := tx.Model(&models.PlaylistTrack{}).
			Where("id = ?", placementID).
			Update("section_id", sectionValue).Error; err != nil {
			return translateDBErr(err, "placement", placementID)
		}
		return applyPlacementPositions(tx, ordering.Renumber(reordered, current))
	})
}

// ReorderSection moves a section to targetIndex within its playlist's
// section list and renumbers all sections 0..k-1. Placement positions are
// untouched: placements key off section identifier, not section position.
func (s *CompositionService) ReorderSection(playlistID, ownerID, sectionID uuid.UUID, targetIndex int) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.checkPlaylist(tx, playlistID, ownerID); err != nil {
			return err
		}
		var sections []models.Section
		if err := tx.Where("playlist_id = ?", playlistID).
			Order("position ASC, created_at ASC").
			Find(&sections).Error; err != nil {
			return err
		}

		ids := make([]uuid.UUID, len(sections))
		current := make(map[uuid.UUID]int, len(sections))
		for i, sec := range sections {
			ids[i] = sec.ID
			current[sec.ID] = sec.Position
		}
		if targetIndex < 0 {
			targetIndex = len(ids) - 1
		}
		reordered, found := ordering.MoveTo(ids, sectionID, targetIndex)
		if !found {
			return notFoundErr("section", sectionID)
		}
		for _, u := range ordering.Renumber(reordered, current) {
			if err := tx.Model(&models.Section{}).
				Where("id = ?", u.ID).
				Update("position", u.Position).Error; err != nil {
				return translateDBErr(err, "section", u.ID)
			}
		}
		return nil
	})
}

// RenumberGroup eagerly closes position gaps in one group (0..n-1). Raw
// placement deletes leave gaps that are otherwise healed on the next
// reorder of that group.
func (s *CompositionService) RenumberGroup(playlistID, ownerID uuid.UUID, sectionID *uuid.UUID) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.checkPlaylist(tx, playlistID, ownerID); err != nil {
			return err
		}
		group, err := loadGroup(tx, playlistID, sectionID)
		if err != nil {
			return err
		}
		ids, current := idsAndPositions(group)
		return applyPlacementPositions(tx, ordering.Renumber(ids, current))
	})
}

// DeletePlacement removes a single placement. The track itself and the
// remaining placements' positions are untouched; the gap is tolerated.
func (s *CompositionService) DeletePlacement(playlistID, ownerID, placementID uuid.UUID) error {
	if err := s.checkPlaylist(s.db, playlistID, ownerID); err != nil {
		return err
	}
	res := s.db.Delete(&models.PlaylistTrack{}, "id = ? AND playlist_id = ?", placementID, playlistID)
	if res.Error != nil {
		return translateDBErr(res.Error, "placement", placementID)
	}
	if res.RowsAffected == 0 {
		return notFoundErr("placement", placementID)
	}
	return nil
}

// DeleteSection removes a section. By default its placements are
// reassigned to the unsectioned group, appended after existing unsectioned
// placements in position order — a track explicitly added to a playlist
// must not vanish because its grouping was removed. With deletePlacements
// the placements are deleted along with the section (policy flag, both
// behaviors are legitimate product choices). Remaining sections are
// renumbered so that the section count stays a valid append position.
func (s *CompositionService) DeleteSection(playlistID, ownerID, sectionID uuid.UUID, deletePlacements bool) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.checkPlaylist(tx, playlistID, ownerID); err != nil {
			return err
		}
		var section models.Section
		if err := tx.First(&section, "id = ? AND playlist_id = ?", sectionID, playlistID).Error; err != nil {
			return translateDBErr(err, "section", sectionID)
		}

		if deletePlacements {
			if err := tx.Where("section_id = ?", sectionID).
				Delete(&models.PlaylistTrack{}).Error; err != nil {
				return translateDBErr(err, "section placements", sectionID)
			}
		} else {
			orphaned, err := loadGroup(tx, section.PlaylistID, &section.ID)
			if err != nil {
				return err
			}
			var base int
			if err := groupScope(tx.Model(&models.PlaylistTrack{}), section.PlaylistID, nil).
				Select("COALESCE(MAX(position) + 1, 0)").Scan(&base).Error; err != nil {
				return err
			}
			for _, u := range unsectionedAppends(orphaned, base) {
				if err := tx.Model(&models.PlaylistTrack{}).
					Where("id = ?", u.ID).
					Updates(map[string]interface{}{
						"section_id": nil,
						"position":   u.Position,
					}).Error; err != nil {
					return translateDBErr(err, "placement", u.ID)
				}
			}
		}

		if err := tx.Delete(&models.Section{}, "id = ?", sectionID).Error; err != nil {
			return translateDBErr(err, "section", sectionID)
		}

		// Close the gap in the section list so count == next position.
		var rest []models.Section
		if err := tx.Where("playlist_id = ?", section.PlaylistID).
			Order("position ASC, created_at ASC").
			Find(&rest).Error; err != nil {
			return err
		}
		for i, sec := range rest {
			if sec.Position == i {
				continue
			}
			if err := tx.Model(&models.Section{}).
				Where("id = ?", sec.ID).
				Update("position", i).Error; err != nil {
				return translateDBErr(err, "section", sec.ID)
			}
		}
		return nil
	})
}

// DuplicatePlaylist produces an independent copy of a playlist: new
// playlist, section and placement identifiers referencing the same
// underlying tracks. Position sequences are mirrored as-is — duplication
// does not repair pre-existing gaps. The whole copy runs in one
// transaction, which provides the all-or-nothing boundary.
func (s *CompositionService) DuplicatePlaylist(playlistID, ownerID uuid.UUID) (*models.Playlist, error) {
	var copied *models.Playlist
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var original models.Playlist
		if err := tx.First(&original, "id = ? AND owner_id = ?", playlistID, ownerID).Error; err != nil {
			return translateDBErr(err, "playlist", playlistID)
		}

		copied = &models.Playlist{
			OwnerID:     ownerID,
			Title:       original.Title + " (Copy)",
			ClientName:  original.ClientName,
			Description: original.Description,
		}
		if err := tx.Create(copied).Error; err != nil {
			return &PartialFailureError{Op: "duplicate playlist", Step: "create playlist", Err: err}
		}

		var sections []models.Section
		if err := tx.Where("playlist_id = ?", playlistID).
			Order("position ASC").
			Find(&sections).Error; err != nil {
			return &PartialFailureError{Op: "duplicate playlist", Step: "load sections", Err: err}
		}
		copies, sectionMap := copySections(sections, copied.ID)
		if len(copies) > 0 {
			if err := tx.Create(&copies).Error; err != nil {
				return &PartialFailureError{Op: "duplicate playlist", Step: "copy sections", Err: err}
			}
		}

		var placements []models.PlaylistTrack
		if err := tx.Where("playlist_id = ?", playlistID).
			Order("position ASC").
			Find(&placements).Error; err != nil {
			return &PartialFailureError{Op: "duplicate playlist", Step: "load placements", Err: err}
		}
		placementCopies := copyPlacements(placements, copied.ID, sectionMap)
		if len(placementCopies) > 0 {
			if err := tx.Create(&placementCopies).Error; err != nil {
				return &PartialFailureError{Op: "duplicate playlist", Step: "copy placements", Err: err}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return copied, nil
}

// shareDependents lists the tables keyed by share_link_id. A playlist
// cascade clears all of them before the links themselves go, so no event
// or recipient row is left pointing at a deleted link.
var shareDependents = []struct {
	step  string
	model interface{}
}{
	{"delete analytics events", &models.AnalyticsEvent{}},
	{"delete play events", &models.PlayEvent{}},
	{"delete download events", &models.DownloadEvent{}},
	{"delete share recipients", &models.ShareRecipient{}},
}

// playlistDependents lists the tables keyed by playlist_id that must be
// cleared after the share links and before the playlist row.
var playlistDependents = []struct {
	step  string
	model interface{}
}{
	{"delete placements", &models.PlaylistTrack{}},
	{"delete sections", &models.Section{}},
}

// DeletePlaylist removes an owner's playlist and everything hanging off
// it in dependency order: analytics rows for its share links, then share
// recipients, then the share links, then placements, sections and finally
// the playlist row. The artwork object is removed only after the
// transaction commits so a failed cascade never strips a live playlist's
// cover. Tracks are never touched.
func (s *CompositionService) DeletePlaylist(ctx context.Context, playlistID, ownerID uuid.UUID) error {
	var playlist models.Playlist
	if err := s.db.First(&playlist, "id = ? AND owner_id = ?", playlistID, ownerID).Error; err != nil {
		return translateDBErr(err, "playlist", playlistID)
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var shareIDs []uuid.UUID
		if err := tx.Model(&models.ShareLink{}).
			Where("playlist_id = ?", playlistID).
			Pluck("id", &shareIDs).Error; err != nil {
			return &PartialFailureError{Op: "delete playlist", Step: "list share links", Err: err}
		}

		if len(shareIDs) > 0 {
			for _, dep := range shareDependents {
				if err := tx.Where("share_link_id IN ?", shareIDs).Delete(dep.model).Error; err != nil {
					return &PartialFailureError{Op: "delete playlist", Step: dep.step, Err: translateDBErr(err, "playlist", playlistID)}
				}
			}
			if err := tx.Where("playlist_id = ?", playlistID).Delete(&models.ShareLink{}).Error; err != nil {
				return &PartialFailureError{Op: "delete playlist", Step: "delete share links", Err: translateDBErr(err, "playlist", playlistID)}
			}
		}

		for _, dep := range playlistDependents {
			if err := tx.Where("playlist_id = ?", playlistID).Delete(dep.model).Error; err != nil {
				return &PartialFailureError{Op: "delete playlist", Step: dep.step, Err: translateDBErr(err, "playlist", playlistID)}
			}
		}
		if err := tx.Delete(&models.Playlist{}, "id = ?", playlistID).Error; err != nil {
			return &PartialFailureError{Op: "delete playlist", Step: "delete playlist", Err: translateDBErr(err, "playlist", playlistID)}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if playlist.ArtworkKey != "" && s.s3Service != nil {
		if derr := s.s3Service.DeleteMedia(ctx, s.cfg.TracksBucket, playlist.ArtworkKey); derr != nil {
			log.Printf("[DeletePlaylist] Warning: failed to delete artwork %s: %v", playlist.ArtworkKey, derr)
		}
	}
	return nil
}

// sectionIDsEqual compares two optional section references; two nils are
// the same (unsectioned) group.
func sectionIDsEqual(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// unsectionedAppends plans the moves for a deleted section's placements:
// each one lands in the unsectioned group after the existing entries
// (base = current max position + 1), relative order preserved. Every
// placement gets exactly one update, so none is lost with its section.
func unsectionedAppends(orphaned []models.PlaylistTrack, base int) []ordering.PositionUpdate {
	updates := make([]ordering.PositionUpdate, 0, len(orphaned))
	for i, p := range orphaned {
		updates = append(updates, ordering.PositionUpdate{ID: p.ID, Position: base + i})
	}
	return updates
}

// uniqueIDs deduplicates while preserving order. Bulk appends may repeat
// a track (duplicate placements are allowed), but the ownership count
// compares against distinct ids.
func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func idsAndPositions(placements []models.PlaylistTrack) ([]uuid.UUID, map[uuid.UUID]int) {
	ids := make([]uuid.UUID, len(placements))
	current := make(map[uuid.UUID]int, len(placements))
	for i, p := range placements {
		ids[i] = p.ID
		current[p.ID] = p.Position
	}
	return ids, current
}

func applyPlacementPositions(tx *gorm.DB, updates []ordering.PositionUpdate) error {
	for _, u := range updates {
		if err := tx.Model(&models.PlaylistTrack{}).
			Where("id = ?", u.ID).
			Update("position", u.Position).Error; err != nil {
			return translateDBErr(err, "placement", u.ID)
		}
	}
	return nil
}

// copySections clones sections under a new playlist (same title, emoji and
// position) and returns the old-to-new id mapping used to translate
// placement section references.
func copySections(sections []models.Section, newPlaylistID uuid.UUID) ([]models.Section, map[uuid.UUID]uuid.UUID) {
	copies := make([]models.Section, 0, len(sections))
	sectionMap := make(map[uuid.UUID]uuid.UUID, len(sections))
	for _, sec := range sections {
		clone := models.Section{
			ID:         uuid.New(),
			PlaylistID: newPlaylistID,
			Title:      sec.Title,
			Emoji:      sec.Emoji,
			Position:   sec.Position,
		}
		sectionMap[sec.ID] = clone.ID
		copies = append(copies, clone)
	}
	return copies, sectionMap
}

// copyPlacements clones placements under a new playlist referencing the
// same tracks, with section references translated through sectionMap. A
// placement whose section is missing from the map lands unsectioned.
func copyPlacements(placements []models.PlaylistTrack, newPlaylistID uuid.UUID, sectionMap map[uuid.UUID]uuid.UUID) []models.PlaylistTrack {
	copies := make([]models.PlaylistTrack, 0, len(placements))
	for _, p := range placements {
		var sectionID *uuid.UUID
		if p.SectionID != nil {
			if mapped, ok := sectionMap[*p.SectionID]; ok {
				sectionID = &mapped
			}
		}
		copies = append(copies, models.PlaylistTrack{
			ID:         uuid.New(),
			PlaylistID: newPlaylistID,
			TrackID:    p.TrackID,
			SectionID:  sectionID,
			Position:   p.Position,
		})
	}
	return copies
}
