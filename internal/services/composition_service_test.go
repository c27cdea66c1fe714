package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/playdrop/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sectionPtr(id uuid.UUID) *uuid.UUID { return &id }

func TestCopySections(t *testing.T) {
	playlistID := uuid.New()
	sections := []models.Section{
		{ID: uuid.New(), PlaylistID: playlistID, Title: "Opening", Emoji: "🎬", Position: 0},
		{ID: uuid.New(), PlaylistID: playlistID, Title: "Montage", Position: 1},
	}

	newPlaylistID := uuid.New()
	copies, sectionMap := copySections(sections, newPlaylistID)

	require.Len(t, copies, 2)
	require.Len(t, sectionMap, 2)

	for i, clone := range copies {
		assert.Equal(t, newPlaylistID, clone.PlaylistID)
		assert.Equal(t, sections[i].Title, clone.Title)
		assert.Equal(t, sections[i].Emoji, clone.Emoji)
		assert.Equal(t, sections[i].Position, clone.Position)
		assert.NotEqual(t, sections[i].ID, clone.ID, "clone must get a fresh identifier")
		assert.Equal(t, clone.ID, sectionMap[sections[i].ID])
	}
}

func TestCopyPlacementsTranslatesSections(t *testing.T) {
	playlistID := uuid.New()
	oldSection := uuid.New()
	newSection := uuid.New()
	trackA, trackB := uuid.New(), uuid.New()

	placements := []models.PlaylistTrack{
		{ID: uuid.New(), PlaylistID: playlistID, TrackID: trackA, SectionID: sectionPtr(oldSection), Position: 0},
		{ID: uuid.New(), PlaylistID: playlistID, TrackID: trackB, SectionID: nil, Position: 3},
	}

	newPlaylistID := uuid.New()
	copies := copyPlacements(placements, newPlaylistID, map[uuid.UUID]uuid.UUID{oldSection: newSection})

	require.Len(t, copies, 2)

	assert.Equal(t, newPlaylistID, copies[0].PlaylistID)
	assert.Equal(t, trackA, copies[0].TrackID, "copies reference the same underlying track")
	require.NotNil(t, copies[0].SectionID)
	assert.Equal(t, newSection, *copies[0].SectionID)
	assert.Equal(t, 0, copies[0].Position)

	assert.Nil(t, copies[1].SectionID, "unsectioned placements stay unsectioned")
	assert.Equal(t, 3, copies[1].Position, "positions are mirrored as-is, gaps included")

	assert.NotEqual(t, placements[0].ID, copies[0].ID)
	assert.NotEqual(t, placements[1].ID, copies[1].ID)
}

func TestCopyPlacementsOrphanedSectionLandsUnsectioned(t *testing.T) {
	placements := []models.PlaylistTrack{
		{ID: uuid.New(), TrackID: uuid.New(), SectionID: sectionPtr(uuid.New()), Position: 0},
	}

	copies := copyPlacements(placements, uuid.New(), map[uuid.UUID]uuid.UUID{})
	require.Len(t, copies, 1)
	assert.Nil(t, copies[0].SectionID)
}

func TestSectionIDsEqual(t *testing.T) {
	a, b := uuid.New(), uuid.New()

	assert.True(t, sectionIDsEqual(nil, nil))
	assert.True(t, sectionIDsEqual(&a, &a))
	other := a
	assert.True(t, sectionIDsEqual(&a, &other), "compares by value, not pointer")
	assert.False(t, sectionIDsEqual(&a, &b))
	assert.False(t, sectionIDsEqual(&a, nil))
	assert.False(t, sectionIDsEqual(nil, &b))
}

func TestIdsAndPositions(t *testing.T) {
	placements := []models.PlaylistTrack{
		{ID: uuid.New(), Position: 0},
		{ID: uuid.New(), Position: 4},
	}

	ids, current := idsAndPositions(placements)
	require.Len(t, ids, 2)
	assert.Equal(t, placements[0].ID, ids[0])
	assert.Equal(t, 0, current[placements[0].ID])
	assert.Equal(t, 4, current[placements[1].ID])
}

func TestUnsectionedAppendsKeepsEveryPlacement(t *testing.T) {
	sectionID := uuid.New()
	orphaned := []models.PlaylistTrack{
		{ID: uuid.New(), SectionID: sectionPtr(sectionID), Position: 0},
		{ID: uuid.New(), SectionID: sectionPtr(sectionID), Position: 2},
		{ID: uuid.New(), SectionID: sectionPtr(sectionID), Position: 5},
	}

	updates := unsectionedAppends(orphaned, 3)

	// One update per placement: removing a section never drops a track.
	require.Len(t, updates, len(orphaned))
	for i, u := range updates {
		assert.Equal(t, orphaned[i].ID, u.ID, "relative order preserved")
		assert.Equal(t, 3+i, u.Position, "appended after the existing unsectioned entries")
	}
}

func TestUnsectionedAppendsEmptySection(t *testing.T) {
	assert.Empty(t, unsectionedAppends(nil, 7))
}

func TestUniqueIDs(t *testing.T) {
	a, b := uuid.New(), uuid.New()

	assert.Equal(t, []uuid.UUID{a, b}, uniqueIDs([]uuid.UUID{a, b, a, b, a}))
	assert.Empty(t, uniqueIDs(nil))
}

func TestPlaylistCascadeCoversAllDependents(t *testing.T) {
	// Every table hanging off a share link is cleared before the links,
	// and every playlist-scoped table before the playlist row.
	require.Len(t, shareDependents, 4)
	assert.IsType(t, &models.AnalyticsEvent{}, shareDependents[0].model)
	assert.IsType(t, &models.PlayEvent{}, shareDependents[1].model)
	assert.IsType(t, &models.DownloadEvent{}, shareDependents[2].model)
	assert.IsType(t, &models.ShareRecipient{}, shareDependents[3].model)

	require.Len(t, playlistDependents, 2)
	assert.IsType(t, &models.PlaylistTrack{}, playlistDependents[0].model)
	assert.IsType(t, &models.Section{}, playlistDependents[1].model)
}
