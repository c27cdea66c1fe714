package services

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/playdrop/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeActivity(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	shareID := uuid.New()
	trackID := uuid.New()

	views := []models.AnalyticsEvent{
		{ShareLinkID: shareID, ListenerEmail: "a@b.co", CreatedAt: base.Add(3 * time.Minute)},
		{ShareLinkID: shareID, CreatedAt: base},
	}
	plays := []models.PlayEvent{
		{ShareLinkID: shareID, TrackID: trackID, CreatedAt: base.Add(5 * time.Minute)},
	}
	downloads := []models.DownloadEvent{
		{ShareLinkID: shareID, TrackID: trackID, CreatedAt: base.Add(1 * time.Minute)},
	}

	items := mergeActivity(views, plays, downloads, 10)
	require.Len(t, items, 4)

	assert.Equal(t, "play", items[0].Kind)
	assert.Equal(t, "view", items[1].Kind)
	assert.Equal(t, "a@b.co", items[1].ListenerEmail)
	assert.Equal(t, "download", items[2].Kind)
	assert.Equal(t, "view", items[3].Kind)

	for i := 1; i < len(items); i++ {
		assert.False(t, items[i].OccurredAt.After(items[i-1].OccurredAt), "feed must be newest first")
	}
}

func TestMergeActivityHonorsLimit(t *testing.T) {
	base := time.Now()
	var views []models.AnalyticsEvent
	for i := 0; i < 10; i++ {
		views = append(views, models.AnalyticsEvent{CreatedAt: base.Add(time.Duration(i) * time.Second)})
	}

	items := mergeActivity(views, nil, nil, 3)
	require.Len(t, items, 3)
	assert.Equal(t, base.Add(9*time.Second), items[0].OccurredAt, "cap keeps the newest entries")
}

func TestMergeActivityEmpty(t *testing.T) {
	items := mergeActivity(nil, nil, nil, 20)
	assert.Empty(t, items)
}
