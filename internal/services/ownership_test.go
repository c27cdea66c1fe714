package services

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/playdrop/backend/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db, mock
}

func TestGetPlaylistByIDScopedToOwner(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewPlaylistService(db, &config.Config{}, nil)

	playlistID, ownerID := uuid.New(), uuid.New()
	mock.ExpectQuery(`SELECT \* FROM "playlists" WHERE id = \$1 AND owner_id = \$2`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "owner_id", "title"}).
			AddRow(playlistID.String(), ownerID.String(), "Pitch A"))

	playlist, err := svc.GetPlaylistByID(playlistID, ownerID)
	require.NoError(t, err)
	assert.Equal(t, "Pitch A", playlist.Title)
	assert.NoError(t, mock.ExpectationsWereMet(), "lookup must filter on owner_id, not just id")
}

func TestGetPlaylistByIDOtherOperatorReadsNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewPlaylistService(db, &config.Config{}, nil)

	mock.ExpectQuery(`SELECT \* FROM "playlists" WHERE id = \$1 AND owner_id = \$2`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	// Someone else's playlist ID: the owner predicate keeps it invisible.
	_, err := svc.GetPlaylistByID(uuid.New(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOwnedTrackOtherOperatorReadsNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewTrackService(db, &config.Config{}, nil)

	mock.ExpectQuery(`SELECT \* FROM "tracks" WHERE id = \$1 AND owner_id = \$2`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := svc.GetOwnedTrack(uuid.New(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetShareLinkByIDScopedThroughPlaylistOwner(t *testing.T) {
	db, mock := newMockDB(t)
	svc := NewShareService(db, &config.Config{}, nil)

	// Share links carry no owner column; ownership flows through the playlist.
	mock.ExpectQuery(`JOIN playlists ON playlists\.id = share_links\.playlist_id WHERE share_links\.id = \$1 AND playlists\.owner_id = \$2`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := svc.GetShareLinkByID(uuid.New(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTrackInPlaylist(t *testing.T) {
	playlistID, trackID := uuid.New(), uuid.New()

	t.Run("placed track is a member", func(t *testing.T) {
		db, mock := newMockDB(t)
		svc := NewPlaylistService(db, &config.Config{}, nil)

		mock.ExpectQuery(`SELECT count\(\*\) FROM "playlist_tracks" WHERE playlist_id = \$1 AND track_id = \$2`).
			WithArgs(playlistID, trackID).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

		ok, err := svc.TrackInPlaylist(playlistID, trackID)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unplaced track is not", func(t *testing.T) {
		db, mock := newMockDB(t)
		svc := NewPlaylistService(db, &config.Config{}, nil)

		// A valid catalog track that is simply not in this playlist: the
		// share surface must treat it as absent.
		mock.ExpectQuery(`SELECT count\(\*\) FROM "playlist_tracks" WHERE playlist_id = \$1 AND track_id = \$2`).
			WithArgs(playlistID, trackID).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

		ok, err := svc.TrackInPlaylist(playlistID, trackID)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
