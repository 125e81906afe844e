package history

import (
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/3ll3d00d/jriver-bridge/mcws"
	"github.com/3ll3d00d/jriver-bridge/migrations"
)

func setupTestDB(t *testing.T) *sqlx.DB {
	db, err := sqlx.Connect("sqlite", ":memory:")
	require.NoError(t, err)

	goose.SetBaseFS(migrations.GetMigrations())

	err = goose.SetDialect("sqlite3")
	require.NoError(t, err)

	err = goose.Up(db.DB, ".")
	require.NoError(t, err)

	return db
}

func playbackOf(key int, name, artist, album string) mcws.PlaybackInfo {
	return mcws.PlaybackInfo{
		State:      mcws.StatePlaying,
		FileKey:    key,
		Name:       name,
		Artist:     artist,
		Album:      album,
		DurationMS: 180000,
		MediaType:  mcws.MediaTypeAudio,
	}
}

func TestStore_RecordTrack(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := NewStore(db)

	// 1. First observation creates an active entry
	first := playbackOf(100, "Paranoid Android", "Radiohead", "OK Computer")
	require.NoError(t, store.RecordTrack("Player", first))

	active, err := store.Active()
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, EntryID("Player", first), active[0].ID)
	assert.Equal(t, "Player", active[0].Zone)
	assert.Equal(t, 100, active[0].FileKey)
	assert.Equal(t, "Paranoid Android", active[0].Title)
	assert.Equal(t, "Radiohead", active[0].Artist)
	assert.Equal(t, "OK Computer", active[0].Album)
	assert.Equal(t, 180000, active[0].DurationMS)
	assert.True(t, active[0].IsActive)

	// 2. Seeing the same track again does not duplicate it
	require.NoError(t, store.RecordTrack("Player", first))
	active, err = store.Active()
	require.NoError(t, err)
	assert.Len(t, active, 1)

	// 3. A new track closes out the old entry
	second := playbackOf(101, "Karma Police", "Radiohead", "OK Computer")
	require.NoError(t, store.RecordTrack("Player", second))

	active, err = store.Active()
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, EntryID("Player", second), active[0].ID)

	completed, err := store.History(10)
	require.NoError(t, err)
	require.Len(t, completed, 1)
	assert.Equal(t, EntryID("Player", first), completed[0].ID)
	assert.False(t, completed[0].IsActive)
}

func TestStore_ZonesAreIndependent(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := NewStore(db)

	require.NoError(t, store.RecordTrack("Player", playbackOf(100, "a", "b", "c")))
	require.NoError(t, store.RecordTrack("Den", playbackOf(200, "d", "e", "f")))

	active, err := store.Active()
	require.NoError(t, err)
	assert.Len(t, active, 2)

	// Deactivating one zone leaves the other playing.
	require.NoError(t, store.DeactivateZone("Player"))
	active, err = store.Active()
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "Den", active[0].Zone)
}

func TestStore_SameFileInTwoZones(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := NewStore(db)

	pi := playbackOf(100, "a", "b", "c")
	require.NoError(t, store.RecordTrack("Player", pi))
	require.NoError(t, store.RecordTrack("Den", pi))

	assert.NotEqual(t, EntryID("Player", pi), EntryID("Den", pi))

	active, err := store.Active()
	require.NoError(t, err)
	assert.Len(t, active, 2)
}

func TestStore_History(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := NewStore(db)

	require.NoError(t, store.RecordTrack("Player", playbackOf(100, "first", "x", "y")))
	require.NoError(t, store.RecordTrack("Player", playbackOf(101, "second", "x", "y")))
	require.NoError(t, store.RecordTrack("Player", playbackOf(102, "third", "x", "y")))

	completed, err := store.History(10)
	require.NoError(t, err)
	require.Len(t, completed, 2)

	// Most recently finished first
	assert.Equal(t, "second", completed[0].Title)
	assert.Equal(t, "first", completed[1].Title)

	limited, err := store.History(1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	_, err = store.History(0)
	assert.Error(t, err)

	_, err = store.History(-1)
	assert.Error(t, err)
}

func TestStore_Prune(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := NewStore(db)

	require.NoError(t, store.RecordTrack("Player", playbackOf(100, "old", "x", "y")))
	require.NoError(t, store.RecordTrack("Player", playbackOf(101, "current", "x", "y")))

	// Nothing is old enough yet.
	pruned, err := store.Prune(time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(0), pruned)

	// A future cutoff removes the completed entry but never the active
	// one.
	pruned, err = store.Prune(time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), pruned)

	active, err := store.Active()
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "current", active[0].Title)
}

func TestEntryID_Deterministic(t *testing.T) {
	pi := playbackOf(100, "a", "b", "c")
	assert.Equal(t, EntryID("Player", pi), EntryID("Player", pi))
	assert.NotEqual(t, EntryID("Player", pi), EntryID("Player", playbackOf(101, "a", "b", "c")))
}
