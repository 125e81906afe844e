package history

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/3ll3d00d/jriver-bridge/coordinator"
	"github.com/3ll3d00d/jriver-bridge/mcws"
)

func snapshotWith(playback map[string]mcws.PlaybackInfo) *coordinator.Snapshot {
	return &coordinator.Snapshot{Playback: playback}
}

func TestRecorder_RecordsPlayingZones(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := NewStore(db)
	recorder := NewRecorder(store, nil)

	recorder.OnChange(nil, snapshotWith(map[string]mcws.PlaybackInfo{
		"Player": playbackOf(100, "a", "b", "c"),
		"Den":    {State: mcws.StateStopped, FileKey: -1},
	}))

	active, err := store.Active()
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "Player", active[0].Zone)
}

func TestRecorder_PausedStillCountsAsActive(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := NewStore(db)
	recorder := NewRecorder(store, nil)

	paused := playbackOf(100, "a", "b", "c")
	paused.State = mcws.StatePaused
	recorder.OnChange(nil, snapshotWith(map[string]mcws.PlaybackInfo{"Player": paused}))

	active, err := store.Active()
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestRecorder_StopClosesEntry(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := NewStore(db)
	recorder := NewRecorder(store, nil)

	playing := snapshotWith(map[string]mcws.PlaybackInfo{"Player": playbackOf(100, "a", "b", "c")})
	recorder.OnChange(nil, playing)

	stopped := snapshotWith(map[string]mcws.PlaybackInfo{"Player": {State: mcws.StateStopped, FileKey: -1}})
	recorder.OnChange(playing, stopped)

	active, err := store.Active()
	require.NoError(t, err)
	assert.Len(t, active, 0)

	completed, err := store.History(10)
	require.NoError(t, err)
	assert.Len(t, completed, 1)
}

func TestRecorder_RemovedZoneClosesEntry(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := NewStore(db)
	recorder := NewRecorder(store, nil)

	playing := snapshotWith(map[string]mcws.PlaybackInfo{"Den": playbackOf(200, "d", "e", "f")})
	recorder.OnChange(nil, playing)

	recorder.OnChange(playing, snapshotWith(map[string]mcws.PlaybackInfo{}))

	active, err := store.Active()
	require.NoError(t, err)
	assert.Len(t, active, 0)
}
