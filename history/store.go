// Package history records what each zone played to sqlite so the
// bridge can answer "what was playing earlier" after the server has
// moved on.
package history

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/jmoiron/sqlx"

	"github.com/3ll3d00d/jriver-bridge/mcws"
)

// Entry is one observed playback of a library file in a zone. A file
// played twice yields two entries; at most one entry per zone is
// active at a time.
type Entry struct {
	PK         int       `db:"pk" json:"-"`
	ID         string    `db:"id" json:"id"`
	Zone       string    `db:"zone" json:"zone"`
	FileKey    int       `db:"file_key" json:"file_key"`
	Title      string    `db:"title" json:"title"`
	Artist     string    `db:"artist" json:"artist"`
	Album      string    `db:"album" json:"album"`
	MediaType  string    `db:"media_type" json:"media_type"`
	DurationMS int       `db:"duration_ms" json:"duration_ms"`
	StartedAt  time.Time `db:"started_at" json:"started_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
	IsActive   bool      `db:"is_active" json:"is_active"`
}

// EntryID derives a deterministic identifier for a playback of the
// given file in the given zone.
func EntryID(zone string, pi mcws.PlaybackInfo) string {
	digest := xxhash.Sum64String(fmt.Sprintf("%s-%d-%s-%s-%s", zone, pi.FileKey, pi.Name, pi.Artist, pi.Album))
	return fmt.Sprintf("%s:%d:%d", zone, pi.FileKey, digest)
}

// Store persists playback history.
type Store struct {
	db *sqlx.DB
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// RecordTrack marks the given playback as the zone's active entry,
// deactivating whatever was active before. Seeing the same track again
// only bumps the row's timestamp.
func (s *Store) RecordTrack(zone string, pi mcws.PlaybackInfo) error {
	tx, err := s.db.Beginx()
	if err != nil {
		return err
	}
	var committed bool
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	id := EntryID(zone, pi)

	var existing Entry
	err = tx.Get(&existing, `
	  SELECT pk, id, zone, file_key
	  FROM playback_history
	  WHERE zone = ? AND is_active = TRUE
	  ORDER BY updated_at DESC LIMIT 1`, zone)
	if err == nil {
		if existing.ID == id {
			if _, err := tx.Exec(`
			  UPDATE playback_history SET updated_at = ? WHERE pk = ?`, now, existing.PK); err != nil {
				return err
			}
			if err := tx.Commit(); err != nil {
				return err
			}
			committed = true
			return nil
		}
		if _, err := tx.Exec(`
		  UPDATE playback_history
		  SET is_active = FALSE, updated_at = ?
		  WHERE pk = ?`, now, existing.PK); err != nil {
			return fmt.Errorf("failed to deactivate old entry: %w", err)
		}
	} else if !errors.Is(err, sql.ErrNoRows) {
		return err
	}

	if _, err := tx.Exec(`
	  INSERT INTO playback_history
	  (id, zone, file_key, title, artist, album, media_type, duration_ms, started_at, updated_at, is_active)
	  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, TRUE)`,
		id, zone, pi.FileKey, pi.Name, pi.Artist, pi.Album, string(pi.MediaType), pi.DurationMS, now, now); err != nil {
		return fmt.Errorf("failed to insert new entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// DeactivateZone closes out the zone's active entry, if any.
func (s *Store) DeactivateZone(zone string) error {
	_, err := s.db.Exec(`
	  UPDATE playback_history
	  SET is_active = FALSE, updated_at = ?
	  WHERE zone = ? AND is_active = TRUE`, time.Now().UTC(), zone)
	return err
}

// Active returns the active entry per zone, most recently updated
// first.
func (s *Store) Active() ([]Entry, error) {
	var results []Entry
	err := s.db.Select(&results, `
	  SELECT pk, id, zone, file_key, title, artist, album, media_type, duration_ms, started_at, updated_at, is_active
	  FROM playback_history
	  WHERE is_active = TRUE
	  ORDER BY updated_at DESC`)
	return results, err
}

// History returns completed entries, most recent first.
func (s *Store) History(limit int) ([]Entry, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("must request at least one historical item")
	}
	var results []Entry
	err := s.db.Select(&results, `
	  SELECT pk, id, zone, file_key, title, artist, album, media_type, duration_ms, started_at, updated_at, is_active
	  FROM playback_history
	  WHERE is_active = FALSE
	  ORDER BY updated_at DESC
	  LIMIT ?`, limit)
	return results, err
}

// Prune deletes completed entries last touched before the cutoff and
// returns how many were removed.
func (s *Store) Prune(olderThan time.Time) (int64, error) {
	res, err := s.db.Exec(`
	  DELETE FROM playback_history
	  WHERE is_active = FALSE AND updated_at < ?`, olderThan.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
