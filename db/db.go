package db

import (
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// Initialize opens the sqlite database backing playback history.
func Initialize(path string) (*sqlx.DB, error) {
	return sqlx.Connect("sqlite", path)
}
