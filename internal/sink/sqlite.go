package sink

import (
	"context"
	"fmt"
	"time"

	"github.com/adiwardana/cabtrack/internal/pkg/models"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS cab_locations (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	cab_id      TEXT NOT NULL,
	latitude    REAL NOT NULL,
	longitude   REAL NOT NULL,
	observed_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_cab_locations_cab_id ON cab_locations (cab_id, observed_at);
`

// SQLiteSink appends samples to an on-device database for offline replay
type SQLiteSink struct {
	db *sqlx.DB
}

type locationRow struct {
	CabID      string    `db:"cab_id"`
	Latitude   float64   `db:"latitude"`
	Longitude  float64   `db:"longitude"`
	ObservedAt time.Time `db:"observed_at"`
}

// NewSQLiteSink opens (and if needed initializes) the database at the
// configured path
func NewSQLiteSink(cfg models.SQLiteConfig) (*SQLiteSink, error) {
	db, err := sqlx.Connect("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite sink: %w", err)
	}
	// modernc sqlite serializes writes; a single connection avoids
	// SQLITE_BUSY under concurrent stores.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize sqlite sink: %w", err)
	}
	return &SQLiteSink{db: db}, nil
}

// Store appends one sample
func (s *SQLiteSink) Store(ctx context.Context, cabID string, pos models.Coordinate, observedAt time.Time) error {
	row := locationRow{
		CabID:      cabID,
		Latitude:   pos.Latitude,
		Longitude:  pos.Longitude,
		ObservedAt: observedAt,
	}
	_, err := s.db.NamedExecContext(ctx,
		`INSERT INTO cab_locations (cab_id, latitude, longitude, observed_at)
		 VALUES (:cab_id, :latitude, :longitude, :observed_at)`, row)
	if err != nil {
		return fmt.Errorf("store location: %w", err)
	}
	return nil
}

// Close closes the database
func (s *SQLiteSink) Close() error {
	return s.db.Close()
}
