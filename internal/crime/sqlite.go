package crime

import (
	"context"
	"database/sql"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL
// mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS crime_events (
	id          TEXT PRIMARY KEY,
	lat         REAL NOT NULL,
	lon         REAL NOT NULL,
	weight      REAL NOT NULL DEFAULT 1,
	bucket      TEXT NOT NULL DEFAULT '',
	offense     TEXT NOT NULL DEFAULT '',
	occurred_at DATETIME,
	loaded_at   DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_crime_events_bucket ON crime_events(bucket);

CREATE TABLE IF NOT EXISTS geocode_cache (
	address_hash TEXT PRIMARY KEY,
	latitude     REAL NOT NULL,
	longitude    REAL NOT NULL,
	matched      INTEGER NOT NULL,
	source       TEXT NOT NULL DEFAULT '',
	cached_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// PutRecords upserts records by id inside one transaction.
func (s *SQLiteStore) PutRecords(ctx context.Context, records []Record) (int64, error) {
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO crime_events (id, lat, lon, weight, bucket, offense, occurred_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			lat = excluded.lat,
			lon = excluded.lon,
			weight = excluded.weight,
			bucket = excluded.bucket,
			offense = excluded.offense,
			occurred_at = excluded.occurred_at`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare insert")
	}
	defer stmt.Close()

	var n int64
	for _, r := range records {
		var occurred any
		if !r.OccurredAt.IsZero() {
			occurred = r.OccurredAt.UTC().Format(time.RFC3339)
		}
		if _, err := stmt.ExecContext(ctx, r.ID, r.Lat, r.Lon, r.Weight, r.Bucket, r.Offense, occurred); err != nil {
			return n, eris.Wrapf(err, "sqlite: insert event %s", r.ID)
		}
		n++
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit")
	}
	return n, nil
}

// Records returns stored events, filtered to one bucket when non-empty.
func (s *SQLiteStore) Records(ctx context.Context, bucket string) ([]Record, error) {
	query := `SELECT id, lat, lon, weight, bucket, offense, occurred_at FROM crime_events`
	args := []any{}
	if bucket != "" {
		query += ` WHERE bucket = ?`
		args = append(args, bucket)
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query events")
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		var occurred sql.NullString
		if err := rows.Scan(&r.ID, &r.Lat, &r.Lon, &r.Weight, &r.Bucket, &r.Offense, &occurred); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan event")
		}
		if occurred.Valid {
			if ts, perr := time.Parse(time.RFC3339, occurred.String); perr == nil {
				r.OccurredAt = ts
			}
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate events")
	}
	return records, nil
}

func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM crime_events`).Scan(&n)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: count events")
	}
	return n, nil
}

// DB exposes the underlying handle so the geocode cache can share the file.
func (s *SQLiteStore) DB() *sql.DB { return s.db }
