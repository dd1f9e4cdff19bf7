package crime

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/safewalk/safewalk-cli/internal/db"
)

// PostgresStore implements Store on top of a pgx pool.
type PostgresStore struct {
	pool db.Pool
}

// NewPostgres connects to PostgreSQL with the given connection string.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresWithPool wraps an existing pool, used by tests with pgxmock.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS crime_events (
	id          TEXT PRIMARY KEY,
	lat         DOUBLE PRECISION NOT NULL,
	lon         DOUBLE PRECISION NOT NULL,
	weight      DOUBLE PRECISION NOT NULL DEFAULT 1,
	bucket      TEXT NOT NULL DEFAULT '',
	offense     TEXT NOT NULL DEFAULT '',
	occurred_at TIMESTAMPTZ,
	loaded_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_crime_events_bucket ON crime_events(bucket);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

var crimeEventColumns = []string{"id", "lat", "lon", "weight", "bucket", "offense", "occurred_at"}

// PutRecords bulk-loads records keyed by id. An empty table takes the plain
// COPY path; otherwise a staging-table upsert keeps re-imports idempotent.
func (s *PostgresStore) PutRecords(ctx context.Context, records []Record) (int64, error) {
	if len(records) == 0 {
		return 0, nil
	}

	rows := make([][]any, 0, len(records))
	for _, r := range records {
		var occurred any
		if !r.OccurredAt.IsZero() {
			occurred = r.OccurredAt.UTC()
		}
		rows = append(rows, []any{r.ID, r.Lat, r.Lon, r.Weight, r.Bucket, r.Offense, occurred})
	}

	existing, err := s.Count(ctx)
	if err != nil {
		return 0, err
	}
	if existing == 0 {
		n, err := db.CopyFrom(ctx, s.pool, "crime_events", crimeEventColumns, rows)
		if err != nil {
			return 0, eris.Wrap(err, "postgres: copy events")
		}
		return n, nil
	}

	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "crime_events",
		Columns:      crimeEventColumns,
		ConflictKeys: []string{"id"},
	}, rows)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: upsert events")
	}
	return n, nil
}

func (s *PostgresStore) Records(ctx context.Context, bucket string) ([]Record, error) {
	query := `SELECT id, lat, lon, weight, bucket, offense, occurred_at FROM crime_events`
	args := []any{}
	if bucket != "" {
		query += ` WHERE bucket = $1`
		args = append(args, bucket)
	}
	query += ` ORDER BY id`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query events")
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		var occurred *time.Time
		if err := rows.Scan(&r.ID, &r.Lat, &r.Lon, &r.Weight, &r.Bucket, &r.Offense, &occurred); err != nil {
			return nil, eris.Wrap(err, "postgres: scan event")
		}
		if occurred != nil {
			r.OccurredAt = *occurred
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate events")
	}
	return records, nil
}

func (s *PostgresStore) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM crime_events`).Scan(&n)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: count events")
	}
	return n, nil
}
