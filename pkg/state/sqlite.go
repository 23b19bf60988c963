package state

import (
	"context"
	"database/sql"
	"time"

	_ "modernc.org/sqlite" // pure-Go sqlite driver

	"github.com/tideflow-io/tideflow/pkg/errors"
)

// cursorFormat keeps microsecond precision so a truncated cursor
// round-trips exactly through the store.
const cursorFormat = "2006-01-02T15:04:05.000000Z07:00"

// SQLiteStore is the durable Store implementation. Bookmarks live in a
// single table keyed by stream name; every Commit is one synchronous
// transaction.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (and if needed creates) the bookmark database
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeState, "failed to open state database")
	}

	// Bookmark writes are tiny and rare relative to fetches; trade write
	// latency for durability on every commit.
	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = FULL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, errors.Wrap(err, errors.ErrorTypeState, "failed to configure state database")
		}
	}

	const schema = `
CREATE TABLE IF NOT EXISTS bookmarks (
	stream     TEXT PRIMARY KEY,
	cursor     TEXT NOT NULL,
	since_id   INTEGER,
	updated_at TEXT NOT NULL
)`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, errors.ErrorTypeState, "failed to create bookmarks table")
	}

	return &SQLiteStore{db: db}, nil
}

// Cursor implements Store
func (s *SQLiteStore) Cursor(ctx context.Context, stream string) (time.Time, bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT cursor FROM bookmarks WHERE stream = ?`, stream).Scan(&raw)
	if err == sql.ErrNoRows {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, errors.Wrap(err, errors.ErrorTypeState, "failed to read cursor")
	}

	cursor, err := time.Parse(cursorFormat, raw)
	if err != nil {
		return time.Time{}, false, errors.Wrap(err, errors.ErrorTypeState, "corrupt cursor value")
	}
	return cursor.UTC(), true, nil
}

// SinceID implements Store
func (s *SQLiteStore) SinceID(ctx context.Context, stream string) (int64, bool, error) {
	var id sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT since_id FROM bookmarks WHERE stream = ?`, stream).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, errors.Wrap(err, errors.ErrorTypeState, "failed to read since_id")
	}
	if !id.Valid {
		return 0, false, nil
	}
	return id.Int64, true, nil
}

// Commit implements Store
func (s *SQLiteStore) Commit(ctx context.Context, stream string, cursor time.Time, sinceID *int64) error {
	var id interface{}
	if sinceID != nil {
		id = *sinceID
	}

	_, err := s.db.ExecContext(ctx, `
INSERT INTO bookmarks (stream, cursor, since_id, updated_at)
VALUES (?, ?, ?, ?)
ON CONFLICT(stream) DO UPDATE SET
	cursor     = excluded.cursor,
	since_id   = excluded.since_id,
	updated_at = excluded.updated_at`,
		stream,
		cursor.UTC().Format(cursorFormat),
		id,
		time.Now().UTC().Format(cursorFormat),
	)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeState, "failed to commit bookmark")
	}
	return nil
}

// Close implements Store
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
