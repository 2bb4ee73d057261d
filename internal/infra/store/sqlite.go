package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	_ "github.com/mattn/go-sqlite3"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/playlistd/internal/domain/playlist"
)

const schema = `
CREATE TABLE IF NOT EXISTS playlist_cache (
	id         INTEGER PRIMARY KEY CHECK (id = 1),
	content    TEXT    NOT NULL,
	updated_at INTEGER NOT NULL
)`

// SQLiteStore keeps the playlist in a single-row SQLite table.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens the database at path and creates the cache table.
// The path can be ":memory:" for an in-memory database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}
	// Single connection so ":memory:" databases are shared and writes serialize.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to ping database")
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to create playlist_cache table")
	}

	zlog.Info().Msgf("sqlite playlist store opened: %s", path)
	return &SQLiteStore{db: db}, nil
}

// ReadPlaylist returns the stored playlist, or nil when none was written yet.
func (s *SQLiteStore) ReadPlaylist(ctx context.Context) (playlist.Blob, error) {
	var content string
	err := s.db.QueryRowContext(ctx, `SELECT content FROM playlist_cache WHERE id = 1`).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to query playlist")
	}

	blob, err := playlist.Decode([]byte(content))
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode stored playlist")
	}
	return blob, nil
}

// WritePlaylist replaces the stored playlist.
func (s *SQLiteStore) WritePlaylist(ctx context.Context, content playlist.Blob) error {
	data, err := json.Marshal(content)
	if err != nil {
		return errors.Wrap(err, "failed to encode playlist")
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO playlist_cache (id, content, updated_at) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET content = excluded.content, updated_at = excluded.updated_at`,
		string(data), time.Now().Unix())
	if err != nil {
		return errors.Wrap(err, "failed to store playlist")
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
