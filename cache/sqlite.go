package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteFile is the database file name created inside the cache directory.
const SQLiteFile = "cache.db"

const sqliteSchema = `CREATE TABLE IF NOT EXISTS cache_data (
	request_path  TEXT PRIMARY KEY NOT NULL,
	response_body TEXT NOT NULL,
	requested_at  TEXT NOT NULL,
	last_modified TEXT NOT NULL,
	max_age       TEXT NOT NULL
)`

const sqliteSelect = `SELECT response_body, requested_at, last_modified, max_age
FROM cache_data WHERE request_path = ?`

const sqliteUpsert = `INSERT INTO cache_data (request_path, response_body, requested_at, last_modified, max_age)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(request_path) DO UPDATE SET
	response_body = excluded.response_body,
	requested_at  = excluded.requested_at,
	last_modified = excluded.last_modified,
	max_age       = excluded.max_age`

// SQLiteStore implements Store on a single SQLite table
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the cache database inside dir.
func NewSQLiteStore(dir string) (*SQLiteStore, error) {
	return OpenSQLite(filepath.Join(ResolveDir(dir), SQLiteFile))
}

// OpenSQLite opens the cache database at path and ensures the table exists.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	if path == ":memory:" {
		// every connection to :memory: is a separate database
		db.SetMaxOpenConns(1)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite %s: %w", pragma, err)
		}
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create cache table: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, path string) (*Entry, error) {
	var body, requested string
	entry := &Entry{Path: path}

	err := s.db.QueryRowContext(ctx, sqliteSelect, path).
		Scan(&body, &requested, &entry.LastModified, &entry.MaxAge)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if entry.RequestedAt, err = time.Parse(TimeFormat, requested); err != nil {
		return nil, fmt.Errorf("requested_at for %s: %w", path, err)
	}
	entry.Body = []byte(body)
	return entry, nil
}

func (s *SQLiteStore) Put(ctx context.Context, entry *Entry) error {
	_, err := s.db.ExecContext(ctx, sqliteUpsert,
		entry.Path,
		string(entry.Body),
		entry.RequestedAt.UTC().Format(TimeFormat),
		entry.LastModified,
		entry.MaxAge,
	)
	return err
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
