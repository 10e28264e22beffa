package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `CREATE TABLE IF NOT EXISTS cache_data (
	request_path  TEXT PRIMARY KEY,
	response_body TEXT NOT NULL,
	requested_at  TEXT NOT NULL,
	last_modified TEXT NOT NULL,
	max_age       TEXT NOT NULL
)`

const postgresSelect = `SELECT response_body, requested_at, last_modified, max_age
FROM cache_data WHERE request_path = $1`

const postgresUpsert = `INSERT INTO cache_data (request_path, response_body, requested_at, last_modified, max_age)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (request_path) DO UPDATE SET
	response_body = EXCLUDED.response_body,
	requested_at  = EXCLUDED.requested_at,
	last_modified = EXCLUDED.last_modified,
	max_age       = EXCLUDED.max_age`

// PostgresStore implements Store on a shared PostgreSQL table, so several
// hosts can share one cache.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects to databaseURL and ensures the table exists.
func OpenPostgres(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	store, err := NewPostgresStore(ctx, pool)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return store, nil
}

// NewPostgresStore uses an existing pool. Close closes the pool.
func NewPostgresStore(ctx context.Context, pool *pgxpool.Pool) (*PostgresStore, error) {
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		return nil, fmt.Errorf("create cache table: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (p *PostgresStore) Get(ctx context.Context, path string) (*Entry, error) {
	var body, requested string
	entry := &Entry{Path: path}

	err := p.pool.QueryRow(ctx, postgresSelect, path).
		Scan(&body, &requested, &entry.LastModified, &entry.MaxAge)
	if errors.Is(err, pgx.ErrNoRows) {
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

func (p *PostgresStore) Put(ctx context.Context, entry *Entry) error {
	_, err := p.pool.Exec(ctx, postgresUpsert,
		entry.Path,
		string(entry.Body),
		entry.RequestedAt.UTC().Format(TimeFormat),
		entry.LastModified,
		entry.MaxAge,
	)
	return err
}

func (p *PostgresStore) Close() error {
	p.pool.Close()
	return nil
}
