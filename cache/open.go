package cache

import (
	"context"
	"fmt"
)

// Backend names accepted by Open.
const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendFile     = "file"
	BackendMemory   = "memory"
)

// Options selects and locates a backend.
type Options struct {
	Backend     string
	Dir         string
	DatabaseURL string
	RedisAddr   string
}

// Open creates the store named by opts.Backend. An empty backend means
// SQLite.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Backend {
	case "", BackendSQLite:
		return NewSQLiteStore(opts.Dir)
	case BackendPostgres:
		if opts.DatabaseURL == "" {
			return nil, fmt.Errorf("postgres cache backend needs a database URL")
		}
		return OpenPostgres(ctx, opts.DatabaseURL)
	case BackendRedis:
		if opts.RedisAddr == "" {
			return nil, fmt.Errorf("redis cache backend needs an address")
		}
		return OpenRedis(ctx, opts.RedisAddr)
	case BackendFile:
		return NewFileStore(opts.Dir)
	case BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", opts.Backend)
	}
}
