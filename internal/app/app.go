// Package app wires configuration into a ready client for the commands.
package app

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/briangreenhill/tba/cache"
	"github.com/briangreenhill/tba/internal/config"
	"github.com/briangreenhill/tba/internal/metrics"
	"github.com/briangreenhill/tba/tba"
)

// App holds everything a command needs.
type App struct {
	Config  *config.Config
	Log     zerolog.Logger
	Store   cache.Store      // nil when caching is disabled
	Metrics *metrics.Metrics // nil unless METRICS_ENABLED
	Client  *tba.Client
}

// NewLogger returns a timestamped JSON logger at the configured level.
func NewLogger(w io.Writer, cfg *config.Config) zerolog.Logger {
	return zerolog.New(w).Level(cfg.Level()).With().Timestamp().Logger()
}

// Setup validates cfg, opens the cache store and builds the client.
func Setup(ctx context.Context, cfg *config.Config, logOut io.Writer) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	a := &App{Config: cfg, Log: NewLogger(logOut, cfg)}
	opts := []tba.Option{
		tba.WithBaseURL(cfg.BaseURL),
		tba.WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}),
		tba.WithLogger(a.Log),
		tba.WithForceCache(cfg.Cache.Force),
		tba.WithCacheMultiplier(cfg.Cache.Multiplier),
	}

	if cfg.Cache.Enabled {
		store, err := cache.Open(ctx, cfg.CacheOptions())
		if err != nil {
			return nil, fmt.Errorf("open cache: %w", err)
		}
		a.Store = store
		opts = append(opts, tba.WithStore(store))
		a.Log.Debug().Str("backend", cfg.Cache.Backend).Msg("cache enabled")
	}

	if cfg.MetricsEnabled {
		a.Metrics = metrics.New()
		opts = append(opts, tba.WithRecorder(a.Metrics))
	}

	client, err := tba.New(cfg.AuthKey, opts...)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Client = client
	return a, nil
}

// Close releases the cache store.
func (a *App) Close() error {
	if a.Store == nil {
		return nil
	}
	return a.Store.Close()
}
