package main

import (
	"context"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/briangreenhill/tba/internal/app"
	"github.com/briangreenhill/tba/internal/config"
	"github.com/briangreenhill/tba/internal/jobs"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	if cfg.RedisAddr == "" {
		log.Fatal().Msg("TBA_REDIS_ADDR is required for the worker")
	}

	a, err := app.Setup(context.Background(), cfg, os.Stdout)
	if err != nil {
		log.Fatal().Err(err).Msg("setup")
	}
	defer a.Close()

	srv := jobs.NewServer(cfg.RedisAddr, 8, a.Log)
	mux := jobs.NewServeMux(a.Client, a.Log)

	a.Log.Info().Str("redis", cfg.RedisAddr).Bool("cache", a.Client.Caching()).Msg("worker running")
	if err := srv.Run(mux); err != nil {
		a.Log.Fatal().Err(err).Msg("worker stopped")
	}
}
