// cmd/api/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/briangreenhill/tba/internal/app"
	"github.com/briangreenhill/tba/internal/config"
	"github.com/briangreenhill/tba/internal/jobs"
	"github.com/briangreenhill/tba/internal/server"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	a, err := app.Setup(ctx, cfg, os.Stdout)
	if err != nil {
		log.Fatal().Err(err).Msg("setup")
	}
	defer a.Close()
	logger := a.Log

	opts := server.Options{
		Fetcher: a.Client,
		Metrics: a.Metrics,
		Log:     logger,
	}
	if cfg.RedisAddr != "" {
		e := jobs.NewEnqueuer(cfg.RedisAddr, logger)
		defer e.Close()
		opts.Enqueuer = e
	}
	s := server.New(opts)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdown)
	}()

	logger.Info().Str("addr", srv.Addr).Bool("cache", a.Client.Caching()).Msg("starting mirror")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal().Err(err).Msg("serve")
	}
}
