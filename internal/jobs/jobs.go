// Package jobs refreshes cached TBA responses in the background via asynq.
package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/briangreenhill/tba/tba"
)

const (
	TaskRefreshPath = "cache:refresh"
	QueueRefresh    = "refresh"
)

type RefreshPayload struct {
	Path string `json:"path"`
}

// Fetcher is the part of tba.Client the refresh handler needs.
type Fetcher interface {
	FetchRaw(ctx context.Context, path string, opts ...tba.FetchOption) (json.RawMessage, error)
}

// NewRefreshTask builds a refresh task for path. Identical tasks enqueued
// within a minute of each other collapse into one.
func NewRefreshTask(path string) (*asynq.Task, error) {
	payload, err := json.Marshal(RefreshPayload{Path: tba.NormalizePath(path)})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskRefreshPath, payload,
		asynq.Queue(QueueRefresh),
		asynq.MaxRetry(3),
		asynq.Timeout(time.Minute),
		asynq.Unique(time.Minute),
	), nil
}

// NewRefreshHandler re-fetches the task's path, bypassing the cache lookup
// so the entry is rewritten.
func NewRefreshHandler(f Fetcher, log zerolog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var p RefreshPayload
		if err := json.Unmarshal(t.Payload(), &p); err != nil {
			log.Error().Err(err).Msg("bad refresh payload")
			return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
		}
		if p.Path == "" {
			return fmt.Errorf("empty path: %w", asynq.SkipRetry)
		}

		start := time.Now()
		_, err := f.FetchRaw(ctx, p.Path, tba.ForceNew())
		l := log.With().Str("path", p.Path).Dur("duration", time.Since(start)).Logger()

		switch {
		case err == nil, errors.Is(err, tba.ErrEmptyResult):
			l.Info().Msg("refreshed")
			return nil
		case isRetryable(err):
			l.Warn().Err(err).Msg("retryable refresh error")
			return err
		default:
			l.Error().Err(err).Msg("permanent refresh error, dropping task")
			return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
		}
	}
}

// isRetryable reports whether a later attempt could succeed
func isRetryable(err error) bool {
	if errors.Is(err, tba.ErrOffline) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var statusErr *tba.StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode == http.StatusTooManyRequests || statusErr.StatusCode >= 500
	}
	return false
}

// NewServeMux routes refresh tasks to f.
func NewServeMux(f Fetcher, log zerolog.Logger) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.Handle(TaskRefreshPath, NewRefreshHandler(f, log))
	return mux
}

// NewServer returns an asynq server consuming the refresh queue first.
func NewServer(redisAddr string, concurrency int, log zerolog.Logger) *asynq.Server {
	if concurrency <= 0 {
		concurrency = 8
	}
	return asynq.NewServer(asynq.RedisClientOpt{Addr: redisAddr}, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			QueueRefresh: 10,
			"default":    5,
		},
		Logger: NewLogger(log),
	})
}
