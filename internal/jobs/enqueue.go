package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
)

type taskClient interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
	Close() error
}

// Enqueuer schedules refresh tasks.
type Enqueuer struct {
	client taskClient
	log    zerolog.Logger
}

func NewEnqueuer(redisAddr string, log zerolog.Logger) *Enqueuer {
	return &Enqueuer{client: asynq.NewClient(asynq.RedisClientOpt{Addr: redisAddr}), log: log}
}

// Enqueue schedules a refresh for each path and returns how many were
// queued. Paths already waiting in the queue are skipped, not errors.
func (e *Enqueuer) Enqueue(ctx context.Context, paths ...string) (int, error) {
	queued := 0
	for _, path := range paths {
		task, err := NewRefreshTask(path)
		if err != nil {
			return queued, err
		}
		info, err := e.client.EnqueueContext(ctx, task)
		if errors.Is(err, asynq.ErrDuplicateTask) || errors.Is(err, asynq.ErrTaskIDConflict) {
			e.log.Debug().Str("path", path).Msg("refresh already queued")
			continue
		}
		if err != nil {
			return queued, fmt.Errorf("enqueue %s: %w", path, err)
		}
		e.log.Info().Str("path", path).Str("id", info.ID).Str("queue", info.Queue).Msg("enqueued refresh")
		queued++
	}
	return queued, nil
}

func (e *Enqueuer) Close() error {
	return e.client.Close()
}
