package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/shoiron/shoiron/internal/poems"
)

// HomeWarmupJob rebuilds the cached public home payload so visitors rarely
// hit a cold cache.
type HomeWarmupJob struct {
	Poems  *poems.Service
	Logger *slog.Logger
}

// NewHomeWarmupJob wires dependencies for the warmup handler.
func NewHomeWarmupJob(poemsSvc *poems.Service, logger *slog.Logger) *HomeWarmupJob {
	return &HomeWarmupJob{Poems: poemsSvc, Logger: logger}
}

// Handle processes home:warmup tasks.
func (j *HomeWarmupJob) Handle(ctx context.Context, _ *asynq.Task) error {
	if j == nil || j.Poems == nil {
		return errors.New("home warmup: handler not configured")
	}
	runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	start := time.Now()
	if _, err := j.Poems.RefreshHome(runCtx); err != nil {
		j.logger().Error("refresh home payload", slog.Any("error", err))
		return err
	}
	j.logger().Info("refreshed home payload", slog.Duration("duration", time.Since(start)))
	return nil
}

func (j *HomeWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskHomeWarmup))
	}
	return slog.Default().With(slog.String("job", TaskHomeWarmup))
}
