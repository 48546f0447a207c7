package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
)

// defaultRetentionDays keeps three months of ledger rows. The ledger only
// dedupes within a single day, so anything older is dead weight.
const defaultRetentionDays = 90

// ViewsRetentionJob deletes view-ledger rows older than the retention
// window. Monthly visit counters are aggregated separately and survive the
// prune.
type ViewsRetentionJob struct {
	Pool   *pgxpool.Pool
	Logger *slog.Logger
	clock  func() time.Time
}

// NewViewsRetentionJob wires dependencies for the retention handler.
func NewViewsRetentionJob(pool *pgxpool.Pool, logger *slog.Logger) *ViewsRetentionJob {
	return &ViewsRetentionJob{
		Pool:   pool,
		Logger: logger,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes views:retention tasks.
func (j *ViewsRetentionJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Pool == nil {
		return errors.New("views retention: handler not configured")
	}
	var payload ViewsRetentionPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.RetentionDays <= 0 {
		payload.RetentionDays = defaultRetentionDays
	}

	cutoff := j.now().AddDate(0, 0, -payload.RetentionDays)
	tag, err := j.Pool.Exec(ctx, `DELETE FROM poem_views WHERE viewed_date < $1`, cutoff)
	if err != nil {
		j.logger().Error("prune view ledger", slog.Any("error", err))
		return err
	}
	j.logger().Info("pruned view ledger",
		slog.Int64("rows", tag.RowsAffected()),
		slog.Int("retention_days", payload.RetentionDays),
	)
	return nil
}

func (j *ViewsRetentionJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskViewsRetention))
	}
	return slog.Default().With(slog.String("job", TaskViewsRetention))
}

func (j *ViewsRetentionJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
