package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/meridian-erp/meridian-erp/internal/jobs"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

const idempotencyRetention = 30 * 24 * time.Hour

// IdempotencyCleanupJob prunes posting keys older than the retention window.
// Duplicate references inside the window stay rejected.
type IdempotencyCleanupJob struct {
	store    *shared.IdempotencyStore
	tracking *jobmetrics.Metrics
	logger   *slog.Logger
}

func NewIdempotencyCleanupJob(store *shared.IdempotencyStore, tracking *jobmetrics.Metrics, logger *slog.Logger) *IdempotencyCleanupJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &IdempotencyCleanupJob{store: store, tracking: tracking, logger: logger}
}

// Handle processes TaskIdempotencyCleanup tasks.
func (j *IdempotencyCleanupJob) Handle(ctx context.Context, t *asynq.Task) error {
	tracker := j.tracking.Track(TaskIdempotencyCleanup)
	return tracker.End(j.run(ctx))
}

func (j *IdempotencyCleanupJob) run(ctx context.Context) error {
	if err := j.store.Cleanup(ctx, idempotencyRetention); err != nil {
		return err
	}
	j.logger.Info("idempotency keys pruned")
	return nil
}
