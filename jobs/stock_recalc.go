package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/meridian-erp/meridian-erp/internal/jobs"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// StockRecalculator is the inventory surface the job needs.
type StockRecalculator interface {
	Recalculate(ctx context.Context, productID int64) error
	RecalculateAll(ctx context.Context) (int, error)
}

// RecalcMetrics counts completed replays.
type RecalcMetrics interface {
	ObserveRecalculation()
}

// StockRecalcJob replays movement histories in the background. The replay is
// re-entrant, so overlapping runs converge; the lock just avoids wasted work
// on the all-products sweep.
type StockRecalcJob struct {
	stock    StockRecalculator
	locks    *shared.DistLock
	metrics  RecalcMetrics
	tracking *jobmetrics.Metrics
	logger   *slog.Logger
}

func NewStockRecalcJob(stock StockRecalculator, locks *shared.DistLock, metrics RecalcMetrics, tracking *jobmetrics.Metrics, logger *slog.Logger) *StockRecalcJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &StockRecalcJob{stock: stock, locks: locks, metrics: metrics, tracking: tracking, logger: logger}
}

// Handle processes TaskStockRecalculation tasks.
func (j *StockRecalcJob) Handle(ctx context.Context, t *asynq.Task) error {
	tracker := j.tracking.Track(TaskStockRecalculation)
	return tracker.End(j.run(ctx, t))
}

func (j *StockRecalcJob) run(ctx context.Context, t *asynq.Task) error {
	var payload StockRecalculationPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	started := time.Now()
	if payload.ProductID != nil {
		pid := *payload.ProductID
		release, err := j.locks.Acquire(ctx, shared.RecalcLockKey(pid), time.Minute)
		if err != nil {
			if errors.Is(err, shared.ErrLockHeld) {
				j.logger.Info("stock recalculation already running", slog.Int64("product_id", pid))
				return nil
			}
			return err
		}
		defer release()
		if err := j.stock.Recalculate(ctx, pid); err != nil {
			return err
		}
		if j.metrics != nil {
			j.metrics.ObserveRecalculation()
		}
		j.logger.Info("stock recalculated",
			slog.Int64("product_id", pid),
			slog.Duration("took", time.Since(started)))
		return nil
	}

	n, err := j.stock.RecalculateAll(ctx)
	if err != nil {
		return err
	}
	if j.metrics != nil {
		for i := 0; i < n; i++ {
			j.metrics.ObserveRecalculation()
		}
	}
	j.logger.Info("stock recalculated",
		slog.Int("products", n),
		slog.Duration("took", time.Since(started)))
	return nil
}
