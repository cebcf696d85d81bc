package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	jobmetrics "github.com/meridian-erp/meridian-erp/internal/jobs"
)

const glIntegrityTolerance = 0.01

// GLIntegrityJob sweeps posted entries and reports any whose lines no
// longer balance. A hit means corruption outside the posting path; the job
// alerts, it does not repair.
type GLIntegrityJob struct {
	pool     *pgxpool.Pool
	tracking *jobmetrics.Metrics
	logger   *slog.Logger
}

func NewGLIntegrityJob(pool *pgxpool.Pool, tracking *jobmetrics.Metrics, logger *slog.Logger) *GLIntegrityJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &GLIntegrityJob{pool: pool, tracking: tracking, logger: logger}
}

// Handle processes TaskGLIntegrity tasks.
func (j *GLIntegrityJob) Handle(ctx context.Context, t *asynq.Task) error {
	tracker := j.tracking.Track(TaskGLIntegrity)
	return tracker.End(j.run(ctx))
}

func (j *GLIntegrityJob) run(ctx context.Context) error {
	rows, err := j.pool.Query(ctx, `
SELECT je.id, je.reference, COALESCE(SUM(jl.debit), 0), COALESCE(SUM(jl.credit), 0)
FROM journal_entries je
JOIN journal_lines jl ON jl.entry_id = je.id
WHERE je.status = 'POSTED'
GROUP BY je.id, je.reference
HAVING ABS(COALESCE(SUM(jl.debit), 0) - COALESCE(SUM(jl.credit), 0)) > $1`, glIntegrityTolerance)
	if err != nil {
		return err
	}
	defer rows.Close()

	var broken int
	for rows.Next() {
		var (
			id            int64
			reference     string
			debit, credit float64
		)
		if err := rows.Scan(&id, &reference, &debit, &credit); err != nil {
			return err
		}
		broken++
		j.logger.Error("unbalanced posted entry",
			slog.Int64("entry_id", id),
			slog.String("reference", reference),
			slog.Float64("debit", debit),
			slog.Float64("credit", credit))
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if broken > 0 {
		return fmt.Errorf("gl integrity: %d unbalanced posted entries", broken)
	}
	j.logger.Info("gl integrity check passed")
	return nil
}
