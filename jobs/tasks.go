package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskStockRecalculation replays product movement histories and rewrites
	// the derived stock balances.
	TaskStockRecalculation = "inventory:recalculate"
	// TaskGLIntegrity verifies that every posted entry still balances.
	TaskGLIntegrity = "ledger:integrity"
	// TaskIdempotencyCleanup prunes old posting keys.
	TaskIdempotencyCleanup = "shared:idempotency_cleanup"
)

// StockRecalculationPayload selects one product, or all when ProductID is nil.
type StockRecalculationPayload struct {
	ProductID    *int64    `json:"product_id,omitempty"`
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewStockRecalculationTask constructs an Asynq task for stock recalculation.
func NewStockRecalculationTask(productID *int64, at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(StockRecalculationPayload{ProductID: productID, ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskStockRecalculation, body, asynq.Queue(QueueDefault)), nil
}

// NewGLIntegrityTask constructs the ledger integrity task.
func NewGLIntegrityTask(at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(map[string]any{"scheduled_for": at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskGLIntegrity, body, asynq.Queue(QueueDefault)), nil
}

// NewIdempotencyCleanupTask constructs the key pruning task.
func NewIdempotencyCleanupTask() *asynq.Task {
	return asynq.NewTask(TaskIdempotencyCleanup, nil, asynq.Queue(QueueDefault))
}
