package inventory

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-erp/internal/platform/db"
)

// Repository is the pgx-backed RepositoryPort.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) WithTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

func (r *Repository) ListBalances(ctx context.Context, productID int64) ([]Balance, error) {
	rows, err := r.pool.Query(ctx, `
SELECT product_id, warehouse_id, qty, avg_cost, updated_at
FROM stock_balances
WHERE product_id = $1
ORDER BY warehouse_id`, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Balance
	for rows.Next() {
		var b Balance
		if err := rows.Scan(&b.ProductID, &b.WarehouseID, &b.Qty, &b.AvgCost, &b.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *Repository) ListProductIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT product_id FROM stock_movements ORDER BY product_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (r *Repository) ListCardMovements(ctx context.Context, filter StockCardFilter) ([]Movement, error) {
	// The running balance needs every movement from the beginning, so only
	// the upper bound goes into the query. The caller trims by From after
	// folding.
	query := `
SELECT id, product_id, warehouse_id, movement_type, qty, unit_cost, source_ref, occurred_at, created_at
FROM stock_movements
WHERE product_id = $1 AND warehouse_id = $2`
	args := []any{filter.ProductID, filter.WarehouseID}
	if !filter.To.IsZero() {
		query += ` AND occurred_at <= $3`
		args = append(args, filter.To)
	}
	query += ` ORDER BY occurred_at, id`
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMovements(rows)
}

type txRepository struct {
	tx pgx.Tx
}

func (t *txRepository) GetBalanceForUpdate(ctx context.Context, productID, warehouseID int64) (Balance, error) {
	var b Balance
	err := t.tx.QueryRow(ctx, `
SELECT product_id, warehouse_id, qty, avg_cost, updated_at
FROM stock_balances
WHERE product_id = $1 AND warehouse_id = $2
FOR UPDATE`, productID, warehouseID).
		Scan(&b.ProductID, &b.WarehouseID, &b.Qty, &b.AvgCost, &b.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Balance{ProductID: productID, WarehouseID: warehouseID}, nil
	}
	if err != nil {
		return Balance{}, err
	}
	return b, nil
}

func (t *txRepository) UpsertBalance(ctx context.Context, bal Balance) error {
	_, err := t.tx.Exec(ctx, `
INSERT INTO stock_balances (product_id, warehouse_id, qty, avg_cost, updated_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (product_id, warehouse_id)
DO UPDATE SET qty = EXCLUDED.qty, avg_cost = EXCLUDED.avg_cost, updated_at = EXCLUDED.updated_at`,
		bal.ProductID, bal.WarehouseID, bal.Qty, bal.AvgCost, bal.UpdatedAt)
	return err
}

func (t *txRepository) InsertMovement(ctx context.Context, mov Movement) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `
INSERT INTO stock_movements (product_id, warehouse_id, movement_type, qty, unit_cost, source_ref, occurred_at, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING id`,
		mov.ProductID, mov.WarehouseID, mov.Type, mov.Quantity, mov.UnitCost, mov.SourceRef, mov.OccurredAt, mov.CreatedAt).
		Scan(&id)
	return id, err
}

func (t *txRepository) DeleteMovement(ctx context.Context, id int64) (Movement, error) {
	var m Movement
	err := t.tx.QueryRow(ctx, `
DELETE FROM stock_movements
WHERE id = $1
RETURNING id, product_id, warehouse_id, movement_type, qty, unit_cost, source_ref, occurred_at, created_at`, id).
		Scan(&m.ID, &m.ProductID, &m.WarehouseID, &m.Type, &m.Quantity, &m.UnitCost, &m.SourceRef, &m.OccurredAt, &m.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Movement{}, ErrMovementNotFound
	}
	if err != nil {
		return Movement{}, err
	}
	return m, nil
}

func (t *txRepository) ListMovementsForUpdate(ctx context.Context, productID int64) ([]Movement, error) {
	rows, err := t.tx.Query(ctx, `
SELECT id, product_id, warehouse_id, movement_type, qty, unit_cost, source_ref, occurred_at, created_at
FROM stock_movements
WHERE product_id = $1
ORDER BY occurred_at, id
FOR UPDATE`, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMovements(rows)
}

func (t *txRepository) ReplaceBalances(ctx context.Context, productID int64, balances []Balance) error {
	if _, err := t.tx.Exec(ctx, `DELETE FROM stock_balances WHERE product_id = $1`, productID); err != nil {
		return err
	}
	for _, b := range balances {
		if err := t.UpsertBalance(ctx, b); err != nil {
			return err
		}
	}
	return nil
}

func scanMovements(rows pgx.Rows) ([]Movement, error) {
	var out []Movement
	for rows.Next() {
		var m Movement
		if err := rows.Scan(&m.ID, &m.ProductID, &m.WarehouseID, &m.Type, &m.Quantity, &m.UnitCost, &m.SourceRef, &m.OccurredAt, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
