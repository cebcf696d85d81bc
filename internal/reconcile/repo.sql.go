package reconcile

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-erp/internal/accounting/accounts"
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
		return fn(ctx, &txRepository{q: tx})
	})
}

func (r *Repository) GetAccount(ctx context.Context, accountID int64) (accounts.Account, error) {
	var acc accounts.Account
	err := r.pool.QueryRow(ctx, `
SELECT id, code, name, account_type, nature, is_group, cash_equivalent, is_active
FROM accounts
WHERE id = $1`, accountID).
		Scan(&acc.ID, &acc.Code, &acc.Name, &acc.Type, &acc.Nature, &acc.IsGroup, &acc.CashEquivalent, &acc.IsActive)
	if errors.Is(err, pgx.ErrNoRows) {
		return accounts.Account{}, accounts.ErrAccountNotFound
	}
	if err != nil {
		return accounts.Account{}, err
	}
	return acc, nil
}

func (r *Repository) UnclaimedLines(ctx context.Context, accountID int64) ([]CandidateLine, error) {
	return unclaimedLines(ctx, r.pool, accountID)
}

func (r *Repository) LastRecord(ctx context.Context, accountID int64) (Record, bool, error) {
	return lastRecord(ctx, r.pool, accountID)
}

func (r *Repository) History(ctx context.Context, accountID int64) ([]Record, error) {
	rows, err := r.pool.Query(ctx, recordQuery+`
WHERE account_id = $1
ORDER BY statement_date DESC, id DESC`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

type txRepository struct {
	q pgx.Tx
}

func (t *txRepository) UnclaimedLines(ctx context.Context, accountID int64) ([]CandidateLine, error) {
	return unclaimedLines(ctx, t.q, accountID)
}

func (t *txRepository) LastRecord(ctx context.Context, accountID int64) (Record, bool, error) {
	return lastRecord(ctx, t.q, accountID)
}

func (t *txRepository) InsertRecord(ctx context.Context, rec Record) (int64, error) {
	var id int64
	err := t.q.QueryRow(ctx, `
INSERT INTO bank_reconciliations
  (account_id, statement_date, statement_balance, opening_balance, total_deposits, total_payments, difference, status, notes, created_by, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
RETURNING id`,
		rec.AccountID, rec.StatementDate, rec.StatementBalance, rec.OpeningBalance,
		rec.TotalDeposits, rec.TotalPayments, rec.Difference, rec.Status, rec.Notes,
		rec.CreatedBy, rec.CreatedAt).
		Scan(&id)
	return id, err
}

func (t *txRepository) ClaimLines(ctx context.Context, recordID, accountID int64, lineIDs []int64) error {
	for _, lineID := range lineIDs {
		_, err := t.q.Exec(ctx, `
INSERT INTO bank_reconciliation_lines (reconciliation_id, account_id, line_id)
VALUES ($1, $2, $3)`, recordID, accountID, lineID)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return ErrLineAlreadyReconciled
			}
			return err
		}
	}
	return nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func unclaimedLines(ctx context.Context, q querier, accountID int64) ([]CandidateLine, error) {
	rows, err := q.Query(ctx, `
SELECT jl.id, jl.entry_id, je.entry_date, je.reference, jl.description, jl.debit, jl.credit
FROM journal_lines jl
JOIN journal_entries je ON je.id = jl.entry_id
LEFT JOIN bank_reconciliation_lines brl
  ON brl.line_id = jl.id AND brl.account_id = jl.account_id
WHERE jl.account_id = $1
  AND je.status = 'POSTED'
  AND brl.line_id IS NULL
ORDER BY je.entry_date, jl.id`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []CandidateLine
	for rows.Next() {
		var line CandidateLine
		if err := rows.Scan(&line.LineID, &line.EntryID, &line.Date, &line.Reference, &line.Description, &line.Debit, &line.Credit); err != nil {
			return nil, err
		}
		out = append(out, line)
	}
	return out, rows.Err()
}

const recordQuery = `
SELECT id, account_id, statement_date, statement_balance, opening_balance,
       total_deposits, total_payments, difference, status, notes, created_by, created_at
FROM bank_reconciliations`

func lastRecord(ctx context.Context, q querier, accountID int64) (Record, bool, error) {
	row := q.QueryRow(ctx, recordQuery+`
WHERE account_id = $1
ORDER BY statement_date DESC, id DESC
LIMIT 1`, accountID)
	rec, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, err
	}
	return rec, true, nil
}

func scanRecord(row pgx.Row) (Record, error) {
	var rec Record
	err := row.Scan(&rec.ID, &rec.AccountID, &rec.StatementDate, &rec.StatementBalance,
		&rec.OpeningBalance, &rec.TotalDeposits, &rec.TotalPayments, &rec.Difference,
		&rec.Status, &rec.Notes, &rec.CreatedBy, &rec.CreatedAt)
	if err != nil {
		return Record{}, err
	}
	return rec, nil
}
