package journals

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-erp/internal/accounting/shared"
)

// Repository persists journal entries in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("journals repository not initialised")
	}
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return err
	}
	wrapper := &txRepository{tx: tx}
	if err := fn(ctx, wrapper); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

const entryColumns = `id, entry_date, reference, description, source_module, source_id, status, reversal_of, posted_by, posted_at, created_at, updated_at`

// GetEntry loads one entry with its lines.
func (r *Repository) GetEntry(ctx context.Context, id int64) (JournalEntry, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+entryColumns+` FROM journal_entries WHERE id=$1`, id)
	entry, err := scanEntry(row)
	if err != nil {
		return JournalEntry{}, err
	}
	lines, err := queryLines(ctx, r.pool, id)
	if err != nil {
		return JournalEntry{}, err
	}
	entry.Lines = lines
	return entry, nil
}

// List returns entries without lines, newest first.
func (r *Repository) List(ctx context.Context) ([]JournalEntry, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+entryColumns+` FROM journal_entries ORDER BY entry_date DESC, id DESC LIMIT 500`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	entries := []JournalEntry{}
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// BalanceRows aggregates posted lines per leaf account up to a date.
func (r *Repository) BalanceRows(ctx context.Context, asOf time.Time) ([]BalanceRow, error) {
	rows, err := r.pool.Query(ctx, `SELECT a.id, a.code, a.name, a.account_type,
COALESCE(SUM(l.debit), 0), COALESCE(SUM(l.credit), 0)
FROM accounts a
JOIN journal_lines l ON l.account_id = a.id
JOIN journal_entries e ON e.id = l.entry_id
WHERE e.status = 'POSTED' AND e.entry_date <= $1 AND a.is_group = FALSE
GROUP BY a.id, a.code, a.name, a.account_type
ORDER BY a.code`, asOf)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	result := []BalanceRow{}
	for rows.Next() {
		var row BalanceRow
		if err := rows.Scan(&row.AccountID, &row.Code, &row.Name, &row.Type, &row.Debit, &row.Credit); err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

type txRepository struct {
	tx pgx.Tx
}

func (r *txRepository) InsertEntry(ctx context.Context, entry JournalEntry) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO journal_entries (entry_date, reference, description, source_module, source_id, status, reversal_of, posted_by, posted_at, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,NOW(),NOW()) RETURNING id`,
		entry.Date, entry.Reference, entry.Description, entry.SourceModule, entry.SourceID, string(entry.Status), entry.ReversalOf, nullInt(entry.PostedBy), nullTime(entry.PostedAt)).Scan(&id)
	return id, err
}

func (r *txRepository) InsertLines(ctx context.Context, entryID int64, lines []JournalLine) error {
	for _, line := range lines {
		if _, err := r.tx.Exec(ctx, `INSERT INTO journal_lines (entry_id, account_id, debit, credit, description)
VALUES ($1,$2,$3,$4,$5)`, entryID, line.AccountID, line.Debit, line.Credit, line.Description); err != nil {
			return err
		}
	}
	return nil
}

func (r *txRepository) GetEntryForUpdate(ctx context.Context, id int64) (JournalEntry, error) {
	row := r.tx.QueryRow(ctx, `SELECT `+entryColumns+` FROM journal_entries WHERE id=$1 FOR UPDATE`, id)
	return scanEntry(row)
}

func (r *txRepository) GetLines(ctx context.Context, entryID int64) ([]JournalLine, error) {
	return queryLines(ctx, r.tx, entryID)
}

func (r *txRepository) UpdateStatus(ctx context.Context, id int64, status EntryStatus, postedAt time.Time) error {
	_, err := r.tx.Exec(ctx, `UPDATE journal_entries SET status=$2, posted_at=$3, updated_at=NOW() WHERE id=$1`,
		id, string(status), nullTime(postedAt))
	return err
}

func (r *txRepository) ApplyBalanceDeltas(ctx context.Context, lines []JournalLine) error {
	for _, line := range lines {
		if _, err := r.tx.Exec(ctx, `INSERT INTO account_balances (account_id, debit_total, credit_total, updated_at)
VALUES ($1,$2,$3,NOW())
ON CONFLICT (account_id) DO UPDATE SET
debit_total = account_balances.debit_total + EXCLUDED.debit_total,
credit_total = account_balances.credit_total + EXCLUDED.credit_total,
updated_at = NOW()`, line.AccountID, line.Debit, line.Credit); err != nil {
			return err
		}
	}
	return nil
}

func (r *txRepository) AccountPostable(ctx context.Context, accountID int64) (bool, error) {
	var isGroup, isActive bool
	err := r.tx.QueryRow(ctx, `SELECT is_group, is_active FROM accounts WHERE id=$1`, accountID).Scan(&isGroup, &isActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return !isGroup && isActive, nil
}

func (r *txRepository) LinkSource(ctx context.Context, module string, sourceID uuid.UUID, entryID int64) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO journal_sources (source_module, source_id, entry_id, created_at)
VALUES ($1,$2,$3,NOW())`, module, sourceID, entryID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return shared.ErrSourceConflict
		}
		return err
	}
	return nil
}

type rowQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func queryLines(ctx context.Context, q rowQuerier, entryID int64) ([]JournalLine, error) {
	rows, err := q.Query(ctx, `SELECT id, entry_id, account_id, debit, credit, description FROM journal_lines WHERE entry_id=$1 ORDER BY id`, entryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	lines := []JournalLine{}
	for rows.Next() {
		var line JournalLine
		if err := rows.Scan(&line.ID, &line.EntryID, &line.AccountID, &line.Debit, &line.Credit, &line.Description); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

func scanEntry(row pgx.Row) (JournalEntry, error) {
	var entry JournalEntry
	var postedBy *int64
	var postedAt *time.Time
	err := row.Scan(&entry.ID, &entry.Date, &entry.Reference, &entry.Description, &entry.SourceModule, &entry.SourceID,
		&entry.Status, &entry.ReversalOf, &postedBy, &postedAt, &entry.CreatedAt, &entry.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return JournalEntry{}, shared.ErrJournalNotFound
		}
		return JournalEntry{}, err
	}
	if postedBy != nil {
		entry.PostedBy = *postedBy
	}
	if postedAt != nil {
		entry.PostedAt = *postedAt
	}
	return entry, nil
}

func nullInt(v int64) *int64 {
	if v == 0 {
		return nil
	}
	return &v
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
