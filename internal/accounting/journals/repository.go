package journals

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// RepositoryPort abstracts repository usage for the ledger service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetEntry(ctx context.Context, id int64) (JournalEntry, error)
	List(ctx context.Context) ([]JournalEntry, error)
	BalanceRows(ctx context.Context, asOf time.Time) ([]BalanceRow, error)
}

// TxRepository exposes transactional operations used by the ledger service.
type TxRepository interface {
	InsertEntry(ctx context.Context, entry JournalEntry) (int64, error)
	InsertLines(ctx context.Context, entryID int64, lines []JournalLine) error
	GetEntryForUpdate(ctx context.Context, id int64) (JournalEntry, error)
	GetLines(ctx context.Context, entryID int64) ([]JournalLine, error)
	UpdateStatus(ctx context.Context, id int64, status EntryStatus, postedAt time.Time) error
	ApplyBalanceDeltas(ctx context.Context, lines []JournalLine) error
	AccountPostable(ctx context.Context, accountID int64) (bool, error)
	LinkSource(ctx context.Context, module string, sourceID uuid.UUID, entryID int64) error
}
