package reconcile

import (
	"context"

	"github.com/meridian-erp/meridian-erp/internal/accounting/accounts"
)

// RepositoryPort is the persistence boundary of the reconciliation engine.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error
	GetAccount(ctx context.Context, accountID int64) (accounts.Account, error)
	UnclaimedLines(ctx context.Context, accountID int64) ([]CandidateLine, error)
	LastRecord(ctx context.Context, accountID int64) (Record, bool, error)
	History(ctx context.Context, accountID int64) ([]Record, error)
}

// TxRepository is the transactional slice used while saving a snapshot.
type TxRepository interface {
	UnclaimedLines(ctx context.Context, accountID int64) ([]CandidateLine, error)
	LastRecord(ctx context.Context, accountID int64) (Record, bool, error)
	InsertRecord(ctx context.Context, rec Record) (int64, error)
	ClaimLines(ctx context.Context, recordID, accountID int64, lineIDs []int64) error
}
