package inventory

import "context"

// RepositoryPort is the persistence boundary of the valuation engine.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error
	ListBalances(ctx context.Context, productID int64) ([]Balance, error)
	ListProductIDs(ctx context.Context) ([]int64, error)
	// ListCardMovements returns the full chronological history up to
	// filter.To. From is not applied here: the caller folds running
	// balances over everything and trims afterwards.
	ListCardMovements(ctx context.Context, filter StockCardFilter) ([]Movement, error)
}

// TxRepository is the transactional slice used while applying or replaying
// movements.
type TxRepository interface {
	GetBalanceForUpdate(ctx context.Context, productID, warehouseID int64) (Balance, error)
	UpsertBalance(ctx context.Context, bal Balance) error
	InsertMovement(ctx context.Context, mov Movement) (int64, error)
	DeleteMovement(ctx context.Context, id int64) (Movement, error)
	ListMovementsForUpdate(ctx context.Context, productID int64) ([]Movement, error)
	ReplaceBalances(ctx context.Context, productID int64, balances []Balance) error
}
