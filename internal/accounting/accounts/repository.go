package accounts

import (
	"context"
	"errors"
)

// ErrAccountNotFound indicates a missing chart entry.
var ErrAccountNotFound = errors.New("accounts: account not found")

// RepositoryPort abstracts chart of accounts persistence for the resolver.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetByCode(ctx context.Context, code string) (Account, error)
	List(ctx context.Context) ([]Account, error)
}

// TxRepository exposes transactional operations used during account creation.
type TxRepository interface {
	GetByCode(ctx context.Context, code string) (Account, error)
	Insert(ctx context.Context, account Account) (Account, error)
}
