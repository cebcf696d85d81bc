package documents

import (
	"context"

	"github.com/google/uuid"
)

// RepositoryPort persists document records and their movement links.
type RepositoryPort interface {
	Insert(ctx context.Context, doc Document) error
	Delete(ctx context.Context, id uuid.UUID) error
	SetEntryID(ctx context.Context, id uuid.UUID, entryID int64) error
	SetStatus(ctx context.Context, id uuid.UUID, status string) error
	Get(ctx context.Context, id uuid.UUID) (Document, error)
	List(ctx context.Context, kind Kind) ([]Document, error)
	LinkMovements(ctx context.Context, id uuid.UUID, movementIDs []int64) error
	MovementIDs(ctx context.Context, id uuid.UUID) ([]int64, error)
}
