package documents

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository is the pgx-backed RepositoryPort.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Insert(ctx context.Context, doc Document) error {
	_, err := r.pool.Exec(ctx, `
INSERT INTO documents (id, kind, reference, doc_date, status, payload, created_by, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		doc.ID, doc.Kind, doc.Reference, doc.Date, doc.Status, doc.Payload, doc.CreatedBy, doc.CreatedAt)
	return err
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM documents WHERE id = $1`, id)
	return err
}

func (r *Repository) SetEntryID(ctx context.Context, id uuid.UUID, entryID int64) error {
	_, err := r.pool.Exec(ctx, `UPDATE documents SET entry_id = $2 WHERE id = $1`, id, entryID)
	return err
}

func (r *Repository) SetStatus(ctx context.Context, id uuid.UUID, status string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE documents SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrDocumentNotFound
	}
	return nil
}

func (r *Repository) Get(ctx context.Context, id uuid.UUID) (Document, error) {
	row := r.pool.QueryRow(ctx, `
SELECT id, kind, reference, doc_date, status, payload, entry_id, created_by, created_at
FROM documents
WHERE id = $1`, id)
	return scanDocument(row)
}

func (r *Repository) List(ctx context.Context, kind Kind) ([]Document, error) {
	query := `
SELECT id, kind, reference, doc_date, status, payload, entry_id, created_by, created_at
FROM documents`
	args := []any{}
	if kind != "" {
		query += ` WHERE kind = $1`
		args = append(args, kind)
	}
	query += ` ORDER BY created_at DESC LIMIT 200`
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

func (r *Repository) LinkMovements(ctx context.Context, id uuid.UUID, movementIDs []int64) error {
	for _, movID := range movementIDs {
		if _, err := r.pool.Exec(ctx, `
INSERT INTO document_movements (document_id, movement_id) VALUES ($1, $2)`, id, movID); err != nil {
			return err
		}
	}
	return nil
}

func (r *Repository) MovementIDs(ctx context.Context, id uuid.UUID) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `
SELECT movement_id FROM document_movements WHERE document_id = $1 ORDER BY movement_id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []int64
	for rows.Next() {
		var movID int64
		if err := rows.Scan(&movID); err != nil {
			return nil, err
		}
		out = append(out, movID)
	}
	return out, rows.Err()
}

func scanDocument(row pgx.Row) (Document, error) {
	var doc Document
	err := row.Scan(&doc.ID, &doc.Kind, &doc.Reference, &doc.Date, &doc.Status, &doc.Payload, &doc.EntryID, &doc.CreatedBy, &doc.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Document{}, ErrDocumentNotFound
	}
	if err != nil {
		return Document{}, err
	}
	return doc, nil
}
