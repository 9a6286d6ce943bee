package content

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sapients/tracker/internal/platform/db"
	"github.com/sapients/tracker/internal/rbac"
	"github.com/sapients/tracker/internal/shared"
)

// Repository persists content items.
type Repository interface {
	List(ctx context.Context, module rbac.Module, filter ListFilter) ([]Item, int, error)
	Get(ctx context.Context, module rbac.Module, id uuid.UUID) (Item, error)
	Create(ctx context.Context, item Item) (Item, error)
	// Update applies mutate to the stored item. When snapshot is true the prior
	// state is written to the version history in the same transaction.
	Update(ctx context.Context, module rbac.Module, id uuid.UUID, snapshot bool, mutate func(*Item)) (Item, error)
	Delete(ctx context.Context, module rbac.Module, id uuid.UUID) (Item, error)
	Versions(ctx context.Context, id uuid.UUID) ([]Version, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const itemColumns = `id, module, title, body, COALESCE(created_by, 0), COALESCE(updated_by, 0), version, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (Item, error) {
	var item Item
	var module string
	err := row.Scan(&item.ID, &module, &item.Title, &item.Body, &item.CreatedBy, &item.UpdatedBy, &item.Version, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Item{}, shared.ErrNotFound
		}
		return Item{}, err
	}
	item.Module = rbac.Module(module)
	return item, nil
}

// List returns one page of items in module, most recently updated first, and the total count.
func (r *PGRepository) List(ctx context.Context, module rbac.Module, filter ListFilter) ([]Item, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM content_items WHERE module = $1`, string(module)).Scan(&total); err != nil {
		return nil, 0, err
	}
	offset := (filter.Page - 1) * filter.PerPage
	rows, err := r.pool.Query(ctx, `SELECT `+itemColumns+` FROM content_items WHERE module = $1
ORDER BY updated_at DESC, id LIMIT $2 OFFSET $3`, string(module), filter.PerPage, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, item)
	}
	return items, total, rows.Err()
}

// Get loads an item scoped to its module.
func (r *PGRepository) Get(ctx context.Context, module rbac.Module, id uuid.UUID) (Item, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+itemColumns+` FROM content_items WHERE module = $1 AND id = $2`, string(module), id)
	return scanItem(row)
}

// Create inserts a new item.
func (r *PGRepository) Create(ctx context.Context, item Item) (Item, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO content_items (id, module, title, body, created_by, updated_by, version, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $5, 1, NOW(), NOW())
RETURNING `+itemColumns, item.ID, string(item.Module), item.Title, item.Body, item.CreatedBy)
	return scanItem(row)
}

// Update locks the row, optionally snapshots it, then writes the mutated item.
func (r *PGRepository) Update(ctx context.Context, module rbac.Module, id uuid.UUID, snapshot bool, mutate func(*Item)) (Item, error) {
	var updated Item
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		current, err := scanItem(tx.QueryRow(ctx, `SELECT `+itemColumns+` FROM content_items WHERE module = $1 AND id = $2 FOR UPDATE`, string(module), id))
		if err != nil {
			return err
		}
		if snapshot {
			if _, err := tx.Exec(ctx, `INSERT INTO content_versions (item_id, version, title, body, edited_by, edited_at)
VALUES ($1, $2, $3, $4, NULLIF($5::bigint, 0), $6)`, current.ID, current.Version, current.Title, current.Body, current.UpdatedBy, current.UpdatedAt); err != nil {
				return fmt.Errorf("insert version: %w", err)
			}
		}
		next := current
		mutate(&next)
		updated, err = scanItem(tx.QueryRow(ctx, `UPDATE content_items SET title = $3, body = $4, updated_by = $5, version = version + 1, updated_at = NOW()
WHERE module = $1 AND id = $2 RETURNING `+itemColumns, string(module), id, next.Title, next.Body, next.UpdatedBy))
		return err
	})
	if err != nil {
		return Item{}, err
	}
	return updated, nil
}

// Delete removes an item and its history, returning what was removed.
func (r *PGRepository) Delete(ctx context.Context, module rbac.Module, id uuid.UUID) (Item, error) {
	var removed Item
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var err error
		removed, err = scanItem(tx.QueryRow(ctx, `DELETE FROM content_items WHERE module = $1 AND id = $2 RETURNING `+itemColumns, string(module), id))
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `DELETE FROM content_versions WHERE item_id = $1`, id)
		return err
	})
	if err != nil {
		return Item{}, err
	}
	return removed, nil
}

// Versions returns the item's history, newest first.
func (r *PGRepository) Versions(ctx context.Context, id uuid.UUID) ([]Version, error) {
	rows, err := r.pool.Query(ctx, `SELECT item_id, version, title, body, COALESCE(edited_by, 0), edited_at
FROM content_versions WHERE item_id = $1 ORDER BY version DESC`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var versions []Version
	for rows.Next() {
		var v Version
		if err := rows.Scan(&v.ItemID, &v.Version, &v.Title, &v.Body, &v.EditedBy, &v.EditedAt); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

var _ Repository = (*PGRepository)(nil)
