package activity

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists feed entries.
type Repository interface {
	Insert(ctx context.Context, entry Entry) error
	Recent(ctx context.Context, limit int) ([]Entry, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// Insert stores an entry.
func (r *PGRepository) Insert(ctx context.Context, entry Entry) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO activity (id, actor_id, action, link_kind, link_id, summary, occurred_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		entry.ID, entry.ActorID, entry.Action, string(entry.Link.Kind), entry.Link.ID, entry.Summary, entry.At)
	return err
}

// Recent returns the newest entries first.
func (r *PGRepository) Recent(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := r.pool.Query(ctx, `SELECT a.id, COALESCE(a.actor_id, 0), COALESCE(u.name, ''), a.action, a.link_kind, a.link_id, a.summary, a.occurred_at
FROM activity a
LEFT JOIN users u ON u.id = a.actor_id
ORDER BY a.occurred_at DESC
LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []Entry
	for rows.Next() {
		var (
			entry Entry
			kind  string
		)
		if err := rows.Scan(&entry.ID, &entry.ActorID, &entry.ActorName, &entry.Action, &kind, &entry.Link.ID, &entry.Summary, &entry.At); err != nil {
			return nil, err
		}
		entry.Link.Kind = LinkKind(kind)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

var _ Repository = (*PGRepository)(nil)
