package push

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists push subscriptions.
type Repository interface {
	Upsert(ctx context.Context, sub Subscription) (Subscription, error)
	DeleteByEndpoint(ctx context.Context, userID int64, endpoint string) error
	DeleteByID(ctx context.Context, id uuid.UUID) error
	ListAll(ctx context.Context) ([]Subscription, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// Upsert stores a subscription, re-binding an existing endpoint to the caller.
func (r *PGRepository) Upsert(ctx context.Context, sub Subscription) (Subscription, error) {
	const query = `INSERT INTO push_subscriptions (id, user_id, endpoint, p256dh, auth, created_at)
VALUES ($1, $2, $3, $4, $5, NOW())
ON CONFLICT (endpoint) DO UPDATE SET user_id = EXCLUDED.user_id, p256dh = EXCLUDED.p256dh, auth = EXCLUDED.auth
RETURNING id, created_at`
	err := r.pool.QueryRow(ctx, query, sub.ID, sub.UserID, sub.Endpoint, sub.P256dh, sub.Auth).Scan(&sub.ID, &sub.CreatedAt)
	if err != nil {
		return Subscription{}, err
	}
	return sub, nil
}

// DeleteByEndpoint removes the caller's subscription for endpoint.
func (r *PGRepository) DeleteByEndpoint(ctx context.Context, userID int64, endpoint string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM push_subscriptions WHERE user_id = $1 AND endpoint = $2`, userID, endpoint)
	return err
}

// DeleteByID removes a subscription regardless of owner.
func (r *PGRepository) DeleteByID(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM push_subscriptions WHERE id = $1`, id)
	return err
}

// ListAll returns every subscription.
func (r *PGRepository) ListAll(ctx context.Context) ([]Subscription, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, user_id, endpoint, p256dh, auth, created_at FROM push_subscriptions ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var subs []Subscription
	for rows.Next() {
		var sub Subscription
		if err := rows.Scan(&sub.ID, &sub.UserID, &sub.Endpoint, &sub.P256dh, &sub.Auth, &sub.CreatedAt); err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return subs, nil
}

var _ Repository = (*PGRepository)(nil)
