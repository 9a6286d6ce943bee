package auth

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sapients/tracker/internal/rbac"
	"github.com/sapients/tracker/internal/shared"
)

// ErrEmailTaken is returned when provisioning an email that already exists.
var ErrEmailTaken = errors.New("auth: email already registered")

// Repository defines persistence operations for the auth module.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	CreateUser(ctx context.Context, user User) (*User, error)
}

// SessionRepository extends the session store with expiry garbage collection.
type SessionRepository interface {
	shared.SessionStore
	DeleteExpiredSessions(ctx context.Context, before time.Time) (int64, error)
}

// PGRepository implements Repository and SessionRepository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// FindByEmail fetches a user by its lowercased email.
func (r *PGRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	const query = `SELECT id, email, name, password_hash, role, COALESCE(avatar_url, ''), created_at, updated_at
FROM users WHERE email = $1`
	var (
		user User
		role string
	)
	err := r.pool.QueryRow(ctx, query, email).Scan(
		&user.ID, &user.Email, &user.Name, &user.PasswordHash, &role, &user.AvatarURL, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	user.Role = rbac.Role(role)
	return &user, nil
}

// CreateUser inserts a provisioned account.
func (r *PGRepository) CreateUser(ctx context.Context, user User) (*User, error) {
	const query = `INSERT INTO users (email, name, password_hash, role, avatar_url, created_at, updated_at)
VALUES ($1, $2, $3, $4, NULLIF($5, ''), NOW(), NOW())
RETURNING id, created_at, updated_at`
	err := r.pool.QueryRow(ctx, query, user.Email, user.Name, user.PasswordHash, user.Role.String(), user.AvatarURL).
		Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	return &user, nil
}

// CreateSession persists a new session row.
func (r *PGRepository) CreateSession(ctx context.Context, token string, userID int64, expiresAt time.Time) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO sessions (session_token, user_id, expires_at) VALUES ($1, $2, $3)`,
		token, userID, expiresAt.UTC())
	return err
}

// FindSession loads a session joined with its user. Expired rows are returned as-is;
// the session manager decides validity.
func (r *PGRepository) FindSession(ctx context.Context, token string) (*shared.Session, error) {
	const query = `SELECT s.expires_at, u.id, u.email, u.name, u.role, COALESCE(u.avatar_url, '')
FROM sessions s
JOIN users u ON u.id = s.user_id
WHERE s.session_token = $1`
	var sess shared.Session
	err := r.pool.QueryRow(ctx, query, token).Scan(
		&sess.ExpiresAt, &sess.User.ID, &sess.User.Email, &sess.User.Name, &sess.User.Role, &sess.User.AvatarURL,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	sess.Token = token
	return &sess, nil
}

// DeleteSession removes a session row. Deleting an absent row is not an error.
func (r *PGRepository) DeleteSession(ctx context.Context, token string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE session_token = $1`, token)
	return err
}

// DeleteExpiredSessions purges rows that expired at or before the cutoff.
func (r *PGRepository) DeleteExpiredSessions(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, before.UTC())
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

var (
	_ Repository        = (*PGRepository)(nil)
	_ SessionRepository = (*PGRepository)(nil)
)
