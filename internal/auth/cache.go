package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sapients/tracker/internal/shared"
)

const revokedMarker = "revoked"

// CachedSessionStore is a Redis read-through cache in front of the session table.
// Deletes write a tombstone so a lookup racing a logout cannot repopulate the entry.
type CachedSessionStore struct {
	next   shared.SessionStore
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time
}

// NewCachedSessionStore wraps next with a cache whose entries live at most ttl.
func NewCachedSessionStore(next shared.SessionStore, client *redis.Client, ttl time.Duration, logger *slog.Logger) *CachedSessionStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedSessionStore{next: next, client: client, ttl: ttl, logger: logger, now: time.Now}
}

// CreateSession writes through to the backing store.
func (c *CachedSessionStore) CreateSession(ctx context.Context, token string, userID int64, expiresAt time.Time) error {
	return c.next.CreateSession(ctx, token, userID, expiresAt)
}

// FindSession serves from Redis when possible. Redis failures fall back to the backing store.
func (c *CachedSessionStore) FindSession(ctx context.Context, token string) (*shared.Session, error) {
	key := c.key(token)
	payload, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		if string(payload) == revokedMarker {
			return nil, shared.ErrNotFound
		}
		var sess shared.Session
		if jsonErr := json.Unmarshal(payload, &sess); jsonErr == nil {
			sess.Token = token
			return &sess, nil
		}
		c.logger.Warn("session cache decode", slog.String("key", key))
	case errors.Is(err, redis.Nil):
	default:
		c.logger.Warn("session cache get", slog.Any("error", err))
	}

	sess, err := c.next.FindSession(ctx, token)
	if err != nil {
		return nil, err
	}
	c.populate(ctx, key, sess)
	return sess, nil
}

// DeleteSession tombstones the cache entry, then deletes from the backing store.
// A failed tombstone leaves the row in place so the logout can be retried.
func (c *CachedSessionStore) DeleteSession(ctx context.Context, token string) error {
	if err := c.client.Set(ctx, c.key(token), revokedMarker, c.ttl).Err(); err != nil {
		return fmt.Errorf("auth: tombstone session: %w", err)
	}
	return c.next.DeleteSession(ctx, token)
}

func (c *CachedSessionStore) populate(ctx context.Context, key string, sess *shared.Session) {
	ttl := c.ttl
	if remaining := sess.ExpiresAt.Sub(c.now()); remaining < ttl {
		ttl = remaining
	}
	if ttl <= 0 {
		return
	}
	data, err := json.Marshal(sess)
	if err != nil {
		return
	}
	if err := c.client.SetNX(ctx, key, data, ttl).Err(); err != nil {
		c.logger.Warn("session cache set", slog.Any("error", err))
	}
}

func (c *CachedSessionStore) key(token string) string {
	return "session:" + token
}

var _ shared.SessionStore = (*CachedSessionStore)(nil)
