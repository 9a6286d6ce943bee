package shared

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// IdempotencyHeader carries the client-chosen key on retried writes.
const IdempotencyHeader = "Idempotency-Key"

const maxIdempotencyKeyLen = 128

var (
	// ErrIdempotencyConflict indicates a duplicate key.
	ErrIdempotencyConflict = errors.New("idempotent request already processed")
	// ErrIdempotencyKeyInvalid rejects empty or oversized keys.
	ErrIdempotencyKeyInvalid = errors.New("idempotency key invalid")
)

// IdempotencyStore remembers processed keys in Redis until they expire.
type IdempotencyStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewIdempotencyStore constructs the store. Keys live for ttl.
func NewIdempotencyStore(client *redis.Client, ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &IdempotencyStore{client: client, ttl: ttl}
}

// CheckAndInsert claims key within scope, failing with ErrIdempotencyConflict when
// it was already claimed.
func (s *IdempotencyStore) CheckAndInsert(ctx context.Context, key, scope string) error {
	if s == nil || s.client == nil {
		return errors.New("idempotency store not initialised")
	}
	if key == "" || len(key) > maxIdempotencyKeyLen {
		return ErrIdempotencyKeyInvalid
	}
	if scope == "" {
		return errors.New("idempotency scope required")
	}
	ok, err := s.client.SetNX(ctx, idempotencyKey(scope, key), time.Now().UTC().Unix(), s.ttl).Result()
	if err != nil {
		return fmt.Errorf("shared: claim idempotency key: %w", err)
	}
	if !ok {
		return ErrIdempotencyConflict
	}
	return nil
}

// Delete releases a key, typically used to roll back failed processing.
func (s *IdempotencyStore) Delete(ctx context.Context, key, scope string) error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Del(ctx, idempotencyKey(scope, key)).Err()
}

func idempotencyKey(scope, key string) string {
	return "idem:" + scope + ":" + key
}
