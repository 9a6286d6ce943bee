package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sapients/tracker/internal/rbac"
	"github.com/sapients/tracker/internal/shared"
)

func newCachedStore(t *testing.T) (*CachedSessionStore, *memoryRepo, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	repo := newMemoryRepo()
	return NewCachedSessionStore(repo, client, 5*time.Minute, nil), repo, mr
}

func TestCachedSessionStoreServesFromCache(t *testing.T) {
	store, repo, mr := newCachedStore(t)
	user := repo.addUser(t, "ada@sapients.test", "pw", rbac.RoleWriter)
	ctx := context.Background()

	require.NoError(t, store.CreateSession(ctx, "tok", user.ID, time.Now().Add(time.Hour)))
	first, err := store.FindSession(ctx, "tok")
	require.NoError(t, err)
	assert.True(t, mr.Exists("session:tok"))

	// Drop the row behind the cache's back; the cached copy still answers.
	delete(repo.sessions, "tok")
	second, err := store.FindSession(ctx, "tok")
	require.NoError(t, err)
	assert.Equal(t, first.User, second.User)
	assert.Equal(t, "tok", second.Token)
	assert.WithinDuration(t, first.ExpiresAt, second.ExpiresAt, time.Millisecond)
}

func TestCachedSessionStoreTTLCappedByExpiry(t *testing.T) {
	store, repo, mr := newCachedStore(t)
	user := repo.addUser(t, "ada@sapients.test", "pw", rbac.RoleWriter)
	ctx := context.Background()

	require.NoError(t, store.CreateSession(ctx, "short", user.ID, time.Now().Add(30*time.Second)))
	_, err := store.FindSession(ctx, "short")
	require.NoError(t, err)
	ttl := mr.TTL("session:short")
	assert.LessOrEqual(t, ttl, 30*time.Second)
	assert.Positive(t, ttl)
}

func TestCachedSessionStoreSkipsExpiredRows(t *testing.T) {
	store, repo, mr := newCachedStore(t)
	user := repo.addUser(t, "ada@sapients.test", "pw", rbac.RoleWriter)
	ctx := context.Background()

	require.NoError(t, store.CreateSession(ctx, "old", user.ID, time.Now().Add(-time.Minute)))
	sess, err := store.FindSession(ctx, "old")
	require.NoError(t, err)
	assert.NotNil(t, sess)
	assert.False(t, mr.Exists("session:old"))
}

func TestCachedSessionStoreDeleteTombstones(t *testing.T) {
	store, repo, _ := newCachedStore(t)
	user := repo.addUser(t, "ada@sapients.test", "pw", rbac.RoleWriter)
	ctx := context.Background()

	require.NoError(t, store.CreateSession(ctx, "tok", user.ID, time.Now().Add(time.Hour)))
	_, err := store.FindSession(ctx, "tok")
	require.NoError(t, err)

	require.NoError(t, store.DeleteSession(ctx, "tok"))
	require.NoError(t, store.DeleteSession(ctx, "tok"))

	// A racing reader that re-inserts the row cannot resurrect the session through the cache.
	require.NoError(t, repo.CreateSession(ctx, "tok", user.ID, time.Now().Add(time.Hour)))
	_, err = store.FindSession(ctx, "tok")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestCachedSessionStoreFallsBackWhenRedisDown(t *testing.T) {
	store, repo, mr := newCachedStore(t)
	user := repo.addUser(t, "ada@sapients.test", "pw", rbac.RoleWriter)
	ctx := context.Background()
	require.NoError(t, store.CreateSession(ctx, "tok", user.ID, time.Now().Add(time.Hour)))

	mr.Close()
	sess, err := store.FindSession(ctx, "tok")
	require.NoError(t, err)
	assert.Equal(t, user.ID, sess.User.ID)
}

func TestCachedSessionStoreUnknownToken(t *testing.T) {
	store, _, _ := newCachedStore(t)
	_, err := store.FindSession(context.Background(), "missing")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestCachedSessionStoreDeleteKeepsRowWhenTombstoneFails(t *testing.T) {
	store, repo, mr := newCachedStore(t)
	user := repo.addUser(t, "ada@sapients.test", "pw", rbac.RoleWriter)
	ctx := context.Background()

	require.NoError(t, store.CreateSession(ctx, "tok", user.ID, time.Now().Add(time.Hour)))
	_, err := store.FindSession(ctx, "tok")
	require.NoError(t, err)
	require.True(t, mr.Exists("session:tok"))

	mr.Close()
	require.Error(t, store.DeleteSession(ctx, "tok"))
	_, err = repo.FindSession(ctx, "tok")
	require.NoError(t, err, "row must survive so the logout can be retried")

	require.NoError(t, mr.Restart())
	require.NoError(t, store.DeleteSession(ctx, "tok"))

	_, err = store.FindSession(ctx, "tok")
	assert.ErrorIs(t, err, shared.ErrNotFound)
	_, err = repo.FindSession(ctx, "tok")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
