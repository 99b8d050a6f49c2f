package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/xiebiao/library/pkg/errors"
)

func TestSessionStore_SaveGetDelete(t *testing.T) {
	client, mr := newTestClient(t)
	store := NewSessionStore(client)
	ctx := context.Background()

	err := store.SaveSession(ctx, "u-1", map[string]interface{}{
		"username": "reader_01",
		"login_at": "2026-01-01T00:00:00Z",
	}, time.Hour)
	require.NoError(t, err)

	session, err := store.GetSession(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, "reader_01", session["username"])
	assert.Equal(t, time.Hour, mr.TTL("session:u-1"))

	require.NoError(t, store.DeleteSession(ctx, "u-1"))
	_, err = store.GetSession(ctx, "u-1")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeUnauthorized))
}

func TestSessionStore_Expired(t *testing.T) {
	client, mr := newTestClient(t)
	store := NewSessionStore(client)
	ctx := context.Background()

	require.NoError(t, store.SaveSession(ctx, "u-2", map[string]interface{}{"username": "x"}, time.Minute))
	mr.FastForward(2 * time.Minute)

	_, err := store.GetSession(ctx, "u-2")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeUnauthorized))
}

func TestSessionStore_Blacklist(t *testing.T) {
	client, mr := newTestClient(t)
	store := NewSessionStore(client)
	ctx := context.Background()

	ok, err := store.IsInBlacklist(ctx, "token-a")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.AddToBlacklist(ctx, "token-a", time.Minute))
	ok, err = store.IsInBlacklist(ctx, "token-a")
	require.NoError(t, err)
	assert.True(t, ok)

	mr.FastForward(time.Minute + time.Second)
	ok, err = store.IsInBlacklist(ctx, "token-a")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSessionStore_BlacklistSkipsExpiredToken(t *testing.T) {
	client, mr := newTestClient(t)
	store := NewSessionStore(client)

	require.NoError(t, store.AddToBlacklist(context.Background(), "token-b", 0))
	assert.False(t, mr.Exists("blacklist:token-b"))
}

func TestSessionStore_RedisDown(t *testing.T) {
	client, mr := newTestClient(t)
	store := NewSessionStore(client)
	mr.Close()

	_, err := store.IsInBlacklist(context.Background(), "token-c")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeRedisError))
}
