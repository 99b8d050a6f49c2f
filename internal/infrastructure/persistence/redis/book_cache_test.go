package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiebiao/library/internal/domain/book"
)

func TestBookCache_Miss(t *testing.T) {
	client, _ := newTestClient(t)
	cache := NewBookCache(client, time.Minute)

	b, version, err := cache.Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, b)
	assert.Zero(t, version)
}

func TestBookCache_SetGetInvalidate(t *testing.T) {
	client, mr := newTestClient(t)
	cache := NewBookCache(client, 10*time.Minute)
	ctx := context.Background()

	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	want := &book.Book{
		ID:                "b-1",
		Title:             "The Go Programming Language",
		Author:            "Donovan",
		ISBN:              "9780134190440",
		PublicationYear:   2015,
		Description:       "gopl",
		Cover:             book.CoverImage{URL: "http://localhost/covers/a.png", Path: "/data/covers/a.png"},
		TotalQuantity:     5,
		AvailableQuantity: 3,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	stored, err := cache.Set(ctx, want, 0)
	require.NoError(t, err)
	assert.True(t, stored)
	assert.Equal(t, 10*time.Minute, mr.TTL("library:book:b-1"))

	got, version, err := cache.Get(ctx, "b-1")
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Zero(t, version)

	require.NoError(t, cache.Invalidate(ctx, "b-1"))
	got, version, err = cache.Get(ctx, "b-1")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Equal(t, int64(1), version)
	assert.Greater(t, mr.TTL("library:book:ver:b-1"), 10*time.Minute)
}

func TestBookCache_SetSkippedAfterInvalidate(t *testing.T) {
	client, mr := newTestClient(t)
	cache := NewBookCache(client, time.Minute)
	ctx := context.Background()

	// 读库前拿到版本号
	_, version, err := cache.Get(ctx, "b-3")
	require.NoError(t, err)

	// 读库期间库存变化并失效
	require.NoError(t, cache.Invalidate(ctx, "b-3"))

	stale := &book.Book{ID: "b-3", Title: "旧快照", TotalQuantity: 3, AvailableQuantity: 3}
	stored, err := cache.Set(ctx, stale, version)
	require.NoError(t, err)
	assert.False(t, stored)
	assert.False(t, mr.Exists("library:book:b-3"))

	// 用最新版本号回填成功
	_, version, err = cache.Get(ctx, "b-3")
	require.NoError(t, err)
	fresh := &book.Book{ID: "b-3", Title: "新快照", TotalQuantity: 3, AvailableQuantity: 2}
	stored, err = cache.Set(ctx, fresh, version)
	require.NoError(t, err)
	assert.True(t, stored)

	got, _, err := cache.Get(ctx, "b-3")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 2, got.AvailableQuantity)
}

func TestBookCache_CorruptValue(t *testing.T) {
	client, mr := newTestClient(t)
	cache := NewBookCache(client, time.Minute)
	require.NoError(t, mr.Set("library:book:b-2", "not-json"))

	_, _, err := cache.Get(context.Background(), "b-2")
	assert.Error(t, err)
}
