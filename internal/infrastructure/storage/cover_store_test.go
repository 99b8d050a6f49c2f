package storage

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiebiao/library/internal/domain/book"
	"github.com/xiebiao/library/internal/infrastructure/config"
	apperrors "github.com/xiebiao/library/pkg/errors"
)

const (
	pngHeader  = "\x89PNG\r\n\x1a\n"
	jpegHeader = "\xff\xd8\xff\xe0"
)

func newTestStore(t *testing.T, maxSize int64) *CoverStore {
	t.Helper()
	s, err := NewCoverStore(config.StorageConfig{
		CoverDir:     filepath.Join(t.TempDir(), "covers"),
		BaseURL:      "/files/",
		MaxCoverSize: maxSize,
		AllowedExts:  []string{".jpg", ".png"},
	})
	require.NoError(t, err)
	return s
}

func TestCoverStore_SaveAndRemove(t *testing.T) {
	s := newTestStore(t, 1024)
	ctx := context.Background()

	cover, err := s.Save(ctx, "My Cover (1).PNG", strings.NewReader(pngHeader+"png-data"))
	require.NoError(t, err)

	name := filepath.Base(cover.Path)
	assert.True(t, strings.HasPrefix(name, "my-cover-1-"), name)
	assert.True(t, strings.HasSuffix(name, ".png"), name)
	assert.Equal(t, "/files/"+name, cover.URL)

	data, err := os.ReadFile(cover.Path)
	require.NoError(t, err)
	assert.Equal(t, pngHeader+"png-data", string(data))

	require.NoError(t, s.Remove(ctx, cover))
	_, err = os.Stat(cover.Path)
	assert.True(t, os.IsNotExist(err))

	// 重复删除不报错
	assert.NoError(t, s.Remove(ctx, cover))
}

func TestCoverStore_Rejects(t *testing.T) {
	s := newTestStore(t, 8)
	ctx := context.Background()

	_, err := s.Save(ctx, "cover.gif", bytes.NewReader([]byte("gif")))
	assert.ErrorIs(t, err, ErrCoverInvalidExt)

	_, err = s.Save(ctx, "cover.jpg", strings.NewReader(jpegHeader+"12345"))
	assert.ErrorIs(t, err, ErrCoverTooLarge)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInvalidCover))

	// 扩展名与内容不符
	_, err = s.Save(ctx, "cover.png", strings.NewReader(jpegHeader))
	assert.ErrorIs(t, err, ErrCoverMismatch)
	_, err = s.Save(ctx, "cover.jpg", strings.NewReader("<?php"))
	assert.ErrorIs(t, err, ErrCoverMismatch)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInvalidCover))

	_, err = s.Save(ctx, "cover.jpg", bytes.NewReader(nil))
	assert.ErrorIs(t, err, ErrCoverEmpty)

	// 失败时不留文件
	entries, err := os.ReadDir(s.Dir())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestCoverStore_RemoveOutsideDir(t *testing.T) {
	s := newTestStore(t, 1024)
	outside := filepath.Join(t.TempDir(), "keep.png")
	require.NoError(t, os.WriteFile(outside, []byte("x"), 0o644))

	err := s.Remove(context.Background(), book.CoverImage{URL: "/files/keep.png", Path: outside})
	assert.Error(t, err)
	_, statErr := os.Stat(outside)
	assert.NoError(t, statErr)
}

func TestCoverStore_SniffsBeyondHeader(t *testing.T) {
	s := newTestStore(t, 4096)
	content := jpegHeader + strings.Repeat("x", 2000)

	cover, err := s.Save(context.Background(), "big.jpg", strings.NewReader(content))
	require.NoError(t, err)

	data, err := os.ReadFile(cover.Path)
	require.NoError(t, err)
	assert.Equal(t, content, string(data))
}

func TestStoredName(t *testing.T) {
	name := storedName("../../etc/passwd.jpg", ".jpg")
	assert.True(t, strings.HasPrefix(name, "passwd-"), name)

	name = storedName("封面.jpg", ".jpg")
	assert.True(t, strings.HasPrefix(name, "cover-"), name)
}
