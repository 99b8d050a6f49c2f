// Package storage 封面图片的本地磁盘存储
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xiebiao/library/internal/domain/book"
	"github.com/xiebiao/library/internal/infrastructure/config"
	apperrors "github.com/xiebiao/library/pkg/errors"
	"github.com/xiebiao/library/pkg/logger"
)

var (
	ErrCoverTooLarge   = apperrors.New(apperrors.ErrCodeInvalidCover, "封面文件过大")
	ErrCoverInvalidExt = apperrors.New(apperrors.ErrCodeInvalidCover, "不支持的封面格式")
	ErrCoverEmpty      = apperrors.New(apperrors.ErrCodeInvalidCover, "封面文件为空")
	ErrCoverMismatch   = apperrors.New(apperrors.ErrCodeInvalidCover, "封面内容与扩展名不符")
)

// sniffLen 识别文件类型读取的头部长度
const sniffLen = 512

// coverMIME 扩展名对应的文件类型，未列出的扩展名只要求是图片
var coverMIME = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// CoverStore 封面存储
// 文件名: <清洗后的原文件名>-<uuid><扩展名>，对外地址: <base_url>/<文件名>
type CoverStore struct {
	dir     string
	baseURL string
	maxSize int64
	exts    map[string]struct{}
}

// NewCoverStore 创建封面存储，目录不存在时自动创建
func NewCoverStore(cfg config.StorageConfig) (*CoverStore, error) {
	if err := os.MkdirAll(cfg.CoverDir, 0o755); err != nil {
		return nil, fmt.Errorf("创建封面目录失败: %w", err)
	}

	exts := make(map[string]struct{}, len(cfg.AllowedExts))
	for _, ext := range cfg.AllowedExts {
		exts[strings.ToLower(ext)] = struct{}{}
	}

	return &CoverStore{
		dir:     cfg.CoverDir,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		maxSize: cfg.MaxCoverSize,
		exts:    exts,
	}, nil
}

// Dir 封面根目录(静态文件服务使用)
func (s *CoverStore) Dir() string {
	return s.dir
}

// Save 保存封面
// 超过大小上限时不会留下半截文件
func (s *CoverStore) Save(ctx context.Context, filename string, r io.Reader) (book.CoverImage, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if _, ok := s.exts[ext]; !ok {
		return book.CoverImage{}, ErrCoverInvalidExt
	}

	head := make([]byte, sniffLen)
	hn, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return book.CoverImage{}, fmt.Errorf("读取封面文件失败: %w", err)
	}
	head = head[:hn]
	if hn == 0 {
		return book.CoverImage{}, ErrCoverEmpty
	}
	if !matchesExt(mimetype.Detect(head), ext) {
		return book.CoverImage{}, ErrCoverMismatch
	}

	name := storedName(filename, ext)
	path := filepath.Join(s.dir, name)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return book.CoverImage{}, fmt.Errorf("创建封面文件失败: %w", err)
	}

	// 多读1字节判断是否超限
	n, err := io.Copy(f, io.LimitReader(io.MultiReader(bytes.NewReader(head), r), s.maxSize+1))
	closeErr := f.Close()
	switch {
	case err != nil:
		err = fmt.Errorf("写入封面文件失败: %w", err)
	case closeErr != nil:
		err = fmt.Errorf("写入封面文件失败: %w", closeErr)
	case n == 0:
		err = ErrCoverEmpty
	case n > s.maxSize:
		err = ErrCoverTooLarge
	}
	if err != nil {
		_ = os.Remove(path)
		return book.CoverImage{}, err
	}

	logger.WithContext(ctx).Debug("封面已保存", zap.String("path", path), zap.Int64("size", n))
	return book.CoverImage{
		URL:  s.baseURL + "/" + name,
		Path: path,
	}, nil
}

// Remove 删除封面文件，文件不存在不算错误
func (s *CoverStore) Remove(ctx context.Context, cover book.CoverImage) error {
	if cover.IsEmpty() || cover.Path == "" {
		return nil
	}

	// 只允许删除封面目录下的文件
	rel, err := filepath.Rel(s.dir, cover.Path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") || strings.ContainsRune(rel, filepath.Separator) {
		return fmt.Errorf("非法的封面路径: %s", cover.Path)
	}

	if err := os.Remove(cover.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("删除封面文件失败: %w", err)
	}
	logger.WithContext(ctx).Debug("封面已删除", zap.String("path", cover.Path))
	return nil
}

// matchesExt 文件内容是否与扩展名一致(apng归入png)
func matchesExt(m *mimetype.MIME, ext string) bool {
	expected, ok := coverMIME[ext]
	for ; m != nil; m = m.Parent() {
		if ok && m.Is(expected) {
			return true
		}
		if !ok && strings.HasPrefix(m.String(), "image/") {
			return true
		}
	}
	return false
}

func storedName(filename, ext string) string {
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	base = strings.Trim(unsafeChars.ReplaceAllString(base, "-"), "-")
	if len(base) > 50 {
		base = base[:50]
	}
	if base == "" {
		base = "cover"
	}
	return fmt.Sprintf("%s-%s%s", strings.ToLower(base), uuid.NewString(), ext)
}
