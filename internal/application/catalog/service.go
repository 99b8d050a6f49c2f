// Package catalog 图书目录管理用例
//
// 新书入账、编辑(含总量调整)、删除、查询。
// 可借数量只通过库存账本变化，目录服务不直接改写。
package catalog

import (
	"context"
	"errors"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/xiebiao/library/internal/domain/book"
	"github.com/xiebiao/library/internal/domain/borrow"
	"github.com/xiebiao/library/pkg/logger"
	"github.com/xiebiao/library/pkg/pagination"
	"github.com/xiebiao/library/pkg/saga"
)

// sagaTimeout 封面写盘+入库的整体上限
const sagaTimeout = 30 * time.Second

// TxManager 事务执行器
type TxManager interface {
	Transaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// CoverStorage 封面文件存储
type CoverStorage interface {
	Save(ctx context.Context, filename string, r io.Reader) (book.CoverImage, error)
	Remove(ctx context.Context, cover book.CoverImage) error
}

// BookCache 图书详情缓存
//
// Get同时返回版本号；Set只在版本号未变化时写入，
// 读库期间发生的失效不会被旧快照覆盖
type BookCache interface {
	Get(ctx context.Context, id string) (*book.Book, int64, error)
	Set(ctx context.Context, b *book.Book, version int64) (bool, error)
	Invalidate(ctx context.Context, id string) error
}

// Service 目录服务
type Service struct {
	txManager TxManager
	books     book.Repository
	ledger    *book.Ledger
	logs      book.LogRepository
	records   borrow.Repository
	covers    CoverStorage
	cache     BookCache
}

// NewService 创建目录服务
func NewService(
	txManager TxManager,
	books book.Repository,
	ledger *book.Ledger,
	logs book.LogRepository,
	records borrow.Repository,
	covers CoverStorage,
	cache BookCache,
) *Service {
	return &Service{
		txManager: txManager,
		books:     books,
		ledger:    ledger,
		logs:      logs,
		records:   records,
		covers:    covers,
		cache:     cache,
	}
}

// CoverUpload 上传的封面
type CoverUpload struct {
	Filename string
	Content  io.Reader
}

// CreateRequest 新书入账
type CreateRequest struct {
	Title           string
	Author          string
	ISBN            string
	PublicationYear int
	Description     string
	TotalQuantity   int
	Cover           *CoverUpload // 可选
}

// UpdateRequest 编辑图书，nil字段不修改
type UpdateRequest struct {
	Title           *string
	Author          *string
	ISBN            *string
	PublicationYear *int
	Description     *string
	TotalQuantity   *int
	Cover           *CoverUpload
}

// ListRequest 列表查询
type ListRequest struct {
	Page   int
	Limit  int
	Search string
	SortBy string
}

// Create 新书入账
//
// 步骤:
//  1. 保存封面(可选)，补偿: 删除封面文件
//  2. 事务内写入图书与init库存日志
func (s *Service) Create(ctx context.Context, req CreateRequest) (*book.Book, error) {
	b, err := book.NewBook(req.Title, req.Author, req.ISBN, req.PublicationYear, req.Description, req.TotalQuantity)
	if err != nil {
		return nil, err
	}
	if err := book.ValidateISBN(b.ISBN); err != nil {
		return nil, err
	}

	sg := saga.New("create_book", sagaTimeout)
	if req.Cover != nil {
		sg.AddStep("save_cover",
			func(ctx context.Context) error {
				cover, err := s.covers.Save(ctx, req.Cover.Filename, req.Cover.Content)
				if err != nil {
					return err
				}
				b.SetCover(cover)
				return nil
			},
			func(ctx context.Context) error {
				return s.covers.Remove(ctx, b.Cover)
			},
		)
	}
	sg.AddStep("insert_book", func(ctx context.Context) error {
		return s.txManager.Transaction(ctx, func(ctx context.Context) error {
			return s.ledger.Open(ctx, b)
		})
	}, nil)

	if err := sg.Execute(ctx); err != nil {
		return nil, err
	}

	logger.WithContext(ctx).Info("图书已入账",
		zap.String("book_id", b.ID),
		zap.String("isbn", b.ISBN),
		zap.Int("total", b.TotalQuantity),
	)
	return b, nil
}

// Get 图书详情(先查缓存)
func (s *Service) Get(ctx context.Context, id string) (*book.Book, error) {
	log := logger.WithContext(ctx)

	// 缓存读取失败时不回填
	fill := false
	var version int64
	if s.cache != nil {
		cached, v, err := s.cache.Get(ctx, id)
		switch {
		case err != nil:
			log.Warn("读取图书缓存失败", zap.String("book_id", id), zap.Error(err))
		case cached != nil:
			return cached, nil
		default:
			fill, version = true, v
		}
	}

	b, err := s.books.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if fill {
		stored, err := s.cache.Set(ctx, b, version)
		if err != nil {
			log.Warn("写入图书缓存失败", zap.String("book_id", id), zap.Error(err))
		} else if !stored {
			log.Debug("图书已变更，跳过缓存回填", zap.String("book_id", id))
		}
	}
	return b, nil
}

// List 图书列表(按书名/作者/ISBN搜索)
func (s *Service) List(ctx context.Context, req ListRequest) ([]*book.Book, pagination.Meta, error) {
	page, limit := pagination.Normalize(req.Page, req.Limit)
	books, total, err := s.books.List(ctx, book.ListParams{
		Page:   page,
		Limit:  limit,
		Search: req.Search,
		SortBy: req.SortBy,
	})
	if err != nil {
		return nil, pagination.Meta{}, err
	}
	return books, pagination.Calculate(page, limit, total), nil
}

// Update 编辑图书
//
// 总量变化时: 新可借数量 = 新总量 - 已借出数量，小于已借出数量时拒绝。
// 新封面先落盘，事务失败时删除新封面；成功后删除旧封面。
func (s *Service) Update(ctx context.Context, id string, req UpdateRequest) (*book.Book, error) {
	var isbn string
	if req.ISBN != nil {
		isbn = book.NormalizeISBN(*req.ISBN)
		if err := book.ValidateISBN(isbn); err != nil {
			return nil, err
		}
	}

	var (
		updated  *book.Book
		newCover book.CoverImage
		oldCover book.CoverImage
	)

	sg := saga.New("update_book", sagaTimeout)
	if req.Cover != nil {
		sg.AddStep("save_cover",
			func(ctx context.Context) error {
				cover, err := s.covers.Save(ctx, req.Cover.Filename, req.Cover.Content)
				if err != nil {
					return err
				}
				newCover = cover
				return nil
			},
			func(ctx context.Context) error {
				return s.covers.Remove(ctx, newCover)
			},
		)
	}
	sg.AddStep("update_book", func(ctx context.Context) error {
		return s.txManager.Transaction(ctx, func(ctx context.Context) error {
			b, err := s.books.LockByID(ctx, id)
			if err != nil {
				return err
			}

			if err := b.UpdateInfo(req.Title, req.Author, req.Description, req.PublicationYear); err != nil {
				return err
			}

			if req.ISBN != nil && isbn != b.ISBN {
				existing, err := s.books.FindByISBN(ctx, isbn)
				if err != nil && !errors.Is(err, book.ErrBookNotFound) {
					return err
				}
				if existing != nil && existing.ID != b.ID {
					return book.ErrISBNDuplicate
				}
				b.ISBN = isbn
			}

			if !newCover.IsEmpty() {
				oldCover = b.SetCover(newCover)
			}

			if req.TotalQuantity != nil && *req.TotalQuantity != b.TotalQuantity {
				if err := s.ledger.Resize(ctx, b, *req.TotalQuantity); err != nil {
					return err
				}
			} else if err := s.books.Update(ctx, b); err != nil {
				return err
			}

			updated = b
			return nil
		})
	}, nil)

	if err := sg.Execute(ctx); err != nil {
		return nil, err
	}

	s.invalidate(ctx, id)
	if !oldCover.IsEmpty() {
		if err := s.covers.Remove(ctx, oldCover); err != nil {
			logger.WithContext(ctx).Warn("删除旧封面失败", zap.String("path", oldCover.Path), zap.Error(err))
		}
	}

	logger.WithContext(ctx).Info("图书已更新",
		zap.String("book_id", id),
		zap.Int("total", updated.TotalQuantity),
		zap.Int("available", updated.AvailableQuantity),
	)
	return updated, nil
}

// Delete 软删除图书，有未归还借阅时拒绝
// 借阅历史与封面文件保留
func (s *Service) Delete(ctx context.Context, id string) error {
	err := s.txManager.Transaction(ctx, func(ctx context.Context) error {
		if _, err := s.books.LockByID(ctx, id); err != nil {
			return err
		}

		active, err := s.records.CountActiveByBook(ctx, id)
		if err != nil {
			return err
		}
		if active > 0 {
			return book.ErrBookHasLoans
		}
		return s.books.Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	s.invalidate(ctx, id)
	logger.WithContext(ctx).Info("图书已删除", zap.String("book_id", id))
	return nil
}

// StockLogs 库存变更日志(时间倒序)
func (s *Service) StockLogs(ctx context.Context, id string, page, limit int) ([]*book.StockLog, pagination.Meta, error) {
	if _, err := s.books.FindByID(ctx, id); err != nil {
		return nil, pagination.Meta{}, err
	}

	page, limit = pagination.Normalize(page, limit)
	logs, total, err := s.logs.ListByBook(ctx, id, page, limit)
	if err != nil {
		return nil, pagination.Meta{}, err
	}
	return logs, pagination.Calculate(page, limit, total), nil
}

func (s *Service) invalidate(ctx context.Context, id string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, id); err != nil {
		logger.WithContext(ctx).Warn("删除图书缓存失败", zap.String("book_id", id), zap.Error(err))
	}
}
