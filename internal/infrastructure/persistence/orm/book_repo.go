package orm

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/xiebiao/library/internal/domain/book"
	apperrors "github.com/xiebiao/library/pkg/errors"
	"github.com/xiebiao/library/pkg/pagination"
)

// bookRepository 图书仓储实现
type bookRepository struct {
	db *gorm.DB
}

// NewBookRepository 创建图书仓储
func NewBookRepository(db *gorm.DB) book.Repository {
	return &bookRepository{db: db}
}

// Create 创建图书
func (r *bookRepository) Create(ctx context.Context, b *book.Book) error {
	model := toBookModel(b)
	if err := r.getDB(ctx).Create(model).Error; err != nil {
		if isDuplicateError(err) {
			return book.ErrISBNDuplicate
		}
		return apperrors.Wrap(err, "创建图书失败")
	}

	b.CreatedAt = model.CreatedAt
	b.UpdatedAt = model.UpdatedAt
	return nil
}

// FindByID 根据ID查找图书
func (r *bookRepository) FindByID(ctx context.Context, id string) (*book.Book, error) {
	var model BookModel
	if err := r.getDB(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, book.ErrBookNotFound
		}
		return nil, apperrors.Wrap(err, "查询图书失败")
	}
	return toBookEntity(&model), nil
}

// FindByISBN 根据ISBN查找图书
func (r *bookRepository) FindByISBN(ctx context.Context, isbn string) (*book.Book, error) {
	var model BookModel
	if err := r.getDB(ctx).Where("isbn = ?", isbn).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, book.ErrBookNotFound
		}
		return nil, apperrors.Wrap(err, "查询图书失败")
	}
	return toBookEntity(&model), nil
}

// Update 保存图书全部可变字段
func (r *bookRepository) Update(ctx context.Context, b *book.Book) error {
	now := time.Now().UTC()
	result := r.getDB(ctx).Model(&BookModel{}).
		Where("id = ?", b.ID).
		Updates(map[string]interface{}{
			"title":              b.Title,
			"author":             b.Author,
			"isbn":               b.ISBN,
			"publication_year":   b.PublicationYear,
			"description":        b.Description,
			"cover_url":          b.Cover.URL,
			"cover_path":         b.Cover.Path,
			"total_quantity":     b.TotalQuantity,
			"available_quantity": b.AvailableQuantity,
			"updated_at":         now,
		})
	if result.Error != nil {
		if isDuplicateError(result.Error) {
			return book.ErrISBNDuplicate
		}
		return apperrors.Wrap(result.Error, "更新图书失败")
	}
	if result.RowsAffected == 0 {
		// MySQL对未变化的行返回0，再确认一次是否存在
		if _, err := r.FindByID(ctx, b.ID); err != nil {
			return err
		}
	}

	b.UpdatedAt = now
	return nil
}

// Delete 删除图书(软删除)
func (r *bookRepository) Delete(ctx context.Context, id string) error {
	result := r.getDB(ctx).Where("id = ?", id).Delete(&BookModel{})
	if result.Error != nil {
		return apperrors.Wrap(result.Error, "删除图书失败")
	}
	if result.RowsAffected == 0 {
		return book.ErrBookNotFound
	}
	return nil
}

// List 分页查询图书列表
func (r *bookRepository) List(ctx context.Context, params book.ListParams) ([]*book.Book, int64, error) {
	page, limit := pagination.Normalize(params.Page, params.Limit)

	query := r.getDB(ctx).Model(&BookModel{})

	// 关键词匹配书名、作者、ISBN(不区分大小写)
	if kw := strings.TrimSpace(params.Search); kw != "" {
		like := "%" + strings.ToLower(kw) + "%"
		query = query.Where("LOWER(title) LIKE ? OR LOWER(author) LIKE ? OR isbn LIKE ?", like, like, like)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, apperrors.Wrap(err, "查询图书总数失败")
	}

	switch params.SortBy {
	case book.SortCreatedDesc:
		query = query.Order("created_at DESC")
	case book.SortTitleAsc:
		query = query.Order("title ASC")
	default:
		query = query.Order("updated_at DESC")
	}
	query = query.Order("id ASC")

	var models []BookModel
	if err := query.Limit(limit).Offset(pagination.Offset(page, limit)).Find(&models).Error; err != nil {
		return nil, 0, apperrors.Wrap(err, "查询图书列表失败")
	}

	books := make([]*book.Book, len(models))
	for i := range models {
		books[i] = toBookEntity(&models[i])
	}
	return books, total, nil
}

// LockByID 悲观锁查询图书
// 必须在TxManager.Transaction中调用，否则锁在语句结束时立即释放
func (r *bookRepository) LockByID(ctx context.Context, id string) (*book.Book, error) {
	var model BookModel
	err := forUpdate(r.getDB(ctx)).Where("id = ?", id).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, book.ErrBookNotFound
		}
		return nil, apperrors.Wrap(err, "锁定图书失败")
	}
	return toBookEntity(&model), nil
}

// UpdateAvailable 原子调整可借数量
func (r *bookRepository) UpdateAvailable(ctx context.Context, id string, delta int) error {
	db := r.getDB(ctx)
	result := db.Model(&BookModel{}).
		Where("id = ?", id).
		Where("available_quantity + ? >= 0", delta).
		Where("available_quantity + ? <= total_quantity", delta).
		Updates(map[string]interface{}{
			"available_quantity": gorm.Expr("available_quantity + ?", delta),
			"updated_at":         time.Now().UTC(),
		})
	if result.Error != nil {
		return apperrors.Wrap(result.Error, "更新可借数量失败")
	}

	if result.RowsAffected == 0 {
		// 图书不存在，或者越界，再查一次确定原因
		var model BookModel
		if err := db.Where("id = ?", id).First(&model).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return book.ErrBookNotFound
			}
			return apperrors.Wrap(err, "查询图书失败")
		}
		if model.AvailableQuantity+delta < 0 {
			return book.ErrStockExhausted
		}
		return book.ErrStockOverflow
	}
	return nil
}

func toBookModel(b *book.Book) *BookModel {
	return &BookModel{
		ID:                b.ID,
		Title:             b.Title,
		Author:            b.Author,
		ISBN:              b.ISBN,
		PublicationYear:   b.PublicationYear,
		Description:       b.Description,
		CoverURL:          b.Cover.URL,
		CoverPath:         b.Cover.Path,
		TotalQuantity:     b.TotalQuantity,
		AvailableQuantity: b.AvailableQuantity,
	}
}

func toBookEntity(model *BookModel) *book.Book {
	return &book.Book{
		ID:                model.ID,
		Title:             model.Title,
		Author:            model.Author,
		ISBN:              model.ISBN,
		PublicationYear:   model.PublicationYear,
		Description:       model.Description,
		Cover:             book.CoverImage{URL: model.CoverURL, Path: model.CoverPath},
		TotalQuantity:     model.TotalQuantity,
		AvailableQuantity: model.AvailableQuantity,
		CreatedAt:         model.CreatedAt,
		UpdatedAt:         model.UpdatedAt,
	}
}

func (r *bookRepository) getDB(ctx context.Context) *gorm.DB {
	return conn(ctx, r.db)
}
