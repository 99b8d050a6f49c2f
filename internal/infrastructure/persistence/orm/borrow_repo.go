package orm

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/xiebiao/library/internal/domain/borrow"
	apperrors "github.com/xiebiao/library/pkg/errors"
)

// borrowRepository 借阅记录仓储实现
type borrowRepository struct {
	db *gorm.DB
}

// NewBorrowRepository 创建借阅记录仓储
func NewBorrowRepository(db *gorm.DB) borrow.Repository {
	return &borrowRepository{db: db}
}

// FindActive 查询未归还记录
func (r *borrowRepository) FindActive(ctx context.Context, userID, bookID string) (*borrow.Record, error) {
	var models []BorrowRecordModel
	err := r.getDB(ctx).
		Where("user_id = ? AND book_id = ? AND returned_at IS NULL", userID, bookID).
		Order("borrowed_at DESC").
		Limit(1).
		Find(&models).Error
	if err != nil {
		return nil, apperrors.Wrap(err, "查询借阅记录失败")
	}
	if len(models) == 0 {
		return nil, nil
	}
	return toRecordEntity(&models[0]), nil
}

// Create 创建借阅记录
func (r *borrowRepository) Create(ctx context.Context, rec *borrow.Record) error {
	model := &BorrowRecordModel{
		ID:         rec.ID,
		UserID:     rec.UserID,
		BookID:     rec.BookID,
		BorrowedAt: rec.BorrowedAt,
		DueDate:    rec.DueDate,
		ReturnedAt: rec.ReturnedAt,
	}
	if err := r.getDB(ctx).Create(model).Error; err != nil {
		return apperrors.Wrap(err, "创建借阅记录失败")
	}
	return nil
}

// MarkReturned 写入归还时间(只允许一次)
func (r *borrowRepository) MarkReturned(ctx context.Context, recordID string, returnedAt time.Time) (*borrow.Record, error) {
	db := r.getDB(ctx)
	result := db.Model(&BorrowRecordModel{}).
		Where("id = ? AND returned_at IS NULL", recordID).
		Update("returned_at", returnedAt)
	if result.Error != nil {
		return nil, apperrors.Wrap(result.Error, "更新借阅记录失败")
	}

	var model BorrowRecordModel
	if err := db.Where("id = ?", recordID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, borrow.ErrRecordNotFound
		}
		return nil, apperrors.Wrap(err, "查询借阅记录失败")
	}
	if result.RowsAffected == 0 {
		return nil, borrow.ErrAlreadyReturned
	}
	return toRecordEntity(&model), nil
}

// ListByUser 用户借阅历史
func (r *borrowRepository) ListByUser(ctx context.Context, userID string, filter borrow.Filter) ([]*borrow.Record, error) {
	return r.list(ctx, r.getDB(ctx).Where("user_id = ?", userID), filter)
}

// ListByBook 图书借阅历史
func (r *borrowRepository) ListByBook(ctx context.Context, bookID string, filter borrow.Filter) ([]*borrow.Record, error) {
	return r.list(ctx, r.getDB(ctx).Where("book_id = ?", bookID), filter)
}

func (r *borrowRepository) list(_ context.Context, query *gorm.DB, filter borrow.Filter) ([]*borrow.Record, error) {
	if filter.ActiveOnly {
		query = query.Where("returned_at IS NULL")
	}

	var models []BorrowRecordModel
	if err := query.Order("borrowed_at DESC").Order("id DESC").Find(&models).Error; err != nil {
		return nil, apperrors.Wrap(err, "查询借阅历史失败")
	}

	records := make([]*borrow.Record, len(models))
	for i := range models {
		records[i] = toRecordEntity(&models[i])
	}
	return records, nil
}

// CountActiveByBook 图书未归还数量
func (r *borrowRepository) CountActiveByBook(ctx context.Context, bookID string) (int64, error) {
	var n int64
	err := r.getDB(ctx).Model(&BorrowRecordModel{}).
		Where("book_id = ? AND returned_at IS NULL", bookID).
		Count(&n).Error
	if err != nil {
		return 0, apperrors.Wrap(err, "统计借阅记录失败")
	}
	return n, nil
}

func toRecordEntity(model *BorrowRecordModel) *borrow.Record {
	return &borrow.Record{
		ID:         model.ID,
		UserID:     model.UserID,
		BookID:     model.BookID,
		BorrowedAt: model.BorrowedAt,
		DueDate:    model.DueDate,
		ReturnedAt: model.ReturnedAt,
	}
}

func (r *borrowRepository) getDB(ctx context.Context) *gorm.DB {
	return conn(ctx, r.db)
}
