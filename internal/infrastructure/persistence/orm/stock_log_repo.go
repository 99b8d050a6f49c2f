package orm

import (
	"context"

	"gorm.io/gorm"

	"github.com/xiebiao/library/internal/domain/book"
	apperrors "github.com/xiebiao/library/pkg/errors"
	"github.com/xiebiao/library/pkg/pagination"
)

// stockLogRepository 库存日志仓储实现
type stockLogRepository struct {
	db *gorm.DB
}

// NewStockLogRepository 创建库存日志仓储
func NewStockLogRepository(db *gorm.DB) book.LogRepository {
	return &stockLogRepository{db: db}
}

// Append 追加日志(与库存变更同事务)
func (r *stockLogRepository) Append(ctx context.Context, log *book.StockLog) error {
	model := &StockLogModel{
		BookID:          log.BookID,
		ChangeType:      string(log.ChangeType),
		Delta:           log.Delta,
		BeforeAvailable: log.BeforeAvailable,
		AfterAvailable:  log.AfterAvailable,
		TotalQuantity:   log.TotalQuantity,
		ReferenceID:     log.ReferenceID,
	}
	if err := conn(ctx, r.db).Create(model).Error; err != nil {
		return apperrors.Wrap(err, "写入库存日志失败")
	}
	log.ID = model.ID
	log.CreatedAt = model.CreatedAt
	return nil
}

// ListByBook 查询图书的库存日志(新的在前)
func (r *stockLogRepository) ListByBook(ctx context.Context, bookID string, page, limit int) ([]*book.StockLog, int64, error) {
	page, limit = pagination.Normalize(page, limit)

	query := conn(ctx, r.db).Model(&StockLogModel{}).Where("book_id = ?", bookID)

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, apperrors.Wrap(err, "查询日志总数失败")
	}

	var models []StockLogModel
	err := query.Order("id DESC").
		Limit(limit).
		Offset(pagination.Offset(page, limit)).
		Find(&models).Error
	if err != nil {
		return nil, 0, apperrors.Wrap(err, "查询库存日志失败")
	}

	logs := make([]*book.StockLog, len(models))
	for i, m := range models {
		logs[i] = &book.StockLog{
			ID:              m.ID,
			BookID:          m.BookID,
			ChangeType:      book.ChangeType(m.ChangeType),
			Delta:           m.Delta,
			BeforeAvailable: m.BeforeAvailable,
			AfterAvailable:  m.AfterAvailable,
			TotalQuantity:   m.TotalQuantity,
			ReferenceID:     m.ReferenceID,
			CreatedAt:       m.CreatedAt,
		}
	}
	return logs, total, nil
}
