package borrow

import (
	"context"
	"time"
)

// Repository 借阅记录仓储
// 记录只增不删,唯一的修改是归还时写入returned_at
type Repository interface {
	// FindActive 查询(userID, bookID)的未归还记录,没有时返回nil, nil
	FindActive(ctx context.Context, userID, bookID string) (*Record, error)

	// Create 创建记录
	Create(ctx context.Context, record *Record) error

	// MarkReturned 写入归还时间
	// UPDATE ... SET returned_at = ? WHERE id = ? AND returned_at IS NULL
	// 记录不存在返回ErrRecordNotFound,已归还返回ErrAlreadyReturned
	MarkReturned(ctx context.Context, recordID string, returnedAt time.Time) (*Record, error)

	// ListByUser 用户借阅历史(按借阅时间倒序)
	ListByUser(ctx context.Context, userID string, filter Filter) ([]*Record, error)

	// ListByBook 图书借阅历史(按借阅时间倒序)
	ListByBook(ctx context.Context, bookID string, filter Filter) ([]*Record, error)

	// CountActiveByBook 图书未归还数量
	CountActiveByBook(ctx context.Context, bookID string) (int64, error)
}

// Filter 历史查询条件
type Filter struct {
	ActiveOnly bool
}
