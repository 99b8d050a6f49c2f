package book

import (
	"context"
)

// Repository 图书仓储接口
// 事务内调用时实现必须使用ctx中的事务连接
type Repository interface {
	// Create 创建图书,ISBN重复返回ErrISBNDuplicate
	Create(ctx context.Context, book *Book) error

	// FindByID 根据ID查找图书,不存在返回ErrBookNotFound
	FindByID(ctx context.Context, id string) (*Book, error)

	// FindByISBN 根据ISBN查找图书
	FindByISBN(ctx context.Context, isbn string) (*Book, error)

	// Update 保存图书全部字段
	Update(ctx context.Context, book *Book) error

	// Delete 软删除
	Delete(ctx context.Context, id string) error

	// List 分页查询
	List(ctx context.Context, params ListParams) ([]*Book, int64, error)

	// LockByID 悲观锁查询(SELECT ... FOR UPDATE),必须在事务中调用
	LockByID(ctx context.Context, id string) (*Book, error)

	// UpdateAvailable 原子调整可借数量
	// UPDATE books SET available_quantity = available_quantity + delta
	// WHERE id = ? AND available_quantity + delta BETWEEN 0 AND total_quantity
	// 不满足条件时返回ErrStockExhausted/ErrStockOverflow
	UpdateAvailable(ctx context.Context, id string, delta int) error
}

// 排序方式
const (
	SortUpdatedDesc = "updated_at_desc"
	SortCreatedDesc = "created_at_desc"
	SortTitleAsc    = "title_asc"
)

// ListParams 列表查询参数
type ListParams struct {
	Page   int    // 页码(从1开始)
	Limit  int    // 每页数量
	Search string // 匹配书名、作者、ISBN
	SortBy string // 默认SortUpdatedDesc
}
