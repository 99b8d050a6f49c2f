package book

import (
	"context"
	"time"
)

// ChangeType 库存变更类型
type ChangeType string

const (
	ChangeInit    ChangeType = "init"    // 上架
	ChangeBorrow  ChangeType = "borrow"  // 借出
	ChangeReturn  ChangeType = "return"  // 归还
	ChangeRestock ChangeType = "restock" // 修改总量
)

// StockLog 库存变更日志(只增不改)
// 与库存变更在同一事务中写入,记录变更前后状态
type StockLog struct {
	ID              uint64
	BookID          string
	ChangeType      ChangeType
	Delta           int // 可借数量变化(正数增加,负数减少)
	BeforeAvailable int
	AfterAvailable  int
	TotalQuantity   int    // 变更后的总量
	ReferenceID     string // 关联借阅记录ID(可选)
	CreatedAt       time.Time
}

// LogRepository 库存日志仓储
type LogRepository interface {
	Append(ctx context.Context, log *StockLog) error
	ListByBook(ctx context.Context, bookID string, page, limit int) ([]*StockLog, int64, error)
}
